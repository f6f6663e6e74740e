package commands

import (
	"fmt"
	"time"

	"github.com/wonny/sieve/internal/indicator"
	"github.com/wonny/sieve/internal/marketdata"
	"github.com/wonny/sieve/internal/plan"
	"github.com/wonny/sieve/internal/risk"
	"github.com/wonny/sieve/internal/scan"
	"github.com/wonny/sieve/internal/scoring"
	"github.com/wonny/sieve/internal/screen"
	"github.com/wonny/sieve/internal/universe"
	"github.com/wonny/sieve/pkg/config"
	"github.com/wonny/sieve/pkg/database"
	"github.com/wonny/sieve/pkg/logger"
	"github.com/wonny/sieve/pkg/redis"
)

// app bundles the shared process dependencies commands bootstrap from.
type app struct {
	cfg   *config.Store
	log   *logger.Logger
	db    *database.DB
	redis *redis.Client
}

func newApp() (*app, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	log := logger.New(cfg)

	db, err := database.New(cfg)
	if err != nil {
		return nil, fmt.Errorf("connect database: %w", err)
	}

	rdb, err := redis.New(cfg)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("connect redis: %w", err)
	}

	return &app{cfg: cfg, log: log, db: db, redis: rdb}, nil
}

func (a *app) close() {
	a.db.Close()
	a.redis.Close()
}

// newOrchestrator wires the full scan stack.
func (a *app) newOrchestrator(scanCfg scan.Config) *scan.Orchestrator {
	fetcher := marketdata.NewClient(marketdata.ConfigFrom(a.cfg), a.log)

	pipeline := scan.NewPipeline(
		fetcher,
		indicator.NewEngine(indicator.ConfigFrom(a.cfg)),
		screen.NewCandidateFilter(screen.ConfigFrom(a.cfg), a.log),
		risk.NewFilter(risk.ConfigFrom(a.cfg), a.log),
		scoring.NewEngine(scoring.ConfigFrom(a.cfg), a.log),
		plan.NewBuilder(plan.ConfigFrom(a.cfg), a.log),
		scan.PipelineConfigFrom(a.cfg),
		a.log,
	)

	checkpoints := redis.NewCheckpointStore(a.redis, 48*time.Hour)
	repo := scan.NewPostgresRepository(a.db.Pool)

	return scan.NewOrchestrator(pipeline, repo, checkpoints, scanCfg, a.log)
}

// newUniverseProvider wires the cached universe provider.
func (a *app) newUniverseProvider() *universe.Provider {
	repo := universe.NewRepository(a.db.Pool)
	return universe.NewProvider(repo, a.redis, universe.TTLFrom(a.cfg), a.log)
}
