package universe

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/wonny/sieve/internal/contracts"
	"github.com/wonny/sieve/pkg/config"
	"github.com/wonny/sieve/pkg/logger"
	"github.com/wonny/sieve/pkg/redis"
)

const cacheKey = "sieve:universe:active"

// Source loads the universe from its backing store.
type Source interface {
	Load(ctx context.Context) (contracts.Universe, error)
}

// Provider serves the deduplicated scan universe, caching it in redis for
// the refresh cadence so repeated invocations within a run window do not
// hit the database. Cache failures degrade to a direct source load.
type Provider struct {
	source Source
	cache  *redis.Client
	ttl    time.Duration
	logger *logger.Logger
}

// NewProvider creates a universe provider. ttl controls the cache
// lifetime; the redis client may be disabled, in which case every call
// goes to the source.
func NewProvider(source Source, cache *redis.Client, ttl time.Duration, log *logger.Logger) *Provider {
	return &Provider{
		source: source,
		cache:  cache,
		ttl:    ttl,
		logger: log.WithField("module", "universe"),
	}
}

// TTLFrom reads the cache cadence from the config store.
func TTLFrom(store *config.Store) time.Duration {
	return time.Duration(store.Int("UNIVERSE_CACHE_TTL_MINUTES", 360)) * time.Minute
}

// Universe returns the current deduplicated universe.
func (p *Provider) Universe(ctx context.Context) (contracts.Universe, error) {
	if u, ok := p.fromCache(ctx); ok {
		return u, nil
	}

	u, err := p.source.Load(ctx)
	if err != nil {
		return contracts.Universe{}, fmt.Errorf("load universe: %w", err)
	}
	u = *u.Dedup()

	p.toCache(ctx, u)

	p.logger.WithField("tickers", u.Count()).Info("Universe refreshed")
	return u, nil
}

// Invalidate drops the cached universe, forcing the next call to reload.
func (p *Provider) Invalidate(ctx context.Context) {
	if !p.cache.Enabled() {
		return
	}
	if err := p.cache.Redis().Del(ctx, cacheKey).Err(); err != nil {
		p.logger.WithError(err).Warn("Failed to invalidate universe cache")
	}
}

func (p *Provider) fromCache(ctx context.Context) (contracts.Universe, bool) {
	if !p.cache.Enabled() {
		return contracts.Universe{}, false
	}

	payload, err := p.cache.Redis().Get(ctx, cacheKey).Bytes()
	if err != nil {
		return contracts.Universe{}, false
	}

	var u contracts.Universe
	if err := json.Unmarshal(payload, &u); err != nil {
		p.logger.WithError(err).Warn("Corrupt universe cache entry, reloading")
		return contracts.Universe{}, false
	}
	return u, true
}

func (p *Provider) toCache(ctx context.Context, u contracts.Universe) {
	if !p.cache.Enabled() {
		return
	}

	payload, err := json.Marshal(u)
	if err != nil {
		p.logger.WithError(err).Warn("Failed to marshal universe for cache")
		return
	}
	if err := p.cache.Redis().Set(ctx, cacheKey, payload, p.ttl).Err(); err != nil {
		p.logger.WithError(err).Warn("Failed to cache universe")
	}
}
