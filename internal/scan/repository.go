package scan

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/wonny/sieve/internal/contracts"
)

// PostgresRepository persists scan results and run summaries.
type PostgresRepository struct {
	db *pgxpool.Pool
}

// NewPostgresRepository creates a new repository instance.
func NewPostgresRepository(db *pgxpool.Pool) *PostgresRepository {
	return &PostgresRepository{db: db}
}

// Pool returns the underlying database pool.
func (r *PostgresRepository) Pool() *pgxpool.Pool {
	return r.db
}

// UpsertTickerResult writes one per-ticker result, keyed by (ticker,
// run_date) so re-running a segment after a resume is idempotent.
func (r *PostgresRepository) UpsertTickerResult(ctx context.Context, result contracts.TickerResult) error {
	var candidateJSON []byte
	if result.Candidate != nil {
		var err error
		candidateJSON, err = json.Marshal(result.Candidate)
		if err != nil {
			return fmt.Errorf("marshal candidate: %w", err)
		}
	}

	query := `
		INSERT INTO scan.ticker_results (
			ticker,
			run_date,
			name,
			market,
			fetch_ok,
			indicator_ready,
			bars_count,
			failure_reason,
			insufficient_reason,
			cause,
			candidate,
			created_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, NULLIF($8, ''), NULLIF($9, ''), NULLIF($10, ''), $11, NOW())
		ON CONFLICT (ticker, run_date) DO UPDATE SET
			name = EXCLUDED.name,
			market = EXCLUDED.market,
			fetch_ok = EXCLUDED.fetch_ok,
			indicator_ready = EXCLUDED.indicator_ready,
			bars_count = EXCLUDED.bars_count,
			failure_reason = EXCLUDED.failure_reason,
			insufficient_reason = EXCLUDED.insufficient_reason,
			cause = EXCLUDED.cause,
			candidate = EXCLUDED.candidate,
			created_at = NOW()
	`

	_, err := r.db.Exec(ctx, query,
		result.Ticker,
		result.RunDate,
		result.Name,
		result.Market,
		result.FetchOK,
		result.IndicatorReady,
		result.BarsCount,
		string(result.FailureReason),
		string(result.InsufficientReason),
		string(result.Cause),
		candidateJSON,
	)
	if err != nil {
		return fmt.Errorf("upsert ticker result: %w", err)
	}

	return nil
}

// SaveSummary writes the run summary, one row per run date.
func (r *PostgresRepository) SaveSummary(ctx context.Context, summary contracts.ScanSummary) error {
	byFailure, err := json.Marshal(summary.ByFailure)
	if err != nil {
		return fmt.Errorf("marshal by_failure: %w", err)
	}
	byInsufficient, err := json.Marshal(summary.ByInsufficient)
	if err != nil {
		return fmt.Errorf("marshal by_insufficient: %w", err)
	}
	byCause, err := json.Marshal(summary.ByCause)
	if err != nil {
		return fmt.Errorf("marshal by_cause: %w", err)
	}

	query := `
		INSERT INTO scan.run_summaries (
			run_date,
			total,
			fetch_ok,
			indicator_ready,
			candidates,
			by_failure,
			by_insufficient,
			by_cause,
			created_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, NOW())
		ON CONFLICT (run_date) DO UPDATE SET
			total = EXCLUDED.total,
			fetch_ok = EXCLUDED.fetch_ok,
			indicator_ready = EXCLUDED.indicator_ready,
			candidates = EXCLUDED.candidates,
			by_failure = EXCLUDED.by_failure,
			by_insufficient = EXCLUDED.by_insufficient,
			by_cause = EXCLUDED.by_cause,
			created_at = NOW()
	`

	_, err = r.db.Exec(ctx, query,
		summary.RunDate,
		summary.Total,
		summary.FetchOK,
		summary.IndicatorReady,
		summary.Candidates,
		byFailure,
		byInsufficient,
		byCause,
	)
	if err != nil {
		return fmt.Errorf("upsert run summary: %w", err)
	}

	return nil
}

// GetSummary loads the summary for one run date.
func (r *PostgresRepository) GetSummary(ctx context.Context, runDate string) (*contracts.ScanSummary, error) {
	query := `
		SELECT run_date, total, fetch_ok, indicator_ready, candidates,
		       by_failure, by_insufficient, by_cause
		FROM scan.run_summaries
		WHERE run_date = $1
	`

	var s contracts.ScanSummary
	var byFailure, byInsufficient, byCause []byte
	err := r.db.QueryRow(ctx, query, runDate).Scan(
		&s.RunDate, &s.Total, &s.FetchOK, &s.IndicatorReady, &s.Candidates,
		&byFailure, &byInsufficient, &byCause,
	)
	if err == pgx.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get run summary: %w", err)
	}

	if err := json.Unmarshal(byFailure, &s.ByFailure); err != nil {
		return nil, fmt.Errorf("unmarshal by_failure: %w", err)
	}
	if err := json.Unmarshal(byInsufficient, &s.ByInsufficient); err != nil {
		return nil, fmt.Errorf("unmarshal by_insufficient: %w", err)
	}
	if err := json.Unmarshal(byCause, &s.ByCause); err != nil {
		return nil, fmt.Errorf("unmarshal by_cause: %w", err)
	}

	return &s, nil
}

// GetLatestSummary loads the most recent run summary.
func (r *PostgresRepository) GetLatestSummary(ctx context.Context) (*contracts.ScanSummary, error) {
	query := `
		SELECT run_date, total, fetch_ok, indicator_ready, candidates,
		       by_failure, by_insufficient, by_cause
		FROM scan.run_summaries
		ORDER BY run_date DESC
		LIMIT 1
	`

	var s contracts.ScanSummary
	var byFailure, byInsufficient, byCause []byte
	err := r.db.QueryRow(ctx, query).Scan(
		&s.RunDate, &s.Total, &s.FetchOK, &s.IndicatorReady, &s.Candidates,
		&byFailure, &byInsufficient, &byCause,
	)
	if err == pgx.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get latest run summary: %w", err)
	}

	if err := json.Unmarshal(byFailure, &s.ByFailure); err != nil {
		return nil, fmt.Errorf("unmarshal by_failure: %w", err)
	}
	if err := json.Unmarshal(byInsufficient, &s.ByInsufficient); err != nil {
		return nil, fmt.Errorf("unmarshal by_insufficient: %w", err)
	}
	if err := json.Unmarshal(byCause, &s.ByCause); err != nil {
		return nil, fmt.Errorf("unmarshal by_cause: %w", err)
	}

	return &s, nil
}

// GetCandidates loads the candidates persisted for one run date, highest
// score first.
func (r *PostgresRepository) GetCandidates(ctx context.Context, runDate string, limit int) ([]contracts.Candidate, error) {
	query := `
		SELECT candidate
		FROM scan.ticker_results
		WHERE run_date = $1 AND candidate IS NOT NULL
		ORDER BY (candidate->'score'->>'score')::float DESC
		LIMIT $2
	`

	rows, err := r.db.Query(ctx, query, runDate, limit)
	if err != nil {
		return nil, fmt.Errorf("query candidates: %w", err)
	}
	defer rows.Close()

	var candidates []contracts.Candidate
	for rows.Next() {
		var blob []byte
		if err := rows.Scan(&blob); err != nil {
			return nil, fmt.Errorf("scan candidate row: %w", err)
		}
		var c contracts.Candidate
		if err := json.Unmarshal(blob, &c); err != nil {
			return nil, fmt.Errorf("unmarshal candidate: %w", err)
		}
		candidates = append(candidates, c)
	}
	return candidates, rows.Err()
}
