package universe

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/wonny/sieve/internal/contracts"
)

// Repository loads and maintains the scan universe in Postgres.
type Repository struct {
	db *pgxpool.Pool
}

// NewRepository creates a new repository instance.
func NewRepository(db *pgxpool.Pool) *Repository {
	return &Repository{db: db}
}

// Load returns all active universe entries ordered by ticker.
func (r *Repository) Load(ctx context.Context) (contracts.Universe, error) {
	query := `
		SELECT ticker, code, name, market
		FROM universe.entries
		WHERE is_active = true
		ORDER BY ticker
	`

	rows, err := r.db.Query(ctx, query)
	if err != nil {
		return contracts.Universe{}, fmt.Errorf("query universe: %w", err)
	}
	defer rows.Close()

	u := contracts.Universe{Date: time.Now().UTC()}
	for rows.Next() {
		var e contracts.UniverseEntry
		if err := rows.Scan(&e.Ticker, &e.Code, &e.Name, &e.Market); err != nil {
			return contracts.Universe{}, fmt.Errorf("scan universe row: %w", err)
		}
		u.Entries = append(u.Entries, e)
	}
	if err := rows.Err(); err != nil {
		return contracts.Universe{}, fmt.Errorf("iterate universe rows: %w", err)
	}

	return *u.Dedup(), nil
}

// UpsertEntries refreshes the universe table, marking every given entry
// active. Entries absent from the batch keep their previous state.
func (r *Repository) UpsertEntries(ctx context.Context, entries []contracts.UniverseEntry) error {
	query := `
		INSERT INTO universe.entries (ticker, code, name, market, is_active, updated_at)
		VALUES ($1, $2, $3, $4, true, NOW())
		ON CONFLICT (ticker) DO UPDATE SET
			code = EXCLUDED.code,
			name = EXCLUDED.name,
			market = EXCLUDED.market,
			is_active = true,
			updated_at = NOW()
	`

	for _, e := range entries {
		if _, err := r.db.Exec(ctx, query, e.Ticker, e.Code, e.Name, e.Market); err != nil {
			return fmt.Errorf("upsert universe entry %s: %w", e.Ticker, err)
		}
	}
	return nil
}
