package plan

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
)

// WatchlistRow is one persisted watchlist entry. Indicators is the JSON
// blob consumed by BuildForWatchlist.
type WatchlistRow struct {
	Ticker     string
	Name       string
	Indicators []byte
}

// WatchlistRepository loads watchlist rows from Postgres.
type WatchlistRepository struct {
	db *pgxpool.Pool
}

// NewWatchlistRepository creates a new repository instance.
func NewWatchlistRepository(db *pgxpool.Pool) *WatchlistRepository {
	return &WatchlistRepository{db: db}
}

// Active returns all active watchlist rows ordered by ticker.
func (r *WatchlistRepository) Active(ctx context.Context) ([]WatchlistRow, error) {
	query := `
		SELECT ticker, name, indicators
		FROM watchlist.entries
		WHERE is_active = true
		ORDER BY ticker
	`

	rows, err := r.db.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("query watchlist: %w", err)
	}
	defer rows.Close()

	var out []WatchlistRow
	for rows.Next() {
		var row WatchlistRow
		if err := rows.Scan(&row.Ticker, &row.Name, &row.Indicators); err != nil {
			return nil, fmt.Errorf("scan watchlist row: %w", err)
		}
		out = append(out, row)
	}
	return out, rows.Err()
}
