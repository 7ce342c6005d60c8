// Package postgres backs the price-history interface with a PostgreSQL
// observation table.
package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"

	"github.com/structedge/payoff-engine/internal/marketdata"
)

// PricesRepo implements marketdata.PriceHistory over a price_observations
// table.
type PricesRepo struct {
	db      *sqlx.DB
	timeout time.Duration
}

// Connect opens and pings a PostgreSQL connection.
func Connect(dsn string) (*sqlx.DB, error) {
	db, err := sqlx.Connect("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("connect to price database: %w", err)
	}
	db.SetMaxOpenConns(8)
	db.SetConnMaxLifetime(30 * time.Minute)
	return db, nil
}

// NewPricesRepo creates a price-history repository with a per-query timeout.
func NewPricesRepo(db *sqlx.DB, timeout time.Duration) *PricesRepo {
	return &PricesRepo{db: db, timeout: timeout}
}

// Series returns the full date-ordered close series for a symbol.
// An empty result maps to marketdata.ErrSeriesNotFound so alias fallback and
// the builder's fail-fast policy behave the same as for any other source.
func (r *PricesRepo) Series(ctx context.Context, symbol string) ([]marketdata.Observation, error) {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	query := `
		SELECT obs_date, close_price
		FROM price_observations
		WHERE symbol = $1
		ORDER BY obs_date ASC`

	var series []marketdata.Observation
	if err := r.db.SelectContext(ctx, &series, query, symbol); err != nil {
		return nil, fmt.Errorf("query price series for %s: %w", symbol, err)
	}
	if len(series) == 0 {
		return nil, fmt.Errorf("%s: %w", symbol, marketdata.ErrSeriesNotFound)
	}
	return series, nil
}
