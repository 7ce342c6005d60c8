// Package marketdata resolves the price history a payoff evaluation needs
// and condenses it into an immutable market context snapshot.
package marketdata

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"
)

// ErrSeriesNotFound is returned by a price-history source when it holds no
// series for the requested symbol. The context builder retries with symbol
// aliases before escalating to a fatal MissingMarketDataError.
var ErrSeriesNotFound = errors.New("price series not found")

// Observation is one close-price record of a daily series.
type Observation struct {
	Date  time.Time `json:"date" db:"obs_date"`
	Close float64   `json:"close" db:"close_price"`
}

// PriceHistory serves ordered (ascending by date) close-price series by
// symbol.
type PriceHistory interface {
	Series(ctx context.Context, symbol string) ([]Observation, error)
}

// SymbolAliases returns the lookup candidates for a symbol: the symbol
// itself, then its base without a venue suffix ("BAYN.DE" -> "BAYN"), or the
// symbol with a default ".US" suffix when it carries none. Vendors disagree
// on suffix conventions; trying the short list covers the common cases.
func SymbolAliases(symbol string) []string {
	aliases := []string{symbol}
	if idx := strings.LastIndex(symbol, "."); idx > 0 {
		aliases = append(aliases, symbol[:idx])
	} else {
		aliases = append(aliases, symbol+".US")
	}
	return aliases
}

// MemorySource is a map-backed PriceHistory used by tests and by the CLI's
// CSV loading path.
type MemorySource struct {
	series map[string][]Observation
}

// NewMemorySource creates an empty in-memory price history.
func NewMemorySource() *MemorySource {
	return &MemorySource{series: map[string][]Observation{}}
}

// Add appends observations to a symbol's series, keeping it date-ordered.
func (m *MemorySource) Add(symbol string, obs ...Observation) {
	merged := append(m.series[symbol], obs...)
	sort.SliceStable(merged, func(i, j int) bool {
		return merged[i].Date.Before(merged[j].Date)
	})
	m.series[symbol] = merged
}

// Series returns a copy of the symbol's series, ErrSeriesNotFound when the
// symbol is unknown.
func (m *MemorySource) Series(_ context.Context, symbol string) ([]Observation, error) {
	series, ok := m.series[symbol]
	if !ok || len(series) == 0 {
		return nil, fmt.Errorf("%s: %w", symbol, ErrSeriesNotFound)
	}
	out := make([]Observation, len(series))
	copy(out, series)
	return out, nil
}
