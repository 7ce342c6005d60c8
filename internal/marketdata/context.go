package marketdata

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/rs/zerolog/log"
	"golang.org/x/time/rate"

	"github.com/structedge/payoff-engine/internal/product"
)

// MissingMarketDataError is the single fatal error of an evaluation: a
// required underlying has no price series under any alias. No partial market
// context is ever returned alongside it.
type MissingMarketDataError struct {
	Symbol string
}

func (e *MissingMarketDataError) Error() string {
	return fmt.Sprintf("missing market data for underlying %s", e.Symbol)
}

// ChartPoint is one rebased time-series point of an underlying's chart,
// spanning [trade date, final observation date].
type ChartPoint struct {
	Date  time.Time `json:"date"`
	Close float64   `json:"close"`
	// RebasedPerformance is close/strike as a percentage, rounded to two
	// decimals (basis-point rounding).
	RebasedPerformance float64 `json:"rebased_performance"`
}

// UnderlyingSnapshot is the per-underlying view the evaluators read:
// reference prices, performance metrics, and the rebased chart series.
type UnderlyingSnapshot struct {
	Symbol           string       `json:"symbol"`
	Strike           float64      `json:"strike"`
	TradePrice       float64      `json:"trade_price"`
	CurrentPrice     float64      `json:"current_price"`
	Performance      float64      `json:"performance"`
	PerformanceRatio float64      `json:"performance_ratio"`
	IsMatured        bool         `json:"is_matured"`
	ChartSeries      []ChartPoint `json:"chart_series"`
}

// MarketContext is the read-only market state an evaluation runs against.
// It is built completely before any rule is evaluated and never mutated
// afterwards.
type MarketContext struct {
	EvaluationDate time.Time                     `json:"evaluation_date"`
	TradeDate      time.Time                     `json:"trade_date"`
	MaturityDate   time.Time                     `json:"maturity_date"`
	PricingDate    time.Time                     `json:"pricing_date"`
	HasMatured     bool                          `json:"has_matured"`
	Currency       string                        `json:"currency"`
	Symbols        []string                      `json:"symbols"`
	Underlyings    map[string]UnderlyingSnapshot `json:"underlyings"`
}

// FirstUnderlying returns the snapshot of the first underlying in product
// order. Condition evaluation currently resolves against this snapshot only,
// even for multi-underlying products.
func (mc *MarketContext) FirstUnderlying() (UnderlyingSnapshot, bool) {
	if mc == nil || len(mc.Symbols) == 0 {
		return UnderlyingSnapshot{}, false
	}
	snap, ok := mc.Underlyings[mc.Symbols[0]]
	return snap, ok
}

// BuilderConfig controls the context builder's fetch behavior.
type BuilderConfig struct {
	// Parallel fans per-underlying lookups out to goroutines. Lookups are
	// independent; results are merged before the context is released.
	Parallel bool

	// RateLimit caps lookups per second when Parallel is set. Zero means
	// unlimited.
	RateLimit float64
}

// Builder resolves price series into a MarketContext.
type Builder struct {
	source  PriceHistory
	limiter *rate.Limiter
	cfg     BuilderConfig
}

// NewBuilder creates a context builder over a price-history source.
func NewBuilder(source PriceHistory, cfg BuilderConfig) *Builder {
	var limiter *rate.Limiter
	if cfg.Parallel && cfg.RateLimit > 0 {
		limiter = rate.NewLimiter(rate.Limit(cfg.RateLimit), 1)
	}
	return &Builder{source: source, limiter: limiter, cfg: cfg}
}

// Build constructs the market context for a product at an evaluation date.
// It fails fast: if any underlying has no resolvable price series, a
// *MissingMarketDataError is returned and no partial context escapes.
func (b *Builder) Build(ctx context.Context, p *product.Product, evalDate product.Date) (*MarketContext, error) {
	finalObs := p.FinalObservationDate()
	matured := !evalDate.Before(p.Maturity.Time)
	pricingDate := evalDate
	if matured {
		pricingDate = finalObs
	}

	mc := &MarketContext{
		EvaluationDate: evalDate.Time,
		TradeDate:      p.TradeDate.Time,
		MaturityDate:   p.Maturity.Time,
		PricingDate:    pricingDate.Time,
		HasMatured:     matured,
		Currency:       p.Currency,
		Underlyings:    make(map[string]UnderlyingSnapshot, len(p.Underlyings)),
	}
	for _, u := range p.Underlyings {
		mc.Symbols = append(mc.Symbols, u.Symbol)
	}

	snapshots, err := b.fetchSnapshots(ctx, p, pricingDate, finalObs, matured)
	if err != nil {
		return nil, err
	}
	for _, snap := range snapshots {
		mc.Underlyings[snap.Symbol] = snap
	}
	return mc, nil
}

func (b *Builder) fetchSnapshots(ctx context.Context, p *product.Product, pricingDate, finalObs product.Date, matured bool) ([]UnderlyingSnapshot, error) {
	if !b.cfg.Parallel || len(p.Underlyings) < 2 {
		snapshots := make([]UnderlyingSnapshot, 0, len(p.Underlyings))
		for _, u := range p.Underlyings {
			snap, err := b.buildSnapshot(ctx, u, p.TradeDate, pricingDate, finalObs, matured)
			if err != nil {
				return nil, err
			}
			snapshots = append(snapshots, snap)
		}
		return snapshots, nil
	}

	type fetched struct {
		idx  int
		snap UnderlyingSnapshot
		err  error
	}

	results := make(chan fetched, len(p.Underlyings))
	for i, u := range p.Underlyings {
		go func(idx int, u product.Underlying) {
			if b.limiter != nil {
				if err := b.limiter.Wait(ctx); err != nil {
					results <- fetched{idx: idx, err: err}
					return
				}
			}
			snap, err := b.buildSnapshot(ctx, u, p.TradeDate, pricingDate, finalObs, matured)
			results <- fetched{idx: idx, snap: snap, err: err}
		}(i, u)
	}

	snapshots := make([]UnderlyingSnapshot, len(p.Underlyings))
	errs := make([]error, len(p.Underlyings))
	for range p.Underlyings {
		r := <-results
		snapshots[r.idx] = r.snap
		errs[r.idx] = r.err
	}
	// First error in underlying order wins, so the reported symbol does not
	// depend on goroutine scheduling.
	for _, err := range errs {
		if err != nil {
			return nil, err
		}
	}
	return snapshots, nil
}

// buildSnapshot resolves one underlying: trade price by exact trade-date
// match, pricing price as the latest observation on-or-before the pricing
// date, and the rebased chart series across the product window.
func (b *Builder) buildSnapshot(ctx context.Context, u product.Underlying, tradeDate, pricingDate, finalObs product.Date, matured bool) (UnderlyingSnapshot, error) {
	series, err := b.lookupSeries(ctx, u.Symbol)
	if err != nil {
		return UnderlyingSnapshot{}, err
	}

	snap := UnderlyingSnapshot{
		Symbol:    u.Symbol,
		Strike:    u.Strike,
		IsMatured: matured,
	}

	for _, obs := range series {
		if tradeDate.SameDay(obs.Date) {
			snap.TradePrice = obs.Close
		}
		// Latest on-or-before wins; the series is date-ordered so later
		// matches overwrite earlier ones.
		if !obs.Date.After(pricingDate.Time) {
			snap.CurrentPrice = obs.Close
		}
		if !obs.Date.Before(tradeDate.Time) && !obs.Date.After(finalObs.Time) {
			snap.ChartSeries = append(snap.ChartSeries, ChartPoint{
				Date:               obs.Date,
				Close:              obs.Close,
				RebasedPerformance: rebase(obs.Close, u.Strike),
			})
		}
	}

	if snap.TradePrice == 0 {
		log.Warn().Str("symbol", u.Symbol).Str("trade_date", tradeDate.String()).
			Msg("no observation on trade date, performance unresolved")
	} else {
		snap.Performance = (snap.CurrentPrice/snap.TradePrice - 1) * 100
		snap.PerformanceRatio = snap.CurrentPrice / snap.TradePrice * 100
	}
	return snap, nil
}

// lookupSeries tries the symbol and its aliases in order. Exhausting every
// alias is the one fatal condition of context building.
func (b *Builder) lookupSeries(ctx context.Context, symbol string) ([]Observation, error) {
	var lastErr error
	for _, alias := range SymbolAliases(symbol) {
		series, err := b.source.Series(ctx, alias)
		if err == nil {
			return series, nil
		}
		lastErr = err
	}
	log.Error().Str("symbol", symbol).Err(lastErr).Msg("price history unresolved for all aliases")
	return nil, &MissingMarketDataError{Symbol: symbol}
}

// rebase expresses a close price against the strike as a percentage with
// basis-point rounding. A zero strike yields zero rather than dividing.
func rebase(close, strike float64) float64 {
	if strike == 0 {
		return 0
	}
	return math.Round(close/strike*10000) / 100
}
