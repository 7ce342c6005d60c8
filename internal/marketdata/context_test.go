package marketdata

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/structedge/payoff-engine/internal/product"
)

func day(s string) time.Time {
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		panic(err)
	}
	return t
}

func testProduct(underlyings ...product.Underlying) *product.Product {
	return &product.Product{
		ID:               "SP-TEST",
		Currency:         "USD",
		TradeDate:        product.MustDate("2024-01-15"),
		Maturity:         product.MustDate("2026-01-15"),
		FinalObservation: product.MustDate("2026-01-10"),
		Underlyings:      underlyings,
	}
}

func acmeSource() *MemorySource {
	source := NewMemorySource()
	source.Add("ACME",
		Observation{Date: day("2024-01-15"), Close: 100},
		Observation{Date: day("2024-06-03"), Close: 105},
		Observation{Date: day("2024-07-01"), Close: 110},
		Observation{Date: day("2026-01-09"), Close: 120},
	)
	return source
}

func TestBuildActiveProduct(t *testing.T) {
	b := NewBuilder(acmeSource(), BuilderConfig{})
	p := testProduct(product.Underlying{Symbol: "ACME", Strike: 100})

	mc, err := b.Build(context.Background(), p, product.MustDate("2024-07-15"))
	require.NoError(t, err)

	assert.False(t, mc.HasMatured)
	assert.Equal(t, day("2024-07-15"), mc.PricingDate, "pricing date is the evaluation date while active")
	assert.Equal(t, "USD", mc.Currency)
	assert.Equal(t, []string{"ACME"}, mc.Symbols)

	snap, ok := mc.FirstUnderlying()
	require.True(t, ok)
	assert.Equal(t, 100.0, snap.TradePrice, "trade price is the exact trade-date observation")
	assert.Equal(t, 110.0, snap.CurrentPrice, "pricing price is the latest observation on-or-before the pricing date")
	assert.InDelta(t, 10.0, snap.Performance, 1e-9)
	assert.InDelta(t, 110.0, snap.PerformanceRatio, 1e-9)
	assert.False(t, snap.IsMatured)
}

func TestBuildMaturedProduct(t *testing.T) {
	b := NewBuilder(acmeSource(), BuilderConfig{})
	p := testProduct(product.Underlying{Symbol: "ACME", Strike: 100})

	mc, err := b.Build(context.Background(), p, product.MustDate("2026-02-01"))
	require.NoError(t, err)

	assert.True(t, mc.HasMatured)
	assert.Equal(t, day("2026-01-10"), mc.PricingDate, "pricing date is the final observation date once matured")

	snap, _ := mc.FirstUnderlying()
	assert.Equal(t, 120.0, snap.CurrentPrice)
	assert.True(t, snap.IsMatured)
}

func TestBuildMaturesOnMaturityDate(t *testing.T) {
	b := NewBuilder(acmeSource(), BuilderConfig{})
	p := testProduct(product.Underlying{Symbol: "ACME", Strike: 100})

	mc, err := b.Build(context.Background(), p, product.MustDate("2026-01-15"))
	require.NoError(t, err)
	assert.True(t, mc.HasMatured, "the maturity date itself counts as matured")
}

func TestChartSeriesRebased(t *testing.T) {
	b := NewBuilder(acmeSource(), BuilderConfig{})
	p := testProduct(product.Underlying{Symbol: "ACME", Strike: 95})

	mc, err := b.Build(context.Background(), p, product.MustDate("2024-07-15"))
	require.NoError(t, err)

	snap, _ := mc.FirstUnderlying()
	require.Len(t, snap.ChartSeries, 4, "series spans [trade date, final observation]")
	// 100/95 = 1.052631..., basis-point rounding to two decimals.
	assert.Equal(t, 105.26, snap.ChartSeries[0].RebasedPerformance)
	assert.Equal(t, 110.53, snap.ChartSeries[1].RebasedPerformance)
	assert.Equal(t, day("2024-01-15"), snap.ChartSeries[0].Date)
}

func TestChartSeriesExcludesOutOfWindow(t *testing.T) {
	source := acmeSource()
	source.Add("ACME", Observation{Date: day("2023-12-01"), Close: 90})

	b := NewBuilder(source, BuilderConfig{})
	p := testProduct(product.Underlying{Symbol: "ACME", Strike: 100})

	mc, err := b.Build(context.Background(), p, product.MustDate("2024-07-15"))
	require.NoError(t, err)

	snap, _ := mc.FirstUnderlying()
	for _, point := range snap.ChartSeries {
		assert.False(t, point.Date.Before(day("2024-01-15")))
	}
}

func TestMissingTradeDateObservation(t *testing.T) {
	source := NewMemorySource()
	source.Add("ACME", Observation{Date: day("2024-06-03"), Close: 105})

	b := NewBuilder(source, BuilderConfig{})
	p := testProduct(product.Underlying{Symbol: "ACME", Strike: 100})

	mc, err := b.Build(context.Background(), p, product.MustDate("2024-07-15"))
	require.NoError(t, err, "a missing trade-date price is degraded, not fatal")

	snap, _ := mc.FirstUnderlying()
	assert.Equal(t, 0.0, snap.TradePrice)
	assert.Equal(t, 0.0, snap.PerformanceRatio, "performance stays unresolved")
}

func TestMissingSymbolFailsFast(t *testing.T) {
	b := NewBuilder(acmeSource(), BuilderConfig{})
	p := testProduct(
		product.Underlying{Symbol: "ACME", Strike: 100},
		product.Underlying{Symbol: "GLOBEX", Strike: 50},
	)

	mc, err := b.Build(context.Background(), p, product.MustDate("2024-07-15"))
	require.Error(t, err)
	assert.Nil(t, mc, "no partial context escapes")

	var missing *MissingMarketDataError
	require.ErrorAs(t, err, &missing)
	assert.Equal(t, "GLOBEX", missing.Symbol)
}

func TestSymbolAliasResolution(t *testing.T) {
	source := NewMemorySource()
	source.Add("BAYN", Observation{Date: day("2024-01-15"), Close: 50})

	b := NewBuilder(source, BuilderConfig{})
	p := testProduct(product.Underlying{Symbol: "BAYN.DE", Strike: 50})

	mc, err := b.Build(context.Background(), p, product.MustDate("2024-02-01"))
	require.NoError(t, err, "suffix-stripped alias resolves")

	snap, ok := mc.Underlyings["BAYN.DE"]
	require.True(t, ok, "snapshot keeps the product's symbol, not the alias")
	assert.Equal(t, 50.0, snap.TradePrice)
}

func TestSymbolAliases(t *testing.T) {
	assert.Equal(t, []string{"BAYN.DE", "BAYN"}, SymbolAliases("BAYN.DE"))
	assert.Equal(t, []string{"ACME", "ACME.US"}, SymbolAliases("ACME"))
}

func TestParallelFetchMatchesSequential(t *testing.T) {
	source := acmeSource()
	source.Add("GLOBEX",
		Observation{Date: day("2024-01-15"), Close: 50},
		Observation{Date: day("2024-07-01"), Close: 60},
	)
	p := testProduct(
		product.Underlying{Symbol: "ACME", Strike: 100},
		product.Underlying{Symbol: "GLOBEX", Strike: 50},
	)
	evalDate := product.MustDate("2024-07-15")

	sequential, err := NewBuilder(source, BuilderConfig{}).Build(context.Background(), p, evalDate)
	require.NoError(t, err)

	parallel, err := NewBuilder(source, BuilderConfig{Parallel: true, RateLimit: 100}).
		Build(context.Background(), p, evalDate)
	require.NoError(t, err)

	assert.Equal(t, sequential, parallel)
}

func TestParallelFetchFailsFast(t *testing.T) {
	b := NewBuilder(acmeSource(), BuilderConfig{Parallel: true})
	p := testProduct(
		product.Underlying{Symbol: "MISSING-A", Strike: 1},
		product.Underlying{Symbol: "MISSING-B", Strike: 1},
	)

	mc, err := b.Build(context.Background(), p, product.MustDate("2024-07-15"))
	require.Error(t, err)
	assert.Nil(t, mc)

	var missing *MissingMarketDataError
	require.ErrorAs(t, err, &missing)
	assert.Equal(t, "MISSING-A", missing.Symbol, "first failing underlying in product order is reported")
}

func TestMemorySourceUnknownSymbol(t *testing.T) {
	_, err := NewMemorySource().Series(context.Background(), "NOPE")
	assert.ErrorIs(t, err, ErrSeriesNotFound)
}
