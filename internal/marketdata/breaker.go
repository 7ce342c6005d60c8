package marketdata

import (
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/sony/gobreaker"
)

// BreakerSource guards a PriceHistory source with a circuit breaker so a
// failing vendor does not get hammered by every evaluation. Not-found
// responses are real answers and do not trip the breaker.
type BreakerSource struct {
	source PriceHistory
	cb     *gobreaker.CircuitBreaker
}

// NewBreakerSource wraps a source with a named circuit breaker. The breaker
// opens after five consecutive transport failures and probes again after 30s.
func NewBreakerSource(name string, source PriceHistory) *BreakerSource {
	cb := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:    name,
		Timeout: 30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 5
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			log.Warn().Str("breaker", name).
				Str("from", from.String()).Str("to", to.String()).
				Msg("price source breaker state change")
		},
		IsSuccessful: func(err error) bool {
			if err == nil {
				return true
			}
			// A missing series is a definitive answer, not a fault.
			return errors.Is(err, ErrSeriesNotFound)
		},
	})
	return &BreakerSource{source: source, cb: cb}
}

// Series executes the lookup through the breaker. An open breaker surfaces
// as a source error, which the context builder escalates per its fail-fast
// policy.
func (b *BreakerSource) Series(ctx context.Context, symbol string) ([]Observation, error) {
	out, err := b.cb.Execute(func() (interface{}, error) {
		return b.source.Series(ctx, symbol)
	})
	if err != nil {
		return nil, err
	}
	return out.([]Observation), nil
}
