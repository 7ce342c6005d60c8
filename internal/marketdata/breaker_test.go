package marketdata

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/sony/gobreaker"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type flakySource struct {
	err   error
	calls int
}

func (f *flakySource) Series(_ context.Context, symbol string) ([]Observation, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	return []Observation{{Close: 1}}, nil
}

func TestBreakerOpensAfterConsecutiveFailures(t *testing.T) {
	source := &flakySource{err: errors.New("vendor timeout")}
	b := NewBreakerSource("test", source)

	for i := 0; i < 5; i++ {
		_, err := b.Series(context.Background(), "ACME")
		require.Error(t, err)
	}

	_, err := b.Series(context.Background(), "ACME")
	assert.ErrorIs(t, err, gobreaker.ErrOpenState)
	assert.Equal(t, 5, source.calls, "open breaker stops reaching the source")
}

func TestBreakerIgnoresNotFound(t *testing.T) {
	source := &flakySource{err: fmt.Errorf("NOPE: %w", ErrSeriesNotFound)}
	b := NewBreakerSource("test", source)

	for i := 0; i < 10; i++ {
		_, err := b.Series(context.Background(), "NOPE")
		require.ErrorIs(t, err, ErrSeriesNotFound)
	}
	assert.Equal(t, 10, source.calls, "not-found answers never trip the breaker")
}

func TestBreakerPassesThroughSuccess(t *testing.T) {
	b := NewBreakerSource("test", &flakySource{})
	series, err := b.Series(context.Background(), "ACME")
	require.NoError(t, err)
	assert.Len(t, series, 1)
}
