package marketdata

import (
	"context"
	"encoding/json"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/rs/zerolog/log"
)

const cacheKeyPrefix = "payoff:prices:"

// CachedSource is a read-through Redis cache in front of a PriceHistory
// source. Cache failures are never fatal: a miss, a corrupt entry, or an
// unreachable Redis all degrade to the underlying source.
type CachedSource struct {
	client *redis.Client
	source PriceHistory
	ttl    time.Duration
}

// NewCachedSource wraps a source with a Redis series cache.
func NewCachedSource(client *redis.Client, source PriceHistory, ttl time.Duration) *CachedSource {
	return &CachedSource{client: client, source: source, ttl: ttl}
}

// Series serves from cache when possible, otherwise fetches from the source
// and populates the cache best-effort.
func (c *CachedSource) Series(ctx context.Context, symbol string) ([]Observation, error) {
	key := cacheKeyPrefix + symbol

	raw, err := c.client.Get(ctx, key).Bytes()
	if err == nil {
		var series []Observation
		if jsonErr := json.Unmarshal(raw, &series); jsonErr == nil && len(series) > 0 {
			return series, nil
		}
		log.Warn().Str("symbol", symbol).Msg("corrupt cached price series, refetching")
	} else if err != redis.Nil {
		log.Warn().Str("symbol", symbol).Err(err).Msg("price cache unavailable")
	}

	series, err := c.source.Series(ctx, symbol)
	if err != nil {
		return nil, err
	}

	if encoded, jsonErr := json.Marshal(series); jsonErr == nil {
		if setErr := c.client.Set(ctx, key, encoded, c.ttl).Err(); setErr != nil {
			log.Warn().Str("symbol", symbol).Err(setErr).Msg("price cache write failed")
		}
	}
	return series, nil
}
