package marketdata

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

// CachedProvider wraps a Provider with a Redis bar cache. Cache failures
// degrade gracefully to a direct fetch; Redis being down never blocks the
// engine. Quotes are never cached.
type CachedProvider struct {
	inner  Provider
	client *redis.Client
	logger zerolog.Logger
}

func NewCachedProvider(inner Provider, client *redis.Client, logger zerolog.Logger) *CachedProvider {
	return &CachedProvider{
		inner:  inner,
		client: client,
		logger: logger.With().Str("component", "BarCache").Logger(),
	}
}

func (p *CachedProvider) GetQuote(ctx context.Context, symbol string) (*Quote, error) {
	return p.inner.GetQuote(ctx, symbol)
}

func (p *CachedProvider) GetAggregates(ctx context.Context, symbol, timeframe string, limit int) ([]Bar, error) {
	key := fmt.Sprintf("bars:%s:%s:%d", symbol, timeframe, limit)

	if data, err := p.client.Get(ctx, key).Bytes(); err == nil {
		var bars []Bar
		if err := json.Unmarshal(data, &bars); err == nil {
			return bars, nil
		}
		// Corrupt entry; fall through to a fresh fetch which overwrites it
	} else if err != redis.Nil {
		p.logger.Warn().Err(err).Str("key", key).Msg("Redis read failed, fetching direct")
	}

	bars, err := p.inner.GetAggregates(ctx, symbol, timeframe, limit)
	if err != nil {
		return nil, err
	}

	if data, err := json.Marshal(bars); err == nil {
		if err := p.client.Set(ctx, key, data, cacheTTL(timeframe)).Err(); err != nil {
			p.logger.Warn().Err(err).Str("key", key).Msg("Redis write failed")
		}
	}

	return bars, nil
}

// cacheTTL returns the cache lifetime for a timeframe. Shorter bars go
// stale faster.
func cacheTTL(timeframe string) time.Duration {
	switch timeframe {
	case "2m":
		return time.Minute
	case "5m":
		return 2 * time.Minute
	case "15m":
		return 5 * time.Minute
	case "1h":
		return 30 * time.Minute
	case "4h":
		return 2 * time.Hour
	case "daily", "day":
		return 12 * time.Hour
	case "weekly", "week":
		return 24 * time.Hour
	default:
		return time.Minute
	}
}
