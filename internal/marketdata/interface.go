package marketdata

import "context"

// Provider defines the market data operations the engine consumes.
// Timeframe keys are intraday minute multiples ("2m", "5m", "15m", "1h",
// "4h") or the calendar units "daily" and "weekly". GetAggregates returns
// at most limit bars, oldest first.
type Provider interface {
	GetQuote(ctx context.Context, symbol string) (*Quote, error)
	GetAggregates(ctx context.Context, symbol, timeframe string, limit int) ([]Bar, error)
}

// Ensure all provider implementations satisfy the interface
var _ Provider = (*Client)(nil)
var _ Provider = (*MockProvider)(nil)
var _ Provider = (*CachedProvider)(nil)
