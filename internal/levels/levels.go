package levels

import "time"

// Type identifies the source of a price level
type Type string

const (
	TypePrevDayHigh      Type = "prev_day_high"
	TypePrevDayLow       Type = "prev_day_low"
	TypePrevDayClose     Type = "prev_day_close"
	TypeWeeklyHigh       Type = "weekly_high"
	TypeWeeklyLow        Type = "weekly_low"
	TypeCurrentWeekHigh  Type = "current_week_high"
	TypeCurrentWeekLow   Type = "current_week_low"
	TypeVWAP             Type = "vwap"
	TypeOpeningRangeHigh Type = "opening_range_high"
	TypeOpeningRangeLow  Type = "opening_range_low"
	TypeHighOfDay        Type = "high_of_day"
	TypeLowOfDay         Type = "low_of_day"
	TypeEMA9             Type = "ema_9"
	TypeEMA21            Type = "ema_21"
	TypeSMA200           Type = "sma_200"
)

// TTL is how long a computed level remains scoreable. Levels past their
// expiry must never be selected by the confluence scorer.
const TTL = time.Hour

// Level is a price reference point for a symbol. Strength is a fixed
// prior per level type reflecting historical reliability.
type Level struct {
	Symbol    string    `json:"symbol"`
	Type      Type      `json:"type"`
	Price     float64   `json:"price"`
	Timeframe string    `json:"timeframe"`
	Strength  int       `json:"strength"`
	ExpiresAt time.Time `json:"expires_at"`
}

// Active reports whether the level is still scoreable at the given time
func (l Level) Active(now time.Time) bool {
	return l.ExpiresAt.After(now)
}
