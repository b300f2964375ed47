package levels

import (
	"context"
	"time"

	"ltp-detection-engine/internal/indicators"
	"ltp-detection-engine/internal/marketdata"

	"github.com/rs/zerolog"
)

const (
	dailyLookback    = 250 // Enough history for SMA-200 plus headroom
	weeklyLookback   = 12
	intradayLookback = 78 // One session of 5-minute bars
	openingRangeBars = 3  // First ~15 minutes of the session
)

// Calculator derives the full set of price levels for a symbol from
// daily, weekly and intraday bar history.
type Calculator struct {
	provider marketdata.Provider
	logger   zerolog.Logger
}

func NewCalculator(provider marketdata.Provider, logger zerolog.Logger) *Calculator {
	return &Calculator{
		provider: provider,
		logger:   logger.With().Str("component", "LevelCalculator").Logger(),
	}
}

// Calculate fetches the three bar series for a symbol and returns every
// level that could be derived. Levels are additive and best-effort per
// source: a failed fetch for one series is logged and skipped, never
// aborting the others. All returned levels share one expiry, TTL from now.
func (c *Calculator) Calculate(ctx context.Context, symbol string) []Level {
	expiresAt := time.Now().Add(TTL)
	var out []Level

	daily, err := c.provider.GetAggregates(ctx, symbol, "daily", dailyLookback)
	if err != nil {
		c.logger.Warn().Err(err).Str("symbol", symbol).Msg("Daily bars unavailable")
	} else {
		out = append(out, c.dailyLevels(symbol, daily, expiresAt)...)
	}

	weekly, err := c.provider.GetAggregates(ctx, symbol, "weekly", weeklyLookback)
	if err != nil {
		c.logger.Warn().Err(err).Str("symbol", symbol).Msg("Weekly bars unavailable")
	} else {
		out = append(out, c.weeklyLevels(symbol, weekly, expiresAt)...)
	}

	intraday, err := c.provider.GetAggregates(ctx, symbol, "5m", intradayLookback)
	if err != nil {
		c.logger.Warn().Err(err).Str("symbol", symbol).Msg("Intraday bars unavailable")
	} else {
		out = append(out, c.intradayLevels(symbol, intraday, expiresAt)...)
	}

	c.logger.Debug().Str("symbol", symbol).Int("levels", len(out)).Msg("Levels computed")
	return out
}

// dailyLevels derives previous-day high/low/close and SMA-200. The last
// daily bar is the in-progress session, so the previous completed day is
// the second to last.
func (c *Calculator) dailyLevels(symbol string, daily []marketdata.Bar, expiresAt time.Time) []Level {
	var out []Level

	if len(daily) >= 2 {
		prev := daily[len(daily)-2]
		out = append(out,
			Level{Symbol: symbol, Type: TypePrevDayHigh, Price: prev.High, Timeframe: "daily", Strength: 80, ExpiresAt: expiresAt},
			Level{Symbol: symbol, Type: TypePrevDayLow, Price: prev.Low, Timeframe: "daily", Strength: 80, ExpiresAt: expiresAt},
			Level{Symbol: symbol, Type: TypePrevDayClose, Price: prev.Close, Timeframe: "daily", Strength: 70, ExpiresAt: expiresAt},
		)
	}

	if len(daily) >= 200 {
		sma := indicators.CalculateSMA(daily, 200)
		out = append(out, Level{Symbol: symbol, Type: TypeSMA200, Price: sma, Timeframe: "daily", Strength: 95, ExpiresAt: expiresAt})
	}

	return out
}

// weeklyLevels derives the previous completed week's high/low and the
// in-progress current week's pair at slightly lower strength.
func (c *Calculator) weeklyLevels(symbol string, weekly []marketdata.Bar, expiresAt time.Time) []Level {
	var out []Level

	if len(weekly) >= 2 {
		prev := weekly[len(weekly)-2]
		out = append(out,
			Level{Symbol: symbol, Type: TypeWeeklyHigh, Price: prev.High, Timeframe: "weekly", Strength: 90, ExpiresAt: expiresAt},
			Level{Symbol: symbol, Type: TypeWeeklyLow, Price: prev.Low, Timeframe: "weekly", Strength: 90, ExpiresAt: expiresAt},
		)
	}

	if len(weekly) >= 1 {
		current := weekly[len(weekly)-1]
		out = append(out,
			Level{Symbol: symbol, Type: TypeCurrentWeekHigh, Price: current.High, Timeframe: "weekly", Strength: 85, ExpiresAt: expiresAt},
			Level{Symbol: symbol, Type: TypeCurrentWeekLow, Price: current.Low, Timeframe: "weekly", Strength: 85, ExpiresAt: expiresAt},
		)
	}

	return out
}

// intradayLevels derives VWAP, the opening range, high/low of day and the
// fast EMAs from the session's 5-minute bars.
func (c *Calculator) intradayLevels(symbol string, intraday []marketdata.Bar, expiresAt time.Time) []Level {
	if len(intraday) == 0 {
		return nil
	}

	var out []Level

	if vwap, ok := indicators.CalculateVWAP(intraday); ok {
		out = append(out, Level{Symbol: symbol, Type: TypeVWAP, Price: vwap, Timeframe: "5m", Strength: 75, ExpiresAt: expiresAt})
	}

	orBars := intraday
	if len(orBars) > openingRangeBars {
		orBars = orBars[:openingRangeBars]
	}
	orHigh, orLow := rangeOf(orBars)
	out = append(out,
		Level{Symbol: symbol, Type: TypeOpeningRangeHigh, Price: orHigh, Timeframe: "5m", Strength: 85, ExpiresAt: expiresAt},
		Level{Symbol: symbol, Type: TypeOpeningRangeLow, Price: orLow, Timeframe: "5m", Strength: 85, ExpiresAt: expiresAt},
	)

	hod, lod := rangeOf(intraday)
	out = append(out,
		Level{Symbol: symbol, Type: TypeHighOfDay, Price: hod, Timeframe: "5m", Strength: 70, ExpiresAt: expiresAt},
		Level{Symbol: symbol, Type: TypeLowOfDay, Price: lod, Timeframe: "5m", Strength: 70, ExpiresAt: expiresAt},
	)

	if len(intraday) >= 21 {
		out = append(out,
			Level{Symbol: symbol, Type: TypeEMA9, Price: indicators.CalculateEMA(intraday, 9), Timeframe: "5m", Strength: 65, ExpiresAt: expiresAt},
			Level{Symbol: symbol, Type: TypeEMA21, Price: indicators.CalculateEMA(intraday, 21), Timeframe: "5m", Strength: 70, ExpiresAt: expiresAt},
		)
	}

	return out
}

func rangeOf(bars []marketdata.Bar) (high, low float64) {
	high = bars[0].High
	low = bars[0].Low
	for _, b := range bars[1:] {
		if b.High > high {
			high = b.High
		}
		if b.Low < low {
			low = b.Low
		}
	}
	return high, low
}
