package analysis

import (
	"context"
	"fmt"
	"time"

	"ltp-detection-engine/internal/indicators"
	"ltp-detection-engine/internal/marketdata"

	"github.com/rs/zerolog"
)

// Trend represents the EMA-ordered trend classification for one timeframe
type Trend string

const (
	TrendBullish Trend = "bullish"
	TrendBearish Trend = "bearish"
	TrendNeutral Trend = "neutral"
)

// Structure represents the recent swing structure
type Structure string

const (
	StructureUptrend   Structure = "uptrend"
	StructureDowntrend Structure = "downtrend"
	StructureRange     Structure = "range"
)

// EMAPosition describes price relative to the fast EMAs
type EMAPosition string

const (
	EMAAboveAll EMAPosition = "above_all"
	EMABelowAll EMAPosition = "below_all"
	EMAMixed    EMAPosition = "mixed"
)

// Momentum buckets the absolute close-to-close change over the window
type Momentum string

const (
	MomentumWeak     Momentum = "weak"
	MomentumModerate Momentum = "moderate"
	MomentumStrong   Momentum = "strong"
)

// TimeframeAnalysis is the classification of one symbol on one timeframe.
// Recomputed each cycle and upserted keyed on (symbol, timeframe).
type TimeframeAnalysis struct {
	Symbol      string      `json:"symbol"`
	Timeframe   string      `json:"timeframe"`
	Trend       Trend       `json:"trend"`
	Structure   Structure   `json:"structure"`
	EMAPosition EMAPosition `json:"ema_position"`
	Momentum    Momentum    `json:"momentum"`
	UpdatedAt   time.Time   `json:"updated_at"`
}

// minBars is the history needed for a real classification. Below this the
// analyzer fails soft to neutral/range/weak, which is defined behavior,
// not an error.
const minBars = 21

const structureLookback = 5

// timeframeLookback maps each timeframe key to the bar count fetched for
// classification; the momentum window spans the whole fetch.
var timeframeLookback = map[string]int{
	"2m":     60,
	"5m":     60,
	"15m":    60,
	"1h":     48,
	"4h":     42,
	"daily":  60,
	"weekly": 26,
}

// TimeframeAnalyzer classifies trend, structure and momentum for one
// symbol and timeframe from its bar series.
type TimeframeAnalyzer struct {
	provider marketdata.Provider
	logger   zerolog.Logger
}

func NewTimeframeAnalyzer(provider marketdata.Provider, logger zerolog.Logger) *TimeframeAnalyzer {
	return &TimeframeAnalyzer{
		provider: provider,
		logger:   logger.With().Str("component", "TimeframeAnalyzer").Logger(),
	}
}

// Analyze fetches bars for the timeframe and classifies them. Only fetch
// failures are errors; insufficient history degrades to the neutral
// classification.
func (a *TimeframeAnalyzer) Analyze(ctx context.Context, symbol, timeframe string) (*TimeframeAnalysis, error) {
	lookback, ok := timeframeLookback[timeframe]
	if !ok {
		lookback = 50
	}

	bars, err := a.provider.GetAggregates(ctx, symbol, timeframe, lookback)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch %s %s bars: %w", symbol, timeframe, err)
	}

	return Classify(symbol, timeframe, bars), nil
}

// Classify derives the timeframe analysis from an already-fetched series
func Classify(symbol, timeframe string, bars []marketdata.Bar) *TimeframeAnalysis {
	ta := &TimeframeAnalysis{
		Symbol:      symbol,
		Timeframe:   timeframe,
		Trend:       TrendNeutral,
		Structure:   StructureRange,
		EMAPosition: EMAMixed,
		Momentum:    MomentumWeak,
		UpdatedAt:   time.Now(),
	}

	if len(bars) < minBars {
		return ta
	}

	price := bars[len(bars)-1].Close
	ema9 := indicators.CalculateEMA(bars, 9)
	ema21 := indicators.CalculateEMA(bars, 21)

	switch {
	case price > ema9 && ema9 > ema21:
		ta.Trend = TrendBullish
	case price < ema9 && ema9 < ema21:
		ta.Trend = TrendBearish
	}

	ta.Structure = classifyStructure(bars)

	switch {
	case price > ema9 && price > ema21:
		ta.EMAPosition = EMAAboveAll
	case price < ema9 && price < ema21:
		ta.EMAPosition = EMABelowAll
	}

	change := indicators.PercentChange(bars)
	if change < 0 {
		change = -change
	}
	switch {
	case change > 2:
		ta.Momentum = MomentumStrong
	case change > 1:
		ta.Momentum = MomentumModerate
	}

	return ta
}

// classifyStructure inspects the last 5 bars: monotonically non-decreasing
// highs and lows form an uptrend, non-increasing a downtrend, anything
// else a range.
func classifyStructure(bars []marketdata.Bar) Structure {
	if len(bars) < structureLookback {
		return StructureRange
	}

	recent := bars[len(bars)-structureLookback:]
	rising, falling := true, true

	for i := 1; i < len(recent); i++ {
		if recent[i].High < recent[i-1].High || recent[i].Low < recent[i-1].Low {
			rising = false
		}
		if recent[i].High > recent[i-1].High || recent[i].Low > recent[i-1].Low {
			falling = false
		}
	}

	// Identical bars leave both flags set; a flat window is a range, not
	// a trend.
	switch {
	case rising && !falling:
		return StructureUptrend
	case falling && !rising:
		return StructureDowntrend
	default:
		return StructureRange
	}
}
