package analysis

import (
	"context"
	"math"

	"github.com/rs/zerolog"
)

// DefaultTimeframes returns the timeframe set analyzed per symbol, fastest
// first.
func DefaultTimeframes() []string {
	return []string{"2m", "5m", "15m", "1h", "4h", "daily", "weekly"}
}

// DefaultWeights returns the per-timeframe weights used for the trend
// alignment score. They sum to 1.0.
func DefaultWeights() map[string]float64 {
	return map[string]float64{
		"weekly": 0.15,
		"daily":  0.20,
		"4h":     0.15,
		"1h":     0.20,
		"15m":    0.15,
		"5m":     0.10,
		"2m":     0.05,
	}
}

// Aggregator runs the timeframe analyzer across a configured timeframe set
// and scores how well the timeframes align behind one direction.
type Aggregator struct {
	analyzer   *TimeframeAnalyzer
	timeframes []string
	weights    map[string]float64
	logger     zerolog.Logger
}

func NewAggregator(analyzer *TimeframeAnalyzer, timeframes []string, weights map[string]float64, logger zerolog.Logger) *Aggregator {
	if len(timeframes) == 0 {
		timeframes = DefaultTimeframes()
	}
	if len(weights) == 0 {
		weights = DefaultWeights()
	}
	return &Aggregator{
		analyzer:   analyzer,
		timeframes: timeframes,
		weights:    weights,
		logger:     logger.With().Str("component", "MTFAggregator").Logger(),
	}
}

// Timeframes returns the configured timeframe set
func (ag *Aggregator) Timeframes() []string {
	return ag.timeframes
}

// AnalyzeAll classifies every configured timeframe for a symbol. Each
// timeframe is analyzed independently; a failure is logged and skipped so
// the remaining timeframes still produce results.
func (ag *Aggregator) AnalyzeAll(ctx context.Context, symbol string) []TimeframeAnalysis {
	out := make([]TimeframeAnalysis, 0, len(ag.timeframes))

	for _, tf := range ag.timeframes {
		ta, err := ag.analyzer.Analyze(ctx, symbol, tf)
		if err != nil {
			ag.logger.Warn().Err(err).Str("symbol", symbol).Str("timeframe", tf).Msg("Timeframe analysis failed")
			continue
		}
		out = append(out, *ta)
	}

	return out
}

// VoteDirection decides the setup direction by majority vote of bullish
// versus bearish timeframes. Ties resolve to bullish.
func VoteDirection(analyses []TimeframeAnalysis) Trend {
	bullish, bearish := 0, 0
	for _, ta := range analyses {
		switch ta.Trend {
		case TrendBullish:
			bullish++
		case TrendBearish:
			bearish++
		}
	}

	if bearish > bullish {
		return TrendBearish
	}
	return TrendBullish
}

// AlignmentScore returns the weighted trend-alignment score for a
// direction: the sum of weight x 100 over timeframes whose trend matches,
// rounded and clamped to 0-100.
func (ag *Aggregator) AlignmentScore(analyses []TimeframeAnalysis, direction Trend) int {
	score := 0.0
	for _, ta := range analyses {
		if ta.Trend == direction {
			score += ag.weights[ta.Timeframe] * 100
		}
	}
	return clampScore(int(math.Round(score)))
}

// AgreementScore returns the unweighted share of timeframes matching the
// direction, as a 0-100 integer.
func AgreementScore(analyses []TimeframeAnalysis, direction Trend) int {
	if len(analyses) == 0 {
		return 0
	}
	matching := 0
	for _, ta := range analyses {
		if ta.Trend == direction {
			matching++
		}
	}
	return clampScore(int(math.Round(float64(matching) / float64(len(analyses)) * 100)))
}

func clampScore(v int) int {
	if v < 0 {
		return 0
	}
	if v > 100 {
		return 100
	}
	return v
}
