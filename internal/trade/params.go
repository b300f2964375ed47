package trade

import (
	"math"

	"ltp-detection-engine/internal/analysis"
	"ltp-detection-engine/internal/levels"
)

// atrEstimatePercent approximates ATR as a fraction of current price for
// the stop buffer.
const atrEstimatePercent = 0.01

// Params holds suggested trade prices derived from a scored level.
// Targets are R-multiples of the entry-to-stop distance.
type Params struct {
	Entry      float64 `json:"entry"`
	Stop       float64 `json:"stop"`
	Target1    float64 `json:"target1"`
	Target2    float64 `json:"target2"`
	Target3    float64 `json:"target3"`
	RiskReward float64 `json:"risk_reward"`
}

// Calculate derives entry/stop/targets from the current price, the
// attached level and the setup direction. With no attached level it
// returns nil: parameters are never fabricated. A level placement that
// yields non-positive risk (stop on the wrong side of entry) also yields
// nil.
func Calculate(price float64, level *levels.Level, direction analysis.Trend) *Params {
	if level == nil || price <= 0 {
		return nil
	}

	atr := price * atrEstimatePercent

	var entry, stop, risk float64
	entry = price

	if direction == analysis.TrendBearish {
		stop = level.Price + atr
		risk = stop - entry
	} else {
		stop = level.Price - atr
		risk = entry - stop
	}

	if risk <= 0 {
		return nil
	}

	sign := 1.0
	if direction == analysis.TrendBearish {
		sign = -1.0
	}

	target1 := entry + sign*risk
	target2 := entry + sign*2*risk
	target3 := entry + sign*3*risk

	return &Params{
		Entry:      round2(entry),
		Stop:       round2(stop),
		Target1:    round2(target1),
		Target2:    round2(target2),
		Target3:    round2(target3),
		RiskReward: round1(math.Abs(target2-entry) / risk),
	}
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}

func round1(v float64) float64 {
	return math.Round(v*10) / 10
}
