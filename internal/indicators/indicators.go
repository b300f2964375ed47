package indicators

import (
	"ltp-detection-engine/internal/marketdata"
)

// CalculateSMA calculates the Simple Moving Average over the most recent
// period closes. Returns 0 when there is not enough history.
func CalculateSMA(bars []marketdata.Bar, period int) float64 {
	if period <= 0 || len(bars) < period {
		return 0
	}

	sum := 0.0
	for i := len(bars) - period; i < len(bars); i++ {
		sum += bars[i].Close
	}

	return sum / float64(period)
}

// CalculateEMA calculates the Exponential Moving Average over closes,
// seeded with the simple average of the first period values and iterated
// forward with multiplier 2/(period+1). With fewer than period bars it
// degrades to the last available close.
func CalculateEMA(bars []marketdata.Bar, period int) float64 {
	if len(bars) == 0 || period <= 0 {
		return 0
	}
	if len(bars) < period {
		return bars[len(bars)-1].Close
	}

	sum := 0.0
	for i := 0; i < period; i++ {
		sum += bars[i].Close
	}
	ema := sum / float64(period)

	multiplier := 2.0 / float64(period+1)
	for i := period; i < len(bars); i++ {
		ema = (bars[i].Close * multiplier) + (ema * (1 - multiplier))
	}

	return ema
}

// CalculateVWAP calculates the volume-weighted typical price (H+L+C)/3
// over the series. The second return is false when cumulative volume is
// zero and no VWAP exists.
func CalculateVWAP(bars []marketdata.Bar) (float64, bool) {
	cumulativeTPV := 0.0
	cumulativeVol := 0.0

	for _, b := range bars {
		typicalPrice := (b.High + b.Low + b.Close) / 3.0
		cumulativeTPV += typicalPrice * b.Volume
		cumulativeVol += b.Volume
	}

	if cumulativeVol == 0 {
		return 0, false
	}

	return cumulativeTPV / cumulativeVol, true
}

// PercentChange returns the close-to-close change from the first to the
// last bar, in percent.
func PercentChange(bars []marketdata.Bar) float64 {
	if len(bars) < 2 || bars[0].Close == 0 {
		return 0
	}
	first := bars[0].Close
	last := bars[len(bars)-1].Close
	return (last - first) / first * 100
}
