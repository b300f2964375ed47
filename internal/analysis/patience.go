package analysis

import (
	"ltp-detection-engine/internal/marketdata"
)

// PatienceResult reports a small-bodied consolidation near a level.
// Transient: recomputed on every analysis, never persisted.
type PatienceResult struct {
	Detected bool `json:"detected"`
	Count    int  `json:"count"`
}

const (
	patienceWindow = 5
	// Proximity to the level is fixed in the base algorithm, unlike the
	// max body size which is configurable.
	patienceProximityPercent = 0.3
	minPatienceCandles       = 2
)

// DetectPatience scans the most recent 5 bars for patience candles: bars
// whose body is under maxBodyPercent of the open AND whose close sits
// within 0.3% of the level price. Detection requires at least 2 such bars.
func DetectPatience(bars []marketdata.Bar, levelPrice, maxBodyPercent float64) PatienceResult {
	if levelPrice <= 0 || len(bars) == 0 {
		return PatienceResult{}
	}

	if len(bars) > patienceWindow {
		bars = bars[len(bars)-patienceWindow:]
	}

	count := 0
	for _, b := range bars {
		if b.Open == 0 {
			continue
		}

		bodyPercent := abs(b.Close-b.Open) / b.Open * 100
		distancePercent := abs(b.Close-levelPrice) / levelPrice * 100

		if bodyPercent < maxBodyPercent && distancePercent < patienceProximityPercent {
			count++
		}
	}

	return PatienceResult{
		Detected: count >= minPatienceCandles,
		Count:    count,
	}
}

func abs(v float64) float64 {
	if v < 0 {
		return -v
	}
	return v
}
