package detector

import (
	"time"

	"ltp-detection-engine/internal/analysis"
)

// EngineConfig is the single immutable configuration structure the engine
// scores with. It is loaded once at Initialize(): defaults first, then the
// active document from the store layered on top. The JSON shape is what
// the engine_config store document holds.
type EngineConfig struct {
	Timeframes             []string           `json:"timeframes"`
	TimeframeWeights       map[string]float64 `json:"timeframe_weights"`
	ProximityPercent       float64            `json:"proximity_percent"`
	PatienceMaxBodyPercent float64            `json:"patience_max_body_percent"`
	ReadyThreshold         int                `json:"ready_threshold"`
	PersistFloor           int                `json:"persist_floor"`
	AnalysisMaxAgeMin      int                `json:"analysis_max_age_min"`
	ScanIntervalMs         int                `json:"scan_interval_ms"`
}

func DefaultEngineConfig() EngineConfig {
	return EngineConfig{
		Timeframes:             analysis.DefaultTimeframes(),
		TimeframeWeights:       analysis.DefaultWeights(),
		ProximityPercent:       0.3,
		PatienceMaxBodyPercent: 0.5,
		ReadyThreshold:         70,
		PersistFloor:           50,
		AnalysisMaxAgeMin:      30,
		ScanIntervalMs:         60000,
	}
}

// AnalysisMaxAge is the freshness window for timeframe analyses
func (c EngineConfig) AnalysisMaxAge() time.Duration {
	return time.Duration(c.AnalysisMaxAgeMin) * time.Minute
}

// ScanInterval is the default continuous-detection cycle period
func (c EngineConfig) ScanInterval() time.Duration {
	return time.Duration(c.ScanIntervalMs) * time.Millisecond
}

// merge layers a stored document over the receiver, field by field, so a
// partial document only overrides what it names. Zero is "unset" in the
// document encoding: a stored zero keeps the default and cannot disable
// a threshold. A floor of 1 is the lowest effective persist floor.
func (c EngineConfig) merge(stored *EngineConfig) EngineConfig {
	if stored == nil {
		return c
	}
	if len(stored.Timeframes) > 0 {
		c.Timeframes = stored.Timeframes
	}
	if len(stored.TimeframeWeights) > 0 {
		c.TimeframeWeights = stored.TimeframeWeights
	}
	if stored.ProximityPercent > 0 {
		c.ProximityPercent = stored.ProximityPercent
	}
	if stored.PatienceMaxBodyPercent > 0 {
		c.PatienceMaxBodyPercent = stored.PatienceMaxBodyPercent
	}
	if stored.ReadyThreshold > 0 {
		c.ReadyThreshold = stored.ReadyThreshold
	}
	if stored.PersistFloor > 0 {
		c.PersistFloor = stored.PersistFloor
	}
	if stored.AnalysisMaxAgeMin > 0 {
		c.AnalysisMaxAgeMin = stored.AnalysisMaxAgeMin
	}
	if stored.ScanIntervalMs > 0 {
		c.ScanIntervalMs = stored.ScanIntervalMs
	}
	return c
}
