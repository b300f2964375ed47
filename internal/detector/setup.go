package detector

import (
	"fmt"
	"time"

	"ltp-detection-engine/internal/analysis"
	"ltp-detection-engine/internal/confluence"
	"ltp-detection-engine/internal/levels"
	"ltp-detection-engine/internal/trade"
)

// DetectedSetup is the terminal output entity of one symbol analysis.
// One live row per symbol: each cycle replaces the prior setup. Trade
// parameter fields are nil when no level was attached.
type DetectedSetup struct {
	Symbol          string           `json:"symbol"`
	Direction       analysis.Trend   `json:"direction"`
	SetupStage      confluence.Stage `json:"setup_stage"`
	ConfluenceScore int              `json:"confluence_score"`
	LevelScore      int              `json:"level_score"`
	TrendScore      int              `json:"trend_score"`
	PatienceScore   int              `json:"patience_score"`
	MTFScore        int              `json:"mtf_score"`

	PrimaryLevelType  levels.Type `json:"primary_level_type,omitempty"`
	PrimaryLevelPrice *float64    `json:"primary_level_price,omitempty"`
	PatienceCandles   int         `json:"patience_candles"`

	SuggestedEntry *float64 `json:"suggested_entry,omitempty"`
	SuggestedStop  *float64 `json:"suggested_stop,omitempty"`
	Target1        *float64 `json:"target1,omitempty"`
	Target2        *float64 `json:"target2,omitempty"`
	Target3        *float64 `json:"target3,omitempty"`
	RiskReward     *float64 `json:"risk_reward,omitempty"`

	CoachNote  string    `json:"coach_note"`
	DetectedAt time.Time `json:"detected_at"`
}

func buildSetup(symbol string, res confluence.Result, mtfScore int, patience analysis.PatienceResult, params *trade.Params, now time.Time) *DetectedSetup {
	setup := &DetectedSetup{
		Symbol:          symbol,
		Direction:       res.Direction,
		SetupStage:      res.Stage,
		ConfluenceScore: res.Score,
		LevelScore:      res.LevelScore,
		TrendScore:      res.TrendScore,
		PatienceScore:   res.PatienceScore,
		MTFScore:        mtfScore,
		PatienceCandles: patience.Count,
		DetectedAt:      now,
	}

	if res.Level != nil {
		setup.PrimaryLevelType = res.Level.Type
		price := res.Level.Price
		setup.PrimaryLevelPrice = &price
	}

	if params != nil {
		setup.SuggestedEntry = &params.Entry
		setup.SuggestedStop = &params.Stop
		setup.Target1 = &params.Target1
		setup.Target2 = &params.Target2
		setup.Target3 = &params.Target3
		setup.RiskReward = &params.RiskReward
	}

	setup.CoachNote = coachNote(setup)
	return setup
}

// coachNote writes the one-sentence summary shown alongside the setup
func coachNote(s *DetectedSetup) string {
	side := "long"
	action := "holding above"
	if s.Direction == analysis.TrendBearish {
		side = "short"
		action = "rejecting"
	}

	if s.PrimaryLevelPrice == nil {
		return fmt.Sprintf("No key level nearby; %s bias is %d/100 on trend alone. Let price come to a level.", side, s.ConfluenceScore)
	}

	if s.SetupStage == confluence.StageReady {
		return fmt.Sprintf("Ready %s: price %s %s at %.2f with %d patience candles. Plan the trigger, respect the stop.",
			side, action, s.PrimaryLevelType, *s.PrimaryLevelPrice, s.PatienceCandles)
	}

	return fmt.Sprintf("Forming %s near %s at %.2f (confluence %d/100). Wait for patience candles before committing.",
		side, s.PrimaryLevelType, *s.PrimaryLevelPrice, s.ConfluenceScore)
}
