package trade

import (
	"testing"
	"time"

	"ltp-detection-engine/internal/analysis"
	"ltp-detection-engine/internal/levels"
)

func level(price float64) *levels.Level {
	return &levels.Level{
		Symbol:    "AAPL",
		Type:      levels.TypePrevDayHigh,
		Price:     price,
		Strength:  80,
		ExpiresAt: time.Now().Add(time.Hour),
	}
}

func TestCalculateBullish(t *testing.T) {
	// Price 100, level 99.5, ATR estimate 1.0: stop 98.5, risk 1.5
	p := Calculate(100, level(99.5), analysis.TrendBullish)
	if p == nil {
		t.Fatal("Expected trade parameters")
	}

	if p.Entry != 100 {
		t.Errorf("Expected entry 100, got %f", p.Entry)
	}
	if p.Stop != 98.5 {
		t.Errorf("Expected stop 98.5, got %f", p.Stop)
	}
	if p.Target1 != 101.5 || p.Target2 != 103 || p.Target3 != 104.5 {
		t.Errorf("Unexpected targets: %f %f %f", p.Target1, p.Target2, p.Target3)
	}
	if p.RiskReward != 2.0 {
		t.Errorf("Expected risk/reward 2.0, got %f", p.RiskReward)
	}
}

func TestCalculateBearishMirrors(t *testing.T) {
	// Price 100, level 100.5, ATR estimate 1.0: stop 101.5, risk 1.5
	p := Calculate(100, level(100.5), analysis.TrendBearish)
	if p == nil {
		t.Fatal("Expected trade parameters")
	}

	if p.Stop != 101.5 {
		t.Errorf("Expected stop 101.5, got %f", p.Stop)
	}
	if p.Target1 != 98.5 || p.Target2 != 97 || p.Target3 != 95.5 {
		t.Errorf("Unexpected targets: %f %f %f", p.Target1, p.Target2, p.Target3)
	}
	if p.RiskReward != 2.0 {
		t.Errorf("Expected risk/reward 2.0, got %f", p.RiskReward)
	}
}

// TestCalculateNilWithoutLevel verifies parameters are never fabricated
// when no level is attached
func TestCalculateNilWithoutLevel(t *testing.T) {
	if p := Calculate(100, nil, analysis.TrendBullish); p != nil {
		t.Errorf("Expected nil without a level, got %+v", p)
	}
	if p := Calculate(0, level(99.5), analysis.TrendBullish); p != nil {
		t.Errorf("Expected nil for non-positive price, got %+v", p)
	}
}

// TestCalculateNilOnWrongSideLevel verifies a stop landing on the wrong
// side of entry yields no parameters
func TestCalculateNilOnWrongSideLevel(t *testing.T) {
	// Bullish with the level far above price puts the stop above entry
	if p := Calculate(100, level(105), analysis.TrendBullish); p != nil {
		t.Errorf("Expected nil for non-positive risk, got %+v", p)
	}
	// Bearish mirror: level far below price
	if p := Calculate(100, level(95), analysis.TrendBearish); p != nil {
		t.Errorf("Expected nil for non-positive bearish risk, got %+v", p)
	}
}

func TestCalculateRounding(t *testing.T) {
	// Price 33.333, ATR 0.33333: stop = 33.0 - 0.33333 = 32.66667
	p := Calculate(33.333, level(33.0), analysis.TrendBullish)
	if p == nil {
		t.Fatal("Expected trade parameters")
	}

	if p.Stop != 32.67 {
		t.Errorf("Expected stop rounded to 32.67, got %f", p.Stop)
	}
	if p.Entry != 33.33 {
		t.Errorf("Expected entry rounded to 33.33, got %f", p.Entry)
	}
	if p.RiskReward != 2.0 {
		t.Errorf("Expected risk/reward 2.0, got %f", p.RiskReward)
	}
}
