package indicators

import (
	"math"
	"testing"

	"ltp-detection-engine/internal/marketdata"
)

func barsFromCloses(closes ...float64) []marketdata.Bar {
	bars := make([]marketdata.Bar, len(closes))
	for i, c := range closes {
		bars[i] = marketdata.Bar{Open: c, High: c, Low: c, Close: c, Volume: 1}
	}
	return bars
}

// TestEMAIdempotent verifies EMA is a pure function of its input
func TestEMAIdempotent(t *testing.T) {
	bars := barsFromCloses(100, 101, 99, 102, 103, 101, 104, 105, 103, 106, 107, 105)

	first := CalculateEMA(bars, 9)
	second := CalculateEMA(bars, 9)

	if first != second {
		t.Errorf("EMA not idempotent: %f vs %f", first, second)
	}
}

// TestEMAConstantSeries verifies a flat series yields the constant
func TestEMAConstantSeries(t *testing.T) {
	closes := make([]float64, 30)
	for i := range closes {
		closes[i] = 50
	}

	ema := CalculateEMA(barsFromCloses(closes...), 9)
	if math.Abs(ema-50) > 1e-9 {
		t.Errorf("Expected EMA 50 for constant series, got %f", ema)
	}
}

// TestEMADegradesToLastValue verifies the documented degenerate case:
// fewer samples than the period falls back to the last available value
func TestEMADegradesToLastValue(t *testing.T) {
	bars := barsFromCloses(100, 102, 104)

	ema := CalculateEMA(bars, 9)
	if ema != 104 {
		t.Errorf("Expected fallback to last close 104, got %f", ema)
	}
}

func TestEMAEmptySeries(t *testing.T) {
	if ema := CalculateEMA(nil, 9); ema != 0 {
		t.Errorf("Expected 0 for empty series, got %f", ema)
	}
}

func TestSMA(t *testing.T) {
	bars := barsFromCloses(1, 2, 3, 4, 5)

	if sma := CalculateSMA(bars, 5); sma != 3 {
		t.Errorf("Expected SMA 3, got %f", sma)
	}
	if sma := CalculateSMA(bars, 2); sma != 4.5 {
		t.Errorf("Expected SMA 4.5 over last 2, got %f", sma)
	}
	if sma := CalculateSMA(bars, 10); sma != 0 {
		t.Errorf("Expected 0 with insufficient history, got %f", sma)
	}
}

func TestVWAP(t *testing.T) {
	bars := []marketdata.Bar{
		{High: 102, Low: 98, Close: 100, Volume: 100},  // typical 100
		{High: 112, Low: 108, Close: 110, Volume: 300}, // typical 110
	}

	vwap, ok := CalculateVWAP(bars)
	if !ok {
		t.Fatal("Expected VWAP to be computable")
	}

	expected := (100.0*100 + 110.0*300) / 400
	if math.Abs(vwap-expected) > 1e-9 {
		t.Errorf("Expected VWAP %f, got %f", expected, vwap)
	}
}

// TestVWAPZeroVolume verifies VWAP is skipped, not zeroed, when the
// session has no volume
func TestVWAPZeroVolume(t *testing.T) {
	bars := []marketdata.Bar{
		{High: 102, Low: 98, Close: 100, Volume: 0},
		{High: 103, Low: 99, Close: 101, Volume: 0},
	}

	if _, ok := CalculateVWAP(bars); ok {
		t.Error("Expected VWAP to be unavailable with zero cumulative volume")
	}
}

func TestPercentChange(t *testing.T) {
	bars := barsFromCloses(100, 101, 102)

	if change := PercentChange(bars); math.Abs(change-2) > 1e-9 {
		t.Errorf("Expected 2%% change, got %f", change)
	}

	down := barsFromCloses(100, 99)
	if change := PercentChange(down); math.Abs(change+1) > 1e-9 {
		t.Errorf("Expected -1%% change, got %f", change)
	}

	if change := PercentChange(barsFromCloses(100)); change != 0 {
		t.Errorf("Expected 0 for single bar, got %f", change)
	}
}
