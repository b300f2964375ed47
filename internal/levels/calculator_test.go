package levels

import (
	"context"
	"errors"
	"testing"
	"time"

	"ltp-detection-engine/internal/marketdata"

	"github.com/rs/zerolog"
)

type fakeProvider struct {
	daily    []marketdata.Bar
	weekly   []marketdata.Bar
	intraday []marketdata.Bar

	failDaily    bool
	failWeekly   bool
	failIntraday bool
}

func (f *fakeProvider) GetQuote(ctx context.Context, symbol string) (*marketdata.Quote, error) {
	return nil, errors.New("not implemented")
}

func (f *fakeProvider) GetAggregates(ctx context.Context, symbol, timeframe string, limit int) ([]marketdata.Bar, error) {
	switch timeframe {
	case "daily":
		if f.failDaily {
			return nil, errors.New("daily fetch failed")
		}
		return f.daily, nil
	case "weekly":
		if f.failWeekly {
			return nil, errors.New("weekly fetch failed")
		}
		return f.weekly, nil
	case "5m":
		if f.failIntraday {
			return nil, errors.New("intraday fetch failed")
		}
		return f.intraday, nil
	}
	return nil, errors.New("unexpected timeframe")
}

func mkBar(open, high, low, close, volume float64) marketdata.Bar {
	return marketdata.Bar{Open: open, High: high, Low: low, Close: close, Volume: volume}
}

func mkDaily(n int) []marketdata.Bar {
	bars := make([]marketdata.Bar, n)
	for i := range bars {
		price := 100 + float64(i)*0.1
		bars[i] = mkBar(price, price+1, price-1, price, 1000)
	}
	return bars
}

func findLevel(lvls []Level, t Type) *Level {
	for i := range lvls {
		if lvls[i].Type == t {
			return &lvls[i]
		}
	}
	return nil
}

func newCalculator(p marketdata.Provider) *Calculator {
	return NewCalculator(p, zerolog.Nop())
}

// TestNoSMA200WithShortHistory verifies fewer than 200 daily bars emits
// no SMA-200 level and throws nothing
func TestNoSMA200WithShortHistory(t *testing.T) {
	provider := &fakeProvider{
		daily:    mkDaily(50),
		weekly:   mkDaily(12),
		intraday: mkDaily(30),
	}

	lvls := newCalculator(provider).Calculate(context.Background(), "AAPL")

	if findLevel(lvls, TypeSMA200) != nil {
		t.Error("SMA-200 must not be emitted with fewer than 200 daily bars")
	}
	if findLevel(lvls, TypePrevDayHigh) == nil {
		t.Error("Previous-day levels should still be emitted")
	}
}

func TestSMA200WithFullHistory(t *testing.T) {
	provider := &fakeProvider{daily: mkDaily(250)}

	lvls := newCalculator(provider).Calculate(context.Background(), "AAPL")

	sma := findLevel(lvls, TypeSMA200)
	if sma == nil {
		t.Fatal("Expected SMA-200 level with 250 daily bars")
	}
	if sma.Strength != 95 {
		t.Errorf("Expected SMA-200 strength 95, got %d", sma.Strength)
	}
}

// TestPreviousDayLevels verifies the previous completed daily bar, not
// the in-progress one, drives PDH/PDL/PDC
func TestPreviousDayLevels(t *testing.T) {
	provider := &fakeProvider{
		daily: []marketdata.Bar{
			mkBar(100, 105, 95, 102, 1000), // previous completed day
			mkBar(102, 110, 101, 108, 500), // in-progress day
		},
	}

	lvls := newCalculator(provider).Calculate(context.Background(), "AAPL")

	cases := []struct {
		levelType Type
		price     float64
		strength  int
	}{
		{TypePrevDayHigh, 105, 80},
		{TypePrevDayLow, 95, 80},
		{TypePrevDayClose, 102, 70},
	}
	for _, tc := range cases {
		l := findLevel(lvls, tc.levelType)
		if l == nil {
			t.Fatalf("Missing level %s", tc.levelType)
		}
		if l.Price != tc.price {
			t.Errorf("%s: expected price %f, got %f", tc.levelType, tc.price, l.Price)
		}
		if l.Strength != tc.strength {
			t.Errorf("%s: expected strength %d, got %d", tc.levelType, tc.strength, l.Strength)
		}
	}
}

func TestWeeklyLevels(t *testing.T) {
	provider := &fakeProvider{
		weekly: []marketdata.Bar{
			mkBar(90, 98, 88, 95, 1000),  // previous completed week
			mkBar(95, 103, 94, 100, 400), // current week in progress
		},
	}

	lvls := newCalculator(provider).Calculate(context.Background(), "AAPL")

	prev := findLevel(lvls, TypeWeeklyHigh)
	if prev == nil || prev.Price != 98 || prev.Strength != 90 {
		t.Errorf("Expected weekly high 98 at strength 90, got %+v", prev)
	}

	current := findLevel(lvls, TypeCurrentWeekHigh)
	if current == nil || current.Price != 103 || current.Strength != 85 {
		t.Errorf("Expected current-week high 103 at strength 85, got %+v", current)
	}
}

// TestVWAPSkippedOnZeroVolume verifies a zero-volume session emits no
// VWAP level while the other intraday levels survive
func TestVWAPSkippedOnZeroVolume(t *testing.T) {
	intraday := make([]marketdata.Bar, 30)
	for i := range intraday {
		intraday[i] = mkBar(100, 101, 99, 100, 0)
	}
	provider := &fakeProvider{intraday: intraday}

	lvls := newCalculator(provider).Calculate(context.Background(), "AAPL")

	if findLevel(lvls, TypeVWAP) != nil {
		t.Error("VWAP level must be skipped when cumulative volume is zero")
	}
	if findLevel(lvls, TypeOpeningRangeHigh) == nil {
		t.Error("Opening range should still be emitted")
	}
	if findLevel(lvls, TypeHighOfDay) == nil {
		t.Error("High of day should still be emitted")
	}
}

func TestOpeningRangeUsesFirstThreeBars(t *testing.T) {
	intraday := []marketdata.Bar{
		mkBar(100, 101, 99, 100, 100),
		mkBar(100, 103, 98, 102, 100),
		mkBar(102, 102, 97, 101, 100),
		mkBar(101, 120, 90, 110, 100), // outside the opening range
	}
	provider := &fakeProvider{intraday: intraday}

	lvls := newCalculator(provider).Calculate(context.Background(), "AAPL")

	orHigh := findLevel(lvls, TypeOpeningRangeHigh)
	orLow := findLevel(lvls, TypeOpeningRangeLow)
	if orHigh == nil || orHigh.Price != 103 {
		t.Errorf("Expected opening range high 103, got %+v", orHigh)
	}
	if orLow == nil || orLow.Price != 97 {
		t.Errorf("Expected opening range low 97, got %+v", orLow)
	}

	hod := findLevel(lvls, TypeHighOfDay)
	if hod == nil || hod.Price != 120 {
		t.Errorf("Expected high of day 120, got %+v", hod)
	}
}

func TestEMALevelsRequire21Bars(t *testing.T) {
	provider := &fakeProvider{intraday: mkDaily(10)}

	lvls := newCalculator(provider).Calculate(context.Background(), "AAPL")

	if findLevel(lvls, TypeEMA9) != nil || findLevel(lvls, TypeEMA21) != nil {
		t.Error("EMA levels must not be emitted with fewer than 21 intraday bars")
	}
}

// TestFetchFailureIsolated verifies one failing sub-series never aborts
// the others; levels are additive and best-effort per source
func TestFetchFailureIsolated(t *testing.T) {
	provider := &fakeProvider{
		daily:      mkDaily(50),
		intraday:   mkDaily(30),
		failWeekly: true,
	}

	lvls := newCalculator(provider).Calculate(context.Background(), "AAPL")

	if findLevel(lvls, TypeWeeklyHigh) != nil {
		t.Error("No weekly levels expected when the weekly fetch fails")
	}
	if findLevel(lvls, TypePrevDayHigh) == nil {
		t.Error("Daily levels should survive a weekly fetch failure")
	}
	if findLevel(lvls, TypeVWAP) == nil {
		t.Error("Intraday levels should survive a weekly fetch failure")
	}
}

func TestLevelsShareOneHourExpiry(t *testing.T) {
	provider := &fakeProvider{daily: mkDaily(5)}

	before := time.Now().Add(TTL - time.Minute)
	lvls := newCalculator(provider).Calculate(context.Background(), "AAPL")

	if len(lvls) == 0 {
		t.Fatal("Expected levels")
	}
	for _, l := range lvls {
		if !l.ExpiresAt.After(before) {
			t.Errorf("%s expires too early: %v", l.Type, l.ExpiresAt)
		}
		if !l.Active(time.Now()) {
			t.Errorf("%s should be active immediately after computation", l.Type)
		}
	}
}
