package marketdata

import (
	"context"
	"hash/fnv"
	"math"
	"time"
)

// MockProvider generates deterministic simulated data for development and
// environments without provider access. The series for a given symbol and
// timeframe is stable across calls.
type MockProvider struct{}

func NewMockProvider() *MockProvider {
	return &MockProvider{}
}

func (m *MockProvider) GetQuote(ctx context.Context, symbol string) (*Quote, error) {
	bars, err := m.GetAggregates(ctx, symbol, "5m", 1)
	if err != nil {
		return nil, err
	}
	return &Quote{
		Symbol: symbol,
		Price:  bars[len(bars)-1].Close,
		Time:   time.Now(),
	}, nil
}

func (m *MockProvider) GetAggregates(ctx context.Context, symbol, timeframe string, limit int) ([]Bar, error) {
	multiplier, timespan, err := parseTimeframe(timeframe)
	if err != nil {
		return nil, err
	}

	step := barStep(multiplier, timespan)
	base := basePrice(symbol)
	end := time.Now().Truncate(step)

	bars := make([]Bar, 0, limit)
	for i := 0; i < limit; i++ {
		// Gentle uptrend with a sinusoidal wobble, scaled by the bar span
		idx := float64(limit - i)
		drift := base * 0.0002 * float64(step/time.Minute)
		open := base + drift*(float64(i)-idx*0.1) + base*0.002*math.Sin(float64(i)/5)
		close := open + drift*0.5
		high := math.Max(open, close) * 1.001
		low := math.Min(open, close) * 0.999

		bars = append(bars, Bar{
			Time:   end.Add(-time.Duration(limit-i) * step),
			Open:   round2(open),
			High:   round2(high),
			Low:    round2(low),
			Close:  round2(close),
			Volume: 10000 + 500*float64(i%7),
		})
	}

	return bars, nil
}

func barStep(multiplier int, timespan string) time.Duration {
	switch timespan {
	case "minute":
		return time.Duration(multiplier) * time.Minute
	case "hour":
		return time.Duration(multiplier) * time.Hour
	case "day":
		return 24 * time.Hour
	case "week":
		return 7 * 24 * time.Hour
	default:
		return time.Minute
	}
}

func basePrice(symbol string) float64 {
	h := fnv.New32a()
	h.Write([]byte(symbol))
	return 50 + float64(h.Sum32()%400)
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
