package marketdata

import (
	"context"
	"testing"
)

func TestMockProviderDeterministic(t *testing.T) {
	mock := NewMockProvider()
	ctx := context.Background()

	first, err := mock.GetAggregates(ctx, "AAPL", "5m", 20)
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	second, err := mock.GetAggregates(ctx, "AAPL", "5m", 20)
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}

	if len(first) != 20 || len(second) != 20 {
		t.Fatalf("Expected 20 bars, got %d and %d", len(first), len(second))
	}
	for i := range first {
		if first[i].Close != second[i].Close {
			t.Fatalf("Bar %d differs across calls: %f vs %f", i, first[i].Close, second[i].Close)
		}
	}
}

func TestMockProviderBarsWellFormed(t *testing.T) {
	mock := NewMockProvider()

	bars, err := mock.GetAggregates(context.Background(), "MSFT", "daily", 30)
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}

	for i, b := range bars {
		if b.High < b.Open || b.High < b.Close {
			t.Errorf("Bar %d: high below open/close: %+v", i, b)
		}
		if b.Low > b.Open || b.Low > b.Close {
			t.Errorf("Bar %d: low above open/close: %+v", i, b)
		}
		if b.Volume <= 0 {
			t.Errorf("Bar %d: non-positive volume", i)
		}
		if i > 0 && !bars[i].Time.After(bars[i-1].Time) {
			t.Errorf("Bar %d: timestamps must be strictly increasing", i)
		}
	}
}

func TestMockProviderQuoteMatchesLastBar(t *testing.T) {
	mock := NewMockProvider()
	ctx := context.Background()

	quote, err := mock.GetQuote(ctx, "AAPL")
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if quote.Price <= 0 {
		t.Errorf("Expected positive price, got %f", quote.Price)
	}
	if quote.Symbol != "AAPL" {
		t.Errorf("Expected symbol AAPL, got %s", quote.Symbol)
	}

	if _, err := mock.GetQuote(ctx, ""); err != nil {
		t.Errorf("Empty symbol still hashes to a base price: %v", err)
	}
}
