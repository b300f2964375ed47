package analysis

import (
	"context"
	"errors"
	"testing"

	"ltp-detection-engine/internal/marketdata"

	"github.com/rs/zerolog"
)

func analysesWithTrends(trends map[string]Trend) []TimeframeAnalysis {
	out := make([]TimeframeAnalysis, 0, len(trends))
	for _, tf := range DefaultTimeframes() {
		trend, ok := trends[tf]
		if !ok {
			continue
		}
		out = append(out, TimeframeAnalysis{Symbol: "AAPL", Timeframe: tf, Trend: trend})
	}
	return out
}

func TestVoteDirectionMajority(t *testing.T) {
	analyses := analysesWithTrends(map[string]Trend{
		"2m":  TrendBearish,
		"5m":  TrendBearish,
		"15m": TrendBearish,
		"1h":  TrendBullish,
		"4h":  TrendBullish,
	})

	if dir := VoteDirection(analyses); dir != TrendBearish {
		t.Errorf("Expected bearish majority, got %s", dir)
	}
}

// TestVoteDirectionTie verifies the documented tie break toward bullish
func TestVoteDirectionTie(t *testing.T) {
	analyses := analysesWithTrends(map[string]Trend{
		"5m": TrendBullish,
		"1h": TrendBearish,
	})

	if dir := VoteDirection(analyses); dir != TrendBullish {
		t.Errorf("Expected tie to resolve bullish, got %s", dir)
	}
}

func TestVoteDirectionNeutralOnly(t *testing.T) {
	analyses := analysesWithTrends(map[string]Trend{
		"5m": TrendNeutral,
		"1h": TrendNeutral,
	})

	if dir := VoteDirection(analyses); dir != TrendBullish {
		t.Errorf("Expected all-neutral to resolve bullish, got %s", dir)
	}
}

func TestAlignmentScoreWeighted(t *testing.T) {
	ag := NewAggregator(nil, nil, nil, zerolog.Nop())

	// Five of seven bullish: weekly .15 + daily .20 + 4h .15 + 1h .20 +
	// 15m .15 = 0.85
	analyses := analysesWithTrends(map[string]Trend{
		"weekly": TrendBullish,
		"daily":  TrendBullish,
		"4h":     TrendBullish,
		"1h":     TrendBullish,
		"15m":    TrendBullish,
		"5m":     TrendBearish,
		"2m":     TrendNeutral,
	})

	if score := ag.AlignmentScore(analyses, TrendBullish); score != 85 {
		t.Errorf("Expected alignment 85, got %d", score)
	}
	if score := ag.AlignmentScore(analyses, TrendBearish); score != 10 {
		t.Errorf("Expected bearish alignment 10, got %d", score)
	}
}

func TestAlignmentScoreBounds(t *testing.T) {
	ag := NewAggregator(nil, nil, nil, zerolog.Nop())

	all := analysesWithTrends(map[string]Trend{
		"weekly": TrendBullish, "daily": TrendBullish, "4h": TrendBullish,
		"1h": TrendBullish, "15m": TrendBullish, "5m": TrendBullish, "2m": TrendBullish,
	})
	if score := ag.AlignmentScore(all, TrendBullish); score != 100 {
		t.Errorf("Expected full alignment 100, got %d", score)
	}
	if score := ag.AlignmentScore(nil, TrendBullish); score != 0 {
		t.Errorf("Expected empty alignment 0, got %d", score)
	}
}

func TestAgreementScore(t *testing.T) {
	analyses := analysesWithTrends(map[string]Trend{
		"weekly": TrendBullish,
		"daily":  TrendBullish,
		"4h":     TrendBullish,
		"1h":     TrendBullish,
		"15m":    TrendBullish,
		"5m":     TrendBearish,
		"2m":     TrendNeutral,
	})

	// 5 of 7 matching rounds to 71
	if score := AgreementScore(analyses, TrendBullish); score != 71 {
		t.Errorf("Expected agreement 71, got %d", score)
	}
	if score := AgreementScore(nil, TrendBullish); score != 0 {
		t.Errorf("Expected empty agreement 0, got %d", score)
	}
}

type selectiveProvider struct {
	failTimeframes map[string]bool
}

func (p *selectiveProvider) GetQuote(ctx context.Context, symbol string) (*marketdata.Quote, error) {
	return nil, errors.New("not implemented")
}

func (p *selectiveProvider) GetAggregates(ctx context.Context, symbol, timeframe string, limit int) ([]marketdata.Bar, error) {
	if p.failTimeframes[timeframe] {
		return nil, errors.New("fetch failed")
	}
	return risingSeries(30, 100, 0.5), nil
}

// TestAnalyzeAllSkipsFailedTimeframes verifies one failing timeframe
// fetch does not abort the rest of the set
func TestAnalyzeAllSkipsFailedTimeframes(t *testing.T) {
	provider := &selectiveProvider{failTimeframes: map[string]bool{"4h": true}}
	analyzer := NewTimeframeAnalyzer(provider, zerolog.Nop())
	ag := NewAggregator(analyzer, nil, nil, zerolog.Nop())

	analyses := ag.AnalyzeAll(context.Background(), "AAPL")

	if len(analyses) != len(DefaultTimeframes())-1 {
		t.Fatalf("Expected %d analyses, got %d", len(DefaultTimeframes())-1, len(analyses))
	}
	for _, ta := range analyses {
		if ta.Timeframe == "4h" {
			t.Error("Failed timeframe must be skipped")
		}
	}
}
