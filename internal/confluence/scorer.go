package confluence

import (
	"fmt"
	"math"
	"time"

	"ltp-detection-engine/internal/analysis"
	"ltp-detection-engine/internal/levels"
)

// Stage is the coarse lifecycle stage of a detected setup
type Stage string

const (
	StageForming Stage = "forming"
	StageReady   Stage = "ready"
)

// Config holds the scorer's thresholds and factor weights
type Config struct {
	// ProximityPercent is how close (percent of current price) a level
	// must be to contribute a level score.
	ProximityPercent float64
	// ReadyThreshold is the confluence score at or above which a setup
	// with detected patience becomes ready.
	ReadyThreshold int

	LevelWeight    float64
	TrendWeight    float64
	PatienceWeight float64
}

func DefaultConfig() Config {
	return Config{
		ProximityPercent: 0.3,
		ReadyThreshold:   70,
		LevelWeight:      0.35,
		TrendWeight:      0.35,
		PatienceWeight:   0.30,
	}
}

// Validate checks that the factor weights sum to 1.0
func (c Config) Validate() error {
	total := c.LevelWeight + c.TrendWeight + c.PatienceWeight
	if total < 0.99 || total > 1.01 {
		return fmt.Errorf("confluence weights must sum to 1.0, got %.2f", total)
	}
	return nil
}

// Result is the combined LTP evaluation for one symbol at one price
type Result struct {
	Direction     analysis.Trend
	Stage         Stage
	Score         int
	LevelScore    int
	TrendScore    int
	PatienceScore int
	// Level is the attached level, nil when none sits within the
	// proximity threshold. Trade parameters exist only when attached.
	Level *levels.Level
}

// Scorer combines level, trend and patience sub-scores into one setup
// score and stage.
type Scorer struct {
	cfg Config
}

func NewScorer(cfg Config) *Scorer {
	return &Scorer{cfg: cfg}
}

// Evaluate scores the symbol's state: the best active level within the
// proximity threshold, the supplied trend alignment, and the patience
// result, weighted into the confluence score. Stage is ready only when
// the score clears the threshold AND patience is detected; the two
// conditions are independent.
func (s *Scorer) Evaluate(lvls []levels.Level, price float64, trendScore int, direction analysis.Trend, patience analysis.PatienceResult, now time.Time) Result {
	best, levelScore := s.BestLevel(lvls, price, now)

	patienceScore := 0
	if patience.Detected {
		bonus := patience.Count * 20
		if bonus > 60 {
			bonus = 60
		}
		patienceScore = 40 + bonus
	}

	score := int(math.Round(
		float64(levelScore)*s.cfg.LevelWeight +
			float64(trendScore)*s.cfg.TrendWeight +
			float64(patienceScore)*s.cfg.PatienceWeight))

	stage := StageForming
	if score >= s.cfg.ReadyThreshold && patience.Detected {
		stage = StageReady
	}

	return Result{
		Direction:     direction,
		Stage:         stage,
		Score:         clamp(score),
		LevelScore:    levelScore,
		TrendScore:    clamp(trendScore),
		PatienceScore: patienceScore,
		Level:         best,
	}
}

// BestLevel returns the highest-scoring active level within the proximity
// threshold of price, along with its 0-100 score. Each qualifying level
// scores (1 - distance/threshold) x 50 for proximity plus strength/100 x 50.
// Returns (nil, 0) when no level qualifies.
func (s *Scorer) BestLevel(lvls []levels.Level, price float64, now time.Time) (*levels.Level, int) {
	if price <= 0 {
		return nil, 0
	}

	var best *levels.Level
	bestScore := 0.0

	for i := range lvls {
		l := lvls[i]
		if !l.Active(now) {
			continue
		}

		distancePercent := math.Abs(price-l.Price) / price * 100
		if distancePercent >= s.cfg.ProximityPercent {
			continue
		}

		proximityScore := (1 - distancePercent/s.cfg.ProximityPercent) * 50
		strengthScore := float64(l.Strength) / 100 * 50
		total := proximityScore + strengthScore

		if best == nil || total > bestScore {
			best = &lvls[i]
			bestScore = total
		}
	}

	if best == nil {
		return nil, 0
	}
	return best, clamp(int(math.Round(bestScore)))
}

// NearestLevel returns the active level closest to price regardless of
// the proximity threshold; the patience detector uses it as the candidate
// consolidation level. Returns nil when no active levels exist.
func NearestLevel(lvls []levels.Level, price float64, now time.Time) *levels.Level {
	var nearest *levels.Level
	bestDistance := math.MaxFloat64

	for i := range lvls {
		if !lvls[i].Active(now) {
			continue
		}
		distance := math.Abs(price - lvls[i].Price)
		if distance < bestDistance {
			nearest = &lvls[i]
			bestDistance = distance
		}
	}

	return nearest
}

func clamp(v int) int {
	if v < 0 {
		return 0
	}
	if v > 100 {
		return 100
	}
	return v
}
