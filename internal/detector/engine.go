package detector

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"ltp-detection-engine/internal/analysis"
	"ltp-detection-engine/internal/confluence"
	"ltp-detection-engine/internal/levels"
	"ltp-detection-engine/internal/marketdata"
	"ltp-detection-engine/internal/trade"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// Store defines the persistence operations the engine consumes
type Store interface {
	ReplaceLevels(ctx context.Context, symbol string, lvls []levels.Level) error
	GetActiveLevels(ctx context.Context, symbol string) ([]levels.Level, error)
	UpsertTimeframeAnalysis(ctx context.Context, ta *analysis.TimeframeAnalysis) error
	GetTimeframeAnalyses(ctx context.Context, symbol string) ([]analysis.TimeframeAnalysis, error)
	UpsertDetectedSetup(ctx context.Context, setup *DetectedSetup) error
	GetEngineConfig(ctx context.Context) (*EngineConfig, error)
}

// ErrNotInitialized is returned when an engine operation runs before
// Initialize().
var ErrNotInitialized = errors.New("detection engine not initialized")

const cycleTimeout = 5 * time.Minute

// Engine owns the watched-symbol set and drives the LTP detection cycle:
// levels, multi-timeframe trend, patience, confluence, trade parameters,
// persisted setup. Symbols are processed sequentially within a cycle to
// respect upstream rate limits.
type Engine struct {
	provider marketdata.Provider
	store    Store
	logger   zerolog.Logger

	cfg        EngineConfig
	levelCalc  *levels.Calculator
	aggregator *analysis.Aggregator
	scorer     *confluence.Scorer

	mu          sync.RWMutex // guards watchlist and initialized
	watchlist   map[string]struct{}
	initialized bool

	loopMu   sync.Mutex // guards running/stopChan
	running  bool
	stopChan chan struct{}
	wg       sync.WaitGroup
	inFlight atomic.Bool // reentrancy guard: one cycle at a time
}

func New(provider marketdata.Provider, store Store, logger zerolog.Logger) *Engine {
	return &Engine{
		provider:  provider,
		store:     store,
		logger:    logger.With().Str("component", "DetectionEngine").Logger(),
		watchlist: make(map[string]struct{}),
	}
}

// Initialize loads the active configuration from the store (defaults
// where unset) and builds the analysis pipeline. Must be called before
// any analysis operation.
func (e *Engine) Initialize(ctx context.Context) error {
	cfg := DefaultEngineConfig()

	stored, err := e.store.GetEngineConfig(ctx)
	if err != nil {
		return fmt.Errorf("failed to load engine config: %w", err)
	}
	cfg = cfg.merge(stored)

	scorerCfg := confluence.DefaultConfig()
	scorerCfg.ProximityPercent = cfg.ProximityPercent
	scorerCfg.ReadyThreshold = cfg.ReadyThreshold
	if err := scorerCfg.Validate(); err != nil {
		return err
	}

	analyzer := analysis.NewTimeframeAnalyzer(e.provider, e.logger)

	e.mu.Lock()
	e.cfg = cfg
	e.levelCalc = levels.NewCalculator(e.provider, e.logger)
	e.aggregator = analysis.NewAggregator(analyzer, cfg.Timeframes, cfg.TimeframeWeights, e.logger)
	e.scorer = confluence.NewScorer(scorerCfg)
	e.initialized = true
	e.mu.Unlock()

	e.logger.Info().
		Int("timeframes", len(cfg.Timeframes)).
		Int("ready_threshold", cfg.ReadyThreshold).
		Int("persist_floor", cfg.PersistFloor).
		Msg("Detection engine initialized")
	return nil
}

// Config returns the active engine configuration
func (e *Engine) Config() EngineConfig {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.cfg
}

// AddSymbols adds symbols to the watchlist, de-duplicated and
// upper-cased. Safe while the loop is running.
func (e *Engine) AddSymbols(symbols []string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	for _, s := range symbols {
		if normalized := normalizeSymbol(s); normalized != "" {
			e.watchlist[normalized] = struct{}{}
		}
	}
}

// RemoveSymbols removes symbols from the watchlist
func (e *Engine) RemoveSymbols(symbols []string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	for _, s := range symbols {
		delete(e.watchlist, normalizeSymbol(s))
	}
}

// Watchlist returns the watched symbols, sorted
func (e *Engine) Watchlist() []string {
	e.mu.RLock()
	defer e.mu.RUnlock()
	out := make([]string, 0, len(e.watchlist))
	for s := range e.watchlist {
		out = append(out, s)
	}
	sort.Strings(out)
	return out
}

// AnalyzeSymbol runs the full LTP pipeline for one symbol. It returns nil
// (no setup, no error) when levels or timeframe analyses were stale: the
// pass recomputes them and skips scoring rather than score stale inputs.
// The setup is persisted only when its confluence score reaches the
// persist floor; weaker results are returned but discarded, not stored.
func (e *Engine) AnalyzeSymbol(ctx context.Context, symbol string) (*DetectedSetup, error) {
	e.mu.RLock()
	initialized := e.initialized
	cfg := e.cfg
	levelCalc := e.levelCalc
	aggregator := e.aggregator
	scorer := e.scorer
	e.mu.RUnlock()

	if !initialized {
		return nil, ErrNotInitialized
	}

	symbol = normalizeSymbol(symbol)
	now := time.Now()

	quote, err := e.provider.GetQuote(ctx, symbol)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch quote for %s: %w", symbol, err)
	}

	// Phase one: ensure fresh inputs. A cache miss recomputes and ends
	// the pass; the next cycle scores against the fresh data.
	lvls, err := e.store.GetActiveLevels(ctx, symbol)
	if err != nil {
		return nil, fmt.Errorf("failed to load levels for %s: %w", symbol, err)
	}
	if len(lvls) == 0 {
		computed := levelCalc.Calculate(ctx, symbol)
		if len(computed) > 0 {
			if err := e.store.ReplaceLevels(ctx, symbol, computed); err != nil {
				e.logger.Error().Err(err).Str("symbol", symbol).Msg("Failed to persist levels")
			}
		}
		e.logger.Debug().Str("symbol", symbol).Msg("Levels recomputed, skipping scoring this pass")
		return nil, nil
	}

	analyses, err := e.store.GetTimeframeAnalyses(ctx, symbol)
	if err != nil {
		return nil, fmt.Errorf("failed to load timeframe analyses for %s: %w", symbol, err)
	}
	analyses = filterConfigured(analyses, cfg.Timeframes)
	if e.analysesStale(analyses, cfg, now) {
		e.refreshAnalyses(ctx, symbol, aggregator)
		e.logger.Debug().Str("symbol", symbol).Msg("Timeframe analyses refreshed, skipping scoring this pass")
		return nil, nil
	}

	// Phase two: score.
	price := quote.Price
	direction := analysis.VoteDirection(analyses)
	trendScore := aggregator.AlignmentScore(analyses, direction)
	mtfScore := analysis.AgreementScore(analyses, direction)

	patience := analysis.PatienceResult{}
	if candidate := confluence.NearestLevel(lvls, price, now); candidate != nil {
		bars, err := e.provider.GetAggregates(ctx, symbol, "5m", 5)
		if err != nil {
			e.logger.Warn().Err(err).Str("symbol", symbol).Msg("Patience bars unavailable")
		} else {
			patience = analysis.DetectPatience(bars, candidate.Price, cfg.PatienceMaxBodyPercent)
		}
	}

	res := scorer.Evaluate(lvls, price, trendScore, direction, patience, now)
	params := trade.Calculate(price, res.Level, res.Direction)
	setup := buildSetup(symbol, res, mtfScore, patience, params, now)

	if setup.ConfluenceScore >= cfg.PersistFloor {
		if err := e.store.UpsertDetectedSetup(ctx, setup); err != nil {
			e.logger.Error().Err(err).Str("symbol", symbol).Msg("Failed to persist setup")
		}
	}

	return setup, nil
}

// RunDetectionCycle analyzes every watched symbol sequentially and
// returns the setups that cleared the persist floor. One symbol's failure
// never aborts the cycle for the rest.
func (e *Engine) RunDetectionCycle(ctx context.Context) []*DetectedSetup {
	cycleID := uuid.NewString()[:8]
	symbols := e.Watchlist()
	start := time.Now()

	e.mu.RLock()
	floor := e.cfg.PersistFloor
	e.mu.RUnlock()

	logger := e.logger.With().Str("cycle_id", cycleID).Logger()
	logger.Info().Int("symbols", len(symbols)).Msg("Detection cycle started")

	var results []*DetectedSetup
	for _, symbol := range symbols {
		setup := e.analyzeIsolated(ctx, symbol, logger)
		if setup != nil && setup.ConfluenceScore >= floor {
			results = append(results, setup)
		}
	}

	logger.Info().
		Int("setups", len(results)).
		Dur("duration", time.Since(start)).
		Msg("Detection cycle completed")
	return results
}

// analyzeIsolated wraps one symbol's analysis so that neither an error
// nor a panic can propagate out of the cycle.
func (e *Engine) analyzeIsolated(ctx context.Context, symbol string, logger zerolog.Logger) (setup *DetectedSetup) {
	defer func() {
		if r := recover(); r != nil {
			logger.Error().Interface("panic", r).Str("symbol", symbol).Msg("Symbol analysis panicked")
			setup = nil
		}
	}()

	setup, err := e.AnalyzeSymbol(ctx, symbol)
	if err != nil {
		logger.Warn().Err(err).Str("symbol", symbol).Msg("Symbol analysis failed")
		return nil
	}
	return setup
}

// StartContinuousDetection runs one cycle immediately, then re-runs on a
// fixed period. A non-positive interval falls back to the configured scan
// interval. Starting an already-running loop is a no-op.
func (e *Engine) StartContinuousDetection(interval time.Duration) {
	e.loopMu.Lock()
	if e.running {
		e.loopMu.Unlock()
		return
	}
	if interval <= 0 {
		interval = e.Config().ScanInterval()
	}
	e.running = true
	e.stopChan = make(chan struct{})
	stopChan := e.stopChan
	e.loopMu.Unlock()

	e.wg.Add(1)
	go e.runLoop(interval, stopChan)
	e.logger.Info().Dur("interval", interval).Msg("Continuous detection started")
}

func (e *Engine) runLoop(interval time.Duration, stopChan chan struct{}) {
	defer e.wg.Done()

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	e.runCycleGuarded()

	for {
		select {
		case <-ticker.C:
			e.runCycleGuarded()
		case <-stopChan:
			e.logger.Info().Msg("Continuous detection stopped")
			return
		}
	}
}

// runCycleGuarded skips a tick when the previous cycle is still in
// flight; two cycles must never run concurrently.
func (e *Engine) runCycleGuarded() {
	if !e.inFlight.CompareAndSwap(false, true) {
		e.logger.Warn().Msg("Previous cycle still running, skipping tick")
		return
	}
	defer e.inFlight.Store(false)

	ctx, cancel := context.WithTimeout(context.Background(), cycleTimeout)
	defer cancel()
	e.RunDetectionCycle(ctx)
}

// StopContinuousDetection cancels future cycles. An in-flight cycle runs
// to completion before this returns.
func (e *Engine) StopContinuousDetection() {
	e.loopMu.Lock()
	if !e.running {
		e.loopMu.Unlock()
		return
	}
	close(e.stopChan)
	e.running = false
	e.loopMu.Unlock()
	e.wg.Wait()
}

// Running reports whether the continuous loop is active
func (e *Engine) Running() bool {
	e.loopMu.Lock()
	defer e.loopMu.Unlock()
	return e.running
}

// filterConfigured keeps only the rows for currently configured
// timeframes. Rows left behind by a narrower config must never feed the
// staleness gate, the direction vote or the agreement score.
func filterConfigured(analyses []analysis.TimeframeAnalysis, timeframes []string) []analysis.TimeframeAnalysis {
	configured := make(map[string]struct{}, len(timeframes))
	for _, tf := range timeframes {
		configured[tf] = struct{}{}
	}

	out := make([]analysis.TimeframeAnalysis, 0, len(analyses))
	for _, ta := range analyses {
		if _, ok := configured[ta.Timeframe]; ok {
			out = append(out, ta)
		}
	}
	return out
}

// analysesStale reports whether the stored timeframe analyses are missing
// or older than the freshness window.
func (e *Engine) analysesStale(analyses []analysis.TimeframeAnalysis, cfg EngineConfig, now time.Time) bool {
	if len(analyses) < len(cfg.Timeframes) {
		return true
	}
	cutoff := now.Add(-cfg.AnalysisMaxAge())
	for _, ta := range analyses {
		if ta.UpdatedAt.Before(cutoff) {
			return true
		}
	}
	return false
}

// refreshAnalyses re-classifies every timeframe and upserts the results.
// Per-timeframe persistence failures are logged and skipped.
func (e *Engine) refreshAnalyses(ctx context.Context, symbol string, aggregator *analysis.Aggregator) {
	for _, ta := range aggregator.AnalyzeAll(ctx, symbol) {
		ta := ta
		if err := e.store.UpsertTimeframeAnalysis(ctx, &ta); err != nil {
			e.logger.Error().Err(err).Str("symbol", symbol).Str("timeframe", ta.Timeframe).Msg("Failed to persist timeframe analysis")
		}
	}
}

func normalizeSymbol(symbol string) string {
	return strings.ToUpper(strings.TrimSpace(symbol))
}
