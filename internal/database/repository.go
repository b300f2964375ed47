package database

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"ltp-detection-engine/internal/analysis"
	"ltp-detection-engine/internal/detector"
	"ltp-detection-engine/internal/levels"

	"github.com/jackc/pgx/v5"
)

// Repository provides persistence for levels, timeframe analyses,
// detected setups and the engine configuration document.
type Repository struct {
	db *DB
}

// Repository satisfies the engine's store contract
var _ detector.Store = (*Repository)(nil)

func NewRepository(db *DB) *Repository {
	return &Repository{db: db}
}

// ==================== LEVELS ====================

// ReplaceLevels atomically replaces all stored levels for a symbol.
// Levels never accumulate: each recompute discards the prior set.
func (r *Repository) ReplaceLevels(ctx context.Context, symbol string, lvls []levels.Level) error {
	tx, err := r.db.Pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin levels transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx, `DELETE FROM levels WHERE symbol = $1`, symbol); err != nil {
		return fmt.Errorf("failed to clear levels for %s: %w", symbol, err)
	}

	query := `
		INSERT INTO levels (symbol, level_type, price, timeframe, strength, expires_at)
		VALUES ($1, $2, $3, $4, $5, $6)`

	for _, l := range lvls {
		if _, err := tx.Exec(ctx, query, symbol, l.Type, l.Price, l.Timeframe, l.Strength, l.ExpiresAt); err != nil {
			return fmt.Errorf("failed to insert level %s for %s: %w", l.Type, symbol, err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit levels for %s: %w", symbol, err)
	}
	return nil
}

// GetActiveLevels returns the non-expired levels for a symbol. Expired
// rows are filtered at query time so stale levels are never scored.
func (r *Repository) GetActiveLevels(ctx context.Context, symbol string) ([]levels.Level, error) {
	query := `
		SELECT symbol, level_type, price, timeframe, strength, expires_at
		FROM levels
		WHERE symbol = $1 AND expires_at > CURRENT_TIMESTAMP
		ORDER BY strength DESC`

	rows, err := r.db.Pool.Query(ctx, query, symbol)
	if err != nil {
		return nil, fmt.Errorf("failed to query levels for %s: %w", symbol, err)
	}
	defer rows.Close()

	var out []levels.Level
	for rows.Next() {
		var l levels.Level
		if err := rows.Scan(&l.Symbol, &l.Type, &l.Price, &l.Timeframe, &l.Strength, &l.ExpiresAt); err != nil {
			return nil, fmt.Errorf("failed to scan level: %w", err)
		}
		out = append(out, l)
	}
	return out, rows.Err()
}

// ==================== TIMEFRAME ANALYSES ====================

// UpsertTimeframeAnalysis stores one timeframe classification, replacing
// the prior row for (symbol, timeframe).
func (r *Repository) UpsertTimeframeAnalysis(ctx context.Context, ta *analysis.TimeframeAnalysis) error {
	query := `
		INSERT INTO timeframe_analyses (symbol, timeframe, trend, structure, ema_position, momentum, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (symbol, timeframe) DO UPDATE SET
			trend = EXCLUDED.trend,
			structure = EXCLUDED.structure,
			ema_position = EXCLUDED.ema_position,
			momentum = EXCLUDED.momentum,
			updated_at = EXCLUDED.updated_at`

	_, err := r.db.Pool.Exec(ctx, query,
		ta.Symbol, ta.Timeframe, ta.Trend, ta.Structure, ta.EMAPosition, ta.Momentum, ta.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to upsert analysis %s/%s: %w", ta.Symbol, ta.Timeframe, err)
	}
	return nil
}

// GetTimeframeAnalyses returns all stored classifications for a symbol
func (r *Repository) GetTimeframeAnalyses(ctx context.Context, symbol string) ([]analysis.TimeframeAnalysis, error) {
	query := `
		SELECT symbol, timeframe, trend, structure, ema_position, momentum, updated_at
		FROM timeframe_analyses
		WHERE symbol = $1`

	rows, err := r.db.Pool.Query(ctx, query, symbol)
	if err != nil {
		return nil, fmt.Errorf("failed to query analyses for %s: %w", symbol, err)
	}
	defer rows.Close()

	var out []analysis.TimeframeAnalysis
	for rows.Next() {
		var ta analysis.TimeframeAnalysis
		if err := rows.Scan(&ta.Symbol, &ta.Timeframe, &ta.Trend, &ta.Structure, &ta.EMAPosition, &ta.Momentum, &ta.UpdatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan analysis: %w", err)
		}
		out = append(out, ta)
	}
	return out, rows.Err()
}

// ==================== DETECTED SETUPS ====================

// UpsertDetectedSetup replaces the live setup row for a symbol
func (r *Repository) UpsertDetectedSetup(ctx context.Context, setup *detector.DetectedSetup) error {
	query := `
		INSERT INTO detected_setups (
			symbol, direction, setup_stage, confluence_score, level_score,
			trend_score, patience_score, mtf_score, primary_level_type,
			primary_level_price, patience_candles, suggested_entry,
			suggested_stop, target1, target2, target3, risk_reward,
			coach_note, detected_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19, $20)
		ON CONFLICT (symbol) DO UPDATE SET
			direction = EXCLUDED.direction,
			setup_stage = EXCLUDED.setup_stage,
			confluence_score = EXCLUDED.confluence_score,
			level_score = EXCLUDED.level_score,
			trend_score = EXCLUDED.trend_score,
			patience_score = EXCLUDED.patience_score,
			mtf_score = EXCLUDED.mtf_score,
			primary_level_type = EXCLUDED.primary_level_type,
			primary_level_price = EXCLUDED.primary_level_price,
			patience_candles = EXCLUDED.patience_candles,
			suggested_entry = EXCLUDED.suggested_entry,
			suggested_stop = EXCLUDED.suggested_stop,
			target1 = EXCLUDED.target1,
			target2 = EXCLUDED.target2,
			target3 = EXCLUDED.target3,
			risk_reward = EXCLUDED.risk_reward,
			coach_note = EXCLUDED.coach_note,
			detected_at = EXCLUDED.detected_at,
			updated_at = EXCLUDED.updated_at`

	var levelType *string
	if setup.PrimaryLevelType != "" {
		t := string(setup.PrimaryLevelType)
		levelType = &t
	}

	_, err := r.db.Pool.Exec(ctx, query,
		setup.Symbol,
		setup.Direction,
		setup.SetupStage,
		setup.ConfluenceScore,
		setup.LevelScore,
		setup.TrendScore,
		setup.PatienceScore,
		setup.MTFScore,
		levelType,
		setup.PrimaryLevelPrice,
		setup.PatienceCandles,
		setup.SuggestedEntry,
		setup.SuggestedStop,
		setup.Target1,
		setup.Target2,
		setup.Target3,
		setup.RiskReward,
		setup.CoachNote,
		setup.DetectedAt,
		time.Now(),
	)
	if err != nil {
		return fmt.Errorf("failed to upsert setup for %s: %w", setup.Symbol, err)
	}
	return nil
}

// GetDetectedSetup returns the live setup for a symbol, nil when none
func (r *Repository) GetDetectedSetup(ctx context.Context, symbol string) (*detector.DetectedSetup, error) {
	query := setupSelect + ` WHERE symbol = $1`

	setup, err := scanSetup(r.db.Pool.QueryRow(ctx, query, symbol))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get setup for %s: %w", symbol, err)
	}
	return setup, nil
}

// GetDetectedSetups returns all live setups, highest confluence first
func (r *Repository) GetDetectedSetups(ctx context.Context) ([]*detector.DetectedSetup, error) {
	query := setupSelect + ` ORDER BY confluence_score DESC`

	rows, err := r.db.Pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to query setups: %w", err)
	}
	defer rows.Close()

	var out []*detector.DetectedSetup
	for rows.Next() {
		setup, err := scanSetup(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan setup: %w", err)
		}
		out = append(out, setup)
	}
	return out, rows.Err()
}

const setupSelect = `
	SELECT symbol, direction, setup_stage, confluence_score, level_score,
		trend_score, patience_score, mtf_score, primary_level_type,
		primary_level_price, patience_candles, suggested_entry,
		suggested_stop, target1, target2, target3, risk_reward,
		coach_note, detected_at
	FROM detected_setups`

func scanSetup(row pgx.Row) (*detector.DetectedSetup, error) {
	setup := &detector.DetectedSetup{}
	var levelType *string

	err := row.Scan(
		&setup.Symbol,
		&setup.Direction,
		&setup.SetupStage,
		&setup.ConfluenceScore,
		&setup.LevelScore,
		&setup.TrendScore,
		&setup.PatienceScore,
		&setup.MTFScore,
		&levelType,
		&setup.PrimaryLevelPrice,
		&setup.PatienceCandles,
		&setup.SuggestedEntry,
		&setup.SuggestedStop,
		&setup.Target1,
		&setup.Target2,
		&setup.Target3,
		&setup.RiskReward,
		&setup.CoachNote,
		&setup.DetectedAt,
	)
	if err != nil {
		return nil, err
	}

	if levelType != nil {
		setup.PrimaryLevelType = levels.Type(*levelType)
	}
	return setup, nil
}

// ==================== ENGINE CONFIG ====================

// GetEngineConfig returns the active configuration document, nil when
// none has been saved.
func (r *Repository) GetEngineConfig(ctx context.Context) (*detector.EngineConfig, error) {
	var document []byte
	err := r.db.Pool.QueryRow(ctx, `SELECT document FROM engine_config WHERE id = 1`).Scan(&document)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load engine config: %w", err)
	}

	cfg := &detector.EngineConfig{}
	if err := json.Unmarshal(document, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse engine config document: %w", err)
	}
	return cfg, nil
}

// SaveEngineConfig stores the configuration document. It takes effect on
// the next engine Initialize().
func (r *Repository) SaveEngineConfig(ctx context.Context, cfg *detector.EngineConfig) error {
	document, err := json.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("failed to encode engine config: %w", err)
	}

	query := `
		INSERT INTO engine_config (id, document, updated_at)
		VALUES (1, $1, CURRENT_TIMESTAMP)
		ON CONFLICT (id) DO UPDATE SET
			document = EXCLUDED.document,
			updated_at = EXCLUDED.updated_at`

	if _, err := r.db.Pool.Exec(ctx, query, document); err != nil {
		return fmt.Errorf("failed to save engine config: %w", err)
	}
	return nil
}
