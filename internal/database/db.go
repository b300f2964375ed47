package database

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
)

// DB wraps the PostgreSQL connection pool
type DB struct {
	Pool *pgxpool.Pool
}

// Config holds database configuration
type Config struct {
	Host     string
	Port     int
	User     string
	Password string
	Database string
	SSLMode  string
}

// NewDB creates a new database connection pool and verifies it
func NewDB(cfg Config) (*DB, error) {
	dsn := fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		cfg.Host, cfg.Port, cfg.User, cfg.Password, cfg.Database, cfg.SSLMode,
	)

	poolConfig, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("unable to parse database config: %w", err)
	}

	poolConfig.MaxConns = 10
	poolConfig.MinConns = 2
	poolConfig.MaxConnLifetime = time.Hour
	poolConfig.MaxConnIdleTime = 30 * time.Minute
	poolConfig.HealthCheckPeriod = time.Minute

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return nil, fmt.Errorf("unable to create connection pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		return nil, fmt.Errorf("unable to ping database: %w", err)
	}

	return &DB{Pool: pool}, nil
}

// Close closes the database connection pool
func (db *DB) Close() {
	if db.Pool != nil {
		db.Pool.Close()
	}
}

// RunMigrations executes database migrations
func (db *DB) RunMigrations(ctx context.Context) error {
	migrations := []string{
		`CREATE TABLE IF NOT EXISTS levels (
			id BIGSERIAL PRIMARY KEY,
			symbol VARCHAR(20) NOT NULL,
			level_type VARCHAR(32) NOT NULL,
			price DECIMAL(20, 8) NOT NULL,
			timeframe VARCHAR(10) NOT NULL,
			strength SMALLINT NOT NULL,
			expires_at TIMESTAMPTZ NOT NULL,
			created_at TIMESTAMPTZ NOT NULL DEFAULT CURRENT_TIMESTAMP
		)`,
		`CREATE INDEX IF NOT EXISTS idx_levels_symbol ON levels(symbol)`,
		`CREATE INDEX IF NOT EXISTS idx_levels_expires_at ON levels(expires_at)`,

		`CREATE TABLE IF NOT EXISTS timeframe_analyses (
			symbol VARCHAR(20) NOT NULL,
			timeframe VARCHAR(10) NOT NULL,
			trend VARCHAR(10) NOT NULL,
			structure VARCHAR(10) NOT NULL,
			ema_position VARCHAR(10) NOT NULL,
			momentum VARCHAR(10) NOT NULL,
			updated_at TIMESTAMPTZ NOT NULL,
			PRIMARY KEY (symbol, timeframe)
		)`,

		`CREATE TABLE IF NOT EXISTS detected_setups (
			symbol VARCHAR(20) PRIMARY KEY,
			direction VARCHAR(10) NOT NULL,
			setup_stage VARCHAR(10) NOT NULL,
			confluence_score INT NOT NULL,
			level_score INT NOT NULL,
			trend_score INT NOT NULL,
			patience_score INT NOT NULL,
			mtf_score INT NOT NULL,
			primary_level_type VARCHAR(32),
			primary_level_price DECIMAL(20, 8),
			patience_candles INT NOT NULL DEFAULT 0,
			suggested_entry DECIMAL(20, 8),
			suggested_stop DECIMAL(20, 8),
			target1 DECIMAL(20, 8),
			target2 DECIMAL(20, 8),
			target3 DECIMAL(20, 8),
			risk_reward DECIMAL(10, 1),
			coach_note TEXT,
			detected_at TIMESTAMPTZ NOT NULL,
			updated_at TIMESTAMPTZ NOT NULL DEFAULT CURRENT_TIMESTAMP
		)`,
		`CREATE INDEX IF NOT EXISTS idx_detected_setups_stage ON detected_setups(setup_stage)`,

		`CREATE TABLE IF NOT EXISTS engine_config (
			id SMALLINT PRIMARY KEY DEFAULT 1,
			document JSONB NOT NULL,
			updated_at TIMESTAMPTZ NOT NULL DEFAULT CURRENT_TIMESTAMP,
			CONSTRAINT engine_config_single_row CHECK (id = 1)
		)`,
	}

	for i, migration := range migrations {
		if _, err := db.Pool.Exec(ctx, migration); err != nil {
			return fmt.Errorf("migration %d failed: %w", i+1, err)
		}
	}

	return nil
}
