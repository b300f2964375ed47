package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"ltp-detection-engine/config"
	"ltp-detection-engine/internal/api"
	"ltp-detection-engine/internal/database"
	"ltp-detection-engine/internal/detector"
	"ltp-detection-engine/internal/marketdata"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		bootLogger := zerolog.New(os.Stderr)
		bootLogger.Fatal().Err(err).Msg("Failed to load configuration")
	}

	logger := newLogger(cfg.LoggingConfig)
	logger.Info().Msg("Starting LTP detection engine")

	// Database
	db, err := database.NewDB(database.Config{
		Host:     cfg.DatabaseConfig.Host,
		Port:     cfg.DatabaseConfig.Port,
		User:     cfg.DatabaseConfig.User,
		Password: cfg.DatabaseConfig.Password,
		Database: cfg.DatabaseConfig.Database,
		SSLMode:  cfg.DatabaseConfig.SSLMode,
	})
	if err != nil {
		logger.Fatal().Err(err).Msg("Failed to connect to database")
	}
	defer db.Close()

	ctx := context.Background()
	if err := db.RunMigrations(ctx); err != nil {
		logger.Fatal().Err(err).Msg("Failed to run migrations")
	}
	logger.Info().Str("database", cfg.DatabaseConfig.Database).Msg("Database ready")

	repo := database.NewRepository(db)

	// Market data provider, optionally behind the Redis bar cache
	var provider marketdata.Provider
	if cfg.MarketDataConfig.MockMode {
		provider = marketdata.NewMockProvider()
		logger.Warn().Msg("Market data running in mock mode")
	} else {
		provider = marketdata.NewClient(cfg.MarketDataConfig.APIKey, cfg.MarketDataConfig.BaseURL)
	}

	if cfg.RedisConfig.Enabled {
		redisClient := redis.NewClient(&redis.Options{
			Addr:     cfg.RedisConfig.Address,
			Password: cfg.RedisConfig.Password,
			DB:       cfg.RedisConfig.DB,
			PoolSize: cfg.RedisConfig.PoolSize,
		})
		if err := redisClient.Ping(ctx).Err(); err != nil {
			logger.Warn().Err(err).Msg("Redis unavailable, bar cache disabled")
		} else {
			provider = marketdata.NewCachedProvider(provider, redisClient, logger)
			logger.Info().Str("address", cfg.RedisConfig.Address).Msg("Redis bar cache enabled")
		}
	}

	// Detection engine
	engine := detector.New(provider, repo, logger)
	if err := engine.Initialize(ctx); err != nil {
		logger.Fatal().Err(err).Msg("Failed to initialize detection engine")
	}

	if len(cfg.DetectionConfig.Symbols) > 0 {
		engine.AddSymbols(cfg.DetectionConfig.Symbols)
		logger.Info().Strs("symbols", engine.Watchlist()).Msg("Watchlist seeded")
	}

	if cfg.DetectionConfig.Enabled {
		engine.StartContinuousDetection(time.Duration(cfg.DetectionConfig.IntervalMs) * time.Millisecond)
	}

	// HTTP API
	server := api.NewServer(engine, repo, api.ServerConfig{
		Port:           cfg.ServerConfig.Port,
		AllowedOrigins: cfg.ServerConfig.AllowedOrigins,
	}, logger)

	go func() {
		if err := server.Start(); err != nil {
			logger.Fatal().Err(err).Msg("API server failed")
		}
	}()

	// Wait for shutdown signal
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	sig := <-sigChan
	logger.Info().Str("signal", sig.String()).Msg("Shutting down")

	engine.StopContinuousDetection()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("API server shutdown failed")
	}

	logger.Info().Msg("Shutdown complete")
}

func newLogger(cfg config.LoggingConfig) zerolog.Logger {
	level, err := zerolog.ParseLevel(cfg.Level)
	if err != nil {
		level = zerolog.InfoLevel
	}

	var logger zerolog.Logger
	if cfg.Pretty {
		logger = zerolog.New(zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: time.RFC3339})
	} else {
		logger = zerolog.New(os.Stdout)
	}

	return logger.Level(level).With().Timestamp().Logger()
}
