package api

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"ltp-detection-engine/internal/database"
	"ltp-detection-engine/internal/detector"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
)

// Server exposes the detection engine operations over HTTP. It is
// plumbing only: no scoring logic lives in handlers.
type Server struct {
	router     *gin.Engine
	httpServer *http.Server
	engine     *detector.Engine
	repo       *database.Repository
	logger     zerolog.Logger
	config     ServerConfig
}

// ServerConfig holds server configuration
type ServerConfig struct {
	Port           int
	AllowedOrigins []string
}

func NewServer(engine *detector.Engine, repo *database.Repository, config ServerConfig, logger zerolog.Logger) *Server {
	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(gin.Recovery())

	router.Use(cors.New(cors.Config{
		AllowOrigins:     config.AllowedOrigins,
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Accept"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))

	s := &Server{
		router: router,
		engine: engine,
		repo:   repo,
		logger: logger.With().Str("component", "APIServer").Logger(),
		config: config,
	}

	s.setupRoutes()
	return s
}

func (s *Server) setupRoutes() {
	s.router.GET("/health", s.handleHealth)

	v1 := s.router.Group("/api/v1")
	{
		v1.GET("/status", s.handleStatus)

		v1.GET("/watchlist", s.handleGetWatchlist)
		v1.POST("/watchlist", s.handleAddSymbols)
		v1.DELETE("/watchlist", s.handleRemoveSymbols)

		v1.POST("/analyze/:symbol", s.handleAnalyzeSymbol)
		v1.POST("/detection/run", s.handleRunCycle)
		v1.POST("/detection/start", s.handleStartDetection)
		v1.POST("/detection/stop", s.handleStopDetection)

		v1.GET("/setups", s.handleGetSetups)
		v1.GET("/setups/:symbol", s.handleGetSetup)

		v1.GET("/config", s.handleGetConfig)
		v1.PUT("/config", s.handleUpdateConfig)
	}
}

// Start runs the HTTP server until Shutdown is called
func (s *Server) Start() error {
	s.httpServer = &http.Server{
		Addr:         fmt.Sprintf(":%d", s.config.Port),
		Handler:      s.router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
	}

	s.logger.Info().Int("port", s.config.Port).Msg("API server starting")
	if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("api server failed: %w", err)
	}
	return nil
}

// Shutdown gracefully stops the HTTP server
func (s *Server) Shutdown(ctx context.Context) error {
	if s.httpServer == nil {
		return nil
	}
	return s.httpServer.Shutdown(ctx)
}
