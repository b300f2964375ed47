package api

import (
	"net/http"
	"time"

	"ltp-detection-engine/internal/detector"

	"github.com/gin-gonic/gin"
)

func successResponse(c *gin.Context, data interface{}) {
	c.JSON(http.StatusOK, gin.H{"success": true, "data": data})
}

func errorResponse(c *gin.Context, status int, message string) {
	c.JSON(status, gin.H{"success": false, "error": message})
}

func (s *Server) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// handleStatus returns the engine's run state and watchlist size
func (s *Server) handleStatus(c *gin.Context) {
	successResponse(c, gin.H{
		"running":   s.engine.Running(),
		"watchlist": s.engine.Watchlist(),
	})
}

// ============================================================================
// WATCHLIST HANDLERS
// ============================================================================

type symbolsRequest struct {
	Symbols []string `json:"symbols" binding:"required"`
}

func (s *Server) handleGetWatchlist(c *gin.Context) {
	successResponse(c, s.engine.Watchlist())
}

func (s *Server) handleAddSymbols(c *gin.Context) {
	var req symbolsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		errorResponse(c, http.StatusBadRequest, "symbols list is required")
		return
	}
	s.engine.AddSymbols(req.Symbols)
	successResponse(c, s.engine.Watchlist())
}

func (s *Server) handleRemoveSymbols(c *gin.Context) {
	var req symbolsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		errorResponse(c, http.StatusBadRequest, "symbols list is required")
		return
	}
	s.engine.RemoveSymbols(req.Symbols)
	successResponse(c, s.engine.Watchlist())
}

// ============================================================================
// DETECTION HANDLERS
// ============================================================================

// handleAnalyzeSymbol runs one on-demand analysis pass for a symbol. A
// null setup means inputs were stale and got recomputed; the caller
// should retry shortly.
func (s *Server) handleAnalyzeSymbol(c *gin.Context) {
	symbol := c.Param("symbol")

	setup, err := s.engine.AnalyzeSymbol(c.Request.Context(), symbol)
	if err != nil {
		errorResponse(c, http.StatusBadGateway, err.Error())
		return
	}
	successResponse(c, setup)
}

func (s *Server) handleRunCycle(c *gin.Context) {
	setups := s.engine.RunDetectionCycle(c.Request.Context())
	successResponse(c, setups)
}

type startDetectionRequest struct {
	IntervalMs int `json:"interval_ms"`
}

func (s *Server) handleStartDetection(c *gin.Context) {
	var req startDetectionRequest
	_ = c.ShouldBindJSON(&req) // Body optional; zero falls back to config

	s.engine.StartContinuousDetection(time.Duration(req.IntervalMs) * time.Millisecond)
	successResponse(c, gin.H{"running": true})
}

func (s *Server) handleStopDetection(c *gin.Context) {
	s.engine.StopContinuousDetection()
	successResponse(c, gin.H{"running": false})
}

// ============================================================================
// SETUP HANDLERS
// ============================================================================

func (s *Server) handleGetSetups(c *gin.Context) {
	setups, err := s.repo.GetDetectedSetups(c.Request.Context())
	if err != nil {
		errorResponse(c, http.StatusInternalServerError, err.Error())
		return
	}
	successResponse(c, setups)
}

func (s *Server) handleGetSetup(c *gin.Context) {
	setup, err := s.repo.GetDetectedSetup(c.Request.Context(), c.Param("symbol"))
	if err != nil {
		errorResponse(c, http.StatusInternalServerError, err.Error())
		return
	}
	if setup == nil {
		errorResponse(c, http.StatusNotFound, "no setup for symbol")
		return
	}
	successResponse(c, setup)
}

// ============================================================================
// CONFIG HANDLERS
// ============================================================================

func (s *Server) handleGetConfig(c *gin.Context) {
	successResponse(c, s.engine.Config())
}

// handleUpdateConfig saves a new configuration document. It takes effect
// on the next engine Initialize(), not mid-cycle. Zero-valued numeric
// fields count as unset and keep their defaults; use 1, not 0, for the
// lowest persist floor.
func (s *Server) handleUpdateConfig(c *gin.Context) {
	var cfg detector.EngineConfig
	if err := c.ShouldBindJSON(&cfg); err != nil {
		errorResponse(c, http.StatusBadRequest, "invalid config document")
		return
	}

	if err := s.repo.SaveEngineConfig(c.Request.Context(), &cfg); err != nil {
		errorResponse(c, http.StatusInternalServerError, err.Error())
		return
	}
	successResponse(c, gin.H{"saved": true, "note": "applies on next engine initialize"})
}
