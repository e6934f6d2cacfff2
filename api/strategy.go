package api

import (
	"net/http"

	"botdeck/entitlement"
	"botdeck/logger"
	"botdeck/store"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// CreateStrategyRequest create strategy request
type CreateStrategyRequest struct {
	Name        string `json:"name" binding:"required"`
	Description string `json:"description"`
	Filename    string `json:"filename" binding:"required"`
}

// handleGetStrategies list shared strategies plus the caller's own
func (s *Server) handleGetStrategies(c *gin.Context) {
	userID := c.GetString("user_id")

	strategies, err := s.store.Strategy().List(userID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to get strategy list"})
		return
	}
	if strategies == nil {
		strategies = []*store.Strategy{}
	}
	c.JSON(http.StatusOK, strategies)
}

// handleCreateStrategy upload a user strategy reference, entitlement-gated
func (s *Server) handleCreateStrategy(c *gin.Context) {
	userID := c.GetString("user_id")

	var req CreateStrategyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if !s.allowCreate(c, userID, entitlement.ResourceStrategy) {
		return
	}

	strategy := &store.Strategy{
		ID:          uuid.New().String(),
		UserID:      userID,
		Name:        req.Name,
		Description: req.Description,
		Filename:    req.Filename,
	}
	if err := s.store.Strategy().Create(strategy); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create strategy: " + err.Error()})
		return
	}

	logger.Infof("✓ Strategy created: %s (%s) for user %s", strategy.Name, strategy.ID, userID)
	c.JSON(http.StatusCreated, strategy)
}

// handleUpdateStrategy edit a user-owned strategy. Shared strategies are
// read-only for everyone.
func (s *Server) handleUpdateStrategy(c *gin.Context) {
	userID := c.GetString("user_id")
	strategyID := c.Param("id")

	var req CreateStrategyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	strategy, err := s.store.Strategy().Get(userID, strategyID)
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Strategy not found"})
		return
	}
	if strategy.IsShared() {
		c.JSON(http.StatusForbidden, gin.H{"error": "Predefined strategies cannot be edited"})
		return
	}

	strategy.Name = req.Name
	strategy.Description = req.Description
	strategy.Filename = req.Filename
	if err := s.store.Strategy().Update(strategy); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to update strategy"})
		return
	}

	logger.Infof("✓ Strategy updated: %s", strategyID)
	c.JSON(http.StatusOK, strategy)
}

// BacktestRequest run a strategy against a historical window
type BacktestRequest struct {
	StrategyID  string `json:"strategy_id" binding:"required"`
	StockSymbol string `json:"stock_symbol" binding:"required"`
	StartDate   string `json:"start_date" binding:"required"`
	EndDate     string `json:"end_date" binding:"required"`
}

// handleBacktest proxy a backtest run to the engine. The result document is
// returned as-is; the engine owns its shape.
func (s *Server) handleBacktest(c *gin.Context) {
	userID := c.GetString("user_id")

	var req BacktestRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	// The referenced strategy must be visible to the caller
	if _, err := s.store.Strategy().Get(userID, req.StrategyID); err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Strategy does not exist"})
		return
	}

	result, err := s.engine.Backtest(c.Request.Context(), req.StrategyID, req.StockSymbol, req.StartDate, req.EndDate)
	if err != nil {
		logger.Warnf("⚠️  Backtest failed for strategy %s: %v", req.StrategyID, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.Data(http.StatusOK, "application/json", result)
}

// handleDeleteStrategy delete a user-owned strategy. Shared strategies are
// read-only for everyone.
func (s *Server) handleDeleteStrategy(c *gin.Context) {
	userID := c.GetString("user_id")
	strategyID := c.Param("id")

	strategy, err := s.store.Strategy().Get(userID, strategyID)
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Strategy not found"})
		return
	}
	if strategy.IsShared() {
		c.JSON(http.StatusForbidden, gin.H{"error": "Predefined strategies cannot be deleted"})
		return
	}

	if err := s.store.Strategy().Delete(userID, strategyID); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to delete strategy"})
		return
	}

	logger.Infof("✓ Strategy deleted: %s", strategyID)
	c.JSON(http.StatusOK, gin.H{"message": "Strategy deleted"})
}
