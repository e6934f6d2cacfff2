package api

import (
	"errors"
	"net/http"
	"strconv"

	"botdeck/config"
	"botdeck/entitlement"
	"botdeck/logger"
	"botdeck/session"
	"botdeck/store"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// CreateBotRequest create bot request
type CreateBotRequest struct {
	Name        string `json:"bot_name" binding:"required"`
	StrategyID  string `json:"strategy_id" binding:"required"`
	StockSymbol string `json:"stock_symbol"`
	Status      string `json:"status"`
}

// handleBotList list the caller's bots, optionally filtered by status
func (s *Server) handleBotList(c *gin.Context) {
	userID := c.GetString("user_id")

	bots, err := s.store.Bot().List(userID, c.Query("status"))
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to get bot list"})
		return
	}
	if bots == nil {
		bots = []*store.Bot{}
	}
	c.JSON(http.StatusOK, bots)
}

// handleCreateBot create a bot record, gated by the plan entitlement
func (s *Server) handleCreateBot(c *gin.Context) {
	userID := c.GetString("user_id")

	var req CreateBotRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if req.Status != "" && req.Status != store.BotStatusActive && req.Status != store.BotStatusInactive {
		c.JSON(http.StatusBadRequest, gin.H{"error": "status must be active or inactive"})
		return
	}

	// The referenced strategy must be visible to the caller
	if _, err := s.store.Strategy().Get(userID, req.StrategyID); err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Strategy does not exist"})
		return
	}

	if !s.allowCreate(c, userID, entitlement.ResourceBot) {
		return
	}

	bot := &store.Bot{
		ID:          uuid.New().String(),
		UserID:      userID,
		Name:        req.Name,
		StrategyID:  req.StrategyID,
		StockSymbol: req.StockSymbol,
		Status:      req.Status,
	}
	if err := s.store.Bot().Create(bot); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create bot: " + err.Error()})
		return
	}

	logger.Infof("✓ Bot created: %s (%s) for user %s", bot.Name, bot.ID, userID)
	c.JSON(http.StatusCreated, bot)
}

// allowCreate runs the entitlement check for a gated resource kind. Writes an
// upgrade-prompt response and returns false when the plan limit is reached.
func (s *Server) allowCreate(c *gin.Context, userID string, kind entitlement.ResourceKind) bool {
	user, err := s.store.User().GetByID(userID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to resolve account"})
		return false
	}

	var count int
	switch kind {
	case entitlement.ResourceBot:
		count, err = s.store.Bot().Count(userID)
	case entitlement.ResourceStrategy:
		count, err = s.store.Strategy().CountOwned(userID)
	case entitlement.ResourceWatchlist:
		count, err = s.store.Watchlist().Count(userID)
	}
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to count resources"})
		return false
	}

	limit := config.Get().FreePlanLimit
	if !entitlement.CanCreateN(kind, count, user.IsSubscribed, limit) {
		c.JSON(http.StatusForbidden, gin.H{
			"error":   "Plan limit reached",
			"upgrade": true,
			"message": "The free plan allows only " + strconv.Itoa(limit) + " entries. Upgrade to Pro for unlimited access.",
		})
		return false
	}
	return true
}

// handleUpdateBotStatus record operator intent in the registry
func (s *Server) handleUpdateBotStatus(c *gin.Context) {
	userID := c.GetString("user_id")
	botID := c.Param("id")

	var req struct {
		Status string `json:"status" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if req.Status != store.BotStatusActive && req.Status != store.BotStatusInactive {
		c.JSON(http.StatusBadRequest, gin.H{"error": "status must be active or inactive"})
		return
	}

	if _, err := s.store.Bot().Get(userID, botID); err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Bot not found"})
		return
	}

	if err := s.store.Bot().UpdateStatus(userID, botID, req.Status); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to update bot status"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true})
}

// handleDeleteBot delete a bot record. A tracked bot is deactivated first so
// its polling loop does not outlive the record.
func (s *Server) handleDeleteBot(c *gin.Context) {
	userID := c.GetString("user_id")
	botID := c.Param("id")

	if _, err := s.store.Bot().Get(userID, botID); err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Bot not found"})
		return
	}

	if sess, ok := s.sessions.Get(userID); ok && sess.Tracked(botID) {
		if err := sess.Deactivate(botID); err != nil {
			logger.Warnf("⚠️  Failed to deactivate bot %s before delete: %v", botID, err)
		}
	}

	if err := s.store.Bot().Delete(userID, botID); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to delete bot"})
		return
	}

	logger.Infof("✓ Bot deleted: %s", botID)
	c.JSON(http.StatusOK, gin.H{"message": "Bot deleted"})
}

// handleActivateBot start a bot on the remote engine and track it
func (s *Server) handleActivateBot(c *gin.Context) {
	userID := c.GetString("user_id")

	var req struct {
		BotID string `json:"bot_id" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Missing bot_id"})
		return
	}

	sess := s.sessions.GetOrCreate(userID)
	if err := sess.Activate(req.BotID); err != nil {
		if errors.Is(err, session.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Bot not found"})
			return
		}
		// Engine unavailable: activation is fatal for this request, the
		// session itself stays healthy
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true})
}

// handleStopBot stop a bot on the remote engine. Succeeds client-side even
// when the engine does not confirm; the failure lands in the lifecycle log.
func (s *Server) handleStopBot(c *gin.Context) {
	userID := c.GetString("user_id")

	var req struct {
		BotID string `json:"bot_id" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Missing bot_id"})
		return
	}

	sess := s.sessions.GetOrCreate(userID)
	if err := sess.Deactivate(req.BotID); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true})
}

// handleBotLogs current log view for one bot (lifecycle events + last engine
// buffer, most-recent-first)
func (s *Server) handleBotLogs(c *gin.Context) {
	userID := c.GetString("user_id")

	botID := c.Query("bot_id")
	if botID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Missing bot_id"})
		return
	}

	sess := s.sessions.GetOrCreate(userID)
	logs := sess.Logs(botID)
	if logs == nil {
		logs = []string{}
	}
	c.JSON(http.StatusOK, gin.H{"logs": logs})
}

// handleOrders displayed order feed with bot-name join
func (s *Server) handleOrders(c *gin.Context) {
	userID := c.GetString("user_id")

	sess := s.sessions.GetOrCreate(userID)
	snap := sess.Snapshot()
	if snap.Orders == nil {
		snap.Orders = []session.OrderView{}
	}
	c.JSON(http.StatusOK, gin.H{"orders": snap.Orders})
}

// handleSessionSnapshot full read-only session view
func (s *Server) handleSessionSnapshot(c *gin.Context) {
	userID := c.GetString("user_id")

	sess := s.sessions.GetOrCreate(userID)
	c.JSON(http.StatusOK, sess.Snapshot())
}

// handleSessionClose tear the caller's session down; all polling stops
func (s *Server) handleSessionClose(c *gin.Context) {
	s.sessions.Close(c.GetString("user_id"))
	c.JSON(http.StatusOK, gin.H{"message": "Session closed"})
}
