package api

import (
	"net/http"
	"strings"

	"botdeck/entitlement"
	"botdeck/store"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// handleGetWatchlist list the caller's watchlist
func (s *Server) handleGetWatchlist(c *gin.Context) {
	userID := c.GetString("user_id")

	entries, err := s.store.Watchlist().List(userID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to get watchlist"})
		return
	}
	if entries == nil {
		entries = []*store.WatchlistEntry{}
	}
	c.JSON(http.StatusOK, entries)
}

// handleAddWatchlistEntry add a ticker, entitlement-gated
func (s *Server) handleAddWatchlistEntry(c *gin.Context) {
	userID := c.GetString("user_id")

	var req struct {
		Ticker string `json:"ticker" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if !s.allowCreate(c, userID, entitlement.ResourceWatchlist) {
		return
	}

	entry := &store.WatchlistEntry{
		ID:     uuid.New().String(),
		UserID: userID,
		Ticker: strings.ToUpper(strings.TrimSpace(req.Ticker)),
	}
	if err := s.store.Watchlist().Create(entry); err != nil {
		if strings.Contains(err.Error(), "UNIQUE") {
			c.JSON(http.StatusConflict, gin.H{"error": "Ticker already on watchlist"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to add watchlist entry"})
		return
	}

	c.JSON(http.StatusCreated, entry)
}

// handleDeleteWatchlistEntry remove an entry
func (s *Server) handleDeleteWatchlistEntry(c *gin.Context) {
	userID := c.GetString("user_id")
	entryID := c.Param("id")

	if err := s.store.Watchlist().Delete(userID, entryID); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to delete watchlist entry"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Watchlist entry deleted"})
}
