package handlers

import (
	"errors"
	"log"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/coinclash/backend/internal/config"
	"github.com/coinclash/backend/internal/matchmaking"
	"github.com/coinclash/backend/internal/models"
)

// JoinQueue handles a duel join. The matcher either claims a fresh WAITING
// entry at the same stake (response carries duel_id, caller is the follower)
// or queues the caller as a new WAITING entry (caller is the leader and
// should wait on the queue status).
func JoinQueue(m *matchmaking.Matcher, cfg *config.Config) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID := c.GetString("user_id")

		var req struct {
			Stake int `json:"stake" binding:"required"`
		}
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "stake required"})
			return
		}
		if req.Stake < cfg.MinStake {
			c.JSON(http.StatusBadRequest, gin.H{"error": "stake below minimum"})
			return
		}

		// Balance sufficiency is the wallet collaborator's concern, not
		// enforced here
		res, err := m.Join(c.Request.Context(), userID, req.Stake)
		if err != nil {
			if errors.Is(err, matchmaking.ErrInvalidStake) {
				c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
				return
			}
			log.Printf("[MATCH] Join failed for user %s: %v", userID, err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to join queue"})
			return
		}

		resp := gin.H{"entry_id": res.EntryID}
		if res.DuelID != "" {
			resp["duel_id"] = res.DuelID
		}
		c.JSON(http.StatusOK, resp)
	}
}

// CancelQueue cancels a pending queue entry. Idempotent: repeat calls and
// calls after the entry was matched succeed without changing anything.
func CancelQueue(m *matchmaking.Matcher) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req struct {
			EntryID string `json:"entry_id" binding:"required"`
		}
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "entry_id required"})
			return
		}

		if err := m.Cancel(c.Request.Context(), req.EntryID); err != nil {
			log.Printf("[QUEUE] Cancel failed for entry %s: %v", req.EntryID, err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to cancel"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"success": true})
	}
}

// QueueStatus lets a waiting leader poll whether its entry has been claimed.
func QueueStatus(m *matchmaking.Matcher) gin.HandlerFunc {
	return func(c *gin.Context) {
		entryID := c.Query("entry_id")
		if entryID == "" {
			c.JSON(http.StatusBadRequest, gin.H{"error": "entry_id required"})
			return
		}

		entry, err := m.Entry(c.Request.Context(), entryID)
		if err != nil {
			if errors.Is(err, matchmaking.ErrEntryNotFound) {
				c.JSON(http.StatusNotFound, gin.H{"error": "entry not found"})
				return
			}
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to read entry"})
			return
		}
		if entry.UserID != c.GetString("user_id") {
			c.JSON(http.StatusForbidden, gin.H{"error": "not your entry"})
			return
		}

		resp := gin.H{"status": entry.Status}
		if entry.Status == models.QueueMatched && entry.DuelID.Valid {
			resp["duel_id"] = entry.DuelID.String
		}
		c.JSON(http.StatusOK, resp)
	}
}
