package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/coinclash/backend/internal/duel"
)

// GetDuel returns the durable pairing record for one duel. Participants only.
func GetDuel(store *duel.Store) gin.HandlerFunc {
	return func(c *gin.Context) {
		duelID := c.Param("id")
		userID := c.GetString("user_id")

		session, err := store.Get(c.Request.Context(), duelID)
		if err != nil {
			if errors.Is(err, duel.ErrDuelNotFound) {
				c.JSON(http.StatusNotFound, gin.H{"error": "duel not found"})
				return
			}
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to read duel"})
			return
		}
		if session.Player1ID != userID && session.Player2ID != userID {
			c.JSON(http.StatusForbidden, gin.H{"error": "not a participant"})
			return
		}

		c.JSON(http.StatusOK, session)
	}
}
