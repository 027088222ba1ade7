package handlers

import (
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v4"
	"github.com/jmoiron/sqlx"

	"github.com/coinclash/backend/internal/config"
	"github.com/coinclash/backend/internal/models"
)

// GuestLogin creates a user with the starting balance and issues a JWT.
// Identity here stands in for the external identity/session collaborator:
// the rest of the API only ever sees an authenticated user id + display name.
func GuestLogin(db *sqlx.DB, cfg *config.Config) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req struct {
			DisplayName string `json:"display_name" binding:"required"`
		}
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "display_name required"})
			return
		}

		name := strings.TrimSpace(req.DisplayName)
		if name == "" || len(name) > 50 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid display_name"})
			return
		}

		user := models.User{
			ID:          generateUserID(),
			DisplayName: name,
			Balance:     cfg.StartingBalance,
		}
		if _, err := db.Exec(`
			INSERT INTO users (id, display_name, balance, created_at)
			VALUES ($1, $2, $3, NOW())
		`, user.ID, user.DisplayName, user.Balance); err != nil {
			log.Printf("[AUTH] Failed to create user: %v", err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to create user"})
			return
		}

		exp := time.Now().Add(time.Duration(cfg.TokenTTLHours) * time.Hour)
		claims := jwt.MapClaims{
			"user_id":      user.ID,
			"display_name": user.DisplayName,
			"exp":          exp.Unix(),
		}
		token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
		signed, err := token.SignedString([]byte(cfg.JWTSecret))
		if err != nil {
			log.Printf("[AUTH] Failed to sign token: %v", err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
			return
		}

		log.Printf("[AUTH] Guest user created: id=%s name=%s", user.ID, user.DisplayName)
		c.JSON(http.StatusOK, gin.H{
			"token": signed,
			"user": gin.H{
				"id":           user.ID,
				"display_name": user.DisplayName,
				"balance":      user.Balance,
			},
		})
	}
}

// GetProfile returns the authenticated user's identity and balance
func GetProfile(db *sqlx.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID := c.GetString("user_id")

		var user models.User
		if err := db.Get(&user, `
			SELECT id, display_name, balance, created_at FROM users WHERE id = $1
		`, userID); err != nil {
			c.JSON(http.StatusNotFound, gin.H{"error": "user not found"})
			return
		}
		c.JSON(http.StatusOK, user)
	}
}
