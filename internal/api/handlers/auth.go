package handlers

import (
	"database/sql"
	"errors"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v4"
	"github.com/jmoiron/sqlx"
	"github.com/rivalpit/backend/internal/config"
	"golang.org/x/crypto/bcrypt"
)

// Login validates nickname/password and issues a bearer token carrying the
// player id as subject plus their current team.
func Login(db *sqlx.DB, cfg *config.Config) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req struct {
			Nickname string `json:"nickname" binding:"required"`
			Password string `json:"password" binding:"required"`
		}
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"ok": false, "error": "nickname and password required"})
			return
		}

		var player struct {
			ID           int64         `db:"id"`
			PasswordHash string        `db:"password_hash"`
			TeamID       sql.NullInt64 `db:"team_id"`
			IsCaptain    bool          `db:"is_captain"`
		}
		err := db.Get(&player, `
			SELECT id, password_hash, team_id, is_captain FROM players WHERE nickname = $1
		`, strings.TrimSpace(req.Nickname))
		if errors.Is(err, sql.ErrNoRows) {
			c.JSON(http.StatusUnauthorized, gin.H{"ok": false, "error": "invalid_credentials"})
			return
		}
		if err != nil {
			log.Printf("[AUTH] player lookup failed: %v", err)
			c.JSON(http.StatusInternalServerError, gin.H{"ok": false, "error": "internal_error"})
			return
		}

		if bcrypt.CompareHashAndPassword([]byte(player.PasswordHash), []byte(req.Password)) != nil {
			c.JSON(http.StatusUnauthorized, gin.H{"ok": false, "error": "invalid_credentials"})
			return
		}

		expiresAt := time.Now().Add(time.Duration(cfg.TokenTTLMinutes) * time.Minute)
		claims := jwt.MapClaims{
			"sub":     player.ID,
			"team_id": player.TeamID.Int64,
			"exp":     expiresAt.Unix(),
		}
		token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
		signed, err := token.SignedString([]byte(cfg.JWTSecret))
		if err != nil {
			log.Printf("[AUTH] token signing failed: %v", err)
			c.JSON(http.StatusInternalServerError, gin.H{"ok": false, "error": "internal_error"})
			return
		}

		c.JSON(http.StatusOK, gin.H{
			"ok":         true,
			"token":      signed,
			"expires_at": expiresAt,
			"player_id":  player.ID,
			"team_id":    player.TeamID.Int64,
			"is_captain": player.IsCaptain,
		})
	}
}
