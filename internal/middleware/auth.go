package middleware

import (
	"database/sql"
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v4"
	"github.com/jmoiron/sqlx"
	"github.com/rivalpit/backend/internal/config"
)

const actorKey = "actor"

// Actor is the authenticated caller injected by the auth middleware: a
// player id plus the team they act for. This is the whole contract the
// matchmaking core has with identity.
type Actor struct {
	PlayerID  int64
	TeamID    int64
	IsCaptain bool
	Nickname  string
}

// GetActor returns the authenticated actor for the request, if any.
func GetActor(c *gin.Context) (*Actor, bool) {
	v, ok := c.Get(actorKey)
	if !ok {
		return nil, false
	}
	actor, ok := v.(*Actor)
	return actor, ok
}

// RequireAuth validates the bearer token, re-reads the player so stale
// tokens cannot act for a team they left, and injects the actor.
func RequireAuth(db *sqlx.DB, cfg *config.Config) gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		if header == "" || !strings.HasPrefix(strings.ToLower(header), "bearer ") {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"ok": false, "error": "not_authenticated"})
			return
		}
		tokenStr := strings.TrimSpace(header[len("Bearer "):])

		parsed, err := jwt.Parse(tokenStr, func(t *jwt.Token) (interface{}, error) {
			if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, jwt.ErrSignatureInvalid
			}
			return []byte(cfg.JWTSecret), nil
		})
		if err != nil || !parsed.Valid {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"ok": false, "error": "invalid_token"})
			return
		}

		claims, ok := parsed.Claims.(jwt.MapClaims)
		if !ok {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"ok": false, "error": "invalid_token"})
			return
		}
		sub, ok := claims["sub"].(float64)
		if !ok || sub <= 0 {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"ok": false, "error": "invalid_token_subject"})
			return
		}

		var player struct {
			ID        int64         `db:"id"`
			TeamID    sql.NullInt64 `db:"team_id"`
			IsCaptain bool          `db:"is_captain"`
			Nickname  string        `db:"nickname"`
		}
		err = db.Get(&player, `SELECT id, team_id, is_captain, nickname FROM players WHERE id = $1`, int64(sub))
		if errors.Is(err, sql.ErrNoRows) {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"ok": false, "error": "player_not_found"})
			return
		}
		if err != nil {
			c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"ok": false, "error": "internal_error"})
			return
		}

		c.Set(actorKey, &Actor{
			PlayerID:  player.ID,
			TeamID:    player.TeamID.Int64,
			IsCaptain: player.IsCaptain,
			Nickname:  player.Nickname,
		})
		c.Next()
	}
}
