package handlers

import (
	"database/sql"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/jmoiron/sqlx"
	"github.com/rivalpit/backend/internal/models"
)

// GetTeam returns a read-only projection of a team with its roster and
// wallet balances.
func GetTeam(db *sqlx.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		teamID, ok := parseID(c.Param("id"))
		if !ok {
			c.JSON(http.StatusBadRequest, gin.H{"ok": false, "error": "invalid_team_id"})
			return
		}

		var team models.Team
		err := db.Get(&team, `SELECT * FROM teams WHERE id = $1`, teamID)
		if errors.Is(err, sql.ErrNoRows) {
			c.JSON(http.StatusNotFound, gin.H{"ok": false, "error": "team_not_found"})
			return
		}
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"ok": false, "error": "internal_error"})
			return
		}

		var players []struct {
			ID            int64  `db:"id" json:"id"`
			Nickname      string `db:"nickname" json:"nickname"`
			IsCaptain     bool   `db:"is_captain" json:"is_captain"`
			FreeBalance   int64  `db:"free_balance" json:"free_balance"`
			FrozenBalance int64  `db:"frozen_balance" json:"frozen_balance"`
		}
		if err := db.Select(&players, `
			SELECT id, nickname, is_captain, free_balance, frozen_balance
			FROM players WHERE team_id = $1 ORDER BY id
		`, teamID); err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"ok": false, "error": "internal_error"})
			return
		}

		c.JSON(http.StatusOK, gin.H{"ok": true, "team": team, "players": players})
	}
}
