package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rivalpit/backend/internal/matchmaking"
	"github.com/rivalpit/backend/internal/middleware"
)

// actorTeam resolves the team a request acts for: the authenticated actor's
// team, cross-checked against an explicit teamId in the body when present.
func actorTeam(c *gin.Context, bodyTeamID int64) (int64, bool) {
	actor, ok := middleware.GetActor(c)
	if !ok || actor.TeamID == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"ok": false, "error": "team_required"})
		return 0, false
	}
	if bodyTeamID != 0 && bodyTeamID != actor.TeamID {
		c.JSON(http.StatusForbidden, gin.H{"ok": false, "error": "team_mismatch"})
		return 0, false
	}
	return actor.TeamID, true
}

// Enqueue handles POST /matchmaking/queue
func Enqueue(svc *matchmaking.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req struct {
			TeamID      int64 `json:"team_id"`
			WagerAmount int64 `json:"wager_amount" binding:"required"`
		}
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"ok": false, "error": "invalid_request", "message": "wager_amount required"})
			return
		}

		teamID, ok := actorTeam(c, req.TeamID)
		if !ok {
			return
		}
		actor, _ := middleware.GetActor(c)

		result, err := svc.EnterQueue(teamID, req.WagerAmount, actor.PlayerID)
		if err != nil {
			respondError(c, err)
			return
		}

		if result.Matched {
			c.JSON(http.StatusCreated, gin.H{
				"ok":       true,
				"matched":  true,
				"match_id": result.Match.MatchID,
				"teams":    result.Match.Teams,
				"wager":    result.Match.Wager,
				"status":   result.Match.Status,
			})
			return
		}
		c.JSON(http.StatusOK, gin.H{
			"ok":        true,
			"queued":    true,
			"team_id":   result.TeamID,
			"wager":     result.Wager,
			"tolerance": result.Tolerance,
			"range":     result.Range,
		})
	}
}

// CancelQueue handles POST /matchmaking/cancel
func CancelQueue(svc *matchmaking.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req struct {
			TeamID int64 `json:"team_id"`
		}
		// Body is optional: the actor's team is enough.
		c.ShouldBindJSON(&req)

		teamID, ok := actorTeam(c, req.TeamID)
		if !ok {
			return
		}

		deleted, err := svc.CancelQueue(teamID)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"ok": true, "deleted": deleted})
	}
}

// Status handles GET /matchmaking/status?team_id=|match_id=
func Status(svc *matchmaking.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		if raw := c.Query("match_id"); raw != "" {
			matchID, ok := parseID(raw)
			if !ok {
				c.JSON(http.StatusBadRequest, gin.H{"ok": false, "error": "invalid_match_id"})
				return
			}
			result, err := svc.StatusByMatch(matchID)
			if err != nil {
				respondError(c, err)
				return
			}
			c.JSON(http.StatusOK, gin.H{"ok": true, "matched": true, "match": result.Match})
			return
		}

		teamID := int64(0)
		if raw := c.Query("team_id"); raw != "" {
			id, ok := parseID(raw)
			if !ok {
				c.JSON(http.StatusBadRequest, gin.H{"ok": false, "error": "invalid_team_id"})
				return
			}
			teamID = id
		} else if actor, ok := middleware.GetActor(c); ok {
			teamID = actor.TeamID
		}
		if teamID == 0 {
			c.JSON(http.StatusBadRequest, gin.H{"ok": false, "error": "team_required"})
			return
		}

		result, err := svc.Status(teamID)
		if err != nil {
			respondError(c, err)
			return
		}

		switch {
		case result.Matched:
			c.JSON(http.StatusOK, gin.H{"ok": true, "matched": true, "match": result.Match})
		case result.Queued:
			c.JSON(http.StatusOK, gin.H{
				"ok":        true,
				"queued":    true,
				"team_id":   result.TeamID,
				"wager":     result.Wager,
				"tolerance": result.Tolerance,
				"range":     result.Range,
			})
		default:
			c.JSON(http.StatusOK, gin.H{"ok": true, "queued": false, "matched": false})
		}
	}
}

// Accept handles POST /matchmaking/accept
func Accept(svc *matchmaking.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req struct {
			MatchID int64 `json:"match_id" binding:"required"`
			TeamID  int64 `json:"team_id"`
		}
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"ok": false, "error": "invalid_request", "message": "match_id required"})
			return
		}

		teamID, ok := actorTeam(c, req.TeamID)
		if !ok {
			return
		}

		result, err := svc.Accept(req.MatchID, teamID)
		if err != nil {
			respondError(c, err)
			return
		}

		if result.Cancelled {
			c.JSON(http.StatusConflict, gin.H{
				"ok":            false,
				"cancelled":     true,
				"error":         "match_timeout",
				"match_id":      result.Match.MatchID,
				"cancel_reason": result.Match.CancelReason,
			})
			return
		}
		c.JSON(http.StatusOK, gin.H{"ok": true, "match": result.Match})
	}
}

// Decline handles POST /matchmaking/decline
func Decline(svc *matchmaking.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req struct {
			MatchID int64 `json:"match_id" binding:"required"`
			TeamID  int64 `json:"team_id"`
		}
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"ok": false, "error": "invalid_request", "message": "match_id required"})
			return
		}

		teamID, ok := actorTeam(c, req.TeamID)
		if !ok {
			return
		}

		view, err := svc.Decline(req.MatchID, teamID)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"ok": true, "match": view})
	}
}

// Finish handles POST /matchmaking/finish
func Finish(svc *matchmaking.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req struct {
			MatchID      int64  `json:"match_id" binding:"required"`
			WinnerTeamID int64  `json:"winner_team_id" binding:"required"`
			Score        string `json:"score"`
		}
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"ok": false, "error": "invalid_request", "message": "match_id and winner_team_id required"})
			return
		}

		if _, ok := actorTeam(c, 0); !ok {
			return
		}

		result, err := svc.Finish(req.MatchID, req.WinnerTeamID, req.Score)
		if err != nil {
			respondError(c, err)
			return
		}

		if result.AlreadyFinished {
			c.JSON(http.StatusOK, gin.H{"ok": true, "already_finished": true, "match": result.Match})
			return
		}
		c.JSON(http.StatusOK, gin.H{"ok": true, "match": result.Match})
	}
}

// History handles GET /matchmaking/history
func History(svc *matchmaking.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		teamID, ok := actorTeam(c, 0)
		if !ok {
			return
		}

		limit := 50
		if raw := c.Query("limit"); raw != "" {
			if n, ok := parseID(raw); ok {
				limit = int(n)
			}
		}

		matches, err := svc.History(teamID, limit)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"ok": true, "matches": matches})
	}
}
