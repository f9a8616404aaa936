package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/rivalpit/backend/internal/matchmaking"
)

// respondError maps a matchmaking error to its HTTP payload. Anything that
// is not a typed domain error is surfaced as an opaque internal error.
func respondError(c *gin.Context, err error) {
	e := matchmaking.AsError(err)
	status := e.Status
	if status == 0 {
		status = http.StatusInternalServerError
	}
	body := gin.H{"ok": false, "error": e.Code}
	if e.Kind != matchmaking.KindInternal {
		body["message"] = e.Message
	}
	c.JSON(status, body)
}

func parseID(s string) (int64, bool) {
	id, err := strconv.ParseInt(s, 10, 64)
	return id, err == nil && id > 0
}
