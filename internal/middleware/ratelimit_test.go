package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
)

func runLimited(t *testing.T, limiter gin.HandlerFunc) *httptest.ResponseRecorder {
	t.Helper()
	gin.SetMode(gin.TestMode)

	w := httptest.NewRecorder()
	router := gin.New()
	router.GET("/ping", limiter, func(c *gin.Context) {
		c.Status(http.StatusOK)
	})
	req := httptest.NewRequest(http.MethodGet, "/ping", nil)
	router.ServeHTTP(w, req)
	return w
}

func TestRateLimitDisabledPassesThrough(t *testing.T) {
	rdb := redis.NewClient(&redis.Options{Addr: "127.0.0.1:1"})

	cases := []struct {
		name    string
		limiter gin.HandlerFunc
	}{
		{"nil client", RateLimit(nil, "api", time.Minute, 10)},
		{"zero max", RateLimit(rdb, "api", time.Minute, 0)},
		{"zero window", RateLimit(rdb, "api", 0, 10)},
		{"negative window", RateLimit(rdb, "api", -time.Second, 10)},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			w := runLimited(t, c.limiter)
			assert.Equal(t, http.StatusOK, w.Code)
		})
	}
}
