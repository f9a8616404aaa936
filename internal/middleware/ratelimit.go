package middleware

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
)

// RateLimit is a fixed-window limiter keyed by client IP and route group.
// Counters live in Redis so all instances share one window. Fails open if
// Redis is unreachable.
func RateLimit(rdb *redis.Client, name string, window time.Duration, max int) gin.HandlerFunc {
	return func(c *gin.Context) {
		if rdb == nil || max <= 0 || window <= 0 {
			c.Next()
			return
		}

		ctx := context.Background()
		windowStart := time.Now().Unix() / int64(window.Seconds())
		key := fmt.Sprintf("rate:%s:%s:%d", name, c.ClientIP(), windowStart)

		count, err := rdb.Incr(ctx, key).Result()
		if err != nil {
			c.Next()
			return
		}
		if count == 1 {
			rdb.Expire(ctx, key, window)
		}

		remaining := int64(max) - count
		if remaining < 0 {
			remaining = 0
		}
		c.Header("RateLimit-Limit", strconv.Itoa(max))
		c.Header("RateLimit-Remaining", strconv.FormatInt(remaining, 10))

		if count > int64(max) {
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{"ok": false, "error": "too_many_requests"})
			return
		}
		c.Next()
	}
}
