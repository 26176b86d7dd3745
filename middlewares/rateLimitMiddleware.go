package middlewares

import (
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
)

// RateLimiter counts requests per client IP in fixed redis windows.
type RateLimiter struct {
	client *redis.Client
	limit  int64
	window time.Duration
}

func NewRateLimiter(client *redis.Client, limit int64, window time.Duration) *RateLimiter {
	return &RateLimiter{
		client: client,
		limit:  limit,
		window: window,
	}
}

func rateLimitKey(clientIP string) string {
	return "RateLimit:" + clientIP
}

func (rl *RateLimiter) RateLimitMiddleware(c *gin.Context) {
	ctx := c.Request.Context()
	key := rateLimitKey(c.ClientIP())

	count, err := rl.client.Incr(ctx, key).Result()
	if err != nil {
		_ = c.Error(err)
		AbortWithError(c, http.StatusInternalServerError, "Rate limiter unavailable.")
		return
	}
	// first hit opens the window
	if count == 1 {
		if err := rl.client.Expire(ctx, key, rl.window).Err(); err != nil {
			_ = c.Error(err)
			AbortWithError(c, http.StatusInternalServerError, "Rate limiter unavailable.")
			return
		}
	}

	if count > rl.limit {
		AbortWithError(c, http.StatusTooManyRequests,
			fmt.Sprintf("Rate limit exceeded. Try again in %d seconds", int(rl.window.Seconds())))
		return
	}
	c.Next()
}
