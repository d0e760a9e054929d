package middlewares

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"

	"github.com/mmdatafocus/sync_backend/utils"
)

// counter is the part of *redis.Client the limiter needs.
type counter interface {
	Incr(ctx context.Context, key string) *redis.IntCmd
	Expire(ctx context.Context, key string, expiration time.Duration) *redis.BoolCmd
}

// RateLimiter is a fixed-window request counter per client IP kept in Redis.
type RateLimiter struct {
	client counter
	limit  int64
	window time.Duration
}

func NewRateLimiter(client counter, limit int64, window time.Duration) *RateLimiter {
	return &RateLimiter{
		client: client,
		limit:  limit,
		window: window,
	}
}

func (rl *RateLimiter) RateLimitMiddleware(c *gin.Context) {
	ctx := c.Request.Context()
	key := "ratelimit:" + c.ClientIP()

	count, err := rl.client.Incr(ctx, key).Result()
	if err != nil {
		_ = c.Error(err)
		utils.AbortWithError(c, http.StatusInternalServerError, "Internal server error.")
		return
	}
	// first hit opens the window
	if count == 1 {
		if err := rl.client.Expire(ctx, key, rl.window).Err(); err != nil {
			_ = c.Error(err)
			utils.AbortWithError(c, http.StatusInternalServerError, "Internal server error.")
			return
		}
	}

	if count > rl.limit {
		utils.AbortWithError(c, http.StatusTooManyRequests,
			fmt.Sprintf("Rate limit exceeded. Try again in %d seconds", int(rl.window.Seconds())))
		return
	}

	c.Next()
}
