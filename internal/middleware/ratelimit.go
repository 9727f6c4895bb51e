package middleware

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"bharatconnect/pkg/logger"
	"bharatconnect/pkg/response"
)

// Counter counts hits of key in a fixed window and returns the count so far
// and the time left in the window
type Counter interface {
	Incr(ctx context.Context, key string, window time.Duration) (int64, time.Duration, error)
}

// RedisCounter implements Counter with INCR and EXPIRE
type RedisCounter struct {
	client *redis.Client
}

// NewRedisCounter creates a new RedisCounter
func NewRedisCounter(client *redis.Client) *RedisCounter {
	return &RedisCounter{client: client}
}

// Incr increments key and starts its window on the first hit
func (r *RedisCounter) Incr(ctx context.Context, key string, window time.Duration) (int64, time.Duration, error) {
	pipe := r.client.TxPipeline()
	incr := pipe.Incr(ctx, key)
	pipe.ExpireNX(ctx, key, window)
	ttl := pipe.TTL(ctx, key)
	if _, err := pipe.Exec(ctx); err != nil {
		return 0, 0, fmt.Errorf("failed to increment rate limit: %w", err)
	}
	return incr.Val(), ttl.Val(), nil
}

// RateLimiter limits requests per authenticated user, or per client IP
// before authentication
type RateLimiter struct {
	counter  Counter
	requests int
	window   time.Duration
	scope    string
}

// NewRateLimiter creates a new rate limiter. scope namespaces the counters so
// route groups can have separate budgets.
func NewRateLimiter(counter Counter, scope string, requests int, window time.Duration) *RateLimiter {
	return &RateLimiter{
		counter:  counter,
		requests: requests,
		window:   window,
		scope:    scope,
	}
}

// Middleware returns a Gin middleware for rate limiting. It fails open when
// the counter is unavailable.
func (rl *RateLimiter) Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		identifier := "ip:" + c.ClientIP()
		if userID, ok := GetUserID(c); ok {
			identifier = "user:" + userID
		}
		key := fmt.Sprintf("ratelimit:%s:%s", rl.scope, identifier)

		count, ttl, err := rl.counter.Incr(c.Request.Context(), key, rl.window)
		if err != nil {
			logger.Warn("Rate limiter unavailable, allowing request",
				zap.String("scope", rl.scope),
				zap.Error(err))
			c.Next()
			return
		}

		remaining := rl.requests - int(count)
		if remaining < 0 {
			remaining = 0
		}
		if ttl < 0 {
			ttl = rl.window
		}

		c.Header("X-RateLimit-Limit", strconv.Itoa(rl.requests))
		c.Header("X-RateLimit-Remaining", strconv.Itoa(remaining))
		c.Header("X-RateLimit-Reset", strconv.FormatInt(time.Now().Add(ttl).Unix(), 10))

		if int(count) > rl.requests {
			c.Header("Retry-After", strconv.Itoa(int(ttl.Seconds())+1))
			response.Error(c, http.StatusTooManyRequests, "RATE_LIMITED", "Rate limit exceeded")
			c.Abort()
			return
		}

		c.Next()
	}
}
