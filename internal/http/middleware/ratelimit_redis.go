package middleware

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"credit_engine/internal/logger"

	"github.com/gin-gonic/gin"
	redis "github.com/redis/go-redis/v9"
)

var redisClient *redis.Client

// InitRedisRateLimiter initializes a shared Redis client used by the middleware.
// If addr is empty or the ping fails, limits are kept per process instead.
func InitRedisRateLimiter(addr, password string, db int) {
	if addr == "" {
		return
	}
	client := redis.NewClient(&redis.Options{Addr: addr, Password: password, DB: db})
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		logger.Warn("redis unavailable, using in-process rate limits", "addr", addr, "error", err)
		_ = client.Close()
		return
	}
	redisClient = client
}

// RedisReady reports whether limits are shared through Redis.
func RedisReady(ctx context.Context) error {
	if redisClient == nil {
		return nil
	}
	return redisClient.Ping(ctx).Err()
}

// hit counts one request against key in a fixed window and returns the
// count so far. Redis errors fall back to the in-process counter.
func hit(ctx context.Context, key string, window time.Duration) int64 {
	if redisClient == nil {
		return localHit(key, window)
	}
	val, err := redisClient.Incr(ctx, key).Result()
	if err != nil {
		logger.Warn("rate limiter redis error", "key", key, "error", err)
		return localHit(key, window)
	}
	if val == 1 {
		redisClient.Expire(ctx, key, window)
	}
	return val
}

// RedisRateLimit implements a fixed-window limiter per client IP.
// key format: rl:<window_seconds>:<ip>
func RedisRateLimit(maxRequests int, window time.Duration) gin.HandlerFunc {
	return func(c *gin.Context) {
		key := "rl:" + strconv.FormatInt(int64(window.Seconds()), 10) + ":" + c.ClientIP()
		val := hit(c.Request.Context(), key, window)

		if val > int64(maxRequests) {
			RLBlocked.WithLabelValues(c.FullPath()).Inc()
			c.Header("Retry-After", strconv.Itoa(int(window.Seconds())))
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{"error": "rate_limited", "message": "rate limit exceeded"})
			return
		}
		RLRequests.WithLabelValues(c.FullPath()).Inc()
		c.Next()
	}
}
