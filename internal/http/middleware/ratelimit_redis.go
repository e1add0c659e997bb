package middleware

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"idle_tapper/internal/metrics"

	"github.com/gin-gonic/gin"
	redis "github.com/redis/go-redis/v9"
)

var redisClient *redis.Client

// UseRedis shares the storage Redis client with the limiters. A nil client
// switches every limiter to its in-process bucket.
func UseRedis(client *redis.Client) {
	redisClient = client
}

// fixedWindow counts a hit in key and returns the count for the current window.
func fixedWindow(ctx context.Context, key string, window time.Duration) (int64, error) {
	val, err := redisClient.Incr(ctx, key).Result()
	if err != nil {
		return 0, err
	}
	if val == 1 {
		redisClient.Expire(ctx, key, window)
	}
	return val, nil
}

// RedisRateLimit implements a fixed-window limiter per client IP using Redis
// INCR/EXPIRE, keyed rl:<max>:<window_seconds>:<ip> so stacked limiters keep
// separate counts. Without Redis it falls back to a token bucket per IP.
func RedisRateLimit(maxRequests int, window time.Duration) gin.HandlerFunc {
	local := newLocalLimiter(maxRequests, window)
	prefix := "rl:" + strconv.Itoa(maxRequests) + ":" + strconv.FormatInt(int64(window.Seconds()), 10) + ":"
	return func(c *gin.Context) {
		ident := c.ClientIP()
		endpoint := c.FullPath()

		if redisClient == nil {
			if !local.allow(ident, time.Now()) {
				metrics.RLBlocked.WithLabelValues(endpoint).Inc()
				c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{"error": "rate limit exceeded"})
				return
			}
			metrics.RLRequests.WithLabelValues(endpoint).Inc()
			c.Next()
			return
		}

		key := prefix + ident
		val, err := fixedWindow(c.Request.Context(), key, window)
		if err != nil {
			// fail-open
			c.Header("X-RateLimit-Error", "redis-error")
			c.Next()
			return
		}

		if val > int64(maxRequests) {
			metrics.RLBlocked.WithLabelValues(endpoint).Inc()
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{"error": "rate limit exceeded"})
			return
		}

		metrics.RLRequests.WithLabelValues(endpoint).Inc()
		c.Next()
	}
}

// TapRateLimit limits tap batches per player rather than per IP. It must run
// after JWT.
func TapRateLimit(maxBatches int, window time.Duration) gin.HandlerFunc {
	local := newLocalLimiter(maxBatches, window)
	return func(c *gin.Context) {
		userIDVal, exists := c.Get(UserIDKey)
		if !exists {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
			return
		}
		userID, ok := userIDVal.(int64)
		if !ok {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid user"})
			return
		}
		ident := strconv.FormatInt(userID, 10)

		var used int64
		if redisClient == nil {
			if !local.allow(ident, time.Now()) {
				used = int64(maxBatches) + 1
			}
		} else {
			key := "tap_rl:" + ident + ":" + strconv.FormatInt(int64(window.Seconds()), 10)
			val, err := fixedWindow(c.Request.Context(), key, window)
			if err != nil {
				c.Header("X-TapRateLimit-Error", "redis-error")
				c.Next()
				return
			}
			used = val
			c.Header("X-TapRateLimit-Limit", strconv.Itoa(maxBatches))
			c.Header("X-TapRateLimit-Remaining", strconv.FormatInt(max(0, int64(maxBatches)-val), 10))
		}

		if used > int64(maxBatches) {
			metrics.RLBlocked.WithLabelValues("tap").Inc()
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{
				"error":       "tap rate limit exceeded",
				"retry_after": int(window.Seconds()),
			})
			return
		}

		metrics.RLRequests.WithLabelValues("tap").Inc()
		c.Next()
	}
}
