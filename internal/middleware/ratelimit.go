package middleware

import (
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// RateLimitOptions configures a fixed-window per-IP limit.
type RateLimitOptions struct {
	Scope  string
	Max    int64
	Window time.Duration
}

// RateLimit counts anonymous requests per client IP in Redis and rejects the
// excess with 429. Redis failures let the request through.
func RateLimit(rdb *redis.Client, opts RateLimitOptions, log *zap.Logger) gin.HandlerFunc {
	if opts.Window <= 0 {
		opts.Window = time.Minute
	}
	if opts.Max <= 0 {
		opts.Max = 30
	}
	return func(c *gin.Context) {
		if rdb == nil || IsAuthenticated(c) {
			c.Next()
			return
		}

		ip := c.ClientIP()
		if ip == "" {
			c.Next()
			return
		}

		ctx := c.Request.Context()
		window := time.Now().UnixNano() / int64(opts.Window)
		key := fmt.Sprintf("formvoice:rate_limit:%s:%s:%d", opts.Scope, ip, window)

		count, err := rdb.Incr(ctx, key).Result()
		if err != nil {
			log.Warn("rate limit check failed", zap.Error(err))
			c.Next()
			return
		}
		if count == 1 {
			rdb.PExpire(ctx, key, opts.Window+time.Second)
		}

		if count > opts.Max {
			log.Info("rate limited", zap.String("ip", ip), zap.String("scope", opts.Scope))
			c.Header("Retry-After", strconv.Itoa(int(opts.Window/time.Second)+1))
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{
				"ok":      0,
				"code":    http.StatusTooManyRequests,
				"message": "too many requests, slow down",
			})
			return
		}

		c.Next()
	}
}
