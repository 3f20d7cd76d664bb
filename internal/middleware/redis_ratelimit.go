package middleware

import (
	"net/http"
	"strconv"
	"time"

	"github.com/ooovooo/backend/pkg/clientip"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

// RateLimitKeyPrefix is the Redis key prefix for rate limiting.
const RateLimitKeyPrefix = "ratelimit:"

// RedisRateLimit is a fixed-window per-IP limit shared by every instance.
// Anonymous write endpoints (scan logs, finder chat, contact form) sit
// behind it. Redis errors fail open.
func RedisRateLimit(rdb *redis.Client, scope string, max int, window time.Duration) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			key := RateLimitKeyPrefix + scope + ":" + clientip.RealClientIP(r)

			count, err := rdb.Incr(ctx, key).Result()
			if err != nil {
				zap.L().Warn("rate limit counter unavailable", zap.String("key", key), zap.Error(err))
				next.ServeHTTP(w, r)
				return
			}
			if count == 1 {
				if err := rdb.Expire(ctx, key, window).Err(); err != nil {
					zap.L().Warn("rate limit expiry failed", zap.String("key", key), zap.Error(err))
				}
			}

			remaining := int64(max) - count
			if remaining < 0 {
				remaining = 0
			}
			w.Header().Set("X-RateLimit-Limit", strconv.Itoa(max))
			w.Header().Set("X-RateLimit-Remaining", strconv.FormatInt(remaining, 10))

			if count > int64(max) {
				w.Header().Set("Retry-After", strconv.Itoa(int(window.Seconds())))
				writeError(w, http.StatusTooManyRequests, "Rate limit exceeded. Please try again later.")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// PublicWriteLimit picks the shared Redis window when Redis is configured,
// else a local token bucket with a similar rate.
func PublicWriteLimit(rdb *redis.Client, scope string, max int, window time.Duration) func(http.Handler) http.Handler {
	if rdb != nil {
		return RedisRateLimit(rdb, scope, max, window)
	}
	perSecond := float64(max) / window.Seconds()
	return NewIPRateLimiter(rate.Limit(perSecond), max, "Rate limit exceeded. Please try again later.").Handler
}
