package middleware

import (
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/ooovooo/backend/pkg/clientip"
	"golang.org/x/time/rate"
)

const (
	headerXContentTypeOptions     = "X-Content-Type-Options"
	headerXFrameOptions           = "X-Frame-Options"
	headerXXSSProtection          = "X-XSS-Protection"
	headerContentSecurityPolicy   = "Content-Security-Policy"
	headerStrictTransportSecurity = "Strict-Transport-Security"
)

// SecurityHeaders sets security-related response headers.
func SecurityHeaders(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set(headerXContentTypeOptions, "nosniff")
		w.Header().Set(headerXFrameOptions, "DENY")
		w.Header().Set(headerXXSSProtection, "1; mode=block")
		w.Header().Set(headerContentSecurityPolicy, "default-src 'self'; img-src 'self' data: https:")
		w.Header().Set(headerStrictTransportSecurity, "max-age=31536000; includeSubDomains")
		next.ServeHTTP(w, r)
	})
}

const (
	limiterCleanupInterval = 5 * time.Minute
	limiterTTL             = 30 * time.Minute
)

type limiterEntry struct {
	limiter *rate.Limiter
	lastUse time.Time
}

// IPRateLimiter keeps one token bucket per key. Idle buckets are swept by a
// goroutine started on first use.
type IPRateLimiter struct {
	limit   rate.Limit
	burst   int
	message string

	mu          sync.Mutex
	entries     map[string]*limiterEntry
	cleanupOnce sync.Once
}

func NewIPRateLimiter(limit rate.Limit, burst int, message string) *IPRateLimiter {
	return &IPRateLimiter{
		limit:   limit,
		burst:   burst,
		message: message,
		entries: make(map[string]*limiterEntry),
	}
}

// Allow consumes one token for key.
func (l *IPRateLimiter) Allow(key string) bool {
	l.cleanupOnce.Do(func() { go l.sweep() })

	l.mu.Lock()
	e, ok := l.entries[key]
	if !ok {
		e = &limiterEntry{limiter: rate.NewLimiter(l.limit, l.burst)}
		l.entries[key] = e
	}
	e.lastUse = time.Now()
	l.mu.Unlock()
	return e.limiter.Allow()
}

func (l *IPRateLimiter) sweep() {
	ticker := time.NewTicker(limiterCleanupInterval)
	defer ticker.Stop()
	for range ticker.C {
		l.mu.Lock()
		now := time.Now()
		for k, e := range l.entries {
			if now.Sub(e.lastUse) > limiterTTL {
				delete(l.entries, k)
			}
		}
		l.mu.Unlock()
	}
}

// Handler limits every request by client IP and answers 429 when exceeded.
func (l *IPRateLimiter) Handler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !l.Allow(clientip.RealClientIP(r)) {
			w.Header().Set("X-RateLimit-Limit", strconv.Itoa(l.burst))
			w.Header().Set("X-RateLimit-Remaining", "0")
			writeError(w, http.StatusTooManyRequests, l.message)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// Global limit: 5 req/s per IP, burst 30.
var globalLimiter = NewIPRateLimiter(5, 30, "Too many requests. Please slow down.")

// GlobalRateLimit applies the per-IP limit to every route.
func GlobalRateLimit(next http.Handler) http.Handler {
	return globalLimiter.Handler(next)
}

// Login limit: 1 req/5s per IP, burst 3.
var loginLimiter = NewIPRateLimiter(rate.Every(5*time.Second), 3, "Too many login attempts. Please try again later.")

var loginPaths = map[string]bool{
	"/api/auth/login":    true,
	"/api/auth/register": true,
}

// LoginRateLimit applies the stricter limit to sign-in routes only.
func LoginRateLimit(next http.Handler) http.Handler {
	limited := loginLimiter.Handler(next)
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || !loginPaths[r.URL.Path] {
			next.ServeHTTP(w, r)
			return
		}
		limited.ServeHTTP(w, r)
	})
}

// ProductionSecurity returns middlewares for production: SecurityHeaders → GlobalRateLimit → LoginRateLimit.
func ProductionSecurity() []func(http.Handler) http.Handler {
	return []func(http.Handler) http.Handler{
		SecurityHeaders,
		GlobalRateLimit,
		LoginRateLimit,
	}
}
