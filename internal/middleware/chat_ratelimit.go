package middleware

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/ooovooo/backend/pkg/clientip"
)

// Chat history rate limit: per-IP, different limits for auth vs anonymous.
// Auth: 30 req/min, burst 20. Anonymous (finders polling a tag): 10 req/min, burst 5.

const (
	chatHistoryAuthRPS   = 0.5  // 30/min
	chatHistoryAuthBurst = 20
	chatHistoryAnonRPS   = 0.17 // ~10/min
	chatHistoryAnonBurst = 5
)

var (
	chatHistoryAuth = NewIPRateLimiter(chatHistoryAuthRPS, chatHistoryAuthBurst, "")
	chatHistoryAnon = NewIPRateLimiter(chatHistoryAnonRPS, chatHistoryAnonBurst, "")
)

// ChatHistoryRateLimit applies rate limiting only to GET /api/chat/{trackerId}.
// Returns 429 with headers when exceeded.
func ChatHistoryRateLimit(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet || !strings.HasPrefix(r.URL.Path, "/api/chat/") {
			next.ServeHTTP(w, r)
			return
		}

		ip := clientip.RealClientIP(r)
		limiter, limit := chatHistoryAnon, chatHistoryAnonBurst
		if TokenFromRequest(r) != "" {
			limiter, limit = chatHistoryAuth, chatHistoryAuthBurst
		}

		w.Header().Set("X-RateLimit-Limit", strconv.Itoa(limit))
		if !limiter.Allow(ip) {
			w.Header().Set("X-RateLimit-Remaining", "0")
			writeError(w, http.StatusTooManyRequests, "Too many chat history requests. Please slow down.")
			return
		}
		next.ServeHTTP(w, r)
	})
}
