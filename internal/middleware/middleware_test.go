package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/ooovooo/backend/internal/models"
	"github.com/ooovooo/backend/internal/services"
	"github.com/redis/go-redis/v9"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

type fakeAuth map[string]*models.User

func (f fakeAuth) Authenticate(_ context.Context, token string) (*models.User, error) {
	if u, ok := f[token]; ok {
		return u, nil
	}
	return nil, services.ErrUnauthorized
}

var (
	parent = &models.User{ID: primitive.NewObjectID(), Email: "anna@example.com", Role: models.RoleParent}
	admin  = &models.User{ID: primitive.NewObjectID(), Email: "admin@example.com", Role: models.RoleAdmin}
	tokens = fakeAuth{"parent-token": parent, "admin-token": admin}
)

func whoAmI(w http.ResponseWriter, r *http.Request) {
	if u := UserFromContext(r.Context()); u != nil {
		_, _ = w.Write([]byte(u.Email))
		return
	}
	_, _ = w.Write([]byte("anonymous"))
}

func TestTokenFromRequest(t *testing.T) {
	r := httptest.NewRequest(http.MethodGet, "/ws?token=abc", nil)
	if got := TokenFromRequest(r); got != "abc" {
		t.Fatalf("expected query token, got %q", got)
	}
	r.Header.Set("Authorization", "Bearer xyz")
	if got := TokenFromRequest(r); got != "xyz" {
		t.Fatalf("expected bearer token to win, got %q", got)
	}
	r = httptest.NewRequest(http.MethodGet, "/", nil)
	r.Header.Set("Authorization", "Basic Zm9v")
	if got := TokenFromRequest(r); got != "" {
		t.Fatalf("expected no token, got %q", got)
	}
}

func TestAuth(t *testing.T) {
	h := Auth(tokens)(http.HandlerFunc(whoAmI))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/users/profile", nil))
	if rec.Code != http.StatusUnauthorized || !strings.Contains(rec.Body.String(), `"success":false`) {
		t.Fatalf("expected 401 envelope, got %d %s", rec.Code, rec.Body.String())
	}

	req := httptest.NewRequest(http.MethodGet, "/api/users/profile", nil)
	req.Header.Set("Authorization", "Bearer parent-token")
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK || rec.Body.String() != parent.Email {
		t.Fatalf("expected parent, got %d %s", rec.Code, rec.Body.String())
	}

	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/users/profile?token=bogus", nil))
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 for bad token, got %d", rec.Code)
	}
}

func TestOptionalAuth(t *testing.T) {
	h := OptionalAuth(tokens)(http.HandlerFunc(whoAmI))
	for token, want := range map[string]string{"": "anonymous", "bogus": "anonymous", "parent-token": parent.Email} {
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/chat/send?token="+token, nil))
		if rec.Code != http.StatusOK || rec.Body.String() != want {
			t.Fatalf("token %q: got %d %s", token, rec.Code, rec.Body.String())
		}
	}
}

func TestAdminOnly(t *testing.T) {
	h := Auth(tokens)(AdminOnly(http.HandlerFunc(whoAmI)))
	cases := map[string]int{"parent-token": http.StatusForbidden, "admin-token": http.StatusOK}
	for token, want := range cases {
		req := httptest.NewRequest(http.MethodGet, "/api/users/admin/all", nil)
		req.Header.Set("Authorization", "Bearer "+token)
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		if rec.Code != want {
			t.Fatalf("token %q: expected %d, got %d", token, want, rec.Code)
		}
	}
}

func TestIPRateLimiter(t *testing.T) {
	l := NewIPRateLimiter(0.001, 2, "slow down")
	h := l.Handler(http.HandlerFunc(whoAmI))

	codes := make([]int, 0, 3)
	for i := 0; i < 3; i++ {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.RemoteAddr = "10.0.0.1:4321"
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		codes = append(codes, rec.Code)
	}
	if codes[0] != 200 || codes[1] != 200 || codes[2] != http.StatusTooManyRequests {
		t.Fatalf("unexpected codes %v", codes)
	}

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.RemoteAddr = "10.0.0.2:4321"
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("other IPs should have their own bucket, got %d", rec.Code)
	}
}

func TestLoginRateLimitOnlyTouchesLogin(t *testing.T) {
	h := LoginRateLimit(http.HandlerFunc(whoAmI))
	for i := 0; i < 10; i++ {
		req := httptest.NewRequest(http.MethodGet, "/api/trackers/my-trackers", nil)
		req.RemoteAddr = "10.1.0.1:1"
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		if rec.Code != http.StatusOK {
			t.Fatalf("non-login route was limited")
		}
	}
	limited := false
	for i := 0; i < 10; i++ {
		req := httptest.NewRequest(http.MethodPost, "/api/auth/login", nil)
		req.RemoteAddr = "10.1.0.2:1"
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		if rec.Code == http.StatusTooManyRequests {
			limited = true
		}
	}
	if !limited {
		t.Fatalf("expected login attempts to be limited")
	}
}

func TestChatHistoryRateLimit(t *testing.T) {
	h := ChatHistoryRateLimit(http.HandlerFunc(whoAmI))
	var last *httptest.ResponseRecorder
	for i := 0; i <= chatHistoryAnonBurst; i++ {
		req := httptest.NewRequest(http.MethodGet, "/api/chat/ABCDEFGH23", nil)
		req.RemoteAddr = "10.2.0.1:1"
		last = httptest.NewRecorder()
		h.ServeHTTP(last, req)
	}
	if last.Code != http.StatusTooManyRequests || last.Header().Get("X-RateLimit-Limit") != "5" {
		t.Fatalf("expected anonymous history limit, got %d %v", last.Code, last.Header())
	}

	req := httptest.NewRequest(http.MethodPost, "/api/chat/send", nil)
	req.RemoteAddr = "10.2.0.1:1"
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("sends are not history reads, got %d", rec.Code)
	}
}

func TestRedisRateLimit(t *testing.T) {
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })

	h := RedisRateLimit(rdb, "scan", 2, time.Minute)(http.HandlerFunc(whoAmI))
	hit := func() *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodPost, "/api/logs/log-public", nil)
		req.RemoteAddr = "10.3.0.1:1"
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		return rec
	}
	if rec := hit(); rec.Code != 200 || rec.Header().Get("X-RateLimit-Remaining") != "1" {
		t.Fatalf("first hit: %d %v", rec.Code, rec.Header())
	}
	hit()
	if rec := hit(); rec.Code != http.StatusTooManyRequests || rec.Header().Get("Retry-After") != "60" {
		t.Fatalf("third hit should be limited: %d", rec.Code)
	}
	if ttl := mr.TTL(RateLimitKeyPrefix + "scan:10.3.0.1"); ttl != time.Minute {
		t.Fatalf("expected window ttl, got %v", ttl)
	}

	mr.FastForward(time.Minute + time.Second)
	if rec := hit(); rec.Code != http.StatusOK {
		t.Fatalf("window should have reset, got %d", rec.Code)
	}

	mr.Close()
	if rec := hit(); rec.Code != http.StatusOK {
		t.Fatalf("redis outage should fail open, got %d", rec.Code)
	}
}

func TestRequestLoggerAndRecoverer(t *testing.T) {
	core, logs := observer.New(zap.InfoLevel)
	logger := zap.New(core)

	panicky := http.HandlerFunc(func(http.ResponseWriter, *http.Request) { panic("boom") })
	h := RequestLogger(logger)(Recoverer(logger)(panicky))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/schemes?x=1", nil))
	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500, got %d", rec.Code)
	}
	if logs.FilterMessage("Panic recovered").Len() != 1 {
		t.Fatalf("panic was not logged")
	}
	entries := logs.FilterMessage("Incoming Request").All()
	if len(entries) != 1 || entries[0].Level != zap.ErrorLevel {
		t.Fatalf("expected one error-level request log, got %+v", entries)
	}
	if entries[0].ContextMap()["query"] != "x=1" {
		t.Fatalf("query not logged: %v", entries[0].ContextMap())
	}
}

func TestSecurityHeadersAndCORS(t *testing.T) {
	h := CORS([]string{"https://ooovooo.com"})(SecurityHeaders(http.HandlerFunc(whoAmI)))

	req := httptest.NewRequest(http.MethodOptions, "/api/trackers/add", nil)
	req.Header.Set("Origin", "https://ooovooo.com")
	req.Header.Set("Access-Control-Request-Method", "POST")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	if rec.Header().Get("Access-Control-Allow-Origin") != "https://ooovooo.com" {
		t.Fatalf("preflight not allowed: %v", rec.Header())
	}

	req = httptest.NewRequest(http.MethodGet, "/health", nil)
	req.Header.Set("Origin", "https://evil.example")
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	if rec.Header().Get("Access-Control-Allow-Origin") != "" {
		t.Fatalf("unknown origin should not be echoed")
	}
	if rec.Header().Get("X-Frame-Options") != "DENY" || rec.Header().Get("X-Content-Type-Options") != "nosniff" {
		t.Fatalf("security headers missing: %v", rec.Header())
	}
}
