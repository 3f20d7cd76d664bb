package middleware

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/ooovooo/backend/internal/models"
	"github.com/ooovooo/backend/internal/services"
	"go.uber.org/zap"
)

type ctxKey int

const userKey ctxKey = iota

var errUnauthorized = errors.New("unauthorized")

// Authenticator resolves a token to a stored user.
type Authenticator interface {
	Authenticate(ctx context.Context, token string) (*models.User, error)
}

// TokenFromRequest reads "Authorization: Bearer <token>" and falls back to
// the token query parameter used by browser sockets.
func TokenFromRequest(r *http.Request) string {
	if h := r.Header.Get("Authorization"); strings.HasPrefix(h, "Bearer ") {
		if t := strings.TrimSpace(strings.TrimPrefix(h, "Bearer ")); t != "" {
			return t
		}
	}
	return strings.TrimSpace(r.URL.Query().Get("token"))
}

// UserFromContext returns the authenticated user, or nil.
func UserFromContext(ctx context.Context) *models.User {
	u, _ := ctx.Value(userKey).(*models.User)
	return u
}

// WithUser stores u in ctx.
func WithUser(ctx context.Context, u *models.User) context.Context {
	return context.WithValue(ctx, userKey, u)
}

// Auth rejects requests without a valid token with 401.
func Auth(a Authenticator) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			user, err := authenticate(r, a)
			if err != nil {
				if !errors.Is(err, errUnauthorized) && !errors.Is(err, services.ErrUnauthorized) {
					zap.L().Warn("token check failed", zap.Error(err))
				}
				writeError(w, http.StatusUnauthorized, "Not authorized, token missing or invalid")
				return
			}
			next.ServeHTTP(w, r.WithContext(WithUser(r.Context(), user)))
		})
	}
}

// OptionalAuth attaches the user when a valid token is present and lets
// anonymous requests through otherwise.
func OptionalAuth(a Authenticator) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if user, err := authenticate(r, a); err == nil {
				r = r.WithContext(WithUser(r.Context(), user))
			}
			next.ServeHTTP(w, r)
		})
	}
}

// AdminOnly must run after Auth.
func AdminOnly(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		user := UserFromContext(r.Context())
		if user == nil {
			writeError(w, http.StatusUnauthorized, "Not authorized")
			return
		}
		if !user.IsAdmin() {
			writeError(w, http.StatusForbidden, "Admin access required")
			return
		}
		next.ServeHTTP(w, r)
	})
}

func authenticate(r *http.Request, a Authenticator) (*models.User, error) {
	token := TokenFromRequest(r)
	if token == "" {
		return nil, errUnauthorized
	}
	user, err := a.Authenticate(r.Context(), token)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, errUnauthorized
	}
	return user, nil
}

func writeError(w http.ResponseWriter, status int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write([]byte(`{"success":false,"message":"` + message + `"}`))
}
