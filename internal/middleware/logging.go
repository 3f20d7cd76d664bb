package middleware

import (
	"net/http"
	"runtime/debug"
	"time"

	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/ooovooo/backend/pkg/clientip"
	"go.uber.org/zap"
)

// RequestLogger logs method, path, status, latency and client IP of every
// request. 5xx log at error level, 4xx at warn.
func RequestLogger(logger *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			path := r.URL.Path
			query := r.URL.RawQuery

			ww := chimw.NewWrapResponseWriter(w, r.ProtoMajor)
			next.ServeHTTP(ww, r)

			status := ww.Status()
			if status == 0 {
				status = http.StatusOK
			}
			fields := []zap.Field{
				zap.String("method", r.Method),
				zap.String("path", path),
				zap.Int("status_code", status),
				zap.Duration("latency", time.Since(start)),
				zap.String("client_ip", clientip.RealClientIP(r)),
			}
			if query != "" {
				fields = append(fields, zap.String("query", query))
			}
			if reqID := chimw.GetReqID(r.Context()); reqID != "" {
				fields = append(fields, zap.String("request_id", reqID))
			}

			switch {
			case status >= http.StatusInternalServerError:
				logger.Error("Incoming Request", fields...)
			case status >= http.StatusBadRequest:
				logger.Warn("Incoming Request", fields...)
			default:
				logger.Info("Incoming Request", fields...)
			}
		})
	}
}

// Recoverer turns a handler panic into a logged 500.
func Recoverer(logger *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				if rec := recover(); rec != nil {
					if rec == http.ErrAbortHandler {
						panic(rec)
					}
					logger.Error("Panic recovered",
						zap.Any("error", rec),
						zap.String("stacktrace", string(debug.Stack())),
						zap.String("path", r.URL.Path),
						zap.String("method", r.Method),
					)
					writeError(w, http.StatusInternalServerError, "Internal server error")
				}
			}()
			next.ServeHTTP(w, r)
		})
	}
}
