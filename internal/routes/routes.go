package routes

import (
	"net/http"
	"path/filepath"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/ooovooo/backend/internal/handlers"
	"github.com/ooovooo/backend/internal/middleware"
	"github.com/redis/go-redis/v9"
)

// Options carries what the route table needs beyond the handlers.
type Options struct {
	Auth      middleware.Authenticator
	Redis     *redis.Client // nil falls back to in-process limits
	PublicDir string
}

func SetupRoutes(r chi.Router, h *handlers.Handler, opts Options) {
	auth := middleware.Auth(opts.Auth)
	optionalAuth := middleware.OptionalAuth(opts.Auth)
	admin := func(next http.Handler) http.Handler { return auth(middleware.AdminOnly(next)) }

	// Anonymous writes: 30 per minute per IP.
	publicWrite := func(scope string) func(http.Handler) http.Handler {
		return middleware.PublicWriteLimit(opts.Redis, scope, 30, time.Minute)
	}

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("OK"))
	})

	// Auth
	r.Post("/api/auth/register", h.Register)
	r.Post("/api/auth/login", h.Login)

	// Users
	r.Route("/api/users", func(r chi.Router) {
		r.Use(auth)
		r.Get("/profile", h.GetProfile)
		r.Patch("/profile", h.UpdateProfile)
		r.Post("/update-email", h.UpdateEmail)
		r.Post("/update-password", h.UpdatePassword)
		r.With(middleware.AdminOnly).Get("/admin/all", h.ListUsers)
	})

	// Trackers
	r.Route("/api/trackers", func(r chi.Router) {
		r.Use(auth)
		r.Post("/add", h.CreateTracker)
		r.Get("/my-trackers", h.MyTrackers)
		r.Get("/logs", h.TrackerLogs)
		r.With(middleware.AdminOnly).Get("/logs/admin", h.AdminTrackerLogs)
		r.Post("/add-skin/{id}", h.AddSkin)
		r.Patch("/{id}", h.UpdateTracker)
		r.Delete("/{id}", h.DeleteTracker)
	})

	// Public scan page
	r.Get("/api/public/tracker/{code}", h.PublicTracker)

	// Scan logs
	r.With(publicWrite("log")).Post("/api/logs/log-public", h.LogPublic)
	r.With(auth).Get("/api/logs", h.ListLogs)

	// Chat
	r.With(publicWrite("chat"), optionalAuth).Post("/api/chat/send", h.SendMessage)
	r.With(optionalAuth, middleware.ChatHistoryRateLimit).Get("/api/chat/{trackerId}", h.ChatHistory)

	// Orders
	r.Route("/api/orders", func(r chi.Router) {
		r.Post("/webhook", h.StripeWebhook)
		r.Group(func(r chi.Router) {
			r.Use(auth)
			r.Post("/add", h.AddOrder)
			r.Post("/create-checkout-session", h.CreateCheckoutSession)
			r.Get("/my-orders", h.MyOrders)
			r.With(middleware.AdminOnly).Get("/admin-list", h.AdminListOrders)
			r.With(middleware.AdminOnly).Patch("/status/{orderId}", h.UpdateOrderStatus)
		})
	})

	// Skins
	r.Get("/api/schemes", h.ListSchemes)
	r.With(admin).Post("/api/schemes/add", h.UploadScheme)

	// Contact
	r.Route("/api/contact", func(r chi.Router) {
		r.With(publicWrite("contact")).Post("/send", h.SubmitContact)
		r.Group(func(r chi.Router) {
			r.Use(admin)
			r.Get("/all", h.ListContacts)
			r.Patch("/{id}/read", h.MarkContactRead)
			r.Delete("/{id}", h.DeleteContact)
		})
	})

	// Realtime chat gateway
	r.Get("/ws", h.ChatWebSocket)

	// Generated QR codes and uploaded skin artwork
	mountStatic(r, "/schemes", filepath.Join(opts.PublicDir, "schemes"))
	mountStatic(r, "/qrcodes", filepath.Join(opts.PublicDir, "qrcodes"))
}

func mountStatic(r chi.Router, prefix, dir string) {
	fs := http.StripPrefix(prefix, http.FileServer(http.Dir(dir)))
	r.Get(prefix+"/*", fs.ServeHTTP)
}
