package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"github.com/ooovooo/backend/internal/config"
	"github.com/ooovooo/backend/internal/database"
	"github.com/ooovooo/backend/internal/handlers"
	"github.com/ooovooo/backend/internal/logger"
	"github.com/ooovooo/backend/internal/middleware"
	"github.com/ooovooo/backend/internal/queue"
	"github.com/ooovooo/backend/internal/repository"
	"github.com/ooovooo/backend/internal/routes"
	"github.com/ooovooo/backend/internal/services"
	"github.com/ooovooo/backend/pkg/utils"
)

func main() {
	// Load env
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found")
	}
	cfg := config.Load()

	zl, err := logger.New(cfg.IsProduction())
	if err != nil {
		log.Fatal("Failed to build logger:", err)
	}
	defer func() { _ = zl.Sync() }()

	if cfg.StripeWebhookSecret == "" {
		zl.Warn("STRIPE_WEBHOOK_SECRET not set; webhook deliveries will be rejected")
	}

	// Connect to MongoDB
	if err := database.Connect(cfg.MongoURI); err != nil {
		zl.Fatal("Failed to connect to MongoDB", zap.String("uri", database.MaskURI(cfg.MongoURI)), zap.Error(err))
	}
	defer database.Disconnect()

	idxCtx, idxCancel := context.WithTimeout(context.Background(), 30*time.Second)
	if err := repository.EnsureIndexes(idxCtx, database.DB); err != nil {
		zl.Warn("failed to ensure MongoDB indexes", zap.Error(err))
	} else {
		zl.Info("MongoDB indexes ensured")
	}
	idxCancel()

	// Redis is optional: without it chat fan-out and public write limits stay in-process.
	if cfg.RedisURI != "" {
		if err := database.ConnectRedis(cfg.RedisURI); err != nil {
			zl.Warn("Redis unavailable; continuing without it", zap.Error(err))
		} else {
			defer database.DisconnectRedis()
		}
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	db := database.DB
	users := repository.NewUsersStore(db.Collection(repository.UsersCollection))
	trackers := repository.NewTrackersStore(db.Collection(repository.TrackersCollection))
	logs := repository.NewLogsStore(db.Collection(repository.LogsCollection))
	messages := repository.NewMessagesStore(db.Collection(repository.MessagesCollection))
	orders := repository.NewOrdersStore(db.Collection(repository.OrdersCollection))
	contacts := repository.NewContactsStore(db.Collection(repository.ContactsCollection))
	skins := repository.NewSkinsStore(db.Collection(repository.SkinsCollection))
	events := repository.NewEventsStore(db.Collection(repository.EventsCollection))

	hub := services.NewChatHub(database.RedisClient, zl.Named("chat"))
	go hub.Run(ctx)

	var publisher queue.Publisher = queue.NopPublisher{}
	if cfg.AMQPURL != "" {
		amqpPub := queue.NewAMQPPublisher(cfg.AMQPURL, zl.Named("queue"))
		defer amqpPub.Close()
		publisher = amqpPub
		go queue.StartFulfillmentConsumer(ctx, cfg.AMQPURL, zl.Named("fulfillment"))
		zl.Info("order events publishing enabled", zap.String("queue", queue.OrderEventsQueue))
	}

	schemesDir := filepath.Join(cfg.PublicDir, "schemes")
	var artwork services.ArtworkStore = services.DiskArtworkStore{Dir: schemesDir, URLPrefix: "/schemes"}
	if cfg.CloudinaryEnabled() {
		cld, err := services.NewCloudinaryService(cfg.CloudinaryName, cfg.CloudinaryAPIKey, cfg.CloudinaryAPISecret)
		if err != nil {
			zl.Warn("failed to initialize Cloudinary; storing skins on disk", zap.Error(err))
		} else {
			artwork = cld
			zl.Info("Cloudinary service initialized")
		}
	}

	tokens := utils.NewTokenManager(cfg.JWTSecret, utils.TokenTTL)
	authSvc := services.NewAuthService(users, tokens)
	gateway := services.NewStripeGateway(cfg.StripeSecretKey, cfg.StripeWebhookSecret)

	h := handlers.New(handlers.Services{
		Auth:     authSvc,
		Users:    services.NewUserService(users),
		Trackers: services.NewTrackerService(trackers, logs, messages, hub, zl.Named("trackers")),
		Public:   services.NewPublicService(trackers, users, logs, zl.Named("public")),
		Logs:     services.NewLogService(trackers, logs),
		Chat:     services.NewChatService(trackers, messages, hub, zl.Named("chat")),
		Orders: services.NewOrderService(orders, trackers, events, gateway, publisher, hub, services.CheckoutConfig{
			Currency:     cfg.Currency,
			SuccessURL:   cfg.FrontendURL + "/success",
			CancelURL:    cfg.FrontendURL + "/cancel",
			ImageBaseURL: cfg.PublicBaseURL,
		}, zl.Named("orders")),
		Skins:    services.NewSkinService(skins, artwork, schemesDir, zl.Named("skins")),
		Contacts: services.NewContactService(contacts),
		Hub:      hub,
	}, zl)

	// Setup router
	r := chi.NewRouter()
	r.Use(chimw.RequestID)
	r.Use(middleware.RequestLogger(zl.Named("http")))
	r.Use(middleware.Recoverer(zl))
	r.Use(middleware.CORS(cfg.AllowedOrigins))

	// Production: SecurityHeaders → GlobalRateLimit → LoginRateLimit
	if cfg.IsProduction() {
		for _, mw := range middleware.ProductionSecurity() {
			r.Use(mw)
		}
		zl.Info("production security enabled (security headers, per-IP + login rate limiting)")
	}

	routes.SetupRoutes(r, h, routes.Options{
		Auth:      authSvc,
		Redis:     database.RedisClient,
		PublicDir: cfg.PublicDir,
	})

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		zl.Info("oooVooo backend running", zap.String("port", cfg.Port), zap.String("env", cfg.Environment))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			zl.Fatal("Failed to start server", zap.Error(err))
		}
	}()

	<-ctx.Done()
	zl.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		zl.Error("graceful shutdown failed", zap.Error(err))
	}
}
