package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/julienschmidt/httprouter"
	"github.com/redis/go-redis/v9"
	"github.com/rs/cors"
	"github.com/sirupsen/logrus"

	"servicedesk/booking"
	"servicedesk/config"
	"servicedesk/db"
	"servicedesk/logger"
	"servicedesk/middleware"
	"servicedesk/mq"
	"servicedesk/ratelim"
	"servicedesk/rdx"
	"servicedesk/routes"
)

// setupRouter builds the router with every route.
func setupRouter(h *booking.Handler, hub *booking.LiveHub, rl *ratelim.RateLimiter) *httprouter.Router {
	router := httprouter.New()
	router.NotFound = http.HandlerFunc(routes.NotFound)

	routes.AddUtilityRoutes(router)
	routes.AddBookingRoutes(router, h, rl)
	routes.AddLiveRoutes(router, hub)
	return router
}

// openRepository picks the in-memory store or MongoDB. The Mongo connection
// is dialled once here and shared for the life of the process.
func openRepository(ctx context.Context, cfg *config.Config, conn *db.Connector, log *logrus.Logger) (booking.Repository, error) {
	if cfg.UseMemoryStore() {
		log.Warn("[main] using in-memory booking store; data is lost on exit")
		return booking.NewMemoryRepository(), nil
	}

	coll, err := conn.Collection(ctx, cfg.Mongo.Collection)
	if err != nil {
		return nil, err
	}
	repo := booking.NewMongoRepository(coll)
	if err := repo.EnsureIndexes(ctx); err != nil {
		return nil, err
	}
	return repo, nil
}

func main() {
	cfg, err := config.Load(os.Getenv("CONFIG_PATH"))
	if err != nil {
		logrus.Fatalf("❌ Error loading config: %v", err)
	}
	log := logger.New(cfg.Logging.Level, cfg.Logging.Format)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	conn := db.NewConnector(cfg.Mongo, log)
	startCtx, cancelStart := context.WithTimeout(ctx, 15*time.Second)
	repo, err := openRepository(startCtx, cfg, conn, log)
	cancelStart()
	if err != nil {
		log.Fatalf("❌ Storage initialisation failed: %v", err)
	}

	hub := booking.NewLiveHub(log, nil)
	opts := []booking.Option{booking.WithMaxListLimit(cfg.Bookings.MaxListLimit)}

	var rdb *redis.Client
	if cfg.Redis.Address != "" {
		rdb = rdx.NewClient(cfg.Redis)
		if err := rdx.Ping(ctx, rdb); err != nil {
			log.WithError(err).Warn("[main] Redis unavailable; continuing, cache and events will retry per call")
		}
		opts = append(opts,
			booking.WithStatsCache(rdx.NewStatsCache(rdb, cfg.StatsCacheTTL(), log)),
			booking.WithEventPublisher(mq.NewRedisPublisher(rdb, log)),
		)
		go mq.StartBookingEventWorker(ctx, rdb, hub, log)
	} else {
		opts = append(opts, booking.WithEventPublisher(mq.LocalPublisher{Target: hub}))
	}

	svc := booking.NewService(repo, opts...)
	handler := booking.NewHandler(svc, log)
	rateLimiter := ratelim.NewRateLimiter(cfg.RateLimit.RPS, cfg.RateLimit.Burst)
	router := setupRouter(handler, hub, rateLimiter)

	// apply middleware: request id → recover → logging → security headers → CORS → router
	corsHandler := cors.New(cors.Options{
		AllowedOrigins: cfg.Server.CORSOrigins,
		AllowedMethods: []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders: []string{"Content-Type", middleware.RequestIDHeader},
		ExposedHeaders: []string{middleware.RequestIDHeader},
	}).Handler(router)

	h := middleware.Chain(corsHandler,
		middleware.RequestID,
		middleware.Recover(log),
		middleware.Logging(log),
		middleware.SecurityHeaders,
	)

	server := &http.Server{
		Addr:              cfg.Server.Port,
		Handler:           h,
		ReadTimeout:       7 * time.Second,
		WriteTimeout:      15 * time.Second,
		IdleTimeout:       120 * time.Second,
		ReadHeaderTimeout: 2 * time.Second,
	}

	server.RegisterOnShutdown(func() {
		log.Info("🛑 Closing live dashboard connections...")
		hub.Close()
	})

	go func() {
		log.Infof("🚀 Server listening on %s", cfg.Server.Port)
		log.Infof("📍 API URL: http://localhost%s/api", cfg.Server.Port)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("❌ ListenAndServe error: %v", err)
		}
	}()

	<-ctx.Done()

	log.Info("🛑 Shutdown signal received; shutting down gracefully...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Errorf("❌ Graceful shutdown failed: %v", err)
	}
	if err := conn.Close(shutdownCtx); err != nil {
		log.WithError(err).Warn("[main] MongoDB disconnect failed")
	}
	if rdb != nil {
		if err := rdb.Close(); err != nil {
			log.WithError(err).Warn("[main] Redis close failed")
		}
	}

	log.Info("✅ Server stopped cleanly")
}
