package main

import (
	"context"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	httpSwagger "github.com/swaggo/http-swagger"

	"github.com/superbearblog/media-service/internal/cache"
	"github.com/superbearblog/media-service/internal/config"
	"github.com/superbearblog/media-service/internal/events"
	contenthandler "github.com/superbearblog/media-service/internal/http/handlers/content"
	"github.com/superbearblog/media-service/internal/http/handlers/media"
	wshandler "github.com/superbearblog/media-service/internal/http/handlers/websocket"
	"github.com/superbearblog/media-service/internal/http/middleware"
	"github.com/superbearblog/media-service/internal/services/cleanup"
	"github.com/superbearblog/media-service/internal/services/objectstore"
	"github.com/superbearblog/media-service/internal/services/references"
	"github.com/superbearblog/media-service/internal/services/tracker"
	"github.com/superbearblog/media-service/internal/storage/postgres"
	"github.com/superbearblog/media-service/internal/websocket"
)

// @title Media Service API
// @version 1.0
// @description Media reference tracking and orphan cleanup for the blog CMS.
// @BasePath /
func main() {
	// load config
	cfg := config.MustLoad()

	// database setup
	storage, err := postgres.NewPostgres(cfg)
	if err != nil {
		log.Fatal("Failed to initialize database:", err)
	}
	slog.Info("Connected to Postgres database")

	// object store setup
	store, err := objectstore.NewService(cfg)
	if err != nil {
		log.Fatal("Failed to initialize object store:", err)
	}
	slog.Info("Connected to object store")

	// redis setup
	redisClient := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Address,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	if _, err := redisClient.Ping(context.Background()).Result(); err != nil {
		log.Fatal("Failed to connect to Redis:", err)
	}
	slog.Info("Connected to Redis")

	// websocket hub for live cleanup events
	hub := websocket.NewHub()
	go hub.Run()

	// service graph
	publisher := events.NewEventPublisher(hub)
	trk := tracker.NewTracker(storage, store, cfg.Cleanup.GraceWindow)
	engine := cleanup.NewEngine(storage, store, trk, publisher, slog.Default())
	cacheService := cache.NewCacheService(trk, engine, redisClient)
	syncer := references.NewSyncer(storage)
	rateLimits := middleware.NewRateLimitConfig(redisClient)

	// setup server
	router := http.NewServeMux()

	router.HandleFunc("GET /health", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("OK"))
	})

	router.HandleFunc("GET /api/admin/media", media.List(storage))
	router.HandleFunc("POST /api/admin/media", media.RegisterUpload(storage, store))
	router.HandleFunc("GET /api/admin/media/orphans", media.Orphans(trk))
	router.HandleFunc("GET /api/admin/media/usage/{id...}", media.Usage(cacheService))
	router.HandleFunc("GET /api/admin/media/stats", media.Stats(cacheService))
	router.HandleFunc("POST /api/admin/media/upload-url", media.UploadURL(store))

	router.HandleFunc("GET /api/admin/media/cleanup/preview", media.Preview(engine))
	router.HandleFunc("GET /api/admin/media/cleanup/history", media.History(engine))
	router.Handle("POST /api/admin/media/cleanup",
		rateLimits.RateLimitedHandler("cleanup", media.Cleanup(cacheService, trk)))

	router.Handle("POST /api/admin/content/sync",
		rateLimits.RateLimitedHandler("content_sync", contenthandler.Sync(syncer)))
	router.HandleFunc("DELETE /api/admin/content/{type}/{id}", contenthandler.Remove(syncer))

	router.HandleFunc("GET /ws/admin", wshandler.Serve(hub))

	router.Handle("GET /metrics", promhttp.Handler())
	router.Handle("GET /swagger/", httpSwagger.WrapHandler)

	server := http.Server{
		Addr:    cfg.HTTPServer.Address,
		Handler: middleware.Metrics(router),
	}

	log.Println("server started on", cfg.HTTPServer.Address)

	done := make(chan os.Signal, 1)
	signal.Notify(done, os.Interrupt, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		err := server.ListenAndServe()
		if err != nil && err != http.ErrServerClosed {
			log.Fatalf("failed to start server: %s", err)
		}
	}()

	<-done

	slog.Info("Shutting down server...")
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	err = server.Shutdown(ctx)
	if err != nil {
		slog.Error("failed to gracefully shutdown server", slog.String("error", err.Error()))
		return
	}

	slog.Info("Server stopped")
}
