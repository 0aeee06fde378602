package main

import (
	"context"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/superbearblog/media-service/internal/config"
	"github.com/superbearblog/media-service/internal/services/cleanup"
	"github.com/superbearblog/media-service/internal/services/objectstore"
	"github.com/superbearblog/media-service/internal/services/tracker"
	"github.com/superbearblog/media-service/internal/storage/postgres"
	"github.com/superbearblog/media-service/internal/types"
)

// CleanupWorker runs the orphan sweep on a fixed interval. Each tick previews
// the current orphan set and deletes only what re-verifies as safe.
type CleanupWorker struct {
	engine        *cleanup.Engine
	tracker       *tracker.Tracker
	interval      time.Duration
	olderThanDays int
	logger        *slog.Logger
}

func NewCleanupWorker(engine *cleanup.Engine, trk *tracker.Tracker, interval time.Duration, olderThanDays int) *CleanupWorker {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))

	return &CleanupWorker{
		engine:        engine,
		tracker:       trk,
		interval:      interval,
		olderThanDays: olderThanDays,
		logger:        logger,
	}
}

func (cw *CleanupWorker) Start(ctx context.Context) {
	ticker := time.NewTicker(cw.interval)
	defer ticker.Stop()

	cw.logger.Info("Cleanup worker started",
		"interval", cw.interval.String(),
		"older_than_days", cw.olderThanDays)

	// Run once immediately on startup
	cw.sweepOrphans(ctx)

	for {
		select {
		case <-ctx.Done():
			cw.logger.Info("Cleanup worker shutting down")
			return
		case <-ticker.C:
			cw.sweepOrphans(ctx)
		}
	}
}

func (cw *CleanupWorker) sweepOrphans(ctx context.Context) {
	startTime := time.Now()

	cw.logger.Info("Starting orphan sweep")

	var cutoff *time.Time
	if cw.olderThanDays > 0 {
		t := time.Now().UTC().AddDate(0, 0, -cw.olderThanDays)
		cutoff = &t
	}

	orphans, err := cw.tracker.FindOrphanedMedia(ctx, cutoff)
	if err != nil {
		cw.logger.Error("Failed to find orphaned media",
			"error", err.Error(),
			"duration_ms", time.Since(startTime).Milliseconds())
		return
	}

	if len(orphans) == 0 {
		cw.logger.Info("No orphans to sweep",
			"duration_ms", time.Since(startTime).Milliseconds())
		return
	}

	mediaIDs := make([]string, len(orphans))
	for i, o := range orphans {
		mediaIDs[i] = o.ID
	}

	result, err := cw.engine.CleanupOrphans(ctx, mediaIDs, false, types.OperationTypeScheduled)
	if err != nil {
		cw.logger.Error("Orphan sweep failed",
			"error", err.Error(),
			"duration_ms", time.Since(startTime).Milliseconds())
		return
	}

	duration := time.Since(startTime)

	cw.logger.Info("Completed orphan sweep",
		"operation_id", result.OperationID,
		"processed", result.Processed,
		"deleted", result.Deleted,
		"failed", result.Failed,
		"bytes_freed", result.FreedSpace,
		"duration_ms", duration.Milliseconds(),
		"duration", duration.String())
}

func main() {
	// Load config
	cfg := config.MustLoad()

	// Initialize database connection
	storage, err := postgres.NewPostgres(cfg)
	if err != nil {
		log.Fatal("Failed to initialize database:", err)
	}
	slog.Info("Connected to Postgres database")

	// Initialize object store connection
	store, err := objectstore.NewService(cfg)
	if err != nil {
		log.Fatal("Failed to initialize object store:", err)
	}
	slog.Info("Connected to object store")

	trk := tracker.NewTracker(storage, store, cfg.Cleanup.GraceWindow)
	engine := cleanup.NewEngine(storage, store, trk, nil, slog.Default())

	worker := NewCleanupWorker(engine, trk, cfg.Cleanup.WorkerInterval, cfg.Cleanup.OlderThanDays)

	// Setup graceful shutdown
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Handle shutdown signals
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		<-sigCh
		slog.Info("Received shutdown signal")
		cancel()
	}()

	// Start the worker
	worker.Start(ctx)

	slog.Info("Cleanup worker stopped")
}
