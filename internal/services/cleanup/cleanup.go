package cleanup

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/superbearblog/media-service/internal/events"
	"github.com/superbearblog/media-service/internal/services/objectstore"
	"github.com/superbearblog/media-service/internal/services/tracker"
	"github.com/superbearblog/media-service/internal/storage"
	"github.com/superbearblog/media-service/internal/types"
)

// Engine deletes verified-safe orphans from the object store and the
// reference store, recording every run as an auditable CleanupOperation.
type Engine struct {
	storage   storage.Storage
	store     objectstore.Store
	tracker   *tracker.Tracker
	publisher events.Publisher
	logger    *slog.Logger
}

// NewEngine creates a new cleanup engine
func NewEngine(storage storage.Storage, store objectstore.Store, trk *tracker.Tracker, publisher events.Publisher, logger *slog.Logger) *Engine {
	if publisher == nil {
		publisher = events.NoopPublisher{}
	}
	if logger == nil {
		logger = slog.Default()
	}

	return &Engine{
		storage:   storage,
		store:     store,
		tracker:   trk,
		publisher: publisher,
		logger:    logger,
	}
}

// GetOrphanStatistics aggregates over the current orphan set.
func (e *Engine) GetOrphanStatistics(ctx context.Context) (types.OrphanStatistics, error) {
	orphans, err := e.tracker.FindOrphanedMedia(ctx, nil)
	if err != nil {
		return types.OrphanStatistics{}, fmt.Errorf("failed to find orphaned media: %w", err)
	}

	stats := types.OrphanStatistics{TotalOrphans: len(orphans)}
	for _, o := range orphans {
		stats.TotalOrphanSize += o.Size

		uploadedAt := o.UploadedAt
		if stats.OldestOrphan == nil || uploadedAt.Before(*stats.OldestOrphan) {
			t := uploadedAt
			stats.OldestOrphan = &t
		}
		if stats.NewestOrphan == nil || uploadedAt.After(*stats.NewestOrphan) {
			t := uploadedAt
			stats.NewestOrphan = &t
		}
	}

	return stats, nil
}

// PreviewCleanup reports what a cleanup run over the current orphan set would
// do. Pure read: nothing is deleted and no operation record is created.
func (e *Engine) PreviewCleanup(ctx context.Context, olderThan *time.Time) (types.CleanupPreview, error) {
	orphans, err := e.tracker.FindOrphanedMedia(ctx, olderThan)
	if err != nil {
		return types.CleanupPreview{}, fmt.Errorf("failed to find orphaned media: %w", err)
	}

	ids := make([]string, len(orphans))
	sizes := make(map[string]int64, len(orphans))
	for i, o := range orphans {
		ids[i] = o.ID
		sizes[o.ID] = o.Size
	}

	verifications := e.tracker.VerifyOrphanStatus(ctx, ids)

	preview := types.CleanupPreview{
		Orphans:       orphans,
		Verifications: verifications,
	}
	for _, v := range verifications {
		if v.SafeToDelete {
			preview.SafeToDeleteCount++
			preview.EstimatedSpaceFreed += sizes[v.MediaID]
		}
	}

	return preview, nil
}

// CleanupOrphans deletes the requested media ids after re-verifying each one.
// Items are processed sequentially and fail independently; the returned error
// is non-nil only when the audit record itself cannot be written, in which
// case nothing is deleted (operation-record failure is fatal by design).
func (e *Engine) CleanupOrphans(ctx context.Context, mediaIDs []string, dryRun bool, opType types.OperationType) (*types.CleanupResult, error) {
	op := types.CleanupOperation{
		ID:        uuid.New().String(),
		Type:      opType,
		Status:    types.OperationStatusRunning,
		DryRun:    dryRun,
		StartedAt: time.Now().UTC(),
	}

	if err := e.storage.CreateCleanupOperation(ctx, op); err != nil {
		return nil, fmt.Errorf("failed to create cleanup operation record: %w", err)
	}

	e.publisher.PublishCleanupStarted(op, len(mediaIDs))
	e.logger.Info("Cleanup run started",
		slog.String("operation_id", op.ID),
		slog.String("type", string(opType)),
		slog.Bool("dry_run", dryRun),
		slog.Int("media_count", len(mediaIDs)))

	result := &types.CleanupResult{
		OperationID: op.ID,
		Errors:      []types.CleanupError{},
		DryRun:      dryRun,
	}

	// Never trust the caller's claim that something is an orphan.
	verifications := e.tracker.VerifyOrphanStatus(ctx, mediaIDs)

	for _, v := range verifications {
		result.Processed++

		if !v.SafeToDelete {
			reason := "failed safe-to-delete check"
			if len(v.Warnings) > 0 {
				reason = v.Warnings[0]
			}
			e.recordError(result, v.MediaID, reason, types.ErrCodeUnsafeDelete, false)
			continue
		}

		file, err := e.storage.GetMediaFile(ctx, v.MediaID)
		if err != nil {
			e.recordError(result, v.MediaID, fmt.Sprintf("failed to load media file: %v", err), types.ErrCodeDeleteFailed, true)
			continue
		}

		if dryRun {
			result.Deleted++
			result.FreedSpace += file.Size
			continue
		}

		// Remote first; a missing remote object counts as already deleted.
		if err := e.store.Destroy(ctx, v.MediaID); err != nil && !errors.Is(err, objectstore.ErrNotFound) {
			e.recordError(result, v.MediaID, fmt.Sprintf("failed to delete from remote store: %v", err), types.ErrCodeDeleteFailed, true)
			continue
		}

		if err := e.storage.DeleteMediaFile(ctx, v.MediaID); err != nil {
			e.recordError(result, v.MediaID, fmt.Sprintf("failed to delete media record: %v", err), types.ErrCodeDeleteFailed, true)
			continue
		}

		result.Deleted++
		result.FreedSpace += file.Size
		filesDeletedTotal.Inc()
		bytesFreedTotal.Add(float64(file.Size))
		e.publisher.PublishMediaDeleted(op.ID, v.MediaID, file.Size)
	}

	var errorMessage string
	if result.Failed > 0 {
		errorMessage = fmt.Sprintf("%d of %d items failed", result.Failed, result.Processed)
	}

	// The operation finished, so it is "completed" even when individual
	// items failed; per-item failures live in the result's error list.
	if err := e.storage.FinishCleanupOperation(ctx, op.ID, result.Processed, result.Deleted, result.FreedSpace, errorMessage); err != nil {
		return nil, fmt.Errorf("failed to finalize cleanup operation record: %w", err)
	}

	cleanupRunsTotal.WithLabelValues(string(opType), strconv.FormatBool(dryRun)).Inc()
	e.publisher.PublishCleanupCompleted(*result)
	e.logger.Info("Cleanup run completed",
		slog.String("operation_id", op.ID),
		slog.Int("processed", result.Processed),
		slog.Int("deleted", result.Deleted),
		slog.Int("failed", result.Failed),
		slog.Int64("freed_space", result.FreedSpace))

	return result, nil
}

func (e *Engine) recordError(result *types.CleanupResult, mediaID, message, code string, recoverable bool) {
	result.Failed++
	result.Errors = append(result.Errors, types.CleanupError{
		MediaID:     mediaID,
		Message:     message,
		Code:        code,
		Recoverable: recoverable,
	})
	itemFailuresTotal.WithLabelValues(code).Inc()
}

// GetCleanupHistory returns past operations, most recent first.
func (e *Engine) GetCleanupHistory(ctx context.Context, limit int) ([]types.CleanupOperation, error) {
	return e.storage.GetCleanupHistory(ctx, limit)
}
