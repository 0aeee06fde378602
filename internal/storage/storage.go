package storage

import (
	"context"
	"errors"
	"time"

	"github.com/superbearblog/media-service/internal/types"
)

// ErrNotFound is returned when a requested row does not exist.
var ErrNotFound = errors.New("not found")

type Storage interface {
	// Media files
	CreateMediaFile(ctx context.Context, file types.MediaFile) error
	GetMediaFile(ctx context.Context, id string) (types.MediaFile, error)
	ListMediaFiles(ctx context.Context) ([]types.MediaFile, error)
	DeleteMediaFile(ctx context.Context, id string) error
	FindOrphanedMedia(ctx context.Context, olderThan *time.Time) ([]types.MediaFile, error)

	// Media references
	CountReferences(ctx context.Context, mediaID string) (int, error)
	GetReferences(ctx context.Context, mediaID string) ([]types.MediaReference, error)
	ReplaceReferences(ctx context.Context, contentType types.ContentType, contentID string, refs []types.MediaReference) error
	DeleteReferencesForContent(ctx context.Context, contentType types.ContentType, contentID string) error

	// Content entities (minimal rows backing the secondary scan)
	UpsertContent(ctx context.Context, contentType types.ContentType, contentID, title, body, coverImageURL string) error
	ScanContentForKey(ctx context.Context, key string) ([]types.ContentMatch, error)

	// Cleanup operations
	CreateCleanupOperation(ctx context.Context, op types.CleanupOperation) error
	FinishCleanupOperation(ctx context.Context, id string, processed, deleted int, bytesFreed int64, errorMessage string) error
	GetCleanupHistory(ctx context.Context, limit int) ([]types.CleanupOperation, error)
}
