package tracker

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/superbearblog/media-service/internal/services/objectstore"
	"github.com/superbearblog/media-service/internal/storage"
	"github.com/superbearblog/media-service/internal/types"
)

// Tracker computes orphan candidates and serves usage lookups. All of its
// operations are pure reads.
type Tracker struct {
	storage     storage.Storage
	store       objectstore.Store
	graceWindow time.Duration
}

// NewTracker creates a new media tracker
func NewTracker(storage storage.Storage, store objectstore.Store, graceWindow time.Duration) *Tracker {
	if graceWindow <= 0 {
		graceWindow = time.Hour
	}

	return &Tracker{
		storage:     storage,
		store:       store,
		graceWindow: graceWindow,
	}
}

// FindOrphanedMedia returns all media files with zero tracked references,
// optionally limited to uploads strictly older than the cutoff.
func (t *Tracker) FindOrphanedMedia(ctx context.Context, olderThan *time.Time) ([]types.MediaFile, error) {
	return t.storage.FindOrphanedMedia(ctx, olderThan)
}

// GetMediaUsage returns the reference count and referencing entities for one
// media file.
func (t *Tracker) GetMediaUsage(ctx context.Context, mediaID string) (types.MediaUsage, error) {
	if _, err := t.storage.GetMediaFile(ctx, mediaID); err != nil {
		return types.MediaUsage{}, err
	}

	refs, err := t.storage.GetReferences(ctx, mediaID)
	if err != nil {
		return types.MediaUsage{}, fmt.Errorf("failed to load references: %w", err)
	}

	return types.MediaUsage{
		MediaID:         mediaID,
		TotalReferences: len(refs),
		References:      refs,
	}, nil
}

// VerifyOrphanStatus independently re-derives orphan status for each id:
// reference recount, grace window, remote existence, and a secondary scan of
// content tables for references the tracked table may have missed. Every item
// fails independently; a verification failure is reported in the result,
// never returned as an error.
func (t *Tracker) VerifyOrphanStatus(ctx context.Context, mediaIDs []string) []types.VerificationResult {
	results := make([]types.VerificationResult, 0, len(mediaIDs))

	for _, id := range mediaIDs {
		results = append(results, t.verifyOne(ctx, id))
	}

	return results
}

func (t *Tracker) verifyOne(ctx context.Context, mediaID string) types.VerificationResult {
	result := types.VerificationResult{
		MediaID:  mediaID,
		Warnings: []string{},
	}

	file, err := t.storage.GetMediaFile(ctx, mediaID)
	if err != nil {
		result.ReferenceCount = -1
		if errors.Is(err, storage.ErrNotFound) {
			result.Warnings = append(result.Warnings, "media file not found in reference store")
		} else {
			result.Warnings = append(result.Warnings, fmt.Sprintf("verification failed: %v", err))
		}
		return result
	}

	count, err := t.storage.CountReferences(ctx, mediaID)
	if err != nil {
		result.ReferenceCount = -1
		result.Warnings = append(result.Warnings, fmt.Sprintf("verification failed: %v", err))
		return result
	}

	result.ReferenceCount = count
	result.IsOrphaned = count == 0
	result.SafeToDelete = result.IsOrphaned

	if time.Since(file.UploadedAt) < t.graceWindow {
		result.SafeToDelete = false
		result.Warnings = append(result.Warnings, "uploaded within the last "+graceWindowLabel(t.graceWindow))
	}

	if _, err := t.store.Stat(ctx, mediaID); err != nil {
		if errors.Is(err, objectstore.ErrNotFound) {
			result.Warnings = append(result.Warnings, "file already deleted from remote store")
		} else {
			result.SafeToDelete = false
			result.Warnings = append(result.Warnings, fmt.Sprintf("failed to verify existence in remote store: %v", err))
		}
	}

	matches, err := t.storage.ScanContentForKey(ctx, mediaID)
	if err != nil {
		result.SafeToDelete = false
		result.Warnings = append(result.Warnings, fmt.Sprintf("failed to scan content for untracked references: %v", err))
		return result
	}

	if len(matches) > 0 {
		result.SafeToDelete = false
		articles, issues := 0, 0
		for _, m := range matches {
			switch m.ContentType {
			case types.ContentTypeArticle:
				articles++
			case types.ContentTypeNewsletterIssue:
				issues++
			}
		}
		if articles > 0 {
			result.Warnings = append(result.Warnings, fmt.Sprintf("found %d articles that may reference this image", articles))
		}
		if issues > 0 {
			result.Warnings = append(result.Warnings, fmt.Sprintf("found %d newsletter issues that may reference this image", issues))
		}
	}

	return result
}

func graceWindowLabel(d time.Duration) string {
	if d == time.Hour {
		return "hour"
	}
	return d.String()
}
