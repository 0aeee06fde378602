package references

import (
	"context"
	"fmt"

	"github.com/superbearblog/media-service/internal/content"
	"github.com/superbearblog/media-service/internal/storage"
	"github.com/superbearblog/media-service/internal/types"
)

// Syncer keeps the tracked reference table in line with what content actually
// embeds. It is invoked whenever a content entity is created or edited.
type Syncer struct {
	storage storage.Storage
}

// NewSyncer creates a new reference syncer
func NewSyncer(storage storage.Storage) *Syncer {
	return &Syncer{
		storage: storage,
	}
}

// SyncContent stores the content row, parses its body and cover image for
// embedded media, and replaces the entity's reference rows. Re-running on
// unchanged content is a no-op at the data level. Returns the number of
// media references detected in the content.
func (s *Syncer) SyncContent(ctx context.Context, contentType types.ContentType, contentID, title, body, coverImageURL string) (int, error) {
	if err := s.storage.UpsertContent(ctx, contentType, contentID, title, body, coverImageURL); err != nil {
		return 0, fmt.Errorf("failed to store content: %w", err)
	}

	var refs []types.MediaReference

	seen := make(map[string]bool)
	for _, key := range content.ExtractObjectKeys(body) {
		if seen[key] {
			continue
		}
		seen[key] = true
		refs = append(refs, types.MediaReference{
			MediaID: key,
			Context: types.ReferenceContextContent,
		})
	}

	if coverImageURL != "" {
		if key, ok := content.ExtractObjectKey(coverImageURL); ok {
			refs = append(refs, types.MediaReference{
				MediaID: key,
				Context: types.ReferenceContextCoverImage,
			})
		}
	}

	if err := s.storage.ReplaceReferences(ctx, contentType, contentID, refs); err != nil {
		return 0, fmt.Errorf("failed to replace references: %w", err)
	}

	return len(refs), nil
}

// RemoveContent drops all reference rows held by a deleted content entity.
func (s *Syncer) RemoveContent(ctx context.Context, contentType types.ContentType, contentID string) error {
	return s.storage.DeleteReferencesForContent(ctx, contentType, contentID)
}
