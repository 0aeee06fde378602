// Package storagetest provides in-memory fakes of the storage and object
// store interfaces for tests.
package storagetest

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/superbearblog/media-service/internal/services/objectstore"
	"github.com/superbearblog/media-service/internal/storage"
	"github.com/superbearblog/media-service/internal/types"
)

type contentKey struct {
	Type types.ContentType
	ID   string
}

type contentRow struct {
	Title string
	Body  string
	Cover string
}

// Fake is an in-memory storage.Storage. Error fields, when set, are returned
// by the corresponding method to exercise failure paths.
type Fake struct {
	mu      sync.Mutex
	Files   map[string]types.MediaFile
	Refs    []types.MediaReference
	content map[contentKey]contentRow
	Ops     map[string]*types.CleanupOperation

	// Extra matches returned by ScanContentForKey on top of stored content.
	ContentMatches map[string][]types.ContentMatch

	GetMediaFileErr    error
	CountReferencesErr error
	ScanContentErr     error
	CreateOpErr        error
	FinishOpErr        error
	DeleteMediaErr     error
}

func NewFake() *Fake {
	return &Fake{
		Files:          make(map[string]types.MediaFile),
		content:        make(map[contentKey]contentRow),
		Ops:            make(map[string]*types.CleanupOperation),
		ContentMatches: make(map[string][]types.ContentMatch),
	}
}

// AddFile registers a media file uploaded the given duration ago.
func (f *Fake) AddFile(id string, size int64, age time.Duration) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Files[id] = types.MediaFile{
		ID:         id,
		URL:        "https://cdn.example.com/upload/" + id + ".png",
		FileName:   id + ".png",
		Size:       size,
		UploadedAt: time.Now().Add(-age),
	}
}

// AddReference records a tracked reference to a media file.
func (f *Fake) AddReference(mediaID string, ct types.ContentType, contentID string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Refs = append(f.Refs, types.MediaReference{
		ID:          uuid.New().String(),
		MediaID:     mediaID,
		ContentType: ct,
		ContentID:   contentID,
		Context:     types.ReferenceContextContent,
		CreatedAt:   time.Now(),
	})
}

func (f *Fake) CreateMediaFile(ctx context.Context, file types.MediaFile) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Files[file.ID] = file
	return nil
}

func (f *Fake) GetMediaFile(ctx context.Context, id string) (types.MediaFile, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.GetMediaFileErr != nil {
		return types.MediaFile{}, f.GetMediaFileErr
	}
	file, ok := f.Files[id]
	if !ok {
		return types.MediaFile{}, storage.ErrNotFound
	}
	return file, nil
}

func (f *Fake) ListMediaFiles(ctx context.Context) ([]types.MediaFile, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	files := make([]types.MediaFile, 0, len(f.Files))
	for _, file := range f.Files {
		files = append(files, file)
	}
	return files, nil
}

func (f *Fake) DeleteMediaFile(ctx context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.DeleteMediaErr != nil {
		return f.DeleteMediaErr
	}
	if _, ok := f.Files[id]; !ok {
		return storage.ErrNotFound
	}
	delete(f.Files, id)
	return nil
}

func (f *Fake) FindOrphanedMedia(ctx context.Context, olderThan *time.Time) ([]types.MediaFile, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	referenced := make(map[string]bool)
	for _, r := range f.Refs {
		referenced[r.MediaID] = true
	}

	var orphans []types.MediaFile
	for _, file := range f.Files {
		if referenced[file.ID] {
			continue
		}
		if olderThan != nil && !file.UploadedAt.Before(*olderThan) {
			continue
		}
		orphans = append(orphans, file)
	}
	return orphans, nil
}

func (f *Fake) CountReferences(ctx context.Context, mediaID string) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.CountReferencesErr != nil {
		return 0, f.CountReferencesErr
	}
	count := 0
	for _, r := range f.Refs {
		if r.MediaID == mediaID {
			count++
		}
	}
	return count, nil
}

func (f *Fake) GetReferences(ctx context.Context, mediaID string) ([]types.MediaReference, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var refs []types.MediaReference
	for _, r := range f.Refs {
		if r.MediaID == mediaID {
			refs = append(refs, r)
		}
	}
	return refs, nil
}

func (f *Fake) ReplaceReferences(ctx context.Context, contentType types.ContentType, contentID string, refs []types.MediaReference) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	kept := f.Refs[:0]
	for _, r := range f.Refs {
		if r.ContentType == contentType && r.ContentID == contentID {
			continue
		}
		kept = append(kept, r)
	}
	f.Refs = kept

	for _, ref := range refs {
		if _, ok := f.Files[ref.MediaID]; !ok {
			continue
		}
		f.Refs = append(f.Refs, types.MediaReference{
			ID:          uuid.New().String(),
			MediaID:     ref.MediaID,
			ContentType: contentType,
			ContentID:   contentID,
			Context:     ref.Context,
			CreatedAt:   time.Now(),
		})
	}
	return nil
}

func (f *Fake) DeleteReferencesForContent(ctx context.Context, contentType types.ContentType, contentID string) error {
	return f.ReplaceReferences(ctx, contentType, contentID, nil)
}

func (f *Fake) UpsertContent(ctx context.Context, contentType types.ContentType, contentID, title, body, coverImageURL string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.content[contentKey{contentType, contentID}] = contentRow{Title: title, Body: body, Cover: coverImageURL}
	return nil
}

func (f *Fake) ScanContentForKey(ctx context.Context, key string) ([]types.ContentMatch, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.ScanContentErr != nil {
		return nil, f.ScanContentErr
	}

	var matches []types.ContentMatch
	for ck, row := range f.content {
		if key != "" && (strings.Contains(row.Body, key) || strings.Contains(row.Cover, key)) {
			matches = append(matches, types.ContentMatch{
				ContentType: ck.Type,
				ContentID:   ck.ID,
				Title:       row.Title,
			})
		}
	}
	matches = append(matches, f.ContentMatches[key]...)
	return matches, nil
}

func (f *Fake) CreateCleanupOperation(ctx context.Context, op types.CleanupOperation) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.CreateOpErr != nil {
		return f.CreateOpErr
	}
	stored := op
	f.Ops[op.ID] = &stored
	return nil
}

func (f *Fake) FinishCleanupOperation(ctx context.Context, id string, processed, deleted int, bytesFreed int64, errorMessage string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.FinishOpErr != nil {
		return f.FinishOpErr
	}
	op, ok := f.Ops[id]
	if !ok {
		return storage.ErrNotFound
	}
	now := time.Now()
	op.Status = types.OperationStatusCompleted
	op.CompletedAt = &now
	op.FilesProcessed = processed
	op.FilesDeleted = deleted
	op.BytesFreed = bytesFreed
	op.ErrorMessage = errorMessage
	return nil
}

func (f *Fake) GetCleanupHistory(ctx context.Context, limit int) ([]types.CleanupOperation, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	ops := make([]types.CleanupOperation, 0, len(f.Ops))
	for _, op := range f.Ops {
		ops = append(ops, *op)
	}
	for i := 0; i < len(ops); i++ {
		for j := i + 1; j < len(ops); j++ {
			if ops[j].StartedAt.After(ops[i].StartedAt) {
				ops[i], ops[j] = ops[j], ops[i]
			}
		}
	}
	if limit > 0 && len(ops) > limit {
		ops = ops[:limit]
	}
	return ops, nil
}

// FakeObjectStore is an in-memory objectstore.Store.
type FakeObjectStore struct {
	mu           sync.Mutex
	Objects      map[string]objectstore.ObjectInfo
	DestroyErr   map[string]error
	StatErr      error
	DestroyCalls []string
}

func NewFakeObjectStore() *FakeObjectStore {
	return &FakeObjectStore{
		Objects:    make(map[string]objectstore.ObjectInfo),
		DestroyErr: make(map[string]error),
	}
}

// Put registers an object in the fake remote store.
func (f *FakeObjectStore) Put(key string, size int64) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Objects[key] = objectstore.ObjectInfo{Key: key, Size: size, LastModified: time.Now()}
}

func (f *FakeObjectStore) Destroy(ctx context.Context, key string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.DestroyCalls = append(f.DestroyCalls, key)
	if err, ok := f.DestroyErr[key]; ok {
		return err
	}
	if _, ok := f.Objects[key]; !ok {
		return objectstore.ErrNotFound
	}
	delete(f.Objects, key)
	return nil
}

func (f *FakeObjectStore) Stat(ctx context.Context, key string) (objectstore.ObjectInfo, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.StatErr != nil {
		return objectstore.ObjectInfo{}, f.StatErr
	}
	info, ok := f.Objects[key]
	if !ok {
		return objectstore.ObjectInfo{}, objectstore.ErrNotFound
	}
	return info, nil
}
