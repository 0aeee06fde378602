package references

import (
	"context"
	"testing"
	"time"

	"github.com/superbearblog/media-service/internal/storage/storagetest"
	"github.com/superbearblog/media-service/internal/types"
)

const body = `{
	"type": "doc",
	"content": [
		{"type": "image", "attrs": {"src": "https://cdn.example.com/upload/v7/posts/one.png"}},
		{"type": "image", "attrs": {"src": "https://cdn.example.com/upload/posts/two.jpg"}},
		{"type": "image", "attrs": {"src": "https://cdn.example.com/upload/v7/posts/one.png"}},
		{"type": "image", "attrs": {"src": "https://cdn.example.com/upload/untracked.gif"}}
	]
}`

func TestSyncContent(t *testing.T) {
	st := storagetest.NewFake()
	st.AddFile("posts/one", 100, time.Hour)
	st.AddFile("posts/two", 100, time.Hour)
	st.AddFile("covers/main", 100, time.Hour)

	syncer := NewSyncer(st)

	n, err := syncer.SyncContent(context.Background(), types.ContentTypeArticle, "a1", "Title", body,
		"https://cdn.example.com/upload/covers/main.png")
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	// Two deduplicated body images, one untracked key, one cover.
	if n != 4 {
		t.Fatalf("Expected 4 detected references, got %d", n)
	}

	for id, want := range map[string]int{"posts/one": 1, "posts/two": 1, "covers/main": 1} {
		count, err := st.CountReferences(context.Background(), id)
		if err != nil {
			t.Fatalf("Unexpected error: %v", err)
		}
		if count != want {
			t.Errorf("Expected %d references for %s, got %d", want, id, count)
		}
	}

	refs, _ := st.GetReferences(context.Background(), "covers/main")
	if len(refs) != 1 || refs[0].Context != types.ReferenceContextCoverImage {
		t.Fatalf("Expected cover image reference context, got %+v", refs)
	}
}

func TestSyncContent_IdempotentRescan(t *testing.T) {
	st := storagetest.NewFake()
	st.AddFile("posts/one", 100, time.Hour)
	st.AddFile("posts/two", 100, time.Hour)

	syncer := NewSyncer(st)

	for i := 0; i < 3; i++ {
		if _, err := syncer.SyncContent(context.Background(), types.ContentTypeArticle, "a1", "Title", body, ""); err != nil {
			t.Fatalf("Run %d: unexpected error: %v", i+1, err)
		}
	}

	count, _ := st.CountReferences(context.Background(), "posts/one")
	if count != 1 {
		t.Fatalf("Re-scan must not duplicate references, got %d", count)
	}
}

func TestSyncContent_EditRemovesStaleReferences(t *testing.T) {
	st := storagetest.NewFake()
	st.AddFile("posts/one", 100, time.Hour)
	st.AddFile("posts/two", 100, time.Hour)

	syncer := NewSyncer(st)

	if _, err := syncer.SyncContent(context.Background(), types.ContentTypeArticle, "a1", "Title", body, ""); err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}

	edited := `{"type": "doc", "content": [
		{"type": "image", "attrs": {"src": "https://cdn.example.com/upload/posts/two.jpg"}}
	]}`
	if _, err := syncer.SyncContent(context.Background(), types.ContentTypeArticle, "a1", "Title", edited, ""); err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}

	count, _ := st.CountReferences(context.Background(), "posts/one")
	if count != 0 {
		t.Fatalf("Removed image must lose its reference, got %d", count)
	}
	count, _ = st.CountReferences(context.Background(), "posts/two")
	if count != 1 {
		t.Fatalf("Kept image must keep its reference, got %d", count)
	}
}

func TestRemoveContent(t *testing.T) {
	st := storagetest.NewFake()
	st.AddFile("posts/one", 100, time.Hour)

	syncer := NewSyncer(st)

	if _, err := syncer.SyncContent(context.Background(), types.ContentTypeArticle, "a1", "Title", body, ""); err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if err := syncer.RemoveContent(context.Background(), types.ContentTypeArticle, "a1"); err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}

	count, _ := st.CountReferences(context.Background(), "posts/one")
	if count != 0 {
		t.Fatalf("Expected references removed with content, got %d", count)
	}
}
