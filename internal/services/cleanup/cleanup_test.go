package cleanup

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/superbearblog/media-service/internal/services/tracker"
	"github.com/superbearblog/media-service/internal/storage/storagetest"
	"github.com/superbearblog/media-service/internal/types"
)

func setup() (*storagetest.Fake, *storagetest.FakeObjectStore, *Engine) {
	st := storagetest.NewFake()
	os := storagetest.NewFakeObjectStore()
	trk := tracker.NewTracker(st, os, time.Hour)
	engine := NewEngine(st, os, trk, nil, nil)
	return st, os, engine
}

func TestCleanupOrphans_DeletesSafeOrphan(t *testing.T) {
	st, os, engine := setup()

	st.AddFile("m1", 1024, 48*time.Hour)
	os.Put("m1", 1024)

	result, err := engine.CleanupOrphans(context.Background(), []string{"m1"}, false, types.OperationTypeManual)
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}

	if result.Processed != 1 || result.Deleted != 1 || result.Failed != 0 {
		t.Fatalf("Expected processed=1 deleted=1 failed=0, got %+v", result)
	}
	if result.FreedSpace != 1024 {
		t.Fatalf("Expected 1024 bytes freed, got %d", result.FreedSpace)
	}

	if len(os.DestroyCalls) != 1 || os.DestroyCalls[0] != "m1" {
		t.Fatalf("Expected exactly one destroy call for m1, got %v", os.DestroyCalls)
	}
	if _, ok := st.Files["m1"]; ok {
		t.Fatal("Expected relational row to be deleted")
	}

	orphans, _ := st.FindOrphanedMedia(context.Background(), nil)
	for _, o := range orphans {
		if o.ID == "m1" {
			t.Fatal("Deleted file must not reappear as an orphan")
		}
	}
}

func TestCleanupOrphans_DryRunIsIdempotent(t *testing.T) {
	st, os, engine := setup()

	st.AddFile("m1", 2048, 48*time.Hour)
	os.Put("m1", 2048)

	for i := 0; i < 2; i++ {
		result, err := engine.CleanupOrphans(context.Background(), []string{"m1"}, true, types.OperationTypeManual)
		if err != nil {
			t.Fatalf("Run %d: unexpected error: %v", i+1, err)
		}
		if result.Deleted != 1 || result.FreedSpace != 2048 {
			t.Fatalf("Run %d: expected deleted=1 freed=2048, got %+v", i+1, result)
		}
		if !result.DryRun {
			t.Fatalf("Run %d: expected dry run flag", i+1)
		}
	}

	if len(os.DestroyCalls) != 0 {
		t.Fatalf("Dry run must not touch the object store, destroy calls: %v", os.DestroyCalls)
	}
	if _, ok := st.Files["m1"]; !ok {
		t.Fatal("Dry run must not delete the relational row")
	}
}

func TestCleanupOrphans_PartialFailure(t *testing.T) {
	st, os, engine := setup()

	// One deletable, one inside the grace window, one with a failing remote.
	st.AddFile("ok", 100, 48*time.Hour)
	os.Put("ok", 100)
	st.AddFile("fresh", 200, 5*time.Minute)
	os.Put("fresh", 200)
	st.AddFile("flaky", 300, 48*time.Hour)
	os.Put("flaky", 300)
	os.DestroyErr["flaky"] = errors.New("rate limited")

	result, err := engine.CleanupOrphans(context.Background(), []string{"ok", "fresh", "flaky"}, false, types.OperationTypeManual)
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}

	if result.Processed != 3 || result.Deleted != 1 || result.Failed != 2 {
		t.Fatalf("Expected processed=3 deleted=1 failed=2, got %+v", result)
	}

	codes := make(map[string]string)
	for _, e := range result.Errors {
		codes[e.MediaID] = e.Code
	}
	if codes["fresh"] != types.ErrCodeUnsafeDelete {
		t.Fatalf("Expected UNSAFE_DELETE for fresh upload, got %q", codes["fresh"])
	}
	if codes["flaky"] != types.ErrCodeDeleteFailed {
		t.Fatalf("Expected DELETE_FAILED for remote failure, got %q", codes["flaky"])
	}

	for _, e := range result.Errors {
		switch e.Code {
		case types.ErrCodeUnsafeDelete:
			if e.Recoverable {
				t.Fatal("UNSAFE_DELETE must be non-recoverable")
			}
		case types.ErrCodeDeleteFailed:
			if !e.Recoverable {
				t.Fatal("DELETE_FAILED must be recoverable")
			}
		}
	}

	// The failed remote delete must leave the relational row intact.
	if _, ok := st.Files["flaky"]; !ok {
		t.Fatal("Relational row must survive a failed remote delete")
	}

	// Operation status reflects "the run finished", not per-item outcomes.
	ops, _ := st.GetCleanupHistory(context.Background(), 10)
	if len(ops) != 1 {
		t.Fatalf("Expected 1 operation record, got %d", len(ops))
	}
	if ops[0].Status != types.OperationStatusCompleted {
		t.Fatalf("Expected completed status despite item failures, got %s", ops[0].Status)
	}
	if ops[0].FilesProcessed != 3 || ops[0].FilesDeleted != 1 {
		t.Fatalf("Expected operation counts 3/1, got %d/%d", ops[0].FilesProcessed, ops[0].FilesDeleted)
	}
}

func TestCleanupOrphans_RemoteNotFoundTreatedAsSuccess(t *testing.T) {
	st, os, engine := setup()

	// Tracked in the reference store but already gone remotely.
	st.AddFile("gone", 512, 48*time.Hour)

	result, err := engine.CleanupOrphans(context.Background(), []string{"gone"}, false, types.OperationTypeManual)
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}

	if result.Deleted != 1 || result.Failed != 0 {
		t.Fatalf("Expected not-found destroy to count as success, got %+v", result)
	}
	if _, ok := st.Files["gone"]; ok {
		t.Fatal("Expected relational row to be deleted")
	}
	if len(os.DestroyCalls) != 1 {
		t.Fatalf("Expected one destroy attempt, got %v", os.DestroyCalls)
	}
}

func TestCleanupOrphans_AuditFailureAborts(t *testing.T) {
	st, os, engine := setup()

	st.AddFile("m1", 1024, 48*time.Hour)
	os.Put("m1", 1024)
	st.CreateOpErr = errors.New("database unreachable")

	result, err := engine.CleanupOrphans(context.Background(), []string{"m1"}, false, types.OperationTypeManual)
	if err == nil {
		t.Fatal("Expected error when audit record cannot be created")
	}
	if result != nil {
		t.Fatalf("Expected nil result, got %+v", result)
	}
	if len(os.DestroyCalls) != 0 {
		t.Fatal("No deletion may happen without an audit record")
	}
}

func TestCleanupOrphans_FinalizeFailurePropagates(t *testing.T) {
	st, os, engine := setup()

	st.AddFile("m1", 1024, 48*time.Hour)
	os.Put("m1", 1024)
	st.FinishOpErr = errors.New("database unreachable")

	_, err := engine.CleanupOrphans(context.Background(), []string{"m1"}, false, types.OperationTypeManual)
	if err == nil {
		t.Fatal("Expected error when audit record cannot be finalized")
	}
}

func TestPreviewCleanup(t *testing.T) {
	st, os, engine := setup()

	st.AddFile("safe", 1000, 48*time.Hour)
	os.Put("safe", 1000)
	st.AddFile("fresh", 500, 5*time.Minute)
	os.Put("fresh", 500)

	preview, err := engine.PreviewCleanup(context.Background(), nil)
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}

	if len(preview.Orphans) != 2 || len(preview.Verifications) != 2 {
		t.Fatalf("Expected 2 orphans with verifications, got %+v", preview)
	}
	if preview.SafeToDeleteCount != 1 {
		t.Fatalf("Expected 1 safe-to-delete, got %d", preview.SafeToDeleteCount)
	}
	if preview.EstimatedSpaceFreed != 1000 {
		t.Fatalf("Estimated space must sum only safe items, got %d", preview.EstimatedSpaceFreed)
	}

	// Pure read: no deletions, no audit record.
	if len(os.DestroyCalls) != 0 {
		t.Fatal("Preview must not delete anything")
	}
	if len(st.Ops) != 0 {
		t.Fatal("Preview must not create an operation record")
	}
}

func TestGetOrphanStatistics(t *testing.T) {
	st, _, engine := setup()

	st.AddFile("a", 100, 72*time.Hour)
	st.AddFile("b", 200, 24*time.Hour)
	st.AddFile("used", 400, 24*time.Hour)
	st.AddReference("used", types.ContentTypeArticle, "a1")

	stats, err := engine.GetOrphanStatistics(context.Background())
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}

	if stats.TotalOrphans != 2 || stats.TotalOrphanSize != 300 {
		t.Fatalf("Expected 2 orphans totalling 300 bytes, got %+v", stats)
	}
	if stats.OldestOrphan == nil || stats.NewestOrphan == nil {
		t.Fatal("Expected oldest/newest timestamps")
	}
	if !stats.OldestOrphan.Before(*stats.NewestOrphan) {
		t.Fatalf("Expected oldest before newest, got %v / %v", stats.OldestOrphan, stats.NewestOrphan)
	}
}

func TestGetCleanupHistory_MostRecentFirst(t *testing.T) {
	st, os, engine := setup()

	st.AddFile("m1", 100, 48*time.Hour)
	os.Put("m1", 100)

	if _, err := engine.CleanupOrphans(context.Background(), []string{"m1"}, true, types.OperationTypeScheduled); err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	time.Sleep(5 * time.Millisecond)
	if _, err := engine.CleanupOrphans(context.Background(), []string{"m1"}, true, types.OperationTypeManual); err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}

	history, err := engine.GetCleanupHistory(context.Background(), 10)
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}

	if len(history) != 2 {
		t.Fatalf("Expected 2 operations, got %d", len(history))
	}
	if history[0].Type != types.OperationTypeManual {
		t.Fatalf("Expected most recent operation first, got %+v", history[0])
	}
}
