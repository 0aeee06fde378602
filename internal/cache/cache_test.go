package cache

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-redis/redis/v8"
	"github.com/superbearblog/media-service/internal/services/cleanup"
	"github.com/superbearblog/media-service/internal/services/tracker"
	"github.com/superbearblog/media-service/internal/storage/storagetest"
	"github.com/superbearblog/media-service/internal/types"
)

func setupCache(t *testing.T) (*storagetest.Fake, *storagetest.FakeObjectStore, *CacheService, func()) {
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("Failed to start miniredis: %v", err)
	}

	redisClient := redis.NewClient(&redis.Options{Addr: mr.Addr()})

	st := storagetest.NewFake()
	os := storagetest.NewFakeObjectStore()
	trk := tracker.NewTracker(st, os, time.Hour)
	engine := cleanup.NewEngine(st, os, trk, nil, nil)
	svc := NewCacheService(trk, engine, redisClient)

	teardown := func() {
		redisClient.Close()
		mr.Close()
	}
	return st, os, svc, teardown
}

func TestGetMediaUsage_CachesResult(t *testing.T) {
	st, _, svc, teardown := setupCache(t)
	defer teardown()

	st.AddFile("m1", 100, 48*time.Hour)
	st.AddReference("m1", types.ContentTypeArticle, "a1")

	ctx := context.Background()

	usage, err := svc.GetMediaUsage(ctx, "m1")
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if usage.TotalReferences != 1 {
		t.Fatalf("Expected 1 reference, got %d", usage.TotalReferences)
	}

	// A new reference is invisible until the cache entry is invalidated.
	st.AddReference("m1", types.ContentTypeArticle, "a2")

	usage, err = svc.GetMediaUsage(ctx, "m1")
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if usage.TotalReferences != 1 {
		t.Fatalf("Expected cached value 1, got %d", usage.TotalReferences)
	}

	svc.InvalidateMedia(ctx, []string{"m1"})

	usage, err = svc.GetMediaUsage(ctx, "m1")
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if usage.TotalReferences != 2 {
		t.Fatalf("Expected fresh value 2 after invalidation, got %d", usage.TotalReferences)
	}
}

func TestGetOrphanStatistics_Cached(t *testing.T) {
	st, _, svc, teardown := setupCache(t)
	defer teardown()

	st.AddFile("m1", 100, 48*time.Hour)

	ctx := context.Background()

	stats, err := svc.GetOrphanStatistics(ctx)
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if stats.TotalOrphans != 1 {
		t.Fatalf("Expected 1 orphan, got %d", stats.TotalOrphans)
	}

	st.AddFile("m2", 100, 48*time.Hour)

	stats, _ = svc.GetOrphanStatistics(ctx)
	if stats.TotalOrphans != 1 {
		t.Fatalf("Expected cached count 1, got %d", stats.TotalOrphans)
	}

	svc.InvalidateStats(ctx)

	stats, _ = svc.GetOrphanStatistics(ctx)
	if stats.TotalOrphans != 2 {
		t.Fatalf("Expected fresh count 2, got %d", stats.TotalOrphans)
	}
}

func TestCleanupOrphans_InvalidatesCaches(t *testing.T) {
	st, os, svc, teardown := setupCache(t)
	defer teardown()

	st.AddFile("m1", 100, 48*time.Hour)
	os.Put("m1", 100)

	ctx := context.Background()

	// Warm the stats cache.
	if _, err := svc.GetOrphanStatistics(ctx); err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}

	result, err := svc.CleanupOrphans(ctx, []string{"m1"}, false, types.OperationTypeManual)
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if result.Deleted != 1 {
		t.Fatalf("Expected 1 deleted, got %+v", result)
	}

	stats, err := svc.GetOrphanStatistics(ctx)
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if stats.TotalOrphans != 0 {
		t.Fatalf("Expected stats cache invalidated after cleanup, got %d orphans", stats.TotalOrphans)
	}
}
