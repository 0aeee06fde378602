package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/superbearblog/media-service/internal/services/cleanup"
	"github.com/superbearblog/media-service/internal/services/tracker"
	"github.com/superbearblog/media-service/internal/types"
)

// CacheService wraps the read paths of the tracker and cleanup engine with
// Redis caching. Writes go straight to the engine and invalidate.
type CacheService struct {
	tracker *tracker.Tracker
	engine  *cleanup.Engine
	redis   *redis.Client
}

// NewCacheService creates a new cache service
func NewCacheService(trk *tracker.Tracker, engine *cleanup.Engine, redisClient *redis.Client) *CacheService {
	return &CacheService{
		tracker: trk,
		engine:  engine,
		redis:   redisClient,
	}
}

// Cache key patterns
const (
	MediaUsageKey  = "media:usage:%s" // media:usage:mediaID
	OrphanStatsKey = "media:orphan_stats"
)

// Cache durations
const (
	UsageCacheDuration = 2 * time.Minute // usage changes only on content saves
	StatsCacheDuration = 2 * time.Minute
)

// GetMediaUsage returns cached usage or fetches from the tracker
func (c *CacheService) GetMediaUsage(ctx context.Context, mediaID string) (types.MediaUsage, error) {
	key := fmt.Sprintf(MediaUsageKey, mediaID)

	// Try cache first
	cached, err := c.redis.Get(ctx, key).Result()
	if err == nil {
		var usage types.MediaUsage
		if err := json.Unmarshal([]byte(cached), &usage); err == nil {
			return usage, nil
		}
	}

	// Cache miss - fetch from the store
	usage, err := c.tracker.GetMediaUsage(ctx, mediaID)
	if err != nil {
		return usage, err
	}

	data, _ := json.Marshal(usage)
	c.redis.Set(ctx, key, data, UsageCacheDuration)

	return usage, nil
}

// GetOrphanStatistics returns cached statistics or fetches from the engine
func (c *CacheService) GetOrphanStatistics(ctx context.Context) (types.OrphanStatistics, error) {
	cached, err := c.redis.Get(ctx, OrphanStatsKey).Result()
	if err == nil {
		var stats types.OrphanStatistics
		if err := json.Unmarshal([]byte(cached), &stats); err == nil {
			return stats, nil
		}
	}

	stats, err := c.engine.GetOrphanStatistics(ctx)
	if err != nil {
		return stats, err
	}

	data, _ := json.Marshal(stats)
	c.redis.Set(ctx, OrphanStatsKey, data, StatsCacheDuration)

	return stats, nil
}

// InvalidateMedia clears cached state for specific media ids
func (c *CacheService) InvalidateMedia(ctx context.Context, mediaIDs []string) {
	if len(mediaIDs) == 0 {
		return
	}

	keys := make([]string, len(mediaIDs))
	for i, id := range mediaIDs {
		keys[i] = fmt.Sprintf(MediaUsageKey, id)
	}

	c.redis.Del(ctx, keys...)
}

// InvalidateStats clears the cached orphan statistics
func (c *CacheService) InvalidateStats(ctx context.Context) {
	c.redis.Del(ctx, OrphanStatsKey)
}

// CleanupOrphans runs a cleanup through the engine and invalidates every
// cache entry the run may have made stale.
func (c *CacheService) CleanupOrphans(ctx context.Context, mediaIDs []string, dryRun bool, opType types.OperationType) (*types.CleanupResult, error) {
	result, err := c.engine.CleanupOrphans(ctx, mediaIDs, dryRun, opType)
	if err != nil {
		return nil, err
	}

	if !dryRun && result.Deleted > 0 {
		c.InvalidateMedia(ctx, mediaIDs)
		c.InvalidateStats(ctx)
	}

	return result, nil
}
