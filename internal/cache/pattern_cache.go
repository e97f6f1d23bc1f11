package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/retailpulse/retailpulse-go/internal/logging"
	"github.com/retailpulse/retailpulse-go/internal/models"
)

// PatternCacheEntry wraps a cached seasonal pattern with metadata.
type PatternCacheEntry struct {
	Pattern  *models.SeasonalPattern `json:"pattern"`
	CachedAt time.Time               `json:"cached_at"`
}

// PatternCacheStats tracks cache performance counters.
type PatternCacheStats struct {
	Hits   int64 `json:"hits"`
	Misses int64 `json:"misses"`
	Sets   int64 `json:"sets"`
	mu     sync.RWMutex
}

// RedisPatternCache stores detected seasonal patterns in Redis so repeat
// analyses of the same product skip re-detection. Entries expire via TTL;
// detection always wins over a stale or missing entry.
type RedisPatternCache struct {
	redis  *redis.Client
	ttl    time.Duration
	stats  *PatternCacheStats
	prefix string
	logger logging.Logger
}

// NewRedisPatternCache creates a Redis-backed pattern cache.
func NewRedisPatternCache(redisClient *redis.Client, ttl time.Duration, logger logging.Logger) *RedisPatternCache {
	return &RedisPatternCache{
		redis:  redisClient,
		ttl:    ttl,
		stats:  &PatternCacheStats{},
		prefix: "pattern_cache:",
		logger: logger,
	}
}

func (c *RedisPatternCache) key(ownerID, productID string, granularity models.Granularity) string {
	return fmt.Sprintf("%s%s:%s:%s", c.prefix, ownerID, productID, granularity)
}

// GetPattern returns the cached pattern, or (nil, nil) on a miss. Transport
// errors are returned so the caller can log them; decode failures count as
// misses because re-detection repairs them.
func (c *RedisPatternCache) GetPattern(ctx context.Context, ownerID, productID string, granularity models.Granularity) (*models.SeasonalPattern, error) {
	started := time.Now()
	cacheKey := c.key(ownerID, productID, granularity)

	data, err := c.redis.Get(ctx, cacheKey).Result()
	if err == redis.Nil {
		c.miss()
		c.logger.LogCacheOperation("get", cacheKey, false, time.Since(started).Milliseconds())
		return nil, nil
	}
	if err != nil {
		c.miss()
		return nil, fmt.Errorf("failed to read pattern cache: %w", err)
	}

	var entry PatternCacheEntry
	if err := json.Unmarshal([]byte(data), &entry); err != nil {
		c.miss()
		c.logger.WithError(err).Warn("Discarding undecodable pattern cache entry")
		return nil, nil
	}

	c.hit()
	c.logger.LogCacheOperation("get", cacheKey, true, time.Since(started).Milliseconds())
	return entry.Pattern, nil
}

// SetPattern stores a freshly detected pattern under the configured TTL.
func (c *RedisPatternCache) SetPattern(ctx context.Context, ownerID string, granularity models.Granularity, pattern *models.SeasonalPattern) error {
	if pattern == nil {
		return nil
	}
	started := time.Now()
	cacheKey := c.key(ownerID, pattern.ProductID, granularity)

	entry := PatternCacheEntry{Pattern: pattern, CachedAt: time.Now()}
	data, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("failed to encode pattern cache entry: %w", err)
	}

	if err := c.redis.Set(ctx, cacheKey, data, c.ttl).Err(); err != nil {
		return fmt.Errorf("failed to write pattern cache: %w", err)
	}

	c.stats.mu.Lock()
	c.stats.Sets++
	c.stats.mu.Unlock()
	c.logger.LogCacheOperation("set", cacheKey, true, time.Since(started).Milliseconds())
	return nil
}

// Invalidate drops the cached pattern for one product, for callers that just
// ingested new records.
func (c *RedisPatternCache) Invalidate(ctx context.Context, ownerID, productID string, granularity models.Granularity) error {
	return c.redis.Del(ctx, c.key(ownerID, productID, granularity)).Err()
}

// GetStats returns a snapshot of the cache counters.
func (c *RedisPatternCache) GetStats() (hits, misses, sets int64) {
	c.stats.mu.RLock()
	defer c.stats.mu.RUnlock()
	return c.stats.Hits, c.stats.Misses, c.stats.Sets
}

func (c *RedisPatternCache) hit() {
	c.stats.mu.Lock()
	c.stats.Hits++
	c.stats.mu.Unlock()
}

func (c *RedisPatternCache) miss() {
	c.stats.mu.Lock()
	c.stats.Misses++
	c.stats.mu.Unlock()
}
