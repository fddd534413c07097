package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"

	"github.com/helios-bi/foresight-go/internal/models"
)

// ForecastCacheStats tracks cache performance counters.
type ForecastCacheStats struct {
	Hits   int64 `json:"hits"`
	Misses int64 `json:"misses"`
	Sets   int64 `json:"sets"`
	mu     sync.RWMutex
}

// ForecastCache stores completed forecast responses in Redis so repeated
// requests for the same domain, entity, and horizon skip the pipeline while
// the underlying history is unlikely to have changed.
type ForecastCache struct {
	redis  *redis.Client
	ttl    time.Duration
	stats  *ForecastCacheStats
	prefix string
	logger *logrus.Logger
}

func NewForecastCache(redisClient *redis.Client, ttl time.Duration, logger *logrus.Logger) *ForecastCache {
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	return &ForecastCache{
		redis:  redisClient,
		ttl:    ttl,
		stats:  &ForecastCacheStats{},
		prefix: "forecast_cache:",
		logger: logger,
	}
}

func (c *ForecastCache) key(domain models.Domain, entityID string, horizon int) string {
	return fmt.Sprintf("%s%s:%s:%d", c.prefix, domain, entityID, horizon)
}

// Get returns a cached response, or nil and false on any miss or error.
func (c *ForecastCache) Get(ctx context.Context, domain models.Domain, entityID string, horizon int) (*models.ForecastResponse, bool) {
	cacheKey := c.key(domain, entityID, horizon)

	data, err := c.redis.Get(ctx, cacheKey).Result()
	if err == redis.Nil {
		c.recordMiss()
		return nil, false
	}
	if err != nil {
		c.logger.WithError(err).WithField("key", cacheKey).Warn("Redis get failed")
		c.recordMiss()
		return nil, false
	}

	var resp models.ForecastResponse
	if err := json.Unmarshal([]byte(data), &resp); err != nil {
		c.logger.WithError(err).WithField("key", cacheKey).Warn("Failed to decode cached forecast")
		c.recordMiss()
		return nil, false
	}

	c.stats.mu.Lock()
	c.stats.Hits++
	c.stats.mu.Unlock()
	return &resp, true
}

// Set stores a response. Errors are logged and swallowed; caching is best
// effort.
func (c *ForecastCache) Set(ctx context.Context, resp *models.ForecastResponse) {
	if resp == nil {
		return
	}
	cacheKey := c.key(resp.Domain, resp.EntityID, resp.TimeHorizon)

	data, err := json.Marshal(resp)
	if err != nil {
		c.logger.WithError(err).WithField("key", cacheKey).Warn("Failed to encode forecast for cache")
		return
	}
	if err := c.redis.Set(ctx, cacheKey, data, c.ttl).Err(); err != nil {
		c.logger.WithError(err).WithField("key", cacheKey).Warn("Redis set failed")
		return
	}

	c.stats.mu.Lock()
	c.stats.Sets++
	c.stats.mu.Unlock()
}

// Invalidate removes all cached horizons for an entity.
func (c *ForecastCache) Invalidate(ctx context.Context, domain models.Domain, entityID string) error {
	pattern := fmt.Sprintf("%s%s:%s:*", c.prefix, domain, entityID)
	keys, err := c.redis.Keys(ctx, pattern).Result()
	if err != nil {
		return fmt.Errorf("failed to list cache keys: %w", err)
	}
	if len(keys) == 0 {
		return nil
	}
	if err := c.redis.Del(ctx, keys...).Err(); err != nil {
		return fmt.Errorf("failed to delete cache keys: %w", err)
	}
	return nil
}

// Stats returns a snapshot of the cache counters.
func (c *ForecastCache) Stats() ForecastCacheStats {
	c.stats.mu.RLock()
	defer c.stats.mu.RUnlock()
	return ForecastCacheStats{
		Hits:   c.stats.Hits,
		Misses: c.stats.Misses,
		Sets:   c.stats.Sets,
	}
}

func (c *ForecastCache) recordMiss() {
	c.stats.mu.Lock()
	c.stats.Misses++
	c.stats.mu.Unlock()
}
