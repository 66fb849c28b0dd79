// Package cache caches region-keyed candidate pool snapshots in Redis so
// repeated match requests for the same region skip the store.
package cache

import (
	"context"
	"encoding/json"
	"time"

	"github.com/redis/go-redis/v9"

	"carematch/internal/common/errors"
	"carematch/internal/common/logger"
	"carematch/internal/models"
)

const keyPrefix = "carematch:pool:"

// PoolCache is a read-through cache of candidate pool snapshots. Cache
// failures degrade to store reads; they never fail a match request.
type PoolCache struct {
	client *redis.Client
	ttl    time.Duration
	logger logger.Logger
}

func NewPoolCache(client *redis.Client, ttl time.Duration, log logger.Logger) *PoolCache {
	if ttl <= 0 {
		ttl = time.Minute
	}
	return &PoolCache{
		client: client,
		ttl:    ttl,
		logger: log.WithFields(map[string]interface{}{"component": "pool-cache"}),
	}
}

func (c *PoolCache) Get(ctx context.Context, region string) ([]models.MatchCandidate, bool) {
	raw, err := c.client.Get(ctx, keyPrefix+region).Bytes()
	if err == redis.Nil {
		return nil, false
	}
	if err != nil {
		c.logger.WithError(err).Warn("pool cache read failed", map[string]interface{}{"region": region})
		return nil, false
	}

	var pool []models.MatchCandidate
	if err := json.Unmarshal(raw, &pool); err != nil {
		c.logger.WithError(err).Warn("pool cache entry corrupt, dropping", map[string]interface{}{"region": region})
		c.client.Del(ctx, keyPrefix+region)
		return nil, false
	}
	return pool, true
}

func (c *PoolCache) Set(ctx context.Context, region string, pool []models.MatchCandidate) {
	raw, err := json.Marshal(pool)
	if err != nil {
		c.logger.WithError(err).Error("encode pool snapshot", map[string]interface{}{"region": region})
		return
	}
	if err := c.client.Set(ctx, keyPrefix+region, raw, c.ttl).Err(); err != nil {
		c.logger.WithError(err).Warn("pool cache write failed", map[string]interface{}{"region": region})
	}
}

// Invalidate drops the snapshots for the given regions, typically after an
// outcome changes candidate capacity.
func (c *PoolCache) Invalidate(ctx context.Context, regions ...string) error {
	if len(regions) == 0 {
		return nil
	}
	keys := make([]string, 0, len(regions))
	for _, r := range regions {
		keys = append(keys, keyPrefix+r)
	}
	if err := c.client.Del(ctx, keys...).Err(); err != nil {
		return errors.NewCacheUnavailableError(err)
	}
	return nil
}
