package poiinfo

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/wandergrid/go-poi-routes/internal/types"
)

// negativeSentinel marks an id that was looked up and not found, so repeated
// requests for a bad id stop hitting Postgres until the entry expires.
const negativeSentinel = "{}"

// InfoCache is the per-POI detail cache keyed by id.
type InfoCache interface {
	// GetPOIs splits ids into cached records, cached not-found markers and
	// ids that need a database read.
	GetPOIs(ctx context.Context, ids []uuid.UUID) (found map[uuid.UUID]types.POI, negatives map[uuid.UUID]struct{}, missing []uuid.UUID)
	SetPOIs(ctx context.Context, pois []types.POI)
	SetNegatives(ctx context.Context, ids []uuid.UUID)
	// Invalidate drops entries after a write so the next read refetches.
	Invalidate(ctx context.Context, ids []uuid.UUID)
}

var _ InfoCache = (*RedisInfoCache)(nil)

type RedisInfoCache struct {
	logger *slog.Logger
	client *redis.Client
	ttl    time.Duration
}

func NewRedisInfoCache(client *redis.Client, ttl time.Duration, logger *slog.Logger) *RedisInfoCache {
	return &RedisInfoCache{
		logger: logger,
		client: client,
		ttl:    ttl,
	}
}

func poiKey(id uuid.UUID) string {
	return fmt.Sprintf("location:%s", id)
}

func (c *RedisInfoCache) GetPOIs(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]types.POI, map[uuid.UUID]struct{}, []uuid.UUID) {
	found := make(map[uuid.UUID]types.POI, len(ids))
	negatives := make(map[uuid.UUID]struct{})
	if len(ids) == 0 {
		return found, negatives, nil
	}

	keys := make([]string, len(ids))
	for i, id := range ids {
		keys[i] = poiKey(id)
	}

	values, err := c.client.MGet(ctx, keys...).Result()
	if err != nil {
		c.logger.WarnContext(ctx, "POI cache read failed, treating all ids as misses", slog.Any("error", err))
		return found, negatives, ids
	}

	var missing []uuid.UUID
	for i, value := range values {
		payload, ok := value.(string)
		if !ok {
			missing = append(missing, ids[i])
			continue
		}
		if payload == negativeSentinel {
			negatives[ids[i]] = struct{}{}
			continue
		}
		var poi types.POI
		if err := json.Unmarshal([]byte(payload), &poi); err != nil {
			c.logger.WarnContext(ctx, "Corrupt POI cache entry, refetching",
				slog.String("key", keys[i]), slog.Any("error", err))
			missing = append(missing, ids[i])
			continue
		}
		found[ids[i]] = poi
	}
	return found, negatives, missing
}

func (c *RedisInfoCache) SetPOIs(ctx context.Context, pois []types.POI) {
	if len(pois) == 0 {
		return
	}
	pipe := c.client.Pipeline()
	for _, poi := range pois {
		payload, err := json.Marshal(poi)
		if err != nil {
			c.logger.WarnContext(ctx, "Failed to marshal POI for cache",
				slog.String("poiID", poi.ID.String()), slog.Any("error", err))
			continue
		}
		pipe.Set(ctx, poiKey(poi.ID), payload, c.ttl)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		c.logger.WarnContext(ctx, "POI cache write failed", slog.Any("error", err))
	}
}

func (c *RedisInfoCache) SetNegatives(ctx context.Context, ids []uuid.UUID) {
	if len(ids) == 0 {
		return
	}
	pipe := c.client.Pipeline()
	for _, id := range ids {
		pipe.Set(ctx, poiKey(id), negativeSentinel, c.ttl)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		c.logger.WarnContext(ctx, "POI negative-cache write failed", slog.Any("error", err))
	}
}

func (c *RedisInfoCache) Invalidate(ctx context.Context, ids []uuid.UUID) {
	if len(ids) == 0 {
		return
	}
	keys := make([]string, len(ids))
	for i, id := range ids {
		keys[i] = poiKey(id)
	}
	if err := c.client.Del(ctx, keys...).Err(); err != nil {
		c.logger.WarnContext(ctx, "POI cache invalidation failed", slog.Any("error", err))
	}
}
