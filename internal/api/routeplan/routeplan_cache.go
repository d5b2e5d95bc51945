package routeplan

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/wandergrid/go-poi-routes/internal/types"
)

// DefaultRouteCacheTTL is how long a user's route metadata stays replaceable.
const DefaultRouteCacheTTL = time.Hour

// RouteCache persists one entry per user holding every current route plus the
// replacement pools. Replacement flows are read-modify-write on this entry;
// concurrent calls for the same user are last-write-wins, acceptable because
// one session drives them.
type RouteCache interface {
	// Save overwrites the user's entry and restarts its TTL.
	Save(ctx context.Context, entry *types.RouteCacheEntry) error

	// Get returns the user's entry, or nil without error when none exists.
	Get(ctx context.Context, userID string) (*types.RouteCacheEntry, error)

	// Delete drops the user's entry.
	Delete(ctx context.Context, userID string) error
}

var _ RouteCache = (*RedisRouteCache)(nil)

type RedisRouteCache struct {
	logger *slog.Logger
	client *redis.Client
	ttl    time.Duration
}

func NewRedisRouteCache(client *redis.Client, ttl time.Duration, logger *slog.Logger) *RedisRouteCache {
	if ttl <= 0 {
		ttl = DefaultRouteCacheTTL
	}
	return &RedisRouteCache{
		logger: logger,
		client: client,
		ttl:    ttl,
	}
}

func (c *RedisRouteCache) metadataKey(userID string) string {
	return fmt.Sprintf("route_metadata:%s", userID)
}

func (c *RedisRouteCache) Save(ctx context.Context, entry *types.RouteCacheEntry) error {
	payload, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("failed to marshal route cache entry: %w", err)
	}
	if err := c.client.Set(ctx, c.metadataKey(entry.UserID), payload, c.ttl).Err(); err != nil {
		return fmt.Errorf("failed to save route cache entry: %w", err)
	}
	c.logger.DebugContext(ctx, "Cached route metadata",
		slog.String("user_id", entry.UserID), slog.Int("routes", len(entry.Routes)))
	return nil
}

func (c *RedisRouteCache) Get(ctx context.Context, userID string) (*types.RouteCacheEntry, error) {
	raw, err := c.client.Get(ctx, c.metadataKey(userID)).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to read route cache entry: %w", err)
	}

	var entry types.RouteCacheEntry
	if err := json.Unmarshal([]byte(raw), &entry); err != nil {
		// A corrupt entry is unrecoverable; treat it as absent so the
		// user can rebuild routes instead of being stuck.
		c.logger.WarnContext(ctx, "Dropping corrupt route cache entry",
			slog.String("user_id", userID), slog.Any("error", err))
		return nil, nil
	}
	return &entry, nil
}

func (c *RedisRouteCache) Delete(ctx context.Context, userID string) error {
	if err := c.client.Del(ctx, c.metadataKey(userID)).Err(); err != nil {
		return fmt.Errorf("failed to delete route cache entry: %w", err)
	}
	return nil
}
