// Package cache owns the Redis client shared by the spatial, POI and route
// caches.
package cache

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/wandergrid/go-poi-routes/config"
)

const connectTimeout = 2 * time.Second

// Init creates the Redis client and verifies the connection with a PING.
func Init(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*redis.Client, error) {
	addr := fmt.Sprintf("%s:%s", cfg.Repositories.Redis.Host, cfg.Repositories.Redis.Port)
	client := redis.NewClient(&redis.Options{
		Addr: addr,
		DB:   cfg.Repositories.Redis.DB,
	})

	pingCtx, cancel := context.WithTimeout(ctx, connectTimeout)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to redis at %s: %w", addr, err)
	}

	logger.InfoContext(ctx, "Redis connection established",
		slog.String("addr", addr), slog.Int("db", cfg.Repositories.Redis.DB))
	return client, nil
}
