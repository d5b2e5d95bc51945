package location

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/uber/h3-go/v4"

	"github.com/wandergrid/go-poi-routes/internal/types"
)

// CellCache is the first tier of the spatial stage: one key per H3 cell
// holding the full POI bucket. An empty bucket is a valid entry so sparse
// regions do not hammer the database.
type CellCache interface {
	// MGetCells returns the cached buckets plus the cells that must be
	// filled from the database. Cache errors degrade to a full miss.
	MGetCells(ctx context.Context, cells []h3.Cell) (map[h3.Cell][]types.POI, []h3.Cell)

	// SetCells writes every bucket with the configured TTL. Write errors
	// are logged and swallowed; the next query simply misses again.
	SetCells(ctx context.Context, buckets map[h3.Cell][]types.POI)
}

var _ CellCache = (*RedisCellCache)(nil)

type RedisCellCache struct {
	logger     *slog.Logger
	client     *redis.Client
	resolution int
	ttl        time.Duration
}

func NewRedisCellCache(client *redis.Client, resolution int, ttl time.Duration, logger *slog.Logger) *RedisCellCache {
	return &RedisCellCache{
		logger:     logger,
		client:     client,
		resolution: resolution,
		ttl:        ttl,
	}
}

func (c *RedisCellCache) cellKey(cell h3.Cell) string {
	return fmt.Sprintf("poi:h3:res%d:%s", c.resolution, cell)
}

func (c *RedisCellCache) MGetCells(ctx context.Context, cells []h3.Cell) (map[h3.Cell][]types.POI, []h3.Cell) {
	if len(cells) == 0 {
		return map[h3.Cell][]types.POI{}, nil
	}

	keys := make([]string, len(cells))
	for i, cell := range cells {
		keys[i] = c.cellKey(cell)
	}

	values, err := c.client.MGet(ctx, keys...).Result()
	if err != nil {
		c.logger.WarnContext(ctx, "Cell cache read failed, treating all cells as miss",
			slog.Int("cells", len(cells)), slog.Any("error", err))
		return map[h3.Cell][]types.POI{}, cells
	}

	hits := make(map[h3.Cell][]types.POI, len(cells))
	var missing []h3.Cell
	for i, cell := range cells {
		raw, ok := values[i].(string)
		if !ok {
			missing = append(missing, cell)
			continue
		}
		var pois []types.POI
		if err := json.Unmarshal([]byte(raw), &pois); err != nil {
			c.logger.WarnContext(ctx, "Cell cache entry corrupt, refetching",
				slog.String("key", keys[i]), slog.Any("error", err))
			missing = append(missing, cell)
			continue
		}
		hits[cell] = pois
	}
	return hits, missing
}

func (c *RedisCellCache) SetCells(ctx context.Context, buckets map[h3.Cell][]types.POI) {
	if len(buckets) == 0 {
		return
	}

	pipe := c.client.Pipeline()
	for cell, pois := range buckets {
		if pois == nil {
			pois = []types.POI{}
		}
		payload, err := json.Marshal(pois)
		if err != nil {
			c.logger.WarnContext(ctx, "Failed to marshal cell bucket",
				slog.String("cell", cell.String()), slog.Any("error", err))
			continue
		}
		pipe.Set(ctx, c.cellKey(cell), payload, c.ttl)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		c.logger.WarnContext(ctx, "Cell cache write failed", slog.Any("error", err))
	}
}
