package location

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/paulmach/orb"

	"github.com/wandergrid/go-poi-routes/internal/types"
)

var _ Repository = (*RepositoryImpl)(nil)

// Repository is the database side of the spatial stage: one bounding-box
// range query that the service re-partitions into H3 cells.
type Repository interface {
	FindPOIsInBoundingBox(ctx context.Context, bound orb.Bound) ([]types.POI, error)
}

type RepositoryImpl struct {
	logger *slog.Logger
	pgpool *pgxpool.Pool
}

func NewRepository(pgxpool *pgxpool.Pool, logger *slog.Logger) *RepositoryImpl {
	return &RepositoryImpl{
		logger: logger,
		pgpool: pgxpool,
	}
}

// FindPOIsInBoundingBox returns every live POI whose coordinates fall inside
// the bound. Bound corners follow orb's (lon, lat) axis order.
func (r *RepositoryImpl) FindPOIsInBoundingBox(ctx context.Context, bound orb.Bound) ([]types.POI, error) {
	query := `
        SELECT
            id, name, COALESCE(address, ''), lat, lon,
            COALESCE(poi_type, ''), poi_type_clean, main_subcategory, specialization,
            COALESCE(normalize_stars_reviews, 0.5) AS rating,
            COALESCE(stay_time, 30) AS stay_time,
            open_hours
        FROM "PoiClean"
        WHERE lat BETWEEN $1 AND $2
          AND lon BETWEEN $3 AND $4
          AND deleted_at IS NULL
    `
	rows, err := r.pgpool.Query(ctx, query, bound.Min.Y(), bound.Max.Y(), bound.Min.X(), bound.Max.X())
	if err != nil {
		return nil, fmt.Errorf("failed to query POIs in bounding box: %w", err)
	}
	defer rows.Close()

	var pois []types.POI
	for rows.Next() {
		var (
			poi      types.POI
			rawHours []byte
		)
		err := rows.Scan(&poi.ID, &poi.Name, &poi.Address, &poi.Latitude, &poi.Longitude,
			&poi.PoiType, &poi.PoiTypeClean, &poi.MainSubcategory, &poi.Specialization,
			&poi.Rating, &poi.StayTime, &rawHours)
		if err != nil {
			return nil, fmt.Errorf("failed to scan POI row: %w", err)
		}
		if len(rawHours) > 0 {
			if err := json.Unmarshal(rawHours, &poi.Hours); err != nil {
				r.logger.WarnContext(ctx, "Skipping unparseable open_hours",
					slog.String("poiID", poi.ID.String()), slog.Any("error", err))
				poi.Hours = nil
			}
		}
		pois = append(pois, poi)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating POI rows: %w", err)
	}

	return pois, nil
}
