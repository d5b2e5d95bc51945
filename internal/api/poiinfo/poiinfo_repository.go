package poiinfo

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/wandergrid/go-poi-routes/internal/types"
)

// PGXQuerier is the slice of pgxpool.Pool the repository needs. Tests drive
// it with pgxmock.
type PGXQuerier interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

// Enrichment carries the cleaned classification a curation pass assigns to a
// POI. Nil fields clear the column, except StayTime which is left untouched
// when nil.
type Enrichment struct {
	PoiTypeClean    *string
	MainSubcategory *string
	Specialization  *string
	StayTime        *float64
}

var _ Repository = (*RepositoryImpl)(nil)

type Repository interface {
	FindPOIsByIDs(ctx context.Context, ids []uuid.UUID) ([]types.POI, error)
	UpsertPOI(ctx context.Context, poi types.POI) (uuid.UUID, error)
	ApplyEnrichment(ctx context.Context, poiID uuid.UUID, enrichment Enrichment) error
	NormalizeRatings(ctx context.Context) (int64, error)
	SoftDeletePOIs(ctx context.Context, ids []uuid.UUID) (int64, error)
	GetVisitedPOIIDs(ctx context.Context, userID string) ([]uuid.UUID, error)
}

type RepositoryImpl struct {
	logger *slog.Logger
	db     PGXQuerier
}

func NewRepository(db PGXQuerier, logger *slog.Logger) *RepositoryImpl {
	return &RepositoryImpl{
		logger: logger,
		db:     db,
	}
}

// FindPOIsByIDs fetches every live POI in the id set with one query. Missing
// ids are simply absent from the result.
func (r *RepositoryImpl) FindPOIsByIDs(ctx context.Context, ids []uuid.UUID) ([]types.POI, error) {
	if len(ids) == 0 {
		return []types.POI{}, nil
	}

	query := `
        SELECT
            id, name, COALESCE(address, ''), lat, lon,
            COALESCE(poi_type, ''), poi_type_clean, main_subcategory, specialization,
            COALESCE(normalize_stars_reviews, 0.5) AS rating,
            COALESCE(stay_time, 30) AS stay_time,
            open_hours
        FROM "PoiClean"
        WHERE id = ANY($1) AND deleted_at IS NULL
    `
	rows, err := r.db.Query(ctx, query, ids)
	if err != nil {
		return nil, fmt.Errorf("failed to query POIs by ids: %w", err)
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

// UpsertPOI inserts or refreshes an ingested row. Enrichment columns are not
// clobbered on conflict; they belong to the enrichment pass.
func (r *RepositoryImpl) UpsertPOI(ctx context.Context, poi types.POI) (uuid.UUID, error) {
	if poi.Latitude < -90 || poi.Latitude > 90 || poi.Longitude < -180 || poi.Longitude > 180 {
		return uuid.Nil, fmt.Errorf("invalid coordinates: lat=%f, lon=%f", poi.Latitude, poi.Longitude)
	}
	if poi.Name == "" {
		return uuid.Nil, fmt.Errorf("POI name is required")
	}
	if poi.ID == uuid.Nil {
		poi.ID = uuid.New()
	}

	var rawHours []byte
	if len(poi.Hours) > 0 {
		var err error
		rawHours, err = json.Marshal(poi.Hours)
		if err != nil {
			return uuid.Nil, fmt.Errorf("failed to marshal open_hours: %w", err)
		}
	}

	query := `
        INSERT INTO "PoiClean" (
            id, name, address, lat, lon, geom, poi_type, stay_time, open_hours
        ) VALUES (
            $1, $2, $3, $4, $5, ST_SetSRID(ST_MakePoint($5, $4), 4326), $6, $7, $8
        )
        ON CONFLICT (id) DO UPDATE SET
            name = EXCLUDED.name,
            address = EXCLUDED.address,
            lat = EXCLUDED.lat,
            lon = EXCLUDED.lon,
            geom = EXCLUDED.geom,
            poi_type = EXCLUDED.poi_type,
            stay_time = EXCLUDED.stay_time,
            open_hours = EXCLUDED.open_hours,
            updated_at = NOW()
        RETURNING id
    `
	var id uuid.UUID
	if err := r.db.QueryRow(ctx, query,
		poi.ID, poi.Name, poi.Address, poi.Latitude, poi.Longitude,
		poi.PoiType, poi.StayTime, rawHours,
	).Scan(&id); err != nil {
		return uuid.Nil, fmt.Errorf("failed to upsert POI: %w", err)
	}

	r.logger.InfoContext(ctx, "POI upserted", slog.String("name", poi.Name), slog.String("id", id.String()))
	return id, nil
}

func (r *RepositoryImpl) ApplyEnrichment(ctx context.Context, poiID uuid.UUID, enrichment Enrichment) error {
	query := `
        UPDATE "PoiClean"
        SET poi_type_clean = $2,
            main_subcategory = $3,
            specialization = $4,
            stay_time = COALESCE($5, stay_time),
            updated_at = NOW()
        WHERE id = $1 AND deleted_at IS NULL
    `
	tag, err := r.db.Exec(ctx, query, poiID,
		enrichment.PoiTypeClean, enrichment.MainSubcategory, enrichment.Specialization, enrichment.StayTime)
	if err != nil {
		return fmt.Errorf("failed to apply enrichment: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("no POI found for enrichment")
	}
	return nil
}

// NormalizeRatings recomputes normalize_stars_reviews for every live row as
// 0.6 x min-max normalized stars + 0.4 x log-scaled review count.
func (r *RepositoryImpl) NormalizeRatings(ctx context.Context) (int64, error) {
	query := `
        WITH bounds AS (
            SELECT MIN(stars) AS min_stars,
                   MAX(stars) AS max_stars,
                   MAX(LN(1 + reviews)) AS max_log_reviews
            FROM "PoiClean"
            WHERE deleted_at IS NULL AND stars IS NOT NULL AND reviews IS NOT NULL
        )
        UPDATE "PoiClean" p
        SET normalize_stars_reviews =
                0.6 * CASE WHEN b.max_stars = b.min_stars THEN 0.5
                           ELSE (p.stars - b.min_stars) / (b.max_stars - b.min_stars) END
              + 0.4 * CASE WHEN b.max_log_reviews = 0 THEN 0
                           ELSE LN(1 + p.reviews) / b.max_log_reviews END,
            updated_at = NOW()
        FROM bounds b
        WHERE p.deleted_at IS NULL AND p.stars IS NOT NULL AND p.reviews IS NOT NULL
    `
	tag, err := r.db.Exec(ctx, query)
	if err != nil {
		return 0, fmt.Errorf("failed to normalize ratings: %w", err)
	}
	r.logger.InfoContext(ctx, "Ratings normalized", slog.Int64("rows", tag.RowsAffected()))
	return tag.RowsAffected(), nil
}

func (r *RepositoryImpl) SoftDeletePOIs(ctx context.Context, ids []uuid.UUID) (int64, error) {
	if len(ids) == 0 {
		return 0, nil
	}
	query := `
        UPDATE "PoiClean"
        SET deleted_at = NOW(), updated_at = NOW()
        WHERE id = ANY($1) AND deleted_at IS NULL
    `
	tag, err := r.db.Exec(ctx, query, ids)
	if err != nil {
		return 0, fmt.Errorf("failed to soft-delete POIs: %w", err)
	}
	return tag.RowsAffected(), nil
}

// GetVisitedPOIIDs lists every POI appearing in the user's stored
// itineraries, used to keep already-visited places out of new shortlists.
func (r *RepositoryImpl) GetVisitedPOIIDs(ctx context.Context, userID string) ([]uuid.UUID, error) {
	query := `
        SELECT DISTINCT up.poi_id
        FROM "UserItineraryPoi" up
        INNER JOIN "UserItinerary" ui ON ui.id = up.itinerary_id
        WHERE ui.user_id = $1
    `
	rows, err := r.db.Query(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to query visited POIs: %w", err)
	}
	defer rows.Close()

	var ids []uuid.UUID
	for rows.Next() {
		var id uuid.UUID
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("failed to scan visited POI id: %w", err)
		}
		ids = append(ids, id)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating visited POI rows: %w", err)
	}
	return ids, nil
}
