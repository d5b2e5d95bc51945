package poiinfo

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/wandergrid/go-poi-routes/internal/types"
)

// ErrInvalidPOIID is returned by single-id lookups for strings that are not
// UUIDs. Batch lookups drop malformed ids instead.
var ErrInvalidPOIID = errors.New("invalid poi id")

var _ Service = (*ServiceImpl)(nil)

// Service resolves POI records by id through the location:{id} cache, and
// fronts the curation writes that keep those records fresh.
type Service interface {
	GetPOIByID(ctx context.Context, id string) (*types.POI, error)
	GetPOIsByIDs(ctx context.Context, ids []string) ([]types.POI, error)
	GetPOIsByUUIDs(ctx context.Context, ids []uuid.UUID) ([]types.POI, error)
	UpsertPOI(ctx context.Context, poi types.POI) (uuid.UUID, error)
	ApplyEnrichment(ctx context.Context, poiID uuid.UUID, enrichment Enrichment) error
	NormalizeRatings(ctx context.Context) (int64, error)
	SoftDeletePOIs(ctx context.Context, ids []uuid.UUID) (int64, error)
	GetVisitedPOIIDs(ctx context.Context, userID string) ([]uuid.UUID, error)
}

type ServiceImpl struct {
	logger *slog.Logger
	repo   Repository
	cache  InfoCache
}

func NewServiceImpl(repo Repository, cache InfoCache, logger *slog.Logger) *ServiceImpl {
	return &ServiceImpl{
		logger: logger,
		repo:   repo,
		cache:  cache,
	}
}

func (s *ServiceImpl) GetPOIByID(ctx context.Context, id string) (*types.POI, error) {
	parsed, err := uuid.Parse(id)
	if err != nil {
		return nil, fmt.Errorf("%w: %q", ErrInvalidPOIID, id)
	}
	pois, err := s.GetPOIsByUUIDs(ctx, []uuid.UUID{parsed})
	if err != nil {
		return nil, err
	}
	if len(pois) == 0 {
		return nil, nil
	}
	return &pois[0], nil
}

// GetPOIsByIDs is the string-id variant used to hydrate vector hits.
// Malformed ids are dropped with a warning rather than failing the batch.
func (s *ServiceImpl) GetPOIsByIDs(ctx context.Context, ids []string) ([]types.POI, error) {
	parsed := types.ParsePOIIDs(ids)
	if dropped := len(ids) - len(parsed); dropped > 0 {
		s.logger.WarnContext(ctx, "Dropped malformed POI ids", slog.Int("dropped", dropped))
	}
	return s.GetPOIsByUUIDs(ctx, parsed)
}

// GetPOIsByUUIDs returns the known POIs among ids, in input order. Unknown
// ids are skipped and remembered as negatives so they stop reaching Postgres.
func (s *ServiceImpl) GetPOIsByUUIDs(ctx context.Context, ids []uuid.UUID) ([]types.POI, error) {
	ctx, span := otel.Tracer("POIInfoService").Start(ctx, "GetPOIsByUUIDs", trace.WithAttributes(
		attribute.Int("poi.requested", len(ids)),
	))
	defer span.End()

	if len(ids) == 0 {
		span.SetStatus(codes.Ok, "Empty id set")
		return []types.POI{}, nil
	}

	unique := make([]uuid.UUID, 0, len(ids))
	seen := make(map[uuid.UUID]struct{}, len(ids))
	for _, id := range ids {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		unique = append(unique, id)
	}

	found, negatives, missing := s.cache.GetPOIs(ctx, unique)
	span.SetAttributes(
		attribute.Int("poi.cache_hits", len(found)),
		attribute.Int("poi.cache_negatives", len(negatives)),
		attribute.Int("poi.cache_misses", len(missing)),
	)

	if len(missing) > 0 {
		fetched, err := s.repo.FindPOIsByIDs(ctx, missing)
		if err != nil {
			s.logger.ErrorContext(ctx, "Repository failed to fetch POIs by ids", slog.Any("error", err))
			span.RecordError(err)
			return nil, fmt.Errorf("failed to fetch POIs: %w", err)
		}
		s.cache.SetPOIs(ctx, fetched)
		for _, poi := range fetched {
			found[poi.ID] = poi
		}

		var unknown []uuid.UUID
		for _, id := range missing {
			if _, ok := found[id]; !ok {
				unknown = append(unknown, id)
			}
		}
		s.cache.SetNegatives(ctx, unknown)
		span.SetAttributes(
			attribute.Int("poi.fetched", len(fetched)),
			attribute.Int("poi.unknown", len(unknown)),
		)
	}

	results := make([]types.POI, 0, len(ids))
	for _, id := range ids {
		if poi, ok := found[id]; ok {
			results = append(results, poi)
		}
	}
	span.SetStatus(codes.Ok, "POIs resolved")
	return results, nil
}

func (s *ServiceImpl) UpsertPOI(ctx context.Context, poi types.POI) (uuid.UUID, error) {
	ctx, span := otel.Tracer("POIInfoService").Start(ctx, "UpsertPOI", trace.WithAttributes(
		attribute.String("poi.name", poi.Name),
	))
	defer span.End()

	id, err := s.repo.UpsertPOI(ctx, poi)
	if err != nil {
		s.logger.ErrorContext(ctx, "Repository failed to upsert POI", slog.Any("error", err))
		span.RecordError(err)
		return uuid.Nil, err
	}
	s.cache.Invalidate(ctx, []uuid.UUID{id})
	span.SetStatus(codes.Ok, "POI upserted")
	return id, nil
}

func (s *ServiceImpl) ApplyEnrichment(ctx context.Context, poiID uuid.UUID, enrichment Enrichment) error {
	ctx, span := otel.Tracer("POIInfoService").Start(ctx, "ApplyEnrichment", trace.WithAttributes(
		attribute.String("poi.id", poiID.String()),
	))
	defer span.End()

	if err := s.repo.ApplyEnrichment(ctx, poiID, enrichment); err != nil {
		s.logger.ErrorContext(ctx, "Repository failed to apply enrichment", slog.Any("error", err))
		span.RecordError(err)
		return err
	}
	s.cache.Invalidate(ctx, []uuid.UUID{poiID})
	span.SetStatus(codes.Ok, "Enrichment applied")
	return nil
}

// NormalizeRatings rewrites the popularity blend for every row. Cached copies
// are not invalidated piecemeal; they age out with the TTL.
func (s *ServiceImpl) NormalizeRatings(ctx context.Context) (int64, error) {
	ctx, span := otel.Tracer("POIInfoService").Start(ctx, "NormalizeRatings")
	defer span.End()

	rows, err := s.repo.NormalizeRatings(ctx)
	if err != nil {
		s.logger.ErrorContext(ctx, "Repository failed to normalize ratings", slog.Any("error", err))
		span.RecordError(err)
		return 0, err
	}
	span.SetAttributes(attribute.Int64("poi.rows_updated", rows))
	span.SetStatus(codes.Ok, "Ratings normalized")
	return rows, nil
}

func (s *ServiceImpl) SoftDeletePOIs(ctx context.Context, ids []uuid.UUID) (int64, error) {
	ctx, span := otel.Tracer("POIInfoService").Start(ctx, "SoftDeletePOIs", trace.WithAttributes(
		attribute.Int("poi.requested", len(ids)),
	))
	defer span.End()

	rows, err := s.repo.SoftDeletePOIs(ctx, ids)
	if err != nil {
		s.logger.ErrorContext(ctx, "Repository failed to soft-delete POIs", slog.Any("error", err))
		span.RecordError(err)
		return 0, err
	}
	s.cache.Invalidate(ctx, ids)
	span.SetAttributes(attribute.Int64("poi.rows_deleted", rows))
	span.SetStatus(codes.Ok, "POIs soft-deleted")
	return rows, nil
}

func (s *ServiceImpl) GetVisitedPOIIDs(ctx context.Context, userID string) ([]uuid.UUID, error) {
	ctx, span := otel.Tracer("POIInfoService").Start(ctx, "GetVisitedPOIIDs", trace.WithAttributes(
		attribute.String("user.id", userID),
	))
	defer span.End()

	ids, err := s.repo.GetVisitedPOIIDs(ctx, userID)
	if err != nil {
		s.logger.ErrorContext(ctx, "Repository failed to list visited POIs", slog.Any("error", err))
		span.RecordError(err)
		return nil, err
	}
	span.SetAttributes(attribute.Int("poi.visited", len(ids)))
	span.SetStatus(codes.Ok, "Visited POIs listed")
	return ids, nil
}
