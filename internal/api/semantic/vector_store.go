package semantic

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"strconv"
	"time"

	"github.com/qdrant/go-client/qdrant"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// ErrEmptyIDList is returned by SearchByIDs when the candidate set is empty:
// an unconstrained search over the whole collection is never what the
// combined flow wants.
var ErrEmptyIDList = errors.New("empty ID list provided")

// filteredSearchEf trades ~2% recall for latency on ID-filtered searches.
const filteredSearchEf = 32

// VectorHit is one nearest-neighbor result: the point id (a POI UUID) and
// its cosine similarity.
type VectorHit struct {
	ID    string
	Score float64
}

// POIEmbedding is one ingestion unit for the collection.
type POIEmbedding struct {
	ID           string
	Vector       []float32
	PoiTypeClean string
}

// VectorStore is the nearest-neighbor index over POI category embeddings.
type VectorStore interface {
	Search(ctx context.Context, vector []float32, topK int) ([]VectorHit, error)
	SearchByIDs(ctx context.Context, vector []float32, pointIDs []string, topK int) ([]VectorHit, error)
	EnsureCollection(ctx context.Context) error
	UpsertPOIEmbeddings(ctx context.Context, points []POIEmbedding) error
	Healthy(ctx context.Context) error
}

var _ VectorStore = (*QdrantStore)(nil)

type QdrantStore struct {
	logger     *slog.Logger
	client     *qdrant.Client
	collection string
	dimension  uint64
	timeout    time.Duration
}

// NewQdrantClient dials the gRPC endpoint described by rawURL, either a
// local "http://host:6334" or a cloud https URL. TLS follows the scheme.
func NewQdrantClient(rawURL, apiKey string) (*qdrant.Client, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse qdrant URL %q: %w", rawURL, err)
	}
	if u.Hostname() == "" {
		return nil, fmt.Errorf("qdrant URL %q has no host", rawURL)
	}

	port := 6334
	if p := u.Port(); p != "" {
		port, err = strconv.Atoi(p)
		if err != nil {
			return nil, fmt.Errorf("invalid qdrant port %q: %w", p, err)
		}
	}

	client, err := qdrant.NewClient(&qdrant.Config{
		Host:   u.Hostname(),
		Port:   port,
		APIKey: apiKey,
		UseTLS: u.Scheme == "https",
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create qdrant client: %w", err)
	}
	return client, nil
}

func NewQdrantStore(client *qdrant.Client, collection string, dimension uint64, timeout time.Duration, logger *slog.Logger) *QdrantStore {
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	return &QdrantStore{
		logger:     logger,
		client:     client,
		collection: collection,
		dimension:  dimension,
		timeout:    timeout,
	}
}

// EnsureCollection creates the cosine-distance collection if it does not
// exist yet. Existing collections are left untouched.
func (s *QdrantStore) EnsureCollection(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	exists, err := s.client.CollectionExists(ctx, s.collection)
	if err != nil {
		return fmt.Errorf("failed to check collection %q: %w", s.collection, err)
	}
	if exists {
		s.logger.InfoContext(ctx, "Using existing Qdrant collection", slog.String("collection", s.collection))
		return nil
	}

	err = s.client.CreateCollection(ctx, &qdrant.CreateCollection{
		CollectionName: s.collection,
		VectorsConfig: qdrant.NewVectorsConfig(&qdrant.VectorParams{
			Size:     s.dimension,
			Distance: qdrant.Distance_Cosine,
		}),
	})
	if err != nil {
		return fmt.Errorf("failed to create collection %q: %w", s.collection, err)
	}
	s.logger.InfoContext(ctx, "Created Qdrant collection",
		slog.String("collection", s.collection), slog.Uint64("dimension", s.dimension))
	return nil
}

func (s *QdrantStore) Search(ctx context.Context, vector []float32, topK int) ([]VectorHit, error) {
	ctx, span := otel.Tracer("QdrantStore").Start(ctx, "Search", trace.WithAttributes(
		attribute.Int("search.top_k", topK),
	))
	defer span.End()

	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	points, err := s.client.Query(ctx, &qdrant.QueryPoints{
		CollectionName: s.collection,
		Query:          qdrant.NewQuery(vector...),
		Limit:          qdrant.PtrOf(uint64(topK)),
		WithPayload:    qdrant.NewWithPayload(false),
	})
	if err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("failed to search vector store: %w", err)
	}

	hits := scoredPointsToHits(points)
	span.SetAttributes(attribute.Int("search.hits", len(hits)))
	span.SetStatus(codes.Ok, "Vector search completed")
	return hits, nil
}

// SearchByIDs restricts the nearest-neighbor search to the given point ids.
// Payload hydration stays off; callers already hold the full records.
func (s *QdrantStore) SearchByIDs(ctx context.Context, vector []float32, pointIDs []string, topK int) ([]VectorHit, error) {
	ctx, span := otel.Tracer("QdrantStore").Start(ctx, "SearchByIDs", trace.WithAttributes(
		attribute.Int("search.top_k", topK),
		attribute.Int("search.filter_ids", len(pointIDs)),
	))
	defer span.End()

	if len(pointIDs) == 0 {
		span.RecordError(ErrEmptyIDList)
		return nil, ErrEmptyIDList
	}

	ids := make([]*qdrant.PointId, len(pointIDs))
	for i, id := range pointIDs {
		ids[i] = qdrant.NewID(id)
	}

	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	points, err := s.client.Query(ctx, &qdrant.QueryPoints{
		CollectionName: s.collection,
		Query:          qdrant.NewQuery(vector...),
		Limit:          qdrant.PtrOf(uint64(topK)),
		WithPayload:    qdrant.NewWithPayload(false),
		Filter: &qdrant.Filter{
			Must: []*qdrant.Condition{qdrant.NewHasID(ids...)},
		},
		Params: &qdrant.SearchParams{
			HnswEf: qdrant.PtrOf(uint64(filteredSearchEf)),
		},
	})
	if err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("failed to search vector store with id filter: %w", err)
	}

	hits := scoredPointsToHits(points)
	span.SetAttributes(attribute.Int("search.hits", len(hits)))
	span.SetStatus(codes.Ok, "Filtered vector search completed")
	return hits, nil
}

func (s *QdrantStore) UpsertPOIEmbeddings(ctx context.Context, points []POIEmbedding) error {
	ctx, span := otel.Tracer("QdrantStore").Start(ctx, "UpsertPOIEmbeddings", trace.WithAttributes(
		attribute.Int("upsert.count", len(points)),
	))
	defer span.End()

	if len(points) == 0 {
		span.SetStatus(codes.Ok, "Nothing to upsert")
		return nil
	}

	structs := make([]*qdrant.PointStruct, len(points))
	for i, p := range points {
		structs[i] = &qdrant.PointStruct{
			Id:      qdrant.NewID(p.ID),
			Vectors: qdrant.NewVectors(p.Vector...),
			Payload: qdrant.NewValueMap(map[string]any{
				"poi_type_clean": p.PoiTypeClean,
			}),
		}
	}

	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	_, err := s.client.Upsert(ctx, &qdrant.UpsertPoints{
		CollectionName: s.collection,
		Points:         structs,
		Wait:           qdrant.PtrOf(true),
	})
	if err != nil {
		span.RecordError(err)
		return fmt.Errorf("failed to upsert embeddings: %w", err)
	}

	span.SetStatus(codes.Ok, "Embeddings upserted")
	return nil
}

func (s *QdrantStore) Healthy(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	if _, err := s.client.HealthCheck(ctx); err != nil {
		return fmt.Errorf("qdrant health check failed: %w", err)
	}
	return nil
}

func scoredPointsToHits(points []*qdrant.ScoredPoint) []VectorHit {
	hits := make([]VectorHit, 0, len(points))
	for _, p := range points {
		if p == nil || p.Id == nil {
			continue
		}
		id := p.Id.GetUuid()
		if id == "" {
			id = strconv.FormatUint(p.Id.GetNum(), 10)
		}
		hits = append(hits, VectorHit{ID: id, Score: float64(p.Score)})
	}
	return hits
}
