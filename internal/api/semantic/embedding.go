package semantic

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/patrickmn/go-cache"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"google.golang.org/genai"
)

// DefaultEmbeddingModel is used when EMBEDDING_MODEL is not configured.
const DefaultEmbeddingModel = "text-embedding-004"

// Embedder turns query text into a vector. Satisfied by EmbeddingService and
// mocked in tests.
type Embedder interface {
	GenerateQueryEmbedding(ctx context.Context, query string) ([]float32, error)
}

var _ Embedder = (*EmbeddingService)(nil)

// EmbeddingService wraps the Gemini embedding API. Query vectors are
// memoized in-process: category names repeat across requests, so most
// lookups never leave the process after warmup.
type EmbeddingService struct {
	client *genai.Client
	logger *slog.Logger
	model  string
	memo   *cache.Cache
}

func NewEmbeddingService(ctx context.Context, model string, logger *slog.Logger) (*EmbeddingService, error) {
	ctx, span := otel.Tracer("EmbeddingService").Start(ctx, "NewEmbeddingService")
	defer span.End()

	apiKey := os.Getenv("GOOGLE_API_KEY")
	if apiKey == "" {
		err := fmt.Errorf("GOOGLE_API_KEY environment variable is not set")
		span.RecordError(err)
		span.SetStatus(codes.Error, "API key not set")
		return nil, err
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "Failed to create Gemini client")
		return nil, fmt.Errorf("failed to create Gemini client: %w", err)
	}

	if model == "" {
		model = DefaultEmbeddingModel
	}

	span.SetStatus(codes.Ok, "Embedding service created successfully")
	return &EmbeddingService{
		client: client,
		logger: logger,
		model:  model,
		memo:   cache.New(24*time.Hour, 1*time.Hour),
	}, nil
}

// GenerateEmbedding generates an embedding vector for the given text.
func (es *EmbeddingService) GenerateEmbedding(ctx context.Context, text string, config *genai.EmbedContentConfig) ([]float32, error) {
	ctx, span := otel.Tracer("EmbeddingService").Start(ctx, "GenerateEmbedding", trace.WithAttributes(
		attribute.Int("text.length", len(text)),
		attribute.String("model", es.model),
	))
	defer span.End()

	if text == "" {
		err := fmt.Errorf("text cannot be empty")
		span.RecordError(err)
		span.SetStatus(codes.Error, "Empty text provided")
		return nil, err
	}

	embedding, err := es.client.Models.EmbedContent(ctx, es.model, genai.Text(text), config)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "Failed to generate embedding")
		es.logger.ErrorContext(ctx, "Failed to generate embedding",
			slog.Any("error", err),
			slog.String("text_preview", text[:min(100, len(text))]))
		return nil, fmt.Errorf("failed to generate embedding: %w", err)
	}

	if embedding == nil || len(embedding.Embeddings) == 0 {
		err := fmt.Errorf("received empty embedding from API")
		span.RecordError(err)
		span.SetStatus(codes.Error, "Empty embedding received")
		return nil, err
	}

	contentEmbedding := embedding.Embeddings[0]
	if contentEmbedding == nil || len(contentEmbedding.Values) == 0 {
		err := fmt.Errorf("received empty embedding values from API")
		span.RecordError(err)
		span.SetStatus(codes.Error, "Empty embedding values received")
		return nil, err
	}

	span.SetAttributes(attribute.Int("embedding.dimension", len(contentEmbedding.Values)))
	span.SetStatus(codes.Ok, "Embedding generated successfully")
	return contentEmbedding.Values, nil
}

// GenerateQueryEmbedding embeds a search query. Queries carry the "query: "
// instruction prefix the collection was ingested against.
func (es *EmbeddingService) GenerateQueryEmbedding(ctx context.Context, query string) ([]float32, error) {
	ctx, span := otel.Tracer("EmbeddingService").Start(ctx, "GenerateQueryEmbedding", trace.WithAttributes(
		attribute.String("query", query),
	))
	defer span.End()

	cacheKey := fmt.Sprintf("query:%s:%s", es.model, query)
	if cached, found := es.memo.Get(cacheKey); found {
		span.SetAttributes(attribute.Bool("embedding.memoized", true))
		span.SetStatus(codes.Ok, "Query embedding served from memo")
		return cached.([]float32), nil
	}

	embedding, err := es.GenerateEmbedding(ctx, "query: "+query, nil)
	if err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("failed to generate query embedding: %w", err)
	}
	es.memo.Set(cacheKey, embedding, cache.DefaultExpiration)

	span.SetStatus(codes.Ok, "Query embedding generated successfully")
	return embedding, nil
}

// GeneratePOIEmbedding embeds the text representation of a POI for
// ingestion. Documents are embedded without the query prefix.
func (es *EmbeddingService) GeneratePOIEmbedding(ctx context.Context, name, category, specialization string) ([]float32, error) {
	ctx, span := otel.Tracer("EmbeddingService").Start(ctx, "GeneratePOIEmbedding", trace.WithAttributes(
		attribute.String("poi.name", name),
		attribute.String("poi.category", category),
	))
	defer span.End()

	text := fmt.Sprintf("Name: %s\nCategory: %s", name, category)
	if specialization != "" {
		text += fmt.Sprintf("\nSpecialization: %s", specialization)
	}

	embedding, err := es.GenerateEmbedding(ctx, text, nil)
	if err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("failed to generate POI embedding: %w", err)
	}

	span.SetStatus(codes.Ok, "POI embedding generated successfully")
	return embedding, nil
}
