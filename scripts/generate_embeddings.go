package main

import (
	"context"
	"fmt"
	"log"
	"log/slog"
	"os"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"

	database "github.com/wandergrid/go-poi-routes/app/db"
	"github.com/wandergrid/go-poi-routes/config"
	"github.com/wandergrid/go-poi-routes/internal/api/semantic"
)

const ingestBatchSize = 100

// poiRow is the slice of "PoiClean" the vector collection is built from.
type poiRow struct {
	ID             string
	Name           string
	PoiTypeClean   string
	Specialization string
}

func main() {
	ctx := context.Background()

	// Load environment variables
	if err := godotenv.Load(); err != nil {
		log.Printf("Warning: Could not load .env file: %v", err)
	}

	// Set up logger
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))

	// Load configuration
	cfg, err := config.InitConfig()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	dbConfig, err := database.NewDatabaseConfig(&cfg, logger)
	if err != nil {
		logger.Error("Failed to generate database config", slog.Any("error", err))
		os.Exit(1)
	}

	// Set up database connection
	dbpool, err := pgxpool.New(ctx, dbConfig.ConnectionURL)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer dbpool.Close()

	if err := dbpool.Ping(ctx); err != nil {
		log.Fatalf("Failed to ping database: %v", err)
	}
	logger.Info("Connected to database successfully")

	// Initialize services
	embedder, err := semantic.NewEmbeddingService(ctx, cfg.Vector.Model, logger)
	if err != nil {
		log.Fatalf("Failed to create embedding service: %v", err)
	}

	qdrantClient, err := semantic.NewQdrantClient(cfg.Vector.URL, cfg.Vector.APIKey)
	if err != nil {
		log.Fatalf("Failed to create qdrant client: %v", err)
	}
	store := semantic.NewQdrantStore(qdrantClient, cfg.Vector.Collection,
		uint64(cfg.Vector.Dimension), 0, logger)

	if err := store.EnsureCollection(ctx); err != nil {
		log.Fatalf("Failed to ensure vector collection: %v", err)
	}

	logger.Info("Starting embedding generation for POI data...",
		slog.String("collection", cfg.Vector.Collection))

	if err := ingestPOIEmbeddings(ctx, dbpool, embedder, store, logger); err != nil {
		logger.Error("Embedding generation finished with errors", slog.Any("error", err))
		os.Exit(1)
	}

	logger.Info("Embedding generation completed!")
}

// fetchPOIRows loads every non-deleted POI that carries a clean type. Point
// ids in the collection are the same UUIDs as the database rows, so filtered
// searches map hits straight back to "PoiClean".
func fetchPOIRows(ctx context.Context, dbpool *pgxpool.Pool) ([]poiRow, error) {
	query := `
        SELECT id::text, name, poi_type_clean, COALESCE(specialization, '')
        FROM "PoiClean"
        WHERE poi_type_clean IS NOT NULL AND poi_type_clean <> ''
          AND deleted_at IS NULL
        ORDER BY id`

	rows, err := dbpool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to query POI rows: %w", err)
	}
	defer rows.Close()

	var out []poiRow
	for rows.Next() {
		var r poiRow
		if err := rows.Scan(&r.ID, &r.Name, &r.PoiTypeClean, &r.Specialization); err != nil {
			return nil, fmt.Errorf("failed to scan POI row: %w", err)
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// ingestPOIEmbeddings embeds every POI and upserts the points in batches.
// Individual embedding failures are logged and skipped so one bad row does
// not abort a long run; the run still exits non-zero if anything was skipped.
func ingestPOIEmbeddings(ctx context.Context, dbpool *pgxpool.Pool, embedder *semantic.EmbeddingService, store semantic.VectorStore, logger *slog.Logger) error {
	pois, err := fetchPOIRows(ctx, dbpool)
	if err != nil {
		return err
	}
	if len(pois) == 0 {
		logger.Warn("No POI rows with a clean type, nothing to ingest")
		return nil
	}
	logger.Info("Fetched POI rows", slog.Int("count", len(pois)))

	totalProcessed := 0
	totalErrors := 0
	batch := make([]semantic.POIEmbedding, 0, ingestBatchSize)

	flush := func() error {
		if len(batch) == 0 {
			return nil
		}
		if err := store.UpsertPOIEmbeddings(ctx, batch); err != nil {
			return fmt.Errorf("failed to upsert batch of %d points: %w", len(batch), err)
		}
		totalProcessed += len(batch)
		logger.Info("Upserted batch",
			slog.Int("points", len(batch)),
			slog.Int("total_processed", totalProcessed))
		batch = batch[:0]
		return nil
	}

	for _, poi := range pois {
		vector, err := embedder.GeneratePOIEmbedding(ctx, poi.Name, poi.PoiTypeClean, poi.Specialization)
		if err != nil {
			logger.Error("Failed to generate embedding for POI",
				slog.Any("error", err),
				slog.String("poi_id", poi.ID),
				slog.String("poi_name", poi.Name))
			totalErrors++
			continue
		}

		batch = append(batch, semantic.POIEmbedding{
			ID:           poi.ID,
			Vector:       vector,
			PoiTypeClean: poi.PoiTypeClean,
		})
		if len(batch) >= ingestBatchSize {
			if err := flush(); err != nil {
				return err
			}
		}
	}
	if err := flush(); err != nil {
		return err
	}

	logger.Info("POI embedding ingestion completed",
		slog.Int("total_processed", totalProcessed),
		slog.Int("total_errors", totalErrors))

	if totalErrors > 0 {
		return fmt.Errorf("ingestion completed with %d errors out of %d rows", totalErrors, totalProcessed+totalErrors)
	}
	return nil
}
