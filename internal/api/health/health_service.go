// Package health probes the service's runtime dependencies (Postgres,
// Redis, Qdrant) and aggregates them into a single degraded/healthy verdict.
package health

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"golang.org/x/sync/errgroup"

	"github.com/wandergrid/go-poi-routes/internal/types"
)

// checkTimeout bounds each dependency probe so one hung backend cannot
// stall the whole health endpoint.
const checkTimeout = 2 * time.Second

// Pinger probes a single dependency for liveness.
type Pinger func(ctx context.Context) error

// Service reports dependency health.
type Service interface {
	Check(ctx context.Context) types.HealthResponse
}

var _ Service = (*ServiceImpl)(nil)

type ServiceImpl struct {
	logger   *slog.Logger
	redis    Pinger
	database Pinger
	vector   Pinger
}

// NewServiceImpl wires the three dependency probes. Typical callers pass
// the Redis client PING, pgxpool Ping and the vector store health check.
func NewServiceImpl(redis, database, vector Pinger, logger *slog.Logger) *ServiceImpl {
	return &ServiceImpl{
		logger:   logger,
		redis:    redis,
		database: database,
		vector:   vector,
	}
}

// Check fans the probes out concurrently and folds the results into the
// response body. Any failing probe flips the overall status to "degraded";
// the endpoint itself never errors.
func (s *ServiceImpl) Check(ctx context.Context) types.HealthResponse {
	ctx, span := otel.Tracer("HealthService").Start(ctx, "Check")
	defer span.End()

	var redisErr, dbErr, vectorErr error
	g := new(errgroup.Group)
	g.Go(func() error {
		redisErr = s.probe(ctx, "redis", s.redis)
		return redisErr
	})
	g.Go(func() error {
		dbErr = s.probe(ctx, "database", s.database)
		return dbErr
	})
	g.Go(func() error {
		vectorErr = s.probe(ctx, "qdrant", s.vector)
		return vectorErr
	})
	firstErr := g.Wait()

	resp := types.HealthResponse{
		Status: "healthy",
		Checks: map[string]string{
			"redis":    checkStatus(redisErr),
			"database": checkStatus(dbErr),
			"qdrant":   checkStatus(vectorErr),
		},
	}
	if firstErr != nil {
		resp.Status = "degraded"
	}

	span.SetAttributes(attribute.String("health.status", resp.Status))
	span.SetStatus(codes.Ok, "Health check completed")
	return resp
}

func (s *ServiceImpl) probe(ctx context.Context, name string, ping Pinger) error {
	ctx, cancel := context.WithTimeout(ctx, checkTimeout)
	defer cancel()

	if err := ping(ctx); err != nil {
		s.logger.WarnContext(ctx, "Dependency check failed",
			slog.String("dependency", name), slog.Any("error", err))
		return err
	}
	return nil
}

func checkStatus(err error) string {
	if err != nil {
		return fmt.Sprintf("unhealthy: %s", err)
	}
	return "healthy"
}
