// Package metrics holds the application's OTel metric instruments. Instruments
// are created from the global MeterProvider on first use, so production code
// must install the Prometheus-backed provider before the first request.
package metrics

import (
	"log"
	"sync"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/metric"
)

// AppMetrics bundles the domain instruments the request pipeline records.
type AppMetrics struct {
	SpatialCacheHitsTotal       metric.Int64Counter
	SpatialCacheMissesTotal     metric.Int64Counter
	SpatialDBFallbackTotal      metric.Int64Counter
	VectorSearchDurationSeconds metric.Float64Histogram
	RouteBuildDurationSeconds   metric.Float64Histogram
	ReplacementRequestsTotal    metric.Int64Counter
}

var (
	appMetrics *AppMetrics
	once       sync.Once
)

// Get returns the process-wide instruments, creating them on first call.
// With no provider installed (tests), the instruments are no-ops.
func Get() *AppMetrics {
	once.Do(func() {
		meter := otel.GetMeterProvider().Meter("go-poi-routes")
		var err error
		m := &AppMetrics{}

		m.SpatialCacheHitsTotal, err = meter.Int64Counter(
			"spatial_cache_hits_total",
			metric.WithDescription("H3 cell lookups answered from Redis"),
			metric.WithUnit("{lookup}"),
		)
		if err != nil {
			log.Fatalf("Metrics: Failed to create spatial_cache_hits_total: %v", err)
		}

		m.SpatialCacheMissesTotal, err = meter.Int64Counter(
			"spatial_cache_misses_total",
			metric.WithDescription("H3 cell lookups not present in Redis"),
			metric.WithUnit("{lookup}"),
		)
		if err != nil {
			log.Fatalf("Metrics: Failed to create spatial_cache_misses_total: %v", err)
		}

		m.SpatialDBFallbackTotal, err = meter.Int64Counter(
			"spatial_db_fallback_total",
			metric.WithDescription("Spatial searches that fell back to the database"),
			metric.WithUnit("{search}"),
		)
		if err != nil {
			log.Fatalf("Metrics: Failed to create spatial_db_fallback_total: %v", err)
		}

		m.VectorSearchDurationSeconds, err = meter.Float64Histogram(
			"vector_search_duration_seconds",
			metric.WithDescription("Duration of Qdrant nearest-neighbor searches"),
			metric.WithUnit("s"),
		)
		if err != nil {
			log.Fatalf("Metrics: Failed to create vector_search_duration_seconds: %v", err)
		}

		m.RouteBuildDurationSeconds, err = meter.Float64Histogram(
			"route_build_duration_seconds",
			metric.WithDescription("Duration of the greedy route planner"),
			metric.WithUnit("s"),
		)
		if err != nil {
			log.Fatalf("Metrics: Failed to create route_build_duration_seconds: %v", err)
		}

		m.ReplacementRequestsTotal, err = meter.Int64Counter(
			"replacement_requests_total",
			metric.WithDescription("POI replacement candidate requests"),
			metric.WithUnit("{request}"),
		)
		if err != nil {
			log.Fatalf("Metrics: Failed to create replacement_requests_total: %v", err)
		}

		appMetrics = m
	})
	return appMetrics
}
