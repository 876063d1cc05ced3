package halo

import (
	"context"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/agbru/halocalc/internal/logging"
)

var (
	rebuildsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "halocalc_cache_rebuilds_total",
			Help: "The total number of halo-model cache rebuilds",
		},
		[]string{"term", "status"},
	)
	rebuildDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "halocalc_cache_rebuild_duration_seconds",
			Help:    "The duration of halo-model cache rebuilds in seconds",
			Buckets: prometheus.ExponentialBuckets(0.001, 4, 10),
		},
		[]string{"term"},
	)
	invalidationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "halocalc_cache_invalidations_total",
			Help: "The total number of cache invalidations by mutation",
		},
		[]string{"cause"},
	)
)

// rebuild runs build inside a tracing span and records its outcome. points is
// the size of the table being built, for the logs.
func (e *Engine) rebuild(name string, points int, build func() error) (err error) {
	_, span := otel.Tracer("halo").Start(context.Background(), "rebuild")
	span.SetAttributes(
		attribute.String("term", name),
		attribute.Int("points", points),
		attribute.Float64("redshift", e.redshift),
	)
	defer span.End()

	start := time.Now()
	defer func() {
		elapsed := time.Since(start)
		status := "success"
		if err != nil {
			status = "error"
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
			e.log.Error("cache rebuild failed", err,
				logging.String("term", name),
				logging.Float64("redshift", e.redshift),
			)
		} else {
			e.log.Debug("cache rebuilt",
				logging.String("term", name),
				logging.Int("points", points),
				logging.Float64("redshift", e.redshift),
				logging.Duration("elapsed", elapsed),
			)
		}
		rebuildsTotal.WithLabelValues(name, status).Inc()
		rebuildDuration.WithLabelValues(name).Observe(elapsed.Seconds())
	}()

	return build()
}
