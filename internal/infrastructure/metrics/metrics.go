// Package metrics provides Prometheus instruments for the profiling and
// recommendation engine.
//
// Usage:
//
//	done := metrics.Track("suggest_bundle")
//	defer done(err)
//
//	metrics.RecordBundle("balance", len(bundle.Missions))
//	metrics.RecordTilt("cautious")
package metrics

import (
	"errors"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/ChoraichiFadwa/ECOLead-Finance/internal/domain/shared"
)

const namespace = "engine"

var (
	// OperationsTotal counts engine operations by name and outcome.
	OperationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "operations_total",
			Help:      "Total number of engine operations",
		},
		[]string{"operation", "outcome"},
	)

	// OperationDuration tracks operation latency.
	OperationDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "operation_duration_seconds",
			Help:      "Duration of engine operations in seconds",
			Buckets:   []float64{0.0005, 0.001, 0.005, 0.01, 0.05, 0.1, 0.25, 0.5, 1},
		},
		[]string{"operation"},
	)

	// BundleSize tracks how many missions a bundle carries.
	BundleSize = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "bundle_size",
			Help:      "Number of missions per recommendation bundle",
			Buckets:   []float64{0, 1, 2, 3, 4, 5, 6},
		},
		[]string{"goal"},
	)

	// EmptyBundlesTotal counts bundles that came back empty.
	EmptyBundlesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "empty_bundles_total",
			Help:      "Total number of empty recommendation bundles",
		},
		[]string{"goal"},
	)

	// TiltPredictionsTotal counts tilt labels produced by the classifier.
	TiltPredictionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "tilt_predictions_total",
			Help:      "Total number of tilt predictions by label",
		},
		[]string{"label"},
	)

	// ContextStagesTotal counts strategic contexts by stage.
	ContextStagesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "context_stages_total",
			Help:      "Total number of strategic contexts built by stage",
		},
		[]string{"stage"},
	)

	// CatalogReloadsTotal counts catalog reloads by outcome.
	CatalogReloadsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "catalog_reloads_total",
			Help:      "Total number of catalog reloads",
		},
		[]string{"outcome"},
	)

	// CatalogMissions reports the number of missions currently loaded.
	CatalogMissions = promauto.NewGauge(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "catalog_missions",
			Help:      "Number of missions in the loaded catalog",
		},
	)

	// EventsPublishedTotal counts domain events handed to the bus.
	EventsPublishedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "events_published_total",
			Help:      "Total number of domain events published",
		},
		[]string{"event_type"},
	)

	// EventHandlerDuration tracks event handler latency by outcome.
	EventHandlerDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "event_handler_duration_seconds",
			Help:      "Duration of domain event handlers in seconds",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"event_type", "outcome"},
	)

	// JobDuration tracks scheduled job runs by outcome.
	JobDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "job_duration_seconds",
			Help:      "Duration of scheduled jobs in seconds",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"job", "outcome"},
	)

	// CircuitBreakerState is 0 closed, 1 half-open, 2 open.
	CircuitBreakerState = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "circuit_breaker_state",
			Help:      "Circuit breaker state (0 closed, 1 half-open, 2 open)",
		},
		[]string{"name"},
	)

	// CircuitBreakerRequests counts guarded calls by result.
	CircuitBreakerRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "circuit_breaker_requests_total",
			Help:      "Total number of calls through a circuit breaker",
		},
		[]string{"name", "result"},
	)
)

// Outcome labels.
const (
	OutcomeSuccess          = "success"
	OutcomeInvalid          = "invalid"
	OutcomeNotFound         = "not_found"
	OutcomeModelUnavailable = "model_unavailable"
	OutcomeError            = "error"
)

// Outcome classifies an error into a low-cardinality label.
func Outcome(err error) string {
	switch {
	case err == nil:
		return OutcomeSuccess
	case shared.IsValidation(err):
		return OutcomeInvalid
	case shared.IsNotFound(err):
		return OutcomeNotFound
	case shared.IsModelUnavailable(err):
		return OutcomeModelUnavailable
	case errors.Is(err, shared.ErrAlreadyExists):
		return OutcomeInvalid
	default:
		return OutcomeError
	}
}

// Track starts timing an operation. Call the returned func with the final error.
func Track(operation string) func(err error) {
	start := time.Now()
	return func(err error) {
		OperationDuration.WithLabelValues(operation).Observe(time.Since(start).Seconds())
		OperationsTotal.WithLabelValues(operation, Outcome(err)).Inc()
	}
}

// RecordBundle records the size of a produced bundle.
func RecordBundle(goal string, size int) {
	BundleSize.WithLabelValues(goal).Observe(float64(size))
	if size == 0 {
		EmptyBundlesTotal.WithLabelValues(goal).Inc()
	}
}

// RecordTilt records a tilt prediction.
func RecordTilt(label string) {
	TiltPredictionsTotal.WithLabelValues(label).Inc()
}

// RecordStage records a built strategic context.
func RecordStage(stage string) {
	ContextStagesTotal.WithLabelValues(stage).Inc()
}

// RecordCatalogReload records a reload attempt and, on success, the catalog size.
func RecordCatalogReload(err error, missions int) {
	if err != nil {
		CatalogReloadsTotal.WithLabelValues(OutcomeError).Inc()
		return
	}
	CatalogReloadsTotal.WithLabelValues(OutcomeSuccess).Inc()
	CatalogMissions.Set(float64(missions))
}

// RecordEvent records a published event.
func RecordEvent(eventType string) {
	EventsPublishedTotal.WithLabelValues(eventType).Inc()
}

// RecordEventHandler records one handler execution.
func RecordEventHandler(eventType string, d time.Duration, err error) {
	EventHandlerDuration.WithLabelValues(eventType, Outcome(err)).Observe(d.Seconds())
}

// RecordJob records one scheduled job run.
func RecordJob(job string, d time.Duration, err error) {
	JobDuration.WithLabelValues(job, Outcome(err)).Observe(d.Seconds())
}
