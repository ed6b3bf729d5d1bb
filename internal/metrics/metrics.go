// Package metrics provides Prometheus collectors for catalog operations.
package metrics

import (
	"errors"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/sngm3741/store-catalog/api/internal/catalog/domain"
)

// Metric names.
const (
	MetricOperationsTotal   = "catalog_operations_total"
	MetricOperationDuration = "catalog_operation_duration_seconds"
	MetricSlugConflicts     = "catalog_slug_conflicts_total"
)

// Outcome label values.
const (
	OutcomeSuccess    = "success"
	OutcomeValidation = "validation"
	OutcomeNotFound   = "not_found"
	OutcomeNotOwner   = "not_owner"
	OutcomeConflict   = "conflict"
	OutcomeError      = "error"
)

// Metrics contains Prometheus collectors for the catalog. All methods are safe for concurrent use.
type Metrics struct {
	operations    *prometheus.CounterVec
	durations     *prometheus.HistogramVec
	slugConflicts prometheus.Counter
}

// New creates the collectors. They are not registered; call Register.
func New() *Metrics {
	return &Metrics{
		operations: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: MetricOperationsTotal,
				Help: "Total number of catalog operations by operation and outcome",
			},
			[]string{"operation", "outcome"},
		),
		durations: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    MetricOperationDuration,
				Help:    "Catalog operation latency in seconds",
				Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5},
			},
			[]string{"operation"},
		),
		slugConflicts: prometheus.NewCounter(prometheus.CounterOpts{
			Name: MetricSlugConflicts,
			Help: "Slug commits rejected by the unique index and retried",
		}),
	}
}

// Register registers all collectors with reg.
func (m *Metrics) Register(reg prometheus.Registerer) error {
	for _, c := range m.Collectors() {
		if err := reg.Register(c); err != nil {
			return err
		}
	}
	return nil
}

// Collectors returns all collectors.
func (m *Metrics) Collectors() []prometheus.Collector {
	return []prometheus.Collector{m.operations, m.durations, m.slugConflicts}
}

// ObserveOperation records one finished catalog operation.
func (m *Metrics) ObserveOperation(operation string, elapsed time.Duration, err error) {
	m.operations.WithLabelValues(operation, Outcome(err)).Inc()
	m.durations.WithLabelValues(operation).Observe(elapsed.Seconds())
}

// IncSlugConflict counts one lost slug commit.
func (m *Metrics) IncSlugConflict() {
	m.slugConflicts.Inc()
}

// Outcome maps an operation error onto its label value.
func Outcome(err error) string {
	switch {
	case err == nil:
		return OutcomeSuccess
	case errors.Is(err, domain.ErrValidation):
		return OutcomeValidation
	case errors.Is(err, domain.ErrNotFound):
		return OutcomeNotFound
	case errors.Is(err, domain.ErrNotOwner):
		return OutcomeNotOwner
	case errors.Is(err, domain.ErrConflict):
		return OutcomeConflict
	default:
		return OutcomeError
	}
}
