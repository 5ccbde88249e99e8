// Package perf implements the performance-tracking facet: Prometheus
// counters and latency histograms for operations performed through the
// container the facet is attached to.
package perf

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/polisai/facets-oss/pkg/facet"
)

// FacetType is the identifier the perf facet registers under.
const FacetType facet.Type = "perf"

// Perf observes operation counts and durations. Collectors are registered
// on the Registerer supplied at construction, so callers control whether
// metrics land on the default registry, a private one, or a test registry.
type Perf struct {
	opsTotal   *prometheus.CounterVec
	opDuration *prometheus.HistogramVec
}

// New creates a perf facet and registers its collectors on reg.
// Registration failures (duplicate collectors) surface as an error rather
// than a panic so a facet can be created per container.
func New(reg prometheus.Registerer, constLabels prometheus.Labels) (*Perf, error) {
	p := &Perf{
		opsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name:        "facet_operations_total",
				Help:        "Total number of facet operations by name and status",
				ConstLabels: constLabels,
			},
			[]string{"operation", "status"},
		),
		opDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:        "facet_operation_duration_seconds",
				Help:        "Facet operation latency in seconds",
				Buckets:     prometheus.DefBuckets,
				ConstLabels: constLabels,
			},
			[]string{"operation"},
		),
	}
	for _, collector := range []prometheus.Collector{p.opsTotal, p.opDuration} {
		if err := reg.Register(collector); err != nil {
			return nil, err
		}
	}
	return p, nil
}

// FacetType implements facet.Facet.
func (p *Perf) FacetType() facet.Type {
	return FacetType
}

// Observe records one completed operation.
func (p *Perf) Observe(operation string, d time.Duration, err error) {
	status := "ok"
	if err != nil {
		status = "error"
	}
	p.opsTotal.WithLabelValues(operation, status).Inc()
	p.opDuration.WithLabelValues(operation).Observe(d.Seconds())
}

// Track runs fn and records its duration and outcome under operation.
func (p *Perf) Track(operation string, fn func() error) error {
	start := time.Now()
	err := fn()
	p.Observe(operation, time.Since(start), err)
	return err
}

// From returns the perf facet attached to c, if present.
func From(c *facet.Container) (*Perf, bool) {
	return facet.Lookup[*Perf](c, FacetType)
}
