package resolver

import (
	"errors"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Resolution outcomes used as the "outcome" label.
const (
	OutcomeResolved      = "resolved"
	OutcomeNoVersions    = "no_versions"
	OutcomeUnsatisfiable = "unsatisfiable"
	OutcomeError         = "error"
)

// Metrics holds the resolver's Prometheus collectors. A nil *Metrics is
// valid and records nothing.
type Metrics struct {
	resolutionsTotal   *prometheus.CounterVec
	resolutionDuration prometheus.Histogram
	bootstrapTotal     prometheus.Counter
	candidatesScanned  prometheus.Histogram
}

// NewMetrics creates the collectors and registers them on reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		resolutionsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "vrequire_resolutions_total",
				Help: "Number of version resolutions by outcome.",
			},
			[]string{"outcome"},
		),
		resolutionDuration: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "vrequire_resolution_duration_seconds",
				Help:    "Time taken to pick a version, excluding the final load.",
				Buckets: prometheus.DefBuckets,
			},
		),
		bootstrapTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "vrequire_bootstrap_comparator_total",
				Help: "Number of resolutions that used the bootstrap comparator.",
			},
		),
		candidatesScanned: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "vrequire_candidates_scanned",
				Help:    "Number of valid version directories found per resolution.",
				Buckets: prometheus.LinearBuckets(1, 2, 8),
			},
		),
	}
	reg.MustRegister(
		m.resolutionsTotal,
		m.resolutionDuration,
		m.bootstrapTotal,
		m.candidatesScanned,
	)
	return m
}

func (m *Metrics) observe(start time.Time, err error) {
	if m == nil {
		return
	}
	m.resolutionDuration.Observe(time.Since(start).Seconds())
	m.resolutionsTotal.WithLabelValues(outcomeOf(err)).Inc()
}

func (m *Metrics) bootstrapped() {
	if m == nil {
		return
	}
	m.bootstrapTotal.Inc()
}

func (m *Metrics) scanned(n int) {
	if m == nil {
		return
	}
	m.candidatesScanned.Observe(float64(n))
}

func outcomeOf(err error) string {
	switch {
	case err == nil:
		return OutcomeResolved
	case errors.Is(err, ErrNoVersionsFound):
		return OutcomeNoVersions
	case errors.Is(err, ErrUnsatisfiable):
		return OutcomeUnsatisfiable
	default:
		return OutcomeError
	}
}
