package poll

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics tracks poll outcomes. A nil *Metrics records nothing.
type Metrics struct {
	waits    *prometheus.CounterVec
	attempts prometheus.Histogram
	duration prometheus.Histogram
}

// NewMetrics registers the poll collectors with reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		waits: f.NewCounterVec(prometheus.CounterOpts{
			Name: "search_e2e_poll_waits_total",
			Help: "Total number of condition waits by outcome",
		}, []string{"outcome"}),
		attempts: f.NewHistogram(prometheus.HistogramOpts{
			Name:    "search_e2e_poll_attempts",
			Help:    "Accessor invocations per wait",
			Buckets: []float64{1, 2, 3, 5, 10, 20, 50, 100},
		}),
		duration: f.NewHistogram(prometheus.HistogramOpts{
			Name:    "search_e2e_poll_wait_duration_seconds",
			Help:    "Time spent waiting for a condition",
			Buckets: prometheus.DefBuckets,
		}),
	}
}

func (m *Metrics) satisfied(elapsed time.Duration, attempts int) {
	m.observe("satisfied", elapsed, attempts)
}

func (m *Metrics) timedOut(elapsed time.Duration, attempts int) {
	m.observe("timeout", elapsed, attempts)
}

func (m *Metrics) observe(outcome string, elapsed time.Duration, attempts int) {
	if m == nil {
		return
	}
	m.waits.WithLabelValues(outcome).Inc()
	m.attempts.Observe(float64(attempts))
	m.duration.Observe(elapsed.Seconds())
}
