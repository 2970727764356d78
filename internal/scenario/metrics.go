package scenario

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics tracks scenario outcomes. A nil *Metrics records nothing.
type Metrics struct {
	results  *prometheus.CounterVec
	duration *prometheus.HistogramVec
	lastRun  prometheus.Gauge
	passing  prometheus.Gauge
}

// NewMetrics registers the scenario collectors with reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		results: f.NewCounterVec(prometheus.CounterOpts{
			Name: "search_e2e_scenario_results_total",
			Help: "Total number of scenario executions by scenario and status",
		}, []string{"scenario", "status"}),
		duration: f.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "search_e2e_scenario_duration_seconds",
			Help:    "Scenario execution time",
			Buckets: []float64{0.5, 1, 2.5, 5, 10, 20, 30, 60, 120},
		}, []string{"scenario"}),
		lastRun: f.NewGauge(prometheus.GaugeOpts{
			Name: "search_e2e_last_run_timestamp_seconds",
			Help: "Unix time the last run finished",
		}),
		passing: f.NewGauge(prometheus.GaugeOpts{
			Name: "search_e2e_last_run_success",
			Help: "1 when every scenario of the last run passed",
		}),
	}
}

func (m *Metrics) observe(r Result) {
	if m == nil {
		return
	}
	m.results.WithLabelValues(r.ID, string(r.Status)).Inc()
	m.duration.WithLabelValues(r.ID).Observe(r.Duration.Seconds())
}

func (m *Metrics) finished(run *Run) {
	if m == nil {
		return
	}
	m.lastRun.Set(float64(run.FinishedAt.Unix()))
	if run.Passed() {
		m.passing.Set(1)
	} else {
		m.passing.Set(0)
	}
}
