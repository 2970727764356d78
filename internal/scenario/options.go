package scenario

import (
	"log"
	"time"

	"github.com/google/uuid"

	"github.com/gotrs-io/search-e2e/internal/diag"
	"github.com/gotrs-io/search-e2e/internal/poll"
	"github.com/gotrs-io/search-e2e/internal/searchpage"
)

// DefaultScenarioTimeout bounds one scenario including session start-up.
const DefaultScenarioTimeout = 2 * time.Minute

type options struct {
	Logger      *log.Logger
	Metrics     *Metrics
	PollMetrics *poll.Metrics
	Diagnostics *diag.Collector
	Timeout     time.Duration
	Now         func() time.Time
	NewID       func() string
	PageOptions []searchpage.Option
}

// Option applies configuration to the runner.
type Option func(*options)

func defaultOptions() options {
	return options{
		Logger:  log.Default(),
		Timeout: DefaultScenarioTimeout,
		Now:     time.Now,
		NewID:   uuid.NewString,
	}
}

// WithLogger injects a custom logger implementation.
func WithLogger(l *log.Logger) Option {
	return func(o *options) {
		o.Logger = l
	}
}

// WithMetrics records scenario outcomes.
func WithMetrics(m *Metrics) Option {
	return func(o *options) {
		o.Metrics = m
	}
}

// WithPollMetrics records the waits performed by every page object.
func WithPollMetrics(m *poll.Metrics) Option {
	return func(o *options) {
		o.PollMetrics = m
	}
}

// WithDiagnostics captures page evidence for failed scenarios.
func WithDiagnostics(c *diag.Collector) Option {
	return func(o *options) {
		o.Diagnostics = c
	}
}

// WithScenarioTimeout overrides DefaultScenarioTimeout.
func WithScenarioTimeout(d time.Duration) Option {
	return func(o *options) {
		if d > 0 {
			o.Timeout = d
		}
	}
}

// WithClock replaces time.Now for run and scenario timestamps.
func WithClock(now func() time.Time) Option {
	return func(o *options) {
		if now != nil {
			o.Now = now
		}
	}
}

// WithIDGenerator replaces the random run ID source.
func WithIDGenerator(f func() string) Option {
	return func(o *options) {
		if f != nil {
			o.NewID = f
		}
	}
}

// WithPageOptions are passed to every searchpage.Page the runner builds.
func WithPageOptions(opts ...searchpage.Option) Option {
	return func(o *options) {
		o.PageOptions = append(o.PageOptions, opts...)
	}
}
