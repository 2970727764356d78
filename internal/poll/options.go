package poll

import (
	"context"
	"log"
	"time"
)

type options struct {
	timeout     time.Duration
	interval    time.Duration
	multiplier  float64
	maxInterval time.Duration
	description string
	logger      *log.Logger
	verbose     bool
	metrics     *Metrics
	clock       Clock
}

// Option configures a single wait.
type Option func(*options)

func defaultOptions() options {
	return options{
		timeout:     DefaultTimeout,
		interval:    DefaultInterval,
		description: "condition",
		clock:       realClock{},
	}
}

func newOptions(opts []Option) *options {
	o := defaultOptions()
	for _, opt := range opts {
		if opt != nil {
			opt(&o)
		}
	}
	if o.interval <= 0 {
		o.interval = DefaultInterval
	}
	if o.timeout < 0 {
		o.timeout = 0
	}
	return &o
}

// WithTimeout sets the total budget of the wait. Zero means a single tick.
func WithTimeout(d time.Duration) Option {
	return func(o *options) {
		o.timeout = d
	}
}

// WithInterval sets the pause between ticks.
func WithInterval(d time.Duration) Option {
	return func(o *options) {
		o.interval = d
	}
}

// WithBackoff grows the interval by multiplier after every tick, up to max.
func WithBackoff(multiplier float64, max time.Duration) Option {
	return func(o *options) {
		o.multiplier = multiplier
		o.maxInterval = max
	}
}

// WithDescription names the awaited condition in errors and logs.
func WithDescription(desc string) Option {
	return func(o *options) {
		if desc != "" {
			o.description = desc
		}
	}
}

// WithLogger reports timeouts to l. Pass verbose to also log every failed tick.
func WithLogger(l *log.Logger, verbose bool) Option {
	return func(o *options) {
		o.logger = l
		o.verbose = verbose
	}
}

// WithMetrics records wait outcomes.
func WithMetrics(m *Metrics) Option {
	return func(o *options) {
		o.metrics = m
	}
}

// WithClock replaces the wall clock, mostly for tests.
func WithClock(c Clock) Option {
	return func(o *options) {
		if c != nil {
			o.clock = c
		}
	}
}

// Clock abstracts time for the poll loop.
type Clock interface {
	Now() time.Time
	// Sleep pauses for d or until ctx is done, whichever comes first.
	Sleep(ctx context.Context, d time.Duration) error
}

type realClock struct{}

func (realClock) Now() time.Time { return time.Now() }

func (realClock) Sleep(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
