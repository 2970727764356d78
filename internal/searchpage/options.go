package searchpage

import (
	"log"

	"github.com/gotrs-io/search-e2e/internal/poll"
)

type options struct {
	Logger   *log.Logger
	Metrics  *poll.Metrics
	PollOpts []poll.Option
}

// Option applies configuration to a Page.
type Option func(*options)

func defaultOptions() options {
	return options{Logger: log.Default()}
}

// WithLogger injects a custom logger implementation.
func WithLogger(l *log.Logger) Option {
	return func(o *options) {
		o.Logger = l
	}
}

// WithMetrics records every wait the page performs.
func WithMetrics(m *poll.Metrics) Option {
	return func(o *options) {
		o.Metrics = m
	}
}

// WithPollOptions appends options to every wait, after the page's own.
func WithPollOptions(opts ...poll.Option) Option {
	return func(o *options) {
		o.PollOpts = append(o.PollOpts, opts...)
	}
}
