package monitor

import (
	"log"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/gotrs-io/search-e2e/internal/history"
	"github.com/gotrs-io/search-e2e/internal/scenario"
)

type options struct {
	Logger     *log.Logger
	Cron       *cron.Cron
	Parser     cron.Parser
	Location   *time.Location
	History    *history.Store
	Retention  int
	RunOnStart bool
	OnRun      func(*scenario.Run, []string)
}

// Option applies configuration to the monitor service.
type Option func(*options)

func defaultOptions() options {
	return options{Logger: log.Default(), Location: time.UTC}
}

// WithLogger injects a custom logger implementation.
func WithLogger(l *log.Logger) Option {
	return func(o *options) {
		o.Logger = l
	}
}

// WithCron supplies a preconfigured cron scheduler instance.
func WithCron(c *cron.Cron) Option {
	return func(o *options) {
		o.Cron = c
	}
}

// WithCronParser allows replacing the cron expression parser.
func WithCronParser(p cron.Parser) Option {
	return func(o *options) {
		o.Parser = p
	}
}

// WithLocation sets the scheduler timezone location.
func WithLocation(loc *time.Location) Option {
	return func(o *options) {
		o.Location = loc
	}
}

// WithHistory records every run into store.
func WithHistory(store *history.Store) Option {
	return func(o *options) {
		o.History = store
	}
}

// WithRetention keeps only the newest n runs in history. Zero keeps all.
func WithRetention(n int) Option {
	return func(o *options) {
		o.Retention = n
	}
}

// WithRunOnStart triggers one run as soon as the service starts.
func WithRunOnStart(enabled bool) Option {
	return func(o *options) {
		o.RunOnStart = enabled
	}
}

// WithOnRun is called after every run with the status changes history found.
func WithOnRun(fn func(run *scenario.Run, changes []string)) Option {
	return func(o *options) {
		o.OnRun = fn
	}
}
