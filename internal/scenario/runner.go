package scenario

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/gotrs-io/search-e2e/internal/config"
	"github.com/gotrs-io/search-e2e/internal/diag"
	"github.com/gotrs-io/search-e2e/internal/poll"
	"github.com/gotrs-io/search-e2e/internal/searchpage"
	"github.com/gotrs-io/search-e2e/internal/session"
)

// Status is the outcome of one scenario.
type Status string

const (
	StatusPassed  Status = "passed"
	StatusFailed  Status = "failed"
	StatusError   Status = "error"
	StatusSkipped Status = "skipped"
)

// diagnosticsTimeout bounds evidence capture after a failure.
const diagnosticsTimeout = 10 * time.Second

// Result is the outcome of one scenario within a run.
type Result struct {
	ID          string         `json:"id" yaml:"id"`
	Name        string         `json:"name" yaml:"name"`
	Tags        []string       `json:"tags,omitempty" yaml:"tags,omitempty"`
	Status      Status         `json:"status" yaml:"status"`
	Duration    time.Duration  `json:"duration" yaml:"duration"`
	Error       string         `json:"error,omitempty" yaml:"error,omitempty"`
	Diagnostics *diag.Snapshot `json:"diagnostics,omitempty" yaml:"diagnostics,omitempty"`

	Err error `json:"-" yaml:"-"`
}

// Run is one execution of a scenario list.
type Run struct {
	ID         string    `json:"id" yaml:"id"`
	BaseURL    string    `json:"base_url" yaml:"base_url"`
	Driver     string    `json:"driver" yaml:"driver"`
	StartedAt  time.Time `json:"started_at" yaml:"started_at"`
	FinishedAt time.Time `json:"finished_at" yaml:"finished_at"`
	Results    []Result  `json:"results" yaml:"results"`
}

// Summary counts results by status.
type Summary struct {
	Total   int `json:"total" yaml:"total"`
	Passed  int `json:"passed" yaml:"passed"`
	Failed  int `json:"failed" yaml:"failed"`
	Errored int `json:"errored" yaml:"errored"`
	Skipped int `json:"skipped" yaml:"skipped"`
}

// Summary counts the run's results.
func (r *Run) Summary() Summary {
	s := Summary{Total: len(r.Results)}
	for _, res := range r.Results {
		switch res.Status {
		case StatusPassed:
			s.Passed++
		case StatusFailed:
			s.Failed++
		case StatusError:
			s.Errored++
		case StatusSkipped:
			s.Skipped++
		}
	}
	return s
}

// Passed reports whether every scenario passed.
func (r *Run) Passed() bool {
	s := r.Summary()
	return s.Passed == s.Total
}

// Duration is the wall time of the run.
func (r *Run) Duration() time.Duration {
	return r.FinishedAt.Sub(r.StartedAt)
}

// Opener starts a fresh browser session.
type Opener func(ctx context.Context) (session.Session, error)

// Runner executes scenarios sequentially, each in its own session.
type Runner struct {
	cfg  *config.Config
	open Opener
	o    options
}

// NewRunner builds a runner opening sessions with open.
func NewRunner(cfg *config.Config, open Opener, opts ...Option) *Runner {
	o := defaultOptions()
	for _, opt := range opts {
		if opt != nil {
			opt(&o)
		}
	}
	return &Runner{cfg: cfg, open: open, o: o}
}

// Run executes list in order. Once ctx is done the remaining scenarios are
// reported as skipped.
func (r *Runner) Run(ctx context.Context, list []Scenario) *Run {
	run := &Run{
		ID:        r.o.NewID(),
		BaseURL:   r.cfg.BaseURL,
		Driver:    r.cfg.Driver,
		StartedAt: r.o.Now(),
		Results:   make([]Result, 0, len(list)),
	}
	r.o.Logger.Printf("[search-e2e] Run %s: %d scenarios against %s (%s)", run.ID, len(list), run.BaseURL, run.Driver)

	for _, sc := range list {
		var res Result
		if err := ctx.Err(); err != nil {
			res = Result{ID: sc.ID(), Name: sc.Name, Tags: sc.Tags, Status: StatusSkipped, Error: err.Error(), Err: err}
		} else {
			res = r.runOne(ctx, run.ID, sc)
		}
		r.o.Metrics.observe(res)
		r.report(res)
		run.Results = append(run.Results, res)
	}

	run.FinishedAt = r.o.Now()
	r.o.Metrics.finished(run)
	s := run.Summary()
	r.o.Logger.Printf("[search-e2e] Run %s finished in %s: %d passed, %d failed, %d errors, %d skipped",
		run.ID, run.Duration().Round(time.Millisecond), s.Passed, s.Failed, s.Errored, s.Skipped)
	return run
}

func (r *Runner) report(res Result) {
	switch res.Status {
	case StatusPassed:
		r.o.Logger.Printf("[search-e2e] PASS %s (%s)", res.Name, res.Duration.Round(time.Millisecond))
	case StatusSkipped:
		r.o.Logger.Printf("[search-e2e] SKIP %s: %s", res.Name, res.Error)
	default:
		r.o.Logger.Printf("[search-e2e] %s %s (%s): %s", statusWord(res.Status), res.Name, res.Duration.Round(time.Millisecond), res.Error)
	}
}

func statusWord(s Status) string {
	if s == StatusError {
		return "ERROR"
	}
	return "FAIL"
}

func (r *Runner) runOne(ctx context.Context, runID string, sc Scenario) Result {
	res := Result{ID: sc.ID(), Name: sc.Name, Tags: sc.Tags}
	start := r.o.Now()

	sctx, cancel := context.WithTimeout(ctx, r.o.Timeout)
	defer cancel()

	sess, err := r.open(sctx)
	if err != nil {
		res.Duration = r.o.Now().Sub(start)
		res.fail(fmt.Errorf("open session: %w", err))
		return res
	}
	defer func() {
		if cerr := sess.Close(); cerr != nil {
			r.o.Logger.Printf("[search-e2e] Failed to close session for %s: %v", sc.Name, cerr)
		}
	}()

	pageOpts := append([]searchpage.Option{
		searchpage.WithLogger(r.o.Logger),
		searchpage.WithMetrics(r.o.PollMetrics),
	}, r.o.PageOptions...)
	page := searchpage.New(sess, r.cfg, pageOpts...)
	env := &Env{Page: page, Fixtures: r.cfg.Fixtures, Settle: r.cfg.SettleDelay, Logger: r.o.Logger}

	err = page.Open(sctx)
	if err == nil {
		err = sc.Run(sctx, env)
	}
	res.Duration = r.o.Now().Sub(start)
	if err == nil {
		res.Status = StatusPassed
		return res
	}
	res.fail(err)

	if r.o.Diagnostics != nil && res.Status != StatusSkipped {
		dctx, dcancel := context.WithTimeout(context.WithoutCancel(ctx), diagnosticsTimeout)
		snap, derr := r.o.Diagnostics.Capture(dctx, sess, runID, sc.Name)
		dcancel()
		if derr != nil {
			r.o.Logger.Printf("[search-e2e] Incomplete diagnostics for %s: %v", sc.Name, derr)
		}
		res.Diagnostics = &snap
	}
	return res
}

// fail records err and classifies it. A scenario interrupted by cancellation
// is skipped, rejected verdicts and conditions that never held are failures,
// anything else is an error of the run itself.
func (res *Result) fail(err error) {
	res.Err = err
	res.Error = err.Error()
	if errors.Is(err, context.Canceled) {
		res.Status = StatusSkipped
		return
	}
	if errors.Is(err, ErrAssertion) || errors.Is(err, poll.ErrTimeout) {
		res.Status = StatusFailed
		return
	}
	res.Status = StatusError
}
