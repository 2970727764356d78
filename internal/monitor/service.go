// Package monitor repeats the scenario catalog on a cron schedule.
package monitor

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/gotrs-io/search-e2e/internal/history"
	"github.com/gotrs-io/search-e2e/internal/scenario"
)

// RunFunc executes one run of the suite.
type RunFunc func(ctx context.Context) *scenario.Run

// State describes the most recent activity of the service.
type State struct {
	Runs       int
	LastRunID  string
	LastPassed bool
	LastRunAt  time.Time
	LastError  string
	Next       time.Time
}

// Service runs the suite whenever its schedule fires. Overlapping triggers
// are skipped while a run is still in progress.
type Service struct {
	schedule string
	run      RunFunc
	cron     *cron.Cron
	parser   cron.Parser
	logger   *log.Logger
	recorder *history.Recorder
	store    *history.Store
	o        options

	job     cron.Job
	entryID cron.EntryID
	rootCtx context.Context

	mu        sync.RWMutex
	state     State
	startup   sync.WaitGroup
	startOnce sync.Once
	stopOnce  sync.Once
}

// NewService wires a monitor calling run on schedule, a standard five field
// cron expression or a descriptor such as "@every 15m".
func NewService(schedule string, run RunFunc, opts ...Option) *Service {
	options := defaultOptions()
	for _, opt := range opts {
		opt(&options)
	}

	if options.Logger == nil {
		options.Logger = log.Default()
	}
	location := options.Location
	if location == nil {
		location = time.UTC
	}
	cronLogger := cron.PrintfLogger(options.Logger)
	cronEngine := options.Cron
	if cronEngine == nil {
		cronEngine = cron.New(cron.WithLocation(location), cron.WithLogger(cronLogger))
	}
	var zeroParser cron.Parser
	parser := options.Parser
	if parser == zeroParser {
		parser = cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor)
	}

	s := &Service{
		schedule: schedule,
		run:      run,
		cron:     cronEngine,
		parser:   parser,
		logger:   options.Logger,
		recorder: history.NewRecorder(options.History, options.Logger),
		store:    options.History,
		o:        options,
	}
	s.job = cron.NewChain(cron.SkipIfStillRunning(cronLogger)).Then(cron.FuncJob(s.execute))
	return s
}

// Run schedules the suite and blocks until ctx is cancelled.
func (s *Service) Run(ctx context.Context) error {
	schedule, err := s.parser.Parse(s.schedule)
	if err != nil {
		return fmt.Errorf("invalid schedule %q: %w", s.schedule, err)
	}

	s.startOnce.Do(func() {
		s.rootCtx = ctx
		s.mu.Lock()
		s.entryID = s.cron.Schedule(schedule, s.job)
		s.mu.Unlock()
		s.cron.Start()
		s.logger.Printf("[monitor] Scheduled suite %q", s.schedule)
		if s.o.RunOnStart {
			s.startup.Add(1)
			go func() {
				defer s.startup.Done()
				s.job.Run()
			}()
		}
	})

	<-ctx.Done()
	s.stop()
	return nil
}

func (s *Service) stop() {
	s.stopOnce.Do(func() {
		ctx := s.cron.Stop()
		done := make(chan struct{})
		go func() {
			<-ctx.Done()
			s.startup.Wait()
			close(done)
		}()
		select {
		case <-done:
		case <-time.After(5 * time.Minute):
			s.logger.Printf("[monitor] Timed out waiting for the running suite to finish")
		}
	})
}

// State returns a snapshot of the service's progress.
func (s *Service) State() State {
	s.mu.RLock()
	st, id := s.state, s.entryID
	s.mu.RUnlock()
	if id != 0 {
		st.Next = s.cron.Entry(id).Next
	}
	return st
}

func (s *Service) execute() {
	ctx := s.rootCtx
	if ctx == nil {
		ctx = context.Background()
	}
	if ctx.Err() != nil {
		return
	}

	run := s.run(ctx)
	sum := run.Summary()
	s.logger.Printf("[monitor] Run %s: %d/%d passed", run.ID, sum.Passed, sum.Total)

	// Record even when the monitor was stopped mid-run.
	hctx := context.WithoutCancel(ctx)
	var errMsg string
	changes, err := s.recorder.Record(hctx, run)
	if err != nil {
		errMsg = err.Error()
		s.logger.Printf("[monitor] Failed to record run %s: %v", run.ID, err)
	}
	if s.store != nil && s.o.Retention > 0 {
		if n, err := s.store.Prune(hctx, s.o.Retention); err != nil {
			s.logger.Printf("[monitor] Failed to prune history: %v", err)
		} else if n > 0 {
			s.logger.Printf("[monitor] Pruned %d old runs", n)
		}
	}

	s.mu.Lock()
	s.state.Runs++
	s.state.LastRunID = run.ID
	s.state.LastPassed = run.Passed()
	s.state.LastRunAt = run.FinishedAt
	s.state.LastError = errMsg
	s.mu.Unlock()

	if s.o.OnRun != nil {
		s.o.OnRun(run, changes)
	}
}
