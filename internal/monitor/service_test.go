package monitor

import (
	"bytes"
	"context"
	"fmt"
	"log"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gotrs-io/search-e2e/internal/history"
	"github.com/gotrs-io/search-e2e/internal/scenario"
)

type fakeSuite struct {
	calls    atomic.Int32
	statuses [][]scenario.Status
}

func (f *fakeSuite) run(ctx context.Context) *scenario.Run {
	n := int(f.calls.Add(1))
	start := time.Date(2025, 3, 1, 8, 0, 0, 0, time.UTC).Add(time.Duration(n) * time.Hour)
	run := &scenario.Run{ID: fmt.Sprintf("run-%d", n), StartedAt: start, FinishedAt: start.Add(time.Minute)}
	statuses := f.statuses[(n-1)%len(f.statuses)]
	for i, st := range statuses {
		run.Results = append(run.Results, scenario.Result{ID: fmt.Sprintf("s%d", i), Name: fmt.Sprintf("Scenario %d", i), Status: st})
	}
	return run
}

func quietLogger() *log.Logger {
	return log.New(&bytes.Buffer{}, "", 0)
}

func openStore(t *testing.T) *history.Store {
	t.Helper()
	store, err := history.Open(context.Background(), ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return store
}

func TestExecuteRecordsAndReportsChanges(t *testing.T) {
	pass, fail := scenario.StatusPassed, scenario.StatusFailed
	suite := &fakeSuite{statuses: [][]scenario.Status{{pass, pass}, {pass, fail}}}
	store := openStore(t)

	var (
		mu      sync.Mutex
		changes [][]string
	)
	svc := NewService("@every 1h", suite.run,
		WithLogger(quietLogger()),
		WithHistory(store),
		WithOnRun(func(_ *scenario.Run, c []string) {
			mu.Lock()
			changes = append(changes, c)
			mu.Unlock()
		}),
	)

	svc.execute()
	svc.execute()

	recent, err := store.Recent(context.Background(), 10)
	require.NoError(t, err)
	require.Len(t, recent, 2)
	assert.Equal(t, "run-2", recent[0].ID)

	require.Len(t, changes, 2)
	assert.Empty(t, changes[0])
	assert.Equal(t, []string{"Scenario 1 changed from passed to failed"}, changes[1])

	st := svc.State()
	assert.Equal(t, 2, st.Runs)
	assert.Equal(t, "run-2", st.LastRunID)
	assert.False(t, st.LastPassed)
	assert.Empty(t, st.LastError)
}

func TestExecuteAppliesRetention(t *testing.T) {
	suite := &fakeSuite{statuses: [][]scenario.Status{{scenario.StatusPassed}}}
	store := openStore(t)
	svc := NewService("@daily", suite.run, WithLogger(quietLogger()), WithHistory(store), WithRetention(2))

	for range 4 {
		svc.execute()
	}

	recent, err := store.Recent(context.Background(), 10)
	require.NoError(t, err)
	require.Len(t, recent, 2)
	assert.Equal(t, "run-4", recent[0].ID)
	assert.Equal(t, "run-3", recent[1].ID)
}

func TestExecuteWithoutHistory(t *testing.T) {
	suite := &fakeSuite{statuses: [][]scenario.Status{{scenario.StatusPassed}}}
	svc := NewService("@daily", suite.run, WithLogger(quietLogger()))

	svc.execute()

	st := svc.State()
	assert.Equal(t, 1, st.Runs)
	assert.True(t, st.LastPassed)
}

func TestRunRejectsInvalidSchedule(t *testing.T) {
	svc := NewService("every now and then", (&fakeSuite{}).run, WithLogger(quietLogger()))
	err := svc.Run(context.Background())
	assert.ErrorContains(t, err, `invalid schedule "every now and then"`)
}

func TestRunOnStartAndStop(t *testing.T) {
	suite := &fakeSuite{statuses: [][]scenario.Status{{scenario.StatusPassed}}}
	cronEngine := cron.New(cron.WithLocation(time.UTC))
	svc := NewService("@hourly", suite.run,
		WithLogger(quietLogger()),
		WithCron(cronEngine),
		WithRunOnStart(true),
	)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- svc.Run(ctx) }()

	require.Eventually(t, func() bool { return svc.State().Runs == 1 }, 2*time.Second, 10*time.Millisecond)
	assert.False(t, svc.State().Next.IsZero())

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("monitor did not stop")
	}
	assert.Equal(t, int32(1), suite.calls.Load())
}

func TestExecuteSkipsAfterCancel(t *testing.T) {
	suite := &fakeSuite{statuses: [][]scenario.Status{{scenario.StatusPassed}}}
	svc := NewService("@daily", suite.run, WithLogger(quietLogger()))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	svc.rootCtx = ctx
	svc.execute()

	assert.Equal(t, int32(0), suite.calls.Load())
}

func TestStopWaitsForStartupRun(t *testing.T) {
	store := openStore(t)
	started := make(chan struct{})
	var finished atomic.Bool
	slow := func(ctx context.Context) *scenario.Run {
		close(started)
		time.Sleep(300 * time.Millisecond)
		finished.Store(true)
		now := time.Now().UTC()
		return &scenario.Run{
			ID: "slow", StartedAt: now, FinishedAt: now,
			Results: []scenario.Result{{ID: "s0", Name: "Scenario 0", Status: scenario.StatusPassed}},
		}
	}
	svc := NewService("@hourly", slow,
		WithLogger(quietLogger()),
		WithHistory(store),
		WithRunOnStart(true),
	)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- svc.Run(ctx) }()

	<-started
	cancel()
	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("monitor did not stop")
	}

	assert.True(t, finished.Load(), "Run returned before the startup run finished")
	recent, err := store.Recent(context.Background(), 10)
	require.NoError(t, err)
	require.Len(t, recent, 1)
	assert.Equal(t, "slow", recent[0].ID)
	assert.Equal(t, 1, svc.State().Runs)
}
