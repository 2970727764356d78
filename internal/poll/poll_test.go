package poll

import (
	"bytes"
	"context"
	"errors"
	"log"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeClock advances only when slept on.
type fakeClock struct {
	mu     sync.Mutex
	now    time.Time
	sleeps []time.Duration
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Sleep(ctx context.Context, d time.Duration) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
	c.sleeps = append(c.sleeps, d)
	return nil
}

func (c *fakeClock) advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

func nonEmpty(s []string) bool { return len(s) > 0 }

func TestWaitUntilReturnsFirstAcceptedValue(t *testing.T) {
	clock := newFakeClock()
	ticks := [][]string{{}, {}, {"Live Cartoon"}, {"Something else"}}
	calls := 0

	got, err := WaitUntil(context.Background(), func(context.Context) ([]string, error) {
		v := ticks[calls]
		calls++
		return v, nil
	}, nonEmpty, WithClock(clock), WithTimeout(time.Second), WithInterval(50*time.Millisecond))

	require.NoError(t, err)
	assert.Equal(t, []string{"Live Cartoon"}, got)
	assert.Equal(t, 3, calls, "accessor should run once per tick")
	assert.Len(t, clock.sleeps, 2, "two retries before the condition held")
}

func TestWaitUntilTreatsAccessorErrorsAsNotYet(t *testing.T) {
	clock := newFakeClock()
	stale := errors.New("stale element reference")
	calls := 0

	got, err := WaitUntil(context.Background(), func(context.Context) (string, error) {
		calls++
		if calls < 3 {
			return "", stale
		}
		return "ready", nil
	}, func(s string) bool { return s == "ready" }, WithClock(clock))

	require.NoError(t, err)
	assert.Equal(t, "ready", got)
	assert.Equal(t, 3, calls)
}

func TestWaitUntilTimesOut(t *testing.T) {
	clock := newFakeClock()
	timeout := 500 * time.Millisecond
	interval := 100 * time.Millisecond

	_, err := WaitUntil(context.Background(), func(context.Context) (int, error) {
		return 0, nil
	}, func(n int) bool { return n > 0 },
		WithClock(clock), WithTimeout(timeout), WithInterval(interval), WithDescription("result count > 0"))

	require.Error(t, err)
	assert.ErrorIs(t, err, ErrTimeout)

	var te *TimeoutError
	require.ErrorAs(t, err, &te)
	assert.Equal(t, "result count > 0", te.Description)
	assert.GreaterOrEqual(t, te.Elapsed, timeout)
	assert.LessOrEqual(t, te.Elapsed, timeout+interval)
	assert.Equal(t, 6, te.Attempts, "one tick at start and one after each pause")
	assert.Nil(t, te.Cause)
	assert.Contains(t, te.Error(), "result count > 0")
}

func TestWaitUntilTimeoutCarriesLastCause(t *testing.T) {
	clock := newFakeClock()
	notFound := errors.New("no such element")

	_, err := WaitUntil(context.Background(), func(context.Context) (string, error) {
		return "", notFound
	}, func(string) bool { return true }, WithClock(clock), WithTimeout(300*time.Millisecond))

	require.Error(t, err)
	assert.ErrorIs(t, err, ErrTimeout)
	assert.ErrorIs(t, err, notFound)
	assert.Contains(t, err.Error(), "no such element")
}

func TestWaitUntilCauseIsFromFinalTickOnly(t *testing.T) {
	clock := newFakeClock()
	calls := 0

	_, err := WaitUntil(context.Background(), func(context.Context) (string, error) {
		calls++
		if calls == 1 {
			return "", errors.New("transient")
		}
		return "", nil
	}, func(s string) bool { return s != "" }, WithClock(clock), WithTimeout(200*time.Millisecond))

	var te *TimeoutError
	require.ErrorAs(t, err, &te)
	assert.Nil(t, te.Cause, "a recovered transient error is not the cause")
}

func TestWaitUntilNeverOvershootsByMoreThanOneInterval(t *testing.T) {
	clock := newFakeClock()
	interval := 300 * time.Millisecond

	_, err := WaitUntil(context.Background(), func(context.Context) (bool, error) {
		clock.advance(20 * time.Millisecond)
		return false, nil
	}, func(ok bool) bool { return ok },
		WithClock(clock), WithTimeout(time.Second), WithInterval(interval))

	var te *TimeoutError
	require.ErrorAs(t, err, &te)
	assert.GreaterOrEqual(t, te.Elapsed, time.Second)
	assert.LessOrEqual(t, te.Elapsed, time.Second+interval)
	for _, d := range clock.sleeps {
		assert.LessOrEqual(t, d, interval)
	}
}

func TestWaitUntilZeroTimeoutTicksOnce(t *testing.T) {
	calls := 0
	_, err := WaitUntil(context.Background(), func(context.Context) (int, error) {
		calls++
		return calls, nil
	}, func(n int) bool { return n > 5 }, WithClock(newFakeClock()), WithTimeout(0))

	assert.ErrorIs(t, err, ErrTimeout)
	assert.Equal(t, 1, calls)
}

func TestWaitUntilBackoff(t *testing.T) {
	clock := newFakeClock()

	_, err := WaitUntil(context.Background(), func(context.Context) (bool, error) {
		return false, nil
	}, func(ok bool) bool { return ok },
		WithClock(clock), WithTimeout(2*time.Second),
		WithInterval(100*time.Millisecond), WithBackoff(2, 400*time.Millisecond))

	require.Error(t, err)
	require.GreaterOrEqual(t, len(clock.sleeps), 4)
	assert.Equal(t, []time.Duration{
		100 * time.Millisecond,
		200 * time.Millisecond,
		400 * time.Millisecond,
		400 * time.Millisecond,
	}, clock.sleeps[:4])
}

func TestWaitUntilStopsWhenContextCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	calls := 0

	_, err := WaitUntil(ctx, func(context.Context) (bool, error) {
		calls++
		if calls == 2 {
			cancel()
		}
		return false, nil
	}, func(ok bool) bool { return ok }, WithClock(newFakeClock()), WithTimeout(time.Minute))

	assert.ErrorIs(t, err, ErrTimeout)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 2, calls, "the in-flight tick completes before the wait ends")
}

func TestWaitUntilRealClock(t *testing.T) {
	start := time.Now()
	calls := 0
	got, err := WaitUntil(context.Background(), func(context.Context) (int, error) {
		calls++
		return calls, nil
	}, func(n int) bool { return n == 3 }, WithInterval(5*time.Millisecond), WithTimeout(time.Second))

	require.NoError(t, err)
	assert.Equal(t, 3, got)
	assert.Less(t, time.Since(start), time.Second)
}

func TestEventually(t *testing.T) {
	clock := newFakeClock()
	calls := 0
	err := Eventually(context.Background(), func(context.Context) (bool, error) {
		calls++
		return calls >= 2, nil
	}, WithClock(clock))
	require.NoError(t, err)
	assert.Equal(t, 2, calls)
}

func TestWaitUntilLogsTimeout(t *testing.T) {
	var buf bytes.Buffer
	logger := log.New(&buf, "", 0)

	_, err := WaitUntil(context.Background(), func(context.Context) (bool, error) {
		return false, errors.New("boom")
	}, func(ok bool) bool { return ok },
		WithClock(newFakeClock()), WithTimeout(100*time.Millisecond),
		WithDescription("no result banner"), WithLogger(logger, true))

	require.Error(t, err)
	out := buf.String()
	assert.Contains(t, out, "[poll] no result banner: attempt 1: boom")
	assert.Contains(t, out, "timed out after")
}

func TestMetricsRecordOutcomes(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewMetrics(reg)
	clock := newFakeClock()

	_, err := WaitUntil(context.Background(), func(context.Context) (bool, error) {
		return true, nil
	}, func(ok bool) bool { return ok }, WithClock(clock), WithMetrics(m))
	require.NoError(t, err)

	_, err = WaitUntil(context.Background(), func(context.Context) (bool, error) {
		return false, nil
	}, func(ok bool) bool { return ok }, WithClock(clock), WithMetrics(m), WithTimeout(0))
	require.Error(t, err)

	assert.Equal(t, 1.0, testutil.ToFloat64(m.waits.WithLabelValues("satisfied")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.waits.WithLabelValues("timeout")))
}

func TestNilMetricsIsSafe(t *testing.T) {
	var m *Metrics
	assert.NotPanics(t, func() {
		m.satisfied(time.Second, 1)
		m.timedOut(time.Second, 1)
	})
}
