// Package poll blocks a caller until externally driven state satisfies a
// predicate, re-reading that state on every tick.
package poll

import (
	"context"
	"time"
)

const (
	// DefaultTimeout bounds a wait when no WithTimeout option is given.
	DefaultTimeout = 10 * time.Second
	// DefaultInterval is the pause between two ticks.
	DefaultInterval = 100 * time.Millisecond
)

// WaitUntil invokes accessor until predicate accepts its result or the
// timeout elapses. The accessor runs afresh on every tick; nothing it
// returned on an earlier tick is reused. An accessor error counts as
// "not yet" and is kept as the cause of the eventual *TimeoutError.
//
// The context is only consulted between ticks. An accessor that is already
// running is never interrupted.
func WaitUntil[T any](ctx context.Context, accessor func(context.Context) (T, error), predicate func(T) bool, opts ...Option) (T, error) {
	o := newOptions(opts)

	var (
		zero     T
		cause    error
		attempts int
	)
	start := o.clock.Now()
	deadline := start.Add(o.timeout)
	interval := o.interval

	for {
		attempts++
		v, err := accessor(ctx)
		if err == nil && predicate(v) {
			o.metrics.satisfied(o.clock.Now().Sub(start), attempts)
			if attempts > 1 && o.logger != nil && o.verbose {
				o.logger.Printf("[poll] %s satisfied after %d attempts", o.description, attempts)
			}
			return v, nil
		}
		cause = err
		if err != nil && o.logger != nil && o.verbose {
			o.logger.Printf("[poll] %s: attempt %d: %v", o.description, attempts, err)
		}

		if ctxErr := ctx.Err(); ctxErr != nil {
			return zero, o.fail(start, attempts, ctxErr)
		}
		remaining := deadline.Sub(o.clock.Now())
		if remaining <= 0 {
			return zero, o.fail(start, attempts, cause)
		}

		pause := interval
		if pause > remaining {
			pause = remaining
		}
		if err := o.clock.Sleep(ctx, pause); err != nil {
			return zero, o.fail(start, attempts, err)
		}
		interval = o.next(interval)
	}
}

// Eventually waits for a boolean condition.
func Eventually(ctx context.Context, cond func(context.Context) (bool, error), opts ...Option) error {
	_, err := WaitUntil(ctx, cond, func(ok bool) bool { return ok }, opts...)
	return err
}

func (o *options) fail(start time.Time, attempts int, cause error) error {
	err := &TimeoutError{
		Description: o.description,
		Elapsed:     o.clock.Now().Sub(start),
		Attempts:    attempts,
		Cause:       cause,
	}
	o.metrics.timedOut(err.Elapsed, attempts)
	if o.logger != nil {
		o.logger.Printf("[poll] %v", err)
	}
	return err
}

func (o *options) next(cur time.Duration) time.Duration {
	if o.multiplier <= 1 {
		return cur
	}
	n := time.Duration(float64(cur) * o.multiplier)
	if o.maxInterval > 0 && n > o.maxInterval {
		n = o.maxInterval
	}
	return n
}
