package poll

import (
	"errors"
	"fmt"
	"time"
)

// ErrTimeout matches every *TimeoutError via errors.Is.
var ErrTimeout = errors.New("poll: timed out")

// TimeoutError reports a condition that never held within its budget.
type TimeoutError struct {
	Description string
	Elapsed     time.Duration
	Attempts    int
	// Cause is the accessor error from the final tick, or the context error
	// when the wait was cancelled. Nil when the predicate simply kept failing.
	Cause error
}

func (e *TimeoutError) Error() string {
	msg := fmt.Sprintf("timed out after %s waiting for %s (%d attempts)",
		e.Elapsed.Round(time.Millisecond), e.Description, e.Attempts)
	if e.Cause != nil {
		msg += ": " + e.Cause.Error()
	}
	return msg
}

// Is makes errors.Is(err, ErrTimeout) hold.
func (e *TimeoutError) Is(target error) bool {
	return target == ErrTimeout
}

func (e *TimeoutError) Unwrap() error {
	return e.Cause
}
