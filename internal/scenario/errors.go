package scenario

import (
	"errors"
	"fmt"
)

// ErrAssertion matches every *AssertionError.
var ErrAssertion = errors.New("assertion failed")

// AssertionError is a verdict a scenario rejected. Timeouts and driver
// errors are reported as they are and never wrapped into one.
type AssertionError struct {
	Message string
}

func (e *AssertionError) Error() string {
	return "assertion failed: " + e.Message
}

func (e *AssertionError) Is(target error) bool {
	return target == ErrAssertion
}

func failf(format string, args ...any) error {
	return &AssertionError{Message: fmt.Sprintf(format, args...)}
}
