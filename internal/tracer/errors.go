package tracer

import "fmt"

// Error wraps an engine-level invariant violation or unexpected failure
// that isn't already a DataSourceError from the chain port, per the
// Tracer error-kind in the taxonomy.
type Error struct {
	Cause error
}

func (e *Error) Error() string {
	return fmt.Sprintf("tracer: %v", e.Cause)
}

func (e *Error) Unwrap() error {
	return e.Cause
}

func wrap(cause error) error {
	if cause == nil {
		return nil
	}
	return &Error{Cause: cause}
}
