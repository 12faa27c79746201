package scheduler

import (
	"errors"
	"fmt"
)

// StartupError reports a scheduler server that never became responsive.
// Fatal: the batch cannot proceed without a live server.
type StartupError struct {
	Attempts int
	Err      error
}

func (e *StartupError) Error() string {
	return fmt.Sprintf("scheduler server not responding after %d attempts: %v", e.Attempts, e.Err)
}

func (e *StartupError) Unwrap() error { return e.Err }

// AllocationError reports a rejected cluster allocation-pool request.
// Fatal for the run.
type AllocationError struct {
	Spec AllocSpec
	Err  error
}

func (e *AllocationError) Error() string {
	return fmt.Sprintf("allocation request %s rejected: %v", e.Spec, e.Err)
}

func (e *AllocationError) Unwrap() error { return e.Err }

// IsStartupError reports whether err is a server readiness failure.
func IsStartupError(err error) bool {
	var se *StartupError
	return errors.As(err, &se)
}
