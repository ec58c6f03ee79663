// Package errkind defines the error kinds shared across the profiling
// orchestrator, so callers can branch on what went wrong with errors.Is
// instead of string matching.
package errkind

import (
	"errors"
	"fmt"
)

// Sentinel kinds. Wrap these with fmt.Errorf("...: %w", ErrX) at the point
// of failure so errors.Is still matches after additional context is added.
var (
	// Stopped means the shared stop signal fired while the caller was
	// waiting on a child process or another cancellable operation.
	Stopped = errors.New("stopped")

	// Timeout means a bounded wait (helper dump, rotation, snapshot)
	// exceeded its deadline without the stop signal firing.
	Timeout = errors.New("timeout")

	// ProgramMissing means a required external binary could not be found
	// on PATH or at its configured location.
	ProgramMissing = errors.New("required program not found")

	// ExternalMetadataStale means the external metadata file's mtime is
	// older than the staleness threshold.
	ExternalMetadataStale = errors.New("external metadata file is stale")

	// ApiError means the upload collaborator's HTTP call returned a
	// non-2xx response.
	ApiError = errors.New("aggregator api error")

	// MutexHeld means another agent instance already holds the
	// system-wide singleton lock.
	MutexHeld = errors.New("could not acquire gprofiler's lock")

	// UnsupportedEnvironment means a startup precondition (namespace,
	// capability, mount) was not met.
	UnsupportedEnvironment = errors.New("unsupported environment")
)

// ChildFailedError carries a child process's exit code and captured
// stdio so callers can report exactly what a failed helper did.
type ChildFailedError struct {
	Cmd      string
	ExitCode int
	Stdout   string
	Stderr   string
}

func (e *ChildFailedError) Error() string {
	return fmt.Sprintf("%s: exited with code %d", e.Cmd, e.ExitCode)
}

// ApiStatusError carries the HTTP status and response body for a failed
// upload to the aggregator.
type ApiStatusError struct {
	Status int
	Body   string
}

func (e *ApiStatusError) Error() string {
	return fmt.Sprintf("aggregator returned status %d: %s", e.Status, e.Body)
}

func (e *ApiStatusError) Is(target error) bool {
	return target == ApiError
}
