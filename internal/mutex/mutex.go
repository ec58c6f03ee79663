// Package mutex provides the system-wide agent singleton lock: a second
// agent instance on the same host must fail fast with a clear message
// rather than silently racing the first for the same /proc, perf, and
// per-runtime resources.
package mutex

import "github.com/intel/gprofiler-go/internal/constants"

// Lock is held by at most one agent process on a host at a time.
// Releasing it (Close) frees the address for the next instance.
type Lock interface {
	Close() error
}

// Acquire takes the system-wide singleton lock at constants.MutexAddress.
// It returns errkind.MutexHeld if another instance already holds it.
func Acquire() (Lock, error) {
	return acquire(constants.MutexAddress)
}
