//go:build !linux

package mutex

import "github.com/intel/gprofiler-go/internal/errkind"

// Abstract-namespace Unix sockets are a Linux-only kernel feature; the
// continuous profiling agent targets Linux hosts, so other platforms
// report the precondition as unmet rather than silently skipping the
// singleton check.
func acquire(address string) (Lock, error) {
	return nil, errkind.UnsupportedEnvironment
}
