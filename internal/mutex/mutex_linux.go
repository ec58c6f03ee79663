//go:build linux

package mutex

import (
	"errors"
	"fmt"
	"net"
	"syscall"

	"github.com/intel/gprofiler-go/internal/errkind"
)

// unixLock wraps the abstract-namespace listener that represents the
// held lock. Abstract-namespace sockets (address starting with a NUL
// byte) live in the init network namespace and are automatically
// released when the owning process exits or closes the listener, so
// there's no stale lock file to clean up after a crash.
type unixLock struct {
	ln net.Listener
}

func (l *unixLock) Close() error {
	return l.ln.Close()
}

func acquire(address string) (Lock, error) {
	ln, err := net.Listen("unix", address)
	if err != nil {
		if errors.Is(err, syscall.EADDRINUSE) {
			return nil, errkind.MutexHeld
		}
		var opErr *net.OpError
		if errors.As(err, &opErr) && errors.Is(opErr.Err, syscall.EADDRINUSE) {
			return nil, errkind.MutexHeld
		}
		return nil, fmt.Errorf("acquire agent lock: %w", err)
	}
	return &unixLock{ln: ln}, nil
}
