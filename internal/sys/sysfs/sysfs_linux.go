//go:build linux

package sysfs

import (
	"fmt"
	"syscall"
)

// MountDebugfs mounts debugfs at DebugfsMountpoint. Requires CAP_SYS_ADMIN.
func MountDebugfs() error {
	if err := syscall.Mount("debugfs", DebugfsMountpoint, "debugfs", 0, ""); err != nil {
		return fmt.Errorf("mount debugfs at %s: %w", DebugfsMountpoint, err)
	}
	return nil
}
