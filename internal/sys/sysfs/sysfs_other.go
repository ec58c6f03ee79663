//go:build !linux

package sysfs

import "errors"

// MountDebugfs is a Linux-only operation; the continuous eBPF helper
// that needs it never runs elsewhere.
func MountDebugfs() error {
	return errors.New("debugfs is a linux-only filesystem")
}
