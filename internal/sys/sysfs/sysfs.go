// Package sysfs checks the small set of /sys preconditions the continuous
// eBPF helper depends on before it starts tracing.
package sysfs

import "os"

// DebugfsMountpoint is where debugfs is conventionally mounted, and the
// location the continuous eBPF helper requires for its tracing prerequisites.
const DebugfsMountpoint = "/sys/kernel/debug"

// DebugfsMounted reports whether debugfs is mounted at DebugfsMountpoint,
// by checking for a directory that's known to appear once it is.
func DebugfsMounted() bool {
	info, err := os.Stat(DebugfsMountpoint + "/tracing")
	return err == nil && info.IsDir()
}
