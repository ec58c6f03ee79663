package runtimeprofiler

import (
	"regexp"

	"github.com/intel/gprofiler-go/internal/sys/proc"
)

// ByExeRegex returns every live PID whose resolved executable path
// matches re. Used by the Node.js and .NET profilers, whose runtimes are
// identifiable by their own binary name.
func ByExeRegex(re *regexp.Regexp) ([]int, error) {
	pids, err := proc.ListPids()
	if err != nil {
		return nil, err
	}
	var matched []int
	for _, pid := range pids {
		exe, err := proc.BinaryPath(pid)
		if err != nil {
			continue
		}
		if re.MatchString(exe) {
			matched = append(matched, pid)
		}
	}
	return matched, nil
}

// ByMapsRegex returns every live PID whose /proc/<pid>/maps contains a
// line matching re. Used by the Python, Ruby, and PHP profilers, whose
// interpreters are identifiable by the shared libraries mapped into
// their address space (e.g. libpython*.so) even when invoked through a
// wrapper script rather than the interpreter binary itself.
func ByMapsRegex(re *regexp.Regexp) ([]int, error) {
	pids, err := proc.ListPids()
	if err != nil {
		return nil, err
	}
	var matched []int
	for _, pid := range pids {
		maps, err := proc.Maps(pid)
		if err != nil {
			continue
		}
		if re.Match(maps) {
			matched = append(matched, pid)
		}
	}
	return matched, nil
}

// javaExeNames are the process names the JVM launcher and its common
// wrappers are invoked as.
var javaExeNames = regexp.MustCompile(`(^|/)(java|javaw)$`)

// ByJVMDetection returns every live PID that looks like a JVM process,
// matching either on the launcher's executable name or a mapped
// libjvm.so, so a JVM started from a custom-named wrapper (as many
// application servers do) is still found.
func ByJVMDetection() ([]int, error) {
	pids, err := proc.ListPids()
	if err != nil {
		return nil, err
	}
	libjvm := regexp.MustCompile(`libjvm\.so`)
	var matched []int
	for _, pid := range pids {
		if exe, err := proc.BinaryPath(pid); err == nil && javaExeNames.MatchString(exe) {
			matched = append(matched, pid)
			continue
		}
		if maps, err := proc.Maps(pid); err == nil && libjvm.Match(maps) {
			matched = append(matched, pid)
		}
	}
	return matched, nil
}
