// Package runtimeprofiler defines the uniform per-runtime profiler
// contract - Java, Python, Node.js, .NET, Ruby, PHP, and the continuous
// Python eBPF variant - and a dynamic registry the orchestrator consults
// to pick which ones to run.
package runtimeprofiler

import (
	"context"
	"time"

	"github.com/intel/gprofiler-go/internal/stack"
)

// ProfileData is a single PID's snapshot result: its stack counters plus
// whatever identity and metadata the runtime profiler could determine.
type ProfileData struct {
	Counters      stack.StackSampleCounters
	AppID         string
	AppMetadata   map[string]string
	ContainerName string
}

// Profiler is the capability set every runtime profiler implements.
// Start/Stop are optional lifecycle hooks (the continuous eBPF variant
// uses them; spawn-per-cycle profilers are no-ops for both) - callers
// invoke them unconditionally, and no-op implementations simply return
// nil, rather than type-switching on an optional interface.
type Profiler interface {
	// Name identifies the runtime, e.g. "java", "python".
	Name() string

	// Start begins any always-on lifecycle the profiler needs. Called
	// once before the first cycle.
	Start(ctx context.Context) error

	// Stop ends that lifecycle. Called once during agent shutdown.
	Stop() error

	// SelectProcesses returns the live PIDs matching this runtime's
	// discovery criterion.
	SelectProcesses() ([]int, error)

	// Snapshot profiles the given PIDs for duration and returns one
	// ProfileData per PID that yielded a usable stack. Per-PID failures
	// are omitted from the result, not returned as an error.
	Snapshot(ctx context.Context, pids []int, duration time.Duration) (map[int]ProfileData, error)
}

// AnchorFramesFor returns the native interpreter frames the stack merger
// looks for when splicing the named runtime's managed stacks into a
// native one, read from stack.AnchorFrames. A runtime with no entry
// there (e.g. "python-ebpf") gets nil.
func AnchorFramesFor(name string) []string {
	return stack.AnchorFrames[name]
}
