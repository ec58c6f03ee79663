// Package constants holds the timing and sizing constants the orchestrator,
// perf supervisor, and runtime profilers are built around.
package constants

import "time"

// Temporary storage.
const (
	// TemporaryStorageDir is the agent's private /tmp-scoped working
	// directory. Cleaned on exit.
	TemporaryStorageDir = "/tmp/gprofiler_tmp"

	// MutexAddress is the abstract-namespace Unix socket address used as
	// the system-wide agent singleton lock. The leading NUL is what makes
	// it abstract-namespace on Linux.
	MutexAddress = "\x00gprofiler_lock"
)

// Timeouts.
const (
	// HelperDumpTimeout bounds how long a per-runtime helper or the
	// continuous eBPF helper may take to produce a dump after being signaled.
	HelperDumpTimeout = 5 * time.Second

	// HelperStartTimeout bounds how long a freshly spawned helper may take
	// to prove it's alive (e.g. produce its first output file).
	HelperStartTimeout = 10 * time.Second

	// SnapshotExtraTimeout is added to the cycle duration to bound a
	// per-runtime profiler's snapshot call.
	SnapshotExtraTimeout = 10 * time.Second

	// RotationTimeout bounds how long the perf supervisor waits for a new
	// output file after sending the rotation signal.
	RotationTimeout = 5 * time.Second

	// ExternalMetadataStaleness is the maximum age of the external
	// metadata file's mtime before it's treated as stale.
	ExternalMetadataStaleness = 5 * time.Minute

	// SignalRateLimit is the minimum spacing between handled
	// SIGINT/SIGTERM deliveries; repeats inside the window are swallowed.
	SignalRateLimit = 500 * time.Millisecond

	// TerminationTimeout bounds how long agent shutdown waits for every
	// registered child to die after being killed.
	TerminationTimeout = 2 * time.Second
)

// Perf supervisor restart policy.
const (
	// PerfRestartAfter is the age at which a sampler becomes eligible for
	// a memory-based restart (combined with PerfMemoryThreshold).
	PerfRestartAfter = 1 * time.Hour

	// PerfMemoryThreshold is the absolute RSS above which a sampler older
	// than PerfRestartAfter is restarted.
	PerfMemoryThreshold = 512 * 1024 * 1024

	// PerfRSSGrowthThreshold is how far above its baseline RSS a sampler
	// may grow before being restarted, regardless of age.
	PerfRSSGrowthThreshold = 100 * 1024 * 1024

	// PerfBaselineSampleCount is the number of post-start RSS readings
	// averaged to compute the baseline.
	PerfBaselineSampleCount = 3
)

// MmapPages is the per-cpu mmap page count "perf record -m" is invoked
// with, indexed by unwinding mode. DWARF samples carry a copied user
// stack each, so that mode gets double the buffer.
var MmapPages = map[string]int{
	"fp":    129,
	"dwarf": 257,
}

// ChunkSize is the bounded read size used when draining a non-blocking
// child stdout/stderr pipe.
const ChunkSize = 64 * 1024
