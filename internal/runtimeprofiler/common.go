package runtimeprofiler

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/rs/zerolog"

	"github.com/intel/gprofiler-go/internal/runner"
	"github.com/intel/gprofiler-go/internal/safe"
)

// SelectFunc discovers the live PIDs a spawn-per-cycle profiler should
// attempt to profile this cycle.
type SelectFunc func() ([]int, error)

// spawnPerPID is the shared Profiler implementation for every runtime
// whose contract is "discover PIDs, spawn one helper per PID, parse its
// output" (Java, Node.js, .NET, Ruby, PHP, and the non-eBPF Python
// helper). One struct with pluggable discovery and exec functions,
// since Start/Stop are no-ops for all of them.
type spawnPerPID struct {
	name     string
	discover SelectFunc
	exec     ExecHelperFunc
	logger   zerolog.Logger
}

func newSpawnPerPID(name string, sel SelectFunc, exec ExecHelperFunc, logger zerolog.Logger) *spawnPerPID {
	return &spawnPerPID{
		name:     name,
		discover: sel,
		exec:     exec,
		logger:   logger.With().Str("component", "runtimeprofiler").Str("runtime", name).Logger(),
	}
}

func (p *spawnPerPID) Name() string { return p.name }

// Start is a no-op: nothing is always-on for a spawn-per-cycle profiler.
func (p *spawnPerPID) Start(ctx context.Context) error { return nil }

// Stop is a no-op for the same reason.
func (p *spawnPerPID) Stop() error { return nil }

func (p *spawnPerPID) SelectProcesses() ([]int, error) {
	return p.discover()
}

func (p *spawnPerPID) Snapshot(ctx context.Context, pids []int, duration time.Duration) (map[int]ProfileData, error) {
	return SnapshotPerPID(ctx, pids, duration, p.exec, p.logger), nil
}

var _ Profiler = (*spawnPerPID)(nil)

// helperArgs is the common shape of a spawn-per-cycle helper's argument
// list: attach to pid, sample for duration, and write collapsed (or
// speedscope) output to a file the ExecHelperFunc reads back and removes.
type helperArgs struct {
	binary   string
	buildCmd func(pid int, duration time.Duration, outputPath string) []string
}

// runHelperToFile spawns binary with the args buildCmd produces, waits for
// it to exit within duration plus the standard per-PID grace period, then
// reads and removes outputPath. Used by the Ruby and PHP profilers; the
// Java, Python, Node.js and .NET helpers follow the same "helper writes
// to a file, not stdout" convention but spawn and read back their file
// inline. Writing to a file avoids interleaving output from concurrent
// per-PID helpers on the same stream.
func runHelperToFile(ctx context.Context, registry *runner.Registry, stop *runner.StopSignal, h helperArgs, pid int, duration, timeout time.Duration, outputPath string, readAndRemove func(string) ([]byte, error)) ([]byte, error) {
	args := h.buildCmd(pid, duration, outputPath)
	if _, err := RunAndReap(ctx, registry, stop, h.binary, args, timeout); err != nil {
		return nil, err
	}
	return readAndRemove(outputPath)
}

// readAndRemove returns a readAndRemove callback for runHelperToFile that
// reads helperName's output file with safe.ReadFile (rejecting symlinks
// and outsized files, since the path is built from a PID and timestamp
// but the file's contents come from a spawned helper we don't fully
// trust) and always removes it afterward.
func readAndRemove(helperName string) func(string) ([]byte, error) {
	return func(path string) ([]byte, error) {
		defer func() { _ = os.Remove(path) }()
		data, err := safe.ReadFile(path, nil)
		if err != nil {
			return nil, fmt.Errorf("read %s output: %w", helperName, err)
		}
		return data, nil
	}
}
