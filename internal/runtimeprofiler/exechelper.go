package runtimeprofiler

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/intel/gprofiler-go/internal/constants"
	"github.com/intel/gprofiler-go/internal/errkind"
	"github.com/intel/gprofiler-go/internal/runner"
	"github.com/intel/gprofiler-go/internal/stack"
)

// ExecHelperFunc spawns one PID's profiling helper and returns its
// output in whatever format that helper produces (collapsed text or
// speedscope JSON) - the common "spawn one per-PID helper, parse its
// output" shape shared by the spawn-per-cycle profilers (Java, Node.js,
// .NET, Ruby, PHP). The continuous eBPF variant does not use this path,
// since it has exactly one always-on helper rather than one per PID.
type ExecHelperFunc func(ctx context.Context, pid int, duration time.Duration) (output []byte, isSpeedscope bool, err error)

// SnapshotPerPID runs exec for every pid concurrently (one goroutine
// each, since each spawns and waits on its own helper process), bounded
// by duration+SnapshotExtraTimeout per the orchestrator's cycle timeout
// contract. Per-PID failures are logged and omitted from the result
// rather than failing the whole snapshot.
func SnapshotPerPID(ctx context.Context, pids []int, duration time.Duration, exec ExecHelperFunc, logger zerolog.Logger) map[int]ProfileData {
	type result struct {
		pid  int
		data ProfileData
		ok   bool
	}

	results := make(chan result, len(pids))
	snapshotCtx, cancel := context.WithTimeout(ctx, duration+constants.SnapshotExtraTimeout)
	defer cancel()

	for _, pid := range pids {
		go func(pid int) {
			output, isSpeedscope, err := exec(snapshotCtx, pid, duration)
			if err != nil {
				logger.Warn().Int("pid", pid).Err(err).Msg("per-PID snapshot failed")
				results <- result{pid: pid, ok: false}
				return
			}

			var counters stack.ProcessToStackSampleCounters
			if isSpeedscope {
				counters, err = ParseSpeedscope(output, pid)
			} else {
				counters = stack.ParseCollapsed(string(output), pid)
			}
			if err != nil {
				logger.Warn().Int("pid", pid).Err(err).Msg("failed to parse per-PID profiler output")
				results <- result{pid: pid, ok: false}
				return
			}

			c, ok := counters[pid]
			if !ok || len(c) == 0 {
				results <- result{pid: pid, ok: false}
				return
			}
			results <- result{pid: pid, data: ProfileData{Counters: c}, ok: true}
		}(pid)
	}

	out := make(map[int]ProfileData, len(pids))
	for range pids {
		r := <-results
		if r.ok {
			out[r.pid] = r.data
		}
	}
	return out
}

// RunAndReap is the common "spawn a helper, wait with timeout, reap"
// sequence every non-continuous runtime profiler's ExecHelperFunc uses.
func RunAndReap(ctx context.Context, registry *runner.Registry, stop *runner.StopSignal, name string, args []string, timeout time.Duration) ([]byte, error) {
	proc, err := runner.Spawn(ctx, registry, name, args, nil)
	if err != nil {
		return nil, fmt.Errorf("spawn %s: %w", name, err)
	}

	if err := proc.WaitWithTimeout(timeout, stop); err != nil {
		code, stdout, stderr, _ := proc.KillAndReap()
		if err == errkind.Timeout {
			return nil, &errkind.ChildFailedError{Cmd: name, ExitCode: code, Stdout: stdout, Stderr: stderr}
		}
		return nil, err
	}

	code, stdout, stderr, err := proc.Reap()
	if err != nil {
		return nil, fmt.Errorf("reap %s: %w", name, err)
	}
	if code != 0 {
		return nil, &errkind.ChildFailedError{Cmd: name, ExitCode: code, Stdout: stdout, Stderr: stderr}
	}
	return []byte(stdout), nil
}
