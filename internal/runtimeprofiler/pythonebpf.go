package runtimeprofiler

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"syscall"
	"time"

	"github.com/cilium/ebpf/rlimit"
	"github.com/rs/zerolog"

	"github.com/intel/gprofiler-go/internal/constants"
	"github.com/intel/gprofiler-go/internal/errkind"
	"github.com/intel/gprofiler-go/internal/runner"
	"github.com/intel/gprofiler-go/internal/stack"
	"github.com/intel/gprofiler-go/internal/sys/proc"
	"github.com/intel/gprofiler-go/internal/sys/sysfs"
)

// PythonEBPFProfiler is the always-on continuous variant of the Python
// profiler: one helper process lives for the whole agent lifetime rather
// than being spawned per cycle, and a cycle's data is obtained by
// signaling it to dump rather than by spawning and waiting. The helper
// writes each dump as a new file named after its configured output path
// plus a suffix of its own choosing.
type PythonEBPFProfiler struct {
	binary     string
	outputPath string
	frequency  int
	registry   *runner.Registry
	stop       *runner.StopSignal
	logger     zerolog.Logger

	mu   sync.Mutex
	proc *runner.Process
}

// PythonEBPFDescriptor describes the continuous eBPF variant. It is
// registered separately from PythonDescriptor so the orchestrator's
// caller can pick one or the other by mode rather than both running at
// once against the same interpreters.
func PythonEBPFDescriptor(registry *runner.Registry, stop *runner.StopSignal, logger zerolog.Logger) Descriptor {
	return Descriptor{
		Name:                    "python-ebpf",
		SupportedArchs:          []Arch{ArchX86_64, ArchARM64},
		SupportedModes:          []string{"pyperf"},
		DefaultMode:             "pyperf",
		SupportedProfilingModes: []ProfilingMode{ModeCPU},
		New: func(cfg Config) (Profiler, error) {
			binary := cfg.HelperPath
			if binary == "" {
				binary = "pyperf"
			}
			frequency := cfg.Frequency
			if frequency <= 0 {
				frequency = 11
			}
			return &PythonEBPFProfiler{
				binary:     binary,
				outputPath: filepath.Join(tempDirOr(cfg.TempDir), "pyperf.col"),
				frequency:  frequency,
				registry:   registry,
				stop:       stop,
				logger:     logger.With().Str("component", "runtimeprofiler").Str("runtime", "python-ebpf").Logger(),
			}, nil
		},
	}
}

func (p *PythonEBPFProfiler) Name() string { return "python-ebpf" }

// Start enforces the environment prerequisites (initial PID namespace,
// unlimited RLIMIT_MEMLOCK, debugfs mounted), launches the helper once,
// then waits for its transient output file to appear - the helper may be
// signaled for a dump as soon as Start returns, so it must have finished
// installing its signal handler, which creating the file proves.
func (p *PythonEBPFProfiler) Start(ctx context.Context) error {
	if err := checkInitialPidNamespace(); err != nil {
		return err
	}
	if err := rlimit.RemoveMemlock(); err != nil {
		return fmt.Errorf("raise RLIMIT_MEMLOCK: %w", err)
	}
	if !sysfs.DebugfsMounted() {
		if err := sysfs.MountDebugfs(); err != nil {
			return fmt.Errorf("mount debugfs: %w", err)
		}
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	removeByPrefix(p.outputPath)
	args := []string{
		"--output", p.outputPath,
		"-F", fmt.Sprintf("%d", p.frequency),
	}
	proc, err := runner.Spawn(ctx, p.registry, p.binary, args, nil)
	if err != nil {
		return fmt.Errorf("start python-ebpf helper: %w", err)
	}

	if err := waitForFileAt(p.outputPath, constants.HelperStartTimeout, p.stop); err != nil {
		code, stdout, stderr, _ := proc.KillAndReap()
		return fmt.Errorf("python-ebpf helper failed to start: %w",
			&errkind.ChildFailedError{Cmd: p.binary, ExitCode: code, Stdout: stdout, Stderr: stderr})
	}

	p.proc = proc
	p.logger.Info().Msg("continuous python eBPF profiler started")
	return nil
}

// Stop kills the always-on helper and clears its leftover dump files.
func (p *PythonEBPFProfiler) Stop() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.proc == nil {
		return nil
	}
	_, _, _, err := p.proc.KillAndReap()
	p.proc = nil
	removeByPrefix(p.outputPath)
	return err
}

// SelectProcesses is a no-op: the continuous helper discovers its own
// targets internally and reports everything it found in its dump.
func (p *PythonEBPFProfiler) SelectProcesses() ([]int, error) {
	return nil, nil
}

// Snapshot signals the helper to dump, waits up to HelperDumpTimeout for
// a new suffixed output file, parses and deletes it. A dump timeout is
// treated as a crash: the helper is killed, reaped, and the caller gets
// an error carrying its captured stdout/stderr.
func (p *PythonEBPFProfiler) Snapshot(ctx context.Context, pids []int, duration time.Duration) (map[int]ProfileData, error) {
	p.mu.Lock()
	proc := p.proc
	p.mu.Unlock()
	if proc == nil {
		return nil, fmt.Errorf("python-ebpf helper not started")
	}

	if err := proc.SendSignal(syscall.SIGUSR2); err != nil {
		return nil, fmt.Errorf("signal python-ebpf dump: %w", err)
	}

	path, err := waitForFileWithPrefix(p.outputPath+".", constants.HelperDumpTimeout, p.stop)
	if err != nil {
		code, stdout, stderr, _ := proc.KillAndReap()
		p.mu.Lock()
		p.proc = nil
		p.mu.Unlock()
		removeByPrefix(p.outputPath)
		return nil, &errkind.ChildFailedError{Cmd: p.binary, ExitCode: code, Stdout: stdout, Stderr: stderr}
	}
	defer os.Remove(path)

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read python-ebpf dump: %w", err)
	}

	counters := stack.ParsePerPID(string(data))
	out := make(map[int]ProfileData, len(counters))
	for pid, c := range counters {
		out[pid] = ProfileData{Counters: c}
	}
	return out, nil
}

var _ Profiler = (*PythonEBPFProfiler)(nil)

// checkInitialPidNamespace verifies the agent is running in the host's
// initial PID namespace by comparing PID 1's namespace inode to its own,
// since eBPF PID resolution assumes PIDs it sees match host PIDs.
func checkInitialPidNamespace() error {
	self, err := proc.PidNamespaceInode(os.Getpid())
	if err != nil {
		return fmt.Errorf("determine own pid namespace: %w", err)
	}
	init, err := proc.PidNamespaceInode(1)
	if err != nil {
		return fmt.Errorf("determine init pid namespace: %w", err)
	}
	if self != init {
		return fmt.Errorf("not running in the initial pid namespace: %w", errkind.UnsupportedEnvironment)
	}
	return nil
}

// waitForFileAt polls until path exists, bounded by timeout and the
// shared stop signal.
func waitForFileAt(path string, timeout time.Duration, stop *runner.StopSignal) error {
	deadline := time.Now().Add(timeout)
	for {
		if _, err := os.Stat(path); err == nil {
			return nil
		}
		if stop != nil && stop.IsSet() {
			return errkind.Stopped
		}
		if time.Now().After(deadline) {
			return errkind.Timeout
		}
		time.Sleep(100 * time.Millisecond)
	}
}

// waitForFileWithPrefix polls for a file named prefix plus any suffix -
// the naming a dump-on-signal helper uses for each completed dump.
func waitForFileWithPrefix(prefix string, timeout time.Duration, stop *runner.StopSignal) (string, error) {
	dir := filepath.Dir(prefix)
	base := filepath.Base(prefix)
	deadline := time.Now().Add(timeout)
	for {
		entries, err := os.ReadDir(dir)
		if err == nil {
			for _, e := range entries {
				if strings.HasPrefix(e.Name(), base) && len(e.Name()) > len(base) {
					return filepath.Join(dir, e.Name()), nil
				}
			}
		}
		if stop != nil && stop.IsSet() {
			return "", errkind.Stopped
		}
		if time.Now().After(deadline) {
			return "", errkind.Timeout
		}
		time.Sleep(100 * time.Millisecond)
	}
}

// removeByPrefix deletes the helper's transient output file and every
// dump file derived from it.
func removeByPrefix(prefix string) {
	dir := filepath.Dir(prefix)
	base := filepath.Base(prefix)
	entries, err := os.ReadDir(dir)
	if err != nil {
		return
	}
	for _, e := range entries {
		if strings.HasPrefix(e.Name(), base) {
			_ = os.Remove(filepath.Join(dir, e.Name()))
		}
	}
}
