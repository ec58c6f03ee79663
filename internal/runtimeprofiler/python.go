package runtimeprofiler

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"time"

	"github.com/rs/zerolog"

	"github.com/intel/gprofiler-go/internal/constants"
	"github.com/intel/gprofiler-go/internal/runner"
)

// pythonInterpreterMaps matches the shared library a CPython process maps
// into its address space, so wrapper scripts (gunicorn, celery, uwsgi)
// invoked through a shebang rather than "python" itself are still found.
var pythonInterpreterMaps = regexp.MustCompile(`libpython3?(\.\d+)?\.so`)

// PythonDescriptor describes the per-process py-spy-based profiler, the
// default when the continuous eBPF variant (see pythonebpf.go) is not
// enabled - py-spy attaches via ptrace (as rbspy does for Ruby), so it
// needs no instrumentation inside the target.
func PythonDescriptor(registry *runner.Registry, stop *runner.StopSignal, logger zerolog.Logger) Descriptor {
	return Descriptor{
		Name:                    "python",
		SupportedArchs:          []Arch{ArchX86_64, ArchARM64},
		SupportedModes:          []string{"py-spy"},
		DefaultMode:             "py-spy",
		SupportedProfilingModes: []ProfilingMode{ModeCPU},
		New: func(cfg Config) (Profiler, error) {
			sel := func() ([]int, error) { return ByMapsRegex(pythonInterpreterMaps) }
			exec := pythonExecHelper(registry, stop, cfg)
			return newSpawnPerPID("python", sel, exec, logger), nil
		},
	}
}

func pythonExecHelper(registry *runner.Registry, stop *runner.StopSignal, cfg Config) ExecHelperFunc {
	binary := cfg.HelperPath
	if binary == "" {
		binary = "py-spy"
	}
	return func(ctx context.Context, pid int, duration time.Duration) ([]byte, bool, error) {
		outputPath := filepath.Join(tempDirOr(cfg.TempDir), fmt.Sprintf("python-%d-%d.collapsed", pid, time.Now().UnixNano()))
		args := []string{
			"record",
			"--pid", fmt.Sprintf("%d", pid),
			"--duration", fmt.Sprintf("%d", int(duration.Seconds())),
			"--format", "raw",
			"--output", outputPath,
			"--nonblocking",
		}
		if _, err := RunAndReap(ctx, registry, stop, binary, args, duration+constants.SnapshotExtraTimeout); err != nil {
			return nil, false, err
		}
		defer os.Remove(outputPath)
		data, err := os.ReadFile(outputPath)
		if err != nil {
			return nil, false, fmt.Errorf("read py-spy output: %w", err)
		}
		return data, false, nil
	}
}
