package runtimeprofiler

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/rs/zerolog"

	"github.com/intel/gprofiler-go/internal/constants"
	"github.com/intel/gprofiler-go/internal/runner"
)

// JavaDescriptor describes the async-profiler-based JVM profiler: attach
// via async-profiler's shell front-end (HelperPath, default
// "async-profiler.sh"), sample in "collapsed" mode, and read the output file it
// writes rather than its stdout, since several JVMs interleave unrelated
// GC logging on stdout.
func JavaDescriptor(registry *runner.Registry, stop *runner.StopSignal, logger zerolog.Logger) Descriptor {
	return Descriptor{
		Name:                    "java",
		SupportedArchs:          []Arch{ArchX86_64, ArchARM64},
		SupportedModes:          []string{"async-profiler"},
		DefaultMode:             "async-profiler",
		SupportedProfilingModes: []ProfilingMode{ModeCPU, ModeAllocation},
		New: func(cfg Config) (Profiler, error) {
			exec := javaExecHelper(registry, stop, cfg)
			return newSpawnPerPID("java", ByJVMDetection, exec, logger), nil
		},
	}
}

func javaExecHelper(registry *runner.Registry, stop *runner.StopSignal, cfg Config) ExecHelperFunc {
	binary := cfg.HelperPath
	if binary == "" {
		binary = "async-profiler.sh"
	}
	return func(ctx context.Context, pid int, duration time.Duration) ([]byte, bool, error) {
		outputPath := filepath.Join(tempDirOr(cfg.TempDir), fmt.Sprintf("java-%d-%d.collapsed", pid, time.Now().UnixNano()))
		args := []string{
			"-d", fmt.Sprintf("%d", int(duration.Seconds())),
			"-o", "collapsed",
			"-f", outputPath,
			fmt.Sprintf("%d", pid),
		}
		if cfg.ProfilingMode == ModeAllocation {
			args = append([]string{"-e", "alloc"}, args...)
		}
		if _, err := RunAndReap(ctx, registry, stop, binary, args, duration+constants.SnapshotExtraTimeout); err != nil {
			return nil, false, err
		}
		defer os.Remove(outputPath)
		data, err := os.ReadFile(outputPath)
		if err != nil {
			return nil, false, fmt.Errorf("read async-profiler output: %w", err)
		}
		return data, false, nil
	}
}

func tempDirOr(dir string) string {
	if dir != "" {
		return dir
	}
	return constants.TemporaryStorageDir
}
