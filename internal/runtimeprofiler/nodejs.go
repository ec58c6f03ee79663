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

var nodeExeNames = regexp.MustCompile(`(^|/)node$`)

// NodeJSDescriptor describes the Node.js profiler: processes whose
// executable is named "node" are selected, and for each one an external
// collector (HelperPath, default "node-stack-collector") is spawned with
// --pid, --duration and --output; the collapsed-format file it writes is
// read back and removed.
func NodeJSDescriptor(registry *runner.Registry, stop *runner.StopSignal, logger zerolog.Logger) Descriptor {
	return Descriptor{
		Name:                    "nodejs",
		SupportedArchs:          []Arch{ArchX86_64, ArchARM64},
		SupportedModes:          []string{"v8-prof"},
		DefaultMode:             "v8-prof",
		SupportedProfilingModes: []ProfilingMode{ModeCPU},
		New: func(cfg Config) (Profiler, error) {
			sel := func() ([]int, error) { return ByExeRegex(nodeExeNames) }
			exec := nodejsExecHelper(registry, stop, cfg)
			return newSpawnPerPID("nodejs", sel, exec, logger), nil
		},
	}
}

func nodejsExecHelper(registry *runner.Registry, stop *runner.StopSignal, cfg Config) ExecHelperFunc {
	binary := cfg.HelperPath
	if binary == "" {
		binary = "node-stack-collector"
	}
	return func(ctx context.Context, pid int, duration time.Duration) ([]byte, bool, error) {
		outputPath := filepath.Join(tempDirOr(cfg.TempDir), fmt.Sprintf("nodejs-%d-%d.collapsed", pid, time.Now().UnixNano()))
		args := []string{
			"--pid", fmt.Sprintf("%d", pid),
			"--duration", fmt.Sprintf("%d", int(duration.Seconds())),
			"--output", outputPath,
		}
		if _, err := RunAndReap(ctx, registry, stop, binary, args, duration+constants.SnapshotExtraTimeout); err != nil {
			return nil, false, err
		}
		defer os.Remove(outputPath)
		data, err := os.ReadFile(outputPath)
		if err != nil {
			return nil, false, fmt.Errorf("read node-stack-collector output: %w", err)
		}
		return data, false, nil
	}
}
