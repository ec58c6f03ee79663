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

var dotnetExeNames = regexp.MustCompile(`(^|/)dotnet$`)

// DotNetDescriptor describes the dotnet-trace-based CLR profiler. Unlike
// the other spawn-per-cycle profilers, dotnet-trace's collect command
// only emits its own nettrace format or speedscope JSON (via the
// --format speedscope flag) - not collapsed text - so this is the one
// non-continuous profiler whose ExecHelperFunc reports isSpeedscope=true
// and lets ParseSpeedscope do the conversion.
func DotNetDescriptor(registry *runner.Registry, stop *runner.StopSignal, logger zerolog.Logger) Descriptor {
	return Descriptor{
		Name:                    "dotnet",
		SupportedArchs:          []Arch{ArchX86_64, ArchARM64},
		SupportedModes:          []string{"dotnet-trace"},
		DefaultMode:             "dotnet-trace",
		SupportedProfilingModes: []ProfilingMode{ModeCPU},
		New: func(cfg Config) (Profiler, error) {
			sel := func() ([]int, error) { return ByExeRegex(dotnetExeNames) }
			exec := dotnetExecHelper(registry, stop, cfg)
			return newSpawnPerPID("dotnet", sel, exec, logger), nil
		},
	}
}

func dotnetExecHelper(registry *runner.Registry, stop *runner.StopSignal, cfg Config) ExecHelperFunc {
	binary := cfg.HelperPath
	if binary == "" {
		binary = "dotnet-trace"
	}
	return func(ctx context.Context, pid int, duration time.Duration) ([]byte, bool, error) {
		outputPath := filepath.Join(tempDirOr(cfg.TempDir), fmt.Sprintf("dotnet-%d-%d.speedscope.json", pid, time.Now().UnixNano()))
		args := []string{
			"collect",
			"--process-id", fmt.Sprintf("%d", pid),
			"--duration", fmt.Sprintf("00:00:%02d", int(duration.Seconds())),
			"--format", "speedscope",
			"--output", outputPath,
		}
		if _, err := RunAndReap(ctx, registry, stop, binary, args, duration+constants.SnapshotExtraTimeout); err != nil {
			return nil, false, err
		}
		defer os.Remove(outputPath)
		data, err := os.ReadFile(outputPath)
		if err != nil {
			return nil, false, fmt.Errorf("read dotnet-trace output: %w", err)
		}
		return data, true, nil
	}
}
