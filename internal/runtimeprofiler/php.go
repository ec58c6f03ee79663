package runtimeprofiler

import (
	"context"
	"fmt"
	"path/filepath"
	"regexp"
	"time"

	"github.com/rs/zerolog"

	"github.com/intel/gprofiler-go/internal/constants"
	"github.com/intel/gprofiler-go/internal/runner"
)

var phpInterpreterMaps = regexp.MustCompile(`(^|/)(php-fpm|php)(\d[\d.]*)?($|\s)|libphp`)

// PHPDescriptor describes the phpspy-based profiler, which samples every
// selected PID at a fixed rate for the cycle duration and writes
// collapsed-format text frames already tagged stack.TagPHP ("[p]").
func PHPDescriptor(registry *runner.Registry, stop *runner.StopSignal, logger zerolog.Logger) Descriptor {
	return Descriptor{
		Name:                    "php",
		SupportedArchs:          []Arch{ArchX86_64, ArchARM64},
		SupportedModes:          []string{"phpspy"},
		DefaultMode:             "phpspy",
		SupportedProfilingModes: []ProfilingMode{ModeCPU},
		New: func(cfg Config) (Profiler, error) {
			sel := func() ([]int, error) { return ByMapsRegex(phpInterpreterMaps) }
			exec := phpExecHelper(registry, stop, cfg)
			return newSpawnPerPID("php", sel, exec, logger), nil
		},
	}
}

func phpExecHelper(registry *runner.Registry, stop *runner.StopSignal, cfg Config) ExecHelperFunc {
	binary := cfg.HelperPath
	if binary == "" {
		binary = "phpspy"
	}
	h := helperArgs{
		binary: binary,
		buildCmd: func(pid int, duration time.Duration, outputPath string) []string {
			return []string{
				"--pid", fmt.Sprintf("%d", pid),
				"--time-limit-ms", fmt.Sprintf("%d", duration.Milliseconds()),
				"--output", outputPath,
				"--single-line",
			}
		},
	}
	return func(ctx context.Context, pid int, duration time.Duration) ([]byte, bool, error) {
		outputPath := filepath.Join(tempDirOr(cfg.TempDir), fmt.Sprintf("php-%d-%d.collapsed", pid, time.Now().UnixNano()))
		data, err := runHelperToFile(ctx, registry, stop, h, pid, duration, duration+constants.SnapshotExtraTimeout, outputPath, readAndRemove("phpspy"))
		return data, false, err
	}
}
