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

var rubyInterpreterMaps = regexp.MustCompile(`libruby`)

// RubyDescriptor describes the rbspy-based MRI profiler. rbspy, like
// py-spy, attaches via ptrace and writes its own collapsed-format file.
func RubyDescriptor(registry *runner.Registry, stop *runner.StopSignal, logger zerolog.Logger) Descriptor {
	return Descriptor{
		Name:                    "ruby",
		SupportedArchs:          []Arch{ArchX86_64, ArchARM64},
		SupportedModes:          []string{"rbspy"},
		DefaultMode:             "rbspy",
		SupportedProfilingModes: []ProfilingMode{ModeCPU},
		New: func(cfg Config) (Profiler, error) {
			sel := func() ([]int, error) { return ByMapsRegex(rubyInterpreterMaps) }
			exec := rubyExecHelper(registry, stop, cfg)
			return newSpawnPerPID("ruby", sel, exec, logger), nil
		},
	}
}

func rubyExecHelper(registry *runner.Registry, stop *runner.StopSignal, cfg Config) ExecHelperFunc {
	binary := cfg.HelperPath
	if binary == "" {
		binary = "rbspy"
	}
	h := helperArgs{
		binary: binary,
		buildCmd: func(pid int, duration time.Duration, outputPath string) []string {
			return []string{
				"record",
				"--pid", fmt.Sprintf("%d", pid),
				"--duration", fmt.Sprintf("%d", int(duration.Seconds())),
				"--format", "collapsed",
				"--file", outputPath,
				"--silent",
			}
		},
	}
	return func(ctx context.Context, pid int, duration time.Duration) ([]byte, bool, error) {
		outputPath := filepath.Join(tempDirOr(cfg.TempDir), fmt.Sprintf("ruby-%d-%d.collapsed", pid, time.Now().UnixNano()))
		data, err := runHelperToFile(ctx, registry, stop, h, pid, duration, duration+constants.SnapshotExtraTimeout, outputPath, readAndRemove("rbspy"))
		return data, false, err
	}
}
