// Package main provides the gprofiler-agent binary: a continuous,
// whole-host CPU (and optional allocation) profiler that merges
// system-wide perf sampling with managed-runtime profilers and emits one
// collapsed-stack record per cycle.
package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/intel/gprofiler-go/internal/agentcfg"
	"github.com/intel/gprofiler-go/internal/constants"
	"github.com/intel/gprofiler-go/internal/container"
	"github.com/intel/gprofiler-go/internal/emitter"
	"github.com/intel/gprofiler-go/internal/errkind"
	cleanup "github.com/intel/gprofiler-go/internal/errors"
	"github.com/intel/gprofiler-go/internal/logging"
	"github.com/intel/gprofiler-go/internal/metadata"
	"github.com/intel/gprofiler-go/internal/metrics"
	"github.com/intel/gprofiler-go/internal/mutex"
	"github.com/intel/gprofiler-go/internal/orchestrator"
	"github.com/intel/gprofiler-go/internal/perf"
	"github.com/intel/gprofiler-go/internal/runner"
	"github.com/intel/gprofiler-go/internal/runtimeprofiler"
	"github.com/intel/gprofiler-go/internal/upload"
	"github.com/intel/gprofiler-go/pkg/version"
)

func main() {
	cfg := agentcfg.Default()
	if err := agentcfg.ApplyEnvOverrides(&cfg); err != nil {
		_, _ = fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	rootCmd := &cobra.Command{
		Use:           "gprofiler-agent",
		Short:         "Continuous whole-host CPU profiler",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd.Context(), cfg)
		},
	}
	agentcfg.BindFlags(rootCmd, &cfg)
	rootCmd.AddCommand(newVersionCmd())

	if err := rootCmd.Execute(); err != nil {
		_, _ = fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show version information",
		Run: func(cmd *cobra.Command, args []string) {
			cmd.Printf("gprofiler-agent version %s\n", version.Version)
			cmd.Printf("Git commit: %s\n", version.GitCommit)
			cmd.Printf("Build date: %s\n", version.BuildDate)
			cmd.Printf("Go version: %s\n", version.GoVersion)
		},
	}
}

func run(ctx context.Context, cfg agentcfg.Config) error {
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	logger := logging.New(logging.Config{Level: cfg.Verbosity, Pretty: logging.AutoPretty()})

	lock, err := mutex.Acquire()
	if err != nil {
		if errors.Is(err, errkind.MutexHeld) {
			_, _ = fmt.Fprintln(os.Stderr, "Could not acquire gProfiler's lock. Is it already running?")
			os.Exit(1)
		}
		return fmt.Errorf("acquire agent lock: %w", err)
	}
	defer cleanup.DeferClose(logger, lock, "release agent lock")

	if err := os.MkdirAll(cfg.OutputDir, 0o755); err != nil {
		return fmt.Errorf("create output dir: %w", err)
	}

	// The agent's private scratch directory for helper output and perf
	// data files, owned exclusively by this process (the singleton lock
	// above guarantees that) and removed on exit. os.TempDir honors a
	// TMPDIR override.
	tempDir := filepath.Join(os.TempDir(), filepath.Base(constants.TemporaryStorageDir))
	if err := os.MkdirAll(tempDir, 0o700); err != nil {
		return fmt.Errorf("create temporary storage dir: %w", err)
	}
	defer func() { _ = os.RemoveAll(tempDir) }()

	registry := runner.NewRegistry()
	stop := runner.NewStopSignal()
	shutdown := runner.NewShutdownHandler(registry, stop, logger)
	defer shutdown.Stop()
	defer registry.KillAll()

	var customArgs []string
	if cfg.PerfCustomName != "" {
		customArgs = append(customArgs, "-e", cfg.PerfCustomName)
		if cfg.PerfCustomArgs != "" {
			customArgs = append(customArgs, strings.Fields(cfg.PerfCustomArgs)...)
		}
		if cfg.PerfCustomFreq > 0 {
			customArgs = append(customArgs, "-c", fmt.Sprintf("%d", cfg.PerfCustomFreq))
		}
	}

	var perfs []*perf.Supervisor
	if cfg.ProfilingMode != "none" {
		fp := perf.New(perf.Config{
			PerfPath:   cfg.PerfPath,
			Frequency:  cfg.Frequency,
			OutputPath: filepath.Join(tempDir, "perf.fp.data"),
			Mode:       perf.ModeFP,
			InjectJIT:  cfg.EnableJava,
			ExtraArgs:  customArgs,
		}, registry, stop, logger)
		if err := fp.Start(ctx); err != nil {
			return fmt.Errorf("start frame-pointer perf sampler: %w", err)
		}
		defer fp.Stop()
		perfs = append(perfs, fp)

		if cfg.PerfDwarf {
			dwarf := perf.New(perf.Config{
				PerfPath:   cfg.PerfPath,
				Frequency:  cfg.Frequency,
				OutputPath: filepath.Join(tempDir, "perf.dwarf.data"),
				Mode:       perf.ModeDwarf,
			}, registry, stop, logger)
			if err := dwarf.Start(ctx); err != nil {
				return fmt.Errorf("start DWARF perf sampler: %w", err)
			}
			defer dwarf.Stop()
			perfs = append(perfs, dwarf)
		}
	}

	runtimes := selectRuntimeProfilers(ctx, cfg, tempDir, registry, stop, logger)
	defer func() {
		for _, rp := range runtimes {
			if err := rp.Stop(); err != nil {
				logger.Warn().Err(err).Str("runtime", rp.Name()).Msg("failed to stop runtime profiler")
			}
		}
	}()

	static := metadata.CollectStatic()
	resolver := container.NewCgroupResolver()

	sysMon := metrics.NewSystemMonitor(cfg.Duration/10, logger)
	sysMon.Start(ctx)
	defer sysMon.Stop()

	var hwMon *metrics.HWMonitor

	if cfg.PMUHelperPath != "" {
		hwMon = metrics.NewHWMonitor(logger)
		if err := startPMUHelper(ctx, cfg.PMUHelperPath, hwMon, logger); err != nil {
			logger.Warn().Err(err).Msg("failed to start PMU helper, continuing without hardware metrics")
			hwMon = nil
		}
	}

	var uploader upload.Client
	if !cfg.NoUpload && cfg.UploadHost != "" {
		uploader = upload.New(upload.Config{
			Host:     cfg.UploadHost,
			APIKey:   cfg.UploadAPIKey,
			Service:  cfg.UploadService,
			Hostname: static["hostname"],
			Token:    cfg.UploadToken,
		}, logger)
	}

	var emit emitter.Emitter = emitter.New(emitter.Config{
		OutputDir:       cfg.OutputDir,
		WriteFlamegraph: true,
		WritePprof:      true,
		Uploader:        uploader,
	}, logger)

	if cfg.MetricsAddr != "" {
		exporter := metrics.NewExporter(logger)
		exporter.Serve(cfg.MetricsAddr)
		defer func() { _ = exporter.Shutdown(context.Background()) }()
		emit = observingEmitter{inner: emit, exporter: exporter}
	}

	session := orchestrator.New(
		orchestrator.Config{
			Duration:             cfg.Duration,
			ExternalMetadataPath: cfg.ExternalMetadataPath,
		},
		stop,
		perfs,
		runtimes,
		resolver,
		static,
		sysMon,
		hwMon,
		emit,
		logger,
	)

	logger.Info().
		Dur("duration", cfg.Duration).
		Int("frequency", cfg.Frequency).
		Str("output_dir", cfg.OutputDir).
		Msg("starting profiling session")

	return session.Run(ctx)
}

// observingEmitter records each cycle's metrics on the optional
// Prometheus exporter before handing the record to the real emitter.
type observingEmitter struct {
	inner    emitter.Emitter
	exporter *metrics.Exporter
}

func (o observingEmitter) Emit(ctx context.Context, record emitter.Record) error {
	o.exporter.Observe(record.Metrics)
	return o.inner.Emit(ctx, record)
}

// selectRuntimeProfilers builds the registry of all known runtime
// profilers, instantiates and starts the ones enabled in cfg, and
// skips, with a warning, any that are unsupported, fail to construct,
// or fail to start.
func selectRuntimeProfilers(ctx context.Context, cfg agentcfg.Config, tempDir string, registry *runner.Registry, stop *runner.StopSignal, logger zerolog.Logger) []runtimeprofiler.Profiler {
	full := runtimeprofiler.BuildRegistry(registry, stop, logger)

	mode := runtimeprofiler.ModeCPU
	switch cfg.ProfilingMode {
	case "allocation":
		mode = runtimeprofiler.ModeAllocation
	case "none":
		mode = runtimeprofiler.ModeNone
	}

	enabled := map[string]bool{
		"java":        cfg.EnableJava,
		"ruby":        cfg.EnableRuby,
		"php":         cfg.EnablePHP,
		"nodejs":      cfg.EnableNodeJS,
		"dotnet":      cfg.EnableDotNet,
		"python":      cfg.EnablePython && cfg.PythonMode == "py-spy",
		"python-ebpf": cfg.EnablePython && cfg.PythonMode == "pyperf",
	}

	var out []runtimeprofiler.Profiler
	for _, d := range full.All() {
		if !enabled[d.Name] {
			continue
		}
		if !d.SupportsProfilingMode(mode) {
			logger.Warn().Str("profiler", d.Name).Msg("skipping profiler unsupported for requested profiling mode")
			continue
		}
		p, err := d.New(runtimeprofiler.Config{
			ProfilingMode: mode,
			TempDir:       tempDir,
			Frequency:     cfg.Frequency,
		})
		if err != nil {
			logger.Warn().Err(err).Str("profiler", d.Name).Msg("failed to construct runtime profiler, skipping")
			continue
		}
		if err := p.Start(ctx); err != nil {
			logger.Warn().Err(err).Str("profiler", d.Name).Msg("failed to start runtime profiler, skipping")
			continue
		}
		out = append(out, p)
	}
	return out
}

// startPMUHelper spawns the external PMU metrics helper and feeds its
// CSV stdout line by line into hwMon. The helper runs for the agent's
// whole lifetime streaming one CSV line per sampling interval, unlike
// runner.Process's run-to-completion-then-reap model, so it is started
// with exec directly and tied to ctx rather than tracked in the shared
// runner.Registry.
func startPMUHelper(ctx context.Context, path string, hwMon *metrics.HWMonitor, logger zerolog.Logger) error {
	cmd := exec.CommandContext(ctx, path)
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return fmt.Errorf("pipe PMU helper stdout: %w", err)
	}
	if err := cmd.Start(); err != nil {
		return fmt.Errorf("spawn PMU helper: %w", err)
	}
	go func() {
		sc := bufio.NewScanner(stdout)
		sc.Buffer(make([]byte, 0, 4096), constants.ChunkSize)
		hwMon.ConsumeStream(sc)
	}()
	go func() {
		if err := cmd.Wait(); err != nil && ctx.Err() == nil {
			logger.Warn().Err(err).Msg("PMU helper exited unexpectedly")
		}
	}()
	return nil
}
