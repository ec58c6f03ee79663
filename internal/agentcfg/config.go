// Package agentcfg defines the agent's configuration surface: CLI flags
// via cobra/pflag layered with GPROFILER_* environment overrides, kept
// separate from the orchestrator it configures.
package agentcfg

import (
	"time"

	"github.com/spf13/cobra"
)

// Config is every flag the agent accepts, plus its GPROFILER_<NAME>
// environment override. Environment values are applied before cobra
// parses argv, so an explicit flag wins when both are set.
type Config struct {
	Duration      time.Duration `env:"GPROFILER_DURATION"`
	Frequency     int           `env:"GPROFILER_FREQUENCY"`
	ProfilingMode string        `env:"GPROFILER_PROFILING_MODE"` // cpu | allocation | none
	OutputDir     string        `env:"GPROFILER_OUTPUT_DIR"`

	EnableJava   bool   `env:"GPROFILER_ENABLE_JAVA"`
	EnablePython bool   `env:"GPROFILER_ENABLE_PYTHON"`
	PythonMode   string `env:"GPROFILER_PYTHON_MODE"` // py-spy | pyperf (continuous eBPF)
	EnableRuby   bool   `env:"GPROFILER_ENABLE_RUBY"`
	EnablePHP    bool   `env:"GPROFILER_ENABLE_PHP"`
	EnableNodeJS bool   `env:"GPROFILER_ENABLE_NODEJS"`
	EnableDotNet bool   `env:"GPROFILER_ENABLE_DOTNET"`

	PerfPath       string `env:"GPROFILER_PERF_PATH"`
	PerfDwarf      bool   `env:"GPROFILER_PERF_DWARF"`
	PerfCustomName string `env:"GPROFILER_PERF_CUSTOM_EVENT_NAME"`
	PerfCustomArgs string `env:"GPROFILER_PERF_CUSTOM_EVENT_ARGS"`
	PerfCustomFreq int    `env:"GPROFILER_PERF_CUSTOM_EVENT_PERIOD"`

	ExternalMetadataPath string `env:"GPROFILER_EXTERNAL_METADATA_PATH"`
	PMUHelperPath        string `env:"GPROFILER_PMU_HELPER_PATH"`

	UploadHost    string `env:"GPROFILER_UPLOAD_HOST"`
	UploadAPIKey  string `env:"GPROFILER_API_KEY"`
	UploadService string `env:"GPROFILER_SERVICE_NAME"`
	UploadToken   string `env:"GPROFILER_TOKEN"`

	MetricsAddr string `env:"GPROFILER_METRICS_ADDR"`
	Verbosity   string `env:"GPROFILER_VERBOSITY"`

	NoUpload bool `env:"GPROFILER_NO_UPLOAD"`
}

// Default returns the flag defaults: 3 minute cycles, 11Hz sampling (a
// prime, to avoid lockstep with periodic workloads).
func Default() Config {
	return Config{
		Duration:      180 * time.Second,
		Frequency:     11,
		ProfilingMode: "cpu",
		OutputDir:     "/tmp/gprofiler_output",
		EnableJava:    true,
		EnablePython:  true,
		PythonMode:    "py-spy",
		EnableRuby:    true,
		EnablePHP:     true,
		EnableNodeJS:  true,
		EnableDotNet:  true,
		PerfPath:      "perf",
		Verbosity:     "info",
	}
}

// BindFlags registers every Config field as a flag on cmd.
func BindFlags(cmd *cobra.Command, cfg *Config) {
	f := cmd.Flags()
	f.DurationVar(&cfg.Duration, "duration", cfg.Duration, "profiling cycle duration")
	f.IntVar(&cfg.Frequency, "frequency", cfg.Frequency, "sampling frequency in Hz")
	f.StringVar(&cfg.ProfilingMode, "profiling-mode", cfg.ProfilingMode, "cpu|allocation|none")
	f.StringVar(&cfg.OutputDir, "output-dir", cfg.OutputDir, "directory for the per-cycle collapsed file and optional artifacts")

	f.BoolVar(&cfg.EnableJava, "java", cfg.EnableJava, "enable the Java runtime profiler")
	f.BoolVar(&cfg.EnablePython, "python", cfg.EnablePython, "enable the Python runtime profiler")
	f.StringVar(&cfg.PythonMode, "python-mode", cfg.PythonMode, "py-spy|pyperf")
	f.BoolVar(&cfg.EnableRuby, "ruby", cfg.EnableRuby, "enable the Ruby runtime profiler")
	f.BoolVar(&cfg.EnablePHP, "php", cfg.EnablePHP, "enable the PHP runtime profiler")
	f.BoolVar(&cfg.EnableNodeJS, "nodejs", cfg.EnableNodeJS, "enable the Node.js runtime profiler")
	f.BoolVar(&cfg.EnableDotNet, "dotnet", cfg.EnableDotNet, "enable the .NET runtime profiler")

	f.StringVar(&cfg.PerfPath, "perf-path", cfg.PerfPath, "path to the perf binary")
	f.BoolVar(&cfg.PerfDwarf, "perf-dwarf", cfg.PerfDwarf, "also run a DWARF-mode perf sampler and reconcile with frame-pointer mode")
	f.StringVar(&cfg.PerfCustomName, "perf-custom-event-name", cfg.PerfCustomName, "custom perf event name")
	f.StringVar(&cfg.PerfCustomArgs, "perf-custom-event-args", cfg.PerfCustomArgs, "extra perf record arguments for the custom event")
	f.IntVar(&cfg.PerfCustomFreq, "perf-custom-event-period", cfg.PerfCustomFreq, "sample period for the custom perf event")

	f.StringVar(&cfg.ExternalMetadataPath, "external-metadata-path", cfg.ExternalMetadataPath, "path to a user-provided external metadata JSON file")
	f.StringVar(&cfg.PMUHelperPath, "pmu-helper-path", cfg.PMUHelperPath, "path to the external PMU metrics helper")

	f.StringVar(&cfg.UploadHost, "upload-host", cfg.UploadHost, "aggregation service host")
	f.StringVar(&cfg.UploadAPIKey, "api-key", cfg.UploadAPIKey, "aggregation service API key")
	f.StringVar(&cfg.UploadService, "service-name", cfg.UploadService, "logical service name reported with uploads")
	f.StringVar(&cfg.UploadToken, "token", cfg.UploadToken, "aggregation service bearer token")
	f.BoolVar(&cfg.NoUpload, "no-upload", cfg.NoUpload, "disable the upload collaborator entirely")

	f.StringVar(&cfg.MetricsAddr, "metrics-addr", cfg.MetricsAddr, "address to serve the agent's own /metrics endpoint on, empty disables it")
	f.StringVar(&cfg.Verbosity, "verbosity", cfg.Verbosity, "trace|debug|info|warn|error")
}
