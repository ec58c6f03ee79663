package runtimeprofiler

import (
	"github.com/rs/zerolog"

	"github.com/intel/gprofiler-go/internal/runner"
)

// BuildRegistry collects every runtime profiler's Descriptor into one
// Registry. Called once at agent startup from cmd/gprofiler-agent;
// adding a runtime means adding one more line here, not an init()-time
// side effect.
func BuildRegistry(registry *runner.Registry, stop *runner.StopSignal, logger zerolog.Logger) *Registry {
	return NewRegistry(
		JavaDescriptor(registry, stop, logger),
		PythonDescriptor(registry, stop, logger),
		PythonEBPFDescriptor(registry, stop, logger),
		RubyDescriptor(registry, stop, logger),
		PHPDescriptor(registry, stop, logger),
		NodeJSDescriptor(registry, stop, logger),
		DotNetDescriptor(registry, stop, logger),
	)
}
