package agentcfg

import "fmt"

// Validate checks cfg for combinations no amount of flag/env parsing
// catches on its own.
func (c Config) Validate() error {
	switch c.ProfilingMode {
	case "cpu", "allocation", "none":
	default:
		return fmt.Errorf("profiling-mode must be cpu, allocation, or none, got %q", c.ProfilingMode)
	}

	switch c.PythonMode {
	case "py-spy", "pyperf":
	default:
		return fmt.Errorf("python-mode must be py-spy or pyperf, got %q", c.PythonMode)
	}

	if c.Duration <= 0 {
		return fmt.Errorf("duration must be positive, got %s", c.Duration)
	}
	if c.Frequency <= 0 {
		return fmt.Errorf("frequency must be positive, got %d", c.Frequency)
	}
	if !c.NoUpload && c.UploadHost != "" && c.UploadAPIKey == "" {
		return fmt.Errorf("upload-host set without api-key")
	}
	return nil
}
