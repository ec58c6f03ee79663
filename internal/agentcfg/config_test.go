package agentcfg

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestApplyEnvOverrides_OverridesDefaults(t *testing.T) {
	t.Setenv("GPROFILER_DURATION", "45s")
	t.Setenv("GPROFILER_FREQUENCY", "99")
	t.Setenv("GPROFILER_ENABLE_JAVA", "false")
	t.Setenv("GPROFILER_SERVICE_NAME", "checkout")

	cfg := Default()
	require.NoError(t, ApplyEnvOverrides(&cfg))

	assert.Equal(t, 45*time.Second, cfg.Duration)
	assert.Equal(t, 99, cfg.Frequency)
	assert.False(t, cfg.EnableJava)
	assert.Equal(t, "checkout", cfg.UploadService)
}

func TestApplyEnvOverrides_LeavesUnsetFieldsAtDefault(t *testing.T) {
	cfg := Default()
	require.NoError(t, ApplyEnvOverrides(&cfg))
	assert.Equal(t, Default(), cfg)
}

func TestApplyEnvOverrides_InvalidDurationErrors(t *testing.T) {
	t.Setenv("GPROFILER_DURATION", "not-a-duration")
	cfg := Default()
	assert.Error(t, ApplyEnvOverrides(&cfg))
}

func TestValidate_RejectsUnknownProfilingMode(t *testing.T) {
	cfg := Default()
	cfg.ProfilingMode = "bogus"
	assert.Error(t, cfg.Validate())
}

func TestValidate_RejectsUploadHostWithoutAPIKey(t *testing.T) {
	cfg := Default()
	cfg.UploadHost = "https://example.invalid"
	assert.Error(t, cfg.Validate())
}

func TestValidate_AcceptsDefaults(t *testing.T) {
	assert.NoError(t, Default().Validate())
}
