package runtimeprofiler

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleSpeedscopeDoc = `{
  "shared": {
    "frames": [
      {"name": "main"},
      {"name": "Main"},
      {"name": "DoWork"}
    ]
  },
  "profiles": [
    {
      "type": "sampled",
      "unit": "none",
      "samples": [[0, 1, 2], [0, 1, 2]],
      "weights": [2.4, 0.2]
    }
  ]
}`

func TestParseSpeedscope_KeepsOutermostFirstOrder(t *testing.T) {
	out, err := ParseSpeedscope([]byte(sampleSpeedscopeDoc), 555)
	require.NoError(t, err)

	counters, ok := out[555]
	require.True(t, ok)

	_, ok = counters["main;Main;DoWork"]
	require.True(t, ok, "expected callers-left, leaf-rightmost stack, got %v", counters)
}

func TestParseSpeedscope_RoundsWeightsAndDropsZero(t *testing.T) {
	out, err := ParseSpeedscope([]byte(sampleSpeedscopeDoc), 1)
	require.NoError(t, err)

	counters := out[1]
	assert.Equal(t, 2, counters["main;Main;DoWork"])
}

func TestParseSpeedscope_InvalidJSONErrors(t *testing.T) {
	_, err := ParseSpeedscope([]byte("not json"), 1)
	assert.Error(t, err)
}
