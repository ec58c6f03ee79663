// Package metrics runs the background system and hardware metrics
// monitors: CPU%, RAM% sampled via gopsutil, and an optional external PMU
// helper's CSV stream, each exposed as a per-cycle average that drains
// and resets on read.
package metrics

// Metrics is the per-cycle snapshot carried on the emit record and
// serialized into the upload payload. Every field is
// optional: a monitor that was never started, or that hasn't
// accumulated a sample yet, leaves it nil and it's omitted on the wire.
type Metrics struct {
	CPUAvg      *float64 `json:"cpu_avg,omitempty"`
	MemAvg      *float64 `json:"mem_avg,omitempty"`
	CPUFreq     *float64 `json:"cpu_freq,omitempty"`
	CPI         *float64 `json:"cpi,omitempty"`
	TMAFrontend *float64 `json:"tma_frontend,omitempty"`
	TMABackend  *float64 `json:"tma_backend,omitempty"`
	TMABadSpec  *float64 `json:"tma_bad_spec,omitempty"`
	TMARetiring *float64 `json:"tma_retiring,omitempty"`
}
