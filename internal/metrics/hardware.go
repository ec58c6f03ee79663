package metrics

import (
	"bufio"
	"strconv"
	"strings"
	"sync"

	"github.com/rs/zerolog"
)

// pmuCSVHeaderPrefix is the first line of the external PMU helper's CSV
// stream; lines starting with it are the header, not a sample.
const pmuCSVHeaderPrefix = "TS,SKT,CPU,CID"

// HWMetrics holds the external PMU helper's per-cycle average readings.
type HWMetrics struct {
	CPUFreq     *float64
	CPI         *float64
	TMAFrontend *float64
	TMABadSpec  *float64
	TMABackend  *float64
	TMARetiring *float64
}

// HWMonitor accumulates samples parsed from an external PMU helper's CSV
// stream and exposes a drain-and-reset average, mirroring SystemMonitor's
// memory-average contract.
type HWMonitor struct {
	logger zerolog.Logger

	mu      sync.Mutex
	samples [][6]float64
}

// NewHWMonitor constructs an idle monitor. Feed it lines via ConsumeLine
// as they arrive from the helper's stdout.
func NewHWMonitor(logger zerolog.Logger) *HWMonitor {
	return &HWMonitor{logger: logger.With().Str("component", "hw_monitor").Logger()}
}

// ConsumeLine parses one line of the PMU helper's CSV stream. Header
// lines, blank lines, and malformed rows (fewer than 10 fields, or a
// non-numeric field 4..9) are skipped rather than aborting the stream -
// one corrupt line from an external tool shouldn't lose every sample.
func (m *HWMonitor) ConsumeLine(line string) {
	line = strings.TrimSpace(line)
	if line == "" || strings.HasPrefix(line, pmuCSVHeaderPrefix) {
		return
	}
	fields := strings.Split(line, ",")
	if len(fields) < 10 || fields[0] == "" {
		return
	}
	var vals [6]float64
	for i := 0; i < 6; i++ {
		v, err := strconv.ParseFloat(strings.TrimSpace(fields[4+i]), 64)
		if err != nil {
			return
		}
		vals[i] = v
	}
	m.mu.Lock()
	m.samples = append(m.samples, vals)
	m.mu.Unlock()
}

// ConsumeStream reads newline-delimited CSV rows from r until it's
// exhausted, calling ConsumeLine for each. Intended to run in its own
// goroutine against a PMU helper's stdout pipe.
func (m *HWMonitor) ConsumeStream(r *bufio.Scanner) {
	for r.Scan() {
		m.ConsumeLine(r.Text())
	}
}

// Average drains and resets the accumulated samples, returning the mean
// of each of the six tracked metrics, or nil if none have arrived since
// the last call.
func (m *HWMonitor) Average() *HWMetrics {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.samples) == 0 {
		return nil
	}

	var sums [6]float64
	for _, s := range m.samples {
		for i := 0; i < 6; i++ {
			sums[i] += s[i]
		}
	}
	n := float64(len(m.samples))
	avgs := [6]float64{}
	for i := 0; i < 6; i++ {
		avgs[i] = sums[i] / n
	}
	m.samples = nil

	return &HWMetrics{
		CPUFreq:     &avgs[0],
		CPI:         &avgs[1],
		TMAFrontend: &avgs[2],
		TMABadSpec:  &avgs[3],
		TMABackend:  &avgs[4],
		TMARetiring: &avgs[5],
	}
}
