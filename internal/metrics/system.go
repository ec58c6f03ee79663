package metrics

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"github.com/shirou/gopsutil/v4/cpu"
	"github.com/shirou/gopsutil/v4/mem"
)

// DefaultPollingInterval matches the reference agent's default CPU/memory
// sampling cadence.
const DefaultPollingInterval = 5 * time.Second

// SystemMonitor runs a background goroutine sampling CPU and memory
// utilization at a fixed interval, exposing drain-and-reset averages.
// Reads are protected by a mutex rather than a channel since "drain and
// reset" reads happen far less often than samples accumulate, and
// multiple orchestrator components may read concurrently.
type SystemMonitor struct {
	interval time.Duration
	logger   zerolog.Logger

	mu             sync.Mutex
	memPercentages []float64

	cancel context.CancelFunc
	done   chan struct{}
}

// NewSystemMonitor constructs a monitor. It does not start sampling until
// Start is called.
func NewSystemMonitor(interval time.Duration, logger zerolog.Logger) *SystemMonitor {
	if interval <= 0 {
		interval = DefaultPollingInterval
	}
	// Prime gopsutil's internal CPU-time baseline so the first real
	// CPUAverage call returns a meaningful delta instead of 0.
	_, _ = cpu.Percent(0, false)
	return &SystemMonitor{interval: interval, logger: logger.With().Str("component", "system_monitor").Logger()}
}

// Start begins the sampling goroutine. It runs until ctx is canceled or
// Stop is called.
func (m *SystemMonitor) Start(ctx context.Context) {
	ctx, cancel := context.WithCancel(ctx)
	m.cancel = cancel
	m.done = make(chan struct{})

	go func() {
		defer close(m.done)
		ticker := time.NewTicker(m.interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				m.sampleMemory()
			}
		}
	}()
}

// Stop cancels the sampling goroutine and waits for it to exit.
func (m *SystemMonitor) Stop() {
	if m.cancel != nil {
		m.cancel()
	}
	if m.done != nil {
		<-m.done
	}
}

func (m *SystemMonitor) sampleMemory() {
	vm, err := mem.VirtualMemory()
	if err != nil {
		m.logger.Warn().Err(err).Msg("failed to sample memory utilization")
		return
	}
	m.mu.Lock()
	m.memPercentages = append(m.memPercentages, vm.UsedPercent)
	m.mu.Unlock()
}

// AverageMemory drains and resets the accumulated memory samples,
// returning their mean, or nil if none have been collected since the
// last call.
func (m *SystemMonitor) AverageMemory() *float64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.memPercentages) == 0 {
		return nil
	}
	avg := mean(m.memPercentages)
	m.memPercentages = nil
	return &avg
}

// CPUAverage returns CPU utilization percent since the previous call,
// following gopsutil's own "since last call" semantics for interval=0.
func (m *SystemMonitor) CPUAverage() *float64 {
	pcts, err := cpu.Percent(0, false)
	if err != nil || len(pcts) == 0 {
		return nil
	}
	return &pcts[0]
}

func mean(xs []float64) float64 {
	if len(xs) == 0 {
		return 0
	}
	var sum float64
	for _, x := range xs {
		sum += x
	}
	return sum / float64(len(xs))
}
