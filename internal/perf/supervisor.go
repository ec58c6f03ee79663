package perf

import (
	"context"
	"fmt"
	"os/exec"
	"sync"
	"time"

	"github.com/rs/zerolog"
	gopsprocess "github.com/shirou/gopsutil/v4/process"

	"github.com/intel/gprofiler-go/internal/constants"
	"github.com/intel/gprofiler-go/internal/errkind"
	"github.com/intel/gprofiler-go/internal/runner"
	"github.com/intel/gprofiler-go/internal/safe"
)

// Mode is which unwinding method a sampler instance uses.
type Mode string

const (
	ModeFP    Mode = "fp"
	ModeDwarf Mode = "dwarf"
)

// Config configures one sampler instance.
type Config struct {
	PerfPath       string // defaults to looking up "perf" on PATH
	Frequency      int
	OutputPath     string
	Mode           Mode
	InjectJIT      bool  // FP mode only; DWARF output is never JIT-injected
	DwarfStackSize int   // user-stack bytes copied per DWARF sample, 0 means 8192
	ExtraArgs      []string
	PIDs           []int // nil means system-wide (-a)
	SwitchOutput   time.Duration
}

// Supervisor owns one "perf record" child process across many profiling
// cycles, restarting it on crash, RSS growth above its baseline, or
// high RSS once it has run for PerfRestartAfter, and handling
// the --switch-output rotation protocol each cycle.
type Supervisor struct {
	cfg      Config
	registry *runner.Registry
	stop     *runner.StopSignal
	logger   zerolog.Logger

	mu            sync.Mutex
	state         State
	proc          *runner.Process
	startTime     time.Time
	baselineRSS   int64
	collectedRSS  []int64
	baselineReady bool
}

// New constructs a Supervisor. Call Start before any other method.
func New(cfg Config, registry *runner.Registry, stop *runner.StopSignal, logger zerolog.Logger) *Supervisor {
	if cfg.PerfPath == "" {
		cfg.PerfPath = "perf"
	}
	if cfg.SwitchOutput == 0 {
		cfg.SwitchOutput = constants.RotationTimeout
	}
	return &Supervisor{
		cfg:      cfg,
		registry: registry,
		stop:     stop,
		logger:   logger.With().Str("component", "perf_supervisor").Str("mode", string(cfg.Mode)).Logger(),
		state:    Stopped,
	}
}

func (s *Supervisor) mmapPages() int {
	return constants.MmapPages[string(s.cfg.Mode)]
}

func (s *Supervisor) perfCmd() []string {
	args := []string{
		"record",
		"-F", fmt.Sprintf("%d", s.cfg.Frequency),
		"-g",
		"-o", s.cfg.OutputPath,
		fmt.Sprintf("--switch-output=%ds,signal", int(s.cfg.SwitchOutput.Seconds())),
		"--switch-max-files=1",
		"-m", fmt.Sprintf("%d", s.mmapPages()),
	}
	if len(s.cfg.PIDs) > 0 {
		pidList := ""
		for i, pid := range s.cfg.PIDs {
			if i > 0 {
				pidList += ","
			}
			pidList += fmt.Sprintf("%d", pid)
		}
		args = append(args, "--pid", pidList)
	} else {
		args = append(args, "-a")
	}
	if s.cfg.Mode == ModeDwarf {
		size := s.cfg.DwarfStackSize
		if size == 0 {
			size = 8192
		}
		args = append(args, "--call-graph", fmt.Sprintf("dwarf,%d", size))
	} else if s.cfg.InjectJIT {
		args = append(args, "-k", "1")
	}
	args = append(args, s.cfg.ExtraArgs...)
	return args
}

// Start spawns the sampler and waits for its first output file to prove
// it's alive, per the Stopped -> Starting -> Running transition.
func (s *Supervisor) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, err := exec.LookPath(s.cfg.PerfPath); err != nil {
		s.state = Failed
		return fmt.Errorf("locate %s: %w", s.cfg.PerfPath, errkind.ProgramMissing)
	}

	s.state = Starting
	removePath(s.cfg.OutputPath)

	proc, err := runner.Spawn(ctx, s.registry, s.cfg.PerfPath, s.perfCmd(), nil)
	if err != nil {
		s.state = Failed
		return fmt.Errorf("start perf (%s mode): %w", s.cfg.Mode, err)
	}

	if err := waitForFile(s.cfg.OutputPath, constants.HelperDumpTimeout, s.stop); err != nil {
		_, _, _, _ = proc.KillAndReap()
		s.state = Failed
		return fmt.Errorf("perf (%s mode) failed to start: %w", s.cfg.Mode, err)
	}

	s.proc = proc
	s.startTime = time.Now()
	s.state = Running
	s.clearBaselineLocked()
	s.logger.Info().Msg("perf started")
	return nil
}

// Stop terminates the sampler and reaps it.
func (s *Supervisor) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.stopLocked()
}

func (s *Supervisor) stopLocked() {
	if s.proc == nil {
		return
	}
	code, stdout, stderr, err := s.proc.KillAndReap()
	s.logger.Info().Int("exit_code", code).Str("stdout", stdout).Str("stderr", stderr).Err(err).Msg("perf stopped")
	s.proc = nil
	s.state = Stopped
}

// IsRunning reports whether the sampler is alive, returning false both
// when it was never started and when it has exited since last checked.
func (s *Supervisor) IsRunning() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.isRunningLocked()
}

func (s *Supervisor) isRunningLocked() bool {
	if s.proc == nil {
		return false
	}
	p, err := gopsprocess.NewProcess(int32(s.proc.Pid()))
	if err != nil {
		return false
	}
	running, err := p.IsRunning()
	return err == nil && running
}

// Restart stops, clears the RSS baseline, and starts again.
func (s *Supervisor) Restart(ctx context.Context) error {
	s.mu.Lock()
	s.state = Restarting
	s.stopLocked()
	s.clearBaselineLocked()
	s.mu.Unlock()
	return s.Start(ctx)
}

// RestartIfNotRunning restarts the sampler if it has exited unexpectedly.
func (s *Supervisor) RestartIfNotRunning(ctx context.Context) error {
	if s.IsRunning() {
		return nil
	}
	s.logger.Warn().Msg("perf not running unexpectedly, restarting")
	return s.Restart(ctx)
}

func (s *Supervisor) clearBaselineLocked() {
	s.baselineRSS = 0
	s.collectedRSS = nil
	s.baselineReady = false
}

// RestartIfRSSExceeded checks the sampler's memory growth against its
// baseline (the mean of its first PerfBaselineSampleCount post-start RSS
// readings) and restarts it if it has grown too large for its age.
func (s *Supervisor) RestartIfRSSExceeded(ctx context.Context) error {
	s.mu.Lock()
	if s.proc == nil {
		s.mu.Unlock()
		return nil
	}
	p, err := gopsprocess.NewProcess(int32(s.proc.Pid()))
	if err != nil {
		s.mu.Unlock()
		return nil
	}
	memInfo, err := p.MemoryInfo()
	if err != nil || memInfo == nil {
		s.mu.Unlock()
		return nil
	}
	currentRSS, clamped := safe.Uint64ToInt64(memInfo.RSS)
	if clamped {
		s.logger.Warn().Msg("RSS value overflowed int64, clamped to max")
	}

	if !s.baselineReady {
		s.collectedRSS = append(s.collectedRSS, currentRSS)
		if len(s.collectedRSS) < constants.PerfBaselineSampleCount {
			s.mu.Unlock()
			return nil
		}
		var sum int64
		for _, v := range s.collectedRSS {
			sum += v
		}
		s.baselineRSS = sum / int64(len(s.collectedRSS))
		s.baselineReady = true
	}

	growth := currentRSS - s.baselineRSS
	elapsed := time.Since(s.startTime)
	shouldRestartAge := elapsed >= constants.PerfRestartAfter && currentRSS >= constants.PerfMemoryThreshold
	shouldRestartGrowth := growth > constants.PerfRSSGrowthThreshold
	s.mu.Unlock()

	if shouldRestartAge || shouldRestartGrowth {
		s.logger.Debug().
			Int64("current_rss", currentRSS).
			Int64("growth", growth).
			Bool("age_based", shouldRestartAge).
			Bool("growth_based", shouldRestartGrowth).
			Msg("restarting perf due to memory growth")
		return s.Restart(ctx)
	}
	return nil
}

// State returns the sampler's current lifecycle state.
func (s *Supervisor) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Watch runs the sampler's health-check loop until ctx is canceled or
// the stop signal fires: each tick restarts the sampler if it has
// exited unexpectedly, then applies the memory-growth restart policy.
// Run it in its own goroutine, one per supervisor.
func (s *Supervisor) Watch(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
		if s.stop.IsSet() {
			return
		}
		if err := s.RestartIfNotRunning(ctx); err != nil {
			s.logger.Error().Err(err).Msg("failed to restart perf")
			continue
		}
		if err := s.RestartIfRSSExceeded(ctx); err != nil {
			s.logger.Error().Err(err).Msg("failed to restart perf after memory breach")
		}
	}
}
