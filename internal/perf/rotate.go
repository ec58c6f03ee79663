package perf

import (
	"context"
	"fmt"
	"os/exec"
	"syscall"

	"github.com/intel/gprofiler-go/internal/constants"
)

// SwitchOutput requests a rotation: stale path.* files left behind by a
// previous timeout-based switch are cleared first, so the file that
// appears after the signal can be told apart from one the prior cycle
// never consumed.
func (s *Supervisor) SwitchOutput() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.proc == nil {
		return fmt.Errorf("perf (%s mode) not running", s.cfg.Mode)
	}
	removeFilesByPrefix(s.cfg.OutputPath + ".")
	s.state = Rotating
	return s.proc.SendSignal(syscall.SIGUSR2)
}

// WaitAndScript waits for the rotated output file, runs "perf inject
// --jit" when configured, decodes it with "perf script -F +pid", and
// folds the result into per-PID collapsed text. On rotation timeout it
// logs and returns empty text for this cycle - the sampler keeps
// running, so the next cycle gets a chance.
func (s *Supervisor) WaitAndScript(ctx context.Context) (string, error) {
	perfData, err := waitForFileByPrefix(s.cfg.OutputPath+".", constants.RotationTimeout, s.stop)
	if err != nil {
		s.mu.Lock()
		s.state = Running
		s.mu.Unlock()
		s.logger.Warn().Err(err).Msg("perf rotation timed out, data for this cycle lost")
		return "", nil
	}
	defer removePath(perfData)

	s.mu.Lock()
	s.state = Running
	perfPath := s.cfg.PerfPath
	injectJIT := s.cfg.InjectJIT && s.cfg.Mode != ModeDwarf
	s.mu.Unlock()

	scriptInput := perfData
	if injectJIT {
		injectPath := perfData + ".inject"
		if err := runPerf(ctx, perfPath, "inject", "--jit", "-o", injectPath, "-i", perfData); err != nil {
			return "", fmt.Errorf("perf inject --jit: %w", err)
		}
		defer removePath(injectPath)
		scriptInput = injectPath
	}

	text, err := runPerfOutput(ctx, perfPath, "script", "-F", "+pid", "-i", scriptInput)
	if err != nil {
		s.logger.Error().Err(err).Msg("perf script failed")
		return "", nil
	}
	return collapseScriptOutput(text), nil
}

func runPerf(ctx context.Context, perfPath string, args ...string) error {
	_, err := runPerfOutput(ctx, perfPath, args...)
	return err
}

func runPerfOutput(ctx context.Context, perfPath string, args ...string) (string, error) {
	cmd := exec.CommandContext(ctx, perfPath, args...)
	out, err := cmd.Output()
	if err != nil {
		return "", fmt.Errorf("%s %v: %w", perfPath, args, err)
	}
	return string(out), nil
}
