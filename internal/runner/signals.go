package runner

import (
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"github.com/intel/gprofiler-go/internal/constants"
)

// ShutdownHandler installs SIGINT/SIGTERM handling for the whole agent:
// the first signal within a SignalRateLimit window triggers stop and
// kills every process in registry; repeats inside the window are
// swallowed so a user holding down Ctrl-C doesn't re-enter shutdown.
type ShutdownHandler struct {
	registry *Registry
	stop     *StopSignal
	logger   zerolog.Logger

	mu       sync.Mutex
	lastSeen time.Time

	sigCh chan os.Signal
	done  chan struct{}
}

// NewShutdownHandler wires signal.Notify for SIGINT and SIGTERM.
func NewShutdownHandler(registry *Registry, stop *StopSignal, logger zerolog.Logger) *ShutdownHandler {
	h := &ShutdownHandler{
		registry: registry,
		stop:     stop,
		logger:   logger,
		sigCh:    make(chan os.Signal, 2),
		done:     make(chan struct{}),
	}
	signal.Notify(h.sigCh, syscall.SIGINT, syscall.SIGTERM)
	go h.loop()
	return h
}

func (h *ShutdownHandler) loop() {
	for {
		select {
		case sig, ok := <-h.sigCh:
			if !ok {
				return
			}
			h.handle(sig)
		case <-h.done:
			return
		}
	}
}

func (h *ShutdownHandler) handle(sig os.Signal) {
	h.mu.Lock()
	now := time.Now()
	if !h.lastSeen.IsZero() && now.Sub(h.lastSeen) < constants.SignalRateLimit {
		h.mu.Unlock()
		return
	}
	h.lastSeen = now
	h.mu.Unlock()

	h.logger.Info().Stringer("signal", sig).Msg("received shutdown signal")
	h.stop.Trigger()
	h.registry.KillAll()
}

// Stop unregisters the signal handler. Call during orderly shutdown so a
// later test or a re-invocation of the CLI in-process doesn't leak the
// notification registration.
func (h *ShutdownHandler) Stop() {
	signal.Stop(h.sigCh)
	close(h.done)
}
