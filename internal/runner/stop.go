package runner

import "sync/atomic"

// StopSignal is a level-triggered, idempotent shutdown flag shared by
// every tracked child process: once Trigger is called, IsSet stays true
// for the remainder of the agent's life. Modeled as an explicit value
// (not a package-level global) so tests and multiple orchestrator
// instances never share state.
type StopSignal struct {
	set atomic.Bool
}

// NewStopSignal returns an unset StopSignal.
func NewStopSignal() *StopSignal {
	return &StopSignal{}
}

// Trigger sets the signal. Safe to call more than once or concurrently.
func (s *StopSignal) Trigger() {
	s.set.Store(true)
}

// IsSet reports whether Trigger has been called.
func (s *StopSignal) IsSet() bool {
	return s.set.Load()
}
