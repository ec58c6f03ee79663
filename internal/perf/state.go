// Package perf supervises the system-wide "perf record" sampler(s): one
// instance for frame-pointer mode, optionally a second for DWARF mode in
// "smart" unwinding. Each instance owns its own child process, restart
// policy, and rotation protocol.
package perf

// State is a sampler instance's position in its lifecycle.
type State int

const (
	Stopped State = iota
	Starting
	Running
	Rotating
	Restarting
	Failed
)

func (s State) String() string {
	switch s {
	case Stopped:
		return "stopped"
	case Starting:
		return "starting"
	case Running:
		return "running"
	case Rotating:
		return "rotating"
	case Restarting:
		return "restarting"
	case Failed:
		return "failed"
	default:
		return "unknown"
	}
}
