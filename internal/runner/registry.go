package runner

import "sync"

// Registry tracks every process spawned through this package so that
// agent termination can kill all of them, regardless of which component
// started them. An explicit struct rather than a package-level map, so
// the orchestrator owns exactly one registry for its process lifetime.
type Registry struct {
	mu    sync.Mutex
	procs map[int]*Process
}

// NewRegistry returns an empty Registry.
func NewRegistry() *Registry {
	return &Registry{procs: make(map[int]*Process)}
}

func (r *Registry) track(p *Process) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.procs[p.Pid()] = p
}

func (r *Registry) untrack(p *Process) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.procs, p.Pid())
}

// All returns a snapshot of every currently tracked process.
func (r *Registry) All() []*Process {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]*Process, 0, len(r.procs))
	for _, p := range r.procs {
		out = append(out, p)
	}
	return out
}

// KillAll sends SIGKILL to every tracked process's group and reaps it,
// ignoring individual errors so one stuck child cannot block termination
// of the rest. There is no Windows variant: KillAndReap always uses
// SIGKILL on a Unix process group.
func (r *Registry) KillAll() {
	for _, p := range r.All() {
		_, _, _, _ = p.KillAndReap()
	}
}
