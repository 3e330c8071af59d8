package runner

import (
	"sync"
)

// Registry tracks the processes that have been spawned and have not yet
// terminated or been killed.
type Registry struct {
	mu   sync.Mutex
	live map[string]*Process
}

func NewRegistry() *Registry {
	return &Registry{live: make(map[string]*Process)}
}

func (r *Registry) Register(p *Process) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.live[p.ID()] = p
}

func (r *Registry) Unregister(p *Process) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.live, p.ID())
}

// Len returns the number of live processes.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.live)
}

// Live returns a snapshot of the live processes.
func (r *Registry) Live() []*Process {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]*Process, 0, len(r.live))
	for _, p := range r.live {
		out = append(out, p)
	}
	return out
}

// KillAll kills every live process. It is meant for shutdown.
func (r *Registry) KillAll() {
	for _, p := range r.Live() {
		p.Kill()
	}
}
