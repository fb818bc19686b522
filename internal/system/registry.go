package system

import "sync"

// Registry maps map ids to their runners. Written once during startup,
// read from session goroutines during the join handshake and migration.
type Registry struct {
	mu      sync.RWMutex
	runners map[string]*Runner
}

func NewRegistry() *Registry {
	return &Registry{runners: make(map[string]*Runner)}
}

func (r *Registry) Add(run *Runner) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.runners[run.Map.ID] = run
}

// Get returns the runner for a map id, or nil.
func (r *Registry) Get(mapID string) *Runner {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.runners[mapID]
}

// All returns every registered runner.
func (r *Registry) All() []*Runner {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]*Runner, 0, len(r.runners))
	for _, run := range r.runners {
		out = append(out, run)
	}
	return out
}
