package task

import "sync"

// Registry tracks every constructed task for enumeration and interrupt
// broadcast. Parallel groups are intentionally excluded: they are plumbing,
// not user-selectable work.
type Registry struct {
	mu    sync.Mutex
	tasks []*Task
}

var defaultRegistry = &Registry{}

// Default returns the process-wide registry that New registers into.
func Default() *Registry {
	return defaultRegistry
}

// Register adds t to the registry.
func (r *Registry) Register(t *Task) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.tasks = append(r.tasks, t)
}

// All returns a snapshot of every registered task, in registration order.
func (r *Registry) All() []*Task {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]*Task(nil), r.tasks...)
}

// InterruptAll broadcasts Interrupt to every registered task. Used when one
// task bails out and the whole run must stop.
func (r *Registry) InterruptAll() {
	for _, t := range r.All() {
		t.Interrupt()
	}
}

// Find returns every registered task matching pattern, in registration
// order. A malformed glob pattern propagates as an error wrapping ErrBailed.
func (r *Registry) Find(pattern string) ([]*Task, error) {
	var out []*Task

	for _, t := range r.All() {
		ok, err := t.NameMatches(pattern)
		if err != nil {
			return nil, err
		}
		if ok {
			out = append(out, t)
		}
	}

	return out, nil
}
