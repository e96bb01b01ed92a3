package task

import "github.com/Qudix/mob/internal/config"

// Test-only accessors for internals the external test package needs.

// NewUnregistered constructs a task without adding it to the process-wide
// registry, keeping tests independent of each other.
func NewUnregistered(cfg *config.Config, hooks Hooks, taskNames ...string) *Task {
	return newTask(cfg, hooks, taskNames...)
}

// ResetDefaultRegistry empties the process-wide registry between tests.
func ResetDefaultRegistry() {
	defaultRegistry.mu.Lock()
	defer defaultRegistry.mu.Unlock()
	defaultRegistry.tasks = nil
}

// BindContext exposes bindContext for registry tests.
func (t *Task) BindContext(name string) { t.bindContext(name) }

// UnbindContext exposes unbindContext for registry tests.
func (t *Task) UnbindContext() { t.unbindContext() }

// SentinelContextName is the name of the context returned for unbound
// goroutines.
const SentinelContextName = "?"
