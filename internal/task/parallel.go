package task

import (
	"sync"

	"github.com/Qudix/mob/internal/config"
)

// Group is a composite task that fans a batch of child tasks out onto worker
// goroutines and joins them. It owns its children exclusively and is never
// registered in the process-wide registry.
type Group struct {
	*Task

	children []*Task
	wg       sync.WaitGroup
}

// NewGroup constructs an empty parallel group.
func NewGroup(cfg *config.Config) *Group {
	return &Group{
		// not registered: groups are not shown to or selectable by the user
		Task: newTask(cfg, Hooks{}, "parallel"),
	}
}

// AddTask transfers ownership of t to the group. Call before Run.
func (g *Group) AddTask(t *Task) {
	g.children = append(g.children, t)
}

// Children returns the group's child tasks in insertion order.
func (g *Group) Children() []*Task {
	return append([]*Task(nil), g.children...)
}

// Enabled always reports true: a group only exists to run its children, and
// each child applies its own enable check.
func (g *Group) Enabled() bool {
	return true
}

// Run starts one worker goroutine per child, each bound to a context named
// after its child, and does not return until every child has finished.
// Child failures are handled at the thread boundary (RunFromThread) and do
// not abort siblings.
func (g *Group) Run() error {
	for _, c := range g.children {
		c := c
		g.wg.Add(1)

		go func() {
			defer g.wg.Done()
			c.RunFromThread(c.Name(), c.Run)
		}()
	}

	g.Join()
	return nil
}

// Interrupt forwards the interrupt to every child. No group-level lock is
// needed: each child's Interrupt synchronizes itself.
func (g *Group) Interrupt() {
	for _, c := range g.children {
		c.Interrupt()
	}
}

// Join waits for all started workers. It is idempotent; joining a group that
// never ran is a no-op.
func (g *Group) Join() {
	g.wg.Wait()
}
