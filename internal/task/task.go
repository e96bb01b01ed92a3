// Package task implements the orchestration engine: the task lifecycle state
// machine (clean → fetch → build), cooperative interruption, the per-thread
// execution-context registry, tool registration, and parallel execution of
// task batches.
package task

import (
	"errors"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/Qudix/mob/internal/config"
	"github.com/Qudix/mob/internal/log"
	"github.com/Qudix/mob/internal/names"
)

// Tool is one interruptible external operation invoked by a task. Run blocks
// until the operation finishes or is cancelled; Interrupt asks a running
// tool to cancel whatever it wraps and may be called from another goroutine.
type Tool interface {
	Name() string
	Run(cx *Context) error
	Interrupt()
}

// Hooks are the task-specific phase implementations. Nil members are no-ops;
// concrete task definitions (internal/deps) fill in the ones they need.
type Hooks struct {
	// Clean performs the cleanup sub-steps selected by flags.
	Clean func(cx *Context, flags CleanFlags) error

	// Fetch materializes the task's sources, typically via RunTool.
	Fetch func(cx *Context) error

	// BuildAndInstall compiles and installs the task's output.
	BuildAndInstall func(cx *Context) error

	// SourcePath returns the directory holding the task's fetched sources,
	// or "" if the task has none. A non-empty path triggers patch
	// application after fetch.
	SourcePath func() string

	// Prebuilt marks tasks whose sources are prebuilt binaries; it selects
	// which patch set applies.
	Prebuilt bool
}

// Patcher builds the patch-application tool run after a task's fetch phase
// when the task reports a source path. The driver wires it at startup; nil
// disables patching.
var Patcher func(taskName string, prebuilt bool, root string) Tool

// Task is a named unit of work progressing through the clean, fetch and
// build phases. Its two pieces of shared state — the active-tool set and the
// context registry — are each guarded by their own mutex; neither lock is
// held while an external operation runs.
type Task struct {
	names []string
	cfg   *config.Config
	hooks Hooks

	interrupted atomic.Bool

	toolsMu sync.Mutex
	tools   []Tool

	contextsMu sync.Mutex
	contexts   []*threadContext
}

// New constructs a task and registers it in the process-wide registry. The
// first name is canonical; the rest are aliases used when matching user
// selectors. The constructing goroutine gets a context bound immediately so
// the task can log before any worker starts.
func New(cfg *config.Config, hooks Hooks, taskNames ...string) *Task {
	t := newTask(cfg, hooks, taskNames...)
	Default().Register(t)
	return t
}

func newTask(cfg *config.Config, hooks Hooks, taskNames ...string) *Task {
	if len(taskNames) == 0 {
		panic("task needs at least one name")
	}

	t := &Task{
		names: taskNames,
		cfg:   cfg,
		hooks: hooks,
	}

	t.bindContext(t.Name())
	return t
}

// Name returns the task's canonical name.
func (t *Task) Name() string {
	return t.names[0]
}

// Names returns the full alias list, canonical name first.
func (t *Task) Names() []string {
	return t.names
}

// Conf resolves the task-scoped configuration for this task's alias list.
func (t *Task) Conf() config.TaskConf {
	return t.cfg.Task(t.names)
}

// Enabled reports whether task-scoped configuration enables this task. A
// disabled task's hooks are never invoked.
func (t *Task) Enabled() bool {
	return t.Conf().Enabled
}

// NameMatches reports whether pattern selects this task. A pattern
// containing '*' is a glob (see internal/names); a malformed glob is a
// non-recoverable configuration problem and returns an error wrapping
// ErrBailed after emitting a diagnostic.
func (t *Task) NameMatches(pattern string) (bool, error) {
	if names.HasGlob(pattern) {
		re, err := names.CompileGlob(pattern)
		if err != nil {
			log.Error(err.Error())
			return false, fmt.Errorf("%v: %w", err, ErrBailed)
		}

		for _, n := range t.names {
			if names.GlobMatches(re, n) {
				return true, nil
			}
		}
		return false, nil
	}

	// hot path: exact matching against every alias
	for _, n := range t.names {
		if names.Equal(n, pattern) {
			return true, nil
		}
	}
	return false, nil
}

// Run drives the task through its phases in order, checking the
// interruption flag after each. It returns ErrInterrupted when abandoned,
// or the first phase error.
func (t *Task) Run() error {
	if !t.Enabled() {
		t.Cx().Debug("task is disabled")
		return nil
	}

	t.Cx().Info("running task")

	if err := t.cleanTask(); err != nil {
		return err
	}
	if err := t.CheckInterrupted(); err != nil {
		return err
	}

	if err := t.fetch(); err != nil {
		return err
	}
	if err := t.CheckInterrupted(); err != nil {
		return err
	}

	if err := t.buildAndInstall(); err != nil {
		return err
	}
	return t.CheckInterrupted()
}

// Interrupt sets the interruption flag and forwards the interrupt to every
// currently running tool. It is idempotent and safe from any goroutine; the
// flag is never cleared.
func (t *Task) Interrupt() {
	t.toolsMu.Lock()
	defer t.toolsMu.Unlock()

	t.interrupted.Store(true)

	for _, tl := range t.tools {
		tl.Interrupt()
	}
}

// CheckInterrupted returns ErrInterrupted if the task has been interrupted.
// It is evaluated only at phase boundaries and around tool invocations;
// interruption is never preemptive.
func (t *Task) CheckInterrupted() error {
	if t.interrupted.Load() {
		return ErrInterrupted
	}
	return nil
}

func (t *Task) cleanTask() error {
	if !t.cfg.Globals.Clean {
		return nil
	}

	if !t.Enabled() {
		t.Cx().Debug("cleaning (skipping, task disabled)")
		return nil
	}

	cf := MakeCleanFlags(t.cfg.Globals)
	if cf == CleanNothing {
		return nil
	}

	t.Cx().Info("cleaning (%s)", cf)

	if t.hooks.Clean != nil {
		return t.hooks.Clean(t.Cx(), cf)
	}
	return nil
}

func (t *Task) fetch() error {
	if !t.cfg.Globals.Fetch {
		return nil
	}

	if !t.Enabled() {
		t.Cx().Debug("fetching (skipping, task disabled)")
		return nil
	}

	t.Cx().Info("fetching")

	if t.hooks.Fetch != nil {
		if err := t.hooks.Fetch(t.Cx()); err != nil {
			return err
		}
	}

	if err := t.CheckInterrupted(); err != nil {
		return err
	}

	// auto patching if the task has a source path
	if t.hooks.SourcePath != nil && Patcher != nil {
		if root := t.hooks.SourcePath(); root != "" {
			t.Cx().Debug("patching")
			return t.RunTool(Patcher(t.Name(), t.hooks.Prebuilt, root))
		}
	}

	return nil
}

func (t *Task) buildAndInstall() error {
	if !t.cfg.Globals.Build {
		return nil
	}

	if !t.Enabled() {
		t.Cx().Debug("build and install (skipping, task disabled)")
		return nil
	}

	t.Cx().Info("build and install")

	if t.hooks.BuildAndInstall != nil {
		return t.hooks.BuildAndInstall(t.Cx())
	}
	return nil
}

// RunTool registers tl in the active-tool set for the duration of its run so
// Interrupt can reach it, and deregisters it on every exit path. The
// interruption flag is checked immediately before and after the run, which
// bounds how long a freshly started external operation can outlive an
// interrupt request.
func (t *Task) RunTool(tl Tool) error {
	t.toolsMu.Lock()
	t.tools = append(t.tools, tl)
	t.toolsMu.Unlock()

	defer func() {
		t.toolsMu.Lock()
		defer t.toolsMu.Unlock()
		for i, cur := range t.tools {
			if cur == tl {
				t.tools = append(t.tools[:i], t.tools[i+1:]...)
				break
			}
		}
	}()

	cx := t.Cx()
	cx.Debug("running tool %s", tl.Name())

	if err := t.CheckInterrupted(); err != nil {
		return err
	}
	if err := tl.Run(cx); err != nil {
		return fmt.Errorf("tool %s: %w", tl.Name(), err)
	}
	return t.CheckInterrupted()
}

// RunFromThread runs f on the calling goroutine with a context named
// threadName bound for its duration. It is the thread boundary of the
// engine: interruption is swallowed (expected cooperative shutdown), a
// bail-out broadcasts Interrupt to every registered task, and any other
// error stops this task with a diagnostic without touching its siblings.
func (t *Task) RunFromThread(threadName string, f func() error) {
	t.bindContext(threadName)
	defer t.unbindContext()

	err := f()

	switch {
	case err == nil:

	case errors.Is(err, ErrInterrupted):
		// this task was interrupted, just quit

	case errors.Is(err, ErrBailed):
		log.Error(fmt.Sprintf("%s bailed out, interrupting all tasks", t.Name()))
		Default().InterruptAll()

	default:
		t.Cx().Error("%v", err)
	}
}

// NamedJob is one sub-job of a parallel batch inside a single task.
type NamedJob struct {
	Name string
	Run  func() error
}

// Parallel fans jobs out onto a bounded worker pool and waits for all of
// them. Each job runs under its own named context via RunFromThread, so a
// failing or bailing sub-job behaves exactly like a failing worker of a
// parallel task group. workers <= 0 selects one worker per CPU.
func (t *Task) Parallel(jobs []NamedJob, workers int) {
	pool := NewPool(workers)

	for _, j := range jobs {
		j := j
		t.Cx().Trace("running in parallel: %s", j.Name)

		pool.Add(func() {
			t.RunFromThread(j.Name, j.Run)
		})
	}

	pool.Wait()
}
