package tool

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"

	"github.com/Qudix/mob/internal/task"
)

// Patcher applies the known patches for one task under its source root.
// Patches live in <patchesDir>/<task>/, optionally split into prebuilt/ and
// sources/ subdirectories when a task ships both forms; the prebuilt flag
// picks the subdirectory. A task with no patch directory is the common case
// and not an error.
type Patcher struct {
	patchesDir string
	taskName   string
	prebuilt   bool
	root       string

	mu          sync.Mutex
	current     *Process
	interrupted bool

	exec func(cx *task.Context, p *Process) error
}

// NewPatcher creates a patch tool for taskName rooted at root.
func NewPatcher(patchesDir, taskName string, prebuilt bool, root string) *Patcher {
	pt := &Patcher{
		patchesDir: patchesDir,
		taskName:   taskName,
		prebuilt:   prebuilt,
		root:       root,
	}
	pt.exec = func(cx *task.Context, p *Process) error { return p.Run(cx) }
	return pt
}

// Name returns the diagnostic label.
func (pt *Patcher) Name() string {
	return "patcher"
}

// Interrupt cancels the patch application in flight, if any.
func (pt *Patcher) Interrupt() {
	pt.mu.Lock()
	defer pt.mu.Unlock()

	pt.interrupted = true
	if pt.current != nil {
		pt.current.Interrupt()
	}
}

// dir returns the directory holding this task's patches: the prebuilt/ or
// sources/ subdirectory when it exists, the task directory otherwise.
func (pt *Patcher) dir() string {
	base := filepath.Join(pt.patchesDir, pt.taskName)

	sub := "sources"
	if pt.prebuilt {
		sub = "prebuilt"
	}

	if fi, err := os.Stat(filepath.Join(base, sub)); err == nil && fi.IsDir() {
		return filepath.Join(base, sub)
	}
	return base
}

// Run applies every *.patch file for the task, in lexical order, via
// git apply. Patches that already apply in reverse are counted as applied
// and skipped, so re-running a fetch over a patched checkout is a no-op.
func (pt *Patcher) Run(cx *task.Context) error {
	dir := pt.dir()

	if _, err := os.Stat(dir); err != nil {
		cx.Trace("no patches for %s", pt.taskName)
		return nil
	}

	patches, err := filepath.Glob(filepath.Join(dir, "*.patch"))
	if err != nil {
		return fmt.Errorf("listing patches in %s: %w", dir, err)
	}
	sort.Strings(patches)

	if len(patches) == 0 {
		cx.Trace("no patches for %s", pt.taskName)
		return nil
	}

	for _, patch := range patches {
		if err := pt.apply(cx, patch); err != nil {
			return err
		}
	}

	return nil
}

func (pt *Patcher) apply(cx *task.Context, patch string) error {
	// a patch that applies cleanly in reverse is already in the tree
	check := NewProcess("git", "git",
		A("apply"), A("--reverse"), A("--check"), A(patch),
	).Dir(pt.root)

	switch err := pt.runProc(cx, check); {
	case err == nil:
		cx.Debug("patch %s already applied", filepath.Base(patch))
		return nil
	case errors.Is(err, task.ErrInterrupted):
		return err
	}

	cx.Debug("applying patch %s", filepath.Base(patch))

	p := NewProcess("git", "git", A("apply"), A(patch)).Dir(pt.root)
	if err := pt.runProc(cx, p); err != nil {
		return fmt.Errorf("patch %s: %w", filepath.Base(patch), err)
	}

	return nil
}

func (pt *Patcher) runProc(cx *task.Context, p *Process) error {
	pt.mu.Lock()
	if pt.interrupted {
		pt.mu.Unlock()
		return task.ErrInterrupted
	}
	pt.current = p
	pt.mu.Unlock()

	defer func() {
		pt.mu.Lock()
		pt.current = nil
		pt.mu.Unlock()
	}()

	return pt.exec(cx, p)
}
