package tool

import "github.com/Qudix/mob/internal/task"

// Test-only accessors so tests can record git invocations without running
// the real binary.

// SetExec replaces the process executor backing this git tool.
func (g *Git) SetExec(f func(cx *task.Context, p *Process) error) { g.exec = f }

// SetExec replaces the process executor backing this patch tool.
func (pt *Patcher) SetExec(f func(cx *task.Context, p *Process) error) { pt.exec = f }

// Argv returns the full command line, binary first, with quiet args
// included.
func (p *Process) Argv() []string {
	argv := []string{p.binary}
	for _, a := range p.args {
		argv = append(argv, a.value)
	}
	return argv
}

// WorkDir returns the configured working directory.
func (p *Process) WorkDir() string { return p.dir }
