// Package tool implements the interruptible tools run by tasks: a generic
// external-process runner, the git synchronization tool, and the patch
// applier. Every tool satisfies task.Tool, so an interrupted task can cancel
// whatever external operation is in flight.
package tool

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"strings"
	"sync"

	"github.com/Qudix/mob/internal/log"
	"github.com/Qudix/mob/internal/task"
)

// Arg is one command-line argument. Quiet args carry credentials or noise
// and are echoed only at trace level.
type Arg struct {
	value string
	quiet bool
}

// A wraps a plain argument.
func A(v string) Arg {
	return Arg{value: v}
}

// Quiet wraps an argument that should not appear in normal-verbosity logs.
func Quiet(v string) Arg {
	return Arg{value: v, quiet: true}
}

// Process wraps one external process invocation as an interruptible tool.
// It is created immediately before use and discarded after; Interrupt kills
// the running process by cancelling its context.
type Process struct {
	name        string
	binary      string
	args        []Arg
	dir         string
	env         []string
	stderrLevel log.Level

	mu          sync.Mutex
	cancel      context.CancelFunc
	interrupted bool
}

// NewProcess creates a process tool. name is the diagnostic label; binary is
// resolved through PATH the usual way.
func NewProcess(name, binary string, args ...Arg) *Process {
	return &Process{
		name:        name,
		binary:      binary,
		args:        args,
		stderrLevel: log.LevelError,
	}
}

// Dir sets the working directory.
func (p *Process) Dir(dir string) *Process {
	p.dir = dir
	return p
}

// Env appends environment entries of the form "KEY=value".
func (p *Process) Env(entries ...string) *Process {
	p.env = append(p.env, entries...)
	return p
}

// StderrLevel sets the log level used for the process's error stream. Tools
// whose wrapped binary chats on stderr during normal operation set this to
// trace.
func (p *Process) StderrLevel(lv log.Level) *Process {
	p.stderrLevel = lv
	return p
}

// Name returns the diagnostic label.
func (p *Process) Name() string {
	return p.name
}

// Interrupt kills the running process, if any. A process interrupted before
// Run starts never launches.
func (p *Process) Interrupt() {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.interrupted = true
	if p.cancel != nil {
		p.cancel()
	}
}

// cmdline renders the invocation for logging, redacting quiet args unless
// full is set.
func (p *Process) cmdline(full bool) string {
	var b strings.Builder
	b.WriteString(p.binary)

	for _, a := range p.args {
		b.WriteByte(' ')
		if a.quiet && !full {
			b.WriteString("…")
		} else {
			b.WriteString(a.value)
		}
	}

	return b.String()
}

// Run launches the process and blocks until it exits or is interrupted.
// A non-zero exit is an error carrying the tail of the combined output;
// interruption surfaces as task.ErrInterrupted.
func (p *Process) Run(cx *task.Context) error {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	p.mu.Lock()
	if p.interrupted {
		p.mu.Unlock()
		return task.ErrInterrupted
	}
	p.cancel = cancel
	p.mu.Unlock()

	cx.Debug("running %s", p.cmdline(false))
	cx.Trace("full command line: %s", p.cmdline(true))

	argv := make([]string, 0, len(p.args))
	for _, a := range p.args {
		argv = append(argv, a.value)
	}

	var stdout, stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, p.binary, argv...)
	cmd.Dir = p.dir
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	if len(p.env) > 0 {
		cmd.Env = append(cmd.Environ(), p.env...)
	}

	err := cmd.Run()

	if s := strings.TrimSpace(stderr.String()); s != "" {
		cx.Log(p.stderrLevel, "%s stderr: %s", p.name, s)
	}

	if err != nil {
		if ctx.Err() != nil {
			return task.ErrInterrupted
		}
		return fmt.Errorf("%s: %w\n%s", p.cmdline(false), err,
			tail(stdout.String()+stderr.String(), 50))
	}

	return nil
}

// tail returns the last n lines of s.
func tail(s string, n int) string {
	lines := strings.Split(strings.TrimSpace(s), "\n")
	if len(lines) > n {
		lines = lines[len(lines)-n:]
	}
	return strings.Join(lines, "\n")
}
