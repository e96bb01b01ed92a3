package task

import (
	"bytes"
	"fmt"
	"runtime"
	"strconv"

	"github.com/Qudix/mob/internal/log"
)

// Context identifies who is logging on behalf of a task: a name (usually the
// task name, or a sub-job name inside a parallel batch) bound to one
// goroutine. Tasks hand their current Context to every tool they run so
// diagnostics from concurrent tasks stay attributable.
type Context struct {
	name string
}

// unknownContext is returned by Cx for goroutines that never bound a
// context. Logging through it still works; the output is just anonymous.
var unknownContext = &Context{name: "?"}

// Name returns the context's display name.
func (c *Context) Name() string {
	return c.name
}

func (c *Context) logf(lv log.Level, format string, args ...any) {
	log.Logf(lv, "%s: %s", c.name, fmt.Sprintf(format, args...))
}

// Log logs at an arbitrary level; tools use it to route an external
// process's error stream at a configured level.
func (c *Context) Log(lv log.Level, format string, args ...any) { c.logf(lv, format, args...) }

// Trace logs at trace level.
func (c *Context) Trace(format string, args ...any) { c.logf(log.LevelTrace, format, args...) }

// Debug logs at debug level.
func (c *Context) Debug(format string, args ...any) { c.logf(log.LevelDebug, format, args...) }

// Info logs at info level.
func (c *Context) Info(format string, args ...any) { c.logf(log.LevelInfo, format, args...) }

// Warning logs at warning level.
func (c *Context) Warning(format string, args ...any) { c.logf(log.LevelWarning, format, args...) }

// Error logs at error level.
func (c *Context) Error(format string, args ...any) { c.logf(log.LevelError, format, args...) }

// threadContext is one record of a task's context registry: the goroutine it
// belongs to plus its Context. At most one record exists per live goroutine.
type threadContext struct {
	gid uint64
	cx  *Context
}

// goroutineID returns the id of the calling goroutine, parsed from the
// header line of its stack trace ("goroutine N [running]:"). There is no
// runtime API for this; the registry needs a key for "the calling thread of
// control" and this is the stable, widely-used way to get one.
func goroutineID() uint64 {
	var buf [64]byte
	n := runtime.Stack(buf[:], false)

	fields := bytes.Fields(buf[:n])
	if len(fields) < 2 {
		return 0
	}

	id, err := strconv.ParseUint(string(fields[1]), 10, 64)
	if err != nil {
		return 0
	}
	return id
}

// bindContext inserts a context record for the calling goroutine. Callers
// bind once on entry and unbind on exit; it never overwrites an existing
// record for the same goroutine.
func (t *Task) bindContext(name string) {
	t.contextsMu.Lock()
	defer t.contextsMu.Unlock()

	t.contexts = append(t.contexts, &threadContext{
		gid: goroutineID(),
		cx:  &Context{name: name},
	})
}

// unbindContext removes the calling goroutine's record, if any.
func (t *Task) unbindContext() {
	t.contextsMu.Lock()
	defer t.contextsMu.Unlock()

	gid := goroutineID()
	for i, tc := range t.contexts {
		if tc.gid == gid {
			t.contexts = append(t.contexts[:i], t.contexts[i+1:]...)
			return
		}
	}
}

// Cx returns the context bound to the calling goroutine, or the "?" sentinel
// if none is bound. The returned pointer stays valid after the lock is
// released: records are only ever removed by the goroutine that bound them.
func (t *Task) Cx() *Context {
	gid := goroutineID()

	t.contextsMu.Lock()
	defer t.contextsMu.Unlock()

	for _, tc := range t.contexts {
		if tc.gid == gid {
			return tc.cx
		}
	}

	return unknownContext
}
