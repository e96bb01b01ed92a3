package task

import "errors"

// ErrInterrupted is returned from a task's run when its interruption flag is
// observed at a checkpoint. It is cooperative shutdown, not a failure: a
// worker that sees it exits quietly.
var ErrInterrupted = errors.New("interrupted")

// ErrBailed marks an unrecoverable, run-wide error such as a malformed task
// selector. Any worker catching it broadcasts Interrupt to every registered
// task before unwinding.
var ErrBailed = errors.New("bailed out")
