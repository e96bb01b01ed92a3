// Package log provides leveled, colored terminal output for the mob
// orchestrator. It is a thin wrapper around zerolog's console writer so the
// rest of the codebase never touches zerolog directly; execution contexts
// (internal/task) route their per-task output through Logf.
package log

import (
	"fmt"
	"io"
	"os"
	"strings"
	"sync"

	"github.com/rs/zerolog"
)

// Level selects the minimum severity that is written to the console.
type Level int8

const (
	LevelTrace Level = iota
	LevelDebug
	LevelInfo
	LevelWarning
	LevelError
)

// sectionLine is the unicode box-draw separator used by Section.
const sectionLine = "━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━"

// OsExit is the function called by Fatal to terminate the process.
// It is a package-level variable so tests can replace it without subprocess
// overhead.
var OsExit = os.Exit

var (
	mu     sync.Mutex
	out    io.Writer = os.Stdout
	logger           = newLogger(LevelInfo, os.Stdout)
)

func newLogger(lv Level, w io.Writer) zerolog.Logger {
	cw := zerolog.ConsoleWriter{
		Out:        w,
		TimeFormat: "15:04:05",
	}
	return zerolog.New(cw).Level(zerologLevel(lv)).With().Timestamp().Logger()
}

func zerologLevel(lv Level) zerolog.Level {
	switch lv {
	case LevelTrace:
		return zerolog.TraceLevel
	case LevelDebug:
		return zerolog.DebugLevel
	case LevelWarning:
		return zerolog.WarnLevel
	case LevelError:
		return zerolog.ErrorLevel
	default:
		return zerolog.InfoLevel
	}
}

// SetLevel replaces the global logger with one filtering below lv.
func SetLevel(lv Level) {
	mu.Lock()
	defer mu.Unlock()
	logger = newLogger(lv, out)
}

// SetOutput redirects all output to w. Tests use this to capture messages.
func SetOutput(w io.Writer) {
	mu.Lock()
	defer mu.Unlock()
	out = w
	logger = newLogger(LevelTrace, w)
}

// ParseLevel maps a config/flag string to a Level. Unknown strings map to
// info so a typo never silences the run.
func ParseLevel(s string) Level {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "trace":
		return LevelTrace
	case "debug":
		return LevelDebug
	case "warning", "warn":
		return LevelWarning
	case "error":
		return LevelError
	default:
		return LevelInfo
	}
}

// Logf writes a message at lv. This is the single funnel used by execution
// contexts, which prepend their own task/thread prefix.
func Logf(lv Level, format string, args ...any) {
	mu.Lock()
	l := logger
	mu.Unlock()

	msg := fmt.Sprintf(format, args...)
	switch lv {
	case LevelTrace:
		l.Trace().Msg(msg)
	case LevelDebug:
		l.Debug().Msg(msg)
	case LevelWarning:
		l.Warn().Msg(msg)
	case LevelError:
		l.Error().Msg(msg)
	default:
		l.Info().Msg(msg)
	}
}

// Info prints an info-level message.
func Info(msg string) { Logf(LevelInfo, "%s", msg) }

// Success prints a completed-work message at info level.
func Success(msg string) { Logf(LevelInfo, "%s", msg) }

// Warning prints a warning-level message.
func Warning(msg string) { Logf(LevelWarning, "%s", msg) }

// Error prints an error-level message.
func Error(msg string) { Logf(LevelError, "%s", msg) }

// Fatal prints an error-level message then exits with status 1.
func Fatal(msg string) {
	Error(msg)
	OsExit(1)
}

// Section prints a box-draw separator with a title, marking the start of a
// run phase in the console output.
func Section(title string) {
	mu.Lock()
	w := out
	mu.Unlock()
	fmt.Fprintf(w, "\n%s\n%s\n%s\n\n", sectionLine, title, sectionLine)
}
