package task_test

import (
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/Qudix/mob/internal/config"
	"github.com/Qudix/mob/internal/task"
)

// errTestFailure stands in for an external-operation failure.
var errTestFailure = errors.New("test failure")

// testConfig loads a config from the given mob.yaml contents; empty contents
// yield pure defaults (all phases on, no clean flags, tasks enabled).
func testConfig(t *testing.T, yaml string) *config.Config {
	t.Helper()

	path := filepath.Join(t.TempDir(), "mob.yaml")
	if yaml != "" {
		if err := os.WriteFile(path, []byte(yaml), 0644); err != nil {
			t.Fatalf("write mob.yaml: %v", err)
		}
	}

	cfg, err := config.Load(path)
	if err != nil {
		t.Fatalf("load config: %v", err)
	}
	return cfg
}

// fakeTool records how it is driven. A non-nil block channel makes Run wait
// until the channel is closed, so tests can interrupt a tool mid-run.
type fakeTool struct {
	name   string
	runErr error
	block  chan struct{}

	mu         sync.Mutex
	runs       int
	interrupts int
}

func (f *fakeTool) Name() string {
	if f.name == "" {
		return "fake"
	}
	return f.name
}

func (f *fakeTool) Run(cx *task.Context) error {
	f.mu.Lock()
	f.runs++
	f.mu.Unlock()

	if f.block != nil {
		<-f.block
	}
	return f.runErr
}

func (f *fakeTool) Interrupt() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.interrupts++
}

func (f *fakeTool) runCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.runs
}

func (f *fakeTool) interruptCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.interrupts
}
