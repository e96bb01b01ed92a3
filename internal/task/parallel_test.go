package task_test

import (
	"sync"
	"sync/atomic"
	"testing"

	"github.com/Qudix/mob/internal/task"
)

func TestGroup_RunsEveryChildUnderItsOwnName(t *testing.T) {
	cfg := testConfig(t, "")

	var mu sync.Mutex
	contexts := map[string]string{}

	group := task.NewGroup(cfg)

	childNames := []string{"child-1", "child-2", "child-3"}
	children := make([]*task.Task, 0, len(childNames))
	for _, name := range childNames {
		name := name
		var tk *task.Task
		tk = task.NewUnregistered(cfg, task.Hooks{
			Fetch: func(cx *task.Context) error {
				mu.Lock()
				contexts[name] = tk.Cx().Name()
				mu.Unlock()
				return nil
			},
		}, name)
		children = append(children, tk)
		group.AddTask(tk)
	}

	if err := group.Run(); err != nil {
		t.Fatalf("Run: %v", err)
	}

	if len(contexts) != len(childNames) {
		t.Fatalf("%d children ran, want %d", len(contexts), len(childNames))
	}
	for _, name := range childNames {
		if contexts[name] != name {
			t.Errorf("child %q ran under context %q", name, contexts[name])
		}
	}

	got := group.Children()
	if len(got) != len(children) {
		t.Errorf("Children() = %d tasks, want %d", len(got), len(children))
	}
}

func TestGroup_RunJoinsBeforeReturning(t *testing.T) {
	cfg := testConfig(t, "")

	var running atomic.Int32
	group := task.NewGroup(cfg)

	for i := 0; i < 4; i++ {
		group.AddTask(task.NewUnregistered(cfg, task.Hooks{
			Fetch: func(cx *task.Context) error {
				running.Add(1)
				return nil
			},
		}, "child", "alias"))
	}

	if err := group.Run(); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if got := running.Load(); got != 4 {
		t.Errorf("Run returned with %d of 4 children finished", got)
	}
}

func TestGroup_InterruptForwardsToChildren(t *testing.T) {
	cfg := testConfig(t, "")

	group := task.NewGroup(cfg)
	a := task.NewUnregistered(cfg, task.Hooks{}, "child-a")
	b := task.NewUnregistered(cfg, task.Hooks{}, "child-b")
	group.AddTask(a)
	group.AddTask(b)

	group.Interrupt()

	if a.CheckInterrupted() == nil || b.CheckInterrupted() == nil {
		t.Error("children not interrupted")
	}
}

func TestGroup_NotRegistered(t *testing.T) {
	t.Cleanup(task.ResetDefaultRegistry)
	task.ResetDefaultRegistry()

	cfg := testConfig(t, "")
	task.NewGroup(cfg)

	if got := len(task.Default().All()); got != 0 {
		t.Errorf("registry holds %d tasks after creating a group, want 0", got)
	}
}

func TestGroup_AlwaysEnabled(t *testing.T) {
	// a blanket-disable override must not disable the group itself
	cfg := testConfig(t, "tasks:\n  - pattern: \"*\"\n    enabled: false\n")

	group := task.NewGroup(cfg)
	if !group.Enabled() {
		t.Error("group reports disabled")
	}
}

func TestGroup_JoinWithoutRunIsNoOp(t *testing.T) {
	cfg := testConfig(t, "")
	group := task.NewGroup(cfg)
	group.Join()
}

func TestGroup_FailingChildDoesNotStopSiblings(t *testing.T) {
	cfg := testConfig(t, "")

	var ran atomic.Int32
	group := task.NewGroup(cfg)

	group.AddTask(task.NewUnregistered(cfg, task.Hooks{
		Fetch: func(cx *task.Context) error {
			return errTestFailure
		},
	}, "bad-child"))

	for i := 0; i < 3; i++ {
		group.AddTask(task.NewUnregistered(cfg, task.Hooks{
			Fetch: func(cx *task.Context) error {
				ran.Add(1)
				return nil
			},
		}, "good-child"))
	}

	if err := group.Run(); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if got := ran.Load(); got != 3 {
		t.Errorf("%d of 3 siblings ran after one child failed", got)
	}
}
