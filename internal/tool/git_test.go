package tool_test

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/Qudix/mob/internal/config"
	"github.com/Qudix/mob/internal/task"
	"github.com/Qudix/mob/internal/tool"
)

// testContext returns an execution context to hand to tools under test.
func testContext(t *testing.T) *task.Context {
	t.Helper()
	cfg, err := config.Load(filepath.Join(t.TempDir(), "mob.yaml"))
	if err != nil {
		t.Fatalf("load config: %v", err)
	}
	return task.New(cfg, task.Hooks{}, "test-task").Cx()
}

// recorder captures every git invocation a tool attempts.
type recorder struct {
	mu    sync.Mutex
	calls [][]string
	dirs  []string
	err   error
}

func (r *recorder) exec(cx *task.Context, p *tool.Process) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls = append(r.calls, p.Argv())
	r.dirs = append(r.dirs, p.WorkDir())
	return r.err
}

// subcommands returns the first git argument of each recorded call.
func (r *recorder) subcommands() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []string
	for _, c := range r.calls {
		out = append(out, c[1])
	}
	return out
}

func newGit(t *testing.T, globals config.Globals, op tool.GitOp, rec *recorder) *tool.Git {
	t.Helper()
	g := tool.NewGit(globals, op)
	g.SetExec(rec.exec)
	return g
}

func TestGit_MissingParametersIsFatal(t *testing.T) {
	cx := testContext(t)

	tests := []struct {
		name string
		g    *tool.Git
	}{
		{"no url", tool.NewGit(config.Globals{}, tool.GitClone).Dest(t.TempDir()).Branch("main")},
		{"no dest", tool.NewGit(config.Globals{}, tool.GitClone).URL("https://example/repo.git").Branch("main")},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			err := tc.g.Run(cx)
			if err == nil || !strings.Contains(err.Error(), "missing parameters") {
				t.Errorf("Run = %v, want missing-parameters error", err)
			}
		})
	}
}

func TestGit_CloneArgs(t *testing.T) {
	cx := testContext(t)
	dest := filepath.Join(t.TempDir(), "repo")

	var rec recorder
	g := newGit(t, config.Globals{}, tool.GitClone, &rec).
		URL("https://example/repo.git").
		Branch("main").
		Dest(dest)

	if err := g.Run(cx); err != nil {
		t.Fatalf("Run: %v", err)
	}

	if len(rec.calls) != 1 {
		t.Fatalf("recorded %d calls, want 1 clone", len(rec.calls))
	}

	args := strings.Join(rec.calls[0], " ")
	for _, want := range []string{
		"clone", "--recurse-submodules", "--depth 1", "--branch main",
		"--quiet", "advice.detachedHead=false", "https://example/repo.git", dest,
	} {
		if !strings.Contains(args, want) {
			t.Errorf("clone args %q missing %q", args, want)
		}
	}
}

func TestGit_CloneWithoutShallow(t *testing.T) {
	cx := testContext(t)

	var rec recorder
	tc := config.TaskConf{Enabled: true, GitShallow: false, GitURLPrefix: "https://example/"}
	g := tool.FromConf(config.Globals{}, tc).
		URL("https://example/org/repo.git").
		Branch("main").
		Dest(filepath.Join(t.TempDir(), "repo"))
	g.SetExec(rec.exec)

	if err := g.Run(cx); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if args := strings.Join(rec.calls[0], " "); strings.Contains(args, "--depth") {
		t.Errorf("non-shallow clone used --depth: %q", args)
	}
}

func TestGit_PullArgsAndWorkDir(t *testing.T) {
	cx := testContext(t)
	dest := t.TempDir()

	var rec recorder
	g := newGit(t, config.Globals{}, tool.GitPull, &rec).
		URL("https://example/repo.git").
		Branch("main").
		Dest(dest)

	if err := g.Run(cx); err != nil {
		t.Fatalf("Run: %v", err)
	}

	if got := rec.subcommands(); len(got) != 1 || got[0] != "pull" {
		t.Fatalf("subcommands = %v, want [pull]", got)
	}
	if rec.dirs[0] != dest {
		t.Errorf("pull ran in %q, want destination %q", rec.dirs[0], dest)
	}

	args := strings.Join(rec.calls[0], " ")
	for _, want := range []string{"--recurse-submodules", "https://example/repo.git", "main"} {
		if !strings.Contains(args, want) {
			t.Errorf("pull args %q missing %q", args, want)
		}
	}
}

func TestGit_CloneOrPull_EmptyDestinationClones(t *testing.T) {
	cx := testContext(t)
	dest := filepath.Join(t.TempDir(), "repo")
	if err := os.MkdirAll(dest, 0755); err != nil {
		t.Fatal(err)
	}

	var rec recorder
	g := newGit(t, config.Globals{}, tool.GitCloneOrPull, &rec).
		URL("https://example/repo.git").
		Branch("main").
		Dest(dest)

	if err := g.Run(cx); err != nil {
		t.Fatalf("Run: %v", err)
	}

	got := rec.subcommands()
	if len(got) != 1 || got[0] != "clone" {
		t.Errorf("subcommands = %v, want exactly one clone and no pull", got)
	}
}

func TestGit_CloneOrPull_MarkerPresentPulls(t *testing.T) {
	cx := testContext(t)
	dest := filepath.Join(t.TempDir(), "repo")
	if err := os.MkdirAll(filepath.Join(dest, ".git"), 0755); err != nil {
		t.Fatal(err)
	}

	var rec recorder
	g := newGit(t, config.Globals{}, tool.GitCloneOrPull, &rec).
		URL("https://example/repo.git").
		Branch("main").
		Dest(dest)

	if err := g.Run(cx); err != nil {
		t.Fatalf("Run: %v", err)
	}

	got := rec.subcommands()
	if len(got) != 1 || got[0] != "pull" {
		t.Errorf("subcommands = %v, want exactly one pull and no clone", got)
	}
}

func TestGit_PlainCloneSkipsExistingCheckout(t *testing.T) {
	cx := testContext(t)
	dest := filepath.Join(t.TempDir(), "repo")
	if err := os.MkdirAll(filepath.Join(dest, ".git"), 0755); err != nil {
		t.Fatal(err)
	}

	var rec recorder
	g := newGit(t, config.Globals{}, tool.GitClone, &rec).
		URL("https://example/repo.git").
		Branch("main").
		Dest(dest)

	// cloning over an existing checkout must never happen
	if err := g.Run(cx); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if len(rec.calls) != 0 {
		t.Errorf("recorded %d calls, want 0", len(rec.calls))
	}
}

func TestGit_RedownloadDeletesDestination(t *testing.T) {
	cx := testContext(t)
	dest := filepath.Join(t.TempDir(), "repo")
	if err := os.MkdirAll(filepath.Join(dest, ".git"), 0755); err != nil {
		t.Fatal(err)
	}

	var rec recorder
	g := newGit(t, config.Globals{Redownload: true}, tool.GitCloneOrPull, &rec).
		URL("https://example/repo.git").
		Branch("main").
		Dest(dest)

	if err := g.Run(cx); err != nil {
		t.Fatalf("Run: %v", err)
	}

	if _, err := os.Stat(dest); !os.IsNotExist(err) {
		t.Error("destination survived the forced redownload")
	}
	// with the marker gone, the operation becomes a clone
	if got := rec.subcommands(); len(got) != 1 || got[0] != "clone" {
		t.Errorf("subcommands = %v, want [clone]", got)
	}
}

func TestGit_FromConfNoPullForcesCloneOnly(t *testing.T) {
	cx := testContext(t)
	dest := filepath.Join(t.TempDir(), "repo")
	if err := os.MkdirAll(filepath.Join(dest, ".git"), 0755); err != nil {
		t.Fatal(err)
	}

	var rec recorder
	tc := config.TaskConf{Enabled: true, NoPull: true, GitShallow: true}
	g := tool.FromConf(config.Globals{}, tc).
		URL("https://example/repo.git").
		Branch("main").
		Dest(dest)
	g.SetExec(rec.exec)

	// existing checkout + clone-only mode: nothing runs, no pull fallback
	if err := g.Run(cx); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if len(rec.calls) != 0 {
		t.Errorf("recorded %d calls, want 0", len(rec.calls))
	}
}

func TestGit_CredentialsConfiguredAfterClone(t *testing.T) {
	cx := testContext(t)

	var rec recorder
	tc := config.TaskConf{
		Enabled: true, GitShallow: true,
		GitUser: "builder", GitEmail: "builder@example.com",
	}
	g := tool.FromConf(config.Globals{}, tc).
		URL("https://example/repo.git").
		Branch("main").
		Dest(filepath.Join(t.TempDir(), "repo"))
	g.SetExec(rec.exec)

	if err := g.Run(cx); err != nil {
		t.Fatalf("Run: %v", err)
	}

	got := rec.subcommands()
	want := []string{"clone", "config", "config"}
	if strings.Join(got, ",") != strings.Join(want, ",") {
		t.Errorf("subcommands = %v, want %v", got, want)
	}
}

func TestGit_OriginRemoteSetup(t *testing.T) {
	cx := testContext(t)

	var rec recorder
	tc := config.TaskConf{
		Enabled: true, GitShallow: true,
		SetOriginRemote: true, RemoteOrg: "myorg",
		RemoteNoPushUpstream: true, RemotePushDefaultOrigin: true,
	}
	g := tool.FromConf(config.Globals{}, tc).
		URL("https://example/upstream/repo.git").
		Branch("main").
		Dest(filepath.Join(t.TempDir(), "repo"))
	g.SetExec(rec.exec)

	if err := g.Run(cx); err != nil {
		t.Fatalf("Run: %v", err)
	}

	joined := ""
	for _, c := range rec.calls {
		joined += strings.Join(c, " ") + "\n"
	}

	for _, want := range []string{
		"remote rename origin upstream",
		"remote add origin git@github.com:myorg/repo.git",
		"remote set-url --push upstream nopushurl",
		"config remote.pushdefault origin",
	} {
		if !strings.Contains(joined, want) {
			t.Errorf("remote setup calls missing %q:\n%s", want, joined)
		}
	}
}

func TestGitURL(t *testing.T) {
	tc := config.TaskConf{GitURLPrefix: "https://github.com/"}
	got := tool.GitURL(tc, "boost-ext", "di")
	if got != "https://github.com/boost-ext/di.git" {
		t.Errorf("GitURL = %q", got)
	}
}

func TestGit_InterruptStopsFurtherSteps(t *testing.T) {
	cx := testContext(t)

	var rec recorder
	g := newGit(t, config.Globals{}, tool.GitClone, &rec).
		URL("https://example/repo.git").
		Branch("main").
		Dest(filepath.Join(t.TempDir(), "repo"))

	g.Interrupt()

	err := g.Run(cx)
	if !errors.Is(err, task.ErrInterrupted) {
		t.Fatalf("Run on interrupted tool = %v, want ErrInterrupted", err)
	}
	if len(rec.calls) != 0 {
		t.Errorf("interrupted tool still ran %d commands", len(rec.calls))
	}
}
