package tool

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/Qudix/mob/internal/config"
	"github.com/Qudix/mob/internal/log"
	"github.com/Qudix/mob/internal/task"
)

// GitOp selects what the git tool does with its destination.
type GitOp int

const (
	// GitClone unconditionally checks the repository out into the
	// destination.
	GitClone GitOp = iota + 1

	// GitPull unconditionally updates an existing checkout.
	GitPull

	// GitCloneOrPull clones when no checkout exists yet and pulls
	// otherwise. This is the default for task fetching.
	GitCloneOrPull
)

// markerDir is the reserved metadata entry whose presence inside the
// destination is the sole signal that a checkout already exists.
const markerDir = ".git"

// Git materializes or updates a source checkout. It wraps one or more git
// invocations as a single interruptible tool; the operation mode is fixed at
// construction.
type Git struct {
	globals config.Globals
	op      GitOp

	url    string
	branch string
	dest   string

	shallow bool
	user    string
	email   string

	setOriginRemote   bool
	remoteOrg         string
	remoteKey         string
	noPushUpstream    bool
	pushDefaultOrigin bool

	mu          sync.Mutex
	current     *Process
	interrupted bool

	// swapped by tests to record invocations without running git
	exec func(cx *task.Context, p *Process) error
}

// NewGit creates a git tool with the given operation mode. URL, branch and
// destination are set with the chained setters; URL and destination are
// required.
func NewGit(globals config.Globals, op GitOp) *Git {
	g := &Git{globals: globals, op: op, shallow: true}
	g.exec = func(cx *task.Context, p *Process) error { return p.Run(cx) }
	return g
}

// FromConf builds a git tool from task-scoped configuration: clone-or-pull
// normally, clone only when no_pull is set, with shallow-clone preference,
// credentials and remote settings wired through.
func FromConf(globals config.Globals, tc config.TaskConf) *Git {
	// always either clone or pull depending on whether the repo is already
	// there, unless no_pull is given
	op := GitCloneOrPull
	if tc.NoPull {
		op = GitClone
	}

	g := NewGit(globals, op)
	g.shallow = tc.GitShallow
	g.user = tc.GitUser
	g.email = tc.GitEmail

	if tc.SetOriginRemote {
		g.setOriginRemote = true
		g.remoteOrg = tc.RemoteOrg
		g.remoteKey = tc.RemoteKey
		g.noPushUpstream = tc.RemoteNoPushUpstream
		g.pushDefaultOrigin = tc.RemotePushDefaultOrigin
	}

	return g
}

// GitURL builds the checkout URL for org/repo from the task-scoped URL
// prefix.
func GitURL(tc config.TaskConf, org, repo string) string {
	return tc.GitURLPrefix + org + "/" + repo + ".git"
}

// URL sets the source URL.
func (g *Git) URL(u string) *Git {
	g.url = u
	return g
}

// Branch sets the ref to check out or validate on pull.
func (g *Git) Branch(name string) *Git {
	g.branch = name
	return g
}

// Dest sets the destination path.
func (g *Git) Dest(dir string) *Git {
	g.dest = dir
	return g
}

// Name returns the diagnostic label.
func (g *Git) Name() string {
	return "git"
}

// Interrupt cancels the git invocation currently in flight, if any, and
// prevents further ones from starting.
func (g *Git) Interrupt() {
	g.mu.Lock()
	defer g.mu.Unlock()

	g.interrupted = true
	if g.current != nil {
		g.current.Interrupt()
	}
}

// Run validates parameters, applies the forced-redownload pre-step, then
// executes the configured operation. A missing URL or destination is a
// configuration error fatal to this invocation.
func (g *Git) Run(cx *task.Context) error {
	if g.url == "" || g.dest == "" {
		return fmt.Errorf("git missing parameters (url=%q dest=%q)", g.url, g.dest)
	}

	if g.globals.Redownload || g.globals.Reextract {
		cx.Trace("deleting directory controlled by git")
		// absence is not an error; this forces a clean checkout
		if err := os.RemoveAll(g.dest); err != nil {
			return fmt.Errorf("delete %s: %w", g.dest, err)
		}
	}

	switch g.op {
	case GitClone:
		_, err := g.doClone(cx)
		return err

	case GitPull:
		return g.doPull(cx)

	case GitCloneOrPull:
		cloned, err := g.doClone(cx)
		if err != nil {
			return err
		}
		if !cloned {
			return g.doPull(cx)
		}
		return nil

	default:
		return fmt.Errorf("git unknown op %d", g.op)
	}
}

// doClone checks the repository out into the destination. It reports false
// without running anything when the destination already holds a checkout,
// which is what lets clone-or-pull fall back to pull; it must never clone
// over an existing checkout.
func (g *Git) doClone(cx *task.Context) (bool, error) {
	marker := filepath.Join(g.dest, markerDir)
	if _, err := os.Stat(marker); err == nil {
		cx.Trace("not cloning, %s exists", marker)
		return false, nil
	}

	args := []Arg{
		A("clone"),
		A("--recurse-submodules"),
	}
	if g.shallow {
		args = append(args, A("--depth"), A("1"))
	}
	if g.branch != "" {
		args = append(args, A("--branch"), A(g.branch))
	}
	args = append(args,
		Quiet("--quiet"),
		Quiet("-c"), Quiet("advice.detachedHead=false"),
		A(g.url),
		A(g.dest),
	)

	p := NewProcess("git", "git", args...).StderrLevel(log.LevelTrace)
	if err := g.runProc(cx, p); err != nil {
		return false, err
	}

	if err := g.configureCheckout(cx); err != nil {
		return false, err
	}

	return true, nil
}

// doPull updates the existing checkout. URL and branch select and validate
// the intended upstream.
func (g *Git) doPull(cx *task.Context) error {
	args := []Arg{
		A("pull"),
		A("--recurse-submodules"),
		Quiet("--quiet"),
		A(g.url),
	}
	if g.branch != "" {
		args = append(args, A(g.branch))
	}

	p := NewProcess("git", "git", args...).Dir(g.dest).StderrLevel(log.LevelTrace)
	return g.runProc(cx, p)
}

// configureCheckout applies credentials and remote-tracking settings to a
// fresh clone.
func (g *Git) configureCheckout(cx *task.Context) error {
	if g.user != "" {
		p := NewProcess("git", "git", A("config"), A("user.name"), Quiet(g.user)).Dir(g.dest)
		if err := g.runProc(cx, p); err != nil {
			return err
		}
	}

	if g.email != "" {
		p := NewProcess("git", "git", A("config"), A("user.email"), Quiet(g.email)).Dir(g.dest)
		if err := g.runProc(cx, p); err != nil {
			return err
		}
	}

	if !g.setOriginRemote {
		return nil
	}

	cx.Debug("setting up origin remote for %s", g.remoteOrg)

	steps := [][]Arg{
		{A("remote"), A("rename"), A("origin"), A("upstream")},
		{A("remote"), A("add"), A("origin"), Quiet(g.pushURL())},
	}
	if g.noPushUpstream {
		steps = append(steps, []Arg{
			A("remote"), A("set-url"), A("--push"), A("upstream"), A("nopushurl"),
		})
	}
	if g.pushDefaultOrigin {
		steps = append(steps, []Arg{
			A("config"), A("remote.pushdefault"), A("origin"),
		})
	}

	for _, s := range steps {
		p := NewProcess("git", "git", s...).Dir(g.dest)
		if err := g.runProc(cx, p); err != nil {
			return err
		}
	}

	return nil
}

// pushURL derives the push remote for the configured org from the clone
// URL's repository name, using SSH key syntax when a key is configured.
func (g *Git) pushURL() string {
	repo := strings.TrimSuffix(filepath.Base(g.url), ".git")

	if g.remoteKey != "" {
		return fmt.Sprintf("git@%s:%s/%s.git", g.remoteKey, g.remoteOrg, repo)
	}
	return fmt.Sprintf("git@github.com:%s/%s.git", g.remoteOrg, repo)
}

// runProc runs p through the executor, keeping it reachable by Interrupt
// for the duration.
func (g *Git) runProc(cx *task.Context, p *Process) error {
	g.mu.Lock()
	if g.interrupted {
		g.mu.Unlock()
		return task.ErrInterrupted
	}
	g.current = p
	g.mu.Unlock()

	defer func() {
		g.mu.Lock()
		g.current = nil
		g.mu.Unlock()
	}()

	return g.exec(cx, p)
}
