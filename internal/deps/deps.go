// Package deps turns the source definitions in mob.yaml into concrete tasks.
// Each definition becomes a checkout task: fetch clones or pulls the
// repository, clean deletes the checkout when a redownload is forced, and an
// optional command list builds it. Anything more elaborate belongs in its
// own task type.
package deps

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/Qudix/mob/internal/config"
	"github.com/Qudix/mob/internal/metrics"
	"github.com/Qudix/mob/internal/task"
	"github.com/Qudix/mob/internal/tool"
)

// Tasks constructs and registers one task per source definition, in
// declaration order.
func Tasks(cfg *config.Config) []*task.Task {
	out := make([]*task.Task, 0, len(cfg.Sources))
	for _, def := range cfg.Sources {
		out = append(out, newSourceTask(cfg, def))
	}
	return out
}

func newSourceTask(cfg *config.Config, def config.SourceDef) *task.Task {
	aliases := append([]string{def.Name}, def.Aliases...)

	dest := def.Dest
	if dest == "" {
		dest = filepath.Join(cfg.Globals.BuildDir, def.Name)
	}

	// t is captured by the hooks; New returns before any of them can run
	var t *task.Task

	hooks := task.Hooks{
		SourcePath: func() string { return dest },

		Clean: func(cx *task.Context, flags task.CleanFlags) error {
			return metrics.Instrument(def.Name, metrics.PhaseClean, func() error {
				if !flags.Has(task.CleanRedownload) && !flags.Has(task.CleanReextract) {
					return nil
				}
				cx.Debug("deleting %s", dest)
				return os.RemoveAll(dest)
			})
		},

		Fetch: func(cx *task.Context) error {
			return metrics.Instrument(def.Name, metrics.PhaseFetch, func() error {
				tc := cfg.Task(aliases)

				url := def.URL
				if url == "" {
					url = tool.GitURL(tc, def.Org, def.Repo)
				}

				g := tool.FromConf(cfg.Globals, tc).
					URL(url).
					Branch(def.Branch).
					Dest(dest)

				return t.RunTool(g)
			})
		},

		BuildAndInstall: func(cx *task.Context) error {
			return metrics.Instrument(def.Name, metrics.PhaseBuild, func() error {
				return runBuildCommands(t, def, dest)
			})
		},
	}

	t = task.New(cfg, hooks, aliases...)
	return t
}

// runBuildCommands runs each configured build command inside the checkout,
// as its own interruptible tool. Commands are split on whitespace; they are
// argv lists, not shell lines.
func runBuildCommands(t *task.Task, def config.SourceDef, dest string) error {
	for _, line := range def.Build {
		argv := strings.Fields(line)
		if len(argv) == 0 {
			continue
		}

		args := make([]tool.Arg, 0, len(argv)-1)
		for _, a := range argv[1:] {
			args = append(args, tool.A(a))
		}

		p := tool.NewProcess(argv[0], argv[0], args...).Dir(dest)
		if err := t.RunTool(p); err != nil {
			return fmt.Errorf("build command %q: %w", line, err)
		}
	}

	return nil
}
