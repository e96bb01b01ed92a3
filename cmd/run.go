package cmd

import (
	"errors"
	"fmt"
	"os"
	"os/signal"

	"github.com/spf13/cobra"

	"github.com/Qudix/mob/internal/config"
	"github.com/Qudix/mob/internal/deps"
	"github.com/Qudix/mob/internal/log"
	"github.com/Qudix/mob/internal/metrics"
	"github.com/Qudix/mob/internal/task"
	"github.com/Qudix/mob/internal/tool"
)

// patchesDir is where per-task patch sets live, relative to the working
// directory.
const patchesDir = "patches"

// runFlags holds CLI flag values that override mob.yaml settings. Only flags
// explicitly changed by the user are applied (checked via
// cmd.Flags().Changed).
var runFlags struct {
	configPath string
	logLevel   string

	noClean bool
	noFetch bool
	noBuild bool

	redownload  bool
	reextract   bool
	reconfigure bool
	rebuild     bool

	noPull   bool
	parallel bool
}

var runCmd = &cobra.Command{
	Use:   "run [task...]",
	Short: "Run tasks through their clean, fetch and build phases",
	Long: "Run the given tasks (or all tasks when none are named) through " +
		"clean, fetch and build. Task selectors match names and aliases, " +
		"case-insensitively with '-' and '_' interchangeable; a selector " +
		"containing '*' is a glob.",
	RunE: runTasks,
}

func init() {
	f := runCmd.Flags()
	f.StringVar(&runFlags.configPath, "config", "mob.yaml", "configuration file")
	f.StringVar(&runFlags.logLevel, "log-level", "", "override log_level from mob.yaml")

	f.BoolVar(&runFlags.noClean, "no-clean", false, "skip the clean phase")
	f.BoolVar(&runFlags.noFetch, "no-fetch", false, "skip the fetch phase")
	f.BoolVar(&runFlags.noBuild, "no-build", false, "skip the build phase")

	f.BoolVar(&runFlags.redownload, "redownload", false, "delete downloads and fetch from scratch")
	f.BoolVar(&runFlags.reextract, "reextract", false, "delete extracted sources and start over")
	f.BoolVar(&runFlags.reconfigure, "reconfigure", false, "force reconfiguration")
	f.BoolVar(&runFlags.rebuild, "rebuild", false, "force a rebuild")

	f.BoolVar(&runFlags.noPull, "no-pull", false, "clone only, never pull existing checkouts")
	f.BoolVarP(&runFlags.parallel, "parallel", "p", false, "run selected tasks concurrently")
}

func runTasks(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(runFlags.configPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	// Apply CLI flag overrides — only when the user explicitly set the flag.
	if cmd.Flags().Changed("log-level") {
		cfg.Globals.LogLevel = runFlags.logLevel
	}
	if cmd.Flags().Changed("no-clean") {
		cfg.Globals.Clean = !runFlags.noClean
	}
	if cmd.Flags().Changed("no-fetch") {
		cfg.Globals.Fetch = !runFlags.noFetch
	}
	if cmd.Flags().Changed("no-build") {
		cfg.Globals.Build = !runFlags.noBuild
	}
	if cmd.Flags().Changed("redownload") {
		cfg.Globals.Redownload = runFlags.redownload
	}
	if cmd.Flags().Changed("reextract") {
		cfg.Globals.Reextract = runFlags.reextract
	}
	if cmd.Flags().Changed("reconfigure") {
		cfg.Globals.Reconfigure = runFlags.reconfigure
	}
	if cmd.Flags().Changed("rebuild") {
		cfg.Globals.Rebuild = runFlags.rebuild
	}
	if cmd.Flags().Changed("no-pull") {
		cfg.Defaults.NoPull = runFlags.noPull
	}

	log.SetLevel(log.ParseLevel(cfg.Globals.LogLevel))

	// Wire the patch-application collaborator before any task runs.
	task.Patcher = func(taskName string, prebuilt bool, root string) task.Tool {
		return tool.NewPatcher(patchesDir, taskName, prebuilt, root)
	}

	if len(cfg.Sources) == 0 {
		log.Warning("no sources defined in " + runFlags.configPath + " — nothing to do")
		return nil
	}
	deps.Tasks(cfg)

	selected, err := selectTasks(args)
	if err != nil {
		if errors.Is(err, task.ErrBailed) {
			// a malformed selector is fatal to the whole run
			task.Default().InterruptAll()
		}
		return err
	}

	// Ctrl-C broadcasts a cooperative interrupt; tasks stop at their next
	// checkpoint and running tools are cancelled.
	sigc := make(chan os.Signal, 1)
	signal.Notify(sigc, os.Interrupt)
	defer signal.Stop(sigc)
	go func() {
		for range sigc {
			log.Warning("interrupt received, stopping tasks")
			task.Default().InterruptAll()
		}
	}()

	failed := 0

	if runFlags.parallel {
		log.Section(fmt.Sprintf("running %d task(s) in parallel", len(selected)))

		group := task.NewGroup(cfg)
		for _, t := range selected {
			group.AddTask(t)
		}
		group.Run()
	} else {
		for _, t := range selected {
			log.Section("task " + t.Name())

			err := t.Run()
			switch {
			case err == nil:

			case errors.Is(err, task.ErrInterrupted):
				metrics.PrintSummary()
				return nil

			case errors.Is(err, task.ErrBailed):
				log.Error(fmt.Sprintf("%s bailed out, interrupting all tasks", t.Name()))
				task.Default().InterruptAll()
				return err

			default:
				log.Error(fmt.Sprintf("task %s: %v", t.Name(), err))
				failed++
			}
		}
	}

	metrics.PrintSummary()

	if failed > 0 {
		return fmt.Errorf("%d task(s) failed", failed)
	}
	return nil
}

// selectTasks expands the user's selectors against the registry, preserving
// registration order and dropping duplicates. No selectors means every
// registered task. A selector matching nothing is an error; a malformed glob
// propagates as ErrBailed.
func selectTasks(patterns []string) ([]*task.Task, error) {
	if len(patterns) == 0 {
		return task.Default().All(), nil
	}

	seen := make(map[*task.Task]bool)
	var out []*task.Task

	for _, pattern := range patterns {
		matches, err := task.Default().Find(pattern)
		if err != nil {
			return nil, err
		}
		if len(matches) == 0 {
			return nil, fmt.Errorf("no task matches %q", pattern)
		}

		for _, t := range matches {
			if !seen[t] {
				seen[t] = true
				out = append(out, t)
			}
		}
	}

	return out, nil
}
