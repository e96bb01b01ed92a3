package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/Qudix/mob/internal/config"
	"github.com/Qudix/mob/internal/deps"
	"github.com/Qudix/mob/internal/task"
)

var listFlags struct {
	configPath string
}

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List the tasks defined in mob.yaml",
	RunE:  listTasks,
}

func init() {
	listCmd.Flags().StringVar(&listFlags.configPath, "config", "mob.yaml", "configuration file")
}

func listTasks(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(listFlags.configPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	deps.Tasks(cfg)

	for _, t := range task.Default().All() {
		names := t.Names()

		line := names[0]
		if len(names) > 1 {
			line += " (" + strings.Join(names[1:], ", ") + ")"
		}
		if !t.Enabled() {
			line += " [disabled]"
		}

		fmt.Println(line)
	}

	return nil
}
