package cmd

import (
	"github.com/spf13/cobra"

	"github.com/zjrosen/devscripts/internal/console"
)

var consoleCmd = &cobra.Command{
	Use:   "console",
	Short: "Open an interactive shell for triggering scripts",
	Long: `Open an interactive shell connected to the dispatch server.

Inside the shell:
  run <name> [args...]   trigger a script (alias: r)
  help                   list commands
  clear                  clear the screen
  quit                   leave (alias: exit)`,
	Args: cobra.NoArgs,
	RunE: runConsole,
}

func init() {
	rootCmd.AddCommand(consoleCmd)
}

func runConsole(cmd *cobra.Command, _ []string) error {
	cleanupLog, err := setupLogging(false)
	if err != nil {
		return err
	}
	defer cleanupLog()

	provider, flush, err := setupTracing()
	if err != nil {
		return err
	}
	defer flush()

	return console.Run(cmd.Context(), newTriggerClient(provider.Tracer()))
}
