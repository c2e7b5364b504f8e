package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

var runCmd = &cobra.Command{
	Use:     "run <name> [args...]",
	Aliases: []string{"r"},
	Short:   "Trigger a script on the running dispatch server",
	Long: `Trigger a script on the running dispatch server and wait for it to finish.

Arguments after the script name are passed to the script in order. Use "--"
before arguments that start with a dash.

Example:
  devscripts run backup full 2024
  devscripts r reindex -- --dry-run`,
	Args: cobra.ArbitraryArgs,
	RunE: runRun,
}

func init() {
	rootCmd.AddCommand(runCmd)
}

func runRun(cmd *cobra.Command, args []string) error {
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

	client := newTriggerClient(provider.Tracer())
	outcome := client.Trigger(cmd.Context(), args)

	fmt.Fprintln(cmd.OutOrStdout(), outcome.Message)
	if !outcome.OK {
		return &exitError{code: 1}
	}
	return nil
}
