package cmd

import (
	"fmt"
	"os"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/zjrosen/devscripts/internal/config"
	"github.com/zjrosen/devscripts/internal/flags"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage the devscripts configuration file",
}

var configInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Write a commented default configuration file",
	Args:  cobra.NoArgs,
	RunE:  runConfigInit,
}

var configSetFlagCmd = &cobra.Command{
	Use:   "set-flag <name> <true|false>",
	Short: "Enable or disable a feature flag",
	Long: `Enable or disable a feature flag in the configuration file.
Comments and other settings in the file are preserved.

Known flags:
  serialize-runs   run concurrent dispatches of the same script one at a time
  compact-traces   omit file and line from failure traces`,
	Args: cobra.ExactArgs(2),
	RunE: runConfigSetFlag,
}

var configInitForce bool

func init() {
	rootCmd.AddCommand(configCmd)
	configCmd.AddCommand(configInitCmd, configSetFlagCmd)

	configInitCmd.Flags().BoolVarP(&configInitForce, "force", "f", false, "overwrite an existing file")
}

func runConfigInit(cmd *cobra.Command, _ []string) error {
	path := cfgFile
	if path == "" {
		path = localConfigPath
	}
	if _, err := os.Stat(path); err == nil && !configInitForce {
		return fmt.Errorf("config file %s already exists (use --force to overwrite)", path)
	}
	if err := config.WriteDefaultConfig(path); err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Wrote %s\n", path)
	return nil
}

func runConfigSetFlag(cmd *cobra.Command, args []string) error {
	name := args[0]
	if !flags.IsKnown(name) {
		return fmt.Errorf("unknown flag %q (known: %v)", name, flags.Known())
	}
	enabled, err := strconv.ParseBool(args[1])
	if err != nil {
		return fmt.Errorf("flag value must be true or false, got %q", args[1])
	}

	path := configPath()
	if err := config.SaveFlag(path, name, enabled); err != nil {
		return fmt.Errorf("saving flag: %w", err)
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Set %s=%t in %s\n", name, enabled, path)
	return nil
}
