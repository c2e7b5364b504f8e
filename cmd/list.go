package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/zjrosen/devscripts/internal/luascript"
	"github.com/zjrosen/devscripts/internal/script"
)

var listCmd = &cobra.Command{
	Use:     "list",
	Aliases: []string{"ls"},
	Short:   "List the scripts serve would discover",
	Long: `List the Lua scripts discovered from scripts.dir, the same way serve does
on every request. Name collisions are reported as errors.`,
	Args: cobra.NoArgs,
	RunE: runList,
}

var listDir string

func init() {
	rootCmd.AddCommand(listCmd)

	listCmd.Flags().StringVar(&listDir, "dir", "", "Lua script directory (overrides scripts.dir)")
}

func runList(cmd *cobra.Command, _ []string) error {
	dir := listDir
	if dir == "" {
		dir = cfg.Scripts.Dir
	}

	discovered, err := luascript.NewProvider(dir).Scripts(cmd.Context())
	if err != nil {
		return err
	}
	registry, err := script.Resolve(discovered)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if registry.Len() == 0 {
		fmt.Fprintf(out, "No scripts found in %s\n", dir)
		return nil
	}
	for _, name := range registry.Names() {
		s, _ := registry.Lookup(name)
		origin := ""
		if o, ok := s.(script.Originator); ok {
			origin = o.Origin()
		}
		fmt.Fprintf(out, "%-24s %s\n", name, origin)
	}
	return nil
}
