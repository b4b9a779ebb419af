package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/zjrosen/novic/internal/config"
	"github.com/zjrosen/novic/internal/syntax"
)

var themeCmd = &cobra.Command{
	Use:   "theme [NAME]",
	Short: "List fallback color styles or select one",
	Long: `Without arguments, list the chroma styles usable as syntax.theme and mark
the current one. With NAME, save it as syntax.theme in the config file.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runTheme,
}

func init() {
	rootCmd.AddCommand(themeCmd)
}

func runTheme(cmd *cobra.Command, args []string) error {
	out := cmd.OutOrStdout()

	if len(args) == 0 {
		for _, name := range syntax.ThemeNames() {
			marker := "  "
			if name == cfg.Syntax.Theme {
				marker = "* "
			}
			fmt.Fprintln(out, marker+name)
		}
		return nil
	}

	name := args[0]
	if !syntax.ValidTheme(name) {
		return fmt.Errorf("unknown theme %q (run `novic theme` to list styles)", name)
	}
	path := configPath()
	if err := config.SaveTheme(path, name); err != nil {
		return fmt.Errorf("saving theme: %w", err)
	}
	cfg.Syntax.Theme = name
	fmt.Fprintf(out, "theme set to %s in %s\n", name, path)
	return nil
}
