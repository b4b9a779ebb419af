package cmd

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/spf13/cobra"
)

var languagesCheck bool

var languagesCmd = &cobra.Command{
	Use:     "languages",
	Aliases: []string{"langs"},
	Short:   "List available language definitions",
	Long: `List the languages novic can highlight: the built-in definitions plus
those found in syntax.definitions_dir. With --check, report definition files
that failed to load and exit non-zero if there are any.`,
	Args: cobra.NoArgs,
	RunE: runLanguages,
}

func init() {
	languagesCmd.Flags().BoolVar(&languagesCheck, "check", false, "report broken definition files")
	rootCmd.AddCommand(languagesCmd)
}

var headerStyle = lipgloss.NewStyle().Bold(true).Padding(0, 1)
var cellStyle = lipgloss.NewStyle().Padding(0, 1)

func runLanguages(cmd *cobra.Command, _ []string) error {
	cleanup, err := startLogging("languages", false)
	if err != nil {
		return err
	}
	defer cleanup()

	a, err := newApp(cfg)
	if err != nil {
		return err
	}
	defer a.close()

	out := cmd.OutOrStdout()

	t := table.New().
		Border(lipgloss.NormalBorder()).
		Headers("NAME", "EXTENSIONS", "SOURCE").
		StyleFunc(func(row, _ int) lipgloss.Style {
			if row == table.HeaderRow {
				return headerStyle
			}
			return cellStyle
		})
	for _, l := range a.registry.Languages() {
		exts := make([]string, len(l.Extensions))
		for i, e := range l.Extensions {
			exts[i] = "." + e
		}
		t.Row(l.Name, strings.Join(exts, " "), l.Source)
	}
	fmt.Fprintln(out, t.Render())

	if !languagesCheck {
		return nil
	}
	if len(a.report.Skipped) == 0 {
		fmt.Fprintln(out, "all definitions loaded")
		return nil
	}
	for _, s := range a.report.Skipped {
		fmt.Fprintf(out, "%s: %v\n", s.Path, s.Err)
	}
	return fmt.Errorf("%d definition file(s) failed to load", len(a.report.Skipped))
}
