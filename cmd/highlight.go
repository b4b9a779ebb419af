package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/zjrosen/novic/internal/highlight"
	"github.com/zjrosen/novic/internal/log"
	"github.com/zjrosen/novic/internal/render"
)

var (
	highlightLang  string
	highlightColor string
)

var highlightCmd = &cobra.Command{
	Use:   "highlight FILE",
	Short: "Print a file with syntax highlighting",
	Long: `Print FILE to stdout with its language's highlighting applied.

The language is picked from the file extension, falling back to content
detection when the content-detection flag is on. Files above
highlight.max_document_size are printed without color.`,
	Example: `  novic highlight main.go
  novic highlight --lang python script
  novic highlight --color always main.go | less -R`,
	Args: cobra.ExactArgs(1),
	RunE: runHighlight,
}

func init() {
	highlightCmd.Flags().StringVarP(&highlightLang, "lang", "l", "", "language name (overrides detection)")
	highlightCmd.Flags().StringVar(&highlightColor, "color", "auto", "when to color output: auto, always, never")
	rootCmd.AddCommand(highlightCmd)
}

func runHighlight(cmd *cobra.Command, args []string) error {
	switch highlightColor {
	case "auto", "always", "never":
	default:
		return fmt.Errorf("--color must be auto, always or never, got %q", highlightColor)
	}

	cleanup, err := startLogging("highlight", false)
	if err != nil {
		return err
	}
	defer cleanup()

	a, err := newApp(cfg)
	if err != nil {
		return err
	}
	defer a.close()

	path := args[0]
	text, err := readText(path)
	if err != nil {
		return fmt.Errorf("reading %s: %w", path, err)
	}
	lang, err := a.language(path, []byte(text), highlightLang)
	if err != nil {
		return err
	}

	ctrl := highlight.New(highlight.NewBuffer(text), a.highlightOptions())
	defer ctrl.Close()
	ctrl.RequestRefresh(lang, true)

	snap := ctrl.Snapshot()
	log.Debug(log.CatView, "highlighted file", "path", path, "language", snap.Language(),
		"tokens", snap.Len(), "oversize", snap.Oversize(), "truncated", snap.Truncated())

	out := cmd.OutOrStdout()
	r := render.New(out, render.ColorProfile(highlightColor, out))
	_, err = fmt.Fprintln(out, r.Document(text, ctrl))
	return err
}
