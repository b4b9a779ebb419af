package cmd

import (
	"context"
	"fmt"
	"os"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"github.com/zjrosen/novic/internal/flags"
	"github.com/zjrosen/novic/internal/log"
	"github.com/zjrosen/novic/internal/render"
	"github.com/zjrosen/novic/internal/syntax"
	"github.com/zjrosen/novic/internal/ui/viewer"
	"github.com/zjrosen/novic/internal/watcher"
)

var viewLang string

var viewCmd = &cobra.Command{
	Use:   "view FILE",
	Short: "Open a highlighting pager that follows file changes",
	Long: `Open FILE in a terminal pager. Changes to the file on disk are
re-highlighted after a short quiet period, and edits to language definitions
are picked up when syntax.watch is on.`,
	Args: cobra.ExactArgs(1),
	RunE: runView,
}

func init() {
	viewCmd.Flags().StringVarP(&viewLang, "lang", "l", "", "language name (overrides detection)")
	rootCmd.AddCommand(viewCmd)
}

func runView(cmd *cobra.Command, args []string) error {
	cleanup, err := startLogging("view", true)
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
	lang, err := a.language(path, []byte(text), viewLang)
	if err != nil {
		return err
	}

	fileWatch, err := watcher.New(watcher.DefaultConfig(path))
	if err != nil {
		return err
	}
	fileChanges, err := fileWatch.Start()
	if err != nil {
		return err
	}
	defer func() { _ = fileWatch.Stop() }()

	var defChanges <-chan struct{}
	if dir := a.cfg.Syntax.DefinitionsDir; a.cfg.Syntax.Watch && dir != "" {
		if info, statErr := os.Stat(dir); statErr == nil && info.IsDir() {
			wcfg := watcher.DefaultConfig(dir)
			wcfg.Filter = syntax.IsDefinitionFile
			defWatch, err := watcher.New(wcfg)
			if err != nil {
				return err
			}
			defChanges, err = defWatch.Start()
			if err != nil {
				return err
			}
			defer func() { _ = defWatch.Stop() }()
		} else {
			log.Debug(log.CatWatcher, "not watching definitions", "dir", dir)
		}
	}

	ctx, cancel := context.WithCancel(cmd.Context())
	defer cancel()

	out := cmd.OutOrStdout()
	model := viewer.New(ctx, viewer.Config{
		Path:              path,
		Text:              text,
		Registry:          a.registry,
		Language:          lang,
		Highlight:         a.highlightOptions(),
		ReadFile:          readText,
		FileChanges:       fileChanges,
		ReloadDefinitions: a.reload,
		DefinitionChanges: defChanges,
		ShowStats:         a.flags.Enabled(flags.FlagViewerStats),
		Output:            out,
		Profile:           render.ColorProfile("auto", out),
	})
	defer model.Close()

	p := tea.NewProgram(model, tea.WithAltScreen(), tea.WithContext(ctx))
	if _, err := p.Run(); err != nil {
		return fmt.Errorf("running viewer: %w", err)
	}
	return nil
}
