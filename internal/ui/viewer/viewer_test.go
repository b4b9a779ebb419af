package viewer

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/x/ansi"
	"github.com/charmbracelet/x/exp/teatest"
	"github.com/muesli/termenv"
	"github.com/stretchr/testify/require"

	"github.com/zjrosen/novic/internal/highlight"
	"github.com/zjrosen/novic/internal/pubsub"
	"github.com/zjrosen/novic/internal/render"
	"github.com/zjrosen/novic/internal/syntax"
)

const goSource = `package main

func main() {
	println("hi")
}
`

func builtinRegistry(t *testing.T) *syntax.Registry {
	t.Helper()
	langs, report := syntax.Loader{}.Load()
	require.Empty(t, report.Skipped)
	return syntax.NewRegistry(langs...)
}

func newTestModel(t *testing.T, cfg Config) (Model, *highlight.ManualScheduler) {
	t.Helper()
	sched := highlight.NewManualScheduler()
	cfg.Highlight.Scheduler = sched
	if cfg.Registry == nil {
		cfg.Registry = builtinRegistry(t)
	}
	if cfg.Path == "" {
		cfg.Path = "main.go"
	}
	cfg.Profile = termenv.Ascii
	m := New(context.Background(), cfg)
	t.Cleanup(m.Close)
	return m, sched
}

func keyPress(r string) tea.KeyMsg {
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(r)}
}

func update(t *testing.T, m Model, msg tea.Msg) Model {
	t.Helper()
	next, _ := m.Update(msg)
	return next.(Model)
}

func TestInit_HighlightsImmediately(t *testing.T) {
	reg := builtinRegistry(t)
	m, _ := newTestModel(t, Config{Text: goSource, Registry: reg, Language: reg.Get("go")})

	cmd := m.Init()
	require.NotNil(t, cmd)

	snap := m.Controller().Snapshot()
	require.Equal(t, "Go", snap.Language())
	require.NotZero(t, snap.Len())

	// "package" is a keyword on the first line.
	formats := m.Controller().FormatBlock(0, len("package main"))
	require.NotEmpty(t, formats)
	require.Equal(t, syntax.KindKeyword, formats[0].Kind)
	require.Equal(t, 0, formats[0].Start)
	require.Equal(t, 7, formats[0].End)
}

func TestView_ShowsTextAndStatus(t *testing.T) {
	reg := builtinRegistry(t)
	m, _ := newTestModel(t, Config{Text: goSource, Registry: reg, Language: reg.Get("go")})
	m.Init()
	m = update(t, m, tea.WindowSizeMsg{Width: 60, Height: 10})

	view := m.View()
	require.Contains(t, view, "func main() {")
	require.Contains(t, view, "main.go")
	require.Contains(t, view, " · Go · ")
	require.Equal(t, 10, strings.Count(view, "\n")+1)
}

func TestView_StatusBarFitsWideText(t *testing.T) {
	m, _ := newTestModel(t, Config{Text: "x", Path: "日本語のファイル名.go"})
	m = update(t, m, tea.WindowSizeMsg{Width: 15, Height: 3})

	lines := strings.Split(m.View(), "\n")
	status := ansi.Strip(lines[len(lines)-1])
	require.Equal(t, 15, render.DisplayWidth(status))
	require.True(t, strings.HasPrefix(status, " 日本語"))
	require.Contains(t, status, "…")

	m = update(t, m, tea.WindowSizeMsg{Width: 80, Height: 3})
	lines = strings.Split(m.View(), "\n")
	status = ansi.Strip(lines[len(lines)-1])
	require.Equal(t, 80, render.DisplayWidth(status))
	require.NotContains(t, status, "…")
}

func TestKeys_CycleLanguages(t *testing.T) {
	reg := builtinRegistry(t)
	m, _ := newTestModel(t, Config{Text: goSource, Registry: reg, Language: reg.Get("go")})
	m.Init()

	names := func() []string {
		var out []string
		for _, l := range reg.Languages() {
			out = append(out, l.Name)
		}
		return out
	}()
	start := 0
	for i, n := range names {
		if n == "Go" {
			start = i
		}
	}

	m = update(t, m, keyPress("l"))
	if start+1 < len(names) {
		require.Equal(t, names[start+1], m.Language().Name)
		require.Equal(t, names[start+1], m.Controller().Snapshot().Language(), "switching languages refreshes immediately")
	} else {
		require.Nil(t, m.Language())
	}

	m = update(t, m, keyPress("L"))
	require.Equal(t, "Go", m.Language().Name)
	require.Equal(t, "Go", m.Controller().Snapshot().Language())

	// A full cycle passes through plain text and returns.
	for i := 0; i <= len(names); i++ {
		m = update(t, m, keyPress("l"))
	}
	require.Equal(t, "Go", m.Language().Name)
}

func TestKeys_PlainSlot(t *testing.T) {
	reg := syntax.NewRegistry()
	m, _ := newTestModel(t, Config{Text: "x", Registry: reg})
	m.Init()

	m = update(t, m, keyPress("l"))
	require.Nil(t, m.Language())
	require.Empty(t, m.Controller().Snapshot().Language())
}

func TestKeys_Scrolling(t *testing.T) {
	text := strings.Repeat("line\n", 50)
	m, _ := newTestModel(t, Config{Text: text})
	m = update(t, m, tea.WindowSizeMsg{Width: 40, Height: 11})

	m = update(t, m, keyPress("j"))
	require.Equal(t, 1, m.Offset())
	m = update(t, m, keyPress("k"))
	m = update(t, m, keyPress("k"))
	require.Equal(t, 0, m.Offset())

	m = update(t, m, tea.KeyMsg{Type: tea.KeyPgDown})
	require.Equal(t, 10, m.Offset())

	m = update(t, m, keyPress("G"))
	require.Equal(t, 51-10, m.Offset(), "51 blocks, 10 visible")
	m = update(t, m, keyPress("j"))
	require.Equal(t, 41, m.Offset())

	m = update(t, m, keyPress("g"))
	require.Zero(t, m.Offset())
}

func TestKeys_Quit(t *testing.T) {
	m, _ := newTestModel(t, Config{Text: "x"})
	_, cmd := m.Update(keyPress("q"))
	require.NotNil(t, cmd)
	require.Equal(t, tea.Quit(), cmd())
}

func TestFileChanged_ReloadsAndDebounces(t *testing.T) {
	reg := builtinRegistry(t)
	changes := make(chan struct{}, 1)
	m, sched := newTestModel(t, Config{
		Text:        "x := 1",
		Registry:    reg,
		Language:    reg.Get("go"),
		FileChanges: changes,
		ReadFile:    func(string) (string, error) { return "func f() {}", nil },
	})
	m.Init()
	gen := m.Controller().Snapshot().Generation()

	next, cmd := m.Update(FileChangedMsg{})
	m = next.(Model)
	require.NotNil(t, cmd)

	m = update(t, m, fileLoadedMsg{text: "func f() {}"})
	require.Contains(t, m.View(), "func f() {}")
	require.Equal(t, gen, m.Controller().Snapshot().Generation(), "reload waits for the debounce")

	sched.Advance(highlight.DefaultDebounce)
	require.Equal(t, gen+1, m.Controller().Snapshot().Generation())
	formats := m.Controller().FormatBlock(0, 11)
	require.NotEmpty(t, formats)
	require.Equal(t, syntax.KindKeyword, formats[0].Kind)
}

func TestFileLoaded_ErrorKeepsText(t *testing.T) {
	m, _ := newTestModel(t, Config{Text: "original"})
	m = update(t, m, fileLoadedMsg{err: errors.New("permission denied")})
	view := m.View()
	require.Contains(t, view, "original")
	require.Contains(t, view, "reload failed")
}

func TestDefinitionsChanged_ReResolvesLanguage(t *testing.T) {
	reg := builtinRegistry(t)
	oldGo := reg.Get("go")

	replacement, err := syntax.Compile(syntax.Definition{
		Name:        "go",
		Extensions:  []string{"go"},
		RegexTokens: []syntax.TokenPattern{{Type: "word", Pattern: `\w+`}},
		Styles:      map[string]string{"word": "#123456"},
	}, syntax.CompileOptions{})
	require.NoError(t, err)

	m, _ := newTestModel(t, Config{
		Text:     "package main",
		Registry: reg,
		Language: oldGo,
		ReloadDefinitions: func() syntax.LoadReport {
			reg.Register(replacement)
			return syntax.LoadReport{Loaded: []string{"go"}}
		},
	})
	m.Init()

	m = update(t, m, DefinitionsChangedMsg{})
	require.Same(t, replacement, m.Language())
	formats := m.Controller().FormatBlock(0, 12)
	require.Len(t, formats, 2)
	require.Equal(t, "#123456", formats[0].Color)
	require.Contains(t, m.View(), "definitions reloaded: 1 loaded, 0 skipped")
}

func TestRefreshEvent_UpdatesStatusAndKeepsListening(t *testing.T) {
	reg := builtinRegistry(t)
	m, _ := newTestModel(t, Config{Text: goSource, Registry: reg, Language: reg.Get("go"), ShowStats: true})
	m.Init()

	next, cmd := m.Update(pubsub.Event[highlight.RefreshEvent]{
		Type:    pubsub.RefreshedEvent,
		Payload: highlight.RefreshEvent{ControllerID: m.Controller().ID(), Snapshot: m.Controller().Snapshot()},
	})
	m = next.(Model)
	require.NotNil(t, cmd)

	view := m.View()
	require.Contains(t, view, "tokens")
	require.Contains(t, view, "refreshes=1")
}

func TestTeatest_SmokeRun(t *testing.T) {
	reg := builtinRegistry(t)
	var out bytes.Buffer
	m, _ := newTestModel(t, Config{
		Text:     goSource,
		Registry: reg,
		Language: reg.Get("go"),
		Output:   &out,
	})

	tm := teatest.NewTestModel(t, m, teatest.WithInitialTermSize(80, 12))
	teatest.WaitFor(t, tm.Output(), func(b []byte) bool {
		return bytes.Contains(b, []byte("println")) && bytes.Contains(b, []byte("tokens"))
	}, teatest.WithDuration(3*time.Second))

	tm.Send(keyPress("l"))
	tm.Send(keyPress("q"))
	tm.WaitFinished(t, teatest.WithFinalTimeout(3*time.Second))

	final, ok := tm.FinalModel(t).(Model)
	require.True(t, ok)
	require.NotEqual(t, "Go", func() string {
		if final.Language() == nil {
			return ""
		}
		return final.Language().Name
	}())
}
