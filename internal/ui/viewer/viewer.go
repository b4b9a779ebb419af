// Package viewer is a read-only terminal pager that keeps a file highlighted
// while it changes on disk.
package viewer

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/termenv"

	"github.com/zjrosen/novic/internal/highlight"
	"github.com/zjrosen/novic/internal/keys"
	"github.com/zjrosen/novic/internal/log"
	"github.com/zjrosen/novic/internal/pubsub"
	"github.com/zjrosen/novic/internal/render"
	"github.com/zjrosen/novic/internal/syntax"
)

// FileChangedMsg reports that the viewed file changed on disk.
type FileChangedMsg struct{}

// DefinitionsChangedMsg reports that language definition files changed.
type DefinitionsChangedMsg struct{}

type fileLoadedMsg struct {
	text string
	err  error
}

// Config wires a viewer to its collaborators.
type Config struct {
	Path     string
	Text     string
	Registry *syntax.Registry
	// Language is the initial language; nil shows plain text.
	Language *syntax.Language

	Highlight highlight.Options

	// ReadFile reloads the viewed file after FileChanges fires.
	ReadFile    func(path string) (string, error)
	FileChanges <-chan struct{}

	// ReloadDefinitions reloads the registry after DefinitionChanges fires.
	ReloadDefinitions func() syntax.LoadReport
	DefinitionChanges <-chan struct{}

	ShowStats bool

	// Output and Profile select how colors are rendered.
	Output  io.Writer
	Profile termenv.Profile
}

// Model is the viewer state.
type Model struct {
	ctx context.Context
	cfg Config

	text   string
	blocks []render.Block

	lang *syntax.Language
	buf  *highlight.Buffer
	ctrl *highlight.Controller

	listener *pubsub.ContinuousListener[highlight.RefreshEvent]
	renderer *render.Renderer

	keys     keys.ViewerKeyMap
	help     help.Model
	showHelp bool

	width  int
	height int
	offset int
	status string
}

var statusStyle = lipgloss.NewStyle().Reverse(true)

// New builds a viewer. The controller lives until Close.
func New(ctx context.Context, cfg Config) Model {
	buf := highlight.NewBuffer(cfg.Text)
	ctrl := highlight.New(buf, cfg.Highlight)
	out := cfg.Output
	if out == nil {
		out = io.Discard
	}
	return Model{
		ctx:      ctx,
		cfg:      cfg,
		text:     cfg.Text,
		blocks:   render.SplitBlocks(cfg.Text),
		lang:     cfg.Language,
		buf:      buf,
		ctrl:     ctrl,
		listener: pubsub.NewContinuousListener(ctx, ctrl.Broker()),
		renderer: render.New(out, cfg.Profile),
		keys:     keys.Viewer,
		help:     help.New(),
		width:    80,
		height:   24,
	}
}

// Controller exposes the highlight controller.
func (m Model) Controller() *highlight.Controller { return m.ctrl }

// Language returns the active language, nil for plain text.
func (m Model) Language() *syntax.Language { return m.lang }

// Offset returns the first visible line.
func (m Model) Offset() int { return m.offset }

// Close stops the controller.
func (m Model) Close() { m.ctrl.Close() }

// Init implements tea.Model. Opening a file highlights it right away.
func (m Model) Init() tea.Cmd {
	m.ctrl.RequestRefresh(m.lang, true)
	return tea.Batch(
		m.listener.Listen(),
		waitFor(m.cfg.FileChanges, FileChangedMsg{}),
		waitFor(m.cfg.DefinitionChanges, DefinitionsChangedMsg{}),
	)
}

func waitFor(ch <-chan struct{}, msg tea.Msg) tea.Cmd {
	if ch == nil {
		return nil
	}
	return func() tea.Msg {
		if _, ok := <-ch; !ok {
			return nil
		}
		return msg
	}
}

// Update implements tea.Model.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.help.Width = msg.Width
		m.offset = m.clampOffset(m.offset)
		return m, nil

	case tea.KeyMsg:
		return m.handleKey(msg)

	case pubsub.Event[highlight.RefreshEvent]:
		if msg.Payload.ControllerID == m.ctrl.ID() {
			m.status = describe(msg.Payload.Snapshot)
		}
		return m, m.listener.Listen()

	case FileChangedMsg:
		path, read := m.cfg.Path, m.cfg.ReadFile
		cmds := []tea.Cmd{waitFor(m.cfg.FileChanges, FileChangedMsg{})}
		if read != nil {
			cmds = append(cmds, func() tea.Msg {
				text, err := read(path)
				return fileLoadedMsg{text: text, err: err}
			})
		}
		return m, tea.Batch(cmds...)

	case fileLoadedMsg:
		if msg.err != nil {
			log.ErrorErr(log.CatView, "reload failed", msg.err, "path", m.cfg.Path)
			m.status = "reload failed: " + msg.err.Error()
			return m, nil
		}
		m.setText(msg.text)
		// Treated like an edit: debounced.
		m.ctrl.RequestRefresh(m.lang, false)
		return m, nil

	case DefinitionsChangedMsg:
		if m.cfg.ReloadDefinitions != nil {
			report := m.cfg.ReloadDefinitions()
			if m.lang != nil {
				m.lang = m.cfg.Registry.Get(m.lang.Name)
			}
			m.ctrl.RequestRefresh(m.lang, true)
			m.status = fmt.Sprintf("definitions reloaded: %d loaded, %d skipped", len(report.Loaded), len(report.Skipped))
		}
		return m, waitFor(m.cfg.DefinitionChanges, DefinitionsChangedMsg{})
	}
	return m, nil
}

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.Quit):
		return m, tea.Quit
	case key.Matches(msg, m.keys.Up):
		m.offset = m.clampOffset(m.offset - 1)
	case key.Matches(msg, m.keys.Down):
		m.offset = m.clampOffset(m.offset + 1)
	case key.Matches(msg, m.keys.PageUp):
		m.offset = m.clampOffset(m.offset - m.pageHeight())
	case key.Matches(msg, m.keys.PageDown):
		m.offset = m.clampOffset(m.offset + m.pageHeight())
	case key.Matches(msg, m.keys.Top):
		m.offset = 0
	case key.Matches(msg, m.keys.Bottom):
		m.offset = m.clampOffset(len(m.blocks))
	case key.Matches(msg, m.keys.NextLanguage):
		m.lang = m.cycleLanguage(1)
		m.ctrl.RequestRefresh(m.lang, true)
	case key.Matches(msg, m.keys.PrevLanguage):
		m.lang = m.cycleLanguage(-1)
		m.ctrl.RequestRefresh(m.lang, true)
	case key.Matches(msg, m.keys.Rehighlight):
		m.ctrl.RequestRefresh(m.lang, true)
	case key.Matches(msg, m.keys.Help):
		m.showHelp = !m.showHelp
		m.help.ShowAll = m.showHelp
		m.offset = m.clampOffset(m.offset)
	}
	return m, nil
}

// cycleLanguage steps through the registry's languages with plain text as
// the slot after the last one.
func (m Model) cycleLanguage(step int) *syntax.Language {
	if m.cfg.Registry == nil {
		return nil
	}
	langs := m.cfg.Registry.Languages()
	slots := len(langs) + 1
	cur := len(langs)
	for i, l := range langs {
		if m.lang != nil && strings.EqualFold(l.Name, m.lang.Name) {
			cur = i
			break
		}
	}
	next := ((cur+step)%slots + slots) % slots
	if next == len(langs) {
		return nil
	}
	return langs[next]
}

func (m *Model) setText(text string) {
	m.text = text
	m.blocks = render.SplitBlocks(text)
	m.buf.Set(text)
	m.offset = m.clampOffset(m.offset)
}

func (m Model) chromeHeight() int {
	h := 1
	if m.showHelp {
		h += lipgloss.Height(m.help.View(m.keys))
	}
	return h
}

func (m Model) pageHeight() int {
	return max(m.height-m.chromeHeight(), 1)
}

func (m Model) clampOffset(off int) int {
	maxOff := max(len(m.blocks)-m.pageHeight(), 0)
	return min(max(off, 0), maxOff)
}

// View implements tea.Model.
func (m Model) View() string {
	page := m.pageHeight()
	lines := make([]string, 0, page+2)
	for i := m.offset; i < len(m.blocks) && i < m.offset+page; i++ {
		lines = append(lines, m.renderer.Line(m.blocks[i], m.ctrl, m.width))
	}
	for len(lines) < page {
		lines = append(lines, "~")
	}

	lines = append(lines, statusStyle.Render(render.Fit(m.statusLine(), m.width)))
	if m.showHelp {
		lines = append(lines, m.help.View(m.keys))
	}
	return strings.Join(lines, "\n")
}

func (m Model) statusLine() string {
	name := "plain"
	if m.lang != nil {
		name = m.lang.Name
	}
	parts := []string{
		m.cfg.Path,
		name,
		fmt.Sprintf("%d/%d", min(m.offset+1, len(m.blocks)), len(m.blocks)),
	}
	if m.status != "" {
		parts = append(parts, m.status)
	}
	if m.cfg.ShowStats {
		s := m.ctrl.Stats()
		parts = append(parts, fmt.Sprintf("refreshes=%d deferred=%d cached=%d errors=%d",
			s.Refreshes, s.Deferred, s.CacheHits, s.LexErrors))
	}
	return " " + strings.Join(parts, " · ")
}

func describe(s *highlight.Snapshot) string {
	switch {
	case s == nil:
		return ""
	case s.Oversize():
		return "too large to highlight"
	case s.Truncated():
		return fmt.Sprintf("%d tokens (prefix only)", s.Len())
	default:
		return fmt.Sprintf("%d tokens", s.Len())
	}
}
