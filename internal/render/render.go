// Package render turns block formats into ANSI-styled terminal text.
package render

import (
	"io"
	"strings"
	"unicode/utf8"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/x/ansi"
	"github.com/muesli/termenv"

	"github.com/zjrosen/novic/internal/highlight"
)

// Formatter answers block formatting queries. *highlight.Controller and
// *highlight.Snapshot both satisfy it.
type Formatter interface {
	FormatBlock(blockStart, blockEnd int) []highlight.Format
}

// Block is one line of a document with its absolute rune range. End
// excludes the line break.
type Block struct {
	Text  string
	Start int
	End   int
}

// SplitBlocks splits text into lines. Offsets count runes and each line
// break occupies one rune between blocks.
func SplitBlocks(text string) []Block {
	lines := strings.Split(text, "\n")
	blocks := make([]Block, len(lines))
	pos := 0
	for i, line := range lines {
		n := utf8.RuneCountInString(line)
		blocks[i] = Block{Text: line, Start: pos, End: pos + n}
		pos += n + 1
	}
	return blocks
}

// ColorProfile maps a --color mode to a termenv profile. "auto" (or empty)
// detects from w and the environment.
func ColorProfile(mode string, w io.Writer) termenv.Profile {
	switch mode {
	case "always":
		return termenv.TrueColor
	case "never":
		return termenv.Ascii
	default:
		return termenv.NewOutput(w).EnvColorProfile()
	}
}

// Renderer styles text. Not safe for concurrent use.
type Renderer struct {
	lg       *lipgloss.Renderer
	styles   map[string]lipgloss.Style
	tabWidth int
}

// New returns a renderer writing for w with profile.
func New(w io.Writer, profile termenv.Profile) *Renderer {
	lg := lipgloss.NewRenderer(w)
	lg.SetColorProfile(profile)
	return &Renderer{
		lg:       lg,
		styles:   make(map[string]lipgloss.Style),
		tabWidth: 4,
	}
}

func (r *Renderer) style(color string) lipgloss.Style {
	s, ok := r.styles[color]
	if !ok {
		s = r.lg.NewStyle().Foreground(lipgloss.Color(color))
		r.styles[color] = s
	}
	return s
}

// Block renders one block. Format offsets are block-relative runes, sorted
// and non-overlapping; ranges past the end of text are clipped. Tabs advance
// to the next tab stop by display column.
func (r *Renderer) Block(text string, formats []highlight.Format) string {
	if len(formats) == 0 {
		out, _ := r.expandTabs(text, 0)
		return out
	}

	runes := []rune(text)
	var (
		b   strings.Builder
		pos int
		col int
		seg string
	)
	for _, f := range formats {
		start := max(min(f.Start, len(runes)), pos)
		end := min(f.End, len(runes))
		if end <= start {
			continue
		}
		if start > pos {
			seg, col = r.expandTabs(string(runes[pos:start]), col)
			b.WriteString(seg)
		}
		seg, col = r.expandTabs(string(runes[start:end]), col)
		b.WriteString(r.style(f.Color).Render(seg))
		pos = end
	}
	if pos < len(runes) {
		seg, _ = r.expandTabs(string(runes[pos:]), col)
		b.WriteString(seg)
	}
	return b.String()
}

// Line renders a block and cuts it to width cells. Width <= 0 means no limit.
func (r *Renderer) Line(block Block, f Formatter, width int) string {
	out := r.Block(block.Text, f.FormatBlock(block.Start, block.End))
	if width > 0 {
		out = ansi.Truncate(out, width, "")
	}
	return out
}

// Document renders every line of text using f.
func (r *Renderer) Document(text string, f Formatter) string {
	blocks := SplitBlocks(text)
	lines := make([]string, len(blocks))
	for i, blk := range blocks {
		lines[i] = r.Line(blk, f, 0)
	}
	return strings.Join(lines, "\n")
}
