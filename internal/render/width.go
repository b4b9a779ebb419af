package render

import (
	"strings"

	"github.com/mattn/go-runewidth"
	"github.com/rivo/uniseg"
)

// DisplayWidth returns the width of s in terminal cells, measured per
// grapheme cluster. Tabs count as one cell; use a Renderer to expand them.
func DisplayWidth(s string) int {
	width := 0
	state := -1
	for len(s) > 0 {
		var cluster string
		cluster, s, _, state = uniseg.StepString(s, state)
		width += clusterWidth(cluster)
	}
	return width
}

func clusterWidth(cluster string) int {
	if cluster == "\t" {
		return 1
	}
	return runewidth.StringWidth(cluster)
}

// Fit cuts plain text s to width cells, ending with an ellipsis when cut, and
// pads it with spaces to exactly width. Grapheme clusters are never split.
func Fit(s string, width int) string {
	if width <= 0 {
		return ""
	}
	if w := DisplayWidth(s); w <= width {
		return s + strings.Repeat(" ", width-w)
	}

	const ellipsis = "…"
	limit := width - runewidth.StringWidth(ellipsis)
	var b strings.Builder
	used := 0
	state := -1
	for len(s) > 0 {
		var cluster string
		cluster, s, _, state = uniseg.StepString(s, state)
		w := clusterWidth(cluster)
		if used+w > limit {
			break
		}
		b.WriteString(cluster)
		used += w
	}
	b.WriteString(ellipsis)
	used += runewidth.StringWidth(ellipsis)
	return b.String() + strings.Repeat(" ", max(width-used, 0))
}

// expandTabs replaces tabs with spaces up to the next tab stop. col is the
// display column s starts at; the column after s is returned.
func (r *Renderer) expandTabs(s string, col int) (string, int) {
	if !strings.ContainsRune(s, '\t') {
		return s, col + DisplayWidth(s)
	}
	var b strings.Builder
	state := -1
	for len(s) > 0 {
		var cluster string
		cluster, s, _, state = uniseg.StepString(s, state)
		if cluster == "\t" {
			n := r.tabWidth - col%r.tabWidth
			b.WriteString(strings.Repeat(" ", n))
			col += n
			continue
		}
		b.WriteString(cluster)
		col += runewidth.StringWidth(cluster)
	}
	return b.String(), col
}
