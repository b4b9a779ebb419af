package highlight

import (
	"sort"

	"github.com/zjrosen/novic/internal/syntax"
)

// Format is a colored range inside a block. Start and End are relative to
// the block start, End is exclusive.
type Format struct {
	Kind  syntax.TokenKind
	Start int
	End   int
	Color string
}

// Snapshot is the immutable result of one refresh. Controllers replace it
// wholesale; nothing mutates a published Snapshot.
type Snapshot struct {
	language   string
	tokens     []syntax.Token
	starts     []int
	style      syntax.Style
	rawTokens  int
	oversize   bool
	truncated  bool
	generation uint64
}

var emptySnapshot = &Snapshot{}

func newSnapshot(language string, tokens []syntax.Token, style syntax.Style) *Snapshot {
	starts := make([]int, len(tokens))
	for i, t := range tokens {
		starts[i] = t.Start
	}
	return &Snapshot{
		language:  language,
		tokens:    tokens,
		starts:    starts,
		style:     style,
		rawTokens: len(tokens),
	}
}

// Language returns the name of the language lexed, or "" for none.
func (s *Snapshot) Language() string { return s.language }

// Len returns the number of tokens kept.
func (s *Snapshot) Len() int { return len(s.tokens) }

// RawTokens returns how many tokens the lexer produced before capping.
func (s *Snapshot) RawTokens() int { return s.rawTokens }

// Oversize reports whether lexing was skipped for document size.
func (s *Snapshot) Oversize() bool { return s.oversize }

// Truncated reports whether only a prefix of the document was lexed.
func (s *Snapshot) Truncated() bool { return s.truncated }

// Generation counts refreshes of the owning controller; 0 is the initial
// empty snapshot.
func (s *Snapshot) Generation() uint64 { return s.generation }

// Tokens returns a copy of the kept tokens.
func (s *Snapshot) Tokens() []syntax.Token {
	out := make([]syntax.Token, len(s.tokens))
	copy(out, s.tokens)
	return out
}

// FormatBlock returns the colored ranges intersecting the absolute range
// [blockStart, blockEnd), clipped to the block and made block-relative.
// Kinds without a color are left out. Cost is O(log T + k) for T tokens and
// k tokens touching the block.
func (s *Snapshot) FormatBlock(blockStart, blockEnd int) []Format {
	if s == nil || len(s.tokens) == 0 || blockEnd <= blockStart {
		return nil
	}

	// Largest token starting at or before blockStart may reach into the block.
	i := sort.SearchInts(s.starts, blockStart)
	if i > 0 {
		i--
	}

	var out []Format
	for ; i < len(s.tokens); i++ {
		tok := s.tokens[i]
		if tok.Start >= blockEnd {
			break
		}
		if tok.End <= blockStart {
			continue
		}

		start := max(tok.Start, blockStart) - blockStart
		end := min(tok.End, blockEnd) - blockStart
		if end <= start {
			continue
		}

		color, ok := s.style.Color(tok.Kind)
		if !ok {
			continue
		}
		out = append(out, Format{Kind: tok.Kind, Start: start, End: end, Color: color})
	}
	return out
}
