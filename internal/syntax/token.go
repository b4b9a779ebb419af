// Package syntax compiles declarative language definitions into regex lexers
// and keeps them in an explicit, injectable Registry.
//
// A lexer produces Tokens whose offsets are code-point (rune) positions into
// the lexed text. Tokens are sorted by Start and never overlap; text that no
// pattern matches produces no token and renders as plain text.
package syntax

// TokenKind names a lexical category. The set is open: every definition
// introduces its own kinds through its pattern list.
type TokenKind string

// KindKeyword is the kind a token is promoted to when its literal text is in
// the keyword set declared for its pattern type.
const KindKeyword TokenKind = "kw"

// Token is one classified lexeme. Start and End are rune offsets, End is
// exclusive.
type Token struct {
	Kind   TokenKind
	Lexeme string
	Start  int
	End    int
}

// Len returns the token length in runes.
func (t Token) Len() int {
	return t.End - t.Start
}

// Style maps token kinds to display colors ("#RRGGBB").
// Kinds without an entry are rendered as plain text.
type Style map[TokenKind]string

// Color returns the color registered for kind.
func (s Style) Color(kind TokenKind) (string, bool) {
	c, ok := s[kind]
	return c, ok && c != ""
}

func (s Style) clone() Style {
	out := make(Style, len(s))
	for k, v := range s {
		out[k] = v
	}
	return out
}
