package syntax

import (
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"
)

var (
	// ErrNoName is returned for definitions without a name.
	ErrNoName = errors.New("definition has no name")
	// ErrNoExtensions is returned for definitions without file extensions.
	ErrNoExtensions = errors.New("definition has no extensions")
	// ErrInvalidPattern wraps regex compilation failures.
	ErrInvalidPattern = errors.New("invalid token pattern")
)

// Definition is the declarative record a language is built from. It is the
// shape of the JSON/YAML files the Loader reads.
type Definition struct {
	Name         string              `json:"name" yaml:"name"`
	Extensions   []string            `json:"extensions" yaml:"extensions"`
	RegexTokens  []TokenPattern      `json:"regexTokens" yaml:"regexTokens"`
	KeywordTypes map[string][]string `json:"keywordTypes" yaml:"keywordTypes"`
	Styles       map[string]string   `json:"styles" yaml:"styles"`

	// Theme names a chroma style used to color kinds Styles leaves out.
	Theme string `json:"theme,omitempty" yaml:"theme,omitempty"`
}

// Language is an immutable, compiled language definition.
type Language struct {
	Name       string
	Extensions []string
	Lexer      Lexer
	Style      Style

	// Source is the file the definition came from ("builtin:<file>" for
	// embedded definitions).
	Source string
}

// CompileOptions tune how definitions are compiled.
type CompileOptions struct {
	// MatchTimeout bounds a single regex match attempt.
	MatchTimeout time.Duration

	// Theme is the fallback chroma style for definitions without their own.
	Theme string
}

// Compile validates def and builds its lexer and style table.
func Compile(def Definition, opts CompileOptions) (*Language, error) {
	name := strings.TrimSpace(def.Name)
	if name == "" {
		return nil, ErrNoName
	}

	exts := normalizeExtensions(def.Extensions)
	if len(exts) == 0 {
		return nil, fmt.Errorf("%s: %w", name, ErrNoExtensions)
	}

	lexer, err := NewLexer(def.RegexTokens, def.KeywordTypes, opts.MatchTimeout)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", name, err)
	}

	style := make(Style, len(def.Styles))
	for kind, color := range def.Styles {
		style[TokenKind(kind)] = color
	}

	theme := def.Theme
	if theme == "" {
		theme = opts.Theme
	}
	if theme != "" {
		style = applyTheme(style, theme, definedKinds(def))
	}

	return &Language{
		Name:       name,
		Extensions: exts,
		Lexer:      lexer,
		Style:      style,
	}, nil
}

// StyleFor returns the color for kind, if any.
func (l *Language) StyleFor(kind TokenKind) (string, bool) {
	if l == nil {
		return "", false
	}
	return l.Style.Color(kind)
}

// StyleCopy returns a private copy of the style table.
func (l *Language) StyleCopy() Style {
	if l == nil {
		return nil
	}
	return l.Style.clone()
}

func normalizeExtensions(in []string) []string {
	seen := make(map[string]struct{}, len(in))
	out := make([]string, 0, len(in))
	for _, e := range in {
		e = strings.ToLower(strings.TrimPrefix(strings.TrimSpace(e), "."))
		if e == "" {
			continue
		}
		if _, dup := seen[e]; dup {
			continue
		}
		seen[e] = struct{}{}
		out = append(out, e)
	}
	return out
}

// definedKinds lists every kind a definition can emit, sorted.
func definedKinds(def Definition) []TokenKind {
	set := make(map[TokenKind]struct{})
	for _, p := range def.RegexTokens {
		if p.Type != "" && p.Pattern != "" {
			set[TokenKind(p.Type)] = struct{}{}
		}
	}
	for _, words := range def.KeywordTypes {
		if len(words) > 0 {
			set[KindKeyword] = struct{}{}
			break
		}
	}
	kinds := make([]TokenKind, 0, len(set))
	for k := range set {
		kinds = append(kinds, k)
	}
	sort.Slice(kinds, func(i, j int) bool { return kinds[i] < kinds[j] })
	return kinds
}
