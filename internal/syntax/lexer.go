package syntax

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/dlclark/regexp2"
)

// Lexer maps a text snapshot to its ordered tokens. A Lexer never truncates
// its output; bounding the result is the caller's job.
type Lexer func(text string) ([]Token, error)

// TokenPattern is one alternative of a lexical grammar.
type TokenPattern struct {
	Type    string `json:"type" yaml:"type"`
	Pattern string `json:"pattern" yaml:"pattern"`
}

// groupPrefix names the synthetic capture group wrapping each pattern. Token
// types are free-form strings, so they cannot be used as group names directly.
const groupPrefix = "nvtok"

type alternative struct {
	kind  TokenKind
	group string
}

// NewLexer builds the master alternation regex once and returns a lexer over
// it. Patterns missing a type or a pattern are skipped; if none remain the
// lexer returns no tokens for any input. Earlier patterns win when several
// could match at the same offset. The master regex runs in singleline mode so
// `.` also matches newlines.
//
// keywords maps a pattern type to literals that are promoted to KindKeyword
// when a token of that type matches one exactly. matchTimeout bounds a single
// match attempt; zero means no limit.
func NewLexer(patterns []TokenPattern, keywords map[string][]string, matchTimeout time.Duration) (Lexer, error) {
	var (
		parts []string
		kinds []TokenKind
	)
	for _, p := range patterns {
		if p.Type == "" || p.Pattern == "" {
			continue
		}
		parts = append(parts, "(?<"+groupPrefix+strconv.Itoa(len(kinds))+">"+translatePattern(p.Pattern)+")")
		kinds = append(kinds, TokenKind(p.Type))
	}
	if len(parts) == 0 {
		return func(string) ([]Token, error) { return nil, nil }, nil
	}

	master := strings.Join(parts, "|")
	re, err := regexp2.Compile(master, regexp2.Singleline)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidPattern, err)
	}
	// nonEmpty matches only at the search start and never matches empty.
	nonEmpty, err := regexp2.Compile(`\G(?:`+master+`)(?!\G)`, regexp2.Singleline)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidPattern, err)
	}
	if matchTimeout > 0 {
		re.MatchTimeout = matchTimeout
		nonEmpty.MatchTimeout = matchTimeout
	}

	alts := make([]alternative, len(kinds))
	for i, k := range kinds {
		alts[i] = alternative{kind: k, group: groupPrefix + strconv.Itoa(i)}
	}
	promote := keywordSets(keywords)

	return func(text string) ([]Token, error) {
		runes := []rune(text)

		var (
			tokens    []Token
			pos       int
			lastEmpty bool // the previous match was empty at pos
		)
		for pos <= len(runes) {
			start := pos
			if lastEmpty {
				if pos == len(runes) {
					break
				}
				start++
			}
			m, err := re.FindRunesMatchStartingAt(runes, start)
			if err != nil {
				return nil, err
			}
			if m == nil {
				break
			}
			if m.Length == 0 {
				// A later alternative may still match non-empty here.
				longer, err := nonEmpty.FindRunesMatchStartingAt(runes, m.Index)
				if err != nil {
					return nil, err
				}
				if longer != nil {
					m = longer
				}
			}

			kind := matchedKind(m, alts)
			lexeme := m.String()
			if set, ok := promote[kind]; ok {
				if _, hit := set[lexeme]; hit {
					kind = KindKeyword
				}
			}
			tokens = append(tokens, Token{
				Kind:   kind,
				Lexeme: lexeme,
				Start:  m.Index,
				End:    m.Index + m.Length,
			})

			pos = m.Index + m.Length
			lastEmpty = m.Length == 0
		}
		return tokens, nil
	}, nil
}

func matchedKind(m *regexp2.Match, alts []alternative) TokenKind {
	for _, a := range alts {
		if g := m.GroupByName(a.group); g != nil && len(g.Captures) > 0 {
			return a.kind
		}
	}
	return "text"
}

func keywordSets(keywords map[string][]string) map[TokenKind]map[string]struct{} {
	sets := make(map[TokenKind]map[string]struct{}, len(keywords))
	for typ, words := range keywords {
		if len(words) == 0 {
			continue
		}
		set := make(map[string]struct{}, len(words))
		for _, w := range words {
			set[w] = struct{}{}
		}
		sets[TokenKind(typ)] = set
	}
	return sets
}

// translatePattern rewrites Python-style named groups, (?P<name>...) and
// (?P=name), into the forms regexp2 understands. Escaped text and character
// classes are left alone.
func translatePattern(p string) string {
	if !strings.Contains(p, "(?P") {
		return p
	}
	var (
		b       strings.Builder
		inClass bool
	)
	for i := 0; i < len(p); i++ {
		c := p[i]
		switch {
		case c == '\\' && i+1 < len(p):
			b.WriteByte(c)
			b.WriteByte(p[i+1])
			i++
			continue
		case inClass:
			if c == ']' {
				inClass = false
			}
		case c == '[':
			inClass = true
		case strings.HasPrefix(p[i:], "(?P<"):
			b.WriteString("(?<")
			i += len("(?P<") - 1
			continue
		case strings.HasPrefix(p[i:], "(?P="):
			if end := strings.IndexByte(p[i:], ')'); end > 0 {
				b.WriteString(`\k<` + p[i+len("(?P="):i+end] + ">")
				i += end
				continue
			}
		}
		b.WriteByte(c)
	}
	return b.String()
}
