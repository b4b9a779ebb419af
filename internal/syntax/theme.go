package syntax

import (
	"strings"

	"github.com/alecthomas/chroma/v2"
	"github.com/alecthomas/chroma/v2/styles"
)

// chromaKinds maps common definition kind names onto chroma token types.
// Dotted kinds ("comment.block") are resolved by their first segment.
var chromaKinds = map[string]chroma.TokenType{
	"kw":        chroma.Keyword,
	"keyword":   chroma.Keyword,
	"comment":   chroma.Comment,
	"preproc":   chroma.CommentPreproc,
	"string":    chroma.LiteralString,
	"str":       chroma.LiteralString,
	"char":      chroma.LiteralStringChar,
	"escape":    chroma.LiteralStringEscape,
	"regex":     chroma.LiteralStringRegex,
	"number":    chroma.LiteralNumber,
	"num":       chroma.LiteralNumber,
	"op":        chroma.Operator,
	"operator":  chroma.Operator,
	"punct":     chroma.Punctuation,
	"func":      chroma.NameFunction,
	"function":  chroma.NameFunction,
	"class":     chroma.NameClass,
	"type":      chroma.KeywordType,
	"builtin":   chroma.NameBuiltin,
	"decorator": chroma.NameDecorator,
	"const":     chroma.KeywordConstant,
	"constant":  chroma.NameConstant,
	"tag":       chroma.NameTag,
	"attr":      chroma.NameAttribute,
	"key":       chroma.NameTag,
}

// ThemeNames lists the available fallback themes.
func ThemeNames() []string {
	return styles.Names()
}

// ValidTheme reports whether name is a known chroma style.
func ValidTheme(name string) bool {
	_, ok := styles.Registry[strings.ToLower(name)]
	return ok
}

// ThemeColor returns the color theme assigns to kind.
func ThemeColor(theme string, kind TokenKind) (string, bool) {
	st, ok := styles.Registry[strings.ToLower(theme)]
	if !ok {
		return "", false
	}
	name, _, _ := strings.Cut(string(kind), ".")
	tt, ok := chromaKinds[strings.ToLower(name)]
	if !ok {
		return "", false
	}
	entry := st.Get(tt)
	if !entry.Colour.IsSet() {
		return "", false
	}
	return entry.Colour.String(), true
}

// applyTheme fills kinds missing from style with colors from theme.
// Explicit entries always win.
func applyTheme(style Style, theme string, kinds []TokenKind) Style {
	for _, k := range kinds {
		if _, ok := style[k]; ok {
			continue
		}
		if c, ok := ThemeColor(theme, k); ok {
			style[k] = c
		}
	}
	return style
}
