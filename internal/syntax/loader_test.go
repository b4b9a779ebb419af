package syntax

import (
	"os"
	"path/filepath"
	"testing"
	"testing/fstest"

	"github.com/stretchr/testify/require"
)

const toyJSON = `{
  "name": "Toy",
  "extensions": ["toy"],
  "regexTokens": [
    {"type": "num", "pattern": "\\d+"},
    {"type": "id", "pattern": "[a-z]+"}
  ],
  "keywordTypes": {"id": ["let"]},
  "styles": {"kw": "#ff00ff", "num": "#00ff00"}
}`

const toyYAML = `name: Toy
extensions: [toy, toyl]
regexTokens:
  - type: id
    pattern: '[a-z]+'
keywordTypes:
  id: [let, in]
styles:
  kw: '#123456'
`

func TestLoadFS_SkipsBrokenFilesAndKeepsTheRest(t *testing.T) {
	fsys := fstest.MapFS{
		"toy.json":       {Data: []byte(toyJSON)},
		"broken.json":    {Data: []byte(`{"name": `)},
		"badregex.json":  {Data: []byte(`{"name":"Bad","extensions":["bad"],"regexTokens":[{"type":"x","pattern":"(oops"}]}`)},
		"noname.json":    {Data: []byte(`{"extensions":["nn"]}`)},
		"noext.json":     {Data: []byte(`{"name":"NoExt"}`)},
		"README.md":      {Data: []byte("ignored")},
		"nested/x.json":  {Data: []byte(toyJSON)},
	}

	langs, report := LoadFS(fsys, "defs/", CompileOptions{})
	require.Len(t, langs, 1)
	require.Equal(t, "Toy", langs[0].Name)
	require.Equal(t, "defs/toy.json", langs[0].Source)
	require.Equal(t, []string{"Toy"}, report.Loaded)
	require.Len(t, report.Skipped, 4)

	byPath := map[string]error{}
	for _, s := range report.Skipped {
		byPath[s.Path] = s.Err
	}
	require.ErrorIs(t, byPath["defs/badregex.json"], ErrInvalidPattern)
	require.ErrorIs(t, byPath["defs/noname.json"], ErrNoName)
	require.ErrorIs(t, byPath["defs/noext.json"], ErrNoExtensions)
	require.Error(t, byPath["defs/broken.json"])
}

func TestLoadFS_YAMLDefinition(t *testing.T) {
	fsys := fstest.MapFS{"toy.yaml": {Data: []byte(toyYAML)}}

	langs, report := LoadFS(fsys, "", CompileOptions{})
	require.Empty(t, report.Skipped)
	require.Len(t, langs, 1)

	tokens, err := langs[0].Lexer("let a in b")
	require.NoError(t, err)
	require.Len(t, tokens, 4)
	require.Equal(t, KindKeyword, tokens[0].Kind)
	require.Equal(t, TokenKind("id"), tokens[1].Kind)
	require.Equal(t, KindKeyword, tokens[2].Kind)
}

func TestLoader_BuiltinsLoad(t *testing.T) {
	langs, report := Loader{}.Load()
	require.Empty(t, report.Skipped, "built-in definitions must all compile")

	reg := NewRegistry(langs...)
	for _, name := range []string{"python", "go", "javascript", "json"} {
		require.NotNil(t, reg.Get(name), name)
	}
	require.Same(t, reg.Get("python"), reg.ForExtension("py"))
}

func TestLoader_BuiltinPythonHighlightsKeywords(t *testing.T) {
	langs, _ := Loader{}.Load()
	py := NewRegistry(langs...).Get("python")
	require.NotNil(t, py)

	tokens, err := py.Lexer("def f(x):\n    return x  # done\n")
	require.NoError(t, err)
	require.NotEmpty(t, tokens)
	require.Equal(t, Token{Kind: KindKeyword, Lexeme: "def", Start: 0, End: 3}, tokens[0])

	var kinds []TokenKind
	for _, tok := range tokens {
		kinds = append(kinds, tok.Kind)
	}
	require.Contains(t, kinds, TokenKind("comment"))
}

func TestLoader_UserDirOverridesBuiltin(t *testing.T) {
	dir := t.TempDir()
	override := `{"name":"python","extensions":["py"],"regexTokens":[{"type":"all","pattern":".+"}],"styles":{"all":"#abcdef"}}`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "python.json"), []byte(override), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "toy.yml"), []byte(toyYAML), 0o644))

	reg := NewRegistry()
	report := Loader{Dir: dir}.LoadInto(reg)
	require.Empty(t, report.Skipped)

	py := reg.Get("Python")
	require.NotNil(t, py)
	require.Equal(t, filepath.Join(dir, "python.json"), py.Source)
	c, ok := py.StyleFor("all")
	require.True(t, ok)
	require.Equal(t, "#abcdef", c)

	require.NotNil(t, reg.Get("toy"))
	require.NotNil(t, reg.Get("go"), "other built-ins survive")
}

func TestLoader_MissingDirIsNotAnError(t *testing.T) {
	langs, report := Loader{Dir: filepath.Join(t.TempDir(), "nope")}.Load()
	require.NotEmpty(t, langs)
	require.Empty(t, report.Skipped)
}

func TestLoader_DirIsAFile(t *testing.T) {
	f := filepath.Join(t.TempDir(), "file.json")
	require.NoError(t, os.WriteFile(f, []byte("{}"), 0o644))

	_, report := Loader{Dir: f, NoBuiltins: true}.Load()
	require.Len(t, report.Skipped, 1)
}

func TestIsDefinitionFile(t *testing.T) {
	require.True(t, IsDefinitionFile("a.json"))
	require.True(t, IsDefinitionFile("a.YAML"))
	require.True(t, IsDefinitionFile("a.yml"))
	require.False(t, IsDefinitionFile("a.txt"))
	require.False(t, IsDefinitionFile("json"))
}
