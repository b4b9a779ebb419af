package log

import (
	"bytes"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestFormatEntry_Fields(t *testing.T) {
	ts := time.Date(2025, 12, 6, 10, 45, 0, 0, time.UTC)
	got := formatEntry(ts, LevelWarn, CatSyntax, "lex failed", []any{"lang", "go", "tokens", 0})
	require.Equal(t, "2025-12-06T10:45:00 [WARN] [syntax] lex failed lang=go tokens=0\n", got)
}

func TestFormatEntry_OddFieldCount(t *testing.T) {
	ts := time.Date(2025, 12, 6, 10, 45, 0, 0, time.UTC)
	got := formatEntry(ts, LevelInfo, CatConfig, "loaded", []any{"path"})
	require.Contains(t, got, "path=<missing>")
}

func TestLog_MinLevelFilters(t *testing.T) {
	var buf bytes.Buffer
	InitWriter(&buf)
	t.Cleanup(func() { defaultLogger = nil })

	SetMinLevel(LevelWarn)
	Debug(CatHighlight, "dropped")
	Warn(CatHighlight, "kept", "doc", "a")

	require.NotContains(t, buf.String(), "dropped")
	require.Contains(t, buf.String(), "[WARN] [highlight] kept doc=a")
}

func TestLog_DisabledWritesNothing(t *testing.T) {
	var buf bytes.Buffer
	InitWriter(&buf)
	t.Cleanup(func() { defaultLogger = nil })

	SetEnabled(false)
	Error(CatCache, "nope")
	require.Empty(t, buf.String())
}

func TestParseLevel(t *testing.T) {
	require.Equal(t, LevelInfo, ParseLevel("INFO"))
	require.Equal(t, LevelWarn, ParseLevel("warning"))
	require.Equal(t, LevelError, ParseLevel("error"))
	require.Equal(t, LevelDebug, ParseLevel("bogus"))
}
