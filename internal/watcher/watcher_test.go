package watcher_test

import (
	"fmt"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zjrosen/novic/internal/syntax"
	"github.com/zjrosen/novic/internal/watcher"
)

func start(t *testing.T, cfg watcher.Config) <-chan struct{} {
	t.Helper()
	w, err := watcher.New(cfg)
	require.NoError(t, err, "failed to create watcher")
	t.Cleanup(func() { _ = w.Stop() })

	onChange, err := w.Start()
	require.NoError(t, err, "failed to start watcher")
	return onChange
}

func TestWatcher_FileDebouncesMultipleWrites(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "main.go")
	require.NoError(t, os.WriteFile(path, []byte("package main"), 0644))

	onChange := start(t, watcher.Config{Path: path, DebounceDur: 50 * time.Millisecond})

	// Rapid writes should coalesce into single notification
	for i := 0; i < 10; i++ {
		require.NoError(t, os.WriteFile(path, []byte(fmt.Sprintf("package main // %d", i)), 0644))
		time.Sleep(10 * time.Millisecond)
	}

	select {
	case <-onChange:
	case <-time.After(500 * time.Millisecond):
		t.Fatal("expected notification but got timeout")
	}

	select {
	case <-onChange:
		t.Fatal("unexpected second notification")
	case <-time.After(100 * time.Millisecond):
	}
}

func TestWatcher_FileIgnoresSiblings(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "main.go")
	other := filepath.Join(dir, "other.txt")
	require.NoError(t, os.WriteFile(path, []byte("package main"), 0644))
	require.NoError(t, os.WriteFile(other, []byte("initial"), 0644))

	onChange := start(t, watcher.Config{Path: path, DebounceDur: 50 * time.Millisecond})

	require.NoError(t, os.WriteFile(other, []byte("changed"), 0644))

	select {
	case <-onChange:
		t.Fatal("should not notify for sibling files")
	case <-time.After(150 * time.Millisecond):
	}
}

func TestWatcher_FileReplacedByRename(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "main.go")
	require.NoError(t, os.WriteFile(path, []byte("v1"), 0644))

	onChange := start(t, watcher.Config{Path: path, DebounceDur: 30 * time.Millisecond})

	tmp := filepath.Join(dir, ".main.go.swp")
	require.NoError(t, os.WriteFile(tmp, []byte("v2"), 0644))
	require.NoError(t, os.Rename(tmp, path))

	select {
	case <-onChange:
	case <-time.After(500 * time.Millisecond):
		t.Fatal("expected notification after rename over the file")
	}
}

func TestWatcher_DirectoryFilter(t *testing.T) {
	dir := t.TempDir()
	onChange := start(t, watcher.Config{
		Path:        dir,
		Filter:      syntax.IsDefinitionFile,
		DebounceDur: 30 * time.Millisecond,
	})

	require.NoError(t, os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("x"), 0644))
	select {
	case <-onChange:
		t.Fatal("non-definition file must be ignored")
	case <-time.After(120 * time.Millisecond):
	}

	require.NoError(t, os.WriteFile(filepath.Join(dir, "toy.yaml"), []byte("name: toy"), 0644))
	select {
	case <-onChange:
	case <-time.After(500 * time.Millisecond):
		t.Fatal("expected notification for new definition file")
	}
}

func TestWatcher_MissingPath(t *testing.T) {
	_, err := watcher.New(watcher.DefaultConfig(filepath.Join(t.TempDir(), "missing")))
	require.Error(t, err)
}

func TestWatcher_Stop(t *testing.T) {
	dir := t.TempDir()
	w, err := watcher.New(watcher.DefaultConfig(dir))
	require.NoError(t, err)
	_, err = w.Start()
	require.NoError(t, err)

	done := make(chan struct{})
	go func() {
		assert.NoError(t, w.Stop(), "Stop returned error")
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(1 * time.Second):
		t.Fatal("Stop() timed out - possible deadlock")
	}
}

func TestDefaultConfig(t *testing.T) {
	cfg := watcher.DefaultConfig("/defs")
	assert.Equal(t, "/defs", cfg.Path)
	assert.Equal(t, 200*time.Millisecond, cfg.DebounceDur)
	assert.Nil(t, cfg.Filter)
}
