package watcher

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew_UsesFsnotifyByDefault(t *testing.T) {
	w, err := New(t.TempDir(), DefaultOptions())
	require.NoError(t, err)
	defer w.Stop()

	assert.Equal(t, "fsnotify", w.WatcherType())
}

func TestFSWatcher_IsStarted(t *testing.T) {
	w, err := New(t.TempDir(), Options{DebounceWindow: 10 * time.Millisecond})
	require.NoError(t, err)
	defer w.Stop()

	assert.False(t, w.IsStarted())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go w.Start(ctx)

	require.Eventually(t, w.IsStarted, time.Second, 5*time.Millisecond)
}

func TestFSWatcher_DetectsNewFile(t *testing.T) {
	root := t.TempDir()
	w, err := New(root, Options{DebounceWindow: 10 * time.Millisecond})
	require.NoError(t, err)
	defer w.Stop()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go w.Start(ctx)

	require.Eventually(t, w.IsStarted, time.Second, 5*time.Millisecond)

	path := filepath.Join(root, "main.go")
	require.NoError(t, os.WriteFile(path, []byte("package main\n"), 0o644))

	var events []FileEvent
	require.Eventually(t, func() bool {
		events = append(events, w.PollEvents()...)
		return len(events) > 0
	}, 2*time.Second, 20*time.Millisecond)

	assert.Equal(t, Modified, events[0].Kind)
}

func TestFSWatcher_IgnoresExcludedDir(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(root, "node_modules"), 0o755))

	w, err := New(root, Options{DebounceWindow: 10 * time.Millisecond})
	require.NoError(t, err)
	defer w.Stop()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go w.Start(ctx)
	require.Eventually(t, w.IsStarted, time.Second, 5*time.Millisecond)

	require.NoError(t, os.WriteFile(filepath.Join(root, "node_modules", "pkg.js"), []byte("x"), 0o644))

	time.Sleep(200 * time.Millisecond)
	assert.Empty(t, w.PollEvents())
}

func TestFSWatcher_DetectsDeletion(t *testing.T) {
	root := t.TempDir()
	path := filepath.Join(root, "main.go")
	require.NoError(t, os.WriteFile(path, []byte("package main\n"), 0o644))

	w, err := New(root, Options{DebounceWindow: 10 * time.Millisecond})
	require.NoError(t, err)
	defer w.Stop()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go w.Start(ctx)
	require.Eventually(t, w.IsStarted, time.Second, 5*time.Millisecond)

	require.NoError(t, os.Remove(path))

	var events []FileEvent
	require.Eventually(t, func() bool {
		events = append(events, w.PollEvents()...)
		return len(events) > 0
	}, 2*time.Second, 20*time.Millisecond)

	assert.Equal(t, Deleted, events[0].Kind)
}

func TestFSWatcher_StopIsIdempotent(t *testing.T) {
	w, err := New(t.TempDir(), DefaultOptions())
	require.NoError(t, err)

	require.NoError(t, w.Stop())
	require.NoError(t, w.Stop())
}
