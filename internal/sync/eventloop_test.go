package sync

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/flupkede/codesearch/internal/pathutil"
	"github.com/flupkede/codesearch/internal/watcher"
)

// fakeWatcher lets tests inject raw events without a real fsnotify
// backend, mirroring how the teacher's coordinator tests drive
// HandleEvents directly with hand-built watcher.FileEvent values.
type fakeWatcher struct {
	mu     sync.Mutex
	events []watcher.FileEvent
}

func (f *fakeWatcher) Start(context.Context) error { return nil }
func (f *fakeWatcher) IsStarted() bool             { return true }
func (f *fakeWatcher) Stop() error                 { return nil }

func (f *fakeWatcher) push(ev watcher.FileEvent) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.events = append(f.events, ev)
}

func (f *fakeWatcher) PollEvents() []watcher.FileEvent {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := f.events
	f.events = nil
	return out
}

func TestFoldEvent_ModifiedThenDeletedCancelsOut(t *testing.T) {
	root := "/project"
	toIndex := make(map[string]bool)
	toRemove := make(map[string]bool)

	foldEvent(watcher.FileEvent{Kind: watcher.Modified, Path: "a.go"}, root, toIndex, toRemove)
	assert.True(t, toIndex[pathutil.Normalize(root, "a.go")])

	foldEvent(watcher.FileEvent{Kind: watcher.Deleted, Path: "a.go"}, root, toIndex, toRemove)
	assert.False(t, toIndex[pathutil.Normalize(root, "a.go")])
	assert.True(t, toRemove[pathutil.Normalize(root, "a.go")])
}

func TestFoldEvent_Renamed(t *testing.T) {
	root := "/project"
	toIndex := make(map[string]bool)
	toRemove := make(map[string]bool)

	foldEvent(watcher.FileEvent{Kind: watcher.Renamed, OldPath: "old.go", Path: "new.go"}, root, toIndex, toRemove)

	assert.True(t, toRemove[pathutil.Normalize(root, "old.go")])
	assert.True(t, toIndex[pathutil.Normalize(root, "new.go")])
}

func TestRun_FlushesAfterDebounceAndIndexesFile(t *testing.T) {
	coord, facade, root := setupTestCoordinator(t)
	writeMetadata(t, facade, coord.cfg.ModelName)

	path := filepath.Join(root, "main.go")
	require.NoError(t, os.WriteFile(path, []byte("package main\nfunc a(){}\n"), 0o644))

	fw := &fakeWatcher{}
	coord.cfg.Watcher = fw
	coord.cfg.PollInterval = 20 * time.Millisecond
	coord.cfg.FlushTimeout = 40 * time.Millisecond

	fw.push(watcher.FileEvent{Kind: watcher.Modified, Path: path, Timestamp: time.Now()})

	ctx, cancel := context.WithTimeout(context.Background(), 500*time.Millisecond)
	defer cancel()

	done := make(chan error, 1)
	go func() { done <- coord.Run(ctx) }()

	require.Eventually(t, func() bool {
		reader := facade.NewReader()
		count, err := reader.Chunks().Count()
		return err == nil && count > 0
	}, 400*time.Millisecond, 10*time.Millisecond)

	cancel()
	<-done
}

func TestFlush_DirectoryRemovalExpandsToTrackedFiles(t *testing.T) {
	coord, facade, root := setupTestCoordinator(t)
	writeMetadata(t, facade, coord.cfg.ModelName)

	subdir := filepath.Join(root, "pkg")
	require.NoError(t, os.MkdirAll(subdir, 0o755))
	filePath := filepath.Join(subdir, "a.go")
	require.NoError(t, os.WriteFile(filePath, []byte("package pkg\nfunc a(){}\n"), 0o644))
	require.NoError(t, coord.StartupRefresh(context.Background()))

	reader := facade.NewReader()
	before, err := reader.Chunks().Count()
	require.NoError(t, err)
	require.Greater(t, before, 0)

	require.NoError(t, os.RemoveAll(subdir))

	toRemove := map[string]bool{pathutil.Normalize(root, "pkg"): true}
	require.NoError(t, coord.flush(context.Background(), map[string]bool{}, toRemove))

	after, err := reader.Chunks().Count()
	require.NoError(t, err)
	assert.Equal(t, 0, after)

	_, ok := reader.FileMeta().Get(pathutil.Normalize(root, "pkg/a.go"))
	assert.False(t, ok)
}
