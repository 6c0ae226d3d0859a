package watcher

import (
	"context"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/flupkede/codesearch/internal/pathutil"
)

// FSWatcher implements Watcher using fsnotify as the primary mechanism
// with polling as a fallback, adapted from the teacher's HybridWatcher.
type FSWatcher struct {
	fsWatcher   *fsnotify.Watcher
	pollWatcher *pollingWatcher
	useFsnotify bool
	debouncer   *debouncer
	filter      *filter

	queue   []FileEvent
	queueMu sync.Mutex

	stopCh         chan struct{}
	rootPath       string
	opts           Options
	mu             sync.RWMutex
	started        bool
	stopped        bool
	droppedBatches atomic.Uint64
}

var _ Watcher = (*FSWatcher)(nil)

// New creates a watcher rooted at root. It attempts fsnotify first and
// falls back to polling if fsnotify fails to initialize.
func New(root string, opts Options) (*FSWatcher, error) {
	opts = opts.WithDefaults()

	absRoot, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("resolve absolute path: %w", err)
	}

	w := &FSWatcher{
		debouncer: newDebouncer(opts.DebounceWindow),
		filter:    newFilter(opts.ExtraExcludeDirs),
		stopCh:    make(chan struct{}),
		rootPath:  absRoot,
		opts:      opts,
	}

	if fsw, err := fsnotify.NewWatcher(); err == nil {
		w.fsWatcher = fsw
		w.useFsnotify = true
	} else {
		w.useFsnotify = false
		w.pollWatcher = newPollingWatcher(opts.PollInterval)
	}

	return w, nil
}

// Start begins watching the root directory. It blocks for the lifetime of
// the watch (until ctx is cancelled or Stop is called); callers typically
// run it in its own goroutine.
func (w *FSWatcher) Start(ctx context.Context) error {
	w.mu.Lock()
	w.started = true
	w.mu.Unlock()

	go w.forwardDebouncedEvents(ctx)

	if w.useFsnotify {
		return w.startFsnotify(ctx)
	}
	return w.startPolling(ctx)
}

func (w *FSWatcher) startFsnotify(ctx context.Context) error {
	if err := w.addRecursive(w.rootPath); err != nil {
		return fmt.Errorf("add directories to watcher: %w", err)
	}

	for {
		select {
		case <-ctx.Done():
			_ = w.Stop()
			return ctx.Err()
		case <-w.stopCh:
			return nil
		case event, ok := <-w.fsWatcher.Events:
			if !ok {
				return nil
			}
			w.handleFsnotifyEvent(event)
		case err, ok := <-w.fsWatcher.Errors:
			if !ok {
				return nil
			}
			slog.Warn("watcher: fsnotify error", slog.String("error", err.Error()))
		}
	}
}

func (w *FSWatcher) startPolling(ctx context.Context) error {
	go func() {
		for {
			select {
			case <-ctx.Done():
				return
			case <-w.stopCh:
				return
			case raw, ok := <-w.pollWatcher.Events():
				if !ok {
					return
				}
				w.handleRawEvent(raw.Path, raw.Kind, raw.IsDir)
			case err, ok := <-w.pollWatcher.Errors():
				if !ok {
					return
				}
				slog.Warn("watcher: polling error", slog.String("error", err.Error()))
			}
		}
	}()

	return w.pollWatcher.Start(ctx, w.rootPath)
}

func (w *FSWatcher) handleFsnotifyEvent(event fsnotify.Event) {
	relPath, err := filepath.Rel(w.rootPath, event.Name)
	if err != nil {
		relPath = event.Name
	}

	var kind Kind
	switch {
	case event.Op&fsnotify.Create != 0:
		kind = Modified
		if info, statErr := os.Stat(event.Name); statErr == nil && info.IsDir() {
			_ = w.fsWatcher.Add(event.Name)
		}
	case event.Op&fsnotify.Write != 0:
		kind = Modified
	case event.Op&fsnotify.Remove != 0:
		kind = Deleted
	case event.Op&fsnotify.Rename != 0:
		kind = Deleted // fsnotify reports rename as remove-at-old-path + create-at-new-path
	case event.Op&fsnotify.Chmod != 0:
		return
	default:
		return
	}

	isDir := false
	if info, statErr := os.Stat(event.Name); statErr == nil {
		isDir = info.IsDir()
	}
	w.handleRawEvent(relPath, kind, isDir)
}

func (w *FSWatcher) handleRawEvent(relPath string, kind Kind, isDir bool) {
	if relPath == "." || relPath == "" {
		return
	}

	absPath := filepath.Join(w.rootPath, relPath)

	switch kind {
	case Deleted:
		if !w.filter.allowRemove(relPath) {
			return
		}
	default:
		if !w.filter.allowCreateOrModify(absPath, relPath) {
			return
		}
	}

	w.debouncer.add(FileEvent{
		Path:      pathutil.Normalize(w.rootPath, relPath),
		Kind:      kind,
		IsDir:     isDir,
		Timestamp: time.Now(),
	})
}

func (w *FSWatcher) forwardDebouncedEvents(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case <-w.stopCh:
			return
		case events, ok := <-w.debouncer.Output():
			if !ok {
				return
			}
			if len(events) == 0 {
				continue
			}
			w.enqueue(events)
		}
	}
}

func (w *FSWatcher) enqueue(events []FileEvent) {
	w.mu.RLock()
	stopped := w.stopped
	w.mu.RUnlock()
	if stopped {
		return
	}

	w.queueMu.Lock()
	defer w.queueMu.Unlock()
	if len(w.queue) >= w.opts.EventBufferSize {
		count := w.droppedBatches.Add(1)
		slog.Warn("watcher: event buffer full, dropping batch",
			slog.Int("batch_size", len(events)),
			slog.Uint64("total_dropped_batches", count))
		return
	}
	w.queue = append(w.queue, events...)
}

// PollEvents drains and returns all events queued since the last call.
// Non-blocking; returns nil if nothing is pending.
func (w *FSWatcher) PollEvents() []FileEvent {
	w.queueMu.Lock()
	defer w.queueMu.Unlock()
	if len(w.queue) == 0 {
		return nil
	}
	drained := w.queue
	w.queue = nil
	return drained
}

// IsStarted reports whether Start has been called.
func (w *FSWatcher) IsStarted() bool {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.started
}

// addRecursive adds all directories under root to the fsnotify watcher,
// skipping excluded directories.
func (w *FSWatcher) addRecursive(root string) error {
	return filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return nil
		}
		if !d.IsDir() {
			return nil
		}
		relPath, _ := filepath.Rel(w.rootPath, path)
		if relPath == "." {
			return w.fsWatcher.Add(path)
		}
		if w.filter.isExcludedDir(d.Name()) {
			return filepath.SkipDir
		}
		return w.fsWatcher.Add(path)
	})
}

// Stop stops the watcher and releases resources. Safe to call multiple
// times.
func (w *FSWatcher) Stop() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.stopped {
		return nil
	}
	w.stopped = true
	close(w.stopCh)

	w.debouncer.Stop()

	if w.useFsnotify && w.fsWatcher != nil {
		_ = w.fsWatcher.Close()
	}
	if w.pollWatcher != nil {
		_ = w.pollWatcher.Stop()
	}
	return nil
}

// DroppedBatches returns the number of event batches dropped due to
// buffer overflow.
func (w *FSWatcher) DroppedBatches() uint64 {
	return w.droppedBatches.Load()
}

// WatcherType returns "fsnotify" or "polling", whichever backend is active.
func (w *FSWatcher) WatcherType() string {
	if w.useFsnotify {
		return "fsnotify"
	}
	return "polling"
}

// RootPath returns the root path being watched.
func (w *FSWatcher) RootPath() string {
	return w.rootPath
}
