package watcher

import (
	"context"
	"fmt"
	"io/fs"
	"log/slog"
	"path/filepath"
	"sync"
	"time"
)

// pollingWatcher watches for file changes by periodically scanning the
// directory. Used as a fallback when fsnotify fails to initialize.
type pollingWatcher struct {
	interval  time.Duration
	fileState map[string]fileSnapshot
	events    chan rawEvent
	errors    chan error
	stopCh    chan struct{}
	mu        sync.RWMutex
	stopped   bool
	rootPath  string
}

type fileSnapshot struct {
	modTime time.Time
	size    int64
	isDir   bool
}

// rawEvent is an unfiltered, pre-debounce observation from either backend.
type rawEvent struct {
	Path      string
	Kind      Kind
	IsDir     bool
	Timestamp time.Time
}

func newPollingWatcher(interval time.Duration) *pollingWatcher {
	return &pollingWatcher{
		interval:  interval,
		fileState: make(map[string]fileSnapshot),
		events:    make(chan rawEvent, 100),
		errors:    make(chan error, 10),
		stopCh:    make(chan struct{}),
	}
}

func (p *pollingWatcher) Start(ctx context.Context, path string) error {
	absPath, err := filepath.Abs(path)
	if err != nil {
		return fmt.Errorf("resolve absolute path: %w", err)
	}
	p.rootPath = absPath

	if err := p.scan(); err != nil {
		return fmt.Errorf("perform initial scan: %w", err)
	}

	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			_ = p.Stop()
			return ctx.Err()
		case <-p.stopCh:
			return nil
		case <-ticker.C:
			if err := p.detectChanges(); err != nil {
				select {
				case p.errors <- err:
				default:
				}
			}
		}
	}
}

func (p *pollingWatcher) Stop() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.stopped {
		return nil
	}
	p.stopped = true
	close(p.stopCh)
	close(p.events)
	close(p.errors)
	return nil
}

func (p *pollingWatcher) Events() <-chan rawEvent {
	return p.events
}

func (p *pollingWatcher) Errors() <-chan error {
	return p.errors
}

func (p *pollingWatcher) scan() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	return filepath.WalkDir(p.rootPath, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return nil
		}
		relPath, err := filepath.Rel(p.rootPath, path)
		if err != nil || relPath == "." {
			return nil
		}
		info, err := d.Info()
		if err != nil {
			return nil
		}
		p.fileState[relPath] = fileSnapshot{
			modTime: info.ModTime(),
			size:    info.Size(),
			isDir:   d.IsDir(),
		}
		return nil
	})
}

func (p *pollingWatcher) detectChanges() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	currentFiles := make(map[string]fileSnapshot)

	err := filepath.WalkDir(p.rootPath, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return nil
		}
		relPath, err := filepath.Rel(p.rootPath, path)
		if err != nil || relPath == "." {
			return nil
		}
		info, err := d.Info()
		if err != nil {
			return nil
		}
		snapshot := fileSnapshot{modTime: info.ModTime(), size: info.Size(), isDir: d.IsDir()}
		currentFiles[relPath] = snapshot

		if prev, exists := p.fileState[relPath]; !exists {
			p.emitEvent(rawEvent{Path: relPath, Kind: Modified, IsDir: d.IsDir(), Timestamp: time.Now()})
		} else if prev.modTime != snapshot.modTime || prev.size != snapshot.size {
			p.emitEvent(rawEvent{Path: relPath, Kind: Modified, IsDir: d.IsDir(), Timestamp: time.Now()})
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("walk directory for changes: %w", err)
	}

	for path, snapshot := range p.fileState {
		if _, exists := currentFiles[path]; !exists {
			p.emitEvent(rawEvent{Path: path, Kind: Deleted, IsDir: snapshot.isDir, Timestamp: time.Now()})
		}
	}

	p.fileState = currentFiles
	return nil
}

func (p *pollingWatcher) emitEvent(event rawEvent) {
	if p.stopped {
		return
	}
	select {
	case p.events <- event:
	default:
		slog.Warn("watcher: polling buffer full, dropping event",
			slog.String("path", event.Path),
			slog.String("kind", event.Kind.String()))
	}
}
