package sync

import (
	"context"
	"log/slog"
	"path/filepath"
	"strings"
	"time"

	"github.com/flupkede/codesearch/internal/pathutil"
	"github.com/flupkede/codesearch/internal/watcher"
)

// Run drives the file-event loop from spec.md §4.10.2: it polls the
// File Watcher and Head Watcher on a fixed tick, folds raw events into
// deduplicating to_index/to_remove sets, and flushes them to the
// stores once the buffers are non-empty and the debounce window has
// elapsed since the last observed event. It also polls the Head
// Watcher each tick; a HEAD change supersedes any pending buffers with
// a full BranchRefresh. Run blocks until ctx is cancelled.
func (c *Coordinator) Run(ctx context.Context) error {
	ticker := time.NewTicker(c.cfg.pollInterval())
	defer ticker.Stop()

	toIndex := make(map[string]bool)
	toRemove := make(map[string]bool)
	var lastEventTime time.Time

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
		}

		if c.cfg.HeadWatcher != nil {
			change, err := c.cfg.HeadWatcher.Check()
			if err != nil {
				slog.Warn("sync: head watcher check failed", slog.String("error", err.Error()))
			} else if change != nil {
				toIndex = make(map[string]bool)
				toRemove = make(map[string]bool)
				if err := c.BranchRefresh(ctx); err != nil {
					slog.Error("sync: branch refresh failed", slog.String("error", err.Error()))
				}
				continue
			}
		}

		events := c.cfg.Watcher.PollEvents()
		if len(events) > 0 {
			lastEventTime = time.Now()
		}
		for _, ev := range events {
			foldEvent(ev, c.cfg.RootPath, toIndex, toRemove)
		}

		if len(toIndex) == 0 && len(toRemove) == 0 {
			continue
		}
		if time.Since(lastEventTime) < c.cfg.flushTimeout() {
			continue
		}

		if err := c.flush(ctx, toIndex, toRemove); err != nil {
			slog.Error("sync: flush failed", slog.String("error", err.Error()))
		}
		toIndex = make(map[string]bool)
		toRemove = make(map[string]bool)
	}
}

// foldEvent applies spec.md §4.10.2's fold rule for a single raw
// FileEvent onto the pending sets: Modified adds to to_index and drops
// from to_remove; Deleted is the reverse; Renamed is treated as
// Deleted(old) followed by Modified(new).
func foldEvent(ev watcher.FileEvent, root string, toIndex, toRemove map[string]bool) {
	switch ev.Kind {
	case watcher.Modified:
		p := pathutil.Normalize(root, ev.Path)
		delete(toRemove, p)
		toIndex[p] = true
	case watcher.Deleted:
		p := pathutil.Normalize(root, ev.Path)
		delete(toIndex, p)
		toRemove[p] = true
	case watcher.Renamed:
		oldP := pathutil.Normalize(root, ev.OldPath)
		newP := pathutil.Normalize(root, ev.Path)
		delete(toIndex, oldP)
		toRemove[oldP] = true
		delete(toRemove, newP)
		toIndex[newP] = true
	}
}

// flush applies the pending sets to the stores under one Writer
// acquisition: removals first (expanding each removed path to every
// tracked file nested under it, for a removed directory), then
// insertions, each phase followed by its own VectorStore.Rebuild per
// spec.md §4.10.2.
func (c *Coordinator) flush(ctx context.Context, toIndex, toRemove map[string]bool) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	w, err := c.cfg.Facade.AcquireWriter()
	if err != nil {
		return err
	}
	defer func() { _ = w.Release() }()

	removedAny := false
	if len(toRemove) > 0 {
		tracked := w.FileMeta().TrackedFiles()
		expanded := make(map[string]bool, len(toRemove))
		for p := range toRemove {
			expanded[p] = true
			prefix := p + "/"
			for _, t := range tracked {
				if strings.HasPrefix(t, prefix) {
					expanded[t] = true
				}
			}
		}
		for p := range expanded {
			ids, err := c.removeFileLocked(w, p)
			if err != nil {
				slog.Warn("sync: failed to remove file", slog.String("path", p), slog.String("error", err.Error()))
				continue
			}
			if len(ids) > 0 {
				removedAny = true
			}
		}
	}
	if removedAny {
		if err := w.Vectors().Rebuild(); err != nil {
			return err
		}
	}

	indexedAny := false
	for p := range toIndex {
		if ctx.Err() != nil {
			break
		}
		if !watcher.IsIndexablePath(relOrSelf(c.cfg.RootPath, p)) {
			continue
		}
		if err := c.indexOneFile(ctx, w, p); err != nil {
			slog.Warn("sync: failed to index file", slog.String("path", p), slog.String("error", err.Error()))
			continue
		}
		indexedAny = true
	}
	if indexedAny {
		if err := w.Vectors().Rebuild(); err != nil {
			return err
		}
	}

	return w.FileMeta().Save()
}

func relOrSelf(root, path string) string {
	rel, err := filepath.Rel(root, path)
	if err != nil {
		return path
	}
	return rel
}
