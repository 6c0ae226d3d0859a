package sync

import (
	"context"
	"log/slog"
	"path/filepath"

	semerrors "github.com/flupkede/codesearch/internal/errors"
	"github.com/flupkede/codesearch/internal/store"
)

// StartupRefresh implements spec.md §4.10.1. It never creates a
// database: if metadata.json is absent or unreadable, it fails with a
// NotFound error directing the user to an explicit bootstrap command.
func (c *Coordinator) StartupRefresh(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	metaPath := filepath.Join(c.cfg.Facade.DataDir(), "metadata.json")
	if _, err := store.LoadMetadataFile(metaPath); err != nil {
		return semerrors.NotFound("no database found at "+c.cfg.Facade.DataDir()+"; create one before starting the synchroniser", err)
	}

	w, err := c.cfg.Facade.AcquireWriter()
	if err != nil {
		return err
	}
	defer func() { _ = w.Release() }()

	return c.refreshLocked(ctx, w)
}

// refreshLocked is the shared body of StartupRefresh and BranchRefresh:
// walk, partition changed/unchanged/deleted, batch-delete, rebuild,
// re-index changed files, rebuild again, save File-Meta. Callers must
// already hold c.mu and a Writer.
func (c *Coordinator) refreshLocked(ctx context.Context, w *store.Writer) error {
	disk, err := walkProject(c.cfg.RootPath, c.cfg.maxFileSize())
	if err != nil {
		return err
	}

	diskSet := make(map[string]bool, len(disk))
	for _, f := range disk {
		diskSet[f.NormPath] = true
	}

	meta := w.FileMeta()
	meta.SetModel(c.cfg.ModelName, c.cfg.Dimensions)

	var changed []diskFile
	for _, f := range disk {
		if ctx.Err() != nil {
			return semerrors.Cancelled("startup refresh")
		}

		entry, ok := meta.Get(f.NormPath)
		if ok && entry.Size == f.Size && entry.ModTime.Equal(f.ModTime) {
			continue
		}

		hash, err := hashFile(f.NormPath)
		if err != nil {
			slog.Warn("sync: failed to hash file, skipping", slog.String("path", f.NormPath), slog.String("error", err.Error()))
			continue
		}
		if ok && entry.Hash == hash {
			// Content is unchanged even though size/mtime moved (a
			// checkout that restores identical content). Refresh the
			// cheap fields so the next pass can short-circuit again
			// without re-hashing.
			entry.Size = f.Size
			entry.ModTime = f.ModTime
			meta.Put(entry)
			continue
		}

		changed = append(changed, f)
	}

	deletedEntries := meta.FindDeletedFiles(diskSet)

	var idsToDelete []uint32
	for _, f := range changed {
		if e, ok := meta.Get(f.NormPath); ok {
			idsToDelete = append(idsToDelete, e.ChunkIDs...)
		}
	}
	for _, e := range deletedEntries {
		idsToDelete = append(idsToDelete, e.ChunkIDs...)
	}

	if len(idsToDelete) > 0 {
		if err := w.Chunks().DeleteBatch(idsToDelete); err != nil {
			return err
		}
		if err := w.Vectors().DeleteBatch(idsToDelete); err != nil {
			return err
		}
		if err := w.Lexical().Delete(idsToDelete); err != nil {
			return err
		}
		if err := w.Vectors().Rebuild(); err != nil {
			return err
		}
	}

	for _, e := range deletedEntries {
		meta.Delete(e.Path)
	}

	indexedAny := false
	for _, f := range changed {
		if ctx.Err() != nil {
			break
		}
		if err := c.indexOneFile(ctx, w, f.NormPath); err != nil {
			slog.Warn("sync: failed to index file", slog.String("path", f.NormPath), slog.String("error", err.Error()))
			continue
		}
		indexedAny = true
	}
	if indexedAny {
		if err := w.Vectors().Rebuild(); err != nil {
			return err
		}
	}

	return meta.Save()
}
