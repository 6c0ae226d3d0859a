package sync

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/flupkede/codesearch/internal/chunk"
	semerrors "github.com/flupkede/codesearch/internal/errors"
	"github.com/flupkede/codesearch/internal/store"
	"github.com/flupkede/codesearch/internal/watcher"
)

// removeFileLocked deletes normPath's owned chunks from every store and
// its File-Meta entry, returning the ids removed. It is a no-op,
// returning (nil, nil), for an untracked path — mirroring the teacher's
// removeFile, which treats "file not in the index" as success.
func (c *Coordinator) removeFileLocked(w *store.Writer, normPath string) ([]uint32, error) {
	entry, ok := w.FileMeta().Get(normPath)
	if !ok {
		return nil, nil
	}

	ids := entry.ChunkIDs
	if len(ids) > 0 {
		if err := w.Chunks().DeleteBatch(ids); err != nil {
			return nil, err
		}
		if err := w.Vectors().DeleteBatch(ids); err != nil {
			return nil, err
		}
		if err := w.Lexical().Delete(ids); err != nil {
			return nil, err
		}
	}
	w.FileMeta().Delete(normPath)
	return ids, nil
}

// indexOneFile re-chunks, embeds and inserts a single file, after first
// removing whatever it previously owned (idempotent pre-clear, grounded
// on the teacher's indexFile calling c.removeFile unconditionally before
// re-inserting). Callers are responsible for calling VectorStore.Rebuild
// once after a batch of these calls, per spec.md §4.10.1 step 8.
func (c *Coordinator) indexOneFile(ctx context.Context, w *store.Writer, normPath string) error {
	content, err := os.ReadFile(normPath)
	if err != nil {
		return semerrors.IOError("failed to read "+normPath, err)
	}
	if len(content) == 0 {
		return nil
	}
	if int64(len(content)) > c.cfg.maxFileSize() {
		slog.Warn("sync: skipping oversized file", slog.String("path", normPath), slog.Int("size", len(content)))
		return nil
	}
	if isBinaryContent(content) {
		return nil
	}

	if _, err := c.removeFileLocked(w, normPath); err != nil {
		return err
	}

	relPath, err := filepath.Rel(c.cfg.RootPath, normPath)
	if err != nil {
		relPath = normPath
	}

	chunker, language, ok := c.selectChunker(normPath)
	if !ok {
		return nil
	}

	info, err := os.Stat(normPath)
	if err != nil {
		return semerrors.IOError("failed to stat "+normPath, err)
	}
	hash := sha256Hex(content)
	entry := &store.FileMetaEntry{
		Path:    normPath,
		Hash:    hash,
		ModTime: info.ModTime(),
		Size:    info.Size(),
	}

	chunks, err := chunker.Chunk(ctx, &chunk.FileInput{Path: relPath, Content: content, Language: language})
	if err != nil {
		slog.Warn("sync: chunking failed, skipping file", slog.String("path", relPath), slog.String("error", err.Error()))
		return nil
	}

	if len(chunks) == 0 {
		// spec.md §4.10.1: files yielding zero chunks are still tracked,
		// with empty chunk_ids, so a later refresh doesn't re-process them.
		w.FileMeta().Put(entry)
		return nil
	}

	storeChunks := make([]*store.Chunk, len(chunks))
	vectors := make([][]float32, len(chunks))
	var missIdx []int
	var missTexts []string

	for i, ch := range chunks {
		sc := chunk.ToStoreChunk(ch)
		sc.Path = normPath
		storeChunks[i] = sc

		contentHash := sha256Hex([]byte(ch.Content))
		if v, found, err := w.EmbedCache().Get(contentHash); err == nil && found {
			vectors[i] = v
			continue
		}
		missIdx = append(missIdx, i)
		missTexts = append(missTexts, ch.Content)
	}

	if len(missTexts) > 0 {
		embedded, err := c.cfg.Embedder.EmbedBatch(ctx, missTexts)
		if err != nil {
			// spec.md §7: EmbeddingError drops the chunk for this run
			// rather than inserting a partial/zero vector. The file stays
			// unindexed (its old entries were already removed above) and
			// will be retried on the next refresh.
			slog.Warn("sync: embedding failed, dropping file for this run",
				slog.String("path", relPath), slog.String("error", err.Error()))
			return nil
		}
		for j, idx := range missIdx {
			vectors[idx] = embedded[j]
			contentHash := sha256Hex([]byte(chunks[idx].Content))
			if err := w.EmbedCache().Put(contentHash, embedded[j]); err != nil {
				slog.Warn("sync: failed to persist embedding cache entry", slog.String("error", err.Error()))
			}
		}
	}

	nextID, err := w.Chunks().NextID()
	if err != nil {
		return err
	}
	ids := make([]uint32, len(storeChunks))
	for i := range storeChunks {
		storeChunks[i].ID = nextID + uint32(i)
		ids[i] = storeChunks[i].ID
	}

	if err := w.Chunks().PutBatch(storeChunks); err != nil {
		return err
	}
	if err := w.Vectors().AddBatch(ids, vectors); err != nil {
		return err
	}
	if err := w.Lexical().Index(storeChunks); err != nil {
		return err
	}

	entry.ChunkIDs = ids
	w.FileMeta().Put(entry)
	return nil
}

// selectChunker routes a path to the markdown or code chunker, matching
// the teacher's content-type-based chunker selection in indexFile.
func (c *Coordinator) selectChunker(normPath string) (chunk.Chunker, string, bool) {
	if watcher.IsMarkdownPath(normPath) {
		return c.cfg.MDChunker, "markdown", true
	}
	ext := filepath.Ext(normPath)
	if lc, ok := c.cfg.Languages.GetByExtension(ext); ok {
		return c.cfg.CodeChunker, lc.Name, true
	}
	return nil, "", false
}
