package sync

import (
	"context"
	"log/slog"
	"time"
)

// InconsistencyKind names the four ways the Chunk Store, Vector Store
// and Lexical Index can disagree, mirroring the teacher's
// InconsistencyType enum.
type InconsistencyKind string

const (
	OrphanVector   InconsistencyKind = "orphan_vector"
	OrphanLexical  InconsistencyKind = "orphan_lexical"
	MissingVector  InconsistencyKind = "missing_vector"
	MissingLexical InconsistencyKind = "missing_lexical"
)

// Inconsistency is one chunk id found in one store but not another.
type Inconsistency struct {
	Kind    InconsistencyKind
	ChunkID uint32
}

// RepairReport summarises a Repair run.
type RepairReport struct {
	Checked         int
	Inconsistencies []Inconsistency
	Duration        time.Duration
}

// Repair cross-checks the Chunk Store (the source of truth for which
// chunk ids exist) against the Vector Store and Lexical Index, deletes
// orphans found in the latter two, and reports — without
// re-inserting — any chunk missing its vector or lexical entry, since
// repairing that would require re-reading and re-embedding the owning
// file. Grounded on the teacher's ConsistencyChecker.Check/Repair.
func (c *Coordinator) Repair(ctx context.Context) (*RepairReport, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	start := time.Now()

	w, err := c.cfg.Facade.AcquireWriter()
	if err != nil {
		return nil, err
	}
	defer func() { _ = w.Release() }()

	chunkIDs, err := w.Chunks().AllIDs()
	if err != nil {
		return nil, err
	}
	vectorIDs, err := w.Vectors().AllIDs()
	if err != nil {
		return nil, err
	}
	lexicalIDs, err := w.Lexical().AllIDs()
	if err != nil {
		return nil, err
	}

	chunkSet := toSet(chunkIDs)
	vectorSet := toSet(vectorIDs)
	lexicalSet := toSet(lexicalIDs)

	var issues []Inconsistency
	var orphanVectors, orphanLexical []uint32

	for id := range vectorSet {
		if !chunkSet[id] {
			issues = append(issues, Inconsistency{Kind: OrphanVector, ChunkID: id})
			orphanVectors = append(orphanVectors, id)
		}
	}
	for id := range lexicalSet {
		if !chunkSet[id] {
			issues = append(issues, Inconsistency{Kind: OrphanLexical, ChunkID: id})
			orphanLexical = append(orphanLexical, id)
		}
	}
	for id := range chunkSet {
		if !vectorSet[id] {
			issues = append(issues, Inconsistency{Kind: MissingVector, ChunkID: id})
		}
		if !lexicalSet[id] {
			issues = append(issues, Inconsistency{Kind: MissingLexical, ChunkID: id})
		}
	}

	if len(orphanVectors) > 0 {
		if err := w.Vectors().DeleteBatch(orphanVectors); err != nil {
			slog.Warn("sync: failed to delete orphan vectors", slog.String("error", err.Error()))
		} else if err := w.Vectors().Rebuild(); err != nil {
			slog.Warn("sync: failed to rebuild vector index after repair", slog.String("error", err.Error()))
		}
	}
	if len(orphanLexical) > 0 {
		if err := w.Lexical().Delete(orphanLexical); err != nil {
			slog.Warn("sync: failed to delete orphan lexical entries", slog.String("error", err.Error()))
		}
	}

	for _, issue := range issues {
		if issue.Kind == MissingVector || issue.Kind == MissingLexical {
			slog.Warn("sync: chunk missing from an index, not re-inserted",
				slog.String("kind", string(issue.Kind)), slog.Any("chunk_id", issue.ChunkID))
		}
	}

	return &RepairReport{
		Checked:         len(chunkIDs),
		Inconsistencies: issues,
		Duration:        time.Since(start),
	}, nil
}

func toSet(ids []uint32) map[uint32]bool {
	s := make(map[uint32]bool, len(ids))
	for _, id := range ids {
		s[id] = true
	}
	return s
}
