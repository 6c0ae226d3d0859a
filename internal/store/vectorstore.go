package store

import (
	"encoding/binary"
	"math"
	"sync"
	"sync/atomic"

	"github.com/coder/hnsw"
	"go.etcd.io/bbolt"

	semerrors "github.com/flupkede/codesearch/internal/errors"
)

var vectorsBucket = []byte("vectors")

// VectorIndexState is the three-state machine a VectorStore moves
// through (spec §4.2): Empty until the first vector is added, Dirty
// while writes have happened since the last rebuild, Indexed once the
// in-memory ANN graph reflects every persisted vector.
type VectorIndexState int

const (
	VectorIndexEmpty VectorIndexState = iota
	VectorIndexDirty
	VectorIndexIndexed
)

// VectorStore persists raw embeddings keyed by chunk id in the same
// bbolt environment as the chunk store, and maintains an in-memory
// coder/hnsw graph for approximate nearest-neighbor search. The graph
// is rebuilt wholesale and swapped in atomically (Rebuild) rather than
// mutated node-by-node, sidestepping coder/hnsw's documented issues
// with deleting the last node from a graph in place.
type VectorStore struct {
	mu         sync.RWMutex
	db         *bbolt.DB
	dimensions int

	graph atomic.Pointer[hnsw.Graph[uint32]]
	state atomic.Int32
}

// OpenVectorStore opens the vectors bucket inside an already-open bbolt
// environment (the same one backing the ChunkStore, per spec §6's single
// data.mdb layout) and builds the initial ANN graph from whatever is
// already persisted.
func OpenVectorStore(db *bbolt.DB, dimensions int) (*VectorStore, error) {
	err := db.Update(func(tx *bbolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(vectorsBucket)
		return err
	})
	if err != nil {
		return nil, semerrors.IOError("failed to initialize vectors bucket", err)
	}

	vs := &VectorStore{db: db, dimensions: dimensions}
	if err := vs.Rebuild(); err != nil {
		return nil, err
	}
	return vs, nil
}

func newGraph() *hnsw.Graph[uint32] {
	g := hnsw.NewGraph[uint32]()
	g.Distance = hnsw.CosineDistance
	g.M = 16
	g.EfSearch = 20
	g.Ml = 0.25
	return g
}

// Add persists a vector for chunkID and marks the store dirty. It does
// not touch the in-memory graph; callers must call Rebuild before the
// new vector is searchable (spec §4.2's "search committed vectors only"
// invariant).
func (s *VectorStore) Add(chunkID uint32, vector []float32) error {
	return s.AddBatch([]uint32{chunkID}, [][]float32{vector})
}

// AddBatch persists multiple vectors in a single transaction.
func (s *VectorStore) AddBatch(chunkIDs []uint32, vectors [][]float32) error {
	if len(chunkIDs) != len(vectors) {
		return semerrors.Invalid("chunk id and vector count mismatch", nil)
	}
	if len(chunkIDs) == 0 {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	for _, v := range vectors {
		if len(v) != s.dimensions {
			return semerrors.DimensionMismatch(s.dimensions, len(v))
		}
	}

	err := s.db.Update(func(tx *bbolt.Tx) error {
		b := tx.Bucket(vectorsBucket)
		for i, id := range chunkIDs {
			buf, err := encodeVector(vectors[i])
			if err != nil {
				return err
			}
			if err := b.Put(chunkKey(id), buf); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return semerrors.IOError("vector store write failed", err)
	}

	s.state.Store(int32(VectorIndexDirty))
	return nil
}

// Delete removes a chunk's vector. It too only takes effect in search
// results after Rebuild.
func (s *VectorStore) Delete(chunkID uint32) error {
	return s.DeleteBatch([]uint32{chunkID})
}

// DeleteBatch removes multiple vectors in a single transaction.
func (s *VectorStore) DeleteBatch(chunkIDs []uint32) error {
	if len(chunkIDs) == 0 {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	err := s.db.Update(func(tx *bbolt.Tx) error {
		b := tx.Bucket(vectorsBucket)
		for _, id := range chunkIDs {
			if err := b.Delete(chunkKey(id)); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return semerrors.IOError("vector store delete failed", err)
	}

	s.state.Store(int32(VectorIndexDirty))
	return nil
}

// Rebuild reads every persisted vector and constructs a fresh ANN graph,
// then swaps it in atomically. Readers mid-search continue against the
// old graph pointer until they next call Search.
func (s *VectorStore) Rebuild() error {
	s.mu.RLock()
	graph := newGraph()
	count := 0
	err := s.db.View(func(tx *bbolt.Tx) error {
		c := tx.Bucket(vectorsBucket).Cursor()
		for k, v := c.First(); k != nil; k, v = c.Next() {
			vec, err := decodeVector(v)
			if err != nil {
				return err
			}
			normalizeVectorInPlace(vec)
			graph.Add(hnsw.MakeNode(chunkKeyToID(k), vec))
			count++
		}
		return nil
	})
	s.mu.RUnlock()
	if err != nil {
		return semerrors.IOError("failed to rebuild vector index", err)
	}

	s.graph.Store(graph)
	if count == 0 {
		s.state.Store(int32(VectorIndexEmpty))
	} else {
		s.state.Store(int32(VectorIndexIndexed))
	}
	return nil
}

// State reports where the store is in the Empty/Dirty/Indexed lifecycle.
func (s *VectorStore) State() VectorIndexState {
	return VectorIndexState(s.state.Load())
}

// Search returns the k nearest chunks to query by cosine similarity.
func (s *VectorStore) Search(query []float32, k int) ([]VectorResult, error) {
	if len(query) != s.dimensions {
		return nil, semerrors.DimensionMismatch(s.dimensions, len(query))
	}

	graph := s.graph.Load()
	if graph == nil || graph.Len() == 0 {
		return nil, nil
	}

	normalized := make([]float32, len(query))
	copy(normalized, query)
	normalizeVectorInPlace(normalized)

	nodes := graph.Search(normalized, k)
	results := make([]VectorResult, 0, len(nodes))
	for _, node := range nodes {
		distance := graph.Distance(normalized, node.Value)
		results = append(results, VectorResult{
			ChunkID: node.Key,
			Score:   distanceToScore(distance),
		})
	}
	return results, nil
}

// AllIDs returns every chunk id with a persisted vector, used by the
// triple-consistency Repair operation.
func (s *VectorStore) AllIDs() ([]uint32, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var ids []uint32
	err := s.db.View(func(tx *bbolt.Tx) error {
		return tx.Bucket(vectorsBucket).ForEach(func(k, _ []byte) error {
			ids = append(ids, chunkKeyToID(k))
			return nil
		})
	})
	if err != nil {
		return nil, semerrors.IOError("failed to list vector ids", err)
	}
	return ids, nil
}

// Count returns the number of persisted vectors (not graph nodes, which
// may lag behind until the next Rebuild).
func (s *VectorStore) Count() (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	n := 0
	err := s.db.View(func(tx *bbolt.Tx) error {
		n = tx.Bucket(vectorsBucket).Stats().KeyN
		return nil
	})
	return n, err
}

func encodeVector(v []float32) ([]byte, error) {
	buf := make([]byte, 4*len(v))
	for i, f := range v {
		binary.BigEndian.PutUint32(buf[i*4:], math.Float32bits(f))
	}
	return buf, nil
}

func decodeVector(b []byte) ([]float32, error) {
	if len(b)%4 != 0 {
		return nil, semerrors.Invalid("corrupt vector record", nil)
	}
	v := make([]float32, len(b)/4)
	for i := range v {
		v[i] = math.Float32frombits(binary.BigEndian.Uint32(b[i*4:]))
	}
	return v, nil
}

func normalizeVectorInPlace(v []float32) {
	var sumSquares float64
	for _, val := range v {
		sumSquares += float64(val) * float64(val)
	}
	if sumSquares == 0 {
		return
	}
	invMagnitude := float32(1.0 / math.Sqrt(sumSquares))
	for i := range v {
		v[i] *= invMagnitude
	}
}

// distanceToScore converts cosine distance (0..2) to a similarity score
// in [0, 1]. RRF fuses by rank, so this scale need not match the raw
// bleve scores of the lexical and exact-phrase sources.
func distanceToScore(distance float32) float32 {
	return 1.0 - distance/2.0
}
