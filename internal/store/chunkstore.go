package store

import (
	"bytes"
	"encoding/binary"
	"encoding/gob"
	"fmt"
	"sync"
	"time"

	"go.etcd.io/bbolt"

	semerrors "github.com/flupkede/codesearch/internal/errors"
)

var chunksBucket = []byte("chunks")

// ChunkStore is the content-addressed chunk-id → chunk metadata store
// (spec §4.1). It is backed by a single bbolt environment so that chunk
// metadata and raw vectors (see VectorStore) share one memory-mapped,
// crash-safe file on disk, matching spec §6's single "data.mdb" layout.
//
// ChunkStore owns next-id allocation: the next id is one past the
// largest key currently in the bucket, read via a cursor seek to the
// last key, giving O(log n) allocation per invariant I2.
type ChunkStore struct {
	mu        sync.RWMutex
	db        *bbolt.DB
	path      string
	mapSizeMB int
}

// OpenChunkStore opens (creating if absent) the chunk store at path with
// the given initial mmap size.
func OpenChunkStore(path string, mapSizeMB int) (*ChunkStore, error) {
	db, err := bbolt.Open(path, 0o600, &bbolt.Options{
		Timeout:         time.Second,
		InitialMmapSize: mapSizeMB * 1024 * 1024,
	})
	if err != nil {
		return nil, semerrors.IOError("failed to open chunk store", err)
	}

	err = db.Update(func(tx *bbolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(chunksBucket)
		return err
	})
	if err != nil {
		_ = db.Close()
		return nil, semerrors.IOError("failed to initialize chunks bucket", err)
	}

	return &ChunkStore{db: db, path: path, mapSizeMB: mapSizeMB}, nil
}

func chunkKey(id uint32) []byte {
	buf := make([]byte, 4)
	binary.BigEndian.PutUint32(buf, id)
	return buf
}

func chunkKeyToID(key []byte) uint32 {
	return binary.BigEndian.Uint32(key)
}

// NextID returns the next chunk id to allocate: one past the current
// maximum key in the bucket, or 1 if the bucket is empty. It does not
// reserve the id; callers must Put promptly under the facade's writer
// lock to avoid a race between two writers (the facade guarantees there
// is only ever one).
func (s *ChunkStore) NextID() (uint32, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var next uint32 = 1
	err := s.db.View(func(tx *bbolt.Tx) error {
		b := tx.Bucket(chunksBucket)
		k, _ := b.Cursor().Last()
		if k != nil {
			next = chunkKeyToID(k) + 1
		}
		return nil
	})
	return next, err
}

// Put writes or overwrites a chunk's metadata. Idempotent: calling Put
// twice with the same ID simply replaces the stored value.
func (s *ChunkStore) Put(chunk *Chunk) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	var buf bytes.Buffer
	if err := gob.NewEncoder(&buf).Encode(chunk); err != nil {
		return semerrors.Invalid("failed to encode chunk", err)
	}

	err := s.db.Update(func(tx *bbolt.Tx) error {
		return tx.Bucket(chunksBucket).Put(chunkKey(chunk.ID), buf.Bytes())
	})
	return s.wrapWriteErr(err)
}

// PutBatch writes multiple chunks in a single transaction.
func (s *ChunkStore) PutBatch(chunks []*Chunk) error {
	if len(chunks) == 0 {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	err := s.db.Update(func(tx *bbolt.Tx) error {
		b := tx.Bucket(chunksBucket)
		for _, c := range chunks {
			var buf bytes.Buffer
			if err := gob.NewEncoder(&buf).Encode(c); err != nil {
				return semerrors.Invalid("failed to encode chunk", err)
			}
			if err := b.Put(chunkKey(c.ID), buf.Bytes()); err != nil {
				return err
			}
		}
		return nil
	})
	return s.wrapWriteErr(err)
}

// Get returns a chunk by id, or a NotFound SemError.
func (s *ChunkStore) Get(id uint32) (*Chunk, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var chunk Chunk
	found := false
	err := s.db.View(func(tx *bbolt.Tx) error {
		v := tx.Bucket(chunksBucket).Get(chunkKey(id))
		if v == nil {
			return nil
		}
		found = true
		return gob.NewDecoder(bytes.NewReader(v)).Decode(&chunk)
	})
	if err != nil {
		return nil, semerrors.IOError("failed to read chunk", err)
	}
	if !found {
		return nil, semerrors.NotFound(fmt.Sprintf("chunk %d not found", id), nil)
	}
	return &chunk, nil
}

// GetBatch returns chunks for the given ids, skipping any that are missing.
func (s *ChunkStore) GetBatch(ids []uint32) ([]*Chunk, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	chunks := make([]*Chunk, 0, len(ids))
	err := s.db.View(func(tx *bbolt.Tx) error {
		b := tx.Bucket(chunksBucket)
		for _, id := range ids {
			v := b.Get(chunkKey(id))
			if v == nil {
				continue
			}
			var c Chunk
			if err := gob.NewDecoder(bytes.NewReader(v)).Decode(&c); err != nil {
				return err
			}
			chunks = append(chunks, &c)
		}
		return nil
	})
	if err != nil {
		return nil, semerrors.IOError("failed to read chunks", err)
	}
	return chunks, nil
}

// Delete removes a chunk. No-op for a missing id.
func (s *ChunkStore) Delete(id uint32) error {
	return s.DeleteBatch([]uint32{id})
}

// DeleteBatch removes multiple chunks in a single transaction.
func (s *ChunkStore) DeleteBatch(ids []uint32) error {
	if len(ids) == 0 {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	err := s.db.Update(func(tx *bbolt.Tx) error {
		b := tx.Bucket(chunksBucket)
		for _, id := range ids {
			if err := b.Delete(chunkKey(id)); err != nil {
				return err
			}
		}
		return nil
	})
	return s.wrapWriteErr(err)
}

// AllIDs returns every chunk id currently stored, in ascending order.
func (s *ChunkStore) AllIDs() ([]uint32, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var ids []uint32
	err := s.db.View(func(tx *bbolt.Tx) error {
		return tx.Bucket(chunksBucket).ForEach(func(k, _ []byte) error {
			ids = append(ids, chunkKeyToID(k))
			return nil
		})
	})
	if err != nil {
		return nil, semerrors.IOError("failed to list chunk ids", err)
	}
	return ids, nil
}

// Count returns the number of stored chunks.
func (s *ChunkStore) Count() (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	n := 0
	err := s.db.View(func(tx *bbolt.Tx) error {
		n = tx.Bucket(chunksBucket).Stats().KeyN
		return nil
	})
	return n, err
}

// wrapWriteErr maps a failed write to a SemError: Readonly when the
// database or transaction is closed, IOError otherwise. It does not
// resize, reopen or retry; growth of the map is left to bbolt's own
// remapping.
func (s *ChunkStore) wrapWriteErr(err error) error {
	if err == nil {
		return nil
	}
	if err == bbolt.ErrDatabaseNotOpen || err == bbolt.ErrTxClosed {
		return semerrors.Readonly(err.Error())
	}
	return semerrors.IOError("chunk store write failed", err)
}

// Close closes the underlying bbolt environment.
func (s *ChunkStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.db.Close()
}

// Path returns the on-disk path of the store file.
func (s *ChunkStore) Path() string {
	return s.path
}
