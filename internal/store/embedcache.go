package store

import (
	"time"

	"go.etcd.io/bbolt"

	semerrors "github.com/flupkede/codesearch/internal/errors"
)

var embedCacheBucket = []byte("embeddings")

// EmbedCache is the persistent, content-hash-keyed embedding cache
// (spec §4.4). It lives in its own bbolt environment, separate from
// data.mdb, so the cache can be cleared or grown independently of the
// chunk/vector stores.
//
// Eviction walks the bucket in key (hash) order and removes entries
// from the front until the entry count is back under the configured
// maximum. Per spec this is intentionally "effectively random" rather
// than LRU: hash keys bear no relation to recency, and no access-time
// bookkeeping is kept.
type EmbedCache struct {
	db         *bbolt.DB
	maxEntries int
}

// OpenEmbedCache opens the embedding cache at path.
func OpenEmbedCache(path string, maxEntries int) (*EmbedCache, error) {
	db, err := bbolt.Open(path, 0o600, &bbolt.Options{Timeout: time.Second})
	if err != nil {
		return nil, semerrors.IOError("failed to open embedding cache", err)
	}

	err = db.Update(func(tx *bbolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(embedCacheBucket)
		return err
	})
	if err != nil {
		_ = db.Close()
		return nil, semerrors.IOError("failed to initialize embedding cache bucket", err)
	}

	return &EmbedCache{db: db, maxEntries: maxEntries}, nil
}

// Get returns the cached embedding for contentHash, if present.
func (c *EmbedCache) Get(contentHash string) ([]float32, bool, error) {
	var vec []float32
	found := false

	err := c.db.View(func(tx *bbolt.Tx) error {
		v := tx.Bucket(embedCacheBucket).Get([]byte(contentHash))
		if v == nil {
			return nil
		}
		found = true
		decoded, err := decodeVector(v)
		if err != nil {
			return err
		}
		vec = decoded
		return nil
	})
	if err != nil {
		return nil, false, semerrors.IOError("embedding cache read failed", err)
	}
	return vec, found, nil
}

// Put stores an embedding keyed by its content hash, evicting the
// oldest-by-key entries first if the cache is at capacity.
func (c *EmbedCache) Put(contentHash string, vector []float32) error {
	buf, err := encodeVector(vector)
	if err != nil {
		return semerrors.Invalid("failed to encode embedding", err)
	}

	err = c.db.Update(func(tx *bbolt.Tx) error {
		b := tx.Bucket(embedCacheBucket)
		if err := b.Put([]byte(contentHash), buf); err != nil {
			return err
		}
		return evictIfNeeded(b, c.maxEntries)
	})
	if err != nil {
		return semerrors.IOError("embedding cache write failed", err)
	}
	return nil
}

func evictIfNeeded(b *bbolt.Bucket, maxEntries int) error {
	if maxEntries <= 0 {
		return nil
	}
	n := b.Stats().KeyN
	if n <= maxEntries {
		return nil
	}

	c := b.Cursor()
	toEvict := n - maxEntries
	k, _ := c.First()
	for i := 0; i < toEvict && k != nil; i++ {
		if err := c.Delete(); err != nil {
			return err
		}
		k, _ = c.Next()
	}
	return nil
}

// Count returns the number of cached entries.
func (c *EmbedCache) Count() (int, error) {
	n := 0
	err := c.db.View(func(tx *bbolt.Tx) error {
		n = tx.Bucket(embedCacheBucket).Stats().KeyN
		return nil
	})
	return n, err
}

// Close closes the cache's bbolt environment.
func (c *EmbedCache) Close() error {
	return c.db.Close()
}
