package store

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/gofrs/flock"
	"go.etcd.io/bbolt"

	semerrors "github.com/flupkede/codesearch/internal/errors"
)

// FacadeConfig controls how a Facade opens its underlying stores.
type FacadeConfig struct {
	// DataDir is the database directory (spec §6), containing data.mdb,
	// embeddings.mdb, fts/, file_meta.json, metadata.json and .writer.lock.
	DataDir    string
	Dimensions int
	MapSizeMB  int
	CacheSize  int
}

func (c FacadeConfig) dataPath() string       { return filepath.Join(c.DataDir, "data.mdb") }
func (c FacadeConfig) embedCachePath() string { return filepath.Join(c.DataDir, "embeddings.mdb") }
func (c FacadeConfig) lexicalPath() string    { return filepath.Join(c.DataDir, "fts") }
func (c FacadeConfig) fileMetaPath() string   { return filepath.Join(c.DataDir, "file_meta.json") }
func (c FacadeConfig) metadataPath() string   { return filepath.Join(c.DataDir, "metadata.json") }

// MetadataPath exposes the bit-exact metadata.json location for the
// bootstrap step that creates it (Open never does — spec.md §4.10.1
// forbids the synchroniser itself from auto-creating a database).
func (c FacadeConfig) MetadataPath() string { return c.metadataPath() }
func (c FacadeConfig) writerLockPath() string { return filepath.Join(c.DataDir, ".writer.lock") }

// Facade is the single owner of every on-disk store. It follows the
// arena-ownership design from SPEC_FULL §9: the facade holds all stores
// by value/pointer itself and hands scoped Reader/Writer handles to
// callers rather than passing reference-counted handles around
// independently. Exactly one process may hold the Writer at a time,
// enforced by a gofrs/flock-based ".writer.lock" file, directly
// grounded on the teacher's embed.FileLock.
type Facade struct {
	cfg    FacadeConfig
	db     *bbolt.DB
	chunks *ChunkStore
	vecs   *VectorStore
	lex    *LexicalIndex
	cache  *EmbedCache
	meta   *FileMetaStore

	lock *flock.Flock
}

// Open opens every underlying store in cfg.DataDir, creating the
// directory and files as needed. It does not acquire the writer lock;
// call AcquireWriter for that.
func Open(cfg FacadeConfig) (*Facade, error) {
	if err := os.MkdirAll(cfg.DataDir, 0o755); err != nil {
		return nil, semerrors.IOError("failed to create database directory", err)
	}

	db, err := bbolt.Open(cfg.dataPath(), 0o600, &bbolt.Options{InitialMmapSize: cfg.MapSizeMB * 1024 * 1024})
	if err != nil {
		return nil, semerrors.IOError("failed to open data.mdb", err)
	}

	if err := db.Update(func(tx *bbolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(chunksBucket)
		return err
	}); err != nil {
		_ = db.Close()
		return nil, semerrors.IOError("failed to initialize chunks bucket", err)
	}

	chunks := &ChunkStore{db: db, path: cfg.dataPath(), mapSizeMB: cfg.MapSizeMB}

	vecs, err := OpenVectorStore(db, cfg.Dimensions)
	if err != nil {
		_ = db.Close()
		return nil, err
	}

	lex, err := OpenLexicalIndex(cfg.lexicalPath())
	if err != nil {
		_ = db.Close()
		return nil, err
	}

	cache, err := OpenEmbedCache(cfg.embedCachePath(), cfg.CacheSize)
	if err != nil {
		_ = lex.Close()
		_ = db.Close()
		return nil, err
	}

	meta, err := OpenFileMetaStore(cfg.fileMetaPath())
	if err != nil {
		_ = cache.Close()
		_ = lex.Close()
		_ = db.Close()
		return nil, err
	}

	return &Facade{
		cfg:    cfg,
		db:     db,
		chunks: chunks,
		vecs:   vecs,
		lex:    lex,
		cache:  cache,
		meta:   meta,
		lock:   flock.New(cfg.writerLockPath()),
	}, nil
}

// Reader is a scoped read-only handle onto every store. It never
// outlives the Facade it was issued from.
type Reader struct {
	f *Facade
}

// Writer is a scoped read-write handle. Only one may exist at a time
// across all processes sharing a database directory, enforced by the
// facade's writer lock.
type Writer struct {
	f *Facade
}

// NewReader returns a read-only handle. Readers never block on the
// writer lock: bbolt's MVCC snapshots give every View transaction a
// consistent read even while a writer transaction is in flight.
func (f *Facade) NewReader() *Reader {
	return &Reader{f: f}
}

// AcquireWriter attempts to take the writer lock without blocking. If
// another process holds it, it returns a Locked SemError (spec §7).
func (f *Facade) AcquireWriter() (*Writer, error) {
	acquired, err := f.lock.TryLock()
	if err != nil {
		return nil, semerrors.IOError("failed to acquire writer lock", err)
	}
	if !acquired {
		return nil, semerrors.Locked(f.cfg.writerLockPath())
	}
	return &Writer{f: f}, nil
}

// Release releases the writer lock. Safe to call multiple times.
func (w *Writer) Release() error {
	if err := w.f.lock.Unlock(); err != nil {
		return semerrors.IOError("failed to release writer lock", err)
	}
	return nil
}

func (r *Reader) Chunks() *ChunkStore        { return r.f.chunks }
func (r *Reader) Vectors() *VectorStore      { return r.f.vecs }
func (r *Reader) Lexical() *LexicalIndex     { return r.f.lex }
func (r *Reader) EmbedCache() *EmbedCache    { return r.f.cache }
func (r *Reader) FileMeta() *FileMetaStore   { return r.f.meta }

func (w *Writer) Chunks() *ChunkStore      { return w.f.chunks }
func (w *Writer) Vectors() *VectorStore    { return w.f.vecs }
func (w *Writer) Lexical() *LexicalIndex   { return w.f.lex }
func (w *Writer) EmbedCache() *EmbedCache  { return w.f.cache }
func (w *Writer) FileMeta() *FileMetaStore { return w.f.meta }

// Stats reports the current size of each store.
type Stats struct {
	ChunkCount   int
	VectorCount  int
	LexicalCount int
	CacheCount   int
	FileCount    int
	VectorState  VectorIndexState
}

// Stats gathers a point-in-time snapshot across all stores.
func (f *Facade) Stats() (Stats, error) {
	var s Stats
	var err error

	if s.ChunkCount, err = f.chunks.Count(); err != nil {
		return s, err
	}
	if s.VectorCount, err = f.vecs.Count(); err != nil {
		return s, err
	}
	if s.LexicalCount, err = f.lex.Count(); err != nil {
		return s, err
	}
	if s.CacheCount, err = f.cache.Count(); err != nil {
		return s, err
	}
	s.FileCount = f.meta.Count()
	s.VectorState = f.vecs.State()
	return s, nil
}

// DataDir returns the database directory this facade was opened with.
func (f *Facade) DataDir() string { return f.cfg.DataDir }

// Close flushes the file-meta store and closes every underlying store.
// It does not release the writer lock; callers holding a Writer must
// call Release first.
func (f *Facade) Close() error {
	var firstErr error
	record := func(err error) {
		if err != nil && firstErr == nil {
			firstErr = err
		}
	}

	record(f.meta.Save())
	record(f.cache.Close())
	record(f.lex.Close())
	record(f.db.Close())

	if firstErr != nil {
		return fmt.Errorf("closing store facade: %w", firstErr)
	}
	return nil
}
