package store

import (
	"encoding/json"
	"os"
	"path/filepath"
	"sync"

	semerrors "github.com/flupkede/codesearch/internal/errors"
)

// FileMetaStore is the flat JSON file-path → metadata index (spec §4.5).
// It is kept as a single JSON document rather than folded into bbolt so
// that its bit-exact on-disk layout (a plain "file_meta.json" readable
// by any JSON tool) stays stable for doctor diagnostics and manual
// inspection, at the cost of an in-memory full rewrite per save. This is
// a deliberate divergence from the teacher's per-record Bleve/bbolt
// storage, following the same atomic write-then-rename discipline the
// teacher uses for its own JSON documents (session.json).
type FileMetaStore struct {
	mu         sync.RWMutex
	path       string
	modelName  string
	dimensions int
	entries    map[string]*FileMetaEntry
}

// fileMetaDocument is the bit-exact file_meta.json shape (spec §6):
// `{ "model_name", "dimensions", "files": { "<normalised_path>": {...} } }`.
type fileMetaDocument struct {
	ModelName  string                    `json:"model_name"`
	Dimensions int                       `json:"dimensions"`
	Files      map[string]*FileMetaEntry `json:"files"`
}

// OpenFileMetaStore loads the store at path, creating an empty one if it
// does not yet exist.
func OpenFileMetaStore(path string) (*FileMetaStore, error) {
	s := &FileMetaStore{path: path, entries: make(map[string]*FileMetaEntry)}

	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return s, nil
	}
	if err != nil {
		return nil, semerrors.IOError("failed to read file meta store", err)
	}

	var doc fileMetaDocument
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, semerrors.Invalid("file meta store is corrupt", err)
	}
	s.modelName = doc.ModelName
	s.dimensions = doc.Dimensions
	if doc.Files != nil {
		s.entries = doc.Files
	}
	return s, nil
}

// SetModel records the embedding model this store's entries were
// produced with.
func (s *FileMetaStore) SetModel(modelName string, dimensions int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.modelName = modelName
	s.dimensions = dimensions
}

// Model returns the recorded model name and dimensions.
func (s *FileMetaStore) Model() (string, int) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.modelName, s.dimensions
}

// FindDeletedFiles returns entries whose paths are no longer present in
// diskFiles, the current on-disk path set (spec §4.10.1 step 4).
func (s *FileMetaStore) FindDeletedFiles(diskFiles map[string]bool) []*FileMetaEntry {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var deleted []*FileMetaEntry
	for path, e := range s.entries {
		if !diskFiles[path] {
			deleted = append(deleted, e)
		}
	}
	return deleted
}

// TrackedFiles returns every path currently tracked, used to expand a
// directory removal into its constituent file paths (spec §4.10.2).
func (s *FileMetaStore) TrackedFiles() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	paths := make([]string, 0, len(s.entries))
	for path := range s.entries {
		paths = append(paths, path)
	}
	return paths
}

// Get returns the metadata entry for path, if tracked.
func (s *FileMetaStore) Get(path string) (*FileMetaEntry, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	e, ok := s.entries[path]
	return e, ok
}

// Put records or replaces an entry for path.
func (s *FileMetaStore) Put(entry *FileMetaEntry) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries[entry.Path] = entry
}

// Delete removes the entry for path.
func (s *FileMetaStore) Delete(path string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.entries, path)
}

// All returns a snapshot of every tracked entry.
func (s *FileMetaStore) All() []*FileMetaEntry {
	s.mu.RLock()
	defer s.mu.RUnlock()

	entries := make([]*FileMetaEntry, 0, len(s.entries))
	for _, e := range s.entries {
		entries = append(entries, e)
	}
	return entries
}

// Count returns the number of tracked files.
func (s *FileMetaStore) Count() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.entries)
}

// Save writes the full document to disk atomically (temp file + rename),
// matching the teacher's session.json persistence discipline.
func (s *FileMetaStore) Save() error {
	s.mu.RLock()
	doc := fileMetaDocument{ModelName: s.modelName, Dimensions: s.dimensions, Files: s.entries}
	data, err := json.MarshalIndent(doc, "", "  ")
	s.mu.RUnlock()
	if err != nil {
		return semerrors.Invalid("failed to marshal file meta store", err)
	}

	if err := os.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
		return semerrors.IOError("failed to create file meta directory", err)
	}

	tmpPath := s.path + ".tmp"
	if err := os.WriteFile(tmpPath, data, 0o644); err != nil {
		return semerrors.IOError("failed to write file meta store", err)
	}
	if err := os.Rename(tmpPath, s.path); err != nil {
		_ = os.Remove(tmpPath)
		return semerrors.IOError("failed to save file meta store", err)
	}
	return nil
}
