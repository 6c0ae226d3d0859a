package store

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFileMetaStore_OpenMissing_StartsEmpty(t *testing.T) {
	path := filepath.Join(t.TempDir(), "file_meta.json")
	s, err := OpenFileMetaStore(path)
	require.NoError(t, err)
	assert.Equal(t, 0, s.Count())
}

func TestFileMetaStore_PutSaveReload_RoundTrips(t *testing.T) {
	path := filepath.Join(t.TempDir(), "file_meta.json")
	s, err := OpenFileMetaStore(path)
	require.NoError(t, err)

	s.Put(&FileMetaEntry{Path: "main.go", Hash: "abc123", ModTime: time.Now(), Size: 42, ChunkIDs: []uint32{1, 2}})
	require.NoError(t, s.Save())

	reloaded, err := OpenFileMetaStore(path)
	require.NoError(t, err)
	entry, ok := reloaded.Get("main.go")
	require.True(t, ok)
	assert.Equal(t, "abc123", entry.Hash)
	assert.Equal(t, []uint32{1, 2}, entry.ChunkIDs)
}

func TestFileMetaStore_Delete_RemovesEntry(t *testing.T) {
	path := filepath.Join(t.TempDir(), "file_meta.json")
	s, err := OpenFileMetaStore(path)
	require.NoError(t, err)

	s.Put(&FileMetaEntry{Path: "a.go"})
	s.Delete("a.go")

	_, ok := s.Get("a.go")
	assert.False(t, ok)
}

func TestFileMetaStore_OpenCorrupt_ReturnsError(t *testing.T) {
	path := filepath.Join(t.TempDir(), "file_meta.json")
	require.NoError(t, os.WriteFile(path, []byte("not json"), 0o644))

	_, err := OpenFileMetaStore(path)
	require.Error(t, err)
}
