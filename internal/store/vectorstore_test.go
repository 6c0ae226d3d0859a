package store

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.etcd.io/bbolt"
)

func newTestVectorStore(t *testing.T, dims int) *VectorStore {
	t.Helper()
	path := filepath.Join(t.TempDir(), "data.mdb")
	db, err := bbolt.Open(path, 0o600, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	vs, err := OpenVectorStore(db, dims)
	require.NoError(t, err)
	return vs
}

func TestVectorStore_Empty_StateIsEmpty(t *testing.T) {
	vs := newTestVectorStore(t, 4)
	assert.Equal(t, VectorIndexEmpty, vs.State())
}

func TestVectorStore_AddThenRebuild_BecomesIndexed(t *testing.T) {
	vs := newTestVectorStore(t, 3)

	require.NoError(t, vs.Add(1, []float32{1, 0, 0}))
	assert.Equal(t, VectorIndexDirty, vs.State())

	require.NoError(t, vs.Rebuild())
	assert.Equal(t, VectorIndexIndexed, vs.State())
}

func TestVectorStore_Search_ReturnsNearestNeighbor(t *testing.T) {
	vs := newTestVectorStore(t, 3)

	require.NoError(t, vs.AddBatch(
		[]uint32{1, 2, 3},
		[][]float32{{1, 0, 0}, {0, 1, 0}, {0.9, 0.1, 0}},
	))
	require.NoError(t, vs.Rebuild())

	results, err := vs.Search([]float32{1, 0, 0}, 1)
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, uint32(1), results[0].ChunkID)
}

func TestVectorStore_Add_RejectsDimensionMismatch(t *testing.T) {
	vs := newTestVectorStore(t, 3)

	err := vs.Add(1, []float32{1, 0})
	require.Error(t, err)
}

func TestVectorStore_DeleteThenRebuild_RemovesFromSearch(t *testing.T) {
	vs := newTestVectorStore(t, 2)

	require.NoError(t, vs.AddBatch([]uint32{1, 2}, [][]float32{{1, 0}, {0, 1}}))
	require.NoError(t, vs.Rebuild())

	require.NoError(t, vs.Delete(1))
	require.NoError(t, vs.Rebuild())

	results, err := vs.Search([]float32{1, 0}, 2)
	require.NoError(t, err)
	for _, r := range results {
		assert.NotEqual(t, uint32(1), r.ChunkID)
	}
}

func TestDistanceToScore_IdenticalVectorsScoreOne(t *testing.T) {
	assert.InDelta(t, 1.0, distanceToScore(0), 0.0001)
}
