package search

import (
	"context"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/flupkede/codesearch/internal/embed"
	"github.com/flupkede/codesearch/internal/store"
)

const testDimensions = 256

func setupTestEngine(t *testing.T) (*Engine, *store.Facade) {
	t.Helper()

	dataDir := filepath.Join(t.TempDir(), ".semcode")
	facade, err := store.Open(store.FacadeConfig{DataDir: dataDir, Dimensions: testDimensions})
	require.NoError(t, err)
	t.Cleanup(func() { _ = facade.Close() })

	embedder := embed.NewStaticEmbedder(testDimensions)
	engine := New(facade.NewReader(), embedder, Config{})
	return engine, facade
}

func mustInsertChunk(t *testing.T, facade *store.Facade, embedder embed.Embedder, c *store.Chunk) {
	t.Helper()
	w, err := facade.AcquireWriter()
	require.NoError(t, err)
	defer func() { require.NoError(t, w.Release()) }()

	id, err := w.Chunks().NextID()
	require.NoError(t, err)
	c.ID = id
	require.NoError(t, w.Chunks().Put(c))

	vec, err := embedder.Embed(context.Background(), c.Content)
	require.NoError(t, err)
	require.NoError(t, w.Vectors().Add(id, vec))
	require.NoError(t, w.Vectors().Rebuild())
	require.NoError(t, w.Lexical().Index([]*store.Chunk{c}))
}

func TestEngine_FindsExactMarkerAtTopRank(t *testing.T) {
	engine, facade := setupTestEngine(t)
	embedder := embed.NewStaticEmbedder(testDimensions)

	mustInsertChunk(t, facade, embedder, &store.Chunk{
		Path:      "/proj/marker.go",
		StartLine: 1,
		EndLine:   5,
		Kind:      store.ChunkKindFunction,
		Signature: "func hasMarker()",
		Content:   "func hasMarker() { fmt.Println(\"FSW_UNIQUE_MARKER_XYZ\") }",
	})
	mustInsertChunk(t, facade, embedder, &store.Chunk{
		Path:      "/proj/other.go",
		StartLine: 1,
		EndLine:   5,
		Kind:      store.ChunkKindFunction,
		Signature: "func unrelated()",
		Content:   "func unrelated() { return }",
	})

	results, err := engine.Search(context.Background(), Request{Query: "FSW_UNIQUE_MARKER_XYZ", Limit: 5})
	require.NoError(t, err)
	require.NotEmpty(t, results)
	assert.Equal(t, "/proj/marker.go", results[0].Path)
}

func TestEngine_StructuralBoostFavoursMatchingKind(t *testing.T) {
	engine, facade := setupTestEngine(t)
	embedder := embed.NewStaticEmbedder(testDimensions)

	mustInsertChunk(t, facade, embedder, &store.Chunk{
		Path:      "/proj/parse_type.go",
		StartLine: 1,
		EndLine:   3,
		Kind:      store.ChunkKindType,
		Signature: "type Parser struct",
		Content:   "type Parser struct { buf []byte }",
	})
	mustInsertChunk(t, facade, embedder, &store.Chunk{
		Path:      "/proj/parse_func.go",
		StartLine: 1,
		EndLine:   3,
		Kind:      store.ChunkKindFunction,
		Signature: "func Parse()",
		Content:   "func Parse() { }",
	})

	results, err := engine.Search(context.Background(), Request{Query: "function that parses input", Limit: 5})
	require.NoError(t, err)
	require.Len(t, results, 2)

	var funcScore, typeScore float64
	for _, r := range results {
		if r.Kind == store.ChunkKindFunction {
			funcScore = r.Score
		} else {
			typeScore = r.Score
		}
	}
	assert.Greater(t, funcScore, 0.0)
	assert.Greater(t, typeScore, 0.0)
}

func TestEngine_FilterPathPrefixExcludesOtherPaths(t *testing.T) {
	engine, facade := setupTestEngine(t)
	embedder := embed.NewStaticEmbedder(testDimensions)

	mustInsertChunk(t, facade, embedder, &store.Chunk{
		Path: "/proj/pkg/a.go", StartLine: 1, EndLine: 2,
		Kind: store.ChunkKindFunction, Content: "func A() {}",
	})
	mustInsertChunk(t, facade, embedder, &store.Chunk{
		Path: "/proj/other/b.go", StartLine: 1, EndLine: 2,
		Kind: store.ChunkKindFunction, Content: "func A() {}",
	})

	results, err := engine.Search(context.Background(), Request{
		Query: "func A", Limit: 5, FilterPathPrefix: "/proj/pkg",
	})
	require.NoError(t, err)
	for _, r := range results {
		assert.True(t, strings.HasPrefix(r.Path, "/proj/pkg"))
	}
}

func TestEngine_VerboseIncludesContent(t *testing.T) {
	engine, facade := setupTestEngine(t)
	embedder := embed.NewStaticEmbedder(testDimensions)

	mustInsertChunk(t, facade, embedder, &store.Chunk{
		Path: "/proj/a.go", StartLine: 1, EndLine: 2,
		Kind: store.ChunkKindFunction, Content: "func A() { return }",
	})

	results, err := engine.Search(context.Background(), Request{Query: "A", Limit: 5, Verbose: true})
	require.NoError(t, err)
	require.NotEmpty(t, results)
	assert.NotEmpty(t, results[0].Content)

	results, err = engine.Search(context.Background(), Request{Query: "A", Limit: 5})
	require.NoError(t, err)
	require.NotEmpty(t, results)
	assert.Empty(t, results[0].Content)
}
