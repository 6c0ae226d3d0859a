package store

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestLexicalIndex(t *testing.T) *LexicalIndex {
	t.Helper()
	idx, err := OpenLexicalIndex("")
	require.NoError(t, err)
	t.Cleanup(func() { _ = idx.Close() })
	return idx
}

func TestLexicalIndex_IndexAndSearch_MatchesContent(t *testing.T) {
	idx := newTestLexicalIndex(t)

	require.NoError(t, idx.Index([]*Chunk{
		{ID: 1, Content: "func parseConfig() error { return nil }", Kind: ChunkKindFunction},
		{ID: 2, Content: "func renderTemplate() string { return \"\" }", Kind: ChunkKindFunction},
	}))

	results, err := idx.Search("parse config", 10, "")
	require.NoError(t, err)
	require.NotEmpty(t, results)
	assert.Equal(t, uint32(1), results[0].ChunkID)
}

func TestLexicalIndex_Search_EmptyQueryReturnsNothing(t *testing.T) {
	idx := newTestLexicalIndex(t)
	results, err := idx.Search("   ", 10, "")
	require.NoError(t, err)
	assert.Empty(t, results)
}

func TestLexicalIndex_SearchExact_MatchesPhrase(t *testing.T) {
	idx := newTestLexicalIndex(t)

	require.NoError(t, idx.Index([]*Chunk{
		{ID: 1, Content: "func computeChecksum(data []byte) uint32 {"},
	}))

	results, err := idx.SearchExact("computeChecksum", 10)
	require.NoError(t, err)
	require.NotEmpty(t, results)
	assert.Equal(t, uint32(1), results[0].ChunkID)
}

func TestLexicalIndex_Delete_RemovesFromResults(t *testing.T) {
	idx := newTestLexicalIndex(t)
	require.NoError(t, idx.Index([]*Chunk{{ID: 1, Content: "func handleRequest() {}"}}))
	require.NoError(t, idx.Delete([]uint32{1}))

	results, err := idx.Search("handleRequest", 10, "")
	require.NoError(t, err)
	assert.Empty(t, results)
}

func TestLexicalIndex_KindHint_FiltersByKind(t *testing.T) {
	idx := newTestLexicalIndex(t)
	require.NoError(t, idx.Index([]*Chunk{
		{ID: 1, Content: "parseInput logic", Kind: ChunkKindFunction},
		{ID: 2, Content: "parseInput comment about parsing", Kind: ChunkKindComment},
	}))

	results, err := idx.Search("parseInput", 10, ChunkKindComment)
	require.NoError(t, err)
	for _, r := range results {
		assert.Equal(t, uint32(2), r.ChunkID)
	}
}

func TestCodeTokenizer_SplitsIdentifiers(t *testing.T) {
	tok := &bleveCodeTokenizer{}
	stream := tok.Tokenize([]byte("getUserById"))
	var terms []string
	for _, token := range stream {
		terms = append(terms, string(token.Term))
	}
	assert.Contains(t, terms, "get")
	assert.Contains(t, terms, "user")
}
