package search

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/flupkede/codesearch/internal/store"
)

func TestAnalyzeQuery_ExtractsIdentifiers(t *testing.T) {
	a := AnalyzeQuery("fix parseHTTPRequest and snake_case_helper", 60)
	assert.Contains(t, a.Identifiers, "parseHTTPRequest")
	assert.Contains(t, a.Identifiers, "snake_case_helper")
}

func TestAnalyzeQuery_DetectsStructuralIntent(t *testing.T) {
	a := AnalyzeQuery("function that parses JSON", 60)
	assert.Equal(t, store.ChunkKindFunction, a.StructuralKind)

	a = AnalyzeQuery("class that manages connections", 60)
	assert.Equal(t, store.ChunkKindType, a.StructuralKind)

	a = AnalyzeQuery("how does this project start up", 60)
	assert.Empty(t, a.StructuralKind)
}

func TestAnalyzeQuery_ShortIdentifierQueryFavoursLexical(t *testing.T) {
	a := AnalyzeQuery("parseHTTPRequest", 60)
	require := assert.New(t)
	require.Less(a.KFTS, a.KVec)
}

func TestAnalyzeQuery_LongConceptualQueryFavoursVector(t *testing.T) {
	a := AnalyzeQuery("explain how the embedding cache avoids redundant model calls", 60)
	assert.Less(t, a.KVec, a.KFTS)
}

func TestAnalyzeQuery_PlainShortQueryUsesBaseline(t *testing.T) {
	a := AnalyzeQuery("config loader", 60)
	assert.Equal(t, 60, a.KVec)
	assert.Equal(t, 60, a.KFTS)
}
