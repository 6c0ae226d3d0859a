package chunk

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/flupkede/codesearch/internal/store"
)

func TestToStoreKind_FunctionSymbol(t *testing.T) {
	c := &Chunk{ContentType: ContentTypeCode, Symbols: []*Symbol{{Type: SymbolTypeFunction}}}
	assert.Equal(t, store.ChunkKindFunction, ToStoreKind(c))
}

func TestToStoreKind_Markdown(t *testing.T) {
	c := &Chunk{ContentType: ContentTypeMarkdown}
	assert.Equal(t, store.ChunkKindDoc, ToStoreKind(c))
}

func TestToStoreKind_NoSymbolsFallsBackToGeneric(t *testing.T) {
	c := &Chunk{ContentType: ContentTypeCode}
	assert.Equal(t, store.ChunkKindGeneric, ToStoreKind(c))
}

func TestToStoreChunk_CarriesPositionAndContent(t *testing.T) {
	c := &Chunk{
		ID:        "abc123",
		FilePath:  "main.go",
		Content:   "func main() {}",
		StartLine: 1,
		EndLine:   1,
		Symbols:   []*Symbol{{Name: "main", Type: SymbolTypeFunction, Signature: "func main()"}},
	}

	sc := ToStoreChunk(c)
	assert.Equal(t, "main.go", sc.Path)
	assert.Equal(t, "abc123", sc.Hash)
	assert.Equal(t, store.ChunkKindFunction, sc.Kind)
	assert.Equal(t, "func main()", sc.Signature)
	require.Len(t, sc.Symbols, 1)
}
