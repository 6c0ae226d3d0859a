package chunk

import (
	"github.com/flupkede/codesearch/internal/store"
)

// ToStoreKind maps the chunker's content/symbol classification onto the
// closed ChunkKind enum the store persists (spec §9's capability-set
// redesign: a closed tagged variant instead of the chunker's open
// ContentType/SymbolType strings).
func ToStoreKind(c *Chunk) store.ChunkKind {
	if c.ContentType == ContentTypeMarkdown {
		return store.ChunkKindDoc
	}
	if c.ContentType == ContentTypeText {
		return store.ChunkKindGeneric
	}

	if len(c.Symbols) == 0 {
		return store.ChunkKindGeneric
	}

	switch c.Symbols[0].Type {
	case SymbolTypeFunction:
		return store.ChunkKindFunction
	case SymbolTypeMethod:
		return store.ChunkKindMethod
	case SymbolTypeClass, SymbolTypeInterface, SymbolTypeType:
		return store.ChunkKindType
	default:
		return store.ChunkKindGeneric
	}
}

// ToStoreSymbols converts the chunker's rich Symbol slice to the store's
// slimmer persisted Symbol shape.
func ToStoreSymbols(symbols []*Symbol) []store.Symbol {
	out := make([]store.Symbol, 0, len(symbols))
	for _, s := range symbols {
		out = append(out, store.Symbol{
			Name:      s.Name,
			Kind:      string(s.Type),
			StartLine: s.StartLine,
			EndLine:   s.EndLine,
		})
	}
	return out
}

// ToStoreChunk converts a chunker Chunk into the persisted store.Chunk
// shape. The returned chunk's ID is left zero: the Synchroniser assigns
// or reuses a chunk id (keyed off the chunker's ID, a hash of the file
// path and the content, carried over as Hash) before persisting via the
// Shared Store Facade.
func ToStoreChunk(c *Chunk) *store.Chunk {
	signature := ""
	if len(c.Symbols) > 0 {
		signature = c.Symbols[0].Signature
	}

	return &store.Chunk{
		Path:      c.FilePath,
		StartLine: c.StartLine,
		EndLine:   c.EndLine,
		Kind:      ToStoreKind(c),
		Signature: signature,
		Content:   c.Content,
		Hash:      c.ID,
		Symbols:   ToStoreSymbols(c.Symbols),
	}
}
