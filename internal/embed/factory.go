package embed

import (
	"context"
	"fmt"
	"strings"

	"github.com/flupkede/codesearch/internal/config"
)

// ProviderType identifies an embedding backend.
type ProviderType string

const (
	// ProviderStatic uses the dependency-free deterministic hash embedder.
	ProviderStatic ProviderType = "static"

	// ProviderHTTP uses a remote server speaking the generic
	// {"input": [...]} -> {"embeddings": [[...]]} contract.
	ProviderHTTP ProviderType = "http"
)

// ParseProvider converts a string to a ProviderType, defaulting to static
// for anything unrecognized.
func ParseProvider(s string) ProviderType {
	switch strings.ToLower(s) {
	case "http":
		return ProviderHTTP
	default:
		return ProviderStatic
	}
}

// ValidProviders returns all valid provider names.
func ValidProviders() []string {
	return []string{string(ProviderStatic), string(ProviderHTTP)}
}

// NewEmbedder builds the Embedder the rest of the system talks to:
// the configured backend (static or http), wrapped with mutex
// serialization (spec.md §5's single-writer embedding pool) and an LRU
// query-embedding cache (spec.md §4.11 step 1), in that order so cache
// hits never touch the lock.
func NewEmbedder(ctx context.Context, cfg config.EmbeddingsConfig) (Embedder, error) {
	var backend Embedder
	var err error

	switch ParseProvider(cfg.Provider) {
	case ProviderHTTP:
		backend, err = NewHTTPEmbedder(ctx, HTTPConfig{
			Endpoint:   cfg.Endpoint,
			Model:      cfg.Model,
			Dimensions: cfg.Dimensions,
			BatchSize:  cfg.BatchSize,
		})
		if err != nil {
			return nil, fmt.Errorf("embed: http provider unavailable: %w", err)
		}
	default:
		backend = NewStaticEmbedder(cfg.Dimensions)
	}

	serialized := NewSerializedEmbedder(backend)

	cacheSize := cfg.QueryCacheEntries
	if cacheSize <= 0 {
		cacheSize = DefaultEmbeddingCacheSize
	}
	return NewCachedEmbedder(serialized, cacheSize), nil
}
