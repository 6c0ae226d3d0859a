package embed

import (
	"context"
	"sync"
)

// SerializedEmbedder wraps an Embedder so that all calls into it are
// serialized by a single mutex. spec.md §5 calls for "a pool of blocking
// threads for embedding model inference, submissions serialised by a
// mutex" — most concrete embedding backends (a single local model
// process, a rate-limited remote server) can't usefully serve concurrent
// requests anyway, so the synchroniser and query planner share one
// locked handle rather than coordinating at a higher level. Grounded on
// CachedEmbedder's wrapper-by-composition idiom, generalized to any
// Embedder.
type SerializedEmbedder struct {
	mu    sync.Mutex
	inner Embedder
}

var _ Embedder = (*SerializedEmbedder)(nil)

// NewSerializedEmbedder wraps inner with mutex serialization.
func NewSerializedEmbedder(inner Embedder) *SerializedEmbedder {
	return &SerializedEmbedder{inner: inner}
}

func (s *SerializedEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.inner.Embed(ctx, text)
}

func (s *SerializedEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.inner.EmbedBatch(ctx, texts)
}

func (s *SerializedEmbedder) Dimensions() int {
	return s.inner.Dimensions()
}

func (s *SerializedEmbedder) ModelName() string {
	return s.inner.ModelName()
}

func (s *SerializedEmbedder) Available(ctx context.Context) bool {
	return s.inner.Available(ctx)
}

func (s *SerializedEmbedder) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.inner.Close()
}

// Inner returns the underlying embedder.
func (s *SerializedEmbedder) Inner() Embedder {
	return s.inner
}
