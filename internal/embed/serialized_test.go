package embed

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSerializedEmbedder_ImplementsEmbedderInterface(t *testing.T) {
	var _ Embedder = NewSerializedEmbedder(newMockEmbedder(8))
}

func TestSerializedEmbedder_SerializesConcurrentCalls(t *testing.T) {
	inner := newMockEmbedder(4)
	s := NewSerializedEmbedder(inner)

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := s.Embed(context.Background(), "text")
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	assert.EqualValues(t, 20, inner.embedCalls.Load())
}

func TestSerializedEmbedder_PassesThroughMetadata(t *testing.T) {
	inner := newMockEmbedder(16)
	s := NewSerializedEmbedder(inner)

	assert.Equal(t, 16, s.Dimensions())
	assert.Equal(t, "mock-model", s.ModelName())
	assert.True(t, s.Available(context.Background()))
	require.NoError(t, s.Close())
	assert.Same(t, inner, s.Inner())
}
