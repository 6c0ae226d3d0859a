package embed

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/flupkede/codesearch/internal/config"
)

func TestNewEmbedder_StaticProvider_ReturnsCachedSerializedStatic(t *testing.T) {
	e, err := NewEmbedder(context.Background(), config.EmbeddingsConfig{
		Provider:   "static",
		Dimensions: 32,
	})
	require.NoError(t, err)
	defer e.Close()

	vec, err := e.Embed(context.Background(), "func main() {}")
	require.NoError(t, err)
	assert.Len(t, vec, 32)
}

func TestNewEmbedder_HTTPProvider_WiresEndpoint(t *testing.T) {
	srv := mockEmbedServer(t, fixedVectorHandler(8))

	e, err := NewEmbedder(context.Background(), config.EmbeddingsConfig{
		Provider:   "http",
		Endpoint:   srv.URL,
		Dimensions: 8,
	})
	require.NoError(t, err)
	defer e.Close()

	vec, err := e.Embed(context.Background(), "func main() {}")
	require.NoError(t, err)
	assert.Len(t, vec, 8)
}

func TestNewEmbedder_HTTPProvider_Unreachable_ReturnsError(t *testing.T) {
	_, err := NewEmbedder(context.Background(), config.EmbeddingsConfig{
		Provider: "http",
		Endpoint: "",
	})
	require.Error(t, err)
}

func TestNewEmbedder_UnknownProvider_DefaultsToStatic(t *testing.T) {
	e, err := NewEmbedder(context.Background(), config.EmbeddingsConfig{
		Provider:   "nonsense",
		Dimensions: 16,
	})
	require.NoError(t, err)
	defer e.Close()

	assert.Equal(t, 16, e.Dimensions())
}

func TestNewEmbedder_ZeroQueryCacheEntries_UsesDefaultAndCaches(t *testing.T) {
	e, err := NewEmbedder(context.Background(), config.EmbeddingsConfig{
		Provider:          "static",
		Dimensions:        8,
		QueryCacheEntries: 0,
	})
	require.NoError(t, err)
	defer e.Close()

	_, ok := e.(*CachedEmbedder)
	require.True(t, ok)

	v1, err := e.Embed(context.Background(), "repeated text")
	require.NoError(t, err)
	v2, err := e.Embed(context.Background(), "repeated text")
	require.NoError(t, err)
	assert.Equal(t, v1, v2)
}

func TestParseProvider(t *testing.T) {
	assert.Equal(t, ProviderHTTP, ParseProvider("http"))
	assert.Equal(t, ProviderHTTP, ParseProvider("HTTP"))
	assert.Equal(t, ProviderStatic, ParseProvider("static"))
	assert.Equal(t, ProviderStatic, ParseProvider("anything-else"))
}
