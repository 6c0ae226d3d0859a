package embed

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func mockEmbedServer(t *testing.T, handler http.HandlerFunc) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return srv
}

func fixedVectorHandler(dims int) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req httpEmbedRequest
		_ = json.NewDecoder(r.Body).Decode(&req)

		embeddings := make([][]float32, len(req.Input))
		for i := range req.Input {
			vec := make([]float32, dims)
			vec[0] = 1
			embeddings[i] = vec
		}
		_ = json.NewEncoder(w).Encode(httpEmbedResponse{Embeddings: embeddings})
	}
}

func TestHTTPEmbedder_Embed_ReturnsNormalizedVector(t *testing.T) {
	srv := mockEmbedServer(t, fixedVectorHandler(4))

	e, err := NewHTTPEmbedder(context.Background(), HTTPConfig{Endpoint: srv.URL, Dimensions: 4})
	require.NoError(t, err)
	defer e.Close()

	vec, err := e.Embed(context.Background(), "func main() {}")
	require.NoError(t, err)
	assert.Len(t, vec, 4)
	assert.InDelta(t, 1.0, vectorMagnitude(vec), 0.0001)
}

func TestHTTPEmbedder_Embed_EmptyInputReturnsZeroVector(t *testing.T) {
	srv := mockEmbedServer(t, fixedVectorHandler(4))

	e, err := NewHTTPEmbedder(context.Background(), HTTPConfig{Endpoint: srv.URL, Dimensions: 4})
	require.NoError(t, err)
	defer e.Close()

	vec, err := e.Embed(context.Background(), "   ")
	require.NoError(t, err)
	for _, v := range vec {
		assert.Equal(t, float32(0), v)
	}
}

func TestHTTPEmbedder_New_DetectsDimensionsWhenUnset(t *testing.T) {
	srv := mockEmbedServer(t, fixedVectorHandler(6))

	e, err := NewHTTPEmbedder(context.Background(), HTTPConfig{Endpoint: srv.URL})
	require.NoError(t, err)
	defer e.Close()

	assert.Equal(t, 6, e.Dimensions())
}

func TestHTTPEmbedder_EmbedBatch_ChunksByBatchSize(t *testing.T) {
	var maxBatch int
	handler := func(w http.ResponseWriter, r *http.Request) {
		var req httpEmbedRequest
		_ = json.NewDecoder(r.Body).Decode(&req)
		if len(req.Input) > maxBatch {
			maxBatch = len(req.Input)
		}
		embeddings := make([][]float32, len(req.Input))
		for i := range req.Input {
			embeddings[i] = []float32{1, 0}
		}
		_ = json.NewEncoder(w).Encode(httpEmbedResponse{Embeddings: embeddings})
	}
	srv := mockEmbedServer(t, handler)

	e, err := NewHTTPEmbedder(context.Background(), HTTPConfig{Endpoint: srv.URL, Dimensions: 2, BatchSize: 2})
	require.NoError(t, err)
	defer e.Close()

	texts := []string{"a", "b", "c", "d", "e"}
	results, err := e.EmbedBatch(context.Background(), texts)
	require.NoError(t, err)
	assert.Len(t, results, 5)
	assert.LessOrEqual(t, maxBatch, 2)
}

func TestHTTPEmbedder_New_NoEndpoint_ReturnsError(t *testing.T) {
	_, err := NewHTTPEmbedder(context.Background(), HTTPConfig{})
	require.Error(t, err)
}

func TestHTTPEmbedder_Embed_ServerError_ReturnsError(t *testing.T) {
	srv := mockEmbedServer(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	})

	e, err := NewHTTPEmbedder(context.Background(), HTTPConfig{Endpoint: srv.URL, Dimensions: 4, MaxRetries: 1})
	require.NoError(t, err)
	defer func() { _ = e.Close() }()

	_, err = e.Embed(context.Background(), "text")
	require.Error(t, err)
}

func TestHTTPEmbedder_Close_AfterClose_Errors(t *testing.T) {
	srv := mockEmbedServer(t, fixedVectorHandler(4))

	e, err := NewHTTPEmbedder(context.Background(), HTTPConfig{Endpoint: srv.URL, Dimensions: 4})
	require.NoError(t, err)
	require.NoError(t, e.Close())
	require.NoError(t, e.Close())

	_, err = e.Embed(context.Background(), "text")
	require.Error(t, err)
}

func TestHTTPEmbedder_ModelName_DefaultsToHTTP(t *testing.T) {
	srv := mockEmbedServer(t, fixedVectorHandler(4))

	e, err := NewHTTPEmbedder(context.Background(), HTTPConfig{Endpoint: srv.URL, Dimensions: 4})
	require.NoError(t, err)
	defer e.Close()

	assert.Equal(t, "http", e.ModelName())
}
