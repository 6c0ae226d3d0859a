package embed

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"
)

// HTTPConfig configures the generic HTTP embedder.
type HTTPConfig struct {
	// Endpoint is the embedding server base URL. The embedder POSTs to
	// Endpoint + "/embed".
	Endpoint string

	// Model is sent as the "model" field of the request; servers that
	// don't distinguish models may ignore it.
	Model string

	// Dimensions can be set to override auto-detection (0 = detect from
	// the first response).
	Dimensions int

	// BatchSize bounds how many texts are sent per request.
	BatchSize int

	// Timeout bounds a single HTTP request.
	Timeout time.Duration

	// MaxRetries is the number of retry attempts for transient failures.
	MaxRetries int
}

// DefaultHTTPConfig returns sensible defaults for an HTTP embedder.
func DefaultHTTPConfig() HTTPConfig {
	return HTTPConfig{
		BatchSize:  DefaultBatchSize,
		Timeout:    DefaultTimeout,
		MaxRetries: DefaultMaxRetries,
	}
}

// httpEmbedRequest is the generic {"input": [...]} request body.
type httpEmbedRequest struct {
	Model string   `json:"model,omitempty"`
	Input []string `json:"input"`
}

// httpEmbedResponse is the generic {"embeddings": [[...]]} response body.
type httpEmbedResponse struct {
	Embeddings [][]float32 `json:"embeddings"`
}

// HTTPEmbedder generates embeddings by calling a remote HTTP server
// speaking the generic {"input": [...]} -> {"embeddings": [[...]]}
// contract. It is the "pluggable remote backend" spec.md's Embedder
// capability set leaves open, grounded on the teacher's OllamaEmbedder
// but without Ollama-specific model discovery or thermal-throttling
// timeout progression.
type HTTPEmbedder struct {
	client *http.Client
	cfg    HTTPConfig

	mu     sync.RWMutex
	closed bool
	dims   int
}

var _ Embedder = (*HTTPEmbedder)(nil)

// NewHTTPEmbedder creates an HTTP embedder. It performs a single probe
// request to detect dimensions when cfg.Dimensions is 0.
func NewHTTPEmbedder(ctx context.Context, cfg HTTPConfig) (*HTTPEmbedder, error) {
	if cfg.Endpoint == "" {
		return nil, fmt.Errorf("embed: http embedder requires an endpoint")
	}
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = DefaultBatchSize
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}
	if cfg.MaxRetries <= 0 {
		cfg.MaxRetries = DefaultMaxRetries
	}

	e := &HTTPEmbedder{
		client: &http.Client{},
		cfg:    cfg,
		dims:   cfg.Dimensions,
	}

	if e.dims == 0 {
		probeCtx, cancel := context.WithTimeout(ctx, cfg.Timeout)
		defer cancel()
		embeddings, err := e.doEmbed(probeCtx, []string{"dimension probe"})
		if err != nil {
			return nil, fmt.Errorf("embed: failed to detect dimensions: %w", err)
		}
		if len(embeddings) == 0 || len(embeddings[0]) == 0 {
			return nil, fmt.Errorf("embed: empty embedding returned during dimension probe")
		}
		e.dims = len(embeddings[0])
	}

	return e, nil
}

// Embed generates an embedding for a single text.
func (e *HTTPEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	e.mu.RLock()
	if e.closed {
		e.mu.RUnlock()
		return nil, fmt.Errorf("embedder is closed")
	}
	e.mu.RUnlock()

	trimmed := strings.TrimSpace(text)
	if trimmed == "" {
		return make([]float32, e.dims), nil
	}

	embeddings, err := e.embedWithRetry(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	if len(embeddings) == 0 {
		return nil, fmt.Errorf("no embedding returned")
	}
	return embeddings[0], nil
}

// EmbedBatch generates embeddings for multiple texts, chunked by BatchSize.
func (e *HTTPEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	e.mu.RLock()
	if e.closed {
		e.mu.RUnlock()
		return nil, fmt.Errorf("embedder is closed")
	}
	e.mu.RUnlock()

	if len(texts) == 0 {
		return [][]float32{}, nil
	}

	type indexedText struct {
		idx  int
		text string
	}
	var nonEmpty []indexedText
	results := make([][]float32, len(texts))
	for i, text := range texts {
		if strings.TrimSpace(text) == "" {
			results[i] = make([]float32, e.dims)
		} else {
			nonEmpty = append(nonEmpty, indexedText{i, text})
		}
	}
	if len(nonEmpty) == 0 {
		return results, nil
	}

	for start := 0; start < len(nonEmpty); start += e.cfg.BatchSize {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		default:
		}

		end := start + e.cfg.BatchSize
		if end > len(nonEmpty) {
			end = len(nonEmpty)
		}
		batch := nonEmpty[start:end]
		batchTexts := make([]string, len(batch))
		for i, it := range batch {
			batchTexts[i] = it.text
		}

		embeddings, err := e.embedWithRetry(ctx, batchTexts)
		if err != nil {
			return nil, fmt.Errorf("failed to embed batch: %w", err)
		}
		for i, emb := range embeddings {
			results[batch[i].idx] = emb
		}
	}

	return results, nil
}

// embedWithRetry wraps doEmbed with exponential-backoff retry.
func (e *HTTPEmbedder) embedWithRetry(ctx context.Context, texts []string) ([][]float32, error) {
	var embeddings [][]float32
	retryCfg := RetryConfig{
		MaxRetries:   e.cfg.MaxRetries,
		InitialDelay: 200 * time.Millisecond,
		MaxDelay:     5 * time.Second,
		Multiplier:   2.0,
	}

	err := DownloadWithRetry(ctx, retryCfg, func() error {
		reqCtx, cancel := context.WithTimeout(ctx, e.cfg.Timeout)
		defer cancel()
		var err error
		embeddings, err = e.doEmbed(reqCtx, texts)
		return err
	})
	if err != nil {
		return nil, err
	}
	return embeddings, nil
}

// doEmbed performs a single HTTP request against Endpoint + "/embed".
func (e *HTTPEmbedder) doEmbed(ctx context.Context, texts []string) ([][]float32, error) {
	url := strings.TrimRight(e.cfg.Endpoint, "/") + "/embed"

	body, err := json.Marshal(httpEmbedRequest{Model: e.cfg.Model, Input: texts})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := e.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to embedding server: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		respBody, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("embedding request failed with status %d: %s", resp.StatusCode, string(respBody))
	}

	var result httpEmbedResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}
	if len(result.Embeddings) != len(texts) {
		return nil, fmt.Errorf("expected %d embeddings, got %d", len(texts), len(result.Embeddings))
	}

	for i, emb := range result.Embeddings {
		result.Embeddings[i] = normalizeVector(emb)
	}
	return result.Embeddings, nil
}

// Dimensions returns the embedding dimension.
func (e *HTTPEmbedder) Dimensions() int {
	return e.dims
}

// ModelName returns the configured model identifier.
func (e *HTTPEmbedder) ModelName() string {
	if e.cfg.Model == "" {
		return "http"
	}
	return e.cfg.Model
}

// Available checks whether the embedding server responds to a cheap probe.
func (e *HTTPEmbedder) Available(ctx context.Context) bool {
	e.mu.RLock()
	if e.closed {
		e.mu.RUnlock()
		return false
	}
	e.mu.RUnlock()

	probeCtx, cancel := context.WithTimeout(ctx, e.cfg.Timeout)
	defer cancel()
	_, err := e.doEmbed(probeCtx, []string{"availability probe"})
	return err == nil
}

// Close releases resources.
func (e *HTTPEmbedder) Close() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.closed {
		return nil
	}
	e.closed = true
	e.client.CloseIdleConnections()
	return nil
}
