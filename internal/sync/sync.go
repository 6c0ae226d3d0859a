// Package sync is the control plane that keeps the stores behind the
// Shared Store Facade converged with the project tree: a startup
// refresh, a debounced file-event loop, and a branch refresh triggered
// by the Head Watcher (spec.md §4.10). All three entry points mutate the
// writer-side stores and are mutually exclusive with each other,
// directly mirroring the teacher's internal/index.Coordinator's single
// mutex around HandleEvents/full-scan operations.
package sync

import (
	"sync"
	"time"

	"github.com/flupkede/codesearch/internal/chunk"
	"github.com/flupkede/codesearch/internal/embed"
	"github.com/flupkede/codesearch/internal/headwatcher"
	"github.com/flupkede/codesearch/internal/store"
	"github.com/flupkede/codesearch/internal/watcher"
)

// DefaultMaxFileSize mirrors the teacher's DefaultMaxFileSize guard
// against pathologically large files blowing up the chunker.
const DefaultMaxFileSize int64 = 100 * 1024 * 1024

// DefaultFlushTimeout is how long the file-event loop waits after the
// last observed event before flushing to_index/to_remove (spec.md
// §4.10.2's FLUSH_TIMEOUT).
const DefaultFlushTimeout = 2 * time.Second

// DefaultPollInterval is how often Run wakes to drain the watcher and
// poll the Head Watcher.
const DefaultPollInterval = 200 * time.Millisecond

// Config wires a Coordinator to its collaborators.
type Config struct {
	RootPath string

	Facade   *store.Facade
	Embedder embed.Embedder

	CodeChunker chunk.Chunker
	MDChunker   chunk.Chunker
	Languages   *chunk.LanguageRegistry

	Watcher     watcher.Watcher
	HeadWatcher *headwatcher.Watcher // nil when RootPath is not a git repository

	ModelName      string
	ModelShortName string
	Dimensions     int

	MaxFileSize  int64
	FlushTimeout time.Duration
	PollInterval time.Duration
}

func (c Config) maxFileSize() int64 {
	if c.MaxFileSize > 0 {
		return c.MaxFileSize
	}
	return DefaultMaxFileSize
}

func (c Config) flushTimeout() time.Duration {
	if c.FlushTimeout > 0 {
		return c.FlushTimeout
	}
	return DefaultFlushTimeout
}

func (c Config) pollInterval() time.Duration {
	if c.PollInterval > 0 {
		return c.PollInterval
	}
	return DefaultPollInterval
}

// Coordinator is the Synchroniser. A single mutex enforces spec.md
// §4.10's "three entry points, all mutually exclusive on the writer
// stores" rule, the same role the teacher's Coordinator.mu plays.
type Coordinator struct {
	cfg Config
	mu  sync.Mutex
}

// NewCoordinator builds a Coordinator from cfg.
func NewCoordinator(cfg Config) *Coordinator {
	return &Coordinator{cfg: cfg}
}
