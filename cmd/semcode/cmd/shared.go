package cmd

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/flupkede/codesearch/internal/chunk"
	"github.com/flupkede/codesearch/internal/config"
	"github.com/flupkede/codesearch/internal/discovery"
	"github.com/flupkede/codesearch/internal/embed"
	"github.com/flupkede/codesearch/internal/headwatcher"
	semsync "github.com/flupkede/codesearch/internal/sync"
	"github.com/flupkede/codesearch/internal/watcher"
)

// projectRoot resolves the project root the same way every subcommand
// does: walk up from the working directory looking for a VCS/project
// marker, falling back to the working directory itself.
func projectRoot() string {
	root, err := config.FindProjectRoot(".")
	if err != nil {
		root, _ = os.Getwd()
	}
	return root
}

// loadConfig loads the merged configuration for root, falling back to
// defaults if no project config file is present.
func loadConfig(root string) *config.Config {
	cfg, err := config.Load(root)
	if err != nil {
		return config.NewConfig()
	}
	return cfg
}

// buildEmbedder constructs the configured embedder wrapped with the
// serialization and query-cache layers spec.md §4.11 step 1 requires.
func buildEmbedder(ctx context.Context, cfg *config.Config) (embed.Embedder, error) {
	return embed.NewEmbedder(ctx, cfg.Embeddings)
}

// buildHeadWatcher returns a Head Watcher when root is a git repository,
// or nil when it isn't — not having a .git directory is not an error.
func buildHeadWatcher(root string) *headwatcher.Watcher {
	hw, err := headwatcher.New(root)
	if err != nil {
		return nil
	}
	return hw
}

// coordinatorConfig assembles the synchroniser's collaborators the same
// way for the index and watch commands.
func coordinatorConfig(root string, cfg *config.Config, embedder embed.Embedder) (semsync.Config, error) {
	languages := chunk.NewLanguageRegistry()

	opts := watcher.DefaultOptions()
	if d, err := time.ParseDuration(cfg.Performance.WatchDebounce); err == nil && d > 0 {
		opts.DebounceWindow = d
	}
	fsWatcher, err := watcher.New(root, opts)
	if err != nil {
		return semsync.Config{}, fmt.Errorf("failed to start file watcher: %w", err)
	}

	return semsync.Config{
		RootPath:       root,
		CodeChunker:    chunk.NewCodeChunker(),
		MDChunker:      chunk.NewMarkdownChunker(),
		Languages:      languages,
		Watcher:        fsWatcher,
		HeadWatcher:    buildHeadWatcher(root),
		Embedder:       embedder,
		ModelName:      cfg.Embeddings.Model,
		ModelShortName: embedder.ModelName(),
		Dimensions:     cfg.Embeddings.Dimensions,
	}, nil
}

// dbDirFor returns the database directory a freshly bootstrapped
// project would use: <root>/.semcode.
func dbDirFor(root string) string {
	return filepath.Join(root, discovery.DBDirName)
}
