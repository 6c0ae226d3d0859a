package cmd

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/flupkede/codesearch/internal/discovery"
	"github.com/flupkede/codesearch/internal/output"
	"github.com/flupkede/codesearch/internal/store"
	semsync "github.com/flupkede/codesearch/internal/sync"
)

func newIndexCmd() *cobra.Command {
	var force bool

	cmd := &cobra.Command{
		Use:   "index [path]",
		Short: "Build or refresh the hybrid search index for a project",
		Long: `index is the only command that may create a new database: it
writes metadata.json (the model and dimension this database is locked
to) and then runs the synchroniser's startup refresh to bring the
Chunk Store, Vector Store and Lexical Index up to date with the
project tree.

Running it again on an already-indexed project performs an
incremental refresh: only files whose size, mtime or content hash
changed since the last run are re-chunked and re-embedded.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			root := projectRoot()
			if len(args) == 1 {
				root = args[0]
			}
			return runIndex(cmd.Context(), cmd, root, force)
		},
	}

	cmd.Flags().BoolVar(&force, "force", false, "Fail with an error instead of refreshing when a valid database already exists")

	return cmd
}

func runIndex(ctx context.Context, cmd *cobra.Command, root string, force bool) error {
	out := output.New(cmd.OutOrStdout())
	cfg := loadConfig(root)
	dbDir := dbDirFor(root)

	valid := discovery.IsValidDatabase(dbDir)
	if valid && force {
		return fmt.Errorf("refusing to overwrite existing database at %s; remove it first if you really want to rebuild from scratch", dbDir)
	}

	embedder, err := buildEmbedder(ctx, cfg)
	if err != nil {
		return fmt.Errorf("failed to build embedder: %w", err)
	}
	defer func() { _ = embedder.Close() }()

	if !valid {
		out.Status("", fmt.Sprintf("Creating new index at %s", dbDir))
		meta := store.NewMetadata(embedder.ModelName(), cfg.Embeddings.Model, cfg.Embeddings.Dimensions, time.Now())
		facadeCfg := store.FacadeConfig{DataDir: dbDir, Dimensions: cfg.Embeddings.Dimensions, MapSizeMB: cfg.Performance.LMDBMapSizeMB}
		if err := store.SaveMetadataFile(facadeCfg.MetadataPath(), meta); err != nil {
			return fmt.Errorf("failed to bootstrap database: %w", err)
		}
	}

	facade, err := store.Open(store.FacadeConfig{DataDir: dbDir, Dimensions: cfg.Embeddings.Dimensions, MapSizeMB: cfg.Performance.LMDBMapSizeMB})
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer func() { _ = facade.Close() }()

	syncCfg, err := coordinatorConfig(root, cfg, embedder)
	if err != nil {
		return err
	}
	syncCfg.Facade = facade
	coordinator := semsync.NewCoordinator(syncCfg)

	out.Status("", "Scanning project and indexing changed files...")
	if err := coordinator.StartupRefresh(ctx); err != nil {
		return fmt.Errorf("indexing failed: %w", err)
	}

	stats, err := facade.Stats()
	if err == nil {
		out.Successf("Indexed %d chunks across %d files", stats.ChunkCount, stats.FileCount)
	}

	if err := discovery.Register(root, time.Now()); err != nil {
		out.Warningf("failed to register project in global registry: %v", err)
	}

	return nil
}
