package cmd

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/flupkede/codesearch/internal/discovery"
	"github.com/flupkede/codesearch/internal/output"
	"github.com/flupkede/codesearch/internal/store"
	semsync "github.com/flupkede/codesearch/internal/sync"
)

func newWatchCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Keep the index converged with the project tree",
		Long: `watch runs a startup refresh and then the file-event loop: it
drains the File Watcher on a fixed tick, debounces rapid changes, and
flushes re-chunked/re-embedded files to the stores. It also polls the
Head Watcher each tick and runs a full branch refresh whenever HEAD
moves. Stop it with Ctrl-C.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runWatch(cmd)
		},
	}
	return cmd
}

func runWatch(cmd *cobra.Command) error {
	out := output.New(cmd.OutOrStdout())
	root := projectRoot()
	dbDir := dbDirFor(root)

	if !discovery.IsValidDatabase(dbDir) {
		return fmt.Errorf("no database found at %s; run 'semcode index' first", dbDir)
	}

	meta, err := store.LoadMetadataFile(store.FacadeConfig{DataDir: dbDir}.MetadataPath())
	if err != nil {
		return fmt.Errorf("failed to read database metadata: %w", err)
	}

	cfg := loadConfig(root)
	cfg.Embeddings.Dimensions = meta.Dimensions

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	embedder, err := buildEmbedder(ctx, cfg)
	if err != nil {
		return fmt.Errorf("failed to build embedder: %w", err)
	}
	defer func() { _ = embedder.Close() }()

	facade, err := store.Open(store.FacadeConfig{DataDir: dbDir, Dimensions: meta.Dimensions, MapSizeMB: cfg.Performance.LMDBMapSizeMB})
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

	out.Status("", "Running startup refresh...")
	if err := coordinator.StartupRefresh(ctx); err != nil {
		return fmt.Errorf("startup refresh failed: %w", err)
	}

	if err := syncCfg.Watcher.Start(ctx); err != nil {
		return fmt.Errorf("failed to start file watcher: %w", err)
	}
	defer func() { _ = syncCfg.Watcher.Stop() }()

	out.Status("", fmt.Sprintf("Watching %s for changes (Ctrl-C to stop)...", root))
	return coordinator.Run(ctx)
}
