package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/flupkede/codesearch/internal/discovery"
	"github.com/flupkede/codesearch/internal/output"
	"github.com/flupkede/codesearch/internal/store"
	semsync "github.com/flupkede/codesearch/internal/sync"
)

func newDoctorCmd() *cobra.Command {
	var repair bool

	cmd := &cobra.Command{
		Use:   "doctor",
		Short: "Diagnose the index and optionally repair inconsistencies",
		Long: `doctor reports whether a database can be found for the current
project and summarizes its store sizes. Pass --repair to additionally
cross-check the Chunk Store against the Vector Store and Lexical
Index, deleting any orphaned vector or lexical entries it finds.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runDoctor(cmd, repair)
		},
	}

	cmd.Flags().BoolVar(&repair, "repair", false, "Cross-check stores and delete orphaned entries")

	return cmd
}

func runDoctor(cmd *cobra.Command, repair bool) error {
	out := output.New(cmd.OutOrStdout())
	root := projectRoot()

	dbDir, err := discovery.Find(root)
	if err != nil {
		out.Error(fmt.Sprintf("no database found for %s", root))
		return nil
	}
	out.Success(fmt.Sprintf("database found at %s", dbDir))

	meta, err := store.LoadMetadataFile(store.FacadeConfig{DataDir: dbDir}.MetadataPath())
	if err != nil {
		out.Error(fmt.Sprintf("failed to read metadata.json: %v", err))
		return nil
	}
	out.Status("", fmt.Sprintf("model: %s (%s), dimensions: %d, indexed: %s",
		meta.ModelName, meta.ModelShortName, meta.Dimensions, meta.IndexedAt))

	facade, err := store.Open(store.FacadeConfig{DataDir: dbDir, Dimensions: meta.Dimensions})
	if err != nil {
		out.Error(fmt.Sprintf("failed to open database: %v", err))
		return nil
	}
	defer func() { _ = facade.Close() }()

	stats, err := facade.Stats()
	if err != nil {
		out.Error(fmt.Sprintf("failed to gather stats: %v", err))
		return nil
	}
	out.Status("", fmt.Sprintf("chunks: %d, vectors: %d, lexical: %d, embedding cache: %d, files: %d, vector index state: %s",
		stats.ChunkCount, stats.VectorCount, stats.LexicalCount, stats.CacheCount, stats.FileCount, vectorStateName(stats.VectorState)))

	if !repair {
		out.Status("", "re-run with --repair to cross-check stores and delete orphaned entries")
		return nil
	}

	coordinator := semsync.NewCoordinator(semsync.Config{RootPath: root, Facade: facade})
	report, err := coordinator.Repair(cmd.Context())
	if err != nil {
		out.Error(fmt.Sprintf("consistency check failed: %v", err))
		return nil
	}
	if len(report.Inconsistencies) == 0 {
		out.Success(fmt.Sprintf("checked %d chunks, no inconsistencies found (%s)", report.Checked, report.Duration))
		return nil
	}

	out.Warningf("found %d inconsistencies in %s", len(report.Inconsistencies), report.Duration)
	for _, inc := range report.Inconsistencies {
		out.Status("", fmt.Sprintf("  %s: chunk %d", inc.Kind, inc.ChunkID))
	}

	return nil
}

func vectorStateName(s store.VectorIndexState) string {
	switch s {
	case store.VectorIndexEmpty:
		return "empty"
	case store.VectorIndexDirty:
		return "dirty"
	case store.VectorIndexIndexed:
		return "indexed"
	default:
		return "unknown"
	}
}
