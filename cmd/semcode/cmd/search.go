package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/flupkede/codesearch/internal/discovery"
	"github.com/flupkede/codesearch/internal/output"
	"github.com/flupkede/codesearch/internal/search"
	"github.com/flupkede/codesearch/internal/store"
)

type searchOptions struct {
	limit   int
	prefix  string
	format  string
	verbose bool
}

func newSearchCmd() *cobra.Command {
	var opts searchOptions

	cmd := &cobra.Command{
		Use:   "search <query>",
		Short: "Search the indexed codebase",
		Long: `search runs the hybrid query planner: the query is embedded and
searched against the Vector Store, searched against the Lexical Index,
and searched once per detected identifier for an exact phrase match.
The ranked lists are fused with Reciprocal Rank Fusion and boosted by
structural intent and primary-language match before being returned.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			query := strings.Join(args, " ")
			return runSearch(cmd.Context(), cmd, query, opts)
		},
	}

	cmd.Flags().IntVarP(&opts.limit, "limit", "n", 10, "Maximum number of results")
	cmd.Flags().StringVarP(&opts.prefix, "path", "p", "", "Restrict results to this path prefix")
	cmd.Flags().StringVarP(&opts.format, "format", "f", "text", "Output format: text, json")
	cmd.Flags().BoolVarP(&opts.verbose, "verbose", "v", false, "Include full chunk content in results")

	return cmd
}

func runSearch(ctx context.Context, cmd *cobra.Command, query string, opts searchOptions) error {
	out := output.New(cmd.OutOrStdout())

	dbDir, err := discovery.Find(projectRoot())
	if err != nil {
		return fmt.Errorf("no index found; run 'semcode index' first: %w", err)
	}

	meta, err := store.LoadMetadataFile(store.FacadeConfig{DataDir: dbDir}.MetadataPath())
	if err != nil {
		return fmt.Errorf("failed to read database metadata: %w", err)
	}

	root := projectRoot()
	cfg := loadConfig(root)
	cfg.Embeddings.Dimensions = meta.Dimensions

	embedder, err := buildEmbedder(ctx, cfg)
	if err != nil {
		return fmt.Errorf("failed to build embedder: %w", err)
	}
	defer func() { _ = embedder.Close() }()

	facade, err := store.Open(store.FacadeConfig{DataDir: dbDir, Dimensions: meta.Dimensions})
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer func() { _ = facade.Close() }()

	engine := search.New(facade.NewReader(), embedder, search.Config{
		RRFConstant:           cfg.Search.RRFConstant,
		ExactMatchRRFConstant: cfg.Search.ExactMatchRRFConstant,
		VectorFanout:          cfg.Search.VectorFanout,
	})

	results, err := engine.Search(ctx, search.Request{
		Query:            query,
		Limit:            opts.limit,
		FilterPathPrefix: opts.prefix,
		Verbose:          opts.verbose,
	})
	if err != nil {
		return fmt.Errorf("search failed: %w", err)
	}

	if opts.format == "json" {
		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		return enc.Encode(results)
	}

	if len(results) == 0 {
		out.Status("", fmt.Sprintf("No results found for %q", query))
		return nil
	}

	out.Statusf("", "Found %d results for %q:", len(results), query)
	out.Newline()
	for i, r := range results {
		location := fmt.Sprintf("%s:%d", r.Path, r.StartLine)
		out.Statusf("", "%d. %s (%s, score: %.3f)", i+1, location, r.Kind, r.Score)
		if r.Signature != "" {
			out.Status("", "   "+r.Signature)
		}
		if opts.verbose {
			for _, line := range strings.Split(r.Content, "\n") {
				out.Status("", "   "+line)
			}
		}
		out.Newline()
	}

	return nil
}
