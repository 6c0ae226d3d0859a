package search

import (
	"context"
	"path/filepath"
	"sort"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/flupkede/codesearch/internal/embed"
	semerrors "github.com/flupkede/codesearch/internal/errors"
	"github.com/flupkede/codesearch/internal/store"
)

// Config tunes the Engine's behaviour; zero values fall back to the
// spec's defaults.
type Config struct {
	RRFConstant          int
	ExactMatchRRFConstant int
	VectorFanout         int // multiplier on limit for the vector/lexical candidate pool (spec default: 3)

	// PrimaryLanguageExt is the file extension (".go", ".py", ...) of
	// the repository's dominant language, used for step 6's language
	// boost. Empty disables the boost.
	PrimaryLanguageExt string
}

func (c Config) rrfConstant() int {
	if c.RRFConstant > 0 {
		return c.RRFConstant
	}
	return DefaultRRFConstant
}

func (c Config) exactMatchK() int {
	if c.ExactMatchRRFConstant > 0 {
		return c.ExactMatchRRFConstant
	}
	return ExactMatchRRFConstant
}

func (c Config) vectorFanout() int {
	if c.VectorFanout > 0 {
		return c.VectorFanout
	}
	return 3
}

// Engine is the Query Planner (spec.md §4.11): it fans a query out to
// the vector and lexical indexes, optionally adds one exact-phrase pass
// per detected identifier, fuses the ranked lists with RRF, resolves
// hits against the Chunk Store, and applies post-hoc boosts.
type Engine struct {
	reader   *store.Reader
	embedder embed.Embedder
	cfg      Config
}

// New builds an Engine over a read-only facade handle. Only a Reader is
// needed: the query path never mutates the stores (spec.md §5).
func New(reader *store.Reader, embedder embed.Embedder, cfg Config) *Engine {
	return &Engine{reader: reader, embedder: embedder, cfg: cfg}
}

// Search runs the full seven-step query plan from spec.md §4.11.
func (e *Engine) Search(ctx context.Context, req Request) ([]Result, error) {
	limit := req.Limit
	if limit <= 0 {
		limit = 20
	}
	fanout := limit * e.cfg.vectorFanout()

	// Step 1: embed the query. The embedder passed in is expected to be
	// wrapped with the query-embedding cache (embed.NewCachedEmbedder).
	vector, err := e.embedder.Embed(ctx, req.Query)
	if err != nil {
		return nil, semerrors.EmbeddingError("failed to embed query", err)
	}

	analysis := AnalyzeQuery(req.Query, e.cfg.rrfConstant())

	// Steps 2 and 4 run concurrently: vector search and lexical search
	// are independent reads under the reader lock.
	var vecResults []store.VectorResult
	var lexResults []store.LexicalResult
	var exactResults [][]store.LexicalResult

	var g errgroup.Group
	g.Go(func() error {
		var err error
		vecResults, err = e.reader.Vectors().Search(vector, fanout)
		return err
	})
	g.Go(func() error {
		var err error
		lexResults, err = e.reader.Lexical().Search(req.Query, fanout, "")
		return err
	})
	for _, ident := range analysis.Identifiers {
		ident := ident
		exactResults = append(exactResults, nil)
		idx := len(exactResults) - 1
		g.Go(func() error {
			res, err := e.reader.Lexical().SearchExact(ident, fanout)
			if err != nil {
				return err
			}
			exactResults[idx] = res
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	lists := []rankedList{
		{ids: vectorResultIDs(vecResults), k: analysis.KVec},
		{ids: lexicalResultIDs(lexResults), k: analysis.KFTS},
	}
	if len(analysis.Identifiers) > 0 {
		lists = append(lists, rankedList{
			ids: dedupeExactMatches(exactResults),
			k:   e.cfg.exactMatchK(),
		})
	}

	fusedResults := fuseRRF(lists...)

	// Step 5: resolve to chunk metadata.
	ids := make([]uint32, len(fusedResults))
	for i, f := range fusedResults {
		ids[i] = f.chunkID
	}
	chunks, err := e.reader.Chunks().GetBatch(ids)
	if err != nil {
		return nil, err
	}
	chunkByID := make(map[uint32]*store.Chunk, len(chunks))
	for _, c := range chunks {
		chunkByID[c.ID] = c
	}

	results := make([]Result, 0, len(fusedResults))
	for _, f := range fusedResults {
		c, ok := chunkByID[f.chunkID]
		if !ok {
			continue
		}
		score := e.applyBoosts(f.score, c, analysis)
		results = append(results, Result{
			Path:      c.Path,
			StartLine: c.StartLine,
			EndLine:   c.EndLine,
			Kind:      c.Kind,
			Signature: c.Signature,
			Score:     score,
			Content:   verboseContent(req.Verbose, c.Content),
		})
	}

	// Step 7: re-sort after boosts, filter by path prefix, truncate.
	sort.SliceStable(results, func(i, j int) bool {
		return results[i].Score > results[j].Score
	})
	if req.FilterPathPrefix != "" {
		results = filterByPrefix(results, req.FilterPathPrefix)
	}
	if len(results) > limit {
		results = results[:limit]
	}
	return results, nil
}

// applyBoosts implements step 6: a repository-primary-language
// multiplier and a structural-kind multiplier.
func (e *Engine) applyBoosts(score float64, c *store.Chunk, analysis QueryAnalysis) float64 {
	if e.cfg.PrimaryLanguageExt != "" && filepath.Ext(c.Path) == e.cfg.PrimaryLanguageExt {
		score *= PrimaryLanguageBoost
	}
	if analysis.StructuralKind != "" && c.Kind == analysis.StructuralKind {
		score *= StructuralKindBoost
	}
	return score
}

func verboseContent(verbose bool, content string) string {
	if !verbose {
		return ""
	}
	return content
}

func filterByPrefix(results []Result, prefix string) []Result {
	out := results[:0]
	for _, r := range results {
		if strings.HasPrefix(r.Path, prefix) {
			out = append(out, r)
		}
	}
	return out
}

func vectorResultIDs(results []store.VectorResult) []uint32 {
	ids := make([]uint32, len(results))
	for i, r := range results {
		ids[i] = r.ChunkID
	}
	return ids
}

func lexicalResultIDs(results []store.LexicalResult) []uint32 {
	ids := make([]uint32, len(results))
	for i, r := range results {
		ids[i] = r.ChunkID
	}
	return ids
}

// dedupeExactMatches merges one or more per-identifier exact-phrase
// result lists into a single ranked list, deduplicated by chunk id and
// ordered by best (lowest) rank seen across the identifier searches.
func dedupeExactMatches(lists [][]store.LexicalResult) []uint32 {
	bestRank := make(map[uint32]int)
	for _, list := range lists {
		for i, r := range list {
			if existing, ok := bestRank[r.ChunkID]; !ok || i < existing {
				bestRank[r.ChunkID] = i
			}
		}
	}
	ids := make([]uint32, 0, len(bestRank))
	for id := range bestRank {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool {
		if bestRank[ids[i]] != bestRank[ids[j]] {
			return bestRank[ids[i]] < bestRank[ids[j]]
		}
		return ids[i] < ids[j]
	})
	return ids
}
