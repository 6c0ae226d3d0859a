package search

import "github.com/flupkede/codesearch/internal/store"

// ExactMatchRRFConstant is the small, fixed k_e spec.md §4.11 calls for
// so exact identifier matches count heavily in the fused ranking.
const ExactMatchRRFConstant = 10

// DefaultRRFConstant is k_vec/k_fts's baseline before the adaptive
// per-query adjustment in classifier.go.
const DefaultRRFConstant = 60

// PrimaryLanguageBoost is the score multiplier applied in step 6 to
// chunks whose language matches the repository's recorded primary
// language.
const PrimaryLanguageBoost = 1.2

// StructuralKindBoost is the score multiplier applied to chunks whose
// kind matches the query's detected structural intent.
const StructuralKindBoost = 1.15

// Result is one ranked hit returned by the Query Planner (spec.md
// §4.11's returned item shape).
type Result struct {
	Path      string
	StartLine int
	EndLine   int
	Kind      store.ChunkKind
	Signature string
	Score     float64
	Content   string // populated only when Verbose is requested
}

// Request is the Query Planner's input (spec.md §4.11).
type Request struct {
	Query           string
	Limit           int
	FilterPathPrefix string
	Verbose         bool
}
