// Package search implements the Query Planner (spec.md §4.11): embed,
// fan out to the vector and lexical indexes, fuse the ranked lists with
// reciprocal rank fusion, and apply post-hoc boosts.
package search

import (
	"regexp"
	"strings"

	"github.com/flupkede/codesearch/internal/store"
)

var (
	camelCasePattern  = regexp.MustCompile(`^[a-z][a-z0-9]*([A-Z][a-z0-9]*)+$`)
	pascalCasePattern = regexp.MustCompile(`^([A-Z][a-z0-9]*){2,}$`)
	snakeCasePattern  = regexp.MustCompile(`^[a-z][a-z0-9]*(_[a-z0-9]+)+$`)
	qualifiedPattern  = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*(\.[A-Za-z_][A-Za-z0-9_]*)+$`)
	identifierToken   = regexp.MustCompile(`[A-Za-z_][A-Za-z0-9_.]*`)
)

// structuralVerbs maps the verb/noun combinations spec.md §4.11 step 3
// calls "common verbs" onto the chunk kind they imply, so "function
// that parses JSON" boosts function/method chunks over type chunks.
var structuralVerbs = map[string]store.ChunkKind{
	"function": store.ChunkKindFunction,
	"func":     store.ChunkKindFunction,
	"method":   store.ChunkKindMethod,
	"class":    store.ChunkKindType,
	"struct":   store.ChunkKindType,
	"type":     store.ChunkKindType,
	"interface": store.ChunkKindType,
	"comment":  store.ChunkKindComment,
	"doc":      store.ChunkKindDoc,
}

// QueryAnalysis is the result of spec.md §4.11 step 3.
type QueryAnalysis struct {
	Identifiers   []string
	StructuralKind store.ChunkKind // empty if no structural intent detected
	KVec          int
	KFTS          int
}

// AnalyzeQuery extracts identifiers, detects structural intent, and
// computes adaptive RRF constants from the query's shape. Short,
// identifier-heavy queries favour the lexical list (a lower k_fts
// weights early lexical ranks more heavily); long conceptual queries
// favour the vector list.
func AnalyzeQuery(query string, baseK int) QueryAnalysis {
	trimmed := strings.TrimSpace(query)
	words := strings.Fields(trimmed)

	identifiers := extractIdentifiers(trimmed)
	kind := detectStructuralKind(words)

	kVec, kFTS := baseK, baseK
	switch {
	case len(identifiers) > 0 && len(words) <= 3:
		// Identifier-heavy, short query: trust the lexical list more.
		kFTS = maxInt(1, baseK/3)
		kVec = baseK * 2
	case len(words) >= 6:
		// Long, conceptual query: trust the vector list more.
		kVec = maxInt(1, baseK/2)
		kFTS = baseK * 2
	}

	return QueryAnalysis{
		Identifiers:    identifiers,
		StructuralKind: kind,
		KVec:           kVec,
		KFTS:           kFTS,
	}
}

// extractIdentifiers pulls out tokens that look like code identifiers:
// camelCase, PascalCase, snake_case, or dotted qualified names.
func extractIdentifiers(query string) []string {
	var ids []string
	seen := make(map[string]bool)
	for _, tok := range identifierToken.FindAllString(query, -1) {
		if !looksLikeIdentifier(tok) {
			continue
		}
		if seen[tok] {
			continue
		}
		seen[tok] = true
		ids = append(ids, tok)
	}
	return ids
}

func looksLikeIdentifier(tok string) bool {
	if len(tok) < 3 {
		return false
	}
	return camelCasePattern.MatchString(tok) ||
		pascalCasePattern.MatchString(tok) ||
		snakeCasePattern.MatchString(tok) ||
		qualifiedPattern.MatchString(tok)
}

func detectStructuralKind(words []string) store.ChunkKind {
	for _, w := range words {
		if kind, ok := structuralVerbs[strings.ToLower(strings.Trim(w, ".,!?"))]; ok {
			return kind
		}
	}
	return ""
}

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}
