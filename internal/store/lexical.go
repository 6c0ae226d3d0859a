package store

import (
	"fmt"
	"strconv"
	"strings"
	"sync"

	"github.com/blevesearch/bleve/v2"
	"github.com/blevesearch/bleve/v2/analysis"
	"github.com/blevesearch/bleve/v2/analysis/analyzer/custom"
	"github.com/blevesearch/bleve/v2/analysis/token/lowercase"
	"github.com/blevesearch/bleve/v2/mapping"
	"github.com/blevesearch/bleve/v2/registry"
	"github.com/blevesearch/bleve/v2/search"
	"github.com/blevesearch/bleve/v2/search/query"

	semerrors "github.com/flupkede/codesearch/internal/errors"
)

const (
	CodeTokenizerName = "code_tokenizer"
	CodeStopFilterName = "code_stop"
	CodeAnalyzerName   = "code_analyzer"
)

// DefaultCodeStopWords are filtered out of both indexed content and
// incoming queries by the code stop filter.
var DefaultCodeStopWords = []string{
	"var", "let", "const", "func", "function", "def", "class",
	"return", "if", "else", "for", "while",
	"data", "result", "value", "item", "key", "err", "ctx", "tmp",
}

func init() {
	_ = registry.RegisterTokenizer(CodeTokenizerName, codeTokenizerConstructor)
	_ = registry.RegisterTokenFilter(CodeStopFilterName, codeStopFilterConstructor)
}

// lexicalDocument is the shape indexed into Bleve: the four fields
// SPEC_FULL §4.3 names for the lexical index.
type lexicalDocument struct {
	Content   string `json:"content"`
	Path      string `json:"path"`
	Signature string `json:"signature"`
	Kind      string `json:"kind"`
}

// LexicalIndex is the full-text side of the hybrid query, built on Bleve
// with a code-aware tokenizer reused from tokenizer.go. It is adapted
// from the teacher's BleveBM25Index, extended from a single "content"
// field to the four fields the chunk model exposes, plus an
// exact-phrase search used for identifier lookups.
type LexicalIndex struct {
	mu    sync.RWMutex
	index bleve.Index
	path  string
}

// OpenLexicalIndex opens (or creates) a Bleve index at path. An empty
// path creates an in-memory index, used by tests.
func OpenLexicalIndex(path string) (*LexicalIndex, error) {
	indexMapping, err := createLexicalMapping()
	if err != nil {
		return nil, semerrors.Invalid("failed to build lexical index mapping", err)
	}

	var idx bleve.Index
	if path == "" {
		idx, err = bleve.NewMemOnly(indexMapping)
	} else {
		idx, err = bleve.Open(path)
		if err == bleve.ErrorIndexPathDoesNotExist {
			idx, err = bleve.New(path, indexMapping)
		}
	}
	if err != nil {
		return nil, semerrors.IOError("failed to open lexical index", err)
	}

	return &LexicalIndex{index: idx, path: path}, nil
}

func createLexicalMapping() (*mapping.IndexMappingImpl, error) {
	indexMapping := bleve.NewIndexMapping()

	err := indexMapping.AddCustomAnalyzer(CodeAnalyzerName, map[string]interface{}{
		"type":      custom.Name,
		"tokenizer": CodeTokenizerName,
		"token_filters": []string{
			lowercase.Name,
			CodeStopFilterName,
		},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to add custom analyzer: %w", err)
	}
	indexMapping.DefaultAnalyzer = CodeAnalyzerName

	docMapping := bleve.NewDocumentMapping()
	kindField := bleve.NewTextFieldMapping()
	kindField.Analyzer = "keyword"
	docMapping.AddFieldMappingsAt("kind", kindField)

	indexMapping.AddDocumentMapping("_default", docMapping)

	return indexMapping, nil
}

// Index adds or replaces chunks in the lexical index, keyed by their
// chunk id formatted as a decimal string (Bleve document ids are
// strings).
func (l *LexicalIndex) Index(chunks []*Chunk) error {
	if len(chunks) == 0 {
		return nil
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	batch := l.index.NewBatch()
	for _, c := range chunks {
		doc := lexicalDocument{
			Content:   c.Content,
			Path:      c.Path,
			Signature: c.Signature,
			Kind:      string(c.Kind),
		}
		if err := batch.Index(docID(c.ID), doc); err != nil {
			return semerrors.Invalid(fmt.Sprintf("failed to index chunk %d", c.ID), err)
		}
	}
	if err := l.index.Batch(batch); err != nil {
		return semerrors.IOError("lexical index batch failed", err)
	}
	return nil
}

// Delete removes chunks from the lexical index.
func (l *LexicalIndex) Delete(chunkIDs []uint32) error {
	if len(chunkIDs) == 0 {
		return nil
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	batch := l.index.NewBatch()
	for _, id := range chunkIDs {
		batch.Delete(docID(id))
	}
	if err := l.index.Batch(batch); err != nil {
		return semerrors.IOError("lexical delete failed", err)
	}
	return nil
}

// Search runs a standard match query against content, weighted toward
// signature matches, with an optional kind filter (kind_hint in
// SPEC_FULL §4.3).
func (l *LexicalIndex) Search(queryStr string, limit int, kindHint ChunkKind) ([]LexicalResult, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()

	if strings.TrimSpace(queryStr) == "" {
		return nil, nil
	}

	contentMatch := bleve.NewMatchQuery(queryStr)
	contentMatch.SetField("content")

	sigMatch := bleve.NewMatchQuery(queryStr)
	sigMatch.SetField("signature")
	sigMatch.SetBoost(2.0)

	disjunct := bleve.NewDisjunctionQuery(contentMatch, sigMatch)

	var q query.Query = disjunct
	if kindHint != "" {
		kindTerm := bleve.NewTermQuery(string(kindHint))
		kindTerm.SetField("kind")
		q = bleve.NewConjunctionQuery(disjunct, kindTerm)
	}

	req := bleve.NewSearchRequest(q)
	req.Size = limit
	req.IncludeLocations = true

	result, err := l.index.Search(req)
	if err != nil {
		return nil, semerrors.IOError("lexical search failed", err)
	}

	return hitsToResults(result.Hits), nil
}

// SearchExact runs a phrase query for exact identifier lookups, used by
// the query planner's per-identifier exact-match source list.
func (l *LexicalIndex) SearchExact(phrase string, limit int) ([]LexicalResult, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()

	if strings.TrimSpace(phrase) == "" {
		return nil, nil
	}

	terms := TokenizeCode(phrase)
	if len(terms) == 0 {
		return nil, nil
	}

	phraseQuery := bleve.NewMatchPhraseQuery(phrase)
	phraseQuery.SetField("content")

	req := bleve.NewSearchRequest(phraseQuery)
	req.Size = limit
	req.IncludeLocations = true

	result, err := l.index.Search(req)
	if err != nil {
		return nil, semerrors.IOError("lexical exact search failed", err)
	}

	return hitsToResults(result.Hits), nil
}

func hitsToResults(hits search.DocumentMatchCollection) []LexicalResult {
	results := make([]LexicalResult, 0, len(hits))
	for _, hit := range hits {
		id, err := idFromDocID(hit.ID)
		if err != nil {
			continue
		}
		results = append(results, LexicalResult{
			ChunkID:      id,
			Score:        hit.Score,
			MatchedTerms: extractMatchedTerms(hit),
		})
	}
	return results
}

func extractMatchedTerms(hit *search.DocumentMatch) []string {
	seen := make(map[string]struct{})
	for _, locations := range hit.Locations {
		for term := range locations {
			seen[term] = struct{}{}
		}
	}
	terms := make([]string, 0, len(seen))
	for term := range seen {
		terms = append(terms, term)
	}
	return terms
}

// AllIDs returns every chunk id currently posted in the lexical index,
// used by the triple-consistency Repair operation (adapted from the
// teacher's BM25Index.AllIDs).
func (l *LexicalIndex) AllIDs() ([]uint32, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()

	count, err := l.index.DocCount()
	if err != nil {
		return nil, semerrors.IOError("failed to count lexical documents", err)
	}
	if count == 0 {
		return nil, nil
	}

	req := bleve.NewSearchRequest(bleve.NewMatchAllQuery())
	req.Size = int(count)
	result, err := l.index.Search(req)
	if err != nil {
		return nil, semerrors.IOError("lexical scan failed", err)
	}

	ids := make([]uint32, 0, len(result.Hits))
	for _, hit := range result.Hits {
		id, err := idFromDocID(hit.ID)
		if err != nil {
			continue
		}
		ids = append(ids, id)
	}
	return ids, nil
}

// Count returns the number of indexed documents.
func (l *LexicalIndex) Count() (int, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()

	n, err := l.index.DocCount()
	if err != nil {
		return 0, semerrors.IOError("failed to count lexical documents", err)
	}
	return int(n), nil
}

// Close closes the underlying Bleve index.
func (l *LexicalIndex) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.index.Close()
}

func docID(id uint32) string {
	return strconv.FormatUint(uint64(id), 10)
}

func idFromDocID(s string) (uint32, error) {
	v, err := strconv.ParseUint(s, 10, 32)
	if err != nil {
		return 0, err
	}
	return uint32(v), nil
}

func codeTokenizerConstructor(_ map[string]interface{}, _ *registry.Cache) (analysis.Tokenizer, error) {
	return &bleveCodeTokenizer{}, nil
}

type bleveCodeTokenizer struct{}

func (t *bleveCodeTokenizer) Tokenize(input []byte) analysis.TokenStream {
	text := string(input)
	tokens := TokenizeCode(text)

	result := make(analysis.TokenStream, 0, len(tokens))
	pos := 1
	offset := 0

	for _, token := range tokens {
		start := strings.Index(strings.ToLower(text[offset:]), strings.ToLower(token))
		if start == -1 {
			start = offset
		} else {
			start += offset
		}
		end := start + len(token)

		result = append(result, &analysis.Token{
			Term:     []byte(token),
			Start:    start,
			End:      end,
			Position: pos,
			Type:     analysis.AlphaNumeric,
		})
		pos++
		if end <= len(text) {
			offset = end
		}
	}

	return result
}

func codeStopFilterConstructor(_ map[string]interface{}, _ *registry.Cache) (analysis.TokenFilter, error) {
	return &bleveCodeStopFilter{stopWords: BuildStopWordMap(DefaultCodeStopWords)}, nil
}

type bleveCodeStopFilter struct {
	stopWords map[string]struct{}
}

func (f *bleveCodeStopFilter) Filter(input analysis.TokenStream) analysis.TokenStream {
	result := make(analysis.TokenStream, 0, len(input))
	for _, token := range input {
		term := strings.ToLower(string(token.Term))
		if _, isStop := f.stopWords[term]; !isStop {
			result = append(result, token)
		}
	}
	return result
}
