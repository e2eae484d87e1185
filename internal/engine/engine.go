// Package engine orchestrates normalization, fuzzy correction, synonym
// expansion, BM25 retrieval, and result caching behind a single search call.
package engine

import (
	"sort"
	"sync"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/equipsearch/catalogsearch/internal/bm25"
	"github.com/equipsearch/catalogsearch/internal/catalog"
	searcherrors "github.com/equipsearch/catalogsearch/internal/errors"
	"github.com/equipsearch/catalogsearch/internal/fuzzy"
	"github.com/equipsearch/catalogsearch/internal/normalizer"
	"github.com/equipsearch/catalogsearch/internal/synonyms"
)

// Candidate is one ranked document produced by Search, before reranking.
type Candidate struct {
	DocID string
	Score float64
}

// Debug carries the pipeline's introspection flags for a single query.
type Debug struct {
	NormalizedQuery   string
	FuzzyApplied      bool
	CorrectedQuery    string
	SynonymExpansions int
	CacheHit          bool
}

// Result is the outcome of one Search call.
type Result struct {
	Candidates []Candidate
	Debug      Debug
}

// Config tunes the engine's own behavior, independent of its BM25/fuzzy
// dependencies (which carry their own configs).
type Config struct {
	CacheSize        int
	CandidateMult    int // candidates fetched per synonym variant, as a multiplier of k
	MaxExpansions    int
}

// DefaultConfig returns the spec's default tuning.
func DefaultConfig() Config {
	return Config{
		CacheSize:     1000,
		CandidateMult: 3,
		MaxExpansions: 3,
	}
}

type cacheKey struct {
	query string
	k     int
}

// Engine is the integrated search pipeline: normalize, fuzzy-correct,
// synonym-expand, retrieve via BM25, cache. It also holds the built corpus
// so collaborators (reranker, diversifier, confidence) can hydrate a
// Candidate's DocID into its full Document without a separate lookup
// dependency. The corpus, index, and matcher are all built once and never
// mutated; only the cache mutates, under its own mutex.
type Engine struct {
	cfg      Config
	index    *bm25.Index
	matcher  *fuzzy.Matcher
	expander *synonyms.Expander
	docs     []catalog.Document
	docByID  map[string]catalog.Document
	cache    *lru.Cache[cacheKey, Result]
	mu       sync.RWMutex
}

// Option configures an Engine at construction time.
type Option func(*Engine)

// WithConfig overrides the default engine tuning.
func WithConfig(cfg Config) Option {
	return func(e *Engine) {
		e.cfg = cfg
	}
}

// New builds an Engine over a built BM25 index, fuzzy matcher, synonym
// expander, and the corpus those were built from. All four are required; a
// nil dependency is a programming error.
func New(index *bm25.Index, matcher *fuzzy.Matcher, expander *synonyms.Expander, docs []catalog.Document, opts ...Option) (*Engine, error) {
	if index == nil {
		return nil, searcherrors.New(searcherrors.ErrCodeEngineNotReady, "bm25 index is required", nil)
	}
	if matcher == nil {
		return nil, searcherrors.New(searcherrors.ErrCodeEngineNotReady, "fuzzy matcher is required", nil)
	}
	if expander == nil {
		return nil, searcherrors.New(searcherrors.ErrCodeEngineNotReady, "synonym expander is required", nil)
	}
	if len(docs) == 0 {
		return nil, searcherrors.New(searcherrors.ErrCodeEngineNotReady, "corpus document set is required", nil)
	}

	docByID := make(map[string]catalog.Document, len(docs))
	for _, d := range docs {
		docByID[d.ID] = d
	}

	e := &Engine{
		cfg:      DefaultConfig(),
		index:    index,
		matcher:  matcher,
		expander: expander,
		docs:     docs,
		docByID:  docByID,
	}
	for _, opt := range opts {
		opt(e)
	}

	size := e.cfg.CacheSize
	if size <= 0 {
		size = 1
	}
	cache, err := lru.New[cacheKey, Result](size)
	if err != nil {
		return nil, searcherrors.Wrap(searcherrors.ErrCodeInternal, err)
	}
	e.cache = cache

	return e, nil
}

// Search runs the full pipeline for query, returning up to k ranked
// candidates. Cache hits return a deep copy; callers must not mutate the
// returned slices in place expecting isolation across calls, but the engine
// itself never aliases cached state back out.
func (e *Engine) Search(query string, k int) Result {
	qNorm := normalizer.NormalizeEquip(query)
	key := cacheKey{query: qNorm, k: k}

	e.mu.RLock()
	if cached, ok := e.cache.Get(key); ok {
		e.mu.RUnlock()
		hit := copyResult(cached)
		hit.Debug.CacheHit = true
		return hit
	}
	e.mu.RUnlock()

	result := e.search(qNorm, k)

	e.mu.Lock()
	e.cache.Add(key, copyResult(result))
	e.mu.Unlock()

	return result
}

func (e *Engine) search(qNorm string, k int) Result {
	corrected := e.matcher.CorrectQuery(qNorm)
	qFixed := corrected.Corrected

	maxExp := e.cfg.MaxExpansions
	variants := e.expander.ExpandQueryWithSynonyms(qFixed, maxExp)

	mult := e.cfg.CandidateMult
	if mult <= 0 {
		mult = 1
	}
	perVariantK := k * mult

	best := make(map[string]float64)
	for _, v := range variants {
		hits := e.index.Search(v, perVariantK)
		for _, h := range hits {
			if cur, ok := best[h.DocID]; !ok || h.Score > cur {
				best[h.DocID] = h.Score
			}
		}
	}

	candidates := make([]Candidate, 0, len(best))
	for id, score := range best {
		candidates = append(candidates, Candidate{DocID: id, Score: score})
	}
	sort.SliceStable(candidates, func(i, j int) bool {
		return candidates[i].Score > candidates[j].Score
	})
	if k > 0 && len(candidates) > k {
		candidates = candidates[:k]
	}

	return Result{
		Candidates: candidates,
		Debug: Debug{
			NormalizedQuery:   qNorm,
			FuzzyApplied:      corrected.HasCorrections,
			CorrectedQuery:    qFixed,
			SynonymExpansions: len(variants) - 1,
		},
	}
}

// Len returns the number of documents backing the engine's BM25 index.
func (e *Engine) Len() int {
	return e.index.Len()
}

// Doc returns the full Document for a docId produced by Search.
func (e *Engine) Doc(docID string) (catalog.Document, bool) {
	d, ok := e.docByID[docID]
	return d, ok
}

// Documents returns the full built corpus, in build order. The returned
// slice must not be mutated.
func (e *Engine) Documents() []catalog.Document {
	return e.docs
}

func copyResult(r Result) Result {
	cp := Result{Debug: r.Debug}
	cp.Candidates = make([]Candidate, len(r.Candidates))
	copy(cp.Candidates, r.Candidates)
	return cp
}

