// Package bm25 implements the hybrid word/character n-gram BM25 index used
// for first-stage retrieval.
package bm25

import (
	"math"
	"sort"
	"strings"

	searcherrors "github.com/equipsearch/catalogsearch/internal/errors"
)

// InputDoc is one document fed to Build: an opaque id paired with its
// already-normalized text.
type InputDoc struct {
	ID   string
	Text string
}

// Hit is a single scored search result.
type Hit struct {
	DocID string
	Score float64
}

// Config tunes the n-gram ranges, BM25 smoothing constants, and the hybrid
// channel weights.
type Config struct {
	WordNgramMin  int
	WordNgramMax  int
	CharNgramMin  int
	CharNgramMax  int
	K1            float64
	B             float64
	CharWeight    float64
	WordWeight    float64
	OverlapWeight float64
}

// DefaultConfig returns the spec's default tuning.
func DefaultConfig() Config {
	return Config{
		WordNgramMin:  1,
		WordNgramMax:  2,
		CharNgramMin:  3,
		CharNgramMax:  5,
		K1:            1.5,
		B:             0.75,
		CharWeight:    0.6,
		WordWeight:    0.25,
		OverlapWeight: 0.15,
	}
}

// channel holds one n-gram scheme's per-document statistics, independent
// term universes for the word channel and the character channel.
type channel struct {
	docFreq      map[string]int
	docTerms     []map[string]int
	docLength    []int
	avgDocLength float64
}

// Index is an immutable, built BM25 index over a fixed corpus. Every posting
// references a valid document id; ties between equal scores are broken by
// the document's insertion order.
type Index struct {
	cfg     Config
	docIDs  []string
	docPos  map[string]int
	word    channel
	char    channel
}

// Build constructs an Index from docs. An empty corpus is a programming
// error and fails fast.
func Build(docs []InputDoc, cfg Config) (*Index, error) {
	if len(docs) == 0 {
		return nil, searcherrors.New(searcherrors.ErrCodeCorpusInvalid, "cannot build a bm25 index over an empty corpus", nil)
	}

	idx := &Index{
		cfg:    cfg,
		docIDs: make([]string, len(docs)),
		docPos: make(map[string]int, len(docs)),
		word: channel{
			docFreq:  make(map[string]int),
			docTerms: make([]map[string]int, len(docs)),
			docLength: make([]int, len(docs)),
		},
		char: channel{
			docFreq:  make(map[string]int),
			docTerms: make([]map[string]int, len(docs)),
			docLength: make([]int, len(docs)),
		},
	}

	var wordTotal, charTotal int
	for i, d := range docs {
		idx.docIDs[i] = d.ID
		idx.docPos[d.ID] = i

		words := wordNgrams(d.Text, cfg.WordNgramMin, cfg.WordNgramMax)
		chars := charNgrams(d.Text, cfg.CharNgramMin, cfg.CharNgramMax)

		idx.word.docTerms[i] = termFreq(words)
		idx.word.docLength[i] = len(words)
		wordTotal += len(words)
		for t := range idx.word.docTerms[i] {
			idx.word.docFreq[t]++
		}

		idx.char.docTerms[i] = termFreq(chars)
		idx.char.docLength[i] = len(chars)
		charTotal += len(chars)
		for t := range idx.char.docTerms[i] {
			idx.char.docFreq[t]++
		}
	}

	n := len(docs)
	idx.word.avgDocLength = float64(wordTotal) / float64(n)
	idx.char.avgDocLength = float64(charTotal) / float64(n)

	return idx, nil
}

// Len returns the number of documents in the index.
func (idx *Index) Len() int {
	return len(idx.docIDs)
}

// Search returns the top-k documents ranked by the hybrid char/word/overlap
// score, normalized so the top result scores 1.0. Queries with zero known
// n-grams yield an empty result.
func (idx *Index) Search(query string, k int) []Hit {
	queryWords := wordNgrams(query, idx.cfg.WordNgramMin, idx.cfg.WordNgramMax)
	queryChars := charNgrams(query, idx.cfg.CharNgramMin, idx.cfg.CharNgramMax)

	if len(queryWords) == 0 && len(queryChars) == 0 {
		return nil
	}

	wordScores := idx.bm25Scores(idx.word, queryWords)
	charScores := idx.bm25Scores(idx.char, queryChars)
	overlapScores := idx.overlapScores(queryWords)

	raw := make([]float64, idx.Len())
	maxScore := 0.0
	for i := range raw {
		s := idx.cfg.CharWeight*charScores[i] + idx.cfg.WordWeight*wordScores[i] + idx.cfg.OverlapWeight*overlapScores[i]
		raw[i] = s
		if s > maxScore {
			maxScore = s
		}
	}

	type scored struct {
		pos   int
		score float64
	}
	candidates := make([]scored, 0, idx.Len())
	for i, s := range raw {
		if s <= 0 {
			continue
		}
		candidates = append(candidates, scored{pos: i, score: s})
	}

	sort.SliceStable(candidates, func(a, b int) bool {
		return candidates[a].score > candidates[b].score
	})

	if k > 0 && len(candidates) > k {
		candidates = candidates[:k]
	}

	hits := make([]Hit, len(candidates))
	for i, c := range candidates {
		norm := 0.0
		if maxScore > 0 {
			norm = c.score / maxScore
		}
		hits[i] = Hit{DocID: idx.docIDs[c.pos], Score: norm}
	}
	return hits
}

// bm25Scores computes, for every document, the summed BM25 contribution of
// the query n-grams over one channel.
func (idx *Index) bm25Scores(ch channel, queryTerms []string) []float64 {
	scores := make([]float64, idx.Len())
	if len(queryTerms) == 0 {
		return scores
	}

	n := float64(idx.Len())
	tf := termFreq(queryTerms)

	for term := range tf {
		df, ok := ch.docFreq[term]
		if !ok || df == 0 {
			continue
		}
		idf := math.Log((n-float64(df)+0.5)/(float64(df)+0.5) + 1)

		for i := 0; i < idx.Len(); i++ {
			f, ok := ch.docTerms[i][term]
			if !ok {
				continue
			}
			docLen := float64(ch.docLength[i])
			numerator := float64(f) * (idx.cfg.K1 + 1)
			denominator := float64(f) + idx.cfg.K1*(1-idx.cfg.B+idx.cfg.B*(docLen/ch.avgDocLength))
			scores[i] += idf * (numerator / denominator)
		}
	}

	return scores
}

// overlapScores computes the size of the intersection of query word n-grams
// with each document's word n-grams, divided by the query's n-gram count.
func (idx *Index) overlapScores(queryWords []string) []float64 {
	scores := make([]float64, idx.Len())
	if len(queryWords) == 0 {
		return scores
	}

	querySet := make(map[string]bool, len(queryWords))
	for _, w := range queryWords {
		querySet[w] = true
	}

	for i := 0; i < idx.Len(); i++ {
		hits := 0
		for term := range querySet {
			if _, ok := idx.word.docTerms[i][term]; ok {
				hits++
			}
		}
		scores[i] = float64(hits) / float64(len(queryWords))
	}

	return scores
}

func termFreq(terms []string) map[string]int {
	m := make(map[string]int, len(terms))
	for _, t := range terms {
		m[t]++
	}
	return m
}

// wordNgrams splits text on whitespace and emits n-grams of adjacent tokens
// for each n in [min, max].
func wordNgrams(text string, min, max int) []string {
	tokens := strings.Fields(strings.ToLower(text))
	if len(tokens) == 0 {
		return nil
	}

	var grams []string
	for n := min; n <= max; n++ {
		if n <= 0 || n > len(tokens) {
			continue
		}
		for i := 0; i+n <= len(tokens); i++ {
			grams = append(grams, strings.Join(tokens[i:i+n], " "))
		}
	}
	return grams
}

// charNgrams tokenizes into word-boundary-padded character n-grams for each
// n in [min, max]. Each word is padded with boundary markers so n-grams at
// the start or end of a word are distinguishable from interior ones; no
// n-gram spans two words.
func charNgrams(text string, min, max int) []string {
	words := strings.Fields(strings.ToLower(text))
	if len(words) == 0 {
		return nil
	}

	var grams []string
	for _, w := range words {
		padded := "<" + w + ">"
		runes := []rune(padded)
		for n := min; n <= max; n++ {
			if n <= 0 || n > len(runes) {
				continue
			}
			for i := 0; i+n <= len(runes); i++ {
				grams = append(grams, string(runes[i:i+n]))
			}
		}
	}
	return grams
}
