package engine

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/equipsearch/catalogsearch/internal/bm25"
	"github.com/equipsearch/catalogsearch/internal/catalog"
	"github.com/equipsearch/catalogsearch/internal/fuzzy"
	"github.com/equipsearch/catalogsearch/internal/synonyms"
)

func testCorpus() []bm25.InputDoc {
	return []bm25.InputDoc{
		{ID: "d1", Text: "mop industrial 220v"},
		{ID: "d2", Text: "vassoura de nylon"},
		{ID: "d3", Text: "enceradeira industrial 220v rotativa"},
		{ID: "d4", Text: "aspirador de po"},
	}
}

func testDocuments() []catalog.Document {
	docs := testCorpus()
	out := make([]catalog.Document, len(docs))
	for i, d := range docs {
		out[i] = catalog.Document{ID: d.ID, Title: d.Text, Text: d.Text}
	}
	return out
}

func buildTestEngine(t *testing.T) *Engine {
	t.Helper()

	idx, err := bm25.Build(testCorpus(), bm25.DefaultConfig())
	require.NoError(t, err)

	matcher := fuzzy.Build([]string{"mop", "vassoura", "enceradeira", "industrial", "aspirador"})
	expander := synonyms.New()

	e, err := New(idx, matcher, expander, testDocuments())
	require.NoError(t, err)
	return e
}

func TestNew_RejectsNilDependencies(t *testing.T) {
	idx, err := bm25.Build([]bm25.InputDoc{{ID: "d1", Text: "mop"}}, bm25.DefaultConfig())
	require.NoError(t, err)
	matcher := fuzzy.Build([]string{"mop"})
	expander := synonyms.New()
	docs := []catalog.Document{{ID: "d1", Title: "mop"}}

	_, err = New(nil, matcher, expander, docs)
	assert.Error(t, err)
	_, err = New(idx, nil, expander, docs)
	assert.Error(t, err)
	_, err = New(idx, matcher, nil, docs)
	assert.Error(t, err)
	_, err = New(idx, matcher, expander, nil)
	assert.Error(t, err)
}

func TestDoc_ReturnsFullDocumentByID(t *testing.T) {
	e := buildTestEngine(t)
	doc, ok := e.Doc("d3")
	require.True(t, ok)
	assert.Equal(t, "enceradeira industrial 220v rotativa", doc.Title)
}

func TestDoc_UnknownID_NotFound(t *testing.T) {
	e := buildTestEngine(t)
	_, ok := e.Doc("nope")
	assert.False(t, ok)
}

func TestDocuments_ReturnsFullCorpus(t *testing.T) {
	e := buildTestEngine(t)
	assert.Len(t, e.Documents(), 4)
}

func TestSearch_ReturnsRankedCandidates(t *testing.T) {
	e := buildTestEngine(t)
	result := e.Search("enceradeira industrial", 10)
	require.NotEmpty(t, result.Candidates)
	assert.Equal(t, "d3", result.Candidates[0].DocID)
}

func TestSearch_CachesResults(t *testing.T) {
	e := buildTestEngine(t)
	first := e.Search("mop", 5)
	second := e.Search("mop", 5)
	assert.Equal(t, first.Candidates, second.Candidates)
}

func TestSearch_CacheReturnsIndependentSlice(t *testing.T) {
	e := buildTestEngine(t)
	first := e.Search("mop", 5)
	if len(first.Candidates) > 0 {
		first.Candidates[0].Score = -999
	}
	second := e.Search("mop", 5)
	if len(second.Candidates) > 0 {
		assert.NotEqual(t, float64(-999), second.Candidates[0].Score)
	}
}

func TestSearch_DebugReportsCacheHitOnSecondCall(t *testing.T) {
	e := buildTestEngine(t)
	first := e.Search("mop", 5)
	assert.False(t, first.Debug.CacheHit)
	second := e.Search("mop", 5)
	assert.True(t, second.Debug.CacheHit)
}

func TestSearch_DebugReportsNormalizedAndCorrectedQuery(t *testing.T) {
	e := buildTestEngine(t)
	result := e.Search("MOP industrial", 5)
	assert.Equal(t, "mop industrial", result.Debug.NormalizedQuery)
	assert.Equal(t, "mop industrial", result.Debug.CorrectedQuery)
}

func TestSearch_FuzzyCorrectionIsFlagged(t *testing.T) {
	e := buildTestEngine(t)
	result := e.Search("vassora", 5)
	assert.True(t, result.Debug.FuzzyApplied)
	assert.Equal(t, "vassoura", result.Debug.CorrectedQuery)
}

func TestSearch_RespectsK(t *testing.T) {
	e := buildTestEngine(t)
	result := e.Search("industrial", 1)
	assert.LessOrEqual(t, len(result.Candidates), 1)
}

func TestSearch_UnknownQuery_ReturnsEmptyCandidates(t *testing.T) {
	e := buildTestEngine(t)
	result := e.Search("xyzxyzxyz123", 5)
	assert.Empty(t, result.Candidates)
}

func TestLen_ReflectsIndexedDocumentCount(t *testing.T) {
	e := buildTestEngine(t)
	assert.Equal(t, 4, e.Len())
}
