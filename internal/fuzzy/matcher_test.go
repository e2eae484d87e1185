package fuzzy

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func sampleVocab() []string {
	return []string{"mop", "vassoura", "enceradeira", "lavadora", "aspirador"}
}

func TestBuild_FiltersShortTokens(t *testing.T) {
	m := Build([]string{"rodo", "mop", "ab", "cde"})
	assert.Equal(t, []string{"rodo"}, m.Vocabulary())
}

func TestBuild_DedupesTokens(t *testing.T) {
	m := Build([]string{"rodo", "rodo", "vassoura"})
	assert.Equal(t, []string{"rodo", "vassoura"}, m.Vocabulary())
}

func TestCorrect_VerbatimMatchReturnsUnchanged(t *testing.T) {
	m := Build(sampleVocab())
	assert.Equal(t, "vassoura", m.Correct("vassoura"))
}

func TestCorrect_ShortTokenBelowMinQueryLength_Unchanged(t *testing.T) {
	m := Build(sampleVocab())
	assert.Equal(t, "mo", m.Correct("mo"))
}

func TestCorrect_TypoWithinThreshold_IsCorrected(t *testing.T) {
	m := Build(sampleVocab())
	assert.Equal(t, "vassoura", m.Correct("vassora"))
}

func TestCorrect_TooFarFromAnyVocabEntry_ReturnsOriginal(t *testing.T) {
	m := Build(sampleVocab())
	assert.Equal(t, "xyzxyzxyz", m.Correct("xyzxyzxyz"))
}

func TestCorrect_TiesBrokenByInsertionOrder(t *testing.T) {
	m := Build([]string{"lava", "cava"})
	// "java" is distance 1 from both "lava" and "cava"; insertion order picks "lava".
	assert.Equal(t, "lava", m.Correct("java"))
}

func TestCorrectQuery_ReportsCorrections(t *testing.T) {
	m := Build(sampleVocab())
	result := m.CorrectQuery("vassora industrial")

	assert.True(t, result.HasCorrections)
	assert.Equal(t, "vassoura industrial", result.Corrected)
	assert.Len(t, result.Corrections, 1)
	assert.Equal(t, "vassora", result.Corrections[0].Original)
	assert.Equal(t, "vassoura", result.Corrections[0].Replacement)
}

func TestCorrectQuery_NoCorrectionsNeeded(t *testing.T) {
	m := Build(sampleVocab())
	result := m.CorrectQuery("mop")

	assert.False(t, result.HasCorrections)
	assert.Empty(t, result.Corrections)
}

func TestLevenshtein_IdenticalStrings(t *testing.T) {
	assert.Equal(t, 0, levenshtein("abc", "abc"))
}

func TestLevenshtein_EmptyStrings(t *testing.T) {
	assert.Equal(t, 3, levenshtein("", "abc"))
	assert.Equal(t, 3, levenshtein("abc", ""))
}

func TestLevenshtein_SingleSubstitution(t *testing.T) {
	assert.Equal(t, 1, levenshtein("cat", "cot"))
}

func TestLevenshtein_Insertion(t *testing.T) {
	assert.Equal(t, 1, levenshtein("cat", "cats"))
}
