// Package reranker repairs lexical-only BM25 rankings by distinguishing
// accessory documents from the equipment they attach to, and by enforcing
// model-number matches.
package reranker

import (
	"math"
	"sort"

	"github.com/equipsearch/catalogsearch/internal/catalog"
)

// Config tunes the scoring weights (spec §4.6). Mirrors
// config.RerankerConfig field-for-field so callers can pass it through
// directly.
type Config struct {
	Enabled               bool
	BM25Weight            float64
	ModelBoost            float64
	CategoryBoost         float64
	AccessoryPenalty      float64
	MissingModelPenalty   float64
	HardTop1Equipment     bool
	AccessoryBonusEnabled bool
}

// DefaultConfig returns the spec's default weights.
func DefaultConfig() Config {
	return Config{
		Enabled:               true,
		BM25Weight:            0.35,
		ModelBoost:            0.45,
		CategoryBoost:         0.30,
		AccessoryPenalty:      0.95,
		MissingModelPenalty:   0.55,
		HardTop1Equipment:     true,
		AccessoryBonusEnabled: true,
	}
}

const maxAccessoryBonus = 0.12
const accessoryBonusPerTerm = 0.04

// Candidate is one document with its raw BM25 score, as handed to Rerank.
type Candidate struct {
	Doc      catalog.Document
	BM25Raw  float64
}

// Ranked is a Candidate after scoring.
type Ranked struct {
	Candidate
	Classification DocClassification
	FinalScore     float64
}

// Debug reports whether the hard top-1 guard fired.
type Debug struct {
	HardTop1Swapped bool
}

// Rerank scores and reorders candidates per spec §4.6. query is the
// original (unstripped) query used for intent parsing.
func Rerank(query string, candidates []Candidate, cfg Config) ([]Ranked, Debug) {
	parsed := ParseQuery(query)

	sMax := 0.0
	for _, c := range candidates {
		if c.BM25Raw > sMax {
			sMax = c.BM25Raw
		}
	}

	ranked := make([]Ranked, len(candidates))
	for i, c := range candidates {
		cls := ClassifyDoc(c.Doc, parsed.ModelNumbers)

		bm25Norm := 0.0
		if sMax > 0 {
			bm25Norm = c.BM25Raw / sMax
		}

		modelBoost := 0.0
		if len(parsed.ModelNumbers) > 0 && cls.HasModelNumberMatch {
			modelBoost = 1.0
		}

		categoryBoost := 0.0
		if parsed.MainCategory != "" && cls.Category == parsed.MainCategory {
			categoryBoost = 1.0
		}

		accessoryPenalty := 0.0
		if parsed.Intent == IntentEquipamento && cls.DocType == catalog.DocTypeAcessorio {
			accessoryPenalty = 1.0
		}

		missingModelPenalty := 0.0
		if len(parsed.ModelNumbers) > 0 && !cls.HasModelNumberMatch {
			missingModelPenalty = 1.0
		}

		accessoryBonus := 0.0
		if cfg.AccessoryBonusEnabled && parsed.Intent == IntentEquipamento && cls.DocType == catalog.DocTypeEquipamento {
			matched := countMatchedAccessoryTerms(parsed.AccessoryTerms, c.Doc)
			accessoryBonus = math.Min(maxAccessoryBonus, accessoryBonusPerTerm*float64(matched))
		}

		final := cfg.BM25Weight*bm25Norm +
			cfg.ModelBoost*modelBoost +
			cfg.CategoryBoost*categoryBoost +
			accessoryBonus -
			cfg.AccessoryPenalty*accessoryPenalty -
			cfg.MissingModelPenalty*missingModelPenalty
		if final < 0 {
			final = 0
		}

		ranked[i] = Ranked{Candidate: c, Classification: cls, FinalScore: final}
	}

	sort.SliceStable(ranked, func(i, j int) bool {
		if ranked[i].FinalScore != ranked[j].FinalScore {
			return ranked[i].FinalScore > ranked[j].FinalScore
		}
		return ranked[i].BM25Raw > ranked[j].BM25Raw
	})

	var debug Debug
	if cfg.HardTop1Equipment && parsed.Intent == IntentEquipamento {
		ranked, debug.HardTop1Swapped = applyHardTop1Guard(ranked)
	}

	return ranked, debug
}

func countMatchedAccessoryTerms(queryAccessoryTerms []string, doc catalog.Document) int {
	if len(queryAccessoryTerms) == 0 {
		return 0
	}
	text := doc.Title + " " + doc.Text
	count := 0
	for _, term := range queryAccessoryTerms {
		canon, ok := accessoryCanon[term]
		if !ok {
			canon = term
		}
		plural := accessoryPluralOf(canon)
		if containsWord(text, canon) || (plural != "" && containsWord(text, plural)) {
			count++
		}
	}
	return count
}

func containsWord(text, word string) bool {
	for _, tok := range splitLower(text) {
		if tok == word {
			return true
		}
	}
	return false
}

func splitLower(s string) []string {
	var tokens []string
	var cur []rune
	for _, r := range s {
		if (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9') {
			if r >= 'A' && r <= 'Z' {
				r += 'a' - 'A'
			}
			cur = append(cur, r)
		} else if len(cur) > 0 {
			tokens = append(tokens, string(cur))
			cur = cur[:0]
		}
	}
	if len(cur) > 0 {
		tokens = append(tokens, string(cur))
	}
	return tokens
}

// applyHardTop1Guard promotes the first equipment candidate to position 1
// when the current top-1 is an accessory, preserving relative order
// otherwise.
func applyHardTop1Guard(ranked []Ranked) ([]Ranked, bool) {
	if len(ranked) < 2 {
		return ranked, false
	}
	if ranked[0].Classification.DocType != catalog.DocTypeAcessorio {
		return ranked, false
	}

	equipIdx := -1
	for i, r := range ranked {
		if r.Classification.DocType == catalog.DocTypeEquipamento {
			equipIdx = i
			break
		}
	}
	if equipIdx <= 0 {
		return ranked, false
	}

	swapped := make([]Ranked, 0, len(ranked))
	swapped = append(swapped, ranked[equipIdx])
	for i, r := range ranked {
		if i == equipIdx {
			continue
		}
		swapped = append(swapped, r)
	}
	return swapped, true
}
