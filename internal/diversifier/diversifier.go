// Package diversifier rearranges a bare-category query's top results so
// they span subtypes instead of returning K near-duplicate titles.
package diversifier

import (
	"strings"

	"github.com/equipsearch/catalogsearch/internal/catalog"
	"github.com/equipsearch/catalogsearch/internal/normalizer"
	"github.com/equipsearch/catalogsearch/internal/reranker"
)

// Config tunes the diversification procedure (spec §4.7). Field-compatible
// with config.DiversifierConfig.
type Config struct {
	Enabled          bool
	MaxPerSubtype    int
	MaxCandidateMult int
	MinCategoryFloor int
}

// DefaultConfig returns the spec's default tuning.
func DefaultConfig() Config {
	return Config{
		Enabled:          true,
		MaxPerSubtype:    1,
		MaxCandidateMult: 8,
		MinCategoryFloor: 5,
	}
}

// stopwords is the closed set of connective tokens stripped from a title
// when computing its subtype key.
var stopwords = map[string]bool{
	"de": true, "da": true, "do": true, "para": true, "com": true, "e": true, "sem": true,
}

// Item is one ranked document handed to Diversify, already reranker-ordered.
type Item struct {
	Doc      catalog.Document
	Category catalog.DocCategory // classified category, from reranker.DocClassification
}

// IsNavigationIntent reports whether a query should trigger diversification:
// the parsed query names a main category, carries no model numbers, and
// is exactly one token long (the token count is fixed, not configurable).
func IsNavigationIntent(normalizedQuery string, parsed reranker.ParsedQuery) bool {
	if parsed.MainCategory == "" || len(parsed.ModelNumbers) > 0 {
		return false
	}
	return len(strings.Fields(normalizedQuery)) == 1
}

// Diversify reorders items (already in reranker order) to spread results
// across subtypes when the query is a navigation intent. items beyond
// candidateK are never considered. topK bounds the returned slice.
func Diversify(items []Item, detectedCategory catalog.DocCategory, topK int, cfg Config) []Item {
	if topK <= 0 {
		return nil
	}

	candidateK := clamp(topK*cfg.MaxCandidateMult, 60, 220)
	pool := items
	if len(pool) > candidateK {
		pool = pool[:candidateK]
	}

	maxPerSubtype := cfg.MaxPerSubtype
	if maxPerSubtype <= 0 {
		maxPerSubtype = 1
	}

	subtypeCounts := make(map[string]int)
	selected := make([]Item, 0, topK)
	selectedIdx := make(map[int]bool, topK)

	for i, item := range pool {
		if len(selected) >= topK {
			break
		}
		key := subtypeKey(item.Doc.Title, detectedCategory)
		if subtypeCounts[key] >= maxPerSubtype {
			continue
		}
		subtypeCounts[key]++
		selected = append(selected, item)
		selectedIdx[i] = true
	}

	selected = ensureCategoryFloor(pool, selected, selectedIdx, detectedCategory, topK, cfg.MinCategoryFloor)

	return selected
}

// ensureCategoryFloor tops up selected with items from pool (in original
// order) sharing detectedCategory until at least
// min(5, topK, cfg floor) items share it, or the pool is exhausted. When
// selected is already full, the lowest-ranked selected item outside the
// category gives up its slot.
func ensureCategoryFloor(pool, selected []Item, selectedIdx map[int]bool, detectedCategory catalog.DocCategory, topK, floorCfg int) []Item {
	floor := floorCfg
	if floor > 5 {
		floor = 5
	}
	if floor > topK {
		floor = topK
	}
	if floor <= 0 {
		return selected
	}

	have := 0
	for _, s := range selected {
		if s.Category == detectedCategory {
			have++
		}
	}
	if have >= floor {
		return selected
	}

	for i, item := range pool {
		if have >= floor {
			break
		}
		if selectedIdx[i] {
			continue
		}
		if item.Category != detectedCategory {
			continue
		}
		if len(selected) >= topK {
			// have < floor <= topK, so a non-category item is present.
			j := len(selected) - 1
			for selected[j].Category == detectedCategory {
				j--
			}
			selected = append(selected[:j], selected[j+1:]...)
		}
		selected = append(selected, item)
		selectedIdx[i] = true
		have++
	}

	if len(selected) > topK {
		selected = selected[:topK]
	}
	return selected
}

// subtypeKey normalizes a title, strips the category token and the closed
// stopword set, and joins what remains.
func subtypeKey(title string, category catalog.DocCategory) string {
	norm := normalizer.NormalizeEquip(title)
	catToken := strings.ToLower(string(category))

	var kept []string
	for _, tok := range strings.Fields(norm) {
		if tok == catToken || stopwords[tok] {
			continue
		}
		kept = append(kept, tok)
	}
	return strings.Join(kept, " ")
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
