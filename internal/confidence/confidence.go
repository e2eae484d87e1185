// Package confidence turns a ranked list's final scores into a per-item
// confidence in [0, 1], softened by how specific the query was.
package confidence

import (
	"math"
	"regexp"

	"github.com/equipsearch/catalogsearch/internal/reranker"
)

// Config tunes the confidence procedure (spec §4.8). Field-compatible with
// config.ConfidenceConfig.
type Config struct {
	Temperature              float64
	UseSpecificity           bool
	MixedQueryPenaltyEnabled bool
}

// DefaultConfig returns the spec's default tuning.
func DefaultConfig() Config {
	return Config{
		Temperature:    1.2,
		UseSpecificity: true,
	}
}

// technicalAttributePattern matches a digit run immediately followed by a
// known unit abbreviation (spec §4.8 step 2).
var technicalAttributePattern = regexp.MustCompile(`(?i)\d+(mm|cm|w|v|kg|l|hp|rpm)\b`)

// Scored is one ranked candidate's final score, as produced by the reranker.
type Scored struct {
	DocID          string
	RankScoreFinal float64
}

// Item pairs a ranked candidate with its computed confidence.
type Item struct {
	Scored
	Confidence float64
}

// Score computes per-item confidence for an already-sorted (descending by
// RankScoreFinal) list of candidates, given the parsed query and cfg.
func Score(ranked []Scored, parsed reranker.ParsedQuery, rawQuery string, cfg Config) []Item {
	if len(ranked) == 0 {
		return nil
	}

	multiplier := 1.0
	if cfg.UseSpecificity {
		multiplier = 0.7 + 0.3*querySpecificity(parsed, rawQuery)
	}

	maxScore := ranked[0].RankScoreFinal
	items := make([]Item, len(ranked))

	prev := math.Inf(1)
	for i, r := range ranked {
		w := math.Exp((r.RankScoreFinal - maxScore) / cfg.Temperature)
		if w > 1.0 {
			w = 1.0
		}

		c := w * multiplier
		if c > prev {
			c = prev
		}
		prev = c

		items[i] = Item{Scored: r, Confidence: c}
	}

	return items
}

// querySpecificity computes a [0.3, 1.0] score from how specific the query
// looks: presence of model numbers, term count, and technical-attribute
// patterns (spec §4.8 step 2).
func querySpecificity(parsed reranker.ParsedQuery, rawQuery string) float64 {
	s := 0.3
	if len(parsed.ModelNumbers) > 0 {
		s += 0.4
	}
	if len(parsed.Tokens) >= 2 {
		s += 0.2
	}
	if technicalAttributePattern.MatchString(rawQuery) {
		s += 0.1
	}
	if s > 1.0 {
		s = 1.0
	}
	return s
}
