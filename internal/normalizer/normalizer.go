// Package normalizer produces canonical text forms for indexing, querying,
// fuzzy matching, and equipment key construction.
package normalizer

import (
	_ "embed"
	"regexp"
	"strings"
	"unicode"

	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
	"gopkg.in/yaml.v3"
)

//go:embed data/abbreviations.yaml
var abbreviationsYAML []byte

var abbreviationTable = loadAbbreviations()

func loadAbbreviations() map[string]string {
	var m map[string]string
	if err := yaml.Unmarshal(abbreviationsYAML, &m); err != nil {
		panic("normalizer: malformed embedded abbreviations.yaml: " + err.Error())
	}
	return m
}

// unitAliases maps a recognized unit alias to its canonical form. cv maps to
// hp and volts maps to v per the equipment-description convention.
var unitAliases = map[string]string{
	"kva":   "kva",
	"kw":    "kw",
	"hp":    "hp",
	"cv":    "hp",
	"v":     "v",
	"volts": "v",
	"hz":    "hz",
}

var (
	numberUnitPattern = regexp.MustCompile(`(?i)(\d+(?:[.,]\d+)?)\s*(kva|kw|hp|cv|volts|v|hz)\b`)
	nonAlnumPattern   = regexp.MustCompile(`[^a-z0-9\s]+`)
	bracketPattern    = regexp.MustCompile(`[\(\)\[\]\{\}]`)
	whitespacePattern = regexp.MustCompile(`\s+`)
)

// stripAccents removes combining diacritical marks via canonical decomposition.
func stripAccents(s string) string {
	t := transform.Chain(norm.NFD, runeRemoveFunc(unicode.IsMark), norm.NFC)
	out, _, err := transform.String(t, s)
	if err != nil {
		return s
	}
	return out
}

// runeRemoveFunc builds a transform.Transformer that drops runes matching keep.
func runeRemoveFunc(drop func(r rune) bool) transform.Transformer {
	return transform.RemoveFunc(drop)
}

// singularize applies light Portuguese singularization: tokens longer than 3
// runes lose a trailing "es" if longer than 4, else a trailing "s" if longer
// than 3.
func singularize(token string) string {
	n := len([]rune(token))
	if n <= 3 {
		return token
	}
	if strings.HasSuffix(token, "es") && n > 4 {
		return token[:len(token)-2]
	}
	if strings.HasSuffix(token, "s") {
		return token[:len(token)-1]
	}
	return token
}

// expansionsFor looks up the abbreviation table for a singularized token and
// returns its expansion variants in order, or nil if the token is unmapped.
func expansionsFor(token string) []string {
	raw, ok := abbreviationTable[token]
	if !ok {
		return nil
	}
	parts := strings.Split(raw, ",")
	variants := make([]string, 0, len(parts))
	seen := make(map[string]bool, len(parts))
	for _, p := range parts {
		v := strings.TrimSpace(p)
		if v == "" || seen[v] {
			continue
		}
		seen[v] = true
		variants = append(variants, v)
	}
	return variants
}

// normalizeBase applies the shared lowercase/accent-strip/bracket-strip
// pipeline used by both normalizeEquip and normalizeText.
func normalizeBase(text string) string {
	s := strings.ToLower(text)
	s = stripAccents(s)
	s = bracketPattern.ReplaceAllString(s, " ")
	return s
}

// NormalizeEquip produces the canonical indexing/matching form of text.
func NormalizeEquip(text string) string {
	if text == "" {
		return ""
	}

	s := normalizeBase(text)
	s = numberUnitPattern.ReplaceAllStringFunc(s, func(m string) string {
		groups := numberUnitPattern.FindStringSubmatch(m)
		num := strings.ReplaceAll(groups[1], ",", ".")
		unit := unitAliases[strings.ToLower(groups[2])]
		return num + unit
	})
	s = nonAlnumPattern.ReplaceAllString(s, " ")
	s = whitespacePattern.ReplaceAllString(s, " ")
	s = strings.TrimSpace(s)

	if s == "" {
		return ""
	}

	tokens := strings.Split(s, " ")
	out := make([]string, 0, len(tokens))
	for _, tok := range tokens {
		if tok == "" {
			continue
		}
		singular := singularize(tok)
		if variants := expansionsFor(singular); len(variants) > 0 {
			out = append(out, strings.Fields(variants[0])...)
			continue
		}
		out = append(out, singular)
	}

	return strings.Join(out, " ")
}

// ExpansionVariantsForQuery returns, for every token in text whose
// abbreviation mapping has more than one variant, the ordered, deduplicated
// list of phrase variants (including the first one already spliced in by
// NormalizeEquip).
func ExpansionVariantsForQuery(text string) []string {
	if text == "" {
		return nil
	}

	s := normalizeBase(text)
	s = nonAlnumPattern.ReplaceAllString(s, " ")
	s = whitespacePattern.ReplaceAllString(s, " ")
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}

	var result []string
	seen := make(map[string]bool)
	for _, tok := range strings.Split(s, " ") {
		if tok == "" {
			continue
		}
		variants := expansionsFor(singularize(tok))
		if len(variants) < 2 {
			continue
		}
		for _, v := range variants {
			if seen[v] {
				continue
			}
			seen[v] = true
			result = append(result, v)
		}
	}
	return result
}

// ConsonantSignature produces a cheap collision-check key: the normalized
// form's non-vowel letters (first 12) followed by an underscore and its
// concatenated digits.
func ConsonantSignature(text string) string {
	s := NormalizeEquip(text)

	var consonants strings.Builder
	var digits strings.Builder
	for _, r := range s {
		switch {
		case unicode.IsDigit(r):
			digits.WriteRune(r)
		case unicode.IsLetter(r) && !isVowel(r):
			if consonants.Len() < 12 {
				consonants.WriteRune(r)
			}
		}
	}

	return consonants.String() + "_" + digits.String()
}

func isVowel(r rune) bool {
	switch r {
	case 'a', 'e', 'i', 'o', 'u':
		return true
	default:
		return false
	}
}

// NormalizeText produces a lightweight display-adjacent form that preserves
// dots and hyphens, suitable for comparisons that should remain close to the
// original text.
func NormalizeText(text string) string {
	if text == "" {
		return ""
	}
	s := strings.ToLower(text)
	s = stripAccents(s)
	s = bracketPattern.ReplaceAllString(s, " ")
	s = regexp.MustCompile(`[^a-z0-9.\-\s]+`).ReplaceAllString(s, " ")
	s = whitespacePattern.ReplaceAllString(s, " ")
	return strings.TrimSpace(s)
}
