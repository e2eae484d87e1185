// Package synonyms broadens query recall by substituting equipment-domain
// synonyms without altering query intent.
package synonyms

import (
	_ "embed"
	"strings"

	"gopkg.in/yaml.v3"
)

//go:embed data/synonyms.yaml
var synonymsYAML []byte

// DefaultGroups maps a canonical lemma to its ordered list of equivalent
// surface forms, the first entry being the lemma itself.
var DefaultGroups = loadGroups()

func loadGroups() map[string][]string {
	var raw map[string][]string
	if err := yaml.Unmarshal(synonymsYAML, &raw); err != nil {
		panic("synonyms: malformed embedded data: " + err.Error())
	}
	return raw
}

// Expander expands query tokens against a synonym dictionary.
type Expander struct {
	groups  map[string][]string // lemma -> ordered variants
	reverse map[string]string   // surface form -> lemma
}

// ExpanderOption configures an Expander at construction time.
type ExpanderOption func(*Expander)

// WithGroups overrides the default lemma-to-variants dictionary.
func WithGroups(groups map[string][]string) ExpanderOption {
	return func(e *Expander) {
		e.groups = groups
	}
}

// New builds an Expander from the default domain dictionary, or a custom one
// supplied via WithGroups.
func New(opts ...ExpanderOption) *Expander {
	e := &Expander{groups: DefaultGroups}
	for _, opt := range opts {
		opt(e)
	}

	e.reverse = make(map[string]string, len(e.groups)*2)
	for lemma, variants := range e.groups {
		for _, v := range variants {
			e.reverse[v] = lemma
		}
	}
	return e
}

// Lemma returns the canonical lemma for a surface form, and whether one was
// found. A lemma is its own surface form.
func (e *Expander) Lemma(surfaceForm string) (string, bool) {
	lemma, ok := e.reverse[strings.ToLower(surfaceForm)]
	return lemma, ok
}

// Variants returns the full ordered variant list for a surface form's lemma,
// or nil if the form has no synonym group.
func (e *Expander) Variants(surfaceForm string) []string {
	lemma, ok := e.Lemma(surfaceForm)
	if !ok {
		return nil
	}
	return e.groups[lemma]
}

// ExpandQueryWithSynonyms produces an ordered list of query variants: the
// original query first, then one variant per substitutable token per
// alternative, capped at maxExpansions variants beyond the original.
// Output is lowercased; ordering is stable.
func (e *Expander) ExpandQueryWithSynonyms(query string, maxExpansions int) []string {
	tokens := strings.Fields(strings.ToLower(query))
	variants := []string{strings.ToLower(query)}
	if len(tokens) == 0 || maxExpansions <= 0 {
		return variants
	}

	seen := map[string]bool{variants[0]: true}

	for i, tok := range tokens {
		group := e.Variants(tok)
		if group == nil {
			continue
		}
		for _, alt := range group {
			if alt == tok {
				continue
			}
			substituted := make([]string, len(tokens))
			copy(substituted, tokens)
			substituted[i] = alt
			candidate := strings.Join(substituted, " ")

			if seen[candidate] {
				continue
			}
			seen[candidate] = true
			variants = append(variants, candidate)
			if len(variants)-1 >= maxExpansions {
				return variants
			}
		}
	}

	return variants
}
