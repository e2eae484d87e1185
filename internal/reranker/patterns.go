package reranker

import (
	_ "embed"
	"regexp"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/equipsearch/catalogsearch/internal/catalog"
)

//go:embed data/accessories.yaml
var accessoriesYAML []byte

// modelNumberPattern matches maximal digit runs of length >= 3.
var modelNumberPattern = regexp.MustCompile(`\d{3,}`)

// connectors is the closed set of tokens stripped when building a core query.
var connectors = map[string]bool{
	"c": true, "com": true, "e": true, "para": true,
	"de": true, "da": true, "do": true, "a": true, "o": true,
}

// categoryTokens maps a lowercase category name to its taxonomy value.
var categoryTokens = buildCategoryTokens()

func buildCategoryTokens() map[string]catalog.DocCategory {
	m := make(map[string]catalog.DocCategory, len(catalog.KnownCategories))
	for _, c := range catalog.KnownCategories {
		m[strings.ToLower(string(c))] = c
	}
	return m
}

// accessoryCanon maps a surface accessory term (singular or plural) to its
// canonical singular form. accessoryPlural maps the canonical singular back
// to its plural surface form.
var accessoryCanon, accessoryPlural = loadAccessoryCanon()

func loadAccessoryCanon() (map[string]string, map[string]string) {
	var raw map[string]string // canonical -> plural
	if err := yaml.Unmarshal(accessoriesYAML, &raw); err != nil {
		panic("reranker: malformed embedded accessory data: " + err.Error())
	}
	canon := make(map[string]string, len(raw)*2)
	plural := make(map[string]string, len(raw))
	for singular, pl := range raw {
		canon[singular] = singular
		plural[singular] = pl
		if pl != "" {
			canon[pl] = singular
		}
	}
	return canon, plural
}

// Intent classifies the dominant category/accessory relationship detected in
// a parsed query.
type Intent string

const (
	IntentEquipamento Intent = "EQUIPAMENTO"
	IntentAcessorio   Intent = "ACESSORIO"
	IntentIndefinido  Intent = "INDEFINIDO"
)

// ParsedQuery is the output of parseQuery.
type ParsedQuery struct {
	Tokens         []string
	ModelNumbers   []string
	MainCategory   catalog.DocCategory // "" when no category token is present
	AccessoryTerms []string            // canonicalized to singular, in first-seen order
	Intent         Intent
}

// ParseQuery tokenizes and classifies a raw query per spec §4.6.
func ParseQuery(query string) ParsedQuery {
	tokens := strings.Fields(strings.ToLower(query))

	var modelNumbers []string
	for _, tok := range tokens {
		for _, m := range modelNumberPattern.FindAllString(tok, -1) {
			modelNumbers = append(modelNumbers, m)
		}
	}

	var mainCategory catalog.DocCategory
	categoryIdx := -1
	for i, tok := range tokens {
		if cat, ok := categoryTokens[tok]; ok {
			mainCategory = cat
			categoryIdx = i
			break
		}
	}

	var accessoryTerms []string
	seenAcc := make(map[string]bool)
	firstAccessoryIdx := -1
	for i, tok := range tokens {
		canon, ok := accessoryCanon[tok]
		if !ok {
			continue
		}
		if firstAccessoryIdx == -1 {
			firstAccessoryIdx = i
		}
		if !seenAcc[canon] {
			seenAcc[canon] = true
			accessoryTerms = append(accessoryTerms, canon)
		}
	}

	intent := IntentIndefinido
	switch {
	case mainCategory != "" && len(accessoryTerms) > 0:
		if categoryIdx <= firstAccessoryIdx {
			intent = IntentEquipamento
		} else {
			intent = IntentAcessorio
		}
	case mainCategory != "":
		intent = IntentEquipamento
	case len(accessoryTerms) > 0:
		intent = IntentAcessorio
	}

	return ParsedQuery{
		Tokens:         tokens,
		ModelNumbers:   modelNumbers,
		MainCategory:   mainCategory,
		AccessoryTerms: accessoryTerms,
		Intent:         intent,
	}
}

// DocClassification is the output of ClassifyDoc.
type DocClassification struct {
	DocType             catalog.DocType
	Category            catalog.DocCategory
	HasAccessoryTerms   bool
	HasCategoryTerms    bool
	HasModelNumberMatch bool
}

// ClassifyDoc determines a document's type and category, and whether it
// matches the query's model numbers, per spec §4.6.
func ClassifyDoc(doc catalog.Document, queryModelNumbers []string) DocClassification {
	text := strings.ToLower(doc.Title + " " + doc.Text)
	tokens := strings.Fields(text)

	hasAccessory := false
	for _, tok := range tokens {
		if _, ok := accessoryCanon[tok]; ok {
			hasAccessory = true
			break
		}
	}

	hasCategory := doc.DocCategory != "" && doc.DocCategory != catalog.CategoryUnknown
	if !hasCategory {
		for _, tok := range tokens {
			if _, ok := categoryTokens[tok]; ok {
				hasCategory = true
				break
			}
		}
	}

	docType := doc.DocType
	if docType == "" {
		switch {
		case hasAccessory:
			docType = catalog.DocTypeAcessorio
		case hasCategory:
			docType = catalog.DocTypeEquipamento
		default:
			docType = catalog.DocTypeIndefinido
		}
	}

	docNumbers := make(map[string]bool)
	for _, m := range modelNumberPattern.FindAllString(text, -1) {
		docNumbers[m] = true
	}
	hasModelMatch := false
	for _, qn := range queryModelNumbers {
		if docNumbers[qn] {
			hasModelMatch = true
			break
		}
	}

	return DocClassification{
		DocType:             docType,
		Category:            doc.DocCategory,
		HasAccessoryTerms:   hasAccessory,
		HasCategoryTerms:    hasCategory,
		HasModelNumberMatch: hasModelMatch,
	}
}

// BuildCoreQuery strips accessory tokens and connectors from an
// EQUIPAMENTO-intent query so BM25 retrieval isn't pulled toward accessory
// documents. Falls back to category+modelNumbers, then the original query,
// if stripping would empty it.
func BuildCoreQuery(query string, parsed ParsedQuery) string {
	if parsed.Intent != IntentEquipamento || len(parsed.AccessoryTerms) == 0 {
		return query
	}

	accessorySet := make(map[string]bool, len(parsed.AccessoryTerms))
	for _, a := range parsed.AccessoryTerms {
		accessorySet[a] = true
		accessorySet[accessoryPluralOf(a)] = true
	}

	var kept []string
	for _, tok := range parsed.Tokens {
		if connectors[tok] {
			continue
		}
		if accessorySet[tok] {
			continue
		}
		kept = append(kept, tok)
	}

	if len(kept) > 0 {
		return strings.Join(kept, " ")
	}

	var fallback []string
	if parsed.MainCategory != "" {
		fallback = append(fallback, strings.ToLower(string(parsed.MainCategory)))
	}
	fallback = append(fallback, parsed.ModelNumbers...)
	if len(fallback) > 0 {
		return strings.Join(fallback, " ")
	}

	return query
}

func accessoryPluralOf(singular string) string {
	return accessoryPlural[singular]
}
