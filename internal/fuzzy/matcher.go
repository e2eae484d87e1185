// Package fuzzy corrects token-level typos against a closed corpus
// vocabulary using Levenshtein edit distance.
package fuzzy

// Config tunes the correction thresholds.
type Config struct {
	MinTokenLength int // minimum vocabulary token length retained at build time
	MaxDistance    int // maximum edit distance accepted as a correction
	MinSimilarity  float64
}

// DefaultConfig returns the spec's default tuning.
func DefaultConfig() Config {
	return Config{
		MinTokenLength: 4,
		MaxDistance:    2,
		MinSimilarity:  0.75,
	}
}

// MatcherOption configures a Matcher at construction time.
type MatcherOption func(*Matcher)

// WithConfig overrides the default threshold configuration.
func WithConfig(cfg Config) MatcherOption {
	return func(m *Matcher) {
		m.cfg = cfg
	}
}

// Matcher is an immutable, built vocabulary used for typo correction.
// Adding entries after Build is a distinct bulk operation that invalidates
// any persisted index depending on this matcher.
type Matcher struct {
	cfg        Config
	vocabulary []string       // insertion order, for deterministic tie-breaking
	present    map[string]bool
}

// Build constructs a Matcher from the union of corpus tokens, keeping
// insertion order and filtering by the configured minimum length.
func Build(tokens []string, opts ...MatcherOption) *Matcher {
	m := &Matcher{
		cfg:     DefaultConfig(),
		present: make(map[string]bool),
	}
	for _, opt := range opts {
		opt(m)
	}

	seen := make(map[string]bool)
	for _, t := range tokens {
		if len([]rune(t)) < m.cfg.MinTokenLength {
			continue
		}
		if seen[t] {
			continue
		}
		seen[t] = true
		m.vocabulary = append(m.vocabulary, t)
		m.present[t] = true
	}

	return m
}

// Correction describes a single original→replacement substitution.
type Correction struct {
	Original    string
	Replacement string
}

// QueryResult is the outcome of correcting every token in a query.
type QueryResult struct {
	Corrected      string
	Corrections    []Correction
	HasCorrections bool
}

// Correct returns token verbatim if present in the vocabulary. Otherwise, if
// token is shorter than the minimum query-token length, it is returned
// unchanged. Otherwise the closest vocabulary entry within MaxDistance and
// at or above MinSimilarity is returned; ties are broken by higher
// similarity, then by vocabulary insertion order. If no candidate qualifies,
// the original token is returned.
func (m *Matcher) Correct(token string) string {
	if m.present[token] {
		return token
	}
	if len([]rune(token)) < m.cfg.MinTokenLength {
		return token
	}

	bestIdx := -1
	bestSim := -1.0

	for i, candidate := range m.vocabulary {
		dist := levenshtein(token, candidate)
		if dist > m.cfg.MaxDistance {
			continue
		}
		maxLen := len([]rune(token))
		if cl := len([]rune(candidate)); cl > maxLen {
			maxLen = cl
		}
		sim := 1 - float64(dist)/float64(maxLen)
		if sim < m.cfg.MinSimilarity {
			continue
		}

		if sim > bestSim {
			bestSim = sim
			bestIdx = i
		}
	}

	if bestIdx == -1 {
		return token
	}
	return m.vocabulary[bestIdx]
}

// CorrectQuery splits query on whitespace, corrects each token
// independently, and reassembles the corrected form.
func (m *Matcher) CorrectQuery(query string) QueryResult {
	tokens := splitFields(query)
	corrected := make([]string, len(tokens))
	var corrections []Correction

	for i, tok := range tokens {
		c := m.Correct(tok)
		corrected[i] = c
		if c != tok {
			corrections = append(corrections, Correction{Original: tok, Replacement: c})
		}
	}

	return QueryResult{
		Corrected:      joinFields(corrected),
		Corrections:    corrections,
		HasCorrections: len(corrections) > 0,
	}
}

// Vocabulary returns the built vocabulary in insertion order. The returned
// slice must not be mutated.
func (m *Matcher) Vocabulary() []string {
	return m.vocabulary
}

func splitFields(s string) []string {
	var fields []string
	var cur []rune
	for _, r := range s {
		if r == ' ' || r == '\t' || r == '\n' {
			if len(cur) > 0 {
				fields = append(fields, string(cur))
				cur = cur[:0]
			}
			continue
		}
		cur = append(cur, r)
	}
	if len(cur) > 0 {
		fields = append(fields, string(cur))
	}
	return fields
}

func joinFields(fields []string) string {
	out := ""
	for i, f := range fields {
		if i > 0 {
			out += " "
		}
		out += f
	}
	return out
}

// levenshtein computes the edit distance between a and b using classic
// dynamic programming over rune slices.
func levenshtein(a, b string) int {
	ra, rb := []rune(a), []rune(b)
	la, lb := len(ra), len(rb)

	if la == 0 {
		return lb
	}
	if lb == 0 {
		return la
	}

	prev := make([]int, lb+1)
	curr := make([]int, lb+1)
	for j := 0; j <= lb; j++ {
		prev[j] = j
	}

	for i := 1; i <= la; i++ {
		curr[0] = i
		for j := 1; j <= lb; j++ {
			cost := 1
			if ra[i-1] == rb[j-1] {
				cost = 0
			}
			curr[j] = min3(prev[j]+1, curr[j-1]+1, prev[j-1]+cost)
		}
		prev, curr = curr, prev
	}

	return prev[lb]
}

func min3(a, b, c int) int {
	m := a
	if b < m {
		m = b
	}
	if c < m {
		m = c
	}
	return m
}
