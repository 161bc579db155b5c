package search

import (
	"regexp"
	"strings"

	"rentalshop/internal/models"
	"rentalshop/internal/textutil"
)

// Clause kinds, ordered roughly by precision. Each backend compiles these
// into its own wire format; the tier and boost decisions are made once here.
const (
	ClauseTerm     = "term"     // exact match on a keyword subfield, no analysis
	ClausePhrase   = "phrase"   // analyzed phrase match
	ClauseMatch    = "match"    // analyzed multi-field match with typo tolerance
	ClauseWildcard = "wildcard" // substring match on a keyword subfield
)

// FuzzinessMax asks the backend for its maximum edit distance ("AUTO" in
// Elasticsearch terms).
const FuzzinessMax = -1

// Field holds one searchable field and its relative weight inside a clause.
type Field struct {
	Name  string
	Boost float64
}

// Clause is one weighted group in the ranking query.
type Clause struct {
	Kind      string
	Fields    []Field
	Text      string
	Fuzziness int // edit distance; FuzzinessMax means backend maximum
	Boost     float64
}

// Plan is the backend-agnostic representation of a search request: an
// ordered list of optional ranked clauses plus precision gating. A plan
// with no clauses means match-all (empty or filter-only queries are never
// an error).
type Plan struct {
	Clauses        []Clause
	Category       string // mandatory exact filter, independent of the tiers
	HasImage       bool
	MinScore       float64
	MinShouldMatch string // e.g. "80%" or "2"; empty means backend default
	Page           int
	Limit          int
}

// productIDPattern matches queries shaped like a formatted product code:
// 1-3 letters, optional dash, 4-6 digits (AD-000831, AD000831, ad831...).
var productIDPattern = regexp.MustCompile(`^[A-Za-z]{1,3}-?[0-9]{4,6}$`)

// idVariants returns the dash-inserted and dash-removed spellings of a
// product-ID query so AD000831 and AD-000831 both hit the same document.
func idVariants(raw string) []string {
	upper := strings.ToUpper(raw)
	bare := strings.ReplaceAll(upper, "-", "")

	letters := strings.TrimRight(bare, "0123456789")
	digits := bare[len(letters):]
	dashed := letters + "-" + digits

	variants := []string{upper}
	for _, v := range []string{dashed, bare} {
		if v != upper {
			variants = append(variants, v)
		}
	}
	return variants
}

// fuzzinessFor maps search mode and query shape to a typo-tolerance level.
func fuzzinessFor(mode, text string) int {
	switch mode {
	case models.ModeExact:
		return 0
	case models.ModeFuzzy:
		return 2
	case models.ModeBroad:
		return FuzzinessMax
	default: // auto
		if textutil.WordCount(text) == 1 && len([]rune(text)) <= 4 {
			return 0
		}
		return 1
	}
}

// wildcardEnabled decides whether the lowest-boost substring tier applies.
// Never under exact mode; broad always; fuzzy and auto only for queries
// long enough that a substring is meaningful.
func wildcardEnabled(mode, text string) bool {
	length := len([]rune(text))
	switch mode {
	case models.ModeExact:
		return false
	case models.ModeBroad:
		return true
	case models.ModeFuzzy:
		return length >= 3
	default: // auto
		return length >= 4
	}
}

// Gating holds the empirically tuned precision thresholds. The values are
// configurable defaults, not load-bearing constants; they should be
// validated against real query logs.
type Gating struct {
	ExactMinScore  float64
	ExactMSM       string
	FuzzyMinScore  float64
	FuzzyMSM       string
	ShortMinScore  float64 // auto, single short word
	ShortMSM       string
	PairMinScore   float64 // auto, two words
	PairMSM        string
	CoverMinScore  float64 // auto, three or more words
	CoverMSM       string
}

// DefaultGating mirrors the thresholds the shop runs in production.
func DefaultGating() Gating {
	return Gating{
		ExactMinScore: 4.0,
		ExactMSM:      "80%",
		FuzzyMinScore: 1.0,
		FuzzyMSM:      "30%",
		ShortMinScore: 2.0,
		ShortMSM:      "75%",
		PairMinScore:  1.2,
		PairMSM:       "50%",
		CoverMinScore: 0.6,
		CoverMSM:      "40%",
	}
}

// Planner turns a raw search query into a Plan.
type Planner struct {
	gating Gating
}

// NewPlanner creates a planner with the given gating thresholds.
func NewPlanner(gating Gating) *Planner {
	return &Planner{gating: gating}
}

// Build constructs the tiered plan for a query. Tiers in descending boost:
// product-ID, exact-term, phrase, fuzzy, normalized, partial/wildcard.
// Each is added only when applicable to the query shape and mode.
func (p *Planner) Build(q models.SearchQuery) Plan {
	plan := Plan{
		Category: q.Category,
		HasImage: q.HasImage,
		Page:     q.Page,
		Limit:    q.Limit,
	}

	text := strings.TrimSpace(q.Text)
	if text == "" {
		// Malformed or empty query: match all, filters only.
		return plan
	}

	mode := q.Mode
	if !models.ValidMode(mode) {
		mode = models.ModeAuto
	}

	if productIDPattern.MatchString(text) {
		// Typo tolerance is disabled for the whole tier: a
		// one-character-off code must not match.
		for _, variant := range idVariants(text) {
			plan.Clauses = append(plan.Clauses, Clause{
				Kind:   ClauseTerm,
				Fields: []Field{{Name: "formatted_id", Boost: 1}},
				Text:   variant,
				Boost:  10,
			})
		}
		plan.Clauses = append(plan.Clauses, Clause{
			Kind:   ClauseWildcard,
			Fields: []Field{{Name: "formatted_id", Boost: 1}},
			Text:   strings.ToUpper(strings.ReplaceAll(text, "-", "")),
			Boost:  8,
		})
	}

	// Exact-term tier: non-analyzed keyword matches, name > tags > category.
	plan.Clauses = append(plan.Clauses, Clause{
		Kind: ClauseTerm,
		Fields: []Field{
			{Name: "name.keyword", Boost: 6},
			{Name: "tags.keyword", Boost: 5},
			{Name: "category.keyword", Boost: 4},
		},
		Text:  text,
		Boost: 1,
	})

	if textutil.WordCount(text) > 1 {
		plan.Clauses = append(plan.Clauses, Clause{
			Kind: ClausePhrase,
			Fields: []Field{
				{Name: "name", Boost: 4},
				{Name: "tags", Boost: 3.5},
			},
			Text:  text,
			Boost: 1,
		})
	}

	plan.Clauses = append(plan.Clauses, Clause{
		Kind: ClauseMatch,
		Fields: []Field{
			{Name: "name", Boost: 3},
			{Name: "tags", Boost: 2.5},
			{Name: "category", Boost: 2},
		},
		Text:      text,
		Fuzziness: fuzzinessFor(mode, text),
		Boost:     1,
	})

	// Normalization tier: recovers matches typed without diacritics.
	normalized := textutil.Normalize(text)
	if normalized != strings.ToLower(text) && len([]rune(normalized)) >= 3 {
		plan.Clauses = append(plan.Clauses, Clause{
			Kind: ClauseMatch,
			Fields: []Field{
				{Name: "name.search", Boost: 1.5},
				{Name: "tags.search", Boost: 1.3},
				{Name: "category.search", Boost: 1.2},
			},
			Text:  normalized,
			Boost: 1,
		})
	}

	if wildcardEnabled(mode, text) {
		plan.Clauses = append(plan.Clauses, Clause{
			Kind: ClauseWildcard,
			Fields: []Field{
				{Name: "name.keyword", Boost: 0.8},
				{Name: "tags.keyword", Boost: 0.6},
			},
			Text:  text,
			Boost: 1,
		})
	}

	p.applyGating(&plan, mode, text)
	return plan
}

// applyGating sets min-score and minimum-should-match when at least one
// optional clause exists. With a mandatory category filter in place,
// min-score is skipped: the filter already bounds the result set and a
// score threshold would only hide legitimate filtered matches.
func (p *Planner) applyGating(plan *Plan, mode, text string) {
	if len(plan.Clauses) == 0 {
		return
	}
	if plan.Category != "" {
		plan.MinShouldMatch = "1"
		return
	}

	switch mode {
	case models.ModeExact:
		plan.MinScore = p.gating.ExactMinScore
		plan.MinShouldMatch = p.gating.ExactMSM
	case models.ModeFuzzy, models.ModeBroad:
		plan.MinScore = p.gating.FuzzyMinScore
		plan.MinShouldMatch = p.gating.FuzzyMSM
	default: // auto scales with query length
		words := textutil.WordCount(text)
		switch {
		case words == 1 && len([]rune(text)) <= 4:
			plan.MinScore = p.gating.ShortMinScore
			plan.MinShouldMatch = p.gating.ShortMSM
		case words <= 2:
			plan.MinScore = p.gating.PairMinScore
			plan.MinShouldMatch = p.gating.PairMSM
		default:
			plan.MinScore = p.gating.CoverMinScore
			plan.MinShouldMatch = p.gating.CoverMSM
		}
	}
}

// IsIDQuery reports whether the text looks like a formatted product code.
func IsIDQuery(text string) bool {
	return productIDPattern.MatchString(strings.TrimSpace(text))
}
