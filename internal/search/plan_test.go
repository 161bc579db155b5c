package search

import (
	"strconv"
	"strings"
	"testing"

	"rentalshop/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func clauseTexts(plan Plan, kind, field string) []string {
	var out []string
	for _, c := range plan.Clauses {
		if c.Kind != kind {
			continue
		}
		for _, f := range c.Fields {
			if f.Name == field {
				out = append(out, c.Text)
			}
		}
	}
	return out
}

func hasClauseOn(plan Plan, kind, field string) bool {
	return len(clauseTexts(plan, kind, field)) > 0
}

func TestBuildEmptyQueryMatchesAll(t *testing.T) {
	planner := NewPlanner(DefaultGating())

	plan := planner.Build(models.SearchQuery{Text: "   ", Category: "Vest", Page: 1, Limit: 20})

	assert.Empty(t, plan.Clauses)
	assert.Equal(t, "Vest", plan.Category)
	assert.Zero(t, plan.MinScore)
	assert.Empty(t, plan.MinShouldMatch)
}

func TestBuildProductIDTier(t *testing.T) {
	planner := NewPlanner(DefaultGating())

	tests := []struct {
		name     string
		text     string
		variants []string
	}{
		{"dashed uppercase", "AD-000831", []string{"AD-000831", "AD000831"}},
		{"bare lowercase", "ad000831", []string{"AD000831", "AD-000831"}},
		{"short digits", "ve-1234", []string{"VE-1234", "VE1234"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			plan := planner.Build(models.SearchQuery{Text: tt.text, Mode: models.ModeAuto})

			terms := clauseTexts(plan, ClauseTerm, "formatted_id")
			assert.ElementsMatch(t, tt.variants, terms)

			wildcards := clauseTexts(plan, ClauseWildcard, "formatted_id")
			require.Len(t, wildcards, 1)
			assert.Equal(t, trimDash(tt.variants[0]), wildcards[0])
		})
	}
}

func trimDash(s string) string {
	out := make([]byte, 0, len(s))
	for i := 0; i < len(s); i++ {
		if s[i] != '-' {
			out = append(out, s[i])
		}
	}
	return string(out)
}

func TestBuildProductIDTierDisablesTypos(t *testing.T) {
	planner := NewPlanner(DefaultGating())
	plan := planner.Build(models.SearchQuery{Text: "AD-000831", Mode: models.ModeBroad})

	for _, c := range plan.Clauses {
		if len(c.Fields) == 1 && c.Fields[0].Name == "formatted_id" {
			assert.Zero(t, c.Fuzziness, "the id tier never tolerates typos")
		}
	}
}

func TestBuildNonIDQueriesSkipIDTier(t *testing.T) {
	planner := NewPlanner(DefaultGating())
	plan := planner.Build(models.SearchQuery{Text: "vest den", Mode: models.ModeAuto})

	assert.False(t, hasClauseOn(plan, ClauseTerm, "formatted_id"))
	assert.False(t, hasClauseOn(plan, ClauseWildcard, "formatted_id"))
}

func TestBuildTiersByMode(t *testing.T) {
	planner := NewPlanner(DefaultGating())

	tests := []struct {
		name      string
		text      string
		mode      string
		wildcard  bool
		fuzziness int
	}{
		{"exact disables wildcard and typos", "áo dài cưới", models.ModeExact, false, 0},
		{"fuzzy short query skips wildcard", "ao", models.ModeFuzzy, false, 2},
		{"fuzzy long query wildcards", "ao dai", models.ModeFuzzy, true, 2},
		{"broad always wildcards", "ao", models.ModeBroad, true, FuzzinessMax},
		{"auto short word stays strict", "vay", models.ModeAuto, false, 0},
		{"auto long query tolerates one edit", "vay cuoi dep", models.ModeAuto, true, 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			plan := planner.Build(models.SearchQuery{Text: tt.text, Mode: tt.mode})

			assert.True(t, hasClauseOn(plan, ClauseTerm, "name.keyword"))
			assert.Equal(t, tt.wildcard, hasClauseOn(plan, ClauseWildcard, "name.keyword"))

			matches := clauseTexts(plan, ClauseMatch, "name")
			require.NotEmpty(t, matches)
			for _, c := range plan.Clauses {
				if c.Kind == ClauseMatch && c.Fields[0].Name == "name" {
					assert.Equal(t, tt.fuzziness, c.Fuzziness)
				}
			}
		})
	}
}

func TestBuildPhraseTierOnlyForMultiWord(t *testing.T) {
	planner := NewPlanner(DefaultGating())

	single := planner.Build(models.SearchQuery{Text: "vest", Mode: models.ModeAuto})
	assert.False(t, hasClauseOn(single, ClausePhrase, "name"))

	multi := planner.Build(models.SearchQuery{Text: "vest đen", Mode: models.ModeAuto})
	assert.True(t, hasClauseOn(multi, ClausePhrase, "name"))
}

func TestBuildNormalizationTier(t *testing.T) {
	planner := NewPlanner(DefaultGating())

	accented := planner.Build(models.SearchQuery{Text: "áo dài", Mode: models.ModeAuto})
	texts := clauseTexts(accented, ClauseMatch, "name.search")
	require.Len(t, texts, 1)
	assert.Equal(t, "ao dai", texts[0])

	// Already plain ASCII: the folded form adds nothing.
	plain := planner.Build(models.SearchQuery{Text: "ao dai", Mode: models.ModeAuto})
	assert.False(t, hasClauseOn(plain, ClauseMatch, "name.search"))
}

func TestApplyGating(t *testing.T) {
	planner := NewPlanner(DefaultGating())

	tests := []struct {
		name     string
		q        models.SearchQuery
		minScore float64
		msm      string
	}{
		{"exact", models.SearchQuery{Text: "áo dài", Mode: models.ModeExact}, 4.0, "80%"},
		{"fuzzy", models.SearchQuery{Text: "áo dài", Mode: models.ModeFuzzy}, 1.0, "30%"},
		{"broad", models.SearchQuery{Text: "áo dài", Mode: models.ModeBroad}, 1.0, "30%"},
		{"auto short single word", models.SearchQuery{Text: "vay", Mode: models.ModeAuto}, 2.0, "75%"},
		{"auto two words", models.SearchQuery{Text: "vay cuoi", Mode: models.ModeAuto}, 1.2, "50%"},
		{"auto three words", models.SearchQuery{Text: "vay cuoi dep", Mode: models.ModeAuto}, 0.6, "40%"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			plan := planner.Build(tt.q)
			assert.Equal(t, tt.minScore, plan.MinScore)
			assert.Equal(t, tt.msm, plan.MinShouldMatch)
		})
	}
}

func TestApplyGatingCategoryFilterRelaxesScore(t *testing.T) {
	planner := NewPlanner(DefaultGating())

	plan := planner.Build(models.SearchQuery{Text: "áo dài", Mode: models.ModeExact, Category: "Áo Dài"})

	assert.Zero(t, plan.MinScore, "score gating would fight the mandatory filter")
	assert.Equal(t, "1", plan.MinShouldMatch)
}

func TestIsIDQuery(t *testing.T) {
	tests := []struct {
		text string
		want bool
	}{
		{"AD-000831", true},
		{"ad000831", true},
		{"VE-1234", true},
		{" ad-000831 ", true},
		{"áo dài", false},
		{"AD-83", false},      // too few digits
		{"ABCD-0831", false},  // too many letters
		{"AD-0008312X", false},
		{"", false},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, IsIDQuery(tt.text), "text %q", tt.text)
	}
}

// msmPercent parses a "NN%" minimum-should-match into its numeric value.
func msmPercent(t *testing.T, msm string) int {
	t.Helper()
	require.True(t, strings.HasSuffix(msm, "%"), msm)
	n, err := strconv.Atoi(strings.TrimSuffix(msm, "%"))
	require.NoError(t, err)
	return n
}

// fuzzRank orders fuzziness values with the backend maximum at the top.
func fuzzRank(f int) int {
	if f == FuzzinessMax {
		return 1 << 30
	}
	return f
}

func TestExactResultsSubsetOfBroad(t *testing.T) {
	planner := NewPlanner(DefaultGating())
	queries := []string{"áo dài cưới", "vest den", "dam da hoi"}

	for _, text := range queries {
		exact := planner.Build(models.SearchQuery{Text: text, Mode: models.ModeExact})
		broad := planner.Build(models.SearchQuery{Text: text, Mode: models.ModeBroad})

		// Every exact clause must have a broad counterpart at least as
		// permissive, so any document the strict plan reaches is reachable
		// by the loose one.
		for _, ec := range exact.Clauses {
			found := false
			for _, bc := range broad.Clauses {
				if bc.Kind == ec.Kind && bc.Text == ec.Text && len(bc.Fields) == len(ec.Fields) {
					assert.GreaterOrEqual(t, fuzzRank(bc.Fuzziness), fuzzRank(ec.Fuzziness), text)
					found = true
					break
				}
			}
			assert.True(t, found, "broad plan misses %s clause for %q", ec.Kind, text)
		}

		assert.LessOrEqual(t, broad.MinScore, exact.MinScore, text)
		assert.LessOrEqual(t, msmPercent(t, broad.MinShouldMatch), msmPercent(t, exact.MinShouldMatch), text)
	}
}
