package sanitizer

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fyrsmithlabs/complianced/internal/gates"
)

func newSanitizer(t *testing.T) *Sanitizer {
	t.Helper()
	s, err := New(nil)
	require.NoError(t, err)
	return s
}

func TestSanitizeReplacesRiskyPhrasing(t *testing.T) {
	s := newSanitizer(t)

	result := s.Sanitize("Guaranteed returns with no risk. Act now!", nil)

	assert.NotContains(t, result.Text, "Guaranteed returns")
	assert.NotContains(t, result.Text, "no risk")
	assert.NotContains(t, result.Text, "Act now")
	assert.Contains(t, result.Text, "potential returns")
	assert.Contains(t, result.Text, "reduced risk")
	assert.Contains(t, result.Text, "consider your options")
	assert.Len(t, result.Actions, 3)
}

func TestSanitizeCleanTextUntouched(t *testing.T) {
	s := newSanitizer(t)

	text := "Capital is at risk. Past performance does not predict future results."
	result := s.Sanitize(text, nil)

	assert.Equal(t, text, result.Text)
	assert.Empty(t, result.Actions)
	assert.InDelta(t, 0.7, result.Confidence, 1e-9)
}

func TestSanitizeEmptyText(t *testing.T) {
	s := newSanitizer(t)

	result := s.Sanitize("", nil)
	assert.Equal(t, "", result.Text)
	assert.Empty(t, result.Actions)
}

func TestSanitizeMergesRepeatedMatches(t *testing.T) {
	s := newSanitizer(t)

	result := s.Sanitize("act now, then act now again", nil)

	require.Len(t, result.Actions, 1)
	assert.Equal(t, CategoryUrgency, result.Actions[0].Category)
	assert.Equal(t, 2, result.Actions[0].Count)
}

func TestSanitizeCaseVariantsAreSeparateActions(t *testing.T) {
	s := newSanitizer(t)

	result := s.Sanitize("Act now or act now", nil)

	// Same rule, different matched text: two actions, one count each.
	require.Len(t, result.Actions, 2)
	assert.Equal(t, 1, result.Actions[0].Count)
	assert.Equal(t, 1, result.Actions[1].Count)
}

func TestSelectCategoriesFromFailures(t *testing.T) {
	s := newSanitizer(t)

	failures := []gates.FailingGate{
		{
			ModuleID: "fca_uk",
			GateID:   "risk_warning",
			Result:   gates.GateResult{Message: "no capital at risk warning"},
		},
	}

	selected := s.selectCategories(failures)
	assert.Contains(t, selected, CategoryRiskMinimization)
	assert.NotContains(t, selected, CategoryUrgency)
}

func TestSelectCategoriesUnmatchedFailuresRunAll(t *testing.T) {
	s := newSanitizer(t)

	failures := []gates.FailingGate{
		{ModuleID: "zz", GateID: "qq", Result: gates.GateResult{Message: "xyzzy"}},
	}
	assert.Equal(t, allCategories, s.selectCategories(failures))
	assert.Equal(t, allCategories, s.selectCategories(nil))
}

func TestSanitizeSteeredByFailuresSkipsOtherCategories(t *testing.T) {
	s := newSanitizer(t)

	failures := []gates.FailingGate{
		{
			ModuleID: "fca_uk",
			GateID:   "risk_warning",
			Result:   gates.GateResult{Message: "missing loss warning on capital"},
		},
	}

	// "act now" belongs to the urgency category, which the failure
	// vocabulary does not select.
	result := s.Sanitize("completely safe, act now", failures)
	assert.Contains(t, result.Text, "subject to risk")
	assert.Contains(t, result.Text, "act now")
}

func TestConfidenceBounds(t *testing.T) {
	assert.InDelta(t, 0.7, confidence("abc", "abc", 0), 1e-9)
	assert.InDelta(t, 1.0, confidence("abcdef", "abcdef", 5), 1e-9)

	// Large length delta drags the score down, clamped at zero.
	assert.Equal(t, 0.0, confidence("aaaaaaaaaa", "a", 0))

	got := confidence("guaranteed returns", "potential returns", 1)
	assert.GreaterOrEqual(t, got, 0.0)
	assert.LessOrEqual(t, got, 1.0)
}
