package conflict

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fyrsmithlabs/complianced/internal/gates"
	"github.com/fyrsmithlabs/complianced/internal/snippet"
)

func applied(key, moduleID, gateID, text string) snippet.Applied {
	return snippet.Applied{
		Key:       key,
		ModuleID:  moduleID,
		GateID:    gateID,
		TextAdded: text,
	}
}

func conflictsOfType(conflicts []Conflict, typ Type) []Conflict {
	var out []Conflict
	for _, c := range conflicts {
		if c.Type == typ {
			out = append(out, c)
		}
	}
	return out
}

func TestDetectContradictory(t *testing.T) {
	r := NewResolver(nil)

	batch := []snippet.Applied{
		applied("gdpr_uk:lawful_basis:end", "gdpr_uk", "lawful_basis",
			"Processing relies on your consent."),
		applied("gdpr_uk:consent_withdrawal:end", "gdpr_uk", "consent_withdrawal",
			"You may withdraw at any time."),
	}

	out := r.detectContradictory(batch)
	require.Len(t, out, 1)
	assert.Equal(t, TypeContradictory, out[0].Type)
	assert.Equal(t, SeverityHigh, out[0].Severity)
	assert.True(t, out[0].AutoResolvable)
	assert.ElementsMatch(t, []string{batch[0].Key, batch[1].Key}, out[0].CorrectionsInvolved)
	assert.NotEmpty(t, out[0].ID)
}

func TestDetectOverlapGroupsByGate(t *testing.T) {
	r := NewResolver(nil)

	batch := []snippet.Applied{
		applied("fca_uk:risk_warning:start", "fca_uk", "risk_warning", "alpha"),
		applied("fca_uk:risk_warning:end", "fca_uk", "risk_warning", "beta"),
		applied("fca_uk:fos_signposting:end", "fca_uk", "fos_signposting", "gamma"),
	}

	out := r.detectOverlap(batch)
	require.Len(t, out, 1)
	assert.Equal(t, TypeOverlap, out[0].Type)
	assert.Len(t, out[0].CorrectionsInvolved, 2)
}

func TestDetectNewViolations(t *testing.T) {
	r := NewResolver(nil)

	initial := gates.ValidationResult{
		"gdpr_uk": {Gates: map[string]gates.GateResult{
			"retention_period": {Status: gates.StatusPass},
			"lawful_basis":     {Status: gates.StatusFail},
		}},
	}
	current := gates.ValidationResult{
		"gdpr_uk": {Gates: map[string]gates.GateResult{
			"retention_period": {Status: gates.StatusFail},
			"lawful_basis":     {Status: gates.StatusPass},
		}},
	}

	out := r.detectNewViolations(initial, current)
	require.Len(t, out, 1)
	assert.Equal(t, TypeNewViolation, out[0].Type)
	assert.Equal(t, SeverityCritical, out[0].Severity)
	assert.False(t, out[0].AutoResolvable)
	assert.Equal(t, []string{"gdpr_uk:retention_period"}, out[0].CorrectionsInvolved)
}

func TestDetectNewViolationsIgnoresPreexistingFailures(t *testing.T) {
	r := NewResolver(nil)

	v := gates.ValidationResult{
		"fca_uk": {Gates: map[string]gates.GateResult{
			"risk_warning": {Status: gates.StatusFail},
		}},
	}
	assert.Empty(t, r.detectNewViolations(v, v))
}

func TestDetectIncompatible(t *testing.T) {
	r := NewResolver(nil)

	batch := []snippet.Applied{
		applied("tax_uk:hmrc_disclosure:end", "tax_uk", "hmrc_disclosure", "disclose to HMRC"),
		applied("nda_uk:confidentiality_scope:section", "nda_uk", "confidentiality_scope", "keep confidential"),
	}

	out := r.detectIncompatible(batch)
	require.Len(t, out, 1)
	assert.Equal(t, TypeIncompatible, out[0].Type)
	assert.False(t, out[0].AutoResolvable)
}

func TestDetectRedundant(t *testing.T) {
	r := NewResolver(nil)

	tests := []struct {
		name  string
		a, b  string
		count int
	}{
		{"identical", "same text", "same text", 1},
		{"substring", "full disclosure statement", "disclosure", 1},
		{"distinct", "alpha text", "beta text", 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			batch := []snippet.Applied{
				applied("m:g1:end", "m", "g1", tt.a),
				applied("m:g2:end", "m", "g2", tt.b),
			}
			out := r.detectRedundant(batch)
			assert.Len(t, out, tt.count)
		})
	}
}

func TestRedundantSymmetry(t *testing.T) {
	r := NewResolver(nil)

	forward := []snippet.Applied{
		applied("m:g1:end", "m", "g1", "the shared sentence"),
		applied("m:g2:end", "m", "g2", "the shared sentence"),
	}
	backward := []snippet.Applied{forward[1], forward[0]}

	a := r.detectRedundant(forward)
	b := r.detectRedundant(backward)
	require.Len(t, a, 1)
	require.Len(t, b, 1)
	assert.ElementsMatch(t, a[0].CorrectionsInvolved, b[0].CorrectionsInvolved)
}

func TestIdenticalTextIsRedundantNotContradictory(t *testing.T) {
	r := NewResolver(nil)

	batch := []snippet.Applied{
		applied("m:g1:end", "m", "g1", "You must obtain consent before processing."),
		applied("m:g2:end", "m", "g2", "You must obtain consent before processing."),
	}

	out := r.Detect(batch, nil, nil, "")
	assert.Len(t, conflictsOfType(out, TypeRedundant), 1)
	assert.Empty(t, conflictsOfType(out, TypeContradictory))
}

func TestDetectRunsAllRules(t *testing.T) {
	r := NewResolver(nil)

	batch := []snippet.Applied{
		applied("fca_uk:risk_warning:start", "fca_uk", "risk_warning",
			"Returns are guaranteed by nobody; capital is at risk."),
		applied("gdpr_uk:lawful_basis:end", "gdpr_uk", "lawful_basis",
			"Outcomes are uncertain and processing has a lawful basis."),
	}

	out := r.Detect(batch, nil, nil, "")
	// "guaranteed" vs "uncertain" triggers the certainty pair; the gate pair
	// is also in the incompatibility table.
	assert.NotEmpty(t, conflictsOfType(out, TypeContradictory))
	assert.NotEmpty(t, conflictsOfType(out, TypeIncompatible))
}

func TestResolveWithoutAutoResolve(t *testing.T) {
	r := NewResolver(nil)

	conflicts := []Conflict{{ID: "c1", Type: TypeRedundant, AutoResolvable: true}}
	remaining, actions := r.Resolve(conflicts, false)
	assert.Equal(t, conflicts, remaining)
	assert.Empty(t, actions)
}

func TestResolveAutoResolvesKnownTypes(t *testing.T) {
	r := NewResolver(nil)

	conflicts := []Conflict{
		{ID: "c1", Type: TypeRedundant, AutoResolvable: true, CorrectionsInvolved: []string{"a", "b"}},
		{ID: "c2", Type: TypeOverlap, AutoResolvable: true, CorrectionsInvolved: []string{"a", "b"}},
		{ID: "c3", Type: TypeNewViolation, AutoResolvable: false, CorrectionsInvolved: []string{"m:g"}},
	}

	remaining, actions := r.Resolve(conflicts, true)
	require.Len(t, remaining, 1)
	assert.Equal(t, "c3", remaining[0].ID)
	assert.Len(t, actions, 2)
}
