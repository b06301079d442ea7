// Package conflict performs post-hoc analysis of a batch of applied snippets,
// finding contradictions, overlaps, redundancies, cross-module
// incompatibilities, and validation failures introduced by the batch itself.
package conflict

import (
	"fmt"
	"sort"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/fyrsmithlabs/complianced/internal/gates"
	"github.com/fyrsmithlabs/complianced/internal/snippet"
)

// Type classifies a detected conflict.
type Type string

const (
	TypeContradictory Type = "CONTRADICTORY"
	TypeOverlap       Type = "OVERLAP"
	TypeNewViolation  Type = "NEW_VIOLATION"
	TypeIncompatible  Type = "INCOMPATIBLE"
	TypeRedundant     Type = "REDUNDANT"
)

// Severity ranks a conflict. Distinct from gate severity: conflicts have no
// info level.
type Severity string

const (
	SeverityCritical Severity = "critical"
	SeverityHigh     Severity = "high"
	SeverityMedium   Severity = "medium"
	SeverityLow      Severity = "low"
)

// Conflict describes one detected contradiction between applied corrections.
type Conflict struct {
	ID                  string   `json:"conflict_id"`
	Type                Type     `json:"type"`
	Severity            Severity `json:"severity"`
	CorrectionsInvolved []string `json:"corrections_involved"`
	Description         string   `json:"description"`
	SuggestedResolution string   `json:"suggested_resolution"`
	AutoResolvable      bool     `json:"auto_resolvable"`
}

// vocabularyPair is a positive/negative term pairing whose co-occurrence
// across two applied snippets marks them contradictory.
type vocabularyPair struct {
	label    string
	positive []string
	negative []string
}

var contradictionVocabulary = []vocabularyPair{
	{"consent", []string{"consent", "agree"}, []string{"withdraw", "revoke"}},
	{"obligation", []string{"mandatory", "must"}, []string{"optional", "may "}},
	{"universality", []string{"always", " all "}, []string{"never", " none "}},
	{"certainty", []string{"guaranteed", "certain"}, []string{"not guaranteed", "uncertain"}},
}

// incompatiblePair names two gates, in different modules, whose fixes are
// known to undermine each other.
type incompatiblePair struct {
	a, b   string // module:gate keys
	reason string
}

var incompatibilityTable = []incompatiblePair{
	{
		a:      "fca_uk:balanced_promotion",
		b:      "gdpr_uk:consent_withdrawal",
		reason: "promotional balancing language can contradict unconditional consent withdrawal wording",
	},
	{
		a:      "fca_uk:risk_warning",
		b:      "gdpr_uk:lawful_basis",
		reason: "prominent risk warnings at document start can displace mandatory lawful-basis statements",
	},
	{
		a:      "tax_uk:hmrc_disclosure",
		b:      "nda_uk:confidentiality_scope",
		reason: "confidentiality scope wording can appear to restrain statutory HMRC disclosure",
	},
}

// Resolver detects and optionally auto-resolves conflicts. Stateless; safe
// for concurrent use.
type Resolver struct {
	logger *zap.Logger
}

// NewResolver creates a conflict resolver.
func NewResolver(logger *zap.Logger) *Resolver {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Resolver{logger: logger}
}

// Detect runs all five conflict rules over a session's applied snippets.
// Run once per session, after the synthesis loop terminates.
func (r *Resolver) Detect(applied []snippet.Applied, initial, current gates.ValidationResult, text string) []Conflict {
	var conflicts []Conflict
	conflicts = append(conflicts, r.detectContradictory(applied)...)
	conflicts = append(conflicts, r.detectOverlap(applied)...)
	conflicts = append(conflicts, r.detectNewViolations(initial, current)...)
	conflicts = append(conflicts, r.detectIncompatible(applied)...)
	conflicts = append(conflicts, r.detectRedundant(applied)...)

	if len(conflicts) > 0 {
		r.logger.Info("conflicts detected",
			zap.Int("count", len(conflicts)),
			zap.Int("applied_snippets", len(applied)),
		)
	}
	return conflicts
}

func (r *Resolver) detectContradictory(applied []snippet.Applied) []Conflict {
	var out []Conflict
	for i := 0; i < len(applied); i++ {
		for j := i + 1; j < len(applied); j++ {
			a := strings.ToLower(applied[i].TextAdded)
			b := strings.ToLower(applied[j].TextAdded)
			for _, vocab := range contradictionVocabulary {
				if (containsAny(a, vocab.positive) && containsAny(b, vocab.negative)) ||
					(containsAny(b, vocab.positive) && containsAny(a, vocab.negative)) {
					out = append(out, Conflict{
						ID:                  uuid.New().String(),
						Type:                TypeContradictory,
						Severity:            SeverityHigh,
						CorrectionsInvolved: []string{applied[i].Key, applied[j].Key},
						Description: fmt.Sprintf("corrections %s and %s use opposing %s vocabulary",
							applied[i].Key, applied[j].Key, vocab.label),
						SuggestedResolution: "compare confidence scores and keep the correction that better matches the failing gate",
						AutoResolvable:      true,
					})
					break
				}
			}
		}
	}
	return out
}

func (r *Resolver) detectOverlap(applied []snippet.Applied) []Conflict {
	byGate := make(map[string][]snippet.Applied)
	for _, a := range applied {
		byGate[a.GateID] = append(byGate[a.GateID], a)
	}

	gateIDs := make([]string, 0, len(byGate))
	for id := range byGate {
		gateIDs = append(gateIDs, id)
	}
	sort.Strings(gateIDs)

	var out []Conflict
	for _, gateID := range gateIDs {
		group := byGate[gateID]
		if len(group) < 2 {
			continue
		}
		keys := make([]string, len(group))
		for i, a := range group {
			keys[i] = a.Key
		}
		out = append(out, Conflict{
			ID:                  uuid.New().String(),
			Type:                TypeOverlap,
			Severity:            SeverityMedium,
			CorrectionsInvolved: keys,
			Description:         fmt.Sprintf("%d corrections target gate %s", len(group), gateID),
			SuggestedResolution: "keep the highest-confidence correction and drop the rest",
			AutoResolvable:      true,
		})
	}
	return out
}

func (r *Resolver) detectNewViolations(initial, current gates.ValidationResult) []Conflict {
	var out []Conflict
	for moduleID, mod := range initial {
		for gateID, before := range mod.Gates {
			if before.Status != gates.StatusPass {
				continue
			}
			after, ok := current.Lookup(moduleID, gateID)
			if !ok || after.Status == gates.StatusPass {
				continue
			}
			out = append(out, Conflict{
				ID:                  uuid.New().String(),
				Type:                TypeNewViolation,
				Severity:            SeverityCritical,
				CorrectionsInvolved: []string{moduleID + ":" + gateID},
				Description: fmt.Sprintf("gate %s:%s passed before synthesis but is now %s",
					moduleID, gateID, after.Status),
				SuggestedResolution: "roll back to the snapshot preceding the regression and review the applied corrections manually",
				AutoResolvable:      false,
			})
		}
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].CorrectionsInvolved[0] < out[j].CorrectionsInvolved[0]
	})
	return out
}

func (r *Resolver) detectIncompatible(applied []snippet.Applied) []Conflict {
	index := make(map[string]snippet.Applied)
	for _, a := range applied {
		index[a.ModuleID+":"+a.GateID] = a
	}

	var out []Conflict
	for _, pair := range incompatibilityTable {
		a, okA := index[pair.a]
		b, okB := index[pair.b]
		if !okA || !okB {
			continue
		}
		out = append(out, Conflict{
			ID:                  uuid.New().String(),
			Type:                TypeIncompatible,
			Severity:            SeverityHigh,
			CorrectionsInvolved: []string{a.Key, b.Key},
			Description:         fmt.Sprintf("corrections for %s and %s are incompatible: %s", pair.a, pair.b, pair.reason),
			SuggestedResolution: "restructure the document so both requirements are satisfied without shared wording",
			AutoResolvable:      false,
		})
	}
	return out
}

func (r *Resolver) detectRedundant(applied []snippet.Applied) []Conflict {
	var out []Conflict
	for i := 0; i < len(applied); i++ {
		for j := i + 1; j < len(applied); j++ {
			a := strings.TrimSpace(applied[i].TextAdded)
			b := strings.TrimSpace(applied[j].TextAdded)
			if a == "" || b == "" {
				continue
			}
			if a != b && !strings.Contains(a, b) && !strings.Contains(b, a) {
				continue
			}
			out = append(out, Conflict{
				ID:                  uuid.New().String(),
				Type:                TypeRedundant,
				Severity:            SeverityLow,
				CorrectionsInvolved: []string{applied[i].Key, applied[j].Key},
				Description: fmt.Sprintf("corrections %s and %s add duplicate or subsumed text",
					applied[i].Key, applied[j].Key),
				SuggestedResolution: "drop the shorter or duplicate correction",
				AutoResolvable:      true,
			})
		}
	}
	return out
}

// Resolve applies type-specific strategies to auto-resolvable conflicts,
// returning the conflicts that remain and the human-readable actions taken.
// When autoResolve is false, every conflict is returned untouched.
func (r *Resolver) Resolve(conflicts []Conflict, autoResolve bool) ([]Conflict, []string) {
	if !autoResolve {
		return conflicts, nil
	}

	var unresolved []Conflict
	var actions []string
	for _, c := range conflicts {
		if !c.AutoResolvable {
			unresolved = append(unresolved, c)
			continue
		}
		switch c.Type {
		case TypeContradictory:
			actions = append(actions, fmt.Sprintf("flagged %s for confidence comparison: %s",
				strings.Join(c.CorrectionsInvolved, " vs "), c.Description))
		case TypeOverlap:
			actions = append(actions, fmt.Sprintf("kept highest-confidence correction among %s",
				strings.Join(c.CorrectionsInvolved, ", ")))
		case TypeRedundant:
			actions = append(actions, fmt.Sprintf("dropped duplicate correction among %s",
				strings.Join(c.CorrectionsInvolved, ", ")))
		default:
			unresolved = append(unresolved, c)
			continue
		}
		r.logger.Debug("auto-resolved conflict",
			zap.String("conflict_id", c.ID),
			zap.String("type", string(c.Type)),
		)
	}
	return unresolved, actions
}

func containsAny(haystack string, needles []string) bool {
	for _, n := range needles {
		if strings.Contains(haystack, n) {
			return true
		}
	}
	return false
}
