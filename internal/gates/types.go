package gates

import (
	"context"
	"sort"
)

// Status is the outcome of a single gate check.
type Status string

const (
	// StatusPass means the gate's requirement is met.
	StatusPass Status = "PASS"
	// StatusFail means the gate's requirement is not met.
	StatusFail Status = "FAIL"
	// StatusWarning means the gate passed with reservations.
	StatusWarning Status = "WARNING"
	// StatusError means the gate could not be evaluated.
	StatusError Status = "ERROR"
)

// Severity indicates how serious a gate failure is.
type Severity string

const (
	SeverityCritical Severity = "critical"
	SeverityHigh     Severity = "high"
	SeverityMedium   Severity = "medium"
	SeverityLow      Severity = "low"
	SeverityInfo     Severity = "info"
)

// Rank returns the ordinal position of a severity, critical highest.
// Unknown severities rank below info.
func (s Severity) Rank() int {
	switch s {
	case SeverityCritical:
		return 4
	case SeverityHigh:
		return 3
	case SeverityMedium:
		return 2
	case SeverityLow:
		return 1
	case SeverityInfo:
		return 0
	default:
		return -1
	}
}

// Valid reports whether s is one of the known severities.
func (s Severity) Valid() bool {
	return s.Rank() >= 0
}

// GateResult is the verdict for one gate.
type GateResult struct {
	// Status is the gate outcome.
	Status Status `json:"status"`

	// Severity is the seriousness of a failure.
	Severity Severity `json:"severity"`

	// Message describes what the gate found.
	Message string `json:"message"`

	// Suggestion is the evaluator's recommended remediation, if any.
	Suggestion string `json:"suggestion,omitempty"`

	// LegalSource cites the rule the gate enforces.
	LegalSource string `json:"legal_source,omitempty"`
}

// ModuleResult groups gate verdicts for one rule module.
type ModuleResult struct {
	Gates map[string]GateResult `json:"gates"`
}

// ValidationResult maps module IDs to their gate verdicts. It is produced by
// an external Engine and treated as read-only input by the synthesis loop.
type ValidationResult map[string]ModuleResult

// FailingGate identifies one failing gate within a validation result.
type FailingGate struct {
	ModuleID string
	GateID   string
	Result   GateResult
}

// Key returns the canonical module_id:gate_id identifier.
func (f FailingGate) Key() string {
	return f.ModuleID + ":" + f.GateID
}

// FailingGates collects all gates with StatusFail, in deterministic order
// (module ID, then gate ID).
func (v ValidationResult) FailingGates() []FailingGate {
	var failures []FailingGate
	for moduleID, mod := range v {
		for gateID, gr := range mod.Gates {
			if gr.Status == StatusFail {
				failures = append(failures, FailingGate{
					ModuleID: moduleID,
					GateID:   gateID,
					Result:   gr,
				})
			}
		}
	}
	sort.Slice(failures, func(i, j int) bool {
		if failures[i].ModuleID != failures[j].ModuleID {
			return failures[i].ModuleID < failures[j].ModuleID
		}
		return failures[i].GateID < failures[j].GateID
	})
	return failures
}

// FailureCount returns the number of failing gates.
func (v ValidationResult) FailureCount() int {
	count := 0
	for _, mod := range v {
		for _, gr := range mod.Gates {
			if gr.Status == StatusFail {
				count++
			}
		}
	}
	return count
}

// PassingKeys returns the set of module_id:gate_id keys with StatusPass.
func (v ValidationResult) PassingKeys() map[string]bool {
	keys := make(map[string]bool)
	for moduleID, mod := range v {
		for gateID, gr := range mod.Gates {
			if gr.Status == StatusPass {
				keys[moduleID+":"+gateID] = true
			}
		}
	}
	return keys
}

// Lookup returns the verdict for module_id gateID, if present.
func (v ValidationResult) Lookup(moduleID, gateID string) (GateResult, bool) {
	mod, ok := v[moduleID]
	if !ok {
		return GateResult{}, false
	}
	gr, ok := mod.Gates[gateID]
	return gr, ok
}

// Engine evaluates a document against legal rule modules. Implementations
// live outside this repository; the synthesis loop requires only that
// unchanged text yields an unchanged failing-gate set.
type Engine interface {
	Check(ctx context.Context, text, documentType string, modules []string) (ValidationResult, error)
}
