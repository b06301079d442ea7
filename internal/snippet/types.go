package snippet

import (
	"github.com/fyrsmithlabs/complianced/internal/gates"
)

// InsertionPoint says where in the document a snippet is applied.
type InsertionPoint string

const (
	// InsertStart prepends the snippet to the document.
	InsertStart InsertionPoint = "start"
	// InsertEnd appends the snippet to the document.
	InsertEnd InsertionPoint = "end"
	// InsertSection upserts the snippet under a named section header.
	InsertSection InsertionPoint = "section"
)

// Valid reports whether p is a known insertion point.
func (p InsertionPoint) Valid() bool {
	switch p {
	case InsertStart, InsertEnd, InsertSection:
		return true
	}
	return false
}

// Snippet is a parameterized template fix bound to one (module, gate) pair.
// Immutable once registered.
type Snippet struct {
	GateID         string         `json:"gate_id"`
	ModuleID       string         `json:"module_id"`
	Severity       gates.Severity `json:"severity"`
	Template       string         `json:"template"`
	InsertionPoint InsertionPoint `json:"insertion_point"`
	Priority       int            `json:"priority"`
	SectionHeader  string         `json:"section_header,omitempty"`

	// Generic marks snippets synthesized from the taxonomy or gate metadata
	// rather than hand-authored; scorers treat these as lower-confidence.
	Generic bool `json:"generic,omitempty"`
}

// Key returns the module_id:gate_id catalog key.
func (s Snippet) Key() string {
	return s.ModuleID + ":" + s.GateID
}

// Applied records one successful snippet application. Created once, never
// mutated; uniqueness of Key within a session is enforced by the orchestrator.
type Applied struct {
	// Key is module_id:gate_id:insertion_point.
	Key string `json:"snippet_key"`

	GateID         string         `json:"gate_id"`
	ModuleID       string         `json:"module_id"`
	Severity       gates.Severity `json:"severity"`
	InsertionPoint InsertionPoint `json:"insertion_point"`

	// TextAdded is the formatted text inserted into the document.
	TextAdded string `json:"text_added"`

	// Iteration is the synthesis iteration that applied this snippet.
	Iteration int `json:"iteration"`

	// Order is the application sequence number within the session.
	Order int `json:"order"`

	// Confidence is the scored confidence for this application, when scoring
	// was requested.
	Confidence float64 `json:"confidence"`
}

// AppliedKey builds the session-unique key for a snippet application.
func AppliedKey(s Snippet) string {
	return s.ModuleID + ":" + s.GateID + ":" + string(s.InsertionPoint)
}

// DefaultPriority returns the catalog priority implied by a severity when the
// data files do not override it.
func DefaultPriority(sev gates.Severity) int {
	switch sev {
	case gates.SeverityCritical:
		return 100
	case gates.SeverityHigh:
		return 90
	case gates.SeverityMedium:
		return 80
	default:
		return 70
	}
}
