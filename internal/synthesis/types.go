package synthesis

import (
	"time"

	"github.com/fyrsmithlabs/complianced/internal/conflict"
	"github.com/fyrsmithlabs/complianced/internal/gates"
	"github.com/fyrsmithlabs/complianced/internal/rollback"
	"github.com/fyrsmithlabs/complianced/internal/sanitizer"
	"github.com/fyrsmithlabs/complianced/internal/snippet"
)

// Outcome is the terminal state of a synthesis session.
type Outcome string

const (
	// OutcomeSuccess means zero failing gates remain.
	OutcomeSuccess Outcome = "success"
	// OutcomeNeedsReview means no automated progress is possible; manual
	// remediation is required.
	OutcomeNeedsReview Outcome = "needs_review"
	// OutcomeStagnated means the loop stopped making progress before the
	// retry limit.
	OutcomeStagnated Outcome = "stagnated"
	// OutcomeRetriesExhausted means the retry limit was reached with
	// failures outstanding.
	OutcomeRetriesExhausted Outcome = "max_retries_exhausted"
)

// Config tunes a synthesis service.
type Config struct {
	// MaxRetries bounds the number of apply/re-validate iterations
	// (default 5).
	MaxRetries int

	// MaxHistory caps the rollback snapshot history per session
	// (default rollback.DefaultMaxHistory).
	MaxHistory int

	// ScoreConfidence enables per-application confidence scoring.
	ScoreConfidence bool

	// DetectConflicts enables post-session conflict analysis.
	DetectConflicts bool

	// AutoResolveConflicts applies type-specific strategies to
	// auto-resolvable conflicts after detection.
	AutoResolveConflicts bool

	// MaxManualActions caps the deduplicated suggested-action list in
	// review reports (default 10).
	MaxManualActions int
}

// DefaultConfig returns sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		MaxRetries:           5,
		MaxHistory:           rollback.DefaultMaxHistory,
		ScoreConfidence:      true,
		DetectConflicts:      true,
		AutoResolveConflicts: false,
		MaxManualActions:     10,
	}
}

// Request carries one synthesis session's inputs.
type Request struct {
	// Text is the document to correct.
	Text string

	// Validation is the initial verdict from the external engine.
	Validation gates.ValidationResult

	// Context supplies [KEY] placeholder values for snippet templates.
	Context map[string]string

	// Modules lists the rule modules to validate against.
	Modules []string

	// DocumentType steers context-relevance scoring and sanitization
	// (financial, privacy, tax, nda, employment).
	DocumentType string
}

// ReviewItem describes one outstanding failure in a review report.
type ReviewItem struct {
	Module     string         `json:"module"`
	Gate       string         `json:"gate"`
	Severity   gates.Severity `json:"severity"`
	Message    string         `json:"message"`
	Suggestion string         `json:"suggestion,omitempty"`
}

// ReviewReport is produced on the needs-review and retries-exhausted paths.
type ReviewReport struct {
	Items []ReviewItem `json:"items"`

	// SuggestedActions is a deduplicated list of manual remediations,
	// formatted "{module}.{gate}: {suggestion or message}".
	SuggestedActions []string `json:"suggested_actions"`
}

// Result is the outcome of one synthesis session.
type Result struct {
	SynthesizedText string                 `json:"synthesized_text"`
	OriginalText    string                 `json:"original_text"`
	Iterations      int                    `json:"iterations"`
	SnippetsApplied []snippet.Applied      `json:"snippets_applied"`
	FinalValidation gates.ValidationResult `json:"final_validation"`
	Success         bool                   `json:"success"`
	Outcome         Outcome                `json:"outcome"`
	Reason          string                 `json:"reason"`
	Sanitization    sanitizer.Result       `json:"sanitization"`

	NeedsReview bool          `json:"needs_review,omitempty"`
	Review      *ReviewReport `json:"review,omitempty"`

	Conflicts         []conflict.Conflict `json:"conflicts,omitempty"`
	ResolutionActions []string            `json:"resolution_actions,omitempty"`

	Duration time.Duration `json:"-"`

	// History is the session's snapshot history, for caller-driven rollback.
	History *rollback.Manager `json:"-"`
}
