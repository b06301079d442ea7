// Package sanitizer provides the one-shot pre-pass that neutralizes known
// risky phrasing before the synthesis loop runs. Pattern categories are
// compiled once at construction; Sanitize itself has no failure modes.
package sanitizer

import (
	"fmt"
	"regexp"
	"strings"

	"go.uber.org/zap"

	"github.com/fyrsmithlabs/complianced/internal/gates"
)

// Category names a family of risky phrasing patterns.
type Category string

const (
	CategoryAbsoluteClaim    Category = "absolute_claim"
	CategorySuperlative      Category = "superlative"
	CategoryRiskMinimization Category = "risk_minimization"
	CategoryUrgency          Category = "urgency"
	CategoryOvergeneral      Category = "overgeneralization"
	CategoryRegulatoryBypass Category = "regulatory_bypass"
	CategoryDisclosure       Category = "disclosure"
)

// allCategories is the run order when no gate failures steer the pass.
var allCategories = []Category{
	CategoryAbsoluteClaim,
	CategorySuperlative,
	CategoryRiskMinimization,
	CategoryUrgency,
	CategoryOvergeneral,
	CategoryRegulatoryBypass,
	CategoryDisclosure,
}

// categoryKeywords maps gate failure vocabulary to the categories worth
// prioritizing for that failure.
var categoryKeywords = map[Category][]string{
	CategoryAbsoluteClaim:    {"guarantee", "misleading", "promotion", "claim", "balanced"},
	CategorySuperlative:      {"misleading", "promotion", "fair", "clear"},
	CategoryRiskMinimization: {"risk", "warning", "loss", "capital"},
	CategoryUrgency:          {"pressure", "promotion", "misleading"},
	CategoryOvergeneral:      {"scope", "advice", "applicability"},
	CategoryRegulatoryBypass: {"regulat", "authoris", "hmrc", "disclosure"},
	CategoryDisclosure:       {"disclos", "identif", "signpost", "particulars"},
}

type rule struct {
	pattern     *regexp.Regexp
	replacement string
}

// ruleSpecs holds the raw pattern data; compiled in New so a malformed
// pattern is a construction-time error, never a runtime one.
var ruleSpecs = map[Category][]struct{ pattern, replacement string }{
	CategoryAbsoluteClaim: {
		{`(?i)\bguaranteed returns?\b`, "potential returns"},
		{`(?i)\brisk[- ]free\b`, "lower-risk"},
		{`(?i)\bno risk\b`, "reduced risk"},
		{`(?i)\bwill (always )?make you money\b`, "may generate returns"},
		{`(?i)\bcannot lose\b`, "may experience losses"},
	},
	CategorySuperlative: {
		{`(?i)\bthe best\b`, "a leading"},
		{`(?i)\bunbeatable\b`, "competitive"},
		{`(?i)\bperfect\b`, "well-suited"},
		{`(?i)\bworld[- ]class\b`, "established"},
	},
	CategoryRiskMinimization: {
		{`(?i)\bcompletely safe\b`, "subject to risk"},
		{`(?i)\bnothing to worry about\b`, "worth careful consideration"},
		{`(?i)\bminimal downside\b`, "downside risk"},
	},
	CategoryUrgency: {
		{`(?i)\bact now\b`, "consider your options"},
		{`(?i)\blimited time only\b`, "available for a limited period"},
		{`(?i)\bdon'?t miss out\b`, "review the details"},
		{`(?i)\blast chance\b`, "current opportunity"},
	},
	CategoryOvergeneral: {
		{`(?i)\beveryone (should|must|needs to)\b`, "you may wish to"},
		{`(?i)\balways profitable\b`, "historically profitable in some periods"},
		{`(?i)\bworks for all\b`, "may suit some"},
	},
	CategoryRegulatoryBypass: {
		{`(?i)\bno need to (declare|report)\b`, "you may be required to declare"},
		{`(?i)\btax[- ]free loophole\b`, "tax treatment depending on circumstances"},
		{`(?i)\bavoid (the )?regulator\b`, "engage with the regulator"},
	},
	CategoryDisclosure: {
		{`(?i)\bconfidential - do not share with authorities\b`, "confidential, subject to legal disclosure obligations"},
		{`(?i)\boff the record\b`, "provided for your information"},
	},
}

// Action is one merged sanitization replacement.
type Action struct {
	Category    Category `json:"category"`
	Original    string   `json:"original"`
	Replacement string   `json:"replacement"`
	Count       int      `json:"count"`
}

// Result is the outcome of a sanitization pass.
type Result struct {
	Text       string   `json:"text"`
	Actions    []Action `json:"actions"`
	Confidence float64  `json:"confidence"`
}

// Sanitizer applies the pattern categories. Safe for concurrent use; all
// state is immutable after construction.
type Sanitizer struct {
	rules  map[Category][]rule
	logger *zap.Logger
}

// New compiles every pattern category. The only failure mode is a malformed
// pattern, which is a programming error in the rule table.
func New(logger *zap.Logger) (*Sanitizer, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	rules := make(map[Category][]rule, len(ruleSpecs))
	for cat, specs := range ruleSpecs {
		for _, spec := range specs {
			re, err := regexp.Compile(spec.pattern)
			if err != nil {
				return nil, fmt.Errorf("failed to compile %s pattern %q: %w", cat, spec.pattern, err)
			}
			rules[cat] = append(rules[cat], rule{pattern: re, replacement: spec.replacement})
		}
	}
	return &Sanitizer{rules: rules, logger: logger}, nil
}

// Sanitize rewrites risky phrasing in text. When gate failures are supplied,
// only the categories whose keywords match the failures run, in priority
// order; otherwise all categories run. Matches are replaced left to right,
// non-overlapping, and identical (category, original, replacement) actions
// merge with summed counts.
func (s *Sanitizer) Sanitize(text string, failures []gates.FailingGate) Result {
	categories := s.selectCategories(failures)

	type actionKey struct {
		cat                   Category
		original, replacement string
	}
	merged := make(map[actionKey]*Action)
	var order []actionKey

	sanitized := text
	for _, cat := range categories {
		for _, r := range s.rules[cat] {
			matches := r.pattern.FindAllString(sanitized, -1)
			if len(matches) == 0 {
				continue
			}
			sanitized = r.pattern.ReplaceAllString(sanitized, r.replacement)
			for _, m := range matches {
				key := actionKey{cat: cat, original: m, replacement: r.replacement}
				if a, ok := merged[key]; ok {
					a.Count++
					continue
				}
				merged[key] = &Action{
					Category:    cat,
					Original:    m,
					Replacement: r.replacement,
					Count:       1,
				}
				order = append(order, key)
			}
		}
	}

	actions := make([]Action, 0, len(order))
	total := 0
	for _, key := range order {
		actions = append(actions, *merged[key])
		total += merged[key].Count
	}

	if total > 0 {
		s.logger.Debug("sanitization pass complete",
			zap.Int("actions", len(actions)),
			zap.Int("replacements", total),
			zap.Int("categories", len(categories)),
		)
	}

	return Result{
		Text:       sanitized,
		Actions:    actions,
		Confidence: confidence(text, sanitized, total),
	}
}

// selectCategories derives the prioritized category subset from failure
// vocabulary, or returns all categories when no failures steer the pass.
func (s *Sanitizer) selectCategories(failures []gates.FailingGate) []Category {
	if len(failures) == 0 {
		return allCategories
	}

	var haystack strings.Builder
	for _, f := range failures {
		haystack.WriteString(strings.ToLower(f.ModuleID))
		haystack.WriteByte(' ')
		haystack.WriteString(strings.ToLower(f.GateID))
		haystack.WriteByte(' ')
		haystack.WriteString(strings.ToLower(f.Result.Message))
		haystack.WriteByte(' ')
		haystack.WriteString(strings.ToLower(f.Result.Suggestion))
		haystack.WriteByte(' ')
	}
	subject := haystack.String()

	var selected []Category
	for _, cat := range allCategories {
		for _, kw := range categoryKeywords[cat] {
			if strings.Contains(subject, kw) {
				selected = append(selected, cat)
				break
			}
		}
	}
	if len(selected) == 0 {
		return allCategories
	}
	return selected
}

// confidence scores a pass: 0.7 baseline, up to 0.3 for action volume,
// penalized by the fractional length delta between original and sanitized.
func confidence(original, sanitized string, replacements int) float64 {
	score := 0.7
	bonus := float64(replacements) * 0.06
	if bonus > 0.3 {
		bonus = 0.3
	}
	score += bonus

	if len(original) > 0 {
		delta := len(original) - len(sanitized)
		if delta < 0 {
			delta = -delta
		}
		score -= float64(delta) / float64(len(original))
	}

	if score < 0 {
		return 0
	}
	if score > 1 {
		return 1
	}
	return score
}
