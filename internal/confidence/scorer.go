// Package confidence computes multi-factor confidence scores for
// (gate, snippet) pairings. The scorer accumulates historical success
// counters across sessions for the lifetime of the process, so one shared
// instance should be injected wherever scoring is needed.
package confidence

import (
	"regexp"
	"strings"
	"sync"

	"go.uber.org/zap"

	"github.com/fyrsmithlabs/complianced/internal/gates"
)

// Factor weights. They sum to 1.0 so the weighted score stays in [0,1]
// whenever each factor does.
const (
	weightPattern     = 0.25
	weightSeverity    = 0.20
	weightHistorical  = 0.20
	weightContext     = 0.15
	weightDomain      = 0.10
	weightSpecificity = 0.10
)

// untestedDefault is the historical-success score for snippets with no
// recorded applications; small samples blend linearly toward it.
const untestedDefault = 0.7

// Factors holds the six independent confidence scalars, each in [0,1].
type Factors struct {
	PatternMatch       float64 `json:"pattern_match_strength"`
	SeverityAlignment  float64 `json:"severity_alignment"`
	HistoricalSuccess  float64 `json:"historical_success"`
	ContextRelevance   float64 `json:"context_relevance"`
	DomainExpertise    float64 `json:"domain_expertise"`
	SnippetSpecificity float64 `json:"snippet_specificity"`
}

// Weighted combines the factors with the fixed weights, clamped to [0,1].
func (f Factors) Weighted() float64 {
	score := f.PatternMatch*weightPattern +
		f.SeverityAlignment*weightSeverity +
		f.HistoricalSuccess*weightHistorical +
		f.ContextRelevance*weightContext +
		f.DomainExpertise*weightDomain +
		f.SnippetSpecificity*weightSpecificity
	return clamp(score)
}

// ScoreRequest carries everything the scorer needs for one pairing.
type ScoreRequest struct {
	GateID          string
	SnippetKey      string
	GateSeverity    gates.Severity
	SnippetSeverity gates.Severity
	Context         map[string]string
	SnippetText     string
	GateMessage     string
}

type record struct {
	applications int
	successes    int
}

// Scorer computes Factors and tracks per-snippet-key success history.
// Safe for concurrent use.
type Scorer struct {
	mu      sync.Mutex
	history map[string]*record
	logger  *zap.Logger
}

// NewScorer creates a scorer with empty history.
func NewScorer(logger *zap.Logger) *Scorer {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Scorer{
		history: make(map[string]*record),
		logger:  logger,
	}
}

// Score computes the six factors for a (gate, snippet) pairing. Pure except
// for the historical factor, which reads the process-lifetime counters.
func (s *Scorer) Score(req ScoreRequest) Factors {
	return Factors{
		PatternMatch:       patternMatchStrength(req.GateID, req.SnippetKey, req.GateMessage, req.SnippetText),
		SeverityAlignment:  severityAlignment(req.GateSeverity, req.SnippetSeverity),
		HistoricalSuccess:  s.historicalSuccess(req.SnippetKey),
		ContextRelevance:   contextRelevance(req.GateID, req.SnippetKey, req.Context),
		DomainExpertise:    domainExpertise(req.GateID, req.SnippetKey, req.Context),
		SnippetSpecificity: snippetSpecificity(req.GateID, req.SnippetText),
	}
}

// RecordApplication updates the historical counters for a snippet key.
func (s *Scorer) RecordApplication(snippetKey string, success bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := s.history[snippetKey]
	if !ok {
		rec = &record{}
		s.history[snippetKey] = rec
	}
	rec.applications++
	if success {
		rec.successes++
	}
	s.logger.Debug("recorded snippet application",
		zap.String("snippet_key", snippetKey),
		zap.Bool("success", success),
		zap.Int("applications", rec.applications),
	)
}

// Applications returns the recorded application count for a snippet key.
func (s *Scorer) Applications(snippetKey string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	if rec, ok := s.history[snippetKey]; ok {
		return rec.applications
	}
	return 0
}

func (s *Scorer) historicalSuccess(snippetKey string) float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := s.history[snippetKey]
	if !ok || rec.applications == 0 {
		return untestedDefault
	}
	rate := float64(rec.successes) / float64(rec.applications)
	if rec.applications < 5 {
		// Small samples carry little signal; blend toward the default.
		blend := float64(rec.applications) / 5.0
		return rate*blend + untestedDefault*(1-blend)
	}
	return rate
}

// patternMatchStrength measures lexical agreement between the gate and the
// snippet: term overlap, gate-term substring bonus, and failure-message
// vocabulary appearing in the snippet text.
func patternMatchStrength(gateID, snippetKey, gateMessage, snippetText string) float64 {
	gateTerms := splitTerms(gateID)
	keyTerms := splitTerms(snippetKey)
	if len(gateTerms) == 0 || len(keyTerms) == 0 {
		return 0
	}

	keySet := make(map[string]bool, len(keyTerms))
	for _, t := range keyTerms {
		keySet[t] = true
	}
	overlap := 0
	for _, t := range gateTerms {
		if keySet[t] {
			overlap++
		}
	}
	score := float64(overlap) / float64(len(gateTerms))

	lowerKey := strings.ToLower(snippetKey)
	for _, t := range gateTerms {
		if len(t) > 3 && strings.Contains(lowerKey, t) {
			score += 0.3
			break
		}
	}

	lowerText := strings.ToLower(snippetText)
	for _, t := range splitTerms(gateMessage) {
		if len(t) >= 4 && strings.Contains(lowerText, t) {
			score += 0.1
			break
		}
	}

	return clamp(score)
}

func severityAlignment(gateSev, snippetSev gates.Severity) float64 {
	if gateSev == snippetSev {
		return 1.0
	}
	a, b := gateSev.Rank(), snippetSev.Rank()
	if a < 0 || b < 0 {
		return 0.3
	}
	dist := a - b
	if dist < 0 {
		dist = -dist
	}
	switch dist {
	case 1:
		return 0.8
	case 2:
		return 0.5
	default:
		return 0.3
	}
}

// documentTypeKeywords maps a context document_type to the vocabulary that
// marks a gate or snippet as relevant to it.
var documentTypeKeywords = map[string][]string{
	"financial":  {"fca", "financial", "investment", "promotion"},
	"privacy":    {"gdpr", "data", "privacy", "consent"},
	"tax":        {"tax", "hmrc"},
	"nda":        {"nda", "confidential", "disclosure"},
	"employment": {"employment", "hr", "grievance", "notice"},
}

func contextRelevance(gateID, snippetKey string, context map[string]string) float64 {
	score := 0.5
	subject := strings.ToLower(gateID + " " + snippetKey)

	if moduleID := context["module_id"]; moduleID != "" {
		if strings.Contains(subject, strings.ToLower(moduleID)) {
			score += 0.3
		}
	}

	if docType := context["document_type"]; docType != "" {
		for _, kw := range documentTypeKeywords[strings.ToLower(docType)] {
			if strings.Contains(subject, kw) {
				score += 0.2
				break
			}
		}
	}

	return clamp(score)
}

// moduleExpertise reflects how well-curated each module's snippet set is.
var moduleExpertise = map[string]float64{
	"fca_uk":      0.9,
	"gdpr_uk":     0.9,
	"tax_uk":      0.85,
	"nda_uk":      0.8,
	"hr_scottish": 0.8,
}

// moduleHints infers a module from gate vocabulary when none is explicit.
var moduleHints = []struct {
	keyword string
	module  string
}{
	{"fca", "fca_uk"},
	{"fos", "fca_uk"},
	{"gdpr", "gdpr_uk"},
	{"consent", "gdpr_uk"},
	{"tax", "tax_uk"},
	{"hmrc", "tax_uk"},
	{"nda", "nda_uk"},
	{"confidential", "nda_uk"},
	{"employment", "hr_scottish"},
	{"grievance", "hr_scottish"},
}

func domainExpertise(gateID, snippetKey string, context map[string]string) float64 {
	moduleID := context["module_id"]
	if moduleID == "" {
		if idx := strings.Index(snippetKey, ":"); idx > 0 {
			moduleID = snippetKey[:idx]
		}
	}
	if _, ok := moduleExpertise[moduleID]; !ok {
		subject := strings.ToLower(gateID)
		for _, hint := range moduleHints {
			if strings.Contains(subject, hint.keyword) {
				moduleID = hint.module
				break
			}
		}
	}
	if score, ok := moduleExpertise[moduleID]; ok {
		return score
	}
	return 0.6
}

// specificityMarkers are textual signals that a snippet is concrete rather
// than boilerplate.
var specificityMarkers = []string{
	"[", // unexpanded placeholder
	"must include",
	"shall",
	"act 19",
	"act 20",
	"regulation",
	"article",
	"www.",
	"section",
}

func snippetSpecificity(gateID, snippetText string) float64 {
	if snippetText == "" {
		return 0
	}
	lower := strings.ToLower(snippetText)
	score := 0.0

	lengthScore := float64(len(snippetText)) / 500.0
	if lengthScore > 0.3 {
		lengthScore = 0.3
	}
	score += lengthScore

	markerScore := 0.0
	for _, m := range specificityMarkers {
		if strings.Contains(lower, m) {
			markerScore += 0.1
		}
	}
	if markerScore > 0.4 {
		markerScore = 0.4
	}
	score += markerScore

	if strings.Contains(snippetText, "\n-") || strings.Contains(snippetText, "\n*") || strings.Contains(snippetText, "•") {
		score += 0.2
	}

	for _, t := range splitTerms(gateID) {
		if len(t) >= 5 && strings.Contains(lower, t) {
			score += 0.1
			break
		}
	}

	return clamp(score)
}

var termSplitter = regexp.MustCompile(`[^a-z0-9]+`)

func splitTerms(s string) []string {
	parts := termSplitter.Split(strings.ToLower(s), -1)
	out := parts[:0]
	for _, p := range parts {
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}

func clamp(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
