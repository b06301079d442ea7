package synthesis

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/fyrsmithlabs/complianced/internal/audit"
	"github.com/fyrsmithlabs/complianced/internal/confidence"
	"github.com/fyrsmithlabs/complianced/internal/conflict"
	"github.com/fyrsmithlabs/complianced/internal/gates"
	"github.com/fyrsmithlabs/complianced/internal/rollback"
	"github.com/fyrsmithlabs/complianced/internal/sanitizer"
	"github.com/fyrsmithlabs/complianced/internal/snippet"
)

const instrumentationName = "github.com/fyrsmithlabs/complianced/internal/synthesis"

// Service runs synthesis sessions.
type Service interface {
	// Synthesize drives one document through the correction loop.
	Synthesize(ctx context.Context, req *Request) (*Result, error)
}

// service implements the Service interface.
type service struct {
	config    *Config
	engine    gates.Engine
	catalog   *snippet.Catalog
	sanitizer *sanitizer.Sanitizer
	scorer    *confidence.Scorer
	resolver  *conflict.Resolver
	audit     audit.Logger
	logger    *zap.Logger

	// Telemetry
	tracer          trace.Tracer
	meter           metric.Meter
	sessionCounter  metric.Int64Counter
	snippetCounter  metric.Int64Counter
	conflictCounter metric.Int64Counter
	iterationHist   metric.Int64Histogram
}

// NewService creates a synthesis service. The engine and catalog are
// required; the scorer should be the process-wide instance so historical
// success accumulates across sessions.
func NewService(
	cfg *Config,
	engine gates.Engine,
	catalog *snippet.Catalog,
	san *sanitizer.Sanitizer,
	scorer *confidence.Scorer,
	resolver *conflict.Resolver,
	auditLogger audit.Logger,
	logger *zap.Logger,
) (Service, error) {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	if engine == nil {
		return nil, errors.New("validation engine is required")
	}
	if catalog == nil {
		return nil, errors.New("snippet catalog is required")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if san == nil {
		var err error
		san, err = sanitizer.New(logger)
		if err != nil {
			return nil, fmt.Errorf("failed to build sanitizer: %w", err)
		}
	}
	if scorer == nil {
		scorer = confidence.NewScorer(logger)
	}
	if resolver == nil {
		resolver = conflict.NewResolver(logger)
	}
	if auditLogger == nil {
		auditLogger = audit.Nop{}
	}

	s := &service{
		config:    cfg,
		engine:    engine,
		catalog:   catalog,
		sanitizer: san,
		scorer:    scorer,
		resolver:  resolver,
		audit:     auditLogger,
		logger:    logger,
		tracer:    otel.Tracer(instrumentationName),
		meter:     otel.Meter(instrumentationName),
	}
	s.initMetrics()
	return s, nil
}

// initMetrics initializes OpenTelemetry metrics.
func (s *service) initMetrics() {
	var err error

	s.sessionCounter, err = s.meter.Int64Counter(
		"complianced.synthesis.sessions_total",
		metric.WithDescription("Total number of synthesis sessions"),
		metric.WithUnit("{session}"),
	)
	if err != nil {
		s.logger.Warn("failed to create session counter", zap.Error(err))
	}

	s.snippetCounter, err = s.meter.Int64Counter(
		"complianced.synthesis.snippets_applied_total",
		metric.WithDescription("Total number of snippets applied"),
		metric.WithUnit("{snippet}"),
	)
	if err != nil {
		s.logger.Warn("failed to create snippet counter", zap.Error(err))
	}

	s.conflictCounter, err = s.meter.Int64Counter(
		"complianced.synthesis.conflicts_detected_total",
		metric.WithDescription("Total number of conflicts detected"),
		metric.WithUnit("{conflict}"),
	)
	if err != nil {
		s.logger.Warn("failed to create conflict counter", zap.Error(err))
	}

	s.iterationHist, err = s.meter.Int64Histogram(
		"complianced.synthesis.iterations",
		metric.WithDescription("Iterations per synthesis session"),
		metric.WithUnit("{iteration}"),
	)
	if err != nil {
		s.logger.Warn("failed to create iteration histogram", zap.Error(err))
	}
}

// session is the mutable state of one Synthesize call.
type session struct {
	text        string
	validation  gates.ValidationResult
	applied     []snippet.Applied
	appliedKeys map[string]bool
	history     *rollback.Manager
	iterations  int
}

// Synthesize drives one document through the correction loop. It returns an
// error only for a nil request; all operational failures are reported on the
// Result.
func (s *service) Synthesize(ctx context.Context, req *Request) (*Result, error) {
	if req == nil {
		return nil, errors.New("request is required")
	}

	ctx, span := s.tracer.Start(ctx, "synthesis.synthesize")
	defer span.End()
	span.SetAttributes(
		attribute.String("document_type", req.DocumentType),
		attribute.Int("modules", len(req.Modules)),
		attribute.Int("initial_failures", req.Validation.FailureCount()),
	)

	start := time.Now()
	result := s.run(ctx, req)
	result.Duration = time.Since(start)

	span.SetAttributes(
		attribute.Bool("success", result.Success),
		attribute.Int("iterations", result.Iterations),
		attribute.Int("snippets_applied", len(result.SnippetsApplied)),
	)
	if s.sessionCounter != nil {
		s.sessionCounter.Add(ctx, 1, metric.WithAttributes(
			attribute.String("outcome", string(result.Outcome)),
		))
	}
	if s.iterationHist != nil {
		s.iterationHist.Record(ctx, int64(result.Iterations))
	}

	s.emitAudit(ctx, req, result)
	return result, nil
}

func (s *service) run(ctx context.Context, req *Request) *Result {
	result := &Result{
		OriginalText:    req.Text,
		SynthesizedText: req.Text,
		FinalValidation: req.Validation,
	}

	initialFailures := req.Validation.FailingGates()
	if len(initialFailures) == 0 {
		result.Success = true
		result.Outcome = OutcomeSuccess
		result.Reason = "no failing gates in initial validation"
		return result
	}

	sess := &session{
		text:        req.Text,
		validation:  req.Validation,
		appliedKeys: make(map[string]bool),
		history:     rollback.NewManager(s.config.MaxHistory, s.logger),
	}
	result.History = sess.history

	// Sanitize exactly once, before the loop.
	result.Sanitization = s.sanitizer.Sanitize(sess.text, initialFailures)
	sess.text = result.Sanitization.Text
	sess.history.SaveSnapshot(sess.text, nil, sess.validation, map[string]string{"stage": "sanitized"})

	prevCount := sess.validation.FailureCount()
	appliedLastIteration := -1

	for {
		count := sess.validation.FailureCount()

		// Termination checks, in priority order.
		if count == 0 {
			result.Success = true
			result.Outcome = OutcomeSuccess
			result.Reason = fmt.Sprintf("all gates passed after %d iterations", sess.iterations)
			break
		}

		failures := sess.validation.FailingGates()
		if !s.anyResolvable(failures) {
			result.Outcome = OutcomeNeedsReview
			result.NeedsReview = true
			result.Reason = "no snippets available for the remaining failing gates"
			result.Review = s.buildReview(failures)
			break
		}

		candidates := s.selectCandidates(failures, sess.appliedKeys)
		if len(candidates) == 0 && count >= prevCount && appliedLastIteration != -1 {
			// The stagnation guard compares failure counts, not failure
			// sets; a validator that fixes one gate while breaking another
			// in the same iteration reads as converged here.
			result.Outcome = OutcomeStagnated
			result.Reason = fmt.Sprintf("stagnation: %d failures remain and no further snippets can be applied", count)
			result.NeedsReview = true
			result.Review = s.buildReview(failures)
			break
		}

		if sess.iterations >= s.config.MaxRetries {
			result.Outcome = OutcomeRetriesExhausted
			result.NeedsReview = true
			result.Reason = fmt.Sprintf("retry limit of %d reached with %d failures outstanding", s.config.MaxRetries, count)
			result.Review = s.buildReview(failures)
			break
		}

		sess.iterations++
		appliedNow := s.applyIteration(ctx, sess, candidates, req)

		validation, err := s.engine.Check(ctx, sess.text, req.DocumentType, req.Modules)
		if err != nil {
			s.logger.Warn("validation engine call failed",
				zap.Int("iteration", sess.iterations),
				zap.Error(err),
			)
			result.Outcome = OutcomeNeedsReview
			result.NeedsReview = true
			result.Reason = "validation engine unavailable: " + err.Error()
			result.Review = s.buildReview(failures)
			break
		}
		sess.validation = validation
		sess.history.SaveSnapshot(sess.text, sess.applied, sess.validation, map[string]string{
			"stage": fmt.Sprintf("iteration_%d", sess.iterations),
		})

		newCount := sess.validation.FailureCount()
		if appliedNow == 0 && newCount >= count {
			result.Outcome = OutcomeStagnated
			result.NeedsReview = true
			result.Reason = fmt.Sprintf("stagnation: failure count did not improve (%d -> %d) and no snippets were applied", count, newCount)
			result.Review = s.buildReview(sess.validation.FailingGates())
			break
		}
		prevCount = count
		appliedLastIteration = appliedNow
	}

	result.SynthesizedText = sess.text
	result.Iterations = sess.iterations
	result.SnippetsApplied = sess.applied
	result.FinalValidation = sess.validation
	if sess.validation == nil {
		result.FinalValidation = req.Validation
	}

	s.recordOutcomes(result)
	s.analyzeConflicts(ctx, req, result)

	s.logger.Info("synthesis session complete",
		zap.String("outcome", string(result.Outcome)),
		zap.Bool("success", result.Success),
		zap.Int("iterations", result.Iterations),
		zap.Int("snippets_applied", len(result.SnippetsApplied)),
	)
	return result
}

// anyResolvable reports whether at least one failing gate has a catalog
// snippet at all, applied or not.
func (s *service) anyResolvable(failures []gates.FailingGate) bool {
	for _, f := range failures {
		if _, ok := s.catalog.Lookup(f.ModuleID, f.GateID); ok {
			return true
		}
	}
	return false
}

// selectCandidates resolves the failing gates to snippets whose application
// key has not been used this session, preserving catalog priority order.
func (s *service) selectCandidates(failures []gates.FailingGate, appliedKeys map[string]bool) []snippet.Snippet {
	partial := make(gates.ValidationResult)
	for _, f := range failures {
		mod, ok := partial[f.ModuleID]
		if !ok {
			mod = gates.ModuleResult{Gates: make(map[string]gates.GateResult)}
			partial[f.ModuleID] = mod
		}
		mod.Gates[f.GateID] = f.Result
	}

	var candidates []snippet.Snippet
	for _, sn := range s.catalog.ForFailures(partial) {
		if appliedKeys[snippet.AppliedKey(sn)] {
			continue
		}
		candidates = append(candidates, sn)
	}
	return candidates
}

// applyIteration mutates the session text with the candidate snippets in the
// fixed insertion ordering: start snippets prepended first (highest priority
// ending up at the top), then section upserts, then end appends. Snippets
// whose formatted text is already present are skipped, not re-applied.
func (s *service) applyIteration(ctx context.Context, sess *session, candidates []snippet.Snippet, req *Request) int {
	var starts, sections, ends []snippet.Snippet
	for _, sn := range candidates {
		switch sn.InsertionPoint {
		case snippet.InsertStart:
			starts = append(starts, sn)
		case snippet.InsertSection:
			sections = append(sections, sn)
		default:
			ends = append(ends, sn)
		}
	}

	applied := 0

	// Prepend in ascending priority so the highest-priority snippet lands
	// first in the document.
	sort.SliceStable(starts, func(i, j int) bool { return starts[i].Priority < starts[j].Priority })
	for _, sn := range starts {
		if s.applyOne(ctx, sess, sn, req, func(text, body string) string {
			return prependBlock(text, body)
		}) {
			applied++
		}
	}

	for _, sn := range sections {
		header := sn.SectionHeader
		if s.applyOne(ctx, sess, sn, req, func(text, body string) string {
			return upsertSection(text, header, body)
		}) {
			applied++
		}
	}

	for _, sn := range ends {
		if s.applyOne(ctx, sess, sn, req, func(text, body string) string {
			return appendBlock(text, body)
		}) {
			applied++
		}
	}

	if s.snippetCounter != nil && applied > 0 {
		s.snippetCounter.Add(ctx, int64(applied))
	}
	return applied
}

func (s *service) applyOne(ctx context.Context, sess *session, sn snippet.Snippet, req *Request, insert func(text, body string) string) bool {
	body := snippet.Format(sn, req.Context)
	if strings.TrimSpace(body) == "" {
		s.logger.Warn("snippet formatted to empty text, skipping",
			zap.String("snippet_key", sn.Key()),
		)
		return false
	}
	if strings.Contains(sess.text, strings.TrimSpace(body)) {
		s.logger.Debug("snippet text already present, skipping",
			zap.String("snippet_key", sn.Key()),
		)
		return false
	}

	score := 0.0
	if s.config.ScoreConfidence {
		gateResult, _ := sess.validation.Lookup(sn.ModuleID, sn.GateID)
		factors := s.scorer.Score(confidence.ScoreRequest{
			GateID:          sn.GateID,
			SnippetKey:      sn.Key(),
			GateSeverity:    gateResult.Severity,
			SnippetSeverity: sn.Severity,
			Context:         s.scoringContext(req, sn),
			SnippetText:     body,
			GateMessage:     gateResult.Message,
		})
		score = factors.Weighted()
	}

	sess.text = insert(sess.text, body)
	record := snippet.Applied{
		Key:            snippet.AppliedKey(sn),
		GateID:         sn.GateID,
		ModuleID:       sn.ModuleID,
		Severity:       sn.Severity,
		InsertionPoint: sn.InsertionPoint,
		TextAdded:      strings.TrimSpace(body),
		Iteration:      sess.iterations,
		Order:          len(sess.applied) + 1,
		Confidence:     score,
	}
	sess.applied = append(sess.applied, record)
	sess.appliedKeys[record.Key] = true
	return true
}

func (s *service) scoringContext(req *Request, sn snippet.Snippet) map[string]string {
	merged := make(map[string]string, len(req.Context)+2)
	for k, v := range req.Context {
		merged[k] = v
	}
	merged["module_id"] = sn.ModuleID
	if req.DocumentType != "" {
		merged["document_type"] = req.DocumentType
	}
	return merged
}

// recordOutcomes feeds the final validation back into the scorer's
// historical counters: an application succeeded if its gate no longer fails.
func (s *service) recordOutcomes(result *Result) {
	if !s.config.ScoreConfidence {
		return
	}
	for _, a := range result.SnippetsApplied {
		gr, ok := result.FinalValidation.Lookup(a.ModuleID, a.GateID)
		success := !ok || gr.Status != gates.StatusFail
		s.scorer.RecordApplication(a.Key, success)
	}
}

func (s *service) analyzeConflicts(ctx context.Context, req *Request, result *Result) {
	if !s.config.DetectConflicts || len(result.SnippetsApplied) == 0 {
		return
	}
	conflicts := s.resolver.Detect(result.SnippetsApplied, req.Validation, result.FinalValidation, result.SynthesizedText)
	if len(conflicts) == 0 {
		return
	}
	if s.conflictCounter != nil {
		s.conflictCounter.Add(ctx, int64(len(conflicts)))
	}
	result.Conflicts, result.ResolutionActions = s.resolver.Resolve(conflicts, s.config.AutoResolveConflicts)
}

// buildReview produces the manual-remediation report for terminal
// needs-review and retries-exhausted states.
func (s *service) buildReview(failures []gates.FailingGate) *ReviewReport {
	report := &ReviewReport{}
	seen := make(map[string]bool)
	maxActions := s.config.MaxManualActions
	if maxActions <= 0 {
		maxActions = 10
	}

	for _, f := range failures {
		report.Items = append(report.Items, ReviewItem{
			Module:     f.ModuleID,
			Gate:       f.GateID,
			Severity:   f.Result.Severity,
			Message:    f.Result.Message,
			Suggestion: f.Result.Suggestion,
		})

		remedy := f.Result.Suggestion
		if remedy == "" {
			remedy = f.Result.Message
		}
		action := fmt.Sprintf("%s.%s: %s", f.ModuleID, f.GateID, remedy)
		if seen[action] || len(report.SuggestedActions) >= maxActions {
			continue
		}
		seen[action] = true
		report.SuggestedActions = append(report.SuggestedActions, action)
	}
	return report
}

// emitAudit sends the session event to the audit trail. Best-effort: any
// failure is swallowed and routed to the fallback log.
func (s *service) emitAudit(ctx context.Context, req *Request, result *Result) {
	defer func() {
		if r := recover(); r != nil {
			s.logger.Warn("audit logger panicked", zap.Any("panic", r))
		}
	}()

	var unresolved []string
	for _, f := range result.FinalValidation.FailingGates() {
		unresolved = append(unresolved, f.Key())
	}

	err := s.audit.LogSynthesis(ctx, audit.SynthesisEvent{
		Operation:       "synthesize",
		Success:         result.Success,
		Iterations:      result.Iterations,
		SnippetsApplied: len(result.SnippetsApplied),
		UnresolvedGates: unresolved,
		Modules:         req.Modules,
		DurationMS:      result.Duration.Milliseconds(),
		Metadata:        map[string]string{"document_type": req.DocumentType},
	})
	if err != nil {
		s.logger.Warn("audit logging failed", zap.Error(err))
	}
}
