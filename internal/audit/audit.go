// Package audit defines the best-effort audit trail consumed by the
// synthesis engine. Audit failures are never surfaced to synthesis callers;
// implementations swallow errors and degrade to a fallback log.
package audit

import (
	"context"
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

// SynthesisEvent is the structured record emitted once per synthesis session.
type SynthesisEvent struct {
	Operation       string            `json:"operation"`
	Success         bool              `json:"success"`
	Iterations      int               `json:"iterations"`
	SnippetsApplied int               `json:"snippets_applied"`
	UnresolvedGates []string          `json:"unresolved_gates,omitempty"`
	Modules         []string          `json:"modules,omitempty"`
	DurationMS      int64             `json:"duration_ms"`
	Metadata        map[string]string `json:"metadata,omitempty"`
}

// Logger receives synthesis audit events. Implementations must be
// best-effort: an error return is advisory and callers ignore it.
type Logger interface {
	LogSynthesis(ctx context.Context, event SynthesisEvent) error
}

// ZapLogger writes audit events through a structured logger, capped by a
// token bucket so a runaway caller cannot flood the audit sink.
type ZapLogger struct {
	logger   *zap.Logger
	fallback *zap.Logger
	limiter  *rate.Limiter
}

// NewZapLogger creates an audit logger. Events above the rate cap are routed
// to the fallback logger at debug level rather than dropped silently.
func NewZapLogger(logger *zap.Logger, eventsPerSecond float64) *ZapLogger {
	if logger == nil {
		logger = zap.NewNop()
	}
	if eventsPerSecond <= 0 {
		eventsPerSecond = 50
	}
	return &ZapLogger{
		logger:   logger.Named("audit"),
		fallback: logger.Named("audit.fallback"),
		limiter:  rate.NewLimiter(rate.Limit(eventsPerSecond), int(eventsPerSecond)),
	}
}

// LogSynthesis records one synthesis event.
func (l *ZapLogger) LogSynthesis(_ context.Context, event SynthesisEvent) error {
	fields := []zap.Field{
		zap.String("operation", event.Operation),
		zap.Bool("success", event.Success),
		zap.Int("iterations", event.Iterations),
		zap.Int("snippets_applied", event.SnippetsApplied),
		zap.Strings("unresolved_gates", event.UnresolvedGates),
		zap.Strings("modules", event.Modules),
		zap.Int64("duration_ms", event.DurationMS),
		zap.Time("recorded_at", time.Now()),
	}
	if !l.limiter.Allow() {
		l.fallback.Debug("audit event over rate cap", fields...)
		return nil
	}
	l.logger.Info("synthesis", fields...)
	return nil
}

// Nop is a Logger that discards every event. Useful in tests and as the
// default when no audit sink is configured.
type Nop struct{}

// LogSynthesis discards the event.
func (Nop) LogSynthesis(context.Context, SynthesisEvent) error { return nil }
