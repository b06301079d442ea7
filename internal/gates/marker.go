package gates

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"
)

// MarkerEngine is a heuristic Engine for local development and testing. A
// gate passes when the document contains that gate's marker phrase,
// case-insensitively. Production deployments plug in an external evaluation
// service instead.
type MarkerEngine struct {
	registry *Registry
	markers  map[string]string
	logger   *zap.Logger
}

// NewMarkerEngine creates a marker engine. markers maps module_id:gate_id
// keys to the literal phrase whose presence satisfies the gate; gates without
// a marker always fail.
func NewMarkerEngine(registry *Registry, markers map[string]string, logger *zap.Logger) (*MarkerEngine, error) {
	if registry == nil {
		return nil, fmt.Errorf("registry is required")
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	lowered := make(map[string]string, len(markers))
	for key, marker := range markers {
		marker = strings.TrimSpace(marker)
		if marker == "" {
			continue
		}
		lowered[key] = strings.ToLower(marker)
	}

	return &MarkerEngine{
		registry: registry,
		markers:  lowered,
		logger:   logger,
	}, nil
}

// Check evaluates the document against the requested modules, or every
// registered module when modules is empty.
func (e *MarkerEngine) Check(_ context.Context, text, _ string, modules []string) (ValidationResult, error) {
	if len(modules) == 0 {
		modules = e.registry.ModuleIDs()
	}

	lowerText := strings.ToLower(text)
	result := make(ValidationResult, len(modules))

	for _, moduleID := range modules {
		mod, ok := e.registry.Module(moduleID)
		if !ok {
			return nil, fmt.Errorf("unknown rule module %q", moduleID)
		}

		mr := ModuleResult{Gates: make(map[string]GateResult, len(mod.Gates))}
		for _, g := range mod.Gates {
			mr.Gates[g.ID] = e.checkGate(moduleID, g, lowerText)
		}
		result[moduleID] = mr
	}
	return result, nil
}

func (e *MarkerEngine) checkGate(moduleID string, g GateSpec, lowerText string) GateResult {
	marker, ok := e.markers[moduleID+":"+g.ID]
	if ok && strings.Contains(lowerText, marker) {
		return GateResult{
			Status:      StatusPass,
			Severity:    g.Sev,
			Message:     g.Title + " requirement satisfied",
			LegalSource: g.Source,
		}
	}
	if !ok {
		e.logger.Debug("gate has no marker phrase, failing",
			zap.String("module_id", moduleID),
			zap.String("gate_id", g.ID),
		)
	}
	return GateResult{
		Status:      StatusFail,
		Severity:    g.Sev,
		Message:     "document does not contain required " + strings.ToLower(g.Title) + " wording",
		Suggestion:  "insert " + strings.ToLower(g.Title) + " wording",
		LegalSource: g.Source,
	}
}
