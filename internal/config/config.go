// Package config provides configuration loading for complianced.
package config

import (
	"fmt"

	"github.com/fyrsmithlabs/complianced/internal/logging"
	"github.com/fyrsmithlabs/complianced/internal/telemetry"
)

// Config is the root configuration.
type Config struct {
	Logging   logging.Config   `koanf:"logging"`
	Telemetry telemetry.Config `koanf:"telemetry"`
	Synthesis SynthesisConfig  `koanf:"synthesis"`
	Audit     AuditConfig      `koanf:"audit"`

	// Placeholders supplies default values for [KEY] template tokens, merged
	// under per-request context.
	Placeholders map[string]string `koanf:"placeholders"`
}

// SynthesisConfig tunes the correction loop.
type SynthesisConfig struct {
	MaxRetries           int  `koanf:"max_retries"`
	MaxHistory           int  `koanf:"max_history"`
	ScoreConfidence      bool `koanf:"score_confidence"`
	DetectConflicts      bool `koanf:"detect_conflicts"`
	AutoResolveConflicts bool `koanf:"auto_resolve_conflicts"`
	MaxManualActions     int  `koanf:"max_manual_actions"`
}

// AuditConfig tunes the audit trail.
type AuditConfig struct {
	Enabled         bool    `koanf:"enabled"`
	EventsPerSecond float64 `koanf:"events_per_second"`
}

// Default returns the full default configuration.
func Default() *Config {
	return &Config{
		Logging:   *logging.DefaultConfig(),
		Telemetry: *telemetry.DefaultConfig(),
		Synthesis: SynthesisConfig{
			MaxRetries:           5,
			MaxHistory:           50,
			ScoreConfidence:      true,
			DetectConflicts:      true,
			AutoResolveConflicts: false,
			MaxManualActions:     10,
		},
		Audit: AuditConfig{
			Enabled:         true,
			EventsPerSecond: 50,
		},
	}
}

// Validate checks the whole configuration tree.
func (c *Config) Validate() error {
	if err := c.Logging.Validate(); err != nil {
		return fmt.Errorf("logging: %w", err)
	}
	if err := c.Telemetry.Validate(); err != nil {
		return fmt.Errorf("telemetry: %w", err)
	}
	if c.Synthesis.MaxRetries < 1 {
		return fmt.Errorf("synthesis: max_retries must be >= 1, got %d", c.Synthesis.MaxRetries)
	}
	if c.Synthesis.MaxHistory < 1 {
		return fmt.Errorf("synthesis: max_history must be >= 1, got %d", c.Synthesis.MaxHistory)
	}
	if c.Synthesis.MaxManualActions < 1 {
		return fmt.Errorf("synthesis: max_manual_actions must be >= 1, got %d", c.Synthesis.MaxManualActions)
	}
	if c.Audit.Enabled && c.Audit.EventsPerSecond <= 0 {
		return fmt.Errorf("audit: events_per_second must be positive when audit enabled")
	}
	for k := range c.Placeholders {
		if k == "" {
			return fmt.Errorf("placeholders: key cannot be empty")
		}
	}
	return nil
}
