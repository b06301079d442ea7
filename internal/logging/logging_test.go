package logging

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zapcore"
)

func TestConfigValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{
			name:   "defaults are valid",
			mutate: func(c *Config) {},
		},
		{
			name:    "bad level",
			mutate:  func(c *Config) { c.Level = "loud" },
			wantErr: "invalid level",
		},
		{
			name:    "bad format",
			mutate:  func(c *Config) { c.Format = "xml" },
			wantErr: "format must be",
		},
		{
			name:    "bad redaction pattern",
			mutate:  func(c *Config) { c.Redaction.Patterns = []string{"("} },
			wantErr: "invalid redaction pattern",
		},
		{
			name:    "empty field value",
			mutate:  func(c *Config) { c.Fields = map[string]string{"env": ""} },
			wantErr: "empty value",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestNew(t *testing.T) {
	logger, err := New(DefaultConfig())
	require.NoError(t, err)
	require.NotNil(t, logger)
	assert.NoError(t, logger.Sync())
}

func TestNewNilConfigUsesDefaults(t *testing.T) {
	logger, err := New(nil)
	require.NoError(t, err)
	require.NotNil(t, logger)
}

func TestRedactingEncoderFields(t *testing.T) {
	enc, err := NewRedactingEncoder(newEncoder("json"), RedactionConfig{
		Enabled: true,
		Fields:  []string{"firm_name"},
	})
	require.NoError(t, err)

	clone, ok := enc.Clone().(*RedactingEncoder)
	require.True(t, ok)
	assert.True(t, clone.shouldRedactKey("Firm_Name"))
	assert.False(t, clone.shouldRedactKey("outcome"))
}

func TestRedactingEncoderPatterns(t *testing.T) {
	enc, err := NewRedactingEncoder(newEncoder("json"), RedactionConfig{
		Enabled:  true,
		Patterns: []string{`(?i)\bFRN[ :]?\d{6,7}\b`},
	})
	require.NoError(t, err)
	require.Len(t, enc.redactRegex, 1)
	assert.True(t, enc.redactRegex[0].MatchString("authorised under FRN 123456"))
	assert.False(t, enc.redactRegex[0].MatchString("authorised firm"))
}

func TestNewRedactingEncoderRejectsBadPattern(t *testing.T) {
	_, err := NewRedactingEncoder(newEncoder("json"), RedactionConfig{
		Enabled:  true,
		Patterns: []string{"["},
	})
	require.Error(t, err)
}

func TestTestLoggerObserves(t *testing.T) {
	tl := NewTestLogger()
	tl.Info("synthesis session complete")
	tl.AssertLogged(t, zapcore.InfoLevel, "session complete")
	assert.Equal(t, 1, tl.FilterMessage("synthesis session complete").Len())
}

func TestRedactedString(t *testing.T) {
	f := RedactedString("frn_number", "123456")
	assert.Equal(t, "[REDACTED:6]", f.String)
}
