package gates

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadRegistry(t *testing.T) {
	reg, err := LoadRegistry()
	require.NoError(t, err)

	ids := reg.ModuleIDs()
	assert.Contains(t, ids, "fca_uk")
	assert.Contains(t, ids, "gdpr_uk")
	assert.Contains(t, ids, "tax_uk")
	assert.Contains(t, ids, "nda_uk")
	assert.Contains(t, ids, "hr_scottish")
	assert.IsNonDecreasing(t, ids)

	gate, ok := reg.Gate("fca_uk", "risk_warning")
	require.True(t, ok)
	assert.Equal(t, SeverityCritical, gate.Sev)
	assert.NotEmpty(t, gate.Source)

	_, ok = reg.Gate("fca_uk", "no_such_gate")
	assert.False(t, ok)
	_, ok = reg.Gate("no_such_module", "risk_warning")
	assert.False(t, ok)
}

func TestParseRegistryRejectsInvalidData(t *testing.T) {
	tests := []struct {
		name    string
		data    string
		wantErr string
	}{
		{
			name:    "not yaml",
			data:    "{{{",
			wantErr: "failed to parse",
		},
		{
			name:    "no modules",
			data:    "version: 1\nmodules: []\n",
			wantErr: "declares no modules",
		},
		{
			name: "empty module id",
			data: `
modules:
  - id: ""
    gates:
      - id: g1
        severity: high
`,
			wantErr: "empty id",
		},
		{
			name: "duplicate module",
			data: `
modules:
  - id: m1
    gates:
      - {id: g1, severity: high}
  - id: m1
    gates:
      - {id: g1, severity: high}
`,
			wantErr: "duplicate module id",
		},
		{
			name: "duplicate gate",
			data: `
modules:
  - id: m1
    gates:
      - {id: g1, severity: high}
      - {id: g1, severity: low}
`,
			wantErr: "twice",
		},
		{
			name: "unknown severity",
			data: `
modules:
  - id: m1
    gates:
      - {id: g1, severity: catastrophic}
`,
			wantErr: "unknown severity",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseRegistry([]byte(tt.data))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestRegistryGatesAreDescribable(t *testing.T) {
	reg, err := LoadRegistry()
	require.NoError(t, err)

	described := reg.Gates("gdpr_uk")
	require.NotEmpty(t, described)
	for _, d := range described {
		assert.NotEmpty(t, d.GateID())
		assert.NotEmpty(t, d.Name())
		assert.True(t, d.Severity().Valid())
	}

	assert.Nil(t, reg.Gates("no_such_module"))
}
