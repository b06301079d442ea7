package gates

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestMarkerEngineCheck(t *testing.T) {
	reg, err := LoadRegistry()
	require.NoError(t, err)

	engine, err := NewMarkerEngine(reg, map[string]string{
		"fca_uk:risk_warning":    "capital is at risk",
		"fca_uk:fos_signposting": "Financial Ombudsman Service",
	}, zap.NewNop())
	require.NoError(t, err)

	text := "Your capital is at risk. Complaints go to the Financial Ombudsman Service."
	result, err := engine.Check(context.Background(), text, "financial", []string{"fca_uk"})
	require.NoError(t, err)

	require.Contains(t, result, "fca_uk")
	gr := result["fca_uk"].Gates

	assert.Equal(t, StatusPass, gr["risk_warning"].Status)
	assert.Equal(t, StatusPass, gr["fos_signposting"].Status)
	// Gates without markers fail.
	assert.Equal(t, StatusFail, gr["firm_identification"].Status)
	assert.NotEmpty(t, gr["firm_identification"].Suggestion)
	assert.NotEmpty(t, gr["firm_identification"].LegalSource)
}

func TestMarkerEngineCaseInsensitive(t *testing.T) {
	reg, err := LoadRegistry()
	require.NoError(t, err)

	engine, err := NewMarkerEngine(reg, map[string]string{
		"fca_uk:risk_warning": "CAPITAL IS AT RISK",
	}, nil)
	require.NoError(t, err)

	result, err := engine.Check(context.Background(), "your Capital Is At Risk here", "", []string{"fca_uk"})
	require.NoError(t, err)
	assert.Equal(t, StatusPass, result["fca_uk"].Gates["risk_warning"].Status)
}

func TestMarkerEngineAllModulesByDefault(t *testing.T) {
	reg, err := LoadRegistry()
	require.NoError(t, err)

	engine, err := NewMarkerEngine(reg, nil, nil)
	require.NoError(t, err)

	result, err := engine.Check(context.Background(), "", "", nil)
	require.NoError(t, err)
	assert.Len(t, result, len(reg.ModuleIDs()))
}

func TestMarkerEngineUnknownModule(t *testing.T) {
	reg, err := LoadRegistry()
	require.NoError(t, err)

	engine, err := NewMarkerEngine(reg, nil, nil)
	require.NoError(t, err)

	_, err = engine.Check(context.Background(), "", "", []string{"fca_us"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown rule module")
}

func TestMarkerEngineDeterministic(t *testing.T) {
	reg, err := LoadRegistry()
	require.NoError(t, err)

	engine, err := NewMarkerEngine(reg, map[string]string{
		"gdpr_uk:lawful_basis": "lawful basis",
	}, nil)
	require.NoError(t, err)

	text := "We process data on the lawful basis of consent."
	a, err := engine.Check(context.Background(), text, "privacy", []string{"gdpr_uk"})
	require.NoError(t, err)
	b, err := engine.Check(context.Background(), text, "privacy", []string{"gdpr_uk"})
	require.NoError(t, err)
	assert.Equal(t, a, b)
}

func TestNewMarkerEngineRequiresRegistry(t *testing.T) {
	_, err := NewMarkerEngine(nil, nil, nil)
	require.Error(t, err)
}
