package rollback

import (
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fyrsmithlabs/complianced/internal/gates"
	"github.com/fyrsmithlabs/complianced/internal/snippet"
)

func corr(key string) snippet.Applied {
	return snippet.Applied{Key: key, ModuleID: "m", GateID: "g"}
}

// threeSnapshots builds the T0/T1/T2 history: original text, one correction,
// two corrections.
func threeSnapshots(t *testing.T) *Manager {
	t.Helper()
	m := NewManager(0, nil)
	m.SaveSnapshot("original", nil, nil, map[string]string{"stage": "sanitized"})
	m.SaveSnapshot("original+a", []snippet.Applied{corr("m:a:end")}, nil, nil)
	m.SaveSnapshot("original+a+b", []snippet.Applied{corr("m:a:end"), corr("m:b:end")}, nil, nil)
	return m
}

func TestSaveSnapshotAssignsIterations(t *testing.T) {
	m := threeSnapshots(t)

	states := m.Snapshots()
	require.Len(t, states, 3)
	for i, s := range states {
		assert.Equal(t, i, s.Iteration)
		assert.Equal(t, TextHash(s.Text), s.TextHash)
	}
	assert.Equal(t, 3, m.CurrentIteration())

	current, ok := m.Current()
	require.True(t, ok)
	assert.Equal(t, "original+a+b", current.Text)
}

func TestSaveSnapshotCopiesApplied(t *testing.T) {
	m := NewManager(0, nil)
	batch := []snippet.Applied{corr("m:a:end")}
	m.SaveSnapshot("text", batch, nil, nil)

	batch[0].Key = "mutated"
	states := m.Snapshots()
	assert.Equal(t, "m:a:end", states[0].Applied[0].Key)
}

func TestFIFOEviction(t *testing.T) {
	m := NewManager(2, nil)
	for i := 0; i < 4; i++ {
		m.SaveSnapshot(fmt.Sprintf("text-%d", i), nil, nil, nil)
	}

	states := m.Snapshots()
	require.Len(t, states, 2)
	assert.Equal(t, 2, states[0].Iteration)
	assert.Equal(t, 3, states[1].Iteration)
	// The counter keeps advancing past evictions.
	assert.Equal(t, 4, m.CurrentIteration())
}

func TestRollbackToOriginalRoundTrip(t *testing.T) {
	m := threeSnapshots(t)

	state, err := m.RollbackToOriginal("manual review")
	require.NoError(t, err)
	assert.Equal(t, "original", state.Text)
	assert.Empty(t, state.Applied)

	// History is append-only: all three snapshots survive the rollback.
	assert.Len(t, m.Snapshots(), 3)

	ops := m.Operations()
	require.Len(t, ops, 1)
	assert.Equal(t, 2, ops[0].FromIteration)
	assert.Equal(t, 0, ops[0].ToIteration)
	assert.Equal(t, 2, ops[0].CorrectionsUndone)
	assert.True(t, ops[0].Success)

	current, ok := m.Current()
	require.True(t, ok)
	assert.Equal(t, "original", current.Text)
}

func TestRollbackToPrevious(t *testing.T) {
	m := threeSnapshots(t)

	state, err := m.RollbackToPrevious("one step back")
	require.NoError(t, err)
	assert.Equal(t, "original+a", state.Text)

	m2 := NewManager(0, nil)
	m2.SaveSnapshot("only", nil, nil, nil)
	_, err = m2.RollbackToPrevious("no previous")
	require.Error(t, err)
}

func TestRollbackToUnknownIteration(t *testing.T) {
	m := threeSnapshots(t)
	_, err := m.RollbackToIteration(7, "bad target")
	require.Error(t, err)
	assert.Empty(t, m.Operations())
}

func TestUndoCorrection(t *testing.T) {
	m := threeSnapshots(t)

	state, err := m.UndoCorrection("m:b:end")
	require.NoError(t, err)
	assert.Equal(t, "original+a", state.Text)

	_, err = m.UndoCorrection("m:zz:end")
	require.Error(t, err)
}

func TestUndoCorrectionInOldestSnapshot(t *testing.T) {
	m := NewManager(0, nil)
	m.SaveSnapshot("text", []snippet.Applied{corr("m:a:end")}, nil, nil)

	_, err := m.UndoCorrection("m:a:end")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "oldest retained snapshot")
}

func TestUndoLastN(t *testing.T) {
	m := threeSnapshots(t)

	state, err := m.UndoLastN(1)
	require.NoError(t, err)
	assert.Len(t, state.Applied, 1)

	_, err = m.UndoLastN(0)
	require.Error(t, err)

	_, err = m.UndoLastN(10)
	require.Error(t, err)
}

func TestSnapshotDiff(t *testing.T) {
	m := threeSnapshots(t)

	diff, err := m.SnapshotDiff(0, 2)
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"m:a:end", "m:b:end"}, diff.Added)
	assert.Empty(t, diff.Removed)
	assert.Equal(t, 2, diff.NetCount)
	assert.True(t, diff.TextChanged)
	assert.Equal(t, len("original+a+b")-len("original"), diff.TextLengthDelta)

	reverse, err := m.SnapshotDiff(2, 0)
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"m:a:end", "m:b:end"}, reverse.Removed)
	assert.Equal(t, -2, reverse.NetCount)

	_, err = m.SnapshotDiff(0, 9)
	require.Error(t, err)
}

func TestLineage(t *testing.T) {
	m := threeSnapshots(t)

	entries := m.Lineage("m:a:end")
	require.Len(t, entries, 2)
	assert.Equal(t, 1, entries[0].Iteration)
	assert.Equal(t, 2, entries[1].Iteration)

	assert.Empty(t, m.Lineage("m:zz:end"))
}

func TestValidationPreservedInSnapshot(t *testing.T) {
	m := NewManager(0, nil)
	v := gates.ValidationResult{
		"fca_uk": {Gates: map[string]gates.GateResult{
			"risk_warning": {Status: gates.StatusFail, Severity: gates.SeverityCritical},
		}},
	}
	m.SaveSnapshot("text", nil, v, nil)

	current, ok := m.Current()
	require.True(t, ok)
	assert.Equal(t, 1, current.Validation.FailureCount())
}

func TestExportImportRoundTrip(t *testing.T) {
	m := threeSnapshots(t)
	_, err := m.RollbackToOriginal("for export")
	require.NoError(t, err)

	data, err := m.Export()
	require.NoError(t, err)

	restored := NewManager(0, nil)
	require.NoError(t, restored.Import(data))

	assert.Equal(t, m.CurrentIteration(), restored.CurrentIteration())
	assert.Len(t, restored.Snapshots(), 3)
	assert.Len(t, restored.Operations(), 1)

	current, ok := restored.Current()
	require.True(t, ok)
	assert.Equal(t, "original", current.Text)
}

func TestImportRejectsCorruptHistory(t *testing.T) {
	m := threeSnapshots(t)
	data, err := m.Export()
	require.NoError(t, err)

	restored := NewManager(0, nil)

	require.Error(t, restored.Import([]byte("not json")))

	// Tampered text no longer matches its hash.
	tampered := strings.Replace(string(data), `"original+a+b"`, `"tampered+a+b"`, 1)
	require.Error(t, restored.Import([]byte(tampered)))

	// Failed imports leave the manager untouched.
	assert.Empty(t, restored.Snapshots())
}
