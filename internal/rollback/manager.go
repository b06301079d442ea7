// Package rollback maintains the append-only snapshot history of a synthesis
// session and supports positional and semantic rollback.
//
// Snapshots are immutable. A rollback never deletes history; it only changes
// which snapshot is current, and every rollback is itself recorded as an
// audit operation. The only way a snapshot leaves the history is FIFO
// eviction once the configured capacity is exceeded.
//
// A Manager is owned by exactly one session and is not safe for concurrent
// use; concurrent sessions each get their own instance.
package rollback

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/fyrsmithlabs/complianced/internal/gates"
	"github.com/fyrsmithlabs/complianced/internal/snippet"
)

// DefaultMaxHistory caps the snapshot list when callers pass no limit.
const DefaultMaxHistory = 50

// State is one immutable snapshot of a session iteration.
type State struct {
	Iteration  int                    `json:"iteration"`
	Timestamp  time.Time              `json:"timestamp"`
	Text       string                 `json:"text"`
	TextHash   string                 `json:"text_hash"`
	Applied    []snippet.Applied      `json:"applied_snippets"`
	Validation gates.ValidationResult `json:"validation"`
	Metadata   map[string]string      `json:"metadata,omitempty"`
}

// Operation is the audit record appended for every rollback.
type Operation struct {
	ID                string    `json:"id"`
	Timestamp         time.Time `json:"timestamp"`
	FromIteration     int       `json:"from_iteration"`
	ToIteration       int       `json:"to_iteration"`
	Reason            string    `json:"reason"`
	CorrectionsUndone int       `json:"corrections_undone"`
	Success           bool      `json:"success"`
}

// Diff summarizes the difference between two snapshots.
type Diff struct {
	Added           []string `json:"added"`
	Removed         []string `json:"removed"`
	NetCount        int      `json:"net_count"`
	TextLengthDelta int      `json:"text_length_delta"`
	TextChanged     bool     `json:"text_changed"`
}

// LineageEntry traces one iteration in which a correction was present.
type LineageEntry struct {
	Iteration  int       `json:"iteration"`
	Timestamp  time.Time `json:"timestamp"`
	GateID     string    `json:"gate_id"`
	ModuleID   string    `json:"module_id"`
	Confidence float64   `json:"confidence"`
}

// Manager holds a session's snapshot history.
type Manager struct {
	maxHistory       int
	states           []State
	operations       []Operation
	currentIteration int
	logger           *zap.Logger
}

// NewManager creates an empty history capped at maxHistory snapshots;
// non-positive values use DefaultMaxHistory.
func NewManager(maxHistory int, logger *zap.Logger) *Manager {
	if maxHistory <= 0 {
		maxHistory = DefaultMaxHistory
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Manager{maxHistory: maxHistory, logger: logger}
}

// TextHash returns the truncated digest used for equality-only text
// comparison between snapshots.
func TextHash(text string) string {
	sum := sha256.Sum256([]byte(text))
	return hex.EncodeToString(sum[:])[:16]
}

// SaveSnapshot appends a new snapshot and advances the iteration counter.
// Applied snippets are copied so later mutation by the caller cannot reach
// the history. Eviction is FIFO and independent of any rollback.
func (m *Manager) SaveSnapshot(text string, applied []snippet.Applied, validation gates.ValidationResult, metadata map[string]string) State {
	appliedCopy := make([]snippet.Applied, len(applied))
	copy(appliedCopy, applied)

	state := State{
		Iteration:  m.currentIteration,
		Timestamp:  time.Now(),
		Text:       text,
		TextHash:   TextHash(text),
		Applied:    appliedCopy,
		Validation: validation,
		Metadata:   metadata,
	}
	m.states = append(m.states, state)
	m.currentIteration++

	if len(m.states) > m.maxHistory {
		evicted := m.states[0]
		m.states = m.states[1:]
		m.logger.Debug("evicted oldest snapshot",
			zap.Int("iteration", evicted.Iteration),
			zap.Int("max_history", m.maxHistory),
		)
	}
	return state
}

// Current returns the snapshot the session is positioned on.
func (m *Manager) Current() (State, bool) {
	return m.findIteration(m.currentIteration - 1)
}

// Snapshots returns the full history, oldest first. The returned slice is a
// copy; the states themselves are shared and must not be mutated.
func (m *Manager) Snapshots() []State {
	out := make([]State, len(m.states))
	copy(out, m.states)
	return out
}

// Operations returns the rollback audit trail.
func (m *Manager) Operations() []Operation {
	out := make([]Operation, len(m.operations))
	copy(out, m.operations)
	return out
}

// CurrentIteration returns the monotonic iteration counter.
func (m *Manager) CurrentIteration() int {
	return m.currentIteration
}

func (m *Manager) findIteration(iteration int) (State, bool) {
	for _, s := range m.states {
		if s.Iteration == iteration {
			return s, true
		}
	}
	return State{}, false
}

// RollbackToIteration repositions the session on the snapshot with the given
// iteration. The history is not mutated on failure; on success an Operation
// record is appended and no snapshot is deleted.
func (m *Manager) RollbackToIteration(target int, reason string) (*State, error) {
	state, ok := m.findIteration(target)
	if !ok {
		return nil, fmt.Errorf("no snapshot for iteration %d", target)
	}

	undone := 0
	if current, ok := m.Current(); ok {
		undone = len(current.Applied) - len(state.Applied)
		if undone < 0 {
			undone = 0
		}
	}

	op := Operation{
		ID:                uuid.New().String(),
		Timestamp:         time.Now(),
		FromIteration:     m.currentIteration - 1,
		ToIteration:       target,
		Reason:            reason,
		CorrectionsUndone: undone,
		Success:           true,
	}
	m.operations = append(m.operations, op)
	m.currentIteration = target + 1

	m.logger.Info("rolled back",
		zap.Int("from_iteration", op.FromIteration),
		zap.Int("to_iteration", target),
		zap.Int("corrections_undone", undone),
		zap.String("reason", reason),
	)
	return &state, nil
}

// RollbackToPrevious repositions on the second-to-last snapshot.
func (m *Manager) RollbackToPrevious(reason string) (*State, error) {
	if len(m.states) < 2 {
		return nil, fmt.Errorf("fewer than two snapshots in history")
	}
	return m.RollbackToIteration(m.states[len(m.states)-2].Iteration, reason)
}

// RollbackToOriginal repositions on iteration 0.
func (m *Manager) RollbackToOriginal(reason string) (*State, error) {
	return m.RollbackToIteration(0, reason)
}

// UndoCorrection finds the earliest snapshot containing the snippet key and
// rolls back to the snapshot immediately preceding it.
func (m *Manager) UndoCorrection(snippetKey string) (*State, error) {
	for i, s := range m.states {
		if !containsKey(s.Applied, snippetKey) {
			continue
		}
		if i == 0 {
			return nil, fmt.Errorf("correction %s is present in the oldest retained snapshot", snippetKey)
		}
		return m.RollbackToIteration(m.states[i-1].Iteration, fmt.Sprintf("undo correction %s", snippetKey))
	}
	return nil, fmt.Errorf("no snapshot contains correction %s", snippetKey)
}

// UndoLastN rolls back to the most recent snapshot whose applied-snippet
// count does not exceed the current count minus n.
func (m *Manager) UndoLastN(n int) (*State, error) {
	if n <= 0 {
		return nil, fmt.Errorf("n must be positive, got %d", n)
	}
	current, ok := m.Current()
	if !ok {
		return nil, fmt.Errorf("no snapshots in history")
	}
	if n > len(current.Applied) {
		return nil, fmt.Errorf("cannot undo %d corrections: only %d applied", n, len(current.Applied))
	}

	want := len(current.Applied) - n
	for i := len(m.states) - 1; i >= 0; i-- {
		if m.states[i].Iteration >= current.Iteration {
			continue
		}
		if len(m.states[i].Applied) <= want {
			return m.RollbackToIteration(m.states[i].Iteration, fmt.Sprintf("undo last %d corrections", n))
		}
	}
	return nil, fmt.Errorf("no snapshot with %d or fewer corrections", want)
}

// SnapshotDiff compares two snapshots by iteration. Text comparison is by
// hash equality only.
func (m *Manager) SnapshotDiff(a, b int) (*Diff, error) {
	stateA, ok := m.findIteration(a)
	if !ok {
		return nil, fmt.Errorf("no snapshot for iteration %d", a)
	}
	stateB, ok := m.findIteration(b)
	if !ok {
		return nil, fmt.Errorf("no snapshot for iteration %d", b)
	}

	keysA := keySet(stateA.Applied)
	keysB := keySet(stateB.Applied)

	var added, removed []string
	for _, s := range stateB.Applied {
		if !keysA[s.Key] {
			added = append(added, s.Key)
		}
	}
	for _, s := range stateA.Applied {
		if !keysB[s.Key] {
			removed = append(removed, s.Key)
		}
	}

	return &Diff{
		Added:           added,
		Removed:         removed,
		NetCount:        len(stateB.Applied) - len(stateA.Applied),
		TextLengthDelta: len(stateB.Text) - len(stateA.Text),
		TextChanged:     stateA.TextHash != stateB.TextHash,
	}, nil
}

// Lineage traces a correction across the history: one entry per iteration in
// which the key is present, oldest first.
func (m *Manager) Lineage(snippetKey string) []LineageEntry {
	var entries []LineageEntry
	for _, s := range m.states {
		for _, a := range s.Applied {
			if a.Key != snippetKey {
				continue
			}
			entries = append(entries, LineageEntry{
				Iteration:  s.Iteration,
				Timestamp:  s.Timestamp,
				GateID:     a.GateID,
				ModuleID:   a.ModuleID,
				Confidence: a.Confidence,
			})
			break // first occurrence per iteration only
		}
	}
	return entries
}

// history is the export/import wire form.
type history struct {
	MaxHistory       int         `json:"max_history"`
	CurrentIteration int         `json:"current_iteration"`
	States           []State     `json:"states"`
	Operations       []Operation `json:"operations"`
}

// Export serializes the history for external persistence.
func (m *Manager) Export() ([]byte, error) {
	return json.Marshal(history{
		MaxHistory:       m.maxHistory,
		CurrentIteration: m.currentIteration,
		States:           m.states,
		Operations:       m.operations,
	})
}

// Import replaces the manager's history with a previously exported one.
// Malformed input is a caller error; the manager is untouched on failure.
func (m *Manager) Import(data []byte) error {
	var h history
	if err := json.Unmarshal(data, &h); err != nil {
		return fmt.Errorf("malformed history: %w", err)
	}
	if h.MaxHistory <= 0 {
		return fmt.Errorf("malformed history: max_history must be positive")
	}
	for i, s := range h.States {
		if s.TextHash != TextHash(s.Text) {
			return fmt.Errorf("malformed history: snapshot %d hash mismatch", i)
		}
	}

	m.maxHistory = h.MaxHistory
	m.currentIteration = h.CurrentIteration
	m.states = h.States
	m.operations = h.Operations
	return nil
}

func containsKey(applied []snippet.Applied, key string) bool {
	for _, a := range applied {
		if a.Key == key {
			return true
		}
	}
	return false
}

func keySet(applied []snippet.Applied) map[string]bool {
	set := make(map[string]bool, len(applied))
	for _, a := range applied {
		set[a.Key] = true
	}
	return set
}
