// Package history keeps bounded undo and redo stacks of serialized
// annotation snapshots.
//
// Callers Record right before committing a change, so every undo entry is
// the state the document had before one user action. Restores performed by
// Undo and Redo reach the document with canvas.Restoring and are never
// recorded again.
package history

import (
	"github.com/lewtec/vistoria/internal/canvas"
	"github.com/lewtec/vistoria/internal/logger"
)

// DefaultDepth is the number of undo entries kept when none is configured.
const DefaultDepth = 50

// Target is the document whose state is tracked.
type Target interface {
	Serialize() canvas.Snapshot
	Restore(canvas.Snapshot) error
}

// Manager holds the stacks. It is not safe for concurrent use.
type Manager struct {
	max      int
	target   Target
	undo     [][]byte
	redo     [][]byte
	onChange func()
}

// New creates a manager that keeps at most maxDepth undo entries.
func New(maxDepth int) *Manager {
	if maxDepth <= 0 {
		maxDepth = DefaultDepth
	}
	return &Manager{max: maxDepth}
}

// Bind attaches the manager to a document and drops any previous history.
func (m *Manager) Bind(target Target) {
	m.target = target
	m.Clear()
}

// OnChange registers a callback fired whenever the stack sizes change.
func (m *Manager) OnChange(fn func()) {
	m.onChange = fn
}

func (m *Manager) changed() {
	if m.onChange != nil {
		m.onChange()
	}
}

func (m *Manager) capture() ([]byte, error) {
	return m.target.Serialize().Encode()
}

func push(stack [][]byte, entry []byte, max int) [][]byte {
	stack = append(stack, entry)
	if len(stack) > max {
		stack = stack[len(stack)-max:]
	}
	return stack
}

// Record pushes the current document state and clears redo. It does
// nothing while restoring.
func (m *Manager) Record(mode canvas.Mode) {
	if mode == canvas.Restoring || m.target == nil {
		return
	}
	entry, err := m.capture()
	if err != nil {
		logger.Error("history: while capturing snapshot: %s", err)
		return
	}
	m.undo = push(m.undo, entry, m.max)
	m.redo = nil
	logger.Debug("history: recorded snapshot (undo=%d)", len(m.undo))
	m.changed()
}

// step moves one entry from src to the document, saving the current state
// on dst. A corrupt entry leaves both stacks untouched.
func (m *Manager) step(src, dst *[][]byte, name string) bool {
	if m.target == nil || len(*src) == 0 {
		return false
	}
	entry := (*src)[len(*src)-1]
	current, err := m.capture()
	if err != nil {
		logger.Error("history: %s: while capturing current state: %s", name, err)
		return false
	}
	snap, err := canvas.DecodeSnapshot(entry)
	if err == nil {
		err = m.target.Restore(snap)
	}
	if err != nil {
		logger.Warn("history: %s: discarding step, %s", name, err)
		return false
	}
	*src = (*src)[:len(*src)-1]
	*dst = push(*dst, current, m.max)
	m.changed()
	return true
}

// Undo restores the previous state. It returns false when there is nothing
// to undo or the entry could not be restored.
func (m *Manager) Undo() bool {
	return m.step(&m.undo, &m.redo, "undo")
}

// Redo reapplies the last undone state.
func (m *Manager) Redo() bool {
	return m.step(&m.redo, &m.undo, "redo")
}

func (m *Manager) CanUndo() bool  { return len(m.undo) > 0 }
func (m *Manager) CanRedo() bool  { return len(m.redo) > 0 }
func (m *Manager) UndoCount() int { return len(m.undo) }
func (m *Manager) RedoCount() int { return len(m.redo) }

// Clear drops both stacks.
func (m *Manager) Clear() {
	m.undo = nil
	m.redo = nil
	m.changed()
}
