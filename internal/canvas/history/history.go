// Package history implements the bounded undo/redo engine layered on top
// of the canvas store's mutation commands.
//
// Only locally originating actions are recorded. Remote-applied commits
// change what is on screen but never populate these stacks; that is the
// invariant separating "what I can undo" from "what changed".
package history

import (
	"sync"

	"canvaslab/internal/models"
)

// DefaultDepth is the bound on retained undo entries.
const DefaultDepth = 100

// Engine holds the undo and redo stacks. Each entry is the op batch that,
// applied through the store's local path, reverses (or re-applies) one
// local action. Linear-history discipline: recording a new action clears
// the redo stack.
type Engine struct {
	mu    sync.Mutex
	depth int
	undo  [][]models.ShapeOp
	redo  [][]models.ShapeOp
}

// NewEngine returns an engine bounded to the given depth; depth <= 0 uses
// DefaultDepth.
func NewEngine(depth int) *Engine {
	if depth <= 0 {
		depth = DefaultDepth
	}
	return &Engine{depth: depth}
}

// Record pushes the inverse ops of a just-applied local action and clears
// the redo stack. When the undo stack is full the oldest entry is evicted,
// ring-buffer style, to bound memory.
func (e *Engine) Record(inverse []models.ShapeOp) {
	if len(inverse) == 0 {
		return
	}
	e.mu.Lock()
	defer e.mu.Unlock()

	e.undo = append(e.undo, inverse)
	if len(e.undo) > e.depth {
		e.undo = e.undo[len(e.undo)-e.depth:]
	}
	e.redo = nil
}

// PopUndo removes and returns the most recent undoable entry.
func (e *Engine) PopUndo() ([]models.ShapeOp, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return pop(&e.undo)
}

// PopRedo removes and returns the most recent redoable entry.
func (e *Engine) PopRedo() ([]models.ShapeOp, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return pop(&e.redo)
}

// PushRedo stores the forward ops produced while undoing.
func (e *Engine) PushRedo(forward []models.ShapeOp) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.redo = append(e.redo, forward)
}

// PushUndo re-stacks an entry while redoing. Unlike Record it leaves the
// redo stack alone.
func (e *Engine) PushUndo(inverse []models.ShapeOp) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.undo = append(e.undo, inverse)
	if len(e.undo) > e.depth {
		e.undo = e.undo[len(e.undo)-e.depth:]
	}
}

// CanUndo reports whether an undoable entry exists.
func (e *Engine) CanUndo() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return len(e.undo) > 0
}

// CanRedo reports whether a redoable entry exists.
func (e *Engine) CanRedo() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return len(e.redo) > 0
}

// Depths returns the current stack sizes. Useful for debugging/UI.
func (e *Engine) Depths() (undo, redo int) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return len(e.undo), len(e.redo)
}

func pop(stack *[][]models.ShapeOp) ([]models.ShapeOp, bool) {
	s := *stack
	if len(s) == 0 {
		return nil, false
	}
	entry := s[len(s)-1]
	*stack = s[:len(s)-1]
	return entry, true
}
