// Package presence holds the ephemeral, non-authoritative view of other
// connected users: last known cursor positions and selections.
//
// Registries are owned by one connection-scoped context (created on
// socket open, torn down on close) and never reference shape data. They
// carry no history, no conflict resolution, and no delivery guarantees: a
// dropped cursor:leave leaves a stale cursor until the next presence
// event for that user. Accepted best-effort failure mode.
package presence

import (
	"sync"

	"canvaslab/internal/models"
)

// CursorRegistry maps remote user id to last known cursor position. The
// local user never has an entry.
type CursorRegistry struct {
	mu      sync.RWMutex
	cursors map[string]models.CursorPosition
}

func NewCursorRegistry() *CursorRegistry {
	return &CursorRegistry{cursors: make(map[string]models.CursorPosition)}
}

// HandleEvent routes a cursor wire event: upsert on move, delete on
// leave. A leave for an unknown user is a no-op.
func (r *CursorRegistry) HandleEvent(ev *models.CursorEvent) {
	if ev == nil || ev.UserID == "" {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	switch ev.Type {
	case models.EventCursorMove:
		r.cursors[ev.UserID] = models.CursorPosition{X: ev.X, Y: ev.Y}
	case models.EventCursorLeave:
		delete(r.cursors, ev.UserID)
	}
}

// Remove drops a user's cursor, used on explicit room-leave notification.
func (r *CursorRegistry) Remove(userID string) {
	r.mu.Lock()
	delete(r.cursors, userID)
	r.mu.Unlock()
}

// Snapshot returns a defensive copy; callers must not observe mutation of
// the live map.
func (r *CursorRegistry) Snapshot() map[string]models.CursorPosition {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make(map[string]models.CursorPosition, len(r.cursors))
	for id, pos := range r.cursors {
		out[id] = pos
	}
	return out
}

// SelectionRegistry maps remote user id to the ids that user last
// reported selected. Advisory only; it never controls ownership of a
// shape.
type SelectionRegistry struct {
	mu         sync.RWMutex
	selections map[string][]string
}

func NewSelectionRegistry() *SelectionRegistry {
	return &SelectionRegistry{selections: make(map[string][]string)}
}

// HandleEvent routes a selection wire event. An update replaces the
// user's list wholesale, never merges; clear deletes the entry.
func (r *SelectionRegistry) HandleEvent(ev *models.SelectionEvent) {
	if ev == nil || ev.UserID == "" {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	switch ev.Type {
	case models.EventSelectionUpdate:
		ids := make([]string, len(ev.ShapeIDs))
		copy(ids, ev.ShapeIDs)
		r.selections[ev.UserID] = ids
	case models.EventSelectionClear:
		delete(r.selections, ev.UserID)
	}
}

// Remove drops a user's selection on room leave.
func (r *SelectionRegistry) Remove(userID string) {
	r.mu.Lock()
	delete(r.selections, userID)
	r.mu.Unlock()
}

// Snapshot returns a defensive copy of every user's selection.
func (r *SelectionRegistry) Snapshot() map[string][]string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make(map[string][]string, len(r.selections))
	for id, ids := range r.selections {
		c := make([]string, len(ids))
		copy(c, ids)
		out[id] = c
	}
	return out
}
