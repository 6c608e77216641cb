package canvas

import (
	"sync"

	"canvaslab/internal/models"
)

/*
CANVAS STATE STORE

The store holds one client's authoritative view of the canvas: the shape
map, the z-order, the local selection, the viewport, and the editing mode.
It is the single mutable source of truth for that client.

Shape map and z-order are kept separate so re-ordering never rewrites
shapes. Invariant maintained by every mutation: the order slice and the
shape map's key set are a bijection.

Commits apply atomically: the lock is held across the whole operation
batch, so observers never see a partially applied commit. Per-operation
policy is tolerant: an update or delete referencing a missing id is a
silent no-op, which absorbs out-of-order arrival of delete/update pairs
from concurrent peers.

Echo suppression is NOT the store's job. ApplyRemoteCommit applies
whatever it is given, including the client's own commits; the dispatch
boundary (internal/client) must filter by author id before calling it.
*/

// Mode is the client's current editing tool.
type Mode string

const (
	ModeSelect    Mode = "select"
	ModeRectangle Mode = "rectangle"
	ModeEllipse   Mode = "ellipse"
	ModeLine      Mode = "line"
	ModeArrow     Mode = "arrow"
	ModeText      Mode = "text"
)

// Store is the in-memory canvas state for one client.
//
// Browser clients are single-threaded; in Go the websocket read goroutine
// and the caller's goroutine both reach the store, so a mutex stands in
// for that assumption.
type Store struct {
	mu       sync.RWMutex
	shapes   map[string]*models.Shape
	order    []string // z-order, paint order; bijective with shapes
	selected map[string]struct{}
	viewport Viewport
	mode     Mode
}

// NewStore returns an empty store in select mode at identity viewport.
func NewStore() *Store {
	return &Store{
		shapes:   make(map[string]*models.Shape),
		order:    make([]string, 0),
		selected: make(map[string]struct{}),
		viewport: Viewport{Scale: 1},
		mode:     ModeSelect,
	}
}

// CreateShape constructs a shape via the factory, inserts it, and appends
// its id to the z-order. Returns a copy; all further mutation goes through
// UpdateShape. The caller is responsible for wrapping the creation in a
// commit; the store never broadcasts.
func (s *Store) CreateShape(kind models.ShapeKind, x, y float64) *models.Shape {
	shape := NewShape(kind, x, y)

	s.mu.Lock()
	s.shapes[shape.ID] = shape
	s.order = append(s.order, shape.ID)
	if shape.IsSelected {
		s.selected[shape.ID] = struct{}{}
	}
	s.mu.Unlock()

	out := *shape
	return &out
}

// UpdateShape merges the patch into the shape. Missing id is a silent
// no-op. ID and kind are preserved.
func (s *Store) UpdateShape(id string, patch *models.ShapePatch) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if shape, ok := s.shapes[id]; ok {
		shape.Apply(patch)
	}
}

// DeleteShape removes the shape from the map, the z-order, and the local
// selection. Missing id is a silent no-op.
func (s *Store) DeleteShape(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.deleteLocked(id)
}

func (s *Store) deleteLocked(id string) (prev *models.Shape, index int, ok bool) {
	prev, ok = s.shapes[id]
	if !ok {
		return nil, 0, false
	}
	delete(s.shapes, id)
	delete(s.selected, id)
	index = s.indexOfLocked(id)
	if index >= 0 {
		s.order = append(s.order[:index], s.order[index+1:]...)
	}
	return prev, index, true
}

func (s *Store) indexOfLocked(id string) int {
	for i, oid := range s.order {
		if oid == id {
			return i
		}
	}
	return -1
}

// Shape returns a copy of the shape, or false if absent.
func (s *Store) Shape(id string) (*models.Shape, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	shape, ok := s.shapes[id]
	if !ok {
		return nil, false
	}
	out := *shape
	return &out, true
}

// Shapes returns copies of all shapes in paint order.
func (s *Store) Shapes() []*models.Shape {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*models.Shape, 0, len(s.order))
	for _, id := range s.order {
		if shape, ok := s.shapes[id]; ok {
			c := *shape
			out = append(out, &c)
		}
	}
	return out
}

// Order returns a copy of the z-order id sequence.
func (s *Store) Order() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]string, len(s.order))
	copy(out, s.order)
	return out
}

// Len returns the number of shapes.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.shapes)
}

// ApplyOps applies a batch of elementary operations atomically and returns
// the inverse batch that undoes it, in reverse order. Both the local
// command path (which records the inverse on history) and the remote path
// (which discards it) funnel through here, so atomicity and the
// missing-id no-op policy hold for both.
func (s *Store) ApplyOps(ops []models.ShapeOp) []models.ShapeOp {
	s.mu.Lock()
	defer s.mu.Unlock()

	inverse := make([]models.ShapeOp, 0, len(ops))
	for _, op := range ops {
		if inv, ok := s.applyOpLocked(op); ok {
			inverse = append(inverse, inv)
		}
	}

	// Reverse so undo replays in the opposite order.
	for i, j := 0, len(inverse)-1; i < j; i, j = i+1, j-1 {
		inverse[i], inverse[j] = inverse[j], inverse[i]
	}
	return inverse
}

// ApplyRemoteCommit applies a peer's commit. Callers at the dispatch
// boundary must already have dropped commits authored by the local user;
// this method applies whatever arrives. Never records history.
func (s *Store) ApplyRemoteCommit(commit *models.ShapeCommit) {
	if commit == nil {
		return
	}
	s.ApplyOps(commit.Ops)
}

func (s *Store) applyOpLocked(op models.ShapeOp) (models.ShapeOp, bool) {
	switch op.Action {
	case models.OpCreate:
		if op.Shape == nil || op.Shape.ID == "" {
			return models.ShapeOp{}, false
		}
		if prev, exists := s.shapes[op.Shape.ID]; exists {
			// Re-delivered create: replace in place, keep z-order slot.
			// Keeps identical-commit re-delivery idempotent.
			s.shapes[op.Shape.ID] = op.Shape.Clone()
			idx := s.indexOfLocked(op.Shape.ID)
			return models.ShapeOp{Action: models.OpCreate, Shape: prev.Clone(), Index: intPtr(idx)}, true
		}
		s.shapes[op.Shape.ID] = op.Shape.Clone()
		idx := len(s.order)
		if op.Index != nil && *op.Index >= 0 && *op.Index <= len(s.order) {
			idx = *op.Index
		}
		s.order = append(s.order, "")
		copy(s.order[idx+1:], s.order[idx:])
		s.order[idx] = op.Shape.ID
		return models.ShapeOp{Action: models.OpDelete, ID: op.Shape.ID}, true

	case models.OpUpdate:
		shape, ok := s.shapes[op.ID]
		if !ok {
			return models.ShapeOp{}, false // stale reference, tolerated
		}
		inv := shape.Inverse(op.Patch)
		shape.Apply(op.Patch)
		return models.ShapeOp{Action: models.OpUpdate, ID: op.ID, Patch: inv}, true

	case models.OpDelete:
		prev, index, ok := s.deleteLocked(op.ID)
		if !ok {
			return models.ShapeOp{}, false // stale reference, tolerated
		}
		return models.ShapeOp{Action: models.OpCreate, Shape: prev.Clone(), Index: intPtr(index)}, true
	}
	return models.ShapeOp{}, false
}

func intPtr(i int) *int { return &i }

// Selection mutators. Selection is purely local UI state and must never
// appear inside a broadcast shape commit; peers learn about it through
// selection:update presence events instead.

func (s *Store) Select(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	shape, ok := s.shapes[id]
	if !ok {
		return
	}
	shape.IsSelected = true
	s.selected[id] = struct{}{}
}

func (s *Store) Deselect(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if shape, ok := s.shapes[id]; ok {
		shape.IsSelected = false
	}
	delete(s.selected, id)
}

func (s *Store) ClearSelection() {
	s.mu.Lock()
	defer s.mu.Unlock()
	for id := range s.selected {
		if shape, ok := s.shapes[id]; ok {
			shape.IsSelected = false
		}
	}
	s.selected = make(map[string]struct{})
}

// SelectedIDs returns the local selection as a sorted-free copy.
func (s *Store) SelectedIDs() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]string, 0, len(s.selected))
	for id := range s.selected {
		out = append(out, id)
	}
	return out
}

// SetViewport stores the viewport, clamping scale to the allowed range so
// a bad persisted value can never propagate.
func (s *Store) SetViewport(v Viewport) {
	v.Scale = clampScale(v.Scale)
	s.mu.Lock()
	s.viewport = v
	s.mu.Unlock()
}

func (s *Store) Viewport() Viewport {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.viewport
}

func (s *Store) SetMode(m Mode) {
	s.mu.Lock()
	s.mode = m
	s.mu.Unlock()
}

func (s *Store) Mode() Mode {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.mode
}
