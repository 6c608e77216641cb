package client

import (
	"encoding/json"
	"errors"
	"log"
	"os"
	"path/filepath"

	"canvaslab/internal/canvas"
	"canvaslab/internal/models"
)

/*
LOCAL SNAPSHOT PERSISTENCE

The serialized canvas (shapes, z-order, selection, viewport, mode) is
written to a JSON file between sessions, the desktop equivalent of the
browser client's localStorage. Strictly best-effort: a missing or corrupt
file loads as "no saved state", and save failures are logged and
swallowed. Correctness never depends on it; the commit-log catch-up
rebuilds shared state on reconnect.
*/

// Snapshot is the persisted form of the canvas store's fields. Field
// names match the browser client's storage keys.
type Snapshot struct {
	Shapes           []*models.Shape `json:"shapes"`
	ShapeOrder       []string        `json:"shapeOrder"`
	SelectedShapeIDs []string        `json:"selectedShapeIds"`
	Scale            float64         `json:"scale"`
	OffsetX          float64         `json:"offsetX"`
	OffsetY          float64         `json:"offsetY"`
	Mode             canvas.Mode     `json:"mode"`
}

// SnapshotStore persists one lab's snapshot at a fixed path.
type SnapshotStore struct {
	path string
}

func NewSnapshotStore(path string) *SnapshotStore {
	return &SnapshotStore{path: path}
}

// Load returns the saved snapshot, or (nil, nil) when there is no usable
// saved state. It never fails the caller over a corrupt file.
func (s *SnapshotStore) Load() (*Snapshot, error) {
	data, err := os.ReadFile(s.path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		log.Printf("⚠️  Failed to read snapshot %s: %v", s.path, err)
		return nil, nil
	}

	var snap Snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		log.Printf("⚠️  Corrupt snapshot %s, ignoring: %v", s.path, err)
		return nil, nil
	}
	return &snap, nil
}

// Save writes the snapshot atomically (temp file + rename). Failures are
// the caller's to log and swallow; persistence is never load-bearing.
func (s *SnapshotStore) Save(snap *Snapshot) error {
	data, err := json.MarshalIndent(snap, "", "  ")
	if err != nil {
		return err
	}

	tmp := s.path + ".tmp"
	if err := os.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
		return err
	}
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return err
	}
	return os.Rename(tmp, s.path)
}

// SnapshotOf captures the editor's current canvas state.
func SnapshotOf(editor *canvas.Editor) *Snapshot {
	store := editor.Store()
	vp := store.Viewport()
	return &Snapshot{
		Shapes:           store.Shapes(),
		ShapeOrder:       store.Order(),
		SelectedShapeIDs: store.SelectedIDs(),
		Scale:            vp.Scale,
		OffsetX:          vp.OffsetX,
		OffsetY:          vp.OffsetY,
		Mode:             store.Mode(),
	}
}

// Restore loads a snapshot into the editor's store. Goes through the
// store's remote path so nothing lands on the undo stack: restoring is
// not an undoable action.
func Restore(editor *canvas.Editor, snap *Snapshot) {
	if snap == nil {
		return
	}

	store := editor.Store()

	byID := make(map[string]*models.Shape, len(snap.Shapes))
	for _, shape := range snap.Shapes {
		if shape != nil && shape.ID != "" {
			byID[shape.ID] = shape
		}
	}

	ops := make([]models.ShapeOp, 0, len(snap.ShapeOrder))
	for _, id := range snap.ShapeOrder {
		if shape, ok := byID[id]; ok {
			ops = append(ops, models.ShapeOp{Action: models.OpCreate, Shape: shape})
		}
	}
	store.ApplyOps(ops)

	for _, id := range snap.SelectedShapeIDs {
		store.Select(id)
	}

	scale := snap.Scale
	if scale == 0 {
		scale = 1 // snapshot predates viewport persistence
	}
	store.SetViewport(canvas.Viewport{
		Scale:   scale,
		OffsetX: snap.OffsetX,
		OffsetY: snap.OffsetY,
	})
	if snap.Mode != "" {
		store.SetMode(snap.Mode)
	}
}
