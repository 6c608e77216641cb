package canvas

import (
	"sync/atomic"

	"canvaslab/internal/canvas/history"
	"canvaslab/internal/models"
)

// Editor binds a store to a history engine and an author identity. Every
// local command mutates the store, records its inverse on history, and
// returns the tagged commit the transport should broadcast. The remote
// path bypasses history entirely.
//
// Commits carry a monotonic per-client sequence number; together with the
// author id it lets receivers recognize self-originated echoes across
// reconnects.
type Editor struct {
	store    *Store
	history  *history.Engine
	authorID string
	seq      atomic.Uint64
}

// NewEditor returns an editor for the given author. historyDepth <= 0
// uses the default bound.
func NewEditor(authorID string, historyDepth int) *Editor {
	return &Editor{
		store:    NewStore(),
		history:  history.NewEngine(historyDepth),
		authorID: authorID,
	}
}

// Store exposes the underlying state store for reads and local-only UI
// state (selection, viewport, mode).
func (e *Editor) Store() *Store { return e.store }

// AuthorID returns the local user's id, the one stamped on every commit.
func (e *Editor) AuthorID() string { return e.authorID }

// CreateShape runs the factory, applies the creation locally, records it,
// and returns both the new shape and the commit to broadcast.
func (e *Editor) CreateShape(kind models.ShapeKind, x, y float64) (*models.Shape, *models.ShapeCommit) {
	shape := e.store.CreateShape(kind, x, y)
	ops := []models.ShapeOp{{Action: models.OpCreate, Shape: shape.Clone()}}
	e.history.Record([]models.ShapeOp{{Action: models.OpDelete, ID: shape.ID}})
	return shape, e.commit(ops)
}

// UpdateShape applies a field-level patch locally and returns the commit
// to broadcast. Returns nil when the patch is empty or the id is unknown
// (silent no-op, nothing to broadcast or undo).
func (e *Editor) UpdateShape(id string, patch *models.ShapePatch) *models.ShapeCommit {
	if patch.IsEmpty() {
		return nil
	}
	return e.applyLocal([]models.ShapeOp{{Action: models.OpUpdate, ID: id, Patch: patch}})
}

// DeleteShape deletes locally and returns the commit to broadcast, or nil
// if the id was absent.
func (e *Editor) DeleteShape(id string) *models.ShapeCommit {
	return e.applyLocal([]models.ShapeOp{{Action: models.OpDelete, ID: id}})
}

// DeleteSelection deletes every locally selected shape as one atomic
// commit, so a collaborator observes it as a single action and undo
// restores all of it at once.
func (e *Editor) DeleteSelection() *models.ShapeCommit {
	ids := e.store.SelectedIDs()
	if len(ids) == 0 {
		return nil
	}
	ops := make([]models.ShapeOp, 0, len(ids))
	for _, id := range ids {
		ops = append(ops, models.ShapeOp{Action: models.OpDelete, ID: id})
	}
	return e.applyLocal(ops)
}

// Commit wraps caller-assembled ops into a single local action: applied
// atomically, recorded once on history, returned as one tagged batch.
func (e *Editor) Commit(ops []models.ShapeOp) *models.ShapeCommit {
	return e.applyLocal(ops)
}

// Undo pops the most recent local action, re-applies its inverse through
// the local path, and returns the commit to broadcast so collaborators
// observe the undo like any other edit. Returns nil with an empty stack.
func (e *Editor) Undo() *models.ShapeCommit {
	ops, ok := e.history.PopUndo()
	if !ok {
		return nil
	}
	forward := e.store.ApplyOps(ops)
	e.history.PushRedo(forward)
	return e.commit(ops)
}

// Redo is symmetric with Undo, consuming the redo stack.
func (e *Editor) Redo() *models.ShapeCommit {
	ops, ok := e.history.PopRedo()
	if !ok {
		return nil
	}
	inverse := e.store.ApplyOps(ops)
	e.history.PushUndo(inverse)
	return e.commit(ops)
}

// ApplyRemote applies a peer's commit to the store. Never records history.
// The dispatch boundary is responsible for echo suppression; commits that
// reach this method are applied regardless of author.
func (e *Editor) ApplyRemote(commit *models.ShapeCommit) {
	e.store.ApplyRemoteCommit(commit)
}

func (e *Editor) applyLocal(ops []models.ShapeOp) *models.ShapeCommit {
	inverse := e.store.ApplyOps(ops)
	if len(inverse) == 0 {
		return nil // every op was a no-op
	}
	e.history.Record(inverse)
	return e.commit(ops)
}

func (e *Editor) commit(ops []models.ShapeOp) *models.ShapeCommit {
	return &models.ShapeCommit{
		AuthorID: e.authorID,
		Seq:      e.seq.Add(1),
		Ops:      ops,
	}
}
