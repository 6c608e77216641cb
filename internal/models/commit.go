package models

/*
SHAPE COMMITS

A commit is an atomic batch of elementary shape operations produced by one
local action (a drag, a paste, an undo). It is tagged with the author's user
id and a monotonic per-client sequence number, transmitted as one frame, and
applied atomically on every receiver.

Operations form a tagged union rather than an open-ended partial-object
merge, so every operation's effect is total and statically checkable:

	Create   full shape payload, optional z-order index
	Update   shape id + field-level patch
	Delete   shape id only
*/

// OpAction discriminates the elementary operation union.
type OpAction string

const (
	OpCreate OpAction = "create"
	OpUpdate OpAction = "update"
	OpDelete OpAction = "delete"
)

// ShapeOp is one elementary operation inside a commit.
//
// Which fields are meaningful depends on Action: Create carries Shape (and
// optionally Index), Update carries ID+Patch, Delete carries ID only.
type ShapeOp struct {
	Action OpAction    `json:"action"`
	ID     string      `json:"id,omitempty"`
	Shape  *Shape      `json:"shape,omitempty"`
	Patch  *ShapePatch `json:"patch,omitempty"`

	// Index is the z-order position for Create. Nil means append; undo of
	// a delete uses it to put the shape back where it was.
	Index *int `json:"index,omitempty"`
}

// ShapeCommit is the unit of broadcast for canvas edits.
type ShapeCommit struct {
	AuthorID string    `json:"authorId"`
	Seq      uint64    `json:"seq"`
	Ops      []ShapeOp `json:"commits"`
}
