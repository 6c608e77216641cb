package models

import (
	"encoding/json"
	"fmt"
)

/*
WIRE PROTOCOL

JSON, one object per WebSocket frame, discriminated by "type". These shapes
are used verbatim for protocol compatibility with existing clients:

	cursor:move        client→server→peers   userId, x, y
	cursor:leave       client→server→peers   userId
	selection:update   client→server→peers   userId, shapeIds
	selection:clear    client→server→peers   userId
	shape:commit       client→server→peers   authorId, commits
	presence:snapshot  server→joining client users: [{id, color}]

Malformed or unknown frames are dropped silently by every receiver.
*/

type EventType string

const (
	EventCursorMove       EventType = "cursor:move"
	EventCursorLeave      EventType = "cursor:leave"
	EventSelectionUpdate  EventType = "selection:update"
	EventSelectionClear   EventType = "selection:clear"
	EventShapeCommit      EventType = "shape:commit"
	EventPresenceSnapshot EventType = "presence:snapshot"
)

// CursorEvent covers cursor:move and cursor:leave. X/Y are canvas
// coordinates and only meaningful for cursor:move.
type CursorEvent struct {
	Type   EventType `json:"type"`
	UserID string    `json:"userId"`
	X      float64   `json:"x,omitempty"`
	Y      float64   `json:"y,omitempty"`
}

// SelectionEvent covers selection:update and selection:clear. ShapeIDs
// replaces the user's previous selection wholesale on update.
type SelectionEvent struct {
	Type     EventType `json:"type"`
	UserID   string    `json:"userId"`
	ShapeIDs []string  `json:"shapeIds,omitempty"`
}

// CommitEvent is the shape:commit frame.
type CommitEvent struct {
	Type EventType `json:"type"`
	ShapeCommit
}

// PresenceUser is one entry in a presence snapshot.
type PresenceUser struct {
	ID    string `json:"id"`
	Color string `json:"color"`
}

// PresenceSnapshotEvent is sent to a joining socket only, listing the
// room's current members so existing collaborators render before any
// cursor event arrives.
type PresenceSnapshotEvent struct {
	Type  EventType      `json:"type"`
	Users []PresenceUser `json:"users"`
}

// envelope is the minimal decode used to discriminate frame types.
type envelope struct {
	Type EventType `json:"type"`
}

// DecodeEvent parses one wire frame into its typed event. An unparseable
// frame or unknown type returns an error; callers drop such frames without
// replying.
func DecodeEvent(data []byte) (EventType, any, error) {
	var env envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return "", nil, fmt.Errorf("decode event envelope: %w", err)
	}

	switch env.Type {
	case EventCursorMove, EventCursorLeave:
		var ev CursorEvent
		if err := json.Unmarshal(data, &ev); err != nil {
			return env.Type, nil, fmt.Errorf("decode cursor event: %w", err)
		}
		return env.Type, &ev, nil

	case EventSelectionUpdate, EventSelectionClear:
		var ev SelectionEvent
		if err := json.Unmarshal(data, &ev); err != nil {
			return env.Type, nil, fmt.Errorf("decode selection event: %w", err)
		}
		return env.Type, &ev, nil

	case EventShapeCommit:
		var ev CommitEvent
		if err := json.Unmarshal(data, &ev); err != nil {
			return env.Type, nil, fmt.Errorf("decode shape commit: %w", err)
		}
		return env.Type, &ev, nil

	case EventPresenceSnapshot:
		var ev PresenceSnapshotEvent
		if err := json.Unmarshal(data, &ev); err != nil {
			return env.Type, nil, fmt.Errorf("decode presence snapshot: %w", err)
		}
		return env.Type, &ev, nil

	default:
		return env.Type, nil, fmt.Errorf("unknown event type %q", env.Type)
	}
}
