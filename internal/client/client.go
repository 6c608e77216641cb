// Package client is the canvas-side WebSocket transport: one socket per
// lab session, routing inbound events into the presence registries and
// the canvas editor, and serializing outbound commits.
//
// The echo-suppression contract lives HERE, at the dispatch boundary: a
// shape commit whose author id equals the local user is dropped before
// the store ever sees it. The store itself applies whatever it is given.
package client

import (
	"context"
	"fmt"
	"log"
	"net/url"
	"sync"
	"time"

	"canvaslab/internal/canvas"
	"canvaslab/internal/models"
	"canvaslab/internal/presence"

	"github.com/gorilla/websocket"
)

const writeTimeout = 10 * time.Second

// Client is one lab session's connection-scoped context: the socket, the
// editor, and the presence registries live and die with it. Registries
// are never shared across sessions.
type Client struct {
	editor     *canvas.Editor
	cursors    *presence.CursorRegistry
	selections *presence.SelectionRegistry

	// roster is the last presence:snapshot, userID -> display color.
	rosterMu sync.RWMutex
	roster   map[string]string

	conn    *websocket.Conn
	writeMu sync.Mutex

	labID string
	done  chan struct{}
}

// New creates a client around an editor without connecting. Useful for
// offline editing and tests; Connect attaches the socket.
func New(editor *canvas.Editor, labID string) *Client {
	return &Client{
		editor:     editor,
		cursors:    presence.NewCursorRegistry(),
		selections: presence.NewSelectionRegistry(),
		roster:     make(map[string]string),
		labID:      labID,
		done:       make(chan struct{}),
	}
}

// Connect dials the lab's WebSocket endpoint and starts the read loop.
// serverURL is the http(s) base of the server; the session token is
// passed as a connection parameter.
func (c *Client) Connect(ctx context.Context, serverURL, token string) error {
	u, err := url.Parse(serverURL)
	if err != nil {
		return fmt.Errorf("parse server url: %w", err)
	}
	switch u.Scheme {
	case "http":
		u.Scheme = "ws"
	case "https":
		u.Scheme = "wss"
	}
	u.Path = "/ws/lab/" + c.labID
	u.RawQuery = url.Values{"token": {token}}.Encode()

	conn, _, err := websocket.DefaultDialer.DialContext(ctx, u.String(), nil)
	if err != nil {
		return fmt.Errorf("dial lab %s: %w", c.labID, err)
	}
	c.conn = conn

	go c.readLoop()
	return nil
}

// Close tears the session down. Server-side room removal happens on the
// close event; no leave handshake is required.
func (c *Client) Close() error {
	select {
	case <-c.done:
		return nil
	default:
	}
	close(c.done)
	if c.conn != nil {
		return c.conn.Close()
	}
	return nil
}

// Editor returns the canvas editor bound to this session.
func (c *Client) Editor() *canvas.Editor { return c.editor }

// Cursors returns this session's cursor registry.
func (c *Client) Cursors() *presence.CursorRegistry { return c.cursors }

// Selections returns this session's selection registry.
func (c *Client) Selections() *presence.SelectionRegistry { return c.selections }

// Collaborators returns a copy of the roster from the last presence
// snapshot: userID -> display color.
func (c *Client) Collaborators() map[string]string {
	c.rosterMu.RLock()
	defer c.rosterMu.RUnlock()
	out := make(map[string]string, len(c.roster))
	for id, color := range c.roster {
		out[id] = color
	}
	return out
}

func (c *Client) readLoop() {
	defer c.Close()
	for {
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			select {
			case <-c.done:
			default:
				log.Printf("WebSocket read error: %v", err)
			}
			return
		}
		c.Dispatch(data)
	}
}

// Dispatch routes one inbound frame. Malformed frames are dropped
// silently. Shape commits authored by the local user are dropped here;
// this is the echo-suppression boundary the store relies on.
func (c *Client) Dispatch(data []byte) {
	_, event, err := models.DecodeEvent(data)
	if err != nil {
		return
	}

	switch ev := event.(type) {
	case *models.CursorEvent:
		c.cursors.HandleEvent(ev)

	case *models.SelectionEvent:
		c.selections.HandleEvent(ev)

	case *models.CommitEvent:
		if ev.AuthorID == c.editor.AuthorID() {
			return // own edit echoed back; already applied locally
		}
		c.editor.ApplyRemote(&ev.ShapeCommit)

	case *models.PresenceSnapshotEvent:
		c.rosterMu.Lock()
		c.roster = make(map[string]string, len(ev.Users))
		for _, u := range ev.Users {
			c.roster[u.ID] = u.Color
		}
		c.rosterMu.Unlock()
	}
}

// Local edit helpers: mutate through the editor and broadcast the
// resulting commit in one call.

// CreateShape creates a shape locally and broadcasts the commit.
func (c *Client) CreateShape(kind models.ShapeKind, x, y float64) (*models.Shape, error) {
	shape, commit := c.editor.CreateShape(kind, x, y)
	return shape, c.SendCommit(commit)
}

// UpdateShape patches a shape locally and broadcasts the commit.
func (c *Client) UpdateShape(id string, patch *models.ShapePatch) error {
	return c.SendCommit(c.editor.UpdateShape(id, patch))
}

// DeleteShape deletes locally and broadcasts the commit.
func (c *Client) DeleteShape(id string) error {
	return c.SendCommit(c.editor.DeleteShape(id))
}

// Undo reverts the last local action and broadcasts the reverting commit
// so collaborators observe the undo.
func (c *Client) Undo() error {
	return c.SendCommit(c.editor.Undo())
}

// Redo re-applies the last undone local action and broadcasts it.
func (c *Client) Redo() error {
	return c.SendCommit(c.editor.Redo())
}

// SendCommit transmits a shape commit. A nil commit (no-op edit) sends
// nothing.
func (c *Client) SendCommit(commit *models.ShapeCommit) error {
	if commit == nil {
		return nil
	}
	return c.send(models.CommitEvent{
		Type:        models.EventShapeCommit,
		ShapeCommit: *commit,
	})
}

// SendCursorMove reports the local cursor position to peers.
func (c *Client) SendCursorMove(x, y float64) error {
	return c.send(models.CursorEvent{
		Type:   models.EventCursorMove,
		UserID: c.editor.AuthorID(),
		X:      x,
		Y:      y,
	})
}

// SendCursorLeave tells peers the local cursor left the canvas.
func (c *Client) SendCursorLeave() error {
	return c.send(models.CursorEvent{
		Type:   models.EventCursorLeave,
		UserID: c.editor.AuthorID(),
	})
}

// SendSelection reports the local selection wholesale.
func (c *Client) SendSelection(shapeIDs []string) error {
	return c.send(models.SelectionEvent{
		Type:     models.EventSelectionUpdate,
		UserID:   c.editor.AuthorID(),
		ShapeIDs: shapeIDs,
	})
}

// SendSelectionClear reports that the local selection emptied.
func (c *Client) SendSelectionClear() error {
	return c.send(models.SelectionEvent{
		Type:   models.EventSelectionClear,
		UserID: c.editor.AuthorID(),
	})
}

func (c *Client) send(event any) error {
	if c.conn == nil {
		return fmt.Errorf("not connected")
	}
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	c.conn.SetWriteDeadline(time.Now().Add(writeTimeout))
	return c.conn.WriteJSON(event)
}
