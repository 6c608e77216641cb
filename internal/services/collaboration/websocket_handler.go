package collaboration

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"time"

	"canvaslab/internal/middleware"
	"canvaslab/internal/models"
	"canvaslab/internal/session"

	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"
	"go.opentelemetry.io/otel/attribute"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		// TODO: In production, validate origin properly
		return true
	},
}

// Authenticator resolves a session token to a user identity. Interface
// defined here because this package is the consumer; the redis-backed
// store in internal/session implements it.
type Authenticator interface {
	Lookup(ctx context.Context, token string) (session.Identity, error)
}

// WebSocketHandler upgrades lab connections and runs the join sequence:
// authenticate, assign presence color, replay the commit log, register.
type WebSocketHandler struct {
	sessionManager *SessionManager
	auth           Authenticator
}

// NewWebSocketHandler creates a new WebSocket handler.
func NewWebSocketHandler(sessionManager *SessionManager, auth Authenticator) *WebSocketHandler {
	return &WebSocketHandler{
		sessionManager: sessionManager,
		auth:           auth,
	}
}

// HandleLabConnection handles a WebSocket connection for one lab session.
// The lab id comes from the route; the caller's identity from the session
// token. Unauthenticated sockets are rejected before upgrade, never
// admitted with a null identity.
func (h *WebSocketHandler) HandleLabConnection(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	vars := mux.Vars(r)
	labID := vars["id"]

	token := r.URL.Query().Get("token")
	if token == "" {
		http.Error(w, "missing session token", http.StatusUnauthorized)
		return
	}

	identity, err := h.auth.Lookup(ctx, token)
	if err != nil {
		http.Error(w, "invalid session token", http.StatusUnauthorized)
		return
	}

	ctx, span := middleware.StartSpan(ctx, "WebSocket.Connect",
		attribute.String("lab.id", labID),
		attribute.String("user.id", identity.UserID),
	)
	defer span.End()

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("Failed to upgrade WebSocket: %v", err)
		middleware.AddSpanError(ctx, err)
		return
	}

	// Identity and color are assigned here, before registration: the
	// presence snapshot invariant depends on no session entering a room
	// half-initialized.
	sess := &Session{
		Session: models.NewSession(labID, identity.UserID, identity.UserName),
		User: models.UserInfo{
			ID:    identity.UserID,
			Name:  identity.UserName,
			Color: ColorFor(identity.UserID),
		},
		Conn:    conn,
		Send:    make(chan []byte, 256),
		Manager: h.sessionManager,
	}

	// Replay the commit log directly on the socket before registration.
	// Writing here is safe: the pumps have not started, so nothing else
	// touches the conn, and live traffic only flows once the session is
	// registered. A full replay must never depend on the Send buffer
	// size; an active lab can hold far more commits than it buffers.
	if err := h.sendCommitHistory(sess); err != nil {
		log.Printf("⚠️  Closing session %s, catch-up replay failed: %v", sess.ID, err)
		middleware.AddSpanError(ctx, err)
		conn.Close()
		return
	}

	h.sessionManager.register <- sess

	go sess.WritePump(ctx)
	go sess.ReadPump(ctx)

	log.Printf("✓ WebSocket connection established for lab %s (user: %s)",
		labID, identity.UserName)
}

// sendCommitHistory replays the lab's persisted commits to a new client
// so it converges on the current canvas before live traffic flows. The
// frames are written straight to the socket; a replay error on the
// storage side is logged and skipped (the client still joins live), but
// a write error fails the join since a partial replay would leave the
// client on a wrong canvas.
func (h *WebSocketHandler) sendCommitHistory(sess *Session) error {
	if h.sessionManager.commitLog == nil {
		return nil
	}

	commits, err := h.sessionManager.commitLog.Replay(context.Background(), sess.LabID)
	if err != nil {
		log.Printf("Failed to replay commits for lab %s: %v", sess.LabID, err)
		return nil
	}

	sent := 0
	for _, commit := range commits {
		frame, err := json.Marshal(models.CommitEvent{
			Type:        models.EventShapeCommit,
			ShapeCommit: *commit,
		})
		if err != nil {
			continue
		}
		sess.Conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
		if err := sess.Conn.WriteMessage(websocket.TextMessage, frame); err != nil {
			return fmt.Errorf("write catch-up commit %d of %d: %w", sent+1, len(commits), err)
		}
		sent++
	}

	log.Printf("Sent %d catch-up commits to session %s for lab %s", sent, sess.ID, sess.LabID)
	return nil
}
