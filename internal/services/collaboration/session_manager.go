package collaboration

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"canvaslab/internal/metrics"
	"canvaslab/internal/middleware"
	"canvaslab/internal/models"

	"github.com/gorilla/websocket"
	"go.opentelemetry.io/otel/attribute"
)

/*
ROOM BROADCAST SERVICE

The session manager maps a lab id to its connected sockets and relays
canvas events among them. It owns no shape state; it is a stateless
relay keyed by room membership.

Key mechanics:
1. **sync.RWMutex** guards the room map for concurrent access
2. **One room per lab**: labID -> set of sessions
3. **Sender exclusion**: an inbound frame is relayed byte-for-byte to
   every open socket in the room except its origin, the first layer of
   echo suppression; clients filter by author id as the second
4. **Join sequencing**: identity and color must be assigned before a
   session enters a room; a session without them is rejected, never
   half-admitted

Commit persistence goes through the CommitLog collaborator off the
broadcast hot path, so a slow database never stalls fan-out.
*/

// ErrPresenceIncomplete signals a join-sequencing bug: a session reached
// the presence path without an assigned identity or color.
var ErrPresenceIncomplete = errors.New("session has no assigned identity/color")

// CommitLog is what the manager needs from commit persistence. The
// persister worker pool implements Submit; the GORM repository implements
// Replay for late-joiner catch-up.
type CommitLog interface {
	Submit(labID string, commit *models.ShapeCommit) error
	Replay(ctx context.Context, labID string) ([]*models.ShapeCommit, error)
}

// SessionManager manages all active WebSocket sessions across labs.
type SessionManager struct {
	rooms      map[string]map[*Session]bool // labID -> set of sessions
	register   chan *Session
	unregister chan *Session
	broadcast  chan *BroadcastMessage
	mu         sync.RWMutex

	commitLog CommitLog

	done chan struct{}
}

// Session represents one active WebSocket connection admitted to a lab.
type Session struct {
	*models.Session
	User    models.UserInfo // resolved identity + presence color; assigned before registration
	Conn    *websocket.Conn
	Send    chan []byte // Buffered channel for outbound messages
	Manager *SessionManager
}

// BroadcastMessage is one serialized frame to fan out to a lab's room.
type BroadcastMessage struct {
	LabID     string
	EventType models.EventType
	Message   []byte
	Sender    *Session // Skip this session when broadcasting
}

// NewSessionManager creates a new session manager.
func NewSessionManager() *SessionManager {
	return &SessionManager{
		rooms:      make(map[string]map[*Session]bool),
		register:   make(chan *Session),
		unregister: make(chan *Session),
		broadcast:  make(chan *BroadcastMessage, 256),
		done:       make(chan struct{}),
	}
}

// SetCommitLog wires the commit persistence collaborator.
func (sm *SessionManager) SetCommitLog(cl CommitLog) {
	sm.commitLog = cl
}

// Start begins the session manager event loop.
func (sm *SessionManager) Start() {
	log.Println("🔄 Starting WebSocket session manager...")

	go func() {
		for {
			select {
			case <-sm.done:
				log.Println("Session manager shutting down...")
				return

			case session := <-sm.register:
				if err := sm.Register(session); err != nil {
					log.Printf("⚠️  Rejecting session %s: %v", session.ID, err)
					if session.Conn != nil {
						session.Conn.Close()
					}
				}

			case session := <-sm.unregister:
				sm.Unregister(session)

			case msg := <-sm.broadcast:
				sm.handleBroadcast(msg)
			}
		}
	}()

	go sm.cleanupLoop()

	log.Println("✓ WebSocket session manager started")
}

// Register validates join sequencing and admits the session to its lab's
// room. A session lacking identity or color never enters the room set.
func (sm *SessionManager) Register(session *Session) error {
	if session.User.ID == "" || session.User.Color == "" {
		return ErrPresenceIncomplete
	}

	sm.mu.Lock()
	if sm.rooms[session.LabID] == nil {
		sm.rooms[session.LabID] = make(map[*Session]bool)
		metrics.ActiveRooms.Inc()
	}
	sm.rooms[session.LabID][session] = true
	total := len(sm.rooms[session.LabID])
	sm.mu.Unlock()

	metrics.ActiveSessions.Inc()
	log.Printf("  Session %s joined lab %s as %s (total: %d users)",
		session.ID, session.LabID, session.User.ID, total)

	// The joiner learns who is already here before any cursor event
	// arrives. Peers learn about the joiner from their first cursor:move.
	if err := sm.SendPresenceSnapshot(session); err != nil {
		return fmt.Errorf("presence snapshot for session %s: %w", session.ID, err)
	}
	return nil
}

// Unregister removes a session from its room. Closing a socket drops the
// client immediately; no leave handshake is required for correctness.
func (sm *SessionManager) Unregister(session *Session) {
	sm.mu.Lock()
	sessions, ok := sm.rooms[session.LabID]
	if !ok {
		sm.mu.Unlock()
		return
	}
	if _, ok := sessions[session]; !ok {
		sm.mu.Unlock()
		return
	}
	delete(sessions, session)
	close(session.Send)
	remaining := len(sessions)
	if remaining == 0 {
		delete(sm.rooms, session.LabID)
		metrics.ActiveRooms.Dec()
	}
	sm.mu.Unlock()

	metrics.ActiveSessions.Dec()
	log.Printf("  Session %s left lab %s (remaining: %d users)",
		session.ID, session.LabID, remaining)

	// Synthesize leave presence so peers drop the cursor and selection
	// instead of showing them stale until a timeout.
	leaveCursor, _ := json.Marshal(models.CursorEvent{
		Type: models.EventCursorLeave, UserID: session.User.ID,
	})
	clearSel, _ := json.Marshal(models.SelectionEvent{
		Type: models.EventSelectionClear, UserID: session.User.ID,
	})
	sm.tryEnqueue(&BroadcastMessage{LabID: session.LabID, EventType: models.EventCursorLeave, Message: leaveCursor})
	sm.tryEnqueue(&BroadcastMessage{LabID: session.LabID, EventType: models.EventSelectionClear, Message: clearSel})
}

func (sm *SessionManager) enqueue(msg *BroadcastMessage) {
	select {
	case sm.broadcast <- msg:
	case <-sm.done:
	}
}

// tryEnqueue queues a frame without ever blocking, dropping it when the
// broadcast queue is full. Unregister runs on the event loop goroutine
// itself (via the unregister channel), so a blocking send there would
// deadlock the hub against its own queue. Dropped presence frames are
// acceptable: a stale cursor disappears on the next presence event, and
// the cleanup ticker backstops the rest.
func (sm *SessionManager) tryEnqueue(msg *BroadcastMessage) {
	select {
	case sm.broadcast <- msg:
	case <-sm.done:
	default:
		log.Printf("⚠️  Broadcast queue full, dropping %s frame", msg.EventType)
	}
}

// handleBroadcast writes one serialized frame to every open socket in the
// room, excluding the sender when set.
//
// Sends happen under the room read lock. Unregister closes a session's
// Send under the write lock after removing it from the room, so a send
// here can never race a channel close: any session still visible in the
// room set has an open channel. The sends are non-blocking, so the lock
// hold time stays bounded.
func (sm *SessionManager) handleBroadcast(msg *BroadcastMessage) {
	sm.mu.RLock()
	defer sm.mu.RUnlock()

	for session := range sm.rooms[msg.LabID] {
		// The origin never receives its own event back.
		if msg.Sender != nil && session == msg.Sender {
			continue
		}

		select {
		case session.Send <- msg.Message:
			metrics.BroadcastFrames.WithLabelValues(string(msg.EventType)).Inc()
		default:
			// Buffer full - connection is slow/dead
			log.Printf("⚠️  Session %s buffer full, closing connection", session.ID)
			go sm.Unregister(session)
		}
	}
}

// BroadcastToLab fans one already-encoded frame out to the lab's room,
// excluding the sender when provided. The frame is serialized exactly
// once for the whole room.
func (sm *SessionManager) BroadcastToLab(labID string, eventType models.EventType, message []byte, sender *Session) {
	sm.enqueue(&BroadcastMessage{
		LabID:     labID,
		EventType: eventType,
		Message:   message,
		Sender:    sender,
	})
}

// PresenceSnapshot builds the presence:snapshot event for a joining
// session: every current member of the lab except the joiner. Fails if a
// member lacks identity or color: such a member should never have been
// admitted, so this signals a join-sequencing bug rather than a condition
// to handle reactively.
func (sm *SessionManager) PresenceSnapshot(labID string, joiner *Session) (*models.PresenceSnapshotEvent, error) {
	sm.mu.RLock()
	defer sm.mu.RUnlock()

	users := make([]models.PresenceUser, 0, len(sm.rooms[labID]))
	for session := range sm.rooms[labID] {
		if session == joiner {
			continue
		}
		if session.User.ID == "" || session.User.Color == "" {
			return nil, fmt.Errorf("lab %s member %s: %w", labID, session.ID, ErrPresenceIncomplete)
		}
		users = append(users, models.PresenceUser{ID: session.User.ID, Color: session.User.Color})
	}

	return &models.PresenceSnapshotEvent{Type: models.EventPresenceSnapshot, Users: users}, nil
}

// SendPresenceSnapshot delivers the snapshot to the joining socket only.
func (sm *SessionManager) SendPresenceSnapshot(session *Session) error {
	snap, err := sm.PresenceSnapshot(session.LabID, session)
	if err != nil {
		return err
	}
	data, err := json.Marshal(snap)
	if err != nil {
		return fmt.Errorf("marshal presence snapshot: %w", err)
	}
	select {
	case session.Send <- data:
		return nil
	default:
		return fmt.Errorf("session %s send buffer full", session.ID)
	}
}

// Sessions returns all active sessions for a lab.
func (sm *SessionManager) Sessions(labID string) []*Session {
	sm.mu.RLock()
	defer sm.mu.RUnlock()

	sessions := sm.rooms[labID]
	result := make([]*Session, 0, len(sessions))
	for session := range sessions {
		result = append(result, session)
	}
	return result
}

// cleanupLoop periodically removes sessions whose pong handling has
// stopped updating LastActiveAt. Backstop only; the read deadline in
// ReadPump is what normally tears down dead connections.
func (sm *SessionManager) cleanupLoop() {
	ticker := time.NewTicker(30 * time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-sm.done:
			return
		case <-ticker.C:
			sm.cleanup()
		}
	}
}

func (sm *SessionManager) cleanup() {
	const timeout = 5 * time.Minute

	sm.mu.RLock()
	var stale []*Session
	now := time.Now()
	for _, sessions := range sm.rooms {
		for session := range sessions {
			if now.Sub(session.LastActiveAt) > timeout {
				stale = append(stale, session)
			}
		}
	}
	sm.mu.RUnlock()

	for _, session := range stale {
		log.Printf("  Cleaning up inactive session %s", session.ID)
		sm.Unregister(session)
		if session.Conn != nil {
			session.Conn.Close()
		}
	}
}

// Shutdown gracefully closes all connections.
func (sm *SessionManager) Shutdown() {
	log.Println("🛑 Shutting down session manager...")

	close(sm.done)

	sm.mu.Lock()
	defer sm.mu.Unlock()

	for _, sessions := range sm.rooms {
		for session := range sessions {
			close(session.Send)
			if session.Conn != nil {
				session.Conn.Close()
			}
		}
	}

	sm.rooms = make(map[string]map[*Session]bool)
	log.Println("✓ Session manager shutdown complete")
}

// Session methods

// ReadPump reads frames from the socket, validates them, relays them to
// the room, and hands shape commits to the commit log. Malformed or
// unknown frames are dropped silently, no crash and no reply. A frame whose
// claimed identity does not match the session's resolved identity is also
// dropped, so clients cannot impersonate each other through the relay.
func (s *Session) ReadPump(ctx context.Context) {
	defer func() {
		s.Manager.Unregister(s)
		s.Conn.Close()
	}()

	s.Conn.SetReadDeadline(time.Now().Add(60 * time.Second))
	s.Conn.SetPongHandler(func(string) error {
		s.Conn.SetReadDeadline(time.Now().Add(60 * time.Second))
		s.LastActiveAt = time.Now()
		return nil
	})

	for {
		_, message, err := s.Conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				log.Printf("WebSocket error: %v", err)
			}
			break
		}

		s.LastActiveAt = time.Now()
		s.handleFrame(ctx, message)
	}
}

func (s *Session) handleFrame(ctx context.Context, message []byte) {
	eventType, event, err := models.DecodeEvent(message)
	if err != nil {
		metrics.DroppedFrames.Inc()
		return
	}

	msgCtx, span := middleware.StartSpan(ctx, "WebSocket.ProcessFrame",
		attribute.String("session.id", s.ID),
		attribute.String("lab.id", s.LabID),
		attribute.String("event.type", string(eventType)),
		attribute.Int("frame.size", len(message)),
	)
	defer span.End()

	switch ev := event.(type) {
	case *models.CursorEvent:
		if ev.UserID != s.User.ID {
			metrics.DroppedFrames.Inc()
			return
		}

	case *models.SelectionEvent:
		if ev.UserID != s.User.ID {
			metrics.DroppedFrames.Inc()
			return
		}

	case *models.CommitEvent:
		if ev.AuthorID != s.User.ID {
			metrics.DroppedFrames.Inc()
			return
		}
		if s.Manager.commitLog != nil {
			if err := s.Manager.commitLog.Submit(s.LabID, &ev.ShapeCommit); err != nil {
				log.Printf("Failed to persist commit: %v", err)
				middleware.AddSpanError(msgCtx, err)
			}
		}

	default:
		// presence:snapshot is server→client only; anything else is noise
		metrics.DroppedFrames.Inc()
		return
	}

	// Relay the inbound bytes as-is to every room member except this
	// sender.
	s.Manager.BroadcastToLab(s.LabID, eventType, message, s)
}

// WritePump writes queued frames to the socket from its own goroutine, so
// a slow client never blocks the broadcast loop.
func (s *Session) WritePump(ctx context.Context) {
	ticker := time.NewTicker(54 * time.Second) // Ping interval
	defer func() {
		ticker.Stop()
		s.Conn.Close()
	}()

	for {
		select {
		case message, ok := <-s.Send:
			s.Conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
			if !ok {
				// Channel closed
				s.Conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}

			if err := s.Conn.WriteMessage(websocket.TextMessage, message); err != nil {
				return
			}

			// Drain additional queued frames; one frame per write keeps
			// the one-JSON-object-per-frame protocol contract.
			n := len(s.Send)
			for i := 0; i < n; i++ {
				if err := s.Conn.WriteMessage(websocket.TextMessage, <-s.Send); err != nil {
					return
				}
			}

		case <-ticker.C:
			s.Conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
			if err := s.Conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
