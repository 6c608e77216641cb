package collaboration

import (
	"context"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"canvaslab/internal/canvas"
	"canvaslab/internal/models"
	"canvaslab/internal/session"

	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// staticAuth resolves every token to one fixed identity.
type staticAuth struct {
	identity session.Identity
}

func (a staticAuth) Lookup(ctx context.Context, token string) (session.Identity, error) {
	if token == "" {
		return session.Identity{}, session.ErrNotFound
	}
	return a.identity, nil
}

func newHandlerTestServer(t *testing.T, sm *SessionManager) *httptest.Server {
	t.Helper()
	h := NewWebSocketHandler(sm, staticAuth{
		identity: session.Identity{UserID: "joiner", UserName: "Joiner"},
	})
	r := mux.NewRouter()
	r.HandleFunc("/ws/lab/{id}", h.HandleLabConnection)
	srv := httptest.NewServer(r)
	t.Cleanup(srv.Close)
	return srv
}

func dialLab(t *testing.T, srv *httptest.Server, labID, token string) *websocket.Conn {
	t.Helper()
	wsURL := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws/lab/" + labID + "?token=" + token
	conn, resp, err := websocket.DefaultDialer.Dial(wsURL, nil)
	require.NoError(t, err)
	if resp != nil {
		resp.Body.Close()
	}
	t.Cleanup(func() { conn.Close() })
	return conn
}

// A lab can hold far more persisted commits than one session's send
// buffer. The joiner must still receive every one of them, in order,
// before the presence snapshot, and the join must still succeed.
func TestCatchUpReplayMatchesLiveApplication(t *testing.T) {
	const commitCount = 300

	author := canvas.NewEditor("author", 0)
	log := &fakeCommitLog{}
	for i := 0; i < commitCount; i++ {
		_, commit := author.CreateShape(models.KindRectangle, float64(i), float64(i))
		log.replayed = append(log.replayed, commit)
	}

	sm := NewSessionManager()
	sm.SetCommitLog(log)
	sm.Start()
	defer sm.Shutdown()

	srv := newHandlerTestServer(t, sm)
	conn := dialLab(t, srv, "lab1", "tok")

	replayStore := canvas.NewStore()
	commitsSeen := 0
	for {
		conn.SetReadDeadline(time.Now().Add(5 * time.Second))
		_, data, err := conn.ReadMessage()
		require.NoError(t, err)

		evType, event, err := models.DecodeEvent(data)
		require.NoError(t, err)

		if ev, ok := event.(*models.CommitEvent); ok {
			replayStore.ApplyRemoteCommit(&ev.ShapeCommit)
			commitsSeen++
			continue
		}

		// The presence snapshot marks the end of catch-up; every commit
		// precedes it.
		require.Equal(t, models.EventPresenceSnapshot, evType)
		break
	}

	assert.Equal(t, commitCount, commitsSeen, "replay must not be truncated by buffer size")
	assert.Equal(t, commitCount, replayStore.Len())
	assert.Equal(t, author.Store().Order(), replayStore.Order(),
		"replaying the log yields the same canvas as live application")
}

func TestUnauthenticatedSocketRejectedBeforeUpgrade(t *testing.T) {
	sm := NewSessionManager()
	sm.Start()
	defer sm.Shutdown()

	srv := newHandlerTestServer(t, sm)

	wsURL := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws/lab/lab1"
	conn, resp, err := websocket.DefaultDialer.Dial(wsURL, nil)
	require.Error(t, err)
	if resp != nil {
		assert.Equal(t, 401, resp.StatusCode)
		resp.Body.Close()
	}
	require.Nil(t, conn)
	assert.Empty(t, sm.Sessions("lab1"))
}
