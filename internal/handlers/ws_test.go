// internal/handlers/ws_test.go
package handlers

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/coder/websocket"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/duelpoint/arena/internal/hub"
	"github.com/duelpoint/arena/internal/invite"
	"github.com/duelpoint/arena/internal/lobby"
	"github.com/duelpoint/arena/internal/models"
	"github.com/duelpoint/arena/internal/room"
	"github.com/duelpoint/arena/internal/tournament"
)

func newWSTestServer(t *testing.T) (*Server, *httptest.Server) {
	t.Helper()
	bal := &fakeBalance{available: 1000}
	rooms := room.NewStore(bal)
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	s := &Server{
		Hub:         hub.New(),
		Rooms:       rooms,
		Invites:     invite.NewLedger(rooms, time.Minute),
		Lobby:       lobby.NewBroadcaster(ctx, rooms),
		Tournaments: tournament.NewManager(bal, fakeSink{}, nil, nopNotifier{}, rooms, nil),
	}
	ts := httptest.NewServer(WSHandler(logrus.New(), s))
	t.Cleanup(ts.Close)
	return s, ts
}

func dialWS(t *testing.T, ts *httptest.Server, cookie *http.Cookie) *websocket.Conn {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	header := http.Header{}
	header.Set("Cookie", cookie.Name+"="+cookie.Value)
	c, _, err := websocket.Dial(ctx, strings.Replace(ts.URL, "http", "ws", 1), &websocket.DialOptions{
		Subprotocols: []string{"arena"},
		HTTPHeader:   header,
	})
	require.NoError(t, err)
	return c
}

// A reconnecting principal supersedes its old socket; the old socket's
// cleanup must not tear down rooms the still-connected principal hosts.
func TestReconnectKeepsHostedRoomAlive(t *testing.T) {
	s, ts := newWSTestServer(t)
	host := models.User{ID: uuid.New(), Username: "host"}
	cookie := authCookie(t, host)

	c1 := dialWS(t, ts, cookie)
	defer c1.Close(websocket.StatusNormalClosure, "")

	r, err := s.Rooms.Create(context.Background(), "chess", 10, host, models.VisibilityPublic)
	require.NoError(t, err)

	c2 := dialWS(t, ts, cookie)
	defer c2.Close(websocket.StatusNormalClosure, "")

	// The server closes the superseded socket; wait for that to land.
	readCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	_, _, err = c1.Read(readCtx)
	require.Error(t, err, "superseded socket should be closed by the server")

	assert.Never(t, func() bool {
		_, ok := s.Rooms.Get(r.ID)
		return !ok
	}, 300*time.Millisecond, 20*time.Millisecond, "room must survive a reconnect by its host")

	// A real disconnect of the live connection does tear the room down.
	c2.Close(websocket.StatusNormalClosure, "")
	assert.Eventually(t, func() bool {
		_, ok := s.Rooms.Get(r.ID)
		return !ok
	}, 5*time.Second, 20*time.Millisecond, "open room should die with its host's last connection")
}
