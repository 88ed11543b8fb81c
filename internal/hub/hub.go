// internal/hub/hub.go
package hub

import (
	"context"
	"sync"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"

	"github.com/duelpoint/arena/internal/protocol"
)

// Conn is a single principal's live websocket presence. The write pump in
// the handlers package drains Out; Send never blocks the caller.
type Conn struct {
	PrincipalID uuid.UUID
	Username    string
	Cancel      context.CancelFunc
	Out         chan protocol.Event

	mu     sync.Mutex
	topics map[string]struct{}
	closed bool
}

// NewConn builds a connection with a buffered outbound channel.
func NewConn(principalID uuid.UUID, username string, cancel context.CancelFunc) *Conn {
	return &Conn{
		PrincipalID: principalID,
		Username:    username,
		Cancel:      cancel,
		Out:         make(chan protocol.Event, 16),
		topics:      make(map[string]struct{}),
	}
}

// Send pushes an event onto the connection's outbound channel without
// blocking. Events to a closed or backed-up connection are dropped; catch-up
// happens through the REST surface, not a retry queue.
func (c *Conn) Send(ev protocol.Event) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}
	select {
	case c.Out <- ev:
	default:
		log.Warnf("hub: out channel full for user %s, dropped %s", c.PrincipalID, ev.Type)
	}
}

// SendError is a convenience wrapper for error events.
func (c *Conn) SendError(msg string) {
	c.Send(protocol.ErrorEvent(msg))
}

// close shuts the outbound channel and cancels the connection's context.
// Idempotent; safe to call for both supersession and normal disconnect.
func (c *Conn) close() {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	c.closed = true
	c.mu.Unlock()

	close(c.Out)
	if c.Cancel != nil {
		c.Cancel()
	}
}

// AddTopic records a lobby-topic subscription on the connection so it can be
// torn down on disconnect.
func (c *Conn) AddTopic(gameType string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.topics[gameType] = struct{}{}
}

// RemoveTopic forgets a lobby-topic subscription.
func (c *Conn) RemoveTopic(gameType string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.topics, gameType)
}

// Topics returns the current subscription set.
func (c *Conn) Topics() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]string, 0, len(c.topics))
	for t := range c.topics {
		out = append(out, t)
	}
	return out
}

// Hub maps each principal to at most one live connection. A newer
// connection for the same principal supersedes the old one, so no two
// sockets ever receive pushes for one principal concurrently.
type Hub struct {
	mu    sync.Mutex
	conns map[uuid.UUID]*Conn
}

// New returns an empty Hub. Construct once at startup and inject.
func New() *Hub {
	return &Hub{conns: make(map[uuid.UUID]*Conn)}
}

// Register installs conn as the principal's live connection. Any previous
// connection is closed and returned so the caller can log the supersession.
func (h *Hub) Register(conn *Conn) (superseded *Conn) {
	h.mu.Lock()
	old := h.conns[conn.PrincipalID]
	h.conns[conn.PrincipalID] = conn
	h.mu.Unlock()

	if old != nil && old != conn {
		log.Infof("hub: connection for user %s superseded", conn.PrincipalID)
		old.close()
		return old
	}
	return nil
}

// Unregister removes conn only if it is still the principal's current
// connection; a stale disconnect must not evict a successor.
func (h *Hub) Unregister(conn *Conn) {
	h.mu.Lock()
	if h.conns[conn.PrincipalID] == conn {
		delete(h.conns, conn.PrincipalID)
	}
	h.mu.Unlock()
	conn.close()
}

// Resolve returns the principal's live connection, if any.
func (h *Hub) Resolve(principalID uuid.UUID) (*Conn, bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	c, ok := h.conns[principalID]
	return c, ok
}

// Push delivers an event to the principal's live connection if one exists.
// Absent a connection the event is dropped; the underlying state change is
// still visible through the REST endpoints.
func (h *Hub) Push(principalID uuid.UUID, ev protocol.Event) {
	if c, ok := h.Resolve(principalID); ok {
		c.Send(ev)
	}
}

// Broadcast delivers an event to every live connection. Used for
// platform-wide announcements such as tournament list changes.
func (h *Hub) Broadcast(ev protocol.Event) {
	h.mu.Lock()
	conns := make([]*Conn, 0, len(h.conns))
	for _, c := range h.conns {
		conns = append(conns, c)
	}
	h.mu.Unlock()

	for _, c := range conns {
		c.Send(ev)
	}
}
