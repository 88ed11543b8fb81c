// internal/lobby/broadcaster.go
package lobby

import (
	"context"
	"sync"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"

	"github.com/duelpoint/arena/internal/hub"
	"github.com/duelpoint/arena/internal/protocol"
	"github.com/duelpoint/arena/internal/room"
)

// topicMsg is the closed set of messages a topic worker processes.
type topicMsg interface{ isTopicMsg() }

type subscribeMsg struct{ conn *hub.Conn }
type unsubscribeMsg struct{ conn *hub.Conn }
type publishMsg struct{}

func (subscribeMsg) isTopicMsg()   {}
func (unsubscribeMsg) isTopicMsg() {}
func (publishMsg) isTopicMsg()     {}

// topic owns one game type's subscriber set. All mutations and fan-outs go
// through its single worker goroutine, so every subscriber observes room-list
// snapshots in the order the underlying mutations committed.
type topic struct {
	gameType string
	inbox    chan topicMsg
	subs     map[uuid.UUID]*hub.Conn
}

// Broadcaster fan-outs public room-list deltas per game type.
type Broadcaster struct {
	rooms *room.Store
	ctx   context.Context

	mu     sync.Mutex
	topics map[string]*topic
}

// NewBroadcaster builds a broadcaster over the room store. Topic workers
// stop when parent is cancelled.
func NewBroadcaster(parent context.Context, rooms *room.Store) *Broadcaster {
	return &Broadcaster{
		rooms:  rooms,
		ctx:    parent,
		topics: make(map[string]*topic),
	}
}

func (b *Broadcaster) getOrCreateTopic(gameType string) *topic {
	b.mu.Lock()
	defer b.mu.Unlock()
	tp, ok := b.topics[gameType]
	if !ok {
		tp = &topic{
			gameType: gameType,
			inbox:    make(chan topicMsg, 64),
			subs:     make(map[uuid.UUID]*hub.Conn),
		}
		b.topics[gameType] = tp
		go b.run(tp)
	}
	return tp
}

func (b *Broadcaster) getTopic(gameType string) (*topic, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	tp, ok := b.topics[gameType]
	return tp, ok
}

// Subscribe adds conn to the game type's lobby topic. The new subscriber
// immediately receives the current room-list snapshot.
func (b *Broadcaster) Subscribe(gameType string, conn *hub.Conn) {
	conn.AddTopic(gameType)
	b.send(b.getOrCreateTopic(gameType), subscribeMsg{conn: conn})
}

// Unsubscribe removes conn from the game type's lobby topic.
func (b *Broadcaster) Unsubscribe(gameType string, conn *hub.Conn) {
	conn.RemoveTopic(gameType)
	if tp, ok := b.getTopic(gameType); ok {
		b.send(tp, unsubscribeMsg{conn: conn})
	}
}

// UnsubscribeAll drops every topic subscription held by conn; called on
// disconnect.
func (b *Broadcaster) UnsubscribeAll(conn *hub.Conn) {
	for _, gameType := range conn.Topics() {
		b.Unsubscribe(gameType, conn)
	}
}

// Publish enqueues a room-list snapshot broadcast for the game type. With no
// topic yet there are no subscribers and nothing to do.
func (b *Broadcaster) Publish(gameType string) {
	if tp, ok := b.getTopic(gameType); ok {
		b.send(tp, publishMsg{})
	}
}

// send hands a message to the topic worker. Workers exit on context
// cancellation and stop draining their inboxes; the guard keeps callers from
// blocking on a dead worker during shutdown.
func (b *Broadcaster) send(tp *topic, msg topicMsg) {
	select {
	case tp.inbox <- msg:
	case <-b.ctx.Done():
	}
}

func (b *Broadcaster) run(tp *topic) {
	log.Infof("lobby: topic worker for %q started", tp.gameType)
	for {
		select {
		case <-b.ctx.Done():
			return
		case m := <-tp.inbox:
			switch msg := m.(type) {
			case subscribeMsg:
				tp.subs[msg.conn.PrincipalID] = msg.conn
				msg.conn.Send(protocol.RoomsList(b.rooms.PublicRooms(tp.gameType)))
			case unsubscribeMsg:
				if cur, ok := tp.subs[msg.conn.PrincipalID]; ok && cur == msg.conn {
					delete(tp.subs, msg.conn.PrincipalID)
				}
			case publishMsg:
				ev := protocol.RoomsList(b.rooms.PublicRooms(tp.gameType))
				for _, conn := range tp.subs {
					conn.Send(ev)
				}
			}
		}
	}
}
