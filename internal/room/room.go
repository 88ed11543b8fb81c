// internal/room/room.go
package room

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/duelpoint/arena/internal/models"
)

// Status tracks a room's place in its lifecycle.
type Status string

const (
	// StatusOpen means the room has one occupant and is waiting for a second.
	StatusOpen Status = "open"
	// StatusStarting means both seats filled; the match engine takes over.
	StatusStarting Status = "starting"
)

// Room is a live 1v1 match container. Seat assignment is serialized by a
// compare-and-swap on the occupancy counter, never by a lock shared across
// rooms, so unrelated rooms fill fully in parallel.
type Room struct {
	ID           uuid.UUID
	GameType     string
	Bet          int64
	HostID       uuid.UUID
	HostUsername string
	Visibility   models.Visibility
	TournamentID uuid.UUID // uuid.Nil outside tournaments
	CreatedAt    time.Time

	occupancy atomic.Int32

	mu        sync.Mutex
	guestID   uuid.UUID
	status    Status
	startedAt time.Time
}

func newRoom(gameType string, bet int64, host models.User, visibility models.Visibility) *Room {
	r := &Room{
		ID:           uuid.New(),
		GameType:     gameType,
		Bet:          bet,
		HostID:       host.ID,
		HostUsername: host.Username,
		Visibility:   visibility,
		CreatedAt:    time.Now(),
		status:       StatusOpen,
	}
	r.occupancy.Store(1)
	return r
}

// claimSeat attempts the 1 -> 2 occupancy transition. Exactly one caller
// wins; everyone else sees the room as full.
func (r *Room) claimSeat(guestID uuid.UUID) bool {
	if !r.occupancy.CompareAndSwap(1, 2) {
		return false
	}
	r.mu.Lock()
	r.guestID = guestID
	r.status = StatusStarting
	r.startedAt = time.Now()
	r.mu.Unlock()
	return true
}

func (r *Room) startedBefore(cutoff time.Time) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.status == StatusStarting && r.startedAt.Before(cutoff)
}

// Occupancy returns the current seat count.
func (r *Room) Occupancy() int {
	return int(r.occupancy.Load())
}

// Status returns the room's lifecycle state.
func (r *Room) Status() Status {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.status
}

// GuestID returns the second occupant, or uuid.Nil while the seat is empty.
func (r *Room) GuestID() uuid.UUID {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.guestID
}

// Snapshot renders the wire view of the room.
func (r *Room) Snapshot() models.RoomInfo {
	return models.RoomInfo{
		ID:           r.ID,
		GameType:     r.GameType,
		Bet:          r.Bet,
		HostID:       r.HostID,
		HostUsername: r.HostUsername,
		PlayersCount: r.Occupancy(),
		Visibility:   r.Visibility,
		CreatedAt:    r.CreatedAt,
	}
}
