// internal/room/store.go
package room

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"

	"github.com/duelpoint/arena/internal/ledger"
	"github.com/duelpoint/arena/internal/models"
)

// Store owns all live rooms and the per-game-type public lobby index.
// Construct one at startup, wire the callbacks, and inject it; tests build
// fresh instances for isolation.
type Store struct {
	balance ledger.BalanceSource

	mu     sync.Mutex
	rooms  map[uuid.UUID]*Room
	public map[string]map[uuid.UUID]*Room // gameType -> open public rooms

	// OnLobbyChanged fires after any mutation of a game type's public
	// listing. Typically wired to the lobby broadcaster's Publish.
	OnLobbyChanged func(gameType string)
	// OnGameStart fires when a room's second seat fills, with the final
	// snapshot and both occupants.
	OnGameStart func(info models.RoomInfo, players []uuid.UUID)
}

// NewStore returns an empty Store checking bets against the given balance
// source.
func NewStore(balance ledger.BalanceSource) *Store {
	return &Store{
		balance: balance,
		rooms:   make(map[uuid.UUID]*Room),
		public:  make(map[string]map[uuid.UUID]*Room),
	}
}

// Create opens a room hosted by host. The balance check happens before any
// lock is taken; a bet exceeding the available balance is a validation
// failure, not a resource conflict.
func (s *Store) Create(ctx context.Context, gameType string, bet int64, host models.User, visibility models.Visibility) (*Room, error) {
	if bet <= 0 {
		return nil, models.ErrInvalidBet
	}
	available, err := s.balance.Available(ctx, host.ID)
	if err != nil {
		return nil, err
	}
	if bet > available {
		return nil, models.ErrInvalidBet
	}

	r := newRoom(gameType, bet, host, visibility)

	s.mu.Lock()
	s.rooms[r.ID] = r
	if visibility == models.VisibilityPublic {
		if s.public[gameType] == nil {
			s.public[gameType] = make(map[uuid.UUID]*Room)
		}
		s.public[gameType][r.ID] = r
	}
	s.mu.Unlock()

	log.Infof("room: %s room %s created by %s (%s, bet %d)", visibility, r.ID, host.ID, gameType, bet)
	if visibility == models.VisibilityPublic {
		s.notifyLobby(gameType)
	}
	return r, nil
}

// CreateForTournament builds a room pre-filled with a bracket pairing. It
// never enters the public index and skips the balance check; entry fees were
// charged at registration.
func (s *Store) CreateForTournament(tournamentID uuid.UUID, gameType string, bet int64, host models.User, guestID uuid.UUID) *Room {
	r := newRoom(gameType, bet, host, models.VisibilityPrivate)
	r.TournamentID = tournamentID
	r.claimSeat(guestID)

	s.mu.Lock()
	s.rooms[r.ID] = r
	s.mu.Unlock()

	log.Infof("room: tournament room %s created for %s", r.ID, tournamentID)
	return r
}

// Join seats joiner in the room. The occupancy CAS inside claimSeat is the
// single serialization point; two joiners racing for the last seat resolve
// to exactly one success.
func (s *Store) Join(roomID uuid.UUID, joiner models.User) (models.RoomInfo, error) {
	s.mu.Lock()
	r, ok := s.rooms[roomID]
	s.mu.Unlock()
	if !ok {
		return models.RoomInfo{}, models.ErrRoomNotFound
	}
	if r.HostID == joiner.ID {
		return models.RoomInfo{}, models.ErrSelfJoin
	}
	if !r.claimSeat(joiner.ID) {
		return models.RoomInfo{}, models.ErrRoomFull
	}

	s.mu.Lock()
	if _, still := s.rooms[roomID]; !still {
		// Host tore the room down while the seat was being claimed.
		s.mu.Unlock()
		return models.RoomInfo{}, models.ErrRoomNotFound
	}
	if idx := s.public[r.GameType]; idx != nil {
		delete(idx, r.ID)
	}
	s.mu.Unlock()

	info := r.Snapshot()
	log.Infof("room: %s joined room %s, match starting", joiner.ID, r.ID)
	if r.Visibility == models.VisibilityPublic {
		s.notifyLobby(r.GameType)
	}
	if s.OnGameStart != nil {
		s.OnGameStart(info, []uuid.UUID{r.HostID, joiner.ID})
	}
	return info, nil
}

// Get returns the live room, if present.
func (s *Store) Get(roomID uuid.UUID) (*Room, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.rooms[roomID]
	return r, ok
}

// Remove destroys a room that is still waiting for a second player, e.g.
// when its invitation expires unused. Rooms that already started are left
// to the match engine.
func (s *Store) Remove(roomID uuid.UUID) {
	s.mu.Lock()
	r, ok := s.rooms[roomID]
	if !ok || r.Occupancy() > 1 {
		s.mu.Unlock()
		return
	}
	delete(s.rooms, roomID)
	if idx := s.public[r.GameType]; idx != nil {
		delete(idx, r.ID)
	}
	s.mu.Unlock()

	log.Infof("room: room %s destroyed", roomID)
	if r.Visibility == models.VisibilityPublic {
		s.notifyLobby(r.GameType)
	}
}

// AbandonHost tears down every open room hosted by a disconnecting
// principal. An open room is exclusively owned by its host, so a disconnect
// is an implicit cancellation.
func (s *Store) AbandonHost(hostID uuid.UUID) {
	s.mu.Lock()
	changed := make(map[string]bool)
	for id, r := range s.rooms {
		if r.HostID == hostID && r.Occupancy() == 1 {
			delete(s.rooms, id)
			if idx := s.public[r.GameType]; idx != nil {
				delete(idx, id)
			}
			if r.Visibility == models.VisibilityPublic {
				changed[r.GameType] = true
			}
			log.Infof("room: room %s abandoned by host %s", id, hostID)
		}
	}
	s.mu.Unlock()

	for gameType := range changed {
		s.notifyLobby(gameType)
	}
}

// startedRetention is how long a started room stays resolvable after its
// second seat filled. Invitation lookups and tournament dispatch only need
// the entry briefly; after that the match engine owns the game.
const startedRetention = 5 * time.Minute

// Run sweeps started rooms on the given interval until ctx is done.
func (s *Store) Run(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.Sweep(time.Now())
		}
	}
}

// Sweep drops rooms that started before the retention window as of now.
// Open rooms are never touched; they die through Remove or AbandonHost.
func (s *Store) Sweep(now time.Time) {
	cutoff := now.Add(-startedRetention)

	s.mu.Lock()
	for id, r := range s.rooms {
		if r.startedBefore(cutoff) {
			delete(s.rooms, id)
			log.Infof("room: started room %s released after retention", id)
		}
	}
	s.mu.Unlock()
}

// PublicRooms lists a game type's open public rooms, oldest first.
func (s *Store) PublicRooms(gameType string) []models.RoomInfo {
	s.mu.Lock()
	idx := s.public[gameType]
	out := make([]models.RoomInfo, 0, len(idx))
	for _, r := range idx {
		out = append(out, r.Snapshot())
	}
	s.mu.Unlock()

	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out
}

func (s *Store) notifyLobby(gameType string) {
	if s.OnLobbyChanged != nil {
		s.OnLobbyChanged(gameType)
	}
}
