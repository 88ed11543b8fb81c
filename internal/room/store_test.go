// internal/room/store_test.go
package room

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/duelpoint/arena/internal/models"
)

// fakeBalance answers admission checks from a fixed table.
type fakeBalance struct {
	amounts map[uuid.UUID]int64
	err     error
}

func (f *fakeBalance) Available(_ context.Context, id uuid.UUID) (int64, error) {
	if f.err != nil {
		return 0, f.err
	}
	return f.amounts[id], nil
}

func richBalance() *fakeBalance {
	return &fakeBalance{amounts: map[uuid.UUID]int64{}}
}

func (f *fakeBalance) fund(id uuid.UUID, amount int64) models.User {
	f.amounts[id] = amount
	return models.User{ID: id, Username: "u-" + id.String()[:4]}
}

func newUser(bal *fakeBalance, amount int64) models.User {
	return bal.fund(uuid.New(), amount)
}

func TestCreateAndJoinPublicRoom(t *testing.T) {
	bal := richBalance()
	s := NewStore(bal)
	host := newUser(bal, 100)
	joiner := newUser(bal, 100)

	var started []models.RoomInfo
	var startPlayers []uuid.UUID
	s.OnGameStart = func(info models.RoomInfo, players []uuid.UUID) {
		started = append(started, info)
		startPlayers = players
	}

	r, err := s.Create(context.Background(), "chess", 10, host, models.VisibilityPublic)
	require.NoError(t, err)
	require.Equal(t, 1, r.Occupancy())
	require.Len(t, s.PublicRooms("chess"), 1)

	info, err := s.Join(r.ID, joiner)
	require.NoError(t, err)
	assert.Equal(t, r.ID, info.ID)
	assert.Equal(t, 2, info.PlayersCount)

	// Filled rooms leave the lobby listing.
	assert.Empty(t, s.PublicRooms("chess"))
	require.Len(t, started, 1)
	assert.Equal(t, []uuid.UUID{host.ID, joiner.ID}, startPlayers)
}

func TestCreateRejectsBetOverBalance(t *testing.T) {
	bal := richBalance()
	s := NewStore(bal)
	host := newUser(bal, 5)

	_, err := s.Create(context.Background(), "chess", 10, host, models.VisibilityPublic)
	assert.ErrorIs(t, err, models.ErrInvalidBet)

	_, err = s.Create(context.Background(), "chess", 0, host, models.VisibilityPublic)
	assert.ErrorIs(t, err, models.ErrInvalidBet)
}

func TestCreateSurfacesBalanceOutage(t *testing.T) {
	bal := &fakeBalance{err: models.ErrBalanceUnavailable}
	s := NewStore(bal)

	_, err := s.Create(context.Background(), "chess", 10, models.User{ID: uuid.New()}, models.VisibilityPublic)
	assert.ErrorIs(t, err, models.ErrBalanceUnavailable)
}

func TestJoinErrors(t *testing.T) {
	bal := richBalance()
	s := NewStore(bal)
	host := newUser(bal, 100)

	_, err := s.Join(uuid.New(), newUser(bal, 100))
	assert.ErrorIs(t, err, models.ErrRoomNotFound)

	r, err := s.Create(context.Background(), "chess", 10, host, models.VisibilityPublic)
	require.NoError(t, err)

	_, err = s.Join(r.ID, host)
	assert.ErrorIs(t, err, models.ErrSelfJoin)

	_, err = s.Join(r.ID, newUser(bal, 100))
	require.NoError(t, err)
	_, err = s.Join(r.ID, newUser(bal, 100))
	assert.ErrorIs(t, err, models.ErrRoomFull)
}

// Racing joiners must resolve to exactly one seat; occupancy never exceeds 2.
func TestConcurrentJoinersOneWinner(t *testing.T) {
	bal := richBalance()
	s := NewStore(bal)
	host := newUser(bal, 100)
	r, err := s.Create(context.Background(), "chess", 10, host, models.VisibilityPublic)
	require.NoError(t, err)

	const n = 32
	var wg sync.WaitGroup
	errs := make(chan error, n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := s.Join(r.ID, models.User{ID: uuid.New()})
			errs <- err
		}()
	}
	wg.Wait()
	close(errs)

	wins, fulls := 0, 0
	for err := range errs {
		switch {
		case err == nil:
			wins++
		case errors.Is(err, models.ErrRoomFull):
			fulls++
		default:
			t.Fatalf("unexpected error: %v", err)
		}
	}
	assert.Equal(t, 1, wins)
	assert.Equal(t, n-1, fulls)
	assert.Equal(t, 2, r.Occupancy())
}

func TestAbandonHostDestroysOpenRooms(t *testing.T) {
	bal := richBalance()
	s := NewStore(bal)
	host := newUser(bal, 100)
	joiner := newUser(bal, 100)

	open, err := s.Create(context.Background(), "chess", 10, host, models.VisibilityPublic)
	require.NoError(t, err)
	full, err := s.Create(context.Background(), "checkers", 10, host, models.VisibilityPublic)
	require.NoError(t, err)
	_, err = s.Join(full.ID, joiner)
	require.NoError(t, err)

	s.AbandonHost(host.ID)

	_, ok := s.Get(open.ID)
	assert.False(t, ok, "open room should be torn down on host disconnect")
	_, ok = s.Get(full.ID)
	assert.True(t, ok, "started room is owned by the match engine, not the host")
	assert.Empty(t, s.PublicRooms("chess"))
}

func TestPrivateRoomsNeverListed(t *testing.T) {
	bal := richBalance()
	s := NewStore(bal)
	host := newUser(bal, 100)

	_, err := s.Create(context.Background(), "chess", 10, host, models.VisibilityPrivate)
	require.NoError(t, err)
	assert.Empty(t, s.PublicRooms("chess"))
}

func TestCreateForTournamentIsPreFilled(t *testing.T) {
	bal := richBalance()
	s := NewStore(bal)
	tid := uuid.New()
	host := models.User{ID: uuid.New(), Username: "p1"}
	guest := uuid.New()

	r := s.CreateForTournament(tid, "chess", 0, host, guest)
	assert.Equal(t, 2, r.Occupancy())
	assert.Equal(t, tid, r.TournamentID)
	assert.Equal(t, guest, r.GuestID())
	assert.Empty(t, s.PublicRooms("chess"))
}

func TestSweepReapsStartedRooms(t *testing.T) {
	bal := richBalance()
	s := NewStore(bal)
	host := newUser(bal, 100)
	joiner := newUser(bal, 100)

	started, err := s.Create(context.Background(), "chess", 10, host, models.VisibilityPublic)
	require.NoError(t, err)
	_, err = s.Join(started.ID, joiner)
	require.NoError(t, err)

	open, err := s.Create(context.Background(), "chess", 10, newUser(bal, 100), models.VisibilityPublic)
	require.NoError(t, err)

	tourRoom := s.CreateForTournament(uuid.New(), "chess", 10, host, joiner.ID)

	// Inside the retention window nothing moves.
	s.Sweep(time.Now())
	_, ok := s.Get(started.ID)
	assert.True(t, ok)
	_, ok = s.Get(tourRoom.ID)
	assert.True(t, ok)

	// Past the window started rooms are released; open rooms stay.
	s.Sweep(time.Now().Add(startedRetention + time.Second))
	_, ok = s.Get(started.ID)
	assert.False(t, ok, "started room should be released after retention")
	_, ok = s.Get(tourRoom.ID)
	assert.False(t, ok, "tournament room should be released after retention")
	_, ok = s.Get(open.ID)
	assert.True(t, ok, "open room is not the sweeper's to reap")
	assert.Len(t, s.PublicRooms("chess"), 1)
}
