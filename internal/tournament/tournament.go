// internal/tournament/tournament.go
package tournament

import (
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/duelpoint/arena/internal/models"
)

// Match is one bracket node. Slots fill from seeding (round 0) or from
// child-match winners; the dispatched flag guarantees a node is turned into
// a live room exactly once.
type Match struct {
	ID     uuid.UUID
	Round  int
	Index  int
	Slots  [2]*models.TournamentPlayer
	Winner *models.TournamentPlayer
	RoomID uuid.UUID

	dispatched bool
}

// Tournament is the live single-elimination tournament entity. All access
// goes through the entity mutex; the manager never holds it across I/O.
type Tournament struct {
	mu sync.Mutex

	ID         uuid.UUID
	GameType   string
	EntryFee   int64
	PrizePool  int64
	Status     models.TournamentStatus
	MaxPlayers int
	StartsAt   time.Time
	StartedAt  *time.Time
	WinnerID   *uuid.UUID
	CreatedAt  time.Time

	Players []models.TournamentPlayer
	Rounds  [][]*Match // Rounds[0] is the first round; the last round holds the root
}

func newTournament(gameType string, entryFee, prizePool int64, maxPlayers int, startsAt time.Time) *Tournament {
	return &Tournament{
		ID:         uuid.New(),
		GameType:   gameType,
		EntryFee:   entryFee,
		PrizePool:  prizePool,
		Status:     models.TournamentWaiting,
		MaxPlayers: maxPlayers,
		StartsAt:   startsAt,
		CreatedAt:  time.Now(),
	}
}

// snapshotLocked renders the wire view. Caller holds t.mu.
func (t *Tournament) snapshotLocked() models.Tournament {
	players := make([]models.TournamentPlayer, len(t.Players))
	copy(players, t.Players)
	var matches []models.MatchInfo
	for _, round := range t.Rounds {
		for _, m := range round {
			info := models.MatchInfo{
				ID:           m.ID,
				TournamentID: t.ID,
				Round:        m.Round,
			}
			for _, slot := range m.Slots {
				if slot != nil {
					info.Players = append(info.Players, slot.ID)
				}
			}
			if m.RoomID != uuid.Nil {
				roomID := m.RoomID
				info.RoomID = &roomID
			}
			if m.Winner != nil {
				winnerID := m.Winner.ID
				info.WinnerID = &winnerID
			}
			matches = append(matches, info)
		}
	}
	return models.Tournament{
		ID:         t.ID,
		GameType:   t.GameType,
		EntryFee:   t.EntryFee,
		PrizePool:  t.PrizePool,
		Status:     t.Status,
		Players:    players,
		MaxPlayers: t.MaxPlayers,
		StartsAt:   t.StartsAt,
		StartedAt:  t.StartedAt,
		WinnerID:   t.WinnerID,
		CreatedAt:  t.CreatedAt,
		Matches:    matches,
	}
}

// Snapshot renders the wire view of the tournament.
func (t *Tournament) Snapshot() models.Tournament {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.snapshotLocked()
}

// buildBracketLocked seeds the bracket in registration order, padding an
// uneven roster with bot fillers. Caller holds t.mu.
func (t *Tournament) buildBracketLocked(bots BotProvider) error {
	if len(t.Players) < 2 {
		return fmt.Errorf("cannot seed bracket with %d players", len(t.Players))
	}

	seeds := make([]models.TournamentPlayer, len(t.Players))
	copy(seeds, t.Players)
	for len(seeds)&(len(seeds)-1) != 0 {
		seeds = append(seeds, bots.NewBot(t.GameType))
	}

	numRounds := 0
	for n := len(seeds); n > 1; n >>= 1 {
		numRounds++
	}

	rounds := make([][]*Match, numRounds)
	for r, size := 0, len(seeds)/2; r < numRounds; r, size = r+1, size/2 {
		rounds[r] = make([]*Match, size)
		for i := range rounds[r] {
			rounds[r][i] = &Match{ID: uuid.New(), Round: r, Index: i}
		}
	}
	for i := range seeds {
		rounds[0][i/2].Slots[i%2] = &seeds[i]
	}

	t.Rounds = rounds
	return nil
}

// findMatchLocked locates a bracket node by id. Caller holds t.mu.
func (t *Tournament) findMatchLocked(matchID uuid.UUID) *Match {
	for _, round := range t.Rounds {
		for _, m := range round {
			if m.ID == matchID {
				return m
			}
		}
	}
	return nil
}

// resolveLocked records a match winner and feeds it into the parent node.
// Returns true when the root resolved. Caller holds t.mu.
func (t *Tournament) resolveLocked(m *Match, winner *models.TournamentPlayer) bool {
	m.Winner = winner
	if m.Round == len(t.Rounds)-1 {
		return true
	}
	parent := t.Rounds[m.Round+1][m.Index/2]
	parent.Slots[m.Index%2] = winner
	return false
}

// standingsLocked computes final standings: the champion first, then the
// runner-up, then earlier-round losers grouped by elimination depth. Bot
// fillers are omitted. Caller holds t.mu.
func (t *Tournament) standingsLocked() []standingEntry {
	var out []standingEntry
	root := t.Rounds[len(t.Rounds)-1][0]
	if root.Winner != nil && !root.Winner.Bot {
		out = append(out, standingEntry{player: *root.Winner, place: 1})
	}
	for r := len(t.Rounds) - 1; r >= 0; r-- {
		place := 1<<(len(t.Rounds)-1-r) + 1
		for _, m := range t.Rounds[r] {
			if m.Winner == nil {
				continue
			}
			for _, slot := range m.Slots {
				if slot != nil && slot.ID != m.Winner.ID && !slot.Bot {
					out = append(out, standingEntry{player: *slot, place: place})
				}
			}
		}
	}
	return out
}

type standingEntry struct {
	player models.TournamentPlayer
	place  int
}
