// internal/tournament/dispatcher.go
package tournament

import (
	"context"

	log "github.com/sirupsen/logrus"

	"github.com/duelpoint/arena/internal/models"
	"github.com/duelpoint/arena/internal/protocol"
)

// dispatchJob carries everything needed to turn a ready bracket node into a
// live room once the entity lock is released.
type dispatchJob struct {
	match *Match
	host  models.TournamentPlayer
	guest models.TournamentPlayer
}

// dispatchReady scans the bracket for nodes whose both participants are
// known and unresolved, and turns each into a live room exactly once. The
// per-match dispatched flag makes duplicate readiness triggers no-ops.
// All-bot pairings resolve immediately without a room.
func (m *Manager) dispatchReady(t *Tournament) {
	var jobs []dispatchJob
	var resolvedBots bool

	t.mu.Lock()
	if t.Status != models.TournamentActive {
		t.mu.Unlock()
		return
	}
	for {
		progressed := false
		for _, round := range t.Rounds {
			for _, match := range round {
				if match.dispatched || match.Winner != nil || match.Slots[0] == nil || match.Slots[1] == nil {
					continue
				}
				match.dispatched = true
				if match.Slots[0].Bot && match.Slots[1].Bot {
					// No humans to play it; the first slot advances.
					if t.resolveLocked(match, match.Slots[0]) {
						resolvedBots = true
					}
					progressed = true
					continue
				}
				jobs = append(jobs, dispatchJob{
					match: match,
					host:  *match.Slots[0],
					guest: *match.Slots[1],
				})
			}
		}
		// Bot auto-resolution may have readied a parent node; rescan.
		if !progressed {
			break
		}
	}
	gameType := t.GameType
	tid := t.ID
	var champion *models.TournamentPlayer
	var final *Match
	if resolvedBots {
		final = t.Rounds[len(t.Rounds)-1][0]
		champion = final.Winner
	}
	t.mu.Unlock()

	for _, job := range jobs {
		r := m.rooms.CreateForTournament(tid, gameType, 0, models.User{
			ID: job.host.ID, Username: job.host.Username,
		}, job.guest.ID)

		t.mu.Lock()
		job.match.RoomID = r.ID
		t.mu.Unlock()

		ev := protocol.TournamentMatchReady(protocol.MatchReady{
			TournamentID: tid, MatchID: job.match.ID, GameType: gameType,
		})
		for _, p := range []models.TournamentPlayer{job.host, job.guest} {
			if !p.Bot {
				m.notify.Push(p.ID, ev)
			}
		}
		log.Infof("tournament: match %s dispatched to room %s", job.match.ID, r.ID)
	}

	// A bracket of bots only can resolve to the root with no human input.
	if champion != nil {
		m.finish(context.Background(), t, champion, final)
	}
}
