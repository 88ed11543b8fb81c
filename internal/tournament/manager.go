// internal/tournament/manager.go
package tournament

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"

	"github.com/duelpoint/arena/internal/ledger"
	"github.com/duelpoint/arena/internal/models"
	"github.com/duelpoint/arena/internal/protocol"
	"github.com/duelpoint/arena/internal/rating"
	"github.com/duelpoint/arena/internal/room"
)

// Notifier pushes lifecycle events. The connection hub is the production
// implementation; tests substitute an event recorder.
type Notifier interface {
	Push(principalID uuid.UUID, ev protocol.Event)
	Broadcast(ev protocol.Event)
}

// Repository persists tournament state so the REST pull fallback reflects
// changes a client missed while disconnected. Persistence failures are
// internal-only: they never reach the client, only the logs.
type Repository interface {
	UpsertTournament(ctx context.Context, t models.Tournament) error
	InsertRegistration(ctx context.Context, tournamentID uuid.UUID, player models.TournamentPlayer) error
	DeleteRegistration(ctx context.Context, tournamentID, playerID uuid.UUID) error
}

// BotProvider supplies bracket fillers for uneven rosters. Bot assignment
// policy belongs to the game-engine side of the platform.
type BotProvider interface {
	NewBot(gameType string) models.TournamentPlayer
}

// DefaultBots names bots after a short random suffix.
type DefaultBots struct{}

func (DefaultBots) NewBot(string) models.TournamentPlayer {
	id := uuid.New()
	return models.TournamentPlayer{ID: id, Username: "bot_" + id.String()[:8], Bot: true}
}

// MinPlayers is the smallest roster that can start at the scheduled
// deadline; below it the tournament cancels instead.
const MinPlayers = 2

// Manager owns every tournament's lifecycle: registration, start, bracket
// progression, finish and cancellation. Per-tournament mutation is
// serialized by the entity mutex; the manager mutex only guards the
// tournament index and the cross-tournament registration map.
type Manager struct {
	balance ledger.BalanceSource
	intents ledger.Sink
	repo    Repository
	notify  Notifier
	rooms   *room.Store
	bots    BotProvider
	ratings *rating.Book

	mu          sync.Mutex
	tournaments map[uuid.UUID]*Tournament
	registered  map[uuid.UUID]uuid.UUID // playerID -> tournament holding a WAITING/ACTIVE registration
}

// NewManager wires the manager's collaborators. repo may be nil when no
// persistence is configured (tests, local runs).
func NewManager(balance ledger.BalanceSource, intents ledger.Sink, repo Repository, notify Notifier, rooms *room.Store, bots BotProvider) *Manager {
	if bots == nil {
		bots = DefaultBots{}
	}
	return &Manager{
		balance:     balance,
		intents:     intents,
		repo:        repo,
		notify:      notify,
		rooms:       rooms,
		bots:        bots,
		ratings:     rating.NewBook(),
		tournaments: make(map[uuid.UUID]*Tournament),
		registered:  make(map[uuid.UUID]uuid.UUID),
	}
}

// Ratings exposes the rating book, e.g. for the profile REST surface.
func (m *Manager) Ratings() *rating.Book {
	return m.ratings
}

// Create opens a WAITING tournament and announces it.
func (m *Manager) Create(ctx context.Context, gameType string, entryFee, prizePool int64, maxPlayers int, startsAt time.Time) (models.Tournament, error) {
	if gameType == "" || maxPlayers < MinPlayers {
		return models.Tournament{}, fmt.Errorf("%w: gameType=%q maxPlayers=%d", models.ErrInvalidTournament, gameType, maxPlayers)
	}
	if entryFee < 0 || prizePool < 0 {
		return models.Tournament{}, fmt.Errorf("%w: entryFee=%d prizePool=%d", models.ErrInvalidTournament, entryFee, prizePool)
	}

	t := newTournament(gameType, entryFee, prizePool, maxPlayers, startsAt)
	m.mu.Lock()
	m.tournaments[t.ID] = t
	m.mu.Unlock()

	snap := t.Snapshot()
	log.Infof("tournament: %s created (%s, %d seats, starts %s)", t.ID, gameType, maxPlayers, startsAt.Format(time.RFC3339))
	m.persist(ctx, snap)
	m.notify.Broadcast(protocol.TournamentCreated(snap))
	return snap, nil
}

// Get returns a snapshot of a live tournament.
func (m *Manager) Get(id uuid.UUID) (models.Tournament, error) {
	m.mu.Lock()
	t, ok := m.tournaments[id]
	m.mu.Unlock()
	if !ok {
		return models.Tournament{}, models.ErrTournamentNotFound
	}
	return t.Snapshot(), nil
}

// Register appends player to the roster. The balance check runs before any
// lock and the exclusivity check is re-validated at commit, so a slow
// balance service never serializes unrelated registrations.
func (m *Manager) Register(ctx context.Context, tournamentID uuid.UUID, player models.User) error {
	m.mu.Lock()
	t, ok := m.tournaments[tournamentID]
	if !ok {
		m.mu.Unlock()
		return models.ErrTournamentNotFound
	}
	if _, held := m.registered[player.ID]; held {
		m.mu.Unlock()
		return models.ErrAlreadyRegistered
	}
	m.mu.Unlock()

	t.mu.Lock()
	fee := t.EntryFee
	t.mu.Unlock()

	available, err := m.balance.Available(ctx, player.ID)
	if err != nil {
		return err
	}
	if available < fee {
		return models.ErrInsufficientFunds
	}

	// Commit: re-validate exclusivity under the manager lock, then mutate
	// the roster under the entity lock.
	m.mu.Lock()
	if _, held := m.registered[player.ID]; held {
		m.mu.Unlock()
		return models.ErrAlreadyRegistered
	}
	t.mu.Lock()
	if t.Status != models.TournamentWaiting {
		t.mu.Unlock()
		m.mu.Unlock()
		return models.ErrNotWaiting
	}
	if len(t.Players) >= t.MaxPlayers {
		t.mu.Unlock()
		m.mu.Unlock()
		return models.ErrTournamentFull
	}
	entry := models.TournamentPlayer{ID: player.ID, Username: player.Username}
	t.Players = append(t.Players, entry)
	m.registered[player.ID] = t.ID
	full := len(t.Players) == t.MaxPlayers
	snap := t.snapshotLocked()
	t.mu.Unlock()
	m.mu.Unlock()

	log.Infof("tournament: %s registered in %s (%d/%d)", player.ID, t.ID, len(snap.Players), snap.MaxPlayers)
	m.emitIntent(ctx, ledger.Intent{
		Kind: ledger.IntentChargeFee, PrincipalID: player.ID, TournamentID: t.ID, Amount: fee,
	})
	if m.repo != nil {
		if err := m.repo.InsertRegistration(ctx, t.ID, entry); err != nil {
			log.Errorf("tournament: failed to persist registration: %v", err)
		}
	}
	m.persist(ctx, snap)
	m.notify.Broadcast(protocol.TournamentUpdated(snap))

	if full {
		if err := m.start(ctx, t); err != nil {
			// The roster stays WAITING; the sweep retries the start.
			log.Errorf("tournament: start of full tournament %s failed: %v", t.ID, err)
		}
	}
	return nil
}

// Unregister removes player from a WAITING roster and schedules an entry-fee
// refund.
func (m *Manager) Unregister(ctx context.Context, tournamentID uuid.UUID, playerID uuid.UUID) error {
	m.mu.Lock()
	t, ok := m.tournaments[tournamentID]
	if !ok {
		m.mu.Unlock()
		return models.ErrTournamentNotFound
	}
	t.mu.Lock()
	if t.Status != models.TournamentWaiting {
		t.mu.Unlock()
		m.mu.Unlock()
		return models.ErrNotWaiting
	}
	idx := -1
	for i, p := range t.Players {
		if p.ID == playerID {
			idx = i
			break
		}
	}
	if idx == -1 {
		t.mu.Unlock()
		m.mu.Unlock()
		return models.ErrNotRegistered
	}
	fee := t.EntryFee
	t.Players = append(t.Players[:idx], t.Players[idx+1:]...)
	delete(m.registered, playerID)
	snap := t.snapshotLocked()
	t.mu.Unlock()
	m.mu.Unlock()

	log.Infof("tournament: %s unregistered from %s", playerID, t.ID)
	m.emitIntent(ctx, ledger.Intent{
		Kind: ledger.IntentRefund, PrincipalID: playerID, TournamentID: t.ID, Amount: fee,
	})
	if m.repo != nil {
		if err := m.repo.DeleteRegistration(ctx, t.ID, playerID); err != nil {
			log.Errorf("tournament: failed to delete registration: %v", err)
		}
	}
	m.persist(ctx, snap)
	m.notify.Broadcast(protocol.TournamentUpdated(snap))
	return nil
}

// start transitions WAITING -> ACTIVE, seeds the bracket and dispatches the
// first round. A bracket-generation failure leaves the tournament WAITING.
func (m *Manager) start(ctx context.Context, t *Tournament) error {
	t.mu.Lock()
	if t.Status != models.TournamentWaiting {
		t.mu.Unlock()
		return nil
	}
	if err := t.buildBracketLocked(m.bots); err != nil {
		t.mu.Unlock()
		return err
	}
	now := time.Now()
	t.Status = models.TournamentActive
	t.StartedAt = &now
	snap := t.snapshotLocked()
	t.mu.Unlock()

	log.Infof("tournament: %s started with %d players", t.ID, len(snap.Players))
	m.persist(ctx, snap)
	for _, p := range snap.Players {
		if !p.Bot {
			m.notify.Push(p.ID, protocol.TournamentStarted(snap))
		}
	}
	m.dispatchReady(t)
	return nil
}

// ReportResult records a match outcome. Duplicate reports for a resolved
// match are no-ops, so bracket advancement is idempotent.
func (m *Manager) ReportResult(ctx context.Context, tournamentID, matchID, winnerID uuid.UUID) error {
	m.mu.Lock()
	t, ok := m.tournaments[tournamentID]
	m.mu.Unlock()
	if !ok {
		return models.ErrTournamentNotFound
	}

	t.mu.Lock()
	if t.Status != models.TournamentActive {
		t.mu.Unlock()
		return fmt.Errorf("%w: %s", models.ErrNotActive, tournamentID)
	}
	match := t.findMatchLocked(matchID)
	if match == nil {
		t.mu.Unlock()
		return fmt.Errorf("%w: %s", models.ErrMatchNotFound, matchID)
	}
	if match.Winner != nil {
		t.mu.Unlock()
		return nil
	}
	var winner *models.TournamentPlayer
	for _, slot := range match.Slots {
		if slot != nil && slot.ID == winnerID {
			winner = slot
			break
		}
	}
	if winner == nil {
		t.mu.Unlock()
		return fmt.Errorf("%w: %s", models.ErrNotMatchPlayer, winnerID)
	}
	rootResolved := t.resolveLocked(match, winner)
	t.mu.Unlock()

	if rootResolved {
		m.finish(ctx, t, winner, match)
		return nil
	}
	m.dispatchReady(t)
	return nil
}

// finish closes out an ACTIVE tournament whose root match resolved.
func (m *Manager) finish(ctx context.Context, t *Tournament, champion *models.TournamentPlayer, final *Match) {
	t.mu.Lock()
	t.Status = models.TournamentFinished
	winnerID := champion.ID
	t.WinnerID = &winnerID
	entries := t.standingsLocked()
	snap := t.snapshotLocked()
	prize := t.PrizePool
	t.mu.Unlock()

	m.releaseRegistrations(snap.Players)

	standings := make([]protocol.Standing, 0, len(entries))
	for _, e := range entries {
		standings = append(standings, protocol.Standing{
			PlayerID: e.player.ID, Username: e.player.Username, Place: e.place,
		})
	}

	log.Infof("tournament: %s finished, winner %s", t.ID, winnerID)
	if !champion.Bot && prize > 0 {
		m.emitIntent(ctx, ledger.Intent{
			Kind: ledger.IntentPayout, PrincipalID: winnerID, TournamentID: t.ID, Amount: prize,
		})
	}
	if loser := otherSlot(final, champion); loser != nil && !champion.Bot && !loser.Bot {
		m.ratings.RecordDuel(champion.ID, loser.ID)
	}
	m.persist(ctx, snap)
	for _, p := range snap.Players {
		if !p.Bot {
			m.notify.Push(p.ID, protocol.TournamentFinished(snap, standings))
		}
	}
	m.notify.Broadcast(protocol.TournamentUpdated(snap))
}

// cancel terminates a WAITING tournament whose deadline passed short of the
// minimum roster, scheduling refunds for everyone registered.
func (m *Manager) cancel(ctx context.Context, t *Tournament) {
	t.mu.Lock()
	if t.Status != models.TournamentWaiting {
		t.mu.Unlock()
		return
	}
	t.Status = models.TournamentCancelled
	fee := t.EntryFee
	snap := t.snapshotLocked()
	t.mu.Unlock()

	m.releaseRegistrations(snap.Players)

	log.Infof("tournament: %s cancelled with %d/%d players", t.ID, len(snap.Players), snap.MaxPlayers)
	for _, p := range snap.Players {
		m.emitIntent(ctx, ledger.Intent{
			Kind: ledger.IntentRefund, PrincipalID: p.ID, TournamentID: t.ID, Amount: fee,
		})
	}
	m.persist(ctx, snap)
	m.notify.Broadcast(protocol.TournamentUpdated(snap))
}

// Run evaluates start conditions on the given interval until ctx is done.
// WAITING tournaments past their scheduled start either begin (roster >=
// MinPlayers) or cancel. Failed starts stay WAITING and are retried on the
// next tick.
func (m *Manager) Run(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			m.SweepDeadlines(ctx, time.Now())
		}
	}
}

// SweepDeadlines applies the start-or-cancel rule to every WAITING
// tournament whose scheduled start is in the past as of now.
func (m *Manager) SweepDeadlines(ctx context.Context, now time.Time) {
	m.mu.Lock()
	due := make([]*Tournament, 0)
	for _, t := range m.tournaments {
		due = append(due, t)
	}
	m.mu.Unlock()

	for _, t := range due {
		t.mu.Lock()
		waiting := t.Status == models.TournamentWaiting
		pastDeadline := !t.StartsAt.IsZero() && now.After(t.StartsAt)
		enough := len(t.Players) >= MinPlayers
		t.mu.Unlock()

		if !waiting || !pastDeadline {
			continue
		}
		if enough {
			if err := m.start(ctx, t); err != nil {
				log.Errorf("tournament: scheduled start of %s failed, will retry: %v", t.ID, err)
			}
		} else {
			m.cancel(ctx, t)
		}
	}
}

// releaseRegistrations frees the cross-tournament exclusivity slots of a
// terminal tournament's roster.
func (m *Manager) releaseRegistrations(players []models.TournamentPlayer) {
	m.mu.Lock()
	for _, p := range players {
		delete(m.registered, p.ID)
	}
	m.mu.Unlock()
}

func (m *Manager) persist(ctx context.Context, snap models.Tournament) {
	if m.repo == nil {
		return
	}
	if err := m.repo.UpsertTournament(ctx, snap); err != nil {
		log.Errorf("tournament: failed to persist %s: %v", snap.ID, err)
	}
}

func (m *Manager) emitIntent(ctx context.Context, intent ledger.Intent) {
	if m.intents == nil || intent.Amount <= 0 {
		return
	}
	if err := m.intents.Emit(ctx, intent); err != nil {
		log.Errorf("tournament: failed to emit %s intent for %s: %v", intent.Kind, intent.PrincipalID, err)
	}
}

func otherSlot(m *Match, p *models.TournamentPlayer) *models.TournamentPlayer {
	for _, slot := range m.Slots {
		if slot != nil && slot.ID != p.ID {
			return slot
		}
	}
	return nil
}
