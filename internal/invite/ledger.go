// internal/invite/ledger.go
package invite

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"sync"
	"time"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"

	"github.com/duelpoint/arena/internal/models"
	"github.com/duelpoint/arena/internal/room"
)

// DefaultTTL is the invitation lifetime measured from issuance, not from
// first view.
const DefaultTTL = 15 * time.Minute

// retention keeps expired invitations describable for a while after their
// TTL so the preview page can say "this link expired" rather than 404.
const retention = time.Hour

// Invitation is a one-time private-room admission ticket. Room metadata is
// denormalized at issue time so the preview survives the room itself.
type Invitation struct {
	Token        string
	RoomID       uuid.UUID
	GameType     string
	Bet          int64
	HostUsername string
	IssuedAt     time.Time
	ExpiresAt    time.Time

	used  bool
	swept bool
}

// Ledger issues, describes, and single-uses invitation tokens.
type Ledger struct {
	rooms *room.Store
	ttl   time.Duration

	mu      sync.Mutex
	invites map[string]*Invitation
}

// NewLedger builds a ledger over the given room store. A non-positive ttl
// falls back to DefaultTTL.
func NewLedger(rooms *room.Store, ttl time.Duration) *Ledger {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Ledger{
		rooms:   rooms,
		ttl:     ttl,
		invites: make(map[string]*Invitation),
	}
}

// newToken returns a 128-bit random hex token. The token is the sole bearer
// credential for the room, so it must be unguessable.
func newToken() (string, error) {
	var b [16]byte
	if _, err := rand.Read(b[:]); err != nil {
		return "", err
	}
	return hex.EncodeToString(b[:]), nil
}

// Issue creates an unused invitation for the room.
func (l *Ledger) Issue(r *room.Room) (*Invitation, error) {
	token, err := newToken()
	if err != nil {
		return nil, err
	}
	now := time.Now()
	inv := &Invitation{
		Token:        token,
		RoomID:       r.ID,
		GameType:     r.GameType,
		Bet:          r.Bet,
		HostUsername: r.HostUsername,
		IssuedAt:     now,
		ExpiresAt:    now.Add(l.ttl),
	}

	l.mu.Lock()
	l.invites[token] = inv
	l.mu.Unlock()

	log.Infof("invite: issued token for room %s, expires %s", r.ID, inv.ExpiresAt.Format(time.RFC3339))
	return inv, nil
}

// Describe returns the pre-join preview for a token. It never consumes the
// token, and an expired token answers with its metadata and Expired=true
// instead of an error.
func (l *Ledger) Describe(token string) (models.PrivateRoomInfo, error) {
	l.mu.Lock()
	inv, ok := l.invites[token]
	if !ok {
		l.mu.Unlock()
		return models.PrivateRoomInfo{}, models.ErrInvitationNotFound
	}
	info := models.PrivateRoomInfo{
		GameType:     inv.GameType,
		Bet:          inv.Bet,
		HostUsername: inv.HostUsername,
		IsUsed:       inv.used,
		ExpiresAt:    inv.ExpiresAt,
		Expired:      time.Now().After(inv.ExpiresAt),
	}
	roomID := inv.RoomID
	used := inv.used
	l.mu.Unlock()

	if r, ok := l.rooms.Get(roomID); ok {
		info.PlayersCount = r.Occupancy()
	} else if used {
		// Room already handed to the match engine.
		info.PlayersCount = 2
	}
	return info, nil
}

// Redeem consumes the token and seats the redeemer. The unused -> used flip
// happens before the join and is never rolled back: a token that lost the
// seat race cannot be replayed as a joining mechanism.
func (l *Ledger) Redeem(token string, redeemer models.User) (models.RoomInfo, error) {
	l.mu.Lock()
	inv, ok := l.invites[token]
	if !ok {
		l.mu.Unlock()
		return models.RoomInfo{}, models.ErrInvitationNotFound
	}
	if time.Now().After(inv.ExpiresAt) {
		l.mu.Unlock()
		return models.RoomInfo{}, models.ErrInvitationExpired
	}
	if inv.used {
		l.mu.Unlock()
		return models.RoomInfo{}, models.ErrInvitationUsed
	}
	inv.used = true
	roomID := inv.RoomID
	l.mu.Unlock()

	info, err := l.rooms.Join(roomID, redeemer)
	if err != nil {
		log.Warnf("invite: token for room %s consumed but join failed: %v", roomID, err)
		return models.RoomInfo{}, err
	}
	return info, nil
}

// Run sweeps expired invitations on the given interval until ctx is done.
// The sweep tears down rooms whose invitations expired unused, so private
// rooms die even with no further client activity.
func (l *Ledger) Run(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			l.Sweep(time.Now())
		}
	}
}

// Sweep expires invitations whose TTL has elapsed as of now and drops
// entries past the describe-retention window.
func (l *Ledger) Sweep(now time.Time) {
	var teardown []uuid.UUID

	l.mu.Lock()
	for token, inv := range l.invites {
		if !now.After(inv.ExpiresAt) {
			continue
		}
		if !inv.swept {
			inv.swept = true
			if !inv.used {
				teardown = append(teardown, inv.RoomID)
			}
		}
		if now.After(inv.ExpiresAt.Add(retention)) {
			delete(l.invites, token)
		}
	}
	l.mu.Unlock()

	for _, roomID := range teardown {
		log.Infof("invite: invitation for room %s expired unused, tearing room down", roomID)
		l.rooms.Remove(roomID)
	}
}
