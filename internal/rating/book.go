// internal/rating/book.go
package rating

import (
	"math"
	"sync"

	"github.com/google/uuid"
)

// Rating is a player's rating on the familiar 1500-based scale.
type Rating struct {
	Elo   int     `json:"elo"`
	RD    float64 `json:"rd"`
	Sigma float64 `json:"sigma"`
}

// Book tracks per-player ratings in memory and applies Glicko2 updates as
// match results come in.
type Book struct {
	mu      sync.Mutex
	ratings map[uuid.UUID]Rating
}

// NewBook returns an empty rating book.
func NewBook() *Book {
	return &Book{ratings: make(map[uuid.UUID]Rating)}
}

// Get returns the player's current rating, defaulting to the baseline for
// players never seen before.
func (b *Book) Get(playerID uuid.UUID) Rating {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.getLocked(playerID)
}

func (b *Book) getLocked(playerID uuid.UUID) Rating {
	if r, ok := b.ratings[playerID]; ok {
		return r
	}
	return Rating{Elo: int(DefaultElo), RD: DefaultRD, Sigma: DefaultSigma}
}

// RecordDuel applies a win for winnerID over loserID to both ratings.
func (b *Book) RecordDuel(winnerID, loserID uuid.UUID) {
	b.mu.Lock()
	defer b.mu.Unlock()

	w := b.getLocked(winnerID)
	l := b.getLocked(loserID)
	wg := toGlicko2(float64(w.Elo), w.RD, w.Sigma)
	lg := toGlicko2(float64(l.Elo), l.RD, l.Sigma)

	newW := update(wg, lg, 1)
	newL := update(lg, wg, 0)

	b.ratings[winnerID] = Rating{
		Elo: int(math.Round(newW.toElo())), RD: newW.phi * glickoScale, Sigma: newW.sigma,
	}
	b.ratings[loserID] = Rating{
		Elo: int(math.Round(newL.toElo())), RD: newL.phi * glickoScale, Sigma: newL.sigma,
	}
}
