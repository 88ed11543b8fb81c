// internal/models/tournament.go
package models

import (
	"time"

	"github.com/google/uuid"
)

// TournamentStatus is the lifecycle state of a tournament.
// Valid transitions: WAITING -> ACTIVE -> FINISHED, WAITING -> CANCELLED.
type TournamentStatus string

const (
	TournamentWaiting   TournamentStatus = "WAITING"
	TournamentActive    TournamentStatus = "ACTIVE"
	TournamentFinished  TournamentStatus = "FINISHED"
	TournamentCancelled TournamentStatus = "CANCELLED"
)

// TournamentPlayer is one seat in a tournament roster. Bot fillers pad odd
// brackets and never receive notifications.
type TournamentPlayer struct {
	ID       uuid.UUID `json:"id"`
	Username string    `json:"username"`
	Bot      bool      `json:"bot,omitempty"`
}

// Tournament is the wire/persistence snapshot of a tournament.
// Players are ordered by registration time; bracket seeding follows that
// order.
type Tournament struct {
	ID         uuid.UUID          `json:"id"`
	GameType   string             `json:"gameType"`
	EntryFee   int64              `json:"entryFee"`
	PrizePool  int64              `json:"prizePool"`
	Status     TournamentStatus   `json:"status"`
	Players    []TournamentPlayer `json:"players"`
	MaxPlayers int                `json:"maxPlayers"`
	StartsAt   time.Time          `json:"startsAt"`
	StartedAt  *time.Time         `json:"startedAt,omitempty"`
	WinnerID   *uuid.UUID         `json:"winnerId,omitempty"`
	CreatedAt  time.Time          `json:"createdAt"`
	// Matches carries the live bracket once the tournament starts. It is a
	// view of in-memory state and is not persisted.
	Matches []MatchInfo `json:"matches,omitempty"`
}

// MatchInfo is the wire snapshot of a bracket node.
type MatchInfo struct {
	ID           uuid.UUID  `json:"id"`
	TournamentID uuid.UUID  `json:"tournamentId"`
	Round        int        `json:"round"`
	Players      []uuid.UUID `json:"players"`
	RoomID       *uuid.UUID `json:"roomId,omitempty"`
	WinnerID     *uuid.UUID `json:"winnerId,omitempty"`
}
