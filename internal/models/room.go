// internal/models/room.go
package models

import (
	"time"

	"github.com/google/uuid"
)

// Visibility controls whether a room appears in the public lobby index.
type Visibility string

const (
	VisibilityPublic  Visibility = "public"
	VisibilityPrivate Visibility = "private"
)

// RoomInfo is the wire snapshot of a room, as sent in roomsList and
// gameStart events. Live room state lives in internal/room; this struct
// carries no synchronization and is safe to marshal from any goroutine.
type RoomInfo struct {
	ID           uuid.UUID  `json:"id"`
	GameType     string     `json:"gameType"`
	Bet          int64      `json:"bet"`
	HostID       uuid.UUID  `json:"hostId"`
	HostUsername string     `json:"hostUsername"`
	PlayersCount int        `json:"playersCount"`
	Visibility   Visibility `json:"visibility"`
	CreatedAt    time.Time  `json:"createdAt"`
}

// PrivateRoomInfo is the pre-join preview for an invitation token.
// Expired invitations still return their metadata with Expired set, so the
// client can render "this link expired" instead of a generic failure.
type PrivateRoomInfo struct {
	GameType     string    `json:"gameType"`
	Bet          int64     `json:"bet"`
	HostUsername string    `json:"hostUsername"`
	IsUsed       bool      `json:"isUsed"`
	PlayersCount int       `json:"playersCount"`
	ExpiresAt    time.Time `json:"expiresAt"`
	Expired      bool      `json:"expired"`
}
