// internal/models/errors.go
package models

import "errors"

// Typed errors surfaced by the coordinator. Handlers rely on the
// classification helpers below to decide what reaches the client.
var (
	// Validation errors: rejected synchronously, never logged as incidents.
	ErrInvalidBet        = errors.New("invalid bet amount")
	ErrSelfJoin          = errors.New("cannot join your own room")
	ErrInvalidTournament = errors.New("invalid tournament parameters")

	// Resource-state errors: surfaced verbatim as user-facing messages.
	ErrRoomNotFound       = errors.New("room not found")
	ErrRoomFull           = errors.New("room is full")
	ErrInvitationNotFound = errors.New("invitation not found")
	ErrInvitationExpired  = errors.New("invitation has expired")
	ErrInvitationUsed     = errors.New("invitation has already been used")
	ErrTournamentNotFound = errors.New("tournament not found")
	ErrTournamentFull     = errors.New("tournament is full")
	ErrAlreadyRegistered  = errors.New("already registered in another tournament")
	ErrNotRegistered      = errors.New("not registered in this tournament")
	ErrNotWaiting         = errors.New("tournament is no longer accepting registrations")
	ErrNotActive          = errors.New("tournament is not active")
	ErrMatchNotFound      = errors.New("match not found")
	ErrNotMatchPlayer     = errors.New("player is not part of this match")
	ErrInsufficientFunds  = errors.New("insufficient balance")

	// External-dependency errors: retried once, then surfaced generically.
	ErrBalanceUnavailable = errors.New("balance service unavailable")
)

// IsValidation reports whether err is a client-input validation failure.
func IsValidation(err error) bool {
	return errors.Is(err, ErrInvalidBet) || errors.Is(err, ErrSelfJoin) || errors.Is(err, ErrInvalidTournament)
}

// IsResourceState reports whether err reflects entity state the client can
// be told about verbatim (full room, consumed invitation, etc).
func IsResourceState(err error) bool {
	for _, target := range []error{
		ErrRoomNotFound, ErrRoomFull,
		ErrInvitationNotFound, ErrInvitationExpired, ErrInvitationUsed,
		ErrTournamentNotFound, ErrTournamentFull, ErrAlreadyRegistered, ErrNotRegistered,
		ErrNotWaiting, ErrNotActive, ErrMatchNotFound, ErrNotMatchPlayer,
		ErrInsufficientFunds,
	} {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}

// IsExternal reports whether err originates from a collaborator service.
// These must not leak internal detail to the client.
func IsExternal(err error) bool {
	return errors.Is(err, ErrBalanceUnavailable)
}
