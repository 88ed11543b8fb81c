// internal/protocol/messages.go
package protocol

import (
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/duelpoint/arena/internal/models"
)

// CommandType enumerates every inbound client command. The websocket
// handler switches exhaustively over these; adding a command means adding
// a constant here and a case there.
type CommandType string

const (
	CmdJoinLobby          CommandType = "joinLobby"
	CmdLeaveLobby         CommandType = "leaveLobby"
	CmdCreateRoom         CommandType = "createRoom"
	CmdCreatePrivateRoom  CommandType = "createPrivateRoom"
	CmdJoinRoom           CommandType = "joinRoom"
	CmdGetPrivateRoomInfo CommandType = "getPrivateRoomInfo"
	CmdJoinPrivateRoom    CommandType = "joinPrivateRoom"
)

// Command is the inbound message envelope. Only the fields relevant to the
// command's type are set; Validate enforces per-type requirements.
type Command struct {
	Type     CommandType `json:"type"`
	GameType string      `json:"gameType,omitempty"`
	Bet      int64       `json:"bet,omitempty"`
	RoomID   uuid.UUID   `json:"roomId,omitempty"`
	Token    string      `json:"token,omitempty"`
}

// Validate checks that the fields required by the command's type are present.
func (c Command) Validate() error {
	switch c.Type {
	case CmdJoinLobby, CmdLeaveLobby:
		if c.GameType == "" {
			return fmt.Errorf("%s: missing gameType", c.Type)
		}
	case CmdCreateRoom, CmdCreatePrivateRoom:
		if c.GameType == "" {
			return fmt.Errorf("%s: missing gameType", c.Type)
		}
		if c.Bet <= 0 {
			return fmt.Errorf("%s: bet must be positive", c.Type)
		}
	case CmdJoinRoom:
		if c.RoomID == uuid.Nil {
			return fmt.Errorf("%s: missing roomId", c.Type)
		}
	case CmdGetPrivateRoomInfo, CmdJoinPrivateRoom:
		if c.Token == "" {
			return fmt.Errorf("%s: missing token", c.Type)
		}
	default:
		return fmt.Errorf("unknown command type: %q", c.Type)
	}
	return nil
}

// EventType enumerates every outbound event.
type EventType string

const (
	EvtRoomsList            EventType = "roomsList"
	EvtGameStart            EventType = "gameStart"
	EvtPrivateRoomCreated   EventType = "privateRoomCreated"
	EvtPrivateRoomInfo      EventType = "privateRoomInfo"
	EvtError                EventType = "error"
	EvtTournamentCreated    EventType = "tournamentCreated"
	EvtTournamentUpdated    EventType = "tournamentUpdated"
	EvtTournamentStarted    EventType = "tournamentStarted"
	EvtTournamentFinished   EventType = "tournamentFinished"
	EvtTournamentMatchReady EventType = "tournamentMatchReady"
)

// InvitationCreated is the payload of privateRoomCreated.
type InvitationCreated struct {
	Token     string          `json:"invitationToken"`
	URL       string          `json:"invitationUrl"`
	ExpiresAt time.Time       `json:"expiresAt"`
	Room      models.RoomInfo `json:"room"`
}

// MatchReady is the payload of tournamentMatchReady.
type MatchReady struct {
	TournamentID uuid.UUID `json:"tournamentId"`
	MatchID      uuid.UUID `json:"matchId"`
	GameType     string    `json:"gameType"`
}

// Standing is one line of a finished tournament's final standings.
type Standing struct {
	PlayerID uuid.UUID `json:"playerId"`
	Username string    `json:"username"`
	Place    int       `json:"place"`
}

// Event is the outbound message envelope. Exactly one payload field is set
// per event type; use the constructors below rather than filling it by hand.
type Event struct {
	Type       EventType               `json:"type"`
	Rooms      []models.RoomInfo       `json:"rooms,omitempty"`
	Room       *models.RoomInfo        `json:"room,omitempty"`
	Invitation *InvitationCreated      `json:"invitation,omitempty"`
	RoomInfo   *models.PrivateRoomInfo `json:"roomInfo,omitempty"`
	Tournament *models.Tournament      `json:"tournament,omitempty"`
	Match      *MatchReady             `json:"match,omitempty"`
	Standings  []Standing              `json:"standings,omitempty"`
	Message    string                  `json:"message,omitempty"`
}

func RoomsList(rooms []models.RoomInfo) Event {
	if rooms == nil {
		rooms = []models.RoomInfo{}
	}
	return Event{Type: EvtRoomsList, Rooms: rooms}
}

func GameStart(room models.RoomInfo) Event {
	return Event{Type: EvtGameStart, Room: &room}
}

func PrivateRoomCreated(inv InvitationCreated) Event {
	return Event{Type: EvtPrivateRoomCreated, Invitation: &inv}
}

func PrivateRoomInfo(info models.PrivateRoomInfo) Event {
	return Event{Type: EvtPrivateRoomInfo, RoomInfo: &info}
}

func ErrorEvent(msg string) Event {
	return Event{Type: EvtError, Message: msg}
}

func TournamentCreated(t models.Tournament) Event {
	return Event{Type: EvtTournamentCreated, Tournament: &t}
}

func TournamentUpdated(t models.Tournament) Event {
	return Event{Type: EvtTournamentUpdated, Tournament: &t}
}

func TournamentStarted(t models.Tournament) Event {
	return Event{Type: EvtTournamentStarted, Tournament: &t}
}

func TournamentFinished(t models.Tournament, standings []Standing) Event {
	return Event{Type: EvtTournamentFinished, Tournament: &t, Standings: standings}
}

func TournamentMatchReady(m MatchReady) Event {
	return Event{Type: EvtTournamentMatchReady, Match: &m}
}
