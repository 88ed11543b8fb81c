// internal/handlers/server.go
package handlers

import (
	"context"
	"os"

	"github.com/google/uuid"

	"github.com/duelpoint/arena/internal/database"
	"github.com/duelpoint/arena/internal/hub"
	"github.com/duelpoint/arena/internal/invite"
	"github.com/duelpoint/arena/internal/lobby"
	"github.com/duelpoint/arena/internal/models"
	"github.com/duelpoint/arena/internal/protocol"
	"github.com/duelpoint/arena/internal/room"
	"github.com/duelpoint/arena/internal/tournament"
)

// TournamentLister is the read side of the REST pull fallback. The postgres
// TournamentRepo implements it; tests substitute a fixture.
type TournamentLister interface {
	List(ctx context.Context, f database.ListFilter) ([]models.Tournament, int64, error)
}

// Server bundles the coordinator's service objects for the HTTP and
// websocket handlers. Constructed once in main with all wiring done.
type Server struct {
	Hub         *hub.Hub
	Rooms       *room.Store
	Invites     *invite.Ledger
	Lobby       *lobby.Broadcaster
	Tournaments *tournament.Manager
	Lister      TournamentLister

	// AppOrigin prefixes invitation URLs (<origin>/private-room/:token).
	AppOrigin string
}

// NewServer reads APP_ORIGIN and bundles the dependencies.
func NewServer(h *hub.Hub, rooms *room.Store, invites *invite.Ledger, lb *lobby.Broadcaster, tm *tournament.Manager, lister TournamentLister) *Server {
	origin := os.Getenv("APP_ORIGIN")
	if origin == "" {
		origin = "http://localhost:3000"
	}
	return &Server{
		Hub:         h,
		Rooms:       rooms,
		Invites:     invites,
		Lobby:       lb,
		Tournaments: tm,
		Lister:      lister,
		AppOrigin:   origin,
	}
}

// inviteURL renders the shareable link for a token.
func (s *Server) inviteURL(token string) string {
	return s.AppOrigin + "/private-room/" + token
}

// PushGameStart delivers the gameStart event to both occupants of a filled
// room. Wired to room.Store.OnGameStart in main.
func (s *Server) PushGameStart(info models.RoomInfo, players []uuid.UUID) {
	for _, p := range players {
		s.Hub.Push(p, protocol.GameStart(info))
	}
}
