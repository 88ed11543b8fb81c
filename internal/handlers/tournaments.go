// internal/handlers/tournaments.go
package handlers

import (
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/duelpoint/arena/internal/auth"
	"github.com/duelpoint/arena/internal/database"
	"github.com/duelpoint/arena/internal/models"
)

var validTournamentStatuses = map[models.TournamentStatus]bool{
	models.TournamentWaiting:   true,
	models.TournamentActive:    true,
	models.TournamentFinished:  true,
	models.TournamentCancelled: true,
}

type createTournamentRequest struct {
	GameType   string    `json:"gameType"`
	EntryFee   int64     `json:"entryFee"`
	PrizePool  int64     `json:"prizePool"`
	MaxPlayers int       `json:"maxPlayers"`
	StartsAt   time.Time `json:"startsAt"`
}

type reportResultRequest struct {
	WinnerID uuid.UUID `json:"winnerId"`
}

// TournamentsHandler serves the /api/tournaments collection: GET lists a
// page from the database, POST creates a new tournament.
func TournamentsHandler(logger *logrus.Logger, s *Server) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodGet:
			listTournaments(logger, s, w, r)
		case http.MethodPost:
			createTournament(logger, s, w, r)
		default:
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		}
	}
}

func listTournaments(logger *logrus.Logger, s *Server, w http.ResponseWriter, r *http.Request) {
	page := parsePageRequest(r)
	filter := database.ListFilter{
		GameType: r.URL.Query().Get("gameType"),
		Limit:    page.Limit,
		Offset:   page.Offset,
	}
	if raw := r.URL.Query().Get("status"); raw != "" {
		status := models.TournamentStatus(strings.ToUpper(raw))
		if !validTournamentStatuses[status] {
			http.Error(w, "invalid status filter", http.StatusBadRequest)
			return
		}
		filter.Status = status
	}

	items, total, err := s.Lister.List(r.Context(), filter)
	if err != nil {
		logger.Warnf("tournament list query failed: %v", err)
		http.Error(w, genericRetryMessage, http.StatusServiceUnavailable)
		return
	}
	writeJSON(w, http.StatusOK, PageResponse[models.Tournament]{
		Items:  items,
		Total:  total,
		Limit:  page.Limit,
		Offset: page.Offset,
	})
}

func createTournament(logger *logrus.Logger, s *Server, w http.ResponseWriter, r *http.Request) {
	if _, err := auth.FromRequest(r); err != nil {
		http.Error(w, "invalid token", http.StatusForbidden)
		return
	}

	var req createTournamentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "bad tournament request payload", http.StatusBadRequest)
		return
	}

	t, err := s.Tournaments.Create(r.Context(), req.GameType, req.EntryFee, req.PrizePool, req.MaxPlayers, req.StartsAt)
	if err != nil {
		writeError(logger, w, err)
		return
	}
	writeJSON(w, http.StatusCreated, t)
}

// TournamentActionHandler serves the /api/tournaments/{id}/... subtree:
// GET {id}, POST {id}/register, POST {id}/unregister and
// POST {id}/matches/{matchId}/result.
func TournamentActionHandler(logger *logrus.Logger, s *Server) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		rest := strings.TrimPrefix(r.URL.Path, "/api/tournaments/")
		parts := strings.Split(strings.Trim(rest, "/"), "/")
		if len(parts) == 0 || parts[0] == "" {
			http.Error(w, "missing tournament id", http.StatusBadRequest)
			return
		}
		tournamentID, err := uuid.Parse(parts[0])
		if err != nil {
			http.Error(w, "invalid tournament id", http.StatusBadRequest)
			return
		}

		if len(parts) == 1 {
			if r.Method != http.MethodGet {
				http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
				return
			}
			t, err := s.Tournaments.Get(tournamentID)
			if err != nil {
				writeError(logger, w, err)
				return
			}
			writeJSON(w, http.StatusOK, t)
			return
		}

		if r.Method != http.MethodPost {
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
			return
		}
		user, err := auth.FromRequest(r)
		if err != nil {
			http.Error(w, "invalid token", http.StatusForbidden)
			return
		}

		switch {
		case len(parts) == 2 && parts[1] == "register":
			if err := s.Tournaments.Register(r.Context(), tournamentID, user); err != nil {
				writeError(logger, w, err)
				return
			}
			w.WriteHeader(http.StatusNoContent)

		case len(parts) == 2 && parts[1] == "unregister":
			if err := s.Tournaments.Unregister(r.Context(), tournamentID, user.ID); err != nil {
				writeError(logger, w, err)
				return
			}
			w.WriteHeader(http.StatusNoContent)

		case len(parts) == 4 && parts[1] == "matches" && parts[3] == "result":
			matchID, err := uuid.Parse(parts[2])
			if err != nil {
				http.Error(w, "invalid match id", http.StatusBadRequest)
				return
			}
			var req reportResultRequest
			if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
				http.Error(w, "bad result payload", http.StatusBadRequest)
				return
			}
			if err := s.Tournaments.ReportResult(r.Context(), tournamentID, matchID, req.WinnerID); err != nil {
				writeError(logger, w, err)
				return
			}
			w.WriteHeader(http.StatusNoContent)

		default:
			http.Error(w, "not found", http.StatusNotFound)
		}
	}
}
