// internal/handlers/tournaments_test.go
package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/duelpoint/arena/internal/auth"
	"github.com/duelpoint/arena/internal/database"
	"github.com/duelpoint/arena/internal/ledger"
	"github.com/duelpoint/arena/internal/models"
	"github.com/duelpoint/arena/internal/protocol"
	"github.com/duelpoint/arena/internal/room"
	"github.com/duelpoint/arena/internal/tournament"
)

type fakeLister struct {
	items      []models.Tournament
	total      int64
	err        error
	lastFilter database.ListFilter
}

func (f *fakeLister) List(_ context.Context, filter database.ListFilter) ([]models.Tournament, int64, error) {
	f.lastFilter = filter
	return f.items, f.total, f.err
}

type fakeBalance struct {
	available int64
}

func (f *fakeBalance) Available(context.Context, uuid.UUID) (int64, error) {
	return f.available, nil
}

type fakeSink struct{}

func (fakeSink) Emit(context.Context, ledger.Intent) error { return nil }

type nopNotifier struct{}

func (nopNotifier) Push(uuid.UUID, protocol.Event) {}
func (nopNotifier) Broadcast(protocol.Event)       {}

func newTestServer(balance int64) *Server {
	bal := &fakeBalance{available: balance}
	rooms := room.NewStore(bal)
	tm := tournament.NewManager(bal, fakeSink{}, nil, nopNotifier{}, rooms, nil)
	return &Server{Rooms: rooms, Tournaments: tm, Lister: &fakeLister{}}
}

func authCookie(t *testing.T, user models.User) *http.Cookie {
	t.Helper()
	auth.Init()
	token, err := auth.CreateJWT(user)
	require.NoError(t, err)
	return &http.Cookie{Name: "auth_token", Value: token}
}

func TestListTournamentsPagination(t *testing.T) {
	lister := &fakeLister{
		items: []models.Tournament{{ID: uuid.New(), GameType: "chess", Status: models.TournamentWaiting}},
		total: 42,
	}
	s := newTestServer(1000)
	s.Lister = lister
	h := TournamentsHandler(logrus.New(), s)

	req := httptest.NewRequest(http.MethodGet, "/api/tournaments?limit=5&offset=10&status=waiting&gameType=chess", nil)
	rec := httptest.NewRecorder()
	h(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, models.TournamentWaiting, lister.lastFilter.Status)
	assert.Equal(t, "chess", lister.lastFilter.GameType)
	assert.Equal(t, 5, lister.lastFilter.Limit)
	assert.Equal(t, 10, lister.lastFilter.Offset)

	var page PageResponse[models.Tournament]
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&page))
	assert.Equal(t, int64(42), page.Total)
	assert.Len(t, page.Items, 1)
	assert.Equal(t, 5, page.Limit)
}

func TestListTournamentsDefaultsAndClamp(t *testing.T) {
	lister := &fakeLister{}
	s := newTestServer(1000)
	s.Lister = lister
	h := TournamentsHandler(logrus.New(), s)

	rec := httptest.NewRecorder()
	h(rec, httptest.NewRequest(http.MethodGet, "/api/tournaments?limit=9999", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, maxPageSize, lister.lastFilter.Limit)
	assert.Equal(t, 0, lister.lastFilter.Offset)
}

func TestListTournamentsRejectsBadStatus(t *testing.T) {
	s := newTestServer(1000)
	h := TournamentsHandler(logrus.New(), s)

	rec := httptest.NewRecorder()
	h(rec, httptest.NewRequest(http.MethodGet, "/api/tournaments?status=bogus", nil))

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestCreateTournamentRequiresAuth(t *testing.T) {
	s := newTestServer(1000)
	h := TournamentsHandler(logrus.New(), s)

	body := bytes.NewBufferString(`{"gameType":"chess","entryFee":10,"prizePool":40,"maxPlayers":4,"startsAt":"2030-01-01T00:00:00Z"}`)
	rec := httptest.NewRecorder()
	h(rec, httptest.NewRequest(http.MethodPost, "/api/tournaments", body))

	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestCreateTournament(t *testing.T) {
	s := newTestServer(1000)
	h := TournamentsHandler(logrus.New(), s)
	cookie := authCookie(t, models.User{ID: uuid.New(), Username: "host"})

	body := bytes.NewBufferString(`{"gameType":"chess","entryFee":10,"prizePool":40,"maxPlayers":4,"startsAt":"2030-01-01T00:00:00Z"}`)
	req := httptest.NewRequest(http.MethodPost, "/api/tournaments", body)
	req.AddCookie(cookie)
	rec := httptest.NewRecorder()
	h(rec, req)

	require.Equal(t, http.StatusCreated, rec.Code)
	var created models.Tournament
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&created))
	assert.Equal(t, "chess", created.GameType)
	assert.Equal(t, models.TournamentWaiting, created.Status)

	got, err := s.Tournaments.Get(created.ID)
	require.NoError(t, err)
	assert.Equal(t, created.ID, got.ID)
}

func TestCreateTournamentInvalidParams(t *testing.T) {
	s := newTestServer(1000)
	h := TournamentsHandler(logrus.New(), s)
	cookie := authCookie(t, models.User{ID: uuid.New(), Username: "host"})

	body := bytes.NewBufferString(`{"gameType":"","maxPlayers":1}`)
	req := httptest.NewRequest(http.MethodPost, "/api/tournaments", body)
	req.AddCookie(cookie)
	rec := httptest.NewRecorder()
	h(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestRegisterAndUnregisterEndpoints(t *testing.T) {
	s := newTestServer(1000)
	snap, err := s.Tournaments.Create(context.Background(), "chess", 10, 40, 4, time.Now().Add(time.Hour))
	require.NoError(t, err)

	h := TournamentActionHandler(logrus.New(), s)
	user := models.User{ID: uuid.New(), Username: "p1"}
	cookie := authCookie(t, user)

	req := httptest.NewRequest(http.MethodPost, fmt.Sprintf("/api/tournaments/%s/register", snap.ID), nil)
	req.AddCookie(cookie)
	rec := httptest.NewRecorder()
	h(rec, req)
	require.Equal(t, http.StatusNoContent, rec.Code)

	got, err := s.Tournaments.Get(snap.ID)
	require.NoError(t, err)
	require.Len(t, got.Players, 1)
	assert.Equal(t, user.ID, got.Players[0].ID)

	req = httptest.NewRequest(http.MethodPost, fmt.Sprintf("/api/tournaments/%s/unregister", snap.ID), nil)
	req.AddCookie(cookie)
	rec = httptest.NewRecorder()
	h(rec, req)
	require.Equal(t, http.StatusNoContent, rec.Code)

	got, err = s.Tournaments.Get(snap.ID)
	require.NoError(t, err)
	assert.Empty(t, got.Players)
}

func TestRegisterInsufficientFundsConflict(t *testing.T) {
	s := newTestServer(5) // entry fee below
	snap, err := s.Tournaments.Create(context.Background(), "chess", 10, 40, 4, time.Now().Add(time.Hour))
	require.NoError(t, err)

	h := TournamentActionHandler(logrus.New(), s)
	req := httptest.NewRequest(http.MethodPost, fmt.Sprintf("/api/tournaments/%s/register", snap.ID), nil)
	req.AddCookie(authCookie(t, models.User{ID: uuid.New(), Username: "poor"}))
	rec := httptest.NewRecorder()
	h(rec, req)

	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Contains(t, rec.Body.String(), "insufficient balance")
}

func TestGetTournamentByID(t *testing.T) {
	s := newTestServer(1000)
	snap, err := s.Tournaments.Create(context.Background(), "checkers", 0, 0, 2, time.Now().Add(time.Hour))
	require.NoError(t, err)

	h := TournamentActionHandler(logrus.New(), s)

	rec := httptest.NewRecorder()
	h(rec, httptest.NewRequest(http.MethodGet, "/api/tournaments/"+snap.ID.String(), nil))
	require.Equal(t, http.StatusOK, rec.Code)

	var got models.Tournament
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&got))
	assert.Equal(t, snap.ID, got.ID)

	rec = httptest.NewRecorder()
	h(rec, httptest.NewRequest(http.MethodGet, "/api/tournaments/"+uuid.New().String(), nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestTournamentActionBadPaths(t *testing.T) {
	s := newTestServer(1000)
	h := TournamentActionHandler(logrus.New(), s)
	cookie := authCookie(t, models.User{ID: uuid.New(), Username: "p1"})

	rec := httptest.NewRecorder()
	h(rec, httptest.NewRequest(http.MethodPost, "/api/tournaments/not-a-uuid/register", nil))
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	req := httptest.NewRequest(http.MethodPost, fmt.Sprintf("/api/tournaments/%s/matches/not-a-uuid/result", uuid.New()), nil)
	req.AddCookie(cookie)
	rec = httptest.NewRecorder()
	h(rec, req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	req = httptest.NewRequest(http.MethodPost, fmt.Sprintf("/api/tournaments/%s/frobnicate", uuid.New()), nil)
	req.AddCookie(cookie)
	rec = httptest.NewRecorder()
	h(rec, req)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}
