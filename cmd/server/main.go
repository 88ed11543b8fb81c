// cmd/server/main.go
package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"time"

	_ "github.com/joho/godotenv/autoload"
	"github.com/sirupsen/logrus"

	"github.com/duelpoint/arena/internal/auth"
	"github.com/duelpoint/arena/internal/database"
	"github.com/duelpoint/arena/internal/handlers"
	"github.com/duelpoint/arena/internal/hub"
	"github.com/duelpoint/arena/internal/invite"
	"github.com/duelpoint/arena/internal/ledger"
	"github.com/duelpoint/arena/internal/lobby"
	"github.com/duelpoint/arena/internal/middleware"
	"github.com/duelpoint/arena/internal/room"
	"github.com/duelpoint/arena/internal/tournament"
)

func main() {
	logger := logrus.New()
	logger.SetLevel(logrus.DebugLevel)

	if priv, pub := os.Getenv("JWT_PRIVATE_KEY_PATH"), os.Getenv("JWT_PUBLIC_KEY_PATH"); priv != "" && pub != "" {
		if err := auth.InitFromPath(priv, pub); err != nil {
			log.Fatalf("failed to load jwt keys: %v", err)
		}
	} else {
		auth.Init()
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	pool, err := database.Connect(ctx)
	if err != nil {
		log.Fatalf("failed to connect to postgres: %v", err)
	}
	defer pool.Close()
	repo := database.NewTournamentRepo(pool)

	intents, err := ledger.ConnectIntentQueue()
	if err != nil {
		log.Fatalf("failed to connect to redis: %v", err)
	}
	balance := ledger.NewBalanceClient()

	inviteTTL := invite.DefaultTTL
	if s := os.Getenv("INVITE_TTL"); s != "" {
		d, err := time.ParseDuration(s)
		if err != nil {
			log.Fatalf("invalid INVITE_TTL %q: %v", s, err)
		}
		inviteTTL = d
	}

	h := hub.New()
	rooms := room.NewStore(balance)
	invites := invite.NewLedger(rooms, inviteTTL)
	broadcaster := lobby.NewBroadcaster(ctx, rooms)
	tm := tournament.NewManager(balance, intents, repo, h, rooms, nil)

	srv := handlers.NewServer(h, rooms, invites, broadcaster, tm, repo)
	rooms.OnLobbyChanged = broadcaster.Publish
	rooms.OnGameStart = srv.PushGameStart

	go invites.Run(ctx, time.Minute)
	go rooms.Run(ctx, time.Minute)
	go tm.Run(ctx, 30*time.Second)

	mux := http.NewServeMux()

	mux.Handle("/ws", middleware.LogMiddleware(logger)(http.HandlerFunc(
		handlers.WSHandler(logger, srv),
	)))

	mux.Handle("/api/tournaments", middleware.LogMiddleware(logger)(http.HandlerFunc(
		handlers.TournamentsHandler(logger, srv),
	)))
	mux.Handle("/api/tournaments/", middleware.LogMiddleware(logger)(http.HandlerFunc(
		handlers.TournamentActionHandler(logger, srv),
	)))

	mux.Handle("/api/private-room/", middleware.LogMiddleware(logger)(http.HandlerFunc(
		handlers.PrivateRoomInfoHandler(logger, srv),
	)))

	addr := ":8080"
	if port := os.Getenv("PORT"); port != "" {
		addr = ":" + port
	}
	logger.Infof("Running on %s", addr)
	if err := http.ListenAndServe(addr, mux); err != nil {
		log.Fatalf("server exited: %v", err)
	}
}
