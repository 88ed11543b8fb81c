// internal/handlers/ws.go
package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/coder/websocket"
	"github.com/sirupsen/logrus"

	"github.com/duelpoint/arena/internal/auth"
	"github.com/duelpoint/arena/internal/hub"
	"github.com/duelpoint/arena/internal/middleware"
	"github.com/duelpoint/arena/internal/models"
	"github.com/duelpoint/arena/internal/protocol"
)

// Custom close codes for the arena websocket.
const (
	BadSubprotocolError = 3000 // client connected with an unsupported subprotocol
	AuthFailedError     = 3001 // auth_token missing, invalid or expired
)

// WSHandler accepts the real-time connection, registers the principal in
// the hub (superseding any older socket) and runs the read/write pumps.
func WSHandler(logger *logrus.Logger, s *Server) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		remoteAddr := r.RemoteAddr

		c, err := websocket.Accept(w, r, &websocket.AcceptOptions{
			Subprotocols:   []string{"arena"},
			OriginPatterns: []string{"*"}, // Adjust in production
		})
		if err != nil {
			logger.Warnf("websocket accept error: %v", err)
			return
		}
		defer c.Close(websocket.StatusInternalError, "handler finished")

		if c.Subprotocol() != "arena" {
			c.Close(BadSubprotocolError, "client must speak the arena subprotocol")
			return
		}

		user, err := auth.FromRequest(r)
		if err != nil {
			logger.Warnf("websocket auth failed from %s: %v", remoteAddr, err)
			c.Close(AuthFailedError, "authentication failed")
			return
		}

		ctx, cancel := context.WithCancel(r.Context())
		conn := hub.NewConn(user.ID, user.Username, cancel)
		s.Hub.Register(conn)
		middleware.LogWSConnect(logger, user.ID, remoteAddr)

		go writePump(ctx, c, conn, logger)
		readPump(ctx, c, conn, s, logger)

		// ---- Cleanup after readPump exits ----
		middleware.LogWSDisconnect(logger, user.ID, remoteAddr, ctx.Err())
		s.Lobby.UnsubscribeAll(conn)
		// A superseded connection exits its pumps while the principal is
		// still live on the successor; only a real disconnect abandons
		// the principal's open rooms.
		if cur, ok := s.Hub.Resolve(user.ID); !ok || cur == conn {
			s.Rooms.AbandonHost(user.ID)
		}
		s.Hub.Unregister(conn)
	}
}

// readPump decodes inbound commands until the connection closes.
func readPump(ctx context.Context, c *websocket.Conn, conn *hub.Conn, s *Server, logger *logrus.Logger) {
	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		typ, msg, err := c.Read(ctx)
		if err != nil {
			closeStatus := websocket.CloseStatus(err)
			if closeStatus == websocket.StatusNormalClosure || closeStatus == websocket.StatusGoingAway {
				logger.Infof("WebSocket closed normally for user %v", conn.PrincipalID)
			} else if !strings.Contains(err.Error(), "context canceled") {
				logger.Warnf("Read error for user %v: %v", conn.PrincipalID, err)
			}
			return
		}
		if typ != websocket.MessageText {
			logger.Warnf("Ignoring non-text message type %d from user %v", typ, conn.PrincipalID)
			continue
		}

		var cmd protocol.Command
		if err := json.Unmarshal(msg, &cmd); err != nil {
			logger.Warnf("Invalid json from user %v: %v", conn.PrincipalID, err)
			conn.SendError("invalid JSON format")
			continue
		}
		if err := cmd.Validate(); err != nil {
			conn.SendError(err.Error())
			continue
		}
		s.dispatch(ctx, conn, cmd)
	}
}

// dispatch routes one validated command. The switch is exhaustive over
// protocol.CommandType; Validate already rejected unknown types.
func (s *Server) dispatch(ctx context.Context, conn *hub.Conn, cmd protocol.Command) {
	user := connUser(conn)

	switch cmd.Type {
	case protocol.CmdJoinLobby:
		s.Lobby.Subscribe(cmd.GameType, conn)

	case protocol.CmdLeaveLobby:
		s.Lobby.Unsubscribe(cmd.GameType, conn)

	case protocol.CmdCreateRoom:
		if _, err := s.Rooms.Create(ctx, cmd.GameType, cmd.Bet, user, models.VisibilityPublic); err != nil {
			conn.SendError(clientMessage(err))
		}

	case protocol.CmdCreatePrivateRoom:
		r, err := s.Rooms.Create(ctx, cmd.GameType, cmd.Bet, user, models.VisibilityPrivate)
		if err != nil {
			conn.SendError(clientMessage(err))
			return
		}
		inv, err := s.Invites.Issue(r)
		if err != nil {
			s.Rooms.Remove(r.ID)
			conn.SendError(genericRetryMessage)
			return
		}
		conn.Send(protocol.PrivateRoomCreated(protocol.InvitationCreated{
			Token:     inv.Token,
			URL:       s.inviteURL(inv.Token),
			ExpiresAt: inv.ExpiresAt,
			Room:      r.Snapshot(),
		}))

	case protocol.CmdJoinRoom:
		// gameStart for both occupants flows through OnGameStart.
		if _, err := s.Rooms.Join(cmd.RoomID, user); err != nil {
			conn.SendError(clientMessage(err))
		}

	case protocol.CmdGetPrivateRoomInfo:
		info, err := s.Invites.Describe(cmd.Token)
		if err != nil {
			conn.SendError(clientMessage(err))
			return
		}
		conn.Send(protocol.PrivateRoomInfo(info))

	case protocol.CmdJoinPrivateRoom:
		if _, err := s.Invites.Redeem(cmd.Token, user); err != nil {
			conn.SendError(clientMessage(err))
		}
	}
}

func connUser(conn *hub.Conn) models.User {
	return models.User{ID: conn.PrincipalID, Username: conn.Username}
}

// writePump drains the connection's outbound channel and keeps the socket
// alive with periodic pings.
func writePump(ctx context.Context, c *websocket.Conn, conn *hub.Conn, logger *logrus.Logger) {
	ticker := time.NewTicker(30 * time.Second)
	defer ticker.Stop()
	defer c.Close(websocket.StatusGoingAway, "write pump stopping")

	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-conn.Out:
			if !ok {
				// Channel closed: superseded or unregistered.
				return
			}
			data, err := json.Marshal(ev)
			if err != nil {
				logger.Warnf("Failed to marshal outgoing %s for user %v: %v", ev.Type, conn.PrincipalID, err)
				continue
			}
			writeCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
			err = c.Write(writeCtx, websocket.MessageText, data)
			cancel()
			if err != nil {
				logger.Warnf("Failed to write to websocket for user %v: %v", conn.PrincipalID, err)
				return
			}
		case <-ticker.C:
			pingCtx, cancel := context.WithTimeout(ctx, 15*time.Second)
			err := c.Ping(pingCtx)
			cancel()
			if err != nil {
				logger.Warnf("Failed to ping user %v, assuming disconnect: %v", conn.PrincipalID, err)
				return
			}
		}
	}
}
