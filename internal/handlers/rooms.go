// internal/handlers/rooms.go
package handlers

import (
	"net/http"
	"strings"

	"github.com/sirupsen/logrus"
)

// PrivateRoomInfoHandler serves GET /api/private-room/{token}. It is the
// pull fallback for invite landing pages: describing never consumes the
// token, and expired invitations still return their metadata.
func PrivateRoomInfoHandler(logger *logrus.Logger, s *Server) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
			return
		}
		token := strings.Trim(strings.TrimPrefix(r.URL.Path, "/api/private-room/"), "/")
		if token == "" {
			http.Error(w, "missing invitation token", http.StatusBadRequest)
			return
		}

		info, err := s.Invites.Describe(token)
		if err != nil {
			writeError(logger, w, err)
			return
		}
		writeJSON(w, http.StatusOK, info)
	}
}
