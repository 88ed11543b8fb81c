// internal/handlers/utils.go
package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/sirupsen/logrus"
)

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

// writeError maps a domain error onto an HTTP status and a client-safe
// message. Internal detail stays in the log.
func writeError(logger *logrus.Logger, w http.ResponseWriter, err error) {
	status := httpStatus(err)
	if status >= 500 {
		logger.Warnf("request failed: %v", err)
	}
	http.Error(w, clientMessage(err), status)
}
