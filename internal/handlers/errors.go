// internal/handlers/errors.go
package handlers

import (
	"errors"
	"net/http"

	log "github.com/sirupsen/logrus"

	"github.com/duelpoint/arena/internal/models"
)

// genericRetryMessage hides collaborator failures from the client.
const genericRetryMessage = "something went wrong, please try again"

// clientMessage maps an error to the text a client may see. Validation and
// resource-state errors are surfaced verbatim; anything else is generic.
func clientMessage(err error) string {
	switch {
	case models.IsValidation(err), models.IsResourceState(err):
		return err.Error()
	case models.IsExternal(err):
		return genericRetryMessage
	default:
		log.Errorf("handlers: internal error reached client boundary: %v", err)
		return genericRetryMessage
	}
}

// httpStatus maps an error to a REST status code.
func httpStatus(err error) int {
	switch {
	case models.IsValidation(err):
		return http.StatusBadRequest
	case errors.Is(err, models.ErrRoomNotFound), errors.Is(err, models.ErrInvitationNotFound),
		errors.Is(err, models.ErrTournamentNotFound), errors.Is(err, models.ErrMatchNotFound):
		return http.StatusNotFound
	case models.IsResourceState(err):
		return http.StatusConflict
	case models.IsExternal(err):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}
