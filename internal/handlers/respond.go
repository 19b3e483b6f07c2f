package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/tapin/server/internal/models"
)

func writeJSON(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(body)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, models.ErrorResponse{Error: msg})
}

// writeDomainError maps a domain error onto its HTTP status.
func writeDomainError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, models.ErrNotAuthenticated):
		writeError(w, http.StatusUnauthorized, err.Error())
	case errors.Is(err, models.ErrNotAMember),
		errors.Is(err, models.ErrNotGroupOwner),
		errors.Is(err, models.ErrOwnerNotRemovable):
		writeError(w, http.StatusForbidden, err.Error())
	case errors.Is(err, models.ErrGroupNotFound),
		errors.Is(err, models.ErrUserNotFound),
		errors.Is(err, models.ErrPhotoNotFound),
		errors.Is(err, models.ErrRoundNotFound),
		errors.Is(err, models.ErrInviteNotFound),
		errors.Is(err, models.ErrJoinRequestNotFound),
		errors.Is(err, models.ErrNoActiveRound):
		writeError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, models.ErrAlreadyPosted),
		errors.Is(err, models.ErrRoundLocked),
		errors.Is(err, models.ErrMemberExists),
		errors.Is(err, models.ErrEmailExists),
		errors.Is(err, models.ErrJoinAlreadyPending),
		errors.Is(err, models.ErrJoinAlreadyResolved):
		writeError(w, http.StatusConflict, err.Error())
	case errors.Is(err, models.ErrInvalidPassword):
		writeError(w, http.StatusUnauthorized, err.Error())
	case errors.Is(err, models.ErrFileTooLarge):
		writeError(w, http.StatusRequestEntityTooLarge, err.Error())
	case isValidationError(err):
		writeError(w, http.StatusBadRequest, err.Error())
	default:
		writeError(w, http.StatusInternalServerError, "Internal server error")
	}
}

func isValidationError(err error) bool {
	var photoErr models.PhotoError
	var userErr models.UserError
	var groupErr models.GroupError
	var deviceErr models.DeviceError
	return errors.As(err, &photoErr) ||
		errors.As(err, &userErr) ||
		errors.As(err, &groupErr) ||
		errors.As(err, &deviceErr)
}
