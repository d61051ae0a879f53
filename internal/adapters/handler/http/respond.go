package http

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/sirupsen/logrus"
	"github.com/vncsmyrnk/slotpoll/internal/core/domain"
)

type errorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if body == nil {
		return
	}
	_ = json.NewEncoder(w).Encode(body)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, errorResponse{Error: http.StatusText(status), Message: message})
}

// statusFor maps domain errors onto HTTP status codes. Order matters: a
// duplicate vote is reported as a conflict even though it arrives wrapped in
// a store write failure.
func statusFor(err error) int {
	switch {
	case errors.Is(err, domain.ErrAuthenticationRequired), errors.Is(err, domain.ErrRefreshTokenRevoked):
		return http.StatusUnauthorized
	case errors.Is(err, domain.ErrAlreadyVoted),
		errors.Is(err, domain.ErrAlreadyMember),
		errors.Is(err, domain.ErrPollNotOpen),
		errors.Is(err, domain.ErrToggleInFlight),
		errors.Is(err, domain.ErrSessionSuperseded):
		return http.StatusConflict
	case errors.Is(err, domain.ErrStoreRead), errors.Is(err, domain.ErrStoreWrite):
		return http.StatusServiceUnavailable
	case errors.Is(err, domain.ErrIntegrityViolation):
		return http.StatusInternalServerError
	case errors.Is(err, domain.ErrPollNotFound),
		errors.Is(err, domain.ErrNoActivePoll),
		errors.Is(err, domain.ErrUserNotFound),
		errors.Is(err, domain.ErrMemberNotFound):
		return http.StatusNotFound
	case errors.Is(err, domain.ErrInvalidPollID),
		errors.Is(err, domain.ErrInvalidSlot),
		errors.Is(err, domain.ErrInvalidPoll):
		return http.StatusBadRequest
	case errors.Is(err, domain.ErrNotPollOwner):
		return http.StatusForbidden
	}
	return http.StatusInternalServerError
}

func respondError(w http.ResponseWriter, r *http.Request, log *logrus.Entry, err error) {
	status := statusFor(err)
	entry := log.WithFields(logrus.Fields{
		"request_id": middleware.GetReqID(r.Context()),
		"status":     status,
	}).WithError(err)
	if status >= http.StatusInternalServerError {
		entry.Error("request failed")
	} else {
		entry.Debug("request rejected")
	}

	message := err.Error()
	if status == http.StatusInternalServerError {
		message = "internal error"
	}
	writeError(w, status, message)
}

func decodeJSON(r *http.Request, dst any) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	return dec.Decode(dst)
}
