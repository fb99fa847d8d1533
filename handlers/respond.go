package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"guestbookAPI/internal/guestbook"
	"guestbookAPI/services"
)

type errorResponse struct {
	Error   string   `json:"error"`
	Details []string `json:"details,omitempty"`
}

func respondWithJSON(w http.ResponseWriter, code int, payload interface{}) {
	response, err := json.Marshal(payload)
	if err != nil {
		w.WriteHeader(http.StatusInternalServerError)
		w.Write([]byte(`{"error": "Internal server error"}`))
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	w.Write(response)
}

func respondWithError(w http.ResponseWriter, code int, message string) {
	respondWithJSON(w, code, errorResponse{Error: message})
}

// respondWithServiceError turns a service error into a status code and a human
// hint. Raw store errors only go to the log.
func respondWithServiceError(w http.ResponseWriter, log *slog.Logger, op string, err error) {
	code := statusFor(err)
	if code >= http.StatusInternalServerError {
		log.Error(op+" failed", "error", err)
	} else {
		log.Info(op+" refused", "error", err)
	}

	resp := errorResponse{Error: guestbook.Hint(err)}
	var verr *guestbook.ValidationError
	if errors.As(err, &verr) {
		resp.Error = "Invalid submission"
		resp.Details = verr.Problems
	}
	if errors.Is(err, services.ErrProbeDisabled) {
		resp.Error = "The rules probe is not configured on this server."
	}
	respondWithJSON(w, code, resp)
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, guestbook.ErrValidation),
		errors.Is(err, guestbook.ErrEmptySelection),
		errors.Is(err, guestbook.ErrInvalidArgument):
		return http.StatusBadRequest
	case errors.Is(err, guestbook.ErrInappropriate):
		return http.StatusUnprocessableEntity
	case errors.Is(err, guestbook.ErrAccessDenied):
		return http.StatusForbidden
	case errors.Is(err, guestbook.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, guestbook.ErrAlreadyApproved):
		return http.StatusConflict
	case errors.Is(err, guestbook.ErrUnavailable),
		errors.Is(err, guestbook.ErrIndexBuilding),
		errors.Is(err, services.ErrProbeDisabled),
		errors.Is(err, context.DeadlineExceeded):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}
