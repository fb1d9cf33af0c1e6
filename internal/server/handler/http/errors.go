package http

import (
	"encoding/json"
	"errors"
	"net/http"

	"go.uber.org/zap"

	"github.com/fieldops/missiond/internal/apperror"
)

// errorResponse is the body of every non-2xx response.
type errorResponse struct {
	Error         string `json:"error"`
	CurrentStatus string `json:"currentStatus,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeMessage(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, errorResponse{Error: msg})
}

// writeError maps service errors onto status codes. Anything that is not a
// known client error is logged and reported as an internal error.
func writeError(w http.ResponseWriter, r *http.Request, log *zap.Logger, err error) {
	var (
		validation *apperror.ValidationError
		notFound   *apperror.NotFoundError
		conflict   *apperror.ConflictError
		unauth     *apperror.UnauthenticatedError
	)
	switch {
	case errors.As(err, &validation):
		writeMessage(w, http.StatusBadRequest, validation.Message)
	case errors.As(err, &notFound):
		writeMessage(w, http.StatusNotFound, notFound.Error())
	case errors.As(err, &conflict):
		writeJSON(w, http.StatusConflict, errorResponse{Error: conflict.Message, CurrentStatus: conflict.CurrentStatus})
	case errors.As(err, &unauth):
		writeMessage(w, http.StatusUnauthorized, unauth.Message)
	default:
		if log != nil {
			log.Error("request failed",
				zap.String("method", r.Method),
				zap.String("path", r.URL.Path),
				zap.Error(err),
			)
		}
		writeMessage(w, http.StatusInternalServerError, "internal error")
	}
}

func decodeBody(r *http.Request, dst any) error {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		return apperror.Validation("invalid request body")
	}
	return nil
}
