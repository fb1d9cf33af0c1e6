package http

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

// UserService defines the push token operations required by UserHandler.
type UserService interface {
	RegisterPushToken(ctx context.Context, userID, token string) (int, error)
	RemovePushToken(ctx context.Context, userID, token string) (int, error)
}

// UserHandler handles HTTP requests for user devices.
type UserHandler struct {
	UserService UserService
	Log         *zap.Logger
}

// PushTokenRequest carries the device token.
type PushTokenRequest struct {
	Token string `json:"token"`
}

// PushTokenResponse reports the token count after the change.
type PushTokenResponse struct {
	Message    string `json:"message"`
	TokenCount int    `json:"tokenCount"`
}

// RegisterPushToken handles POST /api/users/{id}/push-token.
func (h *UserHandler) RegisterPushToken(w http.ResponseWriter, r *http.Request) {
	h.changeToken(w, r, h.UserService.RegisterPushToken, "Push token registered successfully")
}

// RemovePushToken handles DELETE /api/users/{id}/push-token.
func (h *UserHandler) RemovePushToken(w http.ResponseWriter, r *http.Request) {
	h.changeToken(w, r, h.UserService.RemovePushToken, "Push token removed successfully")
}

func (h *UserHandler) changeToken(
	w http.ResponseWriter,
	r *http.Request,
	op func(ctx context.Context, userID, token string) (int, error),
	message string,
) {
	var req PushTokenRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, r, h.Log, err)
		return
	}
	n, err := op(r.Context(), chi.URLParam(r, "id"), req.Token)
	if err != nil {
		writeError(w, r, h.Log, err)
		return
	}
	writeJSON(w, http.StatusOK, PushTokenResponse{Message: message, TokenCount: n})
}
