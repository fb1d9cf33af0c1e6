package http

import (
	"context"
	"net/http"

	"go.uber.org/zap"

	"github.com/fieldops/missiond/internal/models"
)

// AuthService defines the authentication operations required by AuthHandler.
type AuthService interface {
	// Login checks the credentials and returns a bearer token for the user.
	Login(ctx context.Context, username, password string) (string, *models.User, error)
}

// AuthHandler handles HTTP requests for logging in.
type AuthHandler struct {
	// AuthService performs the underlying authentication operations.
	AuthService AuthService
	Log         *zap.Logger
}

// LoginRequest represents the JSON payload for a login.
type LoginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// LoginResponse is returned on a successful login.
type LoginResponse struct {
	Token string         `json:"token"`
	User  models.UserRef `json:"user"`
}

// Login handles POST /api/auth/login.
// Missing fields yield 400; unknown users and wrong passwords yield 401.
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, r, h.Log, err)
		return
	}

	token, user, err := h.AuthService.Login(r.Context(), req.Username, req.Password)
	if err != nil {
		writeError(w, r, h.Log, err)
		return
	}

	writeJSON(w, http.StatusOK, LoginResponse{Token: token, User: user.Ref()})
}
