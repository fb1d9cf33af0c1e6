package service

import (
	"context"
	"errors"
	"strings"

	"github.com/fieldops/missiond/internal/apperror"
	"github.com/fieldops/missiond/internal/auth"
	"github.com/fieldops/missiond/internal/models"
	"github.com/fieldops/missiond/internal/repository"
)

// TokenIssuer signs bearer tokens for authenticated users.
type TokenIssuer interface {
	Issue(userID, username string) (string, error)
}

// AuthService checks credentials and issues bearer tokens.
type AuthService struct {
	users  UserRepository
	tokens TokenIssuer
}

// NewAuthService constructs an AuthService.
func NewAuthService(users UserRepository, tokens TokenIssuer) *AuthService {
	return &AuthService{users: users, tokens: tokens}
}

// Login verifies username and password and returns a signed token with the
// authenticated user. Unknown users and wrong passwords are indistinguishable.
func (s *AuthService) Login(ctx context.Context, username, password string) (string, *models.User, error) {
	username = strings.TrimSpace(username)
	if username == "" || password == "" {
		return "", nil, apperror.Validation("Username and password are required")
	}

	u, err := s.users.GetUserByUsername(ctx, username)
	if errors.Is(err, repository.ErrNotFound) {
		return "", nil, apperror.Unauthenticated("invalid username or password")
	}
	if err != nil {
		return "", nil, apperror.Upstream("lookup user", err)
	}
	if !auth.CheckPassword(u.PasswordHash, password) {
		return "", nil, apperror.Unauthenticated("invalid username or password")
	}

	token, err := s.tokens.Issue(u.ID, u.Username)
	if err != nil {
		return "", nil, apperror.Upstream("issue token", err)
	}
	return token, u, nil
}
