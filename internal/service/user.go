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

// UserService manages accounts and their push tokens.
type UserService struct {
	repo UserRepository
}

// NewUserService constructs a UserService backed by repo.
func NewUserService(repo UserRepository) *UserService {
	return &UserService{repo: repo}
}

// CreateUser registers a new account with a bcrypt-hashed password.
func (s *UserService) CreateUser(ctx context.Context, username, password string) (*models.User, error) {
	username = strings.TrimSpace(username)
	if username == "" || password == "" {
		return nil, apperror.Validation("Username and password are required")
	}
	hash, err := auth.HashPassword(password)
	if err != nil {
		return nil, apperror.Upstream("hash password", err)
	}

	u := &models.User{Username: username, PasswordHash: hash, PushTokens: []string{}}
	err = s.repo.CreateUser(ctx, u)
	if errors.Is(err, repository.ErrAlreadyExists) {
		return nil, apperror.Conflict("User '" + username + "' already exists")
	}
	if err != nil {
		return nil, apperror.Upstream("create user", err)
	}
	return u, nil
}

// RegisterPushToken adds token to the user's set. Registering a token twice
// keeps a single copy. It returns the resulting token count.
func (s *UserService) RegisterPushToken(ctx context.Context, userID, token string) (int, error) {
	return s.changeTokens(ctx, userID, token, s.repo.AddPushToken)
}

// RemovePushToken drops token from the user's set. Removing an unknown
// token is not an error. It returns the resulting token count.
func (s *UserService) RemovePushToken(ctx context.Context, userID, token string) (int, error) {
	return s.changeTokens(ctx, userID, token, s.repo.PullPushToken)
}

func (s *UserService) changeTokens(ctx context.Context, userID, token string,
	change func(ctx context.Context, userID, token string) ([]string, error),
) (int, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return 0, apperror.Validation("Push token is required")
	}
	tokens, err := change(ctx, userID, token)
	if errors.Is(err, repository.ErrNotFound) {
		return 0, apperror.NotFound("User", userID)
	}
	if err != nil {
		return 0, apperror.Upstream("save push tokens", err)
	}
	return len(tokens), nil
}
