package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/Skotchmaster/gogomedia/internal/authgate"
	"github.com/Skotchmaster/gogomedia/internal/events"
	"github.com/Skotchmaster/gogomedia/internal/hash"
	"github.com/Skotchmaster/gogomedia/internal/models"
	"github.com/Skotchmaster/gogomedia/internal/repo"
	"github.com/Skotchmaster/gogomedia/internal/revocation"
	"github.com/Skotchmaster/gogomedia/internal/tokens"
)

type AuthService struct {
	Repo     *repo.GormRepo
	Hasher   hash.Hasher
	Tokens   *tokens.Service
	Revoked  revocation.Store
	Notifier *Notifier
}

type Credentials struct {
	Username *string `json:"username"`
	Password *string `json:"password"`
}

func (c Credentials) check() error {
	if c.Username == nil || *c.Username == "" {
		return &MissingFieldError{Field: "username"}
	}
	if c.Password == nil || *c.Password == "" {
		return &MissingFieldError{Field: "password"}
	}
	return nil
}

// Register creates the user and returns a fresh token for it.
func (s *AuthService) Register(ctx context.Context, c Credentials) (string, *models.User, error) {
	if err := c.check(); err != nil {
		return "", nil, err
	}

	_, err := s.Repo.FindUserByUsername(ctx, *c.Username)
	switch {
	case err == nil:
		return "", nil, ErrUsernameTaken
	case !errors.Is(err, repo.ErrNotFound):
		return "", nil, fmt.Errorf("register: %w", err)
	}

	pwHash, err := s.Hasher.HashPassword(*c.Password)
	if err != nil {
		return "", nil, fmt.Errorf("register: %w", err)
	}

	user := &models.User{Username: *c.Username, PasswordHash: pwHash}
	if err := s.Repo.CreateUser(ctx, user); err != nil {
		if errors.Is(err, repo.ErrUserAlreadyExist) {
			return "", nil, ErrUsernameTaken
		}
		return "", nil, fmt.Errorf("register: %w", err)
	}

	token, err := s.Tokens.Issue(user.ID)
	if err != nil {
		return "", nil, fmt.Errorf("register: %w", err)
	}

	s.Notifier.user(ctx, events.UserRegistered, user.ID, map[string]string{"username": user.Username})
	return token, user, nil
}

func (s *AuthService) Login(ctx context.Context, c Credentials) (string, *models.User, error) {
	if err := c.check(); err != nil {
		return "", nil, err
	}

	user, err := s.Repo.FindUserByUsername(ctx, *c.Username)
	if err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return "", nil, ErrUserNotFound
		}
		return "", nil, fmt.Errorf("login: %w", err)
	}

	if !s.Hasher.CheckPassword(user.PasswordHash, *c.Password) {
		return "", nil, ErrIncorrectPassword
	}

	token, err := s.Tokens.Issue(user.ID)
	if err != nil {
		return "", nil, fmt.Errorf("login: %w", err)
	}

	s.Notifier.user(ctx, events.UserLoggedIn, user.ID, map[string]string{"username": user.Username})
	return token, user, nil
}

// Logout revokes the token the principal authenticated with. A bypassed
// principal carries no token and nothing is revoked.
func (s *AuthService) Logout(ctx context.Context, p authgate.Principal) error {
	if p.Token == "" {
		return nil
	}
	if err := s.Revoked.Revoke(ctx, p.Token); err != nil {
		return fmt.Errorf("logout: %w", err)
	}

	var userID uint
	if p.User != nil {
		userID = p.User.ID
	}
	s.Notifier.user(ctx, events.UserLoggedOut, userID, nil)
	return nil
}
