package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/Skotchmaster/inventory_api/internal/hash"
	"github.com/Skotchmaster/inventory_api/internal/logging"
	"github.com/Skotchmaster/inventory_api/internal/models"
	"github.com/Skotchmaster/inventory_api/internal/mykafka"
	"github.com/Skotchmaster/inventory_api/internal/repo"
	"github.com/Skotchmaster/inventory_api/internal/transport"
	"github.com/Skotchmaster/inventory_api/pkg/tokens"
)

const DefaultRefreshTokenTTL = 7 * 24 * time.Hour

type AuthService struct {
	UoW        repo.Factory
	Tokens     *tokens.Issuer
	RefreshTTL time.Duration
	Events     mykafka.Publisher

	Now func() time.Time
}

func (s *AuthService) now() time.Time {
	if s.Now != nil {
		return s.Now().UTC()
	}
	return time.Now().UTC()
}

func (s *AuthService) refreshTTL() time.Duration {
	if s.RefreshTTL > 0 {
		return s.RefreshTTL
	}
	return DefaultRefreshTokenTTL
}

type userEvent struct {
	ID       uint   `json:"id"`
	Username string `json:"username"`
	Email    string `json:"email"`
}

func (s *AuthService) Register(ctx context.Context, username, email, password string) (*transport.AuthResponse, error) {
	l := logging.FromContext(ctx).With("svc", "auth.register")

	if strings.TrimSpace(username) == "" || strings.TrimSpace(email) == "" || password == "" {
		return nil, newError(ErrValidation, "username, email and password are required")
	}

	uow := s.UoW.New()
	defer uow.Close()

	existing, err := uow.Users().SingleOrDefault(ctx, repo.Where("email = ?", email))
	if err != nil {
		l.Error("register_error", "status", 500, "reason", "lookup by email", "error", err)
		return nil, err
	}
	if existing != nil {
		return nil, newError(ErrDuplicate, "User with this email already exists")
	}

	existing, err = uow.Users().SingleOrDefault(ctx, repo.Where("username = ?", username))
	if err != nil {
		l.Error("register_error", "status", 500, "reason", "lookup by username", "error", err)
		return nil, err
	}
	if existing != nil {
		return nil, newError(ErrDuplicate, "Username already taken")
	}

	pwHash, err := hash.HashPassword(password)
	if err != nil {
		if errors.Is(err, hash.ErrPasswordTooLong) {
			return nil, newError(ErrValidation, "password is too long")
		}
		l.Error("register_error", "status", 500, "reason", "cannot hash the password", "error", err)
		return nil, err
	}

	now := s.now()
	user := &models.User{
		Username:     username,
		Email:        email,
		PasswordHash: pwHash,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	var resp *transport.AuthResponse
	err = uow.InTransaction(ctx, func() error {
		uow.Users().Add(user)
		if _, err := uow.Save(ctx); err != nil {
			return err
		}
		resp, err = s.issue(ctx, uow, user)
		return err
	})
	if err != nil {
		if errors.Is(err, repo.ErrDuplicate) {
			l.Warn("register_error", "status", 400, "reason", "unique violation on insert", "error", err)
			return nil, newError(ErrDuplicate, "User with this email or username already exists")
		}
		l.Error("register_error", "status", 500, "reason", "cannot persist user", "error", err)
		return nil, err
	}

	publish(ctx, s.Events, mykafka.TopicUserEvents, user.ID, "user_registered", userEvent{ID: user.ID, Username: user.Username, Email: user.Email})
	return resp, nil
}

func (s *AuthService) Login(ctx context.Context, email, password string) (*transport.AuthResponse, error) {
	l := logging.FromContext(ctx).With("svc", "auth.login")

	uow := s.UoW.New()
	defer uow.Close()

	user, err := uow.Users().SingleOrDefault(ctx, repo.Where("email = ?", email))
	if err != nil {
		l.Error("login_error", "status", 500, "reason", "lookup by email", "error", err)
		return nil, err
	}

	stored := ""
	if user != nil {
		stored = user.PasswordHash
	}
	if !hash.CheckPassword(stored, password) {
		return nil, newError(ErrUnauthorized, "Invalid email or password")
	}

	resp, err := s.issue(ctx, uow, user)
	if err != nil {
		l.Error("login_error", "status", 500, "reason", "cannot issue tokens", "error", err)
		return nil, err
	}

	publish(ctx, s.Events, mykafka.TopicUserEvents, user.ID, "user_logged_in", userEvent{ID: user.ID, Username: user.Username, Email: user.Email})
	return resp, nil
}

func (s *AuthService) Refresh(ctx context.Context, refreshToken string) (*transport.AuthResponse, error) {
	l := logging.FromContext(ctx).With("svc", "auth.refresh")

	invalid := newError(ErrUnauthorized, "Invalid or expired refresh token")
	if refreshToken == "" {
		return nil, invalid
	}

	uow := s.UoW.New()
	defer uow.Close()

	digest := tokens.HashRefreshToken(refreshToken)
	user, err := uow.Users().SingleOrDefault(ctx, repo.Where("refresh_token = ?", digest))
	if err != nil {
		l.Error("refresh_error", "status", 500, "reason", "lookup by token", "error", err)
		return nil, err
	}
	if user == nil || user.RefreshTokenExpiry == nil || !user.RefreshTokenExpiry.After(s.now()) {
		return nil, invalid
	}

	resp, err := s.issue(ctx, uow, user, repo.Where("refresh_token = ?", digest))
	if errors.Is(err, errTokenRotated) {
		l.Warn("refresh_error", "status", 401, "reason", "token rotated concurrently")
		return nil, invalid
	}
	if err != nil {
		l.Error("refresh_error", "status", 500, "reason", "cannot issue tokens", "error", err)
		return nil, err
	}
	return resp, nil
}

// Revoke clears the stored refresh token. It reports false when the token is
// unknown or already revoked.
func (s *AuthService) Revoke(ctx context.Context, refreshToken string) (bool, error) {
	if refreshToken == "" {
		return false, nil
	}

	uow := s.UoW.New()
	defer uow.Close()

	digest := tokens.HashRefreshToken(refreshToken)
	user, err := uow.Users().SingleOrDefault(ctx, repo.Where("refresh_token = ?", digest))
	if err != nil {
		return false, err
	}
	if user == nil {
		return false, nil
	}

	now := s.now()
	user.RefreshToken = nil
	user.RefreshTokenExpiry = &now
	user.UpdatedAt = now
	uow.Users().UpdateIf(user, repo.Where("refresh_token = ?", digest))
	n, err := uow.Save(ctx)
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

func (s *AuthService) GenerateToken(user *models.User) (string, time.Time, error) {
	return s.Tokens.Issue(user.ID, user.Username, user.Email)
}

func (s *AuthService) ParseToken(token string) (*tokens.AccessClaims, error) {
	return s.Tokens.Parse(token)
}

var errTokenRotated = errors.New("refresh token already rotated")

// issue signs an access token and rotates the user's refresh token. With
// guards the rotation only applies while the row still matches them, and
// errTokenRotated reports that it did not.
func (s *AuthService) issue(ctx context.Context, uow *repo.UnitOfWork, user *models.User, guards ...repo.Scope) (*transport.AuthResponse, error) {
	access, exp, err := s.GenerateToken(user)
	if err != nil {
		return nil, fmt.Errorf("sign access token: %w", err)
	}

	refresh, err := tokens.NewRefreshToken()
	if err != nil {
		return nil, fmt.Errorf("generate refresh token: %w", err)
	}

	now := s.now()
	digest := tokens.HashRefreshToken(refresh)
	refreshExp := now.Add(s.refreshTTL())
	user.RefreshToken = &digest
	user.RefreshTokenExpiry = &refreshExp
	user.UpdatedAt = now

	if len(guards) == 0 {
		uow.Users().Update(user)
	} else {
		uow.Users().UpdateIf(user, guards...)
	}
	n, err := uow.Save(ctx)
	if err != nil {
		return nil, err
	}
	if len(guards) > 0 && n == 0 {
		return nil, errTokenRotated
	}

	return &transport.AuthResponse{
		AccessToken:  access,
		RefreshToken: refresh,
		Expires:      exp,
		Username:     user.Username,
		Email:        user.Email,
	}, nil
}
