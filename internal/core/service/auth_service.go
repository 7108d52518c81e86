package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/memberhub/member-portal/internal/core/domain"
	"github.com/memberhub/member-portal/internal/core/ports"
)

// AuthService implements signup and local login.
type AuthService struct {
	users  ports.UserRepository
	hasher ports.PasswordHasher
}

func NewAuthService(users ports.UserRepository, hasher ports.PasswordHasher) *AuthService {
	return &AuthService{users: users, hasher: hasher}
}

func (s *AuthService) Signup(ctx context.Context, username, email, password string) (*domain.User, error) {
	if username == "" || email == "" || password == "" {
		return nil, domain.ErrMissingFields
	}
	if !ValidPassword(password) {
		return nil, domain.ErrWeakPassword
	}

	hash, err := s.hasher.Hash(password)
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	user := &domain.User{
		Username:     username,
		Email:        email,
		PasswordHash: hash,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	created, err := s.users.Create(ctx, user)
	if err != nil {
		return nil, err
	}
	return created, nil
}

func (s *AuthService) Login(ctx context.Context, email, password string) (*domain.User, error) {
	user, err := s.users.FindByEmail(ctx, email)
	if errors.Is(err, domain.ErrUserNotFound) {
		return nil, domain.ErrInvalidCredentials
	}
	if err != nil {
		return nil, fmt.Errorf("find user: %w", err)
	}

	// Federated-only accounts have no hash and cannot log in locally.
	if user.PasswordHash == "" || !s.hasher.Check(password, user.PasswordHash) {
		return nil, domain.ErrInvalidCredentials
	}
	return user, nil
}
