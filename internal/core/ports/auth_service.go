package ports

import (
	"context"

	"github.com/memberhub/member-portal/internal/core/domain"
)

// PasswordHasher salts and hashes plaintext passwords and verifies a
// plaintext against a stored hash.
type PasswordHasher interface {
	Hash(password string) (string, error)
	Check(password, hash string) bool
}

// AuthService implements the local signup and login flows.
type AuthService interface {
	// Signup validates the fields and password policy, hashes the
	// password and persists the new user.
	Signup(ctx context.Context, username, email, password string) (*domain.User, error)

	// Login verifies the credentials and returns the matching user, or
	// domain.ErrInvalidCredentials when no user matches. The error never
	// distinguishes an unknown email from a wrong password.
	Login(ctx context.Context, email, password string) (*domain.User, error)
}

// FederatedAuthenticator drives a third-party identity handshake.
type FederatedAuthenticator interface {
	// ConsentURL returns the provider URL the client is redirected to.
	ConsentURL(state string) string

	// Complete exchanges the callback code for an identity, provisioning
	// a local user on first login.
	Complete(ctx context.Context, code string) (*domain.User, error)
}
