package ports

import (
	"context"

	"github.com/memberhub/member-portal/internal/core/domain"
)

// SessionStore attaches authenticated identities to client-held tokens.
type SessionStore interface {
	// Create stores the identity and returns the new session token.
	Create(ctx context.Context, identity domain.Identity) (string, error)

	// Get returns the identity for a token, or domain.ErrSessionNotFound
	// when the token does not match a live session.
	Get(ctx context.Context, token string) (*domain.Identity, error)

	// Destroy tears down the session. Destroying an absent session is not
	// an error.
	Destroy(ctx context.Context, token string) error
}

// StateStore issues and redeems single-use OAuth state values.
type StateStore interface {
	Issue(ctx context.Context) (string, error)

	// Consume redeems a state value, reporting whether it was live. A
	// state can be consumed at most once.
	Consume(ctx context.Context, state string) (bool, error)
}
