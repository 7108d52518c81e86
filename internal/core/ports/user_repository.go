package ports

import (
	"context"

	"github.com/memberhub/member-portal/internal/core/domain"
)

// UserRepository defines the interface for credential persistence.
// Implementations return *domain.DuplicateKeyError on uniqueness violations
// and *domain.ValidationError on store-level document validation failures.
type UserRepository interface {
	Create(ctx context.Context, user *domain.User) (*domain.User, error)
	FindByEmail(ctx context.Context, email string) (*domain.User, error)
}
