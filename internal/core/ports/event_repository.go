package ports

import (
	"context"

	"github.com/memberhub/member-portal/internal/core/domain"
)

// EventRepository persists audit events.
type EventRepository interface {
	Insert(ctx context.Context, event *domain.AuthEvent) error
}
