package ports

import (
	"context"

	"github.com/memberhub/member-portal/internal/core/domain"
)

// EventService persists a single audit event.
type EventService interface {
	Record(ctx context.Context, event domain.AuthEvent) error
}

// EventRecorder accepts audit events for asynchronous persistence. Submit
// must not block the calling request beyond queue backpressure.
type EventRecorder interface {
	Submit(event domain.AuthEvent)
}
