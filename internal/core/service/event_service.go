package service

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/memberhub/member-portal/internal/core/domain"
	"github.com/memberhub/member-portal/internal/core/ports"
)

type eventService struct {
	repo ports.EventRepository
	log  zerolog.Logger
}

// NewEventService returns an EventService that writes the audit trail.
func NewEventService(repo ports.EventRepository, log zerolog.Logger) ports.EventService {
	return &eventService{repo: repo, log: log}
}

// Record persists a single audit event.
func (s *eventService) Record(ctx context.Context, event domain.AuthEvent) error {
	if event.At.IsZero() {
		event.At = time.Now().UTC()
	}

	if err := s.repo.Insert(ctx, &event); err != nil {
		return fmt.Errorf("record auth event: %w", err)
	}

	s.log.Debug().
		Str("type", string(event.Type)).
		Str("email", event.Email).
		Str("method", event.Method).
		Msg("auth event recorded")

	return nil
}
