package mongo

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/memberhub/member-portal/internal/core/domain"
	"github.com/memberhub/member-portal/internal/core/ports"
)

const eventCollection = "auth_events"

// EventRepository implements ports.EventRepository using MongoDB.
type EventRepository struct {
	db *mongo.Database
}

// NewEventRepository creates a new EventRepository.
func NewEventRepository(db *mongo.Database) ports.EventRepository {
	return &EventRepository{db: db}
}

// Insert persists an auth event to the auth_events audit collection.
func (r *EventRepository) Insert(ctx context.Context, event *domain.AuthEvent) error {
	doc := bson.M{
		"type":         string(event.Type),
		"email":        event.Email,
		"method":       event.Method,
		"reason":       event.Reason,
		"at":           event.At.UTC(),
		"processed_at": time.Now().UTC(),
	}

	if _, err := r.db.Collection(eventCollection).InsertOne(ctx, doc); err != nil {
		return fmt.Errorf("insert auth event: %w", err)
	}
	return nil
}
