package mongo

import (
	"context"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/boostly/boosting-marketplace/internal/core/domain"
	"github.com/boostly/boosting-marketplace/internal/core/ports"
)

// EventRepository implements ports.EventRepository using MongoDB.
type EventRepository struct {
	db *mongo.Database
}

// NewEventRepository creates a new EventRepository.
func NewEventRepository(db *mongo.Database) ports.EventRepository {
	return &EventRepository{db: db}
}

// InsertEvent persists an order transition to the order_events audit collection.
func (r *EventRepository) InsertEvent(ctx context.Context, event *domain.OrderEvent) error {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	doc, err := eventDoc(event)
	if err != nil {
		return err
	}
	if _, err := r.db.Collection(collectionEvents).InsertOne(ctx, doc); err != nil {
		return domain.Storage("insert event", err)
	}
	return nil
}

func eventDoc(event *domain.OrderEvent) (bson.M, error) {
	doc := bson.M{
		"order_id":     event.OrderID,
		"transition":   string(event.Transition),
		"from":         string(event.From),
		"to":           string(event.To),
		"actor_id":     event.ActorID,
		"client_id":    event.ClientID,
		"booster_id":   event.BoosterID,
		"occurred_at":  event.OccurredAt.UTC(),
		"processed_at": time.Now().UTC(),
	}
	if event.PreviousBoosterID != "" {
		doc["previous_booster_id"] = event.PreviousBoosterID
	}
	if !event.Amount.IsZero() {
		amount, err := toDecimal128(event.Amount)
		if err != nil {
			return nil, err
		}
		doc["amount"] = amount
	}
	return doc, nil
}
