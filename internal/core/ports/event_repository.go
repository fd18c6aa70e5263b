package ports

import (
	"context"

	"github.com/boostly/boosting-marketplace/internal/core/domain"
)

// EventRepository persists the order transition audit trail.
type EventRepository interface {
	InsertEvent(ctx context.Context, event *domain.OrderEvent) error
}

// EventPublisher hands committed transitions to the asynchronous pipeline.
// Publish must not block the caller on downstream processing.
type EventPublisher interface {
	Publish(event domain.OrderEvent)
}

// EventHandler processes one committed transition.
type EventHandler interface {
	Handle(ctx context.Context, event domain.OrderEvent) error
}
