package ports

import (
	"context"

	"github.com/boostly/boosting-marketplace/internal/core/domain"
)

// MessageRepository is the append-only chat log.
type MessageRepository interface {
	// Append persists m, assigning m.ID.
	Append(ctx context.Context, m *domain.Message) error
	// ListByOrder returns the messages of an order by creation time ascending.
	ListByOrder(ctx context.Context, orderID string) ([]*domain.Message, error)
}
