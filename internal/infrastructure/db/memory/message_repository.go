package memory

import (
	"context"

	"github.com/google/uuid"

	"github.com/boostly/boosting-marketplace/internal/core/domain"
	"github.com/boostly/boosting-marketplace/internal/core/ports"
)

// MessageRepository implements ports.MessageRepository. Messages of one
// order are kept in append order.
type MessageRepository struct {
	s *Store
}

var _ ports.MessageRepository = (*MessageRepository)(nil)

func (r *MessageRepository) Append(_ context.Context, m *domain.Message) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if err := r.s.check(OpMessageAppend); err != nil {
		return err
	}
	if m.ID == "" {
		m.ID = uuid.NewString()
	}
	r.s.messages[m.OrderID] = append(r.s.messages[m.OrderID], cloneMessage(m))
	return nil
}

func (r *MessageRepository) ListByOrder(_ context.Context, orderID string) ([]*domain.Message, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	stored := r.s.messages[orderID]
	out := make([]*domain.Message, 0, len(stored))
	for _, m := range stored {
		out = append(out, cloneMessage(m))
	}
	return out, nil
}
