package memory

import (
	"context"

	"github.com/boostly/boosting-marketplace/internal/core/domain"
	"github.com/boostly/boosting-marketplace/internal/core/ports"
)

// EventRepository implements ports.EventRepository.
type EventRepository struct {
	s *Store
}

var _ ports.EventRepository = (*EventRepository)(nil)

func (r *EventRepository) InsertEvent(_ context.Context, ev *domain.OrderEvent) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if err := r.s.check(OpEventInsert); err != nil {
		return err
	}
	stored := *ev
	stored.Order = nil
	r.s.events = append(r.s.events, stored)
	return nil
}

// ListByOrder returns the recorded transitions of an order in insertion order.
func (r *EventRepository) ListByOrder(orderID string) []domain.OrderEvent {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	var out []domain.OrderEvent
	for _, ev := range r.s.events {
		if ev.OrderID == orderID {
			out = append(out, ev)
		}
	}
	return out
}
