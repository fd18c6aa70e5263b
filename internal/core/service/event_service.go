package service

import (
	"context"
	"sync"

	"github.com/rs/zerolog"

	"github.com/boostly/boosting-marketplace/internal/core/domain"
	"github.com/boostly/boosting-marketplace/internal/core/ports"
)

// maxTrackedOrders bounds the broadcast high-water marks. Past it the marks
// are dropped and rebuilt; clients still discard frames by version.
const maxTrackedOrders = 4096

type orderEventService struct {
	eventRepo ports.EventRepository
	rooms     ports.Broadcaster
	log       zerolog.Logger

	mu        sync.Mutex
	broadcast map[string]int64
}

// NewOrderEventService returns the handler run by the event dispatcher for
// every committed order transition. rooms may be nil.
func NewOrderEventService(
	eventRepo ports.EventRepository,
	rooms ports.Broadcaster,
	log zerolog.Logger,
) ports.EventHandler {
	return &orderEventService{
		eventRepo: eventRepo,
		rooms:     rooms,
		log:       log,
		broadcast: make(map[string]int64),
	}
}

// Handle records the audit entry for a transition and pushes the new order
// state to the order room.
func (s *orderEventService) Handle(ctx context.Context, ev domain.OrderEvent) error {
	// The transition is already committed, so a failed audit write is logged only.
	if err := s.eventRepo.InsertEvent(ctx, &ev); err != nil {
		s.log.Warn().Err(err).
			Str("order_id", ev.OrderID).
			Str("transition", string(ev.Transition)).
			Msg("failed to insert audit event")
	}

	if s.rooms != nil {
		if ev.Order != nil && s.newer(ev.Order) {
			s.rooms.BroadcastOrder(ev.OrderID, ev.Order)
		}
		// The previous booster sees the final status before losing the room.
		if ev.PreviousBoosterID != "" {
			s.rooms.Evict(ev.OrderID, ev.PreviousBoosterID)
		}
	}

	s.log.Debug().
		Str("order_id", ev.OrderID).
		Str("transition", string(ev.Transition)).
		Str("from", string(ev.From)).
		Str("to", string(ev.To)).
		Msg("order event processed")

	return nil
}

// newer reports whether o is later than every state already broadcast for
// its order and records it. Transitions can reach the dispatcher out of
// commit order, and an older state must not overwrite a newer one on the
// client. Unversioned orders always pass.
func (s *orderEventService) newer(o *domain.Order) bool {
	if o.Version <= 0 {
		return true
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	if o.Version <= s.broadcast[o.ID] {
		s.log.Debug().
			Str("order_id", o.ID).
			Int64("version", o.Version).
			Int64("broadcast_version", s.broadcast[o.ID]).
			Msg("stale order state not broadcast")
		return false
	}
	if len(s.broadcast) >= maxTrackedOrders {
		clear(s.broadcast)
	}
	s.broadcast[o.ID] = o.Version
	return true
}
