package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/boostly/boosting-marketplace/internal/core/domain"
)

type stubEventRepo struct {
	insertErr error
	inserted  []*domain.OrderEvent
}

func (r *stubEventRepo) InsertEvent(_ context.Context, e *domain.OrderEvent) error {
	if r.insertErr != nil {
		return r.insertErr
	}
	r.inserted = append(r.inserted, e)
	return nil
}

func abandonEvent() domain.OrderEvent {
	order := &domain.Order{ID: "order-1", ClientID: "client-1", Status: domain.StatusAvailable}
	return domain.OrderEvent{
		OrderID:           order.ID,
		Transition:        domain.TransitionAbandon,
		From:              domain.StatusInProgress,
		To:                domain.StatusAvailable,
		ActorID:           "booster-1",
		ClientID:          order.ClientID,
		PreviousBoosterID: "booster-1",
		OccurredAt:        time.Now().UTC(),
		Order:             order,
	}
}

func TestOrderEventService_Handle_RecordsAndBroadcasts(t *testing.T) {
	repo := &stubEventRepo{}
	rooms := newStubRooms()
	rooms.Join("order-1", stubMember{id: "conn-b", principal: "booster-1"})
	rooms.Join("order-1", stubMember{id: "conn-c", principal: "client-1"})

	svc := NewOrderEventService(repo, rooms, zerolog.Nop())
	if err := svc.Handle(context.Background(), abandonEvent()); err != nil {
		t.Fatalf("expected no error, got: %v", err)
	}

	if len(repo.inserted) != 1 || repo.inserted[0].Transition != domain.TransitionAbandon {
		t.Fatalf("expected audit event inserted, got %+v", repo.inserted)
	}
	if got := rooms.orders["order-1"]; len(got) != 1 || got[0].Status != domain.StatusAvailable {
		t.Fatalf("expected order status broadcast, got %+v", got)
	}
	if len(rooms.evicted) != 1 || rooms.evicted[0] != "order-1:booster-1" {
		t.Fatalf("expected previous booster evicted, got %v", rooms.evicted)
	}
	if rooms.size("order-1") != 1 {
		t.Fatalf("expected only the client to remain, got %d members", rooms.size("order-1"))
	}
}

func TestOrderEventService_Handle_AuditFailureIsNonFatal(t *testing.T) {
	repo := &stubEventRepo{insertErr: errors.New("mongo unavailable")}
	rooms := newStubRooms()

	svc := NewOrderEventService(repo, rooms, zerolog.Nop())
	if err := svc.Handle(context.Background(), abandonEvent()); err != nil {
		t.Fatalf("expected audit failure to be non-fatal, got: %v", err)
	}
	if len(rooms.orders["order-1"]) != 1 {
		t.Fatalf("expected broadcast despite audit failure")
	}
}

func TestOrderEventService_Handle_NoEvictionWithoutBoosterChange(t *testing.T) {
	repo := &stubEventRepo{}
	rooms := newStubRooms()

	ev := abandonEvent()
	ev.PreviousBoosterID = ""
	svc := NewOrderEventService(repo, rooms, zerolog.Nop())
	_ = svc.Handle(context.Background(), ev)

	if len(rooms.evicted) != 0 {
		t.Fatalf("expected no eviction, got %v", rooms.evicted)
	}
}

func TestOrderEventService_Handle_WithoutRooms(t *testing.T) {
	repo := &stubEventRepo{}
	svc := NewOrderEventService(repo, nil, zerolog.Nop())
	if err := svc.Handle(context.Background(), abandonEvent()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(repo.inserted) != 1 {
		t.Fatalf("expected audit event inserted")
	}
}

func TestOrderEventService_Handle_SkipsStaleOrderState(t *testing.T) {
	rooms := newStubRooms()
	svc := NewOrderEventService(&stubEventRepo{}, rooms, zerolog.Nop())
	ctx := context.Background()

	// The claim committed after the abandon but is handled first.
	claimed := abandonEvent()
	claimed.Transition = domain.TransitionClaim
	claimed.PreviousBoosterID = ""
	claimed.Order = &domain.Order{ID: "order-1", ClientID: "client-1", BoosterID: "booster-2", Status: domain.StatusInProgress, Version: 3}

	released := abandonEvent()
	released.Order.Version = 2

	if err := svc.Handle(ctx, claimed); err != nil {
		t.Fatalf("handle claim: %v", err)
	}
	if err := svc.Handle(ctx, released); err != nil {
		t.Fatalf("handle abandon: %v", err)
	}

	got := rooms.orders["order-1"]
	if len(got) != 1 || got[0].Status != domain.StatusInProgress {
		t.Fatalf("expected only the newer state broadcast, got %+v", got)
	}
	if len(rooms.evicted) != 1 || rooms.evicted[0] != "order-1:booster-1" {
		t.Fatalf("stale event must still evict the previous booster, got %v", rooms.evicted)
	}
}
