package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/boostly/boosting-marketplace/internal/core/domain"
	"github.com/boostly/boosting-marketplace/internal/core/ports"
)

// maxCASAttempts bounds how often a transition re-reads the order after a
// conditional write lost a race.
const maxCASAttempts = 3

// guard validates a transition against a freshly loaded order and returns the
// patch to write. A nil patch means the transition is a no-op.
type guard func(ctx context.Context, o *domain.Order, now time.Time) (*domain.OrderPatch, error)

// LifecycleService is the order state machine.
type LifecycleService struct {
	orders ports.OrderRepository
	users  ports.UserRepository
	events ports.EventPublisher
	log    zerolog.Logger
	now    func() time.Time
}

// NewLifecycleService wires the state machine. events may be nil.
func NewLifecycleService(
	orders ports.OrderRepository,
	users ports.UserRepository,
	events ports.EventPublisher,
	log zerolog.Logger,
) *LifecycleService {
	return &LifecycleService{
		orders: orders,
		users:  users,
		events: events,
		log:    log,
		now:    func() time.Time { return time.Now().UTC() },
	}
}

// Apply executes t on behalf of p.
func (s *LifecycleService) Apply(ctx context.Context, p domain.Principal, t domain.Transition) (*domain.Order, error) {
	switch t := t.(type) {
	case domain.Create:
		return s.create(ctx, p, t)
	case domain.Publish:
		return s.transition(ctx, p, t.OrderID, t.Kind(), s.publishGuard(p))
	case domain.Assign:
		if p.Role != domain.RoleAdmin {
			return nil, domain.Forbidden("only admins can assign boosters")
		}
		return s.transition(ctx, p, t.OrderID, t.Kind(), s.assignGuard(t.BoosterID))
	case domain.Claim:
		if p.Role != domain.RoleBooster {
			return nil, domain.Forbidden("only boosters can claim orders")
		}
		return s.transition(ctx, p, t.OrderID, t.Kind(), claimGuard(p))
	case domain.Abandon:
		if p.Role != domain.RoleBooster {
			return nil, domain.Forbidden("only boosters can abandon orders")
		}
		return s.transition(ctx, p, t.OrderID, t.Kind(), abandonGuard(p))
	case domain.RemoveBooster:
		if p.Role != domain.RoleAdmin {
			return nil, domain.Forbidden("only admins can remove boosters")
		}
		return s.transition(ctx, p, t.OrderID, t.Kind(), releaseGuard("cannot remove the booster of a completed order"))
	case domain.RequestNewBooster:
		if p.Role != domain.RoleClient {
			return nil, domain.Forbidden("only clients can request a new booster")
		}
		return s.transition(ctx, p, t.OrderID, t.Kind(), ownedBy(p, releaseGuard("cannot replace the booster of a completed order")))
	case domain.Complete:
		o, _, err := s.Complete(ctx, p, t)
		return o, err
	default:
		return nil, domain.Invalid(fmt.Sprintf("unsupported transition %T", t))
	}
}

// Complete finishes an InProgress order held by the calling booster and
// credits its price to the booster's wallet in the same transaction.
func (s *LifecycleService) Complete(ctx context.Context, p domain.Principal, t domain.Complete) (*domain.Order, decimal.Decimal, error) {
	if p.Role != domain.RoleBooster {
		return nil, decimal.Zero, domain.Forbidden("only boosters can complete orders")
	}
	if t.OrderID == "" {
		return nil, decimal.Zero, domain.Invalid("order id is required")
	}

	for attempt := 1; ; attempt++ {
		current, err := s.orders.FindByID(ctx, t.OrderID)
		if err != nil {
			return nil, decimal.Zero, fmt.Errorf("complete: %w", err)
		}
		if current.BoosterID != p.ID {
			return nil, decimal.Zero, fmt.Errorf("complete: %w", domain.Forbidden("order is not assigned to you"))
		}
		if current.Status != domain.StatusInProgress {
			return nil, decimal.Zero, fmt.Errorf("complete: %w", domain.Precondition("order is not in progress"))
		}

		now := s.now()
		updated, balance, err := s.orders.CompleteAndCredit(ctx, t.OrderID, p.ID, now)
		if errors.Is(err, domain.ErrConflict) {
			if attempt < maxCASAttempts {
				s.log.Debug().Str("order_id", t.OrderID).Int("attempt", attempt).Msg("complete lost a race, re-reading order")
				continue
			}
			return nil, decimal.Zero, fmt.Errorf("complete: %w", domain.Precondition("order was modified concurrently"))
		}
		if err != nil {
			s.log.Error().Err(err).Str("order_id", t.OrderID).Msg("complete transaction failed")
			return nil, decimal.Zero, fmt.Errorf("complete: %w", err)
		}

		s.log.Info().
			Str("order_id", updated.ID).
			Str("booster_id", p.ID).
			Str("amount", updated.Price.String()).
			Str("wallet", balance.String()).
			Msg("order completed and wallet credited")

		s.publish(domain.TransitionComplete, p, current, updated, updated.Price, now)
		return updated, balance, nil
	}
}

func (s *LifecycleService) create(ctx context.Context, p domain.Principal, in domain.Create) (*domain.Order, error) {
	clientID := p.ID
	switch p.Role {
	case domain.RoleClient:
	case domain.RoleAdmin:
		if in.ClientID == "" {
			return nil, domain.Invalid("client id is required")
		}
		client, err := s.users.FindByID(ctx, in.ClientID)
		if err != nil {
			return nil, fmt.Errorf("create: %w", err)
		}
		if client.Role != domain.RoleClient {
			return nil, domain.Invalid("orders can only belong to clients")
		}
		clientID = client.ID
	default:
		return nil, domain.Forbidden("only clients and admins can create orders")
	}

	if in.Price.IsNegative() {
		return nil, domain.Invalid("price must not be negative")
	}
	orderType := strings.TrimSpace(in.Type)
	if orderType == "" {
		return nil, domain.Invalid("type is required")
	}

	status := domain.StatusPending
	if in.Publish {
		status = domain.StatusAvailable
	}

	now := s.now()
	order := &domain.Order{
		ClientID:       clientID,
		Status:         status,
		Price:          in.Price,
		Type:           orderType,
		AccountLogin:   strings.TrimSpace(in.AccountLogin),
		AdditionalInfo: in.AdditionalInfo,
		CreatedAt:      now,
		UpdatedAt:      now,
		Version:        1,
	}
	if err := s.orders.Create(ctx, order); err != nil {
		s.log.Error().Err(err).Str("client_id", clientID).Msg("failed to create order")
		return nil, fmt.Errorf("create: %w", err)
	}

	s.log.Info().Str("order_id", order.ID).Str("client_id", clientID).Str("status", string(status)).Msg("order created")
	s.publish(domain.TransitionCreate, p, nil, order, decimal.Zero, now)
	return order, nil
}

// transition runs the read-validate-conditional-write loop shared by every
// transition except create and complete.
func (s *LifecycleService) transition(ctx context.Context, p domain.Principal, orderID string, kind domain.TransitionKind, g guard) (*domain.Order, error) {
	if orderID == "" {
		return nil, domain.Invalid("order id is required")
	}

	for attempt := 1; ; attempt++ {
		current, err := s.orders.FindByID(ctx, orderID)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", kind, err)
		}

		now := s.now()
		patch, err := g(ctx, current, now)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", kind, err)
		}
		if patch == nil {
			return current, nil
		}
		if current.Status != patch.Status && !current.Status.CanTransitionTo(patch.Status) {
			return nil, fmt.Errorf("%s: %w", kind, domain.Precondition(
				fmt.Sprintf("cannot move from %s to %s", current.Status, patch.Status)))
		}

		updated, err := s.orders.UpdateIf(ctx, orderID, domain.ExpectationOf(current), *patch)
		if errors.Is(err, domain.ErrConflict) {
			if attempt < maxCASAttempts {
				s.log.Debug().Str("order_id", orderID).Str("transition", string(kind)).Int("attempt", attempt).Msg("conditional write lost a race, re-reading order")
				continue
			}
			return nil, fmt.Errorf("%s: %w", kind, domain.Precondition("order was modified concurrently"))
		}
		if err != nil {
			return nil, fmt.Errorf("%s: %w", kind, err)
		}

		s.log.Info().
			Str("order_id", orderID).
			Str("transition", string(kind)).
			Str("actor_id", p.ID).
			Str("from", string(current.Status)).
			Str("to", string(updated.Status)).
			Msg("order transition applied")

		s.publish(kind, p, current, updated, decimal.Zero, now)
		return updated, nil
	}
}

func (s *LifecycleService) publishGuard(p domain.Principal) guard {
	return func(_ context.Context, o *domain.Order, now time.Time) (*domain.OrderPatch, error) {
		switch p.Role {
		case domain.RoleAdmin:
		case domain.RoleClient:
			if o.ClientID != p.ID {
				return nil, domain.Forbidden("order belongs to another client")
			}
		default:
			return nil, domain.Forbidden("only the owning client can publish an order")
		}
		if o.Status != domain.StatusPending {
			return nil, domain.Precondition("order is not pending")
		}
		return &domain.OrderPatch{Status: domain.StatusAvailable, UpdatedAt: now}, nil
	}
}

func (s *LifecycleService) assignGuard(boosterID string) guard {
	return func(ctx context.Context, o *domain.Order, now time.Time) (*domain.OrderPatch, error) {
		if boosterID == "" {
			return nil, domain.Invalid("booster id is required")
		}
		booster, err := s.users.FindByID(ctx, boosterID)
		if errors.Is(err, domain.ErrNotFound) {
			return nil, domain.ErrBoosterNotFound
		}
		if err != nil {
			return nil, err
		}
		if booster.Role != domain.RoleBooster {
			return nil, domain.ErrBoosterNotFound
		}
		if o.Status != domain.StatusAvailable {
			return nil, domain.Precondition("order is not available for assignment")
		}
		return &domain.OrderPatch{
			Status:    domain.StatusInProgress,
			BoosterID: booster.ID,
			UpdatedAt: now,
			StartedAt: &now,
		}, nil
	}
}

func claimGuard(p domain.Principal) guard {
	return func(_ context.Context, o *domain.Order, now time.Time) (*domain.OrderPatch, error) {
		if o.Status != domain.StatusAvailable {
			return nil, domain.Precondition("order is not available")
		}
		return &domain.OrderPatch{
			Status:    domain.StatusInProgress,
			BoosterID: p.ID,
			UpdatedAt: now,
			StartedAt: &now,
		}, nil
	}
}

func abandonGuard(p domain.Principal) guard {
	return func(_ context.Context, o *domain.Order, now time.Time) (*domain.OrderPatch, error) {
		if o.BoosterID != p.ID {
			return nil, domain.Forbidden("order is not assigned to you")
		}
		if o.Status == domain.StatusCompleted {
			return nil, domain.Precondition("cannot abandon a completed order")
		}
		return &domain.OrderPatch{Status: domain.StatusAvailable, UpdatedAt: now}, nil
	}
}

// releaseGuard clears the booster of an order. An InProgress order goes back
// to Available so the booster invariant keeps holding.
func releaseGuard(completedReason string) guard {
	return func(_ context.Context, o *domain.Order, now time.Time) (*domain.OrderPatch, error) {
		if o.Status == domain.StatusCompleted {
			return nil, domain.Precondition(completedReason)
		}
		if !o.HasBooster() {
			return nil, nil
		}
		status := o.Status
		if status == domain.StatusInProgress {
			status = domain.StatusAvailable
		}
		return &domain.OrderPatch{Status: status, UpdatedAt: now}, nil
	}
}

// ownedBy restricts next to the client that owns the order.
func ownedBy(p domain.Principal, next guard) guard {
	return func(ctx context.Context, o *domain.Order, now time.Time) (*domain.OrderPatch, error) {
		if o.ClientID != p.ID {
			return nil, domain.Forbidden("order belongs to another client")
		}
		return next(ctx, o, now)
	}
}

func (s *LifecycleService) publish(kind domain.TransitionKind, p domain.Principal, before, after *domain.Order, amount decimal.Decimal, at time.Time) {
	if s.events == nil {
		return
	}
	ev := domain.OrderEvent{
		OrderID:    after.ID,
		Transition: kind,
		To:         after.Status,
		ActorID:    p.ID,
		ClientID:   after.ClientID,
		BoosterID:  after.BoosterID,
		Amount:     amount,
		OccurredAt: at,
		Order:      after,
	}
	if before != nil {
		ev.From = before.Status
		if before.BoosterID != after.BoosterID {
			ev.PreviousBoosterID = before.BoosterID
		}
	}
	s.events.Publish(ev)
}
