package memory

import (
	"context"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/boostly/boosting-marketplace/internal/core/domain"
	"github.com/boostly/boosting-marketplace/internal/core/ports"
)

// OrderRepository implements ports.OrderRepository.
type OrderRepository struct {
	s *Store
}

var _ ports.OrderRepository = (*OrderRepository)(nil)

func (r *OrderRepository) Create(_ context.Context, o *domain.Order) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if err := r.s.check(OpOrderCreate); err != nil {
		return err
	}
	if o.ID == "" {
		o.ID = uuid.NewString()
	}
	if o.Version == 0 {
		o.Version = 1
	}
	r.s.orders[o.ID] = cloneOrder(o)
	return nil
}

func (r *OrderRepository) FindByID(_ context.Context, id string) (*domain.Order, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	o, ok := r.s.orders[id]
	if !ok {
		return nil, domain.ErrOrderNotFound
	}
	return cloneOrder(o), nil
}

func (r *OrderRepository) UpdateIf(_ context.Context, id string, expect domain.OrderExpectation, patch domain.OrderPatch) (*domain.Order, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	o, ok := r.s.orders[id]
	if !ok {
		return nil, domain.ErrOrderNotFound
	}
	if !expect.Matches(o) {
		return nil, domain.ErrConflict
	}
	if err := r.s.check(OpOrderUpdate); err != nil {
		return nil, err
	}

	next := cloneOrder(o)
	patch.Apply(next)
	r.s.orders[id] = next
	return cloneOrder(next), nil
}

// CompleteAndCredit stages both writes on copies and swaps them in only when
// every step succeeded.
func (r *OrderRepository) CompleteAndCredit(_ context.Context, id, boosterID string, at time.Time) (*domain.Order, decimal.Decimal, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	o, ok := r.s.orders[id]
	if !ok {
		return nil, decimal.Zero, domain.ErrOrderNotFound
	}
	if o.Status != domain.StatusInProgress || o.BoosterID != boosterID {
		return nil, decimal.Zero, domain.ErrConflict
	}
	u, ok := r.s.users[boosterID]
	if !ok || u.Role != domain.RoleBooster {
		return nil, decimal.Zero, domain.ErrBoosterNotFound
	}
	if err := r.s.check(OpOrderComplete); err != nil {
		return nil, decimal.Zero, err
	}

	order := cloneOrder(o)
	domain.OrderPatch{
		Status:      domain.StatusCompleted,
		BoosterID:   boosterID,
		UpdatedAt:   at,
		CompletedAt: &at,
	}.Apply(order)

	if err := r.s.check(OpWalletCredit); err != nil {
		return nil, decimal.Zero, err
	}
	booster := cloneUser(u)
	booster.Wallet = booster.Wallet.Add(order.Price)
	booster.UpdatedAt = at

	r.s.orders[id] = order
	r.s.users[boosterID] = booster
	return cloneOrder(order), booster.Wallet, nil
}

func (r *OrderRepository) SetFeedback(_ context.Context, id, clientID, feedback string) (*domain.Order, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	o, ok := r.s.orders[id]
	if !ok || o.ClientID != clientID {
		return nil, domain.ErrOrderNotFound
	}
	if o.Status != domain.StatusCompleted {
		return nil, domain.Precondition("feedback is only accepted for completed orders")
	}
	if err := r.s.check(OpOrderUpdate); err != nil {
		return nil, err
	}

	next := cloneOrder(o)
	next.Version++
	next.Feedback = feedback
	next.UpdatedAt = time.Now().UTC()
	r.s.orders[id] = next
	return cloneOrder(next), nil
}

func (r *OrderRepository) UpdateDetails(_ context.Context, id string, details domain.OrderDetails) (*domain.Order, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	o, ok := r.s.orders[id]
	if !ok {
		return nil, domain.ErrOrderNotFound
	}
	if err := r.s.check(OpOrderUpdate); err != nil {
		return nil, err
	}

	next := cloneOrder(o)
	details.Apply(next)
	r.s.orders[id] = next
	return cloneOrder(next), nil
}

func (r *OrderRepository) List(_ context.Context, f ports.ListOrdersFilter) ([]*domain.Order, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	out := make([]*domain.Order, 0)
	for _, o := range r.s.orders {
		if f.ClientID != "" && o.ClientID != f.ClientID {
			continue
		}
		if f.BoosterID != "" && o.BoosterID != f.BoosterID {
			continue
		}
		if f.Status != "" && o.Status != f.Status {
			continue
		}
		out = append(out, cloneOrder(o))
	}

	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].ID > out[j].ID
		}
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	if f.Limit > 0 && len(out) > f.Limit {
		out = out[:f.Limit]
	}
	return out, nil
}

func (r *OrderRepository) Delete(_ context.Context, id string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if _, ok := r.s.orders[id]; !ok {
		return domain.ErrOrderNotFound
	}
	if err := r.s.check(OpOrderUpdate); err != nil {
		return err
	}
	delete(r.s.orders, id)
	delete(r.s.messages, id)
	return nil
}
