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

// UserRepository implements ports.UserRepository.
type UserRepository struct {
	s *Store
}

var _ ports.UserRepository = (*UserRepository)(nil)

func (r *UserRepository) Create(_ context.Context, user *domain.User) (*domain.User, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if _, taken := r.s.emails[user.Email]; taken {
		return nil, domain.ErrUserExists
	}
	stored := cloneUser(user)
	if stored.ID == "" {
		stored.ID = uuid.NewString()
	}
	r.s.users[stored.ID] = stored
	r.s.emails[stored.Email] = stored.ID
	return cloneUser(stored), nil
}

func (r *UserRepository) FindByID(_ context.Context, id string) (*domain.User, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	u, ok := r.s.users[id]
	if !ok {
		return nil, domain.ErrUserNotFound
	}
	return cloneUser(u), nil
}

func (r *UserRepository) FindByEmail(_ context.Context, email string) (*domain.User, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	id, ok := r.s.emails[email]
	if !ok {
		return nil, domain.ErrUserNotFound
	}
	return cloneUser(r.s.users[id]), nil
}

func (r *UserRepository) List(_ context.Context, role domain.Role) ([]*domain.User, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	out := make([]*domain.User, 0, len(r.s.users))
	for _, u := range r.s.users {
		if role != "" && u.Role != role {
			continue
		}
		out = append(out, cloneUser(u))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Email < out[j].Email })
	return out, nil
}

func (r *UserRepository) Update(_ context.Context, id string, upd domain.UserUpdate) (*domain.User, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	u, ok := r.s.users[id]
	if !ok {
		return nil, domain.ErrUserNotFound
	}
	if upd.Email != nil && *upd.Email != u.Email {
		if _, taken := r.s.emails[*upd.Email]; taken {
			return nil, domain.ErrUserExists
		}
	}
	if err := r.s.check(OpUserUpdate); err != nil {
		return nil, err
	}

	next := cloneUser(u)
	upd.Apply(next)
	if next.Email != u.Email {
		delete(r.s.emails, u.Email)
		r.s.emails[next.Email] = id
	}
	r.s.users[id] = next
	return cloneUser(next), nil
}

func (r *UserRepository) Delete(_ context.Context, id string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	u, ok := r.s.users[id]
	if !ok {
		return domain.ErrUserNotFound
	}
	for _, o := range r.s.orders {
		if o.ClientID == id || o.BoosterID == id {
			return domain.Precondition("user is referenced by orders")
		}
	}
	if err := r.s.check(OpUserDelete); err != nil {
		return err
	}
	delete(r.s.emails, u.Email)
	delete(r.s.users, id)
	return nil
}

func (r *UserRepository) CreditWallet(_ context.Context, boosterID string, amount decimal.Decimal) (decimal.Decimal, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	u, ok := r.s.users[boosterID]
	if !ok || u.Role != domain.RoleBooster {
		return decimal.Zero, domain.ErrBoosterNotFound
	}
	if err := r.s.check(OpWalletCredit); err != nil {
		return decimal.Zero, err
	}

	next := cloneUser(u)
	next.Wallet = next.Wallet.Add(amount)
	next.UpdatedAt = time.Now().UTC()
	r.s.users[boosterID] = next
	return next.Wallet, nil
}
