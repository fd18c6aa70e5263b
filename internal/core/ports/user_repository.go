package ports

import (
	"context"

	"github.com/shopspring/decimal"

	"github.com/boostly/boosting-marketplace/internal/core/domain"
)

// UserRepository defines persistence for accounts and booster wallets.
type UserRepository interface {
	Create(ctx context.Context, user *domain.User) (*domain.User, error)
	FindByID(ctx context.Context, id string) (*domain.User, error)
	FindByEmail(ctx context.Context, email string) (*domain.User, error)
	// List returns users, optionally restricted to one role.
	List(ctx context.Context, role domain.Role) ([]*domain.User, error)

	// Update writes the set fields of upd and returns the stored user. A
	// taken email yields domain.ErrUserExists.
	Update(ctx context.Context, id string, upd domain.UserUpdate) (*domain.User, error)
	// Delete removes an account. Accounts still referenced by an order as
	// client or booster yield a precondition error.
	Delete(ctx context.Context, id string) error

	// CreditWallet atomically adds amount (which may be negative) to the
	// wallet of a booster and returns the new balance. Users with another
	// role yield domain.ErrBoosterNotFound.
	CreditWallet(ctx context.Context, boosterID string, amount decimal.Decimal) (decimal.Decimal, error)
}
