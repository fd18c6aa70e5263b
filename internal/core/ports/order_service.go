package ports

import (
	"context"

	"github.com/shopspring/decimal"

	"github.com/boostly/boosting-marketplace/internal/core/domain"
)

// LifecycleService applies order transitions on behalf of a principal.
type LifecycleService interface {
	// Apply executes any transition and returns the resulting order.
	Apply(ctx context.Context, p domain.Principal, t domain.Transition) (*domain.Order, error)
	// Complete executes the complete transition and also reports the
	// booster's wallet balance after the credit.
	Complete(ctx context.Context, p domain.Principal, t domain.Complete) (*domain.Order, decimal.Decimal, error)
}

// OrderQueryService serves read paths and non-lifecycle order updates.
type OrderQueryService interface {
	Get(ctx context.Context, p domain.Principal, orderID string) (*domain.Order, error)
	ListAvailable(ctx context.Context, limit int) ([]*domain.Order, error)
	History(ctx context.Context, p domain.Principal, limit int) ([]*domain.Order, error)
	ListAll(ctx context.Context, status domain.OrderStatus, limit int) ([]*domain.Order, error)
	SubmitFeedback(ctx context.Context, p domain.Principal, orderID, feedback string) (*domain.Order, error)
	Delete(ctx context.Context, p domain.Principal, orderID string) error
	// UpdateDetails edits descriptive fields (administrative).
	UpdateDetails(ctx context.Context, p domain.Principal, orderID string, details domain.OrderDetails) (*domain.Order, error)
}

// WalletService serves booster balances and the administrative adjustment
// path. It is the only wallet writer besides order completion.
type WalletService interface {
	Balance(ctx context.Context, boosterID string) (decimal.Decimal, error)
	Adjust(ctx context.Context, p domain.Principal, boosterID string, amount decimal.Decimal) (decimal.Decimal, error)
	ListUsers(ctx context.Context, role domain.Role) ([]*domain.User, error)
}
