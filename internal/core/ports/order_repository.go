package ports

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	"github.com/boostly/boosting-marketplace/internal/core/domain"
)

// ListOrdersFilter carries the optional filters for order listings.
// Zero values mean no filter.
type ListOrdersFilter struct {
	ClientID  string
	BoosterID string
	Status    domain.OrderStatus
	Limit     int // capped by the service
}

// OrderRepository defines persistence operations for orders.
type OrderRepository interface {
	// Create inserts o and assigns o.ID.
	Create(ctx context.Context, o *domain.Order) error
	FindByID(ctx context.Context, id string) (*domain.Order, error)

	// UpdateIf applies patch only while the stored order still matches
	// expect. It returns domain.ErrConflict when the expectation fails and
	// domain.ErrOrderNotFound when the order is gone.
	UpdateIf(ctx context.Context, id string, expect domain.OrderExpectation, patch domain.OrderPatch) (*domain.Order, error)

	// CompleteAndCredit moves an InProgress order held by boosterID to
	// Completed and adds its price to the booster's wallet in one
	// transaction. Neither write is committed unless both succeed.
	CompleteAndCredit(ctx context.Context, id, boosterID string, at time.Time) (*domain.Order, decimal.Decimal, error)

	// SetFeedback stores client feedback on a completed order owned by
	// clientID. Other orders yield domain.ErrOrderNotFound, orders that are
	// not completed a precondition error.
	SetFeedback(ctx context.Context, id, clientID, feedback string) (*domain.Order, error)

	// UpdateDetails writes the descriptive fields of an order without
	// touching its status or booster.
	UpdateDetails(ctx context.Context, id string, details domain.OrderDetails) (*domain.Order, error)

	// List returns orders newest first.
	List(ctx context.Context, filter ListOrdersFilter) ([]*domain.Order, error)

	// Delete removes an order and its chat history (administrative override).
	Delete(ctx context.Context, id string) error
}
