package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// OrderEvent records a committed lifecycle transition.
type OrderEvent struct {
	OrderID           string
	Transition        TransitionKind
	From              OrderStatus // empty for create
	To                OrderStatus
	ActorID           string
	ClientID          string
	BoosterID         string
	PreviousBoosterID string
	Amount            decimal.Decimal // credited amount, complete only
	OccurredAt        time.Time
	Order             *Order
}
