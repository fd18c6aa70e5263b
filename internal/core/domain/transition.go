package domain

import "github.com/shopspring/decimal"

// TransitionKind names a lifecycle transition in logs, metrics and events.
type TransitionKind string

const (
	TransitionCreate            TransitionKind = "create"
	TransitionPublish           TransitionKind = "publish"
	TransitionAssign            TransitionKind = "assign"
	TransitionClaim             TransitionKind = "claim"
	TransitionAbandon           TransitionKind = "abandon"
	TransitionComplete          TransitionKind = "complete"
	TransitionRemoveBooster     TransitionKind = "remove_booster"
	TransitionRequestNewBooster TransitionKind = "request_new_booster"
)

// Transition is the closed set of lifecycle requests. Only the types in this
// file implement it.
type Transition interface {
	Kind() TransitionKind
	transition()
}

// Create opens a new order. ClientID is only honoured for admin callers; a
// client always creates orders for itself.
type Create struct {
	ClientID       string
	Price          decimal.Decimal
	Type           string
	AccountLogin   string
	AdditionalInfo string
	// Publish creates the order directly in Available instead of Pending.
	Publish bool
}

// Publish raises a Pending order to Available.
type Publish struct{ OrderID string }

// Assign puts a booster on an Available order (admin-directed).
type Assign struct {
	OrderID   string
	BoosterID string
}

// Claim lets the calling booster take an Available order.
type Claim struct{ OrderID string }

// Abandon releases an order held by the calling booster.
type Abandon struct{ OrderID string }

// Complete finishes an order and credits the booster's wallet.
type Complete struct{ OrderID string }

// RemoveBooster clears the booster of an order (admin override).
type RemoveBooster struct{ OrderID string }

// RequestNewBooster lets the owning client drop the current booster.
type RequestNewBooster struct{ OrderID string }

func (Create) Kind() TransitionKind            { return TransitionCreate }
func (Publish) Kind() TransitionKind           { return TransitionPublish }
func (Assign) Kind() TransitionKind            { return TransitionAssign }
func (Claim) Kind() TransitionKind             { return TransitionClaim }
func (Abandon) Kind() TransitionKind           { return TransitionAbandon }
func (Complete) Kind() TransitionKind          { return TransitionComplete }
func (RemoveBooster) Kind() TransitionKind     { return TransitionRemoveBooster }
func (RequestNewBooster) Kind() TransitionKind { return TransitionRequestNewBooster }

func (Create) transition()            {}
func (Publish) transition()           {}
func (Assign) transition()            {}
func (Claim) transition()             {}
func (Abandon) transition()           {}
func (Complete) transition()          {}
func (RemoveBooster) transition()     {}
func (RequestNewBooster) transition() {}
