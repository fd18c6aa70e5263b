package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// OrderStatus represents the lifecycle state of an order. The string values
// are part of the external contract.
type OrderStatus string

const (
	StatusPending    OrderStatus = "Pending"
	StatusAvailable  OrderStatus = "Available"
	StatusInProgress OrderStatus = "InProgress"
	StatusCompleted  OrderStatus = "Completed"
)

// validTransitions defines the allowed status moves. Completed is terminal.
var validTransitions = map[OrderStatus][]OrderStatus{
	StatusPending:    {StatusAvailable},
	StatusAvailable:  {StatusInProgress},
	StatusInProgress: {StatusAvailable, StatusCompleted},
}

// CanTransitionTo reports whether a transition from current status to next is valid.
func (s OrderStatus) CanTransitionTo(next OrderStatus) bool {
	for _, allowed := range validTransitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

// Valid reports whether s is one of the four known statuses.
func (s OrderStatus) Valid() bool {
	switch s {
	case StatusPending, StatusAvailable, StatusInProgress, StatusCompleted:
		return true
	}
	return false
}

// HasBooster reports whether orders in this status carry an assigned booster.
func (s OrderStatus) HasBooster() bool {
	return s == StatusInProgress || s == StatusCompleted
}

// Order is a unit of purchased boosting work.
type Order struct {
	ID             string          `json:"id"`
	ClientID       string          `json:"client_id"`
	BoosterID      string          `json:"booster_id,omitempty"`
	Status         OrderStatus     `json:"status"`
	Price          decimal.Decimal `json:"price"`
	Type           string          `json:"type"`
	AccountLogin   string          `json:"account_login,omitempty"`
	AdditionalInfo string          `json:"additional_info,omitempty"`
	Feedback       string          `json:"feedback,omitempty"`
	CreatedAt      time.Time       `json:"created_at"`
	UpdatedAt      time.Time       `json:"updated_at"`
	StartedAt      *time.Time      `json:"started_at,omitempty"`
	CompletedAt    *time.Time      `json:"completed_at,omitempty"`
	// Version starts at 1 and grows by one with every stored write, so
	// consumers of pushed order states can drop the stale ones.
	Version int64 `json:"version"`
}

// HasBooster reports whether a booster is currently assigned.
func (o *Order) HasBooster() bool {
	return o.BoosterID != ""
}

// IsParticipant reports whether principalID is the client or the assigned booster.
func (o *Order) IsParticipant(principalID string) bool {
	if principalID == "" {
		return false
	}
	return o.ClientID == principalID || o.BoosterID == principalID
}

// Counterpart resolves the receiver of a chat message sent by senderID.
// An empty receiver with a nil error means no booster is assigned yet.
func (o *Order) Counterpart(senderID string) (string, error) {
	switch {
	case senderID == "":
		return "", ErrInvalidSender
	case o.ClientID == senderID:
		return o.BoosterID, nil
	case o.BoosterID == senderID:
		return o.ClientID, nil
	default:
		return "", ErrInvalidSender
	}
}

// OrderExpectation is the compare-and-set condition for a conditional write:
// the stored order must still have this status and booster.
type OrderExpectation struct {
	Status    OrderStatus
	BoosterID string
}

// ExpectationOf captures the CAS condition matching the current state of o.
func ExpectationOf(o *Order) OrderExpectation {
	return OrderExpectation{Status: o.Status, BoosterID: o.BoosterID}
}

// Matches reports whether o satisfies the expectation.
func (e OrderExpectation) Matches(o *Order) bool {
	return o.Status == e.Status && o.BoosterID == e.BoosterID
}

// OrderPatch lists the fields a transition writes. BoosterID is always
// written, so an empty value clears the assignment.
type OrderPatch struct {
	Status      OrderStatus
	BoosterID   string
	UpdatedAt   time.Time
	StartedAt   *time.Time
	CompletedAt *time.Time
}

// Apply writes the patch onto o.
func (p OrderPatch) Apply(o *Order) {
	o.Version++
	o.Status = p.Status
	o.BoosterID = p.BoosterID
	o.UpdatedAt = p.UpdatedAt
	if p.StartedAt != nil {
		o.StartedAt = p.StartedAt
	}
	if p.CompletedAt != nil {
		o.CompletedAt = p.CompletedAt
	}
}

// OrderDetails edits the descriptive fields of an order. Nil fields are left
// unchanged. Status, booster and price are owned by the lifecycle and cannot
// be expressed here.
type OrderDetails struct {
	Type           *string
	AccountLogin   *string
	AdditionalInfo *string
	UpdatedAt      time.Time
}

// Empty reports whether d changes nothing.
func (d OrderDetails) Empty() bool {
	return d.Type == nil && d.AccountLogin == nil && d.AdditionalInfo == nil
}

// Apply writes the set fields onto o.
func (d OrderDetails) Apply(o *Order) {
	o.Version++
	if d.Type != nil {
		o.Type = *d.Type
	}
	if d.AccountLogin != nil {
		o.AccountLogin = *d.AccountLogin
	}
	if d.AdditionalInfo != nil {
		o.AdditionalInfo = *d.AdditionalInfo
	}
	o.UpdatedAt = d.UpdatedAt
}
