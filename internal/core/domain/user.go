package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// Role is one of three disjoint principal variants, fixed at creation.
type Role string

const (
	RoleClient  Role = "Client"
	RoleBooster Role = "Booster"
	RoleAdmin   Role = "Admin"
)

// Valid reports whether r is a known role.
func (r Role) Valid() bool {
	return r == RoleClient || r == RoleBooster || r == RoleAdmin
}

// Principal is the authenticated caller supplied by the identity layer.
type Principal struct {
	ID   string
	Role Role
}

// User models an account. Wallet is only meaningful for boosters and may be
// negative after an administrative debit.
type User struct {
	ID           string          `json:"id"`
	Email        string          `json:"email"`
	FirstName    string          `json:"first_name,omitempty"`
	LastName     string          `json:"last_name,omitempty"`
	PasswordHash string          `json:"-"`
	Role         Role            `json:"role"`
	Wallet       decimal.Decimal `json:"wallet"`
	CreatedAt    time.Time       `json:"created_at"`
	UpdatedAt    time.Time       `json:"updated_at"`
}

// UserUpdate edits account fields. Nil fields are left unchanged. Role and
// wallet have no field here: roles are fixed at creation and the wallet is
// only written by order completion and administrative adjustments.
type UserUpdate struct {
	Email        *string
	FirstName    *string
	LastName     *string
	PasswordHash *string
	UpdatedAt    time.Time
}

// Empty reports whether u changes nothing.
func (u UserUpdate) Empty() bool {
	return u.Email == nil && u.FirstName == nil && u.LastName == nil && u.PasswordHash == nil
}

// Apply writes the set fields onto user.
func (u UserUpdate) Apply(user *User) {
	if u.Email != nil {
		user.Email = *u.Email
	}
	if u.FirstName != nil {
		user.FirstName = *u.FirstName
	}
	if u.LastName != nil {
		user.LastName = *u.LastName
	}
	if u.PasswordHash != nil {
		user.PasswordHash = *u.PasswordHash
	}
	user.UpdatedAt = u.UpdatedAt
}
