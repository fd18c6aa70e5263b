package ports

import (
	"context"

	"github.com/boostly/boosting-marketplace/internal/core/domain"
)

// RegisterInput carries the fields of a new account.
type RegisterInput struct {
	Email     string
	Password  string
	FirstName string
	LastName  string
	Role      domain.Role
}

type AuthService interface {
	Register(ctx context.Context, in RegisterInput) (*domain.User, error)
	Login(ctx context.Context, email, password string) (string, *domain.User, error)
}

// UpdateUserInput carries an account edit. Nil fields are left unchanged.
type UpdateUserInput struct {
	Email     *string
	Password  *string
	FirstName *string
	LastName  *string
}

// UserService manages accounts beyond self-registration.
type UserService interface {
	// CreateUser creates an account of any role (administrative).
	CreateUser(ctx context.Context, p domain.Principal, in RegisterInput) (*domain.User, error)
	// UpdateUser edits any account (administrative).
	UpdateUser(ctx context.Context, p domain.Principal, userID string, in UpdateUserInput) (*domain.User, error)
	// DeleteUser removes an account (administrative). Admins cannot delete
	// themselves.
	DeleteUser(ctx context.Context, p domain.Principal, userID string) error
	// Profile returns the caller's own account.
	Profile(ctx context.Context, p domain.Principal) (*domain.User, error)
	// UpdateProfile edits the caller's own account.
	UpdateProfile(ctx context.Context, p domain.Principal, in UpdateUserInput) (*domain.User, error)
	// EnsureAdmin creates the bootstrap admin when no account uses email.
	EnsureAdmin(ctx context.Context, email, password string) (*domain.User, error)
}
