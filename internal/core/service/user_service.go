package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/boostly/boosting-marketplace/internal/core/domain"
	"github.com/boostly/boosting-marketplace/internal/core/ports"
)

const maxNameLength = 100

// UserService manages accounts on behalf of admins and account owners.
// Edits never reach role or wallet: domain.UserUpdate has no field for them.
type UserService struct {
	users ports.UserRepository
	log   zerolog.Logger
}

var _ ports.UserService = (*UserService)(nil)

func NewUserService(users ports.UserRepository, log zerolog.Logger) *UserService {
	return &UserService{users: users, log: log}
}

func (s *UserService) CreateUser(ctx context.Context, p domain.Principal, in ports.RegisterInput) (*domain.User, error) {
	if p.Role != domain.RoleAdmin {
		return nil, domain.Forbidden("only admins can create accounts")
	}
	user, err := newAccount(in)
	if err != nil {
		return nil, err
	}
	created, err := s.users.Create(ctx, user)
	if err != nil {
		return nil, err
	}

	s.log.Info().
		Str("user_id", created.ID).
		Str("role", string(created.Role)).
		Str("admin_id", p.ID).
		Msg("account created")
	return created, nil
}

func (s *UserService) UpdateUser(ctx context.Context, p domain.Principal, userID string, in ports.UpdateUserInput) (*domain.User, error) {
	if p.Role != domain.RoleAdmin {
		return nil, domain.Forbidden("only admins can edit other accounts")
	}
	return s.update(ctx, userID, in)
}

func (s *UserService) DeleteUser(ctx context.Context, p domain.Principal, userID string) error {
	if p.Role != domain.RoleAdmin {
		return domain.Forbidden("only admins can delete accounts")
	}
	if userID == p.ID {
		return domain.Precondition("admins cannot delete their own account")
	}
	if err := s.users.Delete(ctx, userID); err != nil {
		return fmt.Errorf("delete user: %w", err)
	}

	s.log.Info().Str("user_id", userID).Str("admin_id", p.ID).Msg("account deleted")
	return nil
}

func (s *UserService) Profile(ctx context.Context, p domain.Principal) (*domain.User, error) {
	return s.users.FindByID(ctx, p.ID)
}

func (s *UserService) UpdateProfile(ctx context.Context, p domain.Principal, in ports.UpdateUserInput) (*domain.User, error) {
	return s.update(ctx, p.ID, in)
}

// EnsureAdmin creates an Admin account for email unless one already exists.
// An existing account with another role is left alone and reported.
func (s *UserService) EnsureAdmin(ctx context.Context, email, password string) (*domain.User, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	existing, err := s.users.FindByEmail(ctx, email)
	switch {
	case err == nil && existing.Role == domain.RoleAdmin:
		return existing, nil
	case err == nil:
		return nil, domain.Precondition(fmt.Sprintf("bootstrap account %s exists with role %s", email, existing.Role))
	case !errors.Is(err, domain.ErrNotFound):
		return nil, err
	}

	user, err := newAccount(ports.RegisterInput{Email: email, Password: password, Role: domain.RoleAdmin})
	if err != nil {
		return nil, err
	}
	created, err := s.users.Create(ctx, user)
	if errors.Is(err, domain.ErrUserExists) {
		// Another instance bootstrapped concurrently.
		return s.users.FindByEmail(ctx, email)
	}
	if err != nil {
		return nil, err
	}

	s.log.Info().Str("user_id", created.ID).Msg("bootstrap admin created")
	return created, nil
}

func (s *UserService) update(ctx context.Context, userID string, in ports.UpdateUserInput) (*domain.User, error) {
	upd, err := toUserUpdate(in)
	if err != nil {
		return nil, err
	}
	if upd.Empty() {
		return nil, domain.Invalid("nothing to update")
	}
	return s.users.Update(ctx, userID, upd)
}

func toUserUpdate(in ports.UpdateUserInput) (domain.UserUpdate, error) {
	upd := domain.UserUpdate{UpdatedAt: time.Now().UTC()}

	if in.Email != nil {
		email := strings.ToLower(strings.TrimSpace(*in.Email))
		if email == "" {
			return upd, domain.Invalid("email must not be empty")
		}
		upd.Email = &email
	}
	for _, f := range []struct {
		name string
		in   *string
		out  **string
	}{
		{"first name", in.FirstName, &upd.FirstName},
		{"last name", in.LastName, &upd.LastName},
	} {
		if f.in == nil {
			continue
		}
		v := strings.TrimSpace(*f.in)
		if len([]rune(v)) > maxNameLength {
			return upd, domain.Invalid(fmt.Sprintf("%s exceeds %d characters", f.name, maxNameLength))
		}
		*f.out = &v
	}
	if in.Password != nil {
		if len(*in.Password) < minPasswordLength {
			return upd, domain.Invalid(fmt.Sprintf("password must have at least %d characters", minPasswordLength))
		}
		hash, err := hashPassword(*in.Password)
		if err != nil {
			return upd, err
		}
		upd.PasswordHash = &hash
	}
	return upd, nil
}
