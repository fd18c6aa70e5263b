package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/boostly/boosting-marketplace/internal/core/domain"
	"github.com/boostly/boosting-marketplace/internal/core/ports"
)

// WalletService reads booster balances and applies administrative
// adjustments. Adjustments go through the repository's atomic increment so
// concurrent admin edits never lose an update.
type WalletService struct {
	users ports.UserRepository
	log   zerolog.Logger
}

func NewWalletService(users ports.UserRepository, log zerolog.Logger) *WalletService {
	return &WalletService{users: users, log: log}
}

func (s *WalletService) Balance(ctx context.Context, boosterID string) (decimal.Decimal, error) {
	u, err := s.users.FindByID(ctx, boosterID)
	if errors.Is(err, domain.ErrNotFound) {
		return decimal.Zero, domain.ErrBoosterNotFound
	}
	if err != nil {
		return decimal.Zero, err
	}
	if u.Role != domain.RoleBooster {
		return decimal.Zero, domain.ErrBoosterNotFound
	}
	return u.Wallet, nil
}

// Adjust adds amount to a booster wallet; a negative amount debits and may
// overdraw the wallet.
func (s *WalletService) Adjust(ctx context.Context, p domain.Principal, boosterID string, amount decimal.Decimal) (decimal.Decimal, error) {
	if p.Role != domain.RoleAdmin {
		return decimal.Zero, domain.Forbidden("only admins can adjust wallets")
	}
	if amount.IsZero() {
		return decimal.Zero, domain.Invalid("amount must not be zero")
	}

	balance, err := s.users.CreditWallet(ctx, boosterID, amount)
	if err != nil {
		return decimal.Zero, fmt.Errorf("adjust wallet: %w", err)
	}

	s.log.Info().
		Str("booster_id", boosterID).
		Str("admin_id", p.ID).
		Str("amount", amount.String()).
		Str("wallet", balance.String()).
		Msg("wallet adjusted")
	return balance, nil
}

func (s *WalletService) ListUsers(ctx context.Context, role domain.Role) ([]*domain.User, error) {
	if role != "" && !role.Valid() {
		return nil, domain.Invalid(fmt.Sprintf("unknown role %q", role))
	}
	return s.users.List(ctx, role)
}
