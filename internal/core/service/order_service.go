package service

import (
	"context"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/rs/zerolog"

	"github.com/boostly/boosting-marketplace/internal/core/domain"
	"github.com/boostly/boosting-marketplace/internal/core/ports"
)

const (
	defaultListLimit  = 50
	maxListLimit      = 100
	maxFeedbackLength = 2000
)

type OrderService struct {
	repo   ports.OrderRepository
	logger zerolog.Logger
}

func NewOrderService(repo ports.OrderRepository, logger zerolog.Logger) *OrderService {
	return &OrderService{repo: repo, logger: logger}
}

// Get returns one order if p may see it: admins see everything, clients their
// own orders, boosters the orders they hold plus the open marketplace.
func (s *OrderService) Get(ctx context.Context, p domain.Principal, orderID string) (*domain.Order, error) {
	o, err := s.repo.FindByID(ctx, orderID)
	if err != nil {
		return nil, err
	}

	switch p.Role {
	case domain.RoleAdmin:
		return o, nil
	case domain.RoleClient:
		if o.ClientID == p.ID {
			return o, nil
		}
	case domain.RoleBooster:
		if o.BoosterID == p.ID || o.Status == domain.StatusAvailable {
			return o, nil
		}
	}
	return nil, domain.Forbidden("order is not visible to you")
}

// ListAvailable returns the orders boosters can claim.
func (s *OrderService) ListAvailable(ctx context.Context, limit int) ([]*domain.Order, error) {
	return s.repo.List(ctx, ports.ListOrdersFilter{Status: domain.StatusAvailable, Limit: clampLimit(limit)})
}

// History returns the orders a principal owns (client) or has held (booster).
func (s *OrderService) History(ctx context.Context, p domain.Principal, limit int) ([]*domain.Order, error) {
	filter := ports.ListOrdersFilter{Limit: clampLimit(limit)}
	switch p.Role {
	case domain.RoleClient:
		filter.ClientID = p.ID
	case domain.RoleBooster:
		filter.BoosterID = p.ID
	case domain.RoleAdmin:
	default:
		return nil, domain.Forbidden("unknown role")
	}
	return s.repo.List(ctx, filter)
}

// ListAll is the administrative listing, optionally filtered by status.
func (s *OrderService) ListAll(ctx context.Context, status domain.OrderStatus, limit int) ([]*domain.Order, error) {
	if status != "" && !status.Valid() {
		return nil, domain.Invalid(fmt.Sprintf("unknown status %q", status))
	}
	return s.repo.List(ctx, ports.ListOrdersFilter{Status: status, Limit: clampLimit(limit)})
}

// SubmitFeedback stores the owning client's feedback on a completed order.
func (s *OrderService) SubmitFeedback(ctx context.Context, p domain.Principal, orderID, feedback string) (*domain.Order, error) {
	feedback = strings.TrimSpace(feedback)
	if feedback == "" {
		return nil, domain.Invalid("feedback is required")
	}
	if utf8.RuneCountInString(feedback) > maxFeedbackLength {
		return nil, domain.Invalid("feedback is too long")
	}

	o, err := s.repo.FindByID(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if p.Role != domain.RoleClient || o.ClientID != p.ID {
		return nil, domain.Forbidden("order belongs to another client")
	}
	if o.Status != domain.StatusCompleted {
		return nil, domain.Precondition("feedback is only accepted for completed orders")
	}

	updated, err := s.repo.SetFeedback(ctx, orderID, p.ID, feedback)
	if err != nil {
		return nil, err
	}
	s.logger.Info().Str("order_id", orderID).Str("client_id", p.ID).Msg("feedback submitted")
	return updated, nil
}

// Delete removes an order regardless of status. Admin only.
func (s *OrderService) Delete(ctx context.Context, p domain.Principal, orderID string) error {
	if p.Role != domain.RoleAdmin {
		return domain.Forbidden("only admins can delete orders")
	}
	if err := s.repo.Delete(ctx, orderID); err != nil {
		return err
	}
	s.logger.Warn().Str("order_id", orderID).Str("admin_id", p.ID).Msg("order deleted by admin")
	return nil
}

// UpdateDetails edits the descriptive fields of any order. Admin only.
func (s *OrderService) UpdateDetails(ctx context.Context, p domain.Principal, orderID string, details domain.OrderDetails) (*domain.Order, error) {
	if p.Role != domain.RoleAdmin {
		return nil, domain.Forbidden("only admins can edit orders")
	}
	if details.Empty() {
		return nil, domain.Invalid("nothing to update")
	}
	if details.Type != nil {
		t := strings.TrimSpace(*details.Type)
		if t == "" {
			return nil, domain.Invalid("type must not be empty")
		}
		details.Type = &t
	}
	details.UpdatedAt = time.Now().UTC()

	updated, err := s.repo.UpdateDetails(ctx, orderID, details)
	if err != nil {
		return nil, err
	}
	s.logger.Info().Str("order_id", orderID).Str("admin_id", p.ID).Msg("order details updated")
	return updated, nil
}

func clampLimit(limit int) int {
	if limit <= 0 {
		return defaultListLimit
	}
	if limit > maxListLimit {
		return maxListLimit
	}
	return limit
}
