package handler

import (
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"
	"github.com/shopspring/decimal"

	"github.com/boostly/boosting-marketplace/internal/api/metrics"
	"github.com/boostly/boosting-marketplace/internal/core/domain"
	"github.com/boostly/boosting-marketplace/internal/core/ports"
)

// WalletHandler serves booster balances and the admin funds endpoints.
type WalletHandler struct {
	wallet ports.WalletService
}

func NewWalletHandler(wallet ports.WalletService) *WalletHandler {
	return &WalletHandler{wallet: wallet}
}

// Balance returns the calling booster's wallet.
//
// @Summary      Wallet balance
// @Tags         wallet
// @Produce      json
// @Security     BearerAuth
// @Success      200  {object}  walletResponse
// @Failure      404  {object}  errorResponse
// @Router       /booster/wallet [get]
func (h *WalletHandler) Balance(c echo.Context) error {
	p, err := principal(c)
	if err != nil {
		return err
	}
	balance, err := h.wallet.Balance(c.Request().Context(), p.ID)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, walletResponse{BoosterID: p.ID, Wallet: balance})
}

// AddFunds credits a booster wallet.
//
// @Summary      Add funds
// @Tags         admin
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        id    path      string        true  "Booster ID"
// @Param        body  body      fundsRequest  true  "Positive amount"
// @Success      200   {object}  walletResponse
// @Failure      404   {object}  errorResponse
// @Failure      422   {object}  errorResponse
// @Router       /admin/boosters/{id}/add-funds [put]
func (h *WalletHandler) AddFunds(c echo.Context) error {
	return h.adjust(c, "credit")
}

// RemoveFunds debits a booster wallet. The balance may go negative.
//
// @Summary      Remove funds
// @Tags         admin
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        id    path      string        true  "Booster ID"
// @Param        body  body      fundsRequest  true  "Positive amount"
// @Success      200   {object}  walletResponse
// @Failure      404   {object}  errorResponse
// @Failure      422   {object}  errorResponse
// @Router       /admin/boosters/{id}/remove-funds [put]
func (h *WalletHandler) RemoveFunds(c echo.Context) error {
	return h.adjust(c, "debit")
}

func (h *WalletHandler) adjust(c echo.Context, direction string) error {
	p, err := principal(c)
	if err != nil {
		return err
	}
	var req fundsRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}
	amount, err := decimal.NewFromString(strings.TrimSpace(req.Amount))
	if err != nil || !amount.IsPositive() {
		return domain.Invalid("amount must be a positive decimal number")
	}
	if direction == "debit" {
		amount = amount.Neg()
	}

	boosterID := c.Param("id")
	balance, err := h.wallet.Adjust(c.Request().Context(), p, boosterID, amount)
	if err != nil {
		return err
	}

	metrics.WalletAdjustmentsTotal.WithLabelValues(direction).Inc()
	if direction == "credit" {
		metrics.WalletCreditedTotal.WithLabelValues("admin").Add(amount.InexactFloat64())
	}
	return c.JSON(http.StatusOK, walletResponse{BoosterID: boosterID, Wallet: balance})
}

// ListUsers is the administrative user listing.
//
// @Summary      List users
// @Tags         admin
// @Produce      json
// @Security     BearerAuth
// @Param        role  query     string  false  "Role filter"  Enums(Client, Booster, Admin)
// @Success      200   {object}  listUsersResponse
// @Failure      422   {object}  errorResponse
// @Router       /admin/users [get]
func (h *WalletHandler) ListUsers(c echo.Context) error {
	users, err := h.wallet.ListUsers(c.Request().Context(), domain.Role(c.QueryParam("role")))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, listUsersResponse{Data: users, Count: len(users)})
}
