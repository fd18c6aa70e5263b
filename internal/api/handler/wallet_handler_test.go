package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"testing"

	"github.com/shopspring/decimal"

	"github.com/boostly/boosting-marketplace/internal/core/domain"
)

type stubWallet struct {
	balance  decimal.Decimal
	adjusted decimal.Decimal
	role     domain.Role
	err      error
}

func (s *stubWallet) Balance(_ context.Context, boosterID string) (decimal.Decimal, error) {
	return s.balance, s.err
}

func (s *stubWallet) Adjust(_ context.Context, _ domain.Principal, boosterID string, amount decimal.Decimal) (decimal.Decimal, error) {
	if s.err != nil {
		return decimal.Zero, s.err
	}
	s.adjusted = amount
	s.balance = s.balance.Add(amount)
	return s.balance, nil
}

func (s *stubWallet) ListUsers(_ context.Context, role domain.Role) ([]*domain.User, error) {
	s.role = role
	return []*domain.User{{ID: "b1", Role: domain.RoleBooster}}, s.err
}

func TestWalletHandler_Balance(t *testing.T) {
	h := NewWalletHandler(&stubWallet{balance: decimal.RequireFromString("12.50")})
	c, rec := newJSONContext(http.MethodGet, "/booster/wallet", "", boosterPrincipal)

	if err := h.Balance(c); err != nil {
		t.Fatalf("handler error: %v", err)
	}
	var body map[string]string
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("invalid json: %v", err)
	}
	if body["booster_id"] != "b1" || body["wallet"] != "12.5" {
		t.Fatalf("unexpected body %v", body)
	}
}

func TestWalletHandler_AddAndRemoveFunds(t *testing.T) {
	w := &stubWallet{balance: decimal.NewFromInt(10)}
	h := NewWalletHandler(w)

	c, _ := newJSONContext(http.MethodPut, "/admin/boosters/b1/add-funds", `{"amount":"5.25"}`, adminPrincipal)
	c.SetParamNames("id")
	c.SetParamValues("b1")
	if err := h.AddFunds(c); err != nil {
		t.Fatalf("add funds: %v", err)
	}
	if !w.adjusted.Equal(decimal.RequireFromString("5.25")) {
		t.Fatalf("expected credit of 5.25, got %s", w.adjusted)
	}

	c, rec := newJSONContext(http.MethodPut, "/admin/boosters/b1/remove-funds", `{"amount":"20"}`, adminPrincipal)
	c.SetParamNames("id")
	c.SetParamValues("b1")
	if err := h.RemoveFunds(c); err != nil {
		t.Fatalf("remove funds: %v", err)
	}
	if !w.adjusted.Equal(decimal.NewFromInt(-20)) {
		t.Fatalf("expected debit of 20, got %s", w.adjusted)
	}
	var body map[string]string
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("invalid json: %v", err)
	}
	if body["wallet"] != "-4.75" {
		t.Fatalf("wallet may overdraw, got %v", body["wallet"])
	}
}

func TestWalletHandler_RejectsNonPositiveAmounts(t *testing.T) {
	h := NewWalletHandler(&stubWallet{})

	for _, body := range []string{`{"amount":"0"}`, `{"amount":"-3"}`} {
		c, _ := newJSONContext(http.MethodPut, "/admin/boosters/b1/add-funds", body, adminPrincipal)
		if err := h.AddFunds(c); !errors.Is(err, domain.ErrInvalidInput) {
			t.Fatalf("body %s: expected invalid input, got %v", body, err)
		}
	}

	c, _ := newJSONContext(http.MethodPut, "/admin/boosters/b1/add-funds", `{"amount":"lots"}`, adminPrincipal)
	if got := httpStatus(h.AddFunds(c)); got != http.StatusUnprocessableEntity {
		t.Fatalf("expected 422, got %d", got)
	}
}

func TestWalletHandler_ListUsers(t *testing.T) {
	w := &stubWallet{}
	h := NewWalletHandler(w)
	c, rec := newJSONContext(http.MethodGet, "/admin/users?role=Booster", "", adminPrincipal)

	if err := h.ListUsers(c); err != nil {
		t.Fatalf("handler error: %v", err)
	}
	if w.role != domain.RoleBooster {
		t.Fatalf("expected role filter, got %q", w.role)
	}
	var body listUsersResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("invalid json: %v", err)
	}
	if body.Count != 1 {
		t.Fatalf("unexpected body %+v", body)
	}
}
