package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"testing"

	"github.com/boostly/boosting-marketplace/internal/core/domain"
	"github.com/boostly/boosting-marketplace/internal/core/ports"
)

type stubUsers struct {
	created ports.RegisterInput
	updated ports.UpdateUserInput
	target  string
	deleted string
	err     error
}

func (s *stubUsers) CreateUser(_ context.Context, _ domain.Principal, in ports.RegisterInput) (*domain.User, error) {
	s.created = in
	if s.err != nil {
		return nil, s.err
	}
	return &domain.User{ID: "u1", Email: in.Email, Role: in.Role}, nil
}

func (s *stubUsers) UpdateUser(_ context.Context, _ domain.Principal, userID string, in ports.UpdateUserInput) (*domain.User, error) {
	s.target, s.updated = userID, in
	return &domain.User{ID: userID, Role: domain.RoleClient}, s.err
}

func (s *stubUsers) DeleteUser(_ context.Context, _ domain.Principal, userID string) error {
	s.deleted = userID
	return s.err
}

func (s *stubUsers) Profile(_ context.Context, p domain.Principal) (*domain.User, error) {
	return &domain.User{ID: p.ID, Role: p.Role}, s.err
}

func (s *stubUsers) UpdateProfile(_ context.Context, p domain.Principal, in ports.UpdateUserInput) (*domain.User, error) {
	s.target, s.updated = p.ID, in
	return &domain.User{ID: p.ID, Role: p.Role}, s.err
}

func (s *stubUsers) EnsureAdmin(context.Context, string, string) (*domain.User, error) {
	return nil, errors.New("not used")
}

func TestUserHandler_Create(t *testing.T) {
	users := &stubUsers{}
	h := NewUserHandler(users)

	c, rec := newJSONContext(http.MethodPost, "/admin/users",
		`{"email":"ops@example.com","password":"secret123","role":"Admin"}`, adminPrincipal)
	if err := h.Create(c); err != nil {
		t.Fatalf("handler error: %v", err)
	}
	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d", rec.Code)
	}
	if users.created.Role != domain.RoleAdmin || users.created.Email != "ops@example.com" {
		t.Fatalf("unexpected input: %+v", users.created)
	}

	c, _ = newJSONContext(http.MethodPost, "/admin/users", `{"email":"ops@example.com","password":"secret123"}`, adminPrincipal)
	if got := httpStatus(h.Create(c)); got != http.StatusUnprocessableEntity {
		t.Fatalf("expected 422 without role, got %d", got)
	}
}

func TestUserHandler_UpdateProfile_DropsRoleAndWallet(t *testing.T) {
	users := &stubUsers{}
	h := NewUserHandler(users)

	c, rec := newJSONContext(http.MethodPut, "/client/account",
		`{"first_name":"Ana","role":"Admin","wallet":"1000000"}`, clientPrincipal)
	if err := h.UpdateProfile(c); err != nil {
		t.Fatalf("handler error: %v", err)
	}
	if users.target != clientPrincipal.ID {
		t.Fatalf("expected own account %s, got %s", clientPrincipal.ID, users.target)
	}
	if users.updated.FirstName == nil || *users.updated.FirstName != "Ana" {
		t.Fatalf("first name not passed: %+v", users.updated)
	}
	if users.updated.Email != nil || users.updated.Password != nil || users.updated.LastName != nil {
		t.Fatalf("absent fields were set: %+v", users.updated)
	}

	var body map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("invalid json: %v", err)
	}
	if body["role"] != string(domain.RoleClient) {
		t.Fatalf("unexpected role in response: %v", body["role"])
	}
}

func TestUserHandler_Update_Validation(t *testing.T) {
	h := NewUserHandler(&stubUsers{})

	cases := []struct {
		name string
		body string
	}{
		{"bad email", `{"email":"nope"}`},
		{"short password", `{"password":"short"}`},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			c, _ := newJSONContext(http.MethodPut, "/admin/users/u1", tc.body, adminPrincipal)
			c.SetParamNames("id")
			c.SetParamValues("u1")
			if got := httpStatus(h.Update(c)); got != http.StatusUnprocessableEntity {
				t.Fatalf("expected 422, got %d", got)
			}
		})
	}
}

func TestUserHandler_Delete(t *testing.T) {
	users := &stubUsers{}
	h := NewUserHandler(users)

	c, rec := newJSONContext(http.MethodDelete, "/admin/users/u2", "", adminPrincipal)
	c.SetParamNames("id")
	c.SetParamValues("u2")
	if err := h.Delete(c); err != nil {
		t.Fatalf("handler error: %v", err)
	}
	if rec.Code != http.StatusNoContent || users.deleted != "u2" {
		t.Fatalf("expected 204 for u2, got %d for %q", rec.Code, users.deleted)
	}

	users.err = domain.Precondition("user is referenced by orders")
	c, _ = newJSONContext(http.MethodDelete, "/admin/users/u3", "", adminPrincipal)
	c.SetParamNames("id")
	c.SetParamValues("u3")
	if err := h.Delete(c); !errors.Is(err, domain.ErrPreconditionFailed) {
		t.Fatalf("expected ErrPreconditionFailed, got %v", err)
	}
}
