package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/boostly/boosting-marketplace/internal/core/domain"
)

func TestHTTPErrorHandler(t *testing.T) {
	cases := []struct {
		name   string
		err    error
		status int
		code   string
	}{
		{"order not found", fmt.Errorf("claim: %w", domain.ErrOrderNotFound), http.StatusNotFound, domain.CodeNotFound},
		{"precondition", domain.Precondition("order is not available"), http.StatusConflict, domain.CodePreconditionFailed},
		{"forbidden", domain.Forbidden("not yours"), http.StatusForbidden, domain.CodeForbidden},
		{"invalid sender", domain.ErrInvalidSender, http.StatusForbidden, domain.CodeInvalidSender},
		{"no receiver", domain.ErrNoReceiver, http.StatusConflict, domain.CodeNoReceiver},
		{"invalid input", domain.Invalid("price must not be negative"), http.StatusUnprocessableEntity, domain.CodeInvalidInput},
		{"credentials", domain.ErrInvalidCredentials, http.StatusUnauthorized, domain.CodeInvalidCredentials},
		{"user exists", domain.ErrUserExists, http.StatusConflict, domain.CodeConflict},
		{"storage", domain.Storage("credit wallet", errors.New("socket closed")), http.StatusServiceUnavailable, domain.CodeStorageFault},
		{"unknown", errors.New("boom"), http.StatusInternalServerError, domain.CodeInternal},
		{"echo error", echo.NewHTTPError(http.StatusUnauthorized, "invalid token"), http.StatusUnauthorized, "unauthorized"},
		{"echo not found", echo.ErrNotFound, http.StatusNotFound, domain.CodeNotFound},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			e := echo.New()
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			rec := httptest.NewRecorder()
			c := e.NewContext(req, rec)

			NewHTTPErrorHandler(zerolog.Nop())(tc.err, c)

			if rec.Code != tc.status {
				t.Fatalf("expected %d, got %d", tc.status, rec.Code)
			}
			var body errorResponse
			if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
				t.Fatalf("invalid json: %v", err)
			}
			if body.Error != tc.code {
				t.Fatalf("expected code %q, got %q", tc.code, body.Error)
			}
			if body.Message == "" {
				t.Fatal("message must not be empty")
			}
		})
	}
}

func TestHTTPErrorHandler_HidesInternalDetails(t *testing.T) {
	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	NewHTTPErrorHandler(zerolog.Nop())(domain.Storage("insert", errors.New("password=hunter2")), c)

	if strings.Contains(rec.Body.String(), "hunter2") {
		t.Fatalf("driver detail leaked: %s", rec.Body.String())
	}
}

func TestHTTPErrorHandler_CommittedResponse(t *testing.T) {
	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	_ = c.String(http.StatusOK, "done")

	NewHTTPErrorHandler(zerolog.Nop())(errors.New("late"), c)

	if rec.Code != http.StatusOK || rec.Body.String() != "done" {
		t.Fatalf("committed response was modified: %d %q", rec.Code, rec.Body.String())
	}
}
