package postgres

import (
	"errors"
	"io/fs"
	"strings"
	"testing"

	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/boostly/boosting-marketplace/internal/core/domain"
	"github.com/boostly/boosting-marketplace/internal/core/ports"
)

func TestMigrationsEmbedded(t *testing.T) {
	entries, err := fs.ReadDir(migrationsFS, "migrations")
	if err != nil {
		t.Fatalf("read migrations: %v", err)
	}
	if len(entries) == 0 {
		t.Fatal("expected at least one migration")
	}
	raw, err := fs.ReadFile(migrationsFS, "migrations/"+entries[0].Name())
	if err != nil {
		t.Fatalf("read %s: %v", entries[0].Name(), err)
	}
	if !strings.Contains(string(raw), "-- +goose Up") {
		t.Fatalf("migration %s lacks goose annotation", entries[0].Name())
	}
}

func TestMapError(t *testing.T) {
	cases := []struct {
		name string
		err  error
		want error
	}{
		{"unique", &pgconn.PgError{Code: pgerrcode.UniqueViolation}, domain.ErrUserExists},
		{"foreign key", &pgconn.PgError{Code: pgerrcode.ForeignKeyViolation, ConstraintName: "orders_client_id_fkey"}, domain.ErrInvalidInput},
		{"check", &pgconn.PgError{Code: pgerrcode.CheckViolation, ConstraintName: "orders_price_check"}, domain.ErrInvalidInput},
		{"other pg error", &pgconn.PgError{Code: pgerrcode.DeadlockDetected}, domain.ErrStorageFault},
		{"network", errors.New("connection reset by peer"), domain.ErrStorageFault},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := mapError("op", tc.err); !errors.Is(got, tc.want) {
				t.Fatalf("expected %v, got %v", tc.want, got)
			}
		})
	}
}

func TestListQuery(t *testing.T) {
	query, args := listQuery(ports.ListOrdersFilter{ClientID: "c1", Status: domain.StatusAvailable, Limit: 5})
	if !strings.Contains(query, "WHERE client_id = $1 AND status = $2") {
		t.Fatalf("unexpected where clause: %s", query)
	}
	if !strings.HasSuffix(query, "ORDER BY created_at DESC, id DESC LIMIT $3") {
		t.Fatalf("unexpected ordering: %s", query)
	}
	if len(args) != 3 || args[0] != "c1" || args[1] != "Available" || args[2] != 5 {
		t.Fatalf("unexpected args: %v", args)
	}

	query, args = listQuery(ports.ListOrdersFilter{})
	if strings.Contains(query, "WHERE") || strings.Contains(query, "LIMIT") || len(args) != 0 {
		t.Fatalf("unexpected unfiltered query %q %v", query, args)
	}
}

func TestNullable(t *testing.T) {
	if nullable("") != nil {
		t.Fatal("empty string must map to NULL")
	}
	if v := nullable("b1"); v == nil || *v != "b1" {
		t.Fatal("non-empty string must be kept")
	}
	if deref(nil) != "" || deref(nullable("x")) != "x" {
		t.Fatal("deref mismatch")
	}
}

func TestMigrationsAddOrderVersion(t *testing.T) {
	raw, err := fs.ReadFile(migrationsFS, "migrations/00002_order_version.sql")
	if err != nil {
		t.Fatalf("read migration: %v", err)
	}
	if !strings.Contains(string(raw), "version BIGINT NOT NULL DEFAULT 1") {
		t.Fatalf("version column missing from migration:\n%s", raw)
	}
	if !strings.Contains(orderColumns, "version") {
		t.Fatalf("order columns do not select version: %s", orderColumns)
	}
}

func TestIsForeignKeyViolation(t *testing.T) {
	if !isForeignKeyViolation(&pgconn.PgError{Code: pgerrcode.ForeignKeyViolation}) {
		t.Fatal("expected foreign key violation to be detected")
	}
	if isForeignKeyViolation(&pgconn.PgError{Code: pgerrcode.UniqueViolation}) {
		t.Fatal("unique violation reported as foreign key violation")
	}
	if isForeignKeyViolation(nil) {
		t.Fatal("nil reported as foreign key violation")
	}
}
