package postgres

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/boostly/boosting-marketplace/internal/core/domain"
	"github.com/boostly/boosting-marketplace/internal/core/ports"
)

const orderColumns = `id, client_id, booster_id, status, price::text, type, account_login,
	additional_info, feedback, created_at, updated_at, started_at, completed_at, version`

// OrderRepository implements ports.OrderRepository.
type OrderRepository struct {
	pool *pgxpool.Pool
}

var _ ports.OrderRepository = (*OrderRepository)(nil)

func NewOrderRepository(pool *pgxpool.Pool) *OrderRepository {
	return &OrderRepository{pool: pool}
}

func scanOrder(row scanner) (*domain.Order, error) {
	var (
		o         domain.Order
		boosterID *string
		status    string
		price     string
	)
	err := row.Scan(&o.ID, &o.ClientID, &boosterID, &status, &price, &o.Type, &o.AccountLogin,
		&o.AdditionalInfo, &o.Feedback, &o.CreatedAt, &o.UpdatedAt, &o.StartedAt, &o.CompletedAt, &o.Version)
	if err != nil {
		return nil, err
	}
	o.BoosterID = deref(boosterID)
	o.Status = domain.OrderStatus(status)
	if o.Price, err = decimal.NewFromString(price); err != nil {
		return nil, fmt.Errorf("decode price %q: %w", price, err)
	}
	return &o, nil
}

func (r *OrderRepository) Create(ctx context.Context, o *domain.Order) error {
	if o.ID == "" {
		o.ID = uuid.NewString()
	}
	o.Version = max(o.Version, 1)
	_, err := r.pool.Exec(ctx,
		`INSERT INTO orders (id, client_id, booster_id, status, price, type, account_login,
			additional_info, feedback, created_at, updated_at, started_at, completed_at, version)
		 VALUES ($1, $2, $3, $4, $5::numeric, $6, $7, $8, $9, $10, $11, $12, $13, $14)`,
		o.ID, o.ClientID, nullable(o.BoosterID), string(o.Status), o.Price.String(), o.Type, o.AccountLogin,
		o.AdditionalInfo, o.Feedback, o.CreatedAt, o.UpdatedAt, o.StartedAt, o.CompletedAt, o.Version,
	)
	if err != nil {
		return mapError("insert order", err)
	}
	return nil
}

func (r *OrderRepository) FindByID(ctx context.Context, id string) (*domain.Order, error) {
	o, err := scanOrder(r.pool.QueryRow(ctx, `SELECT `+orderColumns+` FROM orders WHERE id = $1`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, domain.ErrOrderNotFound
	}
	if err != nil {
		return nil, domain.Storage("find order", err)
	}
	return o, nil
}

// querier is satisfied by the pool and by a transaction.
type querier interface {
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// conditionalUpdate writes patch only when the row still has the expected
// status and booster.
func conditionalUpdate(ctx context.Context, q querier, id string, expect domain.OrderExpectation, patch domain.OrderPatch) (*domain.Order, error) {
	row := q.QueryRow(ctx,
		`UPDATE orders
		 SET status = $1,
		     booster_id = $2,
		     updated_at = $3,
		     started_at = COALESCE($4, started_at),
		     completed_at = COALESCE($5, completed_at),
		     version = version + 1
		 WHERE id = $6 AND status = $7 AND booster_id IS NOT DISTINCT FROM $8
		 RETURNING `+orderColumns,
		string(patch.Status), nullable(patch.BoosterID), patch.UpdatedAt, patch.StartedAt, patch.CompletedAt,
		id, string(expect.Status), nullable(expect.BoosterID),
	)
	o, err := scanOrder(row)
	if errors.Is(err, pgx.ErrNoRows) {
		var exists bool
		if err := q.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM orders WHERE id = $1)`, id).Scan(&exists); err != nil {
			return nil, domain.Storage("check order", err)
		}
		if !exists {
			return nil, domain.ErrOrderNotFound
		}
		return nil, domain.ErrConflict
	}
	if err != nil {
		return nil, mapError("update order", err)
	}
	return o, nil
}

func (r *OrderRepository) UpdateIf(ctx context.Context, id string, expect domain.OrderExpectation, patch domain.OrderPatch) (*domain.Order, error) {
	return conditionalUpdate(ctx, r.pool, id, expect, patch)
}

// CompleteAndCredit commits the status change and the wallet increment in
// one transaction. Any failure rolls both back.
func (r *OrderRepository) CompleteAndCredit(ctx context.Context, id, boosterID string, at time.Time) (*domain.Order, decimal.Decimal, error) {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return nil, decimal.Zero, domain.Storage("begin tx", err)
	}
	defer tx.Rollback(ctx)

	order, err := conditionalUpdate(ctx, tx, id,
		domain.OrderExpectation{Status: domain.StatusInProgress, BoosterID: boosterID},
		domain.OrderPatch{Status: domain.StatusCompleted, BoosterID: boosterID, UpdatedAt: at, CompletedAt: &at},
	)
	if err != nil {
		return nil, decimal.Zero, err
	}

	var wallet string
	err = tx.QueryRow(ctx,
		`UPDATE users SET wallet = wallet + $1::numeric, updated_at = $2
		 WHERE id = $3 AND role = $4
		 RETURNING wallet::text`,
		order.Price.String(), at, boosterID, string(domain.RoleBooster),
	).Scan(&wallet)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, decimal.Zero, domain.ErrBoosterNotFound
	}
	if err != nil {
		return nil, decimal.Zero, domain.Storage("credit wallet", err)
	}

	balance, err := decimal.NewFromString(wallet)
	if err != nil {
		return nil, decimal.Zero, domain.Storage("decode wallet", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, decimal.Zero, domain.Storage("commit tx", err)
	}
	return order, balance, nil
}

func (r *OrderRepository) SetFeedback(ctx context.Context, id, clientID, feedback string) (*domain.Order, error) {
	row := r.pool.QueryRow(ctx,
		`UPDATE orders SET feedback = $1, updated_at = NOW(), version = version + 1
		 WHERE id = $2 AND client_id = $3 AND status = $4
		 RETURNING `+orderColumns,
		feedback, id, clientID, string(domain.StatusCompleted),
	)
	o, err := scanOrder(row)
	if errors.Is(err, pgx.ErrNoRows) {
		var exists bool
		err := r.pool.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM orders WHERE id = $1 AND client_id = $2)`, id, clientID).Scan(&exists)
		if err != nil {
			return nil, domain.Storage("check order", err)
		}
		if !exists {
			return nil, domain.ErrOrderNotFound
		}
		return nil, domain.Precondition("feedback is only accepted for completed orders")
	}
	if err != nil {
		return nil, domain.Storage("set feedback", err)
	}
	return o, nil
}

// UpdateDetails writes descriptive columns only. Unset fields keep their
// stored value through COALESCE.
func (r *OrderRepository) UpdateDetails(ctx context.Context, id string, d domain.OrderDetails) (*domain.Order, error) {
	row := r.pool.QueryRow(ctx,
		`UPDATE orders
		 SET type = COALESCE($1, type),
		     account_login = COALESCE($2, account_login),
		     additional_info = COALESCE($3, additional_info),
		     updated_at = $4,
		     version = version + 1
		 WHERE id = $5
		 RETURNING `+orderColumns,
		d.Type, d.AccountLogin, d.AdditionalInfo, d.UpdatedAt, id,
	)
	o, err := scanOrder(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, domain.ErrOrderNotFound
	}
	if err != nil {
		return nil, mapError("update order details", err)
	}
	return o, nil
}

// listQuery builds the filtered listing statement and its arguments.
func listQuery(f ports.ListOrdersFilter) (string, []any) {
	var (
		where []string
		args  []any
	)
	add := func(cond string, v any) {
		args = append(args, v)
		where = append(where, fmt.Sprintf(cond, len(args)))
	}
	if f.ClientID != "" {
		add("client_id = $%d", f.ClientID)
	}
	if f.BoosterID != "" {
		add("booster_id = $%d", f.BoosterID)
	}
	if f.Status != "" {
		add("status = $%d", string(f.Status))
	}

	var b strings.Builder
	b.WriteString(`SELECT ` + orderColumns + ` FROM orders`)
	if len(where) > 0 {
		b.WriteString(" WHERE " + strings.Join(where, " AND "))
	}
	b.WriteString(" ORDER BY created_at DESC, id DESC")
	if f.Limit > 0 {
		args = append(args, f.Limit)
		fmt.Fprintf(&b, " LIMIT $%d", len(args))
	}
	return b.String(), args
}

func (r *OrderRepository) List(ctx context.Context, f ports.ListOrdersFilter) ([]*domain.Order, error) {
	query, args := listQuery(f)
	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, domain.Storage("select orders", err)
	}
	defer rows.Close()

	out := make([]*domain.Order, 0)
	for rows.Next() {
		o, err := scanOrder(rows)
		if err != nil {
			return nil, domain.Storage("scan order", err)
		}
		out = append(out, o)
	}
	if err := rows.Err(); err != nil {
		return nil, domain.Storage("rows error", err)
	}
	return out, nil
}

// Delete removes the order; its messages go with it through ON DELETE CASCADE.
func (r *OrderRepository) Delete(ctx context.Context, id string) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM orders WHERE id = $1`, id)
	if err != nil {
		return domain.Storage("delete order", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrOrderNotFound
	}
	return nil
}
