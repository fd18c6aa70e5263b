package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/boostly/boosting-marketplace/internal/core/domain"
	"github.com/boostly/boosting-marketplace/internal/core/ports"
)

const userColumns = `id, email, first_name, last_name, password_hash, role, wallet::text, created_at, updated_at`

// UserRepository implements ports.UserRepository.
type UserRepository struct {
	pool *pgxpool.Pool
}

var _ ports.UserRepository = (*UserRepository)(nil)

func NewUserRepository(pool *pgxpool.Pool) *UserRepository {
	return &UserRepository{pool: pool}
}

func scanUser(row scanner) (*domain.User, error) {
	var (
		u      domain.User
		role   string
		wallet string
	)
	if err := row.Scan(&u.ID, &u.Email, &u.FirstName, &u.LastName, &u.PasswordHash, &role, &wallet, &u.CreatedAt, &u.UpdatedAt); err != nil {
		return nil, err
	}
	u.Role = domain.Role(role)
	var err error
	if u.Wallet, err = decimal.NewFromString(wallet); err != nil {
		return nil, fmt.Errorf("decode wallet %q: %w", wallet, err)
	}
	return &u, nil
}

func (r *UserRepository) Create(ctx context.Context, user *domain.User) (*domain.User, error) {
	id := user.ID
	if id == "" {
		id = uuid.NewString()
	}
	row := r.pool.QueryRow(ctx,
		`INSERT INTO users (id, email, first_name, last_name, password_hash, role, wallet, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7::numeric, $8, $9)
		 RETURNING `+userColumns,
		id, user.Email, user.FirstName, user.LastName, user.PasswordHash, string(user.Role),
		user.Wallet.String(), user.CreatedAt, user.UpdatedAt,
	)
	created, err := scanUser(row)
	if err != nil {
		return nil, mapError("insert user", err)
	}
	return created, nil
}

func (r *UserRepository) FindByID(ctx context.Context, id string) (*domain.User, error) {
	return r.findOne(ctx, `SELECT `+userColumns+` FROM users WHERE id = $1`, id)
}

func (r *UserRepository) FindByEmail(ctx context.Context, email string) (*domain.User, error) {
	return r.findOne(ctx, `SELECT `+userColumns+` FROM users WHERE email = $1`, email)
}

func (r *UserRepository) findOne(ctx context.Context, query string, arg string) (*domain.User, error) {
	u, err := scanUser(r.pool.QueryRow(ctx, query, arg))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, domain.ErrUserNotFound
	}
	if err != nil {
		return nil, domain.Storage("find user", err)
	}
	return u, nil
}

func (r *UserRepository) List(ctx context.Context, role domain.Role) ([]*domain.User, error) {
	query := `SELECT ` + userColumns + ` FROM users`
	var args []any
	if role != "" {
		query += ` WHERE role = $1`
		args = append(args, string(role))
	}
	query += ` ORDER BY email`

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, domain.Storage("select users", err)
	}
	defer rows.Close()

	out := make([]*domain.User, 0)
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, domain.Storage("scan user", err)
		}
		out = append(out, u)
	}
	if err := rows.Err(); err != nil {
		return nil, domain.Storage("rows error", err)
	}
	return out, nil
}

// Update writes the set columns only. role and wallet are not part of the
// statement.
func (r *UserRepository) Update(ctx context.Context, id string, upd domain.UserUpdate) (*domain.User, error) {
	row := r.pool.QueryRow(ctx,
		`UPDATE users
		 SET email = COALESCE($1, email),
		     first_name = COALESCE($2, first_name),
		     last_name = COALESCE($3, last_name),
		     password_hash = COALESCE($4, password_hash),
		     updated_at = $5
		 WHERE id = $6
		 RETURNING `+userColumns,
		upd.Email, upd.FirstName, upd.LastName, upd.PasswordHash, upd.UpdatedAt, id,
	)
	u, err := scanUser(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, domain.ErrUserNotFound
	}
	if err != nil {
		return nil, mapError("update user", err)
	}
	return u, nil
}

// Delete relies on the orders foreign keys to refuse users that still own or
// hold an order.
func (r *UserRepository) Delete(ctx context.Context, id string) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM users WHERE id = $1`, id)
	if isForeignKeyViolation(err) {
		return domain.Precondition("user is referenced by orders")
	}
	if err != nil {
		return domain.Storage("delete user", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrUserNotFound
	}
	return nil
}

// CreditWallet increments in SQL so concurrent adjustments serialise on the
// row lock instead of overwriting each other.
func (r *UserRepository) CreditWallet(ctx context.Context, boosterID string, amount decimal.Decimal) (decimal.Decimal, error) {
	var wallet string
	err := r.pool.QueryRow(ctx,
		`UPDATE users SET wallet = wallet + $1::numeric, updated_at = NOW()
		 WHERE id = $2 AND role = $3
		 RETURNING wallet::text`,
		amount.String(), boosterID, string(domain.RoleBooster),
	).Scan(&wallet)
	if errors.Is(err, pgx.ErrNoRows) {
		return decimal.Zero, domain.ErrBoosterNotFound
	}
	if err != nil {
		return decimal.Zero, domain.Storage("credit wallet", err)
	}

	balance, err := decimal.NewFromString(wallet)
	if err != nil {
		return decimal.Zero, domain.Storage("decode wallet", err)
	}
	return balance, nil
}
