package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/samber/oops"

	"github.com/go-api-magiclink/internal/domain"
)

// UserRepo reads users for the auth flow. Users are managed elsewhere.
type UserRepo struct {
	pool poolIface
}

func NewUserRepo(pool poolIface) *UserRepo {
	return &UserRepo{pool: pool}
}

func (r *UserRepo) Get(ctx context.Context, userID string) (*domain.User, error) {
	row := r.pool.QueryRow(ctx, `SELECT id, email, user_name FROM users WHERE id = $1`, userID)
	u, err := scanUser(row)
	if err != nil {
		return nil, oops.With("user_id", userID).Wrap(err)
	}
	return u, nil
}

func (r *UserRepo) GetByEmail(ctx context.Context, email string) (*domain.User, error) {
	row := r.pool.QueryRow(ctx, `SELECT id, email, user_name FROM users WHERE lower(email) = lower($1)`, email)
	return scanUser(row)
}

func scanUser(row pgx.Row) (*domain.User, error) {
	var u domain.User
	err := row.Scan(&u.UserID, &u.Email, &u.UserName)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, oops.Code("USER_NOT_FOUND").Wrap(domain.ErrNotFound)
	}
	if err != nil {
		return nil, oops.Code("USER_SCAN_FAILED").
			With("operation", "select user").
			Wrap(fmt.Errorf("%v: %w", err, domain.ErrBackend))
	}
	return &u, nil
}
