package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/samber/oops"

	"github.com/go-api-magiclink/internal/domain"
)

// VerificationCodeRepo stores magic-link codes in the verification_codes table.
type VerificationCodeRepo struct {
	pool poolIface
}

func NewVerificationCodeRepo(pool poolIface) *VerificationCodeRepo {
	return &VerificationCodeRepo{pool: pool}
}

// Create inserts v. A duplicate id or code maps to domain.ErrConflict, any
// other failure to domain.ErrBackend.
func (r *VerificationCodeRepo) Create(ctx context.Context, v *domain.VerificationCode) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO verification_codes (id, user_id, code, expires_at, inserted_at)
		VALUES ($1, $2, $3, $4, $5)
	`, v.ID, v.UserID, v.Code, v.ExpiresAt, v.InsertedAt)
	if err != nil {
		kind := domain.ErrBackend
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == pgerrcode.UniqueViolation {
			kind = domain.ErrConflict
		}
		return oops.Code("CODE_CREATE_FAILED").
			With("operation", "insert verification_code").
			With("user_id", v.UserID).
			Wrap(fmt.Errorf("%v: %w", err, kind))
	}
	return nil
}

// Redeem deletes the row matching code and returns it. The DELETE ...
// RETURNING runs as one statement, so of several concurrent callers with the
// same code exactly one gets the row.
func (r *VerificationCodeRepo) Redeem(ctx context.Context, code string) (*domain.VerificationCode, error) {
	row := r.pool.QueryRow(ctx, `
		DELETE FROM verification_codes
		WHERE code = $1
		RETURNING id, user_id, code, expires_at, inserted_at
	`, code)

	var v domain.VerificationCode
	err := row.Scan(&v.ID, &v.UserID, &v.Code, &v.ExpiresAt, &v.InsertedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, oops.Code("CODE_NOT_FOUND").Wrap(domain.ErrNotFound)
	}
	if err != nil {
		return nil, oops.Code("CODE_REDEEM_FAILED").
			With("operation", "delete verification_code").
			Wrap(fmt.Errorf("%v: %w", err, domain.ErrBackend))
	}
	return &v, nil
}

// DeleteByUser removes every outstanding code for userID. Deleting nothing is not an error.
func (r *VerificationCodeRepo) DeleteByUser(ctx context.Context, userID string) error {
	_, err := r.pool.Exec(ctx, `DELETE FROM verification_codes WHERE user_id = $1`, userID)
	if err != nil {
		return oops.Code("CODE_DELETE_BY_USER_FAILED").
			With("operation", "delete verification_codes by user").
			With("user_id", userID).
			Wrap(fmt.Errorf("%v: %w", err, domain.ErrBackend))
	}
	return nil
}

// DeleteExpired removes codes that expired before now and returns how many.
// The auth flow never needs it; it backs the purge-codes maintenance command.
func (r *VerificationCodeRepo) DeleteExpired(ctx context.Context, now time.Time) (int64, error) {
	tag, err := r.pool.Exec(ctx, `DELETE FROM verification_codes WHERE expires_at < $1`, now)
	if err != nil {
		return 0, oops.Code("CODE_DELETE_EXPIRED_FAILED").
			With("operation", "delete expired verification_codes").
			Wrap(fmt.Errorf("%v: %w", err, domain.ErrBackend))
	}
	return tag.RowsAffected(), nil
}
