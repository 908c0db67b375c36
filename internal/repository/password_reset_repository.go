package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/iliyamo/community-events/internal/model"
)

type PasswordResetRepo struct{ db *sql.DB }

func NewPasswordResetRepo(db *sql.DB) *PasswordResetRepo { return &PasswordResetRepo{db: db} }

func (r *PasswordResetRepo) Create(ctx context.Context, userID, token string, expires time.Time) error {
	_, err := r.db.ExecContext(ctx,
		"INSERT INTO password_resets (id, user_id, token, expires_at, used, created_at) VALUES (?,?,?,?,FALSE,?)",
		uuid.NewString(), userID, token, expires, time.Now().UTC())
	return err
}

// GetValid returns an unused, unexpired reset for token.
func (r *PasswordResetRepo) GetValid(ctx context.Context, token string, now time.Time) (*model.PasswordReset, error) {
	var p model.PasswordReset
	err := r.db.QueryRowContext(ctx,
		`SELECT id, user_id, token, expires_at, used FROM password_resets
		 WHERE token = ? AND used = FALSE AND expires_at > ? LIMIT 1`, token, now).
		Scan(&p.ID, &p.UserID, &p.Token, &p.ExpiresAt, &p.Used)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &p, nil
}

// MarkUsed consumes the token.  A second call reports ErrConflict so a
// token cannot be replayed concurrently.
func (r *PasswordResetRepo) MarkUsed(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, "UPDATE password_resets SET used = TRUE WHERE id = ? AND used = FALSE", id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrConflict
	}
	return nil
}
