package repository

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/iliyamo/community-events/internal/model"
)

// RegistrationRepo stores sign-ups waiting for email confirmation.  There is
// at most one pending row per email; registering again replaces it.
type RegistrationRepo struct{ db *sql.DB }

func NewRegistrationRepo(db *sql.DB) *RegistrationRepo { return &RegistrationRepo{db: db} }

// Upsert creates or replaces the pending registration for p.Email and resets
// the attempt counter.
func (r *RegistrationRepo) Upsert(ctx context.Context, p *model.PendingRegistration) error {
	p.ID = uuid.NewString()
	p.Email = strings.ToLower(strings.TrimSpace(p.Email))
	p.CreatedAt = time.Now().UTC()
	p.Attempts = 0
	const q = `INSERT INTO registration_pending
		(id, full_name, email, password_hash, telegram, code, code_expires_at, attempts, created_at)
		VALUES (?,?,?,?,?,?,?,0,?)
		ON DUPLICATE KEY UPDATE full_name = VALUES(full_name), password_hash = VALUES(password_hash),
			telegram = VALUES(telegram), code = VALUES(code), code_expires_at = VALUES(code_expires_at),
			attempts = 0, created_at = VALUES(created_at)`
	_, err := r.db.ExecContext(ctx, q, p.ID, p.FullName, p.Email, p.PasswordHash, p.Telegram,
		p.Code, p.CodeExpiresAt, p.CreatedAt)
	return err
}

func (r *RegistrationRepo) GetByEmail(ctx context.Context, email string) (*model.PendingRegistration, error) {
	var p model.PendingRegistration
	err := r.db.QueryRowContext(ctx,
		`SELECT id, full_name, email, password_hash, telegram, code, code_expires_at, attempts, created_at
		 FROM registration_pending WHERE email = ? LIMIT 1`,
		strings.ToLower(strings.TrimSpace(email))).
		Scan(&p.ID, &p.FullName, &p.Email, &p.PasswordHash, &p.Telegram, &p.Code, &p.CodeExpiresAt, &p.Attempts, &p.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &p, nil
}

func (r *RegistrationRepo) IncrementAttempts(ctx context.Context, id string) error {
	_, err := r.db.ExecContext(ctx, "UPDATE registration_pending SET attempts = attempts + 1 WHERE id = ?", id)
	return err
}

// UpdateCode issues a fresh code and resets attempts.
func (r *RegistrationRepo) UpdateCode(ctx context.Context, id, code string, expires time.Time) error {
	res, err := r.db.ExecContext(ctx,
		"UPDATE registration_pending SET code = ?, code_expires_at = ?, attempts = 0 WHERE id = ?",
		code, expires, id)
	return affectedOrNotFound(res, err)
}

func (r *RegistrationRepo) Delete(ctx context.Context, id string) error {
	_, err := r.db.ExecContext(ctx, "DELETE FROM registration_pending WHERE id = ?", id)
	return err
}
