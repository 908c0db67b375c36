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

const userColumns = `id, full_name, email, COALESCE(password_hash, ''), yandex_id, telegram, avatar_url,
	role, status, email_verified, auth_provider, created_at, updated_at, deleted_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanUser(s rowScanner) (*model.User, error) {
	var (
		u        model.User
		yandexID sql.NullString
		deleted  sql.NullTime
	)
	if err := s.Scan(&u.ID, &u.FullName, &u.Email, &u.PasswordHash, &yandexID, &u.Telegram, &u.AvatarURL,
		&u.Role, &u.Status, &u.EmailVerified, &u.AuthProvider, &u.CreatedAt, &u.UpdatedAt, &deleted); err != nil {
		return nil, err
	}
	if yandexID.Valid {
		u.YandexID = &yandexID.String
	}
	if deleted.Valid {
		u.DeletedAt = &deleted.Time
	}
	return &u, nil
}

// UserRepo persists users.
type UserRepo struct{ db *sql.DB }

func NewUserRepo(db *sql.DB) *UserRepo { return &UserRepo{db: db} }

// Create inserts u, assigning ID and timestamps.  A duplicate email yields
// ErrEmailExists.
func (r *UserRepo) Create(ctx context.Context, u *model.User) error {
	now := time.Now().UTC()
	u.ID = uuid.NewString()
	u.Email = strings.ToLower(strings.TrimSpace(u.Email))
	u.CreatedAt, u.UpdatedAt = now, now
	if u.Role == "" {
		u.Role = model.RoleUser
	}
	if u.Status == "" {
		u.Status = model.UserStatusActive
	}
	if u.AuthProvider == "" {
		u.AuthProvider = model.AuthProviderEmail
	}
	var hash any
	if u.PasswordHash != "" {
		hash = u.PasswordHash
	}
	const q = `INSERT INTO users (id, full_name, email, password_hash, yandex_id, telegram, avatar_url,
		role, status, email_verified, auth_provider, created_at, updated_at)
		VALUES (?,?,?,?,?,?,?,?,?,?,?,?,?)`
	_, err := r.db.ExecContext(ctx, q, u.ID, u.FullName, u.Email, hash, u.YandexID, u.Telegram, u.AvatarURL,
		u.Role, u.Status, u.EmailVerified, u.AuthProvider, now, now)
	if err != nil {
		if isDuplicate(err) {
			return ErrEmailExists
		}
		return err
	}
	return nil
}

func (r *UserRepo) getOne(ctx context.Context, where string, arg any) (*model.User, error) {
	u, err := scanUser(r.db.QueryRowContext(ctx, "SELECT "+userColumns+" FROM users WHERE "+where+" LIMIT 1", arg))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	return u, err
}

// GetByID returns the user including soft-deleted rows; callers check Status.
func (r *UserRepo) GetByID(ctx context.Context, id string) (*model.User, error) {
	return r.getOne(ctx, "id = ?", id)
}

// GetByEmail fetches a user by normalized email.
func (r *UserRepo) GetByEmail(ctx context.Context, email string) (*model.User, error) {
	return r.getOne(ctx, "email = ?", strings.ToLower(strings.TrimSpace(email)))
}

func (r *UserRepo) GetByYandexID(ctx context.Context, yandexID string) (*model.User, error) {
	return r.getOne(ctx, "yandex_id = ?", yandexID)
}

// EmailTaken reports whether another active account uses email.
func (r *UserRepo) EmailTaken(ctx context.Context, email, exceptID string) (bool, error) {
	var n int
	err := r.db.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM users WHERE email = ? AND id <> ?",
		strings.ToLower(strings.TrimSpace(email)), exceptID).Scan(&n)
	return n > 0, err
}

// LinkYandex attaches a Yandex account id to an existing user.
func (r *UserRepo) LinkYandex(ctx context.Context, id, yandexID string) error {
	_, err := r.db.ExecContext(ctx,
		"UPDATE users SET yandex_id = ?, email_verified = TRUE, updated_at = ? WHERE id = ?",
		yandexID, time.Now().UTC(), id)
	return err
}

// UpdateProfile changes the self-editable fields.
func (r *UserRepo) UpdateProfile(ctx context.Context, id, fullName, telegram, avatarURL string) error {
	res, err := r.db.ExecContext(ctx,
		"UPDATE users SET full_name = ?, telegram = ?, avatar_url = ?, updated_at = ? WHERE id = ? AND deleted_at IS NULL",
		fullName, telegram, avatarURL, time.Now().UTC(), id)
	return affectedOrNotFound(res, err)
}

func (r *UserRepo) UpdatePassword(ctx context.Context, id, hash string) error {
	res, err := r.db.ExecContext(ctx,
		"UPDATE users SET password_hash = ?, updated_at = ? WHERE id = ?",
		hash, time.Now().UTC(), id)
	return affectedOrNotFound(res, err)
}

// AdminUpdate writes the admin-editable fields of u.
func (r *UserRepo) AdminUpdate(ctx context.Context, u *model.User) error {
	u.UpdatedAt = time.Now().UTC()
	res, err := r.db.ExecContext(ctx,
		`UPDATE users SET full_name = ?, email = ?, role = ?, status = ?, telegram = ?, updated_at = ?
		 WHERE id = ?`,
		u.FullName, strings.ToLower(strings.TrimSpace(u.Email)), u.Role, u.Status, u.Telegram, u.UpdatedAt, u.ID)
	if isDuplicate(err) {
		return ErrEmailExists
	}
	return affectedOrNotFound(res, err)
}

// SoftDelete marks the user deleted and revokes nothing else; sessions die
// when the auth middleware sees the status.
func (r *UserRepo) SoftDelete(ctx context.Context, id string) error {
	now := time.Now().UTC()
	res, err := r.db.ExecContext(ctx,
		"UPDATE users SET status = ?, deleted_at = ?, updated_at = ? WHERE id = ? AND deleted_at IS NULL",
		model.UserStatusDeleted, now, now, id)
	return affectedOrNotFound(res, err)
}

// AdminExists reports whether at least one admin account exists.
func (r *UserRepo) AdminExists(ctx context.Context) (bool, error) {
	var n int
	err := r.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM users WHERE role = ?", model.RoleAdmin).Scan(&n)
	return n > 0, err
}

// UserFilter drives the admin user list.  Limit 0 means no paging.
type UserFilter struct {
	Search string
	Role   string
	Status string
	Page   int
	Limit  int
}

func (r *UserRepo) List(ctx context.Context, f UserFilter) ([]model.User, int, error) {
	where := []string{"1=1"}
	args := []any{}
	if f.Search != "" {
		where = append(where, "(LOWER(full_name) LIKE ? OR LOWER(email) LIKE ?)")
		like := "%" + escapeLike(strings.ToLower(f.Search)) + "%"
		args = append(args, like, like)
	}
	if f.Role != "" {
		where = append(where, "role = ?")
		args = append(args, f.Role)
	}
	if f.Status != "" {
		where = append(where, "status = ?")
		args = append(args, f.Status)
	}
	cond := strings.Join(where, " AND ")

	var total int
	if err := r.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM users WHERE "+cond, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	q := "SELECT " + userColumns + " FROM users WHERE " + cond + " ORDER BY created_at DESC"
	if f.Limit > 0 {
		q += " LIMIT ? OFFSET ?"
		args = append(args, f.Limit, (f.Page-1)*f.Limit)
	}
	rows, err := r.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	out := []model.User{}
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, 0, err
		}
		out = append(out, *u)
	}
	return out, total, rows.Err()
}

func affectedOrNotFound(res sql.Result, err error) error {
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}
