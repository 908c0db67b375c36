package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/iliyamo/community-events/internal/model"
)

type MatchRequestRepo struct{ db *sql.DB }

func NewMatchRequestRepo(db *sql.DB) *MatchRequestRepo { return &MatchRequestRepo{db: db} }

const matchRequestSelect = `SELECT mr.id, mr.from_user_id, mr.to_user_id, mr.event_id, mr.status, mr.message,
	mr.created_at, mr.updated_at,
	COALESCE(fu.full_name, ''), COALESCE(fu.email, ''), COALESCE(tu.full_name, ''), COALESCE(tu.email, ''),
	COALESCE(e.title, '')
	FROM match_requests mr
	LEFT JOIN users fu ON fu.id = mr.from_user_id
	LEFT JOIN users tu ON tu.id = mr.to_user_id
	LEFT JOIN events e ON e.id = mr.event_id`

func scanMatchRequest(s rowScanner) (*model.MatchRequest, error) {
	var m model.MatchRequest
	var msg sql.NullString
	if err := s.Scan(&m.ID, &m.FromUserID, &m.ToUserID, &m.EventID, &m.Status, &msg,
		&m.CreatedAt, &m.UpdatedAt,
		&m.FromUser.FullName, &m.FromUser.Email, &m.ToUser.FullName, &m.ToUser.Email,
		&m.Event.Title); err != nil {
		return nil, err
	}
	m.Message = nullStr(msg)
	m.FromUser.ID, m.ToUser.ID, m.Event.ID = m.FromUserID, m.ToUserID, m.EventID
	return &m, nil
}

// Create inserts a PENDING request.  The (from, to, event) triple is unique;
// a repeat yields ErrConflict.  A target user or event that does not exist
// yields ErrNotFound.
func (r *MatchRequestRepo) Create(ctx context.Context, m *model.MatchRequest) error {
	now := time.Now().UTC()
	m.ID = uuid.NewString()
	m.Status = model.RequestPending
	m.CreatedAt, m.UpdatedAt = now, now
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO match_requests (id, from_user_id, to_user_id, event_id, status, message, created_at, updated_at)
		 VALUES (?,?,?,?,?,?,?,?)`,
		m.ID, m.FromUserID, m.ToUserID, m.EventID, m.Status, m.Message, now, now)
	switch {
	case isDuplicate(err):
		return ErrConflict
	case isMissingParent(err):
		return ErrNotFound
	}
	return err
}

func (r *MatchRequestRepo) Get(ctx context.Context, id string) (*model.MatchRequest, error) {
	m, err := scanMatchRequest(r.db.QueryRowContext(ctx, matchRequestSelect+" WHERE mr.id = ?", id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	return m, err
}

// Transition moves a PENDING request addressed to toUserID into status.  The
// update is conditional on the current status, so of two concurrent
// transitions only one succeeds; the other gets ErrConflict.
func (r *MatchRequestRepo) Transition(ctx context.Context, id, toUserID, status string) error {
	res, err := r.db.ExecContext(ctx,
		"UPDATE match_requests SET status = ?, updated_at = ? WHERE id = ? AND to_user_id = ? AND status = ?",
		status, time.Now().UTC(), id, toUserID, model.RequestPending)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrConflict
	}
	return nil
}

// DeletePending removes a PENDING request sent by fromUserID.
func (r *MatchRequestRepo) DeletePending(ctx context.Context, id, fromUserID string) error {
	res, err := r.db.ExecContext(ctx,
		"DELETE FROM match_requests WHERE id = ? AND from_user_id = ? AND status = ?",
		id, fromUserID, model.RequestPending)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrConflict
	}
	return nil
}

// ListForUser returns requests the user sent or received, newest first,
// optionally filtered by status.
func (r *MatchRequestRepo) ListForUser(ctx context.Context, userID, status string) ([]model.MatchRequest, error) {
	q := matchRequestSelect + " WHERE (mr.from_user_id = ? OR mr.to_user_id = ?)"
	args := []any{userID, userID}
	if status != "" {
		q += " AND mr.status = ?"
		args = append(args, status)
	}
	q += " ORDER BY mr.created_at DESC, mr.id"
	rows, err := r.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []model.MatchRequest{}
	for rows.Next() {
		m, err := scanMatchRequest(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *m)
	}
	return out, rows.Err()
}
