package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/iliyamo/community-events/internal/model"
)

var (
	// ErrEventFull is returned by Join when max_participants is reached.
	ErrEventFull = errors.New("event is full")
	// ErrEventClosed is returned by Join for events that are not active.
	ErrEventClosed = errors.New("event is not active")
)

type ParticipantRepo struct{ db *sql.DB }

func NewParticipantRepo(db *sql.DB) *ParticipantRepo { return &ParticipantRepo{db: db} }

// Join adds userID to the event.  The event row is locked so the capacity
// check and the insert cannot interleave with another join.
func (r *ParticipantRepo) Join(ctx context.Context, eventID, userID string) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	var status string
	var maxP sql.NullInt64
	err = tx.QueryRowContext(ctx,
		"SELECT status, max_participants FROM events WHERE id = ? AND deleted_at IS NULL FOR UPDATE",
		eventID).Scan(&status, &maxP)
	if errors.Is(err, sql.ErrNoRows) {
		return ErrNotFound
	}
	if err != nil {
		return err
	}
	if status != model.EventStatusActive {
		return ErrEventClosed
	}

	var exists int
	if err := tx.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM event_participants WHERE event_id = ? AND user_id = ?", eventID, userID).Scan(&exists); err != nil {
		return err
	}
	if exists > 0 {
		return ErrConflict
	}
	if maxP.Valid {
		var n int64
		if err := tx.QueryRowContext(ctx,
			"SELECT COUNT(*) FROM event_participants WHERE event_id = ?", eventID).Scan(&n); err != nil {
			return err
		}
		if n >= maxP.Int64 {
			return ErrEventFull
		}
	}

	_, err = tx.ExecContext(ctx,
		"INSERT INTO event_participants (id, event_id, user_id, joined_at) VALUES (?,?,?,?)",
		uuid.NewString(), eventID, userID, time.Now().UTC())
	if isDuplicate(err) {
		return ErrConflict
	}
	if err != nil {
		return err
	}
	return tx.Commit()
}

func (r *ParticipantRepo) Leave(ctx context.Context, eventID, userID string) error {
	res, err := r.db.ExecContext(ctx,
		"DELETE FROM event_participants WHERE event_id = ? AND user_id = ?", eventID, userID)
	return affectedOrNotFound(res, err)
}

func (r *ParticipantRepo) IsParticipant(ctx context.Context, eventID, userID string) (bool, error) {
	var n int
	err := r.db.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM event_participants WHERE event_id = ? AND user_id = ?", eventID, userID).Scan(&n)
	return n > 0, err
}

// List returns participants in join order.
func (r *ParticipantRepo) List(ctx context.Context, eventID string) ([]model.Participant, error) {
	const q = `SELECT u.id, u.full_name, u.email, COALESCE(u.telegram, ''), ep.joined_at
		FROM event_participants ep
		JOIN users u ON u.id = ep.user_id
		WHERE ep.event_id = ?
		ORDER BY ep.joined_at, u.id`
	rows, err := r.db.QueryContext(ctx, q, eventID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []model.Participant{}
	for rows.Next() {
		var p model.Participant
		if err := rows.Scan(&p.UserID, &p.FullName, &p.Email, &p.Telegram, &p.JoinedAt); err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}
