package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/iliyamo/community-events/internal/model"
)

// MatchingRepo stores per-event matching intents (event_matching).  The
// (user_id, event_id) pair is unique.
type MatchingRepo struct{ db *sql.DB }

func NewMatchingRepo(db *sql.DB) *MatchingRepo { return &MatchingRepo{db: db} }

func (r *MatchingRepo) Get(ctx context.Context, userID, eventID string) (*model.EventMatching, error) {
	var m model.EventMatching
	var prefs sql.NullString
	err := r.db.QueryRowContext(ctx,
		`SELECT id, user_id, event_id, status, preferences, created_at, updated_at
		 FROM event_matching WHERE user_id = ? AND event_id = ?`, userID, eventID).
		Scan(&m.ID, &m.UserID, &m.EventID, &m.Status, &prefs, &m.CreatedAt, &m.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	m.Preferences = nullStr(prefs)
	return &m, nil
}

// Upsert inserts the intent or overwrites status and preferences of the
// existing row for the same user and event.
func (r *MatchingRepo) Upsert(ctx context.Context, m *model.EventMatching) error {
	now := time.Now().UTC()
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO event_matching (id, user_id, event_id, status, preferences, created_at, updated_at)
		 VALUES (?,?,?,?,?,?,?)
		 ON DUPLICATE KEY UPDATE status = VALUES(status), preferences = VALUES(preferences), updated_at = VALUES(updated_at)`,
		uuid.NewString(), m.UserID, m.EventID, m.Status, m.Preferences, now, now)
	return err
}

func (r *MatchingRepo) Delete(ctx context.Context, userID, eventID string) error {
	res, err := r.db.ExecContext(ctx,
		"DELETE FROM event_matching WHERE user_id = ? AND event_id = ?", userID, eventID)
	return affectedOrNotFound(res, err)
}

// ListLooking returns the users with a LOOKING intent for eventID, except
// excludeUserID.  Deleted accounts are skipped.
func (r *MatchingRepo) ListLooking(ctx context.Context, eventID, excludeUserID string) ([]model.UserRef, error) {
	const q = `SELECT u.id, u.full_name, u.email
		FROM event_matching em
		JOIN users u ON u.id = em.user_id
		WHERE em.event_id = ? AND em.status = ? AND em.user_id <> ? AND u.deleted_at IS NULL`
	rows, err := r.db.QueryContext(ctx, q, eventID, model.IntentLooking, excludeUserID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []model.UserRef
	for rows.Next() {
		var u model.UserRef
		if err := rows.Scan(&u.ID, &u.FullName, &u.Email); err != nil {
			return nil, err
		}
		out = append(out, u)
	}
	return out, rows.Err()
}

// SetStatus updates the intents of userIDs for eventID.  Users without an
// intent row are ignored; the count of changed rows is returned.
func (r *MatchingRepo) SetStatus(ctx context.Context, eventID, status string, userIDs ...string) (int64, error) {
	if len(userIDs) == 0 {
		return 0, nil
	}
	args := append([]any{status, time.Now().UTC(), eventID}, strArgs(userIDs)...)
	res, err := r.db.ExecContext(ctx,
		"UPDATE event_matching SET status = ?, updated_at = ? WHERE event_id = ? AND user_id IN ("+
			placeholders(len(userIDs))+")", args...)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}
