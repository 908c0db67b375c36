package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/iliyamo/community-events/internal/model"
)

type ReviewRepo struct{ db *sql.DB }

func NewReviewRepo(db *sql.DB) *ReviewRepo { return &ReviewRepo{db: db} }

const reviewSelect = `SELECT r.id, r.event_id, r.user_id, COALESCE(u.full_name, ''), r.rating, r.comment, r.created_at, r.updated_at
	FROM event_reviews r
	LEFT JOIN users u ON u.id = r.user_id`

func scanReview(s rowScanner) (*model.Review, error) {
	var rv model.Review
	var comment sql.NullString
	if err := s.Scan(&rv.ID, &rv.EventID, &rv.UserID, &rv.UserName, &rv.Rating, &comment, &rv.CreatedAt, &rv.UpdatedAt); err != nil {
		return nil, err
	}
	rv.Comment = nullStr(comment)
	return &rv, nil
}

// List returns the reviews of an event, newest first.
func (r *ReviewRepo) List(ctx context.Context, eventID string) ([]model.Review, error) {
	rows, err := r.db.QueryContext(ctx, reviewSelect+" WHERE r.event_id = ? ORDER BY r.created_at DESC, r.id", eventID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []model.Review{}
	for rows.Next() {
		rv, err := scanReview(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *rv)
	}
	return out, rows.Err()
}

// Average returns the mean rating, or nil when the event has no reviews.
func (r *ReviewRepo) Average(ctx context.Context, eventID string) (*float64, error) {
	var avg sql.NullFloat64
	if err := r.db.QueryRowContext(ctx, "SELECT AVG(rating) FROM event_reviews WHERE event_id = ?", eventID).Scan(&avg); err != nil {
		return nil, err
	}
	if !avg.Valid {
		return nil, nil
	}
	return &avg.Float64, nil
}

func (r *ReviewRepo) GetByID(ctx context.Context, eventID, id string) (*model.Review, error) {
	rv, err := scanReview(r.db.QueryRowContext(ctx, reviewSelect+" WHERE r.id = ? AND r.event_id = ?", id, eventID))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	return rv, err
}

// Create inserts rv; a second review by the same user yields ErrConflict.
func (r *ReviewRepo) Create(ctx context.Context, rv *model.Review) error {
	now := time.Now().UTC()
	rv.ID = uuid.NewString()
	rv.CreatedAt, rv.UpdatedAt = now, now
	_, err := r.db.ExecContext(ctx,
		"INSERT INTO event_reviews (id, event_id, user_id, rating, comment, created_at, updated_at) VALUES (?,?,?,?,?,?,?)",
		rv.ID, rv.EventID, rv.UserID, rv.Rating, rv.Comment, now, now)
	if isDuplicate(err) {
		return ErrConflict
	}
	return err
}

func (r *ReviewRepo) Update(ctx context.Context, rv *model.Review) error {
	rv.UpdatedAt = time.Now().UTC()
	res, err := r.db.ExecContext(ctx,
		"UPDATE event_reviews SET rating = ?, comment = ?, updated_at = ? WHERE id = ?",
		rv.Rating, rv.Comment, rv.UpdatedAt, rv.ID)
	return affectedOrNotFound(res, err)
}

func (r *ReviewRepo) Delete(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, "DELETE FROM event_reviews WHERE id = ?", id)
	return affectedOrNotFound(res, err)
}
