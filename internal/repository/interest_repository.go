package repository

import (
	"context"
	"database/sql"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/iliyamo/community-events/internal/model"
)

type InterestRepo struct{ db *sql.DB }

func NewInterestRepo(db *sql.DB) *InterestRepo { return &InterestRepo{db: db} }

// List returns interests filtered by a name search and an exact category.
func (r *InterestRepo) List(ctx context.Context, search, category string) ([]model.Interest, error) {
	where := []string{"1=1"}
	args := []any{}
	if search != "" {
		where = append(where, "LOWER(name) LIKE ?")
		args = append(args, "%"+escapeLike(strings.ToLower(search))+"%")
	}
	if category != "" {
		where = append(where, "category = ?")
		args = append(args, category)
	}
	q := "SELECT id, name, category, description, created_at, updated_at FROM interests WHERE " +
		strings.Join(where, " AND ") + " ORDER BY category, name"
	rows, err := r.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []model.Interest{}
	for rows.Next() {
		var in model.Interest
		var cat, desc sql.NullString
		if err := rows.Scan(&in.ID, &in.Name, &cat, &desc, &in.CreatedAt, &in.UpdatedAt); err != nil {
			return nil, err
		}
		in.Category, in.Description = nullStr(cat), nullStr(desc)
		out = append(out, in)
	}
	return out, rows.Err()
}

// Categories lists the distinct non-empty interest categories.
func (r *InterestRepo) Categories(ctx context.Context) ([]string, error) {
	rows, err := r.db.QueryContext(ctx,
		"SELECT DISTINCT category FROM interests WHERE category IS NOT NULL AND category <> '' ORDER BY category")
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []string{}
	for rows.Next() {
		var c string
		if err := rows.Scan(&c); err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

func (r *InterestRepo) Create(ctx context.Context, in *model.Interest) error {
	now := time.Now().UTC()
	in.ID = uuid.NewString()
	in.CreatedAt, in.UpdatedAt = now, now
	_, err := r.db.ExecContext(ctx,
		"INSERT INTO interests (id, name, category, description, created_at, updated_at) VALUES (?,?,?,?,?,?)",
		in.ID, in.Name, in.Category, in.Description, now, now)
	if isDuplicate(err) {
		return ErrConflict
	}
	return err
}

func (r *InterestRepo) Exists(ctx context.Context, id string) (bool, error) {
	var n int
	err := r.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM interests WHERE id = ?", id).Scan(&n)
	return n > 0, err
}

// UserInterestRepo manages the weighted user_interests links.
type UserInterestRepo struct{ db *sql.DB }

func NewUserInterestRepo(db *sql.DB) *UserInterestRepo { return &UserInterestRepo{db: db} }

func (r *UserInterestRepo) ListByUser(ctx context.Context, userID string) ([]model.UserInterest, error) {
	const q = `SELECT ui.id, ui.user_id, ui.interest_id, i.name, i.category, ui.weight, ui.created_at
		FROM user_interests ui
		JOIN interests i ON i.id = ui.interest_id
		WHERE ui.user_id = ?
		ORDER BY i.name`
	rows, err := r.db.QueryContext(ctx, q, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []model.UserInterest{}
	for rows.Next() {
		var ui model.UserInterest
		var cat sql.NullString
		if err := rows.Scan(&ui.ID, &ui.UserID, &ui.InterestID, &ui.Name, &cat, &ui.Weight, &ui.CreatedAt); err != nil {
			return nil, err
		}
		ui.Category = nullStr(cat)
		out = append(out, ui)
	}
	return out, rows.Err()
}

// Add links interestID to the user; an existing link yields ErrConflict.
func (r *UserInterestRepo) Add(ctx context.Context, userID, interestID string, weight int) (*model.UserInterest, error) {
	ui := &model.UserInterest{
		ID:         uuid.NewString(),
		UserID:     userID,
		InterestID: interestID,
		Weight:     model.ClampWeight(weight),
		CreatedAt:  time.Now().UTC(),
	}
	_, err := r.db.ExecContext(ctx,
		"INSERT INTO user_interests (id, user_id, interest_id, weight, created_at) VALUES (?,?,?,?,?)",
		ui.ID, ui.UserID, ui.InterestID, ui.Weight, ui.CreatedAt)
	if isDuplicate(err) {
		return nil, ErrConflict
	}
	if err != nil {
		return nil, err
	}
	return ui, nil
}

func (r *UserInterestRepo) Remove(ctx context.Context, userID, interestID string) error {
	res, err := r.db.ExecContext(ctx,
		"DELETE FROM user_interests WHERE user_id = ? AND interest_id = ?", userID, interestID)
	return affectedOrNotFound(res, err)
}

func (r *UserInterestRepo) UpdateWeight(ctx context.Context, userID, interestID string, weight int) error {
	res, err := r.db.ExecContext(ctx,
		"UPDATE user_interests SET weight = ? WHERE user_id = ? AND interest_id = ?",
		model.ClampWeight(weight), userID, interestID)
	return affectedOrNotFound(res, err)
}

// ListByUsers loads the interests of several users with one query, keyed by
// user id.
func (r *UserInterestRepo) ListByUsers(ctx context.Context, userIDs []string) (map[string][]model.UserInterest, error) {
	out := make(map[string][]model.UserInterest, len(userIDs))
	if len(userIDs) == 0 {
		return out, nil
	}
	q := `SELECT ui.id, ui.user_id, ui.interest_id, i.name, ui.weight, ui.created_at
		FROM user_interests ui
		JOIN interests i ON i.id = ui.interest_id
		WHERE ui.user_id IN (` + placeholders(len(userIDs)) + `)`
	rows, err := r.db.QueryContext(ctx, q, strArgs(userIDs)...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	for rows.Next() {
		var ui model.UserInterest
		if err := rows.Scan(&ui.ID, &ui.UserID, &ui.InterestID, &ui.Name, &ui.Weight, &ui.CreatedAt); err != nil {
			return nil, err
		}
		out[ui.UserID] = append(out[ui.UserID], ui)
	}
	return out, rows.Err()
}
