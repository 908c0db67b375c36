package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/iliyamo/community-events/internal/model"
)

type CategoryRepo struct{ db *sql.DB }

func NewCategoryRepo(db *sql.DB) *CategoryRepo { return &CategoryRepo{db: db} }

const categoryColumns = "id, name, description, created_at, updated_at"

func scanCategory(s rowScanner) (*model.Category, error) {
	var c model.Category
	var desc sql.NullString
	if err := s.Scan(&c.ID, &c.Name, &desc, &c.CreatedAt, &c.UpdatedAt); err != nil {
		return nil, err
	}
	c.Description = nullStr(desc)
	return &c, nil
}

func (r *CategoryRepo) List(ctx context.Context) ([]model.Category, error) {
	rows, err := r.db.QueryContext(ctx, "SELECT "+categoryColumns+" FROM categories ORDER BY name")
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []model.Category{}
	for rows.Next() {
		c, err := scanCategory(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *c)
	}
	return out, rows.Err()
}

func (r *CategoryRepo) GetByID(ctx context.Context, id string) (*model.Category, error) {
	c, err := scanCategory(r.db.QueryRowContext(ctx, "SELECT "+categoryColumns+" FROM categories WHERE id = ?", id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	return c, err
}

// Create inserts c; a taken name yields ErrConflict.
func (r *CategoryRepo) Create(ctx context.Context, c *model.Category) error {
	now := time.Now().UTC()
	c.ID = uuid.NewString()
	c.CreatedAt, c.UpdatedAt = now, now
	_, err := r.db.ExecContext(ctx,
		"INSERT INTO categories (id, name, description, created_at, updated_at) VALUES (?,?,?,?,?)",
		c.ID, c.Name, c.Description, now, now)
	if isDuplicate(err) {
		return ErrConflict
	}
	return err
}

func (r *CategoryRepo) Update(ctx context.Context, c *model.Category) error {
	c.UpdatedAt = time.Now().UTC()
	res, err := r.db.ExecContext(ctx,
		"UPDATE categories SET name = ?, description = ?, updated_at = ? WHERE id = ?",
		c.Name, c.Description, c.UpdatedAt, c.ID)
	if isDuplicate(err) {
		return ErrConflict
	}
	return affectedOrNotFound(res, err)
}

func (r *CategoryRepo) Delete(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, "DELETE FROM categories WHERE id = ?", id)
	return affectedOrNotFound(res, err)
}

// ForEvents loads the categories of several events with one query, keyed by
// event id.
func (r *CategoryRepo) ForEvents(ctx context.Context, eventIDs []string) (map[string][]model.Category, error) {
	out := make(map[string][]model.Category, len(eventIDs))
	if len(eventIDs) == 0 {
		return out, nil
	}
	q := `SELECT ec.event_id, c.id, c.name, c.description, c.created_at, c.updated_at
		FROM event_categories ec
		JOIN categories c ON c.id = ec.category_id
		WHERE ec.event_id IN (` + placeholders(len(eventIDs)) + `)
		ORDER BY c.name`
	rows, err := r.db.QueryContext(ctx, q, strArgs(eventIDs)...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	for rows.Next() {
		var eventID string
		var c model.Category
		var desc sql.NullString
		if err := rows.Scan(&eventID, &c.ID, &c.Name, &desc, &c.CreatedAt, &c.UpdatedAt); err != nil {
			return nil, err
		}
		c.Description = nullStr(desc)
		out[eventID] = append(out[eventID], c)
	}
	return out, rows.Err()
}
