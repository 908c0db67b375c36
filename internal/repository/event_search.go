package repository

import (
	"context"
	"strings"
	"time"

	"github.com/iliyamo/community-events/internal/model"
)

// EventFilter is the parameter object behind event listings.  Every value
// reaches SQL as a placeholder argument; only whitelisted column names and
// sort directions are concatenated.
type EventFilter struct {
	Tab             string // active | my | past
	Status          string
	Search          string
	CategoryIDs     []string
	Tags            []string
	DateFrom        *time.Time
	DateTo          *time.Time
	SortBy          string // startDate | createdAt | participantsCount
	SortOrder       string // asc | desc
	Page            int
	Limit           int
	ViewerID        string // required for Tab == "my"
	IncludeRejected bool   // admin listings
}

// Build returns the WHERE condition and its arguments.
func (f EventFilter) Build() (string, []any) {
	where := []string{"e.deleted_at IS NULL"}
	args := []any{}

	switch f.Tab {
	case "active":
		where = append(where, "e.status = ?")
		args = append(args, model.EventStatusActive)
	case "past":
		where = append(where, "e.status = ?")
		args = append(args, model.EventStatusPast)
	case "my":
		where = append(where, "(e.organizer_id = ? OR e.id IN (SELECT event_id FROM event_participants WHERE user_id = ?))")
		args = append(args, f.ViewerID, f.ViewerID)
		where = append(where, "e.status IN (?, ?)")
		args = append(args, model.EventStatusActive, model.EventStatusPast)
	default:
		if f.Status == "" && !f.IncludeRejected {
			where = append(where, "e.status <> ?")
			args = append(args, model.EventStatusRejected)
		}
	}

	if f.Status != "" {
		where = append(where, "e.status = ?")
		args = append(args, f.Status)
	}
	if f.Search != "" {
		where = append(where, "(LOWER(e.title) LIKE ? OR LOWER(e.short_description) LIKE ? OR LOWER(e.full_description) LIKE ?)")
		like := "%" + escapeLike(strings.ToLower(f.Search)) + "%"
		args = append(args, like, like, like)
	}
	if len(f.CategoryIDs) > 0 {
		where = append(where, "e.id IN (SELECT event_id FROM event_categories WHERE category_id IN ("+placeholders(len(f.CategoryIDs))+"))")
		args = append(args, strArgs(f.CategoryIDs)...)
	}
	if len(f.Tags) > 0 {
		tagConds := make([]string, len(f.Tags))
		for i, tag := range f.Tags {
			tagConds[i] = "JSON_CONTAINS(e.tags, JSON_QUOTE(?))"
			args = append(args, tag)
		}
		where = append(where, "("+strings.Join(tagConds, " OR ")+")")
	}
	if f.DateFrom != nil {
		where = append(where, "DATE(e.start_date) >= DATE(?)")
		args = append(args, *f.DateFrom)
	}
	if f.DateTo != nil {
		where = append(where, "DATE(e.end_date) <= DATE(?)")
		args = append(args, *f.DateTo)
	}
	return strings.Join(where, " AND "), args
}

// OrderBy maps the public sort keys onto columns.
func (f EventFilter) OrderBy() string {
	col := "e.start_date"
	switch f.SortBy {
	case "createdAt":
		col = "e.created_at"
	case "participantsCount":
		col = "participants_count"
	}
	dir := "ASC"
	if strings.EqualFold(f.SortOrder, "desc") {
		dir = "DESC"
	}
	return col + " " + dir + ", e.id ASC"
}

func escapeLike(s string) string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return r.Replace(s)
}

// Search returns one page of events and the total number of matches.
func (r *EventRepo) Search(ctx context.Context, f EventFilter) ([]model.Event, int, error) {
	cond, args := f.Build()

	var total int
	if err := r.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM events e WHERE "+cond, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	if f.Limit < 1 {
		f.Limit = 20
	}
	if f.Page < 1 {
		f.Page = 1
	}
	q := eventSelect + " WHERE " + cond + " ORDER BY " + f.OrderBy() + " LIMIT ? OFFSET ?"
	dataArgs := append(append([]any{}, args...), f.Limit, (f.Page-1)*f.Limit)

	rows, err := r.db.QueryContext(ctx, q, dataArgs...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	out := make([]model.Event, 0, f.Limit)
	for rows.Next() {
		e, err := scanEvent(rows)
		if err != nil {
			return nil, 0, err
		}
		out = append(out, *e)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, err
	}
	return out, total, nil
}
