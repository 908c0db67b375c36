package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/iliyamo/community-events/internal/model"
)

const eventSelect = `SELECT e.id, e.title, e.short_description, e.full_description, e.start_date, e.end_date,
	e.image_url, e.payment_info, e.max_participants, e.status, e.organizer_id, e.tags, e.address,
	e.latitude, e.longitude, e.yandex_map_link, e.created_at, e.updated_at,
	COALESCE(u.full_name, ''), COALESCE(u.email, ''),
	(SELECT COUNT(*) FROM event_participants ep WHERE ep.event_id = e.id) AS participants_count
	FROM events e
	LEFT JOIN users u ON u.id = e.organizer_id`

func scanEvent(s rowScanner) (*model.Event, error) {
	var e model.Event
	var short, image, payment, addr, ymap, tags sql.NullString
	var maxP sql.NullInt64
	var lat, lon sql.NullFloat64
	var orgName, orgEmail string
	if err := s.Scan(&e.ID, &e.Title, &short, &e.FullDescription, &e.StartDate, &e.EndDate,
		&image, &payment, &maxP, &e.Status, &e.OrganizerID, &tags, &addr,
		&lat, &lon, &ymap, &e.CreatedAt, &e.UpdatedAt,
		&orgName, &orgEmail, &e.ParticipantsCount); err != nil {
		return nil, err
	}
	e.ShortDescription = nullStr(short)
	e.ImageURL = nullStr(image)
	e.PaymentInfo = nullStr(payment)
	e.Address = nullStr(addr)
	e.YandexMapLink = nullStr(ymap)
	if maxP.Valid {
		n := int(maxP.Int64)
		e.MaxParticipants = &n
	}
	if lat.Valid {
		e.Latitude = &lat.Float64
	}
	if lon.Valid {
		e.Longitude = &lon.Float64
	}
	e.Tags = []string{}
	if tags.Valid && tags.String != "" {
		_ = json.Unmarshal([]byte(tags.String), &e.Tags)
	}
	e.Organizer = &model.UserRef{ID: e.OrganizerID, FullName: orgName, Email: orgEmail}
	e.Categories = []model.Category{}
	return &e, nil
}

func nullStr(ns sql.NullString) *string {
	if !ns.Valid {
		return nil
	}
	s := ns.String
	return &s
}

func tagsJSON(tags []string) string {
	if tags == nil {
		tags = []string{}
	}
	b, _ := json.Marshal(tags)
	return string(b)
}

// EventRepo persists events and their category links.
type EventRepo struct{ db *sql.DB }

func NewEventRepo(db *sql.DB) *EventRepo { return &EventRepo{db: db} }

// Create inserts e and links the given categories.  Unknown category ids are
// skipped rather than failing the insert.
func (r *EventRepo) Create(ctx context.Context, e *model.Event, categoryIDs []string) error {
	now := time.Now().UTC()
	e.ID = uuid.NewString()
	e.CreatedAt, e.UpdatedAt = now, now
	if e.Status == "" {
		e.Status = model.EventStatusActive
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	const q = `INSERT INTO events (id, title, short_description, full_description, start_date, end_date,
		image_url, payment_info, max_participants, status, organizer_id, tags, address, latitude, longitude,
		yandex_map_link, created_at, updated_at)
		VALUES (?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?)`
	if _, err := tx.ExecContext(ctx, q, e.ID, e.Title, e.ShortDescription, e.FullDescription, e.StartDate, e.EndDate,
		e.ImageURL, e.PaymentInfo, e.MaxParticipants, e.Status, e.OrganizerID, tagsJSON(e.Tags), e.Address,
		e.Latitude, e.Longitude, e.YandexMapLink, now, now); err != nil {
		return err
	}
	if err := linkCategories(ctx, tx, e.ID, categoryIDs); err != nil {
		return err
	}
	return tx.Commit()
}

func linkCategories(ctx context.Context, tx *sql.Tx, eventID string, categoryIDs []string) error {
	if len(categoryIDs) == 0 {
		return nil
	}
	args := append([]any{eventID}, strArgs(categoryIDs)...)
	_, err := tx.ExecContext(ctx,
		"INSERT IGNORE INTO event_categories (event_id, category_id) SELECT ?, id FROM categories WHERE id IN ("+
			placeholders(len(categoryIDs))+")", args...)
	return err
}

// GetByID returns a non-deleted event with organizer and participant count.
func (r *EventRepo) GetByID(ctx context.Context, id string) (*model.Event, error) {
	e, err := scanEvent(r.db.QueryRowContext(ctx, eventSelect+" WHERE e.id = ? AND e.deleted_at IS NULL", id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	return e, err
}

// Exists reports whether a non-deleted event with id exists.
func (r *EventRepo) Exists(ctx context.Context, id string) (bool, error) {
	var n int
	err := r.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM events WHERE id = ? AND deleted_at IS NULL", id).Scan(&n)
	return n > 0, err
}

// Update writes every editable column of e.  When categoryIDs is non-nil the
// category links are replaced.
func (r *EventRepo) Update(ctx context.Context, e *model.Event, categoryIDs []string) error {
	e.UpdatedAt = time.Now().UTC()

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	const q = `UPDATE events SET title = ?, short_description = ?, full_description = ?, start_date = ?,
		end_date = ?, image_url = ?, payment_info = ?, max_participants = ?, status = ?, tags = ?, address = ?,
		latitude = ?, longitude = ?, yandex_map_link = ?, updated_at = ?
		WHERE id = ? AND deleted_at IS NULL`
	res, err := tx.ExecContext(ctx, q, e.Title, e.ShortDescription, e.FullDescription, e.StartDate,
		e.EndDate, e.ImageURL, e.PaymentInfo, e.MaxParticipants, e.Status, tagsJSON(e.Tags), e.Address,
		e.Latitude, e.Longitude, e.YandexMapLink, e.UpdatedAt, e.ID)
	if err := affectedOrNotFound(res, err); err != nil {
		return err
	}
	if categoryIDs != nil {
		if _, err := tx.ExecContext(ctx, "DELETE FROM event_categories WHERE event_id = ?", e.ID); err != nil {
			return err
		}
		if err := linkCategories(ctx, tx, e.ID, categoryIDs); err != nil {
			return err
		}
	}
	return tx.Commit()
}

func (r *EventRepo) SoftDelete(ctx context.Context, id string) error {
	now := time.Now().UTC()
	res, err := r.db.ExecContext(ctx,
		"UPDATE events SET deleted_at = ?, updated_at = ? WHERE id = ? AND deleted_at IS NULL", now, now, id)
	return affectedOrNotFound(res, err)
}

// MarkPast moves active events whose end date is before now to past and
// returns the number of rows changed.  Running it again is a no-op.
func (r *EventRepo) MarkPast(ctx context.Context, now time.Time) (int64, error) {
	res, err := r.db.ExecContext(ctx,
		"UPDATE events SET status = ?, updated_at = ? WHERE status = ? AND end_date < ? AND deleted_at IS NULL",
		model.EventStatusPast, now, model.EventStatusActive, now)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

// Reminder is one participant to notify about an upcoming event.
type Reminder struct {
	EventID   string
	Title     string
	StartDate time.Time
	UserID    string
	Email     string
	FullName  string
}

// ReminderTargets lists participants of active events starting in [from, to)
// who have not been reminded yet.
func (r *EventRepo) ReminderTargets(ctx context.Context, from, to time.Time) ([]Reminder, error) {
	const q = `SELECT e.id, e.title, e.start_date, u.id, u.email, u.full_name
		FROM events e
		JOIN event_participants ep ON ep.event_id = e.id
		JOIN users u ON u.id = ep.user_id
		WHERE e.status = ? AND e.deleted_at IS NULL AND u.deleted_at IS NULL
		  AND e.start_date >= ? AND e.start_date < ?
		  AND NOT EXISTS (SELECT 1 FROM event_reminders er WHERE er.event_id = e.id AND er.user_id = u.id)
		ORDER BY e.start_date`
	rows, err := r.db.QueryContext(ctx, q, model.EventStatusActive, from, to)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []Reminder
	for rows.Next() {
		var m Reminder
		if err := rows.Scan(&m.EventID, &m.Title, &m.StartDate, &m.UserID, &m.Email, &m.FullName); err != nil {
			return nil, err
		}
		out = append(out, m)
	}
	return out, rows.Err()
}

// MarkReminded records that userID got the reminder for eventID.  Recording
// it twice is a no-op.
func (r *EventRepo) MarkReminded(ctx context.Context, eventID, userID string, at time.Time) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT IGNORE INTO event_reminders (event_id, user_id, sent_at) VALUES (?, ?, ?)`,
		eventID, userID, at)
	return err
}
