package repository

import (
	"context"
	"database/sql"
	"errors"
	"regexp"
	"strings"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/go-sql-driver/mysql"

	"github.com/iliyamo/community-events/internal/model"
)

func newMock(t *testing.T) (*sql.DB, sqlmock.Sqlmock, func()) {
	t.Helper()
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock: %v", err)
	}
	return db, mock, func() {
		if err := mock.ExpectationsWereMet(); err != nil {
			t.Errorf("unmet expectations: %v", err)
		}
		db.Close()
	}
}

var duplicateKey = &mysql.MySQLError{Number: 1062, Message: "Duplicate entry"}

func TestMarkPastIsIdempotent(t *testing.T) {
	db, mock, done := newMock(t)
	defer done()
	repo := NewEventRepo(db)
	now := time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC)

	q := regexp.QuoteMeta("UPDATE events SET status = ?, updated_at = ? WHERE status = ? AND end_date < ?")
	mock.ExpectExec(q).WithArgs(model.EventStatusPast, now, model.EventStatusActive, now).
		WillReturnResult(sqlmock.NewResult(0, 3))
	mock.ExpectExec(q).WithArgs(model.EventStatusPast, now, model.EventStatusActive, now).
		WillReturnResult(sqlmock.NewResult(0, 0))

	n, err := repo.MarkPast(context.Background(), now)
	if err != nil || n != 3 {
		t.Fatalf("first run = %d, %v", n, err)
	}
	n, err = repo.MarkPast(context.Background(), now)
	if err != nil || n != 0 {
		t.Fatalf("second run = %d, %v; want 0", n, err)
	}
}

func TestEventGetByIDNotFound(t *testing.T) {
	db, mock, done := newMock(t)
	defer done()
	mock.ExpectQuery("FROM events e").WithArgs("missing").WillReturnRows(sqlmock.NewRows([]string{"id"}))

	if _, err := NewEventRepo(db).GetByID(context.Background(), "missing"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("err = %v, want ErrNotFound", err)
	}
}

func TestEventFilterBuild(t *testing.T) {
	from := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	cases := []struct {
		name     string
		f        EventFilter
		contains []string
		args     int
	}{
		{"default hides rejected", EventFilter{}, []string{"e.status <> ?"}, 1},
		{"admin sees rejected", EventFilter{IncludeRejected: true}, []string{"e.deleted_at IS NULL"}, 0},
		{"active tab", EventFilter{Tab: "active"}, []string{"e.status = ?"}, 1},
		{"my tab", EventFilter{Tab: "my", ViewerID: "u1"}, []string{"e.organizer_id = ?", "e.status IN (?, ?)"}, 4},
		{"search", EventFilter{Search: "Go_%"}, []string{"LOWER(e.title) LIKE ?"}, 4},
		{"categories", EventFilter{CategoryIDs: []string{"a", "b"}}, []string{"category_id IN (?,?)"}, 3},
		{"tags", EventFilter{Tags: []string{"x", "y"}}, []string{"JSON_CONTAINS(e.tags, JSON_QUOTE(?)) OR JSON_CONTAINS"}, 3},
		{"dates", EventFilter{DateFrom: &from, DateTo: &from}, []string{"DATE(e.start_date) >= DATE(?)", "DATE(e.end_date) <= DATE(?)"}, 3},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cond, args := tc.f.Build()
			for _, want := range tc.contains {
				if !strings.Contains(cond, want) {
					t.Errorf("condition %q lacks %q", cond, want)
				}
			}
			if len(args) != tc.args {
				t.Errorf("args = %v, want %d", args, tc.args)
			}
		})
	}
}

func TestEventFilterEscapesSearch(t *testing.T) {
	_, args := EventFilter{Search: "50%_off", IncludeRejected: true}.Build()
	if got := args[0]; got != `%50\%\_off%` {
		t.Fatalf("like arg = %q", got)
	}
}

func TestEventFilterOrderByWhitelist(t *testing.T) {
	cases := []struct {
		f    EventFilter
		want string
	}{
		{EventFilter{}, "e.start_date ASC, e.id ASC"},
		{EventFilter{SortBy: "createdAt", SortOrder: "DESC"}, "e.created_at DESC, e.id ASC"},
		{EventFilter{SortBy: "participantsCount", SortOrder: "desc"}, "participants_count DESC, e.id ASC"},
		{EventFilter{SortBy: "title; DROP TABLE users"}, "e.start_date ASC, e.id ASC"},
	}
	for _, tc := range cases {
		if got := tc.f.OrderBy(); got != tc.want {
			t.Errorf("OrderBy(%q, %q) = %q, want %q", tc.f.SortBy, tc.f.SortOrder, got, tc.want)
		}
	}
}

func TestMatchRequestCreateDuplicate(t *testing.T) {
	db, mock, done := newMock(t)
	defer done()
	mock.ExpectExec("INSERT INTO match_requests").WillReturnError(duplicateKey)

	err := NewMatchRequestRepo(db).Create(context.Background(), &model.MatchRequest{
		FromUserID: "a", ToUserID: "b", EventID: "e",
	})
	if !errors.Is(err, ErrConflict) {
		t.Fatalf("err = %v, want ErrConflict", err)
	}
}

func TestMatchRequestCreateUnknownUser(t *testing.T) {
	db, mock, done := newMock(t)
	defer done()
	mock.ExpectExec("INSERT INTO match_requests").
		WillReturnError(&mysql.MySQLError{Number: 1452, Message: "Cannot add or update a child row"})

	err := NewMatchRequestRepo(db).Create(context.Background(), &model.MatchRequest{
		FromUserID: "a", ToUserID: "ghost", EventID: "e",
	})
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("err = %v, want ErrNotFound", err)
	}
}

func TestMatchRequestTransitionLosesRace(t *testing.T) {
	db, mock, done := newMock(t)
	defer done()
	mock.ExpectExec("UPDATE match_requests SET status").
		WithArgs(model.RequestAccepted, sqlmock.AnyArg(), "r1", "b", model.RequestPending).
		WillReturnResult(sqlmock.NewResult(0, 0))

	err := NewMatchRequestRepo(db).Transition(context.Background(), "r1", "b", model.RequestAccepted)
	if !errors.Is(err, ErrConflict) {
		t.Fatalf("err = %v, want ErrConflict", err)
	}
}

func TestParticipantJoinFull(t *testing.T) {
	db, mock, done := newMock(t)
	defer done()
	mock.ExpectBegin()
	mock.ExpectQuery("SELECT status, max_participants FROM events").WithArgs("e1").
		WillReturnRows(sqlmock.NewRows([]string{"status", "max_participants"}).AddRow("active", 2))
	mock.ExpectQuery("SELECT COUNT\\(\\*\\) FROM event_participants WHERE event_id = \\? AND user_id").
		WithArgs("e1", "u1").WillReturnRows(sqlmock.NewRows([]string{"n"}).AddRow(0))
	mock.ExpectQuery("SELECT COUNT\\(\\*\\) FROM event_participants WHERE event_id = \\?$").
		WithArgs("e1").WillReturnRows(sqlmock.NewRows([]string{"n"}).AddRow(2))
	mock.ExpectRollback()

	if err := NewParticipantRepo(db).Join(context.Background(), "e1", "u1"); !errors.Is(err, ErrEventFull) {
		t.Fatalf("err = %v, want ErrEventFull", err)
	}
}

func TestParticipantJoinClosedEvent(t *testing.T) {
	db, mock, done := newMock(t)
	defer done()
	mock.ExpectBegin()
	mock.ExpectQuery("SELECT status, max_participants FROM events").WithArgs("e1").
		WillReturnRows(sqlmock.NewRows([]string{"status", "max_participants"}).AddRow("past", nil))
	mock.ExpectRollback()

	if err := NewParticipantRepo(db).Join(context.Background(), "e1", "u1"); !errors.Is(err, ErrEventClosed) {
		t.Fatalf("err = %v, want ErrEventClosed", err)
	}
}

func TestCommunityAdminCannotLeave(t *testing.T) {
	db, mock, done := newMock(t)
	defer done()
	mock.ExpectBegin()
	mock.ExpectQuery("SELECT admin_id FROM micro_communities").WithArgs("c1").
		WillReturnRows(sqlmock.NewRows([]string{"admin_id"}).AddRow("u1"))
	mock.ExpectRollback()

	if err := NewCommunityRepo(db).Leave(context.Background(), "c1", "u1"); !errors.Is(err, ErrAdminLeave) {
		t.Fatalf("err = %v, want ErrAdminLeave", err)
	}
}

func TestCommunityJoinTwice(t *testing.T) {
	db, mock, done := newMock(t)
	defer done()
	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO community_members").WillReturnError(duplicateKey)
	mock.ExpectRollback()

	if err := NewCommunityRepo(db).Join(context.Background(), "c1", "u2"); !errors.Is(err, ErrConflict) {
		t.Fatalf("err = %v, want ErrConflict", err)
	}
}

func TestUserInterestAddClampsWeight(t *testing.T) {
	db, mock, done := newMock(t)
	defer done()
	mock.ExpectExec("INSERT INTO user_interests").
		WithArgs(sqlmock.AnyArg(), "u1", "i1", model.MaxInterestWeight, sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))

	ui, err := NewUserInterestRepo(db).Add(context.Background(), "u1", "i1", 42)
	if err != nil {
		t.Fatalf("Add: %v", err)
	}
	if ui.Weight != model.MaxInterestWeight {
		t.Fatalf("weight = %d", ui.Weight)
	}
}

func TestPlaceholders(t *testing.T) {
	for n, want := range map[int]string{0: "", 1: "?", 3: "?,?,?"} {
		if got := placeholders(n); got != want {
			t.Errorf("placeholders(%d) = %q, want %q", n, got, want)
		}
	}
}
