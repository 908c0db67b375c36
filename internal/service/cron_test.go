package service

import (
	"context"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"

	"github.com/iliyamo/community-events/internal/model"
	"github.com/iliyamo/community-events/internal/repository"
)

type sentReminder struct {
	to, eventID string
}

type fakeSender struct {
	sent   []sentReminder
	failTo string
}

func (f *fakeSender) EventReminder(_ context.Context, to, _, eventID, _ string, _ time.Time) error {
	if to == f.failTo {
		return errors.New("smtp down")
	}
	f.sent = append(f.sent, sentReminder{to: to, eventID: eventID})
	return nil
}

func newJobs(t *testing.T, sender ReminderSender, now time.Time) (*Jobs, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock: %v", err)
	}
	t.Cleanup(func() {
		if err := mock.ExpectationsWereMet(); err != nil {
			t.Errorf("unmet expectations: %v", err)
		}
		db.Close()
	})
	j := NewJobs(repository.NewEventRepo(db), sender, nil)
	j.Now = func() time.Time { return now }
	return j, mock
}

func TestUpdateEventStatusesIdempotent(t *testing.T) {
	now := time.Date(2026, 6, 1, 9, 0, 0, 0, time.UTC)
	j, mock := newJobs(t, &fakeSender{}, now)

	q := regexp.QuoteMeta("UPDATE events SET status = ?")
	mock.ExpectExec(q).WithArgs(model.EventStatusPast, now, model.EventStatusActive, now).
		WillReturnResult(sqlmock.NewResult(0, 2))
	mock.ExpectExec(q).WithArgs(model.EventStatusPast, now, model.EventStatusActive, now).
		WillReturnResult(sqlmock.NewResult(0, 0))

	if n, err := j.UpdateEventStatuses(context.Background()); err != nil || n != 2 {
		t.Fatalf("first run = %d, %v; want 2", n, err)
	}
	if n, err := j.UpdateEventStatuses(context.Background()); err != nil || n != 0 {
		t.Fatalf("second run = %d, %v; want 0", n, err)
	}
}

func TestSendEventRemindersSkipsFailures(t *testing.T) {
	now := time.Date(2026, 6, 1, 9, 0, 0, 0, time.UTC)
	sender := &fakeSender{failTo: "b@example.com"}
	j, mock := newJobs(t, sender, now)

	start := now.Add(30 * time.Hour)
	rows := sqlmock.NewRows([]string{"id", "title", "start_date", "uid", "email", "full_name"}).
		AddRow("e1", "Board games", start, "u1", "a@example.com", "Ann").
		AddRow("e1", "Board games", start, "u2", "b@example.com", "Bob").
		AddRow("e1", "Board games", start, "u3", "c@example.com", "Cat")
	mock.ExpectQuery("FROM events e").
		WithArgs(model.EventStatusActive, now.Add(24*time.Hour), now.Add(48*time.Hour)).
		WillReturnRows(rows)
	mark := regexp.QuoteMeta("INSERT IGNORE INTO event_reminders")
	mock.ExpectExec(mark).WithArgs("e1", "u1", now).WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(mark).WithArgs("e1", "u3", now).WillReturnResult(sqlmock.NewResult(0, 1))

	sent, err := j.SendEventReminders(context.Background())
	if err != nil {
		t.Fatalf("SendEventReminders: %v", err)
	}
	if sent != 2 || len(sender.sent) != 2 {
		t.Fatalf("sent = %d (%v), want 2", sent, sender.sent)
	}
	if sender.sent[0].to != "a@example.com" || sender.sent[1].to != "c@example.com" {
		t.Fatalf("unexpected recipients: %v", sender.sent)
	}
}

func TestRunAllContinuesAfterError(t *testing.T) {
	now := time.Date(2026, 6, 1, 9, 0, 0, 0, time.UTC)
	sender := &fakeSender{}
	j, mock := newJobs(t, sender, now)

	mock.ExpectExec("UPDATE events").WillReturnError(errors.New("deadlock"))
	mock.ExpectQuery("FROM events e").
		WillReturnRows(sqlmock.NewRows([]string{"id", "title", "start_date", "uid", "email", "full_name"}).
			AddRow("e2", "Hike", now.Add(36*time.Hour), "u1", "a@example.com", "Ann"))
	mock.ExpectExec("INSERT IGNORE INTO event_reminders").WillReturnResult(sqlmock.NewResult(0, 1))

	if err := j.RunAll(context.Background()); err == nil {
		t.Fatal("expected the status update error")
	}
	if len(sender.sent) != 1 {
		t.Fatalf("reminders should still go out, got %v", sender.sent)
	}
}

func TestSendEventRemindersOncePerParticipant(t *testing.T) {
	now := time.Date(2026, 6, 1, 9, 0, 0, 0, time.UTC)
	sender := &fakeSender{}
	j, mock := newJobs(t, sender, now)
	cols := []string{"id", "title", "start_date", "uid", "email", "full_name"}
	start := now.Add(30 * time.Hour)

	// First run finds the participant and records the delivery.
	mock.ExpectQuery(regexp.QuoteMeta("NOT EXISTS (SELECT 1 FROM event_reminders")).
		WithArgs(model.EventStatusActive, now.Add(24*time.Hour), now.Add(48*time.Hour)).
		WillReturnRows(sqlmock.NewRows(cols).AddRow("e1", "Board games", start, "u1", "a@example.com", "Ann"))
	mock.ExpectExec(regexp.QuoteMeta("INSERT IGNORE INTO event_reminders")).
		WithArgs("e1", "u1", now).WillReturnResult(sqlmock.NewResult(0, 1))

	// An hour later the event is still inside the window but already reminded.
	later := now.Add(time.Hour)
	mock.ExpectQuery(regexp.QuoteMeta("NOT EXISTS (SELECT 1 FROM event_reminders")).
		WithArgs(model.EventStatusActive, later.Add(24*time.Hour), later.Add(48*time.Hour)).
		WillReturnRows(sqlmock.NewRows(cols))

	if n, err := j.SendEventReminders(context.Background()); err != nil || n != 1 {
		t.Fatalf("first run = %d, %v; want 1", n, err)
	}
	j.Now = func() time.Time { return later }
	if n, err := j.SendEventReminders(context.Background()); err != nil || n != 0 {
		t.Fatalf("second run = %d, %v; want 0", n, err)
	}
	if len(sender.sent) != 1 {
		t.Fatalf("reminders sent = %v, want exactly one", sender.sent)
	}
}
