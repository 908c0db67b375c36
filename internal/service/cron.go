// Package service holds the scheduled maintenance jobs.  cmd/cron runs them
// once; the server can also run them on an interval.
package service

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/iliyamo/community-events/internal/metrics"
	"github.com/iliyamo/community-events/internal/repository"
)

// ReminderSender delivers one event reminder.  queue.Dispatcher satisfies it.
type ReminderSender interface {
	EventReminder(ctx context.Context, to, name, eventID, title string, start time.Time) error
}

// Jobs runs the periodic event maintenance.
type Jobs struct {
	Events *repository.EventRepo
	Notify ReminderSender
	Log    *zap.Logger
	Now    func() time.Time
}

func NewJobs(events *repository.EventRepo, notify ReminderSender, log *zap.Logger) *Jobs {
	if log == nil {
		log = zap.NewNop()
	}
	return &Jobs{Events: events, Notify: notify, Log: log, Now: func() time.Time { return time.Now().UTC() }}
}

// UpdateEventStatuses marks finished active events as past.
func (j *Jobs) UpdateEventStatuses(ctx context.Context) (int64, error) {
	n, err := j.Events.MarkPast(ctx, j.Now())
	if err != nil {
		return 0, err
	}
	if n > 0 {
		metrics.EventsMarkedPastTotal.Add(float64(n))
	}
	j.Log.Info("event statuses updated", zap.Int64("marked_past", n))
	return n, nil
}

// SendEventReminders notifies participants of events starting in one to
// two days.  Each participant is reminded once per event whatever the run
// interval.  A failed delivery is logged and retried on the next run; the
// count of successful deliveries is returned.
func (j *Jobs) SendEventReminders(ctx context.Context) (int, error) {
	now := j.Now()
	targets, err := j.Events.ReminderTargets(ctx, now.Add(24*time.Hour), now.Add(48*time.Hour))
	if err != nil {
		return 0, err
	}
	sent := 0
	for _, t := range targets {
		if err := j.Notify.EventReminder(ctx, t.Email, t.FullName, t.EventID, t.Title, t.StartDate); err != nil {
			j.Log.Warn("event reminder failed",
				zap.String("event_id", t.EventID), zap.String("user_id", t.UserID), zap.Error(err))
			continue
		}
		sent++
		if err := j.Events.MarkReminded(ctx, t.EventID, t.UserID, now); err != nil {
			j.Log.Warn("recording event reminder failed",
				zap.String("event_id", t.EventID), zap.String("user_id", t.UserID), zap.Error(err))
		}
	}
	j.Log.Info("event reminders sent", zap.Int("sent", sent), zap.Int("targets", len(targets)))
	return sent, nil
}

// RunAll runs every job once.  A failing job does not stop the next one;
// the first error is returned.
func (j *Jobs) RunAll(ctx context.Context) error {
	var first error
	if _, err := j.UpdateEventStatuses(ctx); err != nil {
		j.Log.Error("update event statuses", zap.Error(err))
		first = err
	}
	if _, err := j.SendEventReminders(ctx); err != nil {
		j.Log.Error("send event reminders", zap.Error(err))
		if first == nil {
			first = err
		}
	}
	return first
}

// Start runs RunAll every interval until ctx is cancelled.
func (j *Jobs) Start(ctx context.Context, interval time.Duration) {
	t := time.NewTicker(interval)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			runCtx, cancel := context.WithTimeout(ctx, interval)
			_ = j.RunAll(runCtx)
			cancel()
		}
	}
}
