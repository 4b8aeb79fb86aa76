package service

import (
	"context"
	"lecturealarm/internal/domain/schedule"
	"lecturealarm/internal/infrastructure/line"
	"time"

	"github.com/robfig/cron/v3"
)

// ScheduleResult reports the outcome of a full reschedule.
// Permitted is false when the user cannot receive alarms; that is not an error.
type ScheduleResult struct {
	Permitted bool
	Alarms    []schedule.ScheduledAlarm
}

// AlarmService defines the interface for lecture alarm scheduling.
type AlarmService interface {
	// RescheduleAll cancels every pending alarm of the user and, when the user
	// may receive alarms, registers the next alarm for every enabled lecture.
	RescheduleAll(ctx context.Context, userID string) (ScheduleResult, error)
	// CancelAll cancels every pending alarm of the user.
	CancelAll(ctx context.Context, userID string) error
	// PendingAlarms returns the user's registered alarms ordered by fire time.
	PendingAlarms(userID string) []schedule.ScheduledAlarm
	// InitializeSchedules reschedules every stored user on startup.
	InitializeSchedules(ctx context.Context) error
	// SendTestNotification pushes a test alarm to the user right away.
	SendTestNotification(ctx context.Context, userID string) error
	// Stop stops the underlying job scheduler.
	Stop()
}

// JobScheduler runs one-shot jobs. It is satisfied by *scheduler.Scheduler.
type JobScheduler interface {
	AddJob(spec string, cmd func()) (cron.EntryID, error)
	RemoveJob(id cron.EntryID)
	Location() *time.Location
	Stop()
}

// Notifier delivers a notification to a user. It is satisfied by *line.Client.
type Notifier interface {
	Notify(userID string, n line.Notification) error
}
