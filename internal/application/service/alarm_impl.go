package service

import (
	"context"
	"errors"
	"fmt"
	"lecturealarm/internal/domain/entity"
	"lecturealarm/internal/domain/repository"
	"lecturealarm/internal/domain/schedule"
	"lecturealarm/internal/infrastructure/metrics"
	"lecturealarm/internal/infrastructure/scheduler"
	appErrors "lecturealarm/internal/pkg/errors"
	"lecturealarm/internal/pkg/logger"
	"sort"
	"sync"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/robfig/cron/v3"
	"gorm.io/gorm"
)

// alarmJob is one registered one-shot alarm.
type alarmJob struct {
	entryID    cron.EntryID
	generation uint64
	lecture    entity.Lecture // Snapshot taken when the alarm was planned
	alarm      schedule.ScheduledAlarm
}

type plannedAlarm struct {
	lecture entity.Lecture
	alarm   schedule.ScheduledAlarm
}

type alarmService struct {
	jobs        JobScheduler
	userRepo    repository.UserRepository
	lectureRepo repository.LectureRepository
	notifier    Notifier
	clock       clock.Clock
	metrics     metrics.Sink
	log         logger.Logger

	// map[userID]map[jobKey]*alarmJob
	jobStore map[string]map[uint64]*alarmJob
	// Bumped whenever the user's jobs are replaced so in-flight re-arms of older jobs are dropped.
	generations map[string]uint64
	// Bumped on every reschedule or cancel request. A reschedule only commits
	// while its ticket is still the latest, so a slow read never wins over a newer one.
	tickets map[string]uint64
	nextKey uint64
	stopped bool
	mu      sync.Mutex // Protect jobStore, generations, tickets, nextKey and stopped
}

// NewAlarmService creates a new instance of AlarmService implementation.
func NewAlarmService(
	jobs JobScheduler,
	userRepo repository.UserRepository,
	lectureRepo repository.LectureRepository,
	notifier Notifier,
	clk clock.Clock,
	sink metrics.Sink,
	log logger.Logger,
) AlarmService {
	if sink == nil {
		sink = metrics.NoopSink{}
	}
	return &alarmService{
		jobs:        jobs,
		userRepo:    userRepo,
		lectureRepo: lectureRepo,
		notifier:    notifier,
		clock:       clk,
		metrics:     sink,
		log:         log,
		jobStore:    make(map[string]map[uint64]*alarmJob),
		generations: make(map[string]uint64),
		tickets:     make(map[string]uint64),
	}
}

func (s *alarmService) now() time.Time {
	return s.clock.Now().In(s.jobs.Location())
}

func (s *alarmService) findUser(ctx context.Context, userID string) (*entity.User, error) {
	user, err := s.userRepo.FindByUserID(ctx, userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, appErrors.ErrUserNotFound
		}
		s.log.Error(fmt.Sprintf("Failed to get user %s", userID), err)
		return nil, fmt.Errorf("%w: %v", appErrors.ErrDatabaseOperation, err)
	}
	return user, nil
}

// RescheduleAll replaces every pending alarm of the user with a fresh plan.
func (s *alarmService) RescheduleAll(ctx context.Context, userID string) (ScheduleResult, error) {
	s.mu.Lock()
	s.tickets[userID]++
	ticket := s.tickets[userID]
	s.mu.Unlock()

	user, err := s.findUser(ctx, userID)
	if err != nil {
		return ScheduleResult{}, err
	}

	if !user.CanReceiveAlarms() {
		s.mu.Lock()
		if s.tickets[userID] != ticket {
			s.mu.Unlock()
			s.log.Debug(fmt.Sprintf("Reschedule of user %s was superseded by a newer request.", userID))
			return ScheduleResult{Permitted: false}, nil
		}
		s.generations[userID]++
		removed := s.cancelLocked(userID)
		s.reportPendingLocked()
		s.mu.Unlock()
		s.log.Info(fmt.Sprintf("User %s cannot receive alarms, cancelled %d pending alarm(s).", userID, removed))
		return ScheduleResult{Permitted: false}, nil
	}

	lectures, err := s.lectureRepo.FindAlarmEnabledByUserID(ctx, userID)
	if err != nil {
		s.log.Error(fmt.Sprintf("Failed to load lectures for user %s", userID), err)
		return ScheduleResult{}, fmt.Errorf("%w: %v", appErrors.ErrDatabaseOperation, err)
	}

	// Plan everything before touching the registered jobs, so a bad row leaves them intact.
	now := s.now()
	var planned []plannedAlarm
	for _, l := range lectures {
		ev, err := l.RecurringEvent()
		if err != nil {
			s.log.Error(fmt.Sprintf("Lecture %s has an invalid schedule", l.ID), err)
			return ScheduleResult{}, fmt.Errorf("%w: lecture %s: %w", appErrors.ErrScheduling, l.ID, err)
		}
		alarms, err := schedule.PlanAlarms(now, ev, l.LeadOffsets(user.LeadOffsets, user.AlarmAtStart))
		if err != nil {
			s.log.Error(fmt.Sprintf("Failed to plan alarms for lecture %s", l.ID), err)
			return ScheduleResult{}, fmt.Errorf("%w: lecture %s: %w", appErrors.ErrScheduling, l.ID, err)
		}
		for _, a := range alarms {
			planned = append(planned, plannedAlarm{lecture: *l, alarm: a})
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.tickets[userID] != ticket {
		s.log.Debug(fmt.Sprintf("Reschedule of user %s was superseded by a newer request.", userID))
		return ScheduleResult{Permitted: true, Alarms: s.pendingLocked(userID)}, nil
	}
	s.generations[userID]++
	gen := s.generations[userID]
	s.cancelLocked(userID)

	result := ScheduleResult{Permitted: true, Alarms: make([]schedule.ScheduledAlarm, 0, len(planned))}
	var firstErr error
	for _, p := range planned {
		if err := s.registerLocked(userID, gen, p.lecture, p.alarm); err != nil {
			if firstErr == nil {
				firstErr = err
			}
			continue
		}
		result.Alarms = append(result.Alarms, p.alarm)
	}
	sortAlarms(result.Alarms)
	s.reportPendingLocked()

	s.log.Info(fmt.Sprintf("Scheduled %d alarm(s) for %d lecture(s) of user %s.", len(result.Alarms), len(lectures), userID))
	if firstErr != nil {
		return result, fmt.Errorf("%w: %v", appErrors.ErrScheduling, firstErr)
	}
	return result, nil
}

// CancelAll cancels every pending alarm of the user.
func (s *alarmService) CancelAll(ctx context.Context, userID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.tickets[userID]++
	s.generations[userID]++
	removed := s.cancelLocked(userID)
	s.reportPendingLocked()
	if removed > 0 {
		s.log.Info(fmt.Sprintf("Cancelled %d alarm(s) of user %s.", removed, userID))
	} else {
		s.log.Debug(fmt.Sprintf("No pending alarms found for user %s to cancel.", userID))
	}
	return nil
}

// PendingAlarms returns the user's registered alarms ordered by fire time.
func (s *alarmService) PendingAlarms(userID string) []schedule.ScheduledAlarm {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.pendingLocked(userID)
}

func (s *alarmService) pendingLocked(userID string) []schedule.ScheduledAlarm {
	alarms := make([]schedule.ScheduledAlarm, 0, len(s.jobStore[userID]))
	for _, job := range s.jobStore[userID] {
		alarms = append(alarms, job.alarm)
	}
	sortAlarms(alarms)
	return alarms
}

// InitializeSchedules reschedules every stored user on startup.
func (s *alarmService) InitializeSchedules(ctx context.Context) error {
	s.log.Info("Initializing schedules from database...")
	users, err := s.userRepo.FindAll(ctx)
	if err != nil {
		s.log.Error("Failed to retrieve users for initialization", err)
		return fmt.Errorf("%w: %v", appErrors.ErrDatabaseOperation, err)
	}

	scheduledCount := 0
	skippedCount := 0
	for _, user := range users {
		result, err := s.RescheduleAll(ctx, user.ID)
		if err != nil {
			s.log.Error(fmt.Sprintf("Failed to schedule alarms for user %s during init", user.ID), err)
			// Continue trying to schedule others
		}
		if !result.Permitted {
			skippedCount++
			continue
		}
		scheduledCount += len(result.Alarms)
	}

	s.log.Info(fmt.Sprintf("Schedule initialization complete. Scheduled: %d alarm(s), Users without permission: %d", scheduledCount, skippedCount))
	return nil
}

// SendTestNotification pushes a test alarm to the user right away.
func (s *alarmService) SendTestNotification(ctx context.Context, userID string) error {
	user, err := s.findUser(ctx, userID)
	if err != nil {
		return err
	}
	if !user.CanReceiveAlarms() {
		return appErrors.ErrPermissionDenied
	}
	if err := s.notifier.Notify(userID, TestNotification()); err != nil {
		s.metrics.DeliveryFailed()
		s.log.Error(fmt.Sprintf("Failed to send test notification to user %s", userID), err)
		return fmt.Errorf("%w: %v", appErrors.ErrLineAPI, err)
	}
	return nil
}

// Stop stops the underlying job scheduler. Jobs already running finish
// delivery but are not re-armed.
func (s *alarmService) Stop() {
	s.mu.Lock()
	s.stopped = true
	s.mu.Unlock()

	// Running jobs take s.mu, so it must not be held while waiting for them.
	s.jobs.Stop()
}

// registerLocked adds a one-shot job for alarm. s.mu must be held.
func (s *alarmService) registerLocked(userID string, gen uint64, lecture entity.Lecture, alarm schedule.ScheduledAlarm) error {
	s.nextKey++
	key := s.nextKey

	spec := scheduler.OneShotSpec(alarm.FiresAt, s.jobs.Location())
	entryID, err := s.jobs.AddJob(spec, func() {
		s.fire(userID, key)
	})
	if err != nil {
		s.log.Error(fmt.Sprintf("Failed to schedule %s alarm for lecture %s", alarm.Kind, lecture.ID), err)
		return err
	}

	if _, ok := s.jobStore[userID]; !ok {
		s.jobStore[userID] = make(map[uint64]*alarmJob)
	}
	s.jobStore[userID][key] = &alarmJob{
		entryID:    entryID,
		generation: gen,
		lecture:    lecture,
		alarm:      alarm,
	}
	s.metrics.AlarmScheduled(string(alarm.Kind))
	s.log.Debug(fmt.Sprintf("Scheduled %s alarm for lecture %s at %v (Job ID: %d)", alarm.Kind, lecture.ID, alarm.FiresAt, entryID))
	return nil
}

// cancelLocked removes every job of the user and returns how many there were. s.mu must be held.
func (s *alarmService) cancelLocked(userID string) int {
	jobs := s.jobStore[userID]
	for _, job := range jobs {
		s.jobs.RemoveJob(job.entryID)
	}
	delete(s.jobStore, userID)
	return len(jobs)
}

func (s *alarmService) reportPendingLocked() {
	total := 0
	for _, jobs := range s.jobStore {
		total += len(jobs)
	}
	s.metrics.PendingAlarms(total)
}

// fire delivers the alarm registered under key and re-arms it for the following week.
func (s *alarmService) fire(userID string, key uint64) {
	s.mu.Lock()
	job, ok := s.jobStore[userID][key]
	if !ok {
		s.mu.Unlock()
		s.log.Debug(fmt.Sprintf("Alarm job %d of user %s was cancelled before it ran.", key, userID))
		return
	}
	// It's a one-off
	delete(s.jobStore[userID], key)
	if len(s.jobStore[userID]) == 0 {
		delete(s.jobStore, userID)
	}
	s.jobs.RemoveJob(job.entryID)
	s.reportPendingLocked()
	s.mu.Unlock()

	s.log.Info(fmt.Sprintf("Executing %s alarm for lecture %s of user %s", job.alarm.Kind, job.lecture.ID, userID))
	if err := s.notifier.Notify(userID, AlarmNotification(&job.lecture, job.alarm)); err != nil {
		s.metrics.DeliveryFailed()
		s.log.Error(fmt.Sprintf("Failed to deliver alarm for lecture %s to user %s", job.lecture.ID, userID), err)
	} else {
		s.metrics.AlarmFired(string(job.alarm.Kind))
	}

	s.rearm(userID, job)
}

func (s *alarmService) rearm(userID string, job *alarmJob) {
	from := s.now()
	if job.alarm.FiresAt.After(from) {
		from = job.alarm.FiresAt
	}
	ev, err := job.lecture.RecurringEvent()
	if err != nil {
		s.log.Error(fmt.Sprintf("Cannot re-arm alarm for lecture %s", job.lecture.ID), err)
		return
	}
	next, err := schedule.NextFireTime(from, ev.Day, ev.Start, job.alarm.LeadMinutes)
	if err != nil {
		s.log.Error(fmt.Sprintf("Cannot re-arm alarm for lecture %s", job.lecture.ID), err)
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.stopped {
		return
	}
	if s.generations[userID] != job.generation {
		s.log.Debug(fmt.Sprintf("Alarms of user %s were rescheduled, not re-arming lecture %s.", userID, job.lecture.ID))
		return
	}
	alarm := job.alarm
	alarm.FiresAt = next
	if err := s.registerLocked(userID, job.generation, job.lecture, alarm); err == nil {
		s.reportPendingLocked()
	}
}

func sortAlarms(alarms []schedule.ScheduledAlarm) {
	sort.SliceStable(alarms, func(i, j int) bool {
		if alarms[i].FiresAt.Equal(alarms[j].FiresAt) {
			return alarms[i].EventID < alarms[j].EventID
		}
		return alarms[i].FiresAt.Before(alarms[j].FiresAt)
	})
}
