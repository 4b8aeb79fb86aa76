package service

import (
	"context"
	"fmt"
	"lecturealarm/internal/domain/entity"
	"lecturealarm/internal/domain/schedule"
	"lecturealarm/internal/infrastructure/line"
	"sort"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"gorm.io/gorm"
)

// fakeUserRepo is an in-memory UserRepository.
type fakeUserRepo struct {
	mu    sync.Mutex
	users map[string]*entity.User
}

func newFakeUserRepo(users ...*entity.User) *fakeUserRepo {
	r := &fakeUserRepo{users: make(map[string]*entity.User)}
	for _, u := range users {
		r.users[u.ID] = u
	}
	return r
}

func (r *fakeUserRepo) FindByUserID(ctx context.Context, userID string) (*entity.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.users[userID]
	if !ok {
		return nil, fmt.Errorf("user with ID %s not found: %w", userID, gorm.ErrRecordNotFound)
	}
	c := *u
	return &c, nil
}

func (r *fakeUserRepo) FindAll(ctx context.Context) ([]*entity.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]*entity.User, 0, len(r.users))
	for _, u := range r.users {
		c := *u
		out = append(out, &c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (r *fakeUserRepo) Create(ctx context.Context, user *entity.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	c := *user
	r.users[user.ID] = &c
	return nil
}

func (r *fakeUserRepo) Update(ctx context.Context, user *entity.User) error {
	return r.Create(ctx, user)
}

func (r *fakeUserRepo) Delete(ctx context.Context, userID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.users, userID)
	return nil
}

// fakeLectureRepo is an in-memory LectureRepository.
type fakeLectureRepo struct {
	mu       sync.Mutex
	lectures map[string]*entity.Lecture
	// afterFindEnabled, when set, runs after FindAlarmEnabledByUserID has read its result.
	afterFindEnabled func()
	// saveErr, when set, fails Create and Replace without changing anything.
	saveErr error
}

func newFakeLectureRepo(lectures ...*entity.Lecture) *fakeLectureRepo {
	r := &fakeLectureRepo{lectures: make(map[string]*entity.Lecture)}
	for _, l := range lectures {
		r.lectures[l.ID] = l
	}
	return r
}

func (r *fakeLectureRepo) FindByID(ctx context.Context, id string) (*entity.Lecture, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	l, ok := r.lectures[id]
	if !ok {
		return nil, fmt.Errorf("lecture with ID %s not found: %w", id, gorm.ErrRecordNotFound)
	}
	c := *l
	return &c, nil
}

func (r *fakeLectureRepo) find(match func(*entity.Lecture) bool) []*entity.Lecture {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*entity.Lecture
	for _, l := range r.lectures {
		if match(l) {
			c := *l
			out = append(out, &c)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Day != out[j].Day {
			return out[i].Day < out[j].Day
		}
		return out[i].StartTime < out[j].StartTime
	})
	return out
}

func (r *fakeLectureRepo) FindByUserID(ctx context.Context, userID string) ([]*entity.Lecture, error) {
	return r.find(func(l *entity.Lecture) bool { return l.UserID == userID }), nil
}

func (r *fakeLectureRepo) FindAlarmEnabledByUserID(ctx context.Context, userID string) ([]*entity.Lecture, error) {
	out := r.find(func(l *entity.Lecture) bool { return l.UserID == userID && l.AlarmEnabled })
	if r.afterFindEnabled != nil {
		r.afterFindEnabled()
	}
	return out, nil
}

func (r *fakeLectureRepo) Create(ctx context.Context, lecture *entity.Lecture) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.saveErr != nil {
		return r.saveErr
	}
	c := *lecture
	r.lectures[lecture.ID] = &c
	return nil
}

func (r *fakeLectureRepo) Update(ctx context.Context, lecture *entity.Lecture) error {
	return r.Create(ctx, lecture)
}

func (r *fakeLectureRepo) Replace(ctx context.Context, deleteIDs []string, lectures ...*entity.Lecture) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.saveErr != nil {
		return r.saveErr
	}
	for _, id := range deleteIDs {
		if _, ok := r.lectures[id]; !ok {
			return fmt.Errorf("lecture with ID %s not found: %w", id, gorm.ErrRecordNotFound)
		}
	}
	for _, id := range deleteIDs {
		delete(r.lectures, id)
	}
	for _, l := range lectures {
		c := *l
		r.lectures[l.ID] = &c
	}
	return nil
}

func (r *fakeLectureRepo) Delete(ctx context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.lectures[id]; !ok {
		return fmt.Errorf("lecture with ID %s not found: %w", id, gorm.ErrRecordNotFound)
	}
	delete(r.lectures, id)
	return nil
}

func (r *fakeLectureRepo) DeleteByUserID(ctx context.Context, userID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for id, l := range r.lectures {
		if l.UserID == userID {
			delete(r.lectures, id)
		}
	}
	return nil
}

func (r *fakeLectureRepo) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.lectures)
}

// fakeJobs records jobs instead of running them.
type fakeJobs struct {
	mu      sync.Mutex
	next    cron.EntryID
	jobs    map[cron.EntryID]fakeJob
	stopped bool
}

type fakeJob struct {
	spec string
	cmd  func()
}

func newFakeJobs() *fakeJobs {
	return &fakeJobs{jobs: make(map[cron.EntryID]fakeJob)}
}

func (j *fakeJobs) AddJob(spec string, cmd func()) (cron.EntryID, error) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.next++
	j.jobs[j.next] = fakeJob{spec: spec, cmd: cmd}
	return j.next, nil
}

func (j *fakeJobs) RemoveJob(id cron.EntryID) {
	j.mu.Lock()
	defer j.mu.Unlock()
	delete(j.jobs, id)
}

func (j *fakeJobs) Location() *time.Location { return time.UTC }

func (j *fakeJobs) Stop() {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.stopped = true
}

func (j *fakeJobs) isStopped() bool {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.stopped
}

func (j *fakeJobs) count() int {
	j.mu.Lock()
	defer j.mu.Unlock()
	return len(j.jobs)
}

// specs returns the registered specs in sorted order.
func (j *fakeJobs) specs() []string {
	j.mu.Lock()
	defer j.mu.Unlock()
	out := make([]string, 0, len(j.jobs))
	for _, job := range j.jobs {
		out = append(out, job.spec)
	}
	sort.Strings(out)
	return out
}

// job returns the command registered with spec.
func (j *fakeJobs) job(spec string) func() {
	j.mu.Lock()
	defer j.mu.Unlock()
	for _, job := range j.jobs {
		if job.spec == spec {
			return job.cmd
		}
	}
	return nil
}

// fakeNotifier records notifications.
type fakeNotifier struct {
	mu   sync.Mutex
	sent []sentNotification
	err  error
}

type sentNotification struct {
	userID string
	n      line.Notification
}

func (n *fakeNotifier) Notify(userID string, msg line.Notification) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.err != nil {
		return n.err
	}
	n.sent = append(n.sent, sentNotification{userID: userID, n: msg})
	return nil
}

func (n *fakeNotifier) messages() []sentNotification {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]sentNotification(nil), n.sent...)
}

// recordingSink counts metric observations.
type recordingSink struct {
	mu        sync.Mutex
	scheduled int
	fired     int
	failed    int
	pending   int
	conflicts int
}

func (s *recordingSink) AlarmScheduled(string) { s.mu.Lock(); s.scheduled++; s.mu.Unlock() }
func (s *recordingSink) AlarmFired(string)     { s.mu.Lock(); s.fired++; s.mu.Unlock() }
func (s *recordingSink) DeliveryFailed()       { s.mu.Lock(); s.failed++; s.mu.Unlock() }
func (s *recordingSink) PendingAlarms(n int)   { s.mu.Lock(); s.pending = n; s.mu.Unlock() }
func (s *recordingSink) ConflictDetected()     { s.mu.Lock(); s.conflicts++; s.mu.Unlock() }

// fakeAlarmService records reschedule requests.
type fakeAlarmService struct {
	mu          sync.Mutex
	reschedules []string
	cancels     []string
	permitted   bool
}

func (f *fakeAlarmService) RescheduleAll(ctx context.Context, userID string) (ScheduleResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.reschedules = append(f.reschedules, userID)
	return ScheduleResult{Permitted: f.permitted}, nil
}

func (f *fakeAlarmService) CancelAll(ctx context.Context, userID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.cancels = append(f.cancels, userID)
	return nil
}

func (f *fakeAlarmService) PendingAlarms(userID string) []schedule.ScheduledAlarm { return nil }
func (f *fakeAlarmService) InitializeSchedules(ctx context.Context) error        { return nil }
func (f *fakeAlarmService) SendTestNotification(ctx context.Context, userID string) error {
	return nil
}
func (f *fakeAlarmService) Stop() {}

func (f *fakeAlarmService) rescheduleCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.reschedules)
}
