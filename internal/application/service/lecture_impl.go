package service

import (
	"context"
	"errors"
	"fmt"
	"lecturealarm/internal/application/dto"
	"lecturealarm/internal/domain/constant"
	"lecturealarm/internal/domain/entity"
	"lecturealarm/internal/domain/repository"
	"lecturealarm/internal/domain/schedule"
	"lecturealarm/internal/infrastructure/metrics"
	appErrors "lecturealarm/internal/pkg/errors"
	"lecturealarm/internal/pkg/logger"
	"regexp"
	"sort"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/benbjohnson/clock"
	"github.com/google/uuid"
	"github.com/teambition/rrule-go"
	"gorm.io/gorm"
)

const (
	maxNameLength  = 100
	maxBatchSize   = 100
	maxAgendaDays  = 31
	minutesPerWeek = 7 * 24 * 60
)

var colorPattern = regexp.MustCompile(`^#[0-9a-fA-F]{6}$`)

type lectureService struct {
	lectureRepo repository.LectureRepository
	userSvc     UserService
	alarmSvc    AlarmService
	window      Window
	loc         *time.Location
	clock       clock.Clock
	metrics     metrics.Sink
	log         logger.Logger
}

// NewLectureService creates a new instance of LectureService implementation.
func NewLectureService(
	lectureRepo repository.LectureRepository,
	userSvc UserService,
	alarmSvc AlarmService,
	window Window,
	loc *time.Location,
	clk clock.Clock,
	sink metrics.Sink,
	log logger.Logger,
) LectureService {
	if sink == nil {
		sink = metrics.NoopSink{}
	}
	return &lectureService{
		lectureRepo: lectureRepo,
		userSvc:     userSvc,
		alarmSvc:    alarmSvc,
		window:      window,
		loc:         loc,
		clock:       clk,
		metrics:     sink,
		log:         log,
	}
}

// List returns the user's lectures ordered by day and start time.
func (s *lectureService) List(ctx context.Context, userID string) ([]dto.LectureResponse, error) {
	lectures, err := s.lectureRepo.FindByUserID(ctx, userID)
	if err != nil {
		s.log.Error(fmt.Sprintf("Failed to list lectures for user %s", userID), err)
		return nil, fmt.Errorf("%w: %v", appErrors.ErrDatabaseOperation, err)
	}
	return dto.ToLectureResponseList(lectures), nil
}

// Get returns one lecture of the user.
func (s *lectureService) Get(ctx context.Context, userID, lectureID string) (dto.LectureResponse, error) {
	lecture, err := s.findOwned(ctx, userID, lectureID)
	if err != nil {
		return dto.LectureResponse{}, err
	}
	return dto.ToLectureResponse(lecture), nil
}

// Create adds a lecture to the user's timetable and reschedules their alarms.
func (s *lectureService) Create(ctx context.Context, userID string, req dto.LectureRequest, replace bool) (dto.SaveLectureResponse, error) {
	if _, err := s.userSvc.GetOrCreateUser(ctx, userID); err != nil {
		return dto.SaveLectureResponse{}, err
	}

	lecture, iv, err := s.buildLecture(userID, uuid.NewString(), req)
	if err != nil {
		return dto.SaveLectureResponse{}, err
	}

	replaced, deleteIDs, err := s.resolveConflicts(ctx, userID, iv, replace)
	if err != nil {
		return dto.SaveLectureResponse{}, err
	}

	if len(deleteIDs) > 0 {
		err = s.lectureRepo.Replace(ctx, deleteIDs, lecture)
	} else {
		err = s.lectureRepo.Create(ctx, lecture)
	}
	if err != nil {
		s.log.Error("Failed to create lecture in repository", err)
		return dto.SaveLectureResponse{}, fmt.Errorf("%w: %v", appErrors.ErrDatabaseOperation, err)
	}
	s.log.Info(fmt.Sprintf("Created lecture %s (%s) for user %s", lecture.ID, lecture.Name, userID))

	return dto.SaveLectureResponse{
		Lecture:         dto.ToLectureResponse(lecture),
		Replaced:        replaced,
		AlarmsPermitted: s.reschedule(ctx, userID),
	}, nil
}

// Update edits a lecture. The lecture itself never counts as a conflict.
func (s *lectureService) Update(ctx context.Context, userID, lectureID string, req dto.LectureRequest, replace bool) (dto.SaveLectureResponse, error) {
	current, err := s.findOwned(ctx, userID, lectureID)
	if err != nil {
		return dto.SaveLectureResponse{}, err
	}

	lecture, iv, err := s.buildLecture(userID, lectureID, req)
	if err != nil {
		return dto.SaveLectureResponse{}, err
	}
	lecture.CreatedAt = current.CreatedAt

	replaced, deleteIDs, err := s.resolveConflicts(ctx, userID, iv, replace)
	if err != nil {
		return dto.SaveLectureResponse{}, err
	}

	if len(deleteIDs) > 0 {
		err = s.lectureRepo.Replace(ctx, deleteIDs, lecture)
	} else {
		err = s.lectureRepo.Update(ctx, lecture)
	}
	if err != nil {
		s.log.Error(fmt.Sprintf("Failed to update lecture %s", lectureID), err)
		return dto.SaveLectureResponse{}, fmt.Errorf("%w: %v", appErrors.ErrDatabaseOperation, err)
	}
	s.log.Info(fmt.Sprintf("Updated lecture %s for user %s", lectureID, userID))

	return dto.SaveLectureResponse{
		Lecture:         dto.ToLectureResponse(lecture),
		Replaced:        replaced,
		AlarmsPermitted: s.reschedule(ctx, userID),
	}, nil
}

// Delete removes a lecture and its alarms.
func (s *lectureService) Delete(ctx context.Context, userID, lectureID string) error {
	if _, err := s.findOwned(ctx, userID, lectureID); err != nil {
		return err
	}
	if err := s.lectureRepo.Delete(ctx, lectureID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return appErrors.ErrLectureNotFound
		}
		s.log.Error(fmt.Sprintf("Failed to delete lecture %s", lectureID), err)
		return fmt.Errorf("%w: %v", appErrors.ErrDatabaseOperation, err)
	}
	s.log.Info(fmt.Sprintf("Deleted lecture %s of user %s", lectureID, userID))
	s.reschedule(ctx, userID)
	return nil
}

// AddBatch validates every candidate first, then checks each one against the
// timetable as it was before the batch. Candidates are not compared with each other.
func (s *lectureService) AddBatch(ctx context.Context, userID string, req dto.BatchRequest) (dto.BatchResponse, error) {
	policy := req.Policy
	if policy == "" {
		policy = dto.BatchPolicySkip
	}
	if policy != dto.BatchPolicySkip && policy != dto.BatchPolicyReplace {
		return dto.BatchResponse{}, fmt.Errorf("%w: unknown batch policy %q", appErrors.ErrInvalidRequest, req.Policy)
	}
	if len(req.Lectures) == 0 || len(req.Lectures) > maxBatchSize {
		return dto.BatchResponse{}, fmt.Errorf("%w: batch must hold 1-%d lectures", appErrors.ErrInvalidRequest, maxBatchSize)
	}
	if _, err := s.userSvc.GetOrCreateUser(ctx, userID); err != nil {
		return dto.BatchResponse{}, err
	}

	lectures := make([]*entity.Lecture, len(req.Lectures))
	candidates := make([]schedule.Interval, len(req.Lectures))
	indexByID := make(map[string]int, len(req.Lectures))
	for i, r := range req.Lectures {
		lecture, iv, err := s.buildLecture(userID, uuid.NewString(), r)
		if err != nil {
			return dto.BatchResponse{}, fmt.Errorf("lecture %d: %w", i, err)
		}
		lectures[i] = lecture
		candidates[i] = iv
		indexByID[lecture.ID] = i
	}

	existing, byID, err := s.existingIntervals(ctx, userID)
	if err != nil {
		return dto.BatchResponse{}, err
	}

	partition := schedule.PartitionByConflict(candidates, existing)
	resp := dto.BatchResponse{Added: make([]dto.LectureResponse, 0, len(partition.Clean))}

	toAdd := make([]int, 0, len(candidates))
	for _, iv := range partition.Clean {
		toAdd = append(toAdd, indexByID[iv.ID])
	}

	deleted := make(map[string]bool)
	var deleteIDs []string
	for _, c := range partition.Conflicting {
		s.metrics.ConflictDetected()
		idx := indexByID[c.Candidate.ID]
		if policy == dto.BatchPolicySkip {
			resp.Skipped = append(resp.Skipped, dto.SkippedLecture{
				Lecture:       req.Lectures[idx],
				ConflictsWith: dto.ToLectureResponse(byID[c.With.ID]),
			})
			continue
		}
		for _, hit := range schedule.FindAllConflicts(c.Candidate, existing) {
			if deleted[hit.ID] {
				continue
			}
			deleted[hit.ID] = true
			deleteIDs = append(deleteIDs, hit.ID)
			resp.Replaced = append(resp.Replaced, dto.ToLectureResponse(byID[hit.ID]))
		}
		toAdd = append(toAdd, idx)
	}

	sort.Ints(toAdd)
	added := make([]*entity.Lecture, 0, len(toAdd))
	for _, idx := range toAdd {
		added = append(added, lectures[idx])
	}
	// The whole batch lands or none of it does.
	if err := s.lectureRepo.Replace(ctx, deleteIDs, added...); err != nil {
		s.log.Error(fmt.Sprintf("Failed to store lecture batch for user %s", userID), err)
		return dto.BatchResponse{}, fmt.Errorf("%w: %v", appErrors.ErrDatabaseOperation, err)
	}
	for _, l := range added {
		resp.Added = append(resp.Added, dto.ToLectureResponse(l))
	}

	s.log.Info(fmt.Sprintf("Batch for user %s: added %d, skipped %d, replaced %d", userID, len(resp.Added), len(resp.Skipped), len(resp.Replaced)))
	resp.AlarmsPermitted = s.reschedule(ctx, userID)
	return resp, nil
}

// CheckConflict reports the first lecture req would collide with, or nil.
func (s *lectureService) CheckConflict(ctx context.Context, userID, excludeID string, req dto.LectureRequest) (*dto.LectureResponse, error) {
	_, iv, err := s.buildLecture(userID, excludeID, req)
	if err != nil {
		return nil, err
	}
	existing, byID, err := s.existingIntervals(ctx, userID)
	if err != nil {
		return nil, err
	}
	with, ok := schedule.FindConflict(iv, existing)
	if !ok {
		return nil, nil
	}
	resp := dto.ToLectureResponse(byID[with.ID])
	return &resp, nil
}

// Agenda expands each lecture's weekly rule into the requested days.
func (s *lectureService) Agenda(ctx context.Context, userID string, from time.Time, days int) ([]dto.Occurrence, error) {
	if days < 1 || days > maxAgendaDays {
		return nil, fmt.Errorf("%w: days must be 1-%d", appErrors.ErrInvalidRequest, maxAgendaDays)
	}
	from = from.In(s.loc)
	rangeStart := time.Date(from.Year(), from.Month(), from.Day(), 0, 0, 0, 0, s.loc)
	rangeEnd := rangeStart.AddDate(0, 0, days)
	return s.occurrences(ctx, userID, rangeStart, rangeEnd)
}

// Next returns the next occurrence starting after now within a week.
func (s *lectureService) Next(ctx context.Context, userID string) (*dto.Occurrence, error) {
	now := s.clock.Now().In(s.loc)
	occs, err := s.occurrences(ctx, userID, now, now.AddDate(0, 0, 8))
	if err != nil {
		return nil, err
	}
	for i := range occs {
		if occs[i].Start.After(now) {
			return &occs[i], nil
		}
	}
	return nil, nil
}

// occurrences returns every occurrence starting in [rangeStart, rangeEnd) ordered by start.
func (s *lectureService) occurrences(ctx context.Context, userID string, rangeStart, rangeEnd time.Time) ([]dto.Occurrence, error) {
	lectures, err := s.lectureRepo.FindByUserID(ctx, userID)
	if err != nil {
		s.log.Error(fmt.Sprintf("Failed to list lectures for user %s", userID), err)
		return nil, fmt.Errorf("%w: %v", appErrors.ErrDatabaseOperation, err)
	}

	out := make([]dto.Occurrence, 0)
	for _, l := range lectures {
		ev, err := l.RecurringEvent()
		if err != nil {
			s.log.Error(fmt.Sprintf("Lecture %s has an invalid schedule", l.ID), err)
			return nil, fmt.Errorf("%w: lecture %s: %v", appErrors.ErrInternalServer, l.ID, err)
		}

		// Anchor the rule on the range's first day at the lecture's start time.
		dtstart := time.Date(rangeStart.Year(), rangeStart.Month(), rangeStart.Day(), ev.Start.Hour(), ev.Start.Minute(), 0, 0, s.loc)
		r, err := rrule.NewRRule(rrule.ROption{
			Freq:      rrule.WEEKLY,
			Dtstart:   dtstart,
			Byweekday: []rrule.Weekday{rruleWeekday(ev.Day)},
		})
		if err != nil {
			s.log.Error(fmt.Sprintf("Failed to build recurrence for lecture %s", l.ID), err)
			return nil, fmt.Errorf("%w: %v", appErrors.ErrInternalServer, err)
		}

		duration := time.Duration(ev.End-ev.Start) * time.Minute
		for _, start := range r.Between(rangeStart, rangeEnd, true) {
			if start.Before(rangeStart) || !start.Before(rangeEnd) {
				continue
			}
			out = append(out, dto.Occurrence{
				LectureID: l.ID,
				Name:      l.Name,
				Type:      string(l.Type),
				Color:     l.Color,
				Start:     start,
				End:       start.Add(duration),
			})
		}
	}

	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Start.Equal(out[j].Start) {
			return out[i].Name < out[j].Name
		}
		return out[i].Start.Before(out[j].Start)
	})
	return out, nil
}

func rruleWeekday(d time.Weekday) rrule.Weekday {
	switch d {
	case time.Monday:
		return rrule.MO
	case time.Tuesday:
		return rrule.TU
	case time.Wednesday:
		return rrule.WE
	case time.Thursday:
		return rrule.TH
	case time.Friday:
		return rrule.FR
	case time.Saturday:
		return rrule.SA
	default:
		return rrule.SU
	}
}

// buildLecture validates req and returns the lecture it describes with its slot.
func (s *lectureService) buildLecture(userID, id string, req dto.LectureRequest) (*entity.Lecture, schedule.Interval, error) {
	name := strings.TrimSpace(req.Name)
	if name == "" {
		return nil, schedule.Interval{}, fmt.Errorf("%w: name is required", appErrors.ErrInvalidLecture)
	}
	if utf8.RuneCountInString(name) > maxNameLength {
		return nil, schedule.Interval{}, fmt.Errorf("%w: name longer than %d characters", appErrors.ErrInvalidLecture, maxNameLength)
	}

	lectureType := constant.LectureTypeLecture
	if req.Type != "" {
		lectureType = constant.LectureType(req.Type)
		if !lectureType.Valid() {
			return nil, schedule.Interval{}, fmt.Errorf("%w: unknown type %q", appErrors.ErrInvalidLecture, req.Type)
		}
	}

	day, err := schedule.ValidateWeekday(req.Day)
	if err != nil {
		return nil, schedule.Interval{}, fmt.Errorf("%w: %w", appErrors.ErrInvalidLecture, err)
	}
	start, err := schedule.ParseTimeOfDay(req.StartTime)
	if err != nil {
		return nil, schedule.Interval{}, fmt.Errorf("%w: start time: %w", appErrors.ErrInvalidLecture, err)
	}
	end, err := schedule.ParseTimeOfDay(req.EndTime)
	if err != nil {
		return nil, schedule.Interval{}, fmt.Errorf("%w: end time: %w", appErrors.ErrInvalidLecture, err)
	}
	ev := schedule.RecurringEvent{ID: id, Day: day, Start: start, End: end}
	if err := ev.Validate(); err != nil {
		return nil, schedule.Interval{}, fmt.Errorf("%w: %w", appErrors.ErrInvalidLecture, err)
	}
	if !s.window.Contains(start, end) {
		return nil, schedule.Interval{}, fmt.Errorf("%w: %s-%s is outside operating hours %s-%s",
			appErrors.ErrInvalidLecture, start, end, s.window.Start, s.window.End)
	}

	color := req.Color
	if color == "" {
		color = lectureType.DefaultColor()
	} else if !colorPattern.MatchString(color) {
		return nil, schedule.Interval{}, fmt.Errorf("%w: color %q is not #RRGGBB", appErrors.ErrInvalidLecture, color)
	}

	if req.AlarmMinutesBefore != nil && (*req.AlarmMinutesBefore < 0 || *req.AlarmMinutesBefore >= minutesPerWeek) {
		return nil, schedule.Interval{}, fmt.Errorf("%w: alarm minutes %d out of range", appErrors.ErrInvalidLecture, *req.AlarmMinutesBefore)
	}
	alarmEnabled := true
	if req.AlarmEnabled != nil {
		alarmEnabled = *req.AlarmEnabled
	}

	lecture := &entity.Lecture{
		ID:                 id,
		UserID:             userID,
		Name:               name,
		Type:               lectureType,
		Day:                int(day),
		StartTime:          start.String(),
		EndTime:            end.String(),
		Color:              color,
		AlarmEnabled:       alarmEnabled,
		AlarmMinutesBefore: req.AlarmMinutesBefore,
		AlarmAtStart:       req.AlarmAtStart,
	}
	return lecture, schedule.Interval{ID: id, Day: day, Start: start, End: end}, nil
}

// resolveConflicts fails with *ConflictError on overlap. With replace set it
// returns every overlapping lecture instead, for the caller to delete in the
// same transaction that saves the candidate.
func (s *lectureService) resolveConflicts(ctx context.Context, userID string, candidate schedule.Interval, replace bool) ([]dto.LectureResponse, []string, error) {
	existing, byID, err := s.existingIntervals(ctx, userID)
	if err != nil {
		return nil, nil, err
	}
	first, ok := schedule.FindConflict(candidate, existing)
	if !ok {
		return nil, nil, nil
	}
	s.metrics.ConflictDetected()
	if !replace {
		return nil, nil, &ConflictError{With: dto.ToLectureResponse(byID[first.ID])}
	}

	var replaced []dto.LectureResponse
	var ids []string
	for _, hit := range schedule.FindAllConflicts(candidate, existing) {
		s.log.Info(fmt.Sprintf("Replacing conflicting lecture %s of user %s", hit.ID, userID))
		replaced = append(replaced, dto.ToLectureResponse(byID[hit.ID]))
		ids = append(ids, hit.ID)
	}
	return replaced, ids, nil
}

// existingIntervals loads the user's timetable as conflict-check slots.
func (s *lectureService) existingIntervals(ctx context.Context, userID string) ([]schedule.Interval, map[string]*entity.Lecture, error) {
	lectures, err := s.lectureRepo.FindByUserID(ctx, userID)
	if err != nil {
		s.log.Error(fmt.Sprintf("Failed to list lectures for user %s", userID), err)
		return nil, nil, fmt.Errorf("%w: %v", appErrors.ErrDatabaseOperation, err)
	}
	intervals := make([]schedule.Interval, 0, len(lectures))
	byID := make(map[string]*entity.Lecture, len(lectures))
	for _, l := range lectures {
		iv, err := l.Interval()
		if err != nil {
			s.log.Error(fmt.Sprintf("Lecture %s has an invalid schedule", l.ID), err)
			return nil, nil, fmt.Errorf("%w: lecture %s: %v", appErrors.ErrInternalServer, l.ID, err)
		}
		intervals = append(intervals, iv)
		byID[l.ID] = l
	}
	return intervals, byID, nil
}

func (s *lectureService) findOwned(ctx context.Context, userID, lectureID string) (*entity.Lecture, error) {
	lecture, err := s.lectureRepo.FindByID(ctx, lectureID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, appErrors.ErrLectureNotFound
		}
		s.log.Error(fmt.Sprintf("Failed to find lecture %s", lectureID), err)
		return nil, fmt.Errorf("%w: %v", appErrors.ErrDatabaseOperation, err)
	}
	if lecture.UserID != userID {
		return nil, appErrors.ErrLectureNotFound
	}
	return lecture, nil
}

// reschedule refreshes the user's alarms after a timetable change. Failures
// are logged, the change itself is already saved.
func (s *lectureService) reschedule(ctx context.Context, userID string) bool {
	result, err := s.alarmSvc.RescheduleAll(ctx, userID)
	if err != nil {
		s.log.Warn(fmt.Sprintf("Failed to reschedule alarms for user %s: %v", userID, err))
	}
	return result.Permitted
}
