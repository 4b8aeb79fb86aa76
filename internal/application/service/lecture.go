package service

import (
	"context"
	"fmt"
	"lecturealarm/internal/application/dto"
	"lecturealarm/internal/domain/schedule"
	appErrors "lecturealarm/internal/pkg/errors"
	"time"
)

// LectureService defines the interface for timetable operations.
type LectureService interface {
	// List returns the user's lectures ordered by day and start time.
	List(ctx context.Context, userID string) ([]dto.LectureResponse, error)
	// Get returns one lecture of the user.
	Get(ctx context.Context, userID, lectureID string) (dto.LectureResponse, error)
	// Create adds a lecture. A conflict fails with *ConflictError unless replace
	// is set, in which case every overlapping lecture is deleted first.
	Create(ctx context.Context, userID string, req dto.LectureRequest, replace bool) (dto.SaveLectureResponse, error)
	// Update edits a lecture with the same conflict rules as Create.
	Update(ctx context.Context, userID, lectureID string, req dto.LectureRequest, replace bool) (dto.SaveLectureResponse, error)
	// Delete removes a lecture and its alarms.
	Delete(ctx context.Context, userID, lectureID string) error
	// AddBatch adds several lectures, resolving conflicts with req.Policy.
	AddBatch(ctx context.Context, userID string, req dto.BatchRequest) (dto.BatchResponse, error)
	// CheckConflict reports the lecture req would collide with, or nil.
	// excludeID names a lecture being edited.
	CheckConflict(ctx context.Context, userID, excludeID string, req dto.LectureRequest) (*dto.LectureResponse, error)
	// Agenda lists concrete occurrences in the days starting at from's local midnight.
	Agenda(ctx context.Context, userID string, from time.Time, days int) ([]dto.Occurrence, error)
	// Next returns the next occurrence starting after now, or nil when the timetable is empty.
	Next(ctx context.Context, userID string) (*dto.Occurrence, error)
}

// Window bounds the lecture times the service accepts.
type Window struct {
	Start   schedule.TimeOfDay
	End     schedule.TimeOfDay
	Enabled bool
}

// Contains reports whether [start, end) lies inside the window.
func (w Window) Contains(start, end schedule.TimeOfDay) bool {
	return !w.Enabled || (start >= w.Start && end <= w.End)
}

// ConflictError is returned when a lecture overlaps an existing one.
type ConflictError struct {
	With dto.LectureResponse
}

func (e *ConflictError) Error() string {
	return fmt.Sprintf("%v: %q on day %d %s-%s", appErrors.ErrLectureConflict, e.With.Name, e.With.Day, e.With.StartTime, e.With.EndTime)
}

func (e *ConflictError) Unwrap() error {
	return appErrors.ErrLectureConflict
}
