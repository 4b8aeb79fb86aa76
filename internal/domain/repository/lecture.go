package repository

import (
	"context"
	"lecturealarm/internal/domain/entity"
)

// LectureRepository defines the interface for lecture data operations.
type LectureRepository interface {
	// FindByID retrieves a lecture by its ID.
	FindByID(ctx context.Context, id string) (*entity.Lecture, error)
	// FindByUserID retrieves all lectures of a user ordered by day and start time.
	FindByUserID(ctx context.Context, userID string) ([]*entity.Lecture, error)
	// FindAlarmEnabledByUserID retrieves the user's lectures that have alarms switched on.
	FindAlarmEnabledByUserID(ctx context.Context, userID string) ([]*entity.Lecture, error)
	// Create stores a new lecture.
	Create(ctx context.Context, lecture *entity.Lecture) error
	// Update updates an existing lecture.
	Update(ctx context.Context, lecture *entity.Lecture) error
	// Replace deletes the lectures with deleteIDs and stores lectures in one
	// transaction. Lectures with a zero CreatedAt are inserted, others updated.
	Replace(ctx context.Context, deleteIDs []string, lectures ...*entity.Lecture) error
	// Delete deletes a lecture by its ID.
	Delete(ctx context.Context, id string) error
	// DeleteByUserID deletes all lectures of a user.
	DeleteByUserID(ctx context.Context, userID string) error
}
