package sqlite

import (
	"context"
	"errors"
	"fmt"
	"lecturealarm/internal/domain/entity"
	"lecturealarm/internal/domain/repository"

	"gorm.io/gorm"
)

type lectureRepository struct {
	db *gorm.DB
}

// NewLectureRepository creates a new instance of LectureRepository.
func NewLectureRepository(db *gorm.DB) repository.LectureRepository {
	return &lectureRepository{db: db}
}

// FindByID retrieves a lecture by its ID.
func (r *lectureRepository) FindByID(ctx context.Context, id string) (*entity.Lecture, error) {
	var lecture entity.Lecture
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&lecture).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("lecture with ID %s not found: %w", id, err)
		}
		return nil, fmt.Errorf("failed to find lecture by id %s: %w", id, err)
	}
	return &lecture, nil
}

// FindByUserID retrieves all lectures of a user ordered by day and start time.
func (r *lectureRepository) FindByUserID(ctx context.Context, userID string) ([]*entity.Lecture, error) {
	var lectures []*entity.Lecture
	if err := r.db.WithContext(ctx).Where("user_id = ?", userID).Order("day asc, start_time asc").Find(&lectures).Error; err != nil {
		return nil, fmt.Errorf("failed to find lectures by user_id %s: %w", userID, err)
	}
	return lectures, nil
}

// FindAlarmEnabledByUserID retrieves the user's lectures that have alarms switched on.
func (r *lectureRepository) FindAlarmEnabledByUserID(ctx context.Context, userID string) ([]*entity.Lecture, error) {
	var lectures []*entity.Lecture
	if err := r.db.WithContext(ctx).Where("user_id = ? AND alarm_enabled = ?", userID, true).Order("day asc, start_time asc").Find(&lectures).Error; err != nil {
		return nil, fmt.Errorf("failed to find alarm-enabled lectures by user_id %s: %w", userID, err)
	}
	return lectures, nil
}

// Create stores a new lecture.
func (r *lectureRepository) Create(ctx context.Context, lecture *entity.Lecture) error {
	if err := r.db.WithContext(ctx).Create(lecture).Error; err != nil {
		return fmt.Errorf("failed to create lecture for user %s: %w", lecture.UserID, err)
	}
	return nil
}

// Update updates an existing lecture.
func (r *lectureRepository) Update(ctx context.Context, lecture *entity.Lecture) error {
	if err := r.db.WithContext(ctx).Save(lecture).Error; err != nil {
		return fmt.Errorf("failed to update lecture %s: %w", lecture.ID, err)
	}
	return nil
}

// Replace deletes the lectures with deleteIDs and stores lectures in one transaction.
// Nothing changes if any step fails.
func (r *lectureRepository) Replace(ctx context.Context, deleteIDs []string, lectures ...*entity.Lecture) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for _, id := range deleteIDs {
			res := tx.Where("id = ?", id).Delete(&entity.Lecture{})
			if res.Error != nil {
				return fmt.Errorf("failed to delete lecture %s: %w", id, res.Error)
			}
			if res.RowsAffected == 0 {
				return fmt.Errorf("lecture with ID %s not found: %w", id, gorm.ErrRecordNotFound)
			}
		}
		for _, l := range lectures {
			if l.CreatedAt.IsZero() {
				if err := tx.Create(l).Error; err != nil {
					return fmt.Errorf("failed to create lecture for user %s: %w", l.UserID, err)
				}
				continue
			}
			if err := tx.Save(l).Error; err != nil {
				return fmt.Errorf("failed to update lecture %s: %w", l.ID, err)
			}
		}
		return nil
	})
}

// Delete deletes a lecture by its ID.
func (r *lectureRepository) Delete(ctx context.Context, id string) error {
	res := r.db.WithContext(ctx).Where("id = ?", id).Delete(&entity.Lecture{})
	if res.Error != nil {
		return fmt.Errorf("failed to delete lecture %s: %w", id, res.Error)
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("lecture with ID %s not found: %w", id, gorm.ErrRecordNotFound)
	}
	return nil
}

// DeleteByUserID deletes all lectures of a user.
func (r *lectureRepository) DeleteByUserID(ctx context.Context, userID string) error {
	if err := r.db.WithContext(ctx).Where("user_id = ?", userID).Delete(&entity.Lecture{}).Error; err != nil {
		return fmt.Errorf("failed to delete lectures for user %s: %w", userID, err)
	}
	return nil
}
