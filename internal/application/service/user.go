package service

import (
	"context"
	"lecturealarm/internal/application/dto"
	"lecturealarm/internal/domain/entity"
)

// UserService defines the interface for user-related operations.
type UserService interface {
	// GetOrCreateUser finds a user by ID or creates a new one with default settings.
	GetOrCreateUser(ctx context.Context, userID string) (*entity.User, error)
	// GetUser finds a user by ID. Returns ErrUserNotFound if not found.
	GetUser(ctx context.Context, userID string) (*entity.User, error)
	// SetFollowing records a follow or unfollow and reschedules the user's alarms.
	SetFollowing(ctx context.Context, userID string, following bool) (ScheduleResult, error)
	// SetNotificationsEnabled switches every alarm of the user on or off.
	SetNotificationsEnabled(ctx context.Context, userID string, enabled bool) (ScheduleResult, error)
	// GetSettings returns the user's settings.
	GetSettings(ctx context.Context, userID string) (dto.SettingsResponse, error)
	// UpdateSettings validates and applies a partial settings change.
	UpdateSettings(ctx context.Context, userID string, req dto.UpdateSettingsRequest) (dto.SettingsResponse, error)
	// DeleteUser cancels alarms and deletes the user with all their lectures.
	DeleteUser(ctx context.Context, userID string) error
}
