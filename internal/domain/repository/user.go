package repository

import (
	"context"
	"lecturealarm/internal/domain/entity"
)

// UserRepository defines the interface for user data operations.
type UserRepository interface {
	// FindByUserID retrieves a user by their LINE User ID.
	FindByUserID(ctx context.Context, userID string) (*entity.User, error)
	// FindAll retrieves all users (used for rescheduling on startup).
	FindAll(ctx context.Context) ([]*entity.User, error)
	// Create creates a new user.
	Create(ctx context.Context, user *entity.User) error
	// Update updates an existing user.
	Update(ctx context.Context, user *entity.User) error
	// Delete deletes a user by their LINE User ID.
	Delete(ctx context.Context, userID string) error
}
