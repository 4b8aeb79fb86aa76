package service

import (
	"context"
	"errors"
	"fmt"
	"lecturealarm/internal/application/dto"
	"lecturealarm/internal/domain/constant"
	"lecturealarm/internal/domain/entity"
	"lecturealarm/internal/domain/repository"
	appErrors "lecturealarm/internal/pkg/errors" // Alias to avoid collision
	"lecturealarm/internal/pkg/logger"

	"gorm.io/gorm"
)

// maxLeadOffsets bounds how many reminders a user may ask for per lecture.
const maxLeadOffsets = 5

// maxLeadMinutes is one week; larger leads would skip an occurrence.
const maxLeadMinutes = 7 * 24 * 60

type userService struct {
	userRepo       repository.UserRepository
	lectureRepo    repository.LectureRepository // Needed for deleting lectures with the user
	alarmSvc       AlarmService
	defaultOffsets []int
	log            logger.Logger
}

// NewUserService creates a new instance of UserService implementation.
// defaultOffsets seeds the lead offsets of newly created users.
func NewUserService(
	userRepo repository.UserRepository,
	lectureRepo repository.LectureRepository,
	alarmSvc AlarmService,
	defaultOffsets []int,
	log logger.Logger,
) UserService {
	if len(defaultOffsets) == 0 {
		defaultOffsets = []int{constant.DefaultLeadMinutes}
	}
	return &userService{
		userRepo:       userRepo,
		lectureRepo:    lectureRepo,
		alarmSvc:       alarmSvc,
		defaultOffsets: defaultOffsets,
		log:            log,
	}
}

// GetOrCreateUser finds a user by ID or creates a new one if not found.
func (s *userService) GetOrCreateUser(ctx context.Context, userID string) (*entity.User, error) {
	user, err := s.userRepo.FindByUserID(ctx, userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			s.log.Info(fmt.Sprintf("User %s not found, creating new user.", userID))
			newUser := &entity.User{
				ID:                   userID,
				NotificationsEnabled: true,
				LeadOffsets:          append([]int(nil), s.defaultOffsets...),
				Language:             constant.LanguageArabic,
				Theme:                constant.ThemeLight,
			}
			if createErr := s.userRepo.Create(ctx, newUser); createErr != nil {
				s.log.Error("Failed to create user", createErr)
				return nil, fmt.Errorf("%w: %v", appErrors.ErrDatabaseOperation, createErr)
			}
			return newUser, nil
		}
		s.log.Error(fmt.Sprintf("Failed to find user %s", userID), err)
		return nil, fmt.Errorf("%w: %v", appErrors.ErrDatabaseOperation, err)
	}
	s.log.Debug(fmt.Sprintf("Found existing user %s", userID))
	return user, nil
}

// GetUser finds a user by ID. Returns error if not found.
func (s *userService) GetUser(ctx context.Context, userID string) (*entity.User, error) {
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

// SetFollowing records a follow or unfollow and reschedules the user's alarms.
// Unfollowing keeps the timetable so a later follow restores every alarm.
func (s *userService) SetFollowing(ctx context.Context, userID string, following bool) (ScheduleResult, error) {
	user, err := s.GetOrCreateUser(ctx, userID)
	if err != nil {
		return ScheduleResult{}, err
	}
	user.Following = following
	return s.saveAndReschedule(ctx, user)
}

// SetNotificationsEnabled switches every alarm of the user on or off.
func (s *userService) SetNotificationsEnabled(ctx context.Context, userID string, enabled bool) (ScheduleResult, error) {
	user, err := s.GetUser(ctx, userID)
	if err != nil {
		return ScheduleResult{}, err
	}
	user.NotificationsEnabled = enabled
	return s.saveAndReschedule(ctx, user)
}

// GetSettings returns the user's settings.
func (s *userService) GetSettings(ctx context.Context, userID string) (dto.SettingsResponse, error) {
	user, err := s.GetUser(ctx, userID)
	if err != nil {
		return dto.SettingsResponse{}, err
	}
	return dto.ToSettingsResponse(user), nil
}

// UpdateSettings validates and applies a partial settings change.
func (s *userService) UpdateSettings(ctx context.Context, userID string, req dto.UpdateSettingsRequest) (dto.SettingsResponse, error) {
	user, err := s.GetUser(ctx, userID)
	if err != nil {
		return dto.SettingsResponse{}, err
	}

	if req.LeadOffsets != nil {
		offsets, err := normalizeOffsets(req.LeadOffsets)
		if err != nil {
			return dto.SettingsResponse{}, err
		}
		user.LeadOffsets = offsets
	}
	if req.Language != nil {
		lang := constant.Language(*req.Language)
		if !lang.Valid() {
			return dto.SettingsResponse{}, fmt.Errorf("%w: unknown language %q", appErrors.ErrInvalidSettings, *req.Language)
		}
		user.Language = lang
	}
	if req.Theme != nil {
		theme := constant.Theme(*req.Theme)
		if !theme.Valid() {
			return dto.SettingsResponse{}, fmt.Errorf("%w: unknown theme %q", appErrors.ErrInvalidSettings, *req.Theme)
		}
		user.Theme = theme
	}
	if req.NotificationsEnabled != nil {
		user.NotificationsEnabled = *req.NotificationsEnabled
	}
	if req.AlarmAtStart != nil {
		user.AlarmAtStart = *req.AlarmAtStart
	}

	if _, err := s.saveAndReschedule(ctx, user); err != nil && !errors.Is(err, appErrors.ErrScheduling) {
		return dto.SettingsResponse{}, err
	}
	return dto.ToSettingsResponse(user), nil
}

// DeleteUser cancels alarms and deletes the user with all their lectures.
func (s *userService) DeleteUser(ctx context.Context, userID string) error {
	if _, err := s.GetUser(ctx, userID); err != nil {
		return err
	}
	if err := s.alarmSvc.CancelAll(ctx, userID); err != nil {
		s.log.Warn(fmt.Sprintf("Failed to cancel alarms of user %s: %v", userID, err))
	}
	if err := s.lectureRepo.DeleteByUserID(ctx, userID); err != nil {
		s.log.Error(fmt.Sprintf("Failed to delete lectures of user %s", userID), err)
		return fmt.Errorf("%w: %v", appErrors.ErrDatabaseOperation, err)
	}
	if err := s.userRepo.Delete(ctx, userID); err != nil {
		s.log.Error(fmt.Sprintf("Failed to delete user %s", userID), err)
		return fmt.Errorf("%w: %v", appErrors.ErrDatabaseOperation, err)
	}
	s.log.Info(fmt.Sprintf("Deleted user %s and their lectures.", userID))
	return nil
}

func (s *userService) saveAndReschedule(ctx context.Context, user *entity.User) (ScheduleResult, error) {
	if err := s.userRepo.Update(ctx, user); err != nil {
		s.log.Error(fmt.Sprintf("Failed to update user %s", user.ID), err)
		return ScheduleResult{}, fmt.Errorf("%w: %v", appErrors.ErrDatabaseOperation, err)
	}
	result, err := s.alarmSvc.RescheduleAll(ctx, user.ID)
	if err != nil {
		s.log.Error(fmt.Sprintf("Failed to reschedule alarms of user %s", user.ID), err)
		return result, err
	}
	return result, nil
}

// normalizeOffsets drops duplicates and rejects negative or oversized leads.
func normalizeOffsets(offsets []int) ([]int, error) {
	seen := make(map[int]struct{}, len(offsets))
	out := make([]int, 0, len(offsets))
	for _, o := range offsets {
		if o < 0 || o >= maxLeadMinutes {
			return nil, fmt.Errorf("%w: lead offset %d out of range", appErrors.ErrInvalidSettings, o)
		}
		if _, dup := seen[o]; dup {
			continue
		}
		seen[o] = struct{}{}
		out = append(out, o)
	}
	if len(out) > maxLeadOffsets {
		return nil, fmt.Errorf("%w: at most %d lead offsets allowed", appErrors.ErrInvalidSettings, maxLeadOffsets)
	}
	return out, nil
}
