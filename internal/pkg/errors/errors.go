package errors

import "errors"

// Custom application errors
var (
	ErrUserNotFound    = errors.New("user not found")
	ErrLectureNotFound = errors.New("lecture not found")
	// Missing name, bad type or color, start >= end, outside the operating window
	ErrInvalidLecture    = errors.New("invalid lecture")
	ErrLectureConflict   = errors.New("lecture conflicts with an existing one")
	ErrInvalidSettings   = errors.New("invalid settings")
	ErrInvalidRequest    = errors.New("invalid request")
	ErrDatabaseOperation = errors.New("database operation failed")
	ErrLineAPI           = errors.New("LINE API request failed")
	ErrScheduling        = errors.New("scheduling failed")
	// User unfollowed the bot or switched notifications off
	ErrPermissionDenied = errors.New("notification permission not granted")
	ErrInternalServer   = errors.New("internal server error")
)

// Schedule computation errors. These are caller contract violations and are
// never recovered from.
var (
	ErrInvalidTimeFormat = errors.New("invalid time format, expected HH:MM")
	ErrInvalidDayOfWeek  = errors.New("invalid day of week, expected 0-6")
	ErrInvalidInterval   = errors.New("start time must be before end time")
	ErrNegativeLead      = errors.New("lead minutes must not be negative")
)
