// Package schedule holds the pure weekly-recurrence arithmetic: next fire
// times for lecture alarms and half-open conflict checks between weekly
// time slots. Nothing here reads a clock or touches storage.
package schedule

import (
	"fmt"
	"time"

	appErrors "lecturealarm/internal/pkg/errors"
)

const (
	minutesPerDay = 24 * 60
	daysPerWeek   = 7
)

// TimeOfDay is a wall-clock time as minutes after local midnight (0..1439).
type TimeOfDay int

// ParseTimeOfDay parses a strict 24-hour "HH:MM" string.
func ParseTimeOfDay(s string) (TimeOfDay, error) {
	if len(s) != 5 || s[2] != ':' || !isDigit(s[0]) || !isDigit(s[1]) || !isDigit(s[3]) || !isDigit(s[4]) {
		return 0, fmt.Errorf("%w: %q", appErrors.ErrInvalidTimeFormat, s)
	}
	h := int(s[0]-'0')*10 + int(s[1]-'0')
	m := int(s[3]-'0')*10 + int(s[4]-'0')
	if h > 23 || m > 59 {
		return 0, fmt.Errorf("%w: %q", appErrors.ErrInvalidTimeFormat, s)
	}
	return TimeOfDay(h*60 + m), nil
}

// MustParseTimeOfDay is ParseTimeOfDay for constants; it panics on bad input.
func MustParseTimeOfDay(s string) TimeOfDay {
	t, err := ParseTimeOfDay(s)
	if err != nil {
		panic(err)
	}
	return t
}

func isDigit(b byte) bool { return b >= '0' && b <= '9' }

// Hour returns the hour component.
func (t TimeOfDay) Hour() int { return int(t) / 60 }

// Minute returns the minute component.
func (t TimeOfDay) Minute() int { return int(t) % 60 }

func (t TimeOfDay) String() string {
	return fmt.Sprintf("%02d:%02d", t.Hour(), t.Minute())
}

// ValidateWeekday converts 0..6 (Sunday=0) to a time.Weekday.
func ValidateWeekday(day int) (time.Weekday, error) {
	if day < 0 || day >= daysPerWeek {
		return 0, fmt.Errorf("%w: %d", appErrors.ErrInvalidDayOfWeek, day)
	}
	return time.Weekday(day), nil
}

// floorMod is a modulo whose result always has the sign of n.
func floorMod(a, n int) int {
	r := a % n
	if r < 0 {
		r += n
	}
	return r
}

// floorDiv rounds toward negative infinity, matching floorMod.
func floorDiv(a, n int) int {
	return (a - floorMod(a, n)) / n
}
