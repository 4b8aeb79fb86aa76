package schedule

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	appErrors "lecturealarm/internal/pkg/errors"
)

func TestParseTimeOfDay_Valid(t *testing.T) {
	tests := []struct {
		in   string
		want TimeOfDay
	}{
		{"00:00", 0},
		{"07:00", 420},
		{"09:05", 545},
		{"20:00", 1200},
		{"23:59", 1439},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseTimeOfDay(tt.in)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
			assert.Equal(t, tt.in, got.String())
		})
	}
}

func TestParseTimeOfDay_Invalid(t *testing.T) {
	for _, in := range []string{"", "9:00", "09:0", "24:00", "12:60", "ab:cd", "12-30", " 9:00", "12:300", "-1:00"} {
		t.Run(in, func(t *testing.T) {
			_, err := ParseTimeOfDay(in)
			require.Error(t, err)
			assert.True(t, errors.Is(err, appErrors.ErrInvalidTimeFormat), "got %v", err)
		})
	}
}

func TestMustParseTimeOfDay_Panics(t *testing.T) {
	assert.Panics(t, func() { MustParseTimeOfDay("25:00") })
	assert.Equal(t, TimeOfDay(600), MustParseTimeOfDay("10:00"))
}

func TestValidateWeekday(t *testing.T) {
	for d := 0; d < 7; d++ {
		wd, err := ValidateWeekday(d)
		require.NoError(t, err)
		assert.Equal(t, time.Weekday(d), wd)
	}

	for _, d := range []int{-1, 7, 100} {
		_, err := ValidateWeekday(d)
		assert.ErrorIs(t, err, appErrors.ErrInvalidDayOfWeek)
	}
}

func TestFloorDivMod(t *testing.T) {
	assert.Equal(t, 1435, floorMod(-5, minutesPerDay))
	assert.Equal(t, -1, floorDiv(-5, minutesPerDay))
	assert.Equal(t, 0, floorDiv(0, minutesPerDay))
	assert.Equal(t, 1, floorDiv(1440, minutesPerDay))
	assert.Equal(t, 6, floorMod(-1, daysPerWeek))
}
