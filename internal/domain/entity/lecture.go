package entity

import (
	"time"

	"lecturealarm/internal/domain/constant"
	"lecturealarm/internal/domain/schedule"
)

// Lecture is one weekly recurring timetable entry.
type Lecture struct {
	ID        string               `gorm:"column:id;primaryKey"`
	UserID    string               `gorm:"column:user_id;index"`
	Name      string               `gorm:"column:name"`
	Type      constant.LectureType `gorm:"column:type"`
	Day       int                  `gorm:"column:day;index"`  // 0-6, Sunday first
	StartTime string               `gorm:"column:start_time"` // HH:MM
	EndTime   string               `gorm:"column:end_time"`   // HH:MM
	Color     string               `gorm:"column:color"`

	AlarmEnabled       bool `gorm:"column:alarm_enabled"`
	AlarmMinutesBefore *int `gorm:"column:alarm_minutes_before"` // Overrides the user's lead offsets when set
	AlarmAtStart       bool `gorm:"column:alarm_at_start"`

	CreatedAt time.Time `gorm:"column:created_at"`
	UpdatedAt time.Time `gorm:"column:updated_at"`
}

// TableName specifies the table name for the Lecture entity.
func (Lecture) TableName() string {
	return "lectures"
}

// Interval converts the lecture to a conflict-check slot.
func (l *Lecture) Interval() (schedule.Interval, error) {
	ev, err := l.RecurringEvent()
	if err != nil {
		return schedule.Interval{}, err
	}
	return schedule.Interval{ID: ev.ID, Day: ev.Day, Start: ev.Start, End: ev.End}, nil
}

// RecurringEvent converts the lecture to the alarm scheduler's input.
// Stored times that fail to parse are reported, never defaulted.
func (l *Lecture) RecurringEvent() (schedule.RecurringEvent, error) {
	day, err := schedule.ValidateWeekday(l.Day)
	if err != nil {
		return schedule.RecurringEvent{}, err
	}
	start, err := schedule.ParseTimeOfDay(l.StartTime)
	if err != nil {
		return schedule.RecurringEvent{}, err
	}
	end, err := schedule.ParseTimeOfDay(l.EndTime)
	if err != nil {
		return schedule.RecurringEvent{}, err
	}
	ev := schedule.RecurringEvent{ID: l.ID, Day: day, Start: start, End: end}
	if err := ev.Validate(); err != nil {
		return schedule.RecurringEvent{}, err
	}
	return ev, nil
}

// LeadOffsets returns the alarm offsets for this lecture given the owner's
// defaults: the lecture override wins over userOffsets, and 0 is appended
// when either side asks for an at-start alarm.
func (l *Lecture) LeadOffsets(userOffsets []int, userAtStart bool) []int {
	var offsets []int
	if l.AlarmMinutesBefore != nil {
		offsets = []int{*l.AlarmMinutesBefore}
	} else {
		offsets = append(offsets, userOffsets...)
	}
	if l.AlarmAtStart || userAtStart {
		offsets = append(offsets, 0)
	}
	return offsets
}
