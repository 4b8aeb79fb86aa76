package schedule

import (
	"fmt"
	"sort"
	"time"

	appErrors "lecturealarm/internal/pkg/errors"
)

// RecurringEvent is a slot that repeats every week on the same day and time.
type RecurringEvent struct {
	ID    string
	Day   time.Weekday
	Start TimeOfDay
	End   TimeOfDay
}

// Validate checks the day range and that Start is strictly before End.
func (e RecurringEvent) Validate() error {
	if _, err := ValidateWeekday(int(e.Day)); err != nil {
		return err
	}
	if e.Start < 0 || e.End >= minutesPerDay || e.Start >= e.End {
		return fmt.Errorf("%w: %s-%s", appErrors.ErrInvalidInterval, e.Start, e.End)
	}
	return nil
}

// AlarmKind distinguishes a reminder before the start from one at the start.
type AlarmKind string

const (
	AlarmKindLead  AlarmKind = "lead"
	AlarmKindStart AlarmKind = "start"
)

// KindForLead returns AlarmKindStart for a zero lead, AlarmKindLead otherwise.
func KindForLead(leadMinutes int) AlarmKind {
	if leadMinutes == 0 {
		return AlarmKindStart
	}
	return AlarmKindLead
}

// ScheduledAlarm is one computed firing of a recurring event's reminder.
type ScheduledAlarm struct {
	EventID     string    `json:"event_id"`
	FiresAt     time.Time `json:"fires_at"`
	Kind        AlarmKind `json:"kind"`
	LeadMinutes int       `json:"lead_minutes"`
}

// NextFireTime returns the first instant strictly after now at which a
// reminder leadMinutes before start on the given weekday fires. The target
// minute is normalized into the day grid first, so a lead that crosses
// midnight moves the effective weekday back (or forward) with it. The result
// is expressed in now's location.
func NextFireTime(now time.Time, day time.Weekday, start TimeOfDay, leadMinutes int) (time.Time, error) {
	if _, err := ValidateWeekday(int(day)); err != nil {
		return time.Time{}, err
	}
	if leadMinutes < 0 {
		return time.Time{}, fmt.Errorf("%w: %d", appErrors.ErrNegativeLead, leadMinutes)
	}
	if start < 0 || start >= minutesPerDay {
		return time.Time{}, fmt.Errorf("%w: %d minutes", appErrors.ErrInvalidTimeFormat, int(start))
	}

	target := int(start) - leadMinutes
	dayShift := floorDiv(target, minutesPerDay)
	minuteOfDay := floorMod(target, minutesPerDay)
	effectiveDay := floorMod(int(day)+dayShift, daysPerWeek)

	daysUntil := floorMod(effectiveDay-int(now.Weekday()), daysPerWeek)

	y, m, d := now.Date()
	candidate := time.Date(y, m, d+daysUntil, minuteOfDay/60, minuteOfDay%60, 0, 0, now.Location())
	if !candidate.After(now) {
		candidate = time.Date(y, m, d+daysUntil+daysPerWeek, minuteOfDay/60, minuteOfDay%60, 0, 0, now.Location())
	}
	return candidate, nil
}

// PlanAlarms computes the next alarm for each distinct lead offset of event.
// Offset 0 yields a start alarm. The result is ordered by FiresAt.
func PlanAlarms(now time.Time, event RecurringEvent, offsets []int) ([]ScheduledAlarm, error) {
	if err := event.Validate(); err != nil {
		return nil, err
	}

	seen := make(map[int]struct{}, len(offsets))
	alarms := make([]ScheduledAlarm, 0, len(offsets))
	for _, lead := range offsets {
		if _, dup := seen[lead]; dup {
			continue
		}
		seen[lead] = struct{}{}

		firesAt, err := NextFireTime(now, event.Day, event.Start, lead)
		if err != nil {
			return nil, err
		}
		alarms = append(alarms, ScheduledAlarm{
			EventID:     event.ID,
			FiresAt:     firesAt,
			Kind:        KindForLead(lead),
			LeadMinutes: lead,
		})
	}

	sort.SliceStable(alarms, func(i, j int) bool {
		return alarms[i].FiresAt.Before(alarms[j].FiresAt)
	})
	return alarms, nil
}
