package service

import (
	"fmt"
	"lecturealarm/internal/domain/constant"
	"lecturealarm/internal/domain/entity"
	"lecturealarm/internal/domain/schedule"
	"lecturealarm/internal/infrastructure/line"
)

// AlarmNotification builds the message pushed when an alarm fires.
func AlarmNotification(l *entity.Lecture, alarm schedule.ScheduledAlarm) line.Notification {
	section := l.Type == constant.LectureTypeSection

	if alarm.Kind == schedule.AlarmKindStart {
		title := "Lecture started now!"
		if section {
			title = "Section started now!"
		}
		return line.Notification{
			Title: title,
			Body:  fmt.Sprintf("%s - time: %s", l.Name, l.StartTime),
		}
	}

	title := "Upcoming lecture"
	if section {
		title = "Upcoming section"
	}
	unit := "minutes"
	if alarm.LeadMinutes == 1 {
		unit = "minute"
	}
	return line.Notification{
		Title: title,
		Body:  fmt.Sprintf("%s - starts in %d %s", l.Name, alarm.LeadMinutes, unit),
	}
}

// TestNotification is pushed by SendTestNotification.
func TestNotification() line.Notification {
	return line.Notification{
		Title: "Alarm test",
		Body:  "This is a test to make sure your alarms reach you.",
	}
}
