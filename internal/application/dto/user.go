package dto

import (
	"lecturealarm/internal/domain/entity"
	"lecturealarm/internal/domain/schedule"
)

// UpdateSettingsRequest is the DTO for changing a user's settings.
// Nil fields are left unchanged.
type UpdateSettingsRequest struct {
	NotificationsEnabled *bool   `json:"notifications_enabled,omitempty"`
	LeadOffsets          []int   `json:"lead_offsets,omitempty"`
	AlarmAtStart         *bool   `json:"alarm_at_start,omitempty"`
	Language             *string `json:"language,omitempty"`
	Theme                *string `json:"theme,omitempty"`
}

// SettingsResponse is the DTO for sending a user's settings to the client.
type SettingsResponse struct {
	UserID               string `json:"user_id"`
	Following            bool   `json:"following"`
	NotificationsEnabled bool   `json:"notifications_enabled"`
	LeadOffsets          []int  `json:"lead_offsets"`
	AlarmAtStart         bool   `json:"alarm_at_start"`
	Language             string `json:"language"`
	Theme                string `json:"theme"`
}

// ToSettingsResponse converts an entity.User to a SettingsResponse DTO.
func ToSettingsResponse(u *entity.User) SettingsResponse {
	offsets := u.LeadOffsets
	if offsets == nil {
		offsets = []int{}
	}
	return SettingsResponse{
		UserID:               u.ID,
		Following:            u.Following,
		NotificationsEnabled: u.NotificationsEnabled,
		LeadOffsets:          offsets,
		AlarmAtStart:         u.AlarmAtStart,
		Language:             string(u.Language),
		Theme:                string(u.Theme),
	}
}

// ScheduleResponse reports the outcome of a full reschedule.
type ScheduleResponse struct {
	Permitted bool                      `json:"permitted"`
	Alarms    []schedule.ScheduledAlarm `json:"alarms"`
}
