package dto

import (
	"lecturealarm/internal/domain/entity"
	"time"
)

// LectureRequest is the DTO for creating or editing a lecture.
type LectureRequest struct {
	Name      string `json:"name"`
	Type      string `json:"type"` // "lecture" (default) or "section"
	Day       int    `json:"day"`  // 0-6, Sunday first
	StartTime string `json:"start_time"`
	EndTime   string `json:"end_time"`
	Color     string `json:"color,omitempty"`

	AlarmEnabled       *bool `json:"alarm_enabled,omitempty"` // Defaults to true
	AlarmMinutesBefore *int  `json:"alarm_minutes_before,omitempty"`
	AlarmAtStart       bool  `json:"alarm_at_start,omitempty"`
}

// LectureResponse is the DTO for sending lecture information to the client.
type LectureResponse struct {
	ID                 string `json:"id"`
	Name               string `json:"name"`
	Type               string `json:"type"`
	Day                int    `json:"day"`
	StartTime          string `json:"start_time"`
	EndTime            string `json:"end_time"`
	Color              string `json:"color"`
	AlarmEnabled       bool   `json:"alarm_enabled"`
	AlarmMinutesBefore *int   `json:"alarm_minutes_before,omitempty"`
	AlarmAtStart       bool   `json:"alarm_at_start"`
}

// ToLectureResponse converts an entity.Lecture to a LectureResponse DTO.
func ToLectureResponse(l *entity.Lecture) LectureResponse {
	return LectureResponse{
		ID:                 l.ID,
		Name:               l.Name,
		Type:               string(l.Type),
		Day:                l.Day,
		StartTime:          l.StartTime,
		EndTime:            l.EndTime,
		Color:              l.Color,
		AlarmEnabled:       l.AlarmEnabled,
		AlarmMinutesBefore: l.AlarmMinutesBefore,
		AlarmAtStart:       l.AlarmAtStart,
	}
}

// ToLectureResponseList converts a slice of entity.Lecture to a slice of LectureResponse DTOs.
func ToLectureResponseList(lectures []*entity.Lecture) []LectureResponse {
	list := make([]LectureResponse, len(lectures))
	for i, l := range lectures {
		list[i] = ToLectureResponse(l)
	}
	return list
}

// SaveLectureResponse is returned after a create or an edit.
type SaveLectureResponse struct {
	Lecture LectureResponse `json:"lecture"`
	// Replaced lists lectures deleted because the request asked to replace conflicts.
	Replaced        []LectureResponse `json:"replaced,omitempty"`
	AlarmsPermitted bool              `json:"alarms_permitted"`
}

// Batch conflict policies.
const (
	BatchPolicySkip    = "skip"
	BatchPolicyReplace = "replace"
)

// BatchRequest is the DTO for adding several lectures at once.
type BatchRequest struct {
	Lectures []LectureRequest `json:"lectures"`
	Policy   string           `json:"policy"` // "skip" (default) or "replace"
}

// SkippedLecture is a batch candidate left out because of a conflict.
type SkippedLecture struct {
	Lecture       LectureRequest  `json:"lecture"`
	ConflictsWith LectureResponse `json:"conflicts_with"`
}

// BatchResponse reports the outcome of a batch add.
type BatchResponse struct {
	Added           []LectureResponse `json:"added"`
	Skipped         []SkippedLecture  `json:"skipped,omitempty"`
	Replaced        []LectureResponse `json:"replaced,omitempty"`
	AlarmsPermitted bool              `json:"alarms_permitted"`
}

// Occurrence is one concrete meeting of a lecture on the calendar.
type Occurrence struct {
	LectureID string    `json:"lecture_id"`
	Name      string    `json:"name"`
	Type      string    `json:"type"`
	Color     string    `json:"color"`
	Start     time.Time `json:"start"`
	End       time.Time `json:"end"`
}
