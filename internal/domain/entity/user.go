package entity

import (
	"time"

	"lecturealarm/internal/domain/constant"
)

// User is a LINE user together with their notification settings.
type User struct {
	ID string `gorm:"column:user_id;primaryKey"`
	// Following is the delivery permission: pushes only reach users who follow the bot.
	Following bool `gorm:"column:following"`

	NotificationsEnabled bool              `gorm:"column:notifications_enabled"`
	LeadOffsets          []int             `gorm:"column:lead_offsets;serializer:json"`
	AlarmAtStart         bool              `gorm:"column:alarm_at_start"`
	Language             constant.Language `gorm:"column:language"`
	Theme                constant.Theme    `gorm:"column:theme"`

	CreatedAt time.Time `gorm:"column:created_at"`
	UpdatedAt time.Time `gorm:"column:updated_at"`
}

// TableName specifies the table name for the User entity.
func (User) TableName() string {
	return "users"
}

// CanReceiveAlarms reports whether alarms may be delivered to the user.
func (u *User) CanReceiveAlarms() bool {
	return u.Following && u.NotificationsEnabled
}
