package models

import (
	"time"

	"github.com/channelgate/channelgate/internal/shared/constants"
)

// UserModel represents the database persistence model for users.
type UserModel struct {
	ID                     uint      `gorm:"primarykey"`
	TelegramUserID         string    `gorm:"uniqueIndex;not null;size:32"`
	FirstName              *string   `gorm:"size:255"`
	LanguageCode           string    `gorm:"size:16;not null;default:''"`
	IsActive               bool      `gorm:"not null;default:true"`
	FirstStartReminderSent bool      `gorm:"not null;default:false;index:idx_users_nudge,priority:2"`
	CreatedAt              time.Time `gorm:"not null;index:idx_users_nudge,priority:1"`
}

// TableName specifies the table name for GORM
func (UserModel) TableName() string {
	return constants.TableUsers
}
