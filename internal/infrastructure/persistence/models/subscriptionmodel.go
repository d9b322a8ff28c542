package models

import (
	"time"

	"github.com/channelgate/channelgate/internal/shared/constants"
)

// SubscriptionModel represents the database persistence model for user subscriptions.
type SubscriptionModel struct {
	ID                      uint      `gorm:"primarykey"`
	UserID                  uint      `gorm:"not null;index:idx_sub_user_active,priority:1"`
	PlanID                  uint      `gorm:"not null;index"`
	StartDate               time.Time `gorm:"not null"`
	EndDate                 time.Time `gorm:"not null;index:idx_sub_active_end,priority:2"`
	IsActive                bool      `gorm:"not null;default:true;index:idx_sub_active_end,priority:1;index:idx_sub_user_active,priority:2"`
	InviteLink              *string   `gorm:"size:255;index"`
	ReminderSent            bool      `gorm:"not null;default:false"`
	LastDayReminderSent     bool      `gorm:"not null;default:false"`
	ExpiredReminderSent     bool      `gorm:"not null;default:false"`
	ProviderPaymentChargeID *string   `gorm:"size:255;uniqueIndex"`
	CreatedAt               time.Time
	UpdatedAt               time.Time

	User UserModel `gorm:"foreignKey:UserID;constraint:OnDelete:RESTRICT"`
	Plan PlanModel `gorm:"foreignKey:PlanID;constraint:OnDelete:RESTRICT"`
}

// TableName specifies the table name for GORM
func (SubscriptionModel) TableName() string {
	return constants.TableUserSubscriptions
}
