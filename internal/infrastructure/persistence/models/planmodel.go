package models

import (
	"time"

	"github.com/channelgate/channelgate/internal/shared/constants"
)

// PlanModel represents the database persistence model for subscription plans.
// (name, price, duration_days) is the catalog identity; it is indexed but not unique
// so historical duplicates imported from older catalogs keep loading.
type PlanModel struct {
	ID           uint    `gorm:"primarykey"`
	Name         string  `gorm:"not null;size:255;index:idx_plan_identity,priority:1"`
	Description  string  `gorm:"type:text"`
	Price        int64   `gorm:"not null;index:idx_plan_identity,priority:2"`
	DurationDays float64 `gorm:"not null;index:idx_plan_identity,priority:3"`
	ChannelID    *string `gorm:"size:64"`
	// RetiredAt is set while the plan is absent from the catalog.
	RetiredAt *time.Time `gorm:"index"`
}

// TableName specifies the table name for GORM
func (PlanModel) TableName() string {
	return constants.TablePlans
}
