package models

import (
	"time"

	"gorm.io/datatypes"

	"github.com/channelgate/channelgate/internal/shared/constants"
)

// PaymentErrorModel represents a captured payment whose activation failed.
type PaymentErrorModel struct {
	ID                      uint   `gorm:"primarykey"`
	TelegramUserID          string `gorm:"not null;size:32;index"`
	PlanID                  *uint
	ProviderPaymentChargeID string         `gorm:"size:255;index"`
	PaymentAmount           int64          `gorm:"not null;default:0"`
	PaymentCurrency         string         `gorm:"size:8"`
	ErrorMessage            string         `gorm:"type:text"`
	InvoicePayload          string         `gorm:"size:255"`
	PaymentInfo             datatypes.JSON `gorm:"comment:sanitized provider payment payload"`
	StackTrace              string         `gorm:"type:text"`
	IsResolved              bool           `gorm:"not null;default:false;index"`
	ResolutionNotes         string         `gorm:"type:text"`
	ResolutionTime          *time.Time
	PaymentTime             time.Time `gorm:"not null"`
	CreatedAt               time.Time
}

// TableName specifies the table name for GORM
func (PaymentErrorModel) TableName() string {
	return constants.TablePaymentErrors
}
