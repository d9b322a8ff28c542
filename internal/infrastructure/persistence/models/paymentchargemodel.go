package models

import (
	"time"

	"github.com/channelgate/channelgate/internal/shared/constants"
)

// PaymentChargeModel is the ledger of provider charges already turned into access.
type PaymentChargeModel struct {
	ID             uint   `gorm:"primarykey"`
	ChargeID       string `gorm:"not null;size:255;uniqueIndex"`
	SubscriptionID uint   `gorm:"not null;index"`
	CreatedAt      time.Time
}

// TableName specifies the table name for GORM
func (PaymentChargeModel) TableName() string {
	return constants.TablePaymentCharges
}
