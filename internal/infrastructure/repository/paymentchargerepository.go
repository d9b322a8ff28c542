package repository

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"github.com/channelgate/channelgate/internal/domain/subscription"
	"github.com/channelgate/channelgate/internal/infrastructure/persistence/models"
	"github.com/channelgate/channelgate/internal/shared/db"
	apperrors "github.com/channelgate/channelgate/internal/shared/errors"
	"github.com/channelgate/channelgate/internal/shared/logger"
)

type PaymentChargeRepositoryImpl struct {
	db     *gorm.DB
	logger logger.Interface
}

func NewPaymentChargeRepository(db *gorm.DB, logger logger.Interface) subscription.PaymentChargeRepository {
	return &PaymentChargeRepositoryImpl{
		db:     db,
		logger: logger,
	}
}

func (r *PaymentChargeRepositoryImpl) Record(ctx context.Context, charge *subscription.PaymentCharge) error {
	if charge.ChargeID == "" {
		return apperrors.NewValidationError("charge id is required")
	}
	model := &models.PaymentChargeModel{
		ChargeID:       charge.ChargeID,
		SubscriptionID: charge.SubscriptionID,
		CreatedAt:      charge.RecordedAt,
	}
	if err := db.GetTxFromContext(ctx, r.db).Create(model).Error; err != nil {
		if apperrors.IsDuplicateError(err) {
			return apperrors.NewConflictError("payment charge already recorded", charge.ChargeID)
		}
		r.logger.Errorw("failed to record payment charge", "charge_id", charge.ChargeID, "error", err)
		return apperrors.NewStorageError("failed to record payment charge", err)
	}
	return nil
}

func (r *PaymentChargeRepositoryImpl) GetByChargeID(ctx context.Context, chargeID string) (*subscription.PaymentCharge, error) {
	if chargeID == "" {
		return nil, nil
	}
	var model models.PaymentChargeModel
	if err := db.GetTxFromContext(ctx, r.db).Where("charge_id = ?", chargeID).First(&model).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		r.logger.Errorw("failed to get payment charge", "charge_id", chargeID, "error", err)
		return nil, apperrors.NewStorageError("failed to get payment charge", err)
	}
	return &subscription.PaymentCharge{
		ChargeID:       model.ChargeID,
		SubscriptionID: model.SubscriptionID,
		RecordedAt:     model.CreatedAt,
	}, nil
}
