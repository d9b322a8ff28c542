package repository

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"

	"github.com/channelgate/channelgate/internal/domain/subscription"
	"github.com/channelgate/channelgate/internal/infrastructure/persistence/mappers"
	"github.com/channelgate/channelgate/internal/infrastructure/persistence/models"
	"github.com/channelgate/channelgate/internal/shared/db"
	apperrors "github.com/channelgate/channelgate/internal/shared/errors"
	"github.com/channelgate/channelgate/internal/shared/logger"
)

type PaymentErrorRepositoryImpl struct {
	db     *gorm.DB
	mapper mappers.PaymentErrorMapper
	logger logger.Interface
}

func NewPaymentErrorRepository(db *gorm.DB, logger logger.Interface) subscription.PaymentErrorRepository {
	return &PaymentErrorRepositoryImpl{
		db:     db,
		mapper: mappers.NewPaymentErrorMapper(),
		logger: logger,
	}
}

func (r *PaymentErrorRepositoryImpl) Create(ctx context.Context, pe *subscription.PaymentError) error {
	model, err := r.mapper.ToModel(pe)
	if err != nil {
		return fmt.Errorf("failed to map payment error: %w", err)
	}

	if err := db.GetTxFromContext(ctx, r.db).Create(model).Error; err != nil {
		r.logger.Errorw("failed to create payment error", "charge_id", model.ProviderPaymentChargeID, "error", err)
		return apperrors.NewStorageError("failed to create payment error", err)
	}
	if err := pe.SetID(model.ID); err != nil {
		return fmt.Errorf("failed to set payment error ID: %w", err)
	}
	return nil
}

func (r *PaymentErrorRepositoryImpl) Update(ctx context.Context, pe *subscription.PaymentError) error {
	result := db.GetTxFromContext(ctx, r.db).Model(&models.PaymentErrorModel{}).
		Where("id = ?", pe.ID()).
		Updates(map[string]interface{}{
			"is_resolved":      pe.IsResolved(),
			"resolution_notes": pe.ResolutionNotes(),
			"resolution_time":  pe.ResolvedAt(),
		})
	if result.Error != nil {
		r.logger.Errorw("failed to update payment error", "id", pe.ID(), "error", result.Error)
		return apperrors.NewStorageError("failed to update payment error", result.Error)
	}
	if result.RowsAffected == 0 {
		return subscription.ErrPaymentErrorNotFound
	}
	return nil
}

func (r *PaymentErrorRepositoryImpl) GetByID(ctx context.Context, id uint) (*subscription.PaymentError, error) {
	return r.first(db.GetTxFromContext(ctx, r.db).Where("id = ?", id))
}

func (r *PaymentErrorRepositoryImpl) GetByChargeID(ctx context.Context, chargeID string) (*subscription.PaymentError, error) {
	if chargeID == "" {
		return nil, nil
	}
	return r.first(db.GetTxFromContext(ctx, r.db).Where("provider_payment_charge_id = ?", chargeID).Order("id DESC"))
}

func (r *PaymentErrorRepositoryImpl) first(q *gorm.DB) (*subscription.PaymentError, error) {
	var model models.PaymentErrorModel
	if err := q.First(&model).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		r.logger.Errorw("failed to get payment error", "error", err)
		return nil, apperrors.NewStorageError("failed to get payment error", err)
	}
	return r.mapper.ToEntity(&model)
}

func (r *PaymentErrorRepositoryImpl) ListUnresolved(ctx context.Context, limit int) ([]*subscription.PaymentError, error) {
	var list []*models.PaymentErrorModel
	err := db.GetTxFromContext(ctx, r.db).
		Where("is_resolved = ?", false).
		Order("id DESC").
		Limit(batchLimit(limit)).
		Find(&list).Error
	if err != nil {
		r.logger.Errorw("failed to list payment errors", "error", err)
		return nil, apperrors.NewStorageError("failed to list payment errors", err)
	}
	return r.mapper.ToEntities(list)
}
