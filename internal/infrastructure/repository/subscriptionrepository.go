package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/channelgate/channelgate/internal/domain/subscription"
	"github.com/channelgate/channelgate/internal/infrastructure/persistence/mappers"
	"github.com/channelgate/channelgate/internal/infrastructure/persistence/models"
	"github.com/channelgate/channelgate/internal/shared/db"
	apperrors "github.com/channelgate/channelgate/internal/shared/errors"
	"github.com/channelgate/channelgate/internal/shared/logger"
)

type SubscriptionRepositoryImpl struct {
	db     *gorm.DB
	mapper mappers.SubscriptionMapper
	logger logger.Interface
}

func NewSubscriptionRepository(db *gorm.DB, logger logger.Interface) subscription.SubscriptionRepository {
	return &SubscriptionRepositoryImpl{
		db:     db,
		mapper: mappers.NewSubscriptionMapper(),
		logger: logger,
	}
}

func (r *SubscriptionRepositoryImpl) Create(ctx context.Context, sub *subscription.Subscription) error {
	model := r.mapper.ToModel(sub)

	if err := db.GetTxFromContext(ctx, r.db).Omit(clause.Associations).Create(model).Error; err != nil {
		if apperrors.IsDuplicateError(err) {
			return apperrors.NewConflictError("subscription for this payment already exists", sub.PaymentChargeID())
		}
		r.logger.Errorw("failed to create subscription", "user_id", model.UserID, "plan_id", model.PlanID, "error", err)
		return apperrors.NewStorageError("failed to create subscription", err)
	}

	if err := sub.SetID(model.ID); err != nil {
		return fmt.Errorf("failed to set subscription ID: %w", err)
	}

	r.logger.Infow("subscription created", "id", model.ID, "user_id", model.UserID, "plan_id", model.PlanID, "end_date", model.EndDate)
	return nil
}

func (r *SubscriptionRepositoryImpl) Update(ctx context.Context, sub *subscription.Subscription) error {
	model := r.mapper.ToModel(sub)

	result := db.GetTxFromContext(ctx, r.db).Model(&models.SubscriptionModel{}).
		Where("id = ?", model.ID).
		Updates(map[string]interface{}{
			"plan_id":                    model.PlanID,
			"start_date":                 model.StartDate,
			"end_date":                   model.EndDate,
			"is_active":                  model.IsActive,
			"invite_link":                model.InviteLink,
			"reminder_sent":              model.ReminderSent,
			"last_day_reminder_sent":     model.LastDayReminderSent,
			"expired_reminder_sent":      model.ExpiredReminderSent,
			"provider_payment_charge_id": model.ProviderPaymentChargeID,
			"updated_at":                 time.Now().UTC(),
		})
	if result.Error != nil {
		r.logger.Errorw("failed to update subscription", "id", model.ID, "error", result.Error)
		return apperrors.NewStorageError("failed to update subscription", result.Error)
	}
	if result.RowsAffected == 0 {
		return subscription.ErrSubscriptionNotFound
	}
	return nil
}

func (r *SubscriptionRepositoryImpl) GetByID(ctx context.Context, id uint) (*subscription.Subscription, error) {
	return r.first(ctx, db.GetTxFromContext(ctx, r.db).Where("id = ?", id))
}

func (r *SubscriptionRepositoryImpl) GetByIDForUpdate(ctx context.Context, id uint) (*subscription.Subscription, error) {
	q := db.ForUpdate(ctx, db.GetTxFromContext(ctx, r.db))
	return r.first(ctx, q.Where("id = ?", id))
}

func (r *SubscriptionRepositoryImpl) GetByInviteLink(ctx context.Context, link string) (*subscription.Subscription, error) {
	if link == "" {
		return nil, nil
	}
	return r.first(ctx, db.GetTxFromContext(ctx, r.db).Where("invite_link = ?", link).Order("id DESC"))
}

func (r *SubscriptionRepositoryImpl) GetByPaymentChargeID(ctx context.Context, chargeID string) (*subscription.Subscription, error) {
	if chargeID == "" {
		return nil, nil
	}
	return r.first(ctx, db.GetTxFromContext(ctx, r.db).Where("provider_payment_charge_id = ?", chargeID))
}

func (r *SubscriptionRepositoryImpl) first(_ context.Context, q *gorm.DB) (*subscription.Subscription, error) {
	var model models.SubscriptionModel
	if err := q.First(&model).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		r.logger.Errorw("failed to get subscription", "error", err)
		return nil, apperrors.NewStorageError("failed to get subscription", err)
	}
	return r.mapper.ToEntity(&model)
}

func (r *SubscriptionRepositoryImpl) find(q *gorm.DB, what string) ([]*subscription.Subscription, error) {
	var list []*models.SubscriptionModel
	if err := q.Find(&list).Error; err != nil {
		r.logger.Errorw("failed to "+what, "error", err)
		return nil, apperrors.NewStorageError("failed to "+what, err)
	}
	return r.mapper.ToEntities(list)
}

func (r *SubscriptionRepositoryImpl) ListByUserID(ctx context.Context, userID uint) ([]*subscription.Subscription, error) {
	q := db.GetTxFromContext(ctx, r.db).Where("user_id = ?", userID).Order("id DESC")
	return r.find(q, "list subscriptions by user")
}

func (r *SubscriptionRepositoryImpl) GetCurrentByUserID(ctx context.Context, userID uint, now time.Time) (*subscription.Subscription, error) {
	q := db.GetTxFromContext(ctx, r.db).
		Where("user_id = ? AND is_active = ? AND end_date > ?", userID, true, now.UTC()).
		Order("end_date DESC").Order("id DESC")
	return r.first(ctx, q)
}

func (r *SubscriptionRepositoryImpl) HasOtherCurrent(ctx context.Context, userID, excludeID uint, now time.Time) (bool, error) {
	var count int64
	err := db.GetTxFromContext(ctx, r.db).Model(&models.SubscriptionModel{}).
		Where("user_id = ? AND id <> ? AND is_active = ? AND end_date > ?", userID, excludeID, true, now.UTC()).
		Count(&count).Error
	if err != nil {
		r.logger.Errorw("failed to check other current subscriptions", "user_id", userID, "error", err)
		return false, apperrors.NewStorageError("failed to check other current subscriptions", err)
	}
	return count > 0, nil
}

func (r *SubscriptionRepositoryImpl) DeactivateAllByUserID(ctx context.Context, userID uint, now time.Time) (int64, error) {
	result := db.GetTxFromContext(ctx, r.db).Model(&models.SubscriptionModel{}).
		Where("user_id = ?", userID).
		Updates(map[string]interface{}{
			"is_active":   false,
			"invite_link": nil,
			"updated_at":  now.UTC(),
		})
	if result.Error != nil {
		r.logger.Errorw("failed to deactivate user subscriptions", "user_id", userID, "error", result.Error)
		return 0, apperrors.NewStorageError("failed to deactivate subscriptions", result.Error)
	}
	return result.RowsAffected, nil
}

func (r *SubscriptionRepositoryImpl) SetReminderFlag(ctx context.Context, id uint, kind subscription.ReminderKind) error {
	if err := kind.Validate(); err != nil {
		return apperrors.NewValidationError(err.Error())
	}
	err := db.GetTxFromContext(ctx, r.db).Model(&models.SubscriptionModel{}).
		Where("id = ?", id).
		Update(kind.Column(), true).Error
	if err != nil {
		r.logger.Errorw("failed to set reminder flag", "id", id, "flag", kind, "error", err)
		return apperrors.NewStorageError("failed to set reminder flag", err)
	}
	return nil
}

func (r *SubscriptionRepositoryImpl) ReassignPlans(ctx context.Context, keepPlanIDs []uint, targetPlanID uint, now time.Time) (int64, error) {
	q := db.GetTxFromContext(ctx, r.db).Model(&models.SubscriptionModel{}).
		Where("is_active = ? AND plan_id <> ?", true, targetPlanID)
	if len(keepPlanIDs) > 0 {
		q = q.Where("plan_id NOT IN ?", keepPlanIDs)
	}

	result := q.Updates(map[string]interface{}{
		"plan_id":    targetPlanID,
		"updated_at": now.UTC(),
	})
	if result.Error != nil {
		r.logger.Errorw("failed to reassign subscriptions", "target_plan_id", targetPlanID, "error", result.Error)
		return 0, apperrors.NewStorageError("failed to reassign subscriptions", result.Error)
	}
	return result.RowsAffected, nil
}

func (r *SubscriptionRepositoryImpl) FindActiveEndingBetween(ctx context.Context, from, to time.Time, kind subscription.ReminderKind, limit int) ([]*subscription.Subscription, error) {
	if err := kind.Validate(); err != nil {
		return nil, apperrors.NewValidationError(err.Error())
	}
	q := db.GetTxFromContext(ctx, r.db).
		Where("is_active = ? AND end_date > ? AND end_date <= ?", true, from.UTC(), to.UTC()).
		Where(clause.Eq{Column: clause.Column{Name: kind.Column()}, Value: false}).
		Order("id ASC").
		Limit(batchLimit(limit))
	return r.find(q, "find subscriptions ending soon")
}

func (r *SubscriptionRepositoryImpl) FindEndedInactive(ctx context.Context, now time.Time, kind subscription.ReminderKind, limit int) ([]*subscription.Subscription, error) {
	if err := kind.Validate(); err != nil {
		return nil, apperrors.NewValidationError(err.Error())
	}
	q := db.GetTxFromContext(ctx, r.db).
		Where("is_active = ? AND end_date <= ?", false, now.UTC()).
		Where(clause.Eq{Column: clause.Column{Name: kind.Column()}, Value: false}).
		Order("id ASC").
		Limit(batchLimit(limit))
	return r.find(q, "find ended subscriptions")
}

func (r *SubscriptionRepositoryImpl) FindExpiredActive(ctx context.Context, now time.Time, limit int) ([]*subscription.Subscription, error) {
	q := db.GetTxFromContext(ctx, r.db).
		Where("is_active = ? AND end_date <= ?", true, now.UTC()).
		Order("end_date ASC").
		Limit(batchLimit(limit))
	return r.find(q, "find expired subscriptions")
}

func (r *SubscriptionRepositoryImpl) FindEndedBefore(ctx context.Context, cutoff time.Time, afterID uint, limit int) ([]*subscription.Subscription, error) {
	q := db.GetTxFromContext(ctx, r.db).
		Where("end_date < ? AND id > ?", cutoff.UTC(), afterID).
		Order("id ASC").
		Limit(batchLimit(limit))
	return r.find(q, "find subscriptions for audit")
}
