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
	"github.com/channelgate/channelgate/internal/shared/constants"
	"github.com/channelgate/channelgate/internal/shared/db"
	apperrors "github.com/channelgate/channelgate/internal/shared/errors"
	"github.com/channelgate/channelgate/internal/shared/logger"
)

type UserRepositoryImpl struct {
	db     *gorm.DB
	mapper mappers.UserMapper
	logger logger.Interface
}

func NewUserRepository(db *gorm.DB, logger logger.Interface) subscription.UserRepository {
	return &UserRepositoryImpl{
		db:     db,
		mapper: mappers.NewUserMapper(),
		logger: logger,
	}
}

func (r *UserRepositoryImpl) Create(ctx context.Context, user *subscription.User) error {
	model := r.mapper.ToModel(user)

	if err := db.GetTxFromContext(ctx, r.db).Create(model).Error; err != nil {
		if apperrors.IsDuplicateError(err) {
			return apperrors.NewConflictError("user already exists", user.TelegramUserID())
		}
		r.logger.Errorw("failed to create user", "telegram_user_id", user.TelegramUserID(), "error", err)
		return apperrors.NewStorageError("failed to create user", err)
	}

	if err := user.SetID(model.ID); err != nil {
		return fmt.Errorf("failed to set user ID: %w", err)
	}
	return nil
}

func (r *UserRepositoryImpl) Update(ctx context.Context, user *subscription.User) error {
	model := r.mapper.ToModel(user)

	result := db.GetTxFromContext(ctx, r.db).Model(&models.UserModel{}).
		Where("id = ?", model.ID).
		Updates(map[string]interface{}{
			"first_name":                model.FirstName,
			"language_code":             model.LanguageCode,
			"is_active":                 model.IsActive,
			"first_start_reminder_sent": model.FirstStartReminderSent,
		})
	if result.Error != nil {
		r.logger.Errorw("failed to update user", "id", model.ID, "error", result.Error)
		return apperrors.NewStorageError("failed to update user", result.Error)
	}
	if result.RowsAffected == 0 {
		return subscription.ErrUserNotFound
	}
	return nil
}

func (r *UserRepositoryImpl) GetByID(ctx context.Context, id uint) (*subscription.User, error) {
	return r.first(ctx, "id = ?", id)
}

func (r *UserRepositoryImpl) GetByTelegramID(ctx context.Context, telegramUserID string) (*subscription.User, error) {
	return r.first(ctx, "telegram_user_id = ?", telegramUserID)
}

func (r *UserRepositoryImpl) first(ctx context.Context, query string, args ...interface{}) (*subscription.User, error) {
	var model models.UserModel
	if err := db.GetTxFromContext(ctx, r.db).Where(query, args...).First(&model).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		r.logger.Errorw("failed to get user", "query", query, "error", err)
		return nil, apperrors.NewStorageError("failed to get user", err)
	}
	return r.mapper.ToEntity(&model)
}

func (r *UserRepositoryImpl) MarkRegistrationNudged(ctx context.Context, id uint) error {
	err := db.GetTxFromContext(ctx, r.db).Model(&models.UserModel{}).
		Where("id = ?", id).
		Update("first_start_reminder_sent", true).Error
	if err != nil {
		r.logger.Errorw("failed to mark registration nudge", "id", id, "error", err)
		return apperrors.NewStorageError("failed to mark registration nudge", err)
	}
	return nil
}

func (r *UserRepositoryImpl) FindNudgeCandidates(ctx context.Context, createdBefore time.Time, limit int) ([]*subscription.User, error) {
	tx := db.GetTxFromContext(ctx, r.db)

	activeSubs := tx.Session(&gorm.Session{NewDB: true}).
		Table(constants.TableUserSubscriptions).
		Select("1").
		Where("user_subscriptions.user_id = users.id AND user_subscriptions.is_active = ?", true)

	var list []*models.UserModel
	err := tx.
		Where("created_at <= ? AND first_start_reminder_sent = ?", createdBefore.UTC(), false).
		Where("NOT EXISTS (?)", activeSubs).
		Order(clause.OrderByColumn{Column: clause.Column{Name: "id"}}).
		Limit(batchLimit(limit)).
		Find(&list).Error
	if err != nil {
		r.logger.Errorw("failed to find nudge candidates", "error", err)
		return nil, apperrors.NewStorageError("failed to find nudge candidates", err)
	}
	return r.mapper.ToEntities(list)
}
