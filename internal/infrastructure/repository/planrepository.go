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

// durationEpsilon absorbs float round-tripping of fractional day counts.
const durationEpsilon = 1e-9

type PlanRepositoryImpl struct {
	db     *gorm.DB
	mapper mappers.PlanMapper
	logger logger.Interface
}

func NewPlanRepository(db *gorm.DB, logger logger.Interface) subscription.PlanRepository {
	return &PlanRepositoryImpl{
		db:     db,
		mapper: mappers.NewPlanMapper(),
		logger: logger,
	}
}

func (r *PlanRepositoryImpl) Create(ctx context.Context, plan *subscription.Plan) error {
	model := r.mapper.ToModel(plan)

	if err := db.GetTxFromContext(ctx, r.db).Create(model).Error; err != nil {
		r.logger.Errorw("failed to create plan", "name", plan.Name(), "error", err)
		return apperrors.NewStorageError("failed to create plan", err)
	}
	if err := plan.SetID(model.ID); err != nil {
		return fmt.Errorf("failed to set plan ID: %w", err)
	}

	r.logger.Infow("plan created", "id", model.ID, "name", model.Name, "price", model.Price, "duration_days", model.DurationDays)
	return nil
}

func (r *PlanRepositoryImpl) Update(ctx context.Context, plan *subscription.Plan) error {
	model := r.mapper.ToModel(plan)

	result := db.GetTxFromContext(ctx, r.db).Model(&models.PlanModel{}).
		Where("id = ?", model.ID).
		Updates(map[string]interface{}{
			"description": model.Description,
			"channel_id":  model.ChannelID,
			"retired_at":  model.RetiredAt,
		})
	if result.Error != nil {
		r.logger.Errorw("failed to update plan", "id", model.ID, "error", result.Error)
		return apperrors.NewStorageError("failed to update plan", result.Error)
	}
	if result.RowsAffected == 0 {
		return subscription.ErrPlanNotFound
	}
	return nil
}

func (r *PlanRepositoryImpl) GetByID(ctx context.Context, id uint) (*subscription.Plan, error) {
	var model models.PlanModel
	if err := db.GetTxFromContext(ctx, r.db).First(&model, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		r.logger.Errorw("failed to get plan", "id", id, "error", err)
		return nil, apperrors.NewStorageError("failed to get plan", err)
	}
	return r.mapper.ToEntity(&model)
}

func (r *PlanRepositoryImpl) FindByIdentity(ctx context.Context, name string, price int64, durationDays float64) (*subscription.Plan, error) {
	var model models.PlanModel
	err := db.GetTxFromContext(ctx, r.db).
		Where("name = ? AND price = ?", name, price).
		Where("duration_days BETWEEN ? AND ?", durationDays-durationEpsilon, durationDays+durationEpsilon).
		Order("id ASC").
		First(&model).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		r.logger.Errorw("failed to find plan by identity", "name", name, "error", err)
		return nil, apperrors.NewStorageError("failed to find plan", err)
	}
	return r.mapper.ToEntity(&model)
}

func (r *PlanRepositoryImpl) FindLatestByName(ctx context.Context, name string) (*subscription.Plan, error) {
	var model models.PlanModel
	err := db.GetTxFromContext(ctx, r.db).
		Where("name = ?", name).
		Order("id DESC").
		First(&model).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		r.logger.Errorw("failed to find plan by name", "name", name, "error", err)
		return nil, apperrors.NewStorageError("failed to find plan", err)
	}
	return r.mapper.ToEntity(&model)
}

func (r *PlanRepositoryImpl) List(ctx context.Context) ([]*subscription.Plan, error) {
	return r.list(db.GetTxFromContext(ctx, r.db))
}

func (r *PlanRepositoryImpl) ListCurrent(ctx context.Context) ([]*subscription.Plan, error) {
	return r.list(db.GetTxFromContext(ctx, r.db).Where("retired_at IS NULL"))
}

func (r *PlanRepositoryImpl) list(q *gorm.DB) ([]*subscription.Plan, error) {
	var list []*models.PlanModel
	if err := q.Order("id ASC").Find(&list).Error; err != nil {
		r.logger.Errorw("failed to list plans", "error", err)
		return nil, apperrors.NewStorageError("failed to list plans", err)
	}
	return r.mapper.ToEntities(list)
}
