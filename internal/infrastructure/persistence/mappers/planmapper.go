package mappers

import (
	"fmt"

	"github.com/channelgate/channelgate/internal/domain/subscription"
	"github.com/channelgate/channelgate/internal/infrastructure/persistence/models"
	"github.com/channelgate/channelgate/internal/shared/mapper"
)

type PlanMapper interface {
	ToEntity(model *models.PlanModel) (*subscription.Plan, error)
	ToModel(entity *subscription.Plan) *models.PlanModel
	ToEntities(models []*models.PlanModel) ([]*subscription.Plan, error)
}

type PlanMapperImpl struct{}

func NewPlanMapper() PlanMapper {
	return &PlanMapperImpl{}
}

func (m *PlanMapperImpl) ToEntity(model *models.PlanModel) (*subscription.Plan, error) {
	if model == nil {
		return nil, nil
	}
	entity, err := subscription.ReconstructPlan(
		model.ID,
		model.Name,
		model.Description,
		model.Price,
		model.DurationDays,
		model.ChannelID,
		model.RetiredAt,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to reconstruct plan entity: %w", err)
	}
	return entity, nil
}

func (m *PlanMapperImpl) ToModel(entity *subscription.Plan) *models.PlanModel {
	if entity == nil {
		return nil
	}
	return &models.PlanModel{
		ID:           entity.ID(),
		Name:         entity.Name(),
		Description:  entity.Description(),
		Price:        entity.Price(),
		DurationDays: entity.DurationDays(),
		ChannelID:    stringPtr(entity.ChannelID()),
		RetiredAt:    entity.RetiredAt(),
	}
}

func (m *PlanMapperImpl) ToEntities(modelList []*models.PlanModel) ([]*subscription.Plan, error) {
	return mapper.MapSlicePtrWithID(modelList, m.ToEntity, func(model *models.PlanModel) uint { return model.ID })
}
