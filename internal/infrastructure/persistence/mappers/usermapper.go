package mappers

import (
	"fmt"

	"github.com/channelgate/channelgate/internal/domain/subscription"
	"github.com/channelgate/channelgate/internal/infrastructure/persistence/models"
	"github.com/channelgate/channelgate/internal/shared/mapper"
)

type UserMapper interface {
	ToEntity(model *models.UserModel) (*subscription.User, error)
	ToModel(entity *subscription.User) *models.UserModel
	ToEntities(models []*models.UserModel) ([]*subscription.User, error)
}

type UserMapperImpl struct{}

func NewUserMapper() UserMapper {
	return &UserMapperImpl{}
}

func (m *UserMapperImpl) ToEntity(model *models.UserModel) (*subscription.User, error) {
	if model == nil {
		return nil, nil
	}
	entity, err := subscription.ReconstructUser(subscription.UserReconstructParams{
		ID:                 model.ID,
		TelegramUserID:     model.TelegramUserID,
		FirstName:          model.FirstName,
		LanguageCode:       model.LanguageCode,
		Active:             model.IsActive,
		RegistrationNudged: model.FirstStartReminderSent,
		CreatedAt:          model.CreatedAt,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to reconstruct user entity: %w", err)
	}
	return entity, nil
}

func (m *UserMapperImpl) ToModel(entity *subscription.User) *models.UserModel {
	if entity == nil {
		return nil
	}
	return &models.UserModel{
		ID:                     entity.ID(),
		TelegramUserID:         entity.TelegramUserID(),
		FirstName:              stringPtr(entity.FirstName()),
		LanguageCode:           entity.LanguageCode(),
		IsActive:               entity.IsActive(),
		FirstStartReminderSent: entity.RegistrationNudged(),
		CreatedAt:              entity.CreatedAt(),
	}
}

func (m *UserMapperImpl) ToEntities(modelList []*models.UserModel) ([]*subscription.User, error) {
	return mapper.MapSlicePtrWithID(modelList, m.ToEntity, func(model *models.UserModel) uint { return model.ID })
}
