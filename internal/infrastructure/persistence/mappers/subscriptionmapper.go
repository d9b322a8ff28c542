package mappers

import (
	"fmt"

	"github.com/channelgate/channelgate/internal/domain/subscription"
	"github.com/channelgate/channelgate/internal/infrastructure/persistence/models"
	"github.com/channelgate/channelgate/internal/shared/mapper"
)

type SubscriptionMapper interface {
	ToEntity(model *models.SubscriptionModel) (*subscription.Subscription, error)
	ToModel(entity *subscription.Subscription) *models.SubscriptionModel
	ToEntities(models []*models.SubscriptionModel) ([]*subscription.Subscription, error)
}

type SubscriptionMapperImpl struct{}

func NewSubscriptionMapper() SubscriptionMapper {
	return &SubscriptionMapperImpl{}
}

func (m *SubscriptionMapperImpl) ToEntity(model *models.SubscriptionModel) (*subscription.Subscription, error) {
	if model == nil {
		return nil, nil
	}
	entity, err := subscription.ReconstructSubscription(subscription.SubscriptionReconstructParams{
		ID:                  model.ID,
		UserID:              model.UserID,
		PlanID:              model.PlanID,
		StartDate:           model.StartDate,
		EndDate:             model.EndDate,
		Active:              model.IsActive,
		InviteLink:          model.InviteLink,
		ReminderSent:        model.ReminderSent,
		LastDayReminderSent: model.LastDayReminderSent,
		ExpiredReminderSent: model.ExpiredReminderSent,
		PaymentChargeID:     model.ProviderPaymentChargeID,
		CreatedAt:           model.CreatedAt,
		UpdatedAt:           model.UpdatedAt,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to reconstruct subscription entity: %w", err)
	}
	return entity, nil
}

func (m *SubscriptionMapperImpl) ToModel(entity *subscription.Subscription) *models.SubscriptionModel {
	if entity == nil {
		return nil
	}
	return &models.SubscriptionModel{
		ID:                      entity.ID(),
		UserID:                  entity.UserID(),
		PlanID:                  entity.PlanID(),
		StartDate:               entity.StartDate(),
		EndDate:                 entity.EndDate(),
		IsActive:                entity.IsActive(),
		InviteLink:              stringPtr(entity.InviteLink()),
		ReminderSent:            entity.ReminderSent(),
		LastDayReminderSent:     entity.LastDayReminderSent(),
		ExpiredReminderSent:     entity.ExpiredReminderSent(),
		ProviderPaymentChargeID: stringPtr(entity.PaymentChargeID()),
		CreatedAt:               entity.CreatedAt(),
		UpdatedAt:               entity.UpdatedAt(),
	}
}

func (m *SubscriptionMapperImpl) ToEntities(modelList []*models.SubscriptionModel) ([]*subscription.Subscription, error) {
	return mapper.MapSlicePtrWithID(modelList, m.ToEntity, func(model *models.SubscriptionModel) uint { return model.ID })
}
