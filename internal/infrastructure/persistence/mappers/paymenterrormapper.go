package mappers

import (
	"encoding/json"
	"fmt"

	"gorm.io/datatypes"

	"github.com/channelgate/channelgate/internal/domain/subscription"
	"github.com/channelgate/channelgate/internal/infrastructure/persistence/models"
	"github.com/channelgate/channelgate/internal/shared/mapper"
)

type PaymentErrorMapper interface {
	ToEntity(model *models.PaymentErrorModel) (*subscription.PaymentError, error)
	ToModel(entity *subscription.PaymentError) (*models.PaymentErrorModel, error)
	ToEntities(models []*models.PaymentErrorModel) ([]*subscription.PaymentError, error)
}

type PaymentErrorMapperImpl struct{}

func NewPaymentErrorMapper() PaymentErrorMapper {
	return &PaymentErrorMapperImpl{}
}

func (m *PaymentErrorMapperImpl) ToEntity(model *models.PaymentErrorModel) (*subscription.PaymentError, error) {
	if model == nil {
		return nil, nil
	}

	var info map[string]any
	if len(model.PaymentInfo) > 0 {
		if err := json.Unmarshal(model.PaymentInfo, &info); err != nil {
			return nil, fmt.Errorf("failed to unmarshal payment info: %w", err)
		}
	}

	entity, err := subscription.ReconstructPaymentError(subscription.PaymentErrorReconstructParams{
		ID: model.ID,
		Params: subscription.PaymentErrorParams{
			TelegramUserID: model.TelegramUserID,
			PlanID:         model.PlanID,
			ChargeID:       model.ProviderPaymentChargeID,
			Amount:         model.PaymentAmount,
			Currency:       model.PaymentCurrency,
			ErrorMessage:   model.ErrorMessage,
			InvoicePayload: model.InvoicePayload,
			PaymentInfo:    info,
			StackTrace:     model.StackTrace,
			PaymentTime:    model.PaymentTime,
		},
		Resolved:        model.IsResolved,
		ResolutionNotes: model.ResolutionNotes,
		ResolvedAt:      model.ResolutionTime,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to reconstruct payment error entity: %w", err)
	}
	return entity, nil
}

func (m *PaymentErrorMapperImpl) ToModel(entity *subscription.PaymentError) (*models.PaymentErrorModel, error) {
	if entity == nil {
		return nil, nil
	}

	var infoJSON datatypes.JSON
	if info := entity.PaymentInfo(); len(info) > 0 {
		data, err := json.Marshal(info)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal payment info: %w", err)
		}
		infoJSON = data
	}

	return &models.PaymentErrorModel{
		ID:                      entity.ID(),
		TelegramUserID:          entity.TelegramUserID(),
		PlanID:                  entity.PlanID(),
		ProviderPaymentChargeID: entity.ChargeID(),
		PaymentAmount:           entity.Amount(),
		PaymentCurrency:         entity.Currency(),
		ErrorMessage:            entity.ErrorMessage(),
		InvoicePayload:          entity.InvoicePayload(),
		PaymentInfo:             infoJSON,
		StackTrace:              entity.StackTrace(),
		IsResolved:              entity.IsResolved(),
		ResolutionNotes:         entity.ResolutionNotes(),
		ResolutionTime:          entity.ResolvedAt(),
		PaymentTime:             entity.PaymentTime(),
	}, nil
}

func (m *PaymentErrorMapperImpl) ToEntities(modelList []*models.PaymentErrorModel) ([]*subscription.PaymentError, error) {
	return mapper.MapSlicePtrWithID(modelList, m.ToEntity, func(model *models.PaymentErrorModel) uint { return model.ID })
}
