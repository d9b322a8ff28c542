package handlers

import (
	"context"

	"github.com/channelgate/channelgate/internal/application/payment/usecases"
	"github.com/channelgate/channelgate/internal/domain/subscription"
)

type listPaymentErrorsUseCase interface {
	Execute(ctx context.Context, limit int) ([]*subscription.PaymentError, error)
}

type resolvePaymentErrorUseCase interface {
	Execute(ctx context.Context, cmd usecases.ResolvePaymentErrorCommand) (*subscription.PaymentError, error)
}
