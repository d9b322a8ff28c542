package usecases

import (
	"context"
	"fmt"

	"github.com/channelgate/channelgate/internal/domain/subscription"
	"github.com/channelgate/channelgate/internal/shared/logger"
)

// CancelSubscriptionUseCase lets a user end their own current grant.
type CancelSubscriptionUseCase struct {
	userRepo         subscription.UserRepository
	subscriptionRepo subscription.SubscriptionRepository
	revoke           *RevokeSubscriptionUseCase
	logger           logger.Interface
}

func NewCancelSubscriptionUseCase(
	userRepo subscription.UserRepository,
	subscriptionRepo subscription.SubscriptionRepository,
	revoke *RevokeSubscriptionUseCase,
	logger logger.Interface,
) *CancelSubscriptionUseCase {
	return &CancelSubscriptionUseCase{
		userRepo:         userRepo,
		subscriptionRepo: subscriptionRepo,
		revoke:           revoke,
		logger:           logger,
	}
}

// Execute returns false when there was nothing to cancel.
func (uc *CancelSubscriptionUseCase) Execute(ctx context.Context, telegramUserID string) (bool, error) {
	user, err := uc.userRepo.GetByTelegramID(ctx, telegramUserID)
	if err != nil {
		return false, fmt.Errorf("failed to get user: %w", err)
	}
	if user == nil {
		return false, nil
	}

	sub, err := uc.subscriptionRepo.GetCurrentByUserID(ctx, user.ID(), uc.revoke.now())
	if err != nil {
		return false, fmt.Errorf("failed to get current subscription: %w", err)
	}
	if sub == nil {
		return false, nil
	}

	if _, err := uc.revoke.Execute(ctx, sub.ID()); err != nil {
		return false, err
	}
	uc.logger.Infow("subscription cancelled by user", "subscription_id", sub.ID(), "user_id", user.ID())
	return true, nil
}
