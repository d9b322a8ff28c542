package usecases

import (
	"context"
	"fmt"
	"time"

	"github.com/channelgate/channelgate/internal/application/subscription/dto"
	"github.com/channelgate/channelgate/internal/domain/subscription"
	"github.com/channelgate/channelgate/internal/shared/biztime"
	"github.com/channelgate/channelgate/internal/shared/logger"
)

type GetCurrentSubscriptionUseCase struct {
	userRepo         subscription.UserRepository
	planRepo         subscription.PlanRepository
	subscriptionRepo subscription.SubscriptionRepository
	logger           logger.Interface
	now              func() time.Time
}

func NewGetCurrentSubscriptionUseCase(
	userRepo subscription.UserRepository,
	planRepo subscription.PlanRepository,
	subscriptionRepo subscription.SubscriptionRepository,
	logger logger.Interface,
) *GetCurrentSubscriptionUseCase {
	return &GetCurrentSubscriptionUseCase{
		userRepo:         userRepo,
		planRepo:         planRepo,
		subscriptionRepo: subscriptionRepo,
		logger:           logger,
		now:              func() time.Time { return time.Now().UTC() },
	}
}

// Execute returns nil without error when the user holds no current grant.
func (uc *GetCurrentSubscriptionUseCase) Execute(ctx context.Context, telegramUserID string) (*dto.CurrentSubscriptionDTO, error) {
	user, err := uc.userRepo.GetByTelegramID(ctx, telegramUserID)
	if err != nil {
		uc.logger.Errorw("failed to get user", "error", err, "telegram_user_id", telegramUserID)
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	if user == nil {
		return nil, nil
	}

	now := uc.now()
	sub, err := uc.subscriptionRepo.GetCurrentByUserID(ctx, user.ID(), now)
	if err != nil {
		uc.logger.Errorw("failed to get current subscription", "error", err, "user_id", user.ID())
		return nil, fmt.Errorf("failed to get current subscription: %w", err)
	}
	if sub == nil {
		return nil, nil
	}

	result := &dto.CurrentSubscriptionDTO{
		SubscriptionID: sub.ID(),
		PlanID:         sub.PlanID(),
		EndDate:        sub.EndDate(),
		DaysLeft:       biztime.DaysBetween(now, sub.EndDate()),
		InviteLink:     sub.InviteLink(),
	}

	plan, err := uc.planRepo.GetByID(ctx, sub.PlanID())
	if err != nil {
		uc.logger.Errorw("failed to get plan", "error", err, "plan_id", sub.PlanID())
		return nil, fmt.Errorf("failed to get plan: %w", err)
	}
	if plan != nil {
		result.PlanName = plan.Name()
		result.ChannelID = plan.ChannelID()
	}
	return result, nil
}
