package usecases

import (
	"context"
	"fmt"
	"time"

	"github.com/channelgate/channelgate/internal/application/subscription/dto"
	"github.com/channelgate/channelgate/internal/domain/subscription"
	"github.com/channelgate/channelgate/internal/infrastructure/metrics"
	"github.com/channelgate/channelgate/internal/shared/db"
	apperrors "github.com/channelgate/channelgate/internal/shared/errors"
	"github.com/channelgate/channelgate/internal/shared/logger"
)

type GrantSubscriptionCommand struct {
	TelegramUserID string
	FirstName      string
	PlanID         uint
	// ChargeID is the provider transaction that paid for the grant, empty for manual grants.
	ChargeID string
}

// GrantSubscriptionUseCase creates the one active grant of a user. Every earlier row of the
// user is deactivated in the same transaction, and a failed invite rolls everything back.
type GrantSubscriptionUseCase struct {
	txMgr            *db.TransactionManager
	userRepo         subscription.UserRepository
	planRepo         subscription.PlanRepository
	subscriptionRepo subscription.SubscriptionRepository
	gateway          subscription.MembershipGateway
	logger           logger.Interface
	now              func() time.Time
}

func NewGrantSubscriptionUseCase(
	txMgr *db.TransactionManager,
	userRepo subscription.UserRepository,
	planRepo subscription.PlanRepository,
	subscriptionRepo subscription.SubscriptionRepository,
	gateway subscription.MembershipGateway,
	logger logger.Interface,
) *GrantSubscriptionUseCase {
	return &GrantSubscriptionUseCase{
		txMgr:            txMgr,
		userRepo:         userRepo,
		planRepo:         planRepo,
		subscriptionRepo: subscriptionRepo,
		gateway:          gateway,
		logger:           logger,
		now:              func() time.Time { return time.Now().UTC() },
	}
}

func (uc *GrantSubscriptionUseCase) Execute(ctx context.Context, cmd GrantSubscriptionCommand) (*dto.GrantResultDTO, error) {
	result, err := uc.execute(ctx, cmd)
	metrics.LifecycleOp("grant", err)
	return result, err
}

func (uc *GrantSubscriptionUseCase) execute(ctx context.Context, cmd GrantSubscriptionCommand) (*dto.GrantResultDTO, error) {
	plan, err := uc.planRepo.GetByID(ctx, cmd.PlanID)
	if err != nil {
		uc.logger.Errorw("failed to get plan", "error", err, "plan_id", cmd.PlanID)
		return nil, fmt.Errorf("failed to get plan: %w", err)
	}
	if plan == nil {
		return nil, apperrors.NewValidationError(subscription.ErrPlanNotFound.Error(), fmt.Sprintf("plan_id=%d", cmd.PlanID))
	}

	now := uc.now()
	var result *dto.GrantResultDTO

	err = uc.txMgr.RunInTransaction(ctx, func(txCtx context.Context) error {
		user, _, err := resolveUser(txCtx, uc.userRepo, RegisterUserCommand{
			TelegramUserID: cmd.TelegramUserID,
			FirstName:      cmd.FirstName,
		}, now)
		if err != nil {
			return err
		}

		deactivated, err := uc.subscriptionRepo.DeactivateAllByUserID(txCtx, user.ID(), now)
		if err != nil {
			return fmt.Errorf("failed to deactivate previous subscriptions: %w", err)
		}

		sub, err := subscription.NewSubscription(user.ID(), plan.ID(), now, plan.Duration())
		if err != nil {
			return apperrors.NewValidationError("invalid subscription", err.Error())
		}
		sub.RecordPayment(cmd.ChargeID)
		if err := uc.subscriptionRepo.Create(txCtx, sub); err != nil {
			return fmt.Errorf("failed to create subscription: %w", err)
		}

		if plan.HasChannel() {
			invite, err := uc.gateway.CreateInvite(txCtx, plan.ChannelID(), user.TelegramUserID())
			if err != nil {
				return fmt.Errorf("failed to create invite link: %w", err)
			}
			sub.AttachInviteLink(invite.Link, now)
			if err := uc.subscriptionRepo.Update(txCtx, sub); err != nil {
				return fmt.Errorf("failed to store invite link: %w", err)
			}
		}

		if deactivated > 0 {
			uc.logger.Infow("previous subscriptions deactivated by new grant",
				"user_id", user.ID(),
				"count", deactivated,
			)
		}

		result = &dto.GrantResultDTO{
			SubscriptionID: sub.ID(),
			UserID:         user.ID(),
			PlanName:       plan.Name(),
			EndDate:        sub.EndDate(),
			InviteLink:     sub.InviteLink(),
		}
		return nil
	})
	if err != nil {
		uc.logger.Errorw("failed to grant subscription",
			"error", err,
			"telegram_user_id", cmd.TelegramUserID,
			"plan_id", cmd.PlanID,
		)
		return nil, err
	}

	uc.logger.Infow("subscription granted",
		"subscription_id", result.SubscriptionID,
		"user_id", result.UserID,
		"plan_id", cmd.PlanID,
		"end_date", result.EndDate,
	)
	return result, nil
}
