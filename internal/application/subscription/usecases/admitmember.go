package usecases

import (
	"context"
	"fmt"

	"github.com/channelgate/channelgate/internal/domain/subscription"
	"github.com/channelgate/channelgate/internal/infrastructure/metrics"
	"github.com/channelgate/channelgate/internal/shared/db"
	"github.com/channelgate/channelgate/internal/shared/logger"
)

type AdmitMemberCommand struct {
	ChannelID      string
	InviteLink     string
	TelegramUserID string
}

// AdmitMemberUseCase answers a channel join request. A valid request is approved and
// its single-use link is consumed: revoked at the platform and cleared from the row.
type AdmitMemberUseCase struct {
	txMgr            *db.TransactionManager
	subscriptionRepo subscription.SubscriptionRepository
	validateUC       *ValidateJoinUseCase
	gateway          subscription.MembershipGateway
	logger           logger.Interface
}

func NewAdmitMemberUseCase(
	txMgr *db.TransactionManager,
	subscriptionRepo subscription.SubscriptionRepository,
	validateUC *ValidateJoinUseCase,
	gateway subscription.MembershipGateway,
	logger logger.Interface,
) *AdmitMemberUseCase {
	return &AdmitMemberUseCase{
		txMgr:            txMgr,
		subscriptionRepo: subscriptionRepo,
		validateUC:       validateUC,
		gateway:          gateway,
		logger:           logger,
	}
}

func (uc *AdmitMemberUseCase) Execute(ctx context.Context, cmd AdmitMemberCommand) (*JoinDecision, error) {
	decision, err := uc.validateUC.Execute(ctx, cmd.InviteLink, cmd.TelegramUserID)
	if err != nil {
		metrics.LifecycleOp("admit", err)
		return nil, err
	}

	if !decision.Valid {
		uc.logger.Warnw("join request rejected",
			"reason", decision.Reason,
			"channel_id", cmd.ChannelID,
			"telegram_user_id", cmd.TelegramUserID,
		)
		if err := uc.Decline(ctx, cmd.ChannelID, cmd.TelegramUserID); err != nil {
			return decision, err
		}
		metrics.LifecycleOp("admit", nil, "declined")
		return decision, nil
	}

	if err := uc.gateway.ApproveJoin(ctx, cmd.ChannelID, cmd.TelegramUserID); err != nil {
		uc.logger.Errorw("failed to approve join request",
			"error", err,
			"channel_id", cmd.ChannelID,
			"telegram_user_id", cmd.TelegramUserID,
		)
		metrics.LifecycleOp("admit", err)
		return nil, fmt.Errorf("failed to approve join request: %w", err)
	}

	// The member is in; a failure below leaves a dangling link that the owner can no
	// longer reuse once the grant ends.
	if err := uc.consumeLink(ctx, decision.Subscription.ID(), cmd.ChannelID, cmd.InviteLink); err != nil {
		uc.logger.Errorw("failed to consume invite link after approval",
			"error", err,
			"subscription_id", decision.Subscription.ID(),
		)
	}

	metrics.LifecycleOp("admit", nil)
	uc.logger.Infow("join request approved",
		"subscription_id", decision.Subscription.ID(),
		"telegram_user_id", cmd.TelegramUserID,
	)
	return decision, nil
}

// Decline rejects a join request outright.
func (uc *AdmitMemberUseCase) Decline(ctx context.Context, channelID, telegramUserID string) error {
	if err := uc.gateway.DeclineJoin(ctx, channelID, telegramUserID); err != nil {
		uc.logger.Warnw("failed to decline join request",
			"error", err,
			"channel_id", channelID,
			"telegram_user_id", telegramUserID,
		)
		return fmt.Errorf("failed to decline join request: %w", err)
	}
	return nil
}

func (uc *AdmitMemberUseCase) consumeLink(ctx context.Context, subscriptionID uint, channelID, link string) error {
	return uc.txMgr.RunInTransaction(ctx, func(txCtx context.Context) error {
		sub, err := uc.subscriptionRepo.GetByIDForUpdate(txCtx, subscriptionID)
		if err != nil {
			return fmt.Errorf("failed to get subscription: %w", err)
		}
		// Regenerated in the meantime.
		if sub == nil || sub.InviteLink() != link {
			return nil
		}

		if err := uc.gateway.RevokeInvite(txCtx, channelID, link); err != nil {
			uc.logger.Warnw("failed to revoke consumed invite link", "error", err, "subscription_id", sub.ID())
		}
		sub.ClearInviteLink(uc.validateUC.now())
		if err := uc.subscriptionRepo.Update(txCtx, sub); err != nil {
			return fmt.Errorf("failed to clear invite link: %w", err)
		}
		return nil
	})
}
