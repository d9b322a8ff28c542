package usecases

import (
	"context"
	"fmt"
	"time"

	"github.com/channelgate/channelgate/internal/domain/subscription"
	"github.com/channelgate/channelgate/internal/infrastructure/metrics"
	"github.com/channelgate/channelgate/internal/shared/db"
	"github.com/channelgate/channelgate/internal/shared/logger"
)

// RevokeSubscriptionUseCase ends a grant and removes its owner from the channel.
//
// The row is re-read under a lock. When the owner holds another current grant the row is
// only flipped inactive and the channel is left alone. Otherwise the membership and the
// stored invite are revoked on a best-effort basis: the deactivation commits even when the
// platform is unreachable and the membership audit closes the gap later.
type RevokeSubscriptionUseCase struct {
	txMgr            *db.TransactionManager
	userRepo         subscription.UserRepository
	planRepo         subscription.PlanRepository
	subscriptionRepo subscription.SubscriptionRepository
	gateway          subscription.MembershipGateway
	logger           logger.Interface
	now              func() time.Time
}

func NewRevokeSubscriptionUseCase(
	txMgr *db.TransactionManager,
	userRepo subscription.UserRepository,
	planRepo subscription.PlanRepository,
	subscriptionRepo subscription.SubscriptionRepository,
	gateway subscription.MembershipGateway,
	logger logger.Interface,
) *RevokeSubscriptionUseCase {
	return &RevokeSubscriptionUseCase{
		txMgr:            txMgr,
		userRepo:         userRepo,
		planRepo:         planRepo,
		subscriptionRepo: subscriptionRepo,
		gateway:          gateway,
		logger:           logger,
		now:              func() time.Time { return time.Now().UTC() },
	}
}

// Execute returns true once the deactivation committed, whatever happened at the platform.
func (uc *RevokeSubscriptionUseCase) Execute(ctx context.Context, subscriptionID uint) (bool, error) {
	suppressed := false
	err := uc.txMgr.RunInTransaction(ctx, func(txCtx context.Context) error {
		sub, err := uc.subscriptionRepo.GetByIDForUpdate(txCtx, subscriptionID)
		if err != nil {
			return fmt.Errorf("failed to get subscription: %w", err)
		}
		if sub == nil {
			return subscription.ErrSubscriptionNotFound
		}

		now := uc.now()
		overlapping, err := uc.subscriptionRepo.HasOtherCurrent(txCtx, sub.UserID(), sub.ID(), now)
		if err != nil {
			return fmt.Errorf("failed to check overlapping subscriptions: %w", err)
		}

		if overlapping {
			suppressed = true
			uc.logger.Warnw("revoke suppressed: user holds another current subscription",
				"subscription_id", sub.ID(),
				"user_id", sub.UserID(),
			)
		} else {
			uc.revokeAccess(txCtx, sub)
		}

		sub.Deactivate(now)
		if err := uc.subscriptionRepo.Update(txCtx, sub); err != nil {
			return fmt.Errorf("failed to deactivate subscription: %w", err)
		}
		return nil
	})

	if suppressed && err == nil {
		metrics.LifecycleOp("revoke", nil, "suppressed")
	} else {
		metrics.LifecycleOp("revoke", err)
	}
	if err != nil {
		uc.logger.Errorw("failed to revoke subscription", "error", err, "subscription_id", subscriptionID)
		return false, err
	}

	uc.logger.Infow("subscription revoked", "subscription_id", subscriptionID, "suppressed", suppressed)
	return true, nil
}

// revokeAccess kicks the owner and revokes the stored invite. Failures are logged only.
func (uc *RevokeSubscriptionUseCase) revokeAccess(ctx context.Context, sub *subscription.Subscription) {
	plan, err := uc.planRepo.GetByID(ctx, sub.PlanID())
	if err != nil || plan == nil {
		uc.logger.Warnw("cannot resolve channel for revoke", "error", err, "subscription_id", sub.ID(), "plan_id", sub.PlanID())
		return
	}
	if !plan.HasChannel() {
		return
	}

	user, err := uc.userRepo.GetByID(ctx, sub.UserID())
	if err != nil || user == nil {
		uc.logger.Warnw("cannot resolve member for revoke", "error", err, "subscription_id", sub.ID(), "user_id", sub.UserID())
	} else if err := uc.gateway.RevokeMembership(ctx, plan.ChannelID(), user.TelegramUserID()); err != nil {
		uc.logger.Warnw("failed to remove member from channel, leaving it to the audit",
			"error", err,
			"subscription_id", sub.ID(),
			"telegram_user_id", user.TelegramUserID(),
		)
	}

	if sub.HasInviteLink() {
		if err := uc.gateway.RevokeInvite(ctx, plan.ChannelID(), sub.InviteLink()); err != nil {
			uc.logger.Warnw("failed to revoke invite link", "error", err, "subscription_id", sub.ID())
		}
	}
}
