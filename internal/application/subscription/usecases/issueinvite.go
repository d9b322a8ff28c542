package usecases

import (
	"context"
	"fmt"
	"time"

	"github.com/channelgate/channelgate/internal/domain/subscription"
	"github.com/channelgate/channelgate/internal/shared/db"
	apperrors "github.com/channelgate/channelgate/internal/shared/errors"
	"github.com/channelgate/channelgate/internal/shared/logger"
)

// IssueInviteUseCase replaces the invite link of a current grant: the old link is revoked,
// a new one is created and stored.
type IssueInviteUseCase struct {
	txMgr            *db.TransactionManager
	userRepo         subscription.UserRepository
	planRepo         subscription.PlanRepository
	subscriptionRepo subscription.SubscriptionRepository
	gateway          subscription.MembershipGateway
	logger           logger.Interface
	now              func() time.Time
}

func NewIssueInviteUseCase(
	txMgr *db.TransactionManager,
	userRepo subscription.UserRepository,
	planRepo subscription.PlanRepository,
	subscriptionRepo subscription.SubscriptionRepository,
	gateway subscription.MembershipGateway,
	logger logger.Interface,
) *IssueInviteUseCase {
	return &IssueInviteUseCase{
		txMgr:            txMgr,
		userRepo:         userRepo,
		planRepo:         planRepo,
		subscriptionRepo: subscriptionRepo,
		gateway:          gateway,
		logger:           logger,
		now:              func() time.Time { return time.Now().UTC() },
	}
}

// Execute returns the new link, or "" when the plan has no channel.
func (uc *IssueInviteUseCase) Execute(ctx context.Context, subscriptionID uint) (string, error) {
	var link string
	err := uc.txMgr.RunInTransaction(ctx, func(txCtx context.Context) error {
		sub, err := uc.subscriptionRepo.GetByIDForUpdate(txCtx, subscriptionID)
		if err != nil {
			return fmt.Errorf("failed to get subscription: %w", err)
		}
		if sub == nil {
			return subscription.ErrSubscriptionNotFound
		}
		now := uc.now()
		if !sub.IsCurrent(now) {
			return apperrors.NewValidationError(subscription.ErrNoActiveSubscription.Error())
		}

		plan, err := uc.planRepo.GetByID(txCtx, sub.PlanID())
		if err != nil {
			return fmt.Errorf("failed to get plan: %w", err)
		}
		if plan == nil || !plan.HasChannel() {
			return nil
		}
		user, err := uc.userRepo.GetByID(txCtx, sub.UserID())
		if err != nil {
			return fmt.Errorf("failed to get user: %w", err)
		}
		if user == nil {
			return subscription.ErrUserNotFound
		}

		if sub.HasInviteLink() {
			if err := uc.gateway.RevokeInvite(txCtx, plan.ChannelID(), sub.InviteLink()); err != nil {
				uc.logger.Warnw("failed to revoke previous invite link", "error", err, "subscription_id", sub.ID())
			}
		}

		invite, err := uc.gateway.CreateInvite(txCtx, plan.ChannelID(), user.TelegramUserID())
		if err != nil {
			return fmt.Errorf("failed to create invite link: %w", err)
		}
		sub.AttachInviteLink(invite.Link, now)
		if err := uc.subscriptionRepo.Update(txCtx, sub); err != nil {
			return fmt.Errorf("failed to store invite link: %w", err)
		}
		link = invite.Link
		return nil
	})
	if err != nil {
		uc.logger.Errorw("failed to issue invite link", "error", err, "subscription_id", subscriptionID)
		return "", err
	}

	if link != "" {
		uc.logger.Infow("invite link issued", "subscription_id", subscriptionID)
	}
	return link, nil
}
