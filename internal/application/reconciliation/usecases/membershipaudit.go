package usecases

import (
	"context"
	"fmt"
	"time"

	"github.com/channelgate/channelgate/internal/domain/subscription"
	"github.com/channelgate/channelgate/internal/shared/db"
	"github.com/channelgate/channelgate/internal/shared/logger"
)

// MembershipAuditJob closes drift between the store and the channel. It walks every grant
// that ended more than the buffer ago, whatever its active flag, and makes sure the owner
// is no longer a member unless another current grant covers them.
type MembershipAuditJob struct {
	base
	txMgr            *db.TransactionManager
	userRepo         subscription.UserRepository
	planRepo         subscription.PlanRepository
	subscriptionRepo subscription.SubscriptionRepository
	gateway          subscription.MembershipGateway
	buffer           time.Duration
}

func NewMembershipAuditJob(
	txMgr *db.TransactionManager,
	userRepo subscription.UserRepository,
	planRepo subscription.PlanRepository,
	subscriptionRepo subscription.SubscriptionRepository,
	gateway subscription.MembershipGateway,
	buffer time.Duration,
	logger logger.Interface,
) *MembershipAuditJob {
	if buffer <= 0 {
		buffer = DefaultAuditBuffer
	}
	return &MembershipAuditJob{
		base:             newBase(JobMembershipAudit, logger),
		txMgr:            txMgr,
		userRepo:         userRepo,
		planRepo:         planRepo,
		subscriptionRepo: subscriptionRepo,
		gateway:          gateway,
		buffer:           buffer,
	}
}

func (j *MembershipAuditJob) Name() string { return JobMembershipAudit }

// Execute pages through the ended grants by id and returns how many rows were deactivated
// or had their owner removed from the channel.
func (j *MembershipAuditJob) Execute(ctx context.Context) (int, error) {
	log := j.runLogger()
	cutoff := j.now().Add(-j.buffer)

	changed, checked := 0, 0
	var afterID uint
	for {
		if ctx.Err() != nil {
			return changed, ctx.Err()
		}

		page, err := j.subscriptionRepo.FindEndedBefore(ctx, cutoff, afterID, j.batchSize)
		if err != nil {
			return changed, fmt.Errorf("failed to find subscriptions for audit: %w", err)
		}

		for _, sub := range page {
			afterID = sub.ID()
			checked++
			ok, err := j.audit(ctx, log, sub.ID())
			if err != nil {
				log.Errorw("membership audit failed", "error", err, "subscription_id", sub.ID())
				continue
			}
			if ok {
				changed++
			}
		}

		if len(page) < j.batchSize {
			break
		}
	}

	log.Infow("membership audit finished", "checked", checked, "changed", changed)
	return changed, nil
}

func (j *MembershipAuditJob) audit(ctx context.Context, log logger.Interface, subscriptionID uint) (bool, error) {
	changed := false
	err := j.txMgr.RunInTransaction(ctx, func(txCtx context.Context) error {
		sub, err := j.subscriptionRepo.GetByIDForUpdate(txCtx, subscriptionID)
		if err != nil {
			return fmt.Errorf("failed to get subscription: %w", err)
		}
		now := j.now()
		// Extended since it was selected.
		if sub == nil || sub.IsCurrent(now) {
			return nil
		}

		overlapping, err := j.subscriptionRepo.HasOtherCurrent(txCtx, sub.UserID(), sub.ID(), now)
		if err != nil {
			return fmt.Errorf("failed to check overlapping subscriptions: %w", err)
		}

		if overlapping {
			if sub.IsActive() {
				log.Warnw("audit flipped stale grant without kicking: user holds another current subscription",
					"subscription_id", sub.ID(),
					"user_id", sub.UserID(),
				)
			}
		} else if j.removeIfPresent(txCtx, log, sub) {
			changed = true
		}

		if !sub.IsActive() && !sub.HasInviteLink() {
			return nil
		}
		sub.Deactivate(now)
		if err := j.subscriptionRepo.Update(txCtx, sub); err != nil {
			return fmt.Errorf("failed to deactivate subscription: %w", err)
		}
		changed = true
		return nil
	})
	return changed, err
}

// removeIfPresent kicks the owner when the channel still lists them and revokes any
// stored invite. It reports whether a kick went through.
func (j *MembershipAuditJob) removeIfPresent(ctx context.Context, log logger.Interface, sub *subscription.Subscription) bool {
	plan, err := j.planRepo.GetByID(ctx, sub.PlanID())
	if err != nil || plan == nil {
		log.Warnw("cannot resolve channel for audit", "error", err, "subscription_id", sub.ID(), "plan_id", sub.PlanID())
		return false
	}
	if !plan.HasChannel() {
		return false
	}

	if sub.HasInviteLink() {
		if err := j.gateway.RevokeInvite(ctx, plan.ChannelID(), sub.InviteLink()); err != nil {
			log.Warnw("failed to revoke stale invite link", "error", err, "subscription_id", sub.ID())
		}
	}

	user, err := j.userRepo.GetByID(ctx, sub.UserID())
	if err != nil || user == nil {
		log.Warnw("cannot resolve member for audit", "error", err, "subscription_id", sub.ID(), "user_id", sub.UserID())
		return false
	}

	status, err := j.gateway.MembershipStatus(ctx, plan.ChannelID(), user.TelegramUserID())
	if err != nil {
		log.Warnw("failed to query membership, retrying next run", "error", err, "subscription_id", sub.ID())
		return false
	}
	if !status.IsPresent() {
		return false
	}

	if err := j.gateway.RevokeMembership(ctx, plan.ChannelID(), user.TelegramUserID()); err != nil {
		log.Warnw("failed to remove lingering member", "error", err, "subscription_id", sub.ID())
		return false
	}
	log.Infow("removed lingering member",
		"subscription_id", sub.ID(),
		"telegram_user_id", user.TelegramUserID(),
		"status", string(status),
	)
	return true
}
