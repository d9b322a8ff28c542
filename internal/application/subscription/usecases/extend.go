package usecases

import (
	"context"
	"fmt"
	"time"

	"github.com/channelgate/channelgate/internal/domain/subscription"
	"github.com/channelgate/channelgate/internal/infrastructure/metrics"
	"github.com/channelgate/channelgate/internal/shared/db"
	apperrors "github.com/channelgate/channelgate/internal/shared/errors"
	"github.com/channelgate/channelgate/internal/shared/logger"
)

type ExtendSubscriptionCommand struct {
	SubscriptionID uint
	Duration       time.Duration
	// ResetReminder restarts the pre-expiry reminder cycle.
	ResetReminder bool
}

// ExtendSubscriptionUseCase pushes the end date of a grant. It never touches the invite link;
// callers that need a fresh channel entry follow up with IssueInviteUseCase.
type ExtendSubscriptionUseCase struct {
	txMgr            *db.TransactionManager
	subscriptionRepo subscription.SubscriptionRepository
	logger           logger.Interface
	now              func() time.Time
}

func NewExtendSubscriptionUseCase(
	txMgr *db.TransactionManager,
	subscriptionRepo subscription.SubscriptionRepository,
	logger logger.Interface,
) *ExtendSubscriptionUseCase {
	return &ExtendSubscriptionUseCase{
		txMgr:            txMgr,
		subscriptionRepo: subscriptionRepo,
		logger:           logger,
		now:              func() time.Time { return time.Now().UTC() },
	}
}

func (uc *ExtendSubscriptionUseCase) Execute(ctx context.Context, cmd ExtendSubscriptionCommand) (*subscription.Subscription, error) {
	if cmd.Duration <= 0 {
		return nil, apperrors.NewValidationError("extension must be positive", cmd.Duration.String())
	}

	var sub *subscription.Subscription
	err := uc.txMgr.RunInTransaction(ctx, func(txCtx context.Context) error {
		var err error
		sub, err = uc.subscriptionRepo.GetByIDForUpdate(txCtx, cmd.SubscriptionID)
		if err != nil {
			return fmt.Errorf("failed to get subscription: %w", err)
		}
		if sub == nil {
			return subscription.ErrSubscriptionNotFound
		}
		if err := sub.Extend(cmd.Duration, uc.now(), cmd.ResetReminder); err != nil {
			return apperrors.NewValidationError("invalid extension", err.Error())
		}
		if err := uc.subscriptionRepo.Update(txCtx, sub); err != nil {
			return fmt.Errorf("failed to update subscription: %w", err)
		}
		return nil
	})
	metrics.LifecycleOp("extend", err)
	if err != nil {
		uc.logger.Errorw("failed to extend subscription", "error", err, "subscription_id", cmd.SubscriptionID)
		return nil, err
	}

	uc.logger.Infow("subscription extended",
		"subscription_id", sub.ID(),
		"new_end_date", sub.EndDate(),
		"active", sub.IsActive(),
	)
	return sub, nil
}
