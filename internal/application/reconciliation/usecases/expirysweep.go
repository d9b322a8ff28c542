package usecases

import (
	"context"
	"fmt"

	subscriptionUsecases "github.com/channelgate/channelgate/internal/application/subscription/usecases"
	"github.com/channelgate/channelgate/internal/domain/subscription"
	"github.com/channelgate/channelgate/internal/shared/logger"
)

// ExpirySweepJob revokes every active grant whose end date has passed.
type ExpirySweepJob struct {
	base
	subscriptionRepo subscription.SubscriptionRepository
	revokeUC         *subscriptionUsecases.RevokeSubscriptionUseCase
}

func NewExpirySweepJob(
	subscriptionRepo subscription.SubscriptionRepository,
	revokeUC *subscriptionUsecases.RevokeSubscriptionUseCase,
	logger logger.Interface,
) *ExpirySweepJob {
	return &ExpirySweepJob{
		base:             newBase(JobExpirySweep, logger),
		subscriptionRepo: subscriptionRepo,
		revokeUC:         revokeUC,
	}
}

func (j *ExpirySweepJob) Name() string { return JobExpirySweep }

func (j *ExpirySweepJob) Execute(ctx context.Context) (int, error) {
	log := j.runLogger()

	expired, err := j.subscriptionRepo.FindExpiredActive(ctx, j.now(), j.batchSize)
	if err != nil {
		return 0, fmt.Errorf("failed to find expired subscriptions: %w", err)
	}
	if len(expired) == 0 {
		return 0, nil
	}

	log.Infow("found expired subscriptions to revoke", "count", len(expired))

	revoked := 0
	for _, sub := range expired {
		if ctx.Err() != nil {
			return revoked, ctx.Err()
		}
		ok, err := j.revokeUC.Execute(ctx, sub.ID())
		if err != nil {
			log.Errorw("failed to revoke expired subscription",
				"error", err,
				"subscription_id", sub.ID(),
				"end_date", sub.EndDate(),
			)
			continue
		}
		if ok {
			revoked++
		}
	}
	return revoked, nil
}
