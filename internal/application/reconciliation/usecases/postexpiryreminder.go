package usecases

import (
	"context"
	"fmt"

	"github.com/channelgate/channelgate/internal/domain/subscription"
	"github.com/channelgate/channelgate/internal/infrastructure/telegram/i18n"
	"github.com/channelgate/channelgate/internal/shared/constants"
	"github.com/channelgate/channelgate/internal/shared/logger"
)

// PostExpiryReminderJob tells owners of ended grants that access is closed. When the owner
// already holds another current grant the message is skipped but the flag is still set, so
// the row is not picked up again.
type PostExpiryReminderJob struct {
	base
	userRepo         subscription.UserRepository
	subscriptionRepo subscription.SubscriptionRepository
	notifier         subscription.Notifier
}

func NewPostExpiryReminderJob(
	userRepo subscription.UserRepository,
	subscriptionRepo subscription.SubscriptionRepository,
	notifier subscription.Notifier,
	logger logger.Interface,
) *PostExpiryReminderJob {
	return &PostExpiryReminderJob{
		base:             newBase(JobPostExpiryReminder, logger),
		userRepo:         userRepo,
		subscriptionRepo: subscriptionRepo,
		notifier:         notifier,
	}
}

func (j *PostExpiryReminderJob) Name() string { return JobPostExpiryReminder }

func (j *PostExpiryReminderJob) Execute(ctx context.Context) (int, error) {
	log := j.runLogger()
	now := j.now()

	subs, err := j.subscriptionRepo.FindEndedInactive(ctx, now, subscription.ReminderPostExpiry, j.batchSize)
	if err != nil {
		return 0, fmt.Errorf("failed to find ended subscriptions: %w", err)
	}

	flagged := 0
	for _, sub := range subs {
		if ctx.Err() != nil {
			return flagged, ctx.Err()
		}

		overlapping, err := j.subscriptionRepo.HasOtherCurrent(ctx, sub.UserID(), sub.ID(), now)
		if err != nil {
			log.Errorw("failed to check overlapping subscriptions", "error", err, "subscription_id", sub.ID())
			continue
		}

		if overlapping {
			log.Warnw("post-expiry reminder suppressed: user holds another current subscription",
				"subscription_id", sub.ID(),
				"user_id", sub.UserID(),
			)
		} else {
			delivered, err := j.send(ctx, sub)
			if err != nil {
				log.Errorw("post-expiry reminder failed", "error", err, "subscription_id", sub.ID())
				continue
			}
			if !delivered {
				log.Warnw("post-expiry reminder not delivered, will retry", "subscription_id", sub.ID())
				continue
			}
		}

		if err := j.subscriptionRepo.SetReminderFlag(ctx, sub.ID(), subscription.ReminderPostExpiry); err != nil {
			log.Errorw("failed to set post-expiry flag", "error", err, "subscription_id", sub.ID())
			continue
		}
		flagged++
	}
	return flagged, nil
}

// send reports whether the outcome is settled.
func (j *PostExpiryReminderJob) send(ctx context.Context, sub *subscription.Subscription) (bool, error) {
	user, err := j.userRepo.GetByID(ctx, sub.UserID())
	if err != nil {
		return false, fmt.Errorf("failed to get user: %w", err)
	}
	if user == nil {
		return false, subscription.ErrUserNotFound
	}

	lang := i18n.DetectLang(user.LanguageCode())
	result := j.notifier.Send(ctx, user.TelegramUserID(),
		i18n.MsgPostExpiryReminder(lang, user.FirstName()),
		subscription.Action{Text: i18n.BtnBuySubscription(lang), Payload: constants.ActionBuySubscription},
	)
	return result.Settled(), nil
}
