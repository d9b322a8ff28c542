package usecases

import (
	"context"
	"fmt"
	"time"

	"github.com/channelgate/channelgate/internal/domain/subscription"
	"github.com/channelgate/channelgate/internal/infrastructure/telegram/i18n"
	"github.com/channelgate/channelgate/internal/shared/biztime"
	"github.com/channelgate/channelgate/internal/shared/constants"
	"github.com/channelgate/channelgate/internal/shared/logger"
)

// ExpiryReminderJob warns owners of active grants that end inside a window. The window
// and copy differ between the pre-expiry and the last-day reminder; each has its own flag.
type ExpiryReminderJob struct {
	base
	name             string
	kind             subscription.ReminderKind
	window           func(now time.Time) (from, to time.Time)
	message          func(lang i18n.Lang) string
	userRepo         subscription.UserRepository
	subscriptionRepo subscription.SubscriptionRepository
	notifier         subscription.Notifier
}

// NewPreExpiryReminderJob selects grants ending within the window, 24 hours by default.
func NewPreExpiryReminderJob(
	userRepo subscription.UserRepository,
	subscriptionRepo subscription.SubscriptionRepository,
	notifier subscription.Notifier,
	window time.Duration,
	logger logger.Interface,
) *ExpiryReminderJob {
	if window <= 0 {
		window = DefaultPreExpiryWindow
	}
	return &ExpiryReminderJob{
		base:             newBase(JobPreExpiryReminder, logger),
		name:             JobPreExpiryReminder,
		kind:             subscription.ReminderPreExpiry,
		window:           func(now time.Time) (time.Time, time.Time) { return now, now.Add(window) },
		message:          i18n.MsgPreExpiryReminder,
		userRepo:         userRepo,
		subscriptionRepo: subscriptionRepo,
		notifier:         notifier,
	}
}

// NewLastDayReminderJob selects grants ending before the business day is over.
func NewLastDayReminderJob(
	userRepo subscription.UserRepository,
	subscriptionRepo subscription.SubscriptionRepository,
	notifier subscription.Notifier,
	logger logger.Interface,
) *ExpiryReminderJob {
	return &ExpiryReminderJob{
		base:             newBase(JobLastDayReminder, logger),
		name:             JobLastDayReminder,
		kind:             subscription.ReminderLastDay,
		window:           func(now time.Time) (time.Time, time.Time) { return now, biztime.EndOfDayUTC(now) },
		message:          i18n.MsgLastDayReminder,
		userRepo:         userRepo,
		subscriptionRepo: subscriptionRepo,
		notifier:         notifier,
	}
}

func (j *ExpiryReminderJob) Name() string { return j.name }

func (j *ExpiryReminderJob) Execute(ctx context.Context) (int, error) {
	log := j.runLogger()
	from, to := j.window(j.now())

	subs, err := j.subscriptionRepo.FindActiveEndingBetween(ctx, from, to, j.kind, j.batchSize)
	if err != nil {
		return 0, fmt.Errorf("failed to find subscriptions for %s: %w", j.name, err)
	}

	sent := 0
	for _, sub := range subs {
		if ctx.Err() != nil {
			return sent, ctx.Err()
		}
		ok, err := j.remind(ctx, log, sub)
		if err != nil {
			log.Errorw("reminder failed", "error", err, "subscription_id", sub.ID())
			continue
		}
		if ok {
			sent++
		}
	}
	return sent, nil
}

func (j *ExpiryReminderJob) remind(ctx context.Context, log logger.Interface, sub *subscription.Subscription) (bool, error) {
	user, err := j.userRepo.GetByID(ctx, sub.UserID())
	if err != nil {
		return false, fmt.Errorf("failed to get user: %w", err)
	}
	if user == nil {
		return false, subscription.ErrUserNotFound
	}

	lang := i18n.DetectLang(user.LanguageCode())
	result := j.notifier.Send(ctx, user.TelegramUserID(), j.message(lang),
		subscription.Action{Text: i18n.BtnExtendSubscription(lang), Payload: constants.ActionExtendSubscription},
	)
	if !result.Settled() {
		log.Warnw("reminder not delivered, will retry", "subscription_id", sub.ID())
		return false, nil
	}

	if err := j.subscriptionRepo.SetReminderFlag(ctx, sub.ID(), j.kind); err != nil {
		return false, fmt.Errorf("failed to set reminder flag: %w", err)
	}
	log.Debugw("reminder sent",
		"subscription_id", sub.ID(),
		"end_date", sub.EndDate(),
		"result", result.String(),
	)
	return true, nil
}
