package usecases

import (
	"context"
	"fmt"
	"time"

	"github.com/channelgate/channelgate/internal/domain/subscription"
	"github.com/channelgate/channelgate/internal/infrastructure/telegram/i18n"
	"github.com/channelgate/channelgate/internal/shared/constants"
	"github.com/channelgate/channelgate/internal/shared/logger"
)

// RegistrationNudgeJob reminds users who registered but never paid.
type RegistrationNudgeJob struct {
	base
	userRepo   subscription.UserRepository
	notifier   subscription.Notifier
	nudgeAfter time.Duration
}

func NewRegistrationNudgeJob(
	userRepo subscription.UserRepository,
	notifier subscription.Notifier,
	nudgeAfter time.Duration,
	logger logger.Interface,
) *RegistrationNudgeJob {
	if nudgeAfter <= 0 {
		nudgeAfter = DefaultNudgeAfter
	}
	return &RegistrationNudgeJob{
		base:       newBase(JobRegistrationNudge, logger),
		userRepo:   userRepo,
		notifier:   notifier,
		nudgeAfter: nudgeAfter,
	}
}

func (j *RegistrationNudgeJob) Name() string { return JobRegistrationNudge }

// Execute nudges every user created more than nudgeAfter ago who has neither been nudged
// nor holds an active subscription. A permanent delivery failure still sets the flag.
func (j *RegistrationNudgeJob) Execute(ctx context.Context) (int, error) {
	log := j.runLogger()
	now := j.now()

	users, err := j.userRepo.FindNudgeCandidates(ctx, now.Add(-j.nudgeAfter), j.batchSize)
	if err != nil {
		return 0, fmt.Errorf("failed to find nudge candidates: %w", err)
	}

	nudged := 0
	for _, user := range users {
		if ctx.Err() != nil {
			return nudged, ctx.Err()
		}

		lang := i18n.DetectLang(user.LanguageCode())
		result := j.notifier.Send(ctx, user.TelegramUserID(),
			i18n.MsgRegistrationNudge(lang, user.FirstName()),
			subscription.Action{Text: i18n.BtnBuySubscription(lang), Payload: constants.ActionBuySubscription},
		)
		if !result.Settled() {
			log.Warnw("registration nudge not delivered, will retry",
				"user_id", user.ID(),
				"telegram_user_id", user.TelegramUserID(),
			)
			continue
		}

		if err := j.userRepo.MarkRegistrationNudged(ctx, user.ID()); err != nil {
			log.Errorw("failed to mark user as nudged", "error", err, "user_id", user.ID())
			continue
		}
		nudged++
		log.Debugw("registration nudge sent", "user_id", user.ID(), "result", result.String())
	}

	return nudged, nil
}
