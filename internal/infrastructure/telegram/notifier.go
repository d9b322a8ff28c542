package telegram

import (
	"context"

	"github.com/channelgate/channelgate/internal/domain/subscription"
	"github.com/channelgate/channelgate/internal/infrastructure/metrics"
	sharedConfig "github.com/channelgate/channelgate/internal/shared/config"
	"github.com/channelgate/channelgate/internal/shared/logger"
)

// Notifier delivers user-facing messages and reduces every attempt to a SendResult.
type Notifier struct {
	bot    *BotService
	policy RetryPolicy
	logger logger.Interface
}

var _ subscription.Notifier = (*Notifier)(nil)

func NewNotifier(bot *BotService, cfg sharedConfig.GatewayConfig, log logger.Interface) *Notifier {
	return &Notifier{
		bot:    bot,
		policy: NewRetryPolicy(cfg),
		logger: log.Named("notifier"),
	}
}

// Send delivers text with optional one-button-per-row actions.
// A recipient who blocked the bot or no longer exists is a permanent failure;
// anything that might pass on a later run is transient.
func (n *Notifier) Send(ctx context.Context, telegramUserID, text string, actions ...subscription.Action) subscription.SendResult {
	markup := keyboardFor(actions)

	_, err := withRetry(ctx, n.policy, n.logger, "send_message", func(ctx context.Context) (struct{}, error) {
		if markup == nil {
			return struct{}{}, n.bot.SendMessage(ctx, telegramUserID, text, nil)
		}
		return struct{}{}, n.bot.SendMessage(ctx, telegramUserID, text, markup)
	})

	result := subscription.SendSent
	switch {
	case err == nil:
	case IsRecipientGone(err) || ClassifyError(err) == OutcomePermanent:
		result = subscription.SendPermanentFailure
		n.logger.Infow("message not deliverable", "telegram_user_id", telegramUserID, "error", err)
	default:
		result = subscription.SendTransientFailure
		n.logger.Warnw("message delivery failed", "telegram_user_id", telegramUserID, "error", err)
	}
	metrics.Notification(result.String())
	return result
}

func keyboardFor(actions []subscription.Action) *InlineKeyboardMarkup {
	if len(actions) == 0 {
		return nil
	}
	rows := make([][]InlineKeyboardButton, 0, len(actions))
	for _, a := range actions {
		if a.URL != "" {
			rows = append(rows, []InlineKeyboardButton{NewInlineKeyboardButtonURL(a.Text, a.URL)})
			continue
		}
		rows = append(rows, []InlineKeyboardButton{NewInlineKeyboardButton(a.Text, a.Payload)})
	}
	return NewInlineKeyboard(rows...)
}
