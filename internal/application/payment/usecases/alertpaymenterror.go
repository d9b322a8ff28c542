package usecases

import (
	"context"
	"strconv"
	"time"

	"github.com/channelgate/channelgate/internal/domain/subscription"
	"github.com/channelgate/channelgate/internal/infrastructure/cache"
	"github.com/channelgate/channelgate/internal/infrastructure/telegram/i18n"
	"github.com/channelgate/channelgate/internal/shared/logger"
)

// DefaultAlertCooldown is how long a repeated alert for the same charge stays muted.
const DefaultAlertCooldown = 30 * time.Minute

// EmailAlertSender is the optional e-mail channel for operator alerts.
type EmailAlertSender interface {
	SendAlert(ctx context.Context, subject, htmlBody, plainBody string) error
}

// AlertPaymentErrorUseCase pages every operator about a failed activation.
type AlertPaymentErrorUseCase struct {
	notifier     subscription.Notifier
	adminUserIDs []int64
	deduplicator *cache.AlertDeduplicator // Optional
	email        EmailAlertSender         // Optional
	cooldown     time.Duration
	logger       logger.Interface
}

func NewAlertPaymentErrorUseCase(
	notifier subscription.Notifier,
	adminUserIDs []int64,
	logger logger.Interface,
) *AlertPaymentErrorUseCase {
	return &AlertPaymentErrorUseCase{
		notifier:     notifier,
		adminUserIDs: adminUserIDs,
		cooldown:     DefaultAlertCooldown,
		logger:       logger,
	}
}

// SetDeduplicator mutes repeated alerts for one charge across instances.
func (uc *AlertPaymentErrorUseCase) SetDeduplicator(d *cache.AlertDeduplicator, cooldown time.Duration) {
	uc.deduplicator = d
	if cooldown > 0 {
		uc.cooldown = cooldown
	}
}

// SetEmailSender adds the e-mail channel.
func (uc *AlertPaymentErrorUseCase) SetEmailSender(sender EmailAlertSender) {
	uc.email = sender
}

// Execute returns how many operators were reached over Telegram.
func (uc *AlertPaymentErrorUseCase) Execute(ctx context.Context, pe *subscription.PaymentError, username string) int {
	if uc.deduplicator != nil && pe.ChargeID() != "" {
		acquired, err := uc.deduplicator.TryAcquire(ctx, cache.AlertTypePaymentError, pe.ChargeID(), uc.cooldown)
		if err != nil {
			uc.logger.Warnw("alert deduplication unavailable, alerting anyway", "error", err)
		} else if !acquired {
			uc.logger.Debugw("payment error alert muted by cooldown", "charge_id", pe.ChargeID())
			return 0
		}
	}

	view := PaymentErrorView(pe, username)
	text := i18n.MsgAdminPaymentAlert(view)

	delivered := 0
	for _, adminID := range uc.adminUserIDs {
		result := uc.notifier.Send(ctx, strconv.FormatInt(adminID, 10), text)
		if result == subscription.SendSent {
			delivered++
			continue
		}
		uc.logger.Warnw("failed to alert admin about payment error",
			"admin_id", adminID,
			"payment_error_id", pe.ID(),
			"result", result.String(),
		)
	}

	if uc.email != nil {
		if err := uc.email.SendAlert(ctx, i18n.EmailPaymentAlertSubject(view), i18n.EmailPaymentAlertBody(view), text); err != nil {
			uc.logger.Warnw("failed to e-mail payment error alert", "error", err, "payment_error_id", pe.ID())
		}
	}

	uc.logger.Infow("payment error alert sent", "payment_error_id", pe.ID(), "admins_reached", delivered)
	return delivered
}

// PaymentErrorView maps the entity onto its operator-facing rendering.
func PaymentErrorView(pe *subscription.PaymentError, username string) i18n.PaymentErrorView {
	return i18n.PaymentErrorView{
		ID:             pe.ID(),
		TelegramUserID: pe.TelegramUserID(),
		Username:       username,
		ChargeID:       pe.ChargeID(),
		Amount:         pe.Amount(),
		Currency:       pe.Currency(),
		PlanID:         pe.PlanID(),
		ErrorMessage:   pe.ErrorMessage(),
		PaymentTime:    pe.PaymentTime(),
	}
}
