package usecases

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/channelgate/channelgate/internal/domain/subscription"
	"github.com/channelgate/channelgate/internal/infrastructure/cache"
	"github.com/channelgate/channelgate/internal/infrastructure/telegram/i18n"
	"github.com/channelgate/channelgate/internal/shared/logger"
)

// DefaultPaymentErrorListLimit caps one listing.
const DefaultPaymentErrorListLimit = 50

type ListPaymentErrorsUseCase struct {
	paymentErrorRepo subscription.PaymentErrorRepository
	logger           logger.Interface
}

func NewListPaymentErrorsUseCase(paymentErrorRepo subscription.PaymentErrorRepository, logger logger.Interface) *ListPaymentErrorsUseCase {
	return &ListPaymentErrorsUseCase{paymentErrorRepo: paymentErrorRepo, logger: logger}
}

// Execute lists unresolved errors, newest first.
func (uc *ListPaymentErrorsUseCase) Execute(ctx context.Context, limit int) ([]*subscription.PaymentError, error) {
	if limit <= 0 || limit > DefaultPaymentErrorListLimit {
		limit = DefaultPaymentErrorListLimit
	}
	list, err := uc.paymentErrorRepo.ListUnresolved(ctx, limit)
	if err != nil {
		uc.logger.Errorw("failed to list payment errors", "error", err)
		return nil, fmt.Errorf("failed to list payment errors: %w", err)
	}
	return list, nil
}

type ResolvePaymentErrorCommand struct {
	PaymentErrorID uint
	Notes          string
}

// ResolvePaymentErrorUseCase closes a remediation record and tells the payer.
type ResolvePaymentErrorUseCase struct {
	paymentErrorRepo subscription.PaymentErrorRepository
	userRepo         subscription.UserRepository
	notifier         subscription.Notifier
	deduplicator     *cache.AlertDeduplicator // Optional
	logger           logger.Interface
	now              func() time.Time
}

func NewResolvePaymentErrorUseCase(
	paymentErrorRepo subscription.PaymentErrorRepository,
	userRepo subscription.UserRepository,
	notifier subscription.Notifier,
	logger logger.Interface,
) *ResolvePaymentErrorUseCase {
	return &ResolvePaymentErrorUseCase{
		paymentErrorRepo: paymentErrorRepo,
		userRepo:         userRepo,
		notifier:         notifier,
		logger:           logger,
		now:              func() time.Time { return time.Now().UTC() },
	}
}

// SetDeduplicator lets a later failure of the same charge page operators again.
func (uc *ResolvePaymentErrorUseCase) SetDeduplicator(d *cache.AlertDeduplicator) {
	uc.deduplicator = d
}

func (uc *ResolvePaymentErrorUseCase) SetClock(now func() time.Time) { uc.now = now }

func (uc *ResolvePaymentErrorUseCase) Execute(ctx context.Context, cmd ResolvePaymentErrorCommand) (*subscription.PaymentError, error) {
	pe, err := uc.paymentErrorRepo.GetByID(ctx, cmd.PaymentErrorID)
	if err != nil {
		uc.logger.Errorw("failed to get payment error", "error", err, "payment_error_id", cmd.PaymentErrorID)
		return nil, fmt.Errorf("failed to get payment error: %w", err)
	}
	if pe == nil {
		return nil, subscription.ErrPaymentErrorNotFound
	}

	notes := strings.TrimSpace(cmd.Notes)
	if notes == "" {
		notes = i18n.DefaultResolutionNotes
	}
	if err := pe.Resolve(notes, uc.now()); err != nil {
		return pe, err
	}
	if err := uc.paymentErrorRepo.Update(ctx, pe); err != nil {
		uc.logger.Errorw("failed to resolve payment error", "error", err, "payment_error_id", pe.ID())
		return nil, fmt.Errorf("failed to update payment error: %w", err)
	}

	uc.logger.Infow("payment error resolved", "payment_error_id", pe.ID(), "notes", notes)

	if uc.deduplicator != nil && pe.ChargeID() != "" {
		if err := uc.deduplicator.Clear(ctx, cache.AlertTypePaymentError, pe.ChargeID()); err != nil {
			uc.logger.Warnw("failed to clear alert cooldown", "error", err, "payment_error_id", pe.ID())
		}
	}

	lang := i18n.RU
	if user, err := uc.userRepo.GetByTelegramID(ctx, pe.TelegramUserID()); err == nil && user != nil {
		lang = i18n.DetectLang(user.LanguageCode())
	}
	if result := uc.notifier.Send(ctx, pe.TelegramUserID(), i18n.MsgPaymentErrorResolved(lang)); result != subscription.SendSent {
		uc.logger.Warnw("failed to notify user about resolution",
			"payment_error_id", pe.ID(),
			"telegram_user_id", pe.TelegramUserID(),
			"result", result.String(),
		)
	}
	return pe, nil
}
