package usecases

import (
	"context"
	"errors"
	"strconv"
	"strings"

	paymentUsecases "github.com/channelgate/channelgate/internal/application/payment/usecases"
	"github.com/channelgate/channelgate/internal/domain/subscription"
	"github.com/channelgate/channelgate/internal/infrastructure/telegram"
	"github.com/channelgate/channelgate/internal/infrastructure/telegram/i18n"
)

// Operator commands. Anyone outside admin_user_ids gets the regular help text, so the
// commands are not advertised.

func (r *UpdateRouter) handlePaymentErrors(ctx context.Context, from *telegram.User) error {
	if !r.isAdmin(from.ID) {
		return r.handleHelp(ctx, from, i18n.DetectLang(from.LanguageCode))
	}

	list, err := r.uc.ListPaymentErrors.Execute(ctx, 0)
	if err != nil {
		r.reply(ctx, from.ID, i18n.MsgTryLater(i18n.RU))
		return err
	}
	if len(list) == 0 {
		r.reply(ctx, from.ID, i18n.MsgNoPaymentErrors())
		return nil
	}
	// One message per error keeps each under the platform's length limit.
	for _, pe := range list {
		r.reply(ctx, from.ID, i18n.MsgPaymentErrorEntry(paymentUsecases.PaymentErrorView(pe, "")))
	}
	return nil
}

func (r *UpdateRouter) handleResolvePaymentError(ctx context.Context, from *telegram.User, args string) error {
	if !r.isAdmin(from.ID) {
		return r.handleHelp(ctx, from, i18n.DetectLang(from.LanguageCode))
	}

	rawID, notes, _ := strings.Cut(args, " ")
	id, err := strconv.ParseUint(rawID, 10, 64)
	if err != nil || id == 0 {
		r.reply(ctx, from.ID, i18n.MsgResolveUsage())
		return nil
	}

	pe, err := r.uc.ResolvePaymentError.Execute(ctx, paymentUsecases.ResolvePaymentErrorCommand{
		PaymentErrorID: uint(id),
		Notes:          notes,
	})
	switch {
	case errors.Is(err, subscription.ErrPaymentErrorNotFound):
		r.reply(ctx, from.ID, i18n.MsgPaymentErrorNotFound(uint(id)))
		return nil
	case errors.Is(err, subscription.ErrPaymentErrorResolved):
		r.reply(ctx, from.ID, i18n.MsgPaymentErrorAlreadyResolved(uint(id)))
		return nil
	case err != nil:
		r.logger.Errorw("failed to resolve payment error", "payment_error_id", id, "error", err)
		r.reply(ctx, from.ID, i18n.MsgTryLater(i18n.RU))
		return err
	}

	r.logger.Infow("payment error resolved by admin", "payment_error_id", pe.ID(), "admin_id", from.ID)
	r.reply(ctx, from.ID, i18n.MsgPaymentErrorMarkedResolved(pe.ID()))
	return nil
}
