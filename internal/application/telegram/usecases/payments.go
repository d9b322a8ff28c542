package usecases

import (
	"context"
	"strings"
	"time"

	paymentUsecases "github.com/channelgate/channelgate/internal/application/payment/usecases"
	"github.com/channelgate/channelgate/internal/infrastructure/telegram"
	"github.com/channelgate/channelgate/internal/infrastructure/telegram/i18n"
)

// handlePreCheckout approves a checkout only for a payload that names a plan still on sale
// at its catalog price.
func (r *UpdateRouter) handlePreCheckout(ctx context.Context, query *telegram.PreCheckoutQuery) error {
	lang := i18n.RU
	if query.From != nil {
		lang = i18n.DetectLang(query.From.LanguageCode)
	}

	ok, reason := r.checkoutAcceptable(ctx, query)
	errMsg := ""
	if !ok {
		r.logger.Warnw("checkout rejected",
			"reason", reason,
			"payload", query.InvoicePayload,
			"amount", query.TotalAmount,
			"currency", query.Currency,
		)
		errMsg = i18n.MsgCheckoutRejected(lang)
	}

	if err := r.bot.AnswerPreCheckoutQuery(ctx, query.ID, ok, errMsg); err != nil {
		r.logger.Errorw("failed to answer pre-checkout query", "query_id", query.ID, "error", err)
		return err
	}
	return nil
}

func (r *UpdateRouter) checkoutAcceptable(ctx context.Context, query *telegram.PreCheckoutQuery) (bool, string) {
	payload, err := paymentUsecases.ParseInvoicePayload(query.InvoicePayload)
	if err != nil {
		return false, "unknown payload"
	}
	if r.cfg.Currency != "" && !strings.EqualFold(r.cfg.Currency, query.Currency) {
		return false, "unexpected currency"
	}

	plan, err := r.planRepo.GetByID(ctx, payload.PlanID)
	if err != nil {
		r.logger.Errorw("failed to get plan for checkout", "plan_id", payload.PlanID, "error", err)
		return false, "plan lookup failed"
	}
	if plan == nil || !plan.HasChannel() {
		return false, "unknown plan"
	}
	if plan.IsRetired() {
		return false, "plan retired"
	}
	if plan.Price() != query.TotalAmount {
		return false, "amount does not match plan price"
	}
	return true, ""
}

func (r *UpdateRouter) handleSuccessfulPayment(ctx context.Context, msg *telegram.Message) error {
	sp := msg.SuccessfulPayment
	from := msg.From
	lang := i18n.DetectLang(from.LanguageCode)

	chargeID := sp.ProviderPaymentChargeID
	if chargeID == "" {
		chargeID = sp.TelegramPaymentChargeID
	}
	var paidAt time.Time
	if msg.Date > 0 {
		paidAt = time.Unix(msg.Date, 0).UTC()
	}

	result, err := r.uc.ConfirmPayment.Execute(ctx, paymentUsecases.ConfirmPaymentCommand{
		TelegramUserID: formatID(from.ID),
		FirstName:      from.FirstName,
		Username:       from.Username,
		InvoicePayload: sp.InvoicePayload,
		ChargeID:       chargeID,
		Amount:         sp.TotalAmount,
		Currency:       sp.Currency,
		PaymentInfo:    paymentInfo(sp),
		PaidAt:         paidAt,
	})
	if err != nil {
		// Recorded as a PaymentError and escalated to operators by the use case.
		r.reply(ctx, from.ID, i18n.MsgPaymentActivationFailed(lang))
		return nil
	}
	if result.Duplicate {
		return nil
	}

	r.reply(ctx, from.ID, i18n.MsgPaymentSuccess(lang, i18n.SubscriptionView{
		PlanName:   result.PlanName,
		EndDate:    result.EndDate,
		InviteLink: result.InviteLink,
	}))
	return nil
}

func paymentInfo(sp *telegram.SuccessfulPayment) map[string]any {
	info := map[string]any{
		"currency":                   sp.Currency,
		"total_amount":               sp.TotalAmount,
		"invoice_payload":            sp.InvoicePayload,
		"telegram_payment_charge_id": sp.TelegramPaymentChargeID,
		"provider_payment_charge_id": sp.ProviderPaymentChargeID,
	}
	if sp.OrderInfo != nil {
		info["order_info"] = map[string]any{
			"name":         sp.OrderInfo.Name,
			"phone_number": sp.OrderInfo.PhoneNumber,
			"email":        sp.OrderInfo.Email,
		}
	}
	return info
}
