package usecases

import (
	"context"

	"github.com/channelgate/channelgate/internal/application/subscription/dto"
	subscriptionUsecases "github.com/channelgate/channelgate/internal/application/subscription/usecases"
	"github.com/channelgate/channelgate/internal/domain/subscription"
	"github.com/channelgate/channelgate/internal/infrastructure/telegram"
	"github.com/channelgate/channelgate/internal/infrastructure/telegram/i18n"
	"github.com/channelgate/channelgate/internal/shared/constants"
)

func (r *UpdateRouter) handleStart(ctx context.Context, from *telegram.User, lang i18n.Lang) error {
	user, created, err := r.uc.Register.Execute(ctx, subscriptionUsecases.RegisterUserCommand{
		TelegramUserID: formatID(from.ID),
		FirstName:      from.FirstName,
		LanguageCode:   from.LanguageCode,
	})
	if err != nil {
		r.logger.Errorw("failed to register user", "telegram_user_id", from.ID, "error", err)
		r.reply(ctx, from.ID, i18n.MsgTryLater(lang))
		return err
	}
	if created {
		r.logger.Infow("new user registered", "telegram_user_id", from.ID, "user_id", user.ID())
	}

	current, err := r.uc.CurrentSubscription.Execute(ctx, formatID(from.ID))
	if err != nil {
		r.logger.Warnw("failed to get current subscription on start", "telegram_user_id", from.ID, "error", err)
	}
	if current != nil {
		r.sendStatus(ctx, from.ID, lang, current)
		return nil
	}

	r.reply(ctx, from.ID, i18n.MsgWelcome(lang, from.FirstName), buyAction(lang))
	return nil
}

func (r *UpdateRouter) handleStatus(ctx context.Context, from *telegram.User, lang i18n.Lang) error {
	current, err := r.uc.CurrentSubscription.Execute(ctx, formatID(from.ID))
	if err != nil {
		r.logger.Errorw("failed to get subscription status", "telegram_user_id", from.ID, "error", err)
		r.reply(ctx, from.ID, i18n.MsgTryLater(lang))
		return err
	}
	r.sendStatus(ctx, from.ID, lang, current)
	return nil
}

func (r *UpdateRouter) sendStatus(ctx context.Context, telegramUserID int64, lang i18n.Lang, current *dto.CurrentSubscriptionDTO) {
	if current == nil {
		r.reply(ctx, telegramUserID, i18n.MsgNoSubscription(lang), buyAction(lang))
		return
	}
	r.reply(ctx, telegramUserID, i18n.MsgStatus(lang, subscriptionView(current)), extendAction(lang), cancelAction(lang))
}

func (r *UpdateRouter) handleDetails(ctx context.Context, from *telegram.User, lang i18n.Lang) error {
	current, err := r.uc.CurrentSubscription.Execute(ctx, formatID(from.ID))
	if err != nil {
		r.logger.Errorw("failed to get subscription details", "telegram_user_id", from.ID, "error", err)
		r.reply(ctx, from.ID, i18n.MsgTryLater(lang))
		return err
	}
	if current == nil {
		r.reply(ctx, from.ID, i18n.MsgNoSubscription(lang), buyAction(lang))
		return nil
	}
	r.reply(ctx, from.ID, i18n.MsgDetails(lang, current.EndDate, i18n.ChannelLink(current.ChannelID)))
	return nil
}

// handleCancelRequest asks for confirmation. Nothing is revoked until the user confirms.
func (r *UpdateRouter) handleCancelRequest(ctx context.Context, from *telegram.User, lang i18n.Lang) error {
	current, err := r.uc.CurrentSubscription.Execute(ctx, formatID(from.ID))
	if err != nil {
		r.logger.Errorw("failed to get subscription for cancellation", "telegram_user_id", from.ID, "error", err)
		r.reply(ctx, from.ID, i18n.MsgTryLater(lang))
		return err
	}
	if current == nil {
		r.reply(ctx, from.ID, i18n.MsgCancelNothing(lang))
		return nil
	}
	r.reply(ctx, from.ID, i18n.MsgCancelConfirm(lang), subscription.Action{
		Text:    i18n.BtnConfirmCancel(lang),
		Payload: constants.ActionConfirmCancel,
	})
	return nil
}

func (r *UpdateRouter) handleCancel(ctx context.Context, from *telegram.User, lang i18n.Lang) error {
	cancelled, err := r.uc.Cancel.Execute(ctx, formatID(from.ID))
	if err != nil {
		r.logger.Errorw("failed to cancel subscription", "telegram_user_id", from.ID, "error", err)
		r.reply(ctx, from.ID, i18n.MsgTryLater(lang))
		return err
	}
	if !cancelled {
		r.reply(ctx, from.ID, i18n.MsgCancelNothing(lang))
		return nil
	}
	r.reply(ctx, from.ID, i18n.MsgCancelDone(lang), buyAction(lang))
	return nil
}

func (r *UpdateRouter) handleHelp(ctx context.Context, from *telegram.User, lang i18n.Lang) error {
	r.reply(ctx, from.ID, i18n.MsgHelp(lang, r.cfg.SupportHandle))
	return nil
}

func (r *UpdateRouter) handleCallbackQuery(ctx context.Context, query *telegram.CallbackQuery) error {
	// The client shows a spinner until the query is answered.
	defer func() {
		if err := r.bot.AnswerCallbackQuery(ctx, query.ID, ""); err != nil {
			r.logger.Warnw("failed to answer callback query", "callback_query_id", query.ID, "error", err)
		}
	}()

	if query.From == nil {
		return nil
	}
	lang := i18n.DetectLang(query.From.LanguageCode)

	switch query.Data {
	case constants.ActionBuySubscription:
		return r.sendPlanList(ctx, query.From.ID, lang)
	case constants.ActionExtendSubscription:
		return r.handleStatus(ctx, query.From, lang)
	case constants.ActionCancelSubscription:
		return r.handleCancelRequest(ctx, query.From, lang)
	case constants.ActionConfirmCancel:
		return r.handleCancel(ctx, query.From, lang)
	default:
		r.logger.Debugw("unknown callback data", "data", query.Data, "telegram_user_id", query.From.ID)
		return nil
	}
}

func (r *UpdateRouter) sendPlanList(ctx context.Context, telegramUserID int64, lang i18n.Lang) error {
	plans, err := r.planRepo.ListCurrent(ctx)
	if err != nil {
		r.logger.Errorw("failed to list plans", "error", err)
		r.reply(ctx, telegramUserID, i18n.MsgTryLater(lang))
		return err
	}

	views := make([]i18n.PlanView, 0, len(plans))
	for _, p := range plans {
		if !p.Purchasable() {
			continue
		}
		views = append(views, i18n.PlanView{
			Name:         p.Name(),
			Price:        p.Price(),
			Currency:     r.cfg.Currency,
			DurationDays: p.DurationDays(),
		})
	}
	r.reply(ctx, telegramUserID, i18n.MsgPlanList(lang, views))
	return nil
}

func subscriptionView(c *dto.CurrentSubscriptionDTO) i18n.SubscriptionView {
	return i18n.SubscriptionView{
		PlanName:   c.PlanName,
		EndDate:    c.EndDate,
		DaysLeft:   c.DaysLeft,
		InviteLink: c.InviteLink,
	}
}

func extendAction(lang i18n.Lang) subscription.Action {
	return subscription.Action{Text: i18n.BtnExtendSubscription(lang), Payload: constants.ActionExtendSubscription}
}

func cancelAction(lang i18n.Lang) subscription.Action {
	return subscription.Action{Text: i18n.BtnCancelSubscription(lang), Payload: constants.ActionCancelSubscription}
}
