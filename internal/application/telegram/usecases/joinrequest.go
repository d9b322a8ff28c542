package usecases

import (
	"context"

	subscriptionUsecases "github.com/channelgate/channelgate/internal/application/subscription/usecases"
	"github.com/channelgate/channelgate/internal/infrastructure/telegram"
	"github.com/channelgate/channelgate/internal/infrastructure/telegram/i18n"
)

func (r *UpdateRouter) handleJoinRequest(ctx context.Context, req *telegram.ChatJoinRequest) error {
	if req.Chat == nil || req.From == nil {
		return nil
	}
	channelID := formatID(req.Chat.ID)
	telegramUserID := formatID(req.From.ID)

	if !r.isGatedChannel(channelID) {
		r.logger.Warnw("join request for an unmanaged chat declined",
			"channel_id", channelID,
			"telegram_user_id", telegramUserID,
		)
		return r.uc.AdmitMember.Decline(ctx, channelID, telegramUserID)
	}

	var link string
	if req.InviteLink != nil {
		link = req.InviteLink.InviteLink
	}

	decision, err := r.uc.AdmitMember.Execute(ctx, subscriptionUsecases.AdmitMemberCommand{
		ChannelID:      channelID,
		InviteLink:     link,
		TelegramUserID: telegramUserID,
	})
	if err != nil {
		r.logger.Errorw("failed to handle join request",
			"channel_id", channelID,
			"telegram_user_id", telegramUserID,
			"error", err,
		)
		return err
	}

	// The user may have never opened a chat with the bot; the notifier treats that as a
	// permanent failure and moves on.
	lang := i18n.DetectLang(req.From.LanguageCode)
	switch {
	case decision.Valid:
		r.reply(ctx, req.From.ID, i18n.MsgJoinApproved(lang))
	case decision.Reason == subscriptionUsecases.JoinReasonForeignOwner:
		r.reply(ctx, req.From.ID, i18n.MsgJoinDeclined(lang))
	default:
		r.reply(ctx, req.From.ID, i18n.MsgJoinLinkInvalid(lang))
	}
	return nil
}
