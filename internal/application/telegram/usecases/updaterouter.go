// Package usecases routes bot updates onto the subscription and payment use cases.
package usecases

import (
	"context"
	"strconv"
	"strings"

	paymentUsecases "github.com/channelgate/channelgate/internal/application/payment/usecases"
	subscriptionUsecases "github.com/channelgate/channelgate/internal/application/subscription/usecases"
	"github.com/channelgate/channelgate/internal/domain/subscription"
	"github.com/channelgate/channelgate/internal/infrastructure/telegram"
	"github.com/channelgate/channelgate/internal/infrastructure/telegram/i18n"
	"github.com/channelgate/channelgate/internal/shared/constants"
	"github.com/channelgate/channelgate/internal/shared/logger"
)

// BotResponder answers the queries that expect a direct reply from the bot.
type BotResponder interface {
	AnswerCallbackQuery(ctx context.Context, callbackQueryID, text string) error
	AnswerPreCheckoutQuery(ctx context.Context, queryID string, ok bool, errorMessage string) error
}

// RouterConfig is the static part of the router's behaviour.
type RouterConfig struct {
	// ChannelIDs are the gated channels; join requests elsewhere are declined.
	ChannelIDs    []string
	AdminUserIDs  []int64
	SupportHandle string
	// Currency, when set, is the only currency accepted at checkout.
	Currency string
}

// UseCases bundles what the router dispatches to.
type UseCases struct {
	Register            *subscriptionUsecases.RegisterUserUseCase
	CurrentSubscription *subscriptionUsecases.GetCurrentSubscriptionUseCase
	Cancel              *subscriptionUsecases.CancelSubscriptionUseCase
	AdmitMember         *subscriptionUsecases.AdmitMemberUseCase
	ConfirmPayment      *paymentUsecases.ConfirmPaymentUseCase
	ListPaymentErrors   *paymentUsecases.ListPaymentErrorsUseCase
	ResolvePaymentError *paymentUsecases.ResolvePaymentErrorUseCase
}

// UpdateRouter implements telegram.UpdateHandler. Polling and webhook mode feed it the
// same updates.
type UpdateRouter struct {
	uc       UseCases
	planRepo subscription.PlanRepository
	notifier subscription.Notifier
	bot      BotResponder
	cfg      RouterConfig
	channels map[string]struct{}
	admins   map[int64]struct{}
	logger   logger.Interface
}

var _ telegram.UpdateHandler = (*UpdateRouter)(nil)

func NewUpdateRouter(
	uc UseCases,
	planRepo subscription.PlanRepository,
	notifier subscription.Notifier,
	bot BotResponder,
	cfg RouterConfig,
	logger logger.Interface,
) *UpdateRouter {
	channels := make(map[string]struct{}, len(cfg.ChannelIDs))
	for _, id := range cfg.ChannelIDs {
		channels[strings.TrimSpace(id)] = struct{}{}
	}
	admins := make(map[int64]struct{}, len(cfg.AdminUserIDs))
	for _, id := range cfg.AdminUserIDs {
		admins[id] = struct{}{}
	}
	return &UpdateRouter{
		uc:       uc,
		planRepo: planRepo,
		notifier: notifier,
		bot:      bot,
		cfg:      cfg,
		channels: channels,
		admins:   admins,
		logger:   logger,
	}
}

// HandleUpdate processes a single update.
func (r *UpdateRouter) HandleUpdate(ctx context.Context, update *telegram.Update) error {
	switch {
	case update.ChatJoinRequest != nil:
		return r.handleJoinRequest(ctx, update.ChatJoinRequest)
	case update.PreCheckoutQuery != nil:
		return r.handlePreCheckout(ctx, update.PreCheckoutQuery)
	case update.CallbackQuery != nil:
		return r.handleCallbackQuery(ctx, update.CallbackQuery)
	}

	msg := update.Message
	if msg == nil || msg.From == nil || msg.From.IsBot {
		return nil
	}
	if msg.SuccessfulPayment != nil {
		return r.handleSuccessfulPayment(ctx, msg)
	}
	// Commands are only taken in the private chat with the bot.
	if msg.Chat != nil && msg.Chat.Type != "" && msg.Chat.Type != "private" {
		return nil
	}

	from := msg.From
	lang := i18n.DetectLang(from.LanguageCode)
	command, args := splitCommand(msg.Text)

	switch command {
	case "/start":
		return r.handleStart(ctx, from, lang)
	case "/status":
		return r.handleStatus(ctx, from, lang)
	case "/details":
		return r.handleDetails(ctx, from, lang)
	case "/cancel":
		return r.handleCancelRequest(ctx, from, lang)
	case "/payment_errors":
		return r.handlePaymentErrors(ctx, from)
	case "/resolve_payment_error":
		return r.handleResolvePaymentError(ctx, from, args)
	default:
		return r.handleHelp(ctx, from, lang)
	}
}

// splitCommand separates "/cmd@bot rest" into "/cmd" and "rest".
func splitCommand(text string) (string, string) {
	text = strings.TrimSpace(text)
	command, args, _ := strings.Cut(text, " ")
	if at := strings.IndexByte(command, '@'); at > 0 {
		command = command[:at]
	}
	return strings.ToLower(command), strings.TrimSpace(args)
}

func (r *UpdateRouter) isAdmin(id int64) bool {
	_, ok := r.admins[id]
	return ok
}

func (r *UpdateRouter) isGatedChannel(id string) bool {
	_, ok := r.channels[id]
	return ok
}

func (r *UpdateRouter) reply(ctx context.Context, telegramUserID int64, text string, actions ...subscription.Action) {
	r.notifier.Send(ctx, formatID(telegramUserID), text, actions...)
}

func buyAction(lang i18n.Lang) subscription.Action {
	return subscription.Action{Text: i18n.BtnBuySubscription(lang), Payload: constants.ActionBuySubscription}
}

func formatID(id int64) string {
	return strconv.FormatInt(id, 10)
}
