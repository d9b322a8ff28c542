package i18n

import (
	"fmt"
	"strings"
	"time"

	"github.com/channelgate/channelgate/internal/shared/biztime"
)

// Button labels

func BtnBuySubscription(lang Lang) string {
	if lang == EN {
		return "Pay for subscription"
	}
	return "Оплатить подписку"
}

func BtnExtendSubscription(lang Lang) string {
	if lang == EN {
		return "Extend subscription"
	}
	return "Продлить подписку"
}

func BtnCancelSubscription(lang Lang) string {
	if lang == EN {
		return "Cancel subscription"
	}
	return "Отменить подписку"
}

func BtnConfirmCancel(lang Lang) string {
	if lang == EN {
		return "Confirm cancellation"
	}
	return "Подтвердить отмену"
}

// Reminders

func MsgRegistrationNudge(lang Lang, firstName string) string {
	name := DisplayName(lang, firstName)
	if lang == EN {
		return fmt.Sprintf("%s! We are waiting for you in our channel with exclusive 100%% cashback offers. "+
			"All that is left is to pay for the subscription. Shall we do it right now?\n\n"+
			"Start earning and saving today💥", name)
	}
	return fmt.Sprintf("%s! Мы ждём Вас в нашем канале с эксклюзивными товарами за кешбэк 100 %%. "+
		"Осталось только оплатить подписку, сделаем это прямо сейчас?\n\n"+
		"Начните зарабатывать и экономить уже сегодня💥", name)
}

func MsgPreExpiryReminder(lang Lang) string {
	if lang == EN {
		return "Heads up: your subscription expires tomorrow. " +
			"To keep your 100% cashback access, pay for the next month today."
	}
	return "Внимание: завтра Ваша подписка истекает. " +
		"Чтобы не прерывать доступ к кешбэку 100 %, оформите оплату на следующий месяц уже сегодня."
}

func MsgLastDayReminder(lang Lang) string {
	if lang == EN {
		return "Don't let your subscription run out! Today is the last day. " +
			"Extend your channel access and keep getting 100% cashback."
	}
	return "Не дайте подписке закончиться! Сегодня последний день. " +
		"Продлите доступ к каналу и продолжайте получать кешбэк 100 %."
}

func MsgPostExpiryReminder(lang Lang, firstName string) string {
	name := DisplayName(lang, firstName)
	if lang == EN {
		return fmt.Sprintf("%s, hi! Your subscription has expired and channel access is closed.\n\n"+
			"Don't want to miss new 100%% cashback offers? Extend your access right now.", name)
	}
	return fmt.Sprintf("%s, привет! Сообщаем, что доступ к каналу закрыт: подписка истекла.\n\n"+
		"Не хотите пропустить новые предложения с кешбэком 100 %%? Продлите доступ прямо сейчас.", name)
}

// Onboarding and status

func MsgWelcome(lang Lang, firstName string) string {
	name := DisplayName(lang, firstName)
	if lang == EN {
		return fmt.Sprintf("Welcome, %s!\n\n🔥 Access to the channel with 100%% cashback offers.", name)
	}
	return fmt.Sprintf("Добро пожаловать, %s!\n\n🔥 Доступ к каналу с товарами за кешбэк 100 %%.", name)
}

// SubscriptionView is the user-facing snapshot rendered by MsgStatus.
type SubscriptionView struct {
	PlanName   string
	EndDate    time.Time
	DaysLeft   int
	InviteLink string
}

func MsgStatus(lang Lang, v SubscriptionView) string {
	var b strings.Builder
	if lang == EN {
		fmt.Fprintf(&b, "Your current subscription: %s\nValid until: %s\nDays left: %d",
			EscapeHTML(v.PlanName), biztime.FormatDate(v.EndDate), v.DaysLeft)
	} else {
		fmt.Fprintf(&b, "Ваша текущая подписка: %s\nДействует до: %s\nОсталось дней: %d",
			EscapeHTML(v.PlanName), biztime.FormatDate(v.EndDate), v.DaysLeft)
	}
	if v.InviteLink != "" {
		b.WriteString("\n\n")
		b.WriteString(inviteBlock(lang, v.InviteLink))
	}
	return b.String()
}

// MsgDetails is the /details answer. The channel link only opens for current members.
func MsgDetails(lang Lang, endDate time.Time, channelLink string) string {
	var b strings.Builder
	if lang == EN {
		fmt.Fprintf(&b, "📅 <b>Subscription active until:</b> %s", biztime.FormatDate(endDate))
		if channelLink != "" {
			fmt.Fprintf(&b, "\n\n🔗 <b>Your channel:</b> <a href=\"%s\">Open channel</a>\n"+
				"<i>(This link works once you are a member of the channel)</i>", EscapeHTML(channelLink))
		}
		return b.String()
	}
	fmt.Fprintf(&b, "📅 <b>Подписка активна до:</b> %s", biztime.FormatDate(endDate))
	if channelLink != "" {
		fmt.Fprintf(&b, "\n\n🔗 <b>Ваш канал:</b> <a href=\"%s\">Открыть канал</a>\n"+
			"<i>(Эта ссылка работает, если вы уже состоите в канале)</i>", EscapeHTML(channelLink))
	}
	return b.String()
}

func MsgNoSubscription(lang Lang) string {
	if lang == EN {
		return "You have no active subscription."
	}
	return "У вас нет активной подписки."
}

func inviteBlock(lang Lang, link string) string {
	if lang == EN {
		return fmt.Sprintf("Channel link: %s\n⚠️ This link is for you only. Open it and tap 'Request to join'; "+
			"the request will be approved automatically.", link)
	}
	return fmt.Sprintf("Ссылка для входа в канал: %s\n⚠️ Эта ссылка доступна только вам. Перейдя по ссылке, "+
		"нажмите 'Запросить вступление'. Ваш запрос будет автоматически одобрен.", link)
}

// Join requests

func MsgJoinApproved(lang Lang) string {
	if lang == EN {
		return "✅ Your request to join the channel was approved automatically. Welcome!"
	}
	return "✅ Ваш запрос на вступление в канал был автоматически одобрен. Добро пожаловать!"
}

func MsgJoinDeclined(lang Lang) string {
	if lang == EN {
		return "❌ Your request to join the channel was declined. This invite link belongs to another user."
	}
	return "❌ Ваш запрос на вступление в канал был отклонен. Эта ссылка-приглашение предназначена для другого пользователя."
}

// Payments

func MsgPaymentSuccess(lang Lang, v SubscriptionView) string {
	var b strings.Builder
	if lang == EN {
		fmt.Fprintf(&b, "✅ Payment successful!\n\nSubscription: %s\nValid until: %s",
			EscapeHTML(v.PlanName), biztime.FormatDate(v.EndDate))
	} else {
		fmt.Fprintf(&b, "✅ Оплата успешно выполнена!\n\nПодписка: %s\nСрок действия: до %s",
			EscapeHTML(v.PlanName), biztime.FormatDate(v.EndDate))
	}
	if v.InviteLink != "" {
		b.WriteString("\n\n")
		b.WriteString(inviteBlock(lang, v.InviteLink))
	}
	return b.String()
}

func MsgPaymentActivationFailed(lang Lang) string {
	if lang == EN {
		return "⚠️ The payment went through, but a technical error occurred while activating your subscription. " +
			"Our team is already on it and will restore your access shortly. Please keep this chat as proof of payment."
	}
	return "⚠️ Платеж выполнен, но возникла техническая ошибка при активации подписки. " +
		"Наши специалисты уже работают над этим и восстановят ваш доступ в ближайшее время. " +
		"Пожалуйста, сохраните этот чат для подтверждения оплаты."
}

func MsgCheckoutRejected(lang Lang) string {
	if lang == EN {
		return "This invoice is no longer valid. Please request a new one."
	}
	return "Этот счёт больше недействителен. Пожалуйста, запросите новый."
}

func MsgPaymentErrorResolved(lang Lang) string {
	if lang == EN {
		return "✅ The problem with your payment has been resolved by an administrator. " +
			"If you have any questions, please contact support."
	}
	return "✅ Проблема с вашим платежом была разрешена администратором. " +
		"Если у вас остались вопросы, пожалуйста, свяжитесь с поддержкой."
}

// Cancellation

func MsgCancelConfirm(lang Lang) string {
	if lang == EN {
		return "⚠️ Are you sure you want to cancel your subscription? Channel access will be revoked " +
			"and payments for the unused period are not refunded."
	}
	return "⚠️ Вы уверены, что хотите отменить подписку? Доступ к каналу будет отозван, " +
		"деньги за неиспользованный период не возвращаются."
}

func MsgCancelDone(lang Lang) string {
	if lang == EN {
		return "Your subscription has been cancelled and channel access revoked. " +
			"Payments for the unused period are not refunded."
	}
	return "Ваша подписка отменена. Доступ к каналу отозван. Деньги за неиспользованный период не возвращаются."
}

func MsgCancelNothing(lang Lang) string {
	if lang == EN {
		return "You have no active subscription to cancel."
	}
	return "У вас нет активной подписки для отмены."
}

func MsgTryLater(lang Lang) string {
	if lang == EN {
		return "Something went wrong. Please try again later or contact support."
	}
	return "Произошла ошибка. Пожалуйста, попробуйте позже или обратитесь в поддержку."
}

func MsgJoinLinkInvalid(lang Lang) string {
	if lang == EN {
		return "❌ Your request to join the channel was declined: this invite link is no longer valid. " +
			"Use /status to get your current link."
	}
	return "❌ Ваш запрос на вступление в канал был отклонен: ссылка-приглашение больше недействительна. " +
		"Получите актуальную ссылку командой /status."
}

// Catalog

// PlanView is one catalog entry shown to a buyer.
type PlanView struct {
	Name         string
	Price        int64
	Currency     string
	DurationDays float64
}

func MsgPlanList(lang Lang, plans []PlanView) string {
	if len(plans) == 0 {
		if lang == EN {
			return "No plans are available right now."
		}
		return "Сейчас нет доступных тарифов."
	}
	var b strings.Builder
	if lang == EN {
		b.WriteString("Available plans:\n")
	} else {
		b.WriteString("Доступные тарифы:\n")
	}
	for _, p := range plans {
		fmt.Fprintf(&b, "\n• %s: %s", EscapeHTML(p.Name), FormatAmount(p.Price, p.Currency))
		if lang == EN {
			fmt.Fprintf(&b, " for %g days", p.DurationDays)
		} else {
			fmt.Fprintf(&b, " на %g дн.", p.DurationDays)
		}
	}
	return b.String()
}

func MsgHelp(lang Lang, supportHandle string) string {
	var b strings.Builder
	if lang == EN {
		b.WriteString("🤝 Support\n\n/status: your subscription and channel link\n" +
			"/details: end date and a link to the channel\n/cancel: cancel your subscription")
		if supportHandle != "" {
			fmt.Fprintf(&b, "\n\nIf you have a question, write to %s", EscapeHTML(supportHandle))
		}
		return b.String()
	}
	b.WriteString("🤝 Поддержка\n\n/status: ваша подписка и ссылка на канал\n" +
		"/details: дата окончания и ссылка на канал\n/cancel: отменить подписку")
	if supportHandle != "" {
		fmt.Fprintf(&b, "\n\nЕсли у вас есть вопрос, напишите %s", EscapeHTML(supportHandle))
	}
	return b.String()
}
