package i18n

import (
	"fmt"
	"strings"
	"time"

	"github.com/channelgate/channelgate/internal/shared/biztime"
)

// Operator-facing texts are Russian only.

// PaymentErrorView is what operators see about one failed activation.
type PaymentErrorView struct {
	ID             uint
	TelegramUserID string
	Username       string
	ChargeID       string
	Amount         int64
	Currency       string
	PlanID         *uint
	ErrorMessage   string
	PaymentTime    time.Time
}

const maxAlertErrorLen = 200

// MsgAdminPaymentAlert is sent to every admin when a captured payment failed to activate.
func MsgAdminPaymentAlert(v PaymentErrorView) string {
	username := v.Username
	if username == "" {
		username = "No username"
	}
	errText := v.ErrorMessage
	if r := []rune(errText); len(r) > maxAlertErrorLen {
		errText = string(r[:maxAlertErrorLen])
	}
	return fmt.Sprintf("🚨 <b>Ошибка оплаты!</b>\n\n"+
		"Пользователь: %s (%s)\n"+
		"Сумма: %s\n"+
		"План ID: %s\n"+
		"Ошибка: %s\n"+
		"ID ошибки в БД: %d",
		EscapeHTML(v.TelegramUserID), EscapeHTML(username),
		FormatAmount(v.Amount, v.Currency),
		planIDText(v.PlanID),
		EscapeHTML(errText),
		v.ID,
	)
}

// MsgPaymentErrorEntry renders one unresolved error for /payment_errors.
func MsgPaymentErrorEntry(v PaymentErrorView) string {
	amount := "N/A"
	if v.Amount > 0 {
		amount = FormatAmount(v.Amount, v.Currency)
	}
	return fmt.Sprintf("🚨 Ошибка платежа #%d:\n"+
		"Пользователь: %s\n"+
		"Время платежа: %s\n"+
		"ID транзакции: %s\n"+
		"Сумма: %s\n"+
		"План: %s\n"+
		"Ошибка: %s\n\n"+
		"Для разрешения используйте команду:\n"+
		"/resolve_payment_error %d &lt;причина решения&gt;",
		v.ID,
		EscapeHTML(v.TelegramUserID),
		v.PaymentTime.In(biztime.Location()).Format("02.01.2006 15:04:05"),
		EscapeHTML(v.ChargeID),
		amount,
		planIDText(v.PlanID),
		EscapeHTML(v.ErrorMessage),
		v.ID,
	)
}

func planIDText(id *uint) string {
	if id == nil {
		return "N/A"
	}
	return fmt.Sprintf("%d", *id)
}

func MsgNoPaymentErrors() string {
	return "Нет неразрешенных ошибок платежей."
}

func MsgResolveUsage() string {
	return "Неверный формат команды. Используйте: /resolve_payment_error ID &lt;причина решения&gt;"
}

func MsgPaymentErrorNotFound(id uint) string {
	return fmt.Sprintf("Ошибка платежа с ID %d не найдена.", id)
}

func MsgPaymentErrorMarkedResolved(id uint) string {
	return fmt.Sprintf("✅ Ошибка платежа #%d помечена как разрешенная.", id)
}

func MsgPaymentErrorAlreadyResolved(id uint) string {
	return fmt.Sprintf("Ошибка платежа #%d уже разрешена.", id)
}

// DefaultResolutionNotes is stored when the operator gives no reason.
const DefaultResolutionNotes = "Разрешено администратором"

// EmailPaymentAlertSubject and EmailPaymentAlertBody render the e-mail copy of the alert.
func EmailPaymentAlertSubject(v PaymentErrorView) string {
	return fmt.Sprintf("[channelgate] Payment activation failed #%d", v.ID)
}

func EmailPaymentAlertBody(v PaymentErrorView) string {
	var b strings.Builder
	b.WriteString("<h3>Payment activation failed</h3><ul>")
	fmt.Fprintf(&b, "<li>Error ID: %d</li>", v.ID)
	fmt.Fprintf(&b, "<li>Telegram user: %s</li>", EscapeHTML(v.TelegramUserID))
	fmt.Fprintf(&b, "<li>Charge ID: %s</li>", EscapeHTML(v.ChargeID))
	fmt.Fprintf(&b, "<li>Amount: %s</li>", FormatAmount(v.Amount, v.Currency))
	fmt.Fprintf(&b, "<li>Plan ID: %s</li>", planIDText(v.PlanID))
	fmt.Fprintf(&b, "<li>Error: %s</li>", EscapeHTML(v.ErrorMessage))
	b.WriteString("</ul>")
	return b.String()
}
