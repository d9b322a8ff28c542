package i18n

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestDetectLang(t *testing.T) {
	tests := []struct {
		code string
		want Lang
	}{
		{"", RU},
		{"ru", RU},
		{"en", EN},
		{"en-US", EN},
		{"uk", RU},
		{"not a tag!", RU},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, DetectLang(tt.code), tt.code)
	}
}

func TestSafeName(t *testing.T) {
	assert.Equal(t, "Anna", SafeName("<b>Anna</b>"))
	assert.Equal(t, "Tom &amp; Jerry", SafeName("Tom & Jerry"))
	assert.Equal(t, "Tom &amp; Jerry", SafeName("Tom &amp; Jerry"))
	assert.Empty(t, SafeName("<script>x</script>  "))
}

func TestDisplayName(t *testing.T) {
	assert.Equal(t, "Друг", DisplayName(RU, ""))
	assert.Equal(t, "Friend", DisplayName(EN, "  "))
	assert.Equal(t, "Анна", DisplayName(RU, "анна"))
}

func TestFormatAmount(t *testing.T) {
	assert.Equal(t, "100.00 RUB", FormatAmount(10000, "rub"))
	assert.Equal(t, "0.60 RUB", FormatAmount(60, "RUB"))
	assert.Equal(t, "1.05", FormatAmount(105, ""))
}

func TestMsgStatus_IncludesLinkOnlyWhenPresent(t *testing.T) {
	end := time.Date(2024, 6, 30, 12, 0, 0, 0, time.UTC)
	v := SubscriptionView{PlanName: "Monthly", EndDate: end, DaysLeft: 3}

	msg := MsgStatus(RU, v)
	assert.Contains(t, msg, "30.06.2024")
	assert.Contains(t, msg, "Осталось дней: 3")
	assert.NotContains(t, msg, "t.me")

	v.InviteLink = "https://t.me/+abc"
	assert.Contains(t, MsgStatus(EN, v), "https://t.me/+abc")
}

func TestMsgAdminPaymentAlert_TruncatesError(t *testing.T) {
	planID := uint(7)
	msg := MsgAdminPaymentAlert(PaymentErrorView{
		ID:             12,
		TelegramUserID: "42",
		Amount:         10000,
		Currency:       "RUB",
		PlanID:         &planID,
		ErrorMessage:   strings.Repeat("x", 500),
	})

	assert.Contains(t, msg, "100.00 RUB")
	assert.Contains(t, msg, "No username")
	assert.Contains(t, msg, "ID ошибки в БД: 12")
	assert.NotContains(t, msg, strings.Repeat("x", 201))
}

func TestMsgPlanList(t *testing.T) {
	text := MsgPlanList(EN, []PlanView{
		{Name: "Monthly", Price: 6000, Currency: "rub", DurationDays: 30},
		{Name: "A&B", Price: 15000, Currency: "RUB", DurationDays: 90},
	})
	assert.Contains(t, text, "Monthly: 60.00 RUB for 30 days")
	assert.Contains(t, text, "A&amp;B: 150.00 RUB")

	assert.Equal(t, "Сейчас нет доступных тарифов.", MsgPlanList(RU, nil))
}

func TestMsgHelp_SupportHandleIsOptional(t *testing.T) {
	assert.Contains(t, MsgHelp(EN, "@support"), "@support")
	assert.NotContains(t, MsgHelp(RU, ""), "напишите")
}

func TestChannelLink(t *testing.T) {
	assert.Equal(t, "https://t.me/c/1234567890/1", ChannelLink("-1001234567890"))
	assert.Equal(t, "https://t.me/c/4242/1", ChannelLink("-4242"))
	assert.Empty(t, ChannelLink(" "))
}

func TestMsgDetails(t *testing.T) {
	end := time.Date(2024, 6, 30, 12, 0, 0, 0, time.UTC)

	msg := MsgDetails(EN, end, ChannelLink("-1001234567890"))
	assert.Contains(t, msg, "30.06.2024")
	assert.Contains(t, msg, `<a href="https://t.me/c/1234567890/1">`)

	assert.NotContains(t, MsgDetails(RU, end, ""), "t.me")
}
