package i18n

import (
	"html"
	"strings"

	"github.com/microcosm-cc/bluemonday"
	"github.com/shopspring/decimal"
	"golang.org/x/text/cases"
	"golang.org/x/text/currency"
	"golang.org/x/text/language"
)

var strictPolicy = bluemonday.StrictPolicy()

// SafeName strips any markup from a user-supplied name and escapes the rest for
// HTML parse mode.
func SafeName(name string) string {
	// bluemonday escapes entities on output; unescape first so "&" is not doubled.
	return strings.TrimSpace(strictPolicy.Sanitize(html.UnescapeString(name)))
}

// DisplayName is the greeting form of a first name, falling back to a neutral address.
func DisplayName(lang Lang, firstName string) string {
	name := SafeName(firstName)
	if name == "" {
		if lang == EN {
			return "Friend"
		}
		return "Друг"
	}
	tag := language.Russian
	if lang == EN {
		tag = language.English
	}
	return cases.Title(tag, cases.NoLower).String(name)
}

// FormatAmount renders an amount in minor units (kopecks, cents) as "123.45 RUB".
// Unknown currency codes are printed as given.
func FormatAmount(minorUnits int64, currencyCode string) string {
	amount := decimal.New(minorUnits, -2).StringFixed(2)
	code := strings.ToUpper(strings.TrimSpace(currencyCode))
	if unit, err := currency.ParseISO(code); err == nil {
		code = unit.String()
	}
	if code == "" {
		return amount
	}
	return amount + " " + code
}

// EscapeHTML escapes special characters for Telegram HTML parse mode.
func EscapeHTML(s string) string {
	return html.EscapeString(s)
}

// ChannelLink is the members-only link to a private channel: t.me/c/ takes the chat id
// without the "-100" supergroup prefix.
func ChannelLink(channelID string) string {
	id := strings.TrimSpace(channelID)
	if trimmed, ok := strings.CutPrefix(id, "-100"); ok {
		id = trimmed
	} else {
		id = strings.TrimPrefix(id, "-")
	}
	if id == "" {
		return ""
	}
	return "https://t.me/c/" + id + "/1"
}
