package i18n

import (
	"strings"

	"golang.org/x/text/language"
)

// Lang represents a supported language
type Lang string

const (
	RU Lang = "ru"
	EN Lang = "en"
)

// DetectLang maps Telegram's language_code onto a supported language. The
// audience is Russian-speaking, so anything that is not English gets Russian.
func DetectLang(languageCode string) Lang {
	code := strings.TrimSpace(languageCode)
	if code == "" {
		return RU
	}
	tag, err := language.Parse(code)
	if err != nil {
		return RU
	}
	if base, _ := tag.Base(); base.String() == "en" {
		return EN
	}
	return RU
}
