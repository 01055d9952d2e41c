package i18n

import "strings"

type Lang string

const (
	RU Lang = "ru"
	EN Lang = "en"
)

// FromLanguageCode maps a Telegram language_code to a Lang; an empty code yields fallback.
func FromLanguageCode(code string, fallback Lang) Lang {
	code = strings.ToLower(strings.TrimSpace(code))
	if code == "" {
		return fallback
	}
	if strings.HasPrefix(code, "ru") || strings.HasPrefix(code, "uk") || strings.HasPrefix(code, "be") {
		return RU
	}
	return EN
}

func Parse(s string) Lang {
	s = strings.ToLower(strings.TrimSpace(s))
	switch s {
	case "ru":
		return RU
	case "en":
		return EN
	default:
		return EN
	}
}

func Valid(s string) bool {
	s = strings.ToLower(strings.TrimSpace(s))
	return s == string(RU) || s == string(EN)
}
