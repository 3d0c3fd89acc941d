package domain

import "strings"

// Locale identifies a supported catalog language.
type Locale string

// Supported locales.
const (
	LocaleEN Locale = "en"
	LocaleRU Locale = "ru"
)

// DefaultLocale is used when a query does not name one.
const DefaultLocale = LocaleEN

// SupportedLocales returns every locale the catalog is translated into.
func SupportedLocales() []Locale {
	return []Locale{LocaleEN, LocaleRU}
}

// ParseLocale maps a request value to a supported locale. An empty value
// yields DefaultLocale; region suffixes such as "ru-RU" are accepted.
func ParseLocale(s string) (Locale, bool) {
	s = strings.ToLower(strings.TrimSpace(s))
	if s == "" {
		return DefaultLocale, true
	}
	if i := strings.IndexAny(s, "-_"); i > 0 {
		s = s[:i]
	}
	for _, l := range SupportedLocales() {
		if string(l) == s {
			return l, true
		}
	}
	return "", false
}
