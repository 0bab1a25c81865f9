package handlers

import (
	"net/http"

	"bagStore/entities"

	"golang.org/x/text/language"
)

const langCookie = "lang"

var supportedLocales = []entities.Locale{entities.LocaleRu, entities.LocaleUz}

var localeMatcher = language.NewMatcher([]language.Tag{
	language.Russian,
	language.Uzbek,
})

// locale picks the response language: the lang query parameter, then the
// lang cookie, then Accept-Language, then the configured default.
func (h *Handler) locale(r *http.Request) entities.Locale {
	if l := entities.Locale(r.URL.Query().Get("lang")); l.Valid() {
		return l
	}
	if c, err := r.Cookie(langCookie); err == nil {
		if l := entities.Locale(c.Value); l.Valid() {
			return l
		}
	}
	tags, _, err := language.ParseAcceptLanguage(r.Header.Get("Accept-Language"))
	if err != nil || len(tags) == 0 {
		return h.defaultLocale
	}
	_, idx, conf := localeMatcher.Match(tags...)
	if conf == language.No {
		return h.defaultLocale
	}
	return supportedLocales[idx]
}
