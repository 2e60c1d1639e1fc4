package api

import (
	"net/http"
	"strings"
)

// languageOf returns the Accept-Language value of the request, "lang" query parameter first.
func languageOf(r *http.Request) string {
	if lang := r.URL.Query().Get("lang"); lang != "" {
		return normalizeLanguage(lang)
	}
	if lang := r.Header.Get("Accept-Language"); lang != "" {
		return lang
	}
	return "en"
}

func normalizeLanguage(s string) string {
	if strings.HasPrefix(s, "ru") {
		return "ru"
	}
	return "en"
}
