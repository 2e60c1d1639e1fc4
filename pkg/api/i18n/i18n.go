package i18n

import (
	"embed"

	"github.com/BurntSushi/toml"
	"github.com/nicksnyder/go-i18n/v2/i18n"
	"golang.org/x/text/language"

	"github.com/arnac-io/auctionescrow/pkg/core"
)

//go:embed translations/active.*.toml
var localeFS embed.FS
var bundle *i18n.Bundle

func init() {
	bundle = i18n.NewBundle(language.English)
	bundle.RegisterUnmarshalFunc("toml", toml.Unmarshal)
	if _, err := bundle.LoadMessageFileFS(localeFS, "translations/active.en.toml"); err != nil {
		panic(err)
	}
	if _, err := bundle.LoadMessageFileFS(localeFS, "translations/active.ru.toml"); err != nil {
		panic(err)
	}
}

type C = i18n.LocalizeConfig
type M = i18n.Message
type Template = map[string]interface{}

// T localizes a message for an Accept-Language value. Unknown messages yield the default, if any.
func T(lang string, c C) string {
	s, _ := i18n.NewLocalizer(bundle, lang).Localize(&c)
	return s
}

// messageID maps an error code to its translation key.
func messageID(code core.ErrorCode) string {
	if code.Kind == "token" {
		return "Token" + code.Name
	}
	return code.Name
}

// Error returns a human-readable description of code, falling back to its name.
func Error(lang string, code core.ErrorCode) string {
	return T(lang, C{
		DefaultMessage: &M{
			ID:    messageID(code),
			Other: code.Name,
		},
	})
}

// Languages lists the tags that have translations.
func Languages() []language.Tag {
	return bundle.LanguageTags()
}
