// Package i18n provides the user-facing message catalogs.
package i18n

import (
	"embed"
	"encoding/json"
	"fmt"

	gi18n "github.com/nicksnyder/go-i18n/v2/i18n"
	"golang.org/x/text/language"
)

//go:embed locales/*.json
var localeFS embed.FS

// Supported lists the catalog languages.
var Supported = []string{"en", "ru"}

// Localizer renders message IDs in one language.
type Localizer struct {
	lang      string
	localizer *gi18n.Localizer
}

// Init loads the embedded catalogs and returns a localizer for lang, falling
// back to English for unknown languages and missing messages.
func Init(lang string) (*Localizer, error) {
	bundle := gi18n.NewBundle(language.English)
	bundle.RegisterUnmarshalFunc("json", json.Unmarshal)
	for _, l := range Supported {
		if _, err := bundle.LoadMessageFileFS(localeFS, "locales/"+l+".json"); err != nil {
			return nil, fmt.Errorf("i18n: load %s: %w", l, err)
		}
	}

	tag, err := language.Parse(lang)
	if err != nil {
		tag = language.English
	}
	return &Localizer{
		lang:      tag.String(),
		localizer: gi18n.NewLocalizer(bundle, tag.String(), language.English.String()),
	}, nil
}

// MustInit is Init for known-good languages; it panics on catalog errors.
func MustInit(lang string) *Localizer {
	l, err := Init(lang)
	if err != nil {
		panic(err)
	}
	return l
}

// Lang returns the requested language tag.
func (l *Localizer) Lang() string {
	return l.lang
}

// T returns the message for id, or id itself when no catalog has it.
func (l *Localizer) T(id string) string {
	// A fallback-language hit comes back with a non-nil error and the
	// fallback text, so only an empty result counts as missing.
	msg, _ := l.localizer.Localize(&gi18n.LocalizeConfig{MessageID: id})
	if msg == "" {
		return id
	}
	return msg
}

// Tf formats the message for id with args.
func (l *Localizer) Tf(id string, args ...any) string {
	return fmt.Sprintf(l.T(id), args...)
}

// Has reports whether id exists in the catalogs.
func (l *Localizer) Has(id string) bool {
	msg, _ := l.localizer.Localize(&gi18n.LocalizeConfig{MessageID: id})
	return msg != ""
}
