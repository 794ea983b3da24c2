package intl

import (
	"context"
	"embed"
	"encoding/json"
	"errors"

	"github.com/iota-uz/go-i18n/v2/i18n"
	"golang.org/x/text/language"

	"github.com/crowd-dev/crowd-api/pkg/constants"
)

//go:embed locales/*.json
var localeFiles embed.FS

var ErrNoLocalizer = errors.New("localizer not found in context")

type SupportedLanguage struct {
	Code        string
	VerboseName string
	Tag         language.Tag
}

var SupportedLanguages = []SupportedLanguage{
	{Code: "en", VerboseName: "English", Tag: language.English},
	{Code: "es", VerboseName: "Español", Tag: language.Spanish},
}

// Tags returns the language tags of the supported languages, English first.
func Tags() []language.Tag {
	tags := make([]language.Tag, len(SupportedLanguages))
	for i, lang := range SupportedLanguages {
		tags[i] = lang.Tag
	}
	return tags
}

// LoadBundle builds an i18n bundle with every embedded locale file.
func LoadBundle() (*i18n.Bundle, error) {
	bundle := i18n.NewBundle(language.English)
	bundle.RegisterUnmarshalFunc("json", json.Unmarshal)
	entries, err := localeFiles.ReadDir("locales")
	if err != nil {
		return nil, err
	}
	for _, entry := range entries {
		data, err := localeFiles.ReadFile("locales/" + entry.Name())
		if err != nil {
			return nil, err
		}
		if _, err := bundle.ParseMessageFileBytes(data, entry.Name()); err != nil {
			return nil, err
		}
	}
	return bundle, nil
}

func WithLocalizer(ctx context.Context, l *i18n.Localizer) context.Context {
	return context.WithValue(ctx, constants.LocalizerKey, l)
}

func UseLocalizer(ctx context.Context) (*i18n.Localizer, bool) {
	l, ok := ctx.Value(constants.LocalizerKey).(*i18n.Localizer)
	return l, ok && l != nil
}

func WithLocale(ctx context.Context, tag language.Tag) context.Context {
	return context.WithValue(ctx, constants.LocaleKey, tag)
}

// UseLocale returns the request locale, defaulting to English.
func UseLocale(ctx context.Context) language.Tag {
	if tag, ok := ctx.Value(constants.LocaleKey).(language.Tag); ok {
		return tag
	}
	return language.English
}
