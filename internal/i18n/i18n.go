// Package i18n looks up interface strings in English or French. A key with no
// entry is returned unchanged.
package i18n

import (
	"context"
	"embed"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"golang.org/x/text/language"
)

// LangParam is the query parameter used to select a language.
const LangParam = "lang"

type Lang string

const (
	English Lang = "en"
	French  Lang = "fr"
)

var supportedTags = []language.Tag{language.English, language.French}

var tagMatcher = language.NewMatcher(supportedTags)

//go:embed locales/*.json
var locales embed.FS

// Translator holds one table per supported language.
type Translator struct {
	tables map[Lang]map[string]string
}

// Load reads the bundled tables.
func Load() (*Translator, error) {
	tables := make(map[Lang]map[string]string, 2)
	for _, lang := range []Lang{English, French} {
		raw, err := locales.ReadFile("locales/" + string(lang) + ".json")
		if err != nil {
			return nil, fmt.Errorf("read %s table: %w", lang, err)
		}
		table := map[string]string{}
		if err := json.Unmarshal(raw, &table); err != nil {
			return nil, fmt.Errorf("decode %s table: %w", lang, err)
		}
		tables[lang] = table
	}
	return &Translator{tables: tables}, nil
}

// MustLoad is Load for package initialisation and tests.
func MustLoad() *Translator {
	t, err := Load()
	if err != nil {
		panic(err)
	}
	return t
}

func (t *Translator) T(lang Lang, key string) string {
	if value, ok := t.tables[lang][key]; ok && value != "" {
		return value
	}
	return key
}

// Table returns a copy of one language's entries.
func (t *Translator) Table(lang Lang) (map[string]string, bool) {
	table, ok := t.tables[lang]
	if !ok {
		return nil, false
	}
	out := make(map[string]string, len(table))
	for key, value := range table {
		out[key] = value
	}
	return out, true
}

// ParseLang accepts a supported language tag, including regional variants
// such as fr-CA.
func ParseLang(value string) (Lang, bool) {
	tag, err := language.Parse(strings.TrimSpace(value))
	if err != nil {
		return "", false
	}
	base, _ := tag.Base()
	switch Lang(base.String()) {
	case English:
		return English, true
	case French:
		return French, true
	}
	return "", false
}

// ResolveLang picks the request language: the lang query parameter, then
// Accept-Language, then English. Nothing is remembered between requests.
func ResolveLang(r *http.Request) Lang {
	if r == nil {
		return English
	}
	if value := r.URL.Query().Get(LangParam); value != "" {
		if lang, ok := ParseLang(value); ok {
			return lang
		}
	}
	if accept := strings.TrimSpace(r.Header.Get("Accept-Language")); accept != "" {
		if tags, _, err := language.ParseAcceptLanguage(accept); err == nil && len(tags) > 0 {
			_, index, confidence := tagMatcher.Match(tags...)
			if confidence != language.No {
				base, _ := supportedTags[index].Base()
				return Lang(base.String())
			}
		}
	}
	return English
}

// Localizer binds a Translator to one language.
type Localizer struct {
	translator *Translator
	Lang       Lang
}

func (t *Translator) Localizer(lang Lang) Localizer {
	return Localizer{translator: t, Lang: lang}
}

func (l Localizer) T(key string) string {
	if l.translator == nil {
		return key
	}
	return l.translator.T(l.Lang, key)
}

// Other is the language the switcher offers.
func (l Localizer) Other() Lang {
	if l.Lang == French {
		return English
	}
	return French
}

type localizerKey struct{}

func WithLocalizer(ctx context.Context, l Localizer) context.Context {
	return context.WithValue(ctx, localizerKey{}, l)
}

// FromContext returns the request's Localizer, or one that echoes keys.
func FromContext(ctx context.Context) Localizer {
	if l, ok := ctx.Value(localizerKey{}).(Localizer); ok {
		return l
	}
	return Localizer{Lang: English}
}
