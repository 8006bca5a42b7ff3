package i18n

import (
	"strings"
	"sync"
)

// Localizer binds a Translator to a locale so call sites only pass keys.
type Localizer struct {
	translator Translator
	locale     string
	onMissing  MissingTranslationHandler
}

// LocalizerOption customises a Localizer.
type LocalizerOption func(*Localizer)

// WithMissingHandler overrides the string produced for unresolved keys.
func WithMissingHandler(handler MissingTranslationHandler) LocalizerOption {
	return func(l *Localizer) {
		if handler != nil {
			l.onMissing = handler
		}
	}
}

// NewLocalizer builds a Localizer. A nil translator yields keys (or the
// "default" argument) for every lookup.
func NewLocalizer(t Translator, locale string, opts ...LocalizerOption) *Localizer {
	l := &Localizer{
		translator: t,
		locale:     strings.TrimSpace(locale),
		onMissing:  missingTranslationDefault,
	}
	if l.locale == "" {
		l.locale = DefaultLocale
	}
	for _, opt := range opts {
		if opt != nil {
			opt(l)
		}
	}
	return l
}

var (
	embeddedOnce    sync.Once
	embeddedCatalog *Catalog
)

// DefaultLocalizer returns a Localizer over the embedded catalogs. The
// catalogs are parsed once and shared by every default localizer.
func DefaultLocalizer(locale string, opts ...LocalizerOption) *Localizer {
	embeddedOnce.Do(func() {
		embeddedCatalog = MustDefault()
	})
	return NewLocalizer(embeddedCatalog, locale, opts...)
}

// Locale reports the bound locale.
func (l *Localizer) Locale() string {
	if l == nil {
		return DefaultLocale
	}
	return l.locale
}

// WithLocale returns a copy bound to another locale.
func (l *Localizer) WithLocale(locale string) *Localizer {
	if l == nil {
		return NewLocalizer(nil, locale)
	}
	clone := *l
	if trimmed := strings.TrimSpace(locale); trimmed != "" {
		clone.locale = trimmed
	}
	return &clone
}

// T translates key. It never returns an empty string for a non-empty key.
func (l *Localizer) T(key string, args ...any) string {
	if l == nil {
		return translate(DefaultLocale, key, nil, missingTranslationDefault, args)
	}
	return translate(l.locale, key, l.translator, l.onMissing, args)
}

func translate(locale, key string, t Translator, onMissing MissingTranslationHandler, args []any) string {
	key = strings.TrimSpace(key)
	if key == "" {
		return ""
	}
	if onMissing == nil {
		onMissing = missingTranslationDefault
	}
	if t == nil {
		return onMissing(locale, key, args, ErrMissingTranslator)
	}

	result, err := t.Translate(locale, key, args...)
	if err == nil && strings.TrimSpace(result) != "" {
		return result
	}
	return onMissing(locale, key, args, err)
}

// missingTranslationDefault returns the "default" argument when supplied,
// otherwise the key itself.
func missingTranslationDefault(_ string, key string, args []any, _ error) string {
	for _, arg := range args {
		named, ok := arg.(map[string]any)
		if !ok {
			continue
		}
		if fallback, ok := named["default"].(string); ok && strings.TrimSpace(fallback) != "" {
			return interpolate(fallback, args)
		}
	}
	return key
}
