package i18n

import "errors"

var (
	// ErrMissingTranslation indicates the key is absent from both the requested
	// and the fallback locale.
	ErrMissingTranslation = errors.New("i18n: missing translation")
	// ErrMissingTranslator is passed to missing handlers when no translator is set.
	ErrMissingTranslator = errors.New("i18n: translator not configured")
	// ErrInvalidCatalog wraps catalog decoding failures.
	ErrInvalidCatalog = errors.New("i18n: invalid catalog")
)
