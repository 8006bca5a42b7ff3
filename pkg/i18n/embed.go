package i18n

import "embed"

//go:embed catalogs/*.yaml
var catalogFS embed.FS

// DefaultLocale is the locale the farm apps ship with.
const DefaultLocale = "es"
