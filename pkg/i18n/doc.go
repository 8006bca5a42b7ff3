// Package i18n provides the message catalogs used by the validation rules,
// form notices and screens. Catalogs are YAML documents keyed by locale whose
// nested keys flatten into dotted message ids (formErrors.required.null).
// Messages may reference named arguments with {name} placeholders.
package i18n
