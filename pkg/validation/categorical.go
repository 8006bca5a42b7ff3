package validation

import (
	"strings"

	"github.com/goliatone/go-farmform/pkg/i18n"
)

// Keys reported by ValidateFormValue for categorical values.
const (
	KeyCategories    = "categories"
	KeyOptimalValues = "optimalValues"
)

// ValidateCategoricalValue rejects empty lists, blank entries and entries that
// repeat ignoring case.
func (v *Validator) ValidateCategoricalValue(categories []string) string {
	if len(categories) == 0 {
		return v.msg(MsgCategoricalEmpty)
	}
	seen := make(map[string]struct{}, len(categories))
	for _, category := range categories {
		trimmed := strings.TrimSpace(category)
		if trimmed == "" {
			return v.msg(MsgCategoricalBlank)
		}
		folded := strings.ToLower(trimmed)
		if _, dup := seen[folded]; dup {
			return v.msg(MsgCategoricalRepeated, i18n.Args{"value": trimmed})
		}
		seen[folded] = struct{}{}
	}
	return ""
}

// ValidateOptimalCategoricalValue requires every optimal value to be one of the
// categories. Matching is exact after trimming.
func (v *Validator) ValidateOptimalCategoricalValue(optimal, categories []string) string {
	allowed := make(map[string]struct{}, len(categories))
	for _, category := range categories {
		allowed[strings.TrimSpace(category)] = struct{}{}
	}
	for _, value := range optimal {
		trimmed := strings.TrimSpace(value)
		if _, ok := allowed[trimmed]; !ok {
			return v.msg(MsgOptimalNotCategory, i18n.Args{"value": trimmed})
		}
	}
	return ""
}

// SplitCategories parses a comma separated list, trimming entries and dropping
// empty ones.
func SplitCategories(raw string) []string {
	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	for _, part := range parts {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}

// ValidateCategoricalValue checks categories with the default validator.
func ValidateCategoricalValue(categories []string) string {
	return Default().ValidateCategoricalValue(categories)
}

// ValidateOptimalCategoricalValue checks optimal values with the default validator.
func ValidateOptimalCategoricalValue(optimal, categories []string) string {
	return Default().ValidateOptimalCategoricalValue(optimal, categories)
}
