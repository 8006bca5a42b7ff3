package form

import (
	"strings"

	"github.com/goliatone/go-farmform/pkg/model"
	"github.com/goliatone/go-farmform/pkg/validation"
)

// Rule produces the error for Key from the current values. It re-runs
// whenever a path listed in Watches (or a parent/child of one) changes.
type Rule struct {
	Key     string
	Watches []string
	Check   func(Values) string
}

func (r Rule) watches(path string) bool {
	for _, watched := range r.Watches {
		if watched == path ||
			strings.HasPrefix(path, watched+".") ||
			strings.HasPrefix(watched, path+".") {
			return true
		}
	}
	return false
}

// NameRule validates the name stored at path under the same error key.
func NameRule(v *validation.Validator, path string) Rule {
	return Rule{
		Key:     path,
		Watches: []string{path},
		Check: func(values Values) string {
			return v.ValidateNameInput(values.String(path))
		},
	}
}

// NumericAt reads a numeric range stored under prefix (prefix.min, prefix.max,
// prefix.optimal_min, prefix.optimal_max, prefix.granularity).
func NumericAt(values Values, prefix string) model.NumericValue {
	return model.NumericValue{
		Min:         values.Float(prefix + ".min"),
		Max:         values.Float(prefix + ".max"),
		OptimalMin:  values.Float(prefix + ".optimal_min"),
		OptimalMax:  values.Float(prefix + ".optimal_max"),
		Granularity: values.Float(prefix + ".granularity"),
	}
}

// RangeRules expands ValidateRangeOrGranularity into one rule per sub-field
// key. Every rule watches the whole range so editing max re-checks both the
// min/max and the optimal band.
func RangeRules(v *validation.Validator, prefix string) []Rule {
	keys := []string{validation.KeyMinMax, validation.KeyOptimalMinMax, validation.KeyGranularity}
	rules := make([]Rule, 0, len(keys))
	for _, key := range keys {
		rules = append(rules, Rule{
			Key:     key,
			Watches: []string{prefix},
			Check: func(values Values) string {
				return v.ValidateRangeOrGranularity(NumericAt(values, prefix))[key]
			},
		})
	}
	return rules
}

// CategoricalRules validates the category list at categoriesPath and the
// optimal subset at optimalPath.
func CategoricalRules(v *validation.Validator, categoriesPath, optimalPath string) []Rule {
	return []Rule{
		{
			Key:     validation.KeyCategories,
			Watches: []string{categoriesPath},
			Check: func(values Values) string {
				return v.ValidateCategoricalValue(values.Strings(categoriesPath))
			},
		},
		{
			Key:     validation.KeyOptimalValues,
			Watches: []string{categoriesPath, optimalPath},
			Check: func(values Values) string {
				return v.ValidateOptimalCategoricalValue(values.Strings(optimalPath), values.Strings(categoriesPath))
			},
		},
	}
}

// TypeObjectRule requires a selection at path whenever available reports
// options to choose from.
func TypeObjectRule(v *validation.Validator, path string, available func() int) Rule {
	return Rule{
		Key:     path,
		Watches: []string{path},
		Check: func(values Values) string {
			n := 0
			if available != nil {
				n = available()
			}
			return v.ValidateTypeObjectValue(values.Ints(path), n)
		},
	}
}

// When limits rules to values where cond holds, e.g. numeric rules on a
// variable whose type is NUMBER. condPaths are added to every rule's watches.
func When(cond func(Values) bool, condPaths []string, rules ...Rule) []Rule {
	out := make([]Rule, 0, len(rules))
	for _, rule := range rules {
		check := rule.Check
		out = append(out, Rule{
			Key:     rule.Key,
			Watches: append(append([]string(nil), rule.Watches...), condPaths...),
			Check: func(values Values) string {
				if cond != nil && !cond(values) {
					return ""
				}
				return check(values)
			},
		})
	}
	return out
}
