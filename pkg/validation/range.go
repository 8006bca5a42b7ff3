package validation

import (
	"math"

	"github.com/goliatone/go-farmform/pkg/model"
)

// Sub-field keys reported by ValidateRangeOrGranularity.
const (
	KeyMinMax        = "minMax"
	KeyOptimalMinMax = "optimalMinMax"
	KeyGranularity   = "granularity"
)

// ValidateRangeOrGranularity checks min <= optimalMin <= optimalMax <= max and
// granularity > 0. It returns nil when the range is valid, otherwise a map of
// sub-field key to message.
func (v *Validator) ValidateRangeOrGranularity(n model.NumericValue) map[string]string {
	errs := make(map[string]string, 3)

	switch {
	case !finite(n.Min) || !finite(n.Max):
		errs[KeyMinMax] = v.msg(MsgNotANumber)
	case n.Min > n.Max:
		errs[KeyMinMax] = v.msg(MsgMinGreaterThanMax)
	}

	switch {
	case !finite(n.OptimalMin) || !finite(n.OptimalMax):
		errs[KeyOptimalMinMax] = v.msg(MsgNotANumber)
	case finite(n.Min) && finite(n.Max) && (n.OptimalMin < n.Min || n.OptimalMax > n.Max):
		errs[KeyOptimalMinMax] = v.msg(MsgOptimalOutOfRange)
	case n.OptimalMin > n.OptimalMax:
		errs[KeyOptimalMinMax] = v.msg(MsgOptimalMinAboveMax)
	}

	switch {
	case !finite(n.Granularity):
		errs[KeyGranularity] = v.msg(MsgNotANumber)
	case n.Granularity <= 0:
		errs[KeyGranularity] = v.msg(MsgGranularityInvalid)
	}

	if len(errs) == 0 {
		return nil
	}
	return errs
}

// ValidateFormValue applies the numeric or categorical rules matching the
// value kind. Keys are the range sub-fields for numeric values and
// "categories"/"optimalValues" for categorical ones.
func (v *Validator) ValidateFormValue(value model.FormValue) map[string]string {
	switch value.Kind {
	case model.ValueKindNumeric:
		if value.Numeric == nil {
			return map[string]string{KeyMinMax: v.msg(MsgNotANumber)}
		}
		return v.ValidateRangeOrGranularity(*value.Numeric)
	case model.ValueKindCategorical:
		var c model.CategoricalValue
		if value.Categorical != nil {
			c = *value.Categorical
		}
		errs := make(map[string]string, 2)
		if msg := v.ValidateCategoricalValue(c.Categories); msg != "" {
			errs[KeyCategories] = msg
		}
		if msg := v.ValidateOptimalCategoricalValue(c.OptimalValues, c.Categories); msg != "" {
			errs[KeyOptimalValues] = msg
		}
		if len(errs) == 0 {
			return nil
		}
		return errs
	default:
		return nil
	}
}

// ValidateRangeOrGranularity checks a numeric range with the default validator.
func ValidateRangeOrGranularity(n model.NumericValue) map[string]string {
	return Default().ValidateRangeOrGranularity(n)
}

// ValidateFormValue checks a form value with the default validator.
func ValidateFormValue(value model.FormValue) map[string]string {
	return Default().ValidateFormValue(value)
}

func finite(f float64) bool {
	return !math.IsNaN(f) && !math.IsInf(f, 0)
}
