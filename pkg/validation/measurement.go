package validation

import (
	"math"
	"strconv"
	"strings"

	"github.com/goliatone/go-farmform/pkg/i18n"
	"github.com/goliatone/go-farmform/pkg/model"
)

// stepTolerance absorbs float error when checking granularity steps.
const stepTolerance = 1e-9

// ValidateMeasurementValue checks a raw measured value against the variable
// parameters. Numeric input accepts "," as decimal separator, must lie within
// [min, max] and sit on a granularity step counted from min. Categorical input
// must name one of the categories (case-insensitive). It returns the normalised
// value and "" on success.
func (v *Validator) ValidateMeasurementValue(params model.FormValue, raw string) (string, string) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return "", v.msg(MsgMeasurementEmpty)
	}

	switch params.Kind {
	case model.ValueKindNumeric:
		return v.validateNumericMeasurement(params.Numeric, trimmed)
	case model.ValueKindCategorical:
		if params.Categorical == nil {
			return trimmed, ""
		}
		for _, category := range params.Categorical.Categories {
			if strings.EqualFold(strings.TrimSpace(category), trimmed) {
				return strings.TrimSpace(category), ""
			}
		}
		return "", v.msg(MsgMeasurementCategory, i18n.Args{"value": trimmed})
	default:
		return trimmed, ""
	}
}

func (v *Validator) validateNumericMeasurement(n *model.NumericValue, raw string) (string, string) {
	value, err := strconv.ParseFloat(strings.ReplaceAll(raw, ",", "."), 64)
	if err != nil || !finite(value) {
		return "", v.msg(MsgMeasurementNaN)
	}
	normalised := strconv.FormatFloat(value, 'f', -1, 64)
	if n == nil {
		return normalised, ""
	}
	if value < n.Min || value > n.Max {
		return "", v.msg(MsgMeasurementRange, i18n.Args{"min": n.Min, "max": n.Max})
	}
	if n.Granularity > 0 {
		steps := (value - n.Min) / n.Granularity
		if math.Abs(steps-math.Round(steps)) > stepTolerance {
			return "", v.msg(MsgMeasurementStep, i18n.Args{"step": n.Granularity, "min": n.Min})
		}
	}
	return normalised, ""
}

// ValidateMeasurementValue checks a measured value with the default validator.
func ValidateMeasurementValue(params model.FormValue, raw string) (string, string) {
	return Default().ValidateMeasurementValue(params, raw)
}
