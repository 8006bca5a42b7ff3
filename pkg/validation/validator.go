package validation

import (
	"regexp"
	"strings"
	"sync"
	"unicode"
	"unicode/utf8"

	"github.com/goliatone/go-farmform/pkg/i18n"
)

// Message ids resolved through the localizer.
const (
	MsgRequired            = "formErrors.required.null"
	MsgStartsWithBlank     = "formErrors.required.startsWithABlankSpace"
	MsgMinLength           = "formErrors.minLength"
	MsgEmailInvalid        = "formErrors.email.invalid"
	MsgMatchPassword       = "formErrors.matchPassword"
	MsgMinGreaterThanMax   = "formErrors.range.minGreaterThanMax"
	MsgOptimalOutOfRange   = "formErrors.range.minMaxInvalid"
	MsgOptimalMinAboveMax  = "formErrors.range.minOptimoInvalid"
	MsgNotANumber          = "formErrors.range.notANumber"
	MsgGranularityInvalid  = "formErrors.granularity.invalid"
	MsgCategoricalEmpty    = "formErrors.categorical.empty"
	MsgCategoricalBlank    = "formErrors.categorical.blankEntry"
	MsgCategoricalRepeated = "formErrors.categorical.duplicate"
	MsgOptimalNotCategory  = "formErrors.categorical.optimalNotInCategories"
	MsgTypeObjectRequired  = "formErrors.typeObject.required"
	MsgMeasurementEmpty    = "formErrors.measurement.empty"
	MsgMeasurementRange    = "formErrors.measurement.outOfRange"
	MsgMeasurementStep     = "formErrors.measurement.step"
	MsgMeasurementNaN      = "formErrors.measurement.notANumber"
	MsgMeasurementCategory = "formErrors.measurement.notACategory"
)

// MinNameLength is the shortest accepted entity name, counted in runes.
const MinNameLength = 2

var emailPattern = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)

// Rule checks a single string value.
type Rule func(value string) string

// Validator evaluates rules and renders their messages with a Localizer.
type Validator struct {
	loc *i18n.Localizer
}

// Option customises a Validator.
type Option func(*Validator)

// WithLocalizer sets the localizer used for messages.
func WithLocalizer(loc *i18n.Localizer) Option {
	return func(v *Validator) {
		if loc != nil {
			v.loc = loc
		}
	}
}

// New constructs a Validator. Messages default to the embedded catalog in
// i18n.DefaultLocale.
func New(opts ...Option) *Validator {
	v := &Validator{}
	for _, opt := range opts {
		if opt != nil {
			opt(v)
		}
	}
	if v.loc == nil {
		v.loc = i18n.DefaultLocalizer(i18n.DefaultLocale)
	}
	return v
}

var (
	defaultOnce      sync.Once
	defaultValidator *Validator
)

// Default returns the shared Validator over the embedded catalog.
func Default() *Validator {
	defaultOnce.Do(func() {
		defaultValidator = New()
	})
	return defaultValidator
}

// Localizer exposes the localizer backing the validator.
func (v *Validator) Localizer() *i18n.Localizer {
	if v == nil {
		return Default().loc
	}
	return v.loc
}

func (v *Validator) msg(key string, args ...any) string {
	return v.Localizer().T(key, args...)
}

// Required rejects values that are empty after trimming or start with a space.
func (v *Validator) Required() Rule {
	return func(value string) string {
		if strings.TrimSpace(value) == "" {
			return v.msg(MsgRequired)
		}
		return v.StartsWithBlank()(value)
	}
}

// StartsWithBlank rejects values with leading whitespace.
func (v *Validator) StartsWithBlank() Rule {
	return func(value string) string {
		first, _ := utf8.DecodeRuneInString(value)
		if value != "" && unicode.IsSpace(first) {
			return v.msg(MsgStartsWithBlank)
		}
		return ""
	}
}

// MinLength rejects values shorter than n runes.
func (v *Validator) MinLength(n int) Rule {
	return func(value string) string {
		if utf8.RuneCountInString(value) < n {
			return v.msg(MsgMinLength, i18n.Args{"min": n})
		}
		return ""
	}
}

// Email rejects values that do not look like an address.
func (v *Validator) Email() Rule {
	return func(value string) string {
		if !emailPattern.MatchString(value) {
			return v.msg(MsgEmailInvalid)
		}
		return ""
	}
}

// MatchPassword rejects values different from the reference password.
func (v *Validator) MatchPassword(password string) Rule {
	return func(value string) string {
		if value != password {
			return v.msg(MsgMatchPassword)
		}
		return ""
	}
}

// ValidateInput runs every rule against value and collects all messages. It
// returns nil when every rule passes.
func (v *Validator) ValidateInput(value string, rules ...Rule) []string {
	var out []string
	for _, rule := range rules {
		if rule == nil {
			continue
		}
		if msg := rule(value); msg != "" {
			out = append(out, msg)
		}
	}
	return out
}

// ValidateNameInput checks entity names: required, no leading blank and at
// least MinNameLength runes once trimmed.
func (v *Validator) ValidateNameInput(value string) string {
	if msg := v.Required()(value); msg != "" {
		return msg
	}
	return v.MinLength(MinNameLength)(strings.TrimSpace(value))
}

// ValidateTypeObjectValue requires at least one selected id whenever options
// are available to choose from.
func (v *Validator) ValidateTypeObjectValue(ids []int, available int) string {
	if len(ids) == 0 && available > 0 {
		return v.msg(MsgTypeObjectRequired)
	}
	return ""
}

// ValidateNameInput checks a name with the default validator.
func ValidateNameInput(value string) string { return Default().ValidateNameInput(value) }

// ValidateTypeObjectValue checks a type-of-object selection with the default validator.
func ValidateTypeObjectValue(ids []int, available int) string {
	return Default().ValidateTypeObjectValue(ids, available)
}

// ValidateInput runs rules with the default validator semantics.
func ValidateInput(value string, rules ...Rule) []string {
	return Default().ValidateInput(value, rules...)
}
