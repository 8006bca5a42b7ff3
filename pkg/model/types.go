package model

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// ValueKind discriminates the FormValue variants.
type ValueKind string

const (
	ValueKindNumeric     ValueKind = "numeric"
	ValueKindCategorical ValueKind = "categorical"
)

// VariableType is the backend enumeration for variables (attributes).
type VariableType string

const (
	VariableTypeNumber      VariableType = "NUMBER"
	VariableTypeCategorical VariableType = "CATEGORICAL"
)

// Kind maps a variable type onto the FormValue variant it carries.
func (t VariableType) Kind() ValueKind {
	switch t {
	case VariableTypeCategorical:
		return ValueKindCategorical
	case VariableTypeNumber:
		return ValueKindNumeric
	default:
		return ""
	}
}

// NumericValue describes a numeric range with an optimal band and the step
// size measurements must follow.
type NumericValue struct {
	Min         float64 `json:"min"`
	Max         float64 `json:"max"`
	OptimalMin  float64 `json:"optimal_min"`
	OptimalMax  float64 `json:"optimal_max"`
	Granularity float64 `json:"granularity"`
}

// CategoricalValue lists the allowed categories and the subset considered optimal.
type CategoricalValue struct {
	Categories    []string `json:"categories"`
	OptimalValues []string `json:"optimal_values,omitempty"`
}

// FormValue is the tagged union stored as a variable default value or as pen
// variable custom parameters. Exactly one of Numeric/Categorical is set and it
// matches Kind.
type FormValue struct {
	Kind        ValueKind
	Numeric     *NumericValue
	Categorical *CategoricalValue
}

// Numeric wraps a numeric range into a FormValue.
func Numeric(v NumericValue) FormValue {
	return FormValue{Kind: ValueKindNumeric, Numeric: &v}
}

// Categorical wraps categories and optimal values into a FormValue.
func Categorical(categories []string, optimal ...string) FormValue {
	return FormValue{
		Kind: ValueKindCategorical,
		Categorical: &CategoricalValue{
			Categories:    append([]string(nil), categories...),
			OptimalValues: append([]string(nil), optimal...),
		},
	}
}

// IsZero reports whether the value carries no variant.
func (v FormValue) IsZero() bool {
	return v.Kind == "" && v.Numeric == nil && v.Categorical == nil
}

type formValueWire struct {
	Kind          ValueKind       `json:"kind,omitempty"`
	Value         json.RawMessage `json:"value"`
	OptimalValues []string        `json:"optimal_values,omitempty"`
}

// MarshalJSON emits the tagged wire shape.
func (v FormValue) MarshalJSON() ([]byte, error) {
	switch v.Kind {
	case ValueKindNumeric:
		if v.Numeric == nil {
			return nil, errors.New("model: numeric form value without payload")
		}
		raw, err := json.Marshal(v.Numeric)
		if err != nil {
			return nil, err
		}
		return json.Marshal(formValueWire{Kind: v.Kind, Value: raw})
	case ValueKindCategorical:
		if v.Categorical == nil {
			return nil, errors.New("model: categorical form value without payload")
		}
		categories := v.Categorical.Categories
		if categories == nil {
			categories = []string{}
		}
		raw, err := json.Marshal(categories)
		if err != nil {
			return nil, err
		}
		return json.Marshal(formValueWire{Kind: v.Kind, Value: raw, OptimalValues: v.Categorical.OptimalValues})
	case "":
		return []byte("null"), nil
	default:
		return nil, fmt.Errorf("model: unknown form value kind %q", v.Kind)
	}
}

// UnmarshalJSON accepts the tagged shape plus the legacy untagged payloads:
// an array value is categorical, an object value is numeric.
func (v *FormValue) UnmarshalJSON(data []byte) error {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		*v = FormValue{}
		return nil
	}

	var wire formValueWire
	if err := json.Unmarshal(trimmed, &wire); err != nil {
		return fmt.Errorf("model: decode form value: %w", err)
	}

	kind := wire.Kind
	value := bytes.TrimSpace(wire.Value)
	if kind == "" {
		switch {
		case len(value) > 0 && value[0] == '[':
			kind = ValueKindCategorical
		case len(value) > 0 && value[0] == '{':
			if bytes.Contains(value, []byte(`"categories"`)) {
				kind = ValueKindCategorical
			} else {
				kind = ValueKindNumeric
			}
		default:
			return errors.New("model: form value has no recognisable shape")
		}
	}

	switch kind {
	case ValueKindNumeric:
		var n NumericValue
		if err := json.Unmarshal(value, &n); err != nil {
			return fmt.Errorf("model: decode numeric value: %w", err)
		}
		*v = Numeric(n)
	case ValueKindCategorical:
		var c CategoricalValue
		if len(value) > 0 && value[0] == '{' {
			if err := json.Unmarshal(value, &c); err != nil {
				return fmt.Errorf("model: decode categorical value: %w", err)
			}
		} else if err := json.Unmarshal(value, &c.Categories); err != nil {
			return fmt.Errorf("model: decode categorical value: %w", err)
		}
		if len(wire.OptimalValues) > 0 {
			c.OptimalValues = wire.OptimalValues
		}
		*v = FormValue{Kind: ValueKindCategorical, Categorical: &c}
	default:
		return fmt.Errorf("model: unknown form value kind %q", kind)
	}
	return nil
}

// UnmarshalJSON tolerates numbers encoded as strings and the min_optimo/
// max_optimo aliases used by pen custom parameters.
func (n *NumericValue) UnmarshalJSON(data []byte) error {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	pick := func(keys ...string) (float64, error) {
		for _, key := range keys {
			val, ok := raw[key]
			if !ok {
				continue
			}
			return parseFlexibleNumber(val)
		}
		return 0, nil
	}

	var err error
	if n.Min, err = pick("min"); err != nil {
		return fmt.Errorf("min: %w", err)
	}
	if n.Max, err = pick("max"); err != nil {
		return fmt.Errorf("max: %w", err)
	}
	if n.OptimalMin, err = pick("optimal_min", "min_optimo"); err != nil {
		return fmt.Errorf("optimal_min: %w", err)
	}
	if n.OptimalMax, err = pick("optimal_max", "max_optimo"); err != nil {
		return fmt.Errorf("optimal_max: %w", err)
	}
	if n.Granularity, err = pick("granularity"); err != nil {
		return fmt.Errorf("granularity: %w", err)
	}
	return nil
}

func parseFlexibleNumber(raw json.RawMessage) (float64, error) {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		return 0, nil
	}
	if trimmed[0] == '"' {
		var s string
		if err := json.Unmarshal(trimmed, &s); err != nil {
			return 0, err
		}
		s = strings.ReplaceAll(strings.TrimSpace(s), ",", ".")
		if s == "" {
			return 0, nil
		}
		return strconv.ParseFloat(s, 64)
	}
	var f float64
	if err := json.Unmarshal(trimmed, &f); err != nil {
		return 0, err
	}
	return f, nil
}
