package screens

import (
	"context"
	"errors"
	"fmt"
	"slices"

	"github.com/goliatone/go-farmform/pkg/form"
	"github.com/goliatone/go-farmform/pkg/model"
	"github.com/goliatone/go-farmform/pkg/prompt"
	"github.com/goliatone/go-farmform/pkg/validation"
)

// Mode selects between creating and editing a variable.
type Mode int

const (
	ModeCreate Mode = iota
	ModeEdit
)

func (m Mode) String() string {
	switch m {
	case ModeCreate:
		return "create"
	case ModeEdit:
		return "edit"
	default:
		return fmt.Sprintf("Mode(%d)", int(m))
	}
}

const valuePrefix = "defaultValue"

var variableTypes = []model.VariableType{model.VariableTypeNumber, model.VariableTypeCategorical}

func variableDefaults(v model.Variable) map[string]any {
	typ := v.Type
	if typ == "" {
		typ = model.VariableTypeNumber
	}
	value := map[string]any{
		"min":            0.0,
		"max":            0.0,
		"optimal_min":    0.0,
		"optimal_max":    0.0,
		"granularity":    1.0,
		"categories":     []string{},
		"optimal_values": []string{},
	}
	if n := v.DefaultValue.Numeric; n != nil {
		value["min"] = n.Min
		value["max"] = n.Max
		value["optimal_min"] = n.OptimalMin
		value["optimal_max"] = n.OptimalMax
		value["granularity"] = n.Granularity
	}
	if cat := v.DefaultValue.Categorical; cat != nil {
		value["categories"] = append([]string{}, cat.Categories...)
		value["optimal_values"] = append([]string{}, cat.OptimalValues...)
	}
	ids := make([]int, 0, len(v.TypeOfObjects))
	for _, obj := range v.TypeOfObjects {
		ids = append(ids, obj.ID)
	}
	return map[string]any{
		"name":               v.Name,
		"type":               string(typ),
		valuePrefix:          value,
		"type_of_object_ids": ids,
	}
}

func isType(typ model.VariableType) func(form.Values) bool {
	return func(values form.Values) bool {
		return model.VariableType(values.String("type")) == typ
	}
}

func variableRules(v *validation.Validator, available func() int) []form.Rule {
	rules := []form.Rule{
		form.NameRule(v, "name"),
		form.TypeObjectRule(v, "type_of_object_ids", available),
	}
	rules = append(rules, form.When(isType(model.VariableTypeNumber), []string{"type"},
		form.RangeRules(v, valuePrefix)...)...)
	rules = append(rules, form.When(isType(model.VariableTypeCategorical), []string{"type"},
		form.CategoricalRules(v, valuePrefix+".categories", valuePrefix+".optimal_values")...)...)
	return rules
}

func encodeVariable(values form.Values) (any, error) {
	typ := model.VariableType(values.String("type"))
	out := model.CreateVariable{
		Name:            validation.CleanText(values.String("name")),
		Type:            typ,
		TypeOfObjectIDs: values.Ints("type_of_object_ids"),
	}
	switch typ {
	case model.VariableTypeNumber:
		out.DefaultValue = model.Numeric(form.NumericAt(values, valuePrefix))
	case model.VariableTypeCategorical:
		out.DefaultValue = model.Categorical(
			values.Strings(valuePrefix+".categories"),
			values.Strings(valuePrefix+".optimal_values")...,
		)
	default:
		return nil, fmt.Errorf("screens: unknown variable type %q", typ)
	}
	if out.TypeOfObjectIDs == nil {
		out.TypeOfObjectIDs = []int{}
	}
	return out, nil
}

// CreateVariable asks for a new variable and creates it for the signed in user.
func (s *Screens) CreateVariable(ctx context.Context) (model.Variable, error) {
	return s.Variable(ctx, ModeCreate, 0)
}

// EditVariable loads variable id, lets the user change it and saves it.
func (s *Screens) EditVariable(ctx context.Context, id int) (model.Variable, error) {
	return s.Variable(ctx, ModeEdit, id)
}

// Variable runs the variable form in mode. The numeric form asks for the range,
// the optimal band and the granularity; the categorical form asks for the
// categories and the optimal subset.
func (s *Screens) Variable(ctx context.Context, mode Mode, id int) (model.Variable, error) {
	var current model.Variable
	if mode == ModeEdit {
		var err error
		if current, err = s.client.GetVariable(ctx, id); err != nil {
			s.fail(ctx, err)
			return model.Variable{}, err
		}
	}
	objects, err := s.client.ListTypeOfObjects(ctx)
	if err != nil {
		s.fail(ctx, err)
		return model.Variable{}, err
	}

	c := s.container(ctx, variableDefaults(current),
		form.WithRules(variableRules(s.validator, func() int { return len(objects) })...),
		form.WithEncoder(encodeVariable),
		form.WithSubmitter(func(ctx context.Context, payload any) (any, error) {
			body, ok := payload.(model.CreateVariable)
			if !ok {
				return nil, errors.New("screens: unexpected variable payload")
			}
			if mode == ModeEdit {
				return s.client.UpdateVariable(ctx, id, body)
			}
			userID, err := s.userID(ctx)
			if err != nil {
				return nil, err
			}
			return s.client.CreateVariable(ctx, userID, body)
		}),
	)
	defer c.Close()

	if err := s.ask(ctx, c, input{path: "name", label: LabelName, keys: []string{"name"}}); err != nil {
		return model.Variable{}, err
	}
	typ, err := s.pickType(ctx, c)
	if err != nil {
		return model.Variable{}, err
	}

	var inputs []input
	switch typ {
	case model.VariableTypeNumber:
		inputs = []input{
			{path: valuePrefix + ".min", label: LabelMin, numeric: true},
			{path: valuePrefix + ".max", label: LabelMax, numeric: true, keys: []string{validation.KeyMinMax}},
			{path: valuePrefix + ".optimal_min", label: LabelOptimalMin, numeric: true},
			{path: valuePrefix + ".optimal_max", label: LabelOptimalMax, numeric: true, keys: []string{validation.KeyOptimalMinMax}},
			{path: valuePrefix + ".granularity", label: LabelGranularity, numeric: true, keys: []string{validation.KeyGranularity}},
		}
	case model.VariableTypeCategorical:
		inputs = []input{
			{path: valuePrefix + ".categories", label: LabelCategories, list: true, keys: []string{validation.KeyCategories}},
		}
	}
	for _, in := range inputs {
		if err := s.ask(ctx, c, in); err != nil {
			return model.Variable{}, err
		}
	}
	if typ == model.VariableTypeCategorical {
		if err := s.pickOptimal(ctx, c); err != nil {
			return model.Variable{}, err
		}
	}

	if len(objects) > 0 {
		labels := make([]string, len(objects))
		var defaults []int
		selected := c.Values().Ints("type_of_object_ids")
		for i, obj := range objects {
			labels[i] = obj.Name
			if slices.Contains(selected, obj.ID) {
				defaults = append(defaults, i)
			}
		}
		_, err := s.pickMany(ctx, c, LabelTypeOfObjects, "type_of_object_ids", labels, defaults, func(idx []int) []int {
			out := make([]int, 0, len(idx))
			for _, i := range idx {
				out = append(out, objects[i].ID)
			}
			return out
		})
		if err != nil {
			return model.Variable{}, err
		}
	}
	return submit[model.Variable](ctx, c)
}

func (s *Screens) pickType(ctx context.Context, c *form.Container) (model.VariableType, error) {
	current := model.VariableType(c.Values().String("type"))
	options := []string{s.loc.T(LabelTypeNumber), s.loc.T(LabelTypeCategorical)}
	idx, err := s.driver.Select(ctx, prompt.SelectConfig{
		Message:      s.loc.T(LabelVariableType),
		Options:      options,
		DefaultIndex: slices.Index(variableTypes, current),
	})
	if err != nil {
		return "", err
	}
	if idx < 0 || idx >= len(variableTypes) {
		return "", ErrNoOptions
	}
	typ := variableTypes[idx]
	if err := c.OnChange("type", string(typ)); err != nil {
		return "", err
	}
	return typ, nil
}

func (s *Screens) pickOptimal(ctx context.Context, c *form.Container) error {
	values := c.Values()
	categories := values.Strings(valuePrefix + ".categories")
	current := values.Strings(valuePrefix + ".optimal_values")
	var defaults []int
	for i, category := range categories {
		if slices.Contains(current, category) {
			defaults = append(defaults, i)
		}
	}
	picked, err := s.driver.MultiSelect(ctx, prompt.SelectConfig{
		Message:  s.loc.T(LabelOptimalValues),
		Options:  categories,
		Defaults: defaults,
	})
	if err != nil {
		return err
	}
	optimal := make([]string, 0, len(picked))
	for _, i := range picked {
		optimal = append(optimal, categories[i])
	}
	return c.OnChange(valuePrefix+".optimal_values", optimal)
}
