package screens

import (
	"context"
	"errors"
	"math"

	"github.com/goliatone/go-farmform/pkg/form"
	"github.com/goliatone/go-farmform/pkg/model"
	"github.com/goliatone/go-farmform/pkg/validation"
)

func fieldDefaults() map[string]any {
	return map[string]any{
		"name":              "",
		"description":       "",
		"location":          "",
		"latitude":          "",
		"longitude":         "",
		"production_type":   "",
		"breed":             "",
		"installation":      "",
		"number_of_animals": 0,
	}
}

// coordinateRule accepts an empty value or a number within [-limit, limit].
func coordinateRule(v *validation.Validator, path string, limit float64) form.Rule {
	return form.Rule{
		Key:     path,
		Watches: []string{path},
		Check: func(values form.Values) string {
			if values.String(path) == "" {
				return ""
			}
			f := values.Float(path)
			if math.IsNaN(f) || f < -limit || f > limit {
				return v.Localizer().T(validation.MsgNotANumber)
			}
			return ""
		},
	}
}

func encodeField(values form.Values) (any, error) {
	field := model.Field{
		Name:            validation.CleanText(values.String("name")),
		Description:     validation.CleanText(values.String("description")),
		Location:        validation.CleanText(values.String("location")),
		ProductionType:  validation.CleanText(values.String("production_type")),
		Breed:           validation.CleanText(values.String("breed")),
		Installation:    validation.CleanText(values.String("installation")),
		NumberOfAnimals: int(values.Float("number_of_animals")),
	}
	if values.String("latitude") != "" {
		field.Latitude = values.Float("latitude")
	}
	if values.String("longitude") != "" {
		field.Longitude = values.Float("longitude")
	}
	return field, nil
}

// CreateField asks for the field attributes and creates it.
func (s *Screens) CreateField(ctx context.Context) (model.Field, error) {
	v := s.validator
	c := s.container(ctx, fieldDefaults(),
		form.WithRules(
			form.NameRule(v, "name"),
			coordinateRule(v, "latitude", 90),
			coordinateRule(v, "longitude", 180),
		),
		form.WithEncoder(encodeField),
		form.WithSubmitter(func(ctx context.Context, payload any) (any, error) {
			field, ok := payload.(model.Field)
			if !ok {
				return nil, errors.New("screens: unexpected field payload")
			}
			return s.client.CreateField(ctx, field)
		}),
	)
	defer c.Close()

	inputs := []input{
		{path: "name", label: LabelName, keys: []string{"name"}},
		{path: "description", label: LabelDescription},
		{path: "location", label: LabelLocation},
		{path: "latitude", label: LabelLatitude, keys: []string{"latitude"}},
		{path: "longitude", label: LabelLongitude, keys: []string{"longitude"}},
		{path: "production_type", label: LabelProductionType},
		{path: "breed", label: LabelBreed},
		{path: "installation", label: LabelInstallation},
		{path: "number_of_animals", label: LabelNumberOfAnimals, integer: true},
	}
	for _, in := range inputs {
		if err := s.ask(ctx, c, in); err != nil {
			return model.Field{}, err
		}
	}
	return submit[model.Field](ctx, c)
}
