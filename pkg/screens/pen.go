package screens

import (
	"context"
	"errors"

	"github.com/goliatone/go-farmform/pkg/client"
	"github.com/goliatone/go-farmform/pkg/form"
	"github.com/goliatone/go-farmform/pkg/model"
	"github.com/goliatone/go-farmform/pkg/prompt"
	"github.com/goliatone/go-farmform/pkg/validation"
)

// CreatePen asks for a pen name and the types of object it holds, then
// creates it inside fieldID.
func (s *Screens) CreatePen(ctx context.Context, fieldID string) (model.Pen, error) {
	objects, err := s.client.ListTypeOfObjects(ctx)
	if err != nil {
		s.fail(ctx, err)
		return model.Pen{}, err
	}

	v := s.validator
	c := s.container(ctx, map[string]any{"name": "", "type_of_object_ids": []int{}},
		form.WithRules(
			form.NameRule(v, "name"),
			form.TypeObjectRule(v, "type_of_object_ids", func() int { return len(objects) }),
		),
		form.WithEncoder(func(values form.Values) (any, error) {
			return model.CreatePen{
				Name:            validation.CleanText(values.String("name")),
				FieldID:         fieldID,
				TypeOfObjectIDs: values.Ints("type_of_object_ids"),
			}, nil
		}),
		form.WithSubmitter(func(ctx context.Context, payload any) (any, error) {
			pen, ok := payload.(model.CreatePen)
			if !ok {
				return nil, errors.New("screens: unexpected pen payload")
			}
			return s.client.CreatePen(ctx, pen)
		}),
	)
	defer c.Close()

	if err := s.ask(ctx, c, input{path: "name", label: LabelName, keys: []string{"name"}}); err != nil {
		return model.Pen{}, err
	}
	if len(objects) > 0 {
		labels := make([]string, len(objects))
		for i, obj := range objects {
			labels[i] = obj.Name
		}
		_, err := s.pickMany(ctx, c, LabelTypeOfObjects, "type_of_object_ids", labels, nil, func(idx []int) []int {
			out := make([]int, 0, len(idx))
			for _, i := range idx {
				out = append(out, objects[i].ID)
			}
			return out
		})
		if err != nil {
			return model.Pen{}, err
		}
	}
	return submit[model.Pen](ctx, c)
}

// pickMany runs a multi-select until the rule keyed by path accepts the
// choice, storing the mapped ids at path.
func (s *Screens) pickMany(ctx context.Context, c *form.Container, label, path string, options []string, defaults []int, ids func([]int) []int) ([]int, error) {
	for {
		picked, err := s.driver.MultiSelect(ctx, prompt.SelectConfig{
			Message:  s.loc.T(label),
			Options:  options,
			Defaults: defaults,
		})
		if err != nil {
			return nil, err
		}
		selected := ids(picked)
		if err := c.OnChange(path, selected); err != nil {
			return nil, err
		}
		msg := c.Error(path)
		if msg == "" {
			return selected, nil
		}
		if err := s.driver.Info(ctx, msg); err != nil {
			return nil, err
		}
	}
}

// fail shows err as a failure modal outside of a form submission.
func (s *Screens) fail(ctx context.Context, err error) {
	p := &presenter{ctx: ctx, driver: s.driver, notices: s.notices, logger: s.logger}
	p.Show(form.Modal{Kind: form.ModalFailure, Message: client.UserMessage(s.loc, err)})
}
