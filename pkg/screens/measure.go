package screens

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"go.uber.org/zap"

	"github.com/goliatone/go-farmform/pkg/cascade"
	"github.com/goliatone/go-farmform/pkg/client"
	"github.com/goliatone/go-farmform/pkg/form"
	"github.com/goliatone/go-farmform/pkg/i18n"
	"github.com/goliatone/go-farmform/pkg/model"
	"github.com/goliatone/go-farmform/pkg/notice"
	"github.com/goliatone/go-farmform/pkg/prompt"
	"github.com/goliatone/go-farmform/pkg/validation"
)

// MeasureResult is the outcome of one measurement round.
type MeasureResult struct {
	Selection    model.Selection
	Report       model.Report
	Measurements []model.Measurement
	// Queued is set when the round was stored for the next sync.
	Queued       bool
	TempReportID string
}

type measurePlan struct {
	report model.CreateReport
	batch  model.MeasurementBatch
}

func valuePath(pv model.PenVariable) string {
	return "values." + strconv.Itoa(pv.ID)
}

// parameters returns the limits a measurement of pv must respect.
func parameters(pv model.PenVariable) model.FormValue {
	if !pv.CustomParameters.IsZero() {
		return pv.CustomParameters
	}
	return pv.Variable.DefaultValue
}

func measurementRule(v *validation.Validator, pv model.PenVariable) form.Rule {
	path := valuePath(pv)
	params := parameters(pv)
	return form.Rule{
		Key:     path,
		Watches: []string{path},
		Check: func(values form.Values) string {
			raw := values.String(path)
			if raw == "" {
				return ""
			}
			_, msg := v.ValidateMeasurementValue(params, raw)
			return msg
		},
	}
}

// Measure runs the measurement wizard on fieldID: pen, type of object and
// variables are picked through the cascade, one value is asked per variable,
// then a report is created and the values are posted in one batch. A round
// without any value is refused; a partial one needs confirmation.
func (s *Screens) Measure(ctx context.Context, fieldID string) (MeasureResult, error) {
	cas := cascade.New(client.CascadeLoader{Client: s.client},
		cascade.WithLocalizer(s.loc),
		cascade.WithLogger(s.logger),
	)
	defer cas.Close()

	selection, variables, err := s.selectVariables(ctx, cas, fieldID)
	if err != nil {
		return MeasureResult{}, err
	}

	v := s.validator
	values := make(map[string]any, len(variables))
	rules := []form.Rule{form.NameRule(v, "report.name")}
	for _, pv := range variables {
		values[strconv.Itoa(pv.ID)] = ""
		rules = append(rules, measurementRule(v, pv))
	}
	defaults := map[string]any{
		"subject": "",
		"report": map[string]any{
			"name":    s.clock.Now().Format("2006-01-02"),
			"comment": "",
		},
		"values": values,
	}

	var outcome *MeasureResult
	c := s.container(ctx, defaults,
		form.WithRules(rules...),
		form.WithEncoder(func(vals form.Values) (any, error) {
			return encodeMeasurements(v, vals, selection, variables)
		}),
		form.WithSubmitter(func(ctx context.Context, payload any) (any, error) {
			plan, ok := payload.(measurePlan)
			if !ok {
				return nil, errors.New("screens: unexpected measurement payload")
			}
			result, err := s.sendMeasurements(ctx, fieldID, plan)
			result.Selection = selection
			if result.Queued {
				outcome = &result
			}
			return result, err
		}),
	)
	defer c.Close()

	if err := s.ask(ctx, c, input{path: "subject", label: LabelSubject}); err != nil {
		return MeasureResult{}, err
	}
	rows := make([]notice.ReviewRow, 0, len(variables))
	filled := 0
	for _, pv := range variables {
		path := valuePath(pv)
		in := input{path: path, label: LabelValueFor, args: i18n.Args{"name": pv.Variable.Name}, keys: []string{path}}
		if err := s.ask(ctx, c, in); err != nil {
			return MeasureResult{}, err
		}
		value, _ := v.ValidateMeasurementValue(parameters(pv), c.Values().String(path))
		if value != "" {
			filled++
		}
		rows = append(rows, notice.ReviewRow{Name: pv.Variable.Name, Value: value})
	}

	switch {
	case filled == 0:
		if err := s.driver.Info(ctx, s.loc.T(MsgNoValues)); err != nil {
			return MeasureResult{}, err
		}
		return MeasureResult{}, ErrNoValues
	case filled < len(variables):
		ok, err := s.driver.Confirm(ctx, prompt.ConfirmConfig{Message: s.loc.T(MsgIncomplete)})
		if err != nil {
			return MeasureResult{}, err
		}
		if !ok {
			return MeasureResult{}, ErrCancelled
		}
	}

	review, err := s.notices.Review(rows)
	if err != nil {
		return MeasureResult{}, err
	}
	if err := s.driver.Info(ctx, review); err != nil {
		return MeasureResult{}, err
	}
	ok, err := s.driver.Confirm(ctx, prompt.ConfirmConfig{Message: s.notices.ReviewConfirm(filled), Default: true})
	if err != nil {
		return MeasureResult{}, err
	}
	if !ok {
		return MeasureResult{}, ErrCancelled
	}

	if err := s.ask(ctx, c, input{path: "report.name", label: LabelReportName, keys: []string{"report.name"}}); err != nil {
		return MeasureResult{}, err
	}
	if err := s.ask(ctx, c, input{path: "report.comment", label: LabelReportComment}); err != nil {
		return MeasureResult{}, err
	}

	result, err := submit[MeasureResult](ctx, c)
	if err != nil && outcome != nil && errors.Is(err, client.ErrQueued) {
		s.logger.Info("screens: measurements queued",
			zap.String("field", fieldID), zap.String("report", outcome.TempReportID))
		return *outcome, nil
	}
	return result, err
}

// selectVariables walks the cascade tiers through the prompt driver.
func (s *Screens) selectVariables(ctx context.Context, cas *cascade.Cascade, fieldID string) (model.Selection, []model.PenVariable, error) {
	pens, err := cas.LoadPens(ctx, fieldID)
	if err != nil || len(pens) == 0 {
		return model.Selection{}, nil, s.emptyTier(ctx, cas, cascade.TierPen, err)
	}
	penLabels := make([]string, len(pens))
	for i, pen := range pens {
		penLabels[i] = pen.Name
	}
	idx, err := s.choose(ctx, LabelPen, penLabels)
	if err != nil {
		return model.Selection{}, nil, err
	}

	objects, err := cas.SelectPen(ctx, pens[idx].ID)
	if err != nil || len(objects) == 0 {
		return model.Selection{}, nil, s.emptyTier(ctx, cas, cascade.TierTypeOfObject, err)
	}
	objectLabels := make([]string, len(objects))
	for i, obj := range objects {
		objectLabels[i] = obj.Name
	}
	if idx, err = s.choose(ctx, LabelTypeOfObject, objectLabels); err != nil {
		return model.Selection{}, nil, err
	}

	variables, err := cas.SelectTypeOfObject(ctx, objects[idx].ID)
	if err != nil || len(variables) == 0 {
		return model.Selection{}, nil, s.emptyTier(ctx, cas, cascade.TierVariable, err)
	}
	variableLabels := make([]string, len(variables))
	for i, pv := range variables {
		variableLabels[i] = pv.Variable.Name
	}
	for {
		picked, err := s.driver.MultiSelect(ctx, prompt.SelectConfig{Message: s.loc.T(LabelVariables), Options: variableLabels})
		if err != nil {
			return model.Selection{}, nil, err
		}
		ids := make([]int, 0, len(picked))
		for _, i := range picked {
			ids = append(ids, variables[i].VariableID)
		}
		err = cas.SelectVariables(ids)
		if err == nil {
			break
		}
		if !errors.Is(err, cascade.ErrEmptySelection) {
			return model.Selection{}, nil, err
		}
		if err := s.driver.Info(ctx, s.loc.T(MsgVariablesRequired)); err != nil {
			return model.Selection{}, nil, err
		}
	}
	return cas.Submit()
}

// emptyTier shows the tier placeholder and returns the cause.
func (s *Screens) emptyTier(ctx context.Context, cas *cascade.Cascade, tier cascade.Tier, cause error) error {
	if errors.Is(cause, client.ErrUnauthenticated) {
		s.fail(ctx, cause)
		return cause
	}
	if msg := cas.Placeholder(tier); msg != "" {
		if err := s.driver.Info(ctx, msg); err != nil {
			return err
		}
	}
	if cause != nil {
		return cause
	}
	return fmt.Errorf("%w: %s", ErrNoOptions, tier)
}

func encodeMeasurements(v *validation.Validator, values form.Values, selection model.Selection, variables []model.PenVariable) (any, error) {
	plan := measurePlan{
		report: model.CreateReport{
			Name:    validation.CleanText(values.String("report.name")),
			Comment: validation.CleanText(values.String("report.comment")),
		},
		batch: model.MeasurementBatch{
			Name:           validation.CleanText(values.String("subject")),
			TypeOfObjectID: selection.TypeOfObjectID,
		},
	}
	for _, pv := range variables {
		raw := values.String(valuePath(pv))
		if raw == "" {
			continue
		}
		value, msg := v.ValidateMeasurementValue(parameters(pv), raw)
		if msg != "" {
			return nil, fmt.Errorf("screens: %s: %s", pv.Variable.Name, msg)
		}
		plan.batch.Measurements = append(plan.batch.Measurements, model.MeasurementInput{
			PenVariableID: pv.ID,
			Value:         value,
		})
	}
	if len(plan.batch.Measurements) == 0 {
		return nil, ErrNoValues
	}
	return plan, nil
}

// sendMeasurements creates the report and posts the batch against it. When
// the report itself gets queued the batch is queued behind it with the
// temporary report id.
func (s *Screens) sendMeasurements(ctx context.Context, fieldID string, plan measurePlan) (MeasureResult, error) {
	report, err := s.client.CreateReport(ctx, fieldID, plan.report)
	if err != nil {
		tempID, ok := client.QueuedTempID(err)
		if !ok {
			return MeasureResult{}, err
		}
		if _, qerr := s.client.QueueMeasurementsForReport(ctx, tempID, plan.batch); qerr != nil {
			return MeasureResult{}, fmt.Errorf("screens: queue measurements: %w", qerr)
		}
		return MeasureResult{Queued: true, TempReportID: tempID}, err
	}

	batch := plan.batch
	batch.Measurements = append([]model.MeasurementInput(nil), plan.batch.Measurements...)
	for i := range batch.Measurements {
		batch.Measurements[i].ReportID = report.ID
	}
	created, err := s.client.CreateMeasurements(ctx, batch)
	if err != nil {
		if errors.Is(err, client.ErrQueued) {
			return MeasureResult{Report: report, Queued: true}, err
		}
		return MeasureResult{Report: report}, err
	}
	return MeasureResult{Report: report, Measurements: created}, nil
}
