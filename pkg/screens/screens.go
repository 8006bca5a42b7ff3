// Package screens implements the interactive flows of the farm client on top
// of a prompt driver: creating fields, pens and variables, signing in, and the
// measurement wizard. Every flow validates input with the same rules as the
// apps, submits through a form container and reports the outcome as a modal.
package screens

import (
	"context"
	"errors"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/goliatone/go-farmform/pkg/client"
	"github.com/goliatone/go-farmform/pkg/form"
	"github.com/goliatone/go-farmform/pkg/i18n"
	"github.com/goliatone/go-farmform/pkg/notice"
	"github.com/goliatone/go-farmform/pkg/prompt"
	"github.com/goliatone/go-farmform/pkg/session"
	"github.com/goliatone/go-farmform/pkg/validation"
)

// Label ids shared by the screens.
const (
	LabelName            = "labels.name"
	LabelDescription     = "labels.description"
	LabelLocation        = "labels.location"
	LabelLatitude        = "labels.latitude"
	LabelLongitude       = "labels.longitude"
	LabelProductionType  = "labels.productionType"
	LabelBreed           = "labels.breed"
	LabelInstallation    = "labels.installation"
	LabelNumberOfAnimals = "labels.numberOfAnimals"
	LabelPen             = "labels.pen"
	LabelTypeOfObject    = "labels.typeOfObject"
	LabelTypeOfObjects   = "labels.typeOfObjects"
	LabelVariables       = "labels.variables"
	LabelVariableType    = "labels.variableType"
	LabelTypeNumber      = "labels.typeNumber"
	LabelTypeCategorical = "labels.typeCategorical"
	LabelMin             = "labels.min"
	LabelMax             = "labels.max"
	LabelOptimalMin      = "labels.optimalMin"
	LabelOptimalMax      = "labels.optimalMax"
	LabelGranularity     = "labels.granularity"
	LabelCategories      = "labels.categories"
	LabelOptimalValues   = "labels.optimalValues"
	LabelSubject         = "labels.subject"
	LabelReportName      = "labels.reportName"
	LabelReportComment   = "labels.reportComment"
	LabelEmail           = "labels.email"
	LabelPassword        = "labels.password"
	LabelConfirmPassword = "labels.confirmPassword"
	LabelUsername        = "labels.username"
	LabelValueFor        = "labels.valueFor"
)

// Notice ids raised by the screens.
const (
	MsgVariablesRequired = "formErrors.variables.required"
	MsgNoValues          = "notices.measure.noValues"
	MsgIncomplete        = "notices.measure.incomplete"
	MsgRegisterSent      = "notices.register.sent"
	MsgQueued            = client.MsgSubmitQueued
)

// Profile exposes the signed in user.
type Profile interface {
	Load(ctx context.Context) (session.Session, bool, error)
}

// Screens runs the interactive flows.
type Screens struct {
	client       *client.Client
	driver       prompt.Driver
	profile      Profile
	notices      *notice.Renderer
	validator    *validation.Validator
	loc          *i18n.Localizer
	clock        form.Clock
	dismissAfter time.Duration
	logger       *zap.Logger
}

// Option configures Screens.
type Option func(*Screens)

// WithProfile sets the source of the signed in user.
func WithProfile(p Profile) Option {
	return func(s *Screens) {
		s.profile = p
	}
}

// WithNotices sets the notice renderer.
func WithNotices(r *notice.Renderer) Option {
	return func(s *Screens) {
		if r != nil {
			s.notices = r
		}
	}
}

// WithLocalizer sets the localizer for labels and messages.
func WithLocalizer(loc *i18n.Localizer) Option {
	return func(s *Screens) {
		if loc != nil {
			s.loc = loc
		}
	}
}

// WithClock injects the clock used by form timers and report names.
func WithClock(clock form.Clock) Option {
	return func(s *Screens) {
		if clock != nil {
			s.clock = clock
		}
	}
}

// WithDismissAfter sets how long outcome modals stay up.
func WithDismissAfter(d time.Duration) Option {
	return func(s *Screens) {
		if d >= 0 {
			s.dismissAfter = d
		}
	}
}

// WithLogger attaches a structured logger.
func WithLogger(logger *zap.Logger) Option {
	return func(s *Screens) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// New wires the screens to a client and a prompt driver.
func New(c *client.Client, driver prompt.Driver, opts ...Option) (*Screens, error) {
	if c == nil {
		return nil, errors.New("screens: client is required")
	}
	if driver == nil {
		return nil, errors.New("screens: prompt driver is required")
	}
	s := &Screens{
		client:       c,
		driver:       driver,
		clock:        form.SystemClock(),
		dismissAfter: form.DefaultDismissAfter,
		logger:       zap.NewNop(),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(s)
		}
	}
	if s.loc == nil {
		s.loc = i18n.DefaultLocalizer(i18n.DefaultLocale)
	}
	s.validator = validation.New(validation.WithLocalizer(s.loc))
	if s.notices == nil {
		r, err := notice.New(notice.WithLocalizer(s.loc))
		if err != nil {
			return nil, err
		}
		s.notices = r
	}
	return s, nil
}

// userID returns the signed in user id or ErrUnauthenticated.
func (s *Screens) userID(ctx context.Context) (string, error) {
	if s.profile == nil {
		return "", client.ErrUnauthenticated
	}
	current, ok, err := s.profile.Load(ctx)
	if err != nil {
		return "", err
	}
	if !ok || current.UserID == "" {
		return "", client.ErrUnauthenticated
	}
	return current.UserID, nil
}

// container builds a form wired to the terminal presenter and the client
// error mapping.
func (s *Screens) container(ctx context.Context, defaults map[string]any, opts ...form.Option) *form.Container {
	base := []form.Option{
		form.WithPresenter(&presenter{ctx: ctx, driver: s.driver, notices: s.notices, logger: s.logger}),
		form.WithClock(s.clock),
		form.WithLocalizer(s.loc),
		form.WithLogger(s.logger),
		form.WithDismissAfter(s.dismissAfter),
		form.WithErrorMessage(func(err error) string { return client.UserMessage(s.loc, err) }),
	}
	return form.New(defaults, append(base, opts...)...)
}

// input describes one text prompt bound to a value path.
type input struct {
	path    string
	label   string
	args    i18n.Args
	keys    []string
	numeric bool
	integer bool
	list    bool
	secret  bool
}

// ask prompts for in and stores the answer. The prompt validator writes the
// answer into the container and rejects it while any of in.keys has an error.
// Aborting a prompt of a dirty form asks for confirmation and asks again when
// the user stays.
func (s *Screens) ask(ctx context.Context, c *form.Container, in input) error {
	check := func(raw string) error {
		value, err := s.convert(in, raw)
		if err != nil {
			return err
		}
		if err := c.OnChange(in.path, value); err != nil {
			return err
		}
		for _, key := range in.keys {
			if msg := c.Error(key); msg != "" {
				return errors.New(msg)
			}
		}
		return nil
	}
	values := c.Values()
	cfg := prompt.InputConfig{
		Message:   s.label(in.label, in.args),
		Default:   values.String(in.path),
		Validator: check,
	}
	if in.list {
		cfg.Default = strings.Join(values.Strings(in.path), ", ")
	}
	if in.secret {
		cfg.Default = ""
	}
	for {
		var (
			answer string
			err    error
		)
		if in.secret {
			answer, err = s.driver.Password(ctx, cfg)
		} else {
			answer, err = s.driver.Input(ctx, cfg)
		}
		if errors.Is(err, prompt.ErrAborted) {
			// An abort on a dirty form asks before discarding the edits.
			leave, backErr := c.Back(ctx, nil)
			if backErr != nil {
				return backErr
			}
			if !leave {
				continue
			}
		}
		if err != nil {
			return err
		}
		return check(answer)
	}
}

func (s *Screens) convert(in input, raw string) (any, error) {
	trimmed := strings.TrimSpace(raw)
	switch {
	case in.list:
		return validation.SplitCategories(raw), nil
	case in.integer:
		if trimmed == "" {
			return 0, nil
		}
		n, err := strconv.Atoi(trimmed)
		if err != nil || n < 0 {
			return nil, errors.New(s.loc.T(validation.MsgNotANumber))
		}
		return n, nil
	case in.numeric:
		f, err := strconv.ParseFloat(strings.ReplaceAll(trimmed, ",", "."), 64)
		if err != nil {
			return nil, errors.New(s.loc.T(validation.MsgNotANumber))
		}
		return f, nil
	default:
		return raw, nil
	}
}

func (s *Screens) label(key string, args i18n.Args) string {
	if args == nil {
		return s.loc.T(key)
	}
	return s.loc.T(key, args)
}

// choose runs a single select and returns the picked index.
func (s *Screens) choose(ctx context.Context, label string, options []string) (int, error) {
	if len(options) == 0 {
		return -1, ErrNoOptions
	}
	idx, err := s.driver.Select(ctx, prompt.SelectConfig{Message: s.loc.T(label), Options: options})
	if err != nil {
		return -1, err
	}
	if idx < 0 || idx >= len(options) {
		return -1, ErrNoOptions
	}
	return idx, nil
}

// submit runs the container submission. Validation and backend failures were
// already shown by the presenter.
func submit[T any](ctx context.Context, c *form.Container) (T, error) {
	var zero T
	result, err := c.Submit(ctx)
	if err != nil {
		return zero, err
	}
	typed, ok := result.(T)
	if !ok {
		return zero, nil
	}
	return typed, nil
}

// presenter shows container modals through the prompt driver.
type presenter struct {
	ctx     context.Context
	driver  prompt.Driver
	notices *notice.Renderer
	logger  *zap.Logger
}

var _ form.Presenter = (*presenter)(nil)

func (p *presenter) Show(m form.Modal) {
	text, err := p.notices.Modal(m)
	if err != nil {
		p.logger.Warn("screens: render modal", zap.Error(err))
		text = m.Message
	}
	if err := p.driver.Info(context.WithoutCancel(p.ctx), text); err != nil {
		p.logger.Debug("screens: show modal", zap.Error(err))
	}
}

func (p *presenter) Dismiss() {}

func (p *presenter) Confirm(ctx context.Context, message string) (bool, error) {
	return p.driver.Confirm(ctx, prompt.ConfirmConfig{Message: message})
}
