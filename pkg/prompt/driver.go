// Package prompt abstracts the terminal prompts used by the screens so flows
// can be scripted in tests and driven by survey in the CLI.
package prompt

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/AlecAivazis/survey/v2"
	"github.com/AlecAivazis/survey/v2/terminal"
)

// InputConfig configures a basic text input prompt.
type InputConfig struct {
	Message   string
	Default   string
	Help      string
	Validator func(string) error
}

// ConfirmConfig configures a yes/no style prompt.
type ConfirmConfig struct {
	Message string
	Default bool
	Help    string
}

// SelectConfig configures a single or multi-select prompt.
type SelectConfig struct {
	Message      string
	Options      []string
	DefaultIndex int
	Defaults     []int // multi-select only; indices into Options
	Help         string
	PageSize     int
}

// Driver is the set of prompts a screen may issue.
type Driver interface {
	Input(ctx context.Context, cfg InputConfig) (string, error)
	Password(ctx context.Context, cfg InputConfig) (string, error)
	Confirm(ctx context.Context, cfg ConfirmConfig) (bool, error)
	Select(ctx context.Context, cfg SelectConfig) (int, error)
	MultiSelect(ctx context.Context, cfg SelectConfig) ([]int, error)
	Info(ctx context.Context, msg string) error
}

// Option configures the survey driver.
type Option func(*Survey)

// WithStdio overrides the terminal streams.
func WithStdio(in terminal.FileReader, out terminal.FileWriter, errOut io.Writer) Option {
	return func(s *Survey) {
		s.stdio = &terminal.Stdio{In: in, Out: out, Err: errOut}
		s.info = out
	}
}

// Survey drives prompts with github.com/AlecAivazis/survey.
type Survey struct {
	stdio *terminal.Stdio
	info  io.Writer
}

var _ Driver = (*Survey)(nil)

// NewSurvey builds a survey backed driver bound to the process terminal.
func NewSurvey(opts ...Option) *Survey {
	s := &Survey{info: os.Stdout}
	for _, opt := range opts {
		if opt != nil {
			opt(s)
		}
	}
	return s
}

func (s *Survey) askOpts(validator func(string) error) []survey.AskOpt {
	var opts []survey.AskOpt
	if s.stdio != nil {
		opts = append(opts, survey.WithStdio(s.stdio.In, s.stdio.Out, s.stdio.Err))
	}
	if validator != nil {
		opts = append(opts, survey.WithValidator(func(ans any) error {
			str, _ := ans.(string)
			return validator(str)
		}))
	}
	return opts
}

func (s *Survey) Input(ctx context.Context, cfg InputConfig) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	var out string
	prompt := &survey.Input{
		Message: cfg.Message,
		Help:    cfg.Help,
		Default: cfg.Default,
	}
	if err := survey.AskOne(prompt, &out, s.askOpts(cfg.Validator)...); err != nil {
		return "", translateSurveyErr(err)
	}
	return out, nil
}

func (s *Survey) Password(ctx context.Context, cfg InputConfig) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	var out string
	prompt := &survey.Password{
		Message: cfg.Message,
		Help:    cfg.Help,
	}
	if err := survey.AskOne(prompt, &out, s.askOpts(cfg.Validator)...); err != nil {
		return "", translateSurveyErr(err)
	}
	return out, nil
}

func (s *Survey) Confirm(ctx context.Context, cfg ConfirmConfig) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	var out bool
	prompt := &survey.Confirm{
		Message: cfg.Message,
		Help:    cfg.Help,
		Default: cfg.Default,
	}
	if err := survey.AskOne(prompt, &out, s.askOpts(nil)...); err != nil {
		return false, translateSurveyErr(err)
	}
	return out, nil
}

func (s *Survey) Select(ctx context.Context, cfg SelectConfig) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	if len(cfg.Options) == 0 {
		return -1, ErrNoOptions
	}
	// Answers decode into indices so options sharing a label stay distinct.
	var out int
	prompt := &survey.Select{
		Message: cfg.Message,
		Options: cfg.Options,
		Help:    cfg.Help,
	}
	if cfg.PageSize > 0 {
		prompt.PageSize = cfg.PageSize
	}
	if cfg.DefaultIndex >= 0 && cfg.DefaultIndex < len(cfg.Options) {
		prompt.Default = cfg.DefaultIndex
	}
	if err := survey.AskOne(prompt, &out, s.askOpts(nil)...); err != nil {
		return 0, translateSurveyErr(err)
	}
	return out, nil
}

func (s *Survey) MultiSelect(ctx context.Context, cfg SelectConfig) ([]int, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if len(cfg.Options) == 0 {
		return nil, ErrNoOptions
	}
	var out []int
	prompt := &survey.MultiSelect{
		Message: cfg.Message,
		Options: cfg.Options,
		Help:    cfg.Help,
	}
	if cfg.PageSize > 0 {
		prompt.PageSize = cfg.PageSize
	}
	if defaults := validIndices(len(cfg.Options), cfg.Defaults); len(defaults) > 0 {
		prompt.Default = defaults
	}
	if err := survey.AskOne(prompt, &out, s.askOpts(nil)...); err != nil {
		return nil, translateSurveyErr(err)
	}
	return out, nil
}

func (s *Survey) Info(ctx context.Context, msg string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	_, err := fmt.Fprintln(s.info, msg)
	return err
}

func translateSurveyErr(err error) error {
	if errors.Is(err, terminal.InterruptErr) {
		return ErrAborted
	}
	return err
}

// validIndices keeps the indices that address one of n options. survey
// panics on an out of range default.
func validIndices(n int, indices []int) []int {
	var out []int
	for _, idx := range indices {
		if idx >= 0 && idx < n {
			out = append(out, idx)
		}
	}
	return out
}
