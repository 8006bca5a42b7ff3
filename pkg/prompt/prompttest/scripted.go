// Package prompttest provides a scripted prompt.Driver for tests.
package prompttest

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/goliatone/go-farmform/pkg/prompt"
)

// ErrScript is returned when a prompt does not match the next scripted step.
var ErrScript = errors.New("prompttest: script mismatch")

// Kind names the prompt a step answers.
type Kind string

const (
	KindInput       Kind = "input"
	KindPassword    Kind = "password"
	KindConfirm     Kind = "confirm"
	KindSelect      Kind = "select"
	KindMultiSelect Kind = "multiselect"
)

// Step is one scripted answer.
type Step struct {
	Kind    Kind
	Text    string
	Yes     bool
	Labels  []string
	Indices []int
	Err     error
}

// Answer replies to an input prompt.
func Answer(text string) Step { return Step{Kind: KindInput, Text: text} }

// Secret replies to a password prompt.
func Secret(text string) Step { return Step{Kind: KindPassword, Text: text} }

// Yes accepts a confirm prompt.
func Yes() Step { return Step{Kind: KindConfirm, Yes: true} }

// No rejects a confirm prompt.
func No() Step { return Step{Kind: KindConfirm} }

// Choose picks the option whose label equals label.
func Choose(label string) Step { return Step{Kind: KindSelect, Labels: []string{label}} }

// ChooseIndex picks an option by position.
func ChooseIndex(i int) Step { return Step{Kind: KindSelect, Indices: []int{i}} }

// ChooseMany picks every option whose label is listed.
func ChooseMany(labels ...string) Step { return Step{Kind: KindMultiSelect, Labels: labels} }

// Fail makes the next prompt of kind return err.
func Fail(kind Kind, err error) Step { return Step{Kind: kind, Err: err} }

// Driver replays steps in order. Input validators run against scripted
// answers; a rejected answer is recorded and the prompt is asked again with
// the next step, like survey does.
type Driver struct {
	mu       sync.Mutex
	steps    []Step
	asked    []string
	infos    []string
	rejected []string
}

var _ prompt.Driver = (*Driver)(nil)

// New builds a driver that replays steps.
func New(steps ...Step) *Driver {
	return &Driver{steps: steps}
}

// Asked returns the messages of every prompt issued so far.
func (d *Driver) Asked() []string {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]string(nil), d.asked...)
}

// Infos returns every message printed through Info.
func (d *Driver) Infos() []string {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]string(nil), d.infos...)
}

// Rejected returns the validator messages for rejected answers.
func (d *Driver) Rejected() []string {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]string(nil), d.rejected...)
}

// Remaining reports how many steps were not consumed.
func (d *Driver) Remaining() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.steps)
}

func (d *Driver) next(ctx context.Context, kind Kind, message string) (Step, error) {
	if err := ctx.Err(); err != nil {
		return Step{}, err
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	d.asked = append(d.asked, message)
	if len(d.steps) == 0 {
		return Step{}, fmt.Errorf("%w: no step left for %s %q", ErrScript, kind, message)
	}
	step := d.steps[0]
	if step.Kind != kind {
		return Step{}, fmt.Errorf("%w: want %s for %q, script has %s", ErrScript, kind, message, step.Kind)
	}
	d.steps = d.steps[1:]
	return step, step.Err
}

func (d *Driver) text(ctx context.Context, kind Kind, cfg prompt.InputConfig) (string, error) {
	for {
		step, err := d.next(ctx, kind, cfg.Message)
		if err != nil {
			return "", err
		}
		answer := step.Text
		if answer == "" {
			answer = cfg.Default
		}
		if cfg.Validator == nil {
			return answer, nil
		}
		verr := cfg.Validator(answer)
		if verr == nil {
			return answer, nil
		}
		d.mu.Lock()
		d.rejected = append(d.rejected, verr.Error())
		d.mu.Unlock()
	}
}

func (d *Driver) Input(ctx context.Context, cfg prompt.InputConfig) (string, error) {
	return d.text(ctx, KindInput, cfg)
}

func (d *Driver) Password(ctx context.Context, cfg prompt.InputConfig) (string, error) {
	return d.text(ctx, KindPassword, cfg)
}

func (d *Driver) Confirm(ctx context.Context, cfg prompt.ConfirmConfig) (bool, error) {
	step, err := d.next(ctx, KindConfirm, cfg.Message)
	if err != nil {
		return false, err
	}
	return step.Yes, nil
}

func (d *Driver) Select(ctx context.Context, cfg prompt.SelectConfig) (int, error) {
	step, err := d.next(ctx, KindSelect, cfg.Message)
	if err != nil {
		return -1, err
	}
	picked, err := pick(step, cfg.Options)
	if err != nil {
		return -1, err
	}
	return picked[0], nil
}

func (d *Driver) MultiSelect(ctx context.Context, cfg prompt.SelectConfig) ([]int, error) {
	step, err := d.next(ctx, KindMultiSelect, cfg.Message)
	if err != nil {
		return nil, err
	}
	return pick(step, cfg.Options)
}

func (d *Driver) Info(ctx context.Context, msg string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	d.infos = append(d.infos, msg)
	return nil
}

func pick(step Step, options []string) ([]int, error) {
	var out []int
	for _, idx := range step.Indices {
		if idx < 0 || idx >= len(options) {
			return nil, fmt.Errorf("%w: index %d outside %d options", ErrScript, idx, len(options))
		}
		out = append(out, idx)
	}
	for _, label := range step.Labels {
		found := -1
		for i, option := range options {
			if option == label {
				found = i
				break
			}
		}
		if found < 0 {
			return nil, fmt.Errorf("%w: option %q not offered (have %s)", ErrScript, label, strings.Join(options, ", "))
		}
		out = append(out, found)
	}
	if step.Kind == KindSelect && len(out) != 1 {
		return nil, fmt.Errorf("%w: select needs exactly one choice", ErrScript)
	}
	return out, nil
}
