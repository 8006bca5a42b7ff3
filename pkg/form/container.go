package form

import (
	"context"
	"errors"
	"reflect"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/goliatone/go-farmform/pkg/i18n"
)

// Notice message ids.
const (
	MsgSubmitInvalid  = "notices.submit.invalid"
	MsgSubmitSuccess  = "notices.submit.success"
	MsgSubmitFailure  = "notices.submit.failure"
	MsgUnsavedConfirm = "notices.unsaved.confirm"
)

const (
	// FlagSubmitting is set while a submission is in flight.
	FlagSubmitting = "submitting"
	// FlagModalVisible is set while an outcome modal is shown.
	FlagModalVisible = "modalVisible"
	// FormErrorKey holds form-level (not field-scoped) errors.
	FormErrorKey = "form"
)

// Submitter performs the remote operation for an encoded payload.
type Submitter func(ctx context.Context, payload any) (any, error)

// fieldErrorer is implemented by errors that carry per-field messages.
type fieldErrorer interface {
	FieldErrors() map[string]string
}

// Container holds the state of one form screen. It is safe for use by a UI
// goroutine and in-flight submissions; the lock is never held across I/O.
type Container struct {
	mu sync.Mutex

	values   Values
	defaults Values
	errors   map[string]string
	flags    map[string]bool
	rules    []Rule

	encoder      Encoder
	submitter    Submitter
	presenter    Presenter
	clock        Clock
	loc          *i18n.Localizer
	logger       *zap.Logger
	dismissAfter time.Duration
	onDone       func(result any)
	errorMessage func(error) string

	base   context.Context
	cancel context.CancelFunc
	timers map[*timerEntry]struct{}
	closed bool
}

type timerEntry struct {
	timer Timer
}

// New builds a container seeded with defaults. Values start as a copy of the
// defaults; Dirty reports whether they diverged.
func New(defaults map[string]any, opts ...Option) *Container {
	base, cancel := context.WithCancel(context.Background())
	c := &Container{
		values:       Values(defaults).Clone(),
		defaults:     Values(defaults).Clone(),
		errors:       make(map[string]string),
		flags:        make(map[string]bool),
		encoder:      func(v Values) (any, error) { return v.Clone(), nil },
		presenter:    nopPresenter{},
		clock:        SystemClock(),
		logger:       zap.NewNop(),
		dismissAfter: DefaultDismissAfter,
		base:         base,
		cancel:       cancel,
		timers:       make(map[*timerEntry]struct{}),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(c)
		}
	}
	if c.loc == nil {
		c.loc = i18n.DefaultLocalizer(i18n.DefaultLocale)
	}
	if c.errorMessage == nil {
		c.errorMessage = func(error) string { return c.loc.T(MsgSubmitFailure) }
	}
	return c
}

// Value returns the value at path.
func (c *Container) Value(path string) (any, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.values.Get(path)
}

// Values returns a copy of the value tree.
func (c *Container) Values() Values {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.values.Clone()
}

// Errors returns a copy of the non-empty errors.
func (c *Container) Errors() map[string]string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return cloneErrors(c.errors)
}

// Error returns the message stored under key.
func (c *Container) Error(key string) string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.errors[key]
}

// Valid reports whether no non-empty error is recorded.
func (c *Container) Valid() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return !hasErrors(c.errors)
}

// SetError records an externally produced error, e.g. from the server.
func (c *Container) SetError(key, message string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.setErrorLocked(key, message)
}

// OnChange stores value at path and re-runs every rule watching the path.
func (c *Container) OnChange(path string, value any) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return ErrClosed
	}
	if err := c.values.Set(path, value); err != nil {
		return err
	}
	owned := false
	for _, rule := range c.rules {
		if rule.Key == path {
			owned = true
		}
		if rule.watches(path) {
			c.setErrorLocked(rule.Key, rule.Check(c.values))
		}
	}
	if !owned {
		delete(c.errors, path)
	}
	delete(c.errors, FormErrorKey)
	return nil
}

// Validate re-runs every rule and reports whether the form is submittable.
func (c *Container) Validate() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.validateLocked()
	return !hasErrors(c.errors)
}

// SetFlag sets a named UI flag.
func (c *Container) SetFlag(name string, on bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.flags[name] = on
}

// Flag reads a named UI flag.
func (c *Container) Flag(name string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.flags[name]
}

// Submitting reports whether a submission is in flight.
func (c *Container) Submitting() bool {
	return c.Flag(FlagSubmitting)
}

// Dirty reports whether any value differs from its default.
func (c *Container) Dirty() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return !reflect.DeepEqual(c.values, c.defaults)
}

// Submit validates, encodes and submits the values. Validation failures return
// a *ValidationError without calling the submitter. While a submission is in
// flight further calls return ErrBusy. Results arriving after Close are
// discarded and ErrClosed is returned.
func (c *Container) Submit(ctx context.Context) (any, error) {
	if ctx == nil {
		ctx = context.Background()
	}

	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil, ErrClosed
	}
	if c.flags[FlagSubmitting] {
		c.mu.Unlock()
		return nil, ErrBusy
	}
	delete(c.errors, FormErrorKey)
	c.validateLocked()
	if hasErrors(c.errors) {
		verr := &ValidationError{Errors: cloneErrors(c.errors)}
		message := c.loc.T(MsgSubmitInvalid)
		c.mu.Unlock()
		_ = c.show(Modal{Kind: ModalFailure, Message: message, Fields: verr.FieldErrors()}, nil)
		return nil, verr
	}
	if c.submitter == nil {
		c.mu.Unlock()
		return nil, ErrNoSubmitter
	}
	payload, err := c.encoder(c.values.Clone())
	if err != nil {
		c.mu.Unlock()
		return nil, err
	}
	submit := c.submitter
	c.flags[FlagSubmitting] = true
	base := c.base
	c.mu.Unlock()

	reqCtx, cancel := context.WithCancel(ctx)
	stop := context.AfterFunc(base, cancel)
	result, err := submit(reqCtx, payload)
	stop()
	cancel()

	c.mu.Lock()
	c.flags[FlagSubmitting] = false
	if c.closed {
		c.mu.Unlock()
		c.logger.Debug("form: discarding submit result after close", zap.Error(err))
		return nil, ErrClosed
	}
	if err != nil {
		c.logger.Warn("form: submit failed", zap.Error(err))
		message := c.errorMessage(err)
		var fe fieldErrorer
		var fields map[string]string
		if errors.As(err, &fe) {
			fields = fe.FieldErrors()
			for key, msg := range fields {
				c.setErrorLocked(key, msg)
			}
		}
		c.setErrorLocked(FormErrorKey, message)
		c.mu.Unlock()
		_ = c.show(Modal{Kind: ModalFailure, Message: message, Fields: fields}, nil)
		return nil, err
	}

	c.defaults = c.values.Clone()
	done := c.onDone
	finish := func() {
		if done != nil {
			done(result)
		}
	}
	message := c.loc.T(MsgSubmitSuccess)
	c.mu.Unlock()
	if !c.show(Modal{Kind: ModalSuccess, Message: message}, finish) {
		finish()
	}
	return result, nil
}

// Back asks for confirmation before leaving a dirty form. It reports whether
// the caller should navigate away. A nil confirm uses the presenter.
func (c *Container) Back(ctx context.Context, confirm ConfirmFunc) (bool, error) {
	if !c.Dirty() {
		return true, nil
	}
	c.mu.Lock()
	if confirm == nil {
		confirm = c.presenter.Confirm
	}
	message := c.loc.T(MsgUnsavedConfirm)
	c.mu.Unlock()
	return confirm(ctx, message)
}

// Close cancels the in-flight submission and every pending timer. It is
// idempotent.
func (c *Container) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}
	c.closed = true
	c.cancel()
	for entry := range c.timers {
		entry.timer.Stop()
		delete(c.timers, entry)
	}
}

// PendingTimers reports how many modal timers are scheduled.
func (c *Container) PendingTimers() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.timers)
}

func (c *Container) validateLocked() {
	for _, rule := range c.rules {
		c.setErrorLocked(rule.Key, rule.Check(c.values))
	}
}

func (c *Container) setErrorLocked(key, message string) {
	if message == "" {
		delete(c.errors, key)
		return
	}
	c.errors[key] = message
}

// show presents modal and schedules its dismissal. It must be called without
// c.mu held so the presenter may call back into the container. then runs after
// the dismissal unless the container was closed first. It reports false when
// no timer was scheduled and the container is still open, leaving then to the
// caller.
func (c *Container) show(modal Modal, then func()) bool {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return true
	}
	c.flags[FlagModalVisible] = true
	presenter := c.presenter
	c.mu.Unlock()

	presenter.Show(modal)

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return true
	}
	if c.dismissAfter <= 0 {
		return false
	}
	entry := &timerEntry{}
	c.timers[entry] = struct{}{}
	entry.timer = c.clock.AfterFunc(c.dismissAfter, func() {
		c.mu.Lock()
		if _, ok := c.timers[entry]; !ok || c.closed {
			c.mu.Unlock()
			return
		}
		delete(c.timers, entry)
		c.flags[FlagModalVisible] = false
		presenter := c.presenter
		c.mu.Unlock()

		presenter.Dismiss()
		if then != nil {
			then()
		}
	})
	return true
}

func hasErrors(errs map[string]string) bool {
	for _, msg := range errs {
		if msg != "" {
			return true
		}
	}
	return false
}
