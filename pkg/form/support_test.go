package form_test

import (
	"context"
	"sync"
	"time"

	"github.com/goliatone/go-farmform/pkg/form"
)

type manualClock struct {
	mu     sync.Mutex
	now    time.Time
	timers []*manualTimer
}

type manualTimer struct {
	clock   *manualClock
	at      time.Time
	fn      func()
	stopped bool
	fired   bool
}

func newManualClock() *manualClock {
	return &manualClock{now: time.Date(2024, 5, 1, 8, 0, 0, 0, time.UTC)}
}

func (c *manualClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *manualClock) AfterFunc(d time.Duration, fn func()) form.Timer {
	c.mu.Lock()
	defer c.mu.Unlock()
	t := &manualTimer{clock: c, at: c.now.Add(d), fn: fn}
	c.timers = append(c.timers, t)
	return t
}

func (c *manualClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	var due []*manualTimer
	for _, t := range c.timers {
		if !t.stopped && !t.fired && !t.at.After(c.now) {
			t.fired = true
			due = append(due, t)
		}
	}
	c.mu.Unlock()
	for _, t := range due {
		t.fn()
	}
}

func (c *manualClock) Active() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	n := 0
	for _, t := range c.timers {
		if !t.stopped && !t.fired {
			n++
		}
	}
	return n
}

func (t *manualTimer) Stop() bool {
	t.clock.mu.Lock()
	defer t.clock.mu.Unlock()
	if t.stopped || t.fired {
		return false
	}
	t.stopped = true
	return true
}

type recordingPresenter struct {
	mu        sync.Mutex
	shown     []form.Modal
	dismissed int
	confirms  []string
	answer    bool
}

func (p *recordingPresenter) Show(m form.Modal) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.shown = append(p.shown, m)
}

func (p *recordingPresenter) Dismiss() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.dismissed++
}

func (p *recordingPresenter) Confirm(_ context.Context, message string) (bool, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.confirms = append(p.confirms, message)
	return p.answer, nil
}

func (p *recordingPresenter) Shown() []form.Modal {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]form.Modal(nil), p.shown...)
}

func (p *recordingPresenter) Dismissed() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.dismissed
}

// reentrantPresenter reads the container from inside Show, as a UI that
// renders field errors next to the modal would.
type reentrantPresenter struct {
	recordingPresenter
	c      *form.Container
	errors []map[string]string
}

func (p *reentrantPresenter) Show(m form.Modal) {
	errs := p.c.Errors()
	visible := p.c.Flag(form.FlagModalVisible)
	p.recordingPresenter.Show(m)
	p.mu.Lock()
	defer p.mu.Unlock()
	if visible {
		p.errors = append(p.errors, errs)
	}
}
