package form

import (
	"time"

	"go.uber.org/zap"

	"github.com/goliatone/go-farmform/pkg/i18n"
)

// DefaultDismissAfter is how long submit outcome modals stay visible.
const DefaultDismissAfter = 2 * time.Second

// Encoder turns the current values into a request payload.
type Encoder func(Values) (any, error)

// Option configures a Container.
type Option func(*Container)

// WithRules registers validation rules.
func WithRules(rules ...Rule) Option {
	return func(c *Container) {
		c.rules = append(c.rules, rules...)
	}
}

// WithEncoder overrides the payload encoder. The default sends a copy of the
// value tree.
func WithEncoder(enc Encoder) Option {
	return func(c *Container) {
		if enc != nil {
			c.encoder = enc
		}
	}
}

// WithSubmitter sets the operation invoked on Submit.
func WithSubmitter(s Submitter) Option {
	return func(c *Container) {
		c.submitter = s
	}
}

// WithPresenter sets the modal presenter.
func WithPresenter(p Presenter) Option {
	return func(c *Container) {
		if p != nil {
			c.presenter = p
		}
	}
}

// WithClock injects the clock used for modal timers.
func WithClock(clock Clock) Option {
	return func(c *Container) {
		if clock != nil {
			c.clock = clock
		}
	}
}

// WithLocalizer sets the localizer used for notice messages.
func WithLocalizer(loc *i18n.Localizer) Option {
	return func(c *Container) {
		if loc != nil {
			c.loc = loc
		}
	}
}

// WithLogger attaches a structured logger.
func WithLogger(logger *zap.Logger) Option {
	return func(c *Container) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// WithDismissAfter sets how long outcome modals stay visible. Zero leaves them
// up and runs OnDone right after a successful submit.
func WithDismissAfter(d time.Duration) Option {
	return func(c *Container) {
		if d >= 0 {
			c.dismissAfter = d
		}
	}
}

// OnDone registers the callback run once the success modal is dismissed,
// typically to navigate back.
func OnDone(fn func(result any)) Option {
	return func(c *Container) {
		c.onDone = fn
	}
}

// WithErrorMessage maps submit failures to the message shown to the user.
func WithErrorMessage(fn func(error) string) Option {
	return func(c *Container) {
		if fn != nil {
			c.errorMessage = fn
		}
	}
}
