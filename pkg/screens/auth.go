package screens

import (
	"context"
	"strings"

	"github.com/goliatone/go-farmform/pkg/client"
	"github.com/goliatone/go-farmform/pkg/form"
	"github.com/goliatone/go-farmform/pkg/session"
	"github.com/goliatone/go-farmform/pkg/validation"
)

// Sessions signs users in and keeps the resulting session.
type Sessions interface {
	Login(ctx context.Context, auth session.Authenticator, creds client.Credentials) (session.Session, error)
}

// stringRule adapts validation rules to a form rule on path.
func stringRule(path string, rules ...validation.Rule) form.Rule {
	return form.Rule{
		Key:     path,
		Watches: []string{path},
		Check: func(values form.Values) string {
			value := values.String(path)
			for _, rule := range rules {
				if msg := rule(value); msg != "" {
					return msg
				}
			}
			return ""
		},
	}
}

// Login asks for credentials and signs in through sessions.
func (s *Screens) Login(ctx context.Context, sessions Sessions) (session.Session, error) {
	v := s.validator
	c := s.container(ctx, map[string]any{"email": "", "password": ""},
		form.WithRules(
			stringRule("email", v.Required(), v.Email()),
			stringRule("password", v.Required()),
		),
		form.WithEncoder(func(values form.Values) (any, error) {
			return client.Credentials{
				Email:    strings.TrimSpace(values.String("email")),
				Password: values.String("password"),
			}, nil
		}),
		form.WithSubmitter(func(ctx context.Context, payload any) (any, error) {
			return sessions.Login(ctx, s.client, payload.(client.Credentials))
		}),
		form.WithDismissAfter(0),
	)
	defer c.Close()

	if err := s.ask(ctx, c, input{path: "email", label: LabelEmail, keys: []string{"email"}}); err != nil {
		return session.Session{}, err
	}
	if err := s.ask(ctx, c, input{path: "password", label: LabelPassword, keys: []string{"password"}, secret: true}); err != nil {
		return session.Session{}, err
	}
	return submit[session.Session](ctx, c)
}

// Register asks for a new account. The backend mails a verification link
// that must be followed before Login succeeds.
func (s *Screens) Register(ctx context.Context) error {
	v := s.validator
	c := s.container(ctx, map[string]any{"username": "", "email": "", "password": "", "confirm": ""},
		form.WithRules(
			form.NameRule(v, "username"),
			stringRule("email", v.Required(), v.Email()),
			stringRule("password", v.Required(), v.MinLength(6)),
			form.Rule{
				Key:     "confirm",
				Watches: []string{"password", "confirm"},
				Check: func(values form.Values) string {
					return v.MatchPassword(values.String("password"))(values.String("confirm"))
				},
			},
		),
		form.WithEncoder(func(values form.Values) (any, error) {
			return client.Registration{
				Email:    strings.TrimSpace(values.String("email")),
				Password: values.String("password"),
				Username: validation.CleanText(values.String("username")),
			}, nil
		}),
		form.WithSubmitter(func(ctx context.Context, payload any) (any, error) {
			return nil, s.client.Register(ctx, payload.(client.Registration))
		}),
		form.WithDismissAfter(0),
	)
	defer c.Close()

	inputs := []input{
		{path: "username", label: LabelUsername, keys: []string{"username"}},
		{path: "email", label: LabelEmail, keys: []string{"email"}},
		{path: "password", label: LabelPassword, keys: []string{"password"}, secret: true},
		{path: "confirm", label: LabelConfirmPassword, keys: []string{"confirm"}, secret: true},
	}
	for _, in := range inputs {
		if err := s.ask(ctx, c, in); err != nil {
			return err
		}
	}
	if _, err := c.Submit(ctx); err != nil {
		return err
	}
	return s.driver.Info(ctx, s.loc.T(MsgRegisterSent))
}
