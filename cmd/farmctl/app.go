package main

import (
	"context"
	"errors"
	"io"
	"net/http"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/goliatone/go-farmform/internal/config"
	"github.com/goliatone/go-farmform/internal/localstore"
	"github.com/goliatone/go-farmform/internal/logging"
	"github.com/goliatone/go-farmform/pkg/apispec"
	"github.com/goliatone/go-farmform/pkg/client"
	"github.com/goliatone/go-farmform/pkg/i18n"
	"github.com/goliatone/go-farmform/pkg/notice"
	"github.com/goliatone/go-farmform/pkg/prompt"
	"github.com/goliatone/go-farmform/pkg/screens"
	"github.com/goliatone/go-farmform/pkg/session"
)

var errNotSignedIn = errors.New("farmctl: not signed in, run farmctl login")

// deps are the process level collaborators, replaced in tests.
type deps struct {
	out    io.Writer
	errOut io.Writer
	driver prompt.Driver
	http   *http.Client
}

// app holds what a command run needs. Everything past the config is opened
// lazily so commands like "api routes" work without a local store.
type app struct {
	deps

	configPath string
	locale     string

	cfg    *config.Config
	logger *zap.Logger
	loc    *i18n.Localizer

	store    *localstore.Store
	sessions *session.Manager
	client   *client.Client
	notices  *notice.Renderer
}

func (a *app) init() error {
	cfg, err := config.Load(a.configPath)
	if err != nil {
		return err
	}
	if a.locale != "" {
		cfg.Locale = a.locale
	}
	if err := cfg.Validate(); err != nil {
		return err
	}
	logger, err := logging.New(cfg.Logging)
	if err != nil {
		return err
	}
	a.cfg = cfg
	a.logger = logger
	a.loc = i18n.DefaultLocalizer(cfg.Locale)
	return nil
}

// connect opens the store, restores the session and builds the client.
func (a *app) connect(ctx context.Context) error {
	if a.client != nil {
		return nil
	}
	store, err := localstore.Open(a.cfg.Store.Path, localstore.WithLogger(a.logger))
	if err != nil {
		return err
	}
	a.store = store
	a.sessions = session.NewManager(store.KV(), session.WithLogger(a.logger))
	if _, _, err := a.sessions.Load(ctx); err != nil {
		return err
	}

	hc := a.http
	if hc == nil {
		hc = &http.Client{Timeout: a.cfg.GetTimeout()}
	}
	opts := []client.Option{
		client.WithHTTPClient(hc),
		client.WithTokenSource(a.sessions),
		client.WithCache(store.Cache(), a.cfg.GetCacheTTL()),
		client.WithQueue(store.Queue()),
		client.WithLogger(a.logger),
	}
	if a.cfg.API.ContractCheck {
		spec, err := apispec.Default()
		if err != nil {
			return err
		}
		opts = append(opts, client.WithContract(spec))
	}
	c, err := client.New(a.cfg.API.BaseURL, opts...)
	if err != nil {
		return err
	}
	a.client = c

	notices, err := notice.New(notice.WithLocalizer(a.loc))
	if err != nil {
		return err
	}
	a.notices = notices
	return nil
}

func (a *app) screens() (*screens.Screens, error) {
	driver := a.driver
	if driver == nil {
		driver = prompt.NewSurvey()
	}
	return screens.New(a.client, driver,
		screens.WithProfile(a.sessions),
		screens.WithNotices(a.notices),
		screens.WithLocalizer(a.loc),
		screens.WithDismissAfter(a.cfg.GetDismissAfter()),
		screens.WithLogger(a.logger),
	)
}

// userID returns the signed in user or errNotSignedIn.
func (a *app) userID(ctx context.Context) (string, error) {
	current, ok, err := a.sessions.Load(ctx)
	if err != nil {
		return "", err
	}
	if !ok || current.UserID == "" {
		return "", errNotSignedIn
	}
	return current.UserID, nil
}

func (a *app) close() {
	if a.store != nil {
		if err := a.store.Close(); err != nil {
			a.logger.Warn("farmctl: close store", zap.Error(err))
		}
		a.store = nil
	}
	if a.logger != nil {
		_ = a.logger.Sync()
	}
}

// run adapts fn to cobra and releases the store whatever the outcome.
func (a *app) run(fn func(ctx context.Context, args []string) error) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, args []string) error {
		defer a.close()
		return fn(cmd.Context(), args)
	}
}

// connected is run for commands that talk to the backend.
func (a *app) connected(fn func(ctx context.Context, args []string) error) func(*cobra.Command, []string) error {
	return a.run(func(ctx context.Context, args []string) error {
		if err := a.connect(ctx); err != nil {
			return err
		}
		return fn(ctx, args)
	})
}
