package main

import (
	"io"

	"github.com/spf13/cobra"

	"github.com/jwalitptl/innoguard/internal/apiclient"
	"github.com/jwalitptl/innoguard/internal/config"
	"github.com/jwalitptl/innoguard/internal/screen/dashboard"
	"github.com/jwalitptl/innoguard/internal/screen/login"
	"github.com/jwalitptl/innoguard/internal/session"
	"github.com/jwalitptl/innoguard/pkg/circuitbreaker"
	"github.com/jwalitptl/innoguard/pkg/logger"
)

// app is what every command shares: configuration, the backend client and
// the session file standing in for browser storage.
type app struct {
	cfg   *config.Config
	log   *logger.Logger
	api   *apiclient.Client
	store *session.FileStore
	out   io.Writer
}

func newApp(cmd *cobra.Command) (*app, error) {
	path, _ := cmd.Flags().GetString("config")
	verbose, _ := cmd.Flags().GetBool("verbose")

	cfg, err := config.Load(path)
	if err != nil {
		return nil, err
	}

	level := logger.ParseLevel(cfg.Log.Level)
	if verbose {
		level = logger.DebugLevel
	} else if level < logger.WarnLevel {
		level = logger.WarnLevel
	}
	log := logger.NewLogger(&logger.Config{
		Level:  level,
		Output: cmd.ErrOrStderr(),
		JSON:   cfg.Log.JSON,
	})

	api := apiclient.New(apiclient.Config{
		BaseURL: cfg.API.BaseURL,
		Timeout: cfg.API.Timeout(),
		Breaker: circuitbreaker.Settings{Disabled: true},
	}, apiclient.WithLogger(log))

	return &app{
		cfg:   cfg,
		log:   log,
		api:   api,
		store: session.NewFileStore(cfg.Session.FilePath),
		out:   cmd.OutOrStdout(),
	}, nil
}

func (a *app) loginScreen(nav login.Navigator) *login.Screen {
	return login.NewScreen(a.api, a.store, "", nav, login.WithLogger(a.log))
}

func (a *app) dashboardScreen() *dashboard.Screen {
	return dashboard.NewScreen(a.api, session.Bind(a.store, ""), dashboard.WithLogger(a.log))
}
