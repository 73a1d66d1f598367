package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/studcollab/looped/frontend/internal/apiclient"
	"github.com/studcollab/looped/frontend/internal/lifecycle"
	"github.com/studcollab/looped/frontend/internal/pending"
	"github.com/studcollab/looped/frontend/internal/session"
	"github.com/studcollab/looped/frontend/internal/syncer"
	"github.com/studcollab/looped/shared/config"
	"github.com/studcollab/looped/shared/jwt"
	"github.com/studcollab/looped/shared/logger"
)

const tokenEnv = "LOOPED_TOKEN"

var errNoToken = errors.New("no session token: pass --token or set " + tokenEnv)

// options are the global flags.
type options struct {
	configFolder string
	token        string
	store        string
	verbose      bool
}

// app is what every command runs against: one store and one signed-in
// session. Starting the session syncs pending items first.
type app struct {
	cfg     *config.Config
	store   pending.Store
	session *session.Session
	synced  syncer.Report
}

func (o *options) loadConfig() *config.Config {
	var cfg *config.Config
	if o.configFolder != "" {
		cfg = config.MustLoad(o.configFolder)
	} else {
		cfg = config.Default()
		config.ApplyEnv(cfg)
	}
	if o.store != "" {
		cfg.Public.Pending.Driver = o.store
	}
	return cfg
}

func (o *options) open(ctx context.Context) (*app, error) {
	cfg := o.loadConfig()

	level := "warn"
	if o.verbose {
		level = "debug"
	}
	logger.InitializeTo(os.Stderr, level, cfg.Public.Log.JSON)

	token := o.token
	if token == "" {
		token = os.Getenv(tokenEnv)
	}
	if token == "" {
		return nil, errNoToken
	}
	user, err := jwt.New(cfg.JwtKey(), time.Hour).User(token)
	if err != nil {
		return nil, fmt.Errorf("invalid session token: %w", err)
	}

	store, err := pending.Open(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("open pending store: %w", err)
	}

	client := apiclient.New(cfg.Public.API.BaseURL, cfg.RequestTimeout())
	windows := lifecycle.Windows{
		Active: cfg.Public.Lifecycle.ActiveWindow,
		Review: cfg.Public.Lifecycle.ReviewWindow,
	}
	engine := syncer.New(store, cfg.Public.Sync.PushRate)
	manager := session.NewManager(client, store, engine, windows, nil)

	s, report, err := manager.Start(ctx, user, token)
	if err != nil {
		store.Close()
		return nil, err
	}
	return &app{cfg: cfg, store: store, session: s, synced: report}, nil
}

func (a *app) Close() error {
	return a.store.Close()
}
