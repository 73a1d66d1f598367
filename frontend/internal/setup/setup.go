package setup

import (
	"context"
	"fmt"
	"time"

	"github.com/studcollab/looped/frontend/internal/apiclient"
	"github.com/studcollab/looped/frontend/internal/handler"
	"github.com/studcollab/looped/frontend/internal/lifecycle"
	"github.com/studcollab/looped/frontend/internal/markdown"
	"github.com/studcollab/looped/frontend/internal/pending"
	"github.com/studcollab/looped/frontend/internal/session"
	"github.com/studcollab/looped/frontend/internal/syncer"
	"github.com/studcollab/looped/shared/config"
	"github.com/studcollab/looped/shared/jwt"
	"github.com/studcollab/looped/shared/logger"
	mw "github.com/studcollab/looped/shared/middleware"
)

// tokens are issued by the backend; the ttl only matters for NewToken
const tokenTTL = 30 * 24 * time.Hour

type Dependencies struct {
	Handler    *handler.Handler
	Auth       *mw.Auth
	Public     config.Public
	Store      pending.Store
	Sessions   *session.Manager
	CancelFunc context.CancelFunc
}

func SetupDependencies(cfg *config.Config) (*Dependencies, error) {
	// Create cancellable context for background tasks
	ctx, cancel := context.WithCancel(context.Background())

	store, err := pending.Open(ctx, cfg)
	if err != nil {
		cancel()
		return nil, fmt.Errorf("failed to open pending store: %w", err)
	}

	if cfg.JwtKey() == "" {
		logger.Log.Warn("jwt key is not set, token signatures are left to the backend")
	}
	auth := mw.NewAuth(jwt.New(cfg.JwtKey(), tokenTTL), cfg.Public.SecureCookies)

	client := apiclient.New(cfg.Public.API.BaseURL, cfg.RequestTimeout())
	windows := lifecycle.Windows{
		Active: cfg.Public.Lifecycle.ActiveWindow,
		Review: cfg.Public.Lifecycle.ReviewWindow,
	}
	engine := syncer.New(store, cfg.Public.Sync.PushRate)
	sessions := session.NewManager(client, store, engine, windows, nil)

	engine.StartBackground(ctx, cfg.Public.Sync.Interval, sessions.Targets)

	logger.Log.Info("dependencies ready",
		"api_base_url", cfg.Public.API.BaseURL,
		"pending_driver", cfg.Public.Pending.Driver,
		"sync_interval", cfg.Public.Sync.Interval)

	return &Dependencies{
		Handler:  handler.New(sessions, auth, store, markdown.New()),
		Auth:     auth,
		Public:   cfg.Public,
		Store:    store,
		Sessions: sessions,
		CancelFunc: func() {
			cancel()
			sessions.EndAll()
		},
	}, nil
}

// Close stops background work and releases the store.
func (d *Dependencies) Close() error {
	d.CancelFunc()
	return d.Store.Close()
}
