package feed

import (
	"context"
	"errors"
	"time"

	"github.com/studcollab/looped/frontend/internal/lifecycle"
	"github.com/studcollab/looped/frontend/internal/pending"
	"github.com/studcollab/looped/shared/api"
	"github.com/studcollab/looped/shared/domain"
	"github.com/studcollab/looped/shared/logger"
	"github.com/studcollab/looped/shared/middleware/metrics"
	"golang.org/x/sync/errgroup"
)

// Source is the part of the backend client the beacon views read from.
type Source interface {
	BeaconFeed(ctx context.Context) ([]api.FeedEntry, error)
	MyPosts(ctx context.Context) ([]api.FeedEntry, error)
	AppliedPosts(ctx context.Context) ([]api.AppliedPost, error)
}

type EventSource interface {
	Events(ctx context.Context, category domain.EventCategory) ([]domain.Event, error)
}

// Loader fetches every source once per refresh, overlays the pending store
// and prunes absorbed pending items.
type Loader struct {
	Store      pending.Store
	Reconciler Reconciler
	Clock      lifecycle.Clock
}

func NewLoader(store pending.Store, windows lifecycle.Windows, clock lifecycle.Clock) *Loader {
	if clock == nil {
		clock = lifecycle.SystemClock
	}
	return &Loader{Store: store, Reconciler: Reconciler{Windows: windows}, Clock: clock}
}

// Load never returns a source failure as an error; those end up in
// Result.Errors. It only fails when ctx is done.
func (l *Loader) Load(ctx context.Context, src Source, user domain.User) (Result, error) {
	var in Sources

	// Each fetch records its own error; none cancels the others.
	var g errgroup.Group
	g.Go(func() error {
		in.Feed, in.FeedErr = src.BeaconFeed(ctx)
		return nil
	})
	g.Go(func() error {
		in.Mine, in.MineErr = src.MyPosts(ctx)
		return nil
	})
	g.Go(func() error {
		in.Applied, in.AppliedErr = src.AppliedPosts(ctx)
		return nil
	})
	g.Wait()
	if err := ctx.Err(); err != nil {
		return Result{}, err
	}

	log := logger.Component("feed")
	for name, err := range map[string]error{"feed": in.FeedErr, "my-posts": in.MineErr, "applied-posts": in.AppliedErr} {
		if err != nil {
			log.Warn("source fetch failed", "source", name, "error", err)
		}
	}

	scope, scopeErr := pending.ScopeFor(user)
	if scopeErr == nil {
		items, err := l.Store.List(ctx, scope, domain.PendingTeamPosts)
		if err != nil {
			log.Error("failed to read pending posts", "scope", scope.String(), "error", err)
		}
		in.Pending = items
	}

	res := l.Reconciler.Reconcile(in, l.Clock.Now(), user)
	if len(res.Absorbed) > 0 && scopeErr == nil {
		l.prune(ctx, scope, domain.PendingTeamPosts, res.Absorbed)
	}
	return res, nil
}

// LoadEvents is Load for the events hub.
func (l *Loader) LoadEvents(ctx context.Context, src EventSource, user domain.User, category domain.EventCategory) (EventsResult, error) {
	events, err := src.Events(ctx, category)
	if ctxErr := ctx.Err(); ctxErr != nil && errors.Is(err, ctxErr) {
		return EventsResult{}, ctxErr
	}
	log := logger.Component("feed")
	if err != nil {
		log.Warn("source fetch failed", "source", "events", "error", err)
	}

	var items []domain.PendingItem
	scope, scopeErr := pending.ScopeFor(user)
	if scopeErr == nil {
		if items, err = l.Store.List(ctx, scope, domain.PendingEvents); err != nil {
			log.Error("failed to read pending events", "scope", scope.String(), "error", err)
		}
	}

	var serverErr error
	if events == nil && err != nil {
		serverErr = err
	}
	res := ReconcileEvents(events, items, serverErr, category)
	if len(res.Absorbed) > 0 && scopeErr == nil {
		l.prune(ctx, scope, domain.PendingEvents, res.Absorbed)
	}
	return res, nil
}

// prune failures only delay cleanup: the next refresh absorbs them again.
func (l *Loader) prune(ctx context.Context, scope pending.Scope, kind domain.PendingKind, ids []domain.LocalId) {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
	defer cancel()
	n, err := pending.Remove(ctx, l.Store, scope, kind, ids...)
	if err != nil {
		logger.Log.Warn("failed to prune absorbed pending items", "component", "feed", "kind", kind, "error", err)
		return
	}
	metrics.ReconcileAbsorbed.Add(float64(n))
	logger.Log.Info("absorbed pending items", "component", "feed", "kind", kind, "count", n)
}
