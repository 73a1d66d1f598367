// Package syncer pushes locally pending creations to the backend.
package syncer

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/studcollab/looped/frontend/internal/pending"
	"github.com/studcollab/looped/shared/api"
	"github.com/studcollab/looped/shared/domain"
	"github.com/studcollab/looped/shared/logger"
	"github.com/studcollab/looped/shared/middleware/metrics"
	"golang.org/x/sync/singleflight"
	"golang.org/x/time/rate"
)

const (
	resultSynced = "synced"
	resultFailed = "failed"

	// claimTTL bounds how long a claim from a crashed engine blocks an item.
	claimTTL = 2 * time.Minute
)

// Backend is the subset of the API client a sync pass needs.
type Backend interface {
	CreateEvent(ctx context.Context, req api.CreateEventRequest, idempotencyKey string) (domain.Event, error)
	CreateTeamPost(ctx context.Context, req api.CreateTeamPostRequest, idempotencyKey string) (domain.TeamPost, error)
}

// Replacement tells a listener that a placeholder now exists on the server.
// Exactly one of Event and Post is set, matching Kind.
type Replacement struct {
	LocalId domain.LocalId
	Kind    domain.PendingKind
	Event   *domain.Event
	Post    *domain.TeamPost
}

type Listener func(Replacement)

type KindReport struct {
	Kind      domain.PendingKind
	Attempted int
	Synced    int
	Failed    int
	Skipped   int // pushed by another engine meanwhile
	Remaining int
	Duration  time.Duration
}

type Report struct {
	Kinds    []KindReport
	Duration time.Duration
}

func (r Report) Synced() int {
	n := 0
	for _, k := range r.Kinds {
		n += k.Synced
	}
	return n
}

func (r Report) Response() api.SyncResponse {
	out := api.SyncResponse{DurationMs: r.Duration.Milliseconds(), Kinds: make([]api.KindReport, 0, len(r.Kinds))}
	for _, k := range r.Kinds {
		out.Kinds = append(out.Kinds, api.KindReport{
			Kind:      k.Kind,
			Attempted: k.Attempted,
			Synced:    k.Synced,
			Failed:    k.Failed,
			Skipped:   k.Skipped,
			Remaining: k.Remaining,
		})
	}
	return out
}

// Engine runs sync passes. Passes for the same scope are coalesced; pushes
// across all passes share one rate limiter. Engines sharing a store (other
// processes) never push the same item twice: each push is preceded by a
// claim on the item recorded in the store.
type Engine struct {
	id      string
	store   pending.Store
	limiter *rate.Limiter
	group   singleflight.Group
}

// New builds an engine pushing at most pushRate items per second. A
// non-positive rate disables pacing.
func New(store pending.Store, pushRate float64) *Engine {
	limit := rate.Inf
	if pushRate > 0 {
		limit = rate.Limit(pushRate)
	}
	return &Engine{id: uuid.NewString(), store: store, limiter: rate.NewLimiter(limit, 1)}
}

// SyncPending pushes every pending item of user, events first. A caller that
// arrives while a pass for the same scope runs shares that pass's report;
// its listener is not called. Push failures leave the item stored and are
// only reported. The returned error is reserved for an unusable store.
func (e *Engine) SyncPending(ctx context.Context, user domain.User, backend Backend, onReplace Listener) (Report, error) {
	scope, err := pending.ScopeFor(user)
	if err != nil {
		return Report{}, err
	}
	v, err, shared := e.group.Do(string(scope), func() (any, error) {
		return e.run(ctx, scope, backend, onReplace)
	})
	if shared {
		logger.Log.Debug("joined running sync pass", "component", "sync", "scope", scope.String())
	}
	if err != nil {
		return Report{}, err
	}
	return v.(Report), nil
}

func (e *Engine) run(ctx context.Context, scope pending.Scope, backend Backend, onReplace Listener) (Report, error) {
	start := time.Now()
	metrics.SyncPasses.Inc()

	var report Report
	for _, kind := range domain.PendingKinds() {
		kr, err := e.syncKind(ctx, scope, kind, backend, onReplace)
		if err != nil {
			return report, fmt.Errorf("sync %s: %w", kind, err)
		}
		report.Kinds = append(report.Kinds, kr)
	}
	report.Duration = time.Since(start)

	logger.Log.Info("sync pass finished",
		"component", "sync",
		"scope", scope.String(),
		"synced", report.Synced(),
		"duration_ms", report.Duration.Milliseconds(),
	)
	return report, nil
}

func (e *Engine) syncKind(ctx context.Context, scope pending.Scope, kind domain.PendingKind, backend Backend, onReplace Listener) (KindReport, error) {
	start := time.Now()
	kr := KindReport{Kind: kind}

	snapshot, err := e.store.List(ctx, scope, kind)
	if err != nil {
		return kr, err
	}

	synced := make(map[domain.LocalId]struct{}, len(snapshot))
	failed := make(map[domain.LocalId]string)

	for _, listed := range snapshot {
		if err := e.limiter.Wait(ctx); err != nil {
			// cancelled: whatever was not attempted stays for the next pass
			break
		}
		item, ok, err := e.claim(ctx, scope, kind, listed.LocalId)
		if err != nil {
			if ctx.Err() != nil {
				break
			}
			return kr, err
		}
		if !ok {
			kr.Skipped++
			logger.Log.Debug("pending item synced or claimed elsewhere", "component", "sync", "kind", kind, "local_id", listed.LocalId)
			continue
		}
		kr.Attempted++

		repl, err := push(ctx, backend, item)
		if err != nil {
			kr.Failed++
			failed[item.LocalId] = err.Error()
			metrics.SyncItems.WithLabelValues(string(kind), resultFailed).Inc()
			logger.Log.Warn("pending item push failed",
				"component", "sync",
				"kind", kind,
				"local_id", item.LocalId,
				"attempts", item.Attempts+1,
				"error", err,
			)
			continue
		}

		kr.Synced++
		synced[item.LocalId] = struct{}{}
		metrics.SyncItems.WithLabelValues(string(kind), resultSynced).Inc()

		// drop it right away so a crash mid-pass cannot push it twice
		if _, err := pending.Remove(ctx, e.store, scope, kind, item.LocalId); err != nil {
			logger.Log.Error("failed to remove synced item", "component", "sync", "local_id", item.LocalId, "error", err)
		}
		if onReplace != nil {
			onReplace(repl)
		}
	}

	// Write back against the current list, never the snapshot: another pass
	// may have changed it meanwhile.
	remaining, err := e.store.Update(context.WithoutCancel(ctx), scope, kind, func(current []domain.PendingItem) ([]domain.PendingItem, error) {
		next := make([]domain.PendingItem, 0, len(current))
		for _, it := range current {
			if _, ok := synced[it.LocalId]; ok {
				continue
			}
			if msg, ok := failed[it.LocalId]; ok {
				it.Attempts++
				it.LastError = msg
			}
			if it.ClaimedBy == e.id {
				it.ClaimedBy = ""
				it.ClaimedAt = domain.Timestamp{}
			}
			next = append(next, it)
		}
		return next, nil
	})
	if err != nil {
		return kr, err
	}
	kr.Remaining = len(remaining)
	kr.Duration = time.Since(start)
	return kr, nil
}

// claim marks the item as being pushed by e and returns its current copy.
// It reports false when the item is gone or another engine holds a live
// claim on it.
func (e *Engine) claim(ctx context.Context, scope pending.Scope, kind domain.PendingKind, id domain.LocalId) (domain.PendingItem, bool, error) {
	var (
		claimed domain.PendingItem
		ok      bool
	)
	now := time.Now()
	_, err := e.store.Update(ctx, scope, kind, func(current []domain.PendingItem) ([]domain.PendingItem, error) {
		ok = false
		next := make([]domain.PendingItem, len(current))
		copy(next, current)
		for i, it := range next {
			if it.LocalId != id {
				continue
			}
			if it.ClaimedBy != "" && it.ClaimedBy != e.id && now.Sub(it.ClaimedAt.Time) < claimTTL {
				return current, nil
			}
			it.ClaimedBy = e.id
			it.ClaimedAt = domain.NewTimestamp(now)
			next[i] = it
			claimed, ok = it, true
			return next, nil
		}
		return current, nil
	})
	if err != nil {
		return domain.PendingItem{}, false, err
	}
	return claimed, ok, nil
}

// push replays the stored request with the item's idempotency key.
func push(ctx context.Context, backend Backend, item domain.PendingItem) (Replacement, error) {
	repl := Replacement{LocalId: item.LocalId, Kind: item.Kind}
	switch item.Kind {
	case domain.PendingEvents:
		var req api.CreateEventRequest
		if err := json.Unmarshal(item.Payload, &req); err != nil {
			return repl, fmt.Errorf("decode pending event: %w", err)
		}
		ev, err := backend.CreateEvent(ctx, req, item.IdempotencyKey)
		if err != nil {
			return repl, err
		}
		repl.Event = &ev
	case domain.PendingTeamPosts:
		var req api.CreateTeamPostRequest
		if err := json.Unmarshal(item.Payload, &req); err != nil {
			return repl, fmt.Errorf("decode pending post: %w", err)
		}
		post, err := backend.CreateTeamPost(ctx, req, item.IdempotencyKey)
		if err != nil {
			return repl, err
		}
		repl.Post = &post
	default:
		return repl, fmt.Errorf("unknown pending kind %q", item.Kind)
	}
	return repl, nil
}

// Target is one session the background loop keeps in sync.
type Target struct {
	User      domain.User
	Backend   Backend
	OnReplace Listener
}

// StartBackground re-runs SyncPending for every target on each tick until ctx
// is done.
func (e *Engine) StartBackground(ctx context.Context, interval time.Duration, targets func() []Target) {
	if interval <= 0 {
		return
	}
	ticker := time.NewTicker(interval)
	logger.Log.Info("started background sync", "component", "sync", "interval", interval)

	go func() {
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				for _, t := range targets() {
					if _, err := e.SyncPending(ctx, t.User, t.Backend, t.OnReplace); err != nil {
						logger.Log.Error("background sync failed", "component", "sync", "user_id", t.User.Id, "error", err)
					}
				}
			case <-ctx.Done():
				logger.Log.Info("background sync shutting down", "component", "sync")
				return
			}
		}
	}()
}
