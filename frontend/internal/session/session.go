// Package session ties one signed-in user to their backend client, view and
// workflow. Nothing here is global: handlers and the CLI receive a *Session.
package session

import (
	"context"
	"sync"
	"sync/atomic"

	"github.com/studcollab/looped/frontend/internal/apiclient"
	"github.com/studcollab/looped/frontend/internal/feed"
	"github.com/studcollab/looped/frontend/internal/lifecycle"
	"github.com/studcollab/looped/frontend/internal/pending"
	"github.com/studcollab/looped/frontend/internal/syncer"
	"github.com/studcollab/looped/frontend/internal/workflow"
	"github.com/studcollab/looped/shared/domain"
	"github.com/studcollab/looped/shared/logger"
)

// Guard is a generation counter. Work started under one generation is
// discarded once the session ends.
type Guard struct {
	gen atomic.Uint64
}

func (g *Guard) Token() uint64 {
	return g.gen.Load()
}

func (g *Guard) Valid(token uint64) bool {
	return g.gen.Load() == token
}

func (g *Guard) End() {
	g.gen.Add(1)
}

type Session struct {
	User     domain.User
	Scope    pending.Scope
	Token    string
	Client   *apiclient.APIClient
	Loader   *feed.Loader
	View     *feed.View
	Workflow *workflow.Workflow

	engine *syncer.Engine
	guard  *Guard
	start  uint64
}

// Ended reports whether End was called for this session.
func (s *Session) Ended() bool {
	return !s.guard.Valid(s.start)
}

// Sync runs a sync pass for the session's user. Replaced posts are swapped
// into the view unless the session ended meanwhile.
func (s *Session) Sync(ctx context.Context) (syncer.Report, error) {
	return s.engine.SyncPending(ctx, s.User, s.Client, s.listener())
}

func (s *Session) listener() syncer.Listener {
	token := s.guard.Token()
	return func(r syncer.Replacement) {
		if r.Post == nil {
			return
		}
		if _, err := s.View.ReplacePending(token, r.LocalId, *r.Post); err != nil {
			logger.Log.Debug("placeholder not replaced", "component", "session", "local_id", r.LocalId, "error", err)
		}
	}
}

func (s *Session) target() syncer.Target {
	return syncer.Target{User: s.User, Backend: s.Client, OnReplace: s.listener()}
}

// Manager keeps at most one live session per scope.
type Manager struct {
	client  *apiclient.APIClient
	store   pending.Store
	engine  *syncer.Engine
	windows lifecycle.Windows
	clock   lifecycle.Clock

	mu       sync.Mutex
	sessions map[pending.Scope]*Session
}

func NewManager(client *apiclient.APIClient, store pending.Store, engine *syncer.Engine, windows lifecycle.Windows, clock lifecycle.Clock) *Manager {
	if clock == nil {
		clock = lifecycle.SystemClock
	}
	return &Manager{
		client:   client,
		store:    store,
		engine:   engine,
		windows:  windows,
		clock:    clock,
		sessions: make(map[pending.Scope]*Session),
	}
}

func (m *Manager) newSession(user domain.User, scope pending.Scope, token string) *Session {
	client := m.client.WithToken(token)
	guard := &Guard{}
	loader := feed.NewLoader(m.store, m.windows, m.clock)
	view := feed.NewView(loader, client, user, guard)
	return &Session{
		User:   user,
		Scope:  scope,
		Token:  token,
		Client: client,
		Loader: loader,
		View:   view,
		Workflow: workflow.New(workflow.Deps{
			User:    user,
			Backend: client,
			Store:   m.store,
			View:    view,
			Clock:   m.clock,
		}),
		engine: m.engine,
		guard:  guard,
		start:  guard.Token(),
	}
}

// Start replaces any existing session for the user and runs one sync pass.
// A failing pass does not prevent the session from starting; its error is
// logged and the returned report is empty.
func (m *Manager) Start(ctx context.Context, user domain.User, token string) (*Session, syncer.Report, error) {
	scope, err := pending.ScopeFor(user)
	if err != nil {
		return nil, syncer.Report{}, err
	}
	s := m.newSession(user, scope, token)

	m.mu.Lock()
	if old, ok := m.sessions[scope]; ok {
		old.guard.End()
	}
	m.sessions[scope] = s
	m.mu.Unlock()

	logger.Log.Info("session started", "component", "session", "user_id", user.Id, "scope", scope.String())

	report, err := s.Sync(ctx)
	if err != nil {
		logger.Log.Error("initial sync failed", "component", "session", "user_id", user.Id, "error", err)
		return s, syncer.Report{}, nil
	}
	return s, report, nil
}

// Get returns the live session of user, if any.
func (m *Manager) Get(user domain.User) (*Session, bool) {
	scope, err := pending.ScopeFor(user)
	if err != nil {
		return nil, false
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.sessions[scope]
	return s, ok
}

// Ensure returns the live session for user and token, starting one if there
// is none or the token changed.
func (m *Manager) Ensure(ctx context.Context, user domain.User, token string) (*Session, error) {
	if s, ok := m.Get(user); ok && s.Token == token {
		return s, nil
	}
	s, _, err := m.Start(ctx, user, token)
	return s, err
}

// End drops the user's session. In-flight completions started under it are
// discarded.
func (m *Manager) End(user domain.User) bool {
	scope, err := pending.ScopeFor(user)
	if err != nil {
		return false
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.sessions[scope]
	if !ok {
		return false
	}
	s.guard.End()
	delete(m.sessions, scope)
	logger.Log.Info("session ended", "component", "session", "user_id", user.Id)
	return true
}

func (m *Manager) EndAll() {
	m.mu.Lock()
	defer m.mu.Unlock()
	for scope, s := range m.sessions {
		s.guard.End()
		delete(m.sessions, scope)
	}
}

// Targets lists the live sessions for background sync.
func (m *Manager) Targets() []syncer.Target {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]syncer.Target, 0, len(m.sessions))
	for _, s := range m.sessions {
		out = append(out, s.target())
	}
	return out
}
