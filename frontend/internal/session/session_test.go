package session

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/studcollab/looped/frontend/internal/apiclient"
	"github.com/studcollab/looped/frontend/internal/feed"
	"github.com/studcollab/looped/frontend/internal/lifecycle"
	"github.com/studcollab/looped/frontend/internal/pending"
	"github.com/studcollab/looped/frontend/internal/syncer"
	"github.com/studcollab/looped/shared/api"
	"github.com/studcollab/looped/shared/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var ana = domain.User{Id: "ana", Email: "ana@uni.edu", Name: "Ana"}

// backend stores created posts and serves them back as my-posts.
type backend struct {
	mu    sync.Mutex
	posts []domain.TeamPost
	auth  []string
}

func (b *backend) handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /api/posts/team-finding", func(w http.ResponseWriter, r *http.Request) {
		var req api.CreateTeamPostRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		b.mu.Lock()
		b.auth = append(b.auth, r.Header.Get("Authorization"))
		p := domain.TeamPost{
			Id:        "p1",
			EventId:   req.EventId,
			Title:     req.Title,
			Author:    ana.AsAuthor(),
			CreatedAt: domain.NewTimestamp(time.Now()),
		}
		b.posts = append(b.posts, p)
		b.mu.Unlock()
		json.NewEncoder(w).Encode(p)
	})
	mux.HandleFunc("GET /api/beacon/my-posts", func(w http.ResponseWriter, r *http.Request) {
		b.mu.Lock()
		defer b.mu.Unlock()
		json.NewEncoder(w).Encode(b.posts)
	})
	mux.HandleFunc("GET /api/beacon/feed", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("[]"))
	})
	mux.HandleFunc("GET /api/beacon/applied-posts", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("[]"))
	})
	return mux
}

func newManager(t *testing.T, store pending.Store) (*Manager, *backend) {
	t.Helper()
	b := &backend{}
	srv := httptest.NewServer(b.handler())
	t.Cleanup(srv.Close)
	client := apiclient.New(srv.URL, 2*time.Second)
	return NewManager(client, store, syncer.New(store, 0), lifecycle.DefaultWindows(), nil), b
}

func addPending(t *testing.T, store pending.Store, title string) domain.PendingItem {
	t.Helper()
	scope, err := pending.ScopeFor(ana)
	require.NoError(t, err)
	it, err := domain.NewPendingItem(domain.PendingTeamPosts, api.CreateTeamPostRequest{EventId: "e1", Title: title}, "k-"+title, time.Now())
	require.NoError(t, err)
	it, err = pending.Add(context.Background(), store, scope, it)
	require.NoError(t, err)
	return it
}

func TestStart_SyncsPendingOnce(t *testing.T) {
	store := pending.NewMemory()
	addPending(t, store, "AI Project")
	m, b := newManager(t, store)

	s, report, err := m.Start(context.Background(), ana, "tok")
	require.NoError(t, err)
	assert.Equal(t, 1, report.Synced())
	assert.Equal(t, []string{"Bearer tok"}, b.auth)

	items, err := store.List(context.Background(), s.Scope, domain.PendingTeamPosts)
	require.NoError(t, err)
	assert.Empty(t, items)

	res, err := s.View.Refresh(context.Background())
	require.NoError(t, err)
	require.Len(t, res.Mine, 1)
	assert.Equal(t, "AI Project", res.Mine[0].Post.Title)
	assert.False(t, res.Mine[0].Pending)
}

func TestStart_ReplacesPlaceholderInView(t *testing.T) {
	store := pending.NewMemory()
	m, _ := newManager(t, store)

	s, _, err := m.Start(context.Background(), ana, "tok")
	require.NoError(t, err)

	item := addPending(t, store, "Offline post")
	_, err = s.View.Refresh(context.Background())
	require.NoError(t, err)
	require.True(t, s.View.Snapshot().Mine[0].Pending)

	_, err = s.Sync(context.Background())
	require.NoError(t, err)

	mine := s.View.Snapshot().Mine
	require.Len(t, mine, 1)
	assert.False(t, mine[0].Pending)
	assert.NotEqual(t, item.LocalId, mine[0].Post.Id)
}

func TestEnsure(t *testing.T) {
	m, _ := newManager(t, pending.NewMemory())
	ctx := context.Background()

	s1, err := m.Ensure(ctx, ana, "tok")
	require.NoError(t, err)
	s2, err := m.Ensure(ctx, ana, "tok")
	require.NoError(t, err)
	assert.Same(t, s1, s2)

	s3, err := m.Ensure(ctx, ana, "rotated")
	require.NoError(t, err)
	assert.NotSame(t, s1, s3)
	assert.True(t, s1.Ended(), "replaced session is ended")
	assert.False(t, s3.Ended())
}

func TestEnd_DropsStaleCompletions(t *testing.T) {
	m, _ := newManager(t, pending.NewMemory())
	s, _, err := m.Start(context.Background(), ana, "tok")
	require.NoError(t, err)

	token := s.View.Begin()
	assert.True(t, m.End(ana))
	assert.False(t, m.End(ana))
	assert.True(t, s.Ended())

	_, err = s.View.RemovePost(token, "p1")
	assert.ErrorIs(t, err, feed.ErrStale)
	_, ok := m.Get(ana)
	assert.False(t, ok)
}

func TestStart_RequiresEmail(t *testing.T) {
	m, _ := newManager(t, pending.NewMemory())
	_, _, err := m.Start(context.Background(), domain.User{Id: "x"}, "tok")
	assert.ErrorIs(t, err, pending.ErrNoScope)
}

func TestTargets(t *testing.T) {
	m, _ := newManager(t, pending.NewMemory())
	_, _, err := m.Start(context.Background(), ana, "tok")
	require.NoError(t, err)
	targets := m.Targets()
	require.Len(t, targets, 1)
	assert.Equal(t, ana, targets[0].User)

	m.EndAll()
	assert.Empty(t, m.Targets())
}

func TestGuard(t *testing.T) {
	var g Guard
	tok := g.Token()
	assert.True(t, g.Valid(tok))
	g.End()
	assert.False(t, g.Valid(tok))
	assert.True(t, g.Valid(g.Token()))
}
