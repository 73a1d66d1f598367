package feed

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/studcollab/looped/frontend/internal/lifecycle"
	"github.com/studcollab/looped/frontend/internal/pending"
	"github.com/studcollab/looped/shared/api"
	"github.com/studcollab/looped/shared/domain"
	internal_errors "github.com/studcollab/looped/shared/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeSource struct {
	mu    sync.Mutex
	calls map[string]int

	feedFunc    func() ([]api.FeedEntry, error)
	mineFunc    func() ([]api.FeedEntry, error)
	appliedFunc func() ([]api.AppliedPost, error)
	eventsFunc  func(category string) ([]domain.Event, error)
}

func (f *fakeSource) track(name string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.calls == nil {
		f.calls = make(map[string]int)
	}
	f.calls[name]++
}

func (f *fakeSource) count(name string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[name]
}

func (f *fakeSource) BeaconFeed(ctx context.Context) ([]api.FeedEntry, error) {
	f.track("feed")
	if f.feedFunc == nil {
		return nil, nil
	}
	return f.feedFunc()
}

func (f *fakeSource) MyPosts(ctx context.Context) ([]api.FeedEntry, error) {
	f.track("mine")
	if f.mineFunc == nil {
		return nil, nil
	}
	return f.mineFunc()
}

func (f *fakeSource) AppliedPosts(ctx context.Context) ([]api.AppliedPost, error) {
	f.track("applied")
	if f.appliedFunc == nil {
		return nil, nil
	}
	return f.appliedFunc()
}

func (f *fakeSource) Events(ctx context.Context, category domain.EventCategory) ([]domain.Event, error) {
	f.track("events")
	if f.eventsFunc == nil {
		return nil, nil
	}
	return f.eventsFunc(category)
}

type testGuard struct {
	gen atomic.Uint64
}

func (g *testGuard) Token() uint64           { return g.gen.Load() }
func (g *testGuard) Valid(token uint64) bool { return g.gen.Load() == token }
func (g *testGuard) end()                    { g.gen.Add(1) }

func newLoader(store pending.Store) *Loader {
	return NewLoader(store, lifecycle.DefaultWindows(), lifecycle.FixedClock(now))
}

func TestLoader_FetchesEachSourceOnce(t *testing.T) {
	src := &fakeSource{}
	_, err := newLoader(pending.NewMemory()).Load(context.Background(), src, viewer)
	require.NoError(t, err)
	assert.Equal(t, 1, src.count("feed"))
	assert.Equal(t, 1, src.count("mine"))
	assert.Equal(t, 1, src.count("applied"))
}

func TestLoader_PrunesAbsorbedItems(t *testing.T) {
	ctx := context.Background()
	store := pending.NewMemory()
	scope, err := pending.ScopeFor(viewer)
	require.NoError(t, err)

	absorbed := pendingPost(t, "AI Project", now)
	kept := pendingPost(t, "Still offline", now)
	_, err = pending.Add(ctx, store, scope, absorbed)
	require.NoError(t, err)
	kept, err = pending.Add(ctx, store, scope, kept)
	require.NoError(t, err)

	src := &fakeSource{
		mineFunc: func() ([]api.FeedEntry, error) {
			return []api.FeedEntry{{Post: serverPost("p1", "AI Project", time.Minute, viewer.Id)}}, nil
		},
	}
	res, err := newLoader(store).Load(ctx, src, viewer)
	require.NoError(t, err)

	assert.Equal(t, []string{"Still offline", "AI Project"}, titles(res.Mine))
	left, err := store.List(ctx, scope, domain.PendingTeamPosts)
	require.NoError(t, err)
	require.Len(t, left, 1)
	assert.Equal(t, kept.LocalId, left[0].LocalId)
}

func TestLoader_PartialFailure(t *testing.T) {
	src := &fakeSource{
		feedFunc: func() ([]api.FeedEntry, error) {
			return nil, internal_errors.Unavailable(errors.New("connection refused"))
		},
		appliedFunc: func() ([]api.AppliedPost, error) {
			return []api.AppliedPost{{ApplicationId: "a1", Post: serverPost("p1", "Robotics", time.Hour, "u2")}}, nil
		},
	}
	res, err := newLoader(pending.NewMemory()).Load(context.Background(), src, viewer)
	require.NoError(t, err)
	assert.Equal(t, []string{MsgFeedUnavailable}, res.Errors)
	assert.Len(t, res.Applied, 1)
}

func TestLoader_NoScopeSkipsPending(t *testing.T) {
	res, err := newLoader(pending.NewMemory()).Load(context.Background(), &fakeSource{}, domain.User{Id: "anon"})
	require.NoError(t, err)
	assert.Empty(t, res.Feed)
}

func TestLoader_CancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := newLoader(pending.NewMemory()).Load(ctx, &fakeSource{}, viewer)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestLoader_LoadEvents(t *testing.T) {
	ctx := context.Background()
	store := pending.NewMemory()
	scope, err := pending.ScopeFor(viewer)
	require.NoError(t, err)
	item, err := domain.NewPendingItem(domain.PendingEvents, api.CreateEventRequest{
		Title: "HackMIT", Category: domain.CategoryHackathon, Date: "2026-04-01",
	}, "k1", now)
	require.NoError(t, err)
	_, err = pending.Add(ctx, store, scope, item)
	require.NoError(t, err)

	src := &fakeSource{
		eventsFunc: func(category string) ([]domain.Event, error) {
			assert.Equal(t, domain.CategoryHackathon, category)
			return []domain.Event{{Id: "e1", Title: "HackMIT", Category: domain.CategoryHackathon, Date: "2026-04-01"}}, nil
		},
	}
	res, err := newLoader(store).LoadEvents(ctx, src, viewer, domain.CategoryHackathon)
	require.NoError(t, err)
	require.Len(t, res.Events, 1)
	assert.False(t, res.Events[0].Pending)

	left, err := store.List(ctx, scope, domain.PendingEvents)
	require.NoError(t, err)
	assert.Empty(t, left)
}

func TestView_MarkAppliedReturnsNewSnapshot(t *testing.T) {
	post := serverPost("p1", "Robotics", time.Hour, "u2")
	src := &fakeSource{
		feedFunc: func() ([]api.FeedEntry, error) { return []api.FeedEntry{{Post: post}}, nil },
	}
	guard := &testGuard{}
	v := NewView(newLoader(pending.NewMemory()), src, viewer, guard)

	before, err := v.Refresh(context.Background())
	require.NoError(t, err)
	require.Equal(t, lifecycle.LabelApply, before.Feed[0].Button.Label)

	after, err := v.MarkApplied(v.Begin(), "p1", api.AppliedPost{ApplicationId: "a1"})
	require.NoError(t, err)

	assert.Equal(t, lifecycle.LabelApply, before.Feed[0].Button.Label, "old snapshot untouched")
	assert.False(t, before.Feed[0].HasApplied)
	assert.True(t, after.Feed[0].HasApplied)
	assert.Equal(t, lifecycle.LabelApplied, after.Feed[0].Button.Label)
	require.Len(t, after.Applied, 1)
	assert.Equal(t, "Robotics", after.Applied[0].Post.Title)
	assert.Equal(t, domain.ApplicationPending, after.Applied[0].ApplicationStatus)
	assert.Equal(t, after, v.Snapshot())
}

func TestView_StaleCompletionDropped(t *testing.T) {
	guard := &testGuard{}
	v := NewView(newLoader(pending.NewMemory()), &fakeSource{
		feedFunc: func() ([]api.FeedEntry, error) {
			return []api.FeedEntry{{Post: serverPost("p1", "Robotics", time.Hour, "u2")}}, nil
		},
	}, viewer, guard)

	token := v.Begin()
	guard.end()
	_, err := v.MarkApplied(token, "p1", api.AppliedPost{})
	assert.ErrorIs(t, err, ErrStale)
	assert.Empty(t, v.Snapshot().Applied)
}

func TestView_ReplacePending(t *testing.T) {
	ctx := context.Background()
	store := pending.NewMemory()
	scope, err := pending.ScopeFor(viewer)
	require.NoError(t, err)
	item := pendingPost(t, "AI Project", now)
	_, err = pending.Add(ctx, store, scope, item)
	require.NoError(t, err)

	v := NewView(newLoader(store), &fakeSource{}, viewer, &testGuard{})
	_, err = v.Refresh(ctx)
	require.NoError(t, err)

	server := serverPost("p9", "AI Project", 0, "")
	res, err := v.ReplacePending(v.Begin(), item.LocalId, server)
	require.NoError(t, err)

	require.Len(t, res.Mine, 1)
	assert.Equal(t, "p9", res.Mine[0].Post.Id)
	assert.False(t, res.Mine[0].Pending)
	assert.Equal(t, lifecycle.LabelManage, res.Mine[0].Button.Label)

	t.Run("server copy already listed", func(t *testing.T) {
		src := &fakeSource{
			mineFunc: func() ([]api.FeedEntry, error) {
				// different day so the reconciler keeps both
				return []api.FeedEntry{{Post: serverPost("p9", "AI Project", 48*time.Hour, viewer.Id)}}, nil
			},
		}
		store := pending.NewMemory()
		_, err := pending.Add(ctx, store, scope, item)
		require.NoError(t, err)
		v := NewView(newLoader(store), src, viewer, &testGuard{})
		_, err = v.Refresh(ctx)
		require.NoError(t, err)
		require.Len(t, v.Snapshot().Mine, 2)

		res, err := v.ReplacePending(v.Begin(), item.LocalId, server)
		require.NoError(t, err)
		assert.Len(t, res.Mine, 1)
	})
}

func TestView_RemovePost(t *testing.T) {
	post := serverPost("p1", "Robotics", time.Hour, viewer.Id)
	src := &fakeSource{
		feedFunc: func() ([]api.FeedEntry, error) { return []api.FeedEntry{{Post: post}}, nil },
		mineFunc: func() ([]api.FeedEntry, error) { return []api.FeedEntry{{Post: post}}, nil },
	}
	v := NewView(newLoader(pending.NewMemory()), src, viewer, &testGuard{})
	_, err := v.Refresh(context.Background())
	require.NoError(t, err)

	res, err := v.RemovePost(v.Begin(), "p1")
	require.NoError(t, err)
	assert.Empty(t, res.Feed)
	assert.Empty(t, res.Mine)
}

func TestView_OverlappingRefreshes(t *testing.T) {
	entered := make(chan struct{})
	release := make(chan struct{})
	var calls atomic.Int32
	src := &fakeSource{
		feedFunc: func() ([]api.FeedEntry, error) {
			if calls.Add(1) == 1 {
				close(entered)
				<-release
				return []api.FeedEntry{{Post: serverPost("p-old", "old", time.Hour, "u2")}}, nil
			}
			return []api.FeedEntry{{Post: serverPost("p-new", "new", time.Hour, "u2")}}, nil
		},
	}
	v := NewView(newLoader(pending.NewMemory()), src, viewer, &testGuard{})

	done := make(chan Result, 1)
	go func() {
		res, err := v.Refresh(context.Background())
		assert.NoError(t, err)
		done <- res
	}()
	<-entered

	res, err := v.Refresh(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"new"}, titles(res.Feed))

	close(release)
	late := <-done
	assert.Equal(t, []string{"new"}, titles(late.Feed), "a superseded refresh returns the current snapshot")
	assert.Equal(t, []string{"new"}, titles(v.Snapshot().Feed))
}

func TestView_MutationsDuringRefreshSurvive(t *testing.T) {
	entered := make(chan struct{})
	release := make(chan struct{})
	var once sync.Once
	feedPosts := []api.FeedEntry{
		{Post: serverPost("p1", "Robotics", time.Hour, "u2")},
		{Post: serverPost("p2", "AI Lab", time.Hour, "u3")},
	}
	var blocking atomic.Bool
	src := &fakeSource{
		feedFunc: func() ([]api.FeedEntry, error) {
			if blocking.Load() {
				once.Do(func() { close(entered) })
				<-release
			}
			return feedPosts, nil
		},
	}
	v := NewView(newLoader(pending.NewMemory()), src, viewer, &testGuard{})
	_, err := v.Refresh(context.Background())
	require.NoError(t, err)

	blocking.Store(true)
	done := make(chan Result, 1)
	go func() {
		res, err := v.Refresh(context.Background())
		assert.NoError(t, err)
		done <- res
	}()
	<-entered

	// the server answered before these landed
	_, err = v.MarkApplied(v.Begin(), "p1", api.AppliedPost{ApplicationId: "a1"})
	require.NoError(t, err)
	_, err = v.RemovePost(v.Begin(), "p2")
	require.NoError(t, err)

	close(release)
	res := <-done
	assert.Equal(t, []string{"Robotics"}, titles(res.Feed))
	assert.True(t, res.Feed[0].HasApplied)
	require.Len(t, res.Applied, 1)
	assert.Equal(t, res, v.Snapshot())

	// nothing is replayed once no refresh is in flight
	blocking.Store(false)
	res, err = v.Refresh(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"Robotics", "AI Lab"}, titles(res.Feed))
}

func TestView_AddPending(t *testing.T) {
	src := &fakeSource{
		feedFunc: func() ([]api.FeedEntry, error) {
			return []api.FeedEntry{{Post: serverPost("p1", "Robotics", time.Hour, "u2")}}, nil
		},
	}
	v := NewView(newLoader(pending.NewMemory()), src, viewer, &testGuard{})
	before, err := v.Refresh(context.Background())
	require.NoError(t, err)

	item := pendingPost(t, "AI Project", now)
	res, err := v.AddPending(v.Begin(), item)
	require.NoError(t, err)

	assert.Equal(t, []string{"AI Project", "Robotics"}, titles(res.Feed))
	require.Len(t, res.Mine, 1)
	assert.True(t, res.Mine[0].Pending)
	assert.Equal(t, item.LocalId, res.Mine[0].Post.Id)
	assert.Equal(t, domain.PostActive, res.Mine[0].State)
	assert.Empty(t, before.Mine, "old snapshot untouched")

	again, err := v.AddPending(v.Begin(), item)
	require.NoError(t, err)
	assert.Len(t, again.Mine, 1, "adding twice shows it once")

	t.Run("events are not part of the view", func(t *testing.T) {
		ev, err := domain.NewPendingItem(domain.PendingEvents, api.CreateEventRequest{Title: "HackMIT", Date: "2026-04-01"}, "k", now)
		require.NoError(t, err)
		res, err := v.AddPending(v.Begin(), ev)
		require.NoError(t, err)
		assert.Len(t, res.Mine, 1)
	})

	t.Run("stale", func(t *testing.T) {
		guard := &testGuard{}
		v := NewView(newLoader(pending.NewMemory()), src, viewer, guard)
		token := v.Begin()
		guard.end()
		_, err := v.AddPending(token, item)
		assert.ErrorIs(t, err, ErrStale)
	})
}
