package feed

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/studcollab/looped/frontend/internal/lifecycle"
	"github.com/studcollab/looped/shared/api"
	"github.com/studcollab/looped/shared/domain"
	"github.com/studcollab/looped/shared/logger"
)

// ErrStale is returned when a completion arrives after the session that
// started it has ended. The completion is dropped.
var ErrStale = errors.New("session changed before completion")

// Guard identifies the session generation an async operation started under.
type Guard interface {
	Token() uint64
	Valid(token uint64) bool
}

// View holds the current reconciled snapshot for one session. Snapshots are
// never modified in place; every change swaps in a new Result.
//
// Refreshes may overlap. A refresh that completes after a newer one has been
// applied is dropped, and mutations made while a refresh was in flight are
// replayed on top of its result.
type View struct {
	loader *Loader
	src    Source
	user   domain.User
	guard  Guard

	mu          sync.RWMutex
	snap        Result
	loaded      bool
	seq         uint64            // last mutation
	refreshes   uint64            // refreshes started
	lastRefresh uint64            // newest refresh swapped in
	inflight    map[uint64]uint64 // refresh -> seq when it started
	log         []mutation        // mutations made while a refresh is in flight
}

type mutation struct {
	seq uint64
	fn  func(Result) Result
}

func NewView(loader *Loader, src Source, user domain.User, guard Guard) *View {
	return &View{loader: loader, src: src, user: user, guard: guard, inflight: make(map[uint64]uint64)}
}

// Begin returns the token to hand back to the mutating methods.
func (v *View) Begin() uint64 {
	return v.guard.Token()
}

func (v *View) Snapshot() Result {
	v.mu.RLock()
	defer v.mu.RUnlock()
	return v.snap
}

// Loaded reports whether a refresh has completed for this view.
func (v *View) Loaded() bool {
	v.mu.RLock()
	defer v.mu.RUnlock()
	return v.loaded
}

// Refresh reloads every source. When a newer refresh has already been
// applied the result is discarded and the current snapshot returned.
func (v *View) Refresh(ctx context.Context) (Result, error) {
	token := v.guard.Token()

	v.mu.Lock()
	v.refreshes++
	id := v.refreshes
	v.inflight[id] = v.seq
	v.mu.Unlock()

	res, err := v.loader.Load(ctx, v.src, v.user)

	v.mu.Lock()
	defer v.mu.Unlock()
	since := v.inflight[id]
	delete(v.inflight, id)
	defer v.trimLog()

	if err != nil {
		return Result{}, err
	}
	if !v.guard.Valid(token) {
		logger.Log.Debug("dropping stale completion", "component", "feed", "op", "refresh", "user_id", v.user.Id)
		return Result{}, ErrStale
	}
	if id < v.lastRefresh {
		logger.Log.Debug("dropping superseded refresh", "component", "feed", "user_id", v.user.Id)
		return v.snap, nil
	}
	for _, m := range v.log {
		if m.seq > since {
			res = m.fn(res)
		}
	}
	v.snap = res
	v.loaded = true
	v.lastRefresh = id
	return v.snap, nil
}

// trimLog drops mutations no in-flight refresh needs. Callers hold mu.
func (v *View) trimLog() {
	if len(v.inflight) == 0 {
		v.log = nil
		return
	}
	oldest := v.seq
	for _, since := range v.inflight {
		oldest = min(oldest, since)
	}
	kept := v.log[:0]
	for _, m := range v.log {
		if m.seq > oldest {
			kept = append(kept, m)
		}
	}
	v.log = kept
}

// AddPending shows a locally saved team post at the top of the feed and of
// My Posts until it syncs. Other kinds are not part of the view.
func (v *View) AddPending(token uint64, item domain.PendingItem) (Result, error) {
	if item.Kind != domain.PendingTeamPosts {
		return v.Snapshot(), nil
	}
	post, err := item.TeamPost(v.user.AsAuthor())
	if err != nil {
		return Result{}, err
	}
	return v.prepend(token, "add pending", post, true)
}

// AddCreated shows a post the server just created in the feed and in My
// Posts.
func (v *View) AddCreated(token uint64, post domain.TeamPost) (Result, error) {
	if post.Author.Id == "" {
		post.Author = v.user.AsAuthor()
	}
	return v.prepend(token, "add created", post, false)
}

func (v *View) prepend(token uint64, op string, post domain.TeamPost, pending bool) (Result, error) {
	host := post.Author.Id
	if host == "" {
		host = v.user.Id
	}
	e := v.loader.Reconciler.entry(api.FeedEntry{Post: post, HostId: host}, pending, v.loader.Clock.Now(), v.user)
	key := post.DedupKey()
	return v.swap(token, op, func(old Result) Result {
		next := old
		next.Feed = prependEntry(old.Feed, e, pending, key)
		next.Mine = prependEntry(old.Mine, e, pending, key)
		return next
	})
}

// MarkApplied records a successful application in a new snapshot.
func (v *View) MarkApplied(token uint64, postId domain.PostId, applied api.AppliedPost) (Result, error) {
	now := v.loader.Clock.Now()
	return v.swap(token, "mark applied", func(old Result) Result {
		next := old
		next.Feed = mapEntries(old.Feed, postId, func(e Entry) Entry {
			return v.applied(e, applied)
		})
		next.Mine = mapEntries(old.Mine, postId, func(e Entry) Entry {
			return v.applied(e, applied)
		})

		if applied.Post.Id == "" {
			applied.Post = findPost(old, postId)
		}
		rest := make([]Entry, 0, len(old.Applied)+1)
		for _, e := range old.Applied {
			if e.Post.Id != postId {
				rest = append(rest, e)
			}
		}
		next.Applied = append(v.loader.Reconciler.appliedEntries([]api.AppliedPost{applied}, now, v.user), rest...)
		return next
	})
}

// ReplacePending swaps the placeholder for localId with the server's post.
// If the server post is already listed, the placeholder is just dropped.
func (v *View) ReplacePending(token uint64, localId domain.LocalId, post domain.TeamPost) (Result, error) {
	now := v.loader.Clock.Now()
	return v.swap(token, "replace pending", func(old Result) Result {
		next := old
		next.Feed = v.replace(old.Feed, localId, post, now)
		next.Mine = v.replace(old.Mine, localId, post, now)
		return next
	})
}

// RemovePost drops postId from every tab.
func (v *View) RemovePost(token uint64, postId domain.PostId) (Result, error) {
	return v.swap(token, "remove post", func(old Result) Result {
		next := old
		next.Feed = without(old.Feed, postId)
		next.Mine = without(old.Mine, postId)
		next.Applied = without(old.Applied, postId)
		return next
	})
}

func (v *View) swap(token uint64, op string, fn func(Result) Result) (Result, error) {
	v.mu.Lock()
	defer v.mu.Unlock()
	if !v.guard.Valid(token) {
		logger.Log.Debug("dropping stale completion", "component", "feed", "op", op, "user_id", v.user.Id)
		return Result{}, ErrStale
	}
	v.seq++
	v.snap = fn(v.snap)
	if len(v.inflight) > 0 {
		v.log = append(v.log, mutation{seq: v.seq, fn: fn})
	}
	return v.snap, nil
}

func (v *View) applied(e Entry, a api.AppliedPost) Entry {
	e = withApplication(e, a)
	e.Button = lifecycle.Button(true, e.State, isOwn(e, v.user))
	return e
}

func (v *View) replace(list []Entry, localId domain.LocalId, post domain.TeamPost, now time.Time) []Entry {
	idx := -1
	present := false
	for i, e := range list {
		switch {
		case e.Pending && e.Post.Id == localId:
			idx = i
		case !e.Pending && post.Id != "" && e.Post.Id == post.Id:
			present = true
		}
	}
	if idx < 0 {
		return list
	}
	out := make([]Entry, 0, len(list))
	out = append(out, list[:idx]...)
	if !present {
		// the replacement is always the viewer's own post
		host := post.Author.Id
		if host == "" {
			host = v.user.Id
		}
		out = append(out, v.loader.Reconciler.entry(api.FeedEntry{Post: post, HostId: host}, false, now, v.user))
	}
	return append(out, list[idx+1:]...)
}

func mapEntries(list []Entry, postId domain.PostId, fn func(Entry) Entry) []Entry {
	out := make([]Entry, len(list))
	for i, e := range list {
		if e.Post.Id == postId && !e.Pending {
			e = fn(e)
		}
		out[i] = e
	}
	return out
}

// prependEntry puts e first unless the list already shows it. A pending
// entry also counts as shown when a server entry has the same dedup key.
func prependEntry(list []Entry, e Entry, pending bool, key domain.DedupKey) []Entry {
	for _, cur := range list {
		if cur.Post.Id == e.Post.Id {
			return list
		}
		if pending && !cur.Pending && key.Usable() && cur.Post.DedupKey() == key {
			return list
		}
	}
	out := make([]Entry, 0, len(list)+1)
	out = append(out, e)
	return append(out, list...)
}

func without(list []Entry, postId domain.PostId) []Entry {
	out := make([]Entry, 0, len(list))
	for _, e := range list {
		if e.Post.Id != postId {
			out = append(out, e)
		}
	}
	return out
}

func findPost(res Result, postId domain.PostId) domain.TeamPost {
	for _, list := range [][]Entry{res.Feed, res.Mine, res.Applied} {
		for _, e := range list {
			if e.Post.Id == postId {
				return e.Post
			}
		}
	}
	return domain.TeamPost{Id: postId}
}
