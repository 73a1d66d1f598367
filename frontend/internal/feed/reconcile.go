// Package feed merges the server feeds with locally pending posts into the
// lists a renderer displays.
package feed

import (
	"time"

	"github.com/studcollab/looped/frontend/internal/lifecycle"
	"github.com/studcollab/looped/shared/api"
	"github.com/studcollab/looped/shared/domain"
	"github.com/studcollab/looped/shared/logger"
)

const (
	TabAll     = "all"
	TabMine    = "my-posts"
	TabApplied = "applied-posts"

	MsgFeedUnavailable    = "Could not fetch posts."
	MsgMineUnavailable    = "Could not fetch your posts."
	MsgAppliedUnavailable = "Could not fetch applied posts."
)

func Tabs() []string {
	return []string{TabAll, TabMine, TabApplied}
}

// Entry is one displayable post with its derived lifecycle data.
type Entry struct {
	Post              domain.TeamPost
	HasApplied        bool
	HostId            domain.UserId
	HoursElapsed      float64
	HoursRemaining    float64
	State             domain.PostState
	Button            lifecycle.ButtonState
	Pending           bool
	ApplicationId     domain.ApplicationId
	ApplicationStatus domain.ApplicationStatus
}

// Sources is everything one refresh fetched. A non-nil *Err marks that slice
// as failed; its data is ignored.
type Sources struct {
	Feed    []api.FeedEntry
	Mine    []api.FeedEntry
	Applied []api.AppliedPost
	Pending []domain.PendingItem

	FeedErr    error
	MineErr    error
	AppliedErr error
}

type Result struct {
	Feed    []Entry
	Mine    []Entry
	Applied []Entry
	// Absorbed lists pending items the server already has; they are not
	// displayed and should be dropped from the pending store.
	Absorbed []domain.LocalId
	Errors   []string
}

// Tab returns the slice backing a tab; unknown tabs fall back to the feed.
func (r Result) Tab(tab string) []Entry {
	switch tab {
	case TabMine:
		return r.Mine
	case TabApplied:
		return r.Applied
	default:
		return r.Feed
	}
}

func (r Result) Counts() map[string]int {
	return map[string]int{
		TabAll:     len(r.Feed),
		TabMine:    len(r.Mine),
		TabApplied: len(r.Applied),
	}
}

type Reconciler struct {
	Windows lifecycle.Windows
}

// Reconcile with the default lifecycle windows.
func Reconcile(in Sources, now time.Time, viewer domain.User) Result {
	return Reconciler{Windows: lifecycle.DefaultWindows()}.Reconcile(in, now, viewer)
}

// Reconcile never fails: a failed source degrades to its pending-only (or
// empty) slice plus a message in Result.Errors.
func (rc Reconciler) Reconcile(in Sources, now time.Time, viewer domain.User) Result {
	var res Result

	var feed, mine []api.FeedEntry
	if in.FeedErr == nil {
		feed = in.Feed
	} else {
		res.Errors = append(res.Errors, MsgFeedUnavailable)
	}
	if in.MineErr == nil {
		mine = in.Mine
	} else {
		res.Errors = append(res.Errors, MsgMineUnavailable)
	}

	// server keys across both slices: once the server has it anywhere, the
	// pending copy is redundant
	serverKeys := make(map[domain.DedupKey]struct{})
	for _, list := range [][]api.FeedEntry{feed, mine} {
		for _, e := range list {
			if e.Post.IsProvisional() {
				continue
			}
			if k := e.Post.DedupKey(); k.Usable() {
				serverKeys[k] = struct{}{}
			}
		}
	}

	var pendingEntries []api.FeedEntry
	for _, it := range in.Pending {
		if it.Kind != domain.PendingTeamPosts {
			continue
		}
		post, err := it.TeamPost(viewer.AsAuthor())
		if err != nil {
			logger.Log.Warn("skipping undecodable pending post", "component", "feed", "local_id", it.LocalId, "error", err)
			continue
		}
		if _, ok := serverKeys[post.DedupKey()]; ok {
			res.Absorbed = append(res.Absorbed, it.LocalId)
			continue
		}
		host := post.Author.Id
		if host == "" {
			host = viewer.Id
		}
		pendingEntries = append(pendingEntries, api.FeedEntry{Post: post, HostId: host})
	}

	applied := make(map[domain.PostId]api.AppliedPost)
	if in.AppliedErr == nil {
		for _, a := range in.Applied {
			applied[a.Post.Id] = a
		}
	} else {
		res.Errors = append(res.Errors, MsgAppliedUnavailable)
	}

	res.Feed = rc.entries(pendingEntries, feed, applied, now, viewer)
	res.Mine = rc.entries(pendingEntries, mine, applied, now, viewer)
	if in.AppliedErr == nil {
		res.Applied = rc.appliedEntries(in.Applied, now, viewer)
	}
	return res
}

// entries prepends pending to server and derives lifecycle fields. Server
// items repeated in one response are shown once.
func (rc Reconciler) entries(pending, server []api.FeedEntry, applied map[domain.PostId]api.AppliedPost, now time.Time, viewer domain.User) []Entry {
	out := make([]Entry, 0, len(pending)+len(server))
	for _, e := range pending {
		out = append(out, rc.entry(e, true, now, viewer))
	}
	seen := make(map[domain.PostId]struct{}, len(server))
	for _, e := range server {
		if e.Post.Id != "" {
			if _, dup := seen[e.Post.Id]; dup {
				continue
			}
			seen[e.Post.Id] = struct{}{}
		}
		entry := rc.entry(e, false, now, viewer)
		if a, ok := applied[e.Post.Id]; ok && !entry.HasApplied {
			entry = withApplication(entry, a)
			entry.Button = lifecycle.Button(true, entry.State, isOwn(entry, viewer))
		}
		out = append(out, entry)
	}
	return out
}

func (rc Reconciler) entry(e api.FeedEntry, pending bool, now time.Time, viewer domain.User) Entry {
	host := e.HostId
	if host == "" {
		host = e.Post.Author.Id
	}
	entry := Entry{
		Post:       e.Post,
		HasApplied: !pending && (e.HasApplied || (viewer.Id != "" && e.Post.HasApplicant(viewer.Id))),
		HostId:     host,
		Pending:    pending,
	}
	rc.derive(&entry, e.HoursElapsed, now)
	entry.Button = lifecycle.Button(entry.HasApplied, entry.State, isOwn(entry, viewer))
	return entry
}

// derive fills the lifecycle fields. A pending post is brand new by
// definition; a server post with no usable createdAt falls back to the
// server's own elapsed hours for display only.
func (rc Reconciler) derive(e *Entry, serverHours float64, now time.Time) {
	created := e.Post.CreatedAt.Time
	if e.Pending {
		e.HoursElapsed = 0
		e.State = domain.PostActive
		e.HoursRemaining = rc.Windows.HoursRemaining(time.Time{}, now)
		return
	}
	e.State = rc.Windows.ResolveState(created, now)
	e.HoursElapsed = lifecycle.HoursElapsed(created, now)
	if created.IsZero() && serverHours > 0 {
		e.HoursElapsed = serverHours
	}
	e.HoursRemaining = rc.Windows.HoursRemaining(created, now)
}

func (rc Reconciler) appliedEntries(applied []api.AppliedPost, now time.Time, viewer domain.User) []Entry {
	out := make([]Entry, 0, len(applied))
	seen := make(map[domain.PostId]struct{}, len(applied))
	for _, a := range applied {
		if _, dup := seen[a.Post.Id]; dup && a.Post.Id != "" {
			continue
		}
		seen[a.Post.Id] = struct{}{}
		entry := Entry{Post: a.Post, HostId: a.Post.Author.Id}
		rc.derive(&entry, 0, now)
		entry = withApplication(entry, a)
		entry.Button = lifecycle.Button(true, entry.State, isOwn(entry, viewer))
		out = append(out, entry)
	}
	return out
}

func withApplication(e Entry, a api.AppliedPost) Entry {
	e.HasApplied = true
	e.ApplicationId = a.ApplicationId
	if e.ApplicationId == "" && a.Application != nil {
		e.ApplicationId = a.Application.Id
	}
	e.ApplicationStatus = a.Status()
	return e
}

func isOwn(e Entry, viewer domain.User) bool {
	if viewer.Id == "" {
		return false
	}
	return e.Pending || e.HostId == viewer.Id || e.Post.Author.Id == viewer.Id
}
