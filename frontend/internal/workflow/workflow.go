// Package workflow implements the user actions on team posts: applying,
// accepting and rejecting applications, deleting posts and creating posts or
// events with a local fallback.
package workflow

import (
	"context"
	"errors"
	"strings"

	"github.com/google/uuid"
	"github.com/studcollab/looped/frontend/internal/feed"
	"github.com/studcollab/looped/frontend/internal/lifecycle"
	"github.com/studcollab/looped/frontend/internal/markdown"
	"github.com/studcollab/looped/frontend/internal/pending"
	"github.com/studcollab/looped/shared/api"
	"github.com/studcollab/looped/shared/domain"
	internal_errors "github.com/studcollab/looped/shared/errors"
	"github.com/studcollab/looped/shared/logger"
	"github.com/studcollab/looped/shared/middleware/metrics"
	"github.com/studcollab/looped/shared/validation"
)

const (
	MsgApplyFailed      = "Failed to apply to the team. Please try again later."
	MsgAcceptFailed     = "Error accepting applicant."
	MsgRejectFailed     = "Error rejecting applicant."
	MsgDeleteFailed     = "Error deleting post."
	MsgCreatePostFailed = "Error creating team post."
	MsgCreateEvtFailed  = "Error creating event."
	MsgNotHost          = "Only the host can manage this post."
	MsgNotSynced        = "This post has not been synced yet."
	MsgSaveFailed       = "Could not save your post locally."

	NoticeApplied       = "Application Submitted Successfully!"
	NoticeAccepted      = "User invited to Collab Pod!"
	NoticeRejected      = "Applicant rejected."
	NoticeDeleted       = "Post deleted."
	NoticePostCreated   = "Your team post has been created in Buddy Beacon!"
	NoticeEventCreated  = "Event created."
	NoticePostPending   = "Server unavailable. Your team post is saved locally and will sync when the server is reachable."
	NoticeEventPending  = "Server unavailable. Event saved locally and will sync when server is available."
	NoticePendingDelete = "Unsynced post removed."
)

type Backend interface {
	Apply(ctx context.Context, postId domain.PostId, req api.ApplyRequest) (domain.Application, error)
	Accept(ctx context.Context, applicationId domain.ApplicationId, postId domain.PostId) error
	Reject(ctx context.Context, applicationId domain.ApplicationId, postId domain.PostId, reason domain.RejectionReason, note string) error
	DeleteMyPost(ctx context.Context, postId domain.PostId) error
	CreateTeamPost(ctx context.Context, req api.CreateTeamPostRequest, idempotencyKey string) (domain.TeamPost, error)
	CreateEvent(ctx context.Context, req api.CreateEventRequest, idempotencyKey string) (domain.Event, error)
}

// Deps are the per-session collaborators. View may be nil, in which case
// no snapshot is updated and host checks are left to the server.
type Deps struct {
	User    domain.User
	Backend Backend
	Store   pending.Store
	View    *feed.View
	Clock   lifecycle.Clock
}

type Workflow struct {
	user    domain.User
	backend Backend
	store   pending.Store
	view    *feed.View
	clock   lifecycle.Clock
}

func New(d Deps) *Workflow {
	if d.Clock == nil {
		d.Clock = lifecycle.SystemClock
	}
	return &Workflow{user: d.User, backend: d.Backend, store: d.Store, view: d.View, clock: d.Clock}
}

// Outcome of a create. Pending is set when the backend was unreachable and
// the item went to the local store instead.
type Outcome struct {
	Pending bool
	LocalId domain.LocalId
	Post    *domain.TeamPost
	Event   *domain.Event
	Notice  string
}

func (o Outcome) Response() api.OutcomeResponse {
	resp := api.OutcomeResponse{Pending: o.Pending, LocalId: o.LocalId, Notice: o.Notice}
	switch {
	case o.Post != nil:
		resp.Id = o.Post.Id
	case o.Event != nil:
		resp.Id = o.Event.Id
	}
	return resp
}

// Apply validates the message before any network call and records the
// application in the view only once the server accepted it.
func (w *Workflow) Apply(ctx context.Context, postId domain.PostId, message string, relevantSkills domain.Skills) (domain.Application, error) {
	if domain.IsLocalId(postId) {
		return domain.Application{}, &internal_errors.ValidationError{Field: "postId", Message: MsgNotSynced}
	}
	req := api.ApplyRequest{
		Message:        markdown.Plain(message),
		RelevantSkills: domain.NewSkills(relevantSkills...),
	}
	if err := validation.Struct(req); err != nil {
		return domain.Application{}, err
	}

	token := w.begin()
	app, err := w.backend.Apply(ctx, postId, req)
	if err != nil {
		return domain.Application{}, w.fail("apply", MsgApplyFailed, err, "post_id", postId)
	}
	if app.PostId == "" {
		app.PostId = postId
	}

	if w.view != nil {
		applied := api.AppliedPost{ApplicationId: app.Id, ApplicationStatus: app.Status, Application: &app}
		if _, err := w.view.MarkApplied(token, postId, applied); err != nil && !errors.Is(err, feed.ErrStale) {
			logger.Log.Warn("failed to update view after apply", "component", "workflow", "post_id", postId, "error", err)
		}
	}
	logger.Log.Info("application submitted", "component", "workflow", "post_id", postId, "application_id", app.Id)
	return app, nil
}

// Accept succeeds or fails as a whole; no local state changes.
func (w *Workflow) Accept(ctx context.Context, applicationId domain.ApplicationId, postId domain.PostId) error {
	if strings.TrimSpace(applicationId) == "" {
		return &internal_errors.ValidationError{Field: "applicationId", Message: "applicationId is required"}
	}
	if err := validation.Struct(api.AcceptRequest{PostId: postId}); err != nil {
		return err
	}
	if err := w.checkHost(postId); err != nil {
		return err
	}
	if err := w.backend.Accept(ctx, applicationId, postId); err != nil {
		return w.fail("accept", MsgAcceptFailed, err, "application_id", applicationId)
	}
	logger.Log.Info("application accepted", "component", "workflow", "application_id", applicationId, "post_id", postId)
	return nil
}

// Reject requires a reason from the fixed set. The optional note is reduced
// to plain text.
func (w *Workflow) Reject(ctx context.Context, applicationId domain.ApplicationId, postId domain.PostId, reason string, note string) error {
	if strings.TrimSpace(applicationId) == "" {
		return &internal_errors.ValidationError{Field: "applicationId", Message: "applicationId is required"}
	}
	req := api.RejectRequest{
		PostId: postId,
		Reason: strings.TrimSpace(reason),
		Note:   markdown.Plain(note),
	}
	if err := validation.Struct(req); err != nil {
		return err
	}
	if err := w.checkHost(postId); err != nil {
		return err
	}
	if err := w.backend.Reject(ctx, applicationId, postId, domain.RejectionReason(req.Reason), req.Note); err != nil {
		return w.fail("reject", MsgRejectFailed, err, "application_id", applicationId)
	}
	logger.Log.Info("application rejected", "component", "workflow", "application_id", applicationId, "reason", req.Reason)
	return nil
}

// DeletePost removes an unsynced post from the local store; anything else
// is deleted on the server.
func (w *Workflow) DeletePost(ctx context.Context, postId domain.PostId) (string, error) {
	if strings.TrimSpace(postId) == "" {
		return "", &internal_errors.ValidationError{Field: "postId", Message: "postId is required"}
	}
	token := w.begin()

	if domain.IsLocalId(postId) {
		scope, err := pending.ScopeFor(w.user)
		if err != nil {
			return "", w.fail("delete", MsgDeleteFailed, err, "post_id", postId)
		}
		n, err := pending.Remove(ctx, w.store, scope, domain.PendingTeamPosts, postId)
		if err != nil {
			return "", w.fail("delete", MsgDeleteFailed, err, "post_id", postId)
		}
		if n == 0 {
			return "", &internal_errors.ErrorWithStatusCode{Message: "Post not found", StatusCode: 404}
		}
		w.removeFromView(token, postId)
		return NoticePendingDelete, nil
	}

	if err := w.checkHost(postId); err != nil {
		return "", err
	}
	if err := w.backend.DeleteMyPost(ctx, postId); err != nil {
		return "", w.fail("delete", MsgDeleteFailed, err, "post_id", postId)
	}
	w.removeFromView(token, postId)
	return NoticeDeleted, nil
}

// CreateTeamPost falls back to the pending store when the backend is
// unreachable or failing. A 4xx answer is returned to the caller.
func (w *Workflow) CreateTeamPost(ctx context.Context, req api.CreateTeamPostRequest) (Outcome, error) {
	req.Title = strings.TrimSpace(req.Title)
	req.Description = strings.TrimSpace(req.Description)
	req.RequiredSkills = domain.NewSkills(req.RequiredSkills...)
	req.ExtraSkills = domain.NewSkills(req.ExtraSkills...)
	if err := validation.Struct(req); err != nil {
		return Outcome{}, err
	}

	token := w.begin()
	key := uuid.NewString()
	post, err := w.backend.CreateTeamPost(ctx, req, key)
	if err == nil {
		logger.Log.Info("team post created", "component", "workflow", "post_id", post.Id)
		if w.view != nil {
			if _, err := w.view.AddCreated(token, post); err != nil && !errors.Is(err, feed.ErrStale) {
				logger.Log.Warn("failed to update view after create", "component", "workflow", "post_id", post.Id, "error", err)
			}
		}
		return Outcome{Post: &post, Notice: NoticePostCreated}, nil
	}
	if !internal_errors.IsRecoverable(err) {
		return Outcome{}, w.fail("create post", MsgCreatePostFailed, err, "title", req.Title)
	}
	return w.savePending(ctx, token, domain.PendingTeamPosts, req, key, NoticePostPending, err)
}

func (w *Workflow) CreateEvent(ctx context.Context, req api.CreateEventRequest) (Outcome, error) {
	req.Title = strings.TrimSpace(req.Title)
	req.Description = strings.TrimSpace(req.Description)
	req.RequiredSkills = domain.NewSkills(req.RequiredSkills...)
	if err := validation.Struct(req); err != nil {
		return Outcome{}, err
	}

	token := w.begin()
	key := uuid.NewString()
	ev, err := w.backend.CreateEvent(ctx, req, key)
	if err == nil {
		logger.Log.Info("event created", "component", "workflow", "event_id", ev.Id)
		return Outcome{Event: &ev, Notice: NoticeEventCreated}, nil
	}
	if !internal_errors.IsRecoverable(err) {
		return Outcome{}, w.fail("create event", MsgCreateEvtFailed, err, "title", req.Title)
	}
	return w.savePending(ctx, token, domain.PendingEvents, req, key, NoticeEventPending, err)
}

func (w *Workflow) savePending(ctx context.Context, token uint64, kind domain.PendingKind, payload any, key, notice string, cause error) (Outcome, error) {
	scope, err := pending.ScopeFor(w.user)
	if err != nil {
		return Outcome{}, w.fail("save pending", MsgSaveFailed, errors.Join(cause, err), "kind", kind)
	}
	item, err := domain.NewPendingItem(kind, payload, key, w.clock.Now())
	if err != nil {
		return Outcome{}, w.fail("save pending", MsgSaveFailed, err, "kind", kind)
	}
	item.LastError = cause.Error()
	// the request may have been cancelled; the item must still be stored
	item, err = pending.Add(context.WithoutCancel(ctx), w.store, scope, item)
	if err != nil {
		return Outcome{}, w.fail("save pending", MsgSaveFailed, err, "kind", kind)
	}

	if w.view != nil {
		if _, err := w.view.AddPending(token, item); err != nil && !errors.Is(err, feed.ErrStale) {
			logger.Log.Warn("failed to show pending item", "component", "workflow", "local_id", item.LocalId, "error", err)
		}
	}

	metrics.PendingFallbacks.WithLabelValues(string(kind)).Inc()
	logger.Log.Warn("backend unavailable, saved locally",
		"component", "workflow",
		"kind", kind,
		"local_id", item.LocalId,
		"error", cause,
	)
	return Outcome{Pending: true, LocalId: item.LocalId, Notice: notice}, nil
}

// checkHost rejects management of a post the cached view says belongs to
// someone else. Posts the view does not know are left to the server.
func (w *Workflow) checkHost(postId domain.PostId) error {
	if w.view == nil {
		return nil
	}
	snap := w.view.Snapshot()
	for _, list := range [][]feed.Entry{snap.Mine, snap.Feed} {
		for _, e := range list {
			if e.Post.Id != postId {
				continue
			}
			host := e.HostId
			if host == "" {
				host = e.Post.Author.Id
			}
			if host == "" || host == w.user.Id {
				return nil
			}
			return &internal_errors.ErrorWithStatusCode{Message: MsgNotHost, StatusCode: 403}
		}
	}
	return nil
}

func (w *Workflow) begin() uint64 {
	if w.view == nil {
		return 0
	}
	return w.view.Begin()
}

func (w *Workflow) removeFromView(token uint64, postId domain.PostId) {
	if w.view == nil {
		return
	}
	if _, err := w.view.RemovePost(token, postId); err != nil && !errors.Is(err, feed.ErrStale) {
		logger.Log.Warn("failed to update view after delete", "component", "workflow", "post_id", postId, "error", err)
	}
}

// fail logs err once and wraps it for the user. Validation errors pass
// through untouched.
func (w *Workflow) fail(op, msg string, err error, args ...any) error {
	if internal_errors.IsValidation(err) {
		return err
	}
	attrs := append([]any{"component", "workflow", "op", op, "user_id", w.user.Id, "error", err}, args...)
	logger.Log.Error("operation failed", attrs...)
	return &internal_errors.UserError{Message: msg, Err: err}
}
