package apiclient

import (
	"context"
	"fmt"
	"net/http"
	"net/url"

	"github.com/studcollab/looped/shared/api"
	"github.com/studcollab/looped/shared/domain"
)

// === Beacon Methods ===

func (c *APIClient) BeaconFeed(ctx context.Context) ([]api.FeedEntry, error) {
	var feed []api.FeedEntry
	if err := c.do(ctx, http.MethodGet, "/api/beacon/feed", nil, &feed); err != nil {
		return nil, err
	}
	return feed, nil
}

func (c *APIClient) MyPosts(ctx context.Context) ([]api.FeedEntry, error) {
	var mine []api.FeedEntry
	if err := c.do(ctx, http.MethodGet, "/api/beacon/my-posts", nil, &mine); err != nil {
		return nil, err
	}
	return mine, nil
}

func (c *APIClient) AppliedPosts(ctx context.Context) ([]api.AppliedPost, error) {
	var applied []api.AppliedPost
	if err := c.do(ctx, http.MethodGet, "/api/beacon/applied-posts", nil, &applied); err != nil {
		return nil, err
	}
	return applied, nil
}

func (c *APIClient) Apply(ctx context.Context, postId domain.PostId, req api.ApplyRequest) (domain.Application, error) {
	var app domain.Application
	path := fmt.Sprintf("/api/beacon/apply/%s", url.PathEscape(postId))
	if err := c.do(ctx, http.MethodPost, path, req, &app); err != nil {
		return domain.Application{}, err
	}
	if app.PostId == "" {
		app.PostId = postId
	}
	if app.Status == "" {
		app.Status = domain.ApplicationPending
	}
	return app, nil
}

func (c *APIClient) Accept(ctx context.Context, applicationId domain.ApplicationId, postId domain.PostId) error {
	q := url.Values{"postId": {postId}}
	path := fmt.Sprintf("/api/beacon/application/%s/accept?%s", url.PathEscape(applicationId), q.Encode())
	return c.do(ctx, http.MethodPost, path, nil, nil)
}

// Reject always sends a note parameter, empty when there is none.
func (c *APIClient) Reject(ctx context.Context, applicationId domain.ApplicationId, postId domain.PostId, reason domain.RejectionReason, note string) error {
	q := url.Values{
		"postId": {postId},
		"reason": {string(reason)},
		"note":   {note},
	}
	path := fmt.Sprintf("/api/beacon/application/%s/reject?%s", url.PathEscape(applicationId), q.Encode())
	return c.do(ctx, http.MethodPost, path, nil, nil)
}

func (c *APIClient) DeleteMyPost(ctx context.Context, postId domain.PostId) error {
	path := fmt.Sprintf("/api/beacon/my-posts/%s", url.PathEscape(postId))
	return c.do(ctx, http.MethodDelete, path, nil, nil)
}

// === Team Post Methods ===

func (c *APIClient) CreateTeamPost(ctx context.Context, req api.CreateTeamPostRequest, idempotencyKey string) (domain.TeamPost, error) {
	var post domain.TeamPost
	if err := c.do(ctx, http.MethodPost, "/api/posts/team-finding", req, &post, withIdempotencyKey(idempotencyKey)); err != nil {
		return domain.TeamPost{}, err
	}
	return post, nil
}

func (c *APIClient) PostsForEvent(ctx context.Context, eventId domain.EventId) ([]domain.TeamPost, error) {
	var posts []domain.TeamPost
	path := fmt.Sprintf("/api/posts/event/%s", url.PathEscape(eventId))
	if err := c.do(ctx, http.MethodGet, path, nil, &posts); err != nil {
		return nil, err
	}
	return posts, nil
}
