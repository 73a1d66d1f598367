package apiclient

import (
	"context"
	"fmt"
	"net/http"
	"net/url"

	"github.com/studcollab/looped/shared/api"
	"github.com/studcollab/looped/shared/domain"
)

// Events lists events; an empty category lists all of them.
func (c *APIClient) Events(ctx context.Context, category domain.EventCategory) ([]domain.Event, error) {
	path := "/api/events"
	if category != "" {
		path += "?" + url.Values{"category": {category}}.Encode()
	}
	var events []domain.Event
	if err := c.do(ctx, http.MethodGet, path, nil, &events); err != nil {
		return nil, err
	}
	return events, nil
}

func (c *APIClient) CreateEvent(ctx context.Context, req api.CreateEventRequest, idempotencyKey string) (domain.Event, error) {
	var event domain.Event
	if err := c.do(ctx, http.MethodPost, "/api/events", req, &event, withIdempotencyKey(idempotencyKey)); err != nil {
		return domain.Event{}, err
	}
	return event, nil
}

// === Social Post Methods ===

func (c *APIClient) SocialPosts(ctx context.Context) ([]domain.SocialPost, error) {
	var posts []domain.SocialPost
	if err := c.do(ctx, http.MethodGet, "/api/posts/social", nil, &posts); err != nil {
		return nil, err
	}
	return posts, nil
}

func (c *APIClient) SocialPost(ctx context.Context, id string) (domain.SocialPost, error) {
	var post domain.SocialPost
	if err := c.do(ctx, http.MethodGet, fmt.Sprintf("/api/posts/%s", url.PathEscape(id)), nil, &post); err != nil {
		return domain.SocialPost{}, err
	}
	return post, nil
}

func (c *APIClient) CreateSocialPost(ctx context.Context, post domain.SocialPost) (domain.SocialPost, error) {
	var created domain.SocialPost
	if err := c.do(ctx, http.MethodPost, "/api/posts", post, &created); err != nil {
		return domain.SocialPost{}, err
	}
	return created, nil
}

// === Pod Methods ===

func (c *APIClient) Pods(ctx context.Context) ([]domain.CollabPod, error) {
	var pods []domain.CollabPod
	if err := c.do(ctx, http.MethodGet, "/api/pods", nil, &pods); err != nil {
		return nil, err
	}
	return pods, nil
}

func (c *APIClient) Pod(ctx context.Context, id domain.PodId) (domain.CollabPod, error) {
	var pod domain.CollabPod
	if err := c.do(ctx, http.MethodGet, fmt.Sprintf("/api/pods/%s", url.PathEscape(id)), nil, &pod); err != nil {
		return domain.CollabPod{}, err
	}
	return pod, nil
}
