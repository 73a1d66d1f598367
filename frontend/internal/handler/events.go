package handler

import (
	"net/http"

	"github.com/studcollab/looped/shared/api"
	"github.com/studcollab/looped/shared/domain"
	"github.com/studcollab/looped/shared/utils"
)

// GetEvents lists the events hub with the caller's pending events merged in.
func (h *Handler) GetEvents(w http.ResponseWriter, r *http.Request) {
	category := domain.CategoryFromFilter(r.URL.Query().Get("category"))
	s, ok := h.current(w, r)
	if !ok {
		return
	}
	res, err := s.Loader.LoadEvents(r.Context(), s.Client, s.User, category)
	if err != nil {
		utils.WriteErrorAndStatusCode(w, err)
		return
	}

	resp := api.EventsResponse{
		Category: category,
		Events:   make([]api.EventDisplay, 0, len(res.Events)),
		Errors:   res.Errors,
	}
	for _, e := range res.Events {
		resp.Events = append(resp.Events, api.EventDisplay{
			Event:           e.Event,
			DescriptionHTML: h.text.Render(e.Event.Description),
			Pending:         e.Pending,
		})
	}
	utils.WriteJSON(w, http.StatusOK, resp)
}

func (h *Handler) CreateEvent(w http.ResponseWriter, r *http.Request) {
	var body api.CreateEventRequest
	if err := utils.Decode(r.Body, &body); err != nil {
		utils.WriteErrorAndStatusCode(w, err)
		return
	}
	s, ok := h.current(w, r)
	if !ok {
		return
	}
	outcome, err := s.Workflow.CreateEvent(r.Context(), body)
	if err != nil {
		utils.WriteErrorAndStatusCode(w, err)
		return
	}
	writeOutcome(w, outcome)
}

// GetPending lists the caller's unsynced creations, newest first.
func (h *Handler) GetPending(w http.ResponseWriter, r *http.Request) {
	s, ok := h.current(w, r)
	if !ok {
		return
	}
	events, err := h.store.List(r.Context(), s.Scope, domain.PendingEvents)
	if err != nil {
		utils.WriteErrorAndStatusCode(w, err)
		return
	}
	posts, err := h.store.List(r.Context(), s.Scope, domain.PendingTeamPosts)
	if err != nil {
		utils.WriteErrorAndStatusCode(w, err)
		return
	}
	utils.WriteJSON(w, http.StatusOK, api.PendingResponse{
		Events:    nonNil(events),
		TeamPosts: nonNil(posts),
	})
}

func nonNil[T any](list []T) []T {
	if list == nil {
		return []T{}
	}
	return list
}
