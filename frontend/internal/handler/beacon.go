package handler

import (
	"net/http"
	"slices"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/studcollab/looped/frontend/internal/feed"
	"github.com/studcollab/looped/frontend/internal/workflow"
	"github.com/studcollab/looped/shared/api"
	"github.com/studcollab/looped/shared/utils"
)

// GetBeacon answers with the tab's reconciled entries. Sources are fetched
// only for the session's first view; later reads use the cached snapshot.
func (h *Handler) GetBeacon(w http.ResponseWriter, r *http.Request) {
	tab := r.URL.Query().Get("tab")
	if tab == "" {
		tab = feed.TabAll
	}
	if !slices.Contains(feed.Tabs(), tab) {
		http.Error(w, "invalid tab: must be one of "+strings.Join(feed.Tabs(), ", "), http.StatusBadRequest)
		return
	}

	s, ok := h.current(w, r)
	if !ok {
		return
	}
	res := s.View.Snapshot()
	if !s.View.Loaded() {
		var err error
		if res, err = s.View.Refresh(r.Context()); err != nil {
			utils.WriteErrorAndStatusCode(w, err)
			return
		}
	}
	utils.WriteJSON(w, http.StatusOK, h.beaconResponse(res, feed.Filter{Tab: tab, Query: r.URL.Query().Get("q")}))
}

func (h *Handler) RefreshBeacon(w http.ResponseWriter, r *http.Request) {
	s, ok := h.current(w, r)
	if !ok {
		return
	}
	res, err := s.View.Refresh(r.Context())
	if err != nil {
		utils.WriteErrorAndStatusCode(w, err)
		return
	}
	utils.WriteJSON(w, http.StatusOK, h.beaconResponse(res, feed.Filter{Tab: feed.TabAll}))
}

// CreateTeamPost answers 201 when the backend took the post and 202 when it
// was saved locally for a later sync.
func (h *Handler) CreateTeamPost(w http.ResponseWriter, r *http.Request) {
	var body api.CreateTeamPostRequest
	if err := utils.Decode(r.Body, &body); err != nil {
		utils.WriteErrorAndStatusCode(w, err)
		return
	}
	s, ok := h.current(w, r)
	if !ok {
		return
	}
	outcome, err := s.Workflow.CreateTeamPost(r.Context(), body)
	if err != nil {
		utils.WriteErrorAndStatusCode(w, err)
		return
	}
	writeOutcome(w, outcome)
}

func (h *Handler) DeletePost(w http.ResponseWriter, r *http.Request) {
	postId := chi.URLParam(r, "postID")
	s, ok := h.current(w, r)
	if !ok {
		return
	}
	notice, err := s.Workflow.DeletePost(r.Context(), postId)
	if err != nil {
		utils.WriteErrorAndStatusCode(w, err)
		return
	}
	utils.WriteJSON(w, http.StatusOK, api.NoticeResponse{Notice: notice})
}

func (h *Handler) Apply(w http.ResponseWriter, r *http.Request) {
	postId := chi.URLParam(r, "postID")
	var body api.ApplyRequest
	if err := utils.Decode(r.Body, &body); err != nil {
		utils.WriteErrorAndStatusCode(w, err)
		return
	}
	s, ok := h.current(w, r)
	if !ok {
		return
	}
	app, err := s.Workflow.Apply(r.Context(), postId, body.Message, body.RelevantSkills)
	if err != nil {
		utils.WriteErrorAndStatusCode(w, err)
		return
	}
	utils.WriteJSON(w, http.StatusCreated, api.ApplyResponse{Application: app, Notice: workflow.NoticeApplied})
}

func (h *Handler) Accept(w http.ResponseWriter, r *http.Request) {
	applicationId := chi.URLParam(r, "applicationID")
	var body api.AcceptRequest
	if err := utils.DecodeValidate(r.Body, &body); err != nil {
		utils.WriteErrorAndStatusCode(w, err)
		return
	}
	s, ok := h.current(w, r)
	if !ok {
		return
	}
	if err := s.Workflow.Accept(r.Context(), applicationId, body.PostId); err != nil {
		utils.WriteErrorAndStatusCode(w, err)
		return
	}
	utils.WriteJSON(w, http.StatusOK, api.NoticeResponse{Notice: workflow.NoticeAccepted})
}

func (h *Handler) Reject(w http.ResponseWriter, r *http.Request) {
	applicationId := chi.URLParam(r, "applicationID")
	var body api.RejectRequest
	if err := utils.Decode(r.Body, &body); err != nil {
		utils.WriteErrorAndStatusCode(w, err)
		return
	}
	s, ok := h.current(w, r)
	if !ok {
		return
	}
	if err := s.Workflow.Reject(r.Context(), applicationId, body.PostId, body.Reason, body.Note); err != nil {
		utils.WriteErrorAndStatusCode(w, err)
		return
	}
	utils.WriteJSON(w, http.StatusOK, api.NoticeResponse{Notice: workflow.NoticeRejected})
}

func (h *Handler) beaconResponse(res feed.Result, f feed.Filter) api.BeaconResponse {
	list := feed.Project(res, f)
	entries := make([]api.DisplayEntry, 0, len(list))
	for _, e := range list {
		entries = append(entries, h.displayEntry(e))
	}
	return api.BeaconResponse{
		Tab:     f.Tab,
		Query:   strings.TrimSpace(f.Query),
		Entries: entries,
		Counts:  res.Counts(),
		Errors:  res.Errors,
	}
}

func (h *Handler) displayEntry(e feed.Entry) api.DisplayEntry {
	return api.DisplayEntry{
		Post:            e.Post,
		DescriptionHTML: h.text.Render(e.Post.Description),
		HasApplied:      e.HasApplied,
		HostId:          e.HostId,
		HoursElapsed:    e.HoursElapsed,
		HoursRemaining:  e.HoursRemaining,
		State:           e.State,
		Button: api.ButtonResponse{
			Label:   e.Button.Label,
			Enabled: e.Button.Enabled,
			Hidden:  e.Button.Hidden,
		},
		Pending:           e.Pending,
		ApplicationId:     e.ApplicationId,
		ApplicationStatus: string(e.ApplicationStatus),
	}
}

func writeOutcome(w http.ResponseWriter, o workflow.Outcome) {
	status := http.StatusCreated
	if o.Pending {
		status = http.StatusAccepted
	}
	utils.WriteJSON(w, status, o.Response())
}
