package handler

import (
	"net/http"

	"github.com/studcollab/looped/shared/api"
	mw "github.com/studcollab/looped/shared/middleware"
	"github.com/studcollab/looped/shared/utils"
)

// StartSession takes the token from the body, the cookie or the
// Authorization header, in that order, and runs the session's first sync.
func (h *Handler) StartSession(w http.ResponseWriter, r *http.Request) {
	var body api.SessionRequest
	if r.ContentLength > 0 {
		if err := utils.Decode(r.Body, &body); err != nil {
			utils.WriteErrorAndStatusCode(w, err)
			return
		}
	}
	token := body.Token
	if token == "" {
		token = mw.TokenFromRequest(r)
	}
	if token == "" {
		http.Error(w, "Please sign-in", http.StatusUnauthorized)
		return
	}

	user, err := h.auth.Decode(token)
	if err != nil {
		utils.WriteErrorAndStatusCode(w, err)
		return
	}
	_, report, err := h.sessions.Start(r.Context(), user, token)
	if err != nil {
		utils.WriteErrorAndStatusCode(w, err)
		return
	}

	h.auth.SetCookie(w, token)
	summary := report.Response()
	utils.WriteJSON(w, http.StatusOK, api.SessionResponse{User: user, Synced: report.Synced(), Report: &summary})
}

func (h *Handler) EndSession(w http.ResponseWriter, r *http.Request) {
	user := mw.GetUserFromContext(r)
	if user == nil {
		http.Error(w, "Not authorized", http.StatusUnauthorized)
		return
	}
	h.sessions.End(*user)
	h.auth.ClearCookie(w)
	w.WriteHeader(http.StatusNoContent)
}

// Sync pushes the caller's pending items now.
func (h *Handler) Sync(w http.ResponseWriter, r *http.Request) {
	s, ok := h.current(w, r)
	if !ok {
		return
	}
	report, err := s.Sync(r.Context())
	if err != nil {
		utils.WriteErrorAndStatusCode(w, err)
		return
	}
	utils.WriteJSON(w, http.StatusOK, report.Response())
}
