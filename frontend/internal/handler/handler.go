// Package handler serves the JSON surface the web client talks to. Every
// request is bound to the caller's session; handlers never touch the backend
// without one.
package handler

import (
	"net/http"

	"github.com/studcollab/looped/frontend/internal/markdown"
	"github.com/studcollab/looped/frontend/internal/pending"
	"github.com/studcollab/looped/frontend/internal/session"
	mw "github.com/studcollab/looped/shared/middleware"
	"github.com/studcollab/looped/shared/utils"
)

type Handler struct {
	sessions *session.Manager
	auth     *mw.Auth
	store    pending.Store
	text     *markdown.TextProcessor
}

func New(sessions *session.Manager, auth *mw.Auth, store pending.Store, text *markdown.TextProcessor) *Handler {
	if text == nil {
		text = markdown.New()
	}
	return &Handler{sessions: sessions, auth: auth, store: store, text: text}
}

// current returns the caller's session, starting one when the token is new.
// On failure the response is already written.
func (h *Handler) current(w http.ResponseWriter, r *http.Request) (*session.Session, bool) {
	user := mw.GetUserFromContext(r)
	if user == nil {
		http.Error(w, "Not authorized", http.StatusUnauthorized)
		return nil, false
	}
	s, err := h.sessions.Ensure(r.Context(), *user, mw.GetTokenFromContext(r))
	if err != nil {
		utils.WriteErrorAndStatusCode(w, err)
		return nil, false
	}
	return s, true
}
