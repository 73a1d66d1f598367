package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/studcollab/looped/shared/utils"
)

// Pods and social posts are passed through from the backend unchanged.

func (h *Handler) GetPods(w http.ResponseWriter, r *http.Request) {
	s, ok := h.current(w, r)
	if !ok {
		return
	}
	pods, err := s.Client.Pods(r.Context())
	if err != nil {
		utils.WriteErrorAndStatusCode(w, err)
		return
	}
	utils.WriteJSON(w, http.StatusOK, nonNil(pods))
}

func (h *Handler) GetPod(w http.ResponseWriter, r *http.Request) {
	podId := chi.URLParam(r, "podID")
	s, ok := h.current(w, r)
	if !ok {
		return
	}
	pod, err := s.Client.Pod(r.Context(), podId)
	if err != nil {
		utils.WriteErrorAndStatusCode(w, err)
		return
	}
	utils.WriteJSON(w, http.StatusOK, pod)
}

func (h *Handler) GetSocialPosts(w http.ResponseWriter, r *http.Request) {
	s, ok := h.current(w, r)
	if !ok {
		return
	}
	posts, err := s.Client.SocialPosts(r.Context())
	if err != nil {
		utils.WriteErrorAndStatusCode(w, err)
		return
	}
	utils.WriteJSON(w, http.StatusOK, nonNil(posts))
}
