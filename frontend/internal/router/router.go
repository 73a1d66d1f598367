package router

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/studcollab/looped/frontend/internal/setup"
	mw "github.com/studcollab/looped/shared/middleware"
	"github.com/studcollab/looped/shared/middleware/metrics"
)

func SetupRouter(deps *setup.Dependencies) http.Handler {
	r := chi.NewRouter()

	r.Use(mw.RequestID)
	r.Use(metrics.Middleware)
	r.Use(mw.SecurityHeaders(deps.Public.SecureCookies))
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   deps.Public.HTTP.AllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", mw.RequestIDHeader},
		ExposedHeaders:   []string{mw.RequestIDHeader},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	// Public routes
	r.Get("/healthz", deps.Handler.Health)
	r.Handle("/metrics", promhttp.Handler())
	r.Post("/v1/session", deps.Handler.StartSession)

	// Authenticated routes
	r.Group(func(r chi.Router) {
		r.Use(deps.Auth.NeedAuth())

		r.Delete("/v1/session", deps.Handler.EndSession)

		r.Route("/v1/beacon", func(r chi.Router) {
			r.Get("/", deps.Handler.GetBeacon)
			r.Post("/refresh", deps.Handler.RefreshBeacon)
			r.Post("/posts", deps.Handler.CreateTeamPost)
			r.Delete("/posts/{postID}", deps.Handler.DeletePost)
			r.Post("/posts/{postID}/apply", deps.Handler.Apply)
			r.Post("/applications/{applicationID}/accept", deps.Handler.Accept)
			r.Post("/applications/{applicationID}/reject", deps.Handler.Reject)
		})

		r.Get("/v1/events", deps.Handler.GetEvents)
		r.Post("/v1/events", deps.Handler.CreateEvent)
		r.Get("/v1/pending", deps.Handler.GetPending)
		r.Post("/v1/sync", deps.Handler.Sync)

		r.Get("/v1/pods", deps.Handler.GetPods)
		r.Get("/v1/pods/{podID}", deps.Handler.GetPod)
		r.Get("/v1/posts/social", deps.Handler.GetSocialPosts)
	})

	return r
}
