package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/starford/glance/internal/bridge"
)

// NewRouter creates a chi router with all API routes mounted.
// authEnabled controls whether Bearer token auth is enforced.
// sseHandler, if non-nil, is mounted at GET /host/events inside the auth group.
func NewRouter(rt *bridge.Runtime, cb *bridge.Callbacks, authEnabled bool, token string, sseHandler http.Handler) chi.Router {
	h := NewHandler(rt)
	hh := NewHostHandler(cb)

	r := chi.NewRouter()
	r.Use(AuthMiddleware(authEnabled, token))

	// Runtime bridge.
	r.Route("/bridge", func(r chi.Router) {
		r.Put("/previews/notes/{surfaceID}", h.SetNotePreview)
		r.Post("/previews/notes/clear", h.ClearPreviews)
		r.Get("/previews/content", h.ListContentIDs)
		r.Get("/previews/content/{contentID}", h.HasPreview)
		r.Put("/previews/content/{contentID}", h.UpdateByContentID)
		r.Put("/previews/reminders", h.ReplaceReminders)

		r.Get("/deeplink/pending", h.PullDeepLink)

		r.Get("/state", h.GetState)
		r.Put("/state", h.SetState)

		r.Get("/surface/configuring", h.ConfiguringSurface)
		r.Post("/surfaces/pin", h.PinSurface)

		r.Post("/boot-sync", h.RunBootSync)
	})

	// Surface host and lifecycle notifier.
	r.Route("/host", func(r chi.Router) {
		r.Get("/surfaces/{kind}/{surfaceID}/render", hh.Render)
		r.Post("/surfaces/teardown", hh.Teardown)
		r.Post("/surfaces/{surfaceID}/configure", hh.Configure)

		r.Post("/launch", hh.Launch)

		r.Post("/lifecycle/boot-completed", hh.BootCompleted)
		r.Post("/lifecycle/task-removed", hh.TaskRemoved)
		r.Post("/lifecycle/foreground", hh.Foreground)

		if sseHandler != nil {
			r.Get("/events", sseHandler.ServeHTTP)
		}
	})

	return r
}
