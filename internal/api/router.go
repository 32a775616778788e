package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
)

// Streams are the SSE endpoints mounted next to the REST routes. Either may
// be nil.
type Streams struct {
	// Bridge carries outbound commands to the view.
	Bridge http.Handler
	// Events carries host notifications and navigation signals.
	Events http.Handler
}

// NewRouter creates a chi router with the bridge and API routes mounted.
// authEnabled controls whether Bearer token auth is enforced.
func NewRouter(ed Editor, n Notes, streams Streams, authEnabled bool, token string) chi.Router {
	h := NewHandler(ed, n)

	r := chi.NewRouter()
	r.Use(AuthMiddleware(authEnabled, token))
	r.Use(maxBody(10 << 20))

	r.Route("/bridge", func(r chi.Router) {
		if streams.Bridge != nil {
			r.Get("/events", streams.Bridge.ServeHTTP)
		}
		r.Post("/messages", h.BridgeMessage)
	})

	r.Route("/api", func(r chi.Router) {
		if streams.Events != nil {
			r.Get("/events", streams.Events.ServeHTTP)
		}

		r.Route("/editor", func(r chi.Router) {
			r.Post("/load", h.LoadNote)
			r.Post("/clear", h.Clear)
			r.Post("/exit", h.Exit)
			r.Post("/back", h.Back)
			r.Post("/fullscreen", h.Fullscreen)
			r.Post("/action", h.QueueAction)
			r.Get("/state", h.State)
		})

		r.Get("/notes", h.ListNotes)
		r.Post("/notes/import", h.ImportNote)
		r.Get("/notes/{id}", h.GetNote)
		r.Delete("/notes/{id}", h.DeleteNote)
		r.Post("/notes/{id}/lock", h.LockNote)
		r.Post("/notes/{id}/export", h.ExportNote)

		r.Post("/vault/unlock", h.UnlockVault)
	})

	return r
}
