package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
)

// NewRouter creates a chi router with all API routes mounted.
// authEnabled controls whether Bearer token auth is enforced.
// sseHandler, if non-nil, is mounted at GET /events inside the auth
// group.
func NewRouter(svc *Service, authEnabled bool, token string, sseHandler http.Handler) chi.Router {
	h := NewHandler(svc)

	r := chi.NewRouter()
	r.Use(AuthMiddleware(authEnabled, token))

	// Notes.
	r.Get("/notes/*", h.GetNote)
	r.Put("/notes/*", h.PutNote)
	r.Post("/rename", h.RenameNote)

	// Search.
	r.Get("/search", h.Search)

	// Link graph.
	r.Get("/backlinks/*", h.Backlinks)
	r.Get("/outbound/*", h.Outbound)

	// Tags.
	r.Get("/tags", h.ListTags)
	r.Post("/tags", h.AddTag)
	r.Put("/tags/{id}", h.UpdateTag)
	r.Delete("/tags/{id}", h.DeleteTag)
	r.Get("/tags/{id}/notes", h.NotesForTag)
	r.Get("/note-tags/*", h.NoteTags)

	// Home catalogue.
	r.Get("/folders", h.Folders)
	r.Get("/recents", h.Recents)
	r.Get("/pinned", h.Pinned)
	r.Post("/pinned", h.Pin)
	r.Delete("/pinned/*", h.Unpin)

	// SSE endpoint (protected by the same auth middleware).
	if sseHandler != nil {
		r.Get("/events", sseHandler.ServeHTTP)
	}

	return r
}
