package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/promptree/promptree/internal/treeservice"
)

// NewRouter creates a chi router with all API routes mounted.
// authEnabled controls whether Bearer token auth is enforced.
// sseHandler, if non-nil, is mounted at GET /events inside the auth group.
// events, if non-nil, is invoked after each successful mutation.
func NewRouter(svc *treeservice.Service, authEnabled bool, token string, sseHandler http.Handler, events EventFunc) chi.Router {
	h := NewHandler(svc, events)

	r := chi.NewRouter()
	r.Use(AuthMiddleware(authEnabled, token))

	// Conversations.
	r.Get("/conversations", h.ListRoots)
	r.Post("/conversations", h.Ask)
	r.Get("/conversations/{id}", h.GetConversation)
	r.Patch("/conversations/{id}", h.UpdateConversation)
	r.Delete("/conversations/{id}", h.DeleteConversation)

	// Tree.
	r.Get("/conversations/{id}/tree", h.GetTree)

	// Links.
	r.Get("/conversations/{id}/links", h.ListLinks)
	r.Put("/conversations/{id}/links", h.Relink)
	r.Post("/conversations/{id}/links/{target}", h.AddLink)
	r.Delete("/conversations/{id}/links/{target}", h.RemoveLink)

	// Search.
	r.Get("/search", h.Search)

	// SSE endpoint (protected by same auth middleware).
	if sseHandler != nil {
		r.Get("/events", sseHandler.ServeHTTP)
	}

	return r
}
