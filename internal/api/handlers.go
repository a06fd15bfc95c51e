package api

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/promptree/promptree/internal/models"
	"github.com/promptree/promptree/internal/treeservice"
)

// EventFunc is notified after successful mutations so the SSE broker can
// broadcast; kind is one of "created", "updated", "deleted".
type EventFunc func(kind string, id int64)

// Handler holds API route handlers.
type Handler struct {
	svc    *treeservice.Service
	events EventFunc
}

// NewHandler creates a new Handler. events may be nil.
func NewHandler(svc *treeservice.Service, events EventFunc) *Handler {
	if events == nil {
		events = func(string, int64) {}
	}
	return &Handler{svc: svc, events: events}
}

func pathID(r *http.Request, name string) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, name), 10, 64)
	return id, err == nil && id > 0
}

// ListRoots handles GET /conversations.
func (h *Handler) ListRoots(w http.ResponseWriter, r *http.Request) {
	roots, err := h.svc.Roots()
	if err != nil {
		writeErr(w, err)
		return
	}
	if roots == nil {
		roots = []*models.Conversation{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"conversations": roots})
}

// Ask handles POST /conversations: records a new exchange through the
// generation backend. No streaming on this surface; the final conversation
// comes back when generation finishes.
func (h *Handler) Ask(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, 10<<20)
	var req AskRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("invalid JSON body"))
		return
	}
	if err := req.Validate(); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody(err.Error()))
		return
	}

	c, err := h.svc.Ask(r.Context(), req.Prompt, req.ParentID, nil)
	if err != nil {
		writeErr(w, err)
		return
	}
	h.events("created", c.ID)
	writeJSON(w, http.StatusCreated, c)
}

// GetConversation handles GET /conversations/{id}.
func (h *Handler) GetConversation(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r, "id")
	if !ok {
		writeJSON(w, http.StatusBadRequest, errorBody("invalid conversation id"))
		return
	}
	c, err := h.svc.Get(id)
	if err != nil {
		writeErr(w, err)
		return
	}
	linked, err := h.svc.Linked(id)
	if err != nil {
		writeErr(w, err)
		return
	}
	path, err := h.svc.PathToRoot(id)
	if err != nil {
		writeErr(w, err)
		return
	}
	linkedIDs := make([]int64, len(linked))
	for i, l := range linked {
		linkedIDs[i] = l.ID
	}
	writeJSON(w, http.StatusOK, ConversationDetail{
		Conversation: *c,
		LinkedIDs:    linkedIDs,
		Path:         path,
	})
}

// GetTree handles GET /conversations/{id}/tree.
func (h *Handler) GetTree(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r, "id")
	if !ok {
		writeJSON(w, http.StatusBadRequest, errorBody("invalid conversation id"))
		return
	}
	tree, err := h.svc.BuildTree(id)
	if err != nil {
		writeErr(w, err)
		return
	}
	writeJSON(w, http.StatusOK, tree)
}

// UpdateConversation handles PATCH /conversations/{id}.
func (h *Handler) UpdateConversation(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r, "id")
	if !ok {
		writeJSON(w, http.StatusBadRequest, errorBody("invalid conversation id"))
		return
	}
	r.Body = http.MaxBytesReader(w, r.Body, 10<<20)
	var req UpdateConversationRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("invalid JSON body"))
		return
	}
	if err := req.Validate(); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody(err.Error()))
		return
	}
	if req.Subject == nil && req.Prompt == nil && req.Response == nil && req.ParentID == nil && !req.ClearParent {
		writeJSON(w, http.StatusBadRequest, errorBody("no fields to update"))
		return
	}

	if req.Subject != nil {
		if err := h.svc.SetSubject(id, *req.Subject); err != nil {
			writeErr(w, err)
			return
		}
	}
	if req.Prompt != nil {
		if err := h.svc.SetPrompt(id, *req.Prompt); err != nil {
			writeErr(w, err)
			return
		}
	}
	if req.Response != nil {
		if err := h.svc.SetResponse(id, req.Response); err != nil {
			writeErr(w, err)
			return
		}
	}
	if req.ParentID != nil || req.ClearParent {
		parent := req.ParentID
		if req.ClearParent {
			parent = nil
		}
		if err := h.svc.SetParent(id, parent); err != nil {
			writeErr(w, err)
			return
		}
	}

	h.events("updated", id)
	c, err := h.svc.Get(id)
	if err != nil {
		writeErr(w, err)
		return
	}
	writeJSON(w, http.StatusOK, c)
}

// DeleteConversation handles DELETE /conversations/{id}; the delete
// cascades to the whole subtree and all links touching it.
func (h *Handler) DeleteConversation(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r, "id")
	if !ok {
		writeJSON(w, http.StatusBadRequest, errorBody("invalid conversation id"))
		return
	}
	if err := h.svc.Delete(id); err != nil {
		writeErr(w, err)
		return
	}
	h.events("deleted", id)
	w.WriteHeader(http.StatusNoContent)
}

// ListLinks handles GET /conversations/{id}/links.
func (h *Handler) ListLinks(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r, "id")
	if !ok {
		writeJSON(w, http.StatusBadRequest, errorBody("invalid conversation id"))
		return
	}
	linked, err := h.svc.Linked(id)
	if err != nil {
		writeErr(w, err)
		return
	}
	if linked == nil {
		linked = []*models.Conversation{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"linked": linked})
}

// AddLink handles POST /conversations/{id}/links/{target}.
func (h *Handler) AddLink(w http.ResponseWriter, r *http.Request) {
	id, okA := pathID(r, "id")
	target, okB := pathID(r, "target")
	if !okA || !okB {
		writeJSON(w, http.StatusBadRequest, errorBody("invalid conversation id"))
		return
	}
	if err := h.svc.Link(id, target); err != nil {
		writeErr(w, err)
		return
	}
	h.events("updated", id)
	w.WriteHeader(http.StatusCreated)
}

// RemoveLink handles DELETE /conversations/{id}/links/{target}.
func (h *Handler) RemoveLink(w http.ResponseWriter, r *http.Request) {
	id, okA := pathID(r, "id")
	target, okB := pathID(r, "target")
	if !okA || !okB {
		writeJSON(w, http.StatusBadRequest, errorBody("invalid conversation id"))
		return
	}
	if err := h.svc.Unlink(id, target); err != nil {
		writeErr(w, err)
		return
	}
	h.events("updated", id)
	w.WriteHeader(http.StatusNoContent)
}

// Relink handles PUT /conversations/{id}/links: replaces all links with the
// given target set, reporting skipped targets without failing the batch.
func (h *Handler) Relink(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r, "id")
	if !ok {
		writeJSON(w, http.StatusBadRequest, errorBody("invalid conversation id"))
		return
	}
	r.Body = http.MaxBytesReader(w, r.Body, 1<<20)
	var req RelinkRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("invalid JSON body"))
		return
	}

	skipped, err := h.svc.Relink(id, req.Targets)
	if err != nil {
		writeErr(w, err)
		return
	}
	h.events("updated", id)
	writeJSON(w, http.StatusOK, RelinkResponse{Skipped: toSkipped(skipped)})
}

// Search handles GET /search.
func (h *Handler) Search(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query().Get("q")
	if q == "" {
		writeJSON(w, http.StatusBadRequest, errorBody("query parameter 'q' is required"))
		return
	}
	results, err := h.svc.Search(q)
	if err != nil {
		slog.Error("search failed", slog.String("query", q), slog.String("error", err.Error()))
		writeErr(w, err)
		return
	}
	if results == nil {
		results = []*models.Conversation{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"results": results})
}
