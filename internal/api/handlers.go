package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/liminal-notes/vaultcore/internal/apperr"
	"github.com/liminal-notes/vaultcore/internal/home"
	"github.com/liminal-notes/vaultcore/internal/index"
	"github.com/liminal-notes/vaultcore/internal/tags"
)

// Handler carries the HTTP handlers for the engine's host API.
type Handler struct {
	svc *Service
}

// NewHandler creates the handler set.
func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

func (h *Handler) Search(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query().Get("q")
	if query == "" {
		writeJSON(w, http.StatusBadRequest, errorBody("missing query parameter q"))
		return
	}
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))

	results, err := h.svc.Search(r.Context(), query, limit)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, errorBody(err.Error()))
		return
	}
	if results == nil {
		results = []index.SearchResult{}
	}
	writeJSON(w, http.StatusOK, results)
}

func (h *Handler) GetNote(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "*")
	detail, err := h.svc.GetNote(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, detail)
}

type writeNoteRequest struct {
	Content string `json:"content"`
}

func (h *Handler) PutNote(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "*")
	var req writeNoteRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("invalid request body"))
		return
	}
	detail, err := h.svc.WriteNote(r.Context(), id, req.Content)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, detail)
}

type renameRequest struct {
	From string `json:"from"`
	To   string `json:"to"`
}

func (h *Handler) RenameNote(w http.ResponseWriter, r *http.Request) {
	var req renameRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("invalid request body"))
		return
	}
	if err := h.svc.RenameNote(r.Context(), req.From, req.To); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"from": req.From, "to": req.To})
}

func (h *Handler) Backlinks(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "*")
	links, err := h.svc.store.Backlinks(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return
	}
	if links == nil {
		links = []index.Link{}
	}
	writeJSON(w, http.StatusOK, links)
}

func (h *Handler) Outbound(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "*")
	links, err := h.svc.store.Outbound(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return
	}
	if links == nil {
		links = []index.Link{}
	}
	writeJSON(w, http.StatusOK, links)
}

func (h *Handler) NoteTags(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "*")
	noteTags, err := h.svc.store.TagsForNote(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return
	}
	if noteTags == nil {
		noteTags = []string{}
	}
	writeJSON(w, http.StatusOK, noteTags)
}

func (h *Handler) ListTags(w http.ResponseWriter, r *http.Request) {
	all, err := h.svc.store.AllTags(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	if all == nil {
		all = []tags.Tag{}
	}
	writeJSON(w, http.StatusOK, all)
}

type addTagRequest struct {
	Label string `json:"label"`
}

func (h *Handler) AddTag(w http.ResponseWriter, r *http.Request) {
	var req addTagRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("invalid request body"))
		return
	}
	tag, err := h.svc.catalogue.Add(r.Context(), req.Label)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, tag)
}

func (h *Handler) UpdateTag(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	var tag tags.Tag
	if err := json.NewDecoder(r.Body).Decode(&tag); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("invalid request body"))
		return
	}
	tag.ID = id
	if err := h.svc.catalogue.Update(r.Context(), tag); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, tag)
}

func (h *Handler) DeleteTag(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if err := h.svc.catalogue.Delete(r.Context(), id); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) NotesForTag(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	notes, err := h.svc.store.NotesForTag(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return
	}
	if notes == nil {
		notes = []string{}
	}
	writeJSON(w, http.StatusOK, notes)
}

func (h *Handler) Folders(w http.ResponseWriter, r *http.Request) {
	folders, err := h.svc.homeCat.Folders(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	if folders == nil {
		folders = []index.FolderActivity{}
	}
	writeJSON(w, http.StatusOK, folders)
}

func (h *Handler) Recents(w http.ResponseWriter, r *http.Request) {
	recents, err := h.svc.homeCat.Recents(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	if recents == nil {
		recents = []home.RecentItem{}
	}
	writeJSON(w, http.StatusOK, recents)
}

func (h *Handler) Pinned(w http.ResponseWriter, r *http.Request) {
	pinned, err := h.svc.homeCat.Pinned(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	if pinned == nil {
		pinned = []home.PinnedItem{}
	}
	writeJSON(w, http.StatusOK, pinned)
}

type pinRequest struct {
	ID   string `json:"id"`
	Type string `json:"type"`
}

func (h *Handler) Pin(w http.ResponseWriter, r *http.Request) {
	var req pinRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("invalid request body"))
		return
	}
	if req.Type == "" {
		req.Type = "note"
	}
	if err := h.svc.homeCat.Pin(r.Context(), req.ID, req.Type); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) Unpin(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "*")
	if err := h.svc.homeCat.Unpin(r.Context(), id); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// writeError maps engine errors onto HTTP statuses.
func writeError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, apperr.ErrInvalidPath):
		writeJSON(w, http.StatusBadRequest, errorBody(err.Error()))
	case errors.Is(err, apperr.ErrNotFound):
		writeJSON(w, http.StatusNotFound, errorBody(err.Error()))
	case errors.Is(err, apperr.ErrAlreadyExists):
		writeJSON(w, http.StatusConflict, errorBody(err.Error()))
	default:
		writeJSON(w, http.StatusInternalServerError, errorBody(err.Error()))
	}
}
