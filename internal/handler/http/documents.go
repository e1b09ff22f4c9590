package http

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/MKhiriev/go-vault-sync/internal/utils"
)

// Document handlers are built per collection. Bodies are passed through as
// raw JSON; only the service looks inside them.

func (h *Handler) listDocuments(collection string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		docs, err := h.services.DocumentService.List(r.Context(), principal(r).UserID, collection, r.URL.Query().Get("filter"))
		if err != nil {
			writeError(w, r, err, "unexpected error occurred listing "+collection)
			return
		}
		utils.WriteJSON(w, docs, http.StatusOK)
	}
}

func (h *Handler) createDocument(collection string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var body json.RawMessage
		if err := decodeBody(w, r, &body); err != nil {
			writeError(w, r, err, "invalid document body")
			return
		}

		state, err := h.services.DocumentService.Create(r.Context(), principal(r).UserID, collection, body)
		if err != nil {
			writeError(w, r, err, "unexpected error occurred creating "+collection)
			return
		}
		utils.WriteJSON(w, state, http.StatusCreated)
	}
}

func (h *Handler) patchDocument(collection string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var body json.RawMessage
		if err := decodeBody(w, r, &body); err != nil {
			writeError(w, r, err, "invalid document body")
			return
		}

		state, err := h.services.DocumentService.Patch(r.Context(), principal(r).UserID, collection, chi.URLParam(r, "id"), body)
		if err != nil {
			writeError(w, r, err, "unexpected error occurred updating "+collection)
			return
		}
		utils.WriteJSON(w, state, http.StatusOK)
	}
}

func (h *Handler) deleteDocument(collection string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := h.services.DocumentService.Delete(r.Context(), principal(r).UserID, collection, chi.URLParam(r, "id")); err != nil {
			writeError(w, r, err, "unexpected error occurred deleting from "+collection)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

// fetchSingleton answers 404 when the document was never saved.
func (h *Handler) fetchSingleton(collection string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		doc, ok, err := h.services.DocumentService.Fetch(r.Context(), principal(r).UserID, collection)
		if err != nil {
			writeError(w, r, err, "unexpected error occurred reading "+collection)
			return
		}
		if !ok {
			utils.WriteError(w, http.StatusNotFound, "", collection+" is not set")
			return
		}
		utils.WriteJSON(w, doc, http.StatusOK)
	}
}

func (h *Handler) saveSingleton(collection string, status int) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var body json.RawMessage
		if err := decodeBody(w, r, &body); err != nil {
			writeError(w, r, err, "invalid document body")
			return
		}

		state, err := h.services.DocumentService.Save(r.Context(), principal(r).UserID, collection, body)
		if err != nil {
			writeError(w, r, err, "unexpected error occurred saving "+collection)
			return
		}
		utils.WriteJSON(w, state, status)
	}
}

func (h *Handler) removeSingleton(collection string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := h.services.DocumentService.Remove(r.Context(), principal(r).UserID, collection); err != nil {
			writeError(w, r, err, "unexpected error occurred deleting "+collection)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}
