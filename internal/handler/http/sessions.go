package http

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/MKhiriev/go-vault-sync/internal/utils"
	"github.com/MKhiriev/go-vault-sync/models"
)

func (h *Handler) listSessions(w http.ResponseWriter, r *http.Request) {
	sessions, err := h.services.SessionService.List(r.Context(), principal(r))
	if err != nil {
		writeError(w, r, err, "unexpected error occurred listing sessions")
		return
	}
	utils.WriteJSON(w, sessions, http.StatusOK)
}

func (h *Handler) patchSession(w http.ResponseWriter, r *http.Request) {
	var doc models.SessionDocument
	if err := decodeBody(w, r, &doc); err != nil {
		writeError(w, r, err, "invalid session body")
		return
	}

	state, err := h.services.SessionService.Describe(r.Context(), principal(r), chi.URLParam(r, "id"), doc)
	if err != nil {
		writeError(w, r, err, "unexpected error occurred updating the session")
		return
	}
	utils.WriteJSON(w, state, http.StatusOK)
}

func (h *Handler) deleteSession(w http.ResponseWriter, r *http.Request) {
	if err := h.services.SessionService.Revoke(r.Context(), principal(r), chi.URLParam(r, "id")); err != nil {
		writeError(w, r, err, "unexpected error occurred revoking the session")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
