package http

import (
	"net/http"

	"github.com/MKhiriev/go-vault-sync/internal/utils"
	"github.com/MKhiriev/go-vault-sync/models"
)

func (h *Handler) getKeys(w http.ResponseWriter, r *http.Request) {
	keys, err := h.services.AccountService.GetMasterKeys(r.Context(), principal(r))
	if err != nil {
		writeError(w, r, err, "unexpected error occurred reading master keys")
		return
	}
	utils.WriteJSON(w, keys, http.StatusOK)
}

func (h *Handler) postKeys(w http.ResponseWriter, r *http.Request) {
	var keys models.MasterKeys
	if err := decodeBody(w, r, &keys); err != nil {
		writeError(w, r, err, "invalid master keys body")
		return
	}

	if err := h.services.AccountService.SaveMasterKeys(r.Context(), principal(r), keys); err != nil {
		writeError(w, r, err, "unexpected error occurred storing master keys")
		return
	}
	w.WriteHeader(http.StatusCreated)
}

func (h *Handler) changePassword(w http.ResponseWriter, r *http.Request) {
	var update models.PasswordUpdate
	if err := decodeBody(w, r, &update); err != nil {
		writeError(w, r, err, "invalid password update body")
		return
	}

	if err := h.services.AccountService.ChangePassword(r.Context(), principal(r), update); err != nil {
		writeError(w, r, err, "unexpected error occurred changing the password")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) createUsername(w http.ResponseWriter, r *http.Request) {
	var req models.Username
	if err := decodeBody(w, r, &req); err != nil {
		writeError(w, r, err, "invalid username body")
		return
	}

	claimed, err := h.services.AccountService.ClaimUsername(r.Context(), principal(r), req.Username)
	if err != nil {
		writeError(w, r, err, "unexpected error occurred claiming the username")
		return
	}
	utils.WriteJSON(w, claimed, http.StatusCreated)
}

func (h *Handler) deleteUsername(w http.ResponseWriter, r *http.Request) {
	if err := h.services.AccountService.ReleaseUsername(r.Context(), principal(r)); err != nil {
		writeError(w, r, err, "unexpected error occurred releasing the username")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
