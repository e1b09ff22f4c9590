package http

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/MKhiriev/go-vault-sync/internal/logger"
	"github.com/MKhiriev/go-vault-sync/internal/utils"
	"github.com/MKhiriev/go-vault-sync/models"
)

// maxBodySize bounds request bodies. Profile pictures are the largest
// documents.
const maxBodySize = 8 << 20

func decodeBody(w http.ResponseWriter, r *http.Request, v any) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodySize)
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidJSON, err)
	}
	return nil
}

func (h *Handler) register(w http.ResponseWriter, r *http.Request) {
	var req models.RegisterRequest
	if err := decodeBody(w, r, &req); err != nil {
		writeError(w, r, err, "invalid registration body")
		return
	}

	user, err := h.services.AuthService.Register(r.Context(), req)
	if err != nil {
		writeError(w, r, err, "unexpected error occurred during user registration")
		return
	}

	logger.FromRequest(r).Info().Str("user_id", user.ID).Msg("user registered")
	w.WriteHeader(http.StatusCreated)
}

// challenge serves POST /challenge?action=request.
func (h *Handler) challenge(w http.ResponseWriter, r *http.Request) {
	if r.URL.Query().Get("action") != "request" {
		writeError(w, r, ErrUnknownAction, "unknown challenge action")
		return
	}

	var req models.ChallengeRequest
	if err := decodeBody(w, r, &req); err != nil {
		writeError(w, r, err, "invalid challenge request body")
		return
	}

	challenge, err := h.services.AuthService.IssueChallenge(r.Context(), req)
	if err != nil {
		writeError(w, r, err, "unexpected error occurred issuing a challenge")
		return
	}

	utils.WriteJSON(w, challenge, http.StatusCreated)
}

// submitChallenge serves POST /challenge/{id}?action=submit[&type=upgrade].
// A login sets the session cookie and returns the anti-forgery token in the
// CSRF-Token header.
func (h *Handler) submitChallenge(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	if query.Get("action") != "submit" {
		writeError(w, r, ErrUnknownAction, "unknown challenge action")
		return
	}

	upgrade := query.Get("type") == "upgrade"
	var p *utils.Principal
	if upgrade {
		authenticated, err := h.authenticate(r)
		if err != nil {
			writeError(w, r, err, "authentication failed")
			return
		}
		p = &authenticated
	}

	var signed models.SignedChallenge
	if err := decodeBody(w, r, &signed); err != nil {
		writeError(w, r, err, "invalid challenge submission body")
		return
	}

	res, err := h.services.AuthService.SubmitChallenge(r.Context(), chi.URLParam(r, "id"), signed, upgrade, p)
	if err != nil {
		writeError(w, r, err, "unexpected error occurred verifying a challenge")
		return
	}

	if !upgrade {
		setSessionCookie(w, res.Token.SignedString)
		w.Header().Set(csrfHeader, res.CSRFToken)
	}
	utils.WriteJSON(w, res.Response, http.StatusOK)
}

// upgrade serves POST /upgrade?method=challenge&action=request.
func (h *Handler) upgrade(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	if query.Get("method") != "challenge" || query.Get("action") != "request" {
		writeError(w, r, ErrUnknownAction, "unknown upgrade action")
		return
	}

	challenge, elevated, err := h.services.AuthService.IssueUpgrade(r.Context(), principal(r))
	if err != nil {
		writeError(w, r, err, "unexpected error occurred issuing an upgrade")
		return
	}
	if elevated {
		w.WriteHeader(http.StatusOK)
		return
	}

	utils.WriteJSON(w, challenge, http.StatusCreated)
}

func (h *Handler) confirmAccount(w http.ResponseWriter, r *http.Request) {
	if err := h.services.AuthService.ConfirmAccount(r.Context(), principal(r), chi.URLParam(r, "id")); err != nil {
		writeError(w, r, err, "unexpected error occurred confirming the account")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) whoAmI(w http.ResponseWriter, r *http.Request) {
	who, err := h.services.AuthService.WhoAmI(r.Context(), principal(r))
	if err != nil {
		writeError(w, r, err, "unexpected error occurred describing the session")
		return
	}
	utils.WriteJSON(w, who, http.StatusOK)
}

func (h *Handler) downgrade(w http.ResponseWriter, r *http.Request) {
	if err := h.services.AuthService.Downgrade(r.Context(), principal(r)); err != nil {
		writeError(w, r, err, "unexpected error occurred downgrading the session")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// totp serves POST /totp?action=enable|disable on an elevated session.
func (h *Handler) totp(w http.ResponseWriter, r *http.Request) {
	switch r.URL.Query().Get("action") {
	case "enable":
		info, err := h.services.AuthService.EnableTOTP(r.Context(), principal(r))
		if err != nil {
			writeError(w, r, err, "unexpected error occurred enabling totp")
			return
		}
		utils.WriteJSON(w, info, http.StatusCreated)
	case "disable":
		if err := h.services.AuthService.DisableTOTP(r.Context(), principal(r)); err != nil {
			writeError(w, r, err, "unexpected error occurred disabling totp")
			return
		}
		w.WriteHeader(http.StatusNoContent)
	default:
		writeError(w, r, ErrUnknownAction, "unknown totp action")
	}
}

func (h *Handler) logout(w http.ResponseWriter, r *http.Request) {
	if err := h.services.AuthService.Logout(r.Context(), principal(r)); err != nil {
		writeError(w, r, err, "unexpected error occurred during logout")
		return
	}
	clearSessionCookie(w)
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) sendVerificationEmail(w http.ResponseWriter, r *http.Request) {
	if err := h.services.AuthService.SendVerificationEmail(r.Context(), principal(r)); err != nil {
		writeError(w, r, err, "unexpected error occurred sending the verification email")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
