package http

import (
	"net/http"

	"github.com/MKhiriev/go-vault-sync/internal/utils"
)

const (
	// sessionCookie holds the signed session token.
	sessionCookie = "Authorization"
	// csrfHeader carries the anti-forgery token on unsafe methods.
	csrfHeader = "CSRF-Token"
)

var safeMethods = map[string]bool{
	http.MethodGet:     true,
	http.MethodHead:    true,
	http.MethodOptions: true,
}

// auth is an HTTP middleware that enforces session authentication.
//
// The session token is read from the "Authorization" cookie. Unsafe methods
// must also echo the session's anti-forgery token in the "CSRF-Token"
// header. On success the [utils.Principal] is stored in the request context.
func (h *Handler) auth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		p, err := h.authenticate(r)
		if err != nil {
			writeError(w, r, err, "authentication failed")
			return
		}

		next.ServeHTTP(w, r.WithContext(utils.WithPrincipal(r.Context(), p)))
	})
}

func (h *Handler) authenticate(r *http.Request) (utils.Principal, error) {
	cookie, err := r.Cookie(sessionCookie)
	if err != nil || cookie.Value == "" {
		return utils.Principal{}, ErrNoSessionCookie
	}

	p, session, err := h.services.AuthService.Authorize(r.Context(), cookie.Value)
	if err != nil {
		return utils.Principal{}, err
	}

	if !safeMethods[r.Method] {
		if err = h.services.AuthService.CheckCSRF(session, r.Header.Get(csrfHeader)); err != nil {
			return utils.Principal{}, err
		}
	}

	return p, nil
}

func principal(r *http.Request) utils.Principal {
	p, _ := utils.GetPrincipalFromContext(r.Context())
	return p
}

func setSessionCookie(w http.ResponseWriter, token string) {
	http.SetCookie(w, &http.Cookie{
		Name:     sessionCookie,
		Value:    token,
		Path:     "/",
		HttpOnly: true,
		SameSite: http.SameSiteStrictMode,
	})
}

func clearSessionCookie(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     sessionCookie,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		SameSite: http.SameSiteStrictMode,
	})
}
