package http

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/MKhiriev/go-vault-sync/internal/service"
)

func (h *Handler) Init() *chi.Mux {
	router := chi.NewRouter()
	router.Use(middleware.Recoverer, h.withTraceID, h.withLogging, withGZip)

	// routes without authorization
	router.Group(func(r chi.Router) {
		r.Post("/register", h.register)
		r.Post("/challenge", h.challenge)
		r.Post("/challenge/{id}", h.submitChallenge)
	})

	router.Group(func(r chi.Router) {
		r.Use(h.auth)

		r.Post("/upgrade", h.upgrade)
		r.Post("/downgrade", h.downgrade)
		r.Post("/logout", h.logout)
		r.Get("/whoami", h.whoAmI)
		r.Post("/confirm_account/{id}", h.confirmAccount)
		r.Post("/send-verification-email", h.sendVerificationEmail)
		r.Post("/totp", h.totp)

		r.Get("/keys", h.getKeys)
		r.Post("/keys", h.postKeys)
		r.Put("/change_password", h.changePassword)
		r.Post("/username", h.createUsername)
		r.Delete("/username", h.deleteUsername)

		r.Get("/sessions", h.listSessions)
		r.Patch("/sessions/{id}", h.patchSession)
		r.Delete("/sessions/{id}", h.deleteSession)

		h.collection(r, "/todos", service.CollectionTodos)
		h.collection(r, "/tags", service.CollectionTags)

		h.singleton(r, "/name", service.CollectionName, http.MethodPut, http.StatusOK)
		h.singleton(r, "/profile-picture", service.CollectionProfilePicture, http.MethodPut, http.StatusOK)
		h.singleton(r, "/stripe/customer-id", service.CollectionCustomerID, http.MethodPost, http.StatusCreated)
	})

	router.MethodNotAllowed(CheckHTTPMethod(router))

	return router
}

func (h *Handler) collection(r chi.Router, path, name string) {
	r.Get(path, h.listDocuments(name))
	r.Post(path, h.createDocument(name))
	r.Patch(path+"/{id}", h.patchDocument(name))
	r.Delete(path+"/{id}", h.deleteDocument(name))
}

func (h *Handler) singleton(r chi.Router, path, name, saveMethod string, saveStatus int) {
	r.Get(path, h.fetchSingleton(name))
	r.Method(saveMethod, path, h.saveSingleton(name, saveStatus))
	r.Delete(path, h.removeSingleton(name))
}
