// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Rasul Khiriev

package http

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/MKhiriev/go-vault-sync/internal/utils"
)

// CheckHTTPMethod is registered as the router's MethodNotAllowed handler.
// A path served under other methods answers 404 instead of 405, so route
// existence does not leak to callers using an unsupported method.
//
// Only exact patterns are compared against [http.Request.URL.Path];
// parameterised routes always answer 404 here.
func CheckHTTPMethod(router *chi.Mux) func(w http.ResponseWriter, r *http.Request) {
	return func(w http.ResponseWriter, r *http.Request) {
		var found chi.Route
		for _, route := range router.Routes() {
			if route.Pattern == r.URL.Path {
				found = route
				break
			}
		}

		if _, ok := found.Handlers[r.Method]; !ok {
			utils.WriteError(w, http.StatusNotFound, "", "no such resource")
			return
		}

		router.ServeHTTP(w, r)
	}
}
