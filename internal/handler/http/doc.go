// Package http implements the REST transport of the reference server.
//
// It exposes route wiring, request handlers and middleware. Session cookies,
// anti-forgery tokens, request tracing, access logging and response
// compression are handled here before requests reach the service layer.
package http
