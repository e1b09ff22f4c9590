// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Rasul Khiriev

package http

import "errors"

// Sentinel errors of the session middleware. Callers can match against them
// with [errors.Is].
var (
	// ErrNoSessionCookie is returned when the request carries no session
	// cookie at all.
	ErrNoSessionCookie = errors.New("missing `Authorization` cookie")

	// ErrInvalidJSON is returned when a request body cannot be decoded.
	ErrInvalidJSON = errors.New("invalid JSON was passed")

	// ErrUnknownAction is returned for an unsupported action query parameter.
	ErrUnknownAction = errors.New("unknown action")
)
