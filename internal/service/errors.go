// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Rasul Khiriev

package service

import (
	"errors"
	"fmt"

	"github.com/MKhiriev/go-vault-sync/internal/adapter"
)

var (
	// ErrAuthorizationFailure is returned when the API rejects a challenge
	// signature. The challenge is burned and the flow must restart.
	ErrAuthorizationFailure = errors.New("authorization failure")
	// ErrTransport wraps every other API or network failure.
	ErrTransport = errors.New("transport error")

	ErrSaltReuse        = errors.New("auth salt and crypto salt must differ")
	ErrAuthInProgress   = errors.New("an authentication flow is already in progress")
	ErrNotAuthenticated = errors.New("not authenticated")
	ErrMasterKeysLocked = errors.New("master keypair is not unlocked")

	ErrResourceNotFound = errors.New("resource not found")
	ErrIndexOutOfRange  = errors.New("destination index out of range")
	ErrNotOrdered       = errors.New("resource type is not ordered")
	ErrPartialSync      = errors.New("some resources failed to sync")
)

// transportError wraps err with ErrTransport so callers can tell protocol
// failures from API and network failures. The adapter error stays in the
// chain for status inspection.
func transportError(op string, err error) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%w: %s: %w", ErrTransport, op, err)
}

// submitError maps a challenge submit failure. Only a 401 is an
// authorization failure.
func submitError(err error) error {
	if errors.Is(err, adapter.ErrUnauthorized) {
		return fmt.Errorf("%w: %w", ErrAuthorizationFailure, err)
	}
	return transportError("submit challenge", err)
}

// Errors of the reference server services.
var (
	ErrInvalidDataProvided     = errors.New("invalid data provided")
	ErrInvalidSignature        = errors.New("challenge signature does not verify")
	ErrChallengeExpired        = errors.New("challenge expired")
	ErrChallengeMismatch       = errors.New("challenge does not belong to this flow")
	ErrTOTPRequired            = errors.New("totp code required")
	ErrInvalidTOTPCode         = errors.New("invalid totp code")
	ErrTokenIsExpiredOrInvalid = errors.New("session token is expired or invalid")
	ErrCSRFTokenMismatch       = errors.New("missing or invalid CSRF token")
	ErrElevationRequired       = errors.New("session must be elevated")
	ErrKeysAlreadyStored       = errors.New("master keys are already stored")
	ErrUnknownCollection       = errors.New("unknown document collection")
	ErrInvalidDocument         = errors.New("document must be a JSON object")
	ErrTokenCreationFailed     = errors.New("session token creation failed")

	// ErrUnauthorizedAccessToDifferentUserData is returned when a caller
	// addresses an account other than its own.
	ErrUnauthorizedAccessToDifferentUserData = errors.New("access to another user's data")
)
