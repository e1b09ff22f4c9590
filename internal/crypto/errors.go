package crypto

import (
	"errors"
	"fmt"
)

var (
	// ErrHashingFailed is returned when the Argon2 worker reports a
	// non-success status.
	ErrHashingFailed = errors.New("hashing failed")
	// ErrSigningFailed is returned when the Ed25519 worker reports a
	// non-success status.
	ErrSigningFailed = errors.New("signing operation failed")
	// ErrWorkerClosed is returned for requests posted to a closed worker.
	ErrWorkerClosed = errors.New("crypto worker is closed")
	// ErrCiphertextTooShort is returned when a blob is shorter than a nonce.
	ErrCiphertextTooShort = errors.New("ciphertext too short")
	// ErrInvalidKey is returned when imported key material has the wrong
	// type or size.
	ErrInvalidKey = errors.New("invalid key material")
)

// statusError maps a worker status code to base. The numeric code is only
// exposed in development builds.
func statusError(base error, code int, development bool) error {
	if development {
		return fmt.Errorf("%w (worker status %d)", base, code)
	}
	return base
}
