// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Rasul Khiriev

package models

// HashAlgorithm names the Argon2 variant used to stretch a password.
type HashAlgorithm string

const (
	// Argon2i is the data-independent variant, the historical default of
	// existing accounts.
	Argon2i HashAlgorithm = "argon2i"
	// Argon2id is the hybrid variant used for newly calibrated parameters.
	Argon2id HashAlgorithm = "argon2id"
)

// HashParams describes one password hashing run.
//
// Parameters issued by the server for a challenge are authoritative for that
// challenge and must not be replaced by locally cached values. MemoryCost is
// expressed in KiB, Salt is standard base64.
type HashParams struct {
	Type       HashAlgorithm `json:"type"`
	TimeCost   uint32        `json:"timeCost"`
	MemoryCost uint32        `json:"memoryCost"`
	Threads    uint8         `json:"threads"`
	Salt       string        `json:"salt"`
}

// WithSalt returns a copy of p carrying salt.
func (p HashParams) WithSalt(salt string) HashParams {
	p.Salt = salt
	return p
}
