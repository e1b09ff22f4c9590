// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Rasul Khiriev

package models

// Meta is the "meta" object carried by every encrypted document.
//
// CryptoKey is the resource key wrapped under the master public key. It is
// sent on create and returned on reads. Checksum is computed by the server and
// is never sent by the client. Index is present only for ordered resources.
type Meta struct {
	CryptoKey string `json:"cryptoKey,omitempty"`
	Checksum  string `json:"checksum,omitempty"`
	Index     *int   `json:"index,omitempty"`
}

// Document is implemented by every encrypted wire document.
type Document interface {
	DocumentID() string
	DocumentMeta() Meta
}

// StateResponse is the body returned by POST and PATCH on a resource
// collection.
type StateResponse struct {
	ID   string `json:"id,omitempty"`
	Meta Meta   `json:"meta"`
}

// SaveState is the save lifecycle of a single in-memory resource.
type SaveState int

const (
	Clean SaveState = iota
	Dirty
	Saving
	Saved
	SaveError
)

func (s SaveState) String() string {
	switch s {
	case Clean:
		return "clean"
	case Dirty:
		return "dirty"
	case Saving:
		return "saving"
	case Saved:
		return "saved"
	case SaveError:
		return "error"
	default:
		return "unknown"
	}
}

// IntPtr returns a pointer to v.
func IntPtr(v int) *int {
	return &v
}
