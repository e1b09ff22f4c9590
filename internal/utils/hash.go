package utils

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"hash"
	"sync"
)

// checksumPool holds reusable SHA-256 instances for document checksums.
var checksumPool = sync.Pool{
	New: func() any {
		return sha256.New()
	},
}

// Checksum returns the hex-encoded SHA-256 digest of data. The server tags
// every stored document with it so clients can skip unchanged documents.
func Checksum(data []byte) string {
	h := checksumPool.Get().(hash.Hash)
	h.Reset()

	h.Write(data)
	sum := h.Sum(nil)

	h.Reset()
	checksumPool.Put(h)

	return hex.EncodeToString(sum)
}

// HashString computes an HMAC-SHA256 signature over the given string
// using the provided hash key and returns the result as a hex-encoded string.
//
// Example usage:
//
//	token := utils.HashString(sessionID, signKey)
func HashString(data string, hashKey string) string {
	hasher := hmac.New(sha256.New, []byte(hashKey))
	hasher.Write([]byte(data))
	return hex.EncodeToString(hasher.Sum(nil))
}

// EqualHash compares two hex digests in constant time.
func EqualHash(a, b string) bool {
	return hmac.Equal([]byte(a), []byte(b))
}
