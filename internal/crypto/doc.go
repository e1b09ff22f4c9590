// Package crypto is the cryptographic primitives adapter of the sync engine.
//
// It provides AES-256-GCM, RSA-OAEP key wrapping and PKCS#8 private key
// wrapping through [KeyChainService], and runs the CPU-heavy primitives,
// Argon2 and Ed25519, on long-lived worker goroutines reached through typed
// request/response channels ([WorkerConnection]).
package crypto
