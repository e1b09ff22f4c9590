package crypto

import (
	"context"
	"crypto/rsa"

	"github.com/MKhiriev/go-vault-sync/models"
)

// KeyChainService groups the symmetric and asymmetric primitives used to
// protect resources and the master keypair.
//
// Symmetric ciphertexts are standard base64 of nonce||ciphertext||tag. Keys
// passed to Encrypt and Decrypt must be 32 bytes long.
type KeyChainService interface {
	// GenerateSalt returns size random bytes.
	GenerateSalt(size int) ([]byte, error)

	// GenerateKey returns a fresh 256-bit AES key.
	GenerateKey() ([]byte, error)

	// Encrypt seals plaintext under key.
	Encrypt(plaintext, key []byte) (string, error)

	// Decrypt opens a blob produced by Encrypt.
	Decrypt(encrypted string, key []byte) ([]byte, error)

	// EncryptString is Encrypt for UTF-8 text.
	EncryptString(plaintext string, key []byte) (string, error)

	// DecryptString is Decrypt for UTF-8 text.
	DecryptString(encrypted string, key []byte) (string, error)

	// GenerateMasterKeypair creates an RSA keypair of the given modulus size.
	GenerateMasterKeypair(bits int) (*rsa.PrivateKey, error)

	// ExportPublicKey encodes pub as base64 SPKI.
	ExportPublicKey(pub *rsa.PublicKey) (string, error)

	// ImportPublicKey decodes a key produced by ExportPublicKey.
	ImportPublicKey(encoded string) (*rsa.PublicKey, error)

	// WrapKey encrypts a resource key under pub with RSA-OAEP/SHA-256.
	WrapKey(key []byte, pub *rsa.PublicKey) (string, error)

	// UnwrapKey reverses WrapKey.
	UnwrapKey(wrapped string, priv *rsa.PrivateKey) ([]byte, error)

	// WrapPrivateKey encrypts the PKCS#8 form of priv under key.
	WrapPrivateKey(priv *rsa.PrivateKey, key []byte) (string, error)

	// UnwrapPrivateKey reverses WrapPrivateKey.
	UnwrapPrivateKey(wrapped string, key []byte) (*rsa.PrivateKey, error)
}

// PasswordHasher stretches passwords on an isolated worker.
type PasswordHasher interface {
	Hash(ctx context.Context, password string, salt []byte, params models.HashParams, hashLen uint32) ([]byte, error)
}

// Signer derives Ed25519 keypairs and signs on an isolated worker.
type Signer interface {
	GenerateKeypair(ctx context.Context, seed []byte, omitPublicKey bool) (SigningKeypair, error)
	Sign(ctx context.Context, message, privateKey []byte) ([]byte, error)
	Verify(ctx context.Context, publicKey, message, signature []byte) (bool, error)
}
