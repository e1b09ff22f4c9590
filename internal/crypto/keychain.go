// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Rasul Khiriev

package crypto

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/rsa"
	"crypto/sha256"
	"crypto/x509"
	"fmt"
	"io"
)

// keySize is the AES-256 key length in bytes.
const keySize = 32

type keyChainService struct {
	random io.Reader
}

// NewKeyChainService returns a [KeyChainService] backed by crypto/rand.
func NewKeyChainService() KeyChainService {
	return &keyChainService{random: rand.Reader}
}

func (k *keyChainService) GenerateSalt(size int) ([]byte, error) {
	salt := make([]byte, size)
	if _, err := io.ReadFull(k.random, salt); err != nil {
		return nil, fmt.Errorf("generate salt: %w", err)
	}
	return salt, nil
}

func (k *keyChainService) GenerateKey() ([]byte, error) {
	key := make([]byte, keySize)
	if _, err := io.ReadFull(k.random, key); err != nil {
		return nil, fmt.Errorf("generate key: %w", err)
	}
	return key, nil
}

func (k *keyChainService) Encrypt(plaintext, key []byte) (string, error) {
	gcm, err := newGCM(key)
	if err != nil {
		return "", err
	}

	nonce := make([]byte, gcm.NonceSize())
	if _, err := io.ReadFull(k.random, nonce); err != nil {
		return "", fmt.Errorf("generate nonce: %w", err)
	}

	blob := gcm.Seal(nonce, nonce, plaintext, nil)
	return Encode(blob), nil
}

func (k *keyChainService) Decrypt(encrypted string, key []byte) ([]byte, error) {
	blob, err := Decode(encrypted)
	if err != nil {
		return nil, err
	}

	gcm, err := newGCM(key)
	if err != nil {
		return nil, err
	}

	nonceSize := gcm.NonceSize()
	if len(blob) < nonceSize {
		return nil, ErrCiphertextTooShort
	}
	nonce, ciphertext := blob[:nonceSize], blob[nonceSize:]

	plaintext, err := gcm.Open(nil, nonce, ciphertext, nil)
	if err != nil {
		return nil, fmt.Errorf("decrypt data: %w", err)
	}

	return plaintext, nil
}

func (k *keyChainService) EncryptString(plaintext string, key []byte) (string, error) {
	return k.Encrypt([]byte(plaintext), key)
}

func (k *keyChainService) DecryptString(encrypted string, key []byte) (string, error) {
	plaintext, err := k.Decrypt(encrypted, key)
	if err != nil {
		return "", err
	}
	return string(plaintext), nil
}

func (k *keyChainService) GenerateMasterKeypair(bits int) (*rsa.PrivateKey, error) {
	priv, err := rsa.GenerateKey(k.random, bits)
	if err != nil {
		return nil, fmt.Errorf("generate rsa keypair: %w", err)
	}
	return priv, nil
}

func (k *keyChainService) ExportPublicKey(pub *rsa.PublicKey) (string, error) {
	der, err := x509.MarshalPKIXPublicKey(pub)
	if err != nil {
		return "", fmt.Errorf("marshal public key: %w", err)
	}
	return Encode(der), nil
}

func (k *keyChainService) ImportPublicKey(encoded string) (*rsa.PublicKey, error) {
	der, err := Decode(encoded)
	if err != nil {
		return nil, err
	}

	pub, err := x509.ParsePKIXPublicKey(der)
	if err != nil {
		return nil, fmt.Errorf("parse public key: %w", err)
	}

	rsaPub, ok := pub.(*rsa.PublicKey)
	if !ok {
		return nil, fmt.Errorf("%w: public key is %T", ErrInvalidKey, pub)
	}
	return rsaPub, nil
}

func (k *keyChainService) WrapKey(key []byte, pub *rsa.PublicKey) (string, error) {
	wrapped, err := rsa.EncryptOAEP(sha256.New(), k.random, pub, key, nil)
	if err != nil {
		return "", fmt.Errorf("wrap key: %w", err)
	}
	return Encode(wrapped), nil
}

func (k *keyChainService) UnwrapKey(wrapped string, priv *rsa.PrivateKey) ([]byte, error) {
	blob, err := Decode(wrapped)
	if err != nil {
		return nil, err
	}

	key, err := rsa.DecryptOAEP(sha256.New(), nil, priv, blob, nil)
	if err != nil {
		return nil, fmt.Errorf("unwrap key: %w", err)
	}
	if len(key) != keySize {
		return nil, fmt.Errorf("%w: unwrapped key has %d bytes", ErrInvalidKey, len(key))
	}
	return key, nil
}

func (k *keyChainService) WrapPrivateKey(priv *rsa.PrivateKey, key []byte) (string, error) {
	der, err := x509.MarshalPKCS8PrivateKey(priv)
	if err != nil {
		return "", fmt.Errorf("marshal private key: %w", err)
	}
	return k.Encrypt(der, key)
}

func (k *keyChainService) UnwrapPrivateKey(wrapped string, key []byte) (*rsa.PrivateKey, error) {
	der, err := k.Decrypt(wrapped, key)
	if err != nil {
		return nil, fmt.Errorf("unwrap private key: %w", err)
	}

	priv, err := x509.ParsePKCS8PrivateKey(der)
	if err != nil {
		return nil, fmt.Errorf("parse private key: %w", err)
	}

	rsaPriv, ok := priv.(*rsa.PrivateKey)
	if !ok {
		return nil, fmt.Errorf("%w: private key is %T", ErrInvalidKey, priv)
	}
	return rsaPriv, nil
}

func newGCM(key []byte) (cipher.AEAD, error) {
	if len(key) != keySize {
		return nil, fmt.Errorf("%w: aes key has %d bytes", ErrInvalidKey, len(key))
	}

	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("create cipher: %w", err)
	}
	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("create gcm: %w", err)
	}
	return gcm, nil
}
