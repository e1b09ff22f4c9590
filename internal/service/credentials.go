package service

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"

	"github.com/MKhiriev/go-vault-sync/internal/crypto"
	"github.com/MKhiriev/go-vault-sync/internal/logger"
	"github.com/MKhiriev/go-vault-sync/models"
	"golang.org/x/sync/singleflight"
)

const (
	// AuthSeedLength is the size of the seed the signing keypair is derived
	// from.
	AuthSeedLength = 32
	// CryptoKeyLength is the size of the AES key protecting the master
	// private key.
	CryptoKeyLength = 32
)

// CredentialService turns a password into key material. Hashing runs on the
// Argon2 worker and concurrent requests for the same inputs share one job.
type CredentialService struct {
	hasher crypto.PasswordHasher
	signer crypto.Signer
	group  singleflight.Group
	logger *logger.Logger
}

// NewCredentialService builds a CredentialService on top of the crypto
// workers.
func NewCredentialService(hasher crypto.PasswordHasher, signer crypto.Signer, log *logger.Logger) *CredentialService {
	return &CredentialService{
		hasher: hasher,
		signer: signer,
		logger: log.WithComponent("credentials"),
	}
}

// DeriveAuthSeed stretches password into the 32-byte authentication seed.
// The salt is read from params.
func (c *CredentialService) DeriveAuthSeed(ctx context.Context, password string, params models.HashParams) ([]byte, error) {
	return c.hash(ctx, password, params, AuthSeedLength)
}

// DeriveCryptoKey stretches password into the key wrapping the master
// private key.
func (c *CredentialService) DeriveCryptoKey(ctx context.Context, password string, params models.HashParams) ([]byte, error) {
	return c.hash(ctx, password, params, CryptoKeyLength)
}

// DeriveSigningKeypair derives the Ed25519 keypair of seed. The public key
// is left empty unless includePublicKey is set.
func (c *CredentialService) DeriveSigningKeypair(ctx context.Context, seed []byte, includePublicKey bool) (crypto.SigningKeypair, error) {
	return c.signer.GenerateKeypair(ctx, seed, !includePublicKey)
}

// SignChallenge signs the decoded challenge data and returns the base64
// signature.
func (c *CredentialService) SignChallenge(ctx context.Context, challenge models.Challenge, privateKey []byte) (models.SignedChallenge, error) {
	data, err := crypto.Decode(challenge.Data)
	if err != nil {
		return models.SignedChallenge{}, fmt.Errorf("challenge data: %w", err)
	}
	sig, err := c.signer.Sign(ctx, data, privateKey)
	if err != nil {
		return models.SignedChallenge{}, err
	}
	return models.SignedChallenge{Signature: crypto.Encode(sig)}, nil
}

func (c *CredentialService) hash(ctx context.Context, password string, params models.HashParams, n uint32) ([]byte, error) {
	salt, err := crypto.Decode(params.Salt)
	if err != nil {
		return nil, fmt.Errorf("hash params salt: %w", err)
	}

	key, err := jobKey(password, params, n)
	if err != nil {
		return nil, err
	}

	ch := c.group.DoChan(key, func() (any, error) {
		c.logger.Debug().Str("func", "CredentialService.hash").
			Str("type", string(params.Type)).
			Uint32("time_cost", params.TimeCost).
			Uint32("memory_cost", params.MemoryCost).
			Msg("hash job started")
		return c.hasher.Hash(context.WithoutCancel(ctx), password, salt, params, n)
	})

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		return bytes.Clone(res.Val.([]byte)), nil
	}
}

// jobKey identifies a hash job without keeping the password around.
func jobKey(password string, params models.HashParams, n uint32) (string, error) {
	p, err := json.Marshal(params)
	if err != nil {
		return "", fmt.Errorf("marshal hash params: %w", err)
	}
	h := sha256.New()
	h.Write([]byte(password))
	h.Write([]byte{0})
	h.Write(p)
	fmt.Fprintf(h, "/%d", n)
	return hex.EncodeToString(h.Sum(nil)), nil
}
