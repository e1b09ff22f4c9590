package validators

import (
	"context"
	"crypto/ed25519"
	"encoding/base64"
	"fmt"
	"net/mail"
	"regexp"

	"github.com/MKhiriev/go-vault-sync/models"
)

// Field name constants used to restrict validation to a subset of fields.
const (
	// FieldEmail targets the account email.
	FieldEmail = "email"

	// FieldKey targets a base64 Ed25519 public signing key.
	FieldKey = "key"

	// FieldHashParams targets the hash parameters, including the salt.
	FieldHashParams = "hash_params"

	// FieldTOTPCode targets the optional six-digit TOTP code.
	FieldTOTPCode = "totp_code"

	// FieldSignature targets a base64 Ed25519 signature.
	FieldSignature = "signature"

	// FieldPublicKey targets the exported master public key.
	FieldPublicKey = "public_key"

	// FieldPrivateKey targets the wrapped master private key.
	FieldPrivateKey = "private_key"

	// FieldSalts checks that the auth and crypto salts differ.
	FieldSalts = "salts"

	// FieldUsername targets a public username.
	FieldUsername = "username"
)

const (
	minSaltLength = 8
	// maxTOTPCode admits six-digit TOTP codes and eight-digit backup codes.
	maxTOTPCode = 99999999
)

var usernamePattern = regexp.MustCompile(`^[A-Za-z0-9_-]{3,32}$`)

// AccountValidator checks the account and challenge protocol payloads.
type AccountValidator struct{}

// NewAccountValidator returns an AccountValidator.
func NewAccountValidator() Validator {
	return &AccountValidator{}
}

func (v *AccountValidator) Validate(ctx context.Context, obj any, fields ...string) error {
	switch value := obj.(type) {
	case models.RegisterRequest:
		return v.validateRegisterRequest(ctx, value, fields...)
	case *models.RegisterRequest:
		return v.validateRegisterRequest(ctx, *value, fields...)

	case models.ChallengeRequest:
		return v.validateChallengeRequest(ctx, value, fields...)
	case *models.ChallengeRequest:
		return v.validateChallengeRequest(ctx, *value, fields...)

	case models.SignedChallenge:
		return v.validateSignedChallenge(ctx, value, fields...)
	case *models.SignedChallenge:
		return v.validateSignedChallenge(ctx, *value, fields...)

	case models.MasterKeys:
		return v.validateMasterKeys(ctx, value, fields...)
	case *models.MasterKeys:
		return v.validateMasterKeys(ctx, *value, fields...)

	case models.PasswordUpdate:
		return v.validatePasswordUpdate(ctx, value, fields...)
	case *models.PasswordUpdate:
		return v.validatePasswordUpdate(ctx, *value, fields...)

	case models.HashParams:
		return validateHashParams(value)
	case *models.HashParams:
		return validateHashParams(*value)

	case models.Username:
		return v.validateUsername(ctx, value, fields...)
	case *models.Username:
		return v.validateUsername(ctx, *value, fields...)

	default:
		return ErrUnsupportedType
	}
}

func (v *AccountValidator) validateRegisterRequest(_ context.Context, req models.RegisterRequest, fields ...string) error {
	if len(fields) == 0 {
		fields = []string{FieldEmail, FieldKey, FieldHashParams}
	}

	for _, f := range fields {
		switch f {
		case FieldEmail:
			if !validEmail(req.Email) {
				return ErrInvalidEmail
			}
		case FieldKey:
			if !validBase64Len(req.Key, ed25519.PublicKeySize) {
				return ErrInvalidKey
			}
		case FieldHashParams:
			if err := validateHashParams(req.HashParams); err != nil {
				return err
			}
		default:
			return ErrUnknownField
		}
	}
	return nil
}

func (v *AccountValidator) validateChallengeRequest(_ context.Context, req models.ChallengeRequest, fields ...string) error {
	if len(fields) == 0 {
		fields = []string{FieldEmail, FieldTOTPCode}
	}

	for _, f := range fields {
		switch f {
		case FieldEmail:
			if !validEmail(req.Email) {
				return ErrInvalidEmail
			}
		case FieldTOTPCode:
			if req.TOTPCode != nil && (*req.TOTPCode < 0 || *req.TOTPCode > maxTOTPCode) {
				return ErrInvalidTOTPCode
			}
		default:
			return ErrUnknownField
		}
	}
	return nil
}

func (v *AccountValidator) validateSignedChallenge(_ context.Context, req models.SignedChallenge, fields ...string) error {
	if len(fields) == 0 {
		fields = []string{FieldSignature}
	}

	for _, f := range fields {
		switch f {
		case FieldSignature:
			if !validBase64Len(req.Signature, ed25519.SignatureSize) {
				return ErrInvalidSignature
			}
		default:
			return ErrUnknownField
		}
	}
	return nil
}

func (v *AccountValidator) validateMasterKeys(_ context.Context, keys models.MasterKeys, fields ...string) error {
	if len(fields) == 0 {
		fields = []string{FieldPublicKey, FieldPrivateKey, FieldHashParams}
	}

	for _, f := range fields {
		switch f {
		case FieldPublicKey:
			if keys.PublicKey == "" {
				return ErrEmptyPublicKey
			}
		case FieldPrivateKey:
			if keys.PrivateKey == "" {
				return ErrEmptyPrivateKey
			}
		case FieldHashParams:
			if err := validateHashParams(keys.HashParams); err != nil {
				return err
			}
		default:
			return ErrUnknownField
		}
	}
	return nil
}

func (v *AccountValidator) validatePasswordUpdate(_ context.Context, update models.PasswordUpdate, fields ...string) error {
	if len(fields) == 0 {
		fields = []string{FieldKey, FieldPrivateKey, FieldHashParams, FieldSalts}
	}

	for _, f := range fields {
		switch f {
		case FieldKey:
			if !validBase64Len(update.AuthKey, ed25519.PublicKeySize) {
				return ErrInvalidKey
			}
		case FieldPrivateKey:
			if update.PrivateKey == "" {
				return ErrEmptyPrivateKey
			}
		case FieldHashParams:
			if err := validateHashParams(update.HashParams.Auth); err != nil {
				return fmt.Errorf("auth: %w", err)
			}
			if err := validateHashParams(update.HashParams.Crypto); err != nil {
				return fmt.Errorf("crypto: %w", err)
			}
		case FieldSalts:
			if update.HashParams.Auth.Salt == update.HashParams.Crypto.Salt {
				return ErrSaltReuse
			}
		default:
			return ErrUnknownField
		}
	}
	return nil
}

func (v *AccountValidator) validateUsername(_ context.Context, u models.Username, fields ...string) error {
	if len(fields) == 0 {
		fields = []string{FieldUsername}
	}

	for _, f := range fields {
		switch f {
		case FieldUsername:
			if !usernamePattern.MatchString(u.Username) {
				return ErrInvalidUsername
			}
		default:
			return ErrUnknownField
		}
	}
	return nil
}

func validateHashParams(p models.HashParams) error {
	switch {
	case p.Type != models.Argon2i && p.Type != models.Argon2id:
		return fmt.Errorf("%w: unknown type %q", ErrInvalidHashParams, p.Type)
	case p.TimeCost < 1:
		return fmt.Errorf("%w: time cost below 1", ErrInvalidHashParams)
	case p.Threads < 1:
		return fmt.Errorf("%w: no threads", ErrInvalidHashParams)
	case p.MemoryCost < 8*uint32(p.Threads):
		return fmt.Errorf("%w: memory cost too small", ErrInvalidHashParams)
	}
	salt, err := base64.StdEncoding.DecodeString(p.Salt)
	if err != nil || len(salt) < minSaltLength {
		return fmt.Errorf("%w: salt must be base64 of at least %d bytes", ErrInvalidHashParams, minSaltLength)
	}
	return nil
}

func validEmail(email string) bool {
	addr, err := mail.ParseAddress(email)
	return err == nil && addr.Address == email
}

func validBase64Len(s string, n int) bool {
	b, err := base64.StdEncoding.DecodeString(s)
	return err == nil && len(b) == n
}
