package validators

import "errors"

var (
	ErrUnsupportedType = errors.New("unsupported type for validation")
	ErrUnknownField    = errors.New("unknown field for validation")

	ErrInvalidEmail      = errors.New("invalid email")
	ErrInvalidKey        = errors.New("invalid signing key")
	ErrInvalidSignature  = errors.New("invalid signature")
	ErrInvalidTOTPCode   = errors.New("totp code must have six digits, or eight for a backup code")
	ErrInvalidHashParams = errors.New("invalid hash parameters")
	ErrEmptyPublicKey    = errors.New("public key is required")
	ErrEmptyPrivateKey   = errors.New("private key is required")
	ErrSaltReuse         = errors.New("auth and crypto salts must differ")
	ErrInvalidUsername   = errors.New("username must be 3 to 32 letters, digits, '_' or '-'")
)
