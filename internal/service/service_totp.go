package service

import (
	"context"
	"crypto/rand"
	"fmt"
	"math/big"
	"slices"
	"strconv"
	"time"

	"github.com/pquerna/otp"
	"github.com/pquerna/otp/totp"

	"github.com/MKhiriev/go-vault-sync/internal/logger"
	"github.com/MKhiriev/go-vault-sync/internal/utils"
	"github.com/MKhiriev/go-vault-sync/models"
)

const (
	totpPeriod = 30
	// totpSkew is the number of steps accepted on either side of now.
	totpSkew = 1

	backupCodeCount = 8
	backupCodeMax   = 100000000
)

var totpOpts = totp.ValidateOpts{
	Period:    totpPeriod,
	Skew:      totpSkew,
	Digits:    otp.DigitsSix,
	Algorithm: otp.AlgorithmSHA1,
}

// validTOTP checks a six-digit code against a base32 secret.
func validTOTP(secret string, code int, at time.Time) bool {
	if code < 0 || code > 999999 {
		return false
	}
	ok, err := totp.ValidateCustom(fmt.Sprintf("%06d", code), secret, at.UTC(), totpOpts)
	return err == nil && ok
}

// checkTOTP accepts a current TOTP code or consumes a matching backup code.
func (a *authService) checkTOTP(ctx context.Context, user models.User, code int) bool {
	if validTOTP(user.TOTPSecret, code, a.now()) {
		return true
	}

	hashed := utils.HashString(strconv.Itoa(code), a.tokenSignKey)
	i := slices.IndexFunc(user.TOTPBackupCodes, func(h string) bool { return utils.EqualHash(h, hashed) })
	if i < 0 {
		return false
	}
	remaining := slices.Delete(slices.Clone(user.TOTPBackupCodes), i, i+1)
	if err := a.users.SetTOTP(ctx, user.ID, user.TOTPSecret, remaining); err != nil {
		logger.FromContext(ctx).Err(err).Str("func", "*authService.checkTOTP").Msg("backup code not consumed")
		return false
	}
	logger.FromContext(ctx).Info().Str("user_id", user.ID).Int("left", len(remaining)).Msg("backup code used")
	return true
}

// EnableTOTP generates a new secret and backup codes for the elevated
// session p, replacing any previous ones.
func (a *authService) EnableTOTP(ctx context.Context, p utils.Principal) (models.TOTPInfo, error) {
	if p.AuthLevel < models.AuthLevelElevated {
		return models.TOTPInfo{}, ErrElevationRequired
	}
	user, err := a.users.FindUserByID(ctx, p.UserID)
	if err != nil {
		return models.TOTPInfo{}, err
	}

	key, err := totp.Generate(totp.GenerateOpts{
		Issuer:      a.tokenIssuer,
		AccountName: user.Email,
		Period:      totpPeriod,
		Digits:      otp.DigitsSix,
		Algorithm:   otp.AlgorithmSHA1,
	})
	if err != nil {
		return models.TOTPInfo{}, fmt.Errorf("generate totp secret: %w", err)
	}

	codes := make([]int, backupCodeCount)
	hashes := make([]string, backupCodeCount)
	for i := range codes {
		n, err := rand.Int(rand.Reader, big.NewInt(backupCodeMax))
		if err != nil {
			return models.TOTPInfo{}, fmt.Errorf("generate backup code: %w", err)
		}
		codes[i] = int(n.Int64())
		hashes[i] = utils.HashString(strconv.Itoa(codes[i]), a.tokenSignKey)
	}

	if err = a.users.SetTOTP(ctx, user.ID, key.Secret(), hashes); err != nil {
		return models.TOTPInfo{}, err
	}
	logger.FromContext(ctx).Info().Str("user_id", user.ID).Msg("totp enabled")
	return models.TOTPInfo{Secret: key.Secret(), URI: key.URL(), BackupCodes: codes}, nil
}

// DisableTOTP clears the secret and backup codes of the elevated session p.
func (a *authService) DisableTOTP(ctx context.Context, p utils.Principal) error {
	if p.AuthLevel < models.AuthLevelElevated {
		return ErrElevationRequired
	}
	if err := a.users.SetTOTP(ctx, p.UserID, "", nil); err != nil {
		return err
	}
	logger.FromContext(ctx).Info().Str("user_id", p.UserID).Msg("totp disabled")
	return nil
}
