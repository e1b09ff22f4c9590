package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/MKhiriev/go-vault-sync/internal/adapter"
	"github.com/MKhiriev/go-vault-sync/internal/validators"
	"github.com/MKhiriev/go-vault-sync/models"
)

// ErrUsernameTaken is returned when another account holds the username.
var ErrUsernameTaken = errors.New("username is already taken")

var accountValidator = validators.NewAccountValidator()

// ClaimUsername reserves a public username for the current account.
func ClaimUsername(ctx context.Context, s *AuthSession, name string) (models.Username, error) {
	if _, err := s.Current(); err != nil {
		return models.Username{}, err
	}
	if err := accountValidator.Validate(ctx, models.Username{Username: name}); err != nil {
		return models.Username{}, err
	}
	u, err := s.adapter.CreateUsername(ctx, name)
	if errors.Is(err, adapter.ErrConflict) {
		return models.Username{}, fmt.Errorf("%w: %s", ErrUsernameTaken, name)
	}
	if err != nil {
		return models.Username{}, transportError("create username", err)
	}
	return u, nil
}

// ReleaseUsername drops the username of the current account.
func ReleaseUsername(ctx context.Context, s *AuthSession) error {
	if _, err := s.Current(); err != nil {
		return err
	}
	return transportError("delete username", s.adapter.DeleteUsername(ctx))
}
