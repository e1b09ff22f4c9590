package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/MKhiriev/go-vault-sync/internal/logger"
	"github.com/MKhiriev/go-vault-sync/internal/store"
	"github.com/MKhiriev/go-vault-sync/internal/utils"
	"github.com/MKhiriev/go-vault-sync/internal/validators"
	"github.com/MKhiriev/go-vault-sync/models"
)

type accountService struct {
	users      store.UserRepository
	masterKeys store.MasterKeysRepository
	validator  validators.Validator
	logger     *logger.Logger
}

// NewAccountService constructs an AccountService.
func NewAccountService(users store.UserRepository, masterKeys store.MasterKeysRepository, log *logger.Logger) AccountService {
	return &accountService{
		users:      users,
		masterKeys: masterKeys,
		validator:  validators.NewAccountValidator(),
		logger:     log.WithComponent("account-service"),
	}
}

func (s *accountService) GetMasterKeys(ctx context.Context, p utils.Principal) (models.MasterKeys, error) {
	return s.masterKeys.Get(ctx, p.UserID)
}

// SaveMasterKeys stores the first keypair of an account. Later keypairs only
// arrive through ChangePassword.
func (s *accountService) SaveMasterKeys(ctx context.Context, p utils.Principal, keys models.MasterKeys) error {
	if err := s.validator.Validate(ctx, keys); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidDataProvided, err)
	}

	_, err := s.masterKeys.Get(ctx, p.UserID)
	switch {
	case err == nil:
		return ErrKeysAlreadyStored
	case !errors.Is(err, store.ErrMasterKeysNotFound):
		return err
	}

	if err = s.masterKeys.Save(ctx, p.UserID, keys); err != nil {
		logger.FromContext(ctx).Err(err).Str("func", "*accountService.SaveMasterKeys").Msg("saving master keys failed")
		return err
	}
	return nil
}

// ChangePassword replaces the auth key and rewraps the master private key.
// The public key never changes. The session must be elevated.
func (s *accountService) ChangePassword(ctx context.Context, p utils.Principal, update models.PasswordUpdate) error {
	log := logger.FromContext(ctx)

	if p.AuthLevel < models.AuthLevelElevated {
		return ErrElevationRequired
	}
	if err := s.validator.Validate(ctx, update); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidDataProvided, err)
	}

	current, err := s.masterKeys.Get(ctx, p.UserID)
	if err != nil {
		return err
	}

	if err = s.users.UpdateCredentials(ctx, p.UserID, update.AuthKey, update.HashParams.Auth); err != nil {
		log.Err(err).Str("func", "*accountService.ChangePassword").Msg("credential update failed")
		return err
	}

	err = s.masterKeys.Save(ctx, p.UserID, models.MasterKeys{
		PublicKey:  current.PublicKey,
		PrivateKey: update.PrivateKey,
		HashParams: update.HashParams.Crypto,
	})
	if err != nil {
		log.Err(err).Str("func", "*accountService.ChangePassword").Msg("master key rewrap failed")
		return err
	}

	log.Info().Str("user_id", p.UserID).Msg("password changed")
	return nil
}

func (s *accountService) ClaimUsername(ctx context.Context, p utils.Principal, username string) (models.Username, error) {
	claim := models.Username{Username: username}
	if err := s.validator.Validate(ctx, claim); err != nil {
		return models.Username{}, fmt.Errorf("%w: %w", ErrInvalidDataProvided, err)
	}

	if err := s.users.SetUsername(ctx, p.UserID, &username); err != nil {
		if errors.Is(err, store.ErrUsernameTaken) {
			return models.Username{}, ErrUsernameTaken
		}
		return models.Username{}, err
	}
	return claim, nil
}

func (s *accountService) ReleaseUsername(ctx context.Context, p utils.Principal) error {
	return s.users.SetUsername(ctx, p.UserID, nil)
}
