package service

import (
	"context"

	"github.com/MKhiriev/go-vault-sync/internal/config"
	"github.com/MKhiriev/go-vault-sync/internal/crypto"
	"github.com/MKhiriev/go-vault-sync/internal/logger"
	"github.com/MKhiriev/go-vault-sync/internal/store"
)

// Services bundles the reference server services.
type Services struct {
	AuthService     AuthService
	AccountService  AccountService
	SessionService  SessionService
	DocumentService DocumentService

	signer   *crypto.ED25519Worker
	storages *store.Storages
}

// NewServices wires the server services over storages. Close must be called
// to stop the signature worker.
func NewServices(storages *store.Storages, cfg config.ServerApp, logger *logger.Logger) *Services {
	signer := crypto.NewED25519Worker(cfg.Development)

	return &Services{
		AuthService: NewAuthService(storages.Users, storages.Challenges, storages.Sessions,
			signer, crypto.NewKeyChainService(), cfg, logger),
		AccountService:  NewAccountService(storages.Users, storages.MasterKeys, logger),
		SessionService:  NewSessionService(storages.Sessions, logger),
		DocumentService: NewDocumentService(storages.Documents, storages.Users, logger),
		signer:          signer,
		storages:        storages,
	}
}

// Close stops the background workers.
func (s *Services) Close() {
	s.signer.Close()
}

// Ping reports whether the backing database answers.
func (s *Services) Ping(ctx context.Context) error {
	return s.storages.Ping(ctx)
}
