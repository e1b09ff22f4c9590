package store

import (
	"context"
	"fmt"

	"github.com/MKhiriev/go-vault-sync/internal/config"
	"github.com/MKhiriev/go-vault-sync/internal/logger"
	"github.com/MKhiriev/go-vault-sync/migrations"
)

// Storages bundles the repositories of the reference server.
type Storages struct {
	Users      UserRepository
	MasterKeys MasterKeysRepository
	Challenges ChallengeRepository
	Sessions   SessionRepository
	Documents  DocumentRepository

	db *DB
}

// NewStorages connects to the server database, applies the server
// migrations and builds the repositories.
func NewStorages(ctx context.Context, cfg config.Storage, log *logger.Logger) (*Storages, error) {
	db, err := NewConnect(ctx, cfg.DB.DSN, log)
	if err != nil {
		return nil, fmt.Errorf("error connecting to database: %w", err)
	}

	if err = db.Migrate(migrations.Server); err != nil {
		log.Err(err).Str("func", "NewStorages").Msg("error migrating database")
		db.Close()
		return nil, err
	}

	return NewStoragesFromDB(db, log), nil
}

// NewStoragesFromDB builds the repositories over an already migrated db.
func NewStoragesFromDB(db *DB, log *logger.Logger) *Storages {
	return &Storages{
		Users:      NewUserRepository(db, log),
		MasterKeys: NewMasterKeysRepository(db, log),
		Challenges: NewChallengeRepository(db, log),
		Sessions:   NewSessionRepository(db, log),
		Documents:  NewDocumentRepository(db, log),
		db:         db,
	}
}

// Ping checks the database connection.
func (s *Storages) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// Close releases the underlying connection.
func (s *Storages) Close() error {
	return s.db.Close()
}
