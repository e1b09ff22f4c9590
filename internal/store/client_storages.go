package store

import (
	"context"
	"fmt"

	"github.com/MKhiriev/go-vault-sync/internal/config"
	"github.com/MKhiriev/go-vault-sync/internal/logger"
	"github.com/MKhiriev/go-vault-sync/migrations"
)

// ClientStorages bundles the local cache repositories of the sync client.
type ClientStorages struct {
	Cache CacheRepository
	KV    KVRepository

	db *DB
}

// NewClientStorages connects to the local cache database, applies the client
// migrations and builds the repositories.
func NewClientStorages(ctx context.Context, cfg config.ClientDB, log *logger.Logger) (*ClientStorages, error) {
	db, err := NewConnect(ctx, cfg.DSN, log)
	if err != nil {
		return nil, fmt.Errorf("error connecting to local cache: %w", err)
	}

	if err = db.Migrate(migrations.Client); err != nil {
		log.Err(err).Str("func", "NewClientStorages").Msg("error migrating local cache")
		db.Close()
		return nil, err
	}

	return &ClientStorages{
		Cache: NewCacheRepository(db, log),
		KV:    NewKVRepository(db, log),
		db:    db,
	}, nil
}

// Close releases the underlying connection.
func (s *ClientStorages) Close() error {
	if s.db == nil {
		return nil
	}
	return s.db.Close()
}
