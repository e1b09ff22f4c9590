package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	sq "github.com/Masterminds/squirrel"

	"github.com/MKhiriev/go-vault-sync/internal/logger"
	"github.com/MKhiriev/go-vault-sync/models"
)

const masterKeysTable = "master_keys"

type masterKeysRepository struct {
	logger *logger.Logger
	db     *DB
}

// NewMasterKeysRepository constructs a [MasterKeysRepository] backed by db.
func NewMasterKeysRepository(db *DB, logger *logger.Logger) MasterKeysRepository {
	logger.Debug().Msg("creating master keys repository")
	return &masterKeysRepository{db: db, logger: logger}
}

func (r *masterKeysRepository) Get(ctx context.Context, userID string) (models.MasterKeys, error) {
	log := logger.FromContext(ctx)

	query, args, err := r.db.builder.
		Select("public_key", "private_key", "hash_params").
		From(masterKeysTable).
		Where(sq.Eq{"user_id": userID}).
		ToSql()
	if err != nil {
		return models.MasterKeys{}, fmt.Errorf("%w: %w", ErrBuildingSQLQuery, err)
	}

	var (
		keys   models.MasterKeys
		params string
	)
	err = r.db.QueryRowContext(ctx, query, args...).Scan(&keys.PublicKey, &keys.PrivateKey, &params)
	if errors.Is(err, sql.ErrNoRows) {
		return models.MasterKeys{}, ErrMasterKeysNotFound
	}
	if err != nil {
		log.Err(err).Str("func", "*masterKeysRepository.Get").Msg("error scanning master keys")
		return models.MasterKeys{}, fmt.Errorf("%w: %w", ErrScanningRow, err)
	}

	if err = json.Unmarshal([]byte(params), &keys.HashParams); err != nil {
		return models.MasterKeys{}, fmt.Errorf("error decoding hash params: %w", err)
	}

	return keys, nil
}

// Save inserts or replaces the keys of userID.
func (r *masterKeysRepository) Save(ctx context.Context, userID string, keys models.MasterKeys) error {
	log := logger.FromContext(ctx)

	params, err := json.Marshal(keys.HashParams)
	if err != nil {
		return fmt.Errorf("error encoding hash params: %w", err)
	}

	query, args, err := r.db.builder.
		Insert(masterKeysTable).
		Columns("user_id", "public_key", "private_key", "hash_params").
		Values(userID, keys.PublicKey, keys.PrivateKey, string(params)).
		Suffix("ON CONFLICT (user_id) DO UPDATE SET public_key = excluded.public_key, private_key = excluded.private_key, hash_params = excluded.hash_params").
		ToSql()
	if err != nil {
		return fmt.Errorf("%w: %w", ErrBuildingSQLQuery, err)
	}

	if _, err = r.db.ExecContext(ctx, query, args...); err != nil {
		log.Err(err).Str("func", "*masterKeysRepository.Save").Msg("error saving master keys")
		return fmt.Errorf("%w: %w", ErrExecutingStatement, err)
	}

	return nil
}
