package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	sq "github.com/Masterminds/squirrel"

	"github.com/MKhiriev/go-vault-sync/internal/logger"
	"github.com/MKhiriev/go-vault-sync/models"
)

const challengesTable = "challenges"

type challengeRepository struct {
	logger *logger.Logger
	db     *DB
}

// NewChallengeRepository constructs a [ChallengeRepository] backed by db.
func NewChallengeRepository(db *DB, logger *logger.Logger) ChallengeRepository {
	logger.Debug().Msg("creating challenge repository")
	return &challengeRepository{db: db, logger: logger}
}

func (r *challengeRepository) Create(ctx context.Context, c models.StoredChallenge) error {
	log := logger.FromContext(ctx)

	query, args, err := r.db.builder.
		Insert(challengesTable).
		Columns("id", "user_id", "data", "kind", "session_id", "expires_at").
		Values(c.ID, c.UserID, c.Data, string(c.Kind), c.SessionID, c.ExpiresAt).
		ToSql()
	if err != nil {
		return fmt.Errorf("%w: %w", ErrBuildingSQLQuery, err)
	}

	if _, err = r.db.ExecContext(ctx, query, args...); err != nil {
		log.Err(err).Str("func", "*challengeRepository.Create").Msg("error inserting challenge")
		return fmt.Errorf("%w: %w", ErrExecutingStatement, err)
	}

	return nil
}

// Take returns the challenge and deletes it, so a second Take of the same id
// yields [ErrChallengeNotFound].
func (r *challengeRepository) Take(ctx context.Context, id string) (models.StoredChallenge, error) {
	log := logger.FromContext(ctx)

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		log.Err(err).Str("func", "*challengeRepository.Take").Msg("error beginning transaction")
		return models.StoredChallenge{}, fmt.Errorf("%w: %w", ErrBeginningTransaction, err)
	}
	defer tx.Rollback()

	selectQuery, args, err := r.db.builder.
		Select("id", "user_id", "data", "kind", "session_id", "expires_at").
		From(challengesTable).
		Where(sq.Eq{"id": id}).
		ToSql()
	if err != nil {
		return models.StoredChallenge{}, fmt.Errorf("%w: %w", ErrBuildingSQLQuery, err)
	}

	var (
		c    models.StoredChallenge
		kind string
	)
	err = tx.QueryRowContext(ctx, selectQuery, args...).Scan(&c.ID, &c.UserID, &c.Data, &kind, &c.SessionID, &c.ExpiresAt)
	if errors.Is(err, sql.ErrNoRows) {
		return models.StoredChallenge{}, ErrChallengeNotFound
	}
	if err != nil {
		log.Err(err).Str("func", "*challengeRepository.Take").Msg("error scanning challenge")
		return models.StoredChallenge{}, fmt.Errorf("%w: %w", ErrScanningRow, err)
	}
	c.Kind = models.ChallengeKind(kind)

	deleteQuery, args, err := r.db.builder.Delete(challengesTable).Where(sq.Eq{"id": id}).ToSql()
	if err != nil {
		return models.StoredChallenge{}, fmt.Errorf("%w: %w", ErrBuildingSQLQuery, err)
	}
	if _, err = tx.ExecContext(ctx, deleteQuery, args...); err != nil {
		log.Err(err).Str("func", "*challengeRepository.Take").Msg("error deleting challenge")
		return models.StoredChallenge{}, fmt.Errorf("%w: %w", ErrExecutingStatement, err)
	}

	if err = tx.Commit(); err != nil {
		return models.StoredChallenge{}, fmt.Errorf("%w: %w", ErrCommitingTransaction, err)
	}

	return c, nil
}
