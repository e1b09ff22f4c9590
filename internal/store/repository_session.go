package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	sq "github.com/Masterminds/squirrel"

	"github.com/MKhiriev/go-vault-sync/internal/logger"
	"github.com/MKhiriev/go-vault-sync/models"
)

const sessionsTable = "sessions"

var sessionColumns = []string{
	"id", "user_id", "auth_level", "csrf_token", "created_at", "last_used_at", "elevated_until", "meta",
}

type sessionRepository struct {
	logger *logger.Logger
	db     *DB
}

// NewSessionRepository constructs a [SessionRepository] backed by db.
func NewSessionRepository(db *DB, logger *logger.Logger) SessionRepository {
	logger.Debug().Msg("creating session repository")
	return &sessionRepository{db: db, logger: logger}
}

func (r *sessionRepository) Create(ctx context.Context, s models.StoredSession) error {
	log := logger.FromContext(ctx)

	query, args, err := r.db.builder.
		Insert(sessionsTable).
		Columns(sessionColumns...).
		Values(s.ID, s.UserID, int(s.AuthLevel), s.CSRFToken, s.CreatedAt, s.LastUsedAt, s.ElevatedUntil, s.Meta).
		ToSql()
	if err != nil {
		return fmt.Errorf("%w: %w", ErrBuildingSQLQuery, err)
	}

	if _, err = r.db.ExecContext(ctx, query, args...); err != nil {
		log.Err(err).Str("func", "*sessionRepository.Create").Msg("error inserting session")
		return fmt.Errorf("%w: %w", ErrExecutingStatement, err)
	}

	return nil
}

func (r *sessionRepository) Get(ctx context.Context, id string) (models.StoredSession, error) {
	log := logger.FromContext(ctx)

	query, args, err := r.db.builder.Select(sessionColumns...).From(sessionsTable).Where(sq.Eq{"id": id}).ToSql()
	if err != nil {
		return models.StoredSession{}, fmt.Errorf("%w: %w", ErrBuildingSQLQuery, err)
	}

	s, err := scanSession(r.db.QueryRowContext(ctx, query, args...))
	if errors.Is(err, sql.ErrNoRows) {
		return models.StoredSession{}, ErrSessionNotFound
	}
	if err != nil {
		log.Err(err).Str("func", "*sessionRepository.Get").Msg("error scanning session")
		return models.StoredSession{}, fmt.Errorf("%w: %w", ErrScanningRow, err)
	}

	return s, nil
}

func (r *sessionRepository) ListByUser(ctx context.Context, userID string) ([]models.StoredSession, error) {
	log := logger.FromContext(ctx)

	query, args, err := r.db.builder.
		Select(sessionColumns...).
		From(sessionsTable).
		Where(sq.Eq{"user_id": userID}).
		OrderBy("created_at").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrBuildingSQLQuery, err)
	}

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		log.Err(err).Str("func", "*sessionRepository.ListByUser").Msg("error executing query")
		return nil, fmt.Errorf("%w: %w", ErrExecutingQuery, err)
	}
	defer rows.Close()

	var sessions []models.StoredSession
	for rows.Next() {
		s, err := scanSession(rows)
		if err != nil {
			return nil, fmt.Errorf("%w: %w", ErrScanningRows, err)
		}
		sessions = append(sessions, s)
	}

	return sessions, rows.Err()
}

func (r *sessionRepository) Touch(ctx context.Context, id string, at time.Time) error {
	return r.update(ctx, "*sessionRepository.Touch", sq.Eq{"id": id}, sq.Eq{"last_used_at": at})
}

func (r *sessionRepository) Elevate(ctx context.Context, id string, until time.Time) error {
	return r.update(ctx, "*sessionRepository.Elevate", sq.Eq{"id": id},
		sq.Eq{"auth_level": int(models.AuthLevelElevated), "elevated_until": until})
}

func (r *sessionRepository) Downgrade(ctx context.Context, id string) error {
	return r.update(ctx, "*sessionRepository.Downgrade", sq.Eq{"id": id},
		sq.Eq{"auth_level": int(models.AuthLevelNormal), "elevated_until": nil})
}

func (r *sessionRepository) SetMeta(ctx context.Context, id, meta string) error {
	return r.update(ctx, "*sessionRepository.SetMeta", sq.Eq{"id": id}, sq.Eq{"meta": meta})
}

// Delete removes session id of userID.
func (r *sessionRepository) Delete(ctx context.Context, userID, id string) error {
	log := logger.FromContext(ctx)

	query, args, err := r.db.builder.Delete(sessionsTable).Where(sq.Eq{"id": id, "user_id": userID}).ToSql()
	if err != nil {
		return fmt.Errorf("%w: %w", ErrBuildingSQLQuery, err)
	}

	res, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		log.Err(err).Str("func", "*sessionRepository.Delete").Msg("error deleting session")
		return fmt.Errorf("%w: %w", ErrExecutingStatement, err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return ErrSessionNotFound
	}

	return nil
}

func (r *sessionRepository) update(ctx context.Context, fn string, where sq.Eq, values sq.Eq) error {
	log := logger.FromContext(ctx)

	query, args, err := r.db.builder.Update(sessionsTable).SetMap(values).Where(where).ToSql()
	if err != nil {
		return fmt.Errorf("%w: %w", ErrBuildingSQLQuery, err)
	}

	res, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		log.Err(err).Str("func", fn).Msg("error updating session")
		return fmt.Errorf("%w: %w", ErrExecutingStatement, err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return ErrSessionNotFound
	}

	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanSession(row rowScanner) (models.StoredSession, error) {
	var (
		s        models.StoredSession
		level    int
		elevated sql.NullTime
	)
	if err := row.Scan(&s.ID, &s.UserID, &level, &s.CSRFToken, &s.CreatedAt, &s.LastUsedAt, &elevated, &s.Meta); err != nil {
		return models.StoredSession{}, err
	}
	s.AuthLevel = models.AuthLevel(level)
	if elevated.Valid {
		s.ElevatedUntil = &elevated.Time
	}
	return s, nil
}
