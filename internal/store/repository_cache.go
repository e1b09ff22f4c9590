package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	sq "github.com/Masterminds/squirrel"

	"github.com/MKhiriev/go-vault-sync/internal/logger"
)

const cacheTable = "cache_entries"

// cacheRepository is the SQL implementation of [CacheRepository].
type cacheRepository struct {
	db     *DB
	logger *logger.Logger
	now    func() time.Time
}

// NewCacheRepository constructs a [CacheRepository] over db.
func NewCacheRepository(db *DB, logger *logger.Logger) CacheRepository {
	logger.Debug().Msg("creating cache repository")
	return &cacheRepository{
		db:     db,
		logger: logger,
		now:    time.Now,
	}
}

func (r *cacheRepository) Get(ctx context.Context, namespace, key string) (CacheEntry, bool, error) {
	log := logger.FromContext(ctx)

	query, args, err := r.db.builder.
		Select("payload", "checksum", "updated_at").
		From(cacheTable).
		Where(sq.Eq{"namespace": namespace, "key": key}).
		ToSql()
	if err != nil {
		log.Err(err).Str("func", "*cacheRepository.Get").Msg("error building query")
		return CacheEntry{}, false, fmt.Errorf("%w: %w", ErrBuildingSQLQuery, err)
	}

	entry := CacheEntry{Namespace: namespace, Key: key}
	err = r.db.QueryRowContext(ctx, query, args...).Scan(&entry.Payload, &entry.Checksum, &entry.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return CacheEntry{}, false, nil
	}
	if err != nil {
		log.Err(err).Str("func", "*cacheRepository.Get").Str("namespace", namespace).Msg("error reading cache entry")
		return CacheEntry{}, false, fmt.Errorf("%w: %w", ErrScanningRow, err)
	}

	return entry, true, nil
}

func (r *cacheRepository) MustGet(ctx context.Context, namespace, key string) (CacheEntry, error) {
	entry, ok, err := r.Get(ctx, namespace, key)
	if err != nil {
		return CacheEntry{}, err
	}
	if !ok {
		return CacheEntry{}, fmt.Errorf("%w: %s/%s", ErrCacheEntryNotFound, namespace, key)
	}
	return entry, nil
}

func (r *cacheRepository) List(ctx context.Context, namespace string) ([]CacheEntry, error) {
	log := logger.FromContext(ctx)

	query, args, err := r.db.builder.
		Select("key", "payload", "checksum", "updated_at").
		From(cacheTable).
		Where(sq.Eq{"namespace": namespace}).
		OrderBy("key").
		ToSql()
	if err != nil {
		log.Err(err).Str("func", "*cacheRepository.List").Msg("error building query")
		return nil, fmt.Errorf("%w: %w", ErrBuildingSQLQuery, err)
	}

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		log.Err(err).Str("func", "*cacheRepository.List").Msg("error executing query")
		return nil, fmt.Errorf("%w: %w", ErrExecutingQuery, err)
	}
	defer rows.Close()

	var entries []CacheEntry
	for rows.Next() {
		entry := CacheEntry{Namespace: namespace}
		if err = rows.Scan(&entry.Key, &entry.Payload, &entry.Checksum, &entry.UpdatedAt); err != nil {
			log.Err(err).Str("func", "*cacheRepository.List").Msg("error scanning row")
			return nil, fmt.Errorf("%w: %w", ErrScanningRows, err)
		}
		entries = append(entries, entry)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrScanningRows, err)
	}

	return entries, nil
}

func (r *cacheRepository) Put(ctx context.Context, entry CacheEntry) error {
	log := logger.FromContext(ctx)

	if entry.UpdatedAt.IsZero() {
		entry.UpdatedAt = r.now().UTC()
	}

	query, args, err := r.db.builder.
		Insert(cacheTable).
		Columns("namespace", "key", "payload", "checksum", "updated_at").
		Values(entry.Namespace, entry.Key, entry.Payload, entry.Checksum, entry.UpdatedAt).
		Suffix("ON CONFLICT (namespace, key) DO UPDATE SET payload = excluded.payload, checksum = excluded.checksum, updated_at = excluded.updated_at").
		ToSql()
	if err != nil {
		log.Err(err).Str("func", "*cacheRepository.Put").Msg("error building query")
		return fmt.Errorf("%w: %w", ErrBuildingSQLQuery, err)
	}

	if _, err = r.db.ExecContext(ctx, query, args...); err != nil {
		log.Err(err).Str("func", "*cacheRepository.Put").Str("namespace", entry.Namespace).Msg("error writing cache entry")
		return fmt.Errorf("%w: %w", ErrExecutingStatement, err)
	}

	return nil
}

func (r *cacheRepository) Delete(ctx context.Context, namespace, key string) error {
	return r.delete(ctx, "*cacheRepository.Delete", sq.Eq{"namespace": namespace, "key": key})
}

func (r *cacheRepository) Clear(ctx context.Context, namespace string) error {
	if namespace == "" {
		return r.delete(ctx, "*cacheRepository.Clear", nil)
	}
	return r.delete(ctx, "*cacheRepository.Clear", sq.Eq{"namespace": namespace})
}

func (r *cacheRepository) delete(ctx context.Context, fn string, where sq.Sqlizer) error {
	log := logger.FromContext(ctx)

	builder := r.db.builder.Delete(cacheTable)
	if where != nil {
		builder = builder.Where(where)
	}

	query, args, err := builder.ToSql()
	if err != nil {
		log.Err(err).Str("func", fn).Msg("error building query")
		return fmt.Errorf("%w: %w", ErrBuildingSQLQuery, err)
	}

	if _, err = r.db.ExecContext(ctx, query, args...); err != nil {
		log.Err(err).Str("func", fn).Msg("error deleting cache entries")
		return fmt.Errorf("%w: %w", ErrExecutingStatement, err)
	}

	return nil
}
