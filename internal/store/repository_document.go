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

const documentsTable = "documents"

var documentColumns = []string{
	"user_id", "collection", "id", "body", "checksum", "idx", "archived", "created_at",
}

// documentRepository keeps ordered collections dense: indices are always
// 0..n-1 in created order until a Move.
type documentRepository struct {
	logger *logger.Logger
	db     *DB
}

// NewDocumentRepository constructs a [DocumentRepository] backed by db.
func NewDocumentRepository(db *DB, logger *logger.Logger) DocumentRepository {
	logger.Debug().Msg("creating document repository")
	return &documentRepository{db: db, logger: logger}
}

func (r *documentRepository) List(ctx context.Context, userID, collection string) ([]models.StoredDocument, error) {
	return r.list(ctx, r.db.DB, userID, collection)
}

type queryer interface {
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
}

func (r *documentRepository) list(ctx context.Context, q queryer, userID, collection string) ([]models.StoredDocument, error) {
	log := logger.FromContext(ctx)

	query, args, err := r.db.builder.
		Select(documentColumns...).
		From(documentsTable).
		Where(sq.Eq{"user_id": userID, "collection": collection}).
		OrderBy("idx", "created_at", "id").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrBuildingSQLQuery, err)
	}

	rows, err := q.QueryContext(ctx, query, args...)
	if err != nil {
		log.Err(err).Str("func", "*documentRepository.List").Msg("error executing query")
		return nil, fmt.Errorf("%w: %w", ErrExecutingQuery, err)
	}
	defer rows.Close()

	docs := make([]models.StoredDocument, 0)
	for rows.Next() {
		doc, err := scanDocument(rows)
		if err != nil {
			log.Err(err).Str("func", "*documentRepository.List").Msg("error scanning row")
			return nil, fmt.Errorf("%w: %w", ErrScanningRows, err)
		}
		docs = append(docs, doc)
	}

	return docs, rows.Err()
}

func (r *documentRepository) Get(ctx context.Context, userID, collection, id string) (models.StoredDocument, error) {
	log := logger.FromContext(ctx)

	query, args, err := r.db.builder.
		Select(documentColumns...).
		From(documentsTable).
		Where(sq.Eq{"user_id": userID, "collection": collection, "id": id}).
		ToSql()
	if err != nil {
		return models.StoredDocument{}, fmt.Errorf("%w: %w", ErrBuildingSQLQuery, err)
	}

	doc, err := scanDocument(r.db.QueryRowContext(ctx, query, args...))
	if errors.Is(err, sql.ErrNoRows) {
		return models.StoredDocument{}, ErrDocumentNotFound
	}
	if err != nil {
		log.Err(err).Str("func", "*documentRepository.Get").Msg("error scanning document")
		return models.StoredDocument{}, fmt.Errorf("%w: %w", ErrScanningRow, err)
	}

	return doc, nil
}

// Create inserts doc. When doc.Index is set the document is appended after
// the current last index.
func (r *documentRepository) Create(ctx context.Context, doc models.StoredDocument) (models.StoredDocument, error) {
	log := logger.FromContext(ctx)

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return models.StoredDocument{}, fmt.Errorf("%w: %w", ErrBeginningTransaction, err)
	}
	defer tx.Rollback()

	if doc.Index != nil {
		countQuery, args, err := r.db.builder.
			Select("COUNT(*)").
			From(documentsTable).
			Where(sq.Eq{"user_id": doc.UserID, "collection": doc.Collection}).
			ToSql()
		if err != nil {
			return models.StoredDocument{}, fmt.Errorf("%w: %w", ErrBuildingSQLQuery, err)
		}
		var count int
		if err = tx.QueryRowContext(ctx, countQuery, args...).Scan(&count); err != nil {
			return models.StoredDocument{}, fmt.Errorf("%w: %w", ErrScanningRow, err)
		}
		doc.Index = &count
	}
	if doc.CreatedAt.IsZero() {
		doc.CreatedAt = time.Now().UTC()
	}

	query, args, err := r.db.builder.
		Insert(documentsTable).
		Columns(documentColumns...).
		Values(doc.UserID, doc.Collection, doc.ID, doc.Body, doc.Checksum, doc.Index, doc.Archived, doc.CreatedAt).
		ToSql()
	if err != nil {
		return models.StoredDocument{}, fmt.Errorf("%w: %w", ErrBuildingSQLQuery, err)
	}
	if _, err = tx.ExecContext(ctx, query, args...); err != nil {
		log.Err(err).Str("func", "*documentRepository.Create").Msg("error inserting document")
		return models.StoredDocument{}, fmt.Errorf("%w: %w", ErrExecutingStatement, err)
	}

	if err = tx.Commit(); err != nil {
		return models.StoredDocument{}, fmt.Errorf("%w: %w", ErrCommitingTransaction, err)
	}

	return doc, nil
}

// Update replaces body, checksum and archived flag. The index is left as is.
func (r *documentRepository) Update(ctx context.Context, doc models.StoredDocument) (models.StoredDocument, error) {
	log := logger.FromContext(ctx)

	query, args, err := r.db.builder.
		Update(documentsTable).
		SetMap(sq.Eq{"body": doc.Body, "checksum": doc.Checksum, "archived": doc.Archived}).
		Where(sq.Eq{"user_id": doc.UserID, "collection": doc.Collection, "id": doc.ID}).
		ToSql()
	if err != nil {
		return models.StoredDocument{}, fmt.Errorf("%w: %w", ErrBuildingSQLQuery, err)
	}

	res, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		log.Err(err).Str("func", "*documentRepository.Update").Msg("error updating document")
		return models.StoredDocument{}, fmt.Errorf("%w: %w", ErrExecutingStatement, err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return models.StoredDocument{}, ErrDocumentNotFound
	}

	return r.Get(ctx, doc.UserID, doc.Collection, doc.ID)
}

// Delete removes a document and closes the gap it leaves in the ordering.
func (r *documentRepository) Delete(ctx context.Context, userID, collection, id string) error {
	log := logger.FromContext(ctx)

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrBeginningTransaction, err)
	}
	defer tx.Rollback()

	query, args, err := r.db.builder.
		Delete(documentsTable).
		Where(sq.Eq{"user_id": userID, "collection": collection, "id": id}).
		ToSql()
	if err != nil {
		return fmt.Errorf("%w: %w", ErrBuildingSQLQuery, err)
	}

	res, err := tx.ExecContext(ctx, query, args...)
	if err != nil {
		log.Err(err).Str("func", "*documentRepository.Delete").Msg("error deleting document")
		return fmt.Errorf("%w: %w", ErrExecutingStatement, err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return ErrDocumentNotFound
	}

	docs, err := r.list(ctx, tx, userID, collection)
	if err != nil {
		return err
	}
	if err = r.renumber(ctx, tx, docs); err != nil {
		return err
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("%w: %w", ErrCommitingTransaction, err)
	}

	return nil
}

// Move places id at index and renumbers the collection 0..n-1. Index must
// lie in [0, n-1].
func (r *documentRepository) Move(ctx context.Context, userID, collection, id string, index int) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrBeginningTransaction, err)
	}
	defer tx.Rollback()

	docs, err := r.list(ctx, tx, userID, collection)
	if err != nil {
		return err
	}

	from := -1
	for i, doc := range docs {
		if doc.ID == id {
			from = i
			break
		}
	}
	if from < 0 {
		return ErrDocumentNotFound
	}
	if index < 0 || index > len(docs)-1 {
		return fmt.Errorf("%w: %d not in [0, %d]", ErrIndexOutOfRange, index, len(docs)-1)
	}

	moved := docs[from]
	docs = append(docs[:from], docs[from+1:]...)
	docs = append(docs[:index], append([]models.StoredDocument{moved}, docs[index:]...)...)

	if err = r.renumber(ctx, tx, docs); err != nil {
		return err
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("%w: %w", ErrCommitingTransaction, err)
	}

	return nil
}

func (r *documentRepository) renumber(ctx context.Context, tx *sql.Tx, docs []models.StoredDocument) error {
	log := logger.FromContext(ctx)

	for i, doc := range docs {
		if doc.Index == nil || *doc.Index == i {
			continue
		}
		query, args, err := r.db.builder.
			Update(documentsTable).
			Set("idx", i).
			Where(sq.Eq{"user_id": doc.UserID, "collection": doc.Collection, "id": doc.ID}).
			ToSql()
		if err != nil {
			return fmt.Errorf("%w: %w", ErrBuildingSQLQuery, err)
		}
		if _, err = tx.ExecContext(ctx, query, args...); err != nil {
			log.Err(err).Str("func", "*documentRepository.renumber").Msg("error renumbering documents")
			return fmt.Errorf("%w: %w", ErrExecutingStatement, err)
		}
	}

	return nil
}

func scanDocument(row rowScanner) (models.StoredDocument, error) {
	var (
		doc models.StoredDocument
		idx sql.NullInt64
	)
	if err := row.Scan(&doc.UserID, &doc.Collection, &doc.ID, &doc.Body, &doc.Checksum, &idx, &doc.Archived, &doc.CreatedAt); err != nil {
		return models.StoredDocument{}, err
	}
	if idx.Valid {
		i := int(idx.Int64)
		doc.Index = &i
	}
	return doc, nil
}
