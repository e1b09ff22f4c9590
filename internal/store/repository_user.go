package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	sq "github.com/Masterminds/squirrel"

	"github.com/MKhiriev/go-vault-sync/internal/logger"
	"github.com/MKhiriev/go-vault-sync/models"
)

const usersTable = "users"

var userColumns = []string{
	"id", "email", "auth_key", "hash_params", "verified", "confirmed",
	"account_type", "totp_secret", "totp_backup_codes", "username", "created_at",
}

// userRepository is the SQL implementation of [UserRepository].
type userRepository struct {
	logger *logger.Logger
	db     *DB
}

// NewUserRepository constructs a [UserRepository] backed by db.
func NewUserRepository(db *DB, logger *logger.Logger) UserRepository {
	logger.Debug().Msg("creating user repository")
	return &userRepository{
		db:     db,
		logger: logger,
	}
}

// CreateUser inserts a new account. A duplicate email maps to
// [ErrEmailAlreadyExists].
func (r *userRepository) CreateUser(ctx context.Context, user models.User) (models.User, error) {
	log := logger.FromContext(ctx)

	params, err := json.Marshal(user.HashParams)
	if err != nil {
		return models.User{}, fmt.Errorf("error encoding hash params: %w", err)
	}
	codes, err := encodeBackupCodes(user.TOTPBackupCodes)
	if err != nil {
		return models.User{}, err
	}
	if user.CreatedAt.IsZero() {
		user.CreatedAt = time.Now().UTC()
	}

	query, args, err := r.db.builder.
		Insert(usersTable).
		Columns(userColumns...).
		Values(user.ID, user.Email, user.AuthKey, string(params), user.Verified, user.Confirmed,
			user.AccountType, user.TOTPSecret, codes, user.Username, user.CreatedAt).
		ToSql()
	if err != nil {
		return models.User{}, fmt.Errorf("%w: %w", ErrBuildingSQLQuery, err)
	}

	if _, err = r.db.ExecContext(ctx, query, args...); err != nil {
		log.Err(err).Str("func", "*userRepository.CreateUser").Msg("error inserting user")
		if r.db.isUniqueViolation(err) {
			return models.User{}, ErrEmailAlreadyExists
		}
		return models.User{}, fmt.Errorf("unexpected DB error: %w", err)
	}

	return user, nil
}

func (r *userRepository) FindUserByEmail(ctx context.Context, email string) (models.User, error) {
	return r.findOne(ctx, "*userRepository.FindUserByEmail", sq.Eq{"email": email})
}

func (r *userRepository) FindUserByID(ctx context.Context, id string) (models.User, error) {
	return r.findOne(ctx, "*userRepository.FindUserByID", sq.Eq{"id": id})
}

func (r *userRepository) findOne(ctx context.Context, fn string, where sq.Eq) (models.User, error) {
	log := logger.FromContext(ctx)

	query, args, err := r.db.builder.Select(userColumns...).From(usersTable).Where(where).ToSql()
	if err != nil {
		return models.User{}, fmt.Errorf("%w: %w", ErrBuildingSQLQuery, err)
	}

	var (
		user     models.User
		params   string
		codes    string
		username sql.NullString
	)
	err = r.db.QueryRowContext(ctx, query, args...).Scan(
		&user.ID, &user.Email, &user.AuthKey, &params, &user.Verified, &user.Confirmed,
		&user.AccountType, &user.TOTPSecret, &codes, &username, &user.CreatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return models.User{}, ErrNoUserWasFound
	}
	if err != nil {
		log.Err(err).Str("func", fn).Msg("error scanning user")
		return models.User{}, fmt.Errorf("%w: %w", ErrScanningRow, err)
	}

	if err = json.Unmarshal([]byte(params), &user.HashParams); err != nil {
		return models.User{}, fmt.Errorf("error decoding hash params: %w", err)
	}
	if codes != "" {
		if err = json.Unmarshal([]byte(codes), &user.TOTPBackupCodes); err != nil {
			return models.User{}, fmt.Errorf("error decoding totp backup codes: %w", err)
		}
	}
	if username.Valid {
		user.Username = &username.String
	}

	return user, nil
}

func (r *userRepository) UpdateCredentials(ctx context.Context, id, authKey string, params models.HashParams) error {
	encoded, err := json.Marshal(params)
	if err != nil {
		return fmt.Errorf("error encoding hash params: %w", err)
	}
	return r.update(ctx, "*userRepository.UpdateCredentials", id, sq.Eq{"auth_key": authKey, "hash_params": string(encoded)})
}

func (r *userRepository) SetAccountType(ctx context.Context, id string, accountType int) error {
	return r.update(ctx, "*userRepository.SetAccountType", id, sq.Eq{"account_type": accountType})
}

func (r *userRepository) ConfirmUser(ctx context.Context, id string) error {
	return r.update(ctx, "*userRepository.ConfirmUser", id, sq.Eq{"confirmed": true, "verified": true})
}

// SetTOTP stores the TOTP secret and backup code hashes of id. An empty
// secret disables TOTP.
func (r *userRepository) SetTOTP(ctx context.Context, id, secret string, backupCodes []string) error {
	codes, err := encodeBackupCodes(backupCodes)
	if err != nil {
		return err
	}
	return r.update(ctx, "*userRepository.SetTOTP", id, sq.Eq{"totp_secret": secret, "totp_backup_codes": codes})
}

func encodeBackupCodes(codes []string) (string, error) {
	if len(codes) == 0 {
		return "", nil
	}
	encoded, err := json.Marshal(codes)
	if err != nil {
		return "", fmt.Errorf("error encoding totp backup codes: %w", err)
	}
	return string(encoded), nil
}

// SetUsername claims or releases (nil) a username. A taken name maps to
// [ErrUsernameTaken].
func (r *userRepository) SetUsername(ctx context.Context, id string, username *string) error {
	err := r.update(ctx, "*userRepository.SetUsername", id, sq.Eq{"username": username})
	if err != nil && r.db.isUniqueViolation(err) {
		return ErrUsernameTaken
	}
	return err
}

func (r *userRepository) update(ctx context.Context, fn, id string, values sq.Eq) error {
	log := logger.FromContext(ctx)

	query, args, err := r.db.builder.Update(usersTable).SetMap(values).Where(sq.Eq{"id": id}).ToSql()
	if err != nil {
		return fmt.Errorf("%w: %w", ErrBuildingSQLQuery, err)
	}

	res, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		log.Err(err).Str("func", fn).Msg("error updating user")
		return fmt.Errorf("%w: %w", ErrExecutingStatement, err)
	}

	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return ErrNoUserWasFound
	}

	return nil
}
