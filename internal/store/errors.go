package store

import "errors"

// Sentinel errors returned by repository methods to signal well-known failure
// conditions. Callers should use [errors.Is] to match against these values.
var (
	// ErrCacheEntryNotFound is returned by MustGet when no entry exists for
	// the namespace and key.
	ErrCacheEntryNotFound = errors.New("cache entry was not found")

	// ErrEmailAlreadyExists is returned when a registration collides with an
	// existing account email.
	ErrEmailAlreadyExists = errors.New("email already exists")

	// ErrUsernameTaken is returned when a username is already claimed.
	ErrUsernameTaken = errors.New("username is already taken")

	// ErrNoUserWasFound is returned when a query expected to match a user
	// produces an empty result set.
	ErrNoUserWasFound = errors.New("no user was found")

	// ErrMasterKeysNotFound is returned when a user has not stored master
	// keys yet.
	ErrMasterKeysNotFound = errors.New("master keys were not found")

	// ErrChallengeNotFound is returned when a challenge id is unknown or was
	// already consumed.
	ErrChallengeNotFound = errors.New("challenge was not found")

	// ErrSessionNotFound is returned when a session id is unknown.
	ErrSessionNotFound = errors.New("session was not found")

	// ErrDocumentNotFound is returned when a document id is unknown within
	// the user collection.
	ErrDocumentNotFound = errors.New("document was not found")

	// ErrIndexOutOfRange is returned when a move target lies outside the
	// collection.
	ErrIndexOutOfRange = errors.New("index out of range")
)

// Low-level database operation errors.
var (
	// ErrBuildingSQLQuery is returned when squirrel fails to render a query.
	ErrBuildingSQLQuery = errors.New("error building sql query")

	// ErrExecutingQuery is returned when executing a SELECT fails.
	ErrExecutingQuery = errors.New("error executing sql query")

	// ErrBeginningTransaction is returned when the driver cannot start a
	// transaction.
	ErrBeginningTransaction = errors.New("failed to begin transaction")

	// ErrCommitingTransaction is returned when committing a transaction fails.
	ErrCommitingTransaction = errors.New("failed to commit transaction")

	// ErrExecutingStatement is returned when an INSERT, UPDATE or DELETE fails.
	ErrExecutingStatement = errors.New("failed to executing statement")

	// ErrScanningRow is returned when scanning a single row fails.
	ErrScanningRow = errors.New("failed to scan row")

	// ErrScanningRows is returned when scanning during row iteration fails.
	ErrScanningRows = errors.New("failed to scan rows")

	// ErrUnsupportedDialect is returned for a DSN no driver is registered for.
	ErrUnsupportedDialect = errors.New("unsupported database dialect")
)
