package store

import (
	"context"
	"time"

	"github.com/MKhiriev/go-vault-sync/models"
)

// CacheEntry is one cached resource payload.
type CacheEntry struct {
	Namespace string
	Key       string
	Payload   []byte
	Checksum  string
	UpdatedAt time.Time
}

// CacheRepository is the local namespaced cache of decrypted resources.
type CacheRepository interface {
	// Get returns the entry and whether it exists.
	Get(ctx context.Context, namespace, key string) (CacheEntry, bool, error)
	// MustGet returns ErrCacheEntryNotFound when the entry is absent.
	MustGet(ctx context.Context, namespace, key string) (CacheEntry, error)
	// List returns every entry of a namespace.
	List(ctx context.Context, namespace string) ([]CacheEntry, error)
	// Put inserts or replaces an entry.
	Put(ctx context.Context, entry CacheEntry) error
	Delete(ctx context.Context, namespace, key string) error
	// Clear drops a namespace, or everything when namespace is empty.
	Clear(ctx context.Context, namespace string) error
}

// KVRepository stores small client values such as the CSRF token.
type KVRepository interface {
	Get(ctx context.Context, key string) (string, bool, error)
	Set(ctx context.Context, key, value string) error
	Delete(ctx context.Context, key string) error
}

// UserRepository persists reference server accounts.
type UserRepository interface {
	CreateUser(ctx context.Context, user models.User) (models.User, error)
	FindUserByEmail(ctx context.Context, email string) (models.User, error)
	FindUserByID(ctx context.Context, id string) (models.User, error)
	UpdateCredentials(ctx context.Context, id, authKey string, params models.HashParams) error
	SetAccountType(ctx context.Context, id string, accountType int) error
	ConfirmUser(ctx context.Context, id string) error
	SetUsername(ctx context.Context, id string, username *string) error
	SetTOTP(ctx context.Context, id, secret string, backupCodes []string) error
}

// MasterKeysRepository persists the wrapped master keypair of each user.
type MasterKeysRepository interface {
	Get(ctx context.Context, userID string) (models.MasterKeys, error)
	Save(ctx context.Context, userID string, keys models.MasterKeys) error
}

// ChallengeRepository holds issued challenges until they are answered.
type ChallengeRepository interface {
	Create(ctx context.Context, challenge models.StoredChallenge) error
	// Take fetches and deletes a challenge in one transaction.
	Take(ctx context.Context, id string) (models.StoredChallenge, error)
}

// SessionRepository persists server sessions.
type SessionRepository interface {
	Create(ctx context.Context, session models.StoredSession) error
	Get(ctx context.Context, id string) (models.StoredSession, error)
	ListByUser(ctx context.Context, userID string) ([]models.StoredSession, error)
	Touch(ctx context.Context, id string, at time.Time) error
	Elevate(ctx context.Context, id string, until time.Time) error
	Downgrade(ctx context.Context, id string) error
	SetMeta(ctx context.Context, id, meta string) error
	Delete(ctx context.Context, userID, id string) error
}

// DocumentRepository persists encrypted documents grouped by collection.
type DocumentRepository interface {
	List(ctx context.Context, userID, collection string) ([]models.StoredDocument, error)
	Get(ctx context.Context, userID, collection, id string) (models.StoredDocument, error)
	// Create appends the document at the end of the collection order.
	Create(ctx context.Context, doc models.StoredDocument) (models.StoredDocument, error)
	Update(ctx context.Context, doc models.StoredDocument) (models.StoredDocument, error)
	Delete(ctx context.Context, userID, collection, id string) error
	// Move relocates a document to index, renumbering the others densely.
	Move(ctx context.Context, userID, collection, id string, index int) error
}
