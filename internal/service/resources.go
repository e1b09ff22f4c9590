package service

import (
	"cmp"
	"context"
	"slices"
	"time"

	"github.com/MKhiriev/go-vault-sync/internal/crypto"
	"github.com/MKhiriev/go-vault-sync/internal/logger"
	"github.com/MKhiriev/go-vault-sync/internal/store"
	"github.com/MKhiriev/go-vault-sync/models"
)

// Cache namespaces of the resource types.
const (
	NamespaceLists          = "lists"
	NamespaceTags           = "tags"
	NamespaceName           = "name"
	NamespaceProfilePicture = "profile-picture"
	NamespaceCustomerID     = "customer-id"
)

// EngineOption adjusts the options of a resource store.
type EngineOption func(*EngineOptions)

// WithSaveTimings overrides the Saving delay and the Saved hold.
func WithSaveTimings(savingDelay, savedHold time.Duration) EngineOption {
	return func(o *EngineOptions) {
		o.SavingDelay = savingDelay
		o.SavedHold = savedHold
	}
}

func engineOptions(base EngineOptions, opts []EngineOption) EngineOptions {
	for _, opt := range opts {
		opt(&base)
	}
	return base
}

// ── Lists ────────────────────────────────────────────────────────────────────

// ListStore holds the ordered todo lists.
type ListStore struct {
	*Engine[models.List, models.EncryptedList]
}

// NewListStore builds a ListStore.
func NewListStore(
	transport ResourceTransport[models.EncryptedList],
	keys KeyProvider,
	keychain crypto.KeyChainService,
	cache store.CacheRepository,
	log *logger.Logger,
	opts ...EngineOption,
) *ListStore {
	o := engineOptions(EngineOptions{Name: "lists", Namespace: NamespaceLists, Ordered: true, Cacheable: true}, opts)
	return &ListStore{NewEngine(o, NewListCodec(keychain), transport, keys, keychain, cache, log)}
}

// Init loads the lists matching filter. An empty filter means unarchived.
func (s *ListStore) Init(ctx context.Context, who models.Authenticated, filter models.ListFilter) error {
	if filter == "" {
		filter = models.ListFilterUnarchived
	}
	return s.Engine.Init(ctx, who, string(filter))
}

// Archive sets the archived flag of id and commits it.
func (s *ListStore) Archive(ctx context.Context, id string, archived bool) error {
	if err := s.Update(id, func(l *models.List) { l.Archived = archived }); err != nil {
		return err
	}
	return s.Commit(ctx, id)
}

// Items returns the items of id in display order.
func (s *ListStore) Items(id string) ([]models.ListItem, error) {
	r, err := s.MustGet(id)
	if err != nil {
		return nil, err
	}
	items := slices.Clone(r.Data.Items)
	if r.Data.ReverseItems {
		slices.Reverse(items)
	}
	return items, nil
}

// ItemsTotal counts the items of every held list.
func (s *ListStore) ItemsTotal() int {
	total := 0
	for _, r := range s.All() {
		total += len(r.Data.Items)
	}
	return total
}

// Visible returns the lists in index order, hiding archived ones unless
// showArchived is set.
func (s *ListStore) Visible(showArchived, reverse bool) []Resource[models.List] {
	out := slices.DeleteFunc(s.Ordered(), func(r Resource[models.List]) bool {
		return r.Data.Archived && !showArchived
	})
	if reverse {
		slices.Reverse(out)
	}
	return out
}

// ── Tags ─────────────────────────────────────────────────────────────────────

// TagStore holds the item tags.
type TagStore struct {
	*Engine[models.Tag, models.EncryptedTag]
}

// NewTagStore builds a TagStore.
func NewTagStore(
	transport ResourceTransport[models.EncryptedTag],
	keys KeyProvider,
	keychain crypto.KeyChainService,
	cache store.CacheRepository,
	log *logger.Logger,
	opts ...EngineOption,
) *TagStore {
	o := engineOptions(EngineOptions{Name: "tags", Namespace: NamespaceTags, Cacheable: true}, opts)
	return &TagStore{NewEngine(o, NewTagCodec(keychain), transport, keys, keychain, cache, log)}
}

// ── Singletons ───────────────────────────────────────────────────────────────

// NameStore holds the name set of the account.
type NameStore struct {
	*Engine[models.Name, models.EncryptedName]
}

// NewNameStore builds a NameStore.
func NewNameStore(
	transport ResourceTransport[models.EncryptedName],
	keys KeyProvider,
	keychain crypto.KeyChainService,
	cache store.CacheRepository,
	log *logger.Logger,
	opts ...EngineOption,
) *NameStore {
	o := engineOptions(EngineOptions{Name: "name", Namespace: NamespaceName, Singleton: true, Cacheable: true}, opts)
	return &NameStore{NewEngine(o, NewNameCodec(keychain), transport, keys, keychain, cache, log)}
}

// Save creates or replaces the name set.
func (s *NameStore) Save(ctx context.Context, who models.Authenticated, name models.Name) error {
	return saveSingleton(ctx, s.Engine, who, name)
}

// ProfilePictureStore holds the profile picture of the account.
type ProfilePictureStore struct {
	*Engine[models.ProfilePicture, models.EncryptedProfilePicture]
}

// NewProfilePictureStore builds a ProfilePictureStore.
func NewProfilePictureStore(
	transport ResourceTransport[models.EncryptedProfilePicture],
	keys KeyProvider,
	keychain crypto.KeyChainService,
	cache store.CacheRepository,
	log *logger.Logger,
	opts ...EngineOption,
) *ProfilePictureStore {
	o := engineOptions(EngineOptions{
		Name:      "profile picture",
		Namespace: NamespaceProfilePicture,
		Singleton: true,
		Cacheable: true,
	}, opts)
	return &ProfilePictureStore{NewEngine(o, NewProfilePictureCodec(keychain), transport, keys, keychain, cache, log)}
}

// Save uploads a new picture.
func (s *ProfilePictureStore) Save(ctx context.Context, who models.Authenticated, picture models.ProfilePicture) error {
	return saveSingleton(ctx, s.Engine, who, picture)
}

// CustomerIDStore holds the payment customer record of the account.
type CustomerIDStore struct {
	*Engine[models.CustomerID, models.EncryptedCustomerID]
}

// NewCustomerIDStore builds a CustomerIDStore.
func NewCustomerIDStore(
	transport ResourceTransport[models.EncryptedCustomerID],
	keys KeyProvider,
	keychain crypto.KeyChainService,
	cache store.CacheRepository,
	log *logger.Logger,
	opts ...EngineOption,
) *CustomerIDStore {
	o := engineOptions(EngineOptions{
		Name:      "customer id",
		Namespace: NamespaceCustomerID,
		Singleton: true,
		Cacheable: true,
	}, opts)
	return &CustomerIDStore{NewEngine(o, NewCustomerIDCodec(keychain), transport, keys, keychain, cache, log)}
}

// Save stores the customer record.
func (s *CustomerIDStore) Save(ctx context.Context, who models.Authenticated, id models.CustomerID) error {
	return saveSingleton(ctx, s.Engine, who, id)
}

func saveSingleton[T any, E models.Document](ctx context.Context, e *Engine[T, E], who models.Authenticated, data T) error {
	if _, ok := e.Get(who.ID); !ok {
		_, err := e.Create(ctx, who, data)
		return err
	}
	if err := e.Update(who.ID, func(t *T) { *t = data }); err != nil {
		return err
	}
	return e.Commit(ctx, who.ID)
}

// ── Sessions ─────────────────────────────────────────────────────────────────

// SessionStore lists the sessions of the account. Sessions change on every
// request and are never cached.
type SessionStore struct {
	*Engine[models.Session, models.SessionDocument]
}

// NewSessionStore builds a SessionStore.
func NewSessionStore(
	transport ResourceTransport[models.SessionDocument],
	keys KeyProvider,
	keychain crypto.KeyChainService,
	cache store.CacheRepository,
	log *logger.Logger,
	opts ...EngineOption,
) *SessionStore {
	o := engineOptions(EngineOptions{Name: "sessions"}, opts)
	return &SessionStore{NewEngine(o, NewSessionCodec(keychain), transport, keys, keychain, cache, log)}
}

// Describe attaches an encrypted client description to session id.
func (s *SessionStore) Describe(ctx context.Context, id string, meta models.SessionClientMeta) error {
	if err := s.Update(id, func(sess *models.Session) { sess.ClientMeta = &meta }); err != nil {
		return err
	}
	return s.Commit(ctx, id)
}

// Revoke ends session id.
func (s *SessionStore) Revoke(ctx context.Context, id string) error {
	return s.Delete(ctx, id)
}

// ByLastUse returns the sessions, most recently used first.
func (s *SessionStore) ByLastUse() []Resource[models.Session] {
	out := s.Ordered()
	slices.SortStableFunc(out, func(a, b Resource[models.Session]) int {
		return cmp.Compare(b.Data.LastUsedAt, a.Data.LastUsedAt)
	})
	return out
}
