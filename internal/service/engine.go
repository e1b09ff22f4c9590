package service

import (
	"cmp"
	"context"
	"encoding/json"
	"fmt"
	"maps"
	"slices"
	"sync"
	"time"

	"github.com/MKhiriev/go-vault-sync/internal/crypto"
	"github.com/MKhiriev/go-vault-sync/internal/logger"
	"github.com/MKhiriev/go-vault-sync/internal/state"
	"github.com/MKhiriev/go-vault-sync/internal/store"
	"github.com/MKhiriev/go-vault-sync/models"
)

const (
	defaultSavingDelay = 500 * time.Millisecond
	defaultSavedHold   = 500 * time.Millisecond

	// FilterAll lists every resource of a collection. Only a full listing
	// prunes resources missing remotely.
	FilterAll = "all"
)

// Codec converts between the decrypted form T of a resource and its wire
// document E.
type Codec[T any, E models.Document] interface {
	// Encrypt seals data under key. wrappedKey is the resource key wrapped
	// under the master public key, or empty when the API already holds it.
	Encrypt(data T, key []byte, wrappedKey string) (E, error)
	// Decrypt opens doc with key. key is nil for documents without a
	// wrapped key.
	Decrypt(doc E, key []byte) (T, error)
	// NeedsKey reports whether data has at least one encrypted field.
	NeedsKey(data T) bool
}

// ResourceTransport is the remote side of an Engine. Collections use List,
// Create, Patch and Delete. Singletons use Fetch, Save and Remove.
type ResourceTransport[E any] interface {
	List(ctx context.Context, filter string) ([]E, error)
	Create(ctx context.Context, body any) (models.StateResponse, error)
	Patch(ctx context.Context, id string, body any) (models.StateResponse, error)
	Delete(ctx context.Context, id string) error
	Fetch(ctx context.Context) (E, bool, error)
	Save(ctx context.Context, body any) (models.StateResponse, error)
	Remove(ctx context.Context) error
}

// KeyProvider hands out the unlocked master keypair.
type KeyProvider interface {
	MasterKeys() (*MasterKeypair, error)
}

// Resource is one decrypted resource as held in memory.
type Resource[T any] struct {
	ID        string
	Data      T
	Key       []byte
	Checksum  string
	Index     *int
	SaveState models.SaveState

	// edits counts Update calls so a commit can tell whether it sent the
	// latest data.
	edits uint64
}

type cachedResource[T any] struct {
	ID    string `json:"id"`
	Data  T      `json:"data"`
	Key   []byte `json:"key,omitempty"`
	Index *int   `json:"index,omitempty"`
}

// EngineOptions describe one resource type.
type EngineOptions struct {
	// Name is used in logs and error messages.
	Name string
	// Namespace is the cache namespace.
	Namespace string
	Ordered   bool
	Singleton bool
	// Cacheable resources are mirrored to the local cache.
	Cacheable bool
	// SavingDelay is how long a commit may run before Saving is published.
	SavingDelay time.Duration
	// SavedHold is how long Saved is shown before returning to Clean.
	SavedHold time.Duration
}

// Engine synchronizes one resource type between the API, the local cache
// and an observable in-memory map keyed by resource id. Singletons are keyed
// by user id.
type Engine[T any, E models.Document] struct {
	opts      EngineOptions
	codec     Codec[T, E]
	transport ResourceTransport[E]
	keys      KeyProvider
	keychain  crypto.KeyChainService
	cache     store.CacheRepository
	logger    *logger.Logger

	state *state.State[map[string]Resource[T]]
	locks sync.Map

	mu         sync.Mutex
	needsRetry bool
	lastFilter string
}

// NewEngine builds an empty Engine.
func NewEngine[T any, E models.Document](
	opts EngineOptions,
	codec Codec[T, E],
	transport ResourceTransport[E],
	keys KeyProvider,
	keychain crypto.KeyChainService,
	cache store.CacheRepository,
	log *logger.Logger,
) *Engine[T, E] {
	if opts.SavingDelay <= 0 {
		opts.SavingDelay = defaultSavingDelay
	}
	if opts.SavedHold <= 0 {
		opts.SavedHold = defaultSavedHold
	}
	return &Engine[T, E]{
		opts:      opts,
		codec:     codec,
		transport: transport,
		keys:      keys,
		keychain:  keychain,
		cache:     cache,
		logger:    log.WithComponent(opts.Name),
		state:     state.New(map[string]Resource[T]{}),
	}
}

// Name returns the resource type name.
func (e *Engine[T, E]) Name() string {
	return e.opts.Name
}

// Init loads the remote resources and reconciles them with memory and the
// cache. Resources whose checksum matches a held copy are not decrypted.
// A resource that fails to load is skipped and the engine is flagged for a
// retry; the returned error then wraps ErrPartialSync.
func (e *Engine[T, E]) Init(ctx context.Context, who models.Authenticated, filter string) error {
	if e.opts.Singleton {
		return e.initSingleton(ctx, who)
	}

	log := e.logger.With().Str("func", "Engine.Init").Str("filter", filter).Logger()

	e.mu.Lock()
	e.lastFilter = filter
	e.mu.Unlock()

	docs, err := e.transport.List(ctx, filter)
	if err != nil {
		e.setRetry(true)
		return transportError("list "+e.opts.Name, err)
	}

	current := e.state.Get()
	loaded := make(map[string]Resource[T], len(docs))
	var failed []string
	for _, doc := range docs {
		id := doc.DocumentID()
		existing, has := current[id]
		r, err := e.reconcile(ctx, id, doc, existing, has)
		if err != nil {
			log.Error().Err(err).Str("id", id).Msg("skipping resource")
			failed = append(failed, id)
			continue
		}
		loaded[id] = r
	}

	complete := filter == "" || filter == FilterAll
	e.state.Update(func(m map[string]Resource[T]) map[string]Resource[T] {
		if !complete {
			next := maps.Clone(m)
			maps.Copy(next, loaded)
			return next
		}
		next := maps.Clone(loaded)
		for _, id := range failed {
			if r, ok := m[id]; ok {
				next[id] = r
			}
		}
		return next
	})

	if complete && len(failed) == 0 {
		e.pruneCache(ctx, loaded)
	}

	if len(failed) > 0 {
		e.setRetry(true)
		return fmt.Errorf("%w: %s: %d of %d", ErrPartialSync, e.opts.Name, len(failed), len(docs))
	}
	e.setRetry(false)
	log.Debug().Int("count", len(loaded)).Msg("resources loaded")
	return nil
}

func (e *Engine[T, E]) initSingleton(ctx context.Context, who models.Authenticated) error {
	doc, ok, err := e.transport.Fetch(ctx)
	if err != nil {
		e.setRetry(true)
		return transportError("fetch "+e.opts.Name, err)
	}
	if !ok {
		e.state.Set(map[string]Resource[T]{})
		if e.opts.Cacheable {
			if err = e.cache.Delete(ctx, e.opts.Namespace, who.ID); err != nil {
				e.logger.Warn().Err(err).Str("func", "Engine.initSingleton").Msg("cache delete failed")
			}
		}
		e.setRetry(false)
		return nil
	}

	existing, has := e.state.Get()[who.ID]
	r, err := e.reconcile(ctx, who.ID, doc, existing, has)
	if err != nil {
		e.setRetry(true)
		return fmt.Errorf("%w: %s: %w", ErrPartialSync, e.opts.Name, err)
	}
	e.state.Set(map[string]Resource[T]{who.ID: r})
	e.setRetry(false)
	return nil
}

// reconcile returns the decrypted form of doc, reusing a held copy when the
// checksums match. The remote index always wins.
func (e *Engine[T, E]) reconcile(ctx context.Context, id string, doc E, existing Resource[T], has bool) (Resource[T], error) {
	meta := doc.DocumentMeta()

	if has && meta.Checksum != "" && existing.Checksum == meta.Checksum {
		existing.Index = meta.Index
		return existing, nil
	}

	if e.opts.Cacheable && meta.Checksum != "" {
		r, ok, err := e.readCache(ctx, id)
		if err != nil {
			e.logger.Warn().Err(err).Str("func", "Engine.reconcile").Str("id", id).Msg("ignoring unreadable cache entry")
		}
		if ok && r.Checksum == meta.Checksum {
			r.Index = meta.Index
			return r, nil
		}
	}

	var key []byte
	if meta.CryptoKey != "" {
		mk, err := e.keys.MasterKeys()
		if err != nil {
			return Resource[T]{}, err
		}
		if key, err = e.keychain.UnwrapKey(meta.CryptoKey, mk.PrivateKey); err != nil {
			return Resource[T]{}, fmt.Errorf("unwrap key: %w", err)
		}
	}
	data, err := e.codec.Decrypt(doc, key)
	if err != nil {
		return Resource[T]{}, fmt.Errorf("decrypt: %w", err)
	}

	r := Resource[T]{ID: id, Data: data, Key: key, Checksum: meta.Checksum, Index: meta.Index}
	e.writeCache(ctx, r)
	return r, nil
}

// Create encrypts data under a new resource key and stores it remotely, then
// in the cache and in memory. It returns the new id, or the user id for a
// singleton.
func (e *Engine[T, E]) Create(ctx context.Context, who models.Authenticated, data T) (string, error) {
	key, wrapped, err := e.resourceKey(nil, data, true)
	if err != nil {
		return "", err
	}
	doc, err := e.codec.Encrypt(data, key, wrapped)
	if err != nil {
		return "", err
	}

	var (
		res models.StateResponse
		id  string
	)
	if e.opts.Singleton {
		res, err = e.transport.Save(ctx, doc)
		id = who.ID
	} else {
		res, err = e.transport.Create(ctx, doc)
		id = res.ID
	}
	if err != nil {
		return "", transportError("create "+e.opts.Name, err)
	}

	r := Resource[T]{ID: id, Data: data, Key: key, Checksum: res.Meta.Checksum, Index: res.Meta.Index}
	e.writeCache(ctx, r)
	e.state.Update(func(m map[string]Resource[T]) map[string]Resource[T] {
		next := maps.Clone(m)
		next[id] = r
		return next
	})
	return id, nil
}

// Update mutates the in-memory copy of id and marks it dirty. Nothing is
// sent until Commit. fn must not call back into the engine.
func (e *Engine[T, E]) Update(id string, fn func(*T)) error {
	found := false
	e.state.Update(func(m map[string]Resource[T]) map[string]Resource[T] {
		r, ok := m[id]
		if !ok {
			return m
		}
		found = true
		next := maps.Clone(m)
		fn(&r.Data)
		r.SaveState = models.Dirty
		r.edits++
		next[id] = r
		return next
	})
	if !found {
		return fmt.Errorf("%w: %s %s", ErrResourceNotFound, e.opts.Name, id)
	}
	return nil
}

// Commit re-encrypts the whole in-memory copy of id and sends it. Saving is
// published only when the request outlasts SavingDelay.
func (e *Engine[T, E]) Commit(ctx context.Context, id string) error {
	unlock := e.lock(id)
	defer unlock()

	r, ok := e.Get(id)
	if !ok {
		return fmt.Errorf("%w: %s %s", ErrResourceNotFound, e.opts.Name, id)
	}

	savingTimer := time.AfterFunc(e.opts.SavingDelay, func() {
		e.setSaveState(id, models.Saving, models.Clean, models.Dirty)
	})

	res, key, err := e.push(ctx, r)
	savingTimer.Stop()
	if err != nil {
		e.setSaveState(id, models.SaveError)
		return err
	}

	// The cache mirrors what the API stored: the pushed snapshot, not edits
	// made while the request was in flight.
	sent := r
	if res.Meta.Checksum != "" {
		sent.Checksum = res.Meta.Checksum
	}
	sent.Key = key

	stale := false
	e.state.Update(func(m map[string]Resource[T]) map[string]Resource[T] {
		cur, ok := m[id]
		if !ok {
			return m
		}
		next := maps.Clone(m)
		cur.Checksum = sent.Checksum
		cur.Key = key
		if cur.edits == r.edits {
			cur.SaveState = models.Saved
		} else {
			cur.SaveState = models.Dirty
			stale = true
		}
		next[id] = cur
		return next
	})
	e.writeCache(ctx, sent)

	if stale {
		e.logger.Debug().Str("func", "Engine.Commit").Str("id", id).Msg("edited during commit, still dirty")
		return nil
	}
	time.AfterFunc(e.opts.SavedHold, func() {
		e.setSaveState(id, models.Clean, models.Saved)
	})
	return nil
}

func (e *Engine[T, E]) push(ctx context.Context, r Resource[T]) (models.StateResponse, []byte, error) {
	key, wrapped, err := e.resourceKey(r.Key, r.Data, e.opts.Singleton)
	if err != nil {
		return models.StateResponse{}, nil, err
	}
	doc, err := e.codec.Encrypt(r.Data, key, wrapped)
	if err != nil {
		return models.StateResponse{}, nil, err
	}

	var res models.StateResponse
	if e.opts.Singleton {
		res, err = e.transport.Save(ctx, doc)
	} else {
		res, err = e.transport.Patch(ctx, r.ID, doc)
	}
	if err != nil {
		return models.StateResponse{}, nil, transportError("commit "+e.opts.Name, err)
	}
	return res, key, nil
}

// resourceKey returns the key to encrypt data with and, when the API must
// learn it, its wrapped form. A key is generated on demand.
func (e *Engine[T, E]) resourceKey(key []byte, data T, sendWrapped bool) ([]byte, string, error) {
	if key == nil && !e.codec.NeedsKey(data) {
		return nil, "", nil
	}
	mk, err := e.keys.MasterKeys()
	if err != nil {
		return nil, "", err
	}
	if key == nil {
		if key, err = e.keychain.GenerateKey(); err != nil {
			return nil, "", err
		}
		sendWrapped = true
	}
	if !sendWrapped {
		return key, "", nil
	}
	wrapped, err := e.keychain.WrapKey(key, mk.PublicKey)
	if err != nil {
		return nil, "", err
	}
	return key, wrapped, nil
}

// Delete removes id remotely first. The cache and memory are only touched
// once the API confirmed; a failed delete leaves the resource intact.
func (e *Engine[T, E]) Delete(ctx context.Context, id string) error {
	unlock := e.lock(id)
	defer unlock()

	removed, ok := e.Get(id)
	if !ok {
		return nil
	}

	var err error
	if e.opts.Singleton {
		err = e.transport.Remove(ctx)
	} else {
		err = e.transport.Delete(ctx, id)
	}
	if err != nil {
		return transportError("delete "+e.opts.Name, err)
	}

	if e.opts.Cacheable {
		if err = e.cache.Delete(ctx, e.opts.Namespace, id); err != nil {
			e.logger.Warn().Err(err).Str("func", "Engine.Delete").Str("id", id).Msg("cache delete failed")
		}
	}

	e.state.Update(func(m map[string]Resource[T]) map[string]Resource[T] {
		next := maps.Clone(m)
		delete(next, id)
		if e.opts.Ordered && removed.Index != nil {
			for sid, r := range next {
				if r.Index != nil && *r.Index > *removed.Index {
					r.Index = models.IntPtr(*r.Index - 1)
					next[sid] = r
				}
			}
		}
		return next
	})
	return nil
}

// Move places id at index and shifts the siblings in between by one. The
// local order is restored when the API rejects the move.
func (e *Engine[T, E]) Move(ctx context.Context, id string, index int) error {
	if !e.opts.Ordered {
		return ErrNotOrdered
	}
	unlock := e.lock(id)
	defer unlock()

	ordered := e.Ordered()
	byIndex := make(map[int]string, len(ordered))
	maxIndex := len(ordered) - 1
	from := -1
	for _, r := range ordered {
		if r.Index == nil {
			continue
		}
		byIndex[*r.Index] = r.ID
		maxIndex = max(maxIndex, *r.Index)
		if r.ID == id {
			from = *r.Index
		}
	}
	if index < 0 || index > maxIndex {
		return fmt.Errorf("%w: %d not in [0, %d]", ErrIndexOutOfRange, index, maxIndex)
	}
	if from < 0 {
		return fmt.Errorf("%w: %s %s", ErrResourceNotFound, e.opts.Name, id)
	}
	if from == index {
		return nil
	}

	moves := shiftIndices(byIndex, id, from, index, maxIndex+1)
	previous := make(map[string]int, len(moves))
	for _, r := range ordered {
		if _, ok := moves[r.ID]; ok && r.Index != nil {
			previous[r.ID] = *r.Index
		}
	}
	e.applyIndices(moves)

	body := map[string]any{"meta": map[string]any{"index": index}}
	res, err := e.transport.Patch(ctx, id, body)
	if err != nil {
		e.applyIndices(previous)
		return transportError("move "+e.opts.Name, err)
	}

	e.state.Update(func(m map[string]Resource[T]) map[string]Resource[T] {
		r, ok := m[id]
		if !ok || res.Meta.Checksum == "" {
			return m
		}
		next := maps.Clone(m)
		r.Checksum = res.Meta.Checksum
		next[id] = r
		return next
	})
	current := e.state.Get()
	for sid := range moves {
		if r, ok := current[sid]; ok && !slices.Contains([]models.SaveState{models.Dirty, models.Saving, models.SaveError}, r.SaveState) {
			e.writeCache(ctx, r)
		}
	}
	return nil
}

// shiftIndices computes the new index of every resource touched by moving
// id from o to n. The moved resource is parked at park while the siblings
// in (o, n] shift down or those in [n, o) shift up.
func shiftIndices(byIndex map[int]string, id string, o, n, park int) map[string]int {
	moves := map[string]int{id: park}
	if n > o {
		for i := o + 1; i <= n; i++ {
			if sid, ok := byIndex[i]; ok {
				moves[sid] = i - 1
			}
		}
	} else {
		for i := o - 1; i >= n; i-- {
			if sid, ok := byIndex[i]; ok {
				moves[sid] = i + 1
			}
		}
	}
	moves[id] = n
	return moves
}

func (e *Engine[T, E]) applyIndices(indices map[string]int) {
	e.state.Update(func(m map[string]Resource[T]) map[string]Resource[T] {
		next := maps.Clone(m)
		for id, i := range indices {
			if r, ok := next[id]; ok {
				r.Index = models.IntPtr(i)
				next[id] = r
			}
		}
		return next
	})
}

// Get returns the in-memory copy of id.
func (e *Engine[T, E]) Get(id string) (Resource[T], bool) {
	r, ok := e.state.Get()[id]
	return r, ok
}

// MustGet is Get for ids that must exist.
func (e *Engine[T, E]) MustGet(id string) (Resource[T], error) {
	r, ok := e.Get(id)
	if !ok {
		return Resource[T]{}, fmt.Errorf("%w: %s %s", ErrResourceNotFound, e.opts.Name, id)
	}
	return r, nil
}

// Current returns the resource of a singleton engine.
func (e *Engine[T, E]) Current() (Resource[T], bool) {
	for _, r := range e.state.Get() {
		return r, true
	}
	return Resource[T]{}, false
}

// All returns a snapshot of every held resource keyed by id.
func (e *Engine[T, E]) All() map[string]Resource[T] {
	return maps.Clone(e.state.Get())
}

// Ordered returns the held resources sorted by index, then id.
func (e *Engine[T, E]) Ordered() []Resource[T] {
	out := slices.Collect(maps.Values(e.state.Get()))
	slices.SortFunc(out, func(a, b Resource[T]) int {
		switch {
		case a.Index == nil && b.Index == nil:
		case a.Index == nil:
			return 1
		case b.Index == nil:
			return -1
		default:
			if c := cmp.Compare(*a.Index, *b.Index); c != 0 {
				return c
			}
		}
		return cmp.Compare(a.ID, b.ID)
	})
	return out
}

// Subscribe registers fn for every change of the held resources. fn must
// treat the map as read-only.
func (e *Engine[T, E]) Subscribe(fn func(map[string]Resource[T])) func() {
	return e.state.Subscribe(fn)
}

// Reset forgets every held resource. The cache is left alone.
func (e *Engine[T, E]) Reset() {
	e.state.Set(map[string]Resource[T]{})
	e.setRetry(false)
}

// NeedsRetry reports whether the last Init did not complete.
func (e *Engine[T, E]) NeedsRetry() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.needsRetry
}

// Retry repeats the last Init with the same filter.
func (e *Engine[T, E]) Retry(ctx context.Context, who models.Authenticated) error {
	e.mu.Lock()
	filter := e.lastFilter
	e.mu.Unlock()
	return e.Init(ctx, who, filter)
}

func (e *Engine[T, E]) setRetry(v bool) {
	e.mu.Lock()
	e.needsRetry = v
	e.mu.Unlock()
}

// setSaveState moves id to s. When from is given the move only happens if
// the current state is one of them.
func (e *Engine[T, E]) setSaveState(id string, s models.SaveState, from ...models.SaveState) {
	e.state.Update(func(m map[string]Resource[T]) map[string]Resource[T] {
		r, ok := m[id]
		if !ok || r.SaveState == s {
			return m
		}
		if len(from) > 0 && !slices.Contains(from, r.SaveState) {
			return m
		}
		next := maps.Clone(m)
		r.SaveState = s
		next[id] = r
		return next
	})
}

func (e *Engine[T, E]) lock(id string) func() {
	v, _ := e.locks.LoadOrStore(id, &sync.Mutex{})
	mu := v.(*sync.Mutex)
	mu.Lock()
	return mu.Unlock
}

func (e *Engine[T, E]) readCache(ctx context.Context, id string) (Resource[T], bool, error) {
	entry, ok, err := e.cache.Get(ctx, e.opts.Namespace, id)
	if err != nil || !ok {
		return Resource[T]{}, false, err
	}
	var c cachedResource[T]
	if err = json.Unmarshal(entry.Payload, &c); err != nil {
		return Resource[T]{}, false, fmt.Errorf("decode cache entry %s/%s: %w", e.opts.Namespace, id, err)
	}
	return Resource[T]{ID: id, Data: c.Data, Key: c.Key, Checksum: entry.Checksum, Index: c.Index}, true, nil
}

func (e *Engine[T, E]) writeCache(ctx context.Context, r Resource[T]) {
	if !e.opts.Cacheable {
		return
	}
	payload, err := json.Marshal(cachedResource[T]{ID: r.ID, Data: r.Data, Key: r.Key, Index: r.Index})
	if err == nil {
		err = e.cache.Put(ctx, store.CacheEntry{
			Namespace: e.opts.Namespace,
			Key:       r.ID,
			Payload:   payload,
			Checksum:  r.Checksum,
		})
	}
	if err != nil {
		e.logger.Warn().Err(err).Str("func", "Engine.writeCache").Str("id", r.ID).Msg("cache write failed")
	}
}

// pruneCache drops cache entries of resources no longer listed remotely.
func (e *Engine[T, E]) pruneCache(ctx context.Context, live map[string]Resource[T]) {
	if !e.opts.Cacheable {
		return
	}
	entries, err := e.cache.List(ctx, e.opts.Namespace)
	if err != nil {
		e.logger.Warn().Err(err).Str("func", "Engine.pruneCache").Msg("cache list failed")
		return
	}
	for _, entry := range entries {
		if _, ok := live[entry.Key]; ok {
			continue
		}
		if err = e.cache.Delete(ctx, e.opts.Namespace, entry.Key); err != nil {
			e.logger.Warn().Err(err).Str("func", "Engine.pruneCache").Str("id", entry.Key).Msg("cache delete failed")
		}
	}
}
