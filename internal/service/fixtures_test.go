package service

import (
	"bytes"
	"context"
	"crypto/rsa"
	"fmt"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/MKhiriev/go-vault-sync/internal/config"
	"github.com/MKhiriev/go-vault-sync/internal/crypto"
	"github.com/MKhiriev/go-vault-sync/internal/logger"
	"github.com/MKhiriev/go-vault-sync/internal/store"
	"github.com/MKhiriev/go-vault-sync/models"
)

// testHashParams are cheap Argon2 parameters for tests.
func testHashParams(salt []byte) models.HashParams {
	return models.HashParams{
		Type:       models.Argon2id,
		TimeCost:   1,
		MemoryCost: 64,
		Threads:    1,
		Salt:       crypto.Encode(salt),
	}
}

func saltOf(fill byte) []byte {
	return bytes.Repeat([]byte{fill}, 16)
}

func newTestStorages(t *testing.T) *store.ClientStorages {
	t.Helper()

	s, err := store.NewClientStorages(context.Background(), config.ClientDB{
		DSN: filepath.Join(t.TempDir(), "cache.db"),
	}, logger.Nop())
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func newTestWorkers(t *testing.T) (*crypto.Argon2Worker, *crypto.ED25519Worker) {
	t.Helper()

	hasher := crypto.NewArgon2Worker(true)
	signer := crypto.NewED25519Worker(true)
	t.Cleanup(func() {
		hasher.Close()
		signer.Close()
	})
	return hasher, signer
}

var testRSAKey = sync.OnceValues(func() (*rsa.PrivateKey, error) {
	return crypto.NewKeyChainService().GenerateMasterKeypair(1024)
})

// staticKeys is a KeyProvider holding a fixed test keypair.
type staticKeys struct {
	mk  *MasterKeypair
	err error
}

func newStaticKeys(t *testing.T) *staticKeys {
	t.Helper()

	priv, err := testRSAKey()
	require.NoError(t, err)
	return &staticKeys{mk: &MasterKeypair{PublicKey: &priv.PublicKey, PrivateKey: priv}}
}

func (k *staticKeys) MasterKeys() (*MasterKeypair, error) {
	if k.err != nil {
		return nil, k.err
	}
	return k.mk, nil
}

// countingHasher counts hash jobs and can hold them until released.
type countingHasher struct {
	inner   crypto.PasswordHasher
	calls   atomic.Int32
	started chan struct{}
	release chan struct{}
}

func (h *countingHasher) Hash(ctx context.Context, password string, salt []byte, params models.HashParams, hashLen uint32) ([]byte, error) {
	h.calls.Add(1)
	if h.started != nil {
		select {
		case h.started <- struct{}{}:
		default:
		}
	}
	if h.release != nil {
		<-h.release
	}
	if h.inner == nil {
		return bytes.Repeat([]byte{byte(len(password))}, int(hashLen)), nil
	}
	return h.inner.Hash(ctx, password, salt, params, hashLen)
}

// fakeTransport is an in-memory ResourceTransport.
type fakeTransport[E models.Document] struct {
	mu sync.Mutex

	docs    []E
	single  E
	present bool

	listErr   error
	createErr error
	patchErr  error
	deleteErr error
	saveErr   error

	created []any
	patched map[string][]any
	deleted []string
	saved   []any
	removed int

	nextID    int
	nextIndex int
	// patchHook runs inside Patch before it answers.
	patchHook func()
}

func newFakeTransport[E models.Document]() *fakeTransport[E] {
	return &fakeTransport[E]{patched: map[string][]any{}}
}

func (f *fakeTransport[E]) setDocs(docs ...E) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.docs = docs
}

func (f *fakeTransport[E]) List(context.Context, string) ([]E, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.listErr != nil {
		return nil, f.listErr
	}
	return append([]E(nil), f.docs...), nil
}

func (f *fakeTransport[E]) Create(_ context.Context, body any) (models.StateResponse, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.createErr != nil {
		return models.StateResponse{}, f.createErr
	}
	f.created = append(f.created, body)
	f.nextID++
	index := f.nextIndex
	f.nextIndex++
	return models.StateResponse{
		ID:   fmt.Sprintf("res-%d", f.nextID),
		Meta: models.Meta{Checksum: fmt.Sprintf("sum-%d-0", f.nextID), Index: models.IntPtr(index)},
	}, nil
}

func (f *fakeTransport[E]) Patch(_ context.Context, id string, body any) (models.StateResponse, error) {
	if f.patchHook != nil {
		f.patchHook()
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.patchErr != nil {
		return models.StateResponse{}, f.patchErr
	}
	f.patched[id] = append(f.patched[id], body)
	return models.StateResponse{ID: id, Meta: models.Meta{Checksum: fmt.Sprintf("%s-patched-%d", id, len(f.patched[id]))}}, nil
}

func (f *fakeTransport[E]) Delete(_ context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.deleteErr != nil {
		return f.deleteErr
	}
	f.deleted = append(f.deleted, id)
	return nil
}

func (f *fakeTransport[E]) Fetch(context.Context) (E, bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.listErr != nil {
		var zero E
		return zero, false, f.listErr
	}
	return f.single, f.present, nil
}

func (f *fakeTransport[E]) Save(_ context.Context, body any) (models.StateResponse, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.saveErr != nil {
		return models.StateResponse{}, f.saveErr
	}
	f.saved = append(f.saved, body)
	return models.StateResponse{Meta: models.Meta{Checksum: fmt.Sprintf("saved-%d", len(f.saved))}}, nil
}

func (f *fakeTransport[E]) Remove(context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.deleteErr != nil {
		return f.deleteErr
	}
	f.removed++
	f.present = false
	return nil
}

// countingCodec counts Decrypt calls of the wrapped codec.
type countingCodec[T any, E models.Document] struct {
	Codec[T, E]
	decrypts atomic.Int32
}

func (c *countingCodec[T, E]) Decrypt(doc E, key []byte) (T, error) {
	c.decrypts.Add(1)
	return c.Codec.Decrypt(doc, key)
}
