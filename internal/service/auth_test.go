package service

import (
	"context"
	"crypto/ed25519"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"github.com/MKhiriev/go-vault-sync/internal/adapter"
	"github.com/MKhiriev/go-vault-sync/internal/crypto"
	"github.com/MKhiriev/go-vault-sync/internal/logger"
	"github.com/MKhiriev/go-vault-sync/internal/mock"
	"github.com/MKhiriev/go-vault-sync/internal/store"
	"github.com/MKhiriev/go-vault-sync/models"
)

type authHarness struct {
	session  *AuthSession
	adapter  *mock.MockAuthAdapter
	hasher   *countingHasher
	creds    *CredentialService
	keychain crypto.KeyChainService
	storages *store.ClientStorages
}

func newAuthHarness(t *testing.T) *authHarness {
	t.Helper()

	ctrl := gomock.NewController(t)
	argon, signer := newTestWorkers(t)
	h := &authHarness{
		adapter:  mock.NewMockAuthAdapter(ctrl),
		hasher:   &countingHasher{inner: argon},
		keychain: crypto.NewKeyChainService(),
		storages: newTestStorages(t),
	}
	h.creds = NewCredentialService(h.hasher, signer, logger.Nop())
	h.session = NewAuthSession(h.adapter, h.creds, h.keychain, h.storages.Cache, h.storages.KV, logger.Nop(),
		WithHashParams(testHashParams(nil)),
		WithRSAKeySize(1024),
	)
	return h
}

// publicKeyFor derives the signing public key the API would hold.
func (h *authHarness) publicKeyFor(t *testing.T, password string, salt []byte) ed25519.PublicKey {
	t.Helper()

	ctx := context.Background()
	seed, err := h.creds.DeriveAuthSeed(ctx, password, testHashParams(salt))
	require.NoError(t, err)
	kp, err := h.creds.DeriveSigningKeypair(ctx, seed, true)
	require.NoError(t, err)
	return kp.PublicKey
}

func testChallenge(salt []byte) models.Challenge {
	return models.Challenge{
		ID:         "ch-1",
		Data:       crypto.Encode([]byte("nonce-0123456789abcdef")),
		HashParams: testHashParams(salt),
	}
}

// verifyingSubmit answers like the API: 200 for a valid signature, 401
// otherwise.
func verifyingSubmit(pub ed25519.PublicKey, challenge models.Challenge, res models.ChallengeResponse) func(context.Context, string, models.SignedChallenge, bool) (models.ChallengeResponse, error) {
	return func(_ context.Context, id string, signed models.SignedChallenge, _ bool) (models.ChallengeResponse, error) {
		data, _ := crypto.Decode(challenge.Data)
		sig, err := crypto.Decode(signed.Signature)
		if err != nil || id != challenge.ID || !ed25519.Verify(pub, data, sig) {
			return models.ChallengeResponse{}, fmt.Errorf("submit: %w", adapter.ErrUnauthorized)
		}
		return res, nil
	}
}

func recordPhases(s *AuthSession) (*[]AuthPhase, func()) {
	var (
		mu     sync.Mutex
		phases []AuthPhase
	)
	unsubscribe := s.Phase.Subscribe(func(p AuthPhase) {
		mu.Lock()
		phases = append(phases, p)
		mu.Unlock()
	})
	return &phases, unsubscribe
}

// ── Authenticate ──

func TestAuthenticate_Success(t *testing.T) {
	h := newAuthHarness(t)
	ctx := context.Background()
	salt := saltOf('a')
	ch := testChallenge(salt)
	pub := h.publicKeyFor(t, "correct-horse", salt)

	h.adapter.EXPECT().RequestChallenge(gomock.Any(), models.ChallengeRequest{Email: "user@example.com"}).Return(ch, nil)
	h.adapter.EXPECT().SubmitChallenge(gomock.Any(), ch.ID, gomock.Any(), false).
		DoAndReturn(verifyingSubmit(pub, ch, models.ChallengeResponse{UserID: "u1", Verified: true, AccountType: 1}))
	h.adapter.EXPECT().Credentials().Return(adapter.Credentials{SessionCookie: "cookie", CSRFToken: "csrf"})

	phases, unsubscribe := recordPhases(h.session)
	defer unsubscribe()

	cond, err := Authenticate(ctx, h.session, models.AuthUser{Email: "user@example.com", Password: "correct-horse"}, AuthOptions{})
	require.NoError(t, err)
	assert.Equal(t, models.AuthSuccess, cond)

	assert.Equal(t, []AuthPhase{
		PhaseIdle,
		PhaseChallengeRequested,
		PhaseChallengeSolving,
		PhaseChallengeSubmitted,
		PhaseAuthenticated,
	}, *phases)

	who, err := h.session.Current()
	require.NoError(t, err)
	assert.Equal(t, models.Authenticated{ID: "u1", Email: "user@example.com", Verified: true, AccountType: 1}, who)

	raw, ok, err := h.storages.KV.Get(ctx, store.KeyUser)
	require.NoError(t, err)
	require.True(t, ok)
	var persisted models.Authenticated
	require.NoError(t, json.Unmarshal([]byte(raw), &persisted))
	assert.Equal(t, who, persisted)

	csrf, _, err := h.storages.KV.Get(ctx, store.KeyCSRFToken)
	require.NoError(t, err)
	assert.Equal(t, "csrf", csrf)
	cookie, _, err := h.storages.KV.Get(ctx, store.KeySessionCookie)
	require.NoError(t, err)
	assert.Equal(t, "cookie", cookie)
}

func TestAuthenticate_WrongPassword(t *testing.T) {
	h := newAuthHarness(t)
	salt := saltOf('a')
	ch := testChallenge(salt)
	pub := h.publicKeyFor(t, "correct-horse", salt)

	h.adapter.EXPECT().RequestChallenge(gomock.Any(), gomock.Any()).Return(ch, nil)
	h.adapter.EXPECT().SubmitChallenge(gomock.Any(), ch.ID, gomock.Any(), false).
		DoAndReturn(verifyingSubmit(pub, ch, models.ChallengeResponse{UserID: "u1"}))

	_, err := Authenticate(context.Background(), h.session, models.AuthUser{Email: "user@example.com", Password: "wrong-horse"}, AuthOptions{})

	require.ErrorIs(t, err, ErrAuthorizationFailure)
	assert.NotErrorIs(t, err, ErrTransport)
	assert.Equal(t, PhaseFailed, h.session.Phase.Get())
	_, err = h.session.Current()
	assert.ErrorIs(t, err, ErrNotAuthenticated)
}

func TestAuthenticate_TransportFailure(t *testing.T) {
	h := newAuthHarness(t)

	h.adapter.EXPECT().RequestChallenge(gomock.Any(), gomock.Any()).Return(models.Challenge{}, errors.New("dial tcp: connection refused"))

	_, err := Authenticate(context.Background(), h.session, models.AuthUser{Email: "user@example.com", Password: "pw"}, AuthOptions{})

	require.ErrorIs(t, err, ErrTransport)
	assert.NotErrorIs(t, err, ErrAuthorizationFailure)
	assert.Equal(t, PhaseFailed, h.session.Phase.Get())
}

func TestAuthenticate_SubmitServerError(t *testing.T) {
	h := newAuthHarness(t)
	ch := testChallenge(saltOf('a'))

	h.adapter.EXPECT().RequestChallenge(gomock.Any(), gomock.Any()).Return(ch, nil)
	h.adapter.EXPECT().SubmitChallenge(gomock.Any(), ch.ID, gomock.Any(), false).
		Return(models.ChallengeResponse{}, fmt.Errorf("submit: %w", adapter.ErrInternalServerError))

	_, err := Authenticate(context.Background(), h.session, models.AuthUser{Email: "user@example.com", Password: "pw"}, AuthOptions{})
	assert.ErrorIs(t, err, ErrTransport)
	assert.NotErrorIs(t, err, ErrAuthorizationFailure)
}

func TestAuthenticate_TOTPRequired(t *testing.T) {
	h := newAuthHarness(t)

	h.adapter.EXPECT().RequestChallenge(gomock.Any(), gomock.Any()).
		Return(models.Challenge{}, fmt.Errorf("request challenge: %w", adapter.ErrPreconditionFailed))

	cond, err := Authenticate(context.Background(), h.session, models.AuthUser{Email: "user@example.com", Password: "pw"}, AuthOptions{})
	require.NoError(t, err)
	assert.Equal(t, models.AuthTOTPRequired, cond)
	assert.Equal(t, PhaseTOTPRequired, h.session.Phase.Get())
	assert.Zero(t, h.hasher.calls.Load(), "no hashing before the challenge is issued")
}

func TestAuthenticate_TOTPCodeForwarded(t *testing.T) {
	h := newAuthHarness(t)
	code := 123456

	h.adapter.EXPECT().RequestChallenge(gomock.Any(), models.ChallengeRequest{Email: "user@example.com", TOTPCode: &code}).
		Return(models.Challenge{}, errors.New("stop here"))

	_, err := Authenticate(context.Background(), h.session, models.AuthUser{Email: "user@example.com", Password: "pw", TOTPCode: &code}, AuthOptions{})
	assert.ErrorIs(t, err, ErrTransport)
}

func TestAuthenticate_RejectsConcurrentFlow(t *testing.T) {
	h := newAuthHarness(t)
	entered := make(chan struct{})
	release := make(chan struct{})

	h.adapter.EXPECT().RequestChallenge(gomock.Any(), gomock.Any()).
		DoAndReturn(func(context.Context, models.ChallengeRequest) (models.Challenge, error) {
			close(entered)
			<-release
			return models.Challenge{}, errors.New("aborted")
		})

	done := make(chan error, 1)
	go func() {
		_, err := Authenticate(context.Background(), h.session, models.AuthUser{Email: "a@b.co", Password: "pw"}, AuthOptions{})
		done <- err
	}()
	<-entered

	_, err := Authenticate(context.Background(), h.session, models.AuthUser{Email: "a@b.co", Password: "pw"}, AuthOptions{})
	assert.ErrorIs(t, err, ErrAuthInProgress)

	close(release)
	assert.ErrorIs(t, <-done, ErrTransport)
}

func TestAuthenticate_ReuseAuthKeySkipsHashing(t *testing.T) {
	h := newAuthHarness(t)
	ctx := context.Background()
	salt := saltOf('a')
	ch := testChallenge(salt)
	pub := h.publicKeyFor(t, "correct-horse", salt)
	user := models.AuthUser{Email: "user@example.com", Password: "correct-horse"}

	h.adapter.EXPECT().RequestChallenge(gomock.Any(), gomock.Any()).Return(ch, nil).Times(2)
	h.adapter.EXPECT().SubmitChallenge(gomock.Any(), ch.ID, gomock.Any(), false).
		DoAndReturn(verifyingSubmit(pub, ch, models.ChallengeResponse{UserID: "u1"})).Times(2)
	h.adapter.EXPECT().Credentials().Return(adapter.Credentials{}).Times(2)

	_, err := Authenticate(ctx, h.session, user, AuthOptions{})
	require.NoError(t, err)
	calls := h.hasher.calls.Load()

	cond, err := Authenticate(ctx, h.session, user, AuthOptions{ReuseAuthKey: true})
	require.NoError(t, err)
	assert.Equal(t, models.AuthSuccess, cond)
	assert.Equal(t, calls, h.hasher.calls.Load())
}

func TestAuthenticate_ReuseAuthKeyFollowsChallengeSalt(t *testing.T) {
	h := newAuthHarness(t)
	ctx := context.Background()
	user := models.AuthUser{Email: "user@example.com", Password: "correct-horse"}

	// a seed held from an earlier login under another salt
	held, err := h.creds.DeriveAuthSeed(ctx, user.Password, testHashParams(saltOf('a')))
	require.NoError(t, err)
	h.session.setAuthSeed(held, testHashParams(saltOf('a')))

	salt := saltOf('d')
	ch := testChallenge(salt)
	pub := h.publicKeyFor(t, user.Password, salt)
	h.adapter.EXPECT().RequestChallenge(gomock.Any(), gomock.Any()).Return(ch, nil)
	h.adapter.EXPECT().SubmitChallenge(gomock.Any(), ch.ID, gomock.Any(), false).
		DoAndReturn(verifyingSubmit(pub, ch, models.ChallengeResponse{UserID: "u1"}))
	calls := h.hasher.calls.Load()

	cond, err := Authenticate(ctx, h.session, user, AuthOptions{ReuseAuthKey: true})
	require.NoError(t, err)
	assert.Equal(t, models.AuthSuccess, cond)
	assert.Equal(t, calls+1, h.hasher.calls.Load(), "a fresh seed is derived for the new salt")
}

// ── Upgrade ──

func TestUpgrade_AlreadyElevated(t *testing.T) {
	h := newAuthHarness(t)
	h.session.Identity.Set(testUser)

	h.adapter.EXPECT().RequestUpgrade(gomock.Any()).Return(models.Challenge{}, true, nil)

	cond, err := Upgrade(context.Background(), h.session, "pw")
	require.NoError(t, err)
	assert.Equal(t, models.AuthUpgraded, cond)
	assert.Equal(t, PhaseAuthenticated, h.session.Phase.Get())
}

func TestEnableTOTP_ElevatesFirst(t *testing.T) {
	h := newAuthHarness(t)
	h.session.Identity.Set(testUser)
	info := models.TOTPInfo{Secret: "JBSWY3DPEHPK3PXP", BackupCodes: []int{12345678}}

	gomock.InOrder(
		h.adapter.EXPECT().RequestUpgrade(gomock.Any()).Return(models.Challenge{}, true, nil),
		h.adapter.EXPECT().EnableTOTP(gomock.Any()).Return(info, nil),
		h.adapter.EXPECT().RequestUpgrade(gomock.Any()).Return(models.Challenge{}, true, nil),
		h.adapter.EXPECT().DisableTOTP(gomock.Any()).Return(fmt.Errorf("disable: %w", adapter.ErrForbidden)),
	)

	got, err := EnableTOTP(context.Background(), h.session, "pw")
	require.NoError(t, err)
	assert.Equal(t, info, got)

	err = DisableTOTP(context.Background(), h.session, "pw")
	assert.ErrorIs(t, err, ErrTransport)
	assert.ErrorIs(t, err, adapter.ErrForbidden)
}

func TestEnableTOTP_NeedsSession(t *testing.T) {
	h := newAuthHarness(t)
	_, err := EnableTOTP(context.Background(), h.session, "pw")
	assert.ErrorIs(t, err, ErrNotAuthenticated)
}

func TestUpgrade_Challenge(t *testing.T) {
	h := newAuthHarness(t)
	h.session.Identity.Set(testUser)
	salt := saltOf('a')
	ch := testChallenge(salt)
	pub := h.publicKeyFor(t, "correct-horse", salt)

	h.adapter.EXPECT().RequestUpgrade(gomock.Any()).Return(ch, false, nil)
	h.adapter.EXPECT().SubmitChallenge(gomock.Any(), ch.ID, gomock.Any(), true).
		DoAndReturn(verifyingSubmit(pub, ch, models.ChallengeResponse{}))

	cond, err := Upgrade(context.Background(), h.session, "correct-horse")
	require.NoError(t, err)
	assert.Equal(t, models.AuthUpgraded, cond)

	who, err := h.session.Current()
	require.NoError(t, err)
	assert.Equal(t, testUser, who, "an upgrade keeps the identity")
}

func TestUpgrade_RequiresSession(t *testing.T) {
	h := newAuthHarness(t)
	_, err := Upgrade(context.Background(), h.session, "pw")
	assert.ErrorIs(t, err, ErrNotAuthenticated)
}

// ── Registration and master keys ──

func TestRegister_ReusesDerivedKey(t *testing.T) {
	h := newAuthHarness(t)
	salt := saltOf('a')
	user := models.AuthUser{Email: "user@example.com", Password: "correct-horse"}

	var registered models.RegisterRequest
	h.adapter.EXPECT().Register(gomock.Any(), gomock.Any()).
		DoAndReturn(func(_ context.Context, req models.RegisterRequest) error {
			registered = req
			return nil
		})
	h.adapter.EXPECT().RequestChallenge(gomock.Any(), gomock.Any()).
		DoAndReturn(func(context.Context, models.ChallengeRequest) (models.Challenge, error) {
			return models.Challenge{ID: "ch-1", Data: crypto.Encode([]byte("nonce")), HashParams: registered.HashParams}, nil
		})
	h.adapter.EXPECT().SubmitChallenge(gomock.Any(), "ch-1", gomock.Any(), false).
		DoAndReturn(func(_ context.Context, _ string, signed models.SignedChallenge, _ bool) (models.ChallengeResponse, error) {
			pub, _ := crypto.Decode(registered.Key)
			sig, _ := crypto.Decode(signed.Signature)
			if !ed25519.Verify(pub, []byte("nonce"), sig) {
				return models.ChallengeResponse{}, adapter.ErrUnauthorized
			}
			return models.ChallengeResponse{UserID: "u1"}, nil
		})
	h.adapter.EXPECT().Credentials().Return(adapter.Credentials{})

	cond, err := Register(context.Background(), h.session, user, salt)
	require.NoError(t, err)
	assert.Equal(t, models.AuthSuccess, cond)

	assert.Equal(t, crypto.Encode(salt), registered.HashParams.Salt)
	assert.EqualValues(t, 1, h.hasher.calls.Load(), "login after registration reuses the derived seed")
}

func TestCreateAccount_SaltReuse(t *testing.T) {
	h := newAuthHarness(t)

	err := CreateAccount(context.Background(), h.session, models.AuthUser{Email: "user@example.com", Password: "pw"}, saltOf('a'), saltOf('a'))
	assert.ErrorIs(t, err, ErrSaltReuse)
}

func TestGenerateMasterKeypair_SaltReuse(t *testing.T) {
	h := newAuthHarness(t)
	h.session.Identity.Set(testUser)
	h.session.setAuthSeed(make([]byte, AuthSeedLength), testHashParams(saltOf('a')))

	_, err := GenerateMasterKeypair(context.Background(), h.session, "pw", saltOf('a'))
	assert.ErrorIs(t, err, ErrSaltReuse)
}

func TestCreateAccount(t *testing.T) {
	h := newAuthHarness(t)
	ctx := context.Background()
	user := models.AuthUser{Email: "user@example.com", Password: "correct-horse"}
	authSalt, cryptoSalt := saltOf('a'), saltOf('b')
	pub := h.publicKeyFor(t, user.Password, authSalt)
	ch := testChallenge(authSalt)

	var posted models.MasterKeys
	gomock.InOrder(
		h.adapter.EXPECT().Register(gomock.Any(), gomock.Any()).Return(nil),
		h.adapter.EXPECT().RequestChallenge(gomock.Any(), gomock.Any()).Return(ch, nil),
		h.adapter.EXPECT().SubmitChallenge(gomock.Any(), ch.ID, gomock.Any(), false).
			DoAndReturn(verifyingSubmit(pub, ch, models.ChallengeResponse{UserID: "u1"})),
		h.adapter.EXPECT().Credentials().Return(adapter.Credentials{}),
		h.adapter.EXPECT().PostMasterKeys(gomock.Any(), gomock.Any()).
			DoAndReturn(func(_ context.Context, keys models.MasterKeys) error {
				posted = keys
				return nil
			}),
		h.adapter.EXPECT().ConfirmAccount(gomock.Any(), "u1").Return(nil),
	)

	require.NoError(t, CreateAccount(ctx, h.session, user, authSalt, cryptoSalt))

	assert.Equal(t, crypto.Encode(cryptoSalt), posted.HashParams.Salt)
	assert.NotEqual(t, posted.HashParams.Salt, ch.HashParams.Salt)

	// the posted private key opens with the crypto key only
	key, err := h.creds.DeriveCryptoKey(ctx, user.Password, posted.HashParams)
	require.NoError(t, err)
	priv, err := h.keychain.UnwrapPrivateKey(posted.PrivateKey, key)
	require.NoError(t, err)

	seed, err := h.creds.DeriveAuthSeed(ctx, user.Password, ch.HashParams)
	require.NoError(t, err)
	_, err = h.keychain.UnwrapPrivateKey(posted.PrivateKey, seed)
	assert.Error(t, err)

	mk, err := h.session.MasterKeys()
	require.NoError(t, err)
	assert.True(t, priv.Equal(mk.PrivateKey))

	entry, err := h.storages.Cache.MustGet(ctx, NamespaceKeys, "u1")
	require.NoError(t, err)
	var cached models.MasterKeys
	require.NoError(t, json.Unmarshal(entry.Payload, &cached))
	assert.Equal(t, posted, cached, "only the wrapped form is cached")
}

func newUnlockableKeys(t *testing.T, h *authHarness, password string, salt []byte) models.MasterKeys {
	t.Helper()

	priv, err := testRSAKey()
	require.NoError(t, err)
	params := testHashParams(salt)
	key, err := h.creds.DeriveCryptoKey(context.Background(), password, params)
	require.NoError(t, err)
	wrapped, err := h.keychain.WrapPrivateKey(priv, key)
	require.NoError(t, err)
	pub, err := h.keychain.ExportPublicKey(&priv.PublicKey)
	require.NoError(t, err)
	return models.MasterKeys{PublicKey: pub, PrivateKey: wrapped, HashParams: params}
}

func TestRetrieveMasterKeypair(t *testing.T) {
	h := newAuthHarness(t)
	ctx := context.Background()
	h.session.Identity.Set(testUser)
	keys := newUnlockableKeys(t, h, "correct-horse", saltOf('b'))

	_, err := h.session.MasterKeys()
	require.ErrorIs(t, err, ErrMasterKeysLocked)

	h.adapter.EXPECT().GetMasterKeys(gomock.Any()).Return(keys, nil)
	mk, err := RetrieveMasterKeypair(ctx, h.session, "correct-horse")
	require.NoError(t, err)

	priv, _ := testRSAKey()
	assert.True(t, priv.Equal(mk.PrivateKey))
	assert.True(t, priv.PublicKey.Equal(mk.PublicKey))
}

func TestRetrieveMasterKeypair_WrongPassword(t *testing.T) {
	h := newAuthHarness(t)
	h.session.Identity.Set(testUser)
	keys := newUnlockableKeys(t, h, "correct-horse", saltOf('b'))

	h.adapter.EXPECT().GetMasterKeys(gomock.Any()).Return(keys, nil)
	_, err := RetrieveMasterKeypair(context.Background(), h.session, "wrong-horse")
	assert.Error(t, err)

	_, err = h.session.MasterKeys()
	assert.ErrorIs(t, err, ErrMasterKeysLocked)
}

func TestRetrieveMasterKeypair_OfflineUsesCache(t *testing.T) {
	h := newAuthHarness(t)
	ctx := context.Background()
	h.session.Identity.Set(testUser)
	keys := newUnlockableKeys(t, h, "correct-horse", saltOf('b'))

	h.adapter.EXPECT().GetMasterKeys(gomock.Any()).Return(keys, nil)
	_, err := RetrieveMasterKeypair(ctx, h.session, "correct-horse")
	require.NoError(t, err)

	h.adapter.EXPECT().GetMasterKeys(gomock.Any()).Return(models.MasterKeys{}, errors.New("offline"))
	mk, err := RetrieveMasterKeypair(ctx, h.session, "correct-horse")
	require.NoError(t, err)
	assert.NotNil(t, mk.PrivateKey)
}

func TestRetrieveMasterKeypair_OfflineWithoutCache(t *testing.T) {
	h := newAuthHarness(t)
	h.session.Identity.Set(testUser)

	h.adapter.EXPECT().GetMasterKeys(gomock.Any()).Return(models.MasterKeys{}, errors.New("offline"))
	_, err := RetrieveMasterKeypair(context.Background(), h.session, "pw")
	assert.ErrorIs(t, err, ErrTransport)
}

// ── Password change ──

func TestChangePassword(t *testing.T) {
	h := newAuthHarness(t)
	ctx := context.Background()
	h.session.Identity.Set(testUser)
	keys := newUnlockableKeys(t, h, "old-horse", saltOf('b'))

	var update models.PasswordUpdate
	h.adapter.EXPECT().GetMasterKeys(gomock.Any()).Return(keys, nil)
	h.adapter.EXPECT().ChangePassword(gomock.Any(), gomock.Any()).
		DoAndReturn(func(_ context.Context, u models.PasswordUpdate) error {
			update = u
			return nil
		})

	require.NoError(t, ChangePassword(ctx, h.session, "old-horse", "new-horse", saltOf('c'), saltOf('d')))

	assert.Equal(t, crypto.Encode(saltOf('c')), update.HashParams.Auth.Salt)
	assert.Equal(t, crypto.Encode(saltOf('d')), update.HashParams.Crypto.Salt)
	assert.Equal(t, crypto.Encode(h.publicKeyFor(t, "new-horse", saltOf('c'))), update.AuthKey)

	key, err := h.creds.DeriveCryptoKey(ctx, "new-horse", update.HashParams.Crypto)
	require.NoError(t, err)
	priv, err := h.keychain.UnwrapPrivateKey(update.PrivateKey, key)
	require.NoError(t, err)
	orig, _ := testRSAKey()
	assert.True(t, orig.Equal(priv), "the master keypair survives a password change")
}

func TestChangePassword_SaltReuse(t *testing.T) {
	h := newAuthHarness(t)
	h.session.Identity.Set(testUser)

	err := ChangePassword(context.Background(), h.session, "old", "new", saltOf('c'), saltOf('c'))
	assert.ErrorIs(t, err, ErrSaltReuse)
}

// ── Session lifecycle ──

func TestLogout_ClearsEverything(t *testing.T) {
	h := newAuthHarness(t)
	ctx := context.Background()
	h.session.Identity.Set(testUser)
	h.session.Phase.Set(PhaseAuthenticated)
	h.session.setAuthSeed(make([]byte, AuthSeedLength), testHashParams(saltOf('c')))

	keys := newUnlockableKeys(t, h, "pw", saltOf('b'))
	h.adapter.EXPECT().GetMasterKeys(gomock.Any()).Return(keys, nil)
	_, err := RetrieveMasterKeypair(ctx, h.session, "pw")
	require.NoError(t, err)
	require.NoError(t, h.storages.Cache.Put(ctx, store.CacheEntry{Namespace: NamespaceLists, Key: "l1", Payload: []byte("{}")}))
	require.NoError(t, h.storages.KV.Set(ctx, store.KeyCSRFToken, "csrf"))

	h.adapter.EXPECT().Logout(gomock.Any()).Return(nil)
	require.NoError(t, Logout(ctx, h.session))

	_, err = h.session.Current()
	assert.ErrorIs(t, err, ErrNotAuthenticated)
	assert.Equal(t, PhaseIdle, h.session.Phase.Get())
	_, err = h.session.MasterKeys()
	assert.ErrorIs(t, err, ErrMasterKeysLocked)

	for _, ns := range []string{NamespaceKeys, NamespaceLists} {
		entries, err := h.storages.Cache.List(ctx, ns)
		require.NoError(t, err)
		assert.Empty(t, entries, ns)
	}
	_, ok, err := h.storages.KV.Get(ctx, store.KeyCSRFToken)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestLogout_RemoteFailureKeepsSession(t *testing.T) {
	h := newAuthHarness(t)
	h.session.Identity.Set(testUser)

	h.adapter.EXPECT().Logout(gomock.Any()).Return(errors.New("offline"))
	err := Logout(context.Background(), h.session)
	assert.ErrorIs(t, err, ErrTransport)

	_, err = h.session.Current()
	assert.NoError(t, err)
}

func TestRestore(t *testing.T) {
	h := newAuthHarness(t)
	ctx := context.Background()

	ok, err := Restore(ctx, h.session)
	require.NoError(t, err)
	assert.False(t, ok)

	raw, _ := json.Marshal(testUser)
	require.NoError(t, h.storages.KV.Set(ctx, store.KeyUser, string(raw)))
	require.NoError(t, h.storages.KV.Set(ctx, store.KeyCSRFToken, "csrf"))
	require.NoError(t, h.storages.KV.Set(ctx, store.KeySessionCookie, "cookie"))

	h.adapter.EXPECT().SetCredentials(adapter.Credentials{SessionCookie: "cookie", CSRFToken: "csrf"})

	ok, err = Restore(ctx, h.session)
	require.NoError(t, err)
	assert.True(t, ok)

	who, err := h.session.Current()
	require.NoError(t, err)
	assert.Equal(t, testUser, who)
	assert.Equal(t, PhaseAuthenticated, h.session.Phase.Get())
}

func TestRefreshIdentity(t *testing.T) {
	h := newAuthHarness(t)
	h.session.Identity.Set(testUser)

	h.adapter.EXPECT().WhoAmI(gomock.Any()).Return(models.WhoAmI{UserID: testUser.ID, Email: testUser.Email, Verified: true}, nil)
	h.adapter.EXPECT().Credentials().Return(adapter.Credentials{})

	_, err := RefreshIdentity(context.Background(), h.session)
	require.NoError(t, err)
	who, _ := h.session.Current()
	assert.True(t, who.Verified)
}

func TestAccountCalls_RequireSession(t *testing.T) {
	h := newAuthHarness(t)
	ctx := context.Background()

	assert.ErrorIs(t, Downgrade(ctx, h.session), ErrNotAuthenticated)
	assert.ErrorIs(t, ConfirmAccount(ctx, h.session), ErrNotAuthenticated)
	assert.ErrorIs(t, SendVerificationEmail(ctx, h.session), ErrNotAuthenticated)
	_, err := RetrieveMasterKeypair(ctx, h.session, "pw")
	assert.ErrorIs(t, err, ErrNotAuthenticated)
	_, err = ClaimUsername(ctx, h.session, "bob")
	assert.ErrorIs(t, err, ErrNotAuthenticated)
}

func TestAccountCalls_Forwarded(t *testing.T) {
	h := newAuthHarness(t)
	ctx := context.Background()
	h.session.Identity.Set(testUser)

	h.adapter.EXPECT().Downgrade(gomock.Any()).Return(nil)
	h.adapter.EXPECT().SendVerificationEmail(gomock.Any()).Return(errors.New("smtp down"))

	assert.NoError(t, Downgrade(ctx, h.session))
	assert.ErrorIs(t, SendVerificationEmail(ctx, h.session), ErrTransport)
}

// ── Username ──

func TestClaimUsername(t *testing.T) {
	h := newAuthHarness(t)
	ctx := context.Background()
	h.session.Identity.Set(testUser)

	_, err := ClaimUsername(ctx, h.session, "a b")
	assert.Error(t, err, "invalid names never reach the API")

	h.adapter.EXPECT().CreateUsername(gomock.Any(), "taken").Return(models.Username{}, fmt.Errorf("create: %w", adapter.ErrConflict))
	_, err = ClaimUsername(ctx, h.session, "taken")
	assert.ErrorIs(t, err, ErrUsernameTaken)

	h.adapter.EXPECT().CreateUsername(gomock.Any(), "ada").Return(models.Username{Username: "ada"}, nil)
	u, err := ClaimUsername(ctx, h.session, "ada")
	require.NoError(t, err)
	assert.Equal(t, "ada", u.Username)

	h.adapter.EXPECT().DeleteUsername(gomock.Any()).Return(nil)
	assert.NoError(t, ReleaseUsername(ctx, h.session))
}
