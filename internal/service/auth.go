package service

import (
	"bytes"
	"context"
	"crypto/rsa"
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	"github.com/MKhiriev/go-vault-sync/internal/adapter"
	"github.com/MKhiriev/go-vault-sync/internal/crypto"
	"github.com/MKhiriev/go-vault-sync/internal/logger"
	"github.com/MKhiriev/go-vault-sync/internal/state"
	"github.com/MKhiriev/go-vault-sync/internal/store"
	"github.com/MKhiriev/go-vault-sync/models"
)

// NamespaceKeys is the cache namespace of the master keypair, keyed by user
// id. Only the wrapped private key is written to disk.
const NamespaceKeys = "keys"

// DefaultRSAKeySize is the modulus size of new master keypairs.
const DefaultRSAKeySize = 4096

// AuthPhase is the position of an AuthSession in the challenge protocol.
type AuthPhase int

const (
	PhaseIdle AuthPhase = iota
	PhaseChallengeRequested
	PhaseChallengeSolving
	PhaseChallengeSubmitted
	PhaseAuthenticated
	PhaseTOTPRequired
	PhaseFailed
)

func (p AuthPhase) String() string {
	switch p {
	case PhaseIdle:
		return "idle"
	case PhaseChallengeRequested:
		return "challenge_requested"
	case PhaseChallengeSolving:
		return "challenge_solving"
	case PhaseChallengeSubmitted:
		return "challenge_submitted"
	case PhaseAuthenticated:
		return "authenticated"
	case PhaseTOTPRequired:
		return "totp_required"
	case PhaseFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// AuthOptions tune a single Authenticate call.
type AuthOptions struct {
	// ReuseAuthKey signs with the seed derived by the previous flow instead
	// of hashing the password again. A seed is derived when none is held.
	ReuseAuthKey bool
	// Upgrade elevates the current session instead of opening a new one.
	Upgrade bool
}

// MasterKeypair is the unwrapped RSA keypair protecting resource keys.
type MasterKeypair struct {
	PublicKey  *rsa.PublicKey
	PrivateKey *rsa.PrivateKey
}

// AuthSession holds the derived key state of one client and the observable
// protocol phase and identity. Operations on it are free functions.
type AuthSession struct {
	adapter     adapter.AuthAdapter
	credentials *CredentialService
	keychain    crypto.KeyChainService
	cache       store.CacheRepository
	kv          store.KVRepository
	logger      *logger.Logger

	hashParams models.HashParams
	rsaKeySize int

	// Phase is the current protocol phase.
	Phase *state.State[AuthPhase]
	// Identity is Anonymous until a flow succeeds or Restore finds a
	// persisted session.
	Identity *state.State[models.Identity]

	mu         sync.Mutex
	inFlight   bool
	authSeed   []byte
	authParams models.HashParams
	masterKeys *MasterKeypair
}

// AuthSessionOption configures an AuthSession.
type AuthSessionOption func(*AuthSession)

// WithHashParams sets the parameters used for new salts at registration and
// password change.
func WithHashParams(p models.HashParams) AuthSessionOption {
	return func(s *AuthSession) {
		s.hashParams = p
	}
}

// WithRSAKeySize sets the modulus size of generated master keypairs.
func WithRSAKeySize(bits int) AuthSessionOption {
	return func(s *AuthSession) {
		if bits > 0 {
			s.rsaKeySize = bits
		}
	}
}

// NewAuthSession builds an anonymous, idle session.
func NewAuthSession(
	authAdapter adapter.AuthAdapter,
	credentials *CredentialService,
	keychain crypto.KeyChainService,
	cache store.CacheRepository,
	kv store.KVRepository,
	log *logger.Logger,
	opts ...AuthSessionOption,
) *AuthSession {
	s := &AuthSession{
		adapter:     authAdapter,
		credentials: credentials,
		keychain:    keychain,
		cache:       cache,
		kv:          kv,
		logger:      log.WithComponent("auth"),
		hashParams:  BaselineHashParams(),
		rsaKeySize:  DefaultRSAKeySize,
		Phase:       state.New(PhaseIdle),
		Identity:    state.New[models.Identity](models.Anonymous{}),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Current returns the authenticated identity or ErrNotAuthenticated.
func (s *AuthSession) Current() (models.Authenticated, error) {
	who, ok := models.AsAuthenticated(s.Identity.Get())
	if !ok {
		return models.Authenticated{}, ErrNotAuthenticated
	}
	return who, nil
}

// HashParams returns the parameters used for new salts.
func (s *AuthSession) HashParams() models.HashParams {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.hashParams
}

// SetHashParams replaces the parameters used for new salts, typically with
// calibrated ones before registration.
func (s *AuthSession) SetHashParams(p models.HashParams) {
	s.mu.Lock()
	s.hashParams = p
	s.mu.Unlock()
}

// MasterKeys returns the unlocked master keypair.
func (s *AuthSession) MasterKeys() (*MasterKeypair, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.masterKeys == nil {
		return nil, ErrMasterKeysLocked
	}
	return s.masterKeys, nil
}

// Authenticate runs the challenge protocol for user. A TOTP demand is
// returned as models.AuthTOTPRequired with a nil error. A rejected signature
// leaves the session in PhaseFailed with ErrAuthorizationFailure.
func Authenticate(ctx context.Context, s *AuthSession, user models.AuthUser, opts AuthOptions) (models.AuthCondition, error) {
	if err := s.begin(); err != nil {
		return 0, err
	}
	defer s.end()

	log := s.logger.With().Str("func", "Authenticate").Bool("upgrade", opts.Upgrade).Logger()

	s.Phase.Set(PhaseChallengeRequested)
	var challenge models.Challenge
	if opts.Upgrade {
		ch, upgraded, err := s.adapter.RequestUpgrade(ctx)
		if err != nil {
			return s.fail(transportError("request upgrade", err))
		}
		if upgraded {
			s.Phase.Set(PhaseAuthenticated)
			return models.AuthUpgraded, nil
		}
		challenge = ch
	} else {
		ch, err := s.adapter.RequestChallenge(ctx, models.ChallengeRequest{Email: user.Email, TOTPCode: user.TOTPCode})
		if errors.Is(err, adapter.ErrPreconditionFailed) {
			log.Info().Msg("totp code required")
			s.Phase.Set(PhaseTOTPRequired)
			return models.AuthTOTPRequired, nil
		}
		if err != nil {
			return s.fail(transportError("request challenge", err))
		}
		challenge = ch
	}

	s.Phase.Set(PhaseChallengeSolving)
	seed, err := s.authSeedFor(ctx, user.Password, challenge.HashParams, opts.ReuseAuthKey)
	if err != nil {
		return s.fail(err)
	}
	keypair, err := s.credentials.DeriveSigningKeypair(ctx, seed, false)
	if err != nil {
		return s.fail(err)
	}
	signed, err := s.credentials.SignChallenge(ctx, challenge, keypair.PrivateKey)
	if err != nil {
		return s.fail(err)
	}

	s.Phase.Set(PhaseChallengeSubmitted)
	res, err := s.adapter.SubmitChallenge(ctx, challenge.ID, signed, opts.Upgrade)
	if err != nil {
		log.Warn().Err(err).Msg("challenge rejected")
		return s.fail(submitError(err))
	}

	if opts.Upgrade {
		s.Phase.Set(PhaseAuthenticated)
		return models.AuthUpgraded, nil
	}

	who := models.Authenticated{
		ID:          res.UserID,
		Email:       user.Email,
		Verified:    res.Verified,
		AccountType: res.AccountType,
	}
	if err = s.persist(ctx, who); err != nil {
		return s.fail(err)
	}
	s.Identity.Set(who)
	s.Phase.Set(PhaseAuthenticated)
	log.Info().Str("user_id", who.ID).Msg("authenticated")
	return models.AuthSuccess, nil
}

// Register creates the account with a signing key derived from authSalt and
// then authenticates reusing that key.
func Register(ctx context.Context, s *AuthSession, user models.AuthUser, authSalt []byte) (models.AuthCondition, error) {
	params := s.HashParams().WithSalt(crypto.Encode(authSalt))

	seed, err := s.credentials.DeriveAuthSeed(ctx, user.Password, params)
	if err != nil {
		return 0, err
	}
	keypair, err := s.credentials.DeriveSigningKeypair(ctx, seed, true)
	if err != nil {
		return 0, err
	}

	err = s.adapter.Register(ctx, models.RegisterRequest{
		Email:      user.Email,
		Key:        crypto.Encode(keypair.PublicKey),
		HashParams: params,
	})
	if err != nil {
		return 0, transportError("register", err)
	}
	s.setAuthSeed(seed, params)

	return Authenticate(ctx, s, user, AuthOptions{ReuseAuthKey: true})
}

// GenerateMasterKeypair creates the master keypair, wraps its private key
// under a key derived from password and cryptoSalt and uploads both halves.
// cryptoSalt must differ from the salt of the auth seed.
func GenerateMasterKeypair(ctx context.Context, s *AuthSession, password string, cryptoSalt []byte) (*MasterKeypair, error) {
	who, err := s.Current()
	if err != nil {
		return nil, err
	}

	salt := crypto.Encode(cryptoSalt)
	s.mu.Lock()
	authSalt := s.authParams.Salt
	s.mu.Unlock()
	if authSalt == salt {
		return nil, ErrSaltReuse
	}

	params := s.HashParams().WithSalt(salt)
	key, err := s.credentials.DeriveCryptoKey(ctx, password, params)
	if err != nil {
		return nil, err
	}

	priv, err := s.keychain.GenerateMasterKeypair(s.rsaKeySize)
	if err != nil {
		return nil, err
	}
	pub, err := s.keychain.ExportPublicKey(&priv.PublicKey)
	if err != nil {
		return nil, err
	}
	wrapped, err := s.keychain.WrapPrivateKey(priv, key)
	if err != nil {
		return nil, err
	}

	keys := models.MasterKeys{PublicKey: pub, PrivateKey: wrapped, HashParams: params}
	if err = s.adapter.PostMasterKeys(ctx, keys); err != nil {
		return nil, transportError("post master keys", err)
	}

	mk := &MasterKeypair{PublicKey: &priv.PublicKey, PrivateKey: priv}
	if err = s.storeMasterKeys(ctx, who.ID, keys, mk); err != nil {
		return nil, err
	}
	return mk, nil
}

// CreateAccount registers user, generates the master keypair and confirms
// the account. The salts are checked before anything is sent.
func CreateAccount(ctx context.Context, s *AuthSession, user models.AuthUser, authSalt, cryptoSalt []byte) error {
	if bytes.Equal(authSalt, cryptoSalt) {
		return ErrSaltReuse
	}

	cond, err := Register(ctx, s, user, authSalt)
	if err != nil {
		return err
	}
	if cond == models.AuthTOTPRequired {
		return fmt.Errorf("%w: unexpected totp demand after registration", ErrAuthorizationFailure)
	}
	if _, err = GenerateMasterKeypair(ctx, s, user.Password, cryptoSalt); err != nil {
		return err
	}
	return ConfirmAccount(ctx, s)
}

// RetrieveMasterKeypair downloads the master keys and unwraps the private
// key with password. When the API is unreachable the cached copy is used.
func RetrieveMasterKeypair(ctx context.Context, s *AuthSession, password string) (*MasterKeypair, error) {
	who, err := s.Current()
	if err != nil {
		return nil, err
	}

	keys, err := s.adapter.GetMasterKeys(ctx)
	if err != nil {
		cached, ok, cacheErr := s.cachedMasterKeys(ctx, who.ID)
		if cacheErr != nil || !ok {
			return nil, transportError("get master keys", err)
		}
		s.logger.Warn().Err(err).Str("func", "RetrieveMasterKeypair").Msg("using cached master keys")
		keys = cached
	}

	key, err := s.credentials.DeriveCryptoKey(ctx, password, keys.HashParams)
	if err != nil {
		return nil, err
	}
	priv, err := s.keychain.UnwrapPrivateKey(keys.PrivateKey, key)
	if err != nil {
		return nil, fmt.Errorf("unlock master keypair: %w", err)
	}
	pub, err := s.keychain.ImportPublicKey(keys.PublicKey)
	if err != nil {
		return nil, err
	}

	mk := &MasterKeypair{PublicKey: pub, PrivateKey: priv}
	if err = s.storeMasterKeys(ctx, who.ID, keys, mk); err != nil {
		return nil, err
	}
	return mk, nil
}

// ChangePassword re-derives the signing key and re-wraps the master private
// key under newPassword with fresh salts. The session must be elevated.
func ChangePassword(ctx context.Context, s *AuthSession, oldPassword, newPassword string, authSalt, cryptoSalt []byte) error {
	if bytes.Equal(authSalt, cryptoSalt) {
		return ErrSaltReuse
	}
	who, err := s.Current()
	if err != nil {
		return err
	}

	mk, err := RetrieveMasterKeypair(ctx, s, oldPassword)
	if err != nil {
		return err
	}

	authParams := s.HashParams().WithSalt(crypto.Encode(authSalt))
	cryptoParams := s.HashParams().WithSalt(crypto.Encode(cryptoSalt))

	seed, err := s.credentials.DeriveAuthSeed(ctx, newPassword, authParams)
	if err != nil {
		return err
	}
	keypair, err := s.credentials.DeriveSigningKeypair(ctx, seed, true)
	if err != nil {
		return err
	}
	key, err := s.credentials.DeriveCryptoKey(ctx, newPassword, cryptoParams)
	if err != nil {
		return err
	}
	wrapped, err := s.keychain.WrapPrivateKey(mk.PrivateKey, key)
	if err != nil {
		return err
	}
	pub, err := s.keychain.ExportPublicKey(mk.PublicKey)
	if err != nil {
		return err
	}

	err = s.adapter.ChangePassword(ctx, models.PasswordUpdate{
		AuthKey:    crypto.Encode(keypair.PublicKey),
		PrivateKey: wrapped,
		HashParams: models.PasswordHashParams{Auth: authParams, Crypto: cryptoParams},
	})
	if err != nil {
		return transportError("change password", err)
	}

	s.setAuthSeed(seed, authParams)
	keys := models.MasterKeys{PublicKey: pub, PrivateKey: wrapped, HashParams: cryptoParams}
	return s.storeMasterKeys(ctx, who.ID, keys, mk)
}

// Upgrade elevates the current session by answering an upgrade challenge
// with password.
func Upgrade(ctx context.Context, s *AuthSession, password string) (models.AuthCondition, error) {
	who, err := s.Current()
	if err != nil {
		return 0, err
	}
	return Authenticate(ctx, s, models.AuthUser{Email: who.Email, Password: password}, AuthOptions{Upgrade: true})
}

// Downgrade drops the elevation of the current session.
func Downgrade(ctx context.Context, s *AuthSession) error {
	if _, err := s.Current(); err != nil {
		return err
	}
	return transportError("downgrade", s.adapter.Downgrade(ctx))
}

// ConfirmAccount marks the registration of the current user complete.
func ConfirmAccount(ctx context.Context, s *AuthSession) error {
	who, err := s.Current()
	if err != nil {
		return err
	}
	return transportError("confirm account", s.adapter.ConfirmAccount(ctx, who.ID))
}

// EnableTOTP elevates the session with password and turns on TOTP for the
// account. The returned secret and backup codes are shown once.
func EnableTOTP(ctx context.Context, s *AuthSession, password string) (models.TOTPInfo, error) {
	if _, err := Upgrade(ctx, s, password); err != nil {
		return models.TOTPInfo{}, err
	}
	info, err := s.adapter.EnableTOTP(ctx)
	if err != nil {
		return models.TOTPInfo{}, transportError("enable totp", err)
	}
	return info, nil
}

// DisableTOTP elevates the session with password and turns TOTP off.
func DisableTOTP(ctx context.Context, s *AuthSession, password string) error {
	if _, err := Upgrade(ctx, s, password); err != nil {
		return err
	}
	return transportError("disable totp", s.adapter.DisableTOTP(ctx))
}

// SendVerificationEmail asks the API to mail a verification link.
func SendVerificationEmail(ctx context.Context, s *AuthSession) error {
	if _, err := s.Current(); err != nil {
		return err
	}
	return transportError("send verification email", s.adapter.SendVerificationEmail(ctx))
}

// RefreshIdentity reloads the account flags of the current session.
func RefreshIdentity(ctx context.Context, s *AuthSession) (models.WhoAmI, error) {
	if _, err := s.Current(); err != nil {
		return models.WhoAmI{}, err
	}
	me, err := s.adapter.WhoAmI(ctx)
	if err != nil {
		return models.WhoAmI{}, transportError("whoami", err)
	}
	who := models.Authenticated{ID: me.UserID, Email: me.Email, Verified: me.Verified, AccountType: me.AccountType}
	if err = s.persist(ctx, who); err != nil {
		return models.WhoAmI{}, err
	}
	s.Identity.Set(who)
	return me, nil
}

// Logout ends the session on the API and wipes every local trace of it.
func Logout(ctx context.Context, s *AuthSession) error {
	if err := s.adapter.Logout(ctx); err != nil {
		return transportError("logout", err)
	}
	return s.clear(ctx)
}

// Restore re-publishes a persisted session. It reports false when nothing
// was persisted.
func Restore(ctx context.Context, s *AuthSession) (bool, error) {
	raw, ok, err := s.kv.Get(ctx, store.KeyUser)
	if err != nil || !ok {
		return false, err
	}
	var who models.Authenticated
	if err = json.Unmarshal([]byte(raw), &who); err != nil {
		return false, fmt.Errorf("decode persisted user: %w", err)
	}

	var creds adapter.Credentials
	if creds.CSRFToken, _, err = s.kv.Get(ctx, store.KeyCSRFToken); err != nil {
		return false, err
	}
	if creds.SessionCookie, _, err = s.kv.Get(ctx, store.KeySessionCookie); err != nil {
		return false, err
	}
	s.adapter.SetCredentials(creds)

	s.Identity.Set(who)
	s.Phase.Set(PhaseAuthenticated)
	return true, nil
}

func (s *AuthSession) begin() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.inFlight {
		return ErrAuthInProgress
	}
	s.inFlight = true
	return nil
}

func (s *AuthSession) end() {
	s.mu.Lock()
	s.inFlight = false
	s.mu.Unlock()
}

func (s *AuthSession) fail(err error) (models.AuthCondition, error) {
	s.logger.Error().Err(err).Str("func", "AuthSession.fail").Msg("authentication failed")
	s.Phase.Set(PhaseFailed)
	return 0, err
}

// authSeedFor returns the seed to sign with. Params always come from the
// current challenge; a held seed is reused only when it was derived with
// the same params.
func (s *AuthSession) authSeedFor(ctx context.Context, password string, params models.HashParams, reuse bool) ([]byte, error) {
	if reuse {
		s.mu.Lock()
		var seed []byte
		if s.authParams == params {
			seed = bytes.Clone(s.authSeed)
		}
		s.mu.Unlock()
		if seed != nil {
			return seed, nil
		}
	}
	seed, err := s.credentials.DeriveAuthSeed(ctx, password, params)
	if err != nil {
		return nil, err
	}
	s.setAuthSeed(seed, params)
	return seed, nil
}

func (s *AuthSession) setAuthSeed(seed []byte, params models.HashParams) {
	s.mu.Lock()
	s.authSeed = bytes.Clone(seed)
	s.authParams = params
	s.mu.Unlock()
}

func (s *AuthSession) persist(ctx context.Context, who models.Authenticated) error {
	creds := s.adapter.Credentials()
	raw, err := json.Marshal(who)
	if err != nil {
		return fmt.Errorf("encode user: %w", err)
	}
	if err = s.kv.Set(ctx, store.KeyUser, string(raw)); err != nil {
		return err
	}
	if creds.CSRFToken != "" {
		if err = s.kv.Set(ctx, store.KeyCSRFToken, creds.CSRFToken); err != nil {
			return err
		}
	}
	if creds.SessionCookie != "" {
		if err = s.kv.Set(ctx, store.KeySessionCookie, creds.SessionCookie); err != nil {
			return err
		}
	}
	return nil
}

func (s *AuthSession) storeMasterKeys(ctx context.Context, userID string, keys models.MasterKeys, mk *MasterKeypair) error {
	raw, err := json.Marshal(keys)
	if err != nil {
		return fmt.Errorf("encode master keys: %w", err)
	}
	if err = s.cache.Put(ctx, store.CacheEntry{Namespace: NamespaceKeys, Key: userID, Payload: raw}); err != nil {
		return err
	}
	s.mu.Lock()
	s.masterKeys = mk
	s.mu.Unlock()
	return nil
}

func (s *AuthSession) cachedMasterKeys(ctx context.Context, userID string) (models.MasterKeys, bool, error) {
	entry, ok, err := s.cache.Get(ctx, NamespaceKeys, userID)
	if err != nil || !ok {
		return models.MasterKeys{}, ok, err
	}
	var keys models.MasterKeys
	if err = json.Unmarshal(entry.Payload, &keys); err != nil {
		return models.MasterKeys{}, false, fmt.Errorf("decode cached master keys: %w", err)
	}
	return keys, true, nil
}

func (s *AuthSession) clear(ctx context.Context) error {
	s.mu.Lock()
	clear(s.authSeed)
	s.authSeed = nil
	s.authParams = models.HashParams{}
	s.masterKeys = nil
	s.mu.Unlock()

	var errs []error
	errs = append(errs, s.cache.Clear(ctx, ""))
	for _, key := range []string{store.KeyUser, store.KeyCSRFToken, store.KeySessionCookie} {
		errs = append(errs, s.kv.Delete(ctx, key))
	}

	s.Identity.Set(models.Anonymous{})
	s.Phase.Set(PhaseIdle)
	return errors.Join(errs...)
}
