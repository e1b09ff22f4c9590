package client

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/MKhiriev/go-vault-sync/internal/adapter"
	"github.com/MKhiriev/go-vault-sync/internal/config"
	"github.com/MKhiriev/go-vault-sync/internal/crypto"
	"github.com/MKhiriev/go-vault-sync/internal/logger"
	"github.com/MKhiriev/go-vault-sync/internal/service"
	"github.com/MKhiriev/go-vault-sync/internal/store"
	"github.com/MKhiriev/go-vault-sync/models"
)

// DefaultSyncInterval is used when the configuration sets none.
const DefaultSyncInterval = 5 * time.Minute

const saltSize = 16

// Client is a wired sync client. Resource stores are empty until [Client.Load].
type Client struct {
	Auth        *service.AuthSession
	Calibration *service.CalibrationService

	Lists          *service.ListStore
	Tags           *service.TagStore
	Name           *service.NameStore
	ProfilePicture *service.ProfilePictureStore
	CustomerID     *service.CustomerIDStore
	Sessions       *service.SessionStore

	adapter  *adapter.HTTPAdapter
	storages *store.ClientStorages
	hasher   *crypto.Argon2Worker
	signer   *crypto.ED25519Worker
	refresh  *service.RefreshJob

	targetHashTime time.Duration
	fixedParams    bool
	syncInterval   time.Duration
	logger         *logger.Logger
}

type options struct {
	session     []service.AuthSessionOption
	engine      []service.EngineOption
	fixedParams bool
}

// Option configures a Client.
type Option func(*options)

// WithHashParams fixes the hash parameters of new salts. SignUp then skips
// calibration.
func WithHashParams(p models.HashParams) Option {
	return func(o *options) {
		o.session = append(o.session, service.WithHashParams(p))
		o.fixedParams = true
	}
}

// WithEngineOptions is applied to every resource store.
func WithEngineOptions(opts ...service.EngineOption) Option {
	return func(o *options) {
		o.engine = append(o.engine, opts...)
	}
}

// New opens the local cache and wires every component. Close releases them.
func New(ctx context.Context, cfg *config.ClientConfig, log *logger.Logger, opts ...Option) (*Client, error) {
	var o options
	for _, opt := range opts {
		opt(&o)
	}

	httpAdapter, err := adapter.NewHTTPAdapter(cfg.Adapter, log)
	if err != nil {
		return nil, fmt.Errorf("error creating adapter: %w", err)
	}

	storages, err := store.NewClientStorages(ctx, cfg.Storage.DB, log)
	if err != nil {
		return nil, fmt.Errorf("error creating local storage: %w", err)
	}

	keychain := crypto.NewKeyChainService()
	hasher := crypto.NewArgon2Worker(cfg.App.Development)
	signer := crypto.NewED25519Worker(cfg.App.Development)

	sessionOpts := append([]service.AuthSessionOption{service.WithRSAKeySize(cfg.Crypto.RSAKeySize)}, o.session...)
	auth := service.NewAuthSession(httpAdapter, service.NewCredentialService(hasher, signer, log),
		keychain, storages.Cache, storages.KV, log, sessionOpts...)

	c := &Client{
		Auth:        auth,
		Calibration: service.NewCalibrationService(hasher, keychain, log),

		Lists: service.NewListStore(
			adapter.NewResourceClient[models.EncryptedList](httpAdapter, "/todos", "lists"),
			auth, keychain, storages.Cache, log, o.engine...),
		Tags: service.NewTagStore(
			adapter.NewResourceClient[models.EncryptedTag](httpAdapter, "/tags", "tags"),
			auth, keychain, storages.Cache, log, o.engine...),
		Name: service.NewNameStore(
			adapter.NewResourceClient[models.EncryptedName](httpAdapter, "/name", "name"),
			auth, keychain, storages.Cache, log, o.engine...),
		ProfilePicture: service.NewProfilePictureStore(
			adapter.NewResourceClient[models.EncryptedProfilePicture](httpAdapter, "/profile-picture", "profile picture"),
			auth, keychain, storages.Cache, log, o.engine...),
		CustomerID: service.NewCustomerIDStore(
			adapter.NewResourceClient[models.EncryptedCustomerID](httpAdapter, "/stripe/customer-id", "customer id",
				adapter.WithSingletonSave(http.MethodPost, http.StatusCreated)),
			auth, keychain, storages.Cache, log, o.engine...),
		Sessions: service.NewSessionStore(
			adapter.NewResourceClient[models.SessionDocument](httpAdapter, "/sessions", "sessions"),
			auth, keychain, nil, log, o.engine...),

		adapter:        httpAdapter,
		storages:       storages,
		hasher:         hasher,
		signer:         signer,
		targetHashTime: cfg.Crypto.TargetHashTime,
		fixedParams:    o.fixedParams,
		syncInterval:   cfg.Workers.SyncInterval,
		logger:         log.WithComponent("client"),
	}
	if c.syncInterval <= 0 {
		c.syncInterval = DefaultSyncInterval
	}
	c.refresh = service.NewRefreshJob(auth, log, c.Lists, c.Tags, c.Name, c.ProfilePicture, c.CustomerID, c.Sessions)

	return c, nil
}

// SignUp calibrates the hash parameters on this machine, creates an account
// for email with fresh auth and crypto salts and leaves the client logged in
// with the master keypair unlocked.
func (c *Client) SignUp(ctx context.Context, email, password string) error {
	if !c.fixedParams {
		params, err := c.Calibrate(ctx, password)
		if err != nil {
			return fmt.Errorf("calibrate: %w", err)
		}
		c.Auth.SetHashParams(params)
	}

	keychain := crypto.NewKeyChainService()
	authSalt, err := keychain.GenerateSalt(saltSize)
	if err != nil {
		return err
	}
	cryptoSalt, err := keychain.GenerateSalt(saltSize)
	if err != nil {
		return err
	}
	return service.CreateAccount(ctx, c.Auth, models.AuthUser{Email: email, Password: password}, authSalt, cryptoSalt)
}

// Login authenticates and unlocks the master keypair. A TOTP demand is
// returned as models.AuthTOTPRequired and nothing is unlocked.
func (c *Client) Login(ctx context.Context, email, password string, totp *int) (models.AuthCondition, error) {
	cond, err := service.Authenticate(ctx, c.Auth, models.AuthUser{Email: email, Password: password, TOTPCode: totp}, service.AuthOptions{})
	if err != nil || cond != models.AuthSuccess {
		return cond, err
	}
	if _, err = service.RetrieveMasterKeypair(ctx, c.Auth, password); err != nil {
		return cond, err
	}
	return cond, nil
}

// Resume restores a persisted session and unlocks it with password. It
// reports false when no session was persisted.
func (c *Client) Resume(ctx context.Context, password string) (bool, error) {
	ok, err := service.Restore(ctx, c.Auth)
	if err != nil || !ok {
		return false, err
	}
	if _, err = service.RetrieveMasterKeypair(ctx, c.Auth, password); err != nil {
		return true, err
	}
	return true, nil
}

// Load fills every store concurrently and starts the background refresh.
// Partial failures are returned joined; the refresh job retries them.
func (c *Client) Load(ctx context.Context) error {
	who, err := c.Auth.Current()
	if err != nil {
		return err
	}

	// The group has no shared context: one failing store does not cancel
	// the others, and Wait reports the first failure.
	var g errgroup.Group
	g.Go(func() error { return loadErr("lists", c.Lists.Init(ctx, who, models.ListFilterAll)) })
	g.Go(func() error { return loadErr("tags", c.Tags.Init(ctx, who, service.FilterAll)) })
	g.Go(func() error { return loadErr("name", c.Name.Init(ctx, who, "")) })
	g.Go(func() error { return loadErr("profile picture", c.ProfilePicture.Init(ctx, who, "")) })
	g.Go(func() error { return loadErr("customer id", c.CustomerID.Init(ctx, who, "")) })
	g.Go(func() error { return loadErr("sessions", c.Sessions.Init(ctx, who, service.FilterAll)) })
	err = g.Wait()

	c.refresh.Start(context.WithoutCancel(ctx), c.syncInterval)
	return err
}

func loadErr(what string, err error) error {
	if err != nil {
		return fmt.Errorf("load %s: %w", what, err)
	}
	return nil
}

// Logout ends the session and forgets every held resource.
func (c *Client) Logout(ctx context.Context) error {
	c.refresh.Stop()
	err := service.Logout(ctx, c.Auth)

	c.Lists.Reset()
	c.Tags.Reset()
	c.Name.Reset()
	c.ProfilePicture.Reset()
	c.CustomerID.Reset()
	c.Sessions.Reset()
	return err
}

// Calibrate measures this machine and returns hash parameters that take
// about the configured target time.
func (c *Client) Calibrate(ctx context.Context, password string) (models.HashParams, error) {
	target := c.targetHashTime
	if target <= 0 {
		target = service.DefaultTargetHashTime
	}
	return c.Calibration.Calibrate(ctx, password, target)
}

// Close stops the refresh job and the workers and closes the local cache.
func (c *Client) Close() error {
	c.refresh.Stop()
	c.hasher.Close()
	c.signer.Close()
	return c.storages.Close()
}
