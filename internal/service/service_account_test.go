package service

import (
	"context"
	"crypto/ed25519"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MKhiriev/go-vault-sync/internal/crypto"
	"github.com/MKhiriev/go-vault-sync/internal/store"
	"github.com/MKhiriev/go-vault-sync/internal/utils"
	"github.com/MKhiriev/go-vault-sync/models"
)

func TestAccountService_MasterKeys(t *testing.T) {
	ctx := context.Background()
	f := newServerFixture(t)
	acc := f.register(t, "ada@example.com")
	p := utils.Principal{UserID: acc.user.ID, AuthLevel: models.AuthLevelNormal}
	accounts := f.services.AccountService

	_, err := accounts.GetMasterKeys(ctx, p)
	assert.ErrorIs(t, err, store.ErrMasterKeysNotFound)

	keys := models.MasterKeys{PublicKey: "pub", PrivateKey: "wrapped-priv", HashParams: testHashParams(saltOf(2))}
	require.NoError(t, accounts.SaveMasterKeys(ctx, p, keys))
	assert.ErrorIs(t, accounts.SaveMasterKeys(ctx, p, keys), ErrKeysAlreadyStored)
	assert.ErrorIs(t, accounts.SaveMasterKeys(ctx, p, models.MasterKeys{}), ErrInvalidDataProvided)

	got, err := accounts.GetMasterKeys(ctx, p)
	require.NoError(t, err)
	assert.Equal(t, keys, got)
}

func TestAccountService_ChangePassword(t *testing.T) {
	ctx := context.Background()
	f := newServerFixture(t)
	acc := f.register(t, "ada@example.com")
	accounts := f.services.AccountService

	p := utils.Principal{UserID: acc.user.ID, AuthLevel: models.AuthLevelNormal}
	require.NoError(t, accounts.SaveMasterKeys(ctx, p,
		models.MasterKeys{PublicKey: "pub", PrivateKey: "old-priv", HashParams: testHashParams(saltOf(2))}))

	pub, _, err := ed25519.GenerateKey(nil)
	require.NoError(t, err)
	update := models.PasswordUpdate{
		AuthKey:    crypto.Encode(pub),
		PrivateKey: "new-priv",
		HashParams: models.PasswordHashParams{Auth: testHashParams(saltOf(3)), Crypto: testHashParams(saltOf(4))},
	}

	assert.ErrorIs(t, accounts.ChangePassword(ctx, p, update), ErrElevationRequired)

	p.AuthLevel = models.AuthLevelElevated
	reused := update
	reused.HashParams.Crypto = reused.HashParams.Auth
	assert.ErrorIs(t, accounts.ChangePassword(ctx, p, reused), ErrInvalidDataProvided)

	require.NoError(t, accounts.ChangePassword(ctx, p, update))

	keys, err := accounts.GetMasterKeys(ctx, p)
	require.NoError(t, err)
	assert.Equal(t, "pub", keys.PublicKey, "the public key never changes")
	assert.Equal(t, "new-priv", keys.PrivateKey)
	assert.Equal(t, update.HashParams.Crypto, keys.HashParams)

	user, err := f.storages.Users.FindUserByID(ctx, acc.user.ID)
	require.NoError(t, err)
	assert.Equal(t, update.AuthKey, user.AuthKey)
	assert.Equal(t, update.HashParams.Auth, user.HashParams)
}

func TestAccountService_Username(t *testing.T) {
	ctx := context.Background()
	f := newServerFixture(t)
	ada := utils.Principal{UserID: f.register(t, "ada@example.com").user.ID}
	bob := utils.Principal{UserID: f.register(t, "bob@example.com").user.ID}
	accounts := f.services.AccountService

	claimed, err := accounts.ClaimUsername(ctx, ada, "ada")
	require.NoError(t, err)
	assert.Equal(t, "ada", claimed.Username)

	_, err = accounts.ClaimUsername(ctx, bob, "ada")
	assert.ErrorIs(t, err, ErrUsernameTaken)
	_, err = accounts.ClaimUsername(ctx, bob, "a")
	assert.ErrorIs(t, err, ErrInvalidDataProvided)

	require.NoError(t, accounts.ReleaseUsername(ctx, ada))
	_, err = accounts.ClaimUsername(ctx, bob, "ada")
	assert.NoError(t, err)
}
