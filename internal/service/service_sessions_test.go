package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MKhiriev/go-vault-sync/internal/store"
	"github.com/MKhiriev/go-vault-sync/models"
)

func TestSessionService(t *testing.T) {
	ctx := context.Background()
	f := newServerFixture(t)
	acc := f.register(t, "ada@example.com")
	_, current := f.login(t, acc)
	_, other := f.login(t, acc)
	sessions := f.services.SessionService

	list, err := sessions.List(ctx, current)
	require.NoError(t, err)
	require.Len(t, list, 2)
	byID := map[string]models.SessionDocument{}
	for _, s := range list {
		byID[s.ID] = s
	}
	assert.True(t, byID[current.SessionID].IsCurrent)
	assert.False(t, byID[other.SessionID].IsCurrent)
	assert.Nil(t, byID[current.SessionID].Meta)
	assert.NotZero(t, byID[current.SessionID].Created)

	meta := &models.EncryptedSessionMeta{CryptoKey: "wrapped", IP: "ip1", OS: "os1", Browser: "b1"}
	res, err := sessions.Describe(ctx, current, current.SessionID, models.SessionDocument{Meta: meta})
	require.NoError(t, err)
	assert.Equal(t, "wrapped", res.Meta.CryptoKey)

	res, err = sessions.Describe(ctx, current, current.SessionID,
		models.SessionDocument{Meta: &models.EncryptedSessionMeta{IP: "ip2", OS: "os2", Browser: "b2"}})
	require.NoError(t, err)
	assert.Equal(t, "wrapped", res.Meta.CryptoKey, "a missing key keeps the stored one")

	list, err = sessions.List(ctx, current)
	require.NoError(t, err)
	for _, s := range list {
		if s.ID == current.SessionID {
			require.NotNil(t, s.Meta)
			assert.Equal(t, models.EncryptedSessionMeta{CryptoKey: "wrapped", IP: "ip2", OS: "os2", Browser: "b2"}, *s.Meta)
		}
	}

	require.NoError(t, sessions.Revoke(ctx, current, other.SessionID))
	list, err = sessions.List(ctx, current)
	require.NoError(t, err)
	assert.Len(t, list, 1)
}

func TestSessionService_OtherUsers(t *testing.T) {
	ctx := context.Background()
	f := newServerFixture(t)
	_, ada := f.login(t, f.register(t, "ada@example.com"))
	_, bob := f.login(t, f.register(t, "bob@example.com"))

	err := f.services.SessionService.Revoke(ctx, ada, bob.SessionID)
	assert.ErrorIs(t, err, store.ErrSessionNotFound)

	_, err = f.services.SessionService.Describe(ctx, ada, bob.SessionID,
		models.SessionDocument{Meta: &models.EncryptedSessionMeta{IP: "x"}})
	assert.ErrorIs(t, err, store.ErrSessionNotFound)
}
