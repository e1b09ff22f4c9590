package service

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MKhiriev/go-vault-sync/internal/crypto"
	"github.com/MKhiriev/go-vault-sync/models"
)

func testResourceKey(t *testing.T) []byte {
	t.Helper()
	key, err := crypto.NewKeyChainService().GenerateKey()
	require.NoError(t, err)
	return key
}

func TestListCodec(t *testing.T) {
	codec := NewListCodec(crypto.NewKeyChainService())
	key := testResourceKey(t)
	list := models.List{
		Title: "Groceries",
		Items: []models.ListItem{
			{Title: "milk", Description: "2%", Done: true, Tags: []string{"t1"}},
			{Title: "bread", Tags: nil},
		},
		ReverseItems: true,
		Archived:     true,
	}

	doc, err := codec.Encrypt(list, key, "wrapped")
	require.NoError(t, err)

	assert.Equal(t, "wrapped", doc.Meta.CryptoKey)
	assert.NotEqual(t, list.Title, doc.Title)
	assert.NotEqual(t, "true", doc.Items[0].Done)
	assert.NotEqual(t, "true", doc.Meta.ReverseItems)
	assert.True(t, doc.Meta.Archived, "the archive flag stays in the clear")
	assert.Equal(t, []string{"t1"}, doc.Items[0].Tags)
	assert.Equal(t, []string{}, doc.Items[1].Tags)

	got, err := codec.Decrypt(doc, key)
	require.NoError(t, err)
	list.Items[1].Tags = []string{}
	assert.Equal(t, list, got)
}

func TestListCodec_MissingReverseFlag(t *testing.T) {
	codec := NewListCodec(crypto.NewKeyChainService())
	key := testResourceKey(t)

	doc, err := codec.Encrypt(models.List{Title: "x", ReverseItems: true}, key, "")
	require.NoError(t, err)
	doc.Meta.ReverseItems = ""

	got, err := codec.Decrypt(doc, key)
	require.NoError(t, err)
	assert.False(t, got.ReverseItems)
}

func TestTagCodec_WrongKey(t *testing.T) {
	codec := NewTagCodec(crypto.NewKeyChainService())

	doc, err := codec.Encrypt(models.Tag{Name: "a"}, testResourceKey(t), "")
	require.NoError(t, err)

	_, err = codec.Decrypt(doc, testResourceKey(t))
	assert.Error(t, err)
	_, err = codec.Decrypt(doc, nil)
	assert.ErrorIs(t, err, crypto.ErrInvalidKey)
}

func TestNameCodec(t *testing.T) {
	codec := NewNameCodec(crypto.NewKeyChainService())
	key := testResourceKey(t)

	public := models.Name{
		FirstName:  "Ada",
		LastName:   "Lovelace",
		Visibility: models.NameVisibility{FirstName: models.VisibilityPublic, LastName: models.VisibilityPublic},
	}
	assert.False(t, codec.NeedsKey(public))

	doc, err := codec.Encrypt(public, nil, "")
	require.NoError(t, err)
	assert.Equal(t, "Ada", doc.FirstName)
	got, err := codec.Decrypt(doc, nil)
	require.NoError(t, err)
	assert.Equal(t, public, got)

	pref := models.DisplayFirstName
	private := public
	private.Visibility.LastName = models.VisibilityEncrypted
	private.PrivateDisplayName = &pref
	assert.True(t, codec.NeedsKey(private))

	doc, err = codec.Encrypt(private, key, "wrapped")
	require.NoError(t, err)
	assert.Equal(t, "Ada", doc.FirstName)
	assert.NotEqual(t, "Lovelace", doc.LastName)
	assert.NotEmpty(t, doc.PrivateDisplayName)

	doc.Username = "ada"
	got, err = codec.Decrypt(doc, key)
	require.NoError(t, err)
	private.Username = "ada"
	assert.Equal(t, private, got)
}

func TestProfilePictureCodec(t *testing.T) {
	codec := NewProfilePictureCodec(crypto.NewKeyChainService())
	key := testResourceKey(t)
	image := []byte{0x89, 'P', 'N', 'G', 0, 1, 2}

	public := models.ProfilePicture{Image: image, Encoding: "image/png", Visibility: models.VisibilityPublic}
	doc, err := codec.Encrypt(public, key, "wrapped")
	require.NoError(t, err)
	assert.Equal(t, crypto.Encode(image), doc.Image)
	assert.Empty(t, doc.Meta.CryptoKey)
	assert.Equal(t, "image/png", doc.Meta.Encoding)

	private := public
	private.Visibility = models.VisibilityEncrypted
	doc, err = codec.Encrypt(private, key, "wrapped")
	require.NoError(t, err)
	assert.NotEqual(t, crypto.Encode(image), doc.Image)
	assert.NotEqual(t, "image/png", doc.Meta.Encoding)

	got, err := codec.Decrypt(doc, key)
	require.NoError(t, err)
	assert.Equal(t, private, got)
}

func TestCustomerIDCodec(t *testing.T) {
	codec := NewCustomerIDCodec(crypto.NewKeyChainService())
	key := testResourceKey(t)
	id := models.CustomerID{CustomerID: "cus_123", Address: models.CustomerAddress{Country: "NL", PostalCode: "1012"}}

	doc, err := codec.Encrypt(id, key, "")
	require.NoError(t, err)
	assert.NotEqual(t, "cus_123", doc.CustomerID)

	got, err := codec.Decrypt(doc, key)
	require.NoError(t, err)
	assert.Equal(t, id, got)
}

func TestSessionCodec(t *testing.T) {
	codec := NewSessionCodec(crypto.NewKeyChainService())
	key := testResourceKey(t)

	bare := models.SessionDocument{ID: "s1", AuthLevel: models.AuthLevelNormal, Created: 1, LastUsed: 2, IsCurrent: true}
	got, err := codec.Decrypt(bare, nil)
	require.NoError(t, err)
	assert.Equal(t, models.Session{AuthLevel: models.AuthLevelNormal, CreatedAt: 1, LastUsedAt: 2, IsCurrent: true}, got)
	assert.False(t, codec.NeedsKey(got))

	got.ClientMeta = &models.SessionClientMeta{IP: "10.0.0.1", OS: "linux", Browser: "cli"}
	assert.True(t, codec.NeedsKey(got))

	doc, err := codec.Encrypt(got, key, "wrapped")
	require.NoError(t, err)
	require.NotNil(t, doc.Meta)
	assert.Equal(t, "wrapped", doc.Meta.CryptoKey)
	assert.NotEqual(t, "10.0.0.1", doc.Meta.IP)
	assert.Empty(t, doc.ID, "only the meta is sent")

	bare.Meta = doc.Meta
	opened, err := codec.Decrypt(bare, key)
	require.NoError(t, err)
	assert.Equal(t, got, opened)
}
