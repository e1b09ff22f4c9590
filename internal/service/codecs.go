package service

import (
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/MKhiriev/go-vault-sync/internal/crypto"
	"github.com/MKhiriev/go-vault-sync/models"
)

// fieldCipher seals single fields with a resource key.
type fieldCipher struct {
	keychain crypto.KeyChainService
}

func (c fieldCipher) seal(plain string, key []byte) (string, error) {
	return c.keychain.EncryptString(plain, key)
}

func (c fieldCipher) open(sealed string, key []byte) (string, error) {
	if key == nil {
		return "", fmt.Errorf("%w: missing resource key", crypto.ErrInvalidKey)
	}
	return c.keychain.DecryptString(sealed, key)
}

// ListCodec encrypts todo lists. Tag ids of items stay in the clear so the
// API can drop them when a tag is deleted.
type ListCodec struct {
	fieldCipher
}

// NewListCodec builds a ListCodec.
func NewListCodec(keychain crypto.KeyChainService) ListCodec {
	return ListCodec{fieldCipher{keychain}}
}

func (c ListCodec) NeedsKey(models.List) bool { return true }

func (c ListCodec) Encrypt(list models.List, key []byte, wrappedKey string) (models.EncryptedList, error) {
	title, err := c.seal(list.Title, key)
	if err != nil {
		return models.EncryptedList{}, err
	}
	items := make([]models.EncryptedListItem, 0, len(list.Items))
	for _, item := range list.Items {
		enc := models.EncryptedListItem{Tags: item.Tags}
		if enc.Title, err = c.seal(item.Title, key); err != nil {
			return models.EncryptedList{}, err
		}
		if enc.Description, err = c.seal(item.Description, key); err != nil {
			return models.EncryptedList{}, err
		}
		if enc.Done, err = c.seal(strconv.FormatBool(item.Done), key); err != nil {
			return models.EncryptedList{}, err
		}
		if enc.Tags == nil {
			enc.Tags = []string{}
		}
		items = append(items, enc)
	}
	reverse, err := c.seal(strconv.FormatBool(list.ReverseItems), key)
	if err != nil {
		return models.EncryptedList{}, err
	}

	return models.EncryptedList{
		Title: title,
		Items: items,
		Meta: models.EncryptedListMeta{
			Meta:         models.Meta{CryptoKey: wrappedKey},
			ReverseItems: reverse,
			Archived:     list.Archived,
		},
	}, nil
}

func (c ListCodec) Decrypt(doc models.EncryptedList, key []byte) (models.List, error) {
	title, err := c.open(doc.Title, key)
	if err != nil {
		return models.List{}, err
	}
	items := make([]models.ListItem, 0, len(doc.Items))
	for _, enc := range doc.Items {
		item := models.ListItem{Tags: enc.Tags}
		if item.Title, err = c.open(enc.Title, key); err != nil {
			return models.List{}, err
		}
		if item.Description, err = c.open(enc.Description, key); err != nil {
			return models.List{}, err
		}
		done, err := c.open(enc.Done, key)
		if err != nil {
			return models.List{}, err
		}
		item.Done = done == "true"
		if item.Tags == nil {
			item.Tags = []string{}
		}
		items = append(items, item)
	}

	list := models.List{Title: title, Items: items, Archived: doc.Meta.Archived}
	if doc.Meta.ReverseItems != "" {
		reverse, err := c.open(doc.Meta.ReverseItems, key)
		if err != nil {
			return models.List{}, err
		}
		list.ReverseItems = reverse == "true"
	}
	return list, nil
}

// TagCodec encrypts every tag field.
type TagCodec struct {
	fieldCipher
}

// NewTagCodec builds a TagCodec.
func NewTagCodec(keychain crypto.KeyChainService) TagCodec {
	return TagCodec{fieldCipher{keychain}}
}

func (c TagCodec) NeedsKey(models.Tag) bool { return true }

func (c TagCodec) Encrypt(tag models.Tag, key []byte, wrappedKey string) (models.EncryptedTag, error) {
	var (
		out models.EncryptedTag
		err error
	)
	if out.Name, err = c.seal(tag.Name, key); err != nil {
		return models.EncryptedTag{}, err
	}
	if out.Color, err = c.seal(tag.Color, key); err != nil {
		return models.EncryptedTag{}, err
	}
	if out.TextColor, err = c.seal(tag.TextColor, key); err != nil {
		return models.EncryptedTag{}, err
	}
	out.Meta = models.Meta{CryptoKey: wrappedKey}
	return out, nil
}

func (c TagCodec) Decrypt(doc models.EncryptedTag, key []byte) (models.Tag, error) {
	var (
		out models.Tag
		err error
	)
	if out.Name, err = c.open(doc.Name, key); err != nil {
		return models.Tag{}, err
	}
	if out.Color, err = c.open(doc.Color, key); err != nil {
		return models.Tag{}, err
	}
	if out.TextColor, err = c.open(doc.TextColor, key); err != nil {
		return models.Tag{}, err
	}
	return out, nil
}

// NameCodec stores each name field in the clear or encrypted according to
// its visibility. The private display name is always encrypted.
type NameCodec struct {
	fieldCipher
}

// NewNameCodec builds a NameCodec.
func NewNameCodec(keychain crypto.KeyChainService) NameCodec {
	return NameCodec{fieldCipher{keychain}}
}

func (c NameCodec) NeedsKey(name models.Name) bool {
	return name.Visibility.FirstName == models.VisibilityEncrypted ||
		name.Visibility.LastName == models.VisibilityEncrypted ||
		name.PrivateDisplayName != nil
}

func (c NameCodec) Encrypt(name models.Name, key []byte, wrappedKey string) (models.EncryptedName, error) {
	out := models.EncryptedName{
		FirstName:   name.FirstName,
		LastName:    name.LastName,
		Visibility:  name.Visibility,
		DisplayName: name.DisplayName,
		Meta:        models.Meta{CryptoKey: wrappedKey},
	}
	var err error
	if name.Visibility.FirstName == models.VisibilityEncrypted {
		if out.FirstName, err = c.seal(name.FirstName, key); err != nil {
			return models.EncryptedName{}, err
		}
	}
	if name.Visibility.LastName == models.VisibilityEncrypted {
		if out.LastName, err = c.seal(name.LastName, key); err != nil {
			return models.EncryptedName{}, err
		}
	}
	if name.PrivateDisplayName != nil {
		if out.PrivateDisplayName, err = c.seal(strconv.Itoa(int(*name.PrivateDisplayName)), key); err != nil {
			return models.EncryptedName{}, err
		}
	}
	return out, nil
}

func (c NameCodec) Decrypt(doc models.EncryptedName, key []byte) (models.Name, error) {
	out := models.Name{
		FirstName:   doc.FirstName,
		LastName:    doc.LastName,
		Username:    doc.Username,
		Visibility:  doc.Visibility,
		DisplayName: doc.DisplayName,
	}
	var err error
	if doc.Visibility.FirstName == models.VisibilityEncrypted {
		if out.FirstName, err = c.open(doc.FirstName, key); err != nil {
			return models.Name{}, err
		}
	}
	if doc.Visibility.LastName == models.VisibilityEncrypted {
		if out.LastName, err = c.open(doc.LastName, key); err != nil {
			return models.Name{}, err
		}
	}
	if doc.PrivateDisplayName != "" {
		raw, err := c.open(doc.PrivateDisplayName, key)
		if err != nil {
			return models.Name{}, err
		}
		n, err := strconv.Atoi(raw)
		if err != nil {
			return models.Name{}, fmt.Errorf("private display name: %w", err)
		}
		pref := models.DisplayName(n)
		out.PrivateDisplayName = &pref
	}
	return out, nil
}

// ProfilePictureCodec encrypts the image and its media type when the
// picture is private.
type ProfilePictureCodec struct {
	fieldCipher
}

// NewProfilePictureCodec builds a ProfilePictureCodec.
func NewProfilePictureCodec(keychain crypto.KeyChainService) ProfilePictureCodec {
	return ProfilePictureCodec{fieldCipher{keychain}}
}

func (c ProfilePictureCodec) NeedsKey(p models.ProfilePicture) bool {
	return p.Visibility == models.VisibilityEncrypted
}

func (c ProfilePictureCodec) Encrypt(p models.ProfilePicture, key []byte, wrappedKey string) (models.EncryptedProfilePicture, error) {
	out := models.EncryptedProfilePicture{
		Meta: models.EncryptedProfilePictureMeta{
			Meta:       models.Meta{CryptoKey: wrappedKey},
			Visibility: p.Visibility,
			Encoding:   p.Encoding,
		},
	}
	if p.Visibility != models.VisibilityEncrypted {
		out.Image = crypto.Encode(p.Image)
		out.Meta.CryptoKey = ""
		return out, nil
	}

	var err error
	if out.Image, err = c.keychain.Encrypt(p.Image, key); err != nil {
		return models.EncryptedProfilePicture{}, err
	}
	if out.Meta.Encoding, err = c.seal(p.Encoding, key); err != nil {
		return models.EncryptedProfilePicture{}, err
	}
	return out, nil
}

func (c ProfilePictureCodec) Decrypt(doc models.EncryptedProfilePicture, key []byte) (models.ProfilePicture, error) {
	out := models.ProfilePicture{Visibility: doc.Meta.Visibility, Encoding: doc.Meta.Encoding}
	var err error
	if doc.Meta.Visibility != models.VisibilityEncrypted {
		out.Image, err = crypto.Decode(doc.Image)
		return out, err
	}
	if key == nil {
		return models.ProfilePicture{}, fmt.Errorf("%w: missing resource key", crypto.ErrInvalidKey)
	}
	if out.Image, err = c.keychain.Decrypt(doc.Image, key); err != nil {
		return models.ProfilePicture{}, err
	}
	if out.Encoding, err = c.open(doc.Meta.Encoding, key); err != nil {
		return models.ProfilePicture{}, err
	}
	return out, nil
}

// CustomerIDCodec encrypts the payment customer record.
type CustomerIDCodec struct {
	fieldCipher
}

// NewCustomerIDCodec builds a CustomerIDCodec.
func NewCustomerIDCodec(keychain crypto.KeyChainService) CustomerIDCodec {
	return CustomerIDCodec{fieldCipher{keychain}}
}

func (c CustomerIDCodec) NeedsKey(models.CustomerID) bool { return true }

func (c CustomerIDCodec) Encrypt(id models.CustomerID, key []byte, wrappedKey string) (models.EncryptedCustomerID, error) {
	address, err := json.Marshal(id.Address)
	if err != nil {
		return models.EncryptedCustomerID{}, fmt.Errorf("encode address: %w", err)
	}
	out := models.EncryptedCustomerID{Meta: models.Meta{CryptoKey: wrappedKey}}
	if out.CustomerID, err = c.seal(id.CustomerID, key); err != nil {
		return models.EncryptedCustomerID{}, err
	}
	if out.Address, err = c.keychain.Encrypt(address, key); err != nil {
		return models.EncryptedCustomerID{}, err
	}
	return out, nil
}

func (c CustomerIDCodec) Decrypt(doc models.EncryptedCustomerID, key []byte) (models.CustomerID, error) {
	var (
		out models.CustomerID
		err error
	)
	if out.CustomerID, err = c.open(doc.CustomerID, key); err != nil {
		return models.CustomerID{}, err
	}
	address, err := c.keychain.Decrypt(doc.Address, key)
	if err != nil {
		return models.CustomerID{}, err
	}
	if err = json.Unmarshal(address, &out.Address); err != nil {
		return models.CustomerID{}, fmt.Errorf("decode address: %w", err)
	}
	return out, nil
}

// SessionCodec handles the optional encrypted client description of a
// session. The rest of a session is public.
type SessionCodec struct {
	fieldCipher
}

// NewSessionCodec builds a SessionCodec.
func NewSessionCodec(keychain crypto.KeyChainService) SessionCodec {
	return SessionCodec{fieldCipher{keychain}}
}

func (c SessionCodec) NeedsKey(s models.Session) bool { return s.ClientMeta != nil }

// Encrypt only produces the meta part. Session timestamps and levels are
// owned by the API.
func (c SessionCodec) Encrypt(s models.Session, key []byte, wrappedKey string) (models.SessionDocument, error) {
	var out models.SessionDocument
	if s.ClientMeta == nil {
		return out, nil
	}
	meta := &models.EncryptedSessionMeta{CryptoKey: wrappedKey}
	var err error
	if meta.IP, err = c.seal(s.ClientMeta.IP, key); err != nil {
		return out, err
	}
	if meta.OS, err = c.seal(s.ClientMeta.OS, key); err != nil {
		return out, err
	}
	if meta.Browser, err = c.seal(s.ClientMeta.Browser, key); err != nil {
		return out, err
	}
	out.Meta = meta
	return out, nil
}

func (c SessionCodec) Decrypt(doc models.SessionDocument, key []byte) (models.Session, error) {
	out := models.Session{
		AuthLevel:  doc.AuthLevel,
		CreatedAt:  doc.Created,
		LastUsedAt: doc.LastUsed,
		IsCurrent:  doc.IsCurrent,
	}
	if doc.Meta == nil {
		return out, nil
	}
	meta := &models.SessionClientMeta{}
	var err error
	if meta.IP, err = c.open(doc.Meta.IP, key); err != nil {
		return models.Session{}, err
	}
	if meta.OS, err = c.open(doc.Meta.OS, key); err != nil {
		return models.Session{}, err
	}
	if meta.Browser, err = c.open(doc.Meta.Browser, key); err != nil {
		return models.Session{}, err
	}
	out.ClientMeta = meta
	return out, nil
}
