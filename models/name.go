package models

// Visibility controls whether a field is stored in the clear or encrypted.
type Visibility string

const (
	VisibilityPublic    Visibility = "public"
	VisibilityEncrypted Visibility = "encrypted"
)

// DisplayName selects how a user is presented to others.
type DisplayName int

const (
	DisplayUsername DisplayName = iota
	DisplayFirstName
	DisplayFullName
)

// NameVisibility holds per-field visibility of a [Name].
type NameVisibility struct {
	FirstName Visibility `json:"firstName"`
	LastName  Visibility `json:"lastName"`
}

// Name is the decrypted name set of an account. Username is managed through
// /username and is read-only here.
type Name struct {
	FirstName          string         `json:"firstName"`
	LastName           string         `json:"lastName"`
	Username           string         `json:"username,omitempty"`
	Visibility         NameVisibility `json:"visibility"`
	DisplayName        DisplayName    `json:"displayName"`
	PrivateDisplayName *DisplayName   `json:"privateDisplayName,omitempty"`
}

// EncryptedName is the wire form of [Name]. FirstName and LastName are
// ciphertext only when their visibility is encrypted.
type EncryptedName struct {
	ID                 string         `json:"id,omitempty"`
	FirstName          string         `json:"firstName"`
	LastName           string         `json:"lastName"`
	Username           string         `json:"username,omitempty"`
	Visibility         NameVisibility `json:"visibility"`
	DisplayName        DisplayName    `json:"displayName"`
	PrivateDisplayName string         `json:"privateDisplayName,omitempty"`
	Meta               Meta           `json:"meta"`
}

func (n EncryptedName) DocumentID() string { return n.ID }
func (n EncryptedName) DocumentMeta() Meta { return n.Meta }
