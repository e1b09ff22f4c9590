package models

// ProfilePicture is the decrypted profile image of an account.
type ProfilePicture struct {
	Image      []byte     `json:"image"`
	Encoding   string     `json:"encoding"`
	Visibility Visibility `json:"visibility"`
}

// EncryptedProfilePictureMeta extends [Meta] with the image visibility.
type EncryptedProfilePictureMeta struct {
	Meta
	Visibility Visibility `json:"visibility"`
	Encoding   string     `json:"encoding"`
}

// EncryptedProfilePicture is the wire form of [ProfilePicture]. Image is
// base64; when visibility is encrypted both Image and Meta.Encoding are
// ciphertext.
type EncryptedProfilePicture struct {
	ID    string                      `json:"id,omitempty"`
	Image string                      `json:"image"`
	Meta  EncryptedProfilePictureMeta `json:"meta"`
}

func (p EncryptedProfilePicture) DocumentID() string { return p.ID }
func (p EncryptedProfilePicture) DocumentMeta() Meta { return p.Meta.Meta }
