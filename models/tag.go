package models

// Tag is a decrypted tag.
type Tag struct {
	Name      string `json:"name"`
	Color     string `json:"color"`
	TextColor string `json:"textColor"`
}

// EncryptedTag is the wire form of [Tag].
type EncryptedTag struct {
	ID        string `json:"id,omitempty"`
	Name      string `json:"name"`
	Color     string `json:"color"`
	TextColor string `json:"textColor"`
	Meta      Meta   `json:"meta"`
}

func (t EncryptedTag) DocumentID() string { return t.ID }
func (t EncryptedTag) DocumentMeta() Meta { return t.Meta }
