package models

// AuthLevel is the ordinal privilege tier of a session.
type AuthLevel int

const (
	AuthLevelAnonymous AuthLevel = iota
	AuthLevelNormal
	AuthLevelElevated
)

// SessionClientMeta is optional, client supplied session metadata.
type SessionClientMeta struct {
	IP      string `json:"ip"`
	OS      string `json:"os"`
	Browser string `json:"browser"`
}

// Session is a decrypted session descriptor. CreatedAt and LastUsedAt are
// unix milliseconds.
type Session struct {
	AuthLevel  AuthLevel          `json:"authLevel"`
	CreatedAt  int64              `json:"created"`
	LastUsedAt int64              `json:"lastUsed"`
	IsCurrent  bool               `json:"isCurrent"`
	ClientMeta *SessionClientMeta `json:"clientMeta,omitempty"`
}

// EncryptedSessionMeta is the encrypted client metadata of a session.
type EncryptedSessionMeta struct {
	CryptoKey string `json:"cryptoKey,omitempty"`
	IP        string `json:"ip"`
	OS        string `json:"os"`
	Browser   string `json:"browser"`
}

// SessionDocument is the wire form of [Session].
type SessionDocument struct {
	ID        string                `json:"id"`
	AuthLevel AuthLevel             `json:"authLevel"`
	Created   int64                 `json:"created"`
	LastUsed  int64                 `json:"lastUsed"`
	IsCurrent bool                  `json:"isCurrent"`
	Meta      *EncryptedSessionMeta `json:"meta,omitempty"`
}

func (s SessionDocument) DocumentID() string { return s.ID }

func (s SessionDocument) DocumentMeta() Meta {
	if s.Meta == nil {
		return Meta{}
	}
	return Meta{CryptoKey: s.Meta.CryptoKey}
}
