package models

import "time"

// User is an account record of the reference server. TOTPBackupCodes holds
// the keyed hashes of the unused backup codes.
type User struct {
	ID              string
	Email           string
	AuthKey         string
	HashParams      HashParams
	Verified        bool
	Confirmed       bool
	AccountType     int
	TOTPSecret      string
	TOTPBackupCodes []string
	Username        *string
	CreatedAt       time.Time
}

// ChallengeKind distinguishes login challenges from elevation challenges.
type ChallengeKind string

const (
	ChallengeAuth    ChallengeKind = "auth"
	ChallengeUpgrade ChallengeKind = "upgrade"
)

// StoredChallenge is an issued, not yet answered challenge.
type StoredChallenge struct {
	ID        string
	UserID    string
	Data      string
	Kind      ChallengeKind
	SessionID string
	ExpiresAt time.Time
}

// StoredSession is a server-side session record.
type StoredSession struct {
	ID            string
	UserID        string
	AuthLevel     AuthLevel
	CSRFToken     string
	CreatedAt     time.Time
	LastUsedAt    time.Time
	ElevatedUntil *time.Time
	Meta          string
}

// StoredDocument is one encrypted document of a user collection. Body holds
// the client JSON without id and server-managed meta fields.
type StoredDocument struct {
	UserID     string
	Collection string
	ID         string
	Body       string
	Checksum   string
	Index      *int
	Archived   bool
	CreatedAt  time.Time
}
