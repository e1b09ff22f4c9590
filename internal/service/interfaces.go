package service

import (
	"context"
	"encoding/json"

	"github.com/MKhiriev/go-vault-sync/internal/utils"
	"github.com/MKhiriev/go-vault-sync/models"
)

// AuthService implements the challenge protocol and session lifecycle of
// the reference server.
type AuthService interface {
	// IssueChallenge creates a single-use login challenge for the account
	// of req.Email. Accounts with TOTP demand a code first.
	IssueChallenge(ctx context.Context, req models.ChallengeRequest) (models.Challenge, error)
	// IssueUpgrade creates an elevation challenge for the calling session.
	// elevated is true when the session is already elevated.
	IssueUpgrade(ctx context.Context, p utils.Principal) (challenge models.Challenge, elevated bool, err error)
	// SubmitChallenge consumes challenge id and verifies the signature. A
	// login opens a new session. An upgrade elevates p's session.
	SubmitChallenge(ctx context.Context, id string, signed models.SignedChallenge, upgrade bool, p *utils.Principal) (SubmitResult, error)

	Register(ctx context.Context, req models.RegisterRequest) (models.User, error)
	ConfirmAccount(ctx context.Context, p utils.Principal, userID string) error
	SendVerificationEmail(ctx context.Context, p utils.Principal) error
	WhoAmI(ctx context.Context, p utils.Principal) (models.WhoAmI, error)

	// Authorize resolves a session token to its principal and session.
	// Expired elevations are dropped on the way.
	Authorize(ctx context.Context, token string) (utils.Principal, models.StoredSession, error)
	// CheckCSRF verifies the anti-forgery token of session.
	CheckCSRF(session models.StoredSession, token string) error

	Downgrade(ctx context.Context, p utils.Principal) error
	Logout(ctx context.Context, p utils.Principal) error

	// EnableTOTP issues a fresh TOTP secret and backup codes. The session
	// must be elevated.
	EnableTOTP(ctx context.Context, p utils.Principal) (models.TOTPInfo, error)
	DisableTOTP(ctx context.Context, p utils.Principal) error
}

// AccountService serves the master keys, password changes and usernames.
type AccountService interface {
	GetMasterKeys(ctx context.Context, p utils.Principal) (models.MasterKeys, error)
	SaveMasterKeys(ctx context.Context, p utils.Principal, keys models.MasterKeys) error
	ChangePassword(ctx context.Context, p utils.Principal, update models.PasswordUpdate) error
	ClaimUsername(ctx context.Context, p utils.Principal, username string) (models.Username, error)
	ReleaseUsername(ctx context.Context, p utils.Principal) error
}

// SessionService lists and manages the sessions of an account.
type SessionService interface {
	List(ctx context.Context, p utils.Principal) ([]models.SessionDocument, error)
	Describe(ctx context.Context, p utils.Principal, id string, doc models.SessionDocument) (models.StateResponse, error)
	Revoke(ctx context.Context, p utils.Principal, id string) error
}

// DocumentService stores opaque encrypted documents per user and
// collection. Checksums and indices are computed here.
type DocumentService interface {
	List(ctx context.Context, userID, collection, filter string) ([]json.RawMessage, error)
	Create(ctx context.Context, userID, collection string, body json.RawMessage) (models.StateResponse, error)
	Patch(ctx context.Context, userID, collection, id string, patch json.RawMessage) (models.StateResponse, error)
	Delete(ctx context.Context, userID, collection, id string) error

	// Fetch reads a singleton document. ok is false when none is stored.
	Fetch(ctx context.Context, userID, collection string) (doc json.RawMessage, ok bool, err error)
	Save(ctx context.Context, userID, collection string, body json.RawMessage) (models.StateResponse, error)
	Remove(ctx context.Context, userID, collection string) error
}

// SubmitResult is the outcome of a verified challenge. Token and CSRFToken
// are only set for logins.
type SubmitResult struct {
	Response  models.ChallengeResponse
	Token     models.Token
	CSRFToken string
}
