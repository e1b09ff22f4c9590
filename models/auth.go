package models

// AuthUser carries the credentials typed by the user for one login attempt.
// It is never persisted.
type AuthUser struct {
	Email    string
	Password string
	TOTPCode *int
}

// ChallengeRequest is the body of POST /challenge?action=request.
type ChallengeRequest struct {
	Email    string `json:"email"`
	TOTPCode *int   `json:"totpCode,omitempty"`
}

// Challenge is a server-issued nonce plus the hashing parameters the client
// must use to answer it.
type Challenge struct {
	ID         string     `json:"id"`
	Data       string     `json:"data"`
	HashParams HashParams `json:"hashParams"`
}

// SignedChallenge is the body of POST /challenge/{id}?action=submit.
type SignedChallenge struct {
	Signature string `json:"signature"`
}

// ChallengeResponse describes the session opened by a verified challenge.
type ChallengeResponse struct {
	UserID      string `json:"userID"`
	SessionID   string `json:"sessionID"`
	Verified    bool   `json:"verified"`
	AccountType int    `json:"accountType"`
}

// RegisterRequest is the body of POST /register. Key is the base64 encoded
// Ed25519 public key derived from the auth seed.
type RegisterRequest struct {
	Email      string     `json:"email"`
	Key        string     `json:"key"`
	HashParams HashParams `json:"hashParams"`
}

// MasterKeys is the wire form of the user's RSA master keypair. PrivateKey is
// wrapped under a key derived from the crypto seed.
type MasterKeys struct {
	PublicKey  string     `json:"publicKey"`
	PrivateKey string     `json:"privateKey"`
	HashParams HashParams `json:"hashParams"`
}

// PasswordHashParams groups the two parameter sets of a password change.
type PasswordHashParams struct {
	Auth   HashParams `json:"auth"`
	Crypto HashParams `json:"crypto"`
}

// PasswordUpdate is the body of PUT /change_password.
type PasswordUpdate struct {
	AuthKey    string             `json:"authKey"`
	PrivateKey string             `json:"privateKey"`
	HashParams PasswordHashParams `json:"hashParams"`
}

// AuthCondition is the non-error outcome of an authentication attempt.
type AuthCondition int

const (
	// AuthSuccess means a new session was opened.
	AuthSuccess AuthCondition = iota
	// AuthUpgraded means the current session was elevated.
	AuthUpgraded
	// AuthTOTPRequired means the caller must retry with a TOTP code.
	AuthTOTPRequired
)

func (c AuthCondition) String() string {
	switch c {
	case AuthSuccess:
		return "success"
	case AuthUpgraded:
		return "upgraded"
	case AuthTOTPRequired:
		return "totp_required"
	default:
		return "unknown"
	}
}

// ErrorResponse is the JSON error body returned by the API.
type ErrorResponse struct {
	Title   string `json:"title"`
	Message string `json:"message"`
	Status  int    `json:"status"`
}

// Username is the body and response of the /username endpoint.
type Username struct {
	Username string `json:"username"`
	Meta     *Meta  `json:"meta,omitempty"`
}

// WhoAmI describes the session a request was authenticated with.
type WhoAmI struct {
	UserID      string    `json:"userID"`
	SessionID   string    `json:"sessionID"`
	Email       string    `json:"email"`
	Verified    bool      `json:"verified"`
	AccountType int       `json:"accountType"`
	AuthLevel   AuthLevel `json:"authLevel"`
	TOTPEnabled bool      `json:"totpEnabled"`
}

// TOTPInfo is returned once when TOTP is enabled. BackupCodes each stand in
// for one TOTP code a single time.
type TOTPInfo struct {
	Secret      string `json:"secret"`
	URI         string `json:"uri"`
	BackupCodes []int  `json:"backupCodes"`
}
