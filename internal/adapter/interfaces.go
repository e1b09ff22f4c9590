// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Rasul Khiriev

package adapter

import (
	"context"

	"github.com/MKhiriev/go-vault-sync/models"
)

//go:generate mockgen -source=interfaces.go -destination=../mock/auth_adapter_mock.go -package=mock

// AuthAdapter is the account and challenge-protocol side of the vault API.
type AuthAdapter interface {
	// RequestChallenge issues POST /challenge?action=request. A 412 answer
	// is returned as an *HTTPError wrapping ErrPreconditionFailed.
	RequestChallenge(ctx context.Context, req models.ChallengeRequest) (models.Challenge, error)

	// RequestUpgrade issues POST /upgrade?method=challenge&action=request
	// for the current session. upgraded is true when the API answers 200
	// because the session is already elevated.
	RequestUpgrade(ctx context.Context) (challenge models.Challenge, upgraded bool, err error)

	// SubmitChallenge issues POST /challenge/{id}?action=submit. For a login
	// (upgrade false) the anti-forgery token of the response is stored.
	SubmitChallenge(ctx context.Context, id string, signed models.SignedChallenge, upgrade bool) (models.ChallengeResponse, error)

	Register(ctx context.Context, req models.RegisterRequest) error
	ConfirmAccount(ctx context.Context, userID string) error
	WhoAmI(ctx context.Context) (models.WhoAmI, error)

	GetMasterKeys(ctx context.Context) (models.MasterKeys, error)
	PostMasterKeys(ctx context.Context, keys models.MasterKeys) error
	ChangePassword(ctx context.Context, update models.PasswordUpdate) error

	Downgrade(ctx context.Context) error
	Logout(ctx context.Context) error
	SendVerificationEmail(ctx context.Context) error

	CreateUsername(ctx context.Context, username string) (models.Username, error)
	DeleteUsername(ctx context.Context) error

	// EnableTOTP issues POST /totp?action=enable; the session must be
	// elevated. DisableTOTP issues POST /totp?action=disable.
	EnableTOTP(ctx context.Context) (models.TOTPInfo, error)
	DisableTOTP(ctx context.Context) error

	// Credentials returns the session cookie and anti-forgery token.
	Credentials() Credentials
	// SetCredentials restores persisted session state.
	SetCredentials(c Credentials)
}

// Credentials is the transport session state worth persisting across
// restarts.
type Credentials struct {
	SessionCookie string `json:"sessionCookie,omitempty"`
	CSRFToken     string `json:"csrfToken,omitempty"`
}
